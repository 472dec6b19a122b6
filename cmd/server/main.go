package main

import (
	"fmt"
	"log"

	"github.com/architect/learning-profiles/internal/common/database"
	"github.com/architect/learning-profiles/internal/common/middleware"
	profileHandlers "github.com/architect/learning-profiles/internal/assessment/handlers"
	"github.com/architect/learning-profiles/internal/assessment/repository"
	"github.com/architect/learning-profiles/internal/assessment/services"
	"github.com/architect/learning-profiles/pkg/config"
	"github.com/architect/learning-profiles/pkg/logger"
	"github.com/architect/learning-profiles/pkg/metrics"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize logger
	if err := logger.Init(cfg.Server.Env); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	// Initialize database (SQLite for development, PostgreSQL for production)
	if err := database.InitWithType(cfg.Database.Type, cfg.Database.DSN); err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	if err := repository.AutoMigrate(); err != nil {
		log.Fatalf("Failed to migrate database: %v", err)
	}

	// Apply the consolidation engine tuning
	services.Configure(cfg.Engine)

	// Create Gin engine
	router := gin.Default()

	// Apply middleware
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggerMiddleware())
	router.Use(middleware.ErrorHandler())

	// Health check endpoint
	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
			"app":    "learning-profiles",
		})
	})

	// Operational metrics snapshot
	router.GET("/metrics", func(c *gin.Context) {
		c.JSON(200, metrics.Default().GetMetrics())
	})

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		profiles := v1.Group("/profiles")
		{
			profiles.POST("/assessments", middleware.AuthRequired(), profileHandlers.SubmitAssessment)
			profiles.GET("/lookup", profileHandlers.LookupProfile)
			profiles.GET("/:id", profileHandlers.GetProfile)
			profiles.GET("/:id/sources", profileHandlers.GetDataSources)
		}
	}

	// Start server
	address := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Starting learning profiles server",
		zap.String("address", address),
		zap.String("env", cfg.Server.Env),
	)

	if err := router.Run(address); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

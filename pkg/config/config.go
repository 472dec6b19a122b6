package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Engine   EngineConfig
}

type ServerConfig struct {
	Host string
	Port string
	Env  string
}

type DatabaseConfig struct {
	Type string // "sqlite" or "postgres"
	DSN  string
	Path string // For SQLite: file path
}

// EngineConfig tunes the consolidation engine. Thresholds are expressed as a
// fraction of the active scale's span so they work for both scoring versions.
type EngineConfig struct {
	ConflictThreshold    float64 // mean absolute role difference that flags a conflict
	MediumDifferential   float64 // lower bound of the "medium" context differential
	HighDifferential     float64 // lower bound of the "high" context differential
	ConflictDamping      float64 // factor applied to a conflicting submission's confidence boost
	EstablishedThreshold int     // confidence percentage at which a profile is considered established
	RemoteURL            string  // optional remote consolidation endpoint; empty disables it
	RemoteTimeout        time.Duration
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	dbType := getEnv("DB_TYPE", "sqlite") // Default to SQLite for development
	dsn, dbPath := buildDSN(dbType)

	return &Config{
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnv("SERVER_PORT", "8080"),
			Env:  getEnv("ENV", "development"),
		},
		Database: DatabaseConfig{
			Type: dbType,
			DSN:  dsn,
			Path: dbPath,
		},
		Engine: EngineConfig{
			ConflictThreshold:    getEnvFloat("CONFLICT_THRESHOLD", 0.375),
			MediumDifferential:   getEnvFloat("CONFLICT_MEDIUM", 0.5),
			HighDifferential:     getEnvFloat("CONFLICT_HIGH", 0.625),
			ConflictDamping:      getEnvFloat("CONFLICT_DAMPING", 0.5),
			EstablishedThreshold: getEnvInt("ESTABLISHED_THRESHOLD", 80),
			RemoteURL:            getEnv("REMOTE_CONSOLIDATION_URL", ""),
			RemoteTimeout:        getEnvDuration("REMOTE_CONSOLIDATION_TIMEOUT", 3*time.Second),
		},
	}, nil
}

func buildDSN(dbType string) (string, string) {
	if dbType == "postgres" {
		// PostgreSQL configuration
		dbHost := getEnv("DB_HOST", "localhost")
		dbPort := getEnv("DB_PORT", "5432")
		dbUser := getEnv("DB_USER", "postgres")
		dbPassword := getEnv("DB_PASSWORD", "postgres")
		dbName := getEnv("DB_NAME", "learning_profiles")
		sslMode := getEnv("DB_SSLMODE", "disable")

		dsn := fmt.Sprintf(
			"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			dbHost, dbPort, dbUser, dbPassword, dbName, sslMode,
		)
		return dsn, ""
	}

	// SQLite configuration (default for development)
	dbPath := getEnv("SQLITE_PATH", "./data/learning_profiles.db")
	dsn := dbPath + "?mode=rwc&cache=shared&timeout=5000"
	return dsn, dbPath
}

func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value, exists := os.LookupEnv(key); exists {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

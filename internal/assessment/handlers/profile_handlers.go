package handlers

import (
	"strconv"

	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/common/middleware"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/services"
	"github.com/gin-gonic/gin"
)

// SubmitAssessment scores a submission and consolidates it into the subject's
// profile, creating the profile on first contact.
func SubmitAssessment(c *gin.Context) {
	var req models.SubmitAssessmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		middleware.JSONErrorResponse(c, errors.Validation("invalid request body", err.Error()))
		return
	}

	result, err := services.SubmitAssessment(c.Request.Context(), req)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	status := 200
	if result.IsNewProfile {
		status = 201
	}
	c.JSON(status, result)
}

// GetProfile retrieves a consolidated profile by id, presented for the
// requested viewing context.
func GetProfile(c *gin.Context) {
	profileID := c.Param("id")
	view := c.DefaultQuery("view", "neutral")

	profile, err := services.GetProfile(c.Request.Context(), profileID, view)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(200, profile)
}

// LookupProfile resolves a profile by subject name and age in months.
func LookupProfile(c *gin.Context) {
	name := c.Query("name")
	ageStr := c.Query("age_months")
	view := c.DefaultQuery("view", "neutral")

	ageMonths, err := strconv.Atoi(ageStr)
	if err != nil {
		middleware.JSONErrorResponse(c, errors.Validation("invalid age_months", "age_months must be an integer"))
		return
	}

	profile, serr := services.LookupProfile(c.Request.Context(), name, ageMonths, view)
	if serr != nil {
		middleware.JSONErrorResponse(c, serr)
		return
	}

	c.JSON(200, profile)
}

// GetDataSources retrieves the contribution history for a profile.
func GetDataSources(c *gin.Context) {
	profileID := c.Param("id")

	sources, err := services.GetDataSources(c.Request.Context(), profileID)
	if err != nil {
		middleware.JSONErrorResponse(c, err)
		return
	}

	c.JSON(200, sources)
}

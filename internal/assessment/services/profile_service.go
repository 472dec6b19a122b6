package services

import (
	"context"

	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"github.com/architect/learning-profiles/internal/assessment/repository"
	"github.com/architect/learning-profiles/internal/assessment/scoring"
)

// GetProfile retrieves a consolidated profile by id and presents it for the
// given viewing context.
func GetProfile(ctx context.Context, profileID, view string) (*models.DisplayProfile, error) {
	profile, err := repository.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.NotFound("profile")
	}

	return Present(profile, view), nil
}

// LookupProfile resolves a profile by subject name and age. Ambiguity is
// surfaced, never resolved silently.
func LookupProfile(ctx context.Context, subjectName string, ageMonths int, view string) (*models.DisplayProfile, error) {
	if subjectName == "" {
		return nil, errors.Validation("missing subject name", "")
	}
	if !scoring.ValidAgeMonths(ageMonths) {
		return nil, errors.Validation("age out of range", "")
	}

	bucket := scoring.AgeBucketFromMonths(ageMonths)
	profile, err := repository.FindBySubject(ctx, subjectName, bucket)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.NotFound("profile")
	}

	return Present(profile, view), nil
}

// GetDataSources returns the contribution history for a profile.
func GetDataSources(ctx context.Context, profileID string) (*models.DataSourceListResponse, error) {
	profile, err := repository.GetProfileByID(ctx, profileID)
	if err != nil {
		return nil, err
	}
	if profile == nil {
		return nil, errors.NotFound("profile")
	}

	sources, err := repository.ListDataSources(ctx, profile.ID)
	if err != nil {
		return nil, err
	}

	return &models.DataSourceListResponse{
		ProfileID: profile.ProfileID,
		Sources:   sources,
		Total:     len(sources),
	}, nil
}

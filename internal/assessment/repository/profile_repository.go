package repository

import (
	"context"

	"github.com/architect/learning-profiles/internal/common/database"
	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"gorm.io/gorm"
)

// AutoMigrate creates the engine's tables.
func AutoMigrate() error {
	return database.DB.AutoMigrate(
		&models.Profile{},
		&models.DataSource{},
		&models.AssignmentCompletion{},
	)
}

// GetProfileByID retrieves a profile by its public id, with its data sources.
// Returns (nil, nil) when no profile exists.
func GetProfileByID(ctx context.Context, profileID string) (*models.Profile, error) {
	var profile models.Profile
	result := database.DB.WithContext(ctx).
		Preload("DataSources", func(db *gorm.DB) *gorm.DB {
			return db.Order("contributed_at ASC, id ASC")
		}).
		Where("profile_id = ?", profileID).
		First(&profile)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Internal("failed to fetch profile", result.Error.Error())
	}

	return &profile, nil
}

// FindBySubject resolves a profile by exact subject name and age bucket.
// Returns (nil, nil) when no profile matches and an AmbiguousSubject error
// when more than one does; ambiguity is never resolved silently.
func FindBySubject(ctx context.Context, subjectName, ageBucket string) (*models.Profile, error) {
	var matches []models.Profile
	result := database.DB.WithContext(ctx).
		Where("subject_name = ? AND age_bucket = ?", subjectName, ageBucket).
		Limit(2).
		Find(&matches)

	if result.Error != nil {
		return nil, errors.Internal("failed to look up subject", result.Error.Error())
	}

	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return GetProfileByID(ctx, matches[0].ProfileID)
	default:
		return nil, errors.AmbiguousSubject(subjectName, ageBucket)
	}
}

// CreateProfile persists a new profile with its initial data sources.
func CreateProfile(ctx context.Context, profile *models.Profile) error {
	result := database.DB.WithContext(ctx).Create(profile)
	if result.Error != nil {
		return errors.Internal("failed to create profile", result.Error.Error())
	}
	return nil
}

// UpdateProfile writes a consolidated profile back under the optimistic lock:
// the UPDATE only applies if lock_version is unchanged since the profile was
// read. A lost race surfaces as a PersistenceConflict for the caller to retry
// against fresh state. retakeRole, when set, flips that role's earlier data
// sources to is_current=false in the same transaction.
func UpdateProfile(ctx context.Context, profile *models.Profile, retakeRole string) error {
	readVersion := profile.LockVersion

	err := database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.Profile{}).
			Where("id = ? AND lock_version = ?", profile.ID, readVersion).
			Updates(map[string]interface{}{
				"consolidated_scores":     profile.ConsolidatedScores,
				"accumulated_weight":      profile.AccumulatedWeight,
				"role_scores":             profile.RoleScores,
				"covered_categories":      profile.CoveredCategories,
				"label":                   profile.Label,
				"strengths":               profile.Strengths,
				"growth_areas":            profile.GrowthAreas,
				"confidence_percentage":   profile.ConfidencePercentage,
				"completeness_percentage": profile.CompletenessPercentage,
				"total_assessments":       profile.TotalAssessments,
				"parent_assessments":      profile.ParentAssessments,
				"teacher_assessments":     profile.TeacherAssessments,
				"conflict_flag":           profile.ConflictFlag,
				"context_differential":    profile.ContextDifferential,
				"school_context":          profile.SchoolContext,
				"lock_version":            readVersion + 1,
			})
		if result.Error != nil {
			return errors.Internal("failed to update profile", result.Error.Error())
		}
		if result.RowsAffected == 0 {
			return errors.PersistenceConflict(profile.ProfileID)
		}

		if retakeRole != "" {
			if err := tx.Model(&models.DataSource{}).
				Where("profile_ref = ? AND respondent_role = ? AND is_current = ?", profile.ID, retakeRole, true).
				Update("is_current", false).Error; err != nil {
				return errors.Internal("failed to supersede data sources", err.Error())
			}
		}

		for i := range profile.DataSources {
			if profile.DataSources[i].ID != 0 {
				continue
			}
			profile.DataSources[i].ProfileRef = profile.ID
			if err := tx.Create(&profile.DataSources[i]).Error; err != nil {
				return errors.Internal("failed to record data source", err.Error())
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	profile.LockVersion = readVersion + 1
	return nil
}

// ListDataSources returns a profile's contribution history, oldest first.
func ListDataSources(ctx context.Context, profileRef uint) ([]models.DataSource, error) {
	var sources []models.DataSource
	result := database.DB.WithContext(ctx).
		Where("profile_ref = ?", profileRef).
		Order("contributed_at ASC, id ASC").
		Find(&sources)

	if result.Error != nil {
		return nil, errors.Internal("failed to fetch data sources", result.Error.Error())
	}

	return sources, nil
}

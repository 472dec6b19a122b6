package repository

import (
	"context"

	"github.com/architect/learning-profiles/internal/common/database"
	"github.com/architect/learning-profiles/internal/common/errors"
	"github.com/architect/learning-profiles/internal/assessment/models"
	"gorm.io/gorm"
)

// RecordAssignmentCompletion stores the completion signal for an assessment
// that was submitted against an assignment token.
func RecordAssignmentCompletion(ctx context.Context, completion *models.AssignmentCompletion) error {
	result := database.DB.WithContext(ctx).Create(completion)
	if result.Error != nil {
		return errors.Internal("failed to record assignment completion", result.Error.Error())
	}
	return nil
}

// GetAssignmentCompletion retrieves the completion record for a token, or
// (nil, nil) when the assignment has not been completed.
func GetAssignmentCompletion(ctx context.Context, token string) (*models.AssignmentCompletion, error) {
	var completion models.AssignmentCompletion
	result := database.DB.WithContext(ctx).
		Where("assignment_token = ?", token).
		Order("completed_at DESC").
		First(&completion)

	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, errors.Internal("failed to fetch assignment completion", result.Error.Error())
	}

	return &completion, nil
}

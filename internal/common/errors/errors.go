package errors

import (
	"fmt"
)

type AppError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
	Status  int    `json:"status"`
}

func (e *AppError) Error() string {
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Message, e.Details)
}

// Common error codes
const (
	CodeValidation              = "VALIDATION_ERROR"
	CodeNotFound                = "NOT_FOUND"
	CodeUnauthorized            = "UNAUTHORIZED"
	CodeAmbiguousSubject        = "AMBIGUOUS_SUBJECT"
	CodeScoringVersionMismatch  = "SCORING_VERSION_MISMATCH"
	CodePersistenceConflict     = "PERSISTENCE_CONFLICT"
	CodeInternalError           = "INTERNAL_ERROR"
	CodeBadRequest              = "BAD_REQUEST"
)

// Error constructors
func Validation(message string, details string) *AppError {
	return &AppError{
		Code:    CodeValidation,
		Message: message,
		Details: details,
		Status:  400,
	}
}

func NotFound(resource string) *AppError {
	return &AppError{
		Code:    CodeNotFound,
		Message: fmt.Sprintf("%s not found", resource),
		Status:  404,
	}
}

func Unauthorized(message string) *AppError {
	return &AppError{
		Code:    CodeUnauthorized,
		Message: message,
		Status:  401,
	}
}

// AmbiguousSubject is returned when a name/age lookup matches more than one
// profile and the caller supplied no profile id to disambiguate.
func AmbiguousSubject(name, ageBucket string) *AppError {
	return &AppError{
		Code:    CodeAmbiguousSubject,
		Message: "multiple profiles match the given subject",
		Details: fmt.Sprintf("name=%s age_bucket=%s", name, ageBucket),
		Status:  409,
	}
}

// ScoringVersionMismatch is returned when a submission targets a profile that
// was built under an incompatible scoring version.
func ScoringVersionMismatch(profileVersion, submissionVersion string) *AppError {
	return &AppError{
		Code:    CodeScoringVersionMismatch,
		Message: "submission scoring version does not match profile",
		Details: fmt.Sprintf("profile=%s submission=%s", profileVersion, submissionVersion),
		Status:  409,
	}
}

// PersistenceConflict is returned after a concurrent write on the same
// profile could not be resolved by the internal retry.
func PersistenceConflict(profileID string) *AppError {
	return &AppError{
		Code:    CodePersistenceConflict,
		Message: "concurrent update on profile, retry the request",
		Details: fmt.Sprintf("profile_id=%s", profileID),
		Status:  409,
	}
}

func Internal(message string, details string) *AppError {
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Details: details,
		Status:  500,
	}
}

func BadRequest(message string) *AppError {
	return &AppError{
		Code:    CodeBadRequest,
		Message: message,
		Status:  400,
	}
}

// IsCode reports whether err is an AppError carrying the given code.
func IsCode(err error, code string) bool {
	appErr, ok := err.(*AppError)
	return ok && appErr.Code == code
}

package data

import (
	"errors"

	apperrors "github.com/reelapps/reelhunter/internal/errors"
)

// Shared sentinel errors for data-layer repositories.
var (
	// Job posting repository sentinels.
	ErrJobPostingNotFound   = errors.New("job posting not found")
	ErrRecruiterIDRequired  = errors.New("recruiter_id is required")
	ErrJobPostingIDRequired = errors.New("job posting id is required")
)

// notFound classifies a sentinel as an AppError so both errors.Is and apperrors.IsNotFound hold.
func notFound(sentinel error) error {
	return &apperrors.AppError{Code: apperrors.ErrCodeNotFound, Message: sentinel.Error(), Cause: sentinel}
}

// required classifies a missing-argument sentinel as a validation error.
func required(field string, sentinel error) error {
	return &apperrors.AppError{Code: apperrors.ErrCodeValidation, Message: sentinel.Error(), Field: field, Cause: sentinel}
}

package services

import (
	"errors"

	apperrors "github.com/lumiprep/session-service/internal/errors"
	"github.com/lumiprep/session-service/internal/session"
)

// ===== COMMON SERVICE ERRORS =====

var (
	// Generic errors
	ErrNotFound         = errors.New("resource not found")
	ErrValidationFailed = errors.New("validation failed")
	ErrInternalError    = errors.New("internal server error")
	ErrBadRequest       = errors.New("bad request")
	ErrConflict         = errors.New("resource conflict")

	// Assignment specific errors
	ErrAssignmentNotFound = errors.New("assignment not found")
	ErrAssignmentEmpty    = errors.New("assignment has no usable modules")

	// Session specific errors
	ErrSessionNotFound      = errors.New("session not found")
	ErrSessionAlreadyActive = errors.New("session already active for this assignment")
	ErrAttemptLimitExceeded = errors.New("maximum attempts exceeded")
	ErrRetakeNotAllowed     = errors.New("assignment does not allow retakes")

	// Import specific errors
	ErrImportEmptyFile     = errors.New("import file contains no questions")
	ErrImportInvalidFormat = errors.New("unsupported import file format")
)

// ===== CUSTOM ERROR TYPES =====

// Use shared validation errors from errors package
type ValidationError = apperrors.ValidationError
type ValidationErrors = apperrors.ValidationErrors

// ===== ERROR HELPERS =====

// IsNotFound checks if error represents a "not found" condition
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound) ||
		errors.Is(err, ErrAssignmentNotFound) ||
		errors.Is(err, ErrSessionNotFound)
}

// IsValidation checks if error represents a validation failure
func IsValidation(err error) bool {
	if errors.Is(err, ErrValidationFailed) {
		return true
	}
	var ve apperrors.ValidationErrors
	return errors.As(err, &ve)
}

// IsConflict checks if error represents a state conflict: a duplicate start,
// an exhausted attempt budget, or an engine call rejected by the state
// machine.
func IsConflict(err error) bool {
	return errors.Is(err, ErrConflict) ||
		errors.Is(err, ErrSessionAlreadyActive) ||
		errors.Is(err, ErrAttemptLimitExceeded) ||
		errors.Is(err, ErrRetakeNotAllowed) ||
		errors.Is(err, session.ErrAlreadyStarted) ||
		errors.Is(err, session.ErrFinalized) ||
		errors.Is(err, session.ErrSuspended)
}

// IsBadRequest checks if error represents a rejected engine operation that
// the caller can fix by changing the request.
func IsBadRequest(err error) bool {
	return errors.Is(err, ErrBadRequest) ||
		errors.Is(err, ErrAssignmentEmpty) ||
		errors.Is(err, ErrImportEmptyFile) ||
		errors.Is(err, ErrImportInvalidFormat) ||
		session.IsConfigError(err) ||
		errors.Is(err, session.ErrModuleNotActive) ||
		errors.Is(err, session.ErrUnknownQuestion) ||
		errors.Is(err, session.ErrNotLastPage) ||
		errors.Is(err, session.ErrNoSectionBreak) ||
		errors.Is(err, session.ErrSectionBreak) ||
		errors.Is(err, session.ErrNotFinalizing) ||
		errors.Is(err, session.ErrCancelTimeout) ||
		errors.Is(err, session.ErrReviewLocked) ||
		errors.Is(err, session.ErrNotStarted)
}

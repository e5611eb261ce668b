package session

import "errors"

// Configuration errors: the session fails closed and never starts.
var (
	ErrNoModules   = errors.New("assignment has no modules")
	ErrEmptyModule = errors.New("module has no questions")
)

// Lifecycle errors.
var (
	ErrAlreadyStarted  = errors.New("session already started")
	ErrNotStarted      = errors.New("session not started")
	ErrSectionBreak    = errors.New("session is at a section break")
	ErrSuspended       = errors.New("session is suspended")
	ErrReviewLocked    = errors.New("session is review-only")
	ErrModuleNotActive = errors.New("module is not the active module")
	ErrUnknownQuestion = errors.New("question does not belong to the module")
	ErrNotLastPage     = errors.New("manual advance requires the last page")
	ErrNoSectionBreak  = errors.New("no section break to leave")
	ErrFinalized       = errors.New("session is finalizing or submitted")
	ErrNotFinalizing   = errors.New("session is not finalizing")
	ErrCancelTimeout   = errors.New("timeout submission cannot be canceled")
)

// IsConfigError reports whether err means the question source yielded
// nothing runnable.
func IsConfigError(err error) bool {
	return errors.Is(err, ErrNoModules) || errors.Is(err, ErrEmptyModule)
}

package models

// SessionMode selects the rule set one attempt runs under. Exam mode is
// single-pass: a module is frozen once the session advances past it.
// Practice mode allows free navigation and early advance. Review mode locks
// every mutation and exists only to replay a finished attempt.
type SessionMode string

const (
	ModeExam     SessionMode = "exam"
	ModePractice SessionMode = "practice"
	ModeReview   SessionMode = "review"
)

type ResumeMode string

const (
	ResumeRestart ResumeMode = "restart"
	ResumeResume  ResumeMode = "resume"
)

// AdvanceReason distinguishes a user-driven module advance from a clock
// expiry. It is preserved through finalization so the caller can tell
// "I chose to submit" apart from "time ran out".
type AdvanceReason string

const (
	AdvanceManual  AdvanceReason = "manual"
	AdvanceTimeout AdvanceReason = "timeout"
)

// SessionMeta is the per-attempt configuration. It is assembled once at
// session start from the assignment plus caller overrides and never mutated
// afterward; a new attempt builds a new SessionMeta.
type SessionMeta struct {
	AssignmentID string      `json:"assignment_id"`
	UserID       string      `json:"user_id"`
	Mode         SessionMode `json:"mode"`
	ResumeMode   ResumeMode  `json:"resume_mode"`
	AttemptLimit *int        `json:"attempt_limit,omitempty"`
	AllowRetake  bool        `json:"allow_retake"`
}

// ReviewOnly reports whether every mutation is locked.
func (m SessionMeta) ReviewOnly() bool {
	return m.Mode == ModeReview
}

// FreeNavigation reports whether the session may jump between pages without
// the exam-mode last-page gate on manual advance.
func (m SessionMeta) FreeNavigation() bool {
	return m.Mode != ModeExam
}

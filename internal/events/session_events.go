package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/lumiprep/session-service/internal/models"
)

// EventType labels the session lifecycle events published to the message bus.
type EventType string

const (
	EventSessionStarted   EventType = "session.started"
	EventSessionSubmitted EventType = "session.submitted"
	EventSessionTimedOut  EventType = "session.timed_out"
)

const eventSource = "session-service"

// SessionEvent is the envelope every published event shares.
type SessionEvent struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	Source    string      `json:"source"`
	Version   string      `json:"version"`
	Data      interface{} `json:"data"`
}

type SessionStartedEvent struct {
	AssignmentID string             `json:"assignment_id"`
	UserID       string             `json:"user_id"`
	Mode         models.SessionMode `json:"mode"`
	ModuleCount  int                `json:"module_count"`
	Resumed      bool               `json:"resumed"`
}

type SessionSubmittedEvent struct {
	ResultID     string               `json:"result_id"`
	AssignmentID string               `json:"assignment_id"`
	UserID       string               `json:"user_id"`
	EndReason    models.AdvanceReason `json:"end_reason"`
	Correct      int                  `json:"correct"`
	Total        int                  `json:"total"`
	ElapsedSec   int                  `json:"elapsed_sec"`
}

func newEvent(eventType EventType, data interface{}) *SessionEvent {
	return &SessionEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Timestamp: time.Now(),
		Source:    eventSource,
		Version:   "1.0",
		Data:      data,
	}
}

// NewSessionStartedEvent builds the envelope for a started attempt.
func NewSessionStartedEvent(data SessionStartedEvent) *SessionEvent {
	return newEvent(EventSessionStarted, data)
}

// NewSessionSubmittedEvent builds the envelope for a submitted attempt. A
// timeout submission gets its own type so downstream reporting can separate
// voluntary from forced finishes.
func NewSessionSubmittedEvent(data SessionSubmittedEvent) *SessionEvent {
	if data.EndReason == models.AdvanceTimeout {
		return newEvent(EventSessionTimedOut, data)
	}
	return newEvent(EventSessionSubmitted, data)
}

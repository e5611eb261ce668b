package repositories

import (
	"time"

	"github.com/lumiprep/session-service/internal/models"
)

// ===== SHARED FILTER STRUCTS =====

type ResultFilters struct {
	AssignmentID *string             `json:"assignment_id"`
	UserID       *string             `json:"user_id"`
	Mode         *models.SessionMode `json:"mode"`
	DateFrom     *time.Time          `json:"date_from"`
	DateTo       *time.Time          `json:"date_to"`
	Limit        int                 `json:"limit"`
	Offset       int                 `json:"offset"`
	SortBy       string              `json:"sort_by"`    // "submitted_at", "elapsed_sec"
	SortOrder    string              `json:"sort_order"` // "asc", "desc"
}

type QuestionFilters struct {
	ModuleKey  *string                 `json:"module_key"`
	Skill      *string                 `json:"skill"`
	Difficulty *models.DifficultyLevel `json:"difficulty"`
	Limit      int                     `json:"limit"`
	Offset     int                     `json:"offset"`
}

// ===== SHARED STATISTICS STRUCTS =====

type AssignmentStats struct {
	TotalAttempts    int     `json:"total_attempts"`
	TimedOutAttempts int     `json:"timed_out_attempts"`
	AverageCorrect   float64 `json:"average_correct"`
	AverageElapsed   int     `json:"average_elapsed"`
}

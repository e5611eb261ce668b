package models

import (
	"time"

	"gorm.io/datatypes"
)

// SectionSummary is the correct/total tally for one top-level section.
type SectionSummary struct {
	Correct int `json:"correct"`
	Total   int `json:"total"`
}

// Result is the frozen outcome of one submitted attempt. It is built as a
// copy-on-write snapshot at submit time and never mutated after creation.
type Result struct {
	ID           string        `json:"id" gorm:"primaryKey;size:64"`
	AssignmentID string        `json:"assignment_id" gorm:"not null;size:64;index"`
	UserID       string        `json:"user_id" gorm:"not null;size:64;index"`
	Mode         SessionMode   `json:"mode" gorm:"size:16"`
	EndReason    AdvanceReason `json:"end_reason" gorm:"size:16"`

	ElapsedSec int `json:"elapsed_sec"`

	Summary            datatypes.JSONType[map[string]SectionSummary]      `json:"summary" gorm:"type:jsonb"`
	SkillPercents      datatypes.JSONType[map[string]int]                 `json:"skill_percents" gorm:"type:jsonb"`
	DifficultyPercents datatypes.JSONType[map[string]int]                 `json:"difficulty_percents" gorm:"type:jsonb"`
	PerQuestionTime    datatypes.JSONType[map[string]int]                 `json:"per_question_time" gorm:"type:jsonb"`
	RawAnswers         datatypes.JSONType[map[string]map[string]string]   `json:"raw_answers" gorm:"type:jsonb"`

	SubmittedAt time.Time `json:"submitted_at"`
	CreatedAt   time.Time `json:"created_at"`
}

func (Result) TableName() string {
	return "results"
}

// CorrectTotal sums the per-section tallies.
func (r *Result) CorrectTotal() (correct, total int) {
	for _, s := range r.Summary.Data() {
		correct += s.Correct
		total += s.Total
	}
	return correct, total
}

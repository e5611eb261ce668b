package models

import (
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AnswerType string

const (
	AnswerChoice  AnswerType = "choice"
	AnswerNumeric AnswerType = "numeric"
	AnswerText    AnswerType = "text"
)

type DifficultyLevel string

const (
	DifficultyEasy   DifficultyLevel = "Easy"
	DifficultyMedium DifficultyLevel = "Medium"
	DifficultyHard   DifficultyLevel = "Hard"
)

// Choice is one selectable option of a choice question. Value is the graded
// token ("A", "B", ...), Label the rendered text.
type Choice struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Question is immutable once its module has been handed to a session.
type Question struct {
	ID         string           `json:"id" gorm:"primaryKey;size:64"`
	ModuleKey  string           `json:"module_key" gorm:"not null;size:64;index"`
	Position   int              `json:"position" gorm:"not null"`
	Text       string           `json:"text" gorm:"type:text;not null" validate:"required"`
	Passage    *string          `json:"passage,omitempty" gorm:"type:text"`
	AnswerType AnswerType       `json:"answer_type" gorm:"size:16" validate:"omitempty,answer_type"`
	Choices    datatypes.JSONType[[]Choice] `json:"choices" gorm:"type:jsonb"`
	Correct    *string          `json:"correct,omitempty" gorm:"size:255"`
	Skill      *string          `json:"skill,omitempty" gorm:"size:100;index"`
	Difficulty *DifficultyLevel `json:"difficulty,omitempty" gorm:"size:16"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Question) TableName() string {
	return "questions"
}

// ChoiceList unwraps the JSON column.
func (q *Question) ChoiceList() []Choice {
	return q.Choices.Data()
}

// Module is one timed or untimed section of an assessment. DurationSec nil
// means untimed.
type Module struct {
	Key         string     `json:"key"`
	Title       string     `json:"title"`
	DurationSec *int       `json:"duration_sec,omitempty"`
	Questions   []Question `json:"questions"`
}

// Section returns the top-level score bucket a module belongs to, derived
// from the module key convention "<section>-<ordinal>" ("math-2" -> "math").
// A key without an ordinal suffix is its own section.
func (m *Module) Section() string {
	return SectionOf(m.Key)
}

func SectionOf(moduleKey string) string {
	if i := strings.LastIndex(moduleKey, "-"); i > 0 {
		return moduleKey[:i]
	}
	return moduleKey
}

// Assignment binds an ordered set of modules to the configuration one
// attempt runs under. It is the stable resource the resume key scopes to.
type Assignment struct {
	ID          string  `json:"id" gorm:"primaryKey;size:64"`
	Title       string  `json:"title" gorm:"not null;size:200" validate:"required,min=1,max=200"`
	Description *string `json:"description,omitempty" gorm:"type:text" validate:"omitempty,max=1000"`
	Mode        SessionMode `json:"mode" gorm:"size:16;default:exam" validate:"omitempty,session_mode"`

	ResumeEnabled bool `json:"resume_enabled" gorm:"default:false"`
	AttemptLimit  *int `json:"attempt_limit,omitempty" validate:"omitempty,min=1,max=10"`
	AllowRetake   bool `json:"allow_retake" gorm:"default:false"`
	ShuffleModules bool `json:"shuffle_modules" gorm:"default:false"`

	CreatedBy string         `json:"created_by" gorm:"size:64;index"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `json:"-" gorm:"index"`

	// Stored module layout: ordered module descriptors without questions.
	ModuleLayout datatypes.JSONType[[]ModuleDescriptor] `json:"module_layout" gorm:"type:jsonb"`
}

func (Assignment) TableName() string {
	return "assignments"
}

// ModuleDescriptor is the persisted shape of a module minus its questions.
type ModuleDescriptor struct {
	Key         string `json:"key"`
	Title       string `json:"title"`
	DurationSec *int   `json:"duration_sec,omitempty"`
}

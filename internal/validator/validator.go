package validator

import (
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	apperrors "github.com/lumiprep/session-service/internal/errors"
	"github.com/lumiprep/session-service/internal/models"
)

// Validator wraps struct tag validation for request payloads.
type Validator struct {
	structValidator *validator.Validate
}

// New creates a new validator instance with all custom rules registered
func New() *Validator {
	structValidator := validator.New()
	registerCustomValidators(structValidator)

	return &Validator{structValidator: structValidator}
}

// ValidateStruct validates struct tags. Field failures come back as
// apperrors.ValidationErrors so callers can map them to a 400 with
// per-field messages.
func (v *Validator) ValidateStruct(s interface{}) error {
	err := v.structValidator.Struct(s)
	if err == nil {
		return nil
	}
	if fieldErrs, ok := err.(validator.ValidationErrors); ok {
		return apperrors.ToValidationErrors(fieldErrs)
	}
	return err
}

// registerCustomValidators registers all custom validation functions
func registerCustomValidators(validate *validator.Validate) {
	validate.RegisterValidation("answer_type", validateAnswerType)
	validate.RegisterValidation("difficulty_level", validateDifficultyLevel)
	validate.RegisterValidation("session_mode", validateSessionMode)
	validate.RegisterValidation("resume_mode", validateResumeMode)
	validate.RegisterValidation("module_key", validateModuleKey)

	// Report JSON field names in error messages instead of Go field names
	validate.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
}

// Custom validation functions
func validateAnswerType(fl validator.FieldLevel) bool {
	switch models.AnswerType(fl.Field().String()) {
	case models.AnswerChoice, models.AnswerNumeric, models.AnswerText:
		return true
	}
	return false
}

func validateDifficultyLevel(fl validator.FieldLevel) bool {
	switch models.DifficultyLevel(fl.Field().String()) {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}

func validateSessionMode(fl validator.FieldLevel) bool {
	switch models.SessionMode(fl.Field().String()) {
	case models.ModeExam, models.ModePractice, models.ModeReview:
		return true
	}
	return false
}

func validateResumeMode(fl validator.FieldLevel) bool {
	switch models.ResumeMode(fl.Field().String()) {
	case models.ResumeRestart, models.ResumeResume:
		return true
	}
	return false
}

// validateModuleKey accepts any non-blank key. Keys usually look like
// "math-1", but the ordinal suffix is optional: a key without one names its
// own section, so a bare "practice" is just as routable as "math-1".
func validateModuleKey(fl validator.FieldLevel) bool {
	return strings.TrimSpace(fl.Field().String()) != ""
}

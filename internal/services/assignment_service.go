package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	apperrors "github.com/lumiprep/session-service/internal/errors"
	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/validator"
)

// ===== REQUEST / RESPONSE TYPES =====

// ModuleDescriptorRequest is one module entry of an assignment layout.
type ModuleDescriptorRequest struct {
	Key         string `json:"key" validate:"required,module_key"`
	Title       string `json:"title" validate:"required,min=1,max=200"`
	DurationSec *int   `json:"duration_sec,omitempty" validate:"omitempty,min=1,max=14400"`
}

type CreateAssignmentRequest struct {
	Title          string                    `json:"title" validate:"required,min=1,max=200"`
	Description    *string                   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Mode           models.SessionMode        `json:"mode" validate:"omitempty,session_mode"`
	ResumeEnabled  bool                      `json:"resume_enabled"`
	AttemptLimit   *int                      `json:"attempt_limit,omitempty" validate:"omitempty,min=1,max=10"`
	AllowRetake    bool                      `json:"allow_retake"`
	ShuffleModules bool                      `json:"shuffle_modules"`
	Modules        []ModuleDescriptorRequest `json:"modules" validate:"required,min=1,dive"`
}

// UpdateAssignmentRequest patches an assignment. Nil fields are left alone;
// a non-nil Modules slice replaces the whole layout.
type UpdateAssignmentRequest struct {
	Title          *string                   `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Description    *string                   `json:"description,omitempty" validate:"omitempty,max=1000"`
	Mode           *models.SessionMode       `json:"mode,omitempty" validate:"omitempty,session_mode"`
	ResumeEnabled  *bool                     `json:"resume_enabled,omitempty"`
	AttemptLimit   *int                      `json:"attempt_limit,omitempty" validate:"omitempty,min=1,max=10"`
	AllowRetake    *bool                     `json:"allow_retake,omitempty"`
	ShuffleModules *bool                     `json:"shuffle_modules,omitempty"`
	Modules        []ModuleDescriptorRequest `json:"modules,omitempty" validate:"omitempty,min=1,dive"`
}

// ===== SERVICE INTERFACE =====

// AssignmentService manages the assignment catalog that sessions start from.
type AssignmentService interface {
	Create(ctx context.Context, req *CreateAssignmentRequest, creatorID string) (*models.Assignment, error)
	Get(ctx context.Context, id string) (*models.Assignment, error)
	Update(ctx context.Context, id string, req *UpdateAssignmentRequest) (*models.Assignment, error)
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, limit, offset int) ([]*models.Assignment, int64, error)
}

type assignmentService struct {
	assignments repositories.AssignmentRepository
	questions   repositories.QuestionRepository
	logger      *slog.Logger
	validator   *validator.Validator
}

func NewAssignmentService(
	assignments repositories.AssignmentRepository,
	questions repositories.QuestionRepository,
	logger *slog.Logger,
	validator *validator.Validator,
) AssignmentService {
	return &assignmentService{
		assignments: assignments,
		questions:   questions,
		logger:      logger,
		validator:   validator,
	}
}

// ===== CRUD =====

func (s *assignmentService) Create(ctx context.Context, req *CreateAssignmentRequest, creatorID string) (*models.Assignment, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	if err := s.checkLayout(ctx, req.Modules); err != nil {
		return nil, err
	}

	mode := req.Mode
	if mode == "" {
		mode = models.ModeExam
	}

	assignment := &models.Assignment{
		ID:             uuid.NewString(),
		Title:          req.Title,
		Description:    req.Description,
		Mode:           mode,
		ResumeEnabled:  req.ResumeEnabled,
		AttemptLimit:   req.AttemptLimit,
		AllowRetake:    req.AllowRetake,
		ShuffleModules: req.ShuffleModules,
		CreatedBy:      creatorID,
		ModuleLayout:   datatypes.NewJSONType(toDescriptors(req.Modules)),
	}

	if err := s.assignments.Create(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to create assignment: %w", err)
	}

	s.logger.Info("Assignment created",
		"assignment_id", assignment.ID,
		"title", assignment.Title,
		"modules", len(req.Modules),
		"created_by", creatorID)
	return assignment, nil
}

func (s *assignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
	}
	return assignment, nil
}

func (s *assignmentService) Update(ctx context.Context, id string, req *UpdateAssignmentRequest) (*models.Assignment, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	assignment, err := s.assignments.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
	}

	if req.Title != nil {
		assignment.Title = *req.Title
	}
	if req.Description != nil {
		assignment.Description = req.Description
	}
	if req.Mode != nil {
		assignment.Mode = *req.Mode
	}
	if req.ResumeEnabled != nil {
		assignment.ResumeEnabled = *req.ResumeEnabled
	}
	if req.AttemptLimit != nil {
		assignment.AttemptLimit = req.AttemptLimit
	}
	if req.AllowRetake != nil {
		assignment.AllowRetake = *req.AllowRetake
	}
	if req.ShuffleModules != nil {
		assignment.ShuffleModules = *req.ShuffleModules
	}
	if req.Modules != nil {
		if err := s.checkLayout(ctx, req.Modules); err != nil {
			return nil, err
		}
		assignment.ModuleLayout = datatypes.NewJSONType(toDescriptors(req.Modules))
	}

	if err := s.assignments.Update(ctx, assignment); err != nil {
		return nil, fmt.Errorf("failed to update assignment: %w", err)
	}

	s.logger.Info("Assignment updated", "assignment_id", id)
	return assignment, nil
}

func (s *assignmentService) Delete(ctx context.Context, id string) error {
	if _, err := s.assignments.GetByID(ctx, id); err != nil {
		return fmt.Errorf("%w: %s", ErrAssignmentNotFound, id)
	}
	if err := s.assignments.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete assignment: %w", err)
	}

	s.logger.Info("Assignment deleted", "assignment_id", id)
	return nil
}

func (s *assignmentService) List(ctx context.Context, limit, offset int) ([]*models.Assignment, int64, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.assignments.List(ctx, limit, offset)
}

// checkLayout rejects layouts referencing modules with no questions in the
// bank, so a session can never start against a hollow module.
func (s *assignmentService) checkLayout(ctx context.Context, modules []ModuleDescriptorRequest) error {
	seen := make(map[string]bool, len(modules))
	var errs apperrors.ValidationErrors
	for _, m := range modules {
		if seen[m.Key] {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(
				"modules", "duplicate module key", "module_key", m.Key))
			continue
		}
		seen[m.Key] = true

		count, err := s.questions.CountByModuleKey(ctx, m.Key)
		if err != nil {
			return fmt.Errorf("failed to count module questions: %w", err)
		}
		if count == 0 {
			errs = append(errs, *apperrors.NewValidationErrorWithRule(
				"modules", "module has no questions in the bank", "module_key", m.Key))
		}
	}
	if len(errs) > 0 {
		return errs
	}
	return nil
}

func toDescriptors(modules []ModuleDescriptorRequest) []models.ModuleDescriptor {
	descriptors := make([]models.ModuleDescriptor, len(modules))
	for i, m := range modules {
		descriptors[i] = models.ModuleDescriptor{
			Key:         m.Key,
			Title:       m.Title,
			DurationSec: m.DurationSec,
		}
	}
	return descriptors
}

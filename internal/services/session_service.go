package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/lumiprep/session-service/internal/events"
	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/session"
	"github.com/lumiprep/session-service/internal/validator"
)

// SessionService owns the live session controllers and mediates every
// operation on them. Controllers are single-owner and not goroutine-safe, so
// each live session carries its own mutex and all access goes through
// withSession.
type SessionService interface {
	Start(ctx context.Context, req *StartSessionRequest) (*SessionView, error)
	Get(ctx context.Context, sessionID, userID string) (*SessionView, error)

	SetAnswer(ctx context.Context, sessionID, userID string, req *AnswerRequest) (*SessionView, error)
	ToggleFlag(ctx context.Context, sessionID, userID string, req *FlagRequest) (*SessionView, error)
	JumpToPage(ctx context.Context, sessionID, userID string, page int) (*SessionView, error)
	Advance(ctx context.Context, sessionID, userID string) (*SessionView, error)
	Suspend(ctx context.Context, sessionID, userID string) (*SessionView, error)
	Resume(ctx context.Context, sessionID, userID string) (*SessionView, error)

	Navigator(ctx context.Context, sessionID, userID string) (*NavigatorView, error)
	TimeRemaining(ctx context.Context, sessionID, userID string) (*TimeRemainingView, error)

	PrepareSubmit(ctx context.Context, sessionID, userID string) (*session.SubmitPreview, error)
	CancelSubmit(ctx context.Context, sessionID, userID string) (*SessionView, error)
	Submit(ctx context.Context, sessionID, userID string) (*models.Result, error)
}

// ===== REQUEST / VIEW TYPES =====

type StartSessionRequest struct {
	AssignmentID string `json:"assignment_id" validate:"required"`
	UserID       string `json:"user_id" validate:"required"`
	ResumeMode   string `json:"resume_mode" validate:"omitempty,resume_mode"`
}

type AnswerRequest struct {
	ModuleKey  string `json:"module_key" validate:"required,module_key"`
	QuestionID string `json:"question_id" validate:"required"`
	Value      string `json:"value"`
}

type FlagRequest struct {
	ModuleKey  string `json:"module_key" validate:"required,module_key"`
	QuestionID string `json:"question_id" validate:"required"`
}

// ChoiceView and QuestionView are the render shapes handed to clients; the
// correct answer never leaves the service.
type QuestionView struct {
	ID         string            `json:"id"`
	Position   int               `json:"position"`
	Text       string            `json:"text"`
	Passage    *string           `json:"passage,omitempty"`
	AnswerType models.AnswerType `json:"answer_type"`
	Choices    []models.Choice   `json:"choices,omitempty"`
	Answer     string            `json:"answer,omitempty"`
	Flagged    bool              `json:"flagged"`
}

type SessionView struct {
	ID           string        `json:"id"`
	AssignmentID string        `json:"assignment_id"`
	UserID       string        `json:"user_id"`
	Mode         models.SessionMode `json:"mode"`
	State        session.State `json:"state"`
	Suspended    bool          `json:"suspended"`

	ModuleIndex int    `json:"module_index"`
	ModuleCount int    `json:"module_count"`
	ModuleKey   string `json:"module_key,omitempty"`
	ModuleTitle string `json:"module_title,omitempty"`

	Page      int  `json:"page"`
	PageCount int  `json:"page_count"`
	Untimed   bool `json:"untimed"`
	RemainingSec int `json:"remaining_sec"`

	Question *QuestionView `json:"question,omitempty"`
}

type NavigatorView struct {
	ModuleKey string                   `json:"module_key"`
	Statuses  []session.QuestionStatus `json:"statuses"`
}

type TimeRemainingView struct {
	ModuleKey    string `json:"module_key"`
	Untimed      bool   `json:"untimed"`
	RemainingSec int    `json:"remaining_sec"`
	Running      bool   `json:"running"`
}

// ===== SERVICE =====

type liveSession struct {
	mu   sync.Mutex
	id   string
	ctrl *session.Controller
}

type sessionService struct {
	assignments repositories.AssignmentRepository
	results     repositories.ResultRepository
	source      QuestionSourceService
	progress    session.ProgressStore
	publisher   events.EventPublisher
	validator   *validator.Validator
	logger      *slog.Logger
	now         func() time.Time

	mu       sync.RWMutex
	sessions map[string]*liveSession // session id -> live session
	byOwner  map[string]string       // assignment id + user id -> session id
}

func NewSessionService(
	assignments repositories.AssignmentRepository,
	results repositories.ResultRepository,
	source QuestionSourceService,
	progress session.ProgressStore,
	publisher events.EventPublisher,
	validator *validator.Validator,
	logger *slog.Logger,
) SessionService {
	return &sessionService{
		assignments: assignments,
		results:     results,
		source:      source,
		progress:    progress,
		publisher:   publisher,
		validator:   validator,
		logger:      logger,
		now:         time.Now,
		sessions:    make(map[string]*liveSession),
		byOwner:     make(map[string]string),
	}
}

// ===== LIFECYCLE =====

func (s *sessionService) Start(ctx context.Context, req *StartSessionRequest) (*SessionView, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}

	ownerKey := req.AssignmentID + ":" + req.UserID
	s.mu.RLock()
	_, active := s.byOwner[ownerKey]
	s.mu.RUnlock()
	if active {
		return nil, ErrSessionAlreadyActive
	}

	assignment, err := s.assignments.GetByID(ctx, req.AssignmentID)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrAssignmentNotFound, req.AssignmentID)
	}

	if err := s.checkAttemptBudget(ctx, assignment, req.UserID); err != nil {
		return nil, err
	}

	modules, err := s.source.LoadModules(ctx, assignment)
	if err != nil {
		return nil, err
	}

	meta := models.SessionMeta{
		AssignmentID: assignment.ID,
		UserID:       req.UserID,
		Mode:         assignment.Mode,
		ResumeMode:   models.ResumeRestart,
		AttemptLimit: assignment.AttemptLimit,
		AllowRetake:  assignment.AllowRetake,
	}
	if meta.Mode == "" {
		meta.Mode = models.ModeExam
	}
	if assignment.ResumeEnabled && models.ResumeMode(req.ResumeMode) == models.ResumeResume {
		meta.ResumeMode = models.ResumeResume
	}

	var progress session.ProgressStore
	if assignment.ResumeEnabled {
		progress = s.progress
	}
	// A restart must not leave a stale snapshot behind for the next attempt.
	if progress != nil && meta.ResumeMode == models.ResumeRestart {
		key := session.ResumeKey(assignment.ID, req.UserID)
		if err := progress.DeleteProgress(ctx, key); err != nil {
			s.logger.Warn("Failed to clear previous progress", "key", key, "error", err)
		}
	}

	ctrl := session.NewController(session.Config{
		Meta:     meta,
		Modules:  modules,
		Progress: progress,
		Sink:     &resultSink{repo: s.results},
		Now:      s.now,
		Logger:   s.logger,
	})
	if err := ctrl.Start(ctx); err != nil {
		return nil, err
	}

	live := &liveSession{id: uuid.NewString(), ctrl: ctrl}
	s.mu.Lock()
	if _, raced := s.byOwner[ownerKey]; raced {
		s.mu.Unlock()
		return nil, ErrSessionAlreadyActive
	}
	s.sessions[live.id] = live
	s.byOwner[ownerKey] = live.id
	s.mu.Unlock()

	s.publish(ctx, events.NewSessionStartedEvent(events.SessionStartedEvent{
		AssignmentID: assignment.ID,
		UserID:       req.UserID,
		Mode:         meta.Mode,
		ModuleCount:  len(modules),
		Resumed:      meta.ResumeMode == models.ResumeResume,
	}))

	return s.buildView(live), nil
}

func (s *sessionService) checkAttemptBudget(ctx context.Context, assignment *models.Assignment, userID string) error {
	count, err := s.results.CountByAssignmentAndUser(ctx, assignment.ID, userID)
	if err != nil {
		return fmt.Errorf("failed to count prior attempts: %w", err)
	}
	if count == 0 {
		return nil
	}
	if !assignment.AllowRetake {
		return ErrRetakeNotAllowed
	}
	if assignment.AttemptLimit != nil && count >= int64(*assignment.AttemptLimit) {
		return ErrAttemptLimitExceeded
	}
	return nil
}

// ===== OPERATIONS =====

func (s *sessionService) Get(ctx context.Context, sessionID, userID string) (*SessionView, error) {
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		return nil
	})
}

func (s *sessionService) SetAnswer(ctx context.Context, sessionID, userID string, req *AnswerRequest) (*SessionView, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		return live.ctrl.SetAnswer(ctx, req.ModuleKey, req.QuestionID, req.Value)
	})
}

func (s *sessionService) ToggleFlag(ctx context.Context, sessionID, userID string, req *FlagRequest) (*SessionView, error) {
	if err := s.validator.ValidateStruct(req); err != nil {
		return nil, err
	}
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		return live.ctrl.ToggleFlag(ctx, req.ModuleKey, req.QuestionID)
	})
}

func (s *sessionService) JumpToPage(ctx context.Context, sessionID, userID string, page int) (*SessionView, error) {
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		return live.ctrl.JumpToPage(ctx, page)
	})
}

// Advance is one endpoint for both transitions: it either completes the
// active module or, from a section break, begins the next one.
func (s *sessionService) Advance(ctx context.Context, sessionID, userID string) (*SessionView, error) {
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		if live.ctrl.State() == session.StateSectionBreak {
			return live.ctrl.BeginNextModule(ctx)
		}
		return live.ctrl.Advance(ctx, models.AdvanceManual)
	})
}

func (s *sessionService) Suspend(ctx context.Context, sessionID, userID string) (*SessionView, error) {
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		live.ctrl.Suspend()
		return nil
	})
}

func (s *sessionService) Resume(ctx context.Context, sessionID, userID string) (*SessionView, error) {
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		live.ctrl.ResumeFromSuspend()
		return nil
	})
}

func (s *sessionService) Navigator(ctx context.Context, sessionID, userID string) (*NavigatorView, error) {
	live, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	if err := live.ctrl.Poll(ctx); err != nil {
		return nil, err
	}
	view := &NavigatorView{Statuses: live.ctrl.Navigator()}
	if live.ctrl.State() != session.StateInactive {
		view.ModuleKey = live.ctrl.Modules()[live.ctrl.ModuleIndex()].Key
	}
	return view, nil
}

func (s *sessionService) TimeRemaining(ctx context.Context, sessionID, userID string) (*TimeRemainingView, error) {
	live, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	if err := live.ctrl.Poll(ctx); err != nil {
		return nil, err
	}
	module := live.ctrl.Modules()[live.ctrl.ModuleIndex()]
	return &TimeRemainingView{
		ModuleKey:    module.Key,
		Untimed:      module.DurationSec == nil,
		RemainingSec: live.ctrl.Remaining(),
		Running:      live.ctrl.State() == session.StateModuleActive && !live.ctrl.Suspended(),
	}, nil
}

// ===== SUBMISSION =====

func (s *sessionService) PrepareSubmit(ctx context.Context, sessionID, userID string) (*session.SubmitPreview, error) {
	live, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	if err := live.ctrl.Poll(ctx); err != nil {
		return nil, err
	}
	return live.ctrl.PrepareSubmit(models.AdvanceManual)
}

func (s *sessionService) CancelSubmit(ctx context.Context, sessionID, userID string) (*SessionView, error) {
	return s.withSession(ctx, sessionID, userID, func(ctx context.Context, live *liveSession) error {
		return live.ctrl.CancelSubmit()
	})
}

func (s *sessionService) Submit(ctx context.Context, sessionID, userID string) (*models.Result, error) {
	live, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	if err := live.ctrl.Poll(ctx); err != nil {
		return nil, err
	}
	result, err := live.ctrl.FinalizeSubmit(ctx)
	if err != nil {
		return nil, err
	}
	if result == nil {
		// A concurrent finalize holds the guard; the caller retries.
		return nil, ErrConflict
	}

	meta := live.ctrl.Meta()
	s.evict(live.id, meta.AssignmentID+":"+meta.UserID)

	correct, total := result.CorrectTotal()
	s.publish(ctx, events.NewSessionSubmittedEvent(events.SessionSubmittedEvent{
		ResultID:     result.ID,
		AssignmentID: result.AssignmentID,
		UserID:       result.UserID,
		EndReason:    result.EndReason,
		Correct:      correct,
		Total:        total,
		ElapsedSec:   result.ElapsedSec,
	}))

	return result, nil
}

// ===== INTERNAL =====

func (s *sessionService) lookup(sessionID, userID string) (*liveSession, error) {
	s.mu.RLock()
	live, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok || live.ctrl.Meta().UserID != userID {
		return nil, ErrSessionNotFound
	}
	return live, nil
}

// withSession serializes one operation against a live session, polling the
// clock first so an expired module always times out before the operation is
// judged.
func (s *sessionService) withSession(ctx context.Context, sessionID, userID string, op func(context.Context, *liveSession) error) (*SessionView, error) {
	live, err := s.lookup(sessionID, userID)
	if err != nil {
		return nil, err
	}
	live.mu.Lock()
	defer live.mu.Unlock()

	if err := live.ctrl.Poll(ctx); err != nil {
		return nil, err
	}
	if err := op(ctx, live); err != nil {
		return nil, err
	}
	return s.buildView(live), nil
}

func (s *sessionService) evict(sessionID, ownerKey string) {
	s.mu.Lock()
	delete(s.sessions, sessionID)
	delete(s.byOwner, ownerKey)
	s.mu.Unlock()
}

func (s *sessionService) publish(ctx context.Context, event *events.SessionEvent) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishSessionEvent(ctx, event); err != nil {
		s.logger.Warn("Event publish failed", "event_type", event.Type, "error", err)
	}
}

func (s *sessionService) buildView(live *liveSession) *SessionView {
	ctrl := live.ctrl
	meta := ctrl.Meta()
	modules := ctrl.Modules()
	module := modules[ctrl.ModuleIndex()]

	view := &SessionView{
		ID:           live.id,
		AssignmentID: meta.AssignmentID,
		UserID:       meta.UserID,
		Mode:         meta.Mode,
		State:        ctrl.State(),
		Suspended:    ctrl.Suspended(),
		ModuleIndex:  ctrl.ModuleIndex(),
		ModuleCount:  len(modules),
		ModuleKey:    module.Key,
		ModuleTitle:  module.Title,
		Page:         ctrl.Page(),
		PageCount:    len(module.Questions),
		Untimed:      module.DurationSec == nil,
		RemainingSec: ctrl.Remaining(),
	}

	if ctrl.State() == session.StateModuleActive {
		page := ctrl.Page()
		if page >= 1 && page <= len(module.Questions) {
			view.Question = s.buildQuestionView(ctrl, &module, &module.Questions[page-1])
		}
	}
	return view
}

func (s *sessionService) buildQuestionView(ctrl *session.Controller, module *models.Module, q *models.Question) *QuestionView {
	answers := ctrl.AnswerSnapshot()
	return &QuestionView{
		ID:         q.ID,
		Position:   q.Position,
		Text:       q.Text,
		Passage:    q.Passage,
		AnswerType: q.AnswerType,
		Choices:    q.ChoiceList(),
		Answer:     answers[module.Key][q.ID],
		Flagged:    ctrl.Flagged(module.Key, q.ID),
	}
}

// resultSink bridges the engine's submission port to the result repository.
type resultSink struct {
	repo repositories.ResultRepository
}

func (r *resultSink) SaveResult(ctx context.Context, result *models.Result) error {
	return r.repo.Create(ctx, result)
}

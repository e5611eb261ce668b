package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/lumiprep/session-service/internal/models"
)

// State is the controller's lifecycle position. Suspension is orthogonal and
// tracked separately: a suspended session keeps its state and resumes into
// it verbatim.
type State string

const (
	StateInactive     State = "inactive"
	StateModuleActive State = "module_active"
	StateSectionBreak State = "section_break"
	StateFinalizing   State = "finalizing"
	StateSubmitted    State = "submitted"
)

// Config assembles one attempt. Modules must already be normalized by the
// question source; their order is fixed for the life of the session.
type Config struct {
	Meta     models.SessionMeta
	Modules  []models.Module
	Progress ProgressStore // may be nil; resume is then disabled
	Sink     ResultSink
	Now      func() time.Time // nil means time.Now
	Logger   *slog.Logger
}

// Controller is the session state machine. It is the exclusive owner of the
// answer store, flag set, time ledger, clock, and page index; every other
// component only ever reads snapshots. That single-owner rule is what makes
// the idempotent transitions below safe without locks.
//
// The controller is not goroutine-safe by itself; callers serialize access
// (the service layer holds one mutex per live session).
type Controller struct {
	meta    models.SessionMeta
	modules []models.Module

	state     State
	suspended bool
	moduleIdx int
	page      int // 1-based within the active module

	clock   *Clock
	answers *AnswerStore
	flags   *FlagSet
	ledger  *TimeLedger
	resume  *ResumeAdapter
	flow    *SubmissionFlow

	now    func() time.Time
	logger *slog.Logger

	startedAt         time.Time
	questionStartedAt time.Time
}

func NewController(cfg Config) *Controller {
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	key := ResumeKey(cfg.Meta.AssignmentID, cfg.Meta.UserID)
	c := &Controller{
		meta:    cfg.Meta,
		modules: cfg.Modules,
		state:   StateInactive,
		clock:   NewClock(now),
		answers: NewAnswerStore(),
		flags:   NewFlagSet(),
		ledger:  NewTimeLedger(),
		resume:  NewResumeAdapter(cfg.Progress, key, cfg.Meta.ResumeMode == models.ResumeResume, logger),
		now:     now,
		logger:  logger,
	}
	c.flow = newSubmissionFlow(c, cfg.Sink)
	return c
}

// ===== LIFECYCLE =====

// Start validates the module list, hydrates resumable state when configured,
// and activates module zero. It fails closed: an empty assignment or an
// empty module never enters ModuleActive.
func (c *Controller) Start(ctx context.Context) error {
	if c.state != StateInactive {
		return ErrAlreadyStarted
	}
	if len(c.modules) == 0 {
		return ErrNoModules
	}
	for i := range c.modules {
		if len(c.modules[i].Questions) == 0 {
			return ErrEmptyModule
		}
	}

	c.moduleIdx = 0
	c.page = 1

	// Resume hydration is the one synchronous gate of startup: it completes,
	// or definitively fails to a blank state, before the clock starts.
	if snap, ok := c.resume.Load(ctx); ok {
		c.answers.Restore(snap.Answers)
		c.flags.Restore(snap.Flags)
		c.ledger.Restore(snap.Times)
		if snap.ModuleIndex >= 0 && snap.ModuleIndex < len(c.modules) {
			c.moduleIdx = snap.ModuleIndex
		}
		c.page = c.clampPage(snap.Page)
		c.logger.Info("Session state resumed",
			"assignment_id", c.meta.AssignmentID,
			"module", c.moduleIdx,
			"page", c.page)
	}

	c.armClock()
	c.clock.Start()
	c.startedAt = c.now()
	c.questionStartedAt = c.startedAt
	c.state = StateModuleActive

	c.logger.Info("Session started",
		"assignment_id", c.meta.AssignmentID,
		"user_id", c.meta.UserID,
		"mode", c.meta.Mode,
		"modules", len(c.modules))
	return nil
}

// Advance is the only way the module index moves forward. Manual advance in
// exam mode requires the current page to be the module's last page; practice
// and review modes may end a module early. A timeout forces the advance
// regardless of page. Calling Advance while already Finalizing or Submitted
// is a no-op: a timer poll and a user click racing to the same transition
// must collapse into one.
func (c *Controller) Advance(ctx context.Context, reason models.AdvanceReason) error {
	switch c.state {
	case StateFinalizing, StateSubmitted:
		return nil
	case StateSectionBreak:
		return ErrSectionBreak
	case StateModuleActive:
	default:
		return ErrNotStarted
	}
	if c.suspended && reason == models.AdvanceManual {
		return ErrSuspended
	}
	if reason == models.AdvanceManual && !c.meta.FreeNavigation() && c.page != len(c.activeModule().Questions) {
		return ErrNotLastPage
	}

	c.touchLedger()
	c.clock.Stop()

	if c.moduleIdx == len(c.modules)-1 {
		c.state = StateFinalizing
		c.flow.prepare(reason)
		c.logger.Info("Session finalizing",
			"assignment_id", c.meta.AssignmentID,
			"reason", reason)
		return nil
	}

	c.state = StateSectionBreak
	c.logger.Info("Module completed",
		"assignment_id", c.meta.AssignmentID,
		"module_key", c.activeModule().Key,
		"reason", reason)
	// Point the snapshot past the completed module so a restart can never
	// reopen it.
	c.resume.Save(ctx, ProgressSnapshot{
		Answers:     c.answers.Snapshot(),
		Flags:       c.flags.Snapshot(),
		ModuleIndex: c.moduleIdx + 1,
		Page:        1,
		Times:       c.ledger.Snapshot(),
	})
	return nil
}

// BeginNextModule leaves a section break and activates the next module with
// a fresh clock.
func (c *Controller) BeginNextModule(ctx context.Context) error {
	if c.state != StateSectionBreak {
		return ErrNoSectionBreak
	}
	if c.suspended {
		return ErrSuspended
	}
	c.moduleIdx++
	c.page = 1
	c.armClock()
	c.clock.Start()
	c.questionStartedAt = c.now()
	c.state = StateModuleActive
	c.logger.Info("Module started",
		"assignment_id", c.meta.AssignmentID,
		"module_key", c.activeModule().Key,
		"duration_sec", c.activeModule().DurationSec)
	c.persistProgress(ctx)
	return nil
}

// Suspend pauses the session: the clock stops and every mutation is refused
// until ResumeFromSuspend. Existing state is preserved verbatim.
func (c *Controller) Suspend() {
	if c.suspended || c.state == StateSubmitted {
		return
	}
	if c.state == StateModuleActive {
		c.touchLedger()
		c.clock.Stop()
	}
	c.suspended = true
	c.logger.Info("Session suspended", "assignment_id", c.meta.AssignmentID)
}

func (c *Controller) ResumeFromSuspend() {
	if !c.suspended {
		return
	}
	c.suspended = false
	if c.state == StateModuleActive {
		c.clock.Start()
		c.questionStartedAt = c.now()
	}
	c.logger.Info("Session resumed", "assignment_id", c.meta.AssignmentID)
}

// Poll observes the clock edge and converts an expiry into a forced advance.
// The clock never calls back into the controller; this is the only path a
// timeout takes, and the one-shot edge makes it fire exactly once.
func (c *Controller) Poll(ctx context.Context) error {
	if c.state != StateModuleActive || c.suspended {
		return nil
	}
	if c.activeModule().DurationSec == nil {
		return nil
	}
	if !c.clock.Poll() {
		return nil
	}
	return c.Advance(ctx, models.AdvanceTimeout)
}

// ===== MUTATIONS =====

// SetAnswer records (or, for an empty value, clears) one answer. Writes are
// rejected unless they target the active module of a running, unsuspended,
// non-review session; every other module is frozen.
func (c *Controller) SetAnswer(ctx context.Context, moduleKey, questionID, value string) error {
	switch c.state {
	case StateModuleActive:
	case StateSectionBreak:
		return ErrSectionBreak
	case StateFinalizing, StateSubmitted:
		return ErrFinalized
	default:
		return ErrNotStarted
	}
	if c.suspended {
		return ErrSuspended
	}
	if c.meta.ReviewOnly() {
		return ErrReviewLocked
	}
	if moduleKey != c.activeModule().Key {
		return ErrModuleNotActive
	}
	if c.questionInModule(questionID) == nil {
		return ErrUnknownQuestion
	}
	c.answers.Set(moduleKey, questionID, value)
	c.persistProgress(ctx)
	return nil
}

// ToggleFlag flips the review marker. Flags follow looser rules than
// answers: only suspension and terminal states block them.
func (c *Controller) ToggleFlag(ctx context.Context, moduleKey, questionID string) error {
	switch c.state {
	case StateInactive:
		return ErrNotStarted
	case StateFinalizing, StateSubmitted:
		return ErrFinalized
	}
	if c.suspended {
		return ErrSuspended
	}
	c.flags.Toggle(moduleKey, questionID)
	c.persistProgress(ctx)
	return nil
}

// JumpToPage moves within the active module, clamping n into the valid page
// range. Crossing module boundaries is never possible from here; Advance is
// the only index mutation.
func (c *Controller) JumpToPage(ctx context.Context, n int) error {
	switch c.state {
	case StateFinalizing, StateSubmitted:
		return ErrFinalized
	case StateSectionBreak:
		return ErrSectionBreak
	case StateModuleActive:
	default:
		return ErrNotStarted
	}
	if c.suspended {
		return ErrSuspended
	}
	n = c.clampPage(n)
	if n == c.page {
		return nil
	}
	c.touchLedger()
	c.page = n
	c.persistProgress(ctx)
	return nil
}

// ===== SUBMISSION (delegated to the SubmissionFlow) =====

func (c *Controller) PrepareSubmit(reason models.AdvanceReason) (*SubmitPreview, error) {
	return c.flow.Preview(reason)
}

func (c *Controller) CancelSubmit() error {
	return c.flow.Cancel()
}

func (c *Controller) FinalizeSubmit(ctx context.Context) (*models.Result, error) {
	return c.flow.Finalize(ctx)
}

// ===== VIEWS =====

func (c *Controller) State() State            { return c.state }
func (c *Controller) Suspended() bool         { return c.suspended }
func (c *Controller) ModuleIndex() int        { return c.moduleIdx }
func (c *Controller) Page() int               { return c.page }
func (c *Controller) Meta() models.SessionMeta { return c.meta }
func (c *Controller) Modules() []models.Module { return c.modules }

// Remaining reports the active clock's countdown in whole seconds.
func (c *Controller) Remaining() int {
	return c.clock.Remaining()
}

// Navigator derives the per-question statuses of the active module.
func (c *Controller) Navigator() []QuestionStatus {
	if c.state == StateInactive {
		return nil
	}
	return NavigatorStates(c.activeModule(), c.answers, c.flags, c.page)
}

// Flagged reports the review marker for one question.
func (c *Controller) Flagged(moduleKey, questionID string) bool {
	return c.flags.Flagged(moduleKey, questionID)
}

// AnswerSnapshot exposes a frozen copy for read-only consumers.
func (c *Controller) AnswerSnapshot() AnswerSnapshot {
	return c.answers.Snapshot()
}

func (c *Controller) LedgerSnapshot() map[string]int {
	return c.ledger.Snapshot()
}

// ===== INTERNAL =====

func (c *Controller) activeModule() *models.Module {
	return &c.modules[c.moduleIdx]
}

func (c *Controller) questionInModule(questionID string) *models.Question {
	m := c.activeModule()
	for i := range m.Questions {
		if m.Questions[i].ID == questionID {
			return &m.Questions[i]
		}
	}
	return nil
}

func (c *Controller) currentQuestion() *models.Question {
	m := c.activeModule()
	if c.page < 1 || c.page > len(m.Questions) {
		return nil
	}
	return &m.Questions[c.page-1]
}

func (c *Controller) clampPage(n int) int {
	if n < 1 {
		return 1
	}
	if max := len(c.activeModule().Questions); n > max {
		return max
	}
	return n
}

func (c *Controller) armClock() {
	if dur := c.activeModule().DurationSec; dur != nil {
		c.clock.Reset(*dur)
	} else {
		c.clock.Reset(UntimedBound)
	}
}

// touchLedger charges the time since the current question became current to
// that question, then restarts the stopwatch. The delta is clamped at zero
// against clock skew.
func (c *Controller) touchLedger() {
	q := c.currentQuestion()
	if q == nil {
		return
	}
	now := c.now()
	delta := int(now.Sub(c.questionStartedAt).Seconds())
	if delta < 0 {
		delta = 0
	}
	c.ledger.Add(q.ID, delta)
	c.questionStartedAt = now
}

func (c *Controller) persistProgress(ctx context.Context) {
	c.resume.Save(ctx, ProgressSnapshot{
		Answers:     c.answers.Snapshot(),
		Flags:       c.flags.Snapshot(),
		ModuleIndex: c.moduleIdx,
		Page:        c.page,
		Times:       c.ledger.Snapshot(),
	})
}

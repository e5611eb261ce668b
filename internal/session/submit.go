package session

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lumiprep/session-service/internal/models"
	"gorm.io/datatypes"
)

func asJSON[T any](v T) datatypes.JSONType[T] {
	return datatypes.NewJSONType(v)
}

// ResultSink is the persistence port for the final submission. One
// successful SaveResult ends the attempt.
type ResultSink interface {
	SaveResult(ctx context.Context, result *models.Result) error
}

// SubmitPreview is what the confirmation step shows: the would-be score
// summary and elapsed time, computed without mutating any session state.
type SubmitPreview struct {
	Reason     models.AdvanceReason             `json:"reason"`
	Summary    map[string]models.SectionSummary `json:"summary"`
	ElapsedSec int                              `json:"elapsed_sec"`
	Cancelable bool                             `json:"cancelable"`
}

// SubmissionFlow drives the two-phase finish of an attempt. Preview is
// repeatable and side-effect free; Finalize performs the single persisting
// write, guarded so a double click cannot send two submissions. On a sink
// failure the guard is released for a retry and the session stays in
// Finalizing: the clock is already stopped and the modules frozen, so
// regressing to ModuleActive would be a lie.
type SubmissionFlow struct {
	ctrl   *Controller
	sink   ResultSink
	reason models.AdvanceReason

	inFlight bool
	result   *models.Result // frozen on first finalize, reused on retry
}

func newSubmissionFlow(ctrl *Controller, sink ResultSink) *SubmissionFlow {
	return &SubmissionFlow{ctrl: ctrl, sink: sink}
}

// prepare records the advance reason when the controller enters Finalizing.
func (f *SubmissionFlow) prepare(reason models.AdvanceReason) {
	f.reason = reason
}

// Preview computes the confirmation view. It may be called any number of
// times; nothing is frozen until Finalize.
func (f *SubmissionFlow) Preview(reason models.AdvanceReason) (*SubmitPreview, error) {
	c := f.ctrl
	switch c.state {
	case StateFinalizing:
		// Already finalizing: the reason was fixed by the advance that got
		// us here, the caller's does not override it.
		reason = f.reason
	case StateModuleActive:
		// A manual preview from the last module is allowed before advancing.
	default:
		return nil, ErrNotStarted
	}

	snap := c.answers.Snapshot()
	return &SubmitPreview{
		Reason:     reason,
		Summary:    ScoreSummary(c.modules, snap),
		ElapsedSec: f.elapsedSec(),
		Cancelable: reason == models.AdvanceManual,
	}, nil
}

// Cancel abandons a manual finalization and returns the session to the last
// module. A timeout finalization is not cancelable: the time is genuinely
// gone.
func (f *SubmissionFlow) Cancel() error {
	c := f.ctrl
	if c.state != StateFinalizing {
		return ErrNotFinalizing
	}
	if f.reason != models.AdvanceManual {
		return ErrCancelTimeout
	}
	if f.inFlight {
		return ErrFinalized
	}
	c.state = StateModuleActive
	c.clock.Start()
	c.questionStartedAt = c.now()
	c.logger.Info("Submission canceled",
		"assignment_id", c.meta.AssignmentID)
	return nil
}

// Finalize performs the only side-effecting write of the flow. A second call
// while a save is in flight, or after success, is ignored rather than
// surfaced: both a timer poll and a user click may legitimately race here.
func (f *SubmissionFlow) Finalize(ctx context.Context) (*models.Result, error) {
	c := f.ctrl
	if c.state == StateSubmitted {
		return f.result, nil
	}
	if c.state != StateFinalizing {
		return nil, ErrNotFinalizing
	}
	if f.inFlight {
		return nil, nil
	}
	f.inFlight = true
	defer func() { f.inFlight = false }()

	if f.result == nil {
		f.result = f.buildResult()
	}

	if err := f.sink.SaveResult(ctx, f.result); err != nil {
		c.logger.Error("Result save failed, submission can be retried",
			"assignment_id", c.meta.AssignmentID,
			"error", err)
		return nil, fmt.Errorf("save result: %w", err)
	}

	c.state = StateSubmitted
	c.resume.Clear(ctx)
	c.logger.Info("Session submitted",
		"assignment_id", c.meta.AssignmentID,
		"user_id", c.meta.UserID,
		"reason", f.reason,
		"elapsed_sec", f.result.ElapsedSec)
	return f.result, nil
}

// buildResult takes the copy-on-write snapshot of everything the attempt
// produced. The result is owned by the flow until handed to the sink and is
// never rebuilt on retry: same data, same attempt.
func (f *SubmissionFlow) buildResult() *models.Result {
	c := f.ctrl
	snap := c.answers.Snapshot()

	raw := make(map[string]map[string]string, len(snap))
	for mk, mod := range snap {
		raw[mk] = mod
	}

	return &models.Result{
		ID:                 uuid.NewString(),
		AssignmentID:       c.meta.AssignmentID,
		UserID:             c.meta.UserID,
		Mode:               c.meta.Mode,
		EndReason:          f.reason,
		ElapsedSec:         f.elapsedSec(),
		Summary:            asJSON(ScoreSummary(c.modules, snap)),
		SkillPercents:      asJSON(SkillPercents(c.modules, snap)),
		DifficultyPercents: asJSON(DifficultyPercents(c.modules, snap)),
		PerQuestionTime:    asJSON(c.ledger.Snapshot()),
		RawAnswers:         asJSON(raw),
		SubmittedAt:        c.now(),
	}
}

func (f *SubmissionFlow) elapsedSec() int {
	c := f.ctrl
	if c.startedAt.IsZero() {
		return 0
	}
	elapsed := int(c.now().Sub(c.startedAt) / time.Second)
	if elapsed < 0 {
		return 0
	}
	return elapsed
}

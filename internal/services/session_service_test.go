package services

import (
	"context"
	"log/slog"
	"testing"

	"github.com/lumiprep/session-service/internal/events"
	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/session"
	"github.com/lumiprep/session-service/internal/validator"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/datatypes"
)

// ===== IN-MEMORY FAKES =====

type fakeAssignmentRepo struct {
	assignments map[string]*models.Assignment
}

func (f *fakeAssignmentRepo) Create(ctx context.Context, a *models.Assignment) error {
	f.assignments[a.ID] = a
	return nil
}

func (f *fakeAssignmentRepo) GetByID(ctx context.Context, id string) (*models.Assignment, error) {
	a, ok := f.assignments[id]
	if !ok {
		return nil, ErrAssignmentNotFound
	}
	return a, nil
}

func (f *fakeAssignmentRepo) Update(ctx context.Context, a *models.Assignment) error {
	if _, ok := f.assignments[a.ID]; !ok {
		return ErrAssignmentNotFound
	}
	f.assignments[a.ID] = a
	return nil
}

func (f *fakeAssignmentRepo) Delete(ctx context.Context, id string) error {
	delete(f.assignments, id)
	return nil
}

func (f *fakeAssignmentRepo) List(ctx context.Context, limit, offset int) ([]*models.Assignment, int64, error) {
	var all []*models.Assignment
	for _, a := range f.assignments {
		all = append(all, a)
	}
	total := int64(len(all))
	if offset >= len(all) {
		return nil, total, nil
	}
	end := offset + limit
	if end > len(all) {
		end = len(all)
	}
	return all[offset:end], total, nil
}

type fakeResultRepo struct {
	results []*models.Result
}

func (f *fakeResultRepo) Create(ctx context.Context, r *models.Result) error {
	f.results = append(f.results, r)
	return nil
}

func (f *fakeResultRepo) GetByID(ctx context.Context, id string) (*models.Result, error) {
	return nil, ErrNotFound
}

func (f *fakeResultRepo) List(ctx context.Context, filters repositories.ResultFilters) ([]*models.Result, int64, error) {
	return f.results, int64(len(f.results)), nil
}

func (f *fakeResultRepo) GetLatest(ctx context.Context, assignmentID, userID string) (*models.Result, error) {
	return nil, ErrNotFound
}

func (f *fakeResultRepo) CountByAssignmentAndUser(ctx context.Context, assignmentID, userID string) (int64, error) {
	var count int64
	for _, r := range f.results {
		if r.AssignmentID == assignmentID && r.UserID == userID {
			count++
		}
	}
	return count, nil
}

func (f *fakeResultRepo) GetAssignmentStats(ctx context.Context, assignmentID string) (*repositories.AssignmentStats, error) {
	return &repositories.AssignmentStats{}, nil
}

type fakeQuestionRepo struct {
	byModule map[string][]*models.Question
	created  []*models.Question
}

func (f *fakeQuestionRepo) Create(ctx context.Context, q *models.Question) error { return nil }
func (f *fakeQuestionRepo) GetByID(ctx context.Context, id string) (*models.Question, error) {
	return nil, ErrNotFound
}
func (f *fakeQuestionRepo) Update(ctx context.Context, q *models.Question) error { return nil }
func (f *fakeQuestionRepo) Delete(ctx context.Context, id string) error          { return nil }

func (f *fakeQuestionRepo) CreateBatch(ctx context.Context, questions []*models.Question) error {
	f.created = append(f.created, questions...)
	return nil
}

func (f *fakeQuestionRepo) DeleteByModuleKey(ctx context.Context, moduleKey string) error {
	return nil
}

func (f *fakeQuestionRepo) GetByModuleKey(ctx context.Context, moduleKey string) ([]*models.Question, error) {
	return f.byModule[moduleKey], nil
}

func (f *fakeQuestionRepo) GetByModuleKeys(ctx context.Context, moduleKeys []string) (map[string][]*models.Question, error) {
	out := make(map[string][]*models.Question)
	for _, key := range moduleKeys {
		if rows, ok := f.byModule[key]; ok {
			out[key] = rows
		}
	}
	return out, nil
}

func (f *fakeQuestionRepo) List(ctx context.Context, filters repositories.QuestionFilters) ([]*models.Question, int64, error) {
	return nil, 0, nil
}

func (f *fakeQuestionRepo) CountByModuleKey(ctx context.Context, moduleKey string) (int64, error) {
	return int64(len(f.byModule[moduleKey])), nil
}

type memProgressStore struct {
	data map[string][]byte
}

func (m *memProgressStore) SaveProgress(ctx context.Context, key string, snapshot []byte) error {
	m.data[key] = snapshot
	return nil
}

func (m *memProgressStore) LoadProgress(ctx context.Context, key string) ([]byte, error) {
	data, ok := m.data[key]
	if !ok {
		return nil, session.ErrProgressNotFound
	}
	return data, nil
}

func (m *memProgressStore) DeleteProgress(ctx context.Context, key string) error {
	delete(m.data, key)
	return nil
}

// ===== FIXTURES =====

func intPtr(n int) *int { return &n }

func strPtr(s string) *string { return &s }

func choiceQuestion(id, moduleKey string, position int, correct string) *models.Question {
	return &models.Question{
		ID:        id,
		ModuleKey: moduleKey,
		Position:  position,
		Text:      "Question " + id,
		Choices: datatypes.NewJSONType([]models.Choice{
			{Value: "A", Label: "first"},
			{Value: "B", Label: "second"},
		}),
		Correct: strPtr(correct),
	}
}

type serviceEnv struct {
	svc         SessionService
	assignments *fakeAssignmentRepo
	results     *fakeResultRepo
	questions   *fakeQuestionRepo
	progress    *memProgressStore
	publisher   *events.MockEventPublisher
}

func newServiceEnv(t *testing.T, assignment *models.Assignment) *serviceEnv {
	t.Helper()

	logger := slog.New(slog.NewTextHandler(testWriter{t}, nil))
	v := validator.New()

	env := &serviceEnv{
		assignments: &fakeAssignmentRepo{assignments: map[string]*models.Assignment{}},
		results:     &fakeResultRepo{},
		questions: &fakeQuestionRepo{byModule: map[string][]*models.Question{
			"math-1": {
				choiceQuestion("q1", "math-1", 1, "A"),
				choiceQuestion("q2", "math-1", 2, "B"),
			},
			"math-2": {
				choiceQuestion("q3", "math-2", 1, "A"),
			},
		}},
		progress:  &memProgressStore{data: map[string][]byte{}},
		publisher: events.NewMockEventPublisher(logger),
	}
	env.assignments.assignments[assignment.ID] = assignment

	source := NewQuestionSourceService(env.assignments, env.questions, logger, v)
	env.svc = NewSessionService(env.assignments, env.results, source, env.progress, env.publisher, v, logger)
	return env
}

type testWriter struct{ t *testing.T }

func (w testWriter) Write(p []byte) (int, error) {
	w.t.Log(string(p))
	return len(p), nil
}

func testAssignment() *models.Assignment {
	return &models.Assignment{
		ID:    "sat-practice-3",
		Title: "Practice Test 3",
		Mode:  models.ModeExam,
		ModuleLayout: datatypes.NewJSONType([]models.ModuleDescriptor{
			{Key: "math-1", Title: "Math 1", DurationSec: intPtr(60)},
			{Key: "math-2", Title: "Math 2", DurationSec: intPtr(60)},
		}),
	}
}

func startSession(t *testing.T, env *serviceEnv) *SessionView {
	t.Helper()
	view, err := env.svc.Start(context.Background(), &StartSessionRequest{
		AssignmentID: "sat-practice-3",
		UserID:       "student-7",
	})
	require.NoError(t, err)
	return view
}

// finishSession drives an exam session through both modules to Finalizing.
func finishSession(t *testing.T, env *serviceEnv, view *SessionView) *SessionView {
	t.Helper()
	ctx := context.Background()

	// math-1: reach the last page, advance into the break, then continue.
	v, err := env.svc.JumpToPage(ctx, view.ID, "student-7", 2)
	require.NoError(t, err)
	v, err = env.svc.Advance(ctx, view.ID, "student-7")
	require.NoError(t, err)
	require.Equal(t, session.StateSectionBreak, v.State)
	v, err = env.svc.Advance(ctx, view.ID, "student-7")
	require.NoError(t, err)
	require.Equal(t, session.StateModuleActive, v.State)

	// math-2 is a single page; advancing finalizes.
	v, err = env.svc.Advance(ctx, view.ID, "student-7")
	require.NoError(t, err)
	require.Equal(t, session.StateFinalizing, v.State)
	return v
}

// ===== TESTS =====

func TestSessionService_StartReturnsFirstQuestion(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)

	assert.Equal(t, session.StateModuleActive, view.State)
	assert.Equal(t, "math-1", view.ModuleKey)
	assert.Equal(t, 1, view.Page)
	assert.Equal(t, 2, view.PageCount)
	require.NotNil(t, view.Question)
	assert.Equal(t, "q1", view.Question.ID)
	assert.Nil(t, view.Question.Passage)

	require.Len(t, env.publisher.Events, 1)
	assert.Equal(t, events.EventSessionStarted, env.publisher.Events[0].Type)
}

func TestSessionService_StartUnknownAssignment(t *testing.T) {
	env := newServiceEnv(t, testAssignment())

	_, err := env.svc.Start(context.Background(), &StartSessionRequest{
		AssignmentID: "missing",
		UserID:       "student-7",
	})
	assert.ErrorIs(t, err, ErrAssignmentNotFound)
}

func TestSessionService_StartRejectsDuplicate(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	startSession(t, env)

	_, err := env.svc.Start(context.Background(), &StartSessionRequest{
		AssignmentID: "sat-practice-3",
		UserID:       "student-7",
	})
	assert.ErrorIs(t, err, ErrSessionAlreadyActive)
}

func TestSessionService_RetakeRules(t *testing.T) {
	t.Run("retake disabled", func(t *testing.T) {
		assignment := testAssignment()
		env := newServiceEnv(t, assignment)
		env.results.results = append(env.results.results, &models.Result{
			AssignmentID: assignment.ID, UserID: "student-7",
		})

		_, err := env.svc.Start(context.Background(), &StartSessionRequest{
			AssignmentID: assignment.ID,
			UserID:       "student-7",
		})
		assert.ErrorIs(t, err, ErrRetakeNotAllowed)
	})

	t.Run("attempt limit exhausted", func(t *testing.T) {
		assignment := testAssignment()
		assignment.AllowRetake = true
		assignment.AttemptLimit = intPtr(2)
		env := newServiceEnv(t, assignment)
		env.results.results = append(env.results.results,
			&models.Result{AssignmentID: assignment.ID, UserID: "student-7"},
			&models.Result{AssignmentID: assignment.ID, UserID: "student-7"},
		)

		_, err := env.svc.Start(context.Background(), &StartSessionRequest{
			AssignmentID: assignment.ID,
			UserID:       "student-7",
		})
		assert.ErrorIs(t, err, ErrAttemptLimitExceeded)
	})

	t.Run("within limit", func(t *testing.T) {
		assignment := testAssignment()
		assignment.AllowRetake = true
		assignment.AttemptLimit = intPtr(2)
		env := newServiceEnv(t, assignment)
		env.results.results = append(env.results.results,
			&models.Result{AssignmentID: assignment.ID, UserID: "student-7"},
		)

		_, err := env.svc.Start(context.Background(), &StartSessionRequest{
			AssignmentID: assignment.ID,
			UserID:       "student-7",
		})
		assert.NoError(t, err)
	})
}

func TestSessionService_AnswerAndNavigator(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)
	ctx := context.Background()

	v, err := env.svc.SetAnswer(ctx, view.ID, "student-7", &AnswerRequest{
		ModuleKey: "math-1", QuestionID: "q1", Value: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, "A", v.Question.Answer)

	_, err = env.svc.ToggleFlag(ctx, view.ID, "student-7", &FlagRequest{
		ModuleKey: "math-1", QuestionID: "q2",
	})
	require.NoError(t, err)

	nav, err := env.svc.Navigator(ctx, view.ID, "student-7")
	require.NoError(t, err)
	assert.Equal(t, "math-1", nav.ModuleKey)
	require.Len(t, nav.Statuses, 2)
}

func TestSessionService_AnswerOnBareModuleKey(t *testing.T) {
	assignment := testAssignment()
	assignment.ModuleLayout = datatypes.NewJSONType([]models.ModuleDescriptor{
		{Key: "practice", Title: "Practice", DurationSec: intPtr(60)},
	})
	env := newServiceEnv(t, assignment)
	env.questions.byModule["practice"] = []*models.Question{
		choiceQuestion("p1", "practice", 1, "A"),
	}

	view := startSession(t, env)
	assert.Equal(t, "practice", view.ModuleKey)

	v, err := env.svc.SetAnswer(context.Background(), view.ID, "student-7", &AnswerRequest{
		ModuleKey: "practice", QuestionID: "p1", Value: "A",
	})
	require.NoError(t, err)
	assert.Equal(t, "A", v.Question.Answer)
}

func TestSessionService_WrongUserIsNotFound(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)

	_, err := env.svc.Get(context.Background(), view.ID, "someone-else")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionService_SubmitPersistsAndEvicts(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)
	ctx := context.Background()

	_, err := env.svc.SetAnswer(ctx, view.ID, "student-7", &AnswerRequest{
		ModuleKey: "math-1", QuestionID: "q1", Value: "A",
	})
	require.NoError(t, err)

	finishSession(t, env, view)

	preview, err := env.svc.PrepareSubmit(ctx, view.ID, "student-7")
	require.NoError(t, err)
	assert.Equal(t, models.AdvanceManual, preview.Reason)
	assert.True(t, preview.Cancelable)

	result, err := env.svc.Submit(ctx, view.ID, "student-7")
	require.NoError(t, err)
	require.Len(t, env.results.results, 1)
	assert.Equal(t, result.ID, env.results.results[0].ID)

	correct, total := result.CorrectTotal()
	assert.Equal(t, 1, correct)
	assert.Equal(t, 3, total)

	// Session is gone from the registry once submitted.
	_, err = env.svc.Get(ctx, view.ID, "student-7")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	// started + submitted
	require.Len(t, env.publisher.Events, 2)
	assert.Equal(t, events.EventSessionSubmitted, env.publisher.Events[1].Type)
}

func TestSessionService_CancelSubmitReturnsToModule(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)
	finishSession(t, env, view)

	v, err := env.svc.CancelSubmit(context.Background(), view.ID, "student-7")
	require.NoError(t, err)
	assert.Equal(t, session.StateModuleActive, v.State)
	assert.Equal(t, "math-2", v.ModuleKey)
}

func TestSessionService_SuspendBlocksMutation(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)
	ctx := context.Background()

	v, err := env.svc.Suspend(ctx, view.ID, "student-7")
	require.NoError(t, err)
	assert.True(t, v.Suspended)

	_, err = env.svc.SetAnswer(ctx, view.ID, "student-7", &AnswerRequest{
		ModuleKey: "math-1", QuestionID: "q1", Value: "A",
	})
	assert.ErrorIs(t, err, session.ErrSuspended)

	v, err = env.svc.Resume(ctx, view.ID, "student-7")
	require.NoError(t, err)
	assert.False(t, v.Suspended)
}

func TestSessionService_RestartClearsStoredProgress(t *testing.T) {
	assignment := testAssignment()
	assignment.ResumeEnabled = true
	env := newServiceEnv(t, assignment)

	key := session.ResumeKey(assignment.ID, "student-7")
	env.progress.data[key] = []byte(`{"answers":{},"flags":{},"module":1,"page":1,"times":{}}`)

	view, err := env.svc.Start(context.Background(), &StartSessionRequest{
		AssignmentID: assignment.ID,
		UserID:       "student-7",
		ResumeMode:   "restart",
	})
	require.NoError(t, err)
	assert.Equal(t, 0, view.ModuleIndex)
	assert.Empty(t, env.progress.data[key])
}

func TestSessionService_ResumeRestoresPosition(t *testing.T) {
	assignment := testAssignment()
	assignment.ResumeEnabled = true
	env := newServiceEnv(t, assignment)

	key := session.ResumeKey(assignment.ID, "student-7")
	env.progress.data[key] = []byte(`{"answers":{"math-1":{"q1":"A"}},"flags":{},"module":1,"page":1,"times":{"q1":30}}`)

	view, err := env.svc.Start(context.Background(), &StartSessionRequest{
		AssignmentID: assignment.ID,
		UserID:       "student-7",
		ResumeMode:   "resume",
	})
	require.NoError(t, err)
	assert.Equal(t, 1, view.ModuleIndex)
	assert.Equal(t, "math-2", view.ModuleKey)
}

func TestSessionService_TimeRemaining(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)

	remaining, err := env.svc.TimeRemaining(context.Background(), view.ID, "student-7")
	require.NoError(t, err)
	assert.Equal(t, "math-1", remaining.ModuleKey)
	assert.False(t, remaining.Untimed)
	assert.True(t, remaining.Running)
	assert.InDelta(t, 60, remaining.RemainingSec, 1)
}

func TestSessionService_ViewNeverLeaksCorrectAnswer(t *testing.T) {
	env := newServiceEnv(t, testAssignment())
	view := startSession(t, env)

	require.NotNil(t, view.Question)
	// QuestionView has no field for the stored key; spot-check the render
	// payload stays confined to presentation data.
	assert.Equal(t, []models.Choice{
		{Value: "A", Label: "first"},
		{Value: "B", Label: "second"},
	}, view.Question.Choices)
}

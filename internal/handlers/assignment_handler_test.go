package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/services"
)

// ===== STUBS =====

type stubAssignmentService struct {
	created *models.Assignment
	err     error
}

func (s *stubAssignmentService) Create(ctx context.Context, req *services.CreateAssignmentRequest, creatorID string) (*models.Assignment, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.created = &models.Assignment{ID: "a-1", Title: req.Title, CreatedBy: creatorID}
	return s.created, nil
}

func (s *stubAssignmentService) Get(ctx context.Context, id string) (*models.Assignment, error) {
	if s.created == nil || s.created.ID != id {
		return nil, services.ErrAssignmentNotFound
	}
	return s.created, nil
}

func (s *stubAssignmentService) Update(ctx context.Context, id string, req *services.UpdateAssignmentRequest) (*models.Assignment, error) {
	return nil, services.ErrAssignmentNotFound
}

func (s *stubAssignmentService) Delete(ctx context.Context, id string) error {
	return services.ErrAssignmentNotFound
}

func (s *stubAssignmentService) List(ctx context.Context, limit, offset int) ([]*models.Assignment, int64, error) {
	if s.created == nil {
		return nil, 0, nil
	}
	return []*models.Assignment{s.created}, 1, nil
}

// stubResultRepo embeds the interface so only the methods under test need
// real bodies.
type stubResultRepo struct {
	repositories.ResultRepository
	latest *models.Result
}

func (s *stubResultRepo) GetLatest(ctx context.Context, assignmentID, userID string) (*models.Result, error) {
	if s.latest == nil || s.latest.AssignmentID != assignmentID || s.latest.UserID != userID {
		return nil, services.ErrNotFound
	}
	return s.latest, nil
}

type stubQuestionRepo struct {
	repositories.QuestionRepository
	byModule map[string][]*models.Question
}

func (s *stubQuestionRepo) GetByModuleKey(ctx context.Context, moduleKey string) ([]*models.Question, error) {
	return s.byModule[moduleKey], nil
}

// ===== HARNESS =====

func testLogger(t *testing.T) *slog.Logger {
	t.Helper()
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestRouter(register func(*gin.RouterGroup)) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	register(v1)
	return router
}

func doJSON(router *gin.Engine, method, path, userID string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, _ := json.Marshal(body)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if userID != "" {
		req.Header.Set("X-User-ID", userID)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

// ===== TESTS =====

func TestAssignmentHandler_Create(t *testing.T) {
	svc := &stubAssignmentService{}
	h := NewAssignmentHandler(svc, testLogger(t))
	router := newTestRouter(func(v1 *gin.RouterGroup) {
		v1.POST("/assignments", h.CreateAssignment)
	})

	payload := gin.H{
		"title":   "Practice Test 4",
		"modules": []gin.H{{"key": "math-1", "title": "Math 1"}},
	}

	t.Run("created", func(t *testing.T) {
		rec := doJSON(router, http.MethodPost, "/api/v1/assignments", "teacher-1", payload)
		require.Equal(t, http.StatusCreated, rec.Code)
		require.NotNil(t, svc.created)
		assert.Equal(t, "teacher-1", svc.created.CreatedBy)
	})

	t.Run("missing identity", func(t *testing.T) {
		rec := doJSON(router, http.MethodPost, "/api/v1/assignments", "", payload)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/assignments", bytes.NewReader([]byte("{")))
		req.Header.Set("X-User-ID", "teacher-1")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestAssignmentHandler_GetMapsNotFound(t *testing.T) {
	h := NewAssignmentHandler(&stubAssignmentService{}, testLogger(t))
	router := newTestRouter(func(v1 *gin.RouterGroup) {
		v1.GET("/assignments/:id", h.GetAssignment)
	})

	rec := doJSON(router, http.MethodGet, "/api/v1/assignments/missing", "teacher-1", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestResultHandler_GetLatestResult(t *testing.T) {
	repo := &stubResultRepo{latest: &models.Result{
		ID: "r-1", AssignmentID: "sat-practice-3", UserID: "student-7",
	}}
	h := NewResultHandler(repo, testLogger(t))
	router := newTestRouter(func(v1 *gin.RouterGroup) {
		v1.GET("/results/assignment/:assignment_id/latest", h.GetLatestResult)
	})

	t.Run("found", func(t *testing.T) {
		rec := doJSON(router, http.MethodGet, "/api/v1/results/assignment/sat-practice-3/latest", "student-7", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var result models.Result
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &result))
		assert.Equal(t, "r-1", result.ID)
	})

	t.Run("other user sees nothing", func(t *testing.T) {
		rec := doJSON(router, http.MethodGet, "/api/v1/results/assignment/sat-practice-3/latest", "student-8", nil)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func TestQuestionHandler_GetModuleQuestions(t *testing.T) {
	repo := &stubQuestionRepo{byModule: map[string][]*models.Question{
		"math-1": {{ID: "q1", ModuleKey: "math-1", Position: 1, Text: "2+2?"}},
	}}
	h := NewQuestionHandler(nil, repo, testLogger(t))
	router := newTestRouter(func(v1 *gin.RouterGroup) {
		v1.GET("/questions/module/:module_key", h.GetModuleQuestions)
	})

	rec := doJSON(router, http.MethodGet, "/api/v1/questions/module/math-1", "teacher-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		ModuleKey string             `json:"module_key"`
		Questions []*models.Question `json:"questions"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "math-1", body.ModuleKey)
	require.Len(t, body.Questions, 1)
	assert.Equal(t, "q1", body.Questions[0].ID)
}

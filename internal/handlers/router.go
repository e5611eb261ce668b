package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/services"
)

type HandlerManager struct {
	sessionHandler    *SessionHandler
	assignmentHandler *AssignmentHandler
	questionHandler   *QuestionHandler
	resultHandler     *ResultHandler
}

func NewHandlerManager(
	sessions services.SessionService,
	assignments services.AssignmentService,
	source services.QuestionSourceService,
	questions repositories.QuestionRepository,
	results repositories.ResultRepository,
	logger *slog.Logger,
) *HandlerManager {
	return &HandlerManager{
		sessionHandler:    NewSessionHandler(sessions, logger),
		assignmentHandler: NewAssignmentHandler(assignments, logger),
		questionHandler:   NewQuestionHandler(source, questions, logger),
		resultHandler:     NewResultHandler(results, logger),
	}
}

// SetupRoutes sets up all API routes
func (hm *HandlerManager) SetupRoutes(router *gin.Engine) {
	router.GET("/health", HealthCheck)

	v1 := router.Group("/api/v1")
	v1.Use(IdentityMiddleware())
	{
		sessions := v1.Group("/sessions")
		{
			sessions.POST("/start", hm.sessionHandler.StartSession)
			sessions.GET("/:id", hm.sessionHandler.GetSession)
			sessions.POST("/:id/answer", hm.sessionHandler.SubmitAnswer)
			sessions.POST("/:id/flag", hm.sessionHandler.ToggleFlag)
			sessions.POST("/:id/page", hm.sessionHandler.JumpToPage)
			sessions.POST("/:id/advance", hm.sessionHandler.Advance)
			sessions.POST("/:id/suspend", hm.sessionHandler.SuspendSession)
			sessions.POST("/:id/resume", hm.sessionHandler.ResumeSession)
			sessions.GET("/:id/navigator", hm.sessionHandler.GetNavigator)
			sessions.GET("/:id/time-remaining", hm.sessionHandler.GetTimeRemaining)
			sessions.POST("/:id/submit/prepare", hm.sessionHandler.PrepareSubmit)
			sessions.POST("/:id/submit/cancel", hm.sessionHandler.CancelSubmit)
			sessions.POST("/:id/submit", hm.sessionHandler.Submit)
		}

		assignments := v1.Group("/assignments")
		{
			assignments.POST("", hm.assignmentHandler.CreateAssignment)
			assignments.GET("", hm.assignmentHandler.ListAssignments)
			assignments.GET("/:id", hm.assignmentHandler.GetAssignment)
			assignments.PUT("/:id", hm.assignmentHandler.UpdateAssignment)
			assignments.DELETE("/:id", hm.assignmentHandler.DeleteAssignment)
		}

		questions := v1.Group("/questions")
		{
			questions.GET("", hm.questionHandler.ListQuestions)
			questions.POST("/import", hm.questionHandler.ImportQuestions)
			questions.GET("/module/:module_key", hm.questionHandler.GetModuleQuestions)
			questions.DELETE("/module/:module_key", hm.questionHandler.DeleteModuleQuestions)
		}

		results := v1.Group("/results")
		{
			results.GET("", hm.resultHandler.ListMyResults)
			results.GET("/:id", hm.resultHandler.GetResult)
			results.GET("/assignment/:assignment_id/latest", hm.resultHandler.GetLatestResult)
			results.GET("/assignment/:assignment_id/stats", hm.resultHandler.GetAssignmentStats)
		}
	}
}

// IdentityMiddleware attaches the caller identity from the gateway-provided
// X-User-ID header. Authentication itself happens upstream.
func IdentityMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		if userID := c.GetHeader("X-User-ID"); userID != "" {
			c.Set("user_id", userID)
		}
		c.Next()
	}
}

// HealthCheck returns service health status
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "session-service",
	})
}

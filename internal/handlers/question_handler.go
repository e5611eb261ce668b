package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumiprep/session-service/internal/models"
	"github.com/lumiprep/session-service/internal/repositories"
	"github.com/lumiprep/session-service/internal/services"
)

type QuestionHandler struct {
	BaseHandler
	source    services.QuestionSourceService
	questions repositories.QuestionRepository
}

func NewQuestionHandler(
	source services.QuestionSourceService,
	questions repositories.QuestionRepository,
	logger *slog.Logger,
) *QuestionHandler {
	return &QuestionHandler{
		BaseHandler: NewBaseHandler(logger),
		source:      source,
		questions:   questions,
	}
}

// ImportQuestions ingests a CSV or XLSX question bank upload
// @Router /questions/import [post]
func (h *QuestionHandler) ImportQuestions(c *gin.Context) {
	h.LogRequest(c, "Importing questions")

	if _, ok := h.requireUser(c); !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Missing file upload",
			Details: err.Error(),
		})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Unreadable file upload",
			Details: err.Error(),
		})
		return
	}
	defer file.Close()

	result, err := h.source.ImportQuestionsFromFile(c.Request.Context(), file, fileHeader.Filename)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, SuccessResponse{
		Message: "Import completed",
		Data:    result,
	})
}

// ListQuestions lists bank questions with optional filters
// @Router /questions [get]
func (h *QuestionHandler) ListQuestions(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}

	filters := repositories.QuestionFilters{
		Limit:  parsePositiveQueryInt(c, "limit", 50),
		Offset: parsePositiveQueryInt(c, "offset", 0),
	}
	if moduleKey := c.Query("module_key"); moduleKey != "" {
		filters.ModuleKey = &moduleKey
	}
	if skill := c.Query("skill"); skill != "" {
		filters.Skill = &skill
	}
	if difficulty := c.Query("difficulty"); difficulty != "" {
		level := models.DifficultyLevel(difficulty)
		filters.Difficulty = &level
	}

	questions, total, err := h.questions.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"questions": questions,
		"total":     total,
	})
}

// GetModuleQuestions returns every question of one module in bank order
// @Router /questions/module/{module_key} [get]
func (h *QuestionHandler) GetModuleQuestions(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}

	moduleKey := ParseStringIDParam(c, "module_key")
	questions, err := h.questions.GetByModuleKey(c.Request.Context(), moduleKey)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"module_key": moduleKey,
		"questions":  questions,
	})
}

// DeleteModuleQuestions removes every question of one module
// @Router /questions/module/{module_key} [delete]
func (h *QuestionHandler) DeleteModuleQuestions(c *gin.Context) {
	h.LogRequest(c, "Deleting module questions")

	if _, ok := h.requireUser(c); !ok {
		return
	}

	moduleKey := ParseStringIDParam(c, "module_key")
	if err := h.questions.DeleteByModuleKey(c.Request.Context(), moduleKey); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Module questions deleted"})
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumiprep/session-service/internal/repositories"
)

type ResultHandler struct {
	BaseHandler
	results repositories.ResultRepository
}

func NewResultHandler(results repositories.ResultRepository, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		BaseHandler: NewBaseHandler(logger),
		results:     results,
	}
}

// ListMyResults lists the caller's submitted results
// @Router /results [get]
func (h *ResultHandler) ListMyResults(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	filters := repositories.ResultFilters{
		UserID: &userID,
		Limit:  parsePositiveQueryInt(c, "limit", 20),
		Offset: parsePositiveQueryInt(c, "offset", 0),
	}
	if assignmentID := c.Query("assignment_id"); assignmentID != "" {
		filters.AssignmentID = &assignmentID
	}

	results, total, err := h.results.List(c.Request.Context(), filters)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"results": results,
		"total":   total,
	})
}

// GetResult returns one submitted result
// @Router /results/{id} [get]
func (h *ResultHandler) GetResult(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	result, err := h.results.GetByID(c.Request.Context(), ParseStringIDParam(c, "id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}
	if result.UserID != userID {
		c.JSON(http.StatusNotFound, ErrorResponse{Message: "Resource not found"})
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetLatestResult returns the caller's most recent result on one assignment
// @Router /results/assignment/{assignment_id}/latest [get]
func (h *ResultHandler) GetLatestResult(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	result, err := h.results.GetLatest(c.Request.Context(), ParseStringIDParam(c, "assignment_id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetAssignmentStats aggregates every submitted result of one assignment
// @Router /results/assignment/{assignment_id}/stats [get]
func (h *ResultHandler) GetAssignmentStats(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}

	stats, err := h.results.GetAssignmentStats(c.Request.Context(), ParseStringIDParam(c, "assignment_id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/lumiprep/session-service/internal/services"
)

type AssignmentHandler struct {
	BaseHandler
	assignments services.AssignmentService
}

func NewAssignmentHandler(assignments services.AssignmentService, logger *slog.Logger) *AssignmentHandler {
	return &AssignmentHandler{
		BaseHandler: NewBaseHandler(logger),
		assignments: assignments,
	}
}

// CreateAssignment registers a new assignment layout
// @Router /assignments [post]
func (h *AssignmentHandler) CreateAssignment(c *gin.Context) {
	h.LogRequest(c, "Creating assignment")

	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req services.CreateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	assignment, err := h.assignments.Create(c.Request.Context(), &req, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, assignment)
}

// GetAssignment returns one assignment
// @Router /assignments/{id} [get]
func (h *AssignmentHandler) GetAssignment(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}

	assignment, err := h.assignments.Get(c.Request.Context(), ParseStringIDParam(c, "id"))
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// UpdateAssignment patches an assignment
// @Router /assignments/{id} [put]
func (h *AssignmentHandler) UpdateAssignment(c *gin.Context) {
	h.LogRequest(c, "Updating assignment")

	if _, ok := h.requireUser(c); !ok {
		return
	}

	var req services.UpdateAssignmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	assignment, err := h.assignments.Update(c.Request.Context(), ParseStringIDParam(c, "id"), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, assignment)
}

// DeleteAssignment soft-deletes an assignment
// @Router /assignments/{id} [delete]
func (h *AssignmentHandler) DeleteAssignment(c *gin.Context) {
	h.LogRequest(c, "Deleting assignment")

	if _, ok := h.requireUser(c); !ok {
		return
	}

	if err := h.assignments.Delete(c.Request.Context(), ParseStringIDParam(c, "id")); err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, SuccessResponse{Message: "Assignment deleted"})
}

// ListAssignments pages through the assignment catalog
// @Router /assignments [get]
func (h *AssignmentHandler) ListAssignments(c *gin.Context) {
	if _, ok := h.requireUser(c); !ok {
		return
	}

	assignments, total, err := h.assignments.List(c.Request.Context(),
		parsePositiveQueryInt(c, "limit", 20),
		parsePositiveQueryInt(c, "offset", 0),
	)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"assignments": assignments,
		"total":       total,
	})
}

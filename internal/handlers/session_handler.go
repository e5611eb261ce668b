package handlers

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/lumiprep/session-service/internal/services"
)

type SessionHandler struct {
	BaseHandler
	sessions services.SessionService
}

func NewSessionHandler(sessions services.SessionService, logger *slog.Logger) *SessionHandler {
	return &SessionHandler{
		BaseHandler: NewBaseHandler(logger),
		sessions:    sessions,
	}
}

// StartSession starts (or resumes) an attempt on an assignment
// @Router /sessions/start [post]
func (h *SessionHandler) StartSession(c *gin.Context) {
	h.LogRequest(c, "Starting session")

	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req services.StartSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}
	req.UserID = userID

	view, err := h.sessions.Start(c.Request.Context(), &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, view)
}

// GetSession returns the current view of a live session
// @Router /sessions/{id} [get]
func (h *SessionHandler) GetSession(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	view, err := h.sessions.Get(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SubmitAnswer records or clears one answer
// @Router /sessions/{id}/answer [post]
func (h *SessionHandler) SubmitAnswer(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req services.AnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.sessions.SetAnswer(c.Request.Context(), ParseStringIDParam(c, "id"), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ToggleFlag flips the review marker on one question
// @Router /sessions/{id}/flag [post]
func (h *SessionHandler) ToggleFlag(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req services.FlagRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.sessions.ToggleFlag(c.Request.Context(), ParseStringIDParam(c, "id"), userID, &req)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

type jumpRequest struct {
	Page int `json:"page" binding:"required"`
}

// JumpToPage moves within the active module
// @Router /sessions/{id}/page [post]
func (h *SessionHandler) JumpToPage(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	var req jumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Invalid request payload",
			Details: err.Error(),
		})
		return
	}

	view, err := h.sessions.JumpToPage(c.Request.Context(), ParseStringIDParam(c, "id"), userID, req.Page)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Advance completes the active module or leaves a section break
// @Router /sessions/{id}/advance [post]
func (h *SessionHandler) Advance(c *gin.Context) {
	h.LogRequest(c, "Advancing session")

	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	view, err := h.sessions.Advance(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// SuspendSession pauses the session and its clock
// @Router /sessions/{id}/suspend [post]
func (h *SessionHandler) SuspendSession(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	view, err := h.sessions.Suspend(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// ResumeSession lifts a suspension
// @Router /sessions/{id}/resume [post]
func (h *SessionHandler) ResumeSession(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	view, err := h.sessions.Resume(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// GetNavigator returns the per-question status strip of the active module
// @Router /sessions/{id}/navigator [get]
func (h *SessionHandler) GetNavigator(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	nav, err := h.sessions.Navigator(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, nav)
}

// GetTimeRemaining reports the active module countdown
// @Router /sessions/{id}/time-remaining [get]
func (h *SessionHandler) GetTimeRemaining(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	remaining, err := h.sessions.TimeRemaining(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, remaining)
}

// PrepareSubmit computes the submit confirmation preview
// @Router /sessions/{id}/submit/prepare [post]
func (h *SessionHandler) PrepareSubmit(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	preview, err := h.sessions.PrepareSubmit(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, preview)
}

// CancelSubmit abandons a manual finalization
// @Router /sessions/{id}/submit/cancel [post]
func (h *SessionHandler) CancelSubmit(c *gin.Context) {
	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	view, err := h.sessions.CancelSubmit(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, view)
}

// Submit finalizes the attempt and persists the result
// @Router /sessions/{id}/submit [post]
func (h *SessionHandler) Submit(c *gin.Context) {
	h.LogRequest(c, "Submitting session")

	userID, ok := h.requireUser(c)
	if !ok {
		return
	}

	result, err := h.sessions.Submit(c.Request.Context(), ParseStringIDParam(c, "id"), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// parsePositiveQueryInt reads an optional positive integer query parameter.
func parsePositiveQueryInt(c *gin.Context, name string, fallback int) int {
	raw := c.Query(name)
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return fallback
	}
	return n
}

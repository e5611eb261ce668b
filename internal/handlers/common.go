package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	apperrors "github.com/lumiprep/session-service/internal/errors"
	"github.com/lumiprep/session-service/internal/services"
	"gorm.io/gorm"
)

// ===== COMMON RESPONSE STRUCTURES =====

// ErrorResponse represents an error response
type ErrorResponse struct {
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// SuccessResponse represents a success response
type SuccessResponse struct {
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// ===== BASE HANDLER STRUCT =====

// BaseHandler provides logging and shared error mapping for all handlers
type BaseHandler struct {
	logger *slog.Logger
}

func NewBaseHandler(logger *slog.Logger) BaseHandler {
	return BaseHandler{logger: logger}
}

// LogRequest logs an incoming HTTP request with context information
func (h *BaseHandler) LogRequest(c *gin.Context, message string, additionalFields ...interface{}) {
	fields := []interface{}{
		"method", c.Request.Method,
		"path", c.Request.URL.Path,
		"remote_addr", c.ClientIP(),
		"user_id", UserID(c),
	}
	fields = append(fields, additionalFields...)
	h.logger.Info(message, fields...)
}

// handleServiceError translates the service error taxonomy into HTTP status
// codes. Anything unrecognized is a 500 and gets logged with the request.
func (h *BaseHandler) handleServiceError(c *gin.Context, err error) {
	var ve apperrors.ValidationErrors
	switch {
	case services.IsValidation(err):
		details := interface{}(err.Error())
		if errors.As(err, &ve) {
			details = ve
		}
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Validation failed",
			Details: details,
		})
	case services.IsNotFound(err) || errors.Is(err, gorm.ErrRecordNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{
			Message: "Resource not found",
			Details: err.Error(),
		})
	case services.IsConflict(err):
		c.JSON(http.StatusConflict, ErrorResponse{
			Message: "Conflicting session state",
			Details: err.Error(),
		})
	case services.IsBadRequest(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Message: "Request rejected",
			Details: err.Error(),
		})
	default:
		h.logger.Error("Unhandled service error",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"error", err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Message: "Internal server error",
		})
	}
}

// UserID reads the authenticated caller set by the identity middleware.
func UserID(c *gin.Context) string {
	if userID, exists := c.Get("user_id"); exists {
		if s, ok := userID.(string); ok {
			return s
		}
	}
	return ""
}

// requireUser aborts with 401 when no identity is attached to the request.
func (h *BaseHandler) requireUser(c *gin.Context) (string, bool) {
	userID := UserID(c)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{
			Message: "User not authenticated",
		})
		return "", false
	}
	return userID, true
}

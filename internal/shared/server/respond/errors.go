package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"pdfshare-backend/internal/shared/apperr"
	"pdfshare-backend/internal/shared/telemetry"
)

// ErrorBody defines the standardized error object.
type ErrorBody struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// ErrorResponse wraps the error body.
type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Error sends a standardized error response.
func Error(c *gin.Context, status int, code, message string, details interface{}) {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.Request.URL.Path,
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if userID := c.GetString("userId"); userID != "" {
		fields["user_id"] = userID
	}
	if isGuest, ok := c.Get("isGuest"); ok {
		fields["is_guest"] = isGuest
	}
	telemetry.Error("http.error", fields)

	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorBody{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// FromError maps a service error onto the standardized response.
// Authorization failures are reported as not found so callers cannot probe
// for documents they have no access to.
func FromError(c *gin.Context, err error) {
	var (
		status int
		code   string
	)
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status, code = http.StatusBadRequest, "invalid_request"
	case apperr.KindAuthentication:
		status, code = http.StatusUnauthorized, "unauthorized"
	case apperr.KindAuthorization:
		telemetry.Warn("http.forbidden", map[string]any{
			"path":   c.Request.URL.Path,
			"reason": messageOf(err),
		})
		Error(c, http.StatusNotFound, "not_found", "resource not found", nil)
		return
	case apperr.KindNotFound:
		status, code = http.StatusNotFound, "not_found"
	case apperr.KindUpstream:
		status, code = http.StatusBadGateway, "upstream_error"
	case apperr.KindUnavailable:
		status, code = http.StatusServiceUnavailable, "unavailable"
	default:
		telemetry.Error("http.internal", map[string]any{
			"path":  c.Request.URL.Path,
			"error": err,
		})
		Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
		return
	}
	Error(c, status, code, messageOf(err), nil)
}

func messageOf(err error) string {
	var appErr *apperr.Error
	if errors.As(err, &appErr) && appErr.Message != "" {
		return appErr.Message
	}
	return err.Error()
}

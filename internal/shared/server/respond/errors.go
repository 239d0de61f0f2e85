package respond

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"cvcoach-backend/internal/shared/telemetry"
)

// ErrorBody is the {code, message, details} object every error response carries.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

type ErrorResponse struct {
	Error ErrorBody `json:"error"`
}

// Rule maps a sentinel error to the response a client sees.
type Rule struct {
	Err     error
	Status  int
	Code    string
	Message string
}

// Error aborts the request with a standardized error body.
func Error(c *gin.Context, status int, code, message string, details any) {
	if status >= http.StatusInternalServerError {
		telemetry.Error("http.error", requestFields(c, status, code, message))
	} else {
		telemetry.Warn("http.error", requestFields(c, status, code, message))
	}
	c.AbortWithStatusJSON(status, ErrorResponse{Error: ErrorBody{Code: code, Message: message, Details: details}})
}

// FromError answers with the first rule err matches. Anything unmatched is a
// 500 and its cause is logged, never sent.
func FromError(c *gin.Context, err error, rules []Rule) {
	for _, r := range rules {
		if errors.Is(err, r.Err) {
			Error(c, r.Status, r.Code, r.Message, nil)
			return
		}
	}
	fields := requestFields(c, http.StatusInternalServerError, "internal_error", "request failed")
	fields["error"] = err
	telemetry.Error("http.unhandled_error", fields)
	c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: ErrorBody{Code: "internal_error", Message: "request failed"}})
}

func requestFields(c *gin.Context, status int, code, message string) map[string]any {
	fields := map[string]any{
		"status":     status,
		"code":       code,
		"message":    message,
		"path":       c.FullPath(),
		"method":     c.Request.Method,
		"request_id": c.GetString("requestId"),
	}
	if owner := c.GetString("userId"); owner != "" {
		fields["owner"] = owner
	}
	if wsID := c.GetString("workspaceId"); wsID != "" {
		fields["workspace_id"] = wsID
	}
	return fields
}

package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"cvcoach-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)

		fields := map[string]any{
			"request_id":  RequestIDFromContext(c),
			"method":      c.Request.Method,
			"path":        c.Request.URL.Path,
			"route":       c.FullPath(),
			"status":      c.Writer.Status(),
			"duration_ms": float64(latency.Microseconds()) / 1000.0,
			"owner":       UserIDFromContext(c),
			"client_ip":   c.ClientIP(),
		}
		if isGuest, ok := c.Get(isGuestKey); ok {
			fields["is_guest"] = isGuest
		}
		if wsID := c.GetString("workspaceId"); wsID != "" {
			fields["workspace_id"] = wsID
		}
		if transition := c.GetString("stepTransition"); transition != "" {
			fields["step_transition"] = transition
		}
		telemetry.Info("request.complete", fields)
	}
}

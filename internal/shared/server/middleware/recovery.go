package middleware

import (
	"fmt"
	"io"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"cvcoach-backend/internal/shared/server/respond"
	"cvcoach-backend/internal/shared/telemetry"
)

// Recovery turns a handler panic into a 500 and marks the request span failed.
func Recovery() gin.HandlerFunc {
	return gin.CustomRecoveryWithWriter(io.Discard, func(c *gin.Context, rec any) {
		span := trace.SpanFromContext(c.Request.Context())
		span.RecordError(fmt.Errorf("panic: %v", rec))
		span.SetStatus(codes.Error, "panic")

		telemetry.Error("http.panic", map[string]any{
			"request_id":   RequestIDFromContext(c),
			"owner":        UserIDFromContext(c),
			"workspace_id": c.GetString("workspaceId"),
			"route":        c.FullPath(),
			"method":       c.Request.Method,
			"error":        fmt.Sprint(rec),
			"stack":        string(debug.Stack()),
		})
		respond.Error(c, http.StatusInternalServerError, "internal", "Unexpected server error", nil)
	})
}

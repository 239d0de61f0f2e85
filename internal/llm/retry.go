package llm

import (
	"context"
	"errors"
	"io"
	"net"
	"strings"
	"syscall"
	"time"

	"cvcoach-backend/internal/shared/telemetry"
)

const retryBaseDelay = 300 * time.Millisecond

// RetryingProvider repeats a call once after a short pause when the first
// attempt failed in a way that is likely transient.
type RetryingProvider struct {
	base  Provider
	delay time.Duration
}

func NewRetryingProvider(base Provider) *RetryingProvider {
	return &RetryingProvider{base: base, delay: retryBaseDelay}
}

func (r *RetryingProvider) Name() string { return r.base.Name() }

func (r *RetryingProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	return retryOnce(ctx, r.delay, req.Op, func() (string, error) { return r.base.Complete(ctx, req) })
}

func (r *RetryingProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	return retryOnce(ctx, r.delay, OpChat, func() (string, error) { return r.base.Chat(ctx, req) })
}

func retryOnce(ctx context.Context, delay time.Duration, op string, call func() (string, error)) (string, error) {
	out, err := call()
	if err == nil || !shouldRetry(err) || ctx.Err() != nil {
		return out, err
	}

	telemetry.Warn("llm.retry", map[string]any{
		"op":         op,
		"attempt":    1,
		"request_id": telemetry.RequestIDFromContext(ctx),
		"error":      err,
	})
	select {
	case <-time.After(delay):
	case <-ctx.Done():
		return "", ctx.Err()
	}
	return call()
}

func shouldRetry(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var status *StatusError
	if errors.As(err, &status) {
		return status.Transient()
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	if errors.Is(err, syscall.ECONNRESET) || errors.Is(err, syscall.ECONNREFUSED) ||
		errors.Is(err, io.ErrUnexpectedEOF) || errors.Is(err, io.EOF) {
		return true
	}

	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "connection reset") ||
		strings.Contains(msg, "connection refused") ||
		strings.Contains(msg, "broken pipe") ||
		strings.Contains(msg, "tls handshake timeout")
}

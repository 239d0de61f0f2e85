package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
)

var (
	ErrTimeout      = errors.New("llm timeout")
	ErrTransport    = errors.New("llm transport failure")
	ErrSchema       = errors.New("llm response did not match schema")
	ErrCanceled     = errors.New("llm call canceled")
	ErrInvalidInput = errors.New("invalid llm input")
)

// Error is the classified failure of one gateway operation. errors.Is matches
// both the kind sentinel and the underlying cause.
type Error struct {
	Op   string
	Kind error
	Err  error
}

func (e *Error) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("llm %s: %v", e.Op, e.Kind)
	}
	return fmt.Sprintf("llm %s: %v: %v", e.Op, e.Kind, e.Err)
}

func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind}
	}
	return []error{e.Kind, e.Err}
}

// StatusError is returned by providers for non-2xx HTTP responses.
type StatusError struct {
	Provider string
	Code     int
	Message  string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("%s: http status %d", e.Provider, e.Code)
	}
	return fmt.Sprintf("%s: http status %d: %s", e.Provider, e.Code, e.Message)
}

// Transient reports whether the request may succeed if repeated.
func (e *StatusError) Transient() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// classify maps a provider failure onto one of the error kinds. parent is the
// caller's context, so a cancel by the caller is told apart from our timeout.
func classify(parent context.Context, op string, err error) error {
	var classified *Error
	if errors.As(err, &classified) {
		return classified
	}
	if errors.Is(parent.Err(), context.Canceled) {
		return &Error{Op: op, Kind: ErrCanceled, Err: context.Canceled}
	}
	if isTimeout(err) {
		return &Error{Op: op, Kind: ErrTimeout, Err: err}
	}
	return &Error{Op: op, Kind: ErrTransport, Err: err}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func schemaError(op string, err error) error {
	return &Error{Op: op, Kind: ErrSchema, Err: err}
}

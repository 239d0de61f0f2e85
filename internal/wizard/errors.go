package wizard

import (
	"context"
	"errors"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/llm"
)

var (
	ErrNotFound          = errors.New("workspace not found")
	ErrInvalidInput      = errors.New("invalid input")
	ErrMissingCV         = errors.New("cv has not been uploaded")
	ErrMissingJD         = errors.New("job description has not been uploaded")
	ErrRunInProgress     = errors.New("analysis already running")
	ErrNoRun             = errors.New("no analysis running")
	ErrNoChat            = errors.New("no coaching chat for this workspace")
	ErrInvalidTransition = errors.New("invalid step transition")

	errStaleRun = errors.New("run superseded")
)

// describe turns a gateway failure into the sentence shown after
// "Failed to ... documents.".
func describe(err error) (msg, code string) {
	switch {
	case errors.Is(err, llm.ErrTimeout):
		return "The AI service did not respond in time. Please try again.", analyses.ErrorCodeLLMTimeout
	case errors.Is(err, llm.ErrSchema):
		return "The AI service returned an unexpected response. Please try again.", analyses.ErrorCodeLLMSchema
	case errors.Is(err, llm.ErrCanceled), errors.Is(err, context.Canceled):
		return "The analysis was canceled.", analyses.ErrorCodeRunCanceled
	case errors.Is(err, llm.ErrInvalidInput):
		return "Both documents need text before they can be analyzed.", analyses.ErrorCodeValidationFailed
	default:
		return "The AI service could not be reached. Please try again.", analyses.ErrorCodeLLMTransport
	}
}

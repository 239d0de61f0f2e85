package analyses

import "errors"

var (
	ErrNoAnalysis     = errors.New("no analysis available")
	ErrNoStructuredJD = errors.New("no structured job description available")
)

// Error codes surfaced to clients when an analysis run fails.
const (
	ErrorCodeLLMTimeout       = "LLM_TIMEOUT"
	ErrorCodeLLMTransport     = "LLM_TRANSPORT"
	ErrorCodeLLMSchema        = "LLM_SCHEMA"
	ErrorCodeRunCanceled      = "RUN_CANCELED"
	ErrorCodeValidationFailed = "VALIDATION_FAILED"
)

package llm

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/attribute"

	"cvcoach-backend/internal/analyses"
	"cvcoach-backend/internal/llm/prompts"
	"cvcoach-backend/internal/shared/metrics"
	"cvcoach-backend/internal/shared/telemetry"
	"cvcoach-backend/internal/shared/tracing"
)

const (
	OpValidate  = "validate_documents"
	OpAnalyze   = "analyze_cv"
	OpStructure = "structure_jd"
	OpChat      = "chat"
)

// ValidationExcerptRunes caps each document sent for validation.
const ValidationExcerptRunes = 2000

const (
	validateTemperature  float32 = 0.0
	analyzeTemperature   float32 = 0.2
	structureTemperature float32 = 0.1
	chatTemperature      float32 = 0.5
)

// Timeouts bounds each gateway operation. Zero fields use the defaults.
type Timeouts struct {
	Validate  time.Duration
	Analyze   time.Duration
	Structure time.Duration
	Chat      time.Duration
}

func DefaultTimeouts() Timeouts {
	return Timeouts{
		Validate:  30 * time.Second,
		Analyze:   45 * time.Second,
		Structure: 60 * time.Second,
		Chat:      60 * time.Second,
	}
}

// Gateway exposes the typed operations the application needs from a model.
type Gateway struct {
	provider Provider
	model    string
	timeouts Timeouts
	validate *validator.Validate
}

func NewGateway(provider Provider, model string, timeouts Timeouts) *Gateway {
	def := DefaultTimeouts()
	if timeouts.Validate <= 0 {
		timeouts.Validate = def.Validate
	}
	if timeouts.Analyze <= 0 {
		timeouts.Analyze = def.Analyze
	}
	if timeouts.Structure <= 0 {
		timeouts.Structure = def.Structure
	}
	if timeouts.Chat <= 0 {
		timeouts.Chat = def.Chat
	}
	return &Gateway{
		provider: provider,
		model:    model,
		timeouts: timeouts,
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

type documentsInput struct {
	CV string `validate:"required"`
	JD string `validate:"required"`
}

type chatInput struct {
	System  string `validate:"required"`
	Message string `validate:"required"`
}

// ValidateDocuments asks whether cv is a CV and jd is a job description.
// Only the first ValidationExcerptRunes of each are sent.
func (g *Gateway) ValidateDocuments(ctx context.Context, cv, jd string) (analyses.ValidationResult, error) {
	var out analyses.ValidationResult
	if err := g.checkInput(OpValidate, documentsInput{CV: cv, JD: jd}); err != nil {
		return out, err
	}
	req := CompletionRequest{
		Op:     OpValidate,
		System: prompts.MustGet(prompts.GatewayFile, "validate_system"),
		User: prompts.Render(prompts.GatewayFile, "validate_user", map[string]string{
			"CV": Truncate(cv, ValidationExcerptRunes),
			"JD": Truncate(jd, ValidationExcerptRunes),
		}),
		Temperature: validateTemperature,
		Schema:      mustSchema(SchemaValidationResult),
	}
	if err := g.complete(ctx, req, g.timeouts.Validate, &out); err != nil {
		return analyses.ValidationResult{}, err
	}
	out.Normalize()
	return out, nil
}

// AnalyzeCV scores cv against jd.
func (g *Gateway) AnalyzeCV(ctx context.Context, cv, jd string) (*analyses.AnalysisResult, error) {
	if err := g.checkInput(OpAnalyze, documentsInput{CV: cv, JD: jd}); err != nil {
		return nil, err
	}
	req := CompletionRequest{
		Op:          OpAnalyze,
		System:      prompts.MustGet(prompts.GatewayFile, "analyze_system"),
		User:        prompts.Render(prompts.GatewayFile, "analyze_user", map[string]string{"CV": cv, "JD": jd}),
		Temperature: analyzeTemperature,
		Schema:      mustSchema(SchemaAnalysisResult),
	}
	var out analyses.AnalysisResult
	if err := g.complete(ctx, req, g.timeouts.Analyze, &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// StructureJD reorganises a job description into the fixed template.
func (g *Gateway) StructureJD(ctx context.Context, jd string) (*analyses.StructuredJD, error) {
	if strings.TrimSpace(jd) == "" {
		return nil, &Error{Op: OpStructure, Kind: ErrInvalidInput, Err: errors.New("job description is empty")}
	}
	req := CompletionRequest{
		Op:          OpStructure,
		System:      prompts.MustGet(prompts.GatewayFile, "structure_system"),
		User:        prompts.Render(prompts.GatewayFile, "structure_user", map[string]string{"JD": jd}),
		Temperature: structureTemperature,
		Schema:      mustSchema(SchemaStructuredJD),
	}
	var out analyses.StructuredJD
	if err := g.complete(ctx, req, g.timeouts.Structure, &out); err != nil {
		return nil, err
	}
	out.Normalize()
	return &out, nil
}

// Chat sends message after history and returns the model's free-text reply.
func (g *Gateway) Chat(ctx context.Context, system string, history []Message, message string) (string, error) {
	if err := g.checkInput(OpChat, chatInput{System: system, Message: message}); err != nil {
		return "", err
	}
	msgs := make([]Message, 0, len(history)+1)
	msgs = append(msgs, history...)
	msgs = append(msgs, Message{Role: RoleUser, Content: message})

	ctx, span := tracing.Start(ctx, "llm."+OpChat, attribute.Int("llm.history_len", len(history)))
	text, err := g.race(ctx, OpChat, g.timeouts.Chat, func(ctx context.Context) (string, error) {
		return g.provider.Chat(ctx, ChatRequest{System: system, Messages: msgs, Temperature: chatTemperature})
	})
	if err == nil && strings.TrimSpace(text) == "" {
		err = schemaError(OpChat, errEmptyResponse)
		g.logSchemaError(ctx, OpChat, err)
	}
	tracing.End(span, err)
	if err != nil {
		return "", err
	}
	return text, nil
}

func (g *Gateway) complete(ctx context.Context, req CompletionRequest, timeout time.Duration, out any) error {
	ctx, span := tracing.Start(ctx, "llm."+req.Op,
		attribute.String("llm.provider", g.provider.Name()),
		attribute.String("llm.model", g.model),
	)
	raw, err := g.race(ctx, req.Op, timeout, func(ctx context.Context) (string, error) {
		return g.provider.Complete(ctx, req)
	})
	if err == nil {
		if decodeErr := decodeStrict(raw, req.Schema, out); decodeErr != nil {
			err = schemaError(req.Op, decodeErr)
			g.logSchemaError(ctx, req.Op, err)
		}
	}
	tracing.End(span, err)
	return err
}

// race runs call against a timer. The timer wins even when the provider
// ignores its context.
func (g *Gateway) race(ctx context.Context, op string, timeout time.Duration, call func(context.Context) (string, error)) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	type result struct {
		text string
		err  error
	}
	done := make(chan result, 1)
	start := time.Now()
	go func() {
		text, err := call(callCtx)
		done <- result{text: text, err: err}
	}()

	var (
		text string
		err  error
	)
	select {
	case r := <-done:
		text, err = r.text, r.err
	case <-callCtx.Done():
		err = callCtx.Err()
	}
	if err != nil {
		err = classify(ctx, op, err)
	}

	elapsed := time.Since(start)
	metrics.ObserveLLMDurationMs(float64(elapsed.Milliseconds()))
	metrics.IncLLMCall(op, outcome(err))
	fields := map[string]any{
		"op":          op,
		"provider":    g.provider.Name(),
		"model":       g.model,
		"duration_ms": elapsed.Milliseconds(),
		"request_id":  telemetry.RequestIDFromContext(ctx),
		"outcome":     outcome(err),
	}
	if err != nil {
		fields["error"] = err
		telemetry.Warn("llm.call", fields)
		return "", err
	}
	telemetry.Info("llm.call", fields)
	return text, nil
}

func (g *Gateway) checkInput(op string, input any) error {
	if err := g.validate.Struct(input); err != nil {
		return &Error{Op: op, Kind: ErrInvalidInput, Err: err}
	}
	return nil
}

func (g *Gateway) logSchemaError(ctx context.Context, op string, err error) {
	metrics.IncLLMSchemaError(op)
	telemetry.Error("llm.schema_error", map[string]any{
		"op":         op,
		"provider":   g.provider.Name(),
		"model":      g.model,
		"request_id": telemetry.RequestIDFromContext(ctx),
		"error":      err,
	})
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrCanceled):
		return "canceled"
	default:
		return "transport"
	}
}

// Truncate returns at most n runes of s.
func Truncate(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

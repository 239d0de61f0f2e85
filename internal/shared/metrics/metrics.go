package metrics

import (
	"bytes"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gin-gonic/gin"
)

var (
	analysisStartedTotal   atomic.Uint64
	analysisCompletedTotal atomic.Uint64
	analysisFailedTotal    atomic.Uint64
	analysisCanceledTotal  atomic.Uint64
	validationWarnings     atomic.Uint64
	chatTurnsTotal         atomic.Uint64
	chatFailuresTotal      atomic.Uint64
	suggestionsApplied     atomic.Uint64
	suggestionsRejected    atomic.Uint64
	exportsTotal           atomic.Uint64

	llmCalls        = newCounterVec("op", "outcome")
	llmSchemaErrors = newCounterVec("op")
	rateLimited     = newCounterVec("group")

	analysisDuration = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
	llmDuration      = newHistogram([]float64{100, 250, 500, 1000, 2000, 5000, 10000, 30000, 60000})
)

func IncAnalysisStarted()    { analysisStartedTotal.Add(1) }
func IncAnalysisCompleted()  { analysisCompletedTotal.Add(1) }
func IncAnalysisFailed()     { analysisFailedTotal.Add(1) }
func IncAnalysisCanceled()   { analysisCanceledTotal.Add(1) }
func IncValidationWarning()  { validationWarnings.Add(1) }
func IncChatTurn()           { chatTurnsTotal.Add(1) }
func IncChatFailure()        { chatFailuresTotal.Add(1) }
func IncSuggestionApplied()  { suggestionsApplied.Add(1) }
func IncSuggestionRejected() { suggestionsRejected.Add(1) }
func IncExport()             { exportsTotal.Add(1) }

// IncLLMCall counts one gateway call by operation and transport outcome.
func IncLLMCall(op, outcome string) { llmCalls.Inc(op, outcome) }

// IncLLMSchemaError counts replies that arrived but failed decoding.
func IncLLMSchemaError(op string) { llmSchemaErrors.Inc(op) }

// IncRateLimited counts requests rejected by a rate limit group.
func IncRateLimited(group string) { rateLimited.Inc(group) }

// ObserveAnalysisDurationMs records a full pipeline duration in milliseconds.
func ObserveAnalysisDurationMs(value float64) {
	analysisDuration.Observe(clamp(value))
}

// ObserveLLMDurationMs records a single gateway call in milliseconds.
func ObserveLLMDurationMs(value float64) {
	llmDuration.Observe(clamp(value))
}

func clamp(v float64) float64 {
	if v < 0 {
		return 0
	}
	return v
}

// Handler exposes metrics in Prometheus text format.
func Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Content-Type", "text/plain; version=0.0.4")
		c.String(http.StatusOK, Render())
	}
}

// Render renders metrics in Prometheus text format.
func Render() string {
	var buf bytes.Buffer
	writeCounter(&buf, "analysis_started_total", "Total analyses started", analysisStartedTotal.Load())
	writeCounter(&buf, "analysis_completed_total", "Total analyses completed", analysisCompletedTotal.Load())
	writeCounter(&buf, "analysis_failed_total", "Total analyses failed", analysisFailedTotal.Load())
	writeCounter(&buf, "analysis_canceled_total", "Total analyses canceled by the user", analysisCanceledTotal.Load())
	writeCounter(&buf, "validation_warnings_total", "Validations that flagged a document", validationWarnings.Load())
	writeCounter(&buf, "chat_turns_total", "Coach chat turns sent to the model", chatTurnsTotal.Load())
	writeCounter(&buf, "chat_failures_total", "Coach chat turns that failed", chatFailuresTotal.Load())
	writeCounter(&buf, "suggestions_applied_total", "Suggestions applied to the CV", suggestionsApplied.Load())
	writeCounter(&buf, "suggestions_rejected_total", "Suggestions rejected", suggestionsRejected.Load())
	writeCounter(&buf, "exports_total", "Improvement logs exported", exportsTotal.Load())
	writeCounterVec(&buf, "llm_calls_total", "Gateway calls by operation and outcome", llmCalls)
	writeCounterVec(&buf, "llm_schema_errors_total", "Model replies rejected by schema validation", llmSchemaErrors)
	writeCounterVec(&buf, "rate_limited_total", "Requests rejected by rate limiting", rateLimited)
	writeHistogram(&buf, "analysis_duration_ms", "Analysis pipeline duration in milliseconds", analysisDuration.Snapshot())
	writeHistogram(&buf, "llm_call_duration_ms", "LLM gateway call duration in milliseconds", llmDuration.Snapshot())
	return buf.String()
}

type histogram struct {
	mu      sync.Mutex
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

type histogramSnapshot struct {
	buckets []float64
	counts  []uint64
	sum     float64
	count   uint64
}

func newHistogram(buckets []float64) *histogram {
	return &histogram{
		buckets: buckets,
		counts:  make([]uint64, len(buckets)),
	}
}

// Observe counts value in the first bucket that holds it; Render accumulates.
func (h *histogram) Observe(value float64) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.count++
	h.sum += value
	for i, bound := range h.buckets {
		if value <= bound {
			h.counts[i]++
			return
		}
	}
}

func (h *histogram) Snapshot() histogramSnapshot {
	h.mu.Lock()
	defer h.mu.Unlock()
	return histogramSnapshot{
		buckets: append([]float64(nil), h.buckets...),
		counts:  append([]uint64(nil), h.counts...),
		sum:     h.sum,
		count:   h.count,
	}
}

func writeCounter(buf *bytes.Buffer, name, help string, value uint64) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	fmt.Fprintf(buf, "%s %d\n", name, value)
}

// counterVec is a counter family with a fixed label set.
type counterVec struct {
	labels []string
	mu     sync.Mutex
	values map[string]uint64
}

func newCounterVec(labels ...string) *counterVec {
	return &counterVec{labels: labels, values: map[string]uint64{}}
}

// Inc adds one to the series named by values, given in label order.
func (v *counterVec) Inc(values ...string) {
	if len(values) != len(v.labels) {
		return
	}
	key := strings.Join(values, "\x00")
	v.mu.Lock()
	v.values[key]++
	v.mu.Unlock()
}

func (v *counterVec) snapshot() map[string]uint64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]uint64, len(v.values))
	for k, n := range v.values {
		out[k] = n
	}
	return out
}

func writeCounterVec(buf *bytes.Buffer, name, help string, v *counterVec) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s counter\n", name)
	snap := v.snapshot()
	keys := make([]string, 0, len(snap))
	for k := range snap {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		vals := strings.Split(k, "\x00")
		pairs := make([]string, len(vals))
		for i, val := range vals {
			pairs[i] = fmt.Sprintf("%s=%s", v.labels[i], strconv.Quote(val))
		}
		fmt.Fprintf(buf, "%s{%s} %d\n", name, strings.Join(pairs, ","), snap[k])
	}
}

func writeHistogram(buf *bytes.Buffer, name, help string, snap histogramSnapshot) {
	fmt.Fprintf(buf, "# HELP %s %s\n", name, help)
	fmt.Fprintf(buf, "# TYPE %s histogram\n", name)
	var cumulative uint64
	for i, bound := range snap.buckets {
		cumulative += snap.counts[i]
		fmt.Fprintf(buf, "%s_bucket{le=\"%s\"} %d\n", name, formatFloat(bound), cumulative)
	}
	fmt.Fprintf(buf, "%s_bucket{le=\"+Inf\"} %d\n", name, snap.count)
	fmt.Fprintf(buf, "%s_sum %s\n", name, formatFloat(snap.sum))
	fmt.Fprintf(buf, "%s_count %d\n", name, snap.count)
}

func formatFloat(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'f', -1, 64)
}

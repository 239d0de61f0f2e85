package sessions

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"cvcoach-backend/internal/shared/telemetry"
)

var t0 = time.Date(2025, 3, 4, 14, 5, 6, 0, time.UTC)

func improvement(task, from, to string) ImprovementLog {
	return ImprovementLog{TaskName: task, OriginalText: from, ReplacementText: to}
}

func mustLog(t *testing.T, l Ledger, entry ImprovementLog) Ledger {
	t.Helper()
	next, err := l.LogImprovement(entry, t0)
	require.NoError(t, err)
	return next
}

func TestScoreChain(t *testing.T) {
	var l Ledger
	scores := []int{55, 70, 68, 90}
	for i, s := range scores {
		l = l.StartSession(s, t0.Add(time.Duration(i)*time.Minute))
	}

	sessions := l.Sessions()
	require.Len(t, sessions, len(scores))
	assert.Nil(t, sessions[0].ScoreBefore)
	for n := 1; n < len(sessions); n++ {
		require.NotNil(t, sessions[n].ScoreBefore)
		assert.Equal(t, sessions[n-1].ScoreAfter, *sessions[n].ScoreBefore)
		assert.Equal(t, n+1, sessions[n].ID)
	}
}

func TestLedgerIsCopyOnWrite(t *testing.T) {
	base := Ledger{}.StartSession(60, t0)
	withOne := mustLog(t, base, improvement("Keyword Match", "a", "b"))
	withTwo := mustLog(t, withOne, improvement("Quantification", "c", "d"))

	assert.Empty(t, base.Flatten())
	assert.Len(t, withOne.Flatten(), 1)
	assert.Len(t, withTwo.Flatten(), 2)

	snapshot := withTwo.Sessions()
	snapshot[0].Improvements[0].TaskName = "mutated"
	assert.Equal(t, "Keyword Match", withTwo.Flatten()[0].TaskName)
}

func TestLogImprovementWithoutSession(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	telemetry.SetLogger(zap.New(core))
	t.Cleanup(func() { telemetry.SetLogger(nil) })

	l, err := Ledger{}.LogImprovement(improvement("x", "a", "b"), t0)
	assert.True(t, errors.Is(err, ErrNoActiveSession))
	assert.Equal(t, 0, l.Len())
	assert.Equal(t, 1, logs.FilterMessage("sessions.invariant_violation").Len())
}

func TestImprovementsBelongToActiveSession(t *testing.T) {
	l := Ledger{}.StartSession(50, t0)
	l = mustLog(t, l, improvement("A", "1", "2"))
	l = l.StartSession(65, t0)
	l = mustLog(t, l, improvement("B", "3", "4"))
	l = mustLog(t, l, improvement("C", "5", "6"))

	sessions := l.Sessions()
	assert.Len(t, sessions[0].Improvements, 1)
	assert.Len(t, sessions[1].Improvements, 2)

	flat := l.Flatten()
	require.Len(t, flat, 3)
	assert.Equal(t, []string{"A", "B", "C"}, []string{flat[0].TaskName, flat[1].TaskName, flat[2].TaskName})
	assert.NotEmpty(t, flat[0].ID)
	assert.Equal(t, t0, flat[0].Timestamp)
}

func TestRenderExportEmpty(t *testing.T) {
	_, err := RenderExport(Ledger{}, t0)
	assert.True(t, errors.Is(err, ErrNothingToExport))

	_, err = RenderExport(Ledger{}.StartSession(40, t0), t0)
	assert.True(t, errors.Is(err, ErrNothingToExport))
}

func TestRenderExport(t *testing.T) {
	l := Ledger{}.StartSession(62, t0)
	l = mustLog(t, l, improvement("Keyword Match", "  Wrote code ", "Built Go services"))
	l = mustLog(t, l, improvement("Quantification", "Improved speed", "Cut latency by 40%"))
	l = l.StartSession(58, t0.Add(time.Hour))
	l = l.StartSession(81, t0.Add(2*time.Hour))
	l = mustLog(t, l, improvement("General Improvement", "x", "y"))

	out, err := RenderExport(l, t0)
	require.NoError(t, err)

	want := "AI-Powered CV Optimizer - Improvement Log\n" +
		"Generated on: 3/4/2025, 2:05:06 PM\n\n" +
		"========================================\n" +
		"ANALYSIS RUN #3\n" +
		"Timestamp: 3/4/2025, 4:05:06 PM\n" +
		"Score Change: 58 -> 81 (+23 pts)\n" +
		"----------------------------------------\n\n" +
		"Update #1: General Improvement\n" +
		"Original: \"x\"\n" +
		"Updated:  \"y\"\n\n" +
		"========================================\n" +
		"ANALYSIS RUN #2\n" +
		"Timestamp: 3/4/2025, 3:05:06 PM\n" +
		"Score Change: 62 -> 58 (-4 pts)\n" +
		"----------------------------------------\n\n" +
		"No changes were applied in this run.\n\n" +
		"========================================\n" +
		"ANALYSIS RUN #1\n" +
		"Timestamp: 3/4/2025, 2:05:06 PM\n" +
		"Initial Score: 62\n" +
		"----------------------------------------\n\n" +
		"Update #2: Quantification\n" +
		"Original: \"Improved speed\"\n" +
		"Updated:  \"Cut latency by 40%\"\n\n" +
		"Update #1: Keyword Match\n" +
		"Original: \"Wrote code\"\n" +
		"Updated:  \"Built Go services\"\n\n"
	assert.Equal(t, want, out)
	assert.Equal(t, len(l.Flatten()), strings.Count(out, "Update #"))
}


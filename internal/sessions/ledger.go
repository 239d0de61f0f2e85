// Package sessions records analysis runs and the improvements applied during
// each one. A Ledger is an immutable value; every mutation returns a new one.
package sessions

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"cvcoach-backend/internal/shared/telemetry"
)

var (
	ErrNoActiveSession = errors.New("no active analysis session")
	ErrNothingToExport = errors.New("no improvements to export")
)

// ImprovementLog is one applied suggestion.
type ImprovementLog struct {
	ID              string    `json:"id"`
	TaskName        string    `json:"taskName"`
	Description     string    `json:"description"`
	OriginalText    string    `json:"originalText"`
	ReplacementText string    `json:"replacementText"`
	Timestamp       time.Time `json:"timestamp"`
}

// Session is one completed analysis run.
type Session struct {
	ID           int              `json:"id"`
	Timestamp    time.Time        `json:"timestamp"`
	ScoreBefore  *int             `json:"scoreBefore"`
	ScoreAfter   int              `json:"scoreAfter"`
	Improvements []ImprovementLog `json:"improvements"`
}

// Ledger is the append-only history of sessions.
type Ledger struct {
	sessions []Session
}

// Sessions returns a copy of the history, oldest first.
func (l Ledger) Sessions() []Session {
	out := make([]Session, len(l.sessions))
	for i, s := range l.sessions {
		s.Improvements = append([]ImprovementLog{}, s.Improvements...)
		out[i] = s
	}
	return out
}

func (l Ledger) Len() int { return len(l.sessions) }

// Current returns the most recent session.
func (l Ledger) Current() (Session, bool) {
	if len(l.sessions) == 0 {
		return Session{}, false
	}
	return l.Sessions()[len(l.sessions)-1], true
}

// StartSession appends a run whose scoreBefore is the previous run's scoreAfter.
func (l Ledger) StartSession(score int, now time.Time) Ledger {
	s := Session{
		ID:           len(l.sessions) + 1,
		Timestamp:    now,
		ScoreAfter:   score,
		Improvements: []ImprovementLog{},
	}
	if n := len(l.sessions); n > 0 {
		prev := l.sessions[n-1].ScoreAfter
		s.ScoreBefore = &prev
	}
	next := make([]Session, len(l.sessions), len(l.sessions)+1)
	copy(next, l.sessions)
	return Ledger{sessions: append(next, s)}
}

// LogImprovement appends entry to the current session. ID and Timestamp are
// filled when empty. Without a session the ledger is returned unchanged.
func (l Ledger) LogImprovement(entry ImprovementLog, now time.Time) (Ledger, error) {
	n := len(l.sessions)
	if n == 0 {
		telemetry.Error("sessions.invariant_violation", map[string]any{
			"reason": "improvement logged with no active session",
			"task":   entry.TaskName,
		})
		return l, ErrNoActiveSession
	}
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = now
	}

	next := make([]Session, n)
	copy(next, l.sessions)
	last := next[n-1]
	last.Improvements = append(append(make([]ImprovementLog, 0, len(last.Improvements)+1), last.Improvements...), entry)
	next[n-1] = last
	return Ledger{sessions: next}, nil
}

// Flatten returns every improvement in session order.
func (l Ledger) Flatten() []ImprovementLog {
	out := []ImprovementLog{}
	for _, s := range l.sessions {
		out = append(out, s.Improvements...)
	}
	return out
}


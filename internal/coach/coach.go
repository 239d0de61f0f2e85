// Package coach runs the coaching conversation that walks a user through the
// weak areas of their CV, one suggestion at a time.
package coach

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"cvcoach-backend/internal/llm"
	"cvcoach-backend/internal/llm/prompts"
	"cvcoach-backend/internal/sessions"
	"cvcoach-backend/internal/shared/metrics"
	"cvcoach-backend/internal/shared/telemetry"
)

var (
	ErrBusy               = errors.New("coach is still answering")
	ErrEmptyMessage       = errors.New("message is empty")
	ErrNoSuggestion       = errors.New("message has no suggestion")
	ErrSuggestionResolved = errors.New("suggestion already resolved")
	ErrOriginalNotFound   = errors.New("suggested original text not found in cv")
)

// GeneralImprovement names improvements applied after every area was covered.
const GeneralImprovement = "General Improvement"

// Chatter sends one user turn after a transcript. *llm.Gateway satisfies it.
type Chatter interface {
	Chat(ctx context.Context, system string, history []llm.Message, message string) (string, error)
}

// Context is what the coach knows about the user at the start.
type Context struct {
	CV         string
	JDMarkdown string
	Areas      []string
}

// Coach holds one conversation. It is safe for concurrent use; only one Send
// may be in flight at a time.
type Coach struct {
	chatter Chatter
	system  string
	areas   []string
	now     func() time.Time

	mu         sync.Mutex
	state      State
	messages   []Message
	transcript []llm.Message
}

// Option configures a Coach.
type Option func(*Coach)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coach) { c.now = now }
}

// New seeds a conversation: the user turn carries the documents and area list
// and the opening agent turn is generated locally.
func New(chatter Chatter, in Context, opts ...Option) *Coach {
	c := &Coach{
		chatter: chatter,
		system:  prompts.MustGet(prompts.CoachFile, "system"),
		areas:   append([]string{}, in.Areas...),
		now:     time.Now,
		state:   StateIdle,
	}
	for _, opt := range opts {
		opt(c)
	}

	c.state = StateAwaitingFirstGreeting
	seed := prompts.Render(prompts.CoachFile, "seed_user", map[string]string{
		"CV":    in.CV,
		"JD":    in.JDMarkdown,
		"Areas": seedAreas(in.Areas),
	})
	greeting := greetingFor(in.Areas)
	c.transcript = []llm.Message{
		{Role: llm.RoleUser, Content: seed},
		{Role: llm.RoleAssistant, Content: greeting},
	}
	msg, _ := ParseResponse(greeting)
	c.append(msg)
	c.state = StateConversing
	return c
}

func seedAreas(areas []string) string {
	if len(areas) == 0 {
		return "None. Every area already scores well, so focus on final polish."
	}
	return "- " + strings.Join(areas, "\n- ")
}

func greetingFor(areas []string) string {
	if len(areas) == 0 {
		return prompts.MustGet(prompts.CoachFile, "greeting_no_areas")
	}
	return prompts.Render(prompts.CoachFile, "greeting", map[string]string{
		"AreaList": "- " + strings.Join(areas, "\n- "),
		"First":    areas[0],
	})
}

// State reports the conversation state.
func (c *Coach) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Areas returns the ordered improvement areas.
func (c *Coach) Areas() []string {
	return append([]string{}, c.areas...)
}

// Messages returns a copy of the visible conversation.
func (c *Coach) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	for i, m := range c.messages {
		out[i] = m.clone()
	}
	return out
}

// Send appends the user's message, asks the model once and appends its reply.
// A failed call still appends an apology and returns the error; the failed
// turn is not replayed on the next call.
func (c *Coach) Send(ctx context.Context, text string) ([]Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.state == StateThinking {
		c.mu.Unlock()
		return nil, ErrBusy
	}
	first := len(c.messages)
	c.append(Message{Role: RoleUser, Content: text})
	c.state = StateThinking
	history := append([]llm.Message(nil), c.transcript...)
	c.mu.Unlock()

	metrics.IncChatTurn()
	reply, err := c.chatter.Chat(ctx, c.system, history, text)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.state = StateConversing

	if err != nil {
		metrics.IncChatFailure()
		telemetry.Warn("coach.turn_failed", map[string]any{
			"request_id": telemetry.RequestIDFromContext(ctx),
			"error":      err,
		})
		c.append(Message{Role: RoleAgent, Content: prompts.MustGet(prompts.CoachFile, "failed")})
		return c.since(first), fmt.Errorf("coach turn: %w", err)
	}

	c.transcript = append(c.transcript,
		llm.Message{Role: llm.RoleUser, Content: text},
		llm.Message{Role: llm.RoleAssistant, Content: reply},
	)
	msg, ok := ParseResponse(reply)
	if !ok {
		telemetry.Warn("coach.parse_warning", map[string]any{"stage": "message", "error": "no displayable content", "reply_len": len(reply)})
		msg = Message{Role: RoleAgent, Content: prompts.MustGet(prompts.CoachFile, "unparseable")}
	}
	c.append(msg)
	return c.since(first), nil
}

// Applied is the outcome of accepting a suggestion.
type Applied struct {
	CV          string
	Improvement sessions.ImprovementLog
	Messages    []Message
}

// Apply replaces the first occurrence of the suggestion's original text in cv.
// improvementsSoFar picks the area the improvement is logged against. It fails
// with ErrBusy while a reply is pending.
func (c *Coach) Apply(cv string, index, improvementsSoFar int) (Applied, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateThinking {
		return Applied{}, ErrBusy
	}
	s, err := c.pendingSuggestion(index)
	if err != nil {
		return Applied{}, err
	}
	at := strings.Index(cv, s.Original)
	if at < 0 {
		return Applied{}, ErrOriginalNotFound
	}
	updated := cv[:at] + s.Replacement + cv[at+len(s.Original):]

	task := GeneralImprovement
	if improvementsSoFar >= 0 && improvementsSoFar < len(c.areas) {
		task = c.areas[improvementsSoFar]
	}
	now := c.now()

	c.messages[index].SuggestionStatus = StatusApplied
	first := len(c.messages)
	confirm, _ := ParseResponse(prompts.MustGet(prompts.CoachFile, "applied"))
	c.append(confirm)
	metrics.IncSuggestionApplied()

	return Applied{
		CV: updated,
		Improvement: sessions.ImprovementLog{
			TaskName:        task,
			Description:     fmt.Sprintf("Applied suggestion to improve %s.", task),
			OriginalText:    s.Original,
			ReplacementText: s.Replacement,
			Timestamp:       now,
		},
		Messages: c.since(first),
	}, nil
}

// Reject discards a suggestion without touching the CV. Like Apply it fails
// with ErrBusy while a reply is pending.
func (c *Coach) Reject(index int) ([]Message, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.state == StateThinking {
		return nil, ErrBusy
	}
	if _, err := c.pendingSuggestion(index); err != nil {
		return nil, err
	}
	c.messages[index].SuggestionStatus = StatusRejected
	first := len(c.messages)
	ack, _ := ParseResponse(prompts.MustGet(prompts.CoachFile, "rejected"))
	c.append(ack)
	metrics.IncSuggestionRejected()
	return c.since(first), nil
}

func (c *Coach) pendingSuggestion(index int) (AISuggestion, error) {
	if index < 0 || index >= len(c.messages) || c.messages[index].Suggestion == nil {
		return AISuggestion{}, ErrNoSuggestion
	}
	m := c.messages[index]
	if m.SuggestionStatus != StatusPending {
		return AISuggestion{}, ErrSuggestionResolved
	}
	return *m.Suggestion, nil
}

// append adds msg and withdraws quick replies from every earlier message.
// Callers hold mu.
func (c *Coach) append(msg Message) {
	for i := range c.messages {
		c.messages[i].QuickReplies = nil
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = c.now()
	}
	c.messages = append(c.messages, msg)
}

func (c *Coach) since(first int) []Message {
	out := make([]Message, 0, len(c.messages)-first)
	for _, m := range c.messages[first:] {
		out = append(out, m.clone())
	}
	return out
}

package coach

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cvcoach-backend/internal/llm"
)

var fixedNow = time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)

type fakeChatter struct {
	mu       sync.Mutex
	calls    [][]llm.Message
	messages []string
	replies  []string
	err      error
	gate     chan struct{}
}

func (f *fakeChatter) Chat(ctx context.Context, system string, history []llm.Message, message string) (string, error) {
	if f.gate != nil {
		<-f.gate
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, history)
	f.messages = append(f.messages, message)
	if f.err != nil {
		return "", f.err
	}
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r, nil
}

func newCoach(ch Chatter, areas ...string) *Coach {
	return New(ch, Context{CV: "Wrote code. Led team.", JDMarkdown: "### Engineer", Areas: areas}, WithClock(func() time.Time { return fixedNow }))
}

func TestGreetingWithAreas(t *testing.T) {
	c := newCoach(&fakeChatter{}, "Keyword Match", "Quantification")

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, RoleAgent, msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "Areas to address:\n- Keyword Match\n- Quantification")
	assert.Contains(t, msgs[0].Content, "We'll start with: Keyword Match.")
	assert.NotContains(t, msgs[0].Content, "QUICK_REPLIES")
	assert.Equal(t, []string{"I'm ready", "Let's start", "Reply in another language"}, msgs[0].QuickReplies)
	assert.Equal(t, StateConversing, c.State())
	assert.Equal(t, fixedNow, msgs[0].Timestamp)
}

func TestGreetingWithoutAreas(t *testing.T) {
	c := newCoach(&fakeChatter{})

	msgs := c.Messages()
	require.Len(t, msgs, 1)
	assert.True(t, strings.HasPrefix(msgs[0].Content, "Hi! I'm your CV Coach. Your CV has achieved a high suitability score"))
	assert.NotContains(t, msgs[0].Content, "Areas to address")
	assert.Equal(t, []string{"Let's review my summary.", "Any final tips?", "No, I'm happy with it."}, msgs[0].QuickReplies)
}

func TestSendReplaysSeedAndExchanges(t *testing.T) {
	ch := &fakeChatter{replies: []string{"Tell me about metrics. [QUICK_REPLIES:\"Sure\"]", "Thanks!"}}
	c := newCoach(ch, "Quantification")

	out, err := c.Send(context.Background(), "  I'm ready ")
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, Message{Role: RoleUser, Content: "I'm ready", Timestamp: fixedNow}, out[0])
	assert.Equal(t, "Tell me about metrics.", out[1].Content)
	assert.Equal(t, []string{"Sure"}, out[1].QuickReplies)

	_, err = c.Send(context.Background(), "next")
	require.NoError(t, err)

	require.Len(t, ch.calls, 2)
	first := ch.calls[0]
	require.Len(t, first, 2)
	assert.Equal(t, llm.RoleUser, first[0].Role)
	assert.Contains(t, first[0].Content, "This is the user's CV:\n\nWrote code. Led team.")
	assert.Contains(t, first[0].Content, "Here are the improvement areas to address, one by one:\n- Quantification")
	assert.Equal(t, llm.RoleAssistant, first[1].Role)
	assert.Contains(t, first[1].Content, "[QUICK_REPLIES:")

	second := ch.calls[1]
	require.Len(t, second, 4)
	assert.Equal(t, llm.Message{Role: llm.RoleUser, Content: "I'm ready"}, second[2])
	assert.Equal(t, llm.RoleAssistant, second[3].Role)
	assert.Equal(t, []string{"I'm ready", "next"}, ch.messages)
}

func TestQuickRepliesOnlyOnLastMessage(t *testing.T) {
	ch := &fakeChatter{replies: []string{"One [QUICK_REPLIES:\"a\"]", "Two [QUICK_REPLIES:\"b\"]"}}
	c := newCoach(ch, "Keyword Match")

	_, _ = c.Send(context.Background(), "hi")
	_, _ = c.Send(context.Background(), "more")

	msgs := c.Messages()
	for i, m := range msgs[:len(msgs)-1] {
		assert.Nil(t, m.QuickReplies, "message %d still exposes quick replies", i)
	}
	assert.Equal(t, []string{"b"}, msgs[len(msgs)-1].QuickReplies)
}

func TestSendFailureAppendsApology(t *testing.T) {
	ch := &fakeChatter{err: errors.New("boom")}
	c := newCoach(ch, "Keyword Match")

	out, err := c.Send(context.Background(), "hi")
	require.Error(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, "Sorry, I encountered an error. Please try again.", out[1].Content)
	assert.Equal(t, StateConversing, c.State())

	ch.err = nil
	ch.replies = []string{"ok"}
	_, err = c.Send(context.Background(), "again")
	require.NoError(t, err)
	assert.Len(t, ch.calls[1], 2, "failed turn must not be replayed")
}

func TestSendUnparseableReply(t *testing.T) {
	ch := &fakeChatter{replies: []string{"```json\n{oops\n```"}}
	c := newCoach(ch, "Keyword Match")

	out, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Sorry, I couldn't process that. Could you try rephrasing?", out[1].Content)
}

func TestSendRejectsEmptyAndConcurrent(t *testing.T) {
	ch := &fakeChatter{replies: []string{"done"}, gate: make(chan struct{})}
	c := newCoach(ch, "Keyword Match")

	_, err := c.Send(context.Background(), "   ")
	assert.True(t, errors.Is(err, ErrEmptyMessage))

	done := make(chan error, 1)
	go func() {
		_, err := c.Send(context.Background(), "first")
		done <- err
	}()
	require.Eventually(t, func() bool { return c.State() == StateThinking }, time.Second, time.Millisecond)

	_, err = c.Send(context.Background(), "second")
	assert.True(t, errors.Is(err, ErrBusy))

	close(ch.gate)
	require.NoError(t, <-done)
	assert.Len(t, c.Messages(), 3)
}

func suggestionCoach(t *testing.T, areas ...string) (*Coach, int) {
	t.Helper()
	ch := &fakeChatter{replies: []string{"Try this: ```json\n{\"suggestion\":{\"original\":\"Wrote code.\",\"replacement\":\"Built 3 Go services.\"}}\n```"}}
	c := newCoach(ch, areas...)
	out, err := c.Send(context.Background(), "help")
	require.NoError(t, err)
	require.NotNil(t, out[1].Suggestion)
	return c, len(c.Messages()) - 1
}

func TestApply(t *testing.T) {
	c, idx := suggestionCoach(t, "Keyword Match", "Quantification")

	res, err := c.Apply("Wrote code. Led team. Wrote code.", idx, 1)
	require.NoError(t, err)
	assert.Equal(t, "Built 3 Go services. Led team. Wrote code.", res.CV)
	assert.Equal(t, "Quantification", res.Improvement.TaskName)
	assert.Equal(t, "Applied suggestion to improve Quantification.", res.Improvement.Description)
	assert.Equal(t, "Wrote code.", res.Improvement.OriginalText)
	assert.Equal(t, fixedNow, res.Improvement.Timestamp)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Great, that change has been applied! Your CV is updated. We can continue discussing this point, or you can tell me what's next.", res.Messages[0].Content)
	assert.Equal(t, []string{"Let's move on", "Can we refine it more?"}, res.Messages[0].QuickReplies)

	msgs := c.Messages()
	assert.Equal(t, StatusApplied, msgs[idx].SuggestionStatus)

	_, err = c.Apply("Wrote code.", idx, 0)
	assert.True(t, errors.Is(err, ErrSuggestionResolved))
	_, err = c.Reject(idx)
	assert.True(t, errors.Is(err, ErrSuggestionResolved))
}

func TestApplyPastAreasIsGeneral(t *testing.T) {
	c, idx := suggestionCoach(t, "Keyword Match")
	res, err := c.Apply("Wrote code.", idx, 1)
	require.NoError(t, err)
	assert.Equal(t, GeneralImprovement, res.Improvement.TaskName)
}

func TestApplyOriginalMissing(t *testing.T) {
	c, idx := suggestionCoach(t, "Keyword Match")
	before := c.Messages()

	_, err := c.Apply("Completely different CV", idx, 0)
	assert.True(t, errors.Is(err, ErrOriginalNotFound))
	assert.Equal(t, before, c.Messages())
}

func TestReject(t *testing.T) {
	c, idx := suggestionCoach(t, "Keyword Match")

	out, err := c.Reject(idx)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "Okay, I've discarded that suggestion. Do you want to try another approach for this point, or should we move on?", out[0].Content)
	assert.Equal(t, []string{"Try another way", "Let's move on"}, out[0].QuickReplies)
	assert.Equal(t, StatusRejected, c.Messages()[idx].SuggestionStatus)

	_, err = c.Reject(0)
	assert.True(t, errors.Is(err, ErrNoSuggestion))
	_, err = c.Reject(99)
	assert.True(t, errors.Is(err, ErrNoSuggestion))
}

func TestApplyAndRejectWaitForPendingReply(t *testing.T) {
	ch := &fakeChatter{replies: []string{
		"Try this: ```json\n{\"suggestion\":{\"original\":\"Wrote code.\",\"replacement\":\"Built 3 Go services.\"}}\n```",
		"Next topic.",
	}}
	c := newCoach(ch, "Keyword Match")
	_, err := c.Send(context.Background(), "help")
	require.NoError(t, err)
	idx := len(c.Messages()) - 1

	ch.gate = make(chan struct{})
	type result struct {
		msgs []Message
		err  error
	}
	done := make(chan result, 1)
	go func() {
		msgs, err := c.Send(context.Background(), "what next?")
		done <- result{msgs, err}
	}()
	require.Eventually(t, func() bool { return c.State() == StateThinking }, time.Second, time.Millisecond)

	_, err = c.Apply("Wrote code. Led team.", idx, 0)
	assert.ErrorIs(t, err, ErrBusy)
	_, err = c.Reject(idx)
	assert.ErrorIs(t, err, ErrBusy)

	close(ch.gate)
	res := <-done
	require.NoError(t, res.err)
	require.Len(t, res.msgs, 2)
	assert.Equal(t, "what next?", res.msgs[0].Content)
	assert.Equal(t, "Next topic.", res.msgs[1].Content)

	// the suggestion is still pending once the reply has landed
	applied, err := c.Apply("Wrote code. Led team.", idx, 0)
	require.NoError(t, err)
	assert.Equal(t, "Built 3 Go services. Led team.", applied.CV)
}

func TestSeedTurnListsAreas(t *testing.T) {
	ch := &fakeChatter{replies: []string{"ok", "ok"}}
	c := newCoach(ch, "Keyword Match", "Quantification")
	_, err := c.Send(context.Background(), "hi")
	require.NoError(t, err)
	assert.Contains(t, ch.calls[0][0].Content, "one by one:\n- Keyword Match\n- Quantification")

	ch = &fakeChatter{replies: []string{"ok"}}
	c = newCoach(ch)
	_, err = c.Send(context.Background(), "hi")
	require.NoError(t, err)
	seed := ch.calls[0][0].Content
	assert.Contains(t, seed, "one by one:\nNone.")
	assert.NotContains(t, seed, "\n- ")
}

package llm

import (
	"context"
	"sync"
)

// fakeProvider records requests and replies from queued responses.
type fakeProvider struct {
	mu        sync.Mutex
	completes []CompletionRequest
	chats     []ChatRequest
	replies   []fakeReply
	block     bool
}

type fakeReply struct {
	text string
	err  error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) next(ctx context.Context) (string, error) {
	if f.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return "", nil
	}
	r := f.replies[0]
	f.replies = f.replies[1:]
	return r.text, r.err
}

func (f *fakeProvider) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	f.mu.Lock()
	f.completes = append(f.completes, req)
	f.mu.Unlock()
	return f.next(ctx)
}

func (f *fakeProvider) Chat(ctx context.Context, req ChatRequest) (string, error) {
	f.mu.Lock()
	f.chats = append(f.chats, req)
	f.mu.Unlock()
	return f.next(ctx)
}

// stubbornProvider ignores its context entirely.
type stubbornProvider struct {
	release chan struct{}
}

func (s *stubbornProvider) Name() string { return "stubborn" }

func (s *stubbornProvider) Complete(context.Context, CompletionRequest) (string, error) {
	<-s.release
	return "{}", nil
}

func (s *stubbornProvider) Chat(context.Context, ChatRequest) (string, error) {
	<-s.release
	return "late", nil
}

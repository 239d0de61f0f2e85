// Package llm is the gateway between the application and a hosted language
// model. It owns prompt construction, timeouts, error classification and
// response validation; providers only move text.
package llm

import (
	"context"
	"encoding/json"
)

type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    Role
	Content string
}

// Schema is a JSON schema the provider is asked to honour.
type Schema struct {
	Name string
	Raw  json.RawMessage
}

// CompletionRequest is a single-shot structured generation.
type CompletionRequest struct {
	Op          string
	System      string
	User        string
	Temperature float32
	Schema      *Schema
}

// ChatRequest continues a conversation. Messages ends with the newest user turn.
type ChatRequest struct {
	System      string
	Messages    []Message
	Temperature float32
}

// Provider is a hosted model backend. Implementations must honour ctx.
type Provider interface {
	Name() string
	Complete(ctx context.Context, req CompletionRequest) (string, error)
	Chat(ctx context.Context, req ChatRequest) (string, error)
}

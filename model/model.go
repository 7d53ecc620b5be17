// Package model defines the language-model client contract the
// conversation engine depends on, plus the Anthropic implementation.
// The engine treats the client as opaque: it sends one bounded request
// and gets back text plus token usage, or a typed error.
package model

import "context"

// ChatMessage is one conversational turn in a request.
type ChatMessage struct {
	Role    string
	Content string
}

// Chat roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Request is a single model invocation.
type Request struct {
	Model       string
	MaxTokens   int
	Temperature *float64
	System      string
	Messages    []ChatMessage
}

// Response is the model's reply. Token counts are zero when the provider
// did not report usage.
type Response struct {
	Content      string
	InputTokens  int
	OutputTokens int
}

// Client sends one request to a language model. Implementations handle
// their own retry and backoff; callers treat a returned error as final
// for that attempt.
type Client interface {
	Send(ctx context.Context, req Request) (*Response, error)
}

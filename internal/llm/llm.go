package llm

import (
	"context"
	"errors"
)

// Client sends one prompt to a language model and returns the raw text reply.
type Client interface {
	Complete(ctx context.Context, prompt Prompt, params Params) (string, error)
}

// Prompt is a system/user message pair.
type Prompt struct {
	System string
	User   string
}

// Params are per-call model parameters.
type Params struct {
	Temperature float64
	MaxTokens   int
	// JSON asks the provider for a JSON object response when supported.
	JSON bool
}

// ErrNotConfigured is returned by the placeholder client.
var ErrNotConfigured = errors.New("llm client not configured: set OPENAI_API_KEY")

// PlaceholderClient stands in when no provider credentials are configured.
type PlaceholderClient struct{}

// Complete returns ErrNotConfigured.
func (PlaceholderClient) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	return "", ErrNotConfigured
}

// ClientFunc adapts a function to Client.
type ClientFunc func(ctx context.Context, prompt Prompt, params Params) (string, error)

// Complete calls f.
func (f ClientFunc) Complete(ctx context.Context, prompt Prompt, params Params) (string, error) {
	return f(ctx, prompt, params)
}

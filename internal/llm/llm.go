// Package llm abstracts single-turn text completion across providers.
// The sentiment scorer is the only consumer; requests are one prompt in,
// one completion out, with optional JSON-constrained output.
package llm

import "context"

// Provider defines the interface for LLM providers
type Provider interface {
	Name() string
	Complete(ctx context.Context, req Request) (*Result, error)
}

// Request holds a single-turn completion request.
type Request struct {
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
	JSONMode    bool
}

// Result holds the completion and token accounting.
type Result struct {
	Text         string
	InputTokens  int
	OutputTokens int
	FinishReason string
}

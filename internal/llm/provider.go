// Package llm abstracts chat completion providers behind a common
// interface, with both buffered and streaming delivery.
package llm

import "context"

// Provider defines the interface for LLM providers.
type Provider interface {
	// Complete sends a completion request and returns the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	// CompleteStream sends a completion request and invokes onToken for
	// each generated text fragment as it arrives. A non-nil error from
	// onToken aborts the stream and is returned.
	CompleteStream(ctx context.Context, req CompletionRequest, onToken func(token string) error) (*CompletionResponse, error)
	// Name returns the name of this provider.
	Name() string
}

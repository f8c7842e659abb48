package llm

import (
	"context"
)

// Message is a single chat turn sent to the generative model.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options tunes a single completion call. Zero values fall back to the
// provider's configured defaults.
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Provider is the generative and embedding model interface used by the
// pipeline. Implementations must be safe for concurrent use.
type Provider interface {
	// Complete sends a chat transcript and returns the assistant reply.
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)

	// Embed converts texts into fixed-dimension vectors, one per input,
	// in input order.
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Usage reports token consumption for one model call.
type Usage struct {
	PromptTokens     int64
	CompletionTokens int64
}

// UsageReporter is implemented by providers that surface token usage.
type UsageReporter interface {
	CompleteWithUsage(ctx context.Context, messages []Message, opts Options) (string, Usage, error)
}

// UsageRecorder receives the token usage and estimated spend of every
// model call a provider makes. A nil recorder disables the reporting.
type UsageRecorder interface {
	RecordLLMUsage(model string, promptTokens, completionTokens int64, cost float64)
}

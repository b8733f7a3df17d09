package llm

import (
	"context"
)

type ProviderName string

const (
	OpenAI    ProviderName = "openai"
	Anthropic ProviderName = "anthropic"
	Google    ProviderName = "google"
	Ollama    ProviderName = "ollama"
)

// InvokeRequest is the provider-neutral prompt payload. Adapters translate it
// into each upstream's native request shape.
type InvokeRequest struct {
	Model       string
	System      string
	Prompt      string
	MaxTokens   int
	Temperature float64
}

// InvokeResult is the normalized response contract: the produced text plus
// the provider-reported token consumption. Token units are provider-native;
// each adapter documents its own accounting.
type InvokeResult struct {
	Text       string
	TokensUsed int
}

// Provider is the single capability every adapter implements. Adapters are
// pure invocation shims: no retries, no quota awareness.
type Provider interface {
	Name() string
	Type() string // adapter variant, e.g. "openai", "anthropic"
	Invoke(ctx context.Context, req *InvokeRequest) (*InvokeResult, error)
}

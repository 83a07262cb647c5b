package worker

import (
	"context"

	"github.com/ppiankov/zettelgen/internal/llm"
)

// RateLimitedProvider delays each Send until the limiter admits the backend
type RateLimitedProvider struct {
	llm.Provider
	limiter *Limiter
}

// NewRateLimitedProvider wraps provider; a nil limiter disables throttling
func NewRateLimitedProvider(provider llm.Provider, limiter *Limiter) llm.Provider {
	if limiter == nil {
		return provider
	}
	return &RateLimitedProvider{Provider: provider, limiter: limiter}
}

// Send waits for the limiter, then forwards to the wrapped provider.
// A wait that ends early counts as a transport failure of the attempt.
func (p *RateLimitedProvider) Send(ctx context.Context, prompt string) (string, error) {
	if err := p.limiter.Wait(ctx, p.Name()); err != nil {
		return "", &llm.BackendError{Provider: p.Name(), Kind: llm.BackendTransport, Reason: "rate limiter", Err: err}
	}
	return p.Provider.Send(ctx, prompt)
}

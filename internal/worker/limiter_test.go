package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/time/rate"

	"github.com/ppiankov/zettelgen/internal/llm"
	"github.com/ppiankov/zettelgen/internal/model"
)

func TestLimiter_New(t *testing.T) {
	limiter := NewLimiter(10, 5)
	if limiter.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", limiter.defaultBurst)
	}

	l2 := NewLimiter(10, -1)
	if l2.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l2.defaultBurst)
	}
}

func TestLimiter_Wait(t *testing.T) {
	limiter := NewLimiter(100, 1) // 100 rps, burst 1
	ctx := context.Background()

	if err := limiter.Wait(ctx, "openai"); err != nil {
		t.Errorf("wait failed: %v", err)
	}

	// Different backend has its own bucket
	if err := limiter.Wait(ctx, "google"); err != nil {
		t.Errorf("wait failed: %v", err)
	}
}

func TestLimiter_RateLimit(t *testing.T) {
	// 1 rps, burst 1
	limiter := NewLimiter(1, 1)

	if err := limiter.Wait(context.Background(), "anthropic"); err != nil {
		t.Errorf("first wait failed: %v", err)
	}

	// Burst 1 is spent
	if limiter.getLimiter("anthropic").Allow() {
		t.Errorf("expected allow to fail (exhausted tokens)")
	}

	if !limiter.getLimiter("openai").Allow() {
		t.Errorf("expected allow for other backend")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.getLimiter("openai").Allow() {
			t.Fatalf("request %d should pass with no rate configured", i)
		}
	}
}

func TestLimiter_SetRate(t *testing.T) {
	limiter := NewLimiter(10, 10) // fast default

	limiter.SetRate("google", 0.1, 1) // very slow

	if !limiter.getLimiter("google").Allow() {
		t.Errorf("first request should pass")
	}
	if limiter.getLimiter("google").Allow() {
		t.Errorf("second request should fail")
	}
	if !limiter.getLimiter("openai").Allow() {
		t.Errorf("other backend should pass")
	}
}

func TestLimiter_SetRateUnlimited(t *testing.T) {
	limiter := NewLimiter(0.1, 1)
	limiter.SetRate("openai", 0, 0)

	for i := 0; i < 50; i++ {
		if !limiter.getLimiter("openai").Allow() {
			t.Fatalf("request %d should pass with a zero override", i)
		}
	}
	if got := limiter.getLimiter("openai").Burst(); got != 1 {
		t.Errorf("expected default burst 1, got %d", got)
	}
}

func TestLimiterFromConfig_Overrides(t *testing.T) {
	limiter, err := LimiterFromConfig(model.RateLimitingConfig{
		RequestsPerSecond: 1,
		BurstSize:         2,
		Overrides: map[string]model.RateOverride{
			"gemini": {RequestsPerSecond: 0.5, BurstSize: 1},
			"openai": {RequestsPerSecond: 20, BurstSize: 10},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Aliases resolve to the backend name the provider reports
	google := limiter.getLimiter("google")
	if google.Limit() != rate.Limit(0.5) || google.Burst() != 1 {
		t.Errorf("google: expected 0.5/1, got %v/%d", google.Limit(), google.Burst())
	}
	openai := limiter.getLimiter("openai")
	if openai.Limit() != rate.Limit(20) || openai.Burst() != 10 {
		t.Errorf("openai: expected 20/10, got %v/%d", openai.Limit(), openai.Burst())
	}
	anthropic := limiter.getLimiter("anthropic")
	if anthropic.Limit() != rate.Limit(1) || anthropic.Burst() != 2 {
		t.Errorf("anthropic: expected defaults 1/2, got %v/%d", anthropic.Limit(), anthropic.Burst())
	}
}

func TestLimiterFromConfig_UnknownBackend(t *testing.T) {
	_, err := LimiterFromConfig(model.RateLimitingConfig{
		Overrides: map[string]model.RateOverride{"mistral": {RequestsPerSecond: 1}},
	})
	var ce *llm.ConfigurationError
	if !errors.As(err, &ce) {
		t.Fatalf("expected *llm.ConfigurationError, got %v", err)
	}
}

type echoProvider struct {
	calls int
}

func (p *echoProvider) Name() string  { return "openai" }
func (p *echoProvider) Model() string { return "gpt-4o-mini" }
func (p *echoProvider) Send(_ context.Context, prompt string) (string, error) {
	p.calls++
	return prompt, nil
}

func TestRateLimitedProvider(t *testing.T) {
	inner := &echoProvider{}
	limiter := NewLimiter(0.001, 1)
	provider := NewRateLimitedProvider(inner, limiter)

	if provider.Name() != "openai" || provider.Model() != "gpt-4o-mini" {
		t.Fatalf("wrapper should expose the inner identity, got %s/%s", provider.Name(), provider.Model())
	}

	out, err := provider.Send(context.Background(), "hi")
	if err != nil || out != "hi" {
		t.Fatalf("first send: got %q, %v", out, err)
	}

	// The bucket is empty, so the next send waits past the deadline
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err = provider.Send(ctx, "again")
	var be *llm.BackendError
	if !errors.As(err, &be) {
		t.Fatalf("expected *llm.BackendError, got %v", err)
	}
	if be.Kind != llm.BackendTransport {
		t.Errorf("expected transport kind, got %s", be.Kind)
	}
	if inner.calls != 1 {
		t.Errorf("expected 1 inner call, got %d", inner.calls)
	}
}

func TestNewRateLimitedProvider_NilLimiter(t *testing.T) {
	inner := &echoProvider{}
	if NewRateLimitedProvider(inner, nil) != llm.Provider(inner) {
		t.Error("nil limiter should return the provider unchanged")
	}
}

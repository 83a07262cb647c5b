package worker

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/time/rate"

	"github.com/ppiankov/zettelgen/internal/llm"
	"github.com/ppiankov/zettelgen/internal/model"
)

// Limiter throttles requests per key; the key is the backend name
type Limiter struct {
	limiters     map[string]*rate.Limiter
	mu           sync.RWMutex
	defaultRate  rate.Limit
	defaultBurst int
}

// NewLimiter creates a new rate limiter. A non-positive rate means unlimited.
func NewLimiter(requestsPerSecond float64, burst int) *Limiter {
	if burst <= 0 {
		burst = 5
	}

	return &Limiter{
		limiters:     make(map[string]*rate.Limiter),
		defaultRate:  limitFor(requestsPerSecond),
		defaultBurst: burst,
	}
}

// LimiterFromConfig builds the limiter for cfg and applies its per-backend
// overrides. Override keys are resolved to canonical backend names.
func LimiterFromConfig(cfg model.RateLimitingConfig) (*Limiter, error) {
	limiter := NewLimiter(cfg.RequestsPerSecond, cfg.BurstSize)

	for name, override := range cfg.Overrides {
		kind, err := llm.ParseKind(name)
		if err != nil {
			return nil, fmt.Errorf("rate_limiting.overrides: %w", err)
		}
		limiter.SetRate(string(kind), override.RequestsPerSecond, override.BurstSize)
	}

	return limiter, nil
}

func limitFor(requestsPerSecond float64) rate.Limit {
	if requestsPerSecond <= 0 {
		return rate.Inf
	}
	return rate.Limit(requestsPerSecond)
}

// Wait blocks until a request for key is allowed or ctx is done
func (l *Limiter) Wait(ctx context.Context, key string) error {
	return l.getLimiter(key).Wait(ctx)
}

func (l *Limiter) getLimiter(key string) *rate.Limiter {
	l.mu.RLock()
	limiter, exists := l.limiters[key]
	l.mu.RUnlock()

	if exists {
		return limiter
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// Double-check after acquiring write lock
	if limiter, exists := l.limiters[key]; exists {
		return limiter
	}

	limiter = rate.NewLimiter(l.defaultRate, l.defaultBurst)
	l.limiters[key] = limiter

	return limiter
}

// SetRate sets a custom rate limit for one key. A non-positive rate means
// unlimited and a non-positive burst keeps the default burst.
func (l *Limiter) SetRate(key string, requestsPerSecond float64, burst int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if burst <= 0 {
		burst = l.defaultBurst
	}

	l.limiters[key] = rate.NewLimiter(limitFor(requestsPerSecond), burst)
}

package llm

import (
	"context"
	"net/http"
	"time"

	"github.com/ppiankov/zettelgen/internal/util"
)

// Sampling parameters shared by every backend. They are not configurable per call.
const (
	Temperature     = 0.7
	MaxOutputTokens = 4000
)

const defaultTimeout = 120 * time.Second

// Provider sends a prompt to a generation backend and returns its raw text.
// Every failure is a *BackendError.
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the model identifier used for requests
	Model() string

	// Send returns the backend's raw completion for prompt
	Send(ctx context.Context, prompt string) (string, error)
}

// Config holds LLM provider configuration
type Config struct {
	// Provider name: "openai", "anthropic", "google"
	Provider string

	// Model overrides the backend default
	Model string

	// APIKey is the backend credential
	APIKey string

	// BaseURL for custom endpoints
	BaseURL string

	// Timeout for API requests
	Timeout int // seconds

	// Proxy settings
	HTTPProxy  string
	HTTPSProxy string
	NoProxy    string
}

func (c Config) timeout() time.Duration {
	if c.Timeout <= 0 {
		return defaultTimeout
	}
	return time.Duration(c.Timeout) * time.Second
}

func (c Config) modelOr(fallback string) string {
	if c.Model == "" {
		return fallback
	}
	return c.Model
}

// httpClient builds the transport shared by all backends
func (c Config) httpClient() *http.Client {
	return &http.Client{
		Timeout: c.timeout(),
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(c.HTTPProxy, c.HTTPSProxy, c.NoProxy),
		},
	}
}

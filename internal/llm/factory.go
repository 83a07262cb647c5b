package llm

import (
	"fmt"
	"strings"

	"github.com/ppiankov/zettelgen/internal/model"
)

// Kind identifies one of the supported backends
type Kind string

const (
	KindOpenAI    Kind = "openai"
	KindAnthropic Kind = "anthropic"
	KindGoogle    Kind = "google"
)

// Kinds lists the supported backends in display order
var Kinds = []Kind{KindOpenAI, KindAnthropic, KindGoogle}

// ParseKind resolves a provider name, accepting common aliases
func ParseKind(name string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "openai":
		return KindOpenAI, nil
	case "anthropic", "claude":
		return KindAnthropic, nil
	case "google", "gemini":
		return KindGoogle, nil
	default:
		return "", &ConfigurationError{
			Provider: name,
			Reason:   "unsupported provider (supported: openai, anthropic, google)",
		}
	}
}

// CredentialEnv returns the environment variable holding the credential for kind
func CredentialEnv(kind Kind) string {
	switch kind {
	case KindOpenAI:
		return "OPENAI_API_KEY"
	case KindAnthropic:
		return "ANTHROPIC_API_KEY"
	case KindGoogle:
		return "GOOGLE_API_KEY"
	}
	return ""
}

// DefaultModel returns the model used when none is configured
func DefaultModel(kind Kind) string {
	switch kind {
	case KindOpenAI:
		return defaultOpenAIModel
	case KindAnthropic:
		return defaultAnthropicModel
	case KindGoogle:
		return defaultGoogleModel
	}
	return ""
}

// NewProvider creates a new LLM provider based on configuration
func NewProvider(config Config) (Provider, error) {
	kind, err := ParseKind(config.Provider)
	if err != nil {
		return nil, err
	}

	if config.APIKey == "" {
		return nil, &ConfigurationError{
			Provider: string(kind),
			Reason:   fmt.Sprintf("%s not found in environment", CredentialEnv(kind)),
		}
	}

	switch kind {
	case KindOpenAI:
		return NewOpenAIProvider(config)
	case KindAnthropic:
		return NewAnthropicProvider(config)
	default:
		return NewGoogleProvider(config)
	}
}

// ConfigFromModel converts model.LLMConfig to llm.Config
func ConfigFromModel(modelConfig model.LLMConfig) Config {
	return Config{
		Provider:   modelConfig.Provider,
		Model:      modelConfig.Model,
		APIKey:     modelConfig.APIKey,
		BaseURL:    modelConfig.BaseURL,
		Timeout:    modelConfig.Timeout,
		HTTPProxy:  modelConfig.HTTPProxy,
		HTTPSProxy: modelConfig.HTTPSProxy,
		NoProxy:    modelConfig.NoProxy,
	}
}

// ConfigFromEnv fills in the credential for the configured provider using lookup
// (typically os.Getenv). An unknown provider is left for NewProvider to reject.
func ConfigFromEnv(config Config, lookup func(string) string) Config {
	kind, err := ParseKind(config.Provider)
	if err != nil || config.APIKey != "" {
		return config
	}
	config.APIKey = lookup(CredentialEnv(kind))
	return config
}

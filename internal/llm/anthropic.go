package llm

import (
	"context"
	"errors"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
)

const defaultAnthropicModel = "claude-3-5-haiku-20241022"

// AnthropicProvider implements the Provider interface for Anthropic Claude models
type AnthropicProvider struct {
	client anthropic.Client
	model  string
	config Config
}

// NewAnthropicProvider creates a new Anthropic provider
func NewAnthropicProvider(config Config) (*AnthropicProvider, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationError{Provider: string(KindAnthropic), Reason: "ANTHROPIC_API_KEY not found in environment"}
	}

	opts := []option.RequestOption{
		option.WithAPIKey(config.APIKey),
		option.WithHTTPClient(config.httpClient()),
		// Retries belong to the extraction loop, not the SDK.
		option.WithMaxRetries(0),
	}
	if config.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(config.BaseURL))
	}

	return &AnthropicProvider{
		client: anthropic.NewClient(opts...),
		model:  config.modelOr(defaultAnthropicModel),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *AnthropicProvider) Name() string {
	return string(KindAnthropic)
}

// Model returns the model identifier
func (p *AnthropicProvider) Model() string {
	return p.model
}

// Send generates a completion using Anthropic's Messages API
func (p *AnthropicProvider) Send(ctx context.Context, prompt string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	msg, err := p.client.Messages.New(ctxWithTimeout, anthropic.MessageNewParams{
		Model:       anthropic.Model(p.model),
		MaxTokens:   int64(MaxOutputTokens),
		Temperature: anthropic.Float(Temperature),
		Messages: []anthropic.MessageParam{
			anthropic.NewUserMessage(anthropic.NewTextBlock(prompt)),
		},
	})
	if err != nil {
		var apiErr *anthropic.Error
		if errors.As(err, &apiErr) {
			return "", &BackendError{
				Provider:   p.Name(),
				Kind:       kindForStatus(apiErr.StatusCode),
				StatusCode: apiErr.StatusCode,
				Err:        err,
			}
		}
		return "", newBackendError(p.Name(), BackendTransport, err)
	}

	if string(msg.StopReason) == "refusal" {
		return "", &BackendError{Provider: p.Name(), Kind: BackendContentSafety, Reason: "stop_reason=refusal"}
	}

	var b strings.Builder
	for _, block := range msg.Content {
		if block.Type == "text" {
			b.WriteString(block.Text)
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", &BackendError{Provider: p.Name(), Kind: BackendEmptyResponse, Reason: "stop_reason=" + string(msg.StopReason)}
	}

	return text, nil
}

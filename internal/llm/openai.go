package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/sashabaranov/go-openai"
)

const defaultOpenAIModel = openai.GPT4oMini

// OpenAIProvider implements the Provider interface for OpenAI models
type OpenAIProvider struct {
	client *openai.Client
	model  string
	config Config
}

// NewOpenAIProvider creates a new OpenAI provider
func NewOpenAIProvider(config Config) (*OpenAIProvider, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationError{Provider: string(KindOpenAI), Reason: "OPENAI_API_KEY not found in environment"}
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	if config.BaseURL != "" {
		clientConfig.BaseURL = config.BaseURL
	}
	clientConfig.HTTPClient = config.httpClient()

	return &OpenAIProvider{
		client: openai.NewClientWithConfig(clientConfig),
		model:  config.modelOr(defaultOpenAIModel),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *OpenAIProvider) Name() string {
	return string(KindOpenAI)
}

// Model returns the model identifier
func (p *OpenAIProvider) Model() string {
	return p.model
}

// Send generates a completion using OpenAI's Chat Completions API
func (p *OpenAIProvider) Send(ctx context.Context, prompt string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	resp, err := p.client.CreateChatCompletion(ctxWithTimeout, openai.ChatCompletionRequest{
		Model: p.model,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleUser,
				Content: prompt,
			},
		},
		MaxTokens:   MaxOutputTokens,
		Temperature: Temperature,
	})
	if err != nil {
		return "", p.classify(err)
	}

	if len(resp.Choices) == 0 {
		return "", &BackendError{Provider: p.Name(), Kind: BackendEmptyResponse, Reason: "no choices in response"}
	}

	choice := resp.Choices[0]
	if choice.FinishReason == openai.FinishReasonContentFilter {
		return "", &BackendError{Provider: p.Name(), Kind: BackendContentSafety, Reason: "finish_reason=content_filter"}
	}
	if choice.Message.Refusal != "" {
		return "", &BackendError{Provider: p.Name(), Kind: BackendContentSafety, Reason: "refusal: " + choice.Message.Refusal}
	}

	content := choice.Message.Content
	if strings.TrimSpace(content) == "" {
		return "", &BackendError{Provider: p.Name(), Kind: BackendEmptyResponse, Reason: fmt.Sprintf("finish_reason=%s", choice.FinishReason)}
	}

	return content, nil
}

// classify converts a go-openai error into a *BackendError
func (p *OpenAIProvider) classify(err error) error {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		be := &BackendError{
			Provider:   p.Name(),
			Kind:       kindForStatus(apiErr.HTTPStatusCode),
			StatusCode: apiErr.HTTPStatusCode,
			Err:        err,
		}
		if code := fmt.Sprint(apiErr.Code); code == "content_filter" || code == "content_policy_violation" {
			be.Kind = BackendContentSafety
			be.Reason = code
		}
		return be
	}

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return &BackendError{
			Provider:   p.Name(),
			Kind:       kindForStatus(reqErr.HTTPStatusCode),
			StatusCode: reqErr.HTTPStatusCode,
			Err:        err,
		}
	}

	return newBackendError(p.Name(), BackendTransport, err)
}

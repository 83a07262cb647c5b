package llm

import (
	"context"
	"errors"
	"strings"

	"google.golang.org/genai"
)

const defaultGoogleModel = "gemini-1.5-flash"

// Finish reasons that mean the candidate was withheld by a safety filter
var googleSafetyFinishReasons = map[string]bool{
	"SAFETY":             true,
	"BLOCKLIST":          true,
	"PROHIBITED_CONTENT": true,
	"SPII":               true,
}

// GoogleProvider implements the Provider interface for Google Gemini models
type GoogleProvider struct {
	client *genai.Client
	model  string
	config Config
}

// NewGoogleProvider creates a new Google Gemini provider
func NewGoogleProvider(config Config) (*GoogleProvider, error) {
	if config.APIKey == "" {
		return nil, &ConfigurationError{Provider: string(KindGoogle), Reason: "GOOGLE_API_KEY not found in environment"}
	}

	client, err := genai.NewClient(context.Background(), &genai.ClientConfig{
		APIKey:      config.APIKey,
		Backend:     genai.BackendGeminiAPI,
		HTTPClient:  config.httpClient(),
		HTTPOptions: genai.HTTPOptions{BaseURL: config.BaseURL},
	})
	if err != nil {
		return nil, &ConfigurationError{Provider: string(KindGoogle), Reason: "create genai client: " + err.Error()}
	}

	return &GoogleProvider{
		client: client,
		model:  config.modelOr(defaultGoogleModel),
		config: config,
	}, nil
}

// Name returns the provider name
func (p *GoogleProvider) Name() string {
	return string(KindGoogle)
}

// Model returns the model identifier
func (p *GoogleProvider) Model() string {
	return p.model
}

// Send generates a completion using the Gemini API.
// A response without text (typically a silent safety block) is an error.
func (p *GoogleProvider) Send(ctx context.Context, prompt string) (string, error) {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, p.config.timeout())
	defer cancel()

	resp, err := p.client.Models.GenerateContent(ctxWithTimeout, p.model, genai.Text(prompt), &genai.GenerateContentConfig{
		Temperature:     genai.Ptr[float32](Temperature),
		MaxOutputTokens: MaxOutputTokens,
	})
	if err != nil {
		if code, ok := googleStatusCode(err); ok {
			return "", &BackendError{
				Provider:   p.Name(),
				Kind:       kindForStatus(code),
				StatusCode: code,
				Err:        err,
			}
		}
		return "", newBackendError(p.Name(), BackendTransport, err)
	}

	if resp.PromptFeedback != nil && resp.PromptFeedback.BlockReason != "" {
		return "", &BackendError{
			Provider: p.Name(),
			Kind:     BackendContentSafety,
			Reason:   "prompt blocked: " + string(resp.PromptFeedback.BlockReason),
		}
	}

	if len(resp.Candidates) == 0 {
		return "", &BackendError{Provider: p.Name(), Kind: BackendEmptyResponse, Reason: "no candidates in response"}
	}

	candidate := resp.Candidates[0]
	if googleSafetyFinishReasons[string(candidate.FinishReason)] {
		return "", &BackendError{
			Provider: p.Name(),
			Kind:     BackendContentSafety,
			Reason:   "finish_reason=" + string(candidate.FinishReason),
		}
	}

	var b strings.Builder
	if candidate.Content != nil {
		for _, part := range candidate.Content.Parts {
			if part != nil && !part.Thought {
				b.WriteString(part.Text)
			}
		}
	}

	text := b.String()
	if strings.TrimSpace(text) == "" {
		return "", &BackendError{
			Provider: p.Name(),
			Kind:     BackendEmptyResponse,
			Reason:   "finish_reason=" + string(candidate.FinishReason),
		}
	}

	return text, nil
}

// googleStatusCode finds the HTTP status of a genai.APIError anywhere in the chain.
// Both the value and pointer forms are matched.
func googleStatusCode(err error) (int, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch v := any(e).(type) {
		case *genai.APIError:
			return v.Code, true
		case genai.APIError:
			return v.Code, true
		}
	}
	return 0, false
}

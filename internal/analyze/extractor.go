package analyze

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/zettelgen/internal/llm"
	"github.com/ppiankov/zettelgen/internal/metrics"
	"github.com/ppiankov/zettelgen/internal/model"
	"github.com/ppiankov/zettelgen/internal/validate"
)

const (
	DefaultMaxRetries  = 3
	DefaultBackoffUnit = time.Second
)

// Extractor turns raw text into a validated note batch.
// One Extractor runs one extraction at a time; use separate instances for
// concurrent chapters.
type Extractor struct {
	provider    llm.Provider
	maxRetries  int
	backoffUnit time.Duration
	sleep       func(time.Duration)
	logger      *zap.Logger
	metrics     *metrics.Recorder
	source      string
}

// Option configures an Extractor
type Option func(*Extractor)

// WithMaxRetries sets the attempt budget. Values below 1 are ignored.
func WithMaxRetries(n int) Option {
	return func(e *Extractor) {
		if n >= 1 {
			e.maxRetries = n
		}
	}
}

// WithBackoffUnit sets the delay after the first failed attempt
func WithBackoffUnit(d time.Duration) Option {
	return func(e *Extractor) {
		if d >= 0 {
			e.backoffUnit = d
		}
	}
}

// WithSleep replaces time.Sleep for backoff delays
func WithSleep(sleep func(time.Duration)) Option {
	return func(e *Extractor) {
		if sleep != nil {
			e.sleep = sleep
		}
	}
}

func WithLogger(logger *zap.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(e *Extractor) {
		e.metrics = recorder
	}
}

// WithSource names the document in the prompt's task framing
func WithSource(title string) Option {
	return func(e *Extractor) {
		e.source = title
	}
}

// NewExtractor creates an Extractor around a constructed provider
func NewExtractor(provider llm.Provider, opts ...Option) *Extractor {
	e := &Extractor{
		provider:    provider,
		maxRetries:  DefaultMaxRetries,
		backoffUnit: DefaultBackoffUnit,
		sleep:       time.Sleep,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MaxRetries returns the attempt budget
func (e *Extractor) MaxRetries() int {
	return e.maxRetries
}

// Extract sends text to the backend until a response parses and validates,
// or the attempt budget runs out.
//
// Backend, parse, and schema failures share one budget. After failed attempt
// k the extractor blocks for backoffUnit * 2^(k-1) before trying again. The
// returned error is always *ExhaustedRetriesError. ctx reaches the backend
// call only; the loop itself does not stop early on cancellation.
func (e *Extractor) Extract(ctx context.Context, text string) (model.Batch, error) {
	prompt := BuildPromptFor(e.source, text)
	name := e.provider.Name()

	var lastErr error
	for attempt := 1; attempt <= e.maxRetries; attempt++ {
		batch, err := e.attempt(ctx, prompt)
		if err == nil {
			e.metrics.ObserveAttempt(name, metrics.OutcomeSuccess)
			e.metrics.ObserveExtraction(name, metrics.ResultSuccess)
			e.logger.Info("extraction succeeded",
				zap.String("provider", name),
				zap.Int("attempt", attempt),
				zap.Int("notes", len(batch)),
			)
			return batch, nil
		}

		lastErr = err
		category := CategoryOf(err)
		e.metrics.ObserveAttempt(name, string(category))

		if attempt == e.maxRetries {
			e.logger.Warn("extraction attempt failed",
				zap.String("provider", name),
				zap.Int("attempt", attempt),
				zap.Int("max_retries", e.maxRetries),
				zap.String("category", string(category)),
				zap.Error(err),
			)
			break
		}

		backoff := e.backoffAfter(attempt)
		e.logger.Warn("extraction attempt failed",
			zap.String("provider", name),
			zap.Int("attempt", attempt),
			zap.Int("max_retries", e.maxRetries),
			zap.String("category", string(category)),
			zap.Duration("backoff", backoff),
			zap.Error(err),
		)
		e.sleep(backoff)
	}

	exhausted := &ExhaustedRetriesError{
		Attempts: e.maxRetries,
		Category: CategoryOf(lastErr),
		Last:     lastErr,
	}
	e.metrics.ObserveExtraction(name, metrics.ResultExhausted)
	e.logger.Error("extraction failed",
		zap.String("provider", name),
		zap.Int("attempts", exhausted.Attempts),
		zap.String("category", string(exhausted.Category)),
		zap.Error(lastErr),
	)
	return nil, exhausted
}

// attempt runs one send, normalize, parse, validate cycle
func (e *Extractor) attempt(ctx context.Context, prompt string) (model.Batch, error) {
	raw, err := e.provider.Send(ctx, prompt)
	if err != nil {
		return nil, asBackendError(e.provider.Name(), err)
	}

	normalized := Normalize(raw)

	var parsed any
	if err := json.Unmarshal([]byte(normalized), &parsed); err != nil {
		return nil, &MalformedResponseError{Response: normalized, Err: err}
	}

	if err := validate.Check(parsed); err != nil {
		return nil, &SchemaInvalidError{Err: err}
	}

	return decodeBatch(parsed), nil
}

// decodeBatch converts a validated JSON value into note records.
// Summaries are copied verbatim; non-string tags are formatted with %v.
func decodeBatch(parsed any) model.Batch {
	var items []map[string]any
	switch v := parsed.(type) {
	case []any:
		items = make([]map[string]any, 0, len(v))
		for _, item := range v {
			items = append(items, item.(map[string]any))
		}
	case []map[string]any:
		items = v
	}

	batch := make(model.Batch, 0, len(items))
	for _, item := range items {
		note := model.NoteRecord{
			Title:   item["title"].(string),
			Summary: item["summary"].(string),
			Tags:    decodeTags(item["tags"]),
		}
		if examples, ok := item["examples"].(string); ok && strings.TrimSpace(examples) != "" {
			note.Examples = examples
		}
		batch = append(batch, note)
	}
	return batch
}

func decodeTags(v any) []string {
	switch tags := v.(type) {
	case []string:
		return append([]string{}, tags...)
	case []any:
		out := make([]string, 0, len(tags))
		for _, tag := range tags {
			switch t := tag.(type) {
			case string:
				out = append(out, t)
			case nil:
			default:
				out = append(out, fmt.Sprint(t))
			}
		}
		return out
	}
	return []string{}
}

// backoffAfter returns unit * 2^(attempt-1), saturating at the largest
// representable duration instead of wrapping
func (e *Extractor) backoffAfter(attempt int) time.Duration {
	if e.backoffUnit <= 0 || attempt < 1 {
		return 0
	}
	shift := uint(attempt - 1)
	if shift >= 63 || e.backoffUnit > time.Duration(math.MaxInt64>>shift) {
		return time.Duration(math.MaxInt64)
	}
	return e.backoffUnit << shift
}

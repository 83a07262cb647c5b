package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ppiankov/zettelgen/internal/analyze"
	"github.com/ppiankov/zettelgen/internal/cache"
	"github.com/ppiankov/zettelgen/internal/extract"
	"github.com/ppiankov/zettelgen/internal/llm"
	"github.com/ppiankov/zettelgen/internal/metrics"
	"github.com/ppiankov/zettelgen/internal/model"
)

var (
	// ErrNoNotes is returned when extraction succeeds with an empty batch
	ErrNoNotes = errors.New("no notes generated")

	// ErrNoText is returned when the page range yields no usable text
	ErrNoText = errors.New("no text extracted from page range")
)

// Pipeline runs extract, analyze, and render for one chapter at a time.
// It is safe for concurrent use; each call gets its own extractor.
type Pipeline struct {
	provider    llm.Provider
	registry    *extract.Registry
	renderer    *Renderer
	store       *cache.BatchStore
	metrics     *metrics.Recorder
	logger      *zap.Logger
	extractOpts []analyze.Option
	config      *model.Config
}

// Option configures a Pipeline
type Option func(*Pipeline)

func WithLogger(logger *zap.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

func WithMetrics(recorder *metrics.Recorder) Option {
	return func(p *Pipeline) {
		p.metrics = recorder
	}
}

// WithCache overrides the cache built from configuration
func WithCache(c cache.Cache) Option {
	return func(p *Pipeline) {
		p.store = cache.NewBatchStore(c, 0)
	}
}

// WithExtractorOptions appends options to every extractor the pipeline creates
func WithExtractorOptions(opts ...analyze.Option) Option {
	return func(p *Pipeline) {
		p.extractOpts = append(p.extractOpts, opts...)
	}
}

// NewPipeline creates a new pipeline around an already constructed provider
func NewPipeline(cfg *model.Config, provider llm.Provider, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		provider: provider,
		registry: extract.NewRegistry(),
		logger:   zap.NewNop(),
		config:   cfg,
	}

	if cfg.Cache.Enabled {
		p.store = cache.NewBatchStore(cache.NewLayeredCache(cfg.Cache.MemoryTTL, cfg.Cache.Dir, cfg.Cache.DiskTTL), 0)
	}

	for _, opt := range opts {
		opt(p)
	}

	renderer, err := NewRenderer(RendererOptions{
		OutputDir:    cfg.Output.Dir,
		TemplatePath: cfg.Output.TemplatePath,
		BookTitle:    cfg.Output.BookTitle,
		Author:       cfg.Output.Author,
		DefaultTags:  cfg.Output.DefaultTags,
	}, p.logger)
	if err != nil {
		return nil, fmt.Errorf("create renderer: %w", err)
	}
	p.renderer = renderer

	return p, nil
}

// Renderer exposes the note renderer
func (p *Pipeline) Renderer() *Renderer {
	return p.renderer
}

// ChapterRequest describes one chapter to process
type ChapterRequest struct {
	SourcePath string
	Document   extract.Document // Optional; opened from SourcePath when nil
	Chapter    model.Chapter
	NoCache    bool
}

// Open opens a source document using the built-in openers
func (p *Pipeline) Open(path string) (extract.Document, error) {
	return p.registry.Open(path)
}

// ProcessChapter extracts the chapter's text, turns it into notes, and writes them
func (p *Pipeline) ProcessChapter(ctx context.Context, req ChapterRequest) (*model.ChapterResult, error) {
	runID := uuid.NewString()
	logger := p.logger.With(
		zap.String("run_id", runID),
		zap.String("chapter", req.Chapter.Label()),
		zap.String("pages", req.Chapter.PageRange()),
	)

	// 1. Extract text
	doc := req.Document
	if doc == nil {
		opened, err := p.registry.Open(req.SourcePath)
		if err != nil {
			return nil, fmt.Errorf("open source: %w", err)
		}
		doc = opened
	}

	text, err := doc.ExtractRange(req.Chapter.Start, req.Chapter.End)
	if err != nil {
		return nil, fmt.Errorf("extract text: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return nil, ErrNoText
	}
	logger.Debug("extracted text", zap.Int("characters", len(text)))

	result := &model.ChapterResult{
		RunID:      runID,
		SourcePath: req.SourcePath,
		Chapter:    req.Chapter,
		TextLength: len(text),
		Provider:   p.provider.Name(),
		Model:      p.provider.Model(),
		OutputDir:  p.renderer.Dir(),
	}

	// 2. Analyze, from cache when possible
	key := cache.BatchKey(result.Provider, result.Model, text)
	batch, cached := p.lookup(key, req.NoCache)
	if cached {
		logger.Info("using cached notes", zap.Int("notes", len(batch)))
		p.metrics.ObserveExtraction(result.Provider, metrics.ResultCached)
	} else {
		opts := append([]analyze.Option{
			analyze.WithMaxRetries(p.config.Extraction.MaxRetries),
			analyze.WithBackoffUnit(p.config.Extraction.BackoffUnit),
			analyze.WithSource(p.config.Output.BookTitle),
			analyze.WithLogger(logger),
			analyze.WithMetrics(p.metrics),
		}, p.extractOpts...)

		batch, err = analyze.NewExtractor(p.provider, opts...).Extract(ctx, text)
		if err != nil {
			return nil, err
		}
	}
	result.Cached = cached

	if len(batch) == 0 {
		p.metrics.ObserveExtraction(result.Provider, metrics.ResultEmpty)
		return nil, ErrNoNotes
	}
	result.Notes = batch

	if !cached && p.store != nil && !req.NoCache {
		if err := p.store.Put(key, batch); err != nil {
			logger.Warn("failed to cache notes", zap.Error(err))
		}
	}

	// 3. Render
	rendered := p.renderer.RenderNotes(batch, req.Chapter.Label())
	result.FilesCreated = rendered.Created
	result.FilesSkipped = rendered.Skipped
	p.metrics.AddNotes(len(rendered.Created), len(rendered.Skipped))

	if p.config.Output.CreateIndex {
		path, err := p.renderer.RenderIndex(batch, req.Chapter.Name)
		if err != nil {
			logger.Warn("failed to write index", zap.Error(err))
		} else {
			result.IndexPath = path
		}
	}

	if p.config.Output.CreateMOC {
		path, err := p.renderer.RenderMOC(batch, req.Chapter.Name)
		if err != nil {
			logger.Warn("failed to write MOC", zap.Error(err))
		} else {
			result.MOCPath = path
		}
	}

	logger.Info("chapter processed",
		zap.Int("notes", len(batch)),
		zap.Int("created", len(rendered.Created)),
		zap.Int("skipped", len(rendered.Skipped)),
		zap.Bool("cached", cached),
	)

	return result, nil
}

func (p *Pipeline) lookup(key string, noCache bool) (model.Batch, bool) {
	if p.store == nil || noCache {
		return nil, false
	}
	return p.store.Get(key)
}

package worker

import (
	"context"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/zettelgen/internal/extract"
	"github.com/ppiankov/zettelgen/internal/model"
	"github.com/ppiankov/zettelgen/internal/pipeline"
)

// ChapterProcessor defines the interface for processing one chapter
type ChapterProcessor interface {
	ProcessChapter(ctx context.Context, req pipeline.ChapterRequest) (*model.ChapterResult, error)
}

// ChapterJob processes one chapter of a shared source
type ChapterJob struct {
	Request   pipeline.ChapterRequest
	Processor ChapterProcessor
}

// Execute executes the chapter job
func (j *ChapterJob) Execute(ctx context.Context) Result {
	result, err := j.Processor.ProcessChapter(ctx, j.Request)
	return &ChapterJobResult{
		Chapter: j.Request.Chapter,
		Result:  result,
		Error:   err,
	}
}

// ChapterJobResult is the outcome of one chapter job
type ChapterJobResult struct {
	Chapter model.Chapter
	Result  *model.ChapterResult
	Error   error
}

// GetError returns the error from the chapter result
func (r *ChapterJobResult) GetError() error {
	return r.Error
}

// BatchProcessor processes chapters concurrently. Each chapter runs its own
// extraction with its own retry budget.
type BatchProcessor struct {
	processor   ChapterProcessor
	concurrency int
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(processor ChapterProcessor, concurrency int) *BatchProcessor {
	return &BatchProcessor{
		processor:   processor,
		concurrency: concurrency,
	}
}

// ProcessChapters runs every chapter of source and returns results in input order.
// doc may be nil, in which case each job opens source itself.
func (b *BatchProcessor) ProcessChapters(ctx context.Context, source string, doc extract.Document, chapters []model.Chapter) []*ChapterJobResult {
	if len(chapters) == 0 {
		return []*ChapterJobResult{}
	}

	pool := NewPool(ctx, b.concurrency)
	pool.Start()

	for _, chapter := range chapters {
		if ctx.Err() != nil {
			break
		}
		pool.Submit(&ChapterJob{
			Request: pipeline.ChapterRequest{
				SourcePath: source,
				Document:   doc,
				Chapter:    chapter,
			},
			Processor: b.processor,
		})
	}

	// Queued chapters are abandoned once ctx is cancelled
	if ctx.Err() != nil {
		pool.Shutdown()
	}
	results := pool.Wait()

	out := make([]*ChapterJobResult, len(chapters))
	for i, chapter := range chapters {
		if i < len(results) && results[i] != nil {
			out[i] = results[i].(*ChapterJobResult)
			continue
		}
		// Never ran because ctx was cancelled
		err := ctx.Err()
		if err == nil {
			err = errors.New("chapter was not processed")
		}
		out[i] = &ChapterJobResult{Chapter: chapter, Error: err}
	}

	return out
}

// ChapterFile is the batch description read from YAML or JSON
type ChapterFile struct {
	PDF      string          `yaml:"pdf" json:"pdf"`
	Chapters []model.Chapter `yaml:"chapters" json:"chapters"`
}

// ReadChapterFile loads and validates a chapters file. JSON is accepted as
// YAML.
func ReadChapterFile(filePath string) (*ChapterFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	var file ChapterFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse chapters file: %w", err)
	}

	if len(file.Chapters) == 0 {
		return nil, errors.New("chapters file lists no chapters")
	}
	for i, ch := range file.Chapters {
		if ch.Start < 0 || ch.End < ch.Start {
			return nil, fmt.Errorf("chapter %d (%s): invalid page range %s", i, ch.Label(), ch.PageRange())
		}
	}

	return &file, nil
}

package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/zettelgen/internal/analyze"
	"github.com/ppiankov/zettelgen/internal/cache"
	"github.com/ppiankov/zettelgen/internal/metrics"
	"github.com/ppiankov/zettelgen/internal/model"
)

type stubProvider struct {
	mu      sync.Mutex
	replies []string
	err     error
	calls   int
}

func (p *stubProvider) Name() string  { return "openai" }
func (p *stubProvider) Model() string { return "gpt-4o-mini" }

func (p *stubProvider) Send(_ context.Context, _ string) (string, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls++
	if p.err != nil {
		return "", p.err
	}
	i := p.calls - 1
	if i >= len(p.replies) {
		i = len(p.replies) - 1
	}
	return p.replies[i], nil
}

const twoNotes = "```json\n" + `[
  {"title":"Random Walk Theory","summary":"Prices wander. See [[Efficient Market Hypothesis]].","tags":["market-theory"]},
  {"title":"Efficient Market Hypothesis","summary":"Prices reflect information.","tags":["market-efficiency"]}
]` + "\n```"

func writeSource(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "book.txt")
	content := "Front matter page.\f" +
		"Stock prices follow a random walk.\n12\f" +
		"Markets are informationally efficient.\n13"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func testConfig(t *testing.T) *model.Config {
	cfg := model.DefaultConfig()
	cfg.Output.Dir = filepath.Join(t.TempDir(), "notes")
	cfg.Cache.Enabled = false
	return cfg
}

func noSleep() analyze.Option {
	return analyze.WithSleep(func(time.Duration) {})
}

func TestProcessChapter(t *testing.T) {
	cfg := testConfig(t)
	cfg.Output.CreateIndex = true
	cfg.Output.CreateMOC = true

	provider := &stubProvider{replies: []string{"not json", twoNotes}}
	recorder := metrics.New()
	p, err := NewPipeline(cfg, provider, WithExtractorOptions(noSleep()), WithMetrics(recorder))
	require.NoError(t, err)

	result, err := p.ProcessChapter(context.Background(), ChapterRequest{
		SourcePath: writeSource(t),
		Chapter:    model.Chapter{Name: "Chapter 1", Start: 1, End: 2},
	})
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls)
	assert.NotEmpty(t, result.RunID)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "gpt-4o-mini", result.Model)
	assert.Equal(t, len("Stock prices follow a random walk.\nMarkets are informationally efficient."), result.TextLength)
	assert.False(t, result.Cached)
	assert.Equal(t, []string{"Random Walk Theory", "Efficient Market Hypothesis"}, result.Notes.Titles())
	assert.Len(t, result.FilesCreated, 2)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "index-chapter-1.md"), result.IndexPath)
	assert.Equal(t, filepath.Join(cfg.Output.Dir, "A Random Walk Down Wall Street.md"), result.MOCPath)

	data, err := os.ReadFile(filepath.Join(cfg.Output.Dir, "Random Walk Theory.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "- [[Efficient Market Hypothesis]]")
	assert.Contains(t, string(data), "tags: [finance, investing, market-theory]")
}

func TestProcessChapter_EmptyBatch(t *testing.T) {
	p, err := NewPipeline(testConfig(t), &stubProvider{replies: []string{"[]"}})
	require.NoError(t, err)

	_, err = p.ProcessChapter(context.Background(), ChapterRequest{
		SourcePath: writeSource(t),
		Chapter:    model.Chapter{Start: 1, End: 1},
	})
	assert.ErrorIs(t, err, ErrNoNotes)
}

func TestProcessChapter_NoText(t *testing.T) {
	provider := &stubProvider{replies: []string{twoNotes}}
	p, err := NewPipeline(testConfig(t), provider)
	require.NoError(t, err)

	path := filepath.Join(t.TempDir(), "blank.txt")
	require.NoError(t, os.WriteFile(path, []byte("1\n2\n\n"), 0o644))

	_, err = p.ProcessChapter(context.Background(), ChapterRequest{SourcePath: path, Chapter: model.Chapter{Start: 0, End: 0}})
	assert.ErrorIs(t, err, ErrNoText)
	assert.Zero(t, provider.calls)
}

func TestProcessChapter_InvalidRange(t *testing.T) {
	p, err := NewPipeline(testConfig(t), &stubProvider{replies: []string{twoNotes}})
	require.NoError(t, err)

	_, err = p.ProcessChapter(context.Background(), ChapterRequest{SourcePath: writeSource(t), Chapter: model.Chapter{Start: 2, End: 7}})
	assert.ErrorContains(t, err, "page range 2-7 is invalid")
}

func TestProcessChapter_Exhausted(t *testing.T) {
	cfg := testConfig(t)
	cfg.Extraction.MaxRetries = 2
	provider := &stubProvider{err: errors.New("connection reset")}

	p, err := NewPipeline(cfg, provider, WithExtractorOptions(noSleep()))
	require.NoError(t, err)

	_, err = p.ProcessChapter(context.Background(), ChapterRequest{SourcePath: writeSource(t), Chapter: model.Chapter{Start: 1, End: 2}})

	var exhausted *analyze.ExhaustedRetriesError
	require.ErrorAs(t, err, &exhausted)
	assert.Equal(t, 2, exhausted.Attempts)
	assert.Equal(t, analyze.CategoryBackend, exhausted.Category)
	assert.Equal(t, 2, provider.calls)
}

func TestProcessChapter_UsesCache(t *testing.T) {
	cfg := testConfig(t)
	mem := cache.NewMemoryCache(time.Minute, time.Minute)
	provider := &stubProvider{replies: []string{twoNotes}}

	p, err := NewPipeline(cfg, provider, WithCache(mem))
	require.NoError(t, err)

	source := writeSource(t)
	req := ChapterRequest{SourcePath: source, Chapter: model.Chapter{Name: "Chapter 1", Start: 1, End: 2}}

	first, err := p.ProcessChapter(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	second, err := p.ProcessChapter(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Notes, second.Notes)
	assert.Equal(t, 1, provider.calls)
	assert.Len(t, second.FilesSkipped, 2, "notes from the first run are not overwritten")

	req.NoCache = true
	_, err = p.ProcessChapter(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 2, provider.calls)
}

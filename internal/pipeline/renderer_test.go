package pipeline

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/zettelgen/internal/model"
)

func newTestRenderer(t *testing.T, opts RendererOptions) *Renderer {
	t.Helper()
	if opts.OutputDir == "" {
		opts.OutputDir = filepath.Join(t.TempDir(), "notes")
	}
	r, err := NewRenderer(opts, nil)
	require.NoError(t, err)
	r.now = func() time.Time { return time.Date(2024, 3, 9, 14, 30, 0, 0, time.UTC) }
	return r
}

func TestCapitalCaseFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"random walk theory", "Random Walk Theory"},
		{"Price/Earnings (P/E) Ratio", "Priceearnings Pe Ratio"},
		{"  efficient   market\thypothesis ", "Efficient Market Hypothesis"},
		{"CAPM", "Capm"},
		{"?!", "Untitled Note"},
		{"", "Untitled Note"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, CapitalCaseFilename(tt.in), "title %q", tt.in)
	}
}

func TestRenderNotes_ConcurrentRenderers(t *testing.T) {
	const workers = 4
	const perWorker = 50

	renderers := make([]*Renderer, workers)
	for i := range renderers {
		renderers[i] = newTestRenderer(t, RendererOptions{})
	}

	results := make([]*RenderResult, workers)
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make(model.Batch, perWorker)
			for i := range batch {
				batch[i] = model.NoteRecord{
					Title:   fmt.Sprintf("efficient market hypothesis part %d", i),
					Summary: "Prices reflect information.",
					Tags:    []string{},
				}
			}
			results[w] = renderers[w].RenderNotes(batch, "Chapter 1")
		}(w)
	}
	wg.Wait()

	for w, result := range results {
		require.Len(t, result.Created, perWorker, "worker %d", w)
		assert.Empty(t, result.Failed)
		for i := 0; i < perWorker; i++ {
			assert.FileExists(t, filepath.Join(renderers[w].Dir(), fmt.Sprintf("Efficient Market Hypothesis Part %d.md", i)))
		}
	}
}

func TestCapitalCaseFilename_Concurrent(t *testing.T) {
	titles := []string{"random walk theory", "price earnings ratio", "modern portfolio theory", "capm"}
	want := []string{"Random Walk Theory", "Price Earnings Ratio", "Modern Portfolio Theory", "Capm"}

	var wg sync.WaitGroup
	errs := make(chan string, 400)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				k := i % len(titles)
				if got := CapitalCaseFilename(titles[k]); got != want[k] {
					errs <- got
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for got := range errs {
		t.Errorf("unexpected filename %q", got)
	}
}

func TestExtractWikilinks(t *testing.T) {
	assert.Equal(t, []string{"Other"}, ExtractWikilinks("See [[Other]] and [[Other]]"))
	assert.Equal(t, []string{"Alpha", "Beta Risk"}, ExtractWikilinks("[[Beta Risk]] versus [[Alpha]] and [[Beta Risk]]"))
	assert.Empty(t, ExtractWikilinks("no links, [single] brackets"))
}

func TestFormatLinks(t *testing.T) {
	assert.Equal(t, "- No direct links identified", FormatLinks(nil))
	assert.Equal(t, "- [[A]]\n- [[B]]", FormatLinks([]string{"A", "B"}))
}

func TestFormatTags(t *testing.T) {
	r := newTestRenderer(t, RendererOptions{DefaultTags: []string{"finance", "investing"}})

	assert.Equal(t, "finance, investing", r.FormatTags(nil))
	assert.Equal(t, "finance, investing, market-theory, stock-prices", r.FormatTags([]string{"#Market Theory", " stock-prices "}))
	assert.Equal(t, "finance, investing, risk", r.FormatTags([]string{"investing", "risk"}))

	bare := newTestRenderer(t, RendererOptions{})
	assert.Equal(t, "", bare.FormatTags([]string{"#", " "}))
}

func TestRenderNotes(t *testing.T) {
	r := newTestRenderer(t, RendererOptions{
		BookTitle:   "A Random Walk Down Wall Street",
		DefaultTags: []string{"finance"},
	})

	batch := model.Batch{
		{
			Title:   "Random Walk Theory",
			Summary: "Prices are unpredictable. See [[Efficient Market Hypothesis]] and [[Efficient Market Hypothesis]].",
			Tags:    []string{"market-theory"},
		},
		{
			Title:    "Efficient Market Hypothesis",
			Summary:  "Prices reflect information.",
			Tags:     []string{},
			Examples: "Index funds beat most managers.",
		},
	}

	result := r.RenderNotes(batch, "Chapter 1")
	require.Len(t, result.Created, 2)
	assert.Empty(t, result.Skipped)
	assert.Empty(t, result.Failed)

	data, err := os.ReadFile(filepath.Join(r.Dir(), "Random Walk Theory.md"))
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "created: 2024-03-09 14:30:00\n")
	assert.Contains(t, content, `in: "[[A Random Walk Down Wall Street]]"`)
	assert.Contains(t, content, "chapter: Chapter 1\n")
	assert.Contains(t, content, "tags: [finance, market-theory]\n")
	assert.Contains(t, content, "# Random Walk Theory\n")
	assert.Contains(t, content, "See [[Efficient Market Hypothesis]] and [[Efficient Market Hypothesis]].")
	assert.Contains(t, content, "## Related Concepts\n- [[Efficient Market Hypothesis]]\n\n")
	assert.Contains(t, content, model.DefaultExamples)
	assert.NotContains(t, content, "{{")

	data, err = os.ReadFile(filepath.Join(r.Dir(), "Efficient Market Hypothesis.md"))
	require.NoError(t, err)
	assert.Contains(t, string(data), "Index funds beat most managers.")
	assert.Contains(t, string(data), "- No direct links identified")
}

func TestRenderNotes_SkipsExisting(t *testing.T) {
	r := newTestRenderer(t, RendererOptions{})
	path := filepath.Join(r.Dir(), "Beta.md")
	require.NoError(t, os.WriteFile(path, []byte("hand edited"), 0o644))

	result := r.RenderNotes(model.Batch{{Title: "beta", Summary: "Volatility.", Tags: []string{}}}, "")
	assert.Empty(t, result.Created)
	assert.Equal(t, []string{path}, result.Skipped)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "hand edited", string(data))
}

func TestRenderNotes_UnknownChapterAndCustomTemplate(t *testing.T) {
	tmpl := filepath.Join(t.TempDir(), "tmpl.md")
	require.NoError(t, os.WriteFile(tmpl, []byte("{{TITLE}}|{{CHAPTER}}|{{TAGS}}"), 0o644))

	r := newTestRenderer(t, RendererOptions{TemplatePath: tmpl})
	result := r.RenderNotes(model.Batch{{Title: "Alpha", Summary: "Excess return.", Tags: []string{"Risk Adjusted"}}}, "")
	require.Len(t, result.Created, 1)

	data, err := os.ReadFile(result.Created[0])
	require.NoError(t, err)
	assert.Equal(t, "Alpha|Unknown|risk-adjusted", string(data))
}

func TestNewRenderer_MissingTemplate(t *testing.T) {
	_, err := NewRenderer(RendererOptions{
		OutputDir:    t.TempDir(),
		TemplatePath: filepath.Join(t.TempDir(), "missing.md"),
	}, nil)
	assert.ErrorContains(t, err, "read template")
}

func TestRenderIndex(t *testing.T) {
	r := newTestRenderer(t, RendererOptions{})

	path, err := r.RenderIndex(nil, "Chapter 1")
	require.NoError(t, err)
	assert.Empty(t, path)

	batch := model.Batch{{Title: "p/e ratio", Summary: "s", Tags: []string{}}}
	path, err = r.RenderIndex(batch, "Chapter 1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir(), "index-chapter-1.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "# Index: Chapter 1\n")
	assert.Contains(t, string(data), "Generated 1 atomic notes")
	assert.Contains(t, string(data), "- [[Pe Ratio]] - p/e ratio\n")

	assert.Equal(t, "index.md", IndexFilename(""))
}

func TestRenderMOC(t *testing.T) {
	r := newTestRenderer(t, RendererOptions{BookTitle: "A Random Walk Down Wall Street", Author: "Burton G. Malkiel"})

	require.NoError(t, os.WriteFile(filepath.Join(r.Dir(), "Older Note.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir(), "index-chapter-1.md"), []byte("x"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir(), "A Random Walk Down Wall Street.md"), []byte("old moc"), 0o644))

	batch := model.Batch{{Title: "Long One", Summary: strings.Repeat("a", 150), Tags: []string{}}}
	path, err := r.RenderMOC(batch, "Chapter 1")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(r.Dir(), "A Random Walk Down Wall Street.md"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	content := string(data)

	assert.Contains(t, content, "type: map-of-content\n")
	assert.Contains(t, content, `author: "Burton G. Malkiel"`)
	assert.Contains(t, content, "## Chapter Notes: Chapter 1\n")
	assert.Contains(t, content, "- **[[Long One]]** - "+strings.Repeat("a", 100)+"...\n")
	assert.Contains(t, content, "- [[Older Note]]\n")
	assert.NotContains(t, content, "[[index-chapter-1]]")
	assert.NotContains(t, content, "- [[A Random Walk Down Wall Street]]")
	assert.Contains(t, content, "**Note Count:** 1 concepts from Chapter 1")
}

func TestExistingNotes(t *testing.T) {
	r := newTestRenderer(t, RendererOptions{})
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir(), "B.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir(), "A.md"), nil, 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(r.Dir(), "notes.txt"), nil, 0o644))

	names, err := r.ExistingNotes()
	require.NoError(t, err)
	assert.Equal(t, []string{"A", "B"}, names)
}

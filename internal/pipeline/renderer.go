package pipeline

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/ppiankov/zettelgen/internal/model"
)

// DefaultTemplate is used when no template file is configured
const DefaultTemplate = `---
created: {{CREATED}}
in: "[[{{BOOK_TITLE}}]]"
chapter: {{CHAPTER}}
tags: [{{TAGS}}]
---

# {{TITLE}}

## Summary
{{SUMMARY}}

## Examples and Elaboration
{{EXAMPLES}}

## Related Concepts
{{LINKS}}

**Source:** {{BOOK_TITLE}}, {{CHAPTER}}
`

const (
	timestampLayout  = "2006-01-02 15:04:05"
	untitledFilename = "Untitled Note"
	noLinksLine      = "- No direct links identified"
	mocSummaryLimit  = 100
)

var (
	wikilinkRe   = regexp.MustCompile(`\[\[([^\]]+)\]\]`)
	whitespaceRe = regexp.MustCompile(`\s+`)
)

// RendererOptions configures note output
type RendererOptions struct {
	OutputDir    string
	TemplatePath string // Empty uses DefaultTemplate
	BookTitle    string
	Author       string
	DefaultTags  []string
}

// Renderer writes note batches as markdown files
type Renderer struct {
	dir         string
	template    string
	bookTitle   string
	author      string
	defaultTags []string
	now         func() time.Time
	logger      *zap.Logger
}

// RenderResult lists what RenderNotes did with each note
type RenderResult struct {
	Created []string         // Paths of new files
	Skipped []string         // Paths that already existed and were left alone
	Failed  map[string]error // Title -> error for notes that could not be written
}

// NewRenderer creates the output directory and loads the template
func NewRenderer(opts RendererOptions, logger *zap.Logger) (*Renderer, error) {
	if opts.OutputDir == "" {
		return nil, errors.New("output directory is required")
	}
	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}

	template := DefaultTemplate
	if opts.TemplatePath != "" {
		data, err := os.ReadFile(opts.TemplatePath)
		if err != nil {
			return nil, fmt.Errorf("read template: %w", err)
		}
		template = string(data)
	}

	if logger == nil {
		logger = zap.NewNop()
	}

	return &Renderer{
		dir:         opts.OutputDir,
		template:    template,
		bookTitle:   opts.BookTitle,
		author:      opts.Author,
		defaultTags: normalizeTags(opts.DefaultTags),
		now:         time.Now,
		logger:      logger,
	}, nil
}

// Dir returns the output directory
func (r *Renderer) Dir() string {
	return r.dir
}

// RenderNotes writes one file per note. Existing files are never overwritten,
// and a failure on one note does not stop the others.
func (r *Renderer) RenderNotes(batch model.Batch, chapter string) *RenderResult {
	result := &RenderResult{Failed: make(map[string]error)}
	if chapter == "" {
		chapter = "Unknown"
	}

	for _, note := range batch {
		path := filepath.Join(r.dir, CapitalCaseFilename(note.Title)+".md")
		content := r.renderNote(note, chapter)

		created, err := writeNew(path, content)
		switch {
		case err != nil:
			result.Failed[note.Title] = err
			r.logger.Warn("failed to write note", zap.String("title", note.Title), zap.Error(err))
		case !created:
			result.Skipped = append(result.Skipped, path)
			r.logger.Info("note already exists, skipping", zap.String("path", path))
		default:
			result.Created = append(result.Created, path)
			r.logger.Debug("wrote note", zap.String("path", path))
		}
	}

	return result
}

func (r *Renderer) renderNote(note model.NoteRecord, chapter string) string {
	replacer := strings.NewReplacer(
		"{{TITLE}}", note.Title,
		"{{SUMMARY}}", note.Summary,
		"{{EXAMPLES}}", note.ExamplesOrDefault(),
		"{{LINKS}}", FormatLinks(ExtractWikilinks(note.Summary)),
		"{{CHAPTER}}", chapter,
		"{{TAGS}}", r.FormatTags(note.Tags),
		"{{BOOK_TITLE}}", r.bookTitle,
		"{{CREATED}}", r.now().Format(timestampLayout),
	)
	return replacer.Replace(r.template)
}

// writeNew creates path with content unless it already exists
func writeNew(path, content string) (bool, error) {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0644)
	if errors.Is(err, fs.ErrExist) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	if _, err := f.WriteString(content); err != nil {
		f.Close()
		return false, err
	}
	return true, f.Close()
}

// CapitalCaseFilename turns a note title into a file name without extension.
// Punctuation is dropped, whitespace collapsed, and words title-cased.
func CapitalCaseFilename(title string) string {
	cleaned := strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || unicode.IsSpace(r) {
			return r
		}
		return -1
	}, title)

	cleaned = strings.TrimSpace(whitespaceRe.ReplaceAllString(cleaned, " "))
	if cleaned == "" {
		return untitledFilename
	}
	// A Caser is stateful, so each call gets its own
	return cases.Title(language.English).String(cleaned)
}

// ExtractWikilinks returns the distinct [[targets]] in text, sorted
func ExtractWikilinks(text string) []string {
	seen := make(map[string]bool)
	var links []string
	for _, m := range wikilinkRe.FindAllStringSubmatch(text, -1) {
		if !seen[m[1]] {
			seen[m[1]] = true
			links = append(links, m[1])
		}
	}
	sort.Strings(links)
	return links
}

// FormatLinks renders links as a markdown bullet list
func FormatLinks(links []string) string {
	if len(links) == 0 {
		return noLinksLine
	}

	lines := make([]string, len(links))
	for i, link := range links {
		lines[i] = "- [[" + link + "]]"
	}
	return strings.Join(lines, "\n")
}

// FormatTags normalizes tags for YAML frontmatter and prepends the
// configured default tags that are missing.
func (r *Renderer) FormatTags(tags []string) string {
	normalized := normalizeTags(tags)

	present := make(map[string]bool, len(normalized))
	for _, t := range normalized {
		present[t] = true
	}

	out := make([]string, 0, len(r.defaultTags)+len(normalized))
	for _, t := range r.defaultTags {
		if !present[t] {
			out = append(out, t)
		}
	}
	out = append(out, normalized...)

	return strings.Join(out, ", ")
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, tag := range tags {
		tag = strings.TrimLeft(strings.TrimSpace(tag), "#")
		tag = whitespaceRe.ReplaceAllString(strings.ToLower(strings.TrimSpace(tag)), "-")
		if tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

// ExistingNotes returns the names (without extension) of markdown files in
// the output directory, sorted
func (r *Renderer) ExistingNotes() ([]string, error) {
	matches, err := doublestar.Glob(os.DirFS(r.dir), "*.md")
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}

	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, strings.TrimSuffix(m, ".md"))
	}
	sort.Strings(names)
	return names, nil
}

// IndexFilename returns the index note name for a chapter
func IndexFilename(chapter string) string {
	slug := strings.ToLower(strings.TrimSpace(chapter))
	slug = strings.ReplaceAll(slug, " ", "-")
	slug = strings.ReplaceAll(slug, string(filepath.Separator), "-")
	if slug == "" {
		return "index.md"
	}
	return "index-" + slug + ".md"
}

// RenderIndex writes an index note linking every note of the batch.
// It returns "" without writing anything for an empty batch.
func (r *Renderer) RenderIndex(batch model.Batch, chapter string) (string, error) {
	if len(batch) == 0 {
		return "", nil
	}

	heading := chapter
	if heading == "" {
		heading = "Generated Notes"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "# Index: %s\n\n", heading)
	fmt.Fprintf(&b, "Generated %d atomic notes from this chapter.\n\n", len(batch))
	b.WriteString("## Notes\n\n")
	for _, note := range batch {
		fmt.Fprintf(&b, "- [[%s]] - %s\n", CapitalCaseFilename(note.Title), note.Title)
	}
	fmt.Fprintf(&b, "\n---\n**Generated:** %s\n", r.now().Format(timestampLayout))

	path := filepath.Join(r.dir, IndexFilename(chapter))
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write index: %w", err)
	}
	return path, nil
}

// RenderMOC writes the book's map of content. It lists the batch under its
// chapter heading and every note already present in the output directory.
// The MOC is regenerated on every call.
func (r *Renderer) RenderMOC(batch model.Batch, chapter string) (string, error) {
	mocName := CapitalCaseFilename(r.bookTitle)
	created := r.now().Format(timestampLayout)

	var b strings.Builder
	fmt.Fprintf(&b, "---\ncreated: %s\ntype: map-of-content\nbook: %q\nauthor: %q\ntags: [moc, book]\n---\n\n", created, r.bookTitle, r.author)
	fmt.Fprintf(&b, "# %s\n\n", r.bookTitle)
	fmt.Fprintf(&b, "**Author:** %s  \n**Type:** Map of Content (MOC)  \n**Created:** %s\n", r.author, created)

	if chapter != "" && len(batch) > 0 {
		fmt.Fprintf(&b, "\n## Chapter Notes: %s\n\n", chapter)
		fmt.Fprintf(&b, "Generated %d atomic notes from %s:\n\n", len(batch), chapter)
		for _, note := range batch {
			fmt.Fprintf(&b, "- **[[%s]]** - %s\n", CapitalCaseFilename(note.Title), truncate(note.Summary, mocSummaryLimit))
		}
	}

	existing, err := r.ExistingNotes()
	if err != nil {
		return "", err
	}

	var listed []string
	for _, name := range existing {
		if name != mocName && !strings.HasPrefix(name, "index") {
			listed = append(listed, name)
		}
	}
	if len(listed) > 0 {
		b.WriteString("\n## All Generated Notes\n\n")
		for _, name := range listed {
			fmt.Fprintf(&b, "- [[%s]]\n", name)
		}
	}

	source := chapter
	if source == "" {
		source = "various chapters"
	}
	fmt.Fprintf(&b, "\n---\n\n**Last Updated:** %s  \n**Note Count:** %d concepts from %s\n", created, len(batch), source)

	path := filepath.Join(r.dir, mocName+".md")
	if err := os.WriteFile(path, []byte(b.String()), 0644); err != nil {
		return "", fmt.Errorf("write MOC: %w", err)
	}
	return path, nil
}

func truncate(s string, limit int) string {
	runes := []rune(s)
	if len(runes) <= limit {
		return s
	}
	return string(runes[:limit]) + "..."
}

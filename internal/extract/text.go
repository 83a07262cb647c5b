package extract

import (
	"fmt"
	"os"
	"strings"
)

// PageBreak separates pages in plain-text sources
const PageBreak = "\f"

// TextExtractor reads plain-text or markdown sources.
// Pages are separated by form feeds; a file without any is one page.
type TextExtractor struct {
	pages []string
}

// NewTextExtractor loads path into memory
func NewTextExtractor(path string) (*TextExtractor, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read text source %s: %w", path, err)
	}
	return &TextExtractor{pages: strings.Split(string(data), PageBreak)}, nil
}

func (e *TextExtractor) PageCount() int {
	return len(e.pages)
}

func (e *TextExtractor) ExtractRange(start, end int) (string, error) {
	return extractRange(e.page, start, end, len(e.pages))
}

func (e *TextExtractor) ExtractPages(pages []int) (string, error) {
	return extractPages(e.page, pages, len(e.pages))
}

func (e *TextExtractor) page(i int) (string, error) {
	return e.pages[i], nil
}

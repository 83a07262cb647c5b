package extract

import (
	"fmt"
	"strings"
)

// Document is a paged source that text can be pulled from.
// Page numbers are 0-indexed.
type Document interface {
	// PageCount returns the number of pages
	PageCount() int

	// ExtractRange returns cleaned text of pages start..end inclusive
	ExtractRange(start, end int) (string, error)

	// ExtractPages returns cleaned text of the listed pages, skipping out-of-range ones
	ExtractPages(pages []int) (string, error)
}

// pageReader yields the raw text of one page
type pageReader func(page int) (string, error)

// ValidateRange checks a 0-indexed inclusive range against a page count
func ValidateRange(start, end, pageCount int) error {
	if start < 0 || end >= pageCount || start > end {
		return fmt.Errorf("page range %d-%d is invalid for document with %d pages", start, end, pageCount)
	}
	return nil
}

func extractRange(read pageReader, start, end, pageCount int) (string, error) {
	if err := ValidateRange(start, end, pageCount); err != nil {
		return "", err
	}

	chunks := make([]string, 0, end-start+1)
	for i := start; i <= end; i++ {
		text, err := read(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		chunks = append(chunks, text)
	}

	return CleanText(strings.Join(chunks, "\n")), nil
}

func extractPages(read pageReader, pages []int, pageCount int) (string, error) {
	chunks := make([]string, 0, len(pages))
	for _, i := range pages {
		if i < 0 || i >= pageCount {
			continue
		}
		text, err := read(i)
		if err != nil {
			return "", fmt.Errorf("page %d: %w", i, err)
		}
		chunks = append(chunks, text)
	}

	return CleanText(strings.Join(chunks, "\n")), nil
}

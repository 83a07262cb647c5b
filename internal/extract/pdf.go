package extract

import (
	"fmt"
	"os"

	"github.com/ledongthuc/pdf"
)

// PDFExtractor pulls page text out of a PDF file
type PDFExtractor struct {
	path      string
	pageCount int
}

// NewPDFExtractor opens path once to validate it and count pages
func NewPDFExtractor(path string) (*PDFExtractor, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("PDF file not found: %s: %w", path, err)
	}

	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open PDF %s: %w", path, err)
	}
	defer f.Close()

	return &PDFExtractor{
		path:      path,
		pageCount: r.NumPage(),
	}, nil
}

// PageCount returns the number of pages in the PDF
func (e *PDFExtractor) PageCount() int {
	return e.pageCount
}

// ExtractRange returns cleaned text of pages start..end (0-indexed, inclusive)
func (e *PDFExtractor) ExtractRange(start, end int) (string, error) {
	if err := ValidateRange(start, end, e.pageCount); err != nil {
		return "", err
	}

	var text string
	err := e.withReader(func(read pageReader) error {
		var err error
		text, err = extractRange(read, start, end, e.pageCount)
		return err
	})
	return text, err
}

// ExtractPages returns cleaned text of the given pages; unknown pages are skipped
func (e *PDFExtractor) ExtractPages(pages []int) (string, error) {
	var text string
	err := e.withReader(func(read pageReader) error {
		var err error
		text, err = extractPages(read, pages, e.pageCount)
		return err
	})
	return text, err
}

func (e *PDFExtractor) withReader(fn func(pageReader) error) error {
	f, r, err := pdf.Open(e.path)
	if err != nil {
		return fmt.Errorf("open PDF %s: %w", e.path, err)
	}
	defer f.Close()

	read := func(i int) (string, error) {
		page := r.Page(i + 1) // the reader numbers pages from 1
		if page.V.IsNull() {
			return "", nil
		}
		return page.GetPlainText(nil)
	}

	if err := fn(read); err != nil {
		return fmt.Errorf("extract text from PDF: %w", err)
	}
	return nil
}

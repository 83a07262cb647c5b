package extract

import (
	"fmt"
	"path/filepath"
	"strings"
)

// Opener turns a file path into a Document
type Opener interface {
	// Name returns the opener name
	Name() string

	// CanHandle checks if this opener understands the given path
	CanHandle(path string) bool

	// Open prepares the document for extraction
	Open(path string) (Document, error)
}

// Registry picks an Opener by file extension
type Registry struct {
	openers []Opener
}

// NewRegistry creates a registry with the built-in PDF and text openers
func NewRegistry() *Registry {
	registry := &Registry{}
	registry.Register(pdfOpener{})
	registry.Register(textOpener{})
	return registry
}

// Register registers a new opener. Earlier registrations win.
func (r *Registry) Register(opener Opener) {
	r.openers = append(r.openers, opener)
}

// Open finds an opener for path and opens it
func (r *Registry) Open(path string) (Document, error) {
	for _, opener := range r.openers {
		if opener.CanHandle(path) {
			return opener.Open(path)
		}
	}
	return nil, fmt.Errorf("unsupported source %s (extension %q)", path, filepath.Ext(path))
}

type pdfOpener struct{}

func (pdfOpener) Name() string { return "pdf" }

func (pdfOpener) CanHandle(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

func (pdfOpener) Open(path string) (Document, error) {
	return NewPDFExtractor(path)
}

type textOpener struct{}

func (textOpener) Name() string { return "text" }

func (textOpener) CanHandle(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".text":
		return true
	}
	return false
}

func (textOpener) Open(path string) (Document, error) {
	return NewTextExtractor(path)
}

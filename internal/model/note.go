package model

// DefaultExamples is rendered when a note carries no examples of its own
const DefaultExamples = "*No specific examples provided in the source material.*"

// NoteRecord is a single atomic note extracted from source text
type NoteRecord struct {
	Title    string   `json:"title"`              // Unique within a batch (file names collide otherwise)
	Summary  string   `json:"summary"`            // May contain [[Other Title]] cross-references
	Tags     []string `json:"tags"`               // Raw labels; normalized only at render time
	Examples string   `json:"examples,omitempty"` // Optional elaboration
}

// ExamplesOrDefault returns the note's examples or the placeholder text
func (n NoteRecord) ExamplesOrDefault() string {
	if n.Examples == "" {
		return DefaultExamples
	}
	return n.Examples
}

// Batch is the ordered set of notes produced by one successful extraction
type Batch []NoteRecord

// Titles returns the note titles in batch order
func (b Batch) Titles() []string {
	titles := make([]string, len(b))
	for i, n := range b {
		titles[i] = n.Title
	}
	return titles
}

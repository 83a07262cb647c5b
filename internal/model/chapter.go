package model

import "fmt"

// Chapter identifies a page range of the source document.
// Pages are 0-indexed and End is inclusive.
type Chapter struct {
	Name  string `json:"name" yaml:"name"`
	Start int    `json:"start" yaml:"start"`
	End   int    `json:"end" yaml:"end"`
}

// PageRange formats the range the way it is reported to users
func (c Chapter) PageRange() string {
	return fmt.Sprintf("%d-%d", c.Start, c.End)
}

// Label returns the chapter name, or "Unknown" when none was given
func (c Chapter) Label() string {
	if c.Name == "" {
		return "Unknown"
	}
	return c.Name
}

// ChapterResult summarizes one processed chapter
type ChapterResult struct {
	RunID        string   `json:"run_id"`
	SourcePath   string   `json:"source_path"`
	Chapter      Chapter  `json:"chapter"`
	TextLength   int      `json:"text_length"`
	Provider     string   `json:"provider"`
	Model        string   `json:"model"`
	Cached       bool     `json:"cached"`
	Notes        Batch    `json:"notes"`
	FilesCreated []string `json:"files_created"`
	FilesSkipped []string `json:"files_skipped,omitempty"`
	OutputDir    string   `json:"output_dir"`
	IndexPath    string   `json:"index_path,omitempty"`
	MOCPath      string   `json:"moc_path,omitempty"`
}

package report

import (
	"encoding/json"
	"io"

	"github.com/nao1215/storycrawl/internal/model"
)

// JSONWriter outputs progress in JSON format for scripting.
type JSONWriter struct {
	baseWriter

	indent       bool
	indentPrefix string
	indentString string
}

// JSONWriterOption configures a JSONWriter.
type JSONWriterOption func(*JSONWriter)

// WithIndent enables pretty-printed JSON output.
func WithIndent(prefix, indent string) JSONWriterOption {
	return func(w *JSONWriter) {
		w.indent = true
		w.indentPrefix = prefix
		w.indentString = indent
	}
}

// WithPrettyPrint is WithIndent("", "  ").
func WithPrettyPrint() JSONWriterOption {
	return WithIndent("", "  ")
}

// NewJSONWriter creates a JSONWriter that outputs to the given writer.
// Output is compact unless an indent option is given.
func NewJSONWriter(output io.Writer, opts ...JSONWriterOption) *JSONWriter {
	w := &JSONWriter{
		baseWriter: newBaseWriter(output),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// StatusDocument is the JSON shape of WriteStatus.
type StatusDocument struct {
	Works []model.WorkStatus `json:"works"`
}

// ChaptersDocument is the JSON shape of WriteChapters.
type ChaptersDocument struct {
	Slug     string                `json:"slug"`
	Saved    int                   `json:"saved"`
	Missing  int                   `json:"missing_content"`
	Absent   int                   `json:"fetch_failed"`
	Chapters []model.ChapterResult `json:"chapters"`
}

// WriteStatus outputs the statuses as a StatusDocument.
func (w *JSONWriter) WriteStatus(statuses []model.WorkStatus) (int, error) {
	if statuses == nil {
		statuses = []model.WorkStatus{}
	}
	return w.writeJSON(StatusDocument{Works: statuses})
}

// WriteChapters outputs the chapters as a ChaptersDocument.
func (w *JSONWriter) WriteChapters(slug string, chapters []model.ChapterResult) (int, error) {
	if chapters == nil {
		chapters = []model.ChapterResult{}
	}
	c := countStatuses(chapters)
	return w.writeJSON(ChaptersDocument{
		Slug:     slug,
		Saved:    c.saved,
		Missing:  c.missing,
		Absent:   c.fetchFailed,
		Chapters: chapters,
	})
}

func (w *JSONWriter) writeJSON(v any) (int, error) {
	var (
		data []byte
		err  error
	)
	if w.indent {
		data, err = json.MarshalIndent(v, w.indentPrefix, w.indentString)
	} else {
		data, err = json.Marshal(v)
	}
	if err != nil {
		return 0, err
	}

	data = append(data, '\n')
	return w.output.Write(data)
}

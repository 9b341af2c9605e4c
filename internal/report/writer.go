package report

import (
	"errors"
	"fmt"
	"io"

	"github.com/nao1215/storycrawl/internal/model"
)

// Output format names accepted by NewWriter.
const (
	FormatText     = "text"
	FormatMarkdown = "markdown"
	FormatJSON     = "json"
)

// ErrUnknownFormat is returned by NewWriter for an unsupported format name.
var ErrUnknownFormat = errors.New("unknown report format")

// Writer renders crawl progress.
type Writer interface {
	// WriteStatus outputs one summary line per work.
	// Returns the number of bytes written and any error encountered.
	WriteStatus(statuses []model.WorkStatus) (int, error)

	// WriteChapters outputs the stored chapter outcomes of one work.
	WriteChapters(slug string, chapters []model.ChapterResult) (int, error)
}

// NewWriter returns the Writer for format.
func NewWriter(format string, output io.Writer) (Writer, error) {
	switch format {
	case FormatText, "":
		return NewSimpleWriter(output), nil
	case FormatMarkdown:
		return NewMarkdownWriter(output), nil
	case FormatJSON:
		return NewJSONWriter(output, WithPrettyPrint()), nil
	default:
		return nil, fmt.Errorf("%w: %q (use %s, %s or %s)", ErrUnknownFormat, format, FormatText, FormatMarkdown, FormatJSON)
	}
}

// MultiWriter writes to several Writers in turn.
type MultiWriter struct {
	writers []Writer
}

// NewMultiWriter creates a Writer that writes to all provided Writers.
func NewMultiWriter(writers ...Writer) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// WriteStatus outputs the statuses to all Writers.
// Stops on first error encountered.
func (m *MultiWriter) WriteStatus(statuses []model.WorkStatus) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteStatus(statuses)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// WriteChapters outputs the chapter outcomes to all Writers.
func (m *MultiWriter) WriteChapters(slug string, chapters []model.ChapterResult) (int, error) {
	var total int
	for _, w := range m.writers {
		n, err := w.WriteChapters(slug, chapters)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// baseWriter provides common functionality for report writers.
type baseWriter struct {
	output io.Writer
}

func newBaseWriter(output io.Writer) baseWriter {
	return baseWriter{output: output}
}

// statusCounts tallies chapter outcomes by status.
type statusCounts struct {
	saved, missing, fetchFailed int
}

func countStatuses(chapters []model.ChapterResult) statusCounts {
	var c statusCounts
	for _, ch := range chapters {
		switch ch.Status {
		case model.ChapterStatusSaved:
			c.saved++
		case model.ChapterStatusMissingContent:
			c.missing++
		case model.ChapterStatusFetchFailed:
			c.fetchFailed++
		}
	}
	return c
}

// progressText renders the cursor against the chapter total, e.g. "12/40".
func progressText(s model.WorkStatus) string {
	if s.TotalChapters == 0 {
		return fmt.Sprintf("%d/?", s.Cursor)
	}
	return fmt.Sprintf("%d/%d", s.Cursor, s.TotalChapters)
}

// truncateString truncates a string to maxLen runes with ellipsis.
func truncateString(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

const timeLayout = "2006-01-02 15:04:05 MST"

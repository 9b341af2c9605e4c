package report

import (
	"io"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/nao1215/storycrawl/internal/model"
)

// SimpleWriter outputs rounded text tables for terminal display.
type SimpleWriter struct {
	baseWriter

	// style is the go-pretty table style.
	style table.Style

	// maxErrorLen truncates error messages in table cells.
	maxErrorLen int
}

// SimpleWriterOption configures a SimpleWriter.
type SimpleWriterOption func(*SimpleWriter)

// WithStyle sets the table style.
func WithStyle(style table.Style) SimpleWriterOption {
	return func(w *SimpleWriter) {
		w.style = style
	}
}

// WithMaxErrorLen sets the length error messages are cut to.
func WithMaxErrorLen(n int) SimpleWriterOption {
	return func(w *SimpleWriter) {
		if n > 0 {
			w.maxErrorLen = n
		}
	}
}

// NewSimpleWriter creates a SimpleWriter that outputs to the given writer.
func NewSimpleWriter(output io.Writer, opts ...SimpleWriterOption) *SimpleWriter {
	w := &SimpleWriter{
		baseWriter:  newBaseWriter(output),
		style:       table.StyleRounded,
		maxErrorLen: 60,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// WriteStatus outputs one table row per work.
func (w *SimpleWriter) WriteStatus(statuses []model.WorkStatus) (int, error) {
	if len(statuses) == 0 {
		return io.WriteString(w.output, "No crawls recorded.\n")
	}

	tw := w.newTable()
	tw.AppendHeader(table.Row{"Slug", "Last run", "Status", "Progress", "Saved", "Failed", "Pattern", "Error"})
	for _, s := range statuses {
		tw.AppendRow(table.Row{
			s.Slug,
			s.LastRunAt.Local().Format(timeLayout),
			statusLabel(s),
			progressText(s),
			s.Saved,
			s.Failed,
			dash(s.Pattern),
			dash(truncateString(s.LastError, w.maxErrorLen)),
		})
	}
	return io.WriteString(w.output, tw.Render()+"\n")
}

// WriteChapters outputs one table row per stored chapter.
func (w *SimpleWriter) WriteChapters(slug string, chapters []model.ChapterResult) (int, error) {
	if len(chapters) == 0 {
		return io.WriteString(w.output, "No chapters recorded for "+slug+".\n")
	}

	tw := w.newTable()
	tw.SetTitle(slug)
	tw.AppendHeader(table.Row{"#", "Title", "Status", "Bytes", "Error"})
	for _, ch := range chapters {
		tw.AppendRow(table.Row{
			ch.Index,
			dash(ch.Title),
			ch.Status.String(),
			ch.Bytes,
			dash(truncateString(ch.Error, w.maxErrorLen)),
		})
	}

	c := countStatuses(chapters)
	tw.AppendFooter(table.Row{"", "Total " + strconv.Itoa(len(chapters)), summaryText(c), "", ""})

	return io.WriteString(w.output, tw.Render()+"\n")
}

func (w *SimpleWriter) newTable() table.Writer {
	tw := table.NewWriter()
	tw.SetStyle(w.style)
	return tw
}

func statusLabel(s model.WorkStatus) string {
	if s.LastRunStatus == model.RunStatusCompleted && s.Complete() {
		return "complete"
	}
	return s.LastRunStatus
}

func summaryText(c statusCounts) string {
	parts := []string{strconv.Itoa(c.saved) + " saved"}
	if c.missing > 0 {
		parts = append(parts, strconv.Itoa(c.missing)+" missing")
	}
	if c.fetchFailed > 0 {
		parts = append(parts, strconv.Itoa(c.fetchFailed)+" absent")
	}
	return strings.Join(parts, ", ")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

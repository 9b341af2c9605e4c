package report

import (
	"io"
	"strconv"

	"github.com/nao1215/markdown"
	"github.com/nao1215/markdown/mermaid/piechart"

	"github.com/nao1215/storycrawl/internal/model"
)

// MarkdownWriter outputs progress as GitHub-flavored Markdown.
type MarkdownWriter struct {
	baseWriter
}

// NewMarkdownWriter creates a MarkdownWriter that outputs to the given writer.
func NewMarkdownWriter(output io.Writer) *MarkdownWriter {
	return &MarkdownWriter{
		baseWriter: newBaseWriter(output),
	}
}

// WriteStatus outputs a table of works followed by the failed runs.
func (w *MarkdownWriter) WriteStatus(statuses []model.WorkStatus) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1("Crawl Status")
	md.PlainText("")

	if len(statuses) == 0 {
		md.PlainText("No crawls recorded.")
		return len(md.String()), md.Build()
	}

	rows := make([][]string, len(statuses))
	for i, s := range statuses {
		rows[i] = []string{
			"`" + s.Slug + "`",
			s.LastRunAt.Local().Format(timeLayout),
			statusLabel(s),
			progressText(s),
			strconv.Itoa(s.Saved),
			strconv.Itoa(s.Failed),
		}
	}
	md.Table(markdown.TableSet{
		Header: []string{"Slug", "Last run", "Status", "Progress", "Saved", "Failed"},
		Rows:   rows,
	})
	md.PlainText("")

	for _, s := range statuses {
		if s.LastError == "" {
			continue
		}
		md.Warningf("%s: %s", s.Slug, s.LastError)
		md.PlainText("")
	}

	return len(md.String()), md.Build()
}

// WriteChapters outputs a status chart and a table of chapters.
func (w *MarkdownWriter) WriteChapters(slug string, chapters []model.ChapterResult) (int, error) {
	md := markdown.NewMarkdown(w.output)
	md.H1(slug)
	md.PlainText("")

	if len(chapters) == 0 {
		md.PlainText("No chapters recorded.")
		return len(md.String()), md.Build()
	}

	w.writePieChart(md, countStatuses(chapters))

	rows := make([][]string, len(chapters))
	for i, ch := range chapters {
		rows[i] = []string{
			strconv.Itoa(ch.Index),
			dash(ch.Title),
			ch.Status.String(),
			strconv.Itoa(ch.Bytes),
			dash(truncateString(ch.Error, 60)),
		}
	}
	md.H2("Chapters")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"#", "Title", "Status", "Bytes", "Error"},
		Rows:   rows,
	})
	md.PlainText("")

	return len(md.String()), md.Build()
}

func (w *MarkdownWriter) writePieChart(md *markdown.Markdown, c statusCounts) {
	chart := piechart.NewPieChart(
		io.Discard,
		piechart.WithTitle("Chapter Outcomes"),
		piechart.WithShowData(true),
	)
	if c.saved > 0 {
		chart.LabelAndIntValue("Saved", uint64(c.saved))
	}
	if c.missing > 0 {
		chart.LabelAndIntValue("Missing content", uint64(c.missing))
	}
	if c.fetchFailed > 0 {
		chart.LabelAndIntValue("Fetch failed", uint64(c.fetchFailed))
	}

	md.CodeBlocks(markdown.SyntaxHighlightMermaid, chart.String())
	md.PlainText("")
}

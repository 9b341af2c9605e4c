package crawler

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/storycrawl/internal/model"
)

// ErrEmptyChapter is returned when asked to write a chapter without a body.
var ErrEmptyChapter = errors.New("chapter has no body")

// chapterSeparator follows every body in the output file.
const chapterSeparator = "\n\n"

const outputFileMode fs.FileMode = 0o644

// Writer appends chapters to a single UTF-8 text file.
// The file is opened and closed on every write, so a crash never leaves
// more than the chapter being written incomplete.
type Writer struct {
	path       string
	writeTitle bool
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithWriteTitle writes the chapter title on its own line before the body.
func WithWriteTitle(v bool) WriterOption {
	return func(w *Writer) {
		w.writeTitle = v
	}
}

// NewWriter creates a Writer for the file at path.
func NewWriter(path string, opts ...WriterOption) *Writer {
	w := &Writer{path: path}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Path returns the output file path.
func (w *Writer) Path() string {
	return w.path
}

// Write appends the chapter body followed by a blank line and returns the
// number of bytes written. Text is normalized to NFC.
func (w *Writer) Write(ch *model.Chapter) (n int, err error) {
	if !ch.HasBody() {
		return 0, ErrEmptyChapter
	}

	f, err := os.OpenFile(w.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, outputFileMode) //nolint:gosec // output path comes from configuration
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", w.path, err)
	}
	defer func() {
		if cerr := f.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close %s: %w", w.path, cerr))
		}
	}()

	cw := &countingWriter{w: f}
	tw := transform.NewWriter(cw, norm.NFC)

	if w.writeTitle && ch.HasTitle() {
		if _, err := io.WriteString(tw, ch.Title+"\n"); err != nil {
			return cw.n, fmt.Errorf("write title to %s: %w", w.path, err)
		}
	}
	if _, err := io.WriteString(tw, ch.Body+chapterSeparator); err != nil {
		return cw.n, fmt.Errorf("write body to %s: %w", w.path, err)
	}
	if err := tw.Close(); err != nil {
		return cw.n, fmt.Errorf("flush %s: %w", w.path, err)
	}
	return cw.n, nil
}

// Reset removes the output file. A missing file is not an error.
func (w *Writer) Reset() error {
	if err := os.Remove(w.path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("remove %s: %w", w.path, err)
	}
	return nil
}

type countingWriter struct {
	w io.Writer
	n int
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += n
	return n, err
}

package log

import (
	"io"
	"log/slog"
)

// Log output formats accepted by NewLogger.
const (
	FormatText = "text"
	FormatJSON = "json"
)

// NewLogger returns a logger writing to w through a RedactingHandler.
// The level is Info, or Debug when verbose is set. format selects
// FormatJSON or, for any other value, FormatText.
func NewLogger(w io.Writer, verbose bool, format string) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	opts := &slog.HandlerOptions{Level: level}

	var h slog.Handler
	if format == FormatJSON {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(NewRedactingHandler(h))
}

// Discard returns a logger that drops every record.
// Components fall back to it when no logger is injected.
func Discard() *slog.Logger {
	return slog.New(slog.DiscardHandler)
}

package model

import (
	"fmt"
	"strings"
)

// Chapter is one sequentially numbered unit of a Work.
// Title and Body are empty when the corresponding element could not be
// extracted from the chapter page.
type Chapter struct {
	// Index is the 1-based position of the chapter within its Work.
	Index int `json:"index"`

	// URL is the address the chapter was fetched from.
	URL string `json:"url"`

	// Title is the text of the chapter heading.
	Title string `json:"title,omitempty"`

	// Body is the text of the chapter content container.
	Body string `json:"body,omitempty"`
}

// HasTitle reports whether a title was extracted.
func (c *Chapter) HasTitle() bool {
	return c != nil && strings.TrimSpace(c.Title) != ""
}

// HasBody reports whether a body was extracted.
func (c *Chapter) HasBody() bool {
	return c != nil && strings.TrimSpace(c.Body) != ""
}

// Complete reports whether both title and body are present.
// Only complete chapters are written to the output file.
func (c *Chapter) Complete() bool {
	return c.HasTitle() && c.HasBody()
}

// ChapterStatus is the outcome of processing one chapter address.
type ChapterStatus int

const (
	// ChapterStatusUnknown is the zero value and is never recorded.
	ChapterStatusUnknown ChapterStatus = iota

	// ChapterStatusSaved means the chapter body was appended to the output file.
	ChapterStatusSaved

	// ChapterStatusMissingContent means the page was fetched but the title or
	// the content container was absent.
	ChapterStatusMissingContent

	// ChapterStatusFetchFailed means the page answered with a non-200 status.
	ChapterStatusFetchFailed

	// ChapterStatusSkipped means the chapter was at or before the resume cursor.
	ChapterStatusSkipped
)

// String returns the name stored in the progress database.
func (s ChapterStatus) String() string {
	switch s {
	case ChapterStatusSaved:
		return "saved"
	case ChapterStatusMissingContent:
		return "missing_content"
	case ChapterStatusFetchFailed:
		return "fetch_failed"
	case ChapterStatusSkipped:
		return "skipped"
	default:
		return "unknown"
	}
}

// ParseChapterStatus converts a stored status name back to a ChapterStatus.
func ParseChapterStatus(s string) (ChapterStatus, error) {
	switch s {
	case "saved":
		return ChapterStatusSaved, nil
	case "missing_content":
		return ChapterStatusMissingContent, nil
	case "fetch_failed":
		return ChapterStatusFetchFailed, nil
	case "skipped":
		return ChapterStatusSkipped, nil
	default:
		return ChapterStatusUnknown, fmt.Errorf("unknown chapter status %q", s)
	}
}

// Failed reports whether the status counts as a failure in run totals.
func (s ChapterStatus) Failed() bool {
	return s == ChapterStatusMissingContent || s == ChapterStatusFetchFailed
}

// ChapterResult is the outcome of processing one chapter address.
type ChapterResult struct {
	// Index is the 1-based chapter index.
	Index int `json:"index"`

	// URL is the chapter address.
	URL string `json:"url"`

	// Title is the extracted title, if any.
	Title string `json:"title,omitempty"`

	// Status is the outcome.
	Status ChapterStatus `json:"-"`

	// StatusText mirrors Status for JSON output.
	StatusText string `json:"status"`

	// Bytes is the number of bytes appended to the output file.
	Bytes int `json:"bytes,omitempty"`

	// ContentHash is the hex BLAKE2b-256 digest of the written body.
	ContentHash string `json:"content_hash,omitempty"`

	// Error describes why the chapter was not saved.
	Error string `json:"error,omitempty"`
}

// NewChapterResult creates a result for the given index and address.
func NewChapterResult(index int, url string, status ChapterStatus) *ChapterResult {
	return &ChapterResult{
		Index:      index,
		URL:        url,
		Status:     status,
		StatusText: status.String(),
	}
}

// SetStatus updates Status and StatusText together.
func (r *ChapterResult) SetStatus(status ChapterStatus) {
	r.Status = status
	r.StatusText = status.String()
}

package model

import "time"

// WorkStatus summarizes the crawl history of one Work.
// It is assembled by the database package for the status command.
type WorkStatus struct {
	// Slug identifies the work.
	Slug string `json:"slug"`

	// BaseURL is the landing page address used by the latest run.
	BaseURL string `json:"base_url"`

	// LastRunID is the identifier of the latest run.
	LastRunID string `json:"last_run_id"`

	// LastRunStatus is how the latest run ended.
	LastRunStatus string `json:"last_run_status"`

	// LastRunAt is when the latest run started.
	LastRunAt time.Time `json:"last_run_at"`

	// Pattern is the count pattern matched by the latest run.
	Pattern string `json:"pattern,omitempty"`

	// TotalChapters is the chapter count the latest run enumerated.
	TotalChapters int `json:"total_chapters"`

	// Cursor is the last processed chapter index; a resumed run starts after it.
	Cursor int `json:"cursor"`

	// Saved counts chapters recorded as saved.
	Saved int `json:"saved"`

	// Failed counts chapters recorded as missing content or fetch failures.
	Failed int `json:"failed"`

	// LastError is the error message of the latest run, if it failed.
	LastError string `json:"last_error,omitempty"`
}

// Complete reports whether every enumerated chapter has been processed.
func (s WorkStatus) Complete() bool {
	return s.TotalChapters > 0 && s.Cursor >= s.TotalChapters
}

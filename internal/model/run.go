package model

import (
	"time"
)

// Run is the transient state of one crawl of one Work.
// Pipeline steps receive the same Run and fill it in as they execute.
type Run struct {
	// ID uniquely identifies the run in the progress database.
	ID string `json:"id"`

	// Work is the work being crawled.
	Work Work `json:"work"`

	// OutputPath is the file chapter bodies are appended to.
	OutputPath string `json:"output_path"`

	// Pattern is the name of the count pattern that matched on the landing page.
	Pattern string `json:"pattern,omitempty"`

	// Addresses is the ordered list of chapter addresses produced by enumeration.
	Addresses []string `json:"-"`

	// ResumedFrom is the cursor the run resumed after. Zero for a fresh run.
	ResumedFrom int `json:"resumed_from,omitempty"`

	// StartedAt is when the run started.
	StartedAt time.Time `json:"started_at"`

	// FinishedAt is when the run ended, successfully or not.
	FinishedAt time.Time `json:"finished_at"`

	// Saved counts chapters written to the output file.
	Saved int `json:"saved"`

	// Failed counts chapters that could not be fetched or extracted.
	Failed int `json:"failed"`

	// Skipped counts chapters skipped because of the resume cursor.
	Skipped int `json:"skipped"`

	// Cancelled is set when the run stopped because its context was cancelled.
	Cancelled bool `json:"cancelled"`

	// Error is the error that terminated the run, if any.
	Error error `json:"-"`

	// ErrorMessage mirrors Error for serialization.
	ErrorMessage string `json:"error,omitempty"`

	// PerformedSteps lists the pipeline steps that ran, in order.
	PerformedSteps []string `json:"performed_steps"`
}

// NewRun creates a Run for the given work.
func NewRun(id string, work Work) *Run {
	return &Run{
		ID:             id,
		Work:           work,
		StartedAt:      time.Now(),
		Addresses:      make([]string, 0),
		PerformedSteps: make([]string, 0),
	}
}

// TotalChapters returns the number of chapter addresses the run enumerated.
func (r *Run) TotalChapters() int {
	return len(r.Addresses)
}

// Record updates the run counters with a chapter result.
func (r *Run) Record(result *ChapterResult) {
	switch {
	case result.Status == ChapterStatusSaved:
		r.Saved++
	case result.Status == ChapterStatusSkipped:
		r.Skipped++
	case result.Status.Failed():
		r.Failed++
	}
}

// Fail records err as the error that terminated the run.
func (r *Run) Fail(err error) {
	if err == nil {
		return
	}
	r.Error = err
	r.ErrorMessage = err.Error()
}

// Succeeded reports whether the run ended without a terminating error.
func (r *Run) Succeeded() bool {
	return r.Error == nil && !r.Cancelled
}

// StatusText returns a short description of how the run ended.
func (r *Run) StatusText() string {
	switch {
	case r.Cancelled:
		return RunStatusCancelled
	case r.Error != nil:
		return RunStatusFailed
	case r.FinishedAt.IsZero():
		return RunStatusRunning
	default:
		return RunStatusCompleted
	}
}

// Run status names stored in the progress database.
const (
	RunStatusRunning   = "running"
	RunStatusCompleted = "completed"
	RunStatusFailed    = "failed"
	RunStatusCancelled = "cancelled"
)

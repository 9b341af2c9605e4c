package pipeline

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/nao1215/storycrawl/internal/database"
	"github.com/nao1215/storycrawl/internal/model"
)

// Step is one stage of a crawl.
type Step interface {
	// Do executes the step. Per-chapter problems are recorded on the run
	// and return nil; a returned error ends the run.
	Do(ctx context.Context, run *model.Run) error

	// Name returns the step's name for logging.
	Name() string
}

// Pipeline executes steps in order.
type Pipeline struct {
	steps    []Step
	logger   *slog.Logger
	recorder Recorder
}

// Option configures a Pipeline.
type Option func(*Pipeline)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) {
		p.logger = logger
	}
}

// WithRecorder stores run progress in r.
func WithRecorder(r Recorder) Option {
	return func(p *Pipeline) {
		if r != nil {
			p.recorder = r
		}
	}
}

// New creates a Pipeline.
func New(opts ...Option) *Pipeline {
	p := &Pipeline{
		steps:    make([]Step, 0),
		recorder: NopRecorder{},
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.logger == nil {
		p.logger = slog.Default()
	}
	return p
}

// AddStep appends a step.
func (p *Pipeline) AddStep(step Step) {
	p.steps = append(p.steps, step)
}

// AddSteps appends several steps.
func (p *Pipeline) AddSteps(steps ...Step) {
	p.steps = append(p.steps, steps...)
}

// Recorder returns the recorder the pipeline reports to.
func (p *Pipeline) Recorder() Recorder {
	return p.recorder
}

// Execute runs every step over run.
// Cancellation is checked before each step; a cancelled run is marked as
// such. The first step error is recorded on run and stops the pipeline.
func (p *Pipeline) Execute(ctx context.Context, run *model.Run) error {
	for _, step := range p.steps {
		if err := ctx.Err(); err != nil {
			p.logger.Warn("crawl cancelled", "step", step.Name(), "slug", run.Work.Slug, "reason", err)
			run.Cancelled = true
			return err
		}

		p.logger.Debug("executing step", "step", step.Name(), "slug", run.Work.Slug)

		err := step.Do(ctx, run)
		run.PerformedSteps = append(run.PerformedSteps, step.Name())
		if err == nil {
			p.logger.Debug("step completed", "step", step.Name(), "slug", run.Work.Slug)
			continue
		}

		if isCancellation(ctx, err) {
			p.logger.Warn("crawl cancelled", "step", step.Name(), "slug", run.Work.Slug, "reason", err)
			run.Cancelled = true
			return err
		}

		p.logger.Error("step failed", "step", step.Name(), "slug", run.Work.Slug, "error", err)
		run.Fail(err)
		return err
	}
	return nil
}

// Run crawls work into outputPath and returns the finished run.
// The run is registered with the recorder before the first step and
// finalized after the last one, even when the context was cancelled.
func (p *Pipeline) Run(ctx context.Context, work model.Work, outputPath string) (*model.Run, error) {
	run := model.NewRun(database.NewRunID(), work)
	run.OutputPath = outputPath

	if err := p.recorder.StartRun(ctx, run); err != nil {
		run.Fail(err)
		run.FinishedAt = time.Now()
		return run, err
	}

	err := p.Execute(ctx, run)
	run.FinishedAt = time.Now()

	if ferr := p.recorder.FinishRun(context.WithoutCancel(ctx), run); ferr != nil {
		p.logger.Error("failed to record run", "slug", work.Slug, "run_id", run.ID, "error", ferr)
		err = errors.Join(err, ferr)
	}

	p.logger.Debug("crawl finished",
		"slug", work.Slug,
		"run_id", run.ID,
		"status", run.StatusText(),
		"saved", run.Saved,
		"failed", run.Failed,
		"skipped", run.Skipped,
		"elapsed", run.FinishedAt.Sub(run.StartedAt).Round(time.Millisecond),
	)
	return run, err
}

// StepCount returns the number of steps.
func (p *Pipeline) StepCount() int {
	return len(p.steps)
}

// StepNames returns the step names in execution order.
func (p *Pipeline) StepNames() []string {
	names := make([]string, len(p.steps))
	for i, step := range p.steps {
		names[i] = step.Name()
	}
	return names
}

func isCancellation(ctx context.Context, err error) bool {
	return ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded))
}

package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"golang.org/x/sync/errgroup"

	"github.com/nao1215/storycrawl/internal/model"
)

// Job is one work to crawl and the file it is written to.
type Job struct {
	Work       model.Work
	OutputPath string
}

// BatchProcessor crawls several works with a concurrency limit.
// Each work gets its own pipeline, so chapters of a single work are still
// processed one at a time.
type BatchProcessor struct {
	// pipelineFactory creates a fresh pipeline for each job.
	pipelineFactory func(Job) *Pipeline

	// concurrency is the maximum number of works crawled at once.
	concurrency int

	logger *slog.Logger
}

// BatchOption configures a BatchProcessor.
type BatchOption func(*BatchProcessor)

// WithBatchLogger sets a custom logger for batch processing.
func WithBatchLogger(logger *slog.Logger) BatchOption {
	return func(b *BatchProcessor) {
		b.logger = logger
	}
}

// WithConcurrency sets the maximum number of works crawled at once.
// Default is 1.
func WithConcurrency(n int) BatchOption {
	return func(b *BatchProcessor) {
		if n > 0 {
			b.concurrency = n
		}
	}
}

// NewBatchProcessor creates a new BatchProcessor.
func NewBatchProcessor(pipelineFactory func(Job) *Pipeline, opts ...BatchOption) *BatchProcessor {
	bp := &BatchProcessor{
		pipelineFactory: pipelineFactory,
		concurrency:     1,
	}
	for _, opt := range opts {
		opt(bp)
	}
	if bp.logger == nil {
		bp.logger = slog.Default()
	}
	return bp
}

// ProcessBatch crawls every job and returns the runs in job order.
//
// A failed work does not stop the others. The returned error aggregates the
// failures of all works; a job never started because ctx was cancelled has
// a nil run.
func (bp *BatchProcessor) ProcessBatch(ctx context.Context, jobs []Job) ([]*model.Run, error) {
	runs := make([]*model.Run, len(jobs))
	err := bp.ProcessBatchWithCallback(ctx, jobs, func(run *model.Run, index int) {
		runs[index] = run
	})
	return runs, err
}

// ProcessBatchWithCallback crawls every job and calls callback with each
// finished run. The callback runs on the goroutine that crawled the work.
func (bp *BatchProcessor) ProcessBatchWithCallback(
	ctx context.Context,
	jobs []Job,
	callback func(run *model.Run, index int),
) error {
	bp.logger.Debug("starting batch", "works", len(jobs), "concurrency", bp.concurrency)
	startTime := time.Now()

	var (
		mu     sync.Mutex
		result *multierror.Error
	)

	g := new(errgroup.Group)
	g.SetLimit(bp.concurrency)

	for i, job := range jobs {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", job.Work.Slug, err))
				mu.Unlock()
				return nil
			}

			run, err := bp.pipelineFactory(job).Run(ctx, job.Work, job.OutputPath)
			if err != nil {
				bp.logger.Warn("crawl failed", "slug", job.Work.Slug, "error", err)
				mu.Lock()
				result = multierror.Append(result, fmt.Errorf("%s: %w", job.Work.Slug, err))
				mu.Unlock()
			}
			callback(run, i)
			return nil
		})
	}
	_ = g.Wait() //nolint:errcheck // workers never return errors

	bp.logger.Debug("batch complete", "works", len(jobs), "elapsed", time.Since(startTime).Round(time.Millisecond))
	return result.ErrorOrNil()
}

package pipeline

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/nao1215/storycrawl/internal/log"
	"github.com/nao1215/storycrawl/internal/model"
)

func testJobs(t *testing.T, n int) []Job {
	t.Helper()
	dir := t.TempDir()
	jobs := make([]Job, n)
	for i := range jobs {
		slug := fmt.Sprintf("work-%d", i+1)
		jobs[i] = Job{
			Work:       model.Work{Slug: slug, BaseURL: "https://truyenfull.io/" + slug},
			OutputPath: filepath.Join(dir, slug+".txt"),
		}
	}
	return jobs
}

func TestBatchProcessor(t *testing.T) {
	t.Parallel()

	t.Run("processes all works", func(t *testing.T) {
		t.Parallel()

		var count atomic.Int32
		factory := func(Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{name: "count", doFunc: func(context.Context, *model.Run) error {
				count.Add(1)
				return nil
			}})
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()), WithConcurrency(2))
		runs, err := bp.ProcessBatch(context.Background(), testJobs(t, 5))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(runs) != 5 {
			t.Errorf("expected 5 runs, got %d", len(runs))
		}
		if count.Load() != 5 {
			t.Errorf("expected 5 executions, got %d", count.Load())
		}
	})

	t.Run("defaults to one work at a time", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		factory := func(Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.Run) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(10 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()))
		if _, err := bp.ProcessBatch(context.Background(), testJobs(t, 4)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() != 1 {
			t.Errorf("expected at most 1 concurrent crawl, got %d", peak.Load())
		}
	})

	t.Run("respects concurrency limit", func(t *testing.T) {
		t.Parallel()

		var current, peak atomic.Int32
		factory := func(Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{name: "slow", doFunc: func(context.Context, *model.Run) error {
				n := current.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(20 * time.Millisecond)
				current.Add(-1)
				return nil
			}})
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()), WithConcurrency(2))
		if _, err := bp.ProcessBatch(context.Background(), testJobs(t, 6)); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if peak.Load() > 2 {
			t.Errorf("expected at most 2 concurrent crawls, got %d", peak.Load())
		}
	})

	t.Run("maintains result order", func(t *testing.T) {
		t.Parallel()

		factory := func(Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{name: "noop"})
			return p
		}

		jobs := testJobs(t, 5)
		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()), WithConcurrency(3))
		runs, err := bp.ProcessBatch(context.Background(), jobs)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		for i, run := range runs {
			if run.Work.Slug != jobs[i].Work.Slug {
				t.Errorf("run %d: expected %s, got %s", i, jobs[i].Work.Slug, run.Work.Slug)
			}
			if run.OutputPath != jobs[i].OutputPath {
				t.Errorf("run %d: expected output %s, got %s", i, jobs[i].OutputPath, run.OutputPath)
			}
		}
	})

	t.Run("continues after individual crawl failure", func(t *testing.T) {
		t.Parallel()

		stepErr := errors.New("could not find chapter count")
		factory := func(job Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			if job.Work.Slug == "work-2" {
				p.AddStep(&mockStep{name: "enumerate", err: stepErr})
			} else {
				p.AddStep(&mockStep{name: "noop"})
			}
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()), WithConcurrency(2))
		runs, err := bp.ProcessBatch(context.Background(), testJobs(t, 3))
		if !errors.Is(err, stepErr) {
			t.Fatalf("expected aggregated %v, got %v", stepErr, err)
		}
		if len(runs) != 3 {
			t.Fatalf("expected 3 runs, got %d", len(runs))
		}
		if runs[1].Succeeded() {
			t.Error("expected work-2 to fail")
		}
		if !runs[0].Succeeded() || !runs[2].Succeeded() {
			t.Error("expected other works to succeed")
		}
	})

	t.Run("handles context cancellation", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		factory := func(Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{name: "noop"})
			return p
		}

		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()))
		runs, err := bp.ProcessBatch(ctx, testJobs(t, 3))
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("expected context.Canceled, got %v", err)
		}
		for i, run := range runs {
			if run != nil {
				t.Errorf("run %d: expected no run for a cancelled batch", i)
			}
		}
	})

	t.Run("calls callback for each result", func(t *testing.T) {
		t.Parallel()

		factory := func(Job) *Pipeline {
			p := New(WithLogger(log.Discard()))
			p.AddStep(&mockStep{name: "noop"})
			return p
		}

		var mu sync.Mutex
		seen := make(map[int]string)
		bp := NewBatchProcessor(factory, WithBatchLogger(log.Discard()), WithConcurrency(4))
		err := bp.ProcessBatchWithCallback(context.Background(), testJobs(t, 4), func(run *model.Run, index int) {
			mu.Lock()
			seen[index] = run.Work.Slug
			mu.Unlock()
		})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(seen) != 4 {
			t.Fatalf("expected 4 callbacks, got %d", len(seen))
		}
		for i := 0; i < 4; i++ {
			if want := fmt.Sprintf("work-%d", i+1); seen[i] != want {
				t.Errorf("index %d: expected %s, got %s", i, want, seen[i])
			}
		}
	})
}

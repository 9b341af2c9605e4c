package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/juju/clock"

	"github.com/nao1215/storycrawl/internal/config"
	"github.com/nao1215/storycrawl/internal/crawler"
	"github.com/nao1215/storycrawl/internal/database"
	"github.com/nao1215/storycrawl/internal/fetch"
	"github.com/nao1215/storycrawl/internal/model"
)

// Deps are the collaborators shared by the default steps.
type Deps struct {
	// Fetcher retrieves pages. Required.
	Fetcher crawler.Fetcher

	// Recorder stores progress. Nil records nothing.
	Recorder Recorder

	// Clock drives the pause between chapters. Nil uses the wall clock.
	Clock clock.Clock
}

// ChapterObserver is called after each processed chapter.
// It runs on the crawl goroutine of the work.
type ChapterObserver func(run *model.Run, result *model.ChapterResult)

// DefaultPipelineConfig holds configuration for the default pipeline.
type DefaultPipelineConfig struct {
	// DelayMin and DelayMax bound the pause taken after each saved chapter.
	DelayMin time.Duration
	DelayMax time.Duration

	// Resume skips chapters at or below the stored cursor and keeps the
	// existing output file.
	Resume bool

	// WriteTitle writes the chapter title on its own line before the body.
	WriteTitle bool

	// PreserveLineBreaks turns <br> elements into newlines.
	PreserveLineBreaks bool

	// TitleSelector and ContentSelector locate the chapter elements.
	TitleSelector   string
	ContentSelector string

	// Observer is notified of every chapter result.
	Observer ChapterObserver

	// Int64N returns a random number in [0, n). Tests replace it.
	Int64N func(n int64) int64
}

// DefaultPipelineOption configures a DefaultPipelineConfig.
type DefaultPipelineOption func(*DefaultPipelineConfig)

// WithPipelineDelay sets the bounds of the pause after each saved chapter.
// A zero maximum disables the pause.
func WithPipelineDelay(lo, hi time.Duration) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.DelayMin = lo
		c.DelayMax = hi
	}
}

// WithPipelineResume enables resuming from the stored cursor.
func WithPipelineResume(resume bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Resume = resume
	}
}

// WithPipelineWriteTitle writes chapter titles to the output file.
func WithPipelineWriteTitle(v bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.WriteTitle = v
	}
}

// WithPipelinePreserveLineBreaks keeps <br> line breaks in chapter bodies.
func WithPipelinePreserveLineBreaks(v bool) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.PreserveLineBreaks = v
	}
}

// WithPipelineSelectors overrides the title and content selectors.
// Empty values keep the defaults.
func WithPipelineSelectors(title, content string) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if title != "" {
			c.TitleSelector = title
		}
		if content != "" {
			c.ContentSelector = content
		}
	}
}

// WithChapterObserver registers fn to be called after every chapter.
func WithChapterObserver(fn ChapterObserver) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		c.Observer = fn
	}
}

// WithPipelineRand replaces the random source used to draw delays.
func WithPipelineRand(int64N func(n int64) int64) DefaultPipelineOption {
	return func(c *DefaultPipelineConfig) {
		if int64N != nil {
			c.Int64N = int64N
		}
	}
}

// DefaultPipeline creates the crawl pipeline for one work.
//
// The first parameter supplies the fetcher, recorder and clock. The pipeline
// options configure logging; the config options tune the steps. The
// recorder given in deps takes precedence over WithRecorder.
func DefaultPipeline(deps Deps, pipelineOpts []Option, configOpts ...DefaultPipelineOption) *Pipeline {
	p := New(pipelineOpts...)
	if deps.Recorder != nil {
		p.recorder = deps.Recorder
	}
	if deps.Clock == nil {
		deps.Clock = clock.WallClock
	}

	cfg := &DefaultPipelineConfig{
		DelayMin:        config.DefaultDelayMin,
		DelayMax:        config.DefaultDelayMax,
		TitleSelector:   crawler.DefaultTitleSelector,
		ContentSelector: crawler.DefaultContentSelector,
		Int64N:          rand.Int64N,
	}
	for _, opt := range configOpts {
		opt(cfg)
	}

	enumerator := crawler.NewEnumerator(deps.Fetcher,
		crawler.WithEnumeratorLogger(p.logger),
	)
	extractor := crawler.NewExtractor(deps.Fetcher,
		crawler.WithTitleSelector(cfg.TitleSelector),
		crawler.WithContentSelector(cfg.ContentSelector),
		crawler.WithPreserveLineBreaks(cfg.PreserveLineBreaks),
		crawler.WithExtractorLogger(p.logger),
	)

	p.AddSteps(
		&PrepareStep{recorder: p.recorder, resume: cfg.Resume, logger: p.logger},
		&EnumerateStep{enumerator: enumerator, logger: p.logger},
		&ChaptersStep{
			extractor:  extractor,
			recorder:   p.recorder,
			clock:      deps.Clock,
			writeTitle: cfg.WriteTitle,
			delayMin:   cfg.DelayMin,
			delayMax:   cfg.DelayMax,
			int64N:     cfg.Int64N,
			observer:   cfg.Observer,
			logger:     p.logger,
		},
	)
	return p
}

// PrepareStep readies the output file.
// A fresh run deletes the file and the stored cursor. A resumed run keeps
// both and records the cursor it resumes after.
type PrepareStep struct {
	recorder Recorder
	resume   bool
	logger   *slog.Logger
}

// Name returns the step name.
func (s *PrepareStep) Name() string {
	return "prepare"
}

// Do executes the prepare step.
func (s *PrepareStep) Do(ctx context.Context, run *model.Run) error {
	if run.OutputPath == "" {
		return errors.New("output path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(run.OutputPath), 0o750); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}

	if s.resume {
		cursor, err := s.recorder.Cursor(ctx, run.Work.Slug)
		if err != nil {
			return fmt.Errorf("read cursor: %w", err)
		}
		run.ResumedFrom = cursor
		if cursor > 0 {
			s.logger.Info("resuming", "slug", run.Work.Slug, "after", cursor)
		}
		return nil
	}

	if err := crawler.NewWriter(run.OutputPath).Reset(); err != nil {
		return err
	}
	if err := s.recorder.ResetCursor(ctx, run.Work.Slug); err != nil {
		return fmt.Errorf("reset cursor: %w", err)
	}
	return nil
}

// EnumerateStep lists the chapter addresses of the work.
type EnumerateStep struct {
	enumerator *crawler.Enumerator
	logger     *slog.Logger
}

// Name returns the step name.
func (s *EnumerateStep) Name() string {
	return "enumerate"
}

// Do executes the enumerate step.
func (s *EnumerateStep) Do(ctx context.Context, run *model.Run) error {
	e, err := s.enumerator.Enumerate(ctx, run.Work)
	if err != nil {
		return err
	}
	run.Pattern = e.Pattern
	run.Addresses = e.Addresses
	s.logger.Debug("enumerated chapters", "slug", run.Work.Slug, "pattern", e.Pattern, "count", e.Count)
	return nil
}

// ChaptersStep extracts and saves every enumerated chapter in order.
type ChaptersStep struct {
	extractor  *crawler.Extractor
	recorder   Recorder
	clock      clock.Clock
	writeTitle bool
	delayMin   time.Duration
	delayMax   time.Duration
	int64N     func(n int64) int64
	observer   ChapterObserver
	logger     *slog.Logger
}

// Name returns the step name.
func (s *ChaptersStep) Name() string {
	return "chapters"
}

// Do executes the chapters step.
// An absent page or a page lacking the title or content is recorded and
// skipped. Any other error ends the run.
func (s *ChaptersStep) Do(ctx context.Context, run *model.Run) error {
	writer := crawler.NewWriter(run.OutputPath, crawler.WithWriteTitle(s.writeTitle))

	for i, url := range run.Addresses {
		if err := ctx.Err(); err != nil {
			return err
		}

		index := i + 1
		if index <= run.ResumedFrom {
			result := model.NewChapterResult(index, url, model.ChapterStatusSkipped)
			run.Record(result)
			s.notify(run, result)
			continue
		}

		result, err := s.process(ctx, writer, index, url)
		if err != nil {
			return err
		}
		run.Record(result)

		if err := s.recorder.RecordChapter(ctx, run, result); err != nil {
			return fmt.Errorf("record chapter %d: %w", index, err)
		}
		s.notify(run, result)

		if result.Status == model.ChapterStatusSaved {
			if err := s.pause(ctx); err != nil {
				return err
			}
		}
	}
	return nil
}

func (s *ChaptersStep) process(ctx context.Context, writer *crawler.Writer, index int, url string) (*model.ChapterResult, error) {
	ch, err := s.extractor.Extract(ctx, url)
	if err != nil {
		if !fetch.IsAbsent(err) {
			return nil, err
		}
		s.logger.Error("could not get content", "url", url)
		result := model.NewChapterResult(index, url, model.ChapterStatusFetchFailed)
		result.Error = err.Error()
		return result, nil
	}
	ch.Index = index

	if !ch.Complete() {
		s.logger.Error("could not get content", "url", url)
		result := model.NewChapterResult(index, url, model.ChapterStatusMissingContent)
		result.Title = ch.Title
		result.Error = missingElement(ch)
		return result, nil
	}

	n, err := writer.Write(ch)
	if err != nil {
		return nil, err
	}
	s.logger.Info("saved", "title", ch.Title)

	result := model.NewChapterResult(index, url, model.ChapterStatusSaved)
	result.Title = ch.Title
	result.Bytes = n
	result.ContentHash = database.ContentHash(ch.Body)
	return result, nil
}

func (s *ChaptersStep) notify(run *model.Run, result *model.ChapterResult) {
	if s.observer != nil {
		s.observer(run, result)
	}
}

// pause waits for a random delay or until ctx is done.
func (s *ChaptersStep) pause(ctx context.Context) error {
	d := RandomDelay(s.delayMin, s.delayMax, s.int64N)
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-s.clock.After(d):
		return nil
	}
}

// RandomDelay draws a duration uniformly from [lo, hi] using int64N.
// When both bounds are whole seconds the result is a whole number of
// seconds. A reversed range is treated as hi.
func RandomDelay(lo, hi time.Duration, int64N func(n int64) int64) time.Duration {
	if hi <= 0 {
		return 0
	}
	if lo < 0 {
		lo = 0
	}
	if lo >= hi {
		return hi
	}
	if lo%time.Second == 0 && hi%time.Second == 0 {
		secs := int64((hi - lo) / time.Second)
		return lo + time.Duration(int64N(secs+1))*time.Second
	}
	return lo + time.Duration(int64N(int64(hi-lo)+1))
}

func missingElement(ch *model.Chapter) string {
	switch {
	case !ch.HasTitle() && !ch.HasBody():
		return "title and content not found"
	case !ch.HasTitle():
		return "title not found"
	default:
		return "content not found"
	}
}

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"slices"
	"sync"
	"syscall"
	"time"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/nao1215/storycrawl/internal/config"
	"github.com/nao1215/storycrawl/internal/database"
	"github.com/nao1215/storycrawl/internal/fetch"
	"github.com/nao1215/storycrawl/internal/log"
	"github.com/nao1215/storycrawl/internal/model"
	"github.com/nao1215/storycrawl/internal/pipeline"
)

// errResumeWithoutDB is returned when --resume is combined with --no-db.
var errResumeWithoutDB = errors.New("resume needs the progress database: drop --no-db or save_to_db: false")

// NewCrawlCmd creates the crawl command.
func NewCrawlCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "crawl [slug...]",
		Short: "Download every chapter of one or more works",
		Long: `Crawl reads the landing page of each work, finds its chapter count and
downloads chapters 1..N in order. The text of every chapter that has both a
title and a content container is appended to {output-dir}/{slug}.txt,
followed by a blank line. Chapters that are missing or unavailable are
logged and skipped.

The output file is deleted at the start of a run unless --resume is given,
in which case the crawl continues after the last processed chapter recorded
in the progress database.

Examples:
  # Crawl a single work into ./stories/tien-nghich.txt
  storycrawl crawl tien-nghich

  # Crawl every work listed in the configuration file, two at a time
  storycrawl crawl -j 2

  # Continue an interrupted crawl with a progress bar
  storycrawl crawl --resume --progress tien-nghich

  # Crawl from another site with faster pacing
  storycrawl crawl --source-root https://example.com/truyen --delay-min 500ms --delay-max 1s my-work`,
		Args: cobra.ArbitraryArgs,
		RunE: runCrawlCmd,
	}

	f := cmd.Flags()
	f.String("source-root", config.DefaultSourceRoot, "Site that work slugs are appended to")
	f.StringP("output-dir", "o", config.DefaultOutputDir, "Directory for {slug}.txt files")
	f.Duration("delay-min", config.DefaultDelayMin, "Minimum pause after each saved chapter")
	f.Duration("delay-max", config.DefaultDelayMax, "Maximum pause after each saved chapter")
	f.Int("retries", config.DefaultRetries, "Extra attempts for transport errors, 429 and 5xx responses")
	f.Duration("retry-wait", config.DefaultRetryWait, "Initial wait between attempts")
	f.Duration("retry-max-wait", config.DefaultRetryMaxWait, "Maximum wait between attempts")
	f.Float64("rate-limit", 0, "Maximum requests per second (0 = unlimited)")
	f.DurationP("timeout", "t", 0, "Timeout for each request (0 = none)")
	f.String("user-agent", config.DefaultUserAgent, "User-Agent header")
	f.Int64("max-body-size", config.DefaultMaxBodySize, "Maximum bytes read per page")
	f.Bool("write-title", false, "Write each chapter title before its body")
	f.Bool("preserve-line-breaks", false, "Turn <br> elements into newlines")
	f.String("title-selector", config.DefaultTitleSelector, "CSS selector of the chapter title")
	f.String("content-selector", config.DefaultContentSelector, "CSS selector of the chapter body")
	f.Bool("resume", false, "Continue after the last processed chapter")
	f.IntP("concurrency", "j", config.DefaultConcurrency, "Number of works crawled at the same time")
	f.String("db-dir", "", "Progress database directory (default: XDG data directory)")
	f.Bool("no-db", false, "Do not record progress in the database")
	f.BoolP("progress", "p", false, "Show a progress bar per work on stderr")

	return cmd
}

func runCrawlCmd(cmd *cobra.Command, args []string) error {
	cfg, err := buildCrawlConfig(cmd, args)
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	if cfg.Resume && !cfg.SaveToDB {
		return errResumeWithoutDB
	}

	logger := log.NewLogger(cmd.OutOrStdout(), cfg.Verbose, cfg.LogFormat)

	parent := cmd.Context()
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	defer stop()

	return runCrawl(ctx, cfg, logger, cmd.ErrOrStderr())
}

// buildCrawlConfig layers command-line flags over the configuration file.
// Only flags the user actually set override file values.
// perWorkFlags maps flags to the per-work options they pin.
var perWorkFlags = map[string]string{
	"write-title":          config.OptionWriteTitle,
	"preserve-line-breaks": config.OptionPreserveLineBreaks,
	"title-selector":       config.OptionTitleSelector,
	"content-selector":     config.OptionContentSelector,
}

func buildCrawlConfig(cmd *cobra.Command, args []string) (*config.Config, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}

	f := cmd.Flags()
	var errs []error
	setString := func(name string, dst *string) {
		if f.Changed(name) {
			v, err := f.GetString(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setBool := func(name string, dst *bool) {
		if f.Changed(name) {
			v, err := f.GetBool(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setInt := func(name string, dst *int) {
		if f.Changed(name) {
			v, err := f.GetInt(name)
			errs = append(errs, err)
			*dst = v
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if f.Changed(name) {
			v, err := f.GetDuration(name)
			errs = append(errs, err)
			*dst = v
		}
	}

	setString("source-root", &cfg.SourceRoot)
	setString("output-dir", &cfg.OutputDir)
	setDuration("delay-min", &cfg.DelayMin)
	setDuration("delay-max", &cfg.DelayMax)
	setInt("retries", &cfg.Retries)
	setDuration("retry-wait", &cfg.RetryWait)
	setDuration("retry-max-wait", &cfg.RetryMaxWait)
	setDuration("timeout", &cfg.Timeout)
	setString("user-agent", &cfg.UserAgent)
	setBool("write-title", &cfg.WriteTitle)
	setBool("preserve-line-breaks", &cfg.PreserveLineBreaks)
	setString("title-selector", &cfg.TitleSelector)
	setString("content-selector", &cfg.ContentSelector)
	setBool("resume", &cfg.Resume)
	setInt("concurrency", &cfg.Concurrency)
	setString("db-dir", &cfg.DBDir)
	setBool("progress", &cfg.Progress)

	if f.Changed("rate-limit") {
		v, err := f.GetFloat64("rate-limit")
		errs = append(errs, err)
		cfg.RateLimit = v
	}
	if f.Changed("max-body-size") {
		v, err := f.GetInt64("max-body-size")
		errs = append(errs, err)
		cfg.MaxBodySize = v
	}
	if f.Changed("no-db") {
		v, err := f.GetBool("no-db")
		errs = append(errs, err)
		cfg.SaveToDB = !v
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	for flag, option := range perWorkFlags {
		if f.Changed(flag) {
			cfg.Pin(option)
		}
	}

	cfg.Targets = uniqueTargets(args)
	if len(cfg.Targets) == 0 {
		cfg.Targets = cfg.File.Slugs()
	}
	return cfg, nil
}

// uniqueTargets drops repeated slugs so no two pipelines share an output file.
func uniqueTargets(args []string) []string {
	out := make([]string, 0, len(args))
	for _, a := range args {
		if !slices.Contains(out, a) {
			out = append(out, a)
		}
	}
	return out
}

// runCrawl crawls every target and returns the aggregated failures.
func runCrawl(ctx context.Context, cfg *config.Config, logger *slog.Logger, progressOut io.Writer) error {
	settings := make(map[string]config.WorkSettings, len(cfg.Targets))
	jobs := make([]pipeline.Job, 0, len(cfg.Targets))
	for _, slug := range cfg.Targets {
		ws, err := cfg.ResolveWork(slug)
		if err != nil {
			return err
		}
		settings[slug] = ws
		jobs = append(jobs, pipeline.Job{Work: ws.Work, OutputPath: ws.OutputPath})
	}

	var recorder pipeline.Recorder
	if cfg.SaveToDB {
		db, err := database.Open(cfg.DBDir, database.DefaultOptions())
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		defer db.Close() //nolint:errcheck // nothing left to flush after the batch
		logger.Debug("database opened", "path", db.Path())
		recorder = db
	}

	factory := func(job pipeline.Job) *pipeline.Pipeline {
		ws := settings[job.Work.Slug]
		workLogger := logger.With("slug", job.Work.Slug)

		client := fetch.New(
			fetch.WithUserAgent(cfg.UserAgent),
			fetch.WithHeaders(ws.Headers),
			fetch.WithCookie(ws.Cookie),
			fetch.WithRetry(cfg.Retries, cfg.RetryWait, cfg.RetryMaxWait),
			fetch.WithRateLimit(cfg.RateLimit),
			fetch.WithTimeout(cfg.Timeout),
			fetch.WithMaxBodySize(cfg.MaxBodySize),
			fetch.WithLogger(workLogger),
		)

		opts := []pipeline.DefaultPipelineOption{
			pipeline.WithPipelineDelay(cfg.DelayMin, cfg.DelayMax),
			pipeline.WithPipelineResume(cfg.Resume),
			pipeline.WithPipelineWriteTitle(ws.WriteTitle),
			pipeline.WithPipelinePreserveLineBreaks(ws.PreserveLineBreaks),
			pipeline.WithPipelineSelectors(ws.TitleSelector, ws.ContentSelector),
		}
		if cfg.Progress {
			opts = append(opts, pipeline.WithChapterObserver(newProgressObserver(progressOut, job.Work.Slug)))
		}

		return pipeline.DefaultPipeline(
			pipeline.Deps{Fetcher: client, Recorder: recorder},
			[]pipeline.Option{pipeline.WithLogger(workLogger)},
			opts...,
		)
	}

	bp := pipeline.NewBatchProcessor(factory,
		pipeline.WithConcurrency(cfg.Concurrency),
		pipeline.WithBatchLogger(logger),
	)
	_, err := bp.ProcessBatch(ctx, jobs)
	return err
}

// newProgressObserver returns an observer drawing one progress bar for a
// work. The bar is created once the chapter count is known.
func newProgressObserver(w io.Writer, slug string) pipeline.ChapterObserver {
	var (
		once sync.Once
		bar  *progressbar.ProgressBar
	)
	return func(run *model.Run, _ *model.ChapterResult) {
		once.Do(func() {
			bar = progressbar.NewOptions(run.TotalChapters(),
				progressbar.OptionSetWriter(w),
				progressbar.OptionSetDescription(slug),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		})
		_ = bar.Add(1) //nolint:errcheck // rendering errors are not actionable
	}
}

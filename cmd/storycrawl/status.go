package main

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/nao1215/storycrawl/internal/database"
	"github.com/nao1215/storycrawl/internal/model"
	"github.com/nao1215/storycrawl/internal/report"
)

var errHistoryWithoutSlug = errors.New("--history needs a slug")

// NewStatusCmd creates the status command.
func NewStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status [slug]",
		Short: "Show crawl progress recorded in the progress database",
		Long: `Status lists every crawled work with its latest run, how far the crawl got
and how many chapters were saved or failed. Given a slug, it lists the
recorded outcome of each chapter of that work instead, or every recorded
run of it with --history. Repeat --format to render several formats in turn.

Examples:
  # Summary of all works
  storycrawl status

  # Chapter outcomes of one work as Markdown
  storycrawl status tien-nghich --format markdown

  # Every run of one work
  storycrawl status tien-nghich --history

  # Table followed by JSON
  storycrawl status -f text -f json`,
		Args: cobra.MaximumNArgs(1),
		RunE: runStatusCmd,
	}

	cmd.Flags().StringArrayP("format", "f", []string{report.FormatText}, "Output format: text, markdown or json (repeatable)")
	cmd.Flags().Bool("history", false, "List every recorded run of the given work")
	cmd.Flags().String("db-dir", "", "Progress database directory (default: XDG data directory)")

	return cmd
}

func runStatusCmd(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	formats, err := cmd.Flags().GetStringArray("format")
	if err != nil {
		return err
	}
	history, err := cmd.Flags().GetBool("history")
	if err != nil {
		return err
	}
	if history && len(args) == 0 {
		return errHistoryWithoutSlug
	}
	if cmd.Flags().Changed("db-dir") {
		if cfg.DBDir, err = cmd.Flags().GetString("db-dir"); err != nil {
			return err
		}
	}

	w, err := newStatusWriter(formats, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	opts := database.DefaultOptions()
	opts.CreateIfNotExists = false
	db, err := database.Open(cfg.DBDir, opts)
	if errors.Is(err, database.ErrNotFound) {
		return writeEmptyStatus(w, args, history)
	}
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close() //nolint:errcheck // read-only use

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if history {
		runs, err := db.ListRuns(ctx, args[0])
		if err != nil {
			return err
		}
		statuses := make([]model.WorkStatus, 0, len(runs))
		for _, r := range runs {
			statuses = append(statuses, r.Summary())
		}
		_, err = w.WriteStatus(statuses)
		return err
	}

	if len(args) == 1 {
		chapters, err := db.ChapterRecords(ctx, args[0])
		if err != nil {
			return err
		}
		_, err = w.WriteChapters(args[0], chapters)
		return err
	}

	statuses, err := db.ListWorkStatus(ctx)
	if err != nil {
		return err
	}
	_, err = w.WriteStatus(statuses)
	return err
}

// newStatusWriter returns one Writer per format, combined when there are several.
func newStatusWriter(formats []string, out io.Writer) (report.Writer, error) {
	if len(formats) == 0 {
		formats = []string{report.FormatText}
	}
	writers := make([]report.Writer, 0, len(formats))
	for _, f := range formats {
		w, err := report.NewWriter(f, out)
		if err != nil {
			return nil, err
		}
		writers = append(writers, w)
	}
	if len(writers) == 1 {
		return writers[0], nil
	}
	return report.NewMultiWriter(writers...), nil
}

func writeEmptyStatus(w report.Writer, args []string, history bool) error {
	var err error
	if len(args) == 1 && !history {
		_, err = w.WriteChapters(args[0], []model.ChapterResult{})
	} else {
		_, err = w.WriteStatus([]model.WorkStatus{})
	}
	return err
}

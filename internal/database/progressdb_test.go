package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/nao1215/storycrawl/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *ProgressDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestRun(slug string) *model.Run {
	run := model.NewRun(NewRunID(), model.Work{Slug: slug, BaseURL: "https://truyenfull.io/" + slug})
	run.OutputPath = filepath.Join("stories", slug+".txt")
	return run
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false fails on missing database", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("reopens an existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatal(err)
		}
		run := newTestRun("tien-nghich")
		if err := db.StartRun(context.Background(), run); err != nil {
			t.Fatal(err)
		}
		_ = db.Close()

		db2, err := Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("reopen failed: %v", err)
		}
		defer db2.Close()
		if _, err := db2.LatestRun(context.Background(), "tien-nghich"); err != nil {
			t.Errorf("expected stored run, got %v", err)
		}
	})
}

func TestProgressDB_Runs(t *testing.T) {
	t.Parallel()

	t.Run("start and finish a run", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		run := newTestRun("tien-nghich")

		if err := db.StartRun(ctx, run); err != nil {
			t.Fatalf("StartRun: %v", err)
		}
		got, err := db.LatestRun(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.RunStatusRunning {
			t.Errorf("expected running, got %q", got.Status)
		}

		run.Pattern = "chapter-count"
		run.Addresses = []string{"a", "b", "c"}
		run.Saved, run.Failed = 2, 1
		run.FinishedAt = time.Now()
		if err := db.FinishRun(ctx, run); err != nil {
			t.Fatalf("FinishRun: %v", err)
		}

		got, err = db.LatestRun(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.RunStatusCompleted || got.TotalChapters != 3 || got.Saved != 2 || got.Failed != 1 {
			t.Errorf("unexpected run record %+v", got)
		}
		if got.Pattern != "chapter-count" {
			t.Errorf("unexpected pattern %q", got.Pattern)
		}
		if got.FinishedAt.IsZero() || got.StartedAt.IsZero() {
			t.Errorf("expected timestamps, got %+v", got)
		}
	})

	t.Run("failed run keeps its error", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		run := newTestRun("tien-nghich")
		if err := db.StartRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		run.Fail(errors.New("could not find chapter count"))
		run.FinishedAt = time.Now()
		if err := db.FinishRun(ctx, run); err != nil {
			t.Fatal(err)
		}

		got, err := db.LatestRun(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		if got.Status != model.RunStatusFailed || got.Error != "could not find chapter count" {
			t.Errorf("unexpected run record %+v", got)
		}
	})

	t.Run("invalid run ID is rejected", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		run := newTestRun("tien-nghich")
		run.ID = "not-a-uuid"
		if err := db.StartRun(context.Background(), run); !errors.Is(err, ErrInvalidRunID) {
			t.Errorf("expected ErrInvalidRunID, got %v", err)
		}
	})

	t.Run("finishing an unknown run returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if err := db.FinishRun(context.Background(), newTestRun("x")); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("latest run of unknown work returns ErrNotFound", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		if _, err := db.LatestRun(context.Background(), "missing"); !errors.Is(err, ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("runs are listed newest first", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		first := newTestRun("tien-nghich")
		first.StartedAt = time.Now().Add(-time.Hour)
		second := newTestRun("tien-nghich")
		for _, r := range []*model.Run{first, second} {
			if err := db.StartRun(ctx, r); err != nil {
				t.Fatal(err)
			}
		}

		runs, err := db.ListRuns(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		got := []string{runs[0].ID, runs[1].ID}
		if diff := cmp.Diff([]string{second.ID, first.ID}, got); diff != "" {
			t.Errorf("order mismatch (-want +got):\n%s", diff)
		}
		latest, err := db.LatestRun(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		if latest.ID != second.ID {
			t.Errorf("expected latest run %s, got %s", second.ID, latest.ID)
		}
	})
}

func TestProgressDB_ChaptersAndCursor(t *testing.T) {
	t.Parallel()

	t.Run("recording advances the cursor", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		run := newTestRun("tien-nghich")
		if err := db.StartRun(ctx, run); err != nil {
			t.Fatal(err)
		}

		if c, err := db.Cursor(ctx, "tien-nghich"); err != nil || c != 0 {
			t.Fatalf("expected cursor 0, got %d (%v)", c, err)
		}

		saved := model.NewChapterResult(1, "https://truyenfull.io/tien-nghich/chuong-1", model.ChapterStatusSaved)
		saved.Title = "Chương 1"
		saved.Bytes = 10
		saved.ContentHash = ContentHash("body")
		failed := model.NewChapterResult(2, "https://truyenfull.io/tien-nghich/chuong-2", model.ChapterStatusFetchFailed)
		failed.Error = "status 404"

		for _, r := range []*model.ChapterResult{saved, failed} {
			if err := db.RecordChapter(ctx, run, r); err != nil {
				t.Fatalf("RecordChapter(%d): %v", r.Index, err)
			}
		}

		if c, err := db.Cursor(ctx, "tien-nghich"); err != nil || c != 2 {
			t.Errorf("expected cursor 2, got %d (%v)", c, err)
		}

		records, err := db.ChapterRecords(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		want := []model.ChapterResult{*saved, *failed}
		if diff := cmp.Diff(want, records); diff != "" {
			t.Errorf("records mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("skipped chapters keep their earlier outcome", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		run := newTestRun("tien-nghich")
		if err := db.StartRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		if err := db.RecordChapter(ctx, run, model.NewChapterResult(1, "u1", model.ChapterStatusSaved)); err != nil {
			t.Fatal(err)
		}
		if err := db.RecordChapter(ctx, run, model.NewChapterResult(1, "u1", model.ChapterStatusSkipped)); err != nil {
			t.Fatal(err)
		}

		records, err := db.ChapterRecords(ctx, "tien-nghich")
		if err != nil {
			t.Fatal(err)
		}
		if len(records) != 1 || records[0].Status != model.ChapterStatusSaved {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("rerecording a chapter overwrites it", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		run := newTestRun("tien-nghich")
		if err := db.StartRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		_ = db.RecordChapter(ctx, run, model.NewChapterResult(1, "u1", model.ChapterStatusFetchFailed))
		if err := db.RecordChapter(ctx, run, model.NewChapterResult(1, "u1", model.ChapterStatusSaved)); err != nil {
			t.Fatal(err)
		}
		records, _ := db.ChapterRecords(ctx, "tien-nghich")
		if len(records) != 1 || records[0].StatusText != "saved" {
			t.Errorf("unexpected records %+v", records)
		}
	})

	t.Run("reset clears cursor and chapters of one work only", func(t *testing.T) {
		t.Parallel()

		db := setupTestDB(t)
		ctx := context.Background()
		a := newTestRun("a")
		b := newTestRun("b")
		for _, r := range []*model.Run{a, b} {
			if err := db.StartRun(ctx, r); err != nil {
				t.Fatal(err)
			}
			if err := db.RecordChapter(ctx, r, model.NewChapterResult(1, "u", model.ChapterStatusSaved)); err != nil {
				t.Fatal(err)
			}
		}

		if err := db.ResetCursor(ctx, "a"); err != nil {
			t.Fatal(err)
		}
		if c, _ := db.Cursor(ctx, "a"); c != 0 {
			t.Errorf("expected cursor of a to be reset, got %d", c)
		}
		if recs, _ := db.ChapterRecords(ctx, "a"); len(recs) != 0 {
			t.Errorf("expected no chapters for a, got %d", len(recs))
		}
		if c, _ := db.Cursor(ctx, "b"); c != 1 {
			t.Errorf("expected cursor of b to stay, got %d", c)
		}
	})
}

func TestProgressDB_ListWorkStatus(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	for _, slug := range []string{"xuan-ha-thu-dong-roi-lai-xuan", "tien-nghich"} {
		run := newTestRun(slug)
		if err := db.StartRun(ctx, run); err != nil {
			t.Fatal(err)
		}
		run.Addresses = []string{"1", "2"}
		for i, st := range []model.ChapterStatus{model.ChapterStatusSaved, model.ChapterStatusMissingContent} {
			r := model.NewChapterResult(i+1, "u", st)
			run.Record(r)
			if err := db.RecordChapter(ctx, run, r); err != nil {
				t.Fatal(err)
			}
		}
		run.FinishedAt = time.Now()
		if err := db.FinishRun(ctx, run); err != nil {
			t.Fatal(err)
		}
	}

	statuses, err := db.ListWorkStatus(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(statuses) != 2 {
		t.Fatalf("expected 2 statuses, got %d", len(statuses))
	}
	if statuses[0].Slug != "tien-nghich" {
		t.Errorf("expected slug order, got %q first", statuses[0].Slug)
	}
	for _, st := range statuses {
		if st.Saved != 1 || st.Failed != 1 || st.Cursor != 2 || st.TotalChapters != 2 {
			t.Errorf("unexpected status %+v", st)
		}
		if !st.Complete() {
			t.Errorf("expected %s to be complete", st.Slug)
		}
		if st.LastRunStatus != model.RunStatusCompleted {
			t.Errorf("unexpected run status %q", st.LastRunStatus)
		}
	}
}

func TestContentHash(t *testing.T) {
	t.Parallel()

	h := ContentHash("nội dung")
	if len(h) != 64 {
		t.Errorf("expected 64 hex characters, got %d", len(h))
	}
	if h != ContentHash("nội dung") {
		t.Error("expected deterministic hash")
	}
	if h == ContentHash("nội dung khác") {
		t.Error("expected different hashes for different bodies")
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 2, 3, 4, 5, 600, time.UTC)
	if got := parseTimestamp(formatTimestamp(ts)); !got.Equal(ts) {
		t.Errorf("expected %v, got %v", ts, got)
	}
	if got := parseTimestamp(""); !got.IsZero() {
		t.Errorf("expected zero time, got %v", got)
	}
	if got := parseTimestamp("2026-01-02 03:04:05"); got.IsZero() {
		t.Error("expected SQLite datetime to parse")
	}
}

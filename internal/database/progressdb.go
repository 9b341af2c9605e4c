package database

import (
	"context"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/storycrawl/internal/model"
)

// FileName is the database file name inside the database directory.
const FileName = "storycrawl.db"

var (
	// ErrNotFound is returned when a requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrInvalidRunID is returned when a run ID is not a UUID.
	ErrInvalidRunID = errors.New("invalid run ID: must be a UUID")
)

// ProgressDB stores runs, chapter outcomes and resume cursors.
// It is safe for concurrent use.
type ProgressDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures ProgressDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file if missing.
	CreateIfNotExists bool

	// EnableWAL enables write-ahead logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the progress database in dbDir.
func Open(dbDir string, opts Options) (*ProgressDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	if !opts.CreateIfNotExists {
		if _, err := os.Stat(dbPath); os.IsNotExist(err) {
			return nil, fmt.Errorf("database not found at %s: %w", dbPath, ErrNotFound)
		} else if err != nil {
			return nil, fmt.Errorf("failed to check database path: %w", err)
		}
	} else if err := os.MkdirAll(dbDir, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		dsn = dbPath + "?mode=rwc"
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	pdb := &ProgressDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}
	if err := pdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}
	return pdb, nil
}

// Path returns the database file path.
func (p *ProgressDB) Path() string {
	return p.dbPath
}

// Close closes the database connection.
func (p *ProgressDB) Close() error {
	return p.db.Close()
}

func (p *ProgressDB) createTables() error {
	schema := `
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		slug TEXT NOT NULL,
		base_url TEXT NOT NULL,
		output_path TEXT NOT NULL,
		pattern TEXT NOT NULL DEFAULT '',
		total_chapters INTEGER NOT NULL DEFAULT 0,
		resumed_from INTEGER NOT NULL DEFAULT 0,
		status TEXT NOT NULL,
		saved INTEGER NOT NULL DEFAULT 0,
		failed INTEGER NOT NULL DEFAULT 0,
		skipped INTEGER NOT NULL DEFAULT 0,
		error TEXT NOT NULL DEFAULT '',
		started_at TEXT NOT NULL,
		finished_at TEXT NOT NULL DEFAULT ''
	);

	CREATE INDEX IF NOT EXISTS idx_runs_slug ON runs(slug, started_at);

	CREATE TABLE IF NOT EXISTS chapters (
		slug TEXT NOT NULL,
		idx INTEGER NOT NULL,
		url TEXT NOT NULL,
		title TEXT NOT NULL DEFAULT '',
		status TEXT NOT NULL,
		bytes INTEGER NOT NULL DEFAULT 0,
		content_hash TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		run_id TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (slug, idx)
	);

	CREATE TABLE IF NOT EXISTS cursors (
		slug TEXT PRIMARY KEY,
		last_index INTEGER NOT NULL,
		updated_at TEXT NOT NULL
	);
	`
	_, err := p.db.ExecContext(context.Background(), schema)
	return err
}

// NewRunID returns a fresh run identifier.
func NewRunID() string {
	return uuid.NewString()
}

// ContentHash returns the hex BLAKE2b-256 digest of body.
func ContentHash(body string) string {
	sum := blake2b.Sum256([]byte(body))
	return hex.EncodeToString(sum[:])
}

// StartRun inserts run with status "running".
func (p *ProgressDB) StartRun(ctx context.Context, run *model.Run) error {
	if _, err := uuid.Parse(run.ID); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidRunID, run.ID)
	}

	query := `
	INSERT INTO runs (id, slug, base_url, output_path, resumed_from, status, started_at)
	VALUES (?, ?, ?, ?, ?, ?, ?)
	`
	_, err := p.db.ExecContext(ctx, query,
		run.ID, run.Work.Slug, run.Work.BaseURL, run.OutputPath,
		run.ResumedFrom, model.RunStatusRunning, formatTimestamp(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}
	return nil
}

// FinishRun stores the final counters and status of run.
func (p *ProgressDB) FinishRun(ctx context.Context, run *model.Run) error {
	query := `
	UPDATE runs SET
		pattern = ?, total_chapters = ?, resumed_from = ?, status = ?,
		saved = ?, failed = ?, skipped = ?, error = ?, finished_at = ?
	WHERE id = ?
	`
	res, err := p.db.ExecContext(ctx, query,
		run.Pattern, run.TotalChapters(), run.ResumedFrom, run.StatusText(),
		run.Saved, run.Failed, run.Skipped, run.ErrorMessage, formatTimestamp(run.FinishedAt),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("run %s: %w", run.ID, ErrNotFound)
	}
	return nil
}

// RecordChapter stores the outcome of one chapter and advances the work's
// cursor to its index. Skipped chapters are not stored; their earlier
// outcome stays in place.
func (p *ProgressDB) RecordChapter(ctx context.Context, run *model.Run, result *model.ChapterResult) (err error) {
	if result.Status == model.ChapterStatusSkipped {
		return nil
	}

	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	now := formatTimestamp(time.Now())
	chapterQuery := `
	INSERT INTO chapters (slug, idx, url, title, status, bytes, content_hash, error, run_id, updated_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT(slug, idx) DO UPDATE SET
		url = excluded.url,
		title = excluded.title,
		status = excluded.status,
		bytes = excluded.bytes,
		content_hash = excluded.content_hash,
		error = excluded.error,
		run_id = excluded.run_id,
		updated_at = excluded.updated_at
	`
	if _, err = tx.ExecContext(ctx, chapterQuery,
		run.Work.Slug, result.Index, result.URL, result.Title, result.Status.String(),
		result.Bytes, result.ContentHash, result.Error, run.ID, now,
	); err != nil {
		return fmt.Errorf("failed to record chapter %d: %w", result.Index, err)
	}

	cursorQuery := `
	INSERT INTO cursors (slug, last_index, updated_at) VALUES (?, ?, ?)
	ON CONFLICT(slug) DO UPDATE SET last_index = excluded.last_index, updated_at = excluded.updated_at
	`
	if _, err = tx.ExecContext(ctx, cursorQuery, run.Work.Slug, result.Index, now); err != nil {
		return fmt.Errorf("failed to advance cursor: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit chapter %d: %w", result.Index, err)
	}
	return nil
}

// Cursor returns the last processed chapter index of slug, or 0.
func (p *ProgressDB) Cursor(ctx context.Context, slug string) (int, error) {
	var last int
	err := p.db.QueryRowContext(ctx, `SELECT last_index FROM cursors WHERE slug = ?`, slug).Scan(&last)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read cursor: %w", err)
	}
	return last, nil
}

// ResetCursor forgets the cursor and chapter outcomes of slug.
// It is called when a fresh crawl truncates the output file.
func (p *ProgressDB) ResetCursor(ctx context.Context, slug string) (err error) {
	tx, err := p.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM cursors WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("failed to delete cursor: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM chapters WHERE slug = ?`, slug); err != nil {
		return fmt.Errorf("failed to delete chapters: %w", err)
	}
	return tx.Commit()
}

// RunRecord is a stored run.
type RunRecord struct {
	ID            string
	Slug          string
	BaseURL       string
	OutputPath    string
	Pattern       string
	TotalChapters int
	ResumedFrom   int
	Status        string
	Saved         int
	Failed        int
	Skipped       int
	Error         string
	StartedAt     time.Time
	FinishedAt    time.Time
}

// Summary renders the run as a status row. Cursor is the last chapter index
// the run reached.
func (r RunRecord) Summary() model.WorkStatus {
	return model.WorkStatus{
		Slug:          r.Slug,
		BaseURL:       r.BaseURL,
		LastRunID:     r.ID,
		LastRunStatus: r.Status,
		LastRunAt:     r.StartedAt,
		Pattern:       r.Pattern,
		TotalChapters: r.TotalChapters,
		Cursor:        r.Skipped + r.Saved + r.Failed,
		Saved:         r.Saved,
		Failed:        r.Failed,
		LastError:     r.Error,
	}
}

// LatestRun returns the most recently started run of slug.
func (p *ProgressDB) LatestRun(ctx context.Context, slug string) (*RunRecord, error) {
	query := `
	SELECT id, slug, base_url, output_path, pattern, total_chapters, resumed_from,
		status, saved, failed, skipped, error, started_at, finished_at
	FROM runs WHERE slug = ?
	ORDER BY started_at DESC, rowid DESC
	LIMIT 1
	`
	rec, err := scanRun(p.db.QueryRowContext(ctx, query, slug))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("run for %q: %w", slug, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read run: %w", err)
	}
	return rec, nil
}

// ListRuns returns every run of slug, newest first.
func (p *ProgressDB) ListRuns(ctx context.Context, slug string) ([]RunRecord, error) {
	query := `
	SELECT id, slug, base_url, output_path, pattern, total_chapters, resumed_from,
		status, saved, failed, skipped, error, started_at, finished_at
	FROM runs WHERE slug = ?
	ORDER BY started_at DESC, rowid DESC
	`
	rows, err := p.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		rec, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		runs = append(runs, *rec)
	}
	return runs, rows.Err()
}

// ChapterRecords returns the stored chapter outcomes of slug in index order.
func (p *ProgressDB) ChapterRecords(ctx context.Context, slug string) ([]model.ChapterResult, error) {
	query := `
	SELECT idx, url, title, status, bytes, content_hash, error
	FROM chapters WHERE slug = ?
	ORDER BY idx
	`
	rows, err := p.db.QueryContext(ctx, query, slug)
	if err != nil {
		return nil, fmt.Errorf("failed to query chapters: %w", err)
	}
	defer rows.Close()

	results := make([]model.ChapterResult, 0)
	for rows.Next() {
		var (
			r      model.ChapterResult
			status string
		)
		if err := rows.Scan(&r.Index, &r.URL, &r.Title, &status, &r.Bytes, &r.ContentHash, &r.Error); err != nil {
			return nil, fmt.Errorf("failed to scan chapter: %w", err)
		}
		st, err := model.ParseChapterStatus(status)
		if err != nil {
			return nil, err
		}
		r.SetStatus(st)
		results = append(results, r)
	}
	return results, rows.Err()
}

// ListWorkStatus summarizes every work that has at least one run,
// ordered by slug.
func (p *ProgressDB) ListWorkStatus(ctx context.Context) ([]model.WorkStatus, error) {
	rows, err := p.db.QueryContext(ctx, `SELECT DISTINCT slug FROM runs ORDER BY slug`)
	if err != nil {
		return nil, fmt.Errorf("failed to query works: %w", err)
	}
	var slugs []string
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			_ = rows.Close()
			return nil, fmt.Errorf("failed to scan slug: %w", err)
		}
		slugs = append(slugs, s)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}

	statuses := make([]model.WorkStatus, 0, len(slugs))
	for _, slug := range slugs {
		st, err := p.WorkStatus(ctx, slug)
		if err != nil {
			return nil, err
		}
		statuses = append(statuses, *st)
	}
	return statuses, nil
}

// WorkStatus summarizes one work.
func (p *ProgressDB) WorkStatus(ctx context.Context, slug string) (*model.WorkStatus, error) {
	run, err := p.LatestRun(ctx, slug)
	if err != nil {
		return nil, err
	}
	cursor, err := p.Cursor(ctx, slug)
	if err != nil {
		return nil, err
	}

	st := &model.WorkStatus{
		Slug:          slug,
		BaseURL:       run.BaseURL,
		LastRunID:     run.ID,
		LastRunStatus: run.Status,
		LastRunAt:     run.StartedAt,
		Pattern:       run.Pattern,
		TotalChapters: run.TotalChapters,
		Cursor:        cursor,
		LastError:     run.Error,
	}

	query := `
	SELECT
		COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		COALESCE(SUM(CASE WHEN status IN (?, ?) THEN 1 ELSE 0 END), 0)
	FROM chapters WHERE slug = ?
	`
	if err := p.db.QueryRowContext(ctx, query,
		model.ChapterStatusSaved.String(),
		model.ChapterStatusMissingContent.String(), model.ChapterStatusFetchFailed.String(),
		slug,
	).Scan(&st.Saved, &st.Failed); err != nil {
		return nil, fmt.Errorf("failed to count chapters: %w", err)
	}
	return st, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*RunRecord, error) {
	var (
		rec                 RunRecord
		started, finished string
	)
	if err := row.Scan(
		&rec.ID, &rec.Slug, &rec.BaseURL, &rec.OutputPath, &rec.Pattern, &rec.TotalChapters, &rec.ResumedFrom,
		&rec.Status, &rec.Saved, &rec.Failed, &rec.Skipped, &rec.Error, &started, &finished,
	); err != nil {
		return nil, err
	}
	rec.StartedAt = parseTimestamp(started)
	rec.FinishedAt = parseTimestamp(finished)
	return &rec, nil
}

// timestampLayout has fixed-width fractions so stored values sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	"2006-01-02 15:04:05.999",
}

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// parseTimestamp tries each known format and returns the zero time when
// none matches.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

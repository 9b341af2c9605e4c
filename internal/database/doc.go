// Package database stores crawl progress in SQLite.
//
// The ProgressDB keeps three tables:
//   - runs: one row per crawl of a work, identified by a UUID
//   - chapters: the latest outcome for each (slug, chapter index)
//   - cursors: the last processed chapter index per work
//
// The cursor is what lets an interrupted crawl resume: with resume enabled
// the orchestrator skips every chapter at or below it and keeps the output
// file. A fresh crawl resets the cursor together with the chapter rows.
//
// modernc.org/sqlite is used so the binary stays CGO-free. The connection
// pool is limited to one connection because SQLite has a single writer.
package database

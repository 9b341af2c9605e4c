// Package model defines the data structures shared by the storycrawl packages.
//
// This package contains the following main types:
//   - Work: A serialized fiction title identified by slug and base address
//   - Chapter: One sequentially numbered unit of a Work
//   - ChapterResult: The outcome of processing one chapter address
//   - Run: The transient state of one crawl of one Work
//   - WorkStatus: A per-work summary read back from the progress database
//
// None of these types persist past a run on their own; the database package
// stores what is needed to resume and to report status.
package model

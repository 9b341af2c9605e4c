// Package pipeline drives the crawl of a work.
//
// A Pipeline runs its steps in order over one model.Run and stops at the
// first failing step. DefaultPipeline assembles the crawl of one work:
//
//  1. prepare: create the output directory, then either delete the output
//     file and reset the cursor, or, when resuming, load the cursor
//  2. enumerate: read the landing page and list the chapter addresses
//  3. chapters: extract each address in order, append complete chapters,
//     and pause for a random delay after each saved chapter
//
// Chapters of one work are never fetched concurrently. BatchProcessor runs
// the pipelines of several works with a concurrency limit; works never share
// an output file.
package pipeline

// Package report renders crawl progress stored in the progress database.
//
// Writers exist for a plain text table (SimpleWriter), Markdown
// (MarkdownWriter) and JSON (JSONWriter). All of them implement Writer, so
// the status command picks one by name with NewWriter.
package report

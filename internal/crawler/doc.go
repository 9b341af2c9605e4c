// Package crawler turns the pages of one work into text.
//
// # Components
//
//   - Enumerator: reads the work's landing page, finds the declared chapter
//     count with an ordered list of patterns and synthesizes the chapter
//     addresses {base}/chuong-{i} for i = 1..N.
//   - Extractor: fetches one chapter page and takes the text of the title
//     element and the content container.
//   - Writer: appends chapter bodies to the work's output file.
//
// The declared count is trusted as-is. Addresses are never reconciled with
// the chapters that actually exist; a missing chapter shows up later as a
// fetch failure for its address.
//
// # Usage
//
//	client := fetch.New()
//	enum, err := crawler.NewEnumerator(client).Enumerate(ctx, work)
//	ch, err := crawler.NewExtractor(client).Extract(ctx, enum.Addresses[0])
//	n, err := crawler.NewWriter(work.OutputPath("stories")).Write(ch)
package crawler

import "context"

// Fetcher retrieves the body of a page.
// *fetch.Client implements it. A non-200 response must be reported with an
// error matching fetch.ErrUnexpectedStatus.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

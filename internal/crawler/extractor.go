package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/nao1215/storycrawl/internal/fetch"
	"github.com/nao1215/storycrawl/internal/log"
	"github.com/nao1215/storycrawl/internal/model"
)

// Default selectors for the source site's chapter pages.
const (
	DefaultTitleSelector   = "h1"
	DefaultContentSelector = "div.chapter-c"
)

// Extractor fetches chapter pages and extracts their title and body.
type Extractor struct {
	fetcher            Fetcher
	titleSelector      string
	contentSelector    string
	preserveLineBreaks bool
	logger             *slog.Logger
}

// ExtractorOption configures an Extractor.
type ExtractorOption func(*Extractor)

// WithTitleSelector sets the CSS selector of the title element.
func WithTitleSelector(sel string) ExtractorOption {
	return func(x *Extractor) {
		if sel != "" {
			x.titleSelector = sel
		}
	}
}

// WithContentSelector sets the CSS selector of the content container.
func WithContentSelector(sel string) ExtractorOption {
	return func(x *Extractor) {
		if sel != "" {
			x.contentSelector = sel
		}
	}
}

// WithPreserveLineBreaks turns <br> elements into newlines in the body.
func WithPreserveLineBreaks(v bool) ExtractorOption {
	return func(x *Extractor) {
		x.preserveLineBreaks = v
	}
}

// WithExtractorLogger sets the logger.
func WithExtractorLogger(l *slog.Logger) ExtractorOption {
	return func(x *Extractor) {
		if l != nil {
			x.logger = l
		}
	}
}

// NewExtractor creates an Extractor reading pages through f.
func NewExtractor(f Fetcher, opts ...ExtractorOption) *Extractor {
	x := &Extractor{
		fetcher:         f,
		titleSelector:   DefaultTitleSelector,
		contentSelector: DefaultContentSelector,
		logger:          log.Discard(),
	}
	for _, opt := range opts {
		opt(x)
	}
	return x
}

// Extract fetches the chapter at url.
//
// If the page is absent the returned chapter has an empty title and body
// and the error matches fetch.ErrUnexpectedStatus. Transport errors are
// returned as-is with a nil chapter.
func (x *Extractor) Extract(ctx context.Context, url string) (*model.Chapter, error) {
	page, err := x.fetcher.Fetch(ctx, url)
	if err != nil {
		if fetch.IsAbsent(err) {
			x.logger.Error("could not retrieve HTML content", "url", url)
			return &model.Chapter{URL: url}, err
		}
		return nil, err
	}
	return x.Parse(url, page)
}

// Parse extracts the title and body from an already fetched page.
// A missing element leaves the corresponding field empty.
func (x *Extractor) Parse(url, page string) (*model.Chapter, error) {
	root, err := html.Parse(strings.NewReader(page))
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", url, err)
	}
	doc := goquery.NewDocumentFromNode(root)

	ch := &model.Chapter{URL: url}

	if title := doc.Find(x.titleSelector).First(); title.Length() > 0 {
		ch.Title = title.Text()
	}

	content := doc.Find(x.contentSelector).First()
	if content.Length() == 0 {
		x.logger.Warn("could not parse content", "url", url, "selector", x.contentSelector)
		return ch, nil
	}
	if x.preserveLineBreaks {
		content.Find("br").Each(func(_ int, br *goquery.Selection) {
			replaceWithNewline(br.Get(0))
		})
	}
	ch.Body = content.Text()

	return ch, nil
}

// replaceWithNewline swaps n for a "\n" text node.
func replaceWithNewline(n *html.Node) {
	if n.Parent == nil {
		return
	}
	n.Parent.InsertBefore(&html.Node{Type: html.TextNode, Data: "\n"}, n)
	n.Parent.RemoveChild(n)
}

package crawler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"

	"golang.org/x/text/unicode/norm"

	"github.com/nao1215/storycrawl/internal/fetch"
	"github.com/nao1215/storycrawl/internal/log"
	"github.com/nao1215/storycrawl/internal/model"
)

var (
	// ErrLandingUnavailable is returned when the landing page answered with a
	// non-200 status.
	ErrLandingUnavailable = errors.New("landing page unavailable")

	// ErrNoChapterCount is returned when no count pattern matches the landing page.
	ErrNoChapterCount = errors.New("could not find chapter count")

	// ErrNoChapters is returned when the declared chapter count is zero.
	ErrNoChapters = errors.New("no chapters found")
)

// CountPattern finds the declared chapter count in a landing page.
// The first capture group must be the decimal count.
type CountPattern struct {
	Name   string
	Regexp *regexp.Regexp
}

// DefaultPatterns are tried in order; the first match wins.
var DefaultPatterns = []CountPattern{
	{Name: "chapter-count", Regexp: regexp.MustCompile(`Số chương: (\d+)`)},
	{Name: "chapters-suffix", Regexp: regexp.MustCompile(`(\d+) chương`)},
	{Name: "length", Regexp: regexp.MustCompile(`Độ dài: (\d+)`)},
}

// Enumeration is the result of reading a landing page.
type Enumeration struct {
	// Pattern names the count pattern that matched.
	Pattern string

	// Count is the declared number of chapters.
	Count int

	// Addresses holds {base}/chuong-{i} for i = 1..Count, ascending.
	Addresses []string
}

// Enumerator produces the chapter addresses of a work.
type Enumerator struct {
	fetcher  Fetcher
	patterns []CountPattern
	logger   *slog.Logger
}

// EnumeratorOption configures an Enumerator.
type EnumeratorOption func(*Enumerator)

// WithEnumeratorLogger sets the logger.
func WithEnumeratorLogger(l *slog.Logger) EnumeratorOption {
	return func(e *Enumerator) {
		if l != nil {
			e.logger = l
		}
	}
}

// NewEnumerator creates an Enumerator reading pages through f.
func NewEnumerator(f Fetcher, opts ...EnumeratorOption) *Enumerator {
	e := &Enumerator{
		fetcher:  f,
		patterns: DefaultPatterns,
		logger:   log.Discard(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enumerate fetches the landing page of work and returns its chapter
// addresses. All addresses are computed before any chapter is fetched.
func (e *Enumerator) Enumerate(ctx context.Context, work model.Work) (*Enumeration, error) {
	page, err := e.fetcher.Fetch(ctx, work.BaseURL)
	if err != nil {
		if fetch.IsAbsent(err) {
			e.logger.Error("could not find chapter URLs", "url", work.BaseURL, "error", err)
			return nil, fmt.Errorf("%w: %w", ErrLandingUnavailable, err)
		}
		return nil, err
	}

	name, count, ok := MatchChapterCount(page, e.patterns)
	if !ok {
		e.logger.Error("could not find chapter URLs", "url", work.BaseURL)
		return nil, fmt.Errorf("%w: %s", ErrNoChapterCount, work.BaseURL)
	}
	if count == 0 {
		e.logger.Error("no chapter URLs found", "url", work.BaseURL, "pattern", name)
		return nil, fmt.Errorf("%w: %s declares 0 chapters", ErrNoChapters, work.BaseURL)
	}

	e.logger.Info("enumerated chapters", "slug", work.Slug, "pattern", name, "count", count)
	return &Enumeration{
		Pattern:   name,
		Count:     count,
		Addresses: work.ChapterURLs(count),
	}, nil
}

// MatchChapterCount scans page with patterns in order and returns the name
// and count of the first match. The page is NFC-normalized first so that
// decomposed Vietnamese diacritics still match.
func MatchChapterCount(page string, patterns []CountPattern) (string, int, bool) {
	page = norm.NFC.String(page)
	for _, p := range patterns {
		m := p.Regexp.FindStringSubmatch(page)
		if len(m) < 2 {
			continue
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			continue
		}
		return p.Name, n, true
	}
	return "", 0, false
}

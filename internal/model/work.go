package model

import (
	"errors"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// ChapterPathPrefix is the path segment placed before the chapter number
// when chapter addresses are synthesized from a base address.
const ChapterPathPrefix = "chuong-"

// OutputExtension is the file extension of a Work's output file.
const OutputExtension = ".txt"

// ErrInvalidSlug is returned when a slug is empty or contains characters
// that cannot be used as a file name.
var ErrInvalidSlug = errors.New("invalid slug: use lowercase letters, digits and hyphens")

// slugRegex matches the slugs used by the source site, e.g. "xuan-ha-thu-dong-roi-lai-xuan".
var slugRegex = regexp.MustCompile(`^[a-z0-9]+(?:[-_][a-z0-9]+)*$`)

// Work is a serialized fiction title being crawled.
// The chapter count is never stored here; it is discovered per run by the
// enumerator.
type Work struct {
	// Slug is the human-readable identifier of the work.
	// It names the output file.
	Slug string `json:"slug"`

	// BaseURL is the landing page address of the work.
	// Chapter addresses are derived from it.
	BaseURL string `json:"base_url"`
}

// NewWork builds a Work whose base address is sourceRoot joined with slug.
func NewWork(sourceRoot, slug string) (Work, error) {
	if err := ValidateSlug(slug); err != nil {
		return Work{}, err
	}
	return Work{
		Slug:    slug,
		BaseURL: strings.TrimRight(sourceRoot, "/") + "/" + slug,
	}, nil
}

// ValidateSlug reports whether slug can be used as a Work identifier.
func ValidateSlug(slug string) error {
	if !slugRegex.MatchString(slug) {
		return ErrInvalidSlug
	}
	return nil
}

// ChapterURL returns the address of the chapter with the given 1-based index.
// A trailing slash on the base address is ignored so that the result never
// contains an empty path segment.
func (w Work) ChapterURL(index int) string {
	return strings.TrimRight(w.BaseURL, "/") + "/" + ChapterPathPrefix + strconv.Itoa(index)
}

// ChapterURLs returns the addresses of chapters 1..count in ascending order.
// It returns an empty slice when count is not positive.
func (w Work) ChapterURLs(count int) []string {
	if count <= 0 {
		return []string{}
	}
	urls := make([]string, 0, count)
	for i := 1; i <= count; i++ {
		urls = append(urls, w.ChapterURL(i))
	}
	return urls
}

// OutputPath returns the path of the Work's output file inside dir.
func (w Work) OutputPath(dir string) string {
	return filepath.Join(dir, w.Slug+OutputExtension)
}

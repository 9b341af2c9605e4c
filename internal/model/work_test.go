package model

import (
	"errors"
	"fmt"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

// TestNewWork tests building a Work from a source root and slug.
func TestNewWork(t *testing.T) {
	t.Parallel()

	t.Run("joins source root and slug", func(t *testing.T) {
		t.Parallel()

		w, err := NewWork("https://truyenfull.io", "xuan-ha-thu-dong-roi-lai-xuan")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.BaseURL != "https://truyenfull.io/xuan-ha-thu-dong-roi-lai-xuan" {
			t.Errorf("unexpected base URL %q", w.BaseURL)
		}
	})

	t.Run("trailing slash on source root is ignored", func(t *testing.T) {
		t.Parallel()

		w, err := NewWork("https://truyenfull.io/", "abc")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if w.BaseURL != "https://truyenfull.io/abc" {
			t.Errorf("unexpected base URL %q", w.BaseURL)
		}
	})

	t.Run("invalid slugs are rejected", func(t *testing.T) {
		t.Parallel()

		for _, slug := range []string{"", "../etc", "Has Space", "a/b", "-lead"} {
			if _, err := NewWork("https://truyenfull.io", slug); !errors.Is(err, ErrInvalidSlug) {
				t.Errorf("slug %q: expected ErrInvalidSlug, got %v", slug, err)
			}
		}
	})
}

// TestWorkChapterURLs tests chapter address synthesis.
func TestWorkChapterURLs(t *testing.T) {
	t.Parallel()

	w := Work{Slug: "demo", BaseURL: "https://example.com/demo"}

	t.Run("three chapters", func(t *testing.T) {
		t.Parallel()

		want := []string{
			"https://example.com/demo/chuong-1",
			"https://example.com/demo/chuong-2",
			"https://example.com/demo/chuong-3",
		}
		if diff := cmp.Diff(want, w.ChapterURLs(3)); diff != "" {
			t.Errorf("ChapterURLs mismatch (-want +got):\n%s", diff)
		}
	})

	t.Run("N addresses sequential from 1", func(t *testing.T) {
		t.Parallel()

		for _, n := range []int{1, 2, 17, 250} {
			urls := w.ChapterURLs(n)
			if len(urls) != n {
				t.Fatalf("n=%d: expected %d addresses, got %d", n, n, len(urls))
			}
			for i, u := range urls {
				if want := fmt.Sprintf("https://example.com/demo/chuong-%d", i+1); u != want {
					t.Errorf("n=%d index %d: expected %q, got %q", n, i, want, u)
				}
			}
		}
	})

	t.Run("non-positive count yields no addresses", func(t *testing.T) {
		t.Parallel()

		if got := w.ChapterURLs(0); len(got) != 0 {
			t.Errorf("expected no addresses, got %v", got)
		}
		if got := w.ChapterURLs(-4); len(got) != 0 {
			t.Errorf("expected no addresses, got %v", got)
		}
	})

	t.Run("trailing slash on base address", func(t *testing.T) {
		t.Parallel()

		slashed := Work{Slug: "demo", BaseURL: "https://example.com/demo/"}
		if got := slashed.ChapterURL(7); got != "https://example.com/demo/chuong-7" {
			t.Errorf("unexpected chapter URL %q", got)
		}
	})
}

// TestWorkOutputPath tests output file naming.
func TestWorkOutputPath(t *testing.T) {
	t.Parallel()

	w := Work{Slug: "demo"}
	if got, want := w.OutputPath("stories"), filepath.Join("stories", "demo.txt"); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

package model

import "testing"

// TestChapterComplete tests the presence checks used before writing.
func TestChapterComplete(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		chapter *Chapter
		want    bool
	}{
		{name: "title and body", chapter: &Chapter{Title: "Chương 1", Body: "text"}, want: true},
		{name: "missing body", chapter: &Chapter{Title: "Chương 1"}, want: false},
		{name: "missing title", chapter: &Chapter{Body: "text"}, want: false},
		{name: "whitespace body", chapter: &Chapter{Title: "t", Body: " \n\t"}, want: false},
		{name: "nil chapter", chapter: nil, want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := tt.chapter.Complete(); got != tt.want {
				t.Errorf("expected %v, got %v", tt.want, got)
			}
		})
	}
}

// TestChapterStatus tests the status names stored in the database.
func TestChapterStatus(t *testing.T) {
	t.Parallel()

	statuses := []ChapterStatus{
		ChapterStatusSaved,
		ChapterStatusMissingContent,
		ChapterStatusFetchFailed,
		ChapterStatusSkipped,
	}

	for _, s := range statuses {
		t.Run(s.String(), func(t *testing.T) {
			t.Parallel()

			parsed, err := ParseChapterStatus(s.String())
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if parsed != s {
				t.Errorf("expected %v, got %v", s, parsed)
			}
		})
	}

	t.Run("unknown name", func(t *testing.T) {
		t.Parallel()
		if _, err := ParseChapterStatus("exploded"); err == nil {
			t.Error("expected error for unknown status")
		}
	})

	t.Run("failed statuses", func(t *testing.T) {
		t.Parallel()
		if !ChapterStatusFetchFailed.Failed() || !ChapterStatusMissingContent.Failed() {
			t.Error("fetch_failed and missing_content should count as failures")
		}
		if ChapterStatusSaved.Failed() || ChapterStatusSkipped.Failed() {
			t.Error("saved and skipped should not count as failures")
		}
	})
}

package pipeline

import (
	"context"

	"github.com/nao1215/storycrawl/internal/model"
)

// Recorder persists crawl progress. *database.ProgressDB implements it.
type Recorder interface {
	StartRun(ctx context.Context, run *model.Run) error
	RecordChapter(ctx context.Context, run *model.Run, result *model.ChapterResult) error
	FinishRun(ctx context.Context, run *model.Run) error
	Cursor(ctx context.Context, slug string) (int, error)
	ResetCursor(ctx context.Context, slug string) error
}

// NopRecorder records nothing and always reports a zero cursor.
type NopRecorder struct{}

func (NopRecorder) StartRun(context.Context, *model.Run) error { return nil }

func (NopRecorder) RecordChapter(context.Context, *model.Run, *model.ChapterResult) error {
	return nil
}

func (NopRecorder) FinishRun(context.Context, *model.Run) error { return nil }

func (NopRecorder) Cursor(context.Context, string) (int, error) { return 0, nil }

func (NopRecorder) ResetCursor(context.Context, string) error { return nil }

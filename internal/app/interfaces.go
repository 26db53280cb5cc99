package app

import (
	"context"

	"escaperoom/internal/state"
)

// Store is the slice of the progress database the app drives.
type Store interface {
	EnsureSchema(ctx context.Context) error
	StartLevelRun(ctx context.Context, run state.LevelRun) (int64, error)
	IncrementReset(ctx context.Context, runID int64) error
	RecordCommand(ctx context.Context, runID int64, cmd state.CommandRecord) error
	FinishLevelRun(ctx context.Context, runID int64, res state.RunResult) error
	UpsertLevelProgress(ctx context.Context, update state.LevelProgressUpdate) error
	GetLevelProgressMap(ctx context.Context) (map[string]state.LevelProgress, error)
	GetSummary(ctx context.Context) (state.Summary, error)
	GetLastRun(ctx context.Context) (*state.LastRun, error)
	TopVerbs(ctx context.Context, limit int) ([]state.VerbCount, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	Close() error
}

var _ Store = (*state.SQLiteStore)(nil)

package state

import (
	"context"
	"time"
)

type Store interface {
	EnsureSchema(ctx context.Context) error
	StartLevelRun(ctx context.Context, run LevelRun) (int64, error)
	IncrementReset(ctx context.Context, runID int64) error
	RecordCommand(ctx context.Context, runID int64, cmd CommandRecord) error
	FinishLevelRun(ctx context.Context, runID int64, res RunResult) error
	UpsertLevelProgress(ctx context.Context, update LevelProgressUpdate) error
	GetLevelProgressMap(ctx context.Context) (map[string]LevelProgress, error)
	SaveSettings(ctx context.Context, values map[string]string) error
	LoadSettings(ctx context.Context) (map[string]string, error)
	GetSummary(ctx context.Context) (Summary, error)
	GetLastRun(ctx context.Context) (*LastRun, error)
	TopVerbs(ctx context.Context, limit int) ([]VerbCount, error)
	Close() error
}

type LevelRun struct {
	SessionID string
	PackID    string
	LevelID   string
	LevelHash string
	StartTS   time.Time
}

type CommandRecord struct {
	Input    string
	Verb     string
	Accepted bool
	Severity string
	TS       time.Time
}

type RunResult struct {
	Solved     bool
	Score      int
	DurationMS int64
	EndTS      time.Time
}

type Summary struct {
	LevelRuns int
	Commands  int
	Rejected  int
	Solves    int
	Resets    int
}

type LastRun struct {
	PackID   string
	LevelID  string
	StartTS  time.Time
	Solved   bool
	Commands int
	Resets   int
}

type LevelProgress struct {
	LevelID      string
	SolvedCount  int
	BestScore    int
	BestTimeMS   int64
	LastPlayedTS time.Time
	LastSolvedTS time.Time
}

type LevelProgressUpdate struct {
	LevelID      string
	Solved       bool
	Score        int
	DurationMS   int64
	LastPlayedTS time.Time
}

type VerbCount struct {
	Verb  string
	Count int
}

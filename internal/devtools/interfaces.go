package devtools

import (
	"context"
	"time"

	"escaperoom/internal/levels"
	"escaperoom/internal/scoring"
)

type Demo interface {
	Resolve(name string) Scenario
	SetState(ctx context.Context, dataDir string, state string, rendered bool) error
	Walkthrough(session *levels.Session, pace time.Duration) ([]Step, error)
	Play(ctx context.Context, steps []Step, submit func(string) levels.Outcome) (Transcript, error)
	MockScore(req MockScoreRequest) scoring.Result
}

type MockScoreRequest struct {
	PackID         string
	PackVersion    string
	LevelID        string
	Spec           levels.ScoringSpec
	Attempt        int
	Moves          int
	Rejected       int
	Resets         int
	HelpUsed       int
	ElapsedSeconds int
}

package scoring

import (
	"time"

	"escaperoom/internal/levels"
)

const (
	ResultKind    = "score_result"
	SchemaVersion = 1
)

type Request struct {
	AppVersion  string
	PackID      string
	PackVersion string
	LevelID     string
	LevelHash   string

	RunID      string
	Attempt    int
	StartedAt  time.Time
	FinishedAt time.Time

	Spec levels.ScoringSpec

	Moves    int
	Rejected int
	Resets   int
	HelpUsed int
}

type Result struct {
	Kind          string `json:"kind"`
	SchemaVersion int    `json:"schema_version"`

	AppVersion  string `json:"app_version,omitempty"`
	PackID      string `json:"pack_id"`
	PackVersion string `json:"pack_version"`
	LevelID     string `json:"level_id"`
	LevelHash   string `json:"level_hash,omitempty"`

	Run     RunInfo       `json:"run"`
	Score   Score         `json:"score"`
	Bonuses []BonusResult `json:"bonuses,omitempty"`
}

type RunInfo struct {
	RunID            string `json:"run_id"`
	Attempt          int    `json:"attempt"`
	StartedAtUnixMS  int64  `json:"started_at_unix_ms"`
	FinishedAtUnixMS int64  `json:"finished_at_unix_ms"`
	DurationMS       int64  `json:"duration_ms"`
	Moves            int    `json:"moves"`
	Rejected         int    `json:"rejected"`
}

type Score struct {
	BasePoints          int          `json:"base_points"`
	TimeGraceSeconds    int          `json:"time_grace_seconds,omitempty"`
	TimePenaltyPoints   int          `json:"time_penalty_points,omitempty"`
	HelpPenaltyPoints   int          `json:"help_penalty_points,omitempty"`
	ResetPenaltyPoints  int          `json:"reset_penalty_points,omitempty"`
	RejectPenaltyPoints int          `json:"reject_penalty_points,omitempty"`
	BonusPoints         int          `json:"bonus_points,omitempty"`
	TotalPoints         int          `json:"total_points"`
	Breakdown           []ScoreDelta `json:"breakdown,omitempty"`
}

type ScoreDelta struct {
	Kind        string `json:"kind"`
	Points      int    `json:"points"`
	Description string `json:"description"`
}

type BonusResult struct {
	ID          string `json:"id"`
	Awarded     bool   `json:"awarded"`
	Points      int    `json:"points"`
	Description string `json:"description,omitempty"`
}

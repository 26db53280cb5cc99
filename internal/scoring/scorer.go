package scoring

import (
	"fmt"
	"time"

	"escaperoom/internal/levels"
)

// bonusFunc reports whether a run earned a bonus and why.
type bonusFunc func(Request, levels.BonusSpec) (bool, string)

type DefaultScorer struct {
	registry map[string]bonusFunc
	now      func() time.Time
}

func NewScorer() *DefaultScorer {
	s := &DefaultScorer{registry: map[string]bonusFunc{}, now: time.Now}
	s.registry["under_par"] = bonusUnderPar
	s.registry["no_help"] = bonusNoHelp
	s.registry["clean_run"] = bonusCleanRun
	return s
}

// Known reports whether id names a bonus the scorer can evaluate.
func (s *DefaultScorer) Known(id string) bool {
	_, ok := s.registry[id]
	return ok
}

func (s *DefaultScorer) Score(req Request) Result {
	if req.FinishedAt.IsZero() {
		req.FinishedAt = s.now()
	}
	if req.StartedAt.IsZero() {
		req.StartedAt = req.FinishedAt
	}

	result := Result{
		Kind:          ResultKind,
		SchemaVersion: SchemaVersion,
		AppVersion:    req.AppVersion,
		PackID:        req.PackID,
		PackVersion:   req.PackVersion,
		LevelID:       req.LevelID,
		LevelHash:     req.LevelHash,
		Run: RunInfo{
			RunID:            req.RunID,
			Attempt:          max(1, req.Attempt),
			StartedAtUnixMS:  req.StartedAt.UnixMilli(),
			FinishedAtUnixMS: req.FinishedAt.UnixMilli(),
			DurationMS:       max(0, req.FinishedAt.Sub(req.StartedAt).Milliseconds()),
			Moves:            req.Moves,
			Rejected:         req.Rejected,
		},
	}

	bonusPoints := 0
	for _, spec := range req.Spec.Bonuses {
		br := BonusResult{ID: spec.ID, Description: spec.Description}
		eval, ok := s.registry[spec.ID]
		if !ok {
			br.Description = "unknown bonus: " + spec.ID
			result.Bonuses = append(result.Bonuses, br)
			continue
		}
		awarded, why := eval(req, spec)
		br.Awarded = awarded
		if br.Description == "" {
			br.Description = why
		}
		if awarded {
			br.Points = spec.Points
			bonusPoints += spec.Points
		}
		result.Bonuses = append(result.Bonuses, br)
	}

	spec := req.Spec
	base := defaultInt(spec.BasePoints, 1000)
	grace := defaultInt(spec.TimeGraceSeconds, 60)
	timePenaltyPerSec := defaultInt(spec.TimePenaltyPerSecond, 1)
	helpPenalty := defaultInt(spec.HelpPenaltyPoints, 40)
	resetPenalty := defaultInt(spec.ResetPenaltyPoints, 120)
	rejectPenalty := defaultInt(spec.RejectPenaltyPoints, 5)

	durationSec := int(result.Run.DurationMS / 1000)
	timePenaltyPoints := 0
	if durationSec > grace {
		timePenaltyPoints = (durationSec - grace) * timePenaltyPerSec
	}
	helpPenaltyPoints := req.HelpUsed * helpPenalty
	resetPenaltyPoints := req.Resets * resetPenalty
	rejectPenaltyPoints := req.Rejected * rejectPenalty

	total := base - timePenaltyPoints - helpPenaltyPoints - resetPenaltyPoints - rejectPenaltyPoints + bonusPoints
	if total < 0 {
		total = 0
	}
	result.Score = Score{
		BasePoints:          base,
		TimeGraceSeconds:    grace,
		TimePenaltyPoints:   timePenaltyPoints,
		HelpPenaltyPoints:   helpPenaltyPoints,
		ResetPenaltyPoints:  resetPenaltyPoints,
		RejectPenaltyPoints: rejectPenaltyPoints,
		BonusPoints:         bonusPoints,
		TotalPoints:         total,
		Breakdown: []ScoreDelta{
			{Kind: "time", Points: -timePenaltyPoints, Description: "Time penalty after grace"},
			{Kind: "help", Points: -helpPenaltyPoints, Description: "Instructions opened"},
			{Kind: "reset", Points: -resetPenaltyPoints, Description: "Resets used"},
			{Kind: "reject", Points: -rejectPenaltyPoints, Description: "Rejected commands"},
			{Kind: "bonus", Points: bonusPoints, Description: "Bonuses earned"},
		},
	}
	return result
}

func bonusUnderPar(req Request, _ levels.BonusSpec) (bool, string) {
	if req.Spec.Par <= 0 {
		return false, "no par set for this room"
	}
	return req.Moves <= req.Spec.Par, fmt.Sprintf("%d moves against a par of %d", req.Moves, req.Spec.Par)
}

func bonusNoHelp(req Request, _ levels.BonusSpec) (bool, string) {
	return req.HelpUsed == 0, "solved without /help"
}

func bonusCleanRun(req Request, _ levels.BonusSpec) (bool, string) {
	return req.Rejected == 0 && req.Resets == 0, "no rejected commands and no resets"
}

func defaultInt(v, d int) int {
	if v <= 0 {
		return d
	}
	return v
}

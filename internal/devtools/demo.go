package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"escaperoom/internal/levels"
	"escaperoom/internal/scoring"
)

// ErrNoWalkthrough is returned for puzzles that cannot describe a solution
// from their current state.
var ErrNoWalkthrough = errors.New("no walkthrough available")

type Scenario struct {
	Name       string
	Screen     string
	HelpOpen   bool
	ResultOpen bool
	// Solve replays the walkthrough before the screen is shown.
	Solve bool
}

// Step is one scripted submission, sent After the previous one.
type Step struct {
	After time.Duration
	Input string
}

type Transcript struct {
	Steps    []Step
	Outcomes []levels.Outcome
	Solved   bool
}

type Manager struct {
	now func() time.Time
}

func NewManager() *Manager { return &Manager{now: time.Now} }

func (m *Manager) Resolve(name string) Scenario {
	switch name {
	case "main_menu":
		return Scenario{Name: name, Screen: "main_menu"}
	case "level_select":
		return Scenario{Name: name, Screen: "level_select"}
	case "help_open":
		return Scenario{Name: name, Screen: "playing", HelpOpen: true}
	case "results", "results_pass", "solved":
		return Scenario{Name: "results", Screen: "playing", ResultOpen: true, Solve: true}
	case "playing", "playable":
		return Scenario{Name: name, Screen: "playing"}
	default:
		return Scenario{Name: "playing", Screen: "playing"}
	}
}

// Walkthrough turns the session's solution into paced steps. The first step
// has no delay.
func (m *Manager) Walkthrough(session *levels.Session, pace time.Duration) ([]Step, error) {
	if session == nil {
		return nil, fmt.Errorf("walkthrough: no session")
	}
	cmds, ok := session.Solution()
	if !ok {
		return nil, fmt.Errorf("walkthrough %s: %w", session.Level().LevelID, ErrNoWalkthrough)
	}
	steps := make([]Step, 0, len(cmds))
	for i, c := range cmds {
		after := pace
		if i == 0 {
			after = 0
		}
		steps = append(steps, Step{After: after, Input: c})
	}
	return steps, nil
}

// Play submits steps in order, honouring their delays, and stops early on
// cancellation or once a submission solves the level.
func (m *Manager) Play(ctx context.Context, steps []Step, submit func(string) levels.Outcome) (Transcript, error) {
	var t Transcript
	for _, s := range steps {
		if s.After > 0 {
			timer := time.NewTimer(s.After)
			select {
			case <-ctx.Done():
				timer.Stop()
				return t, ctx.Err()
			case <-timer.C:
			}
		} else if err := ctx.Err(); err != nil {
			return t, err
		}
		out := submit(s.Input)
		t.Steps = append(t.Steps, s)
		t.Outcomes = append(t.Outcomes, out)
		if out.Solved {
			t.Solved = true
			return t, nil
		}
		if !out.Accepted {
			return t, fmt.Errorf("step %q rejected: %s", s.Input, out.Notification.Description)
		}
	}
	return t, nil
}

// MockScore scores a synthetic run that ended at a fixed point in time, so
// dev screenshots show the same numbers every time.
func (m *Manager) MockScore(req MockScoreRequest) scoring.Result {
	finished := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	return scoring.NewScorer().Score(scoring.Request{
		PackID:      firstNonEmpty(req.PackID, "mock-pack"),
		PackVersion: firstNonEmpty(req.PackVersion, "0.0.0"),
		LevelID:     firstNonEmpty(req.LevelID, "mock-level"),
		RunID:       "mock-run",
		Attempt:     max(1, req.Attempt),
		StartedAt:   finished.Add(-time.Duration(max(0, req.ElapsedSeconds)) * time.Second),
		FinishedAt:  finished,
		Spec:        req.Spec,
		Moves:       req.Moves,
		Rejected:    req.Rejected,
		Resets:      req.Resets,
		HelpUsed:    req.HelpUsed,
	})
}

func (m *Manager) SetState(ctx context.Context, dataDir string, state string, rendered bool) error {
	_ = ctx
	if dataDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return err
		}
		dataDir = filepath.Join(home, ".cache", "escaperoom")
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return err
	}
	payload := map[string]any{
		"state":      strings.TrimSpace(state),
		"rendered":   rendered,
		"updated_at": m.now().UTC().Format(time.RFC3339),
	}
	b, _ := json.Marshal(payload)
	return os.WriteFile(filepath.Join(dataDir, "dev_state.json"), b, 0o644)
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

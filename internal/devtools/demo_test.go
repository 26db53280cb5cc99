package devtools

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"escaperoom/internal/levels"
	"escaperoom/internal/puzzles"
	"escaperoom/packs"
)

type noTimer struct{}

func (noTimer) Stop() bool { return true }

func sessionFor(t *testing.T, level levels.Level, seed uint64) *levels.Session {
	t.Helper()
	p, err := puzzles.ForLevel(level)
	if err != nil {
		t.Fatalf("build %s: %v", level.LevelID, err)
	}
	return levels.NewSession(level, p, levels.SessionOptions{
		Seed:      seed,
		AfterFunc: func(time.Duration, func()) levels.Timer { return noTimer{} },
	})
}

func TestEveryShippedLevelHasAWorkingWalkthrough(t *testing.T) {
	loaded, err := levels.NewLoader().LoadPacks(context.Background(), packs.FS())
	if err != nil {
		t.Fatalf("load packs: %v", err)
	}
	m := NewManager()
	for _, pack := range loaded {
		for _, level := range pack.LoadedLevels {
			for _, seed := range []uint64{1, 7, 42} {
				t.Run(level.LevelID, func(t *testing.T) {
					s := sessionFor(t, level, seed)
					steps, err := m.Walkthrough(s, 0)
					if err != nil {
						t.Fatalf("walkthrough: %v", err)
					}
					tr, err := m.Play(context.Background(), steps, s.Submit)
					if err != nil {
						t.Fatalf("play: %v", err)
					}
					if !tr.Solved || !s.Solved() {
						t.Fatalf("seed %d: walkthrough of %d steps did not solve the level", seed, len(steps))
					}
				})
			}
		}
	}
}

func TestWalkthroughUnavailableOnceSolved(t *testing.T) {
	level := levels.Level{LevelID: "fan-room", Title: "Fan", Puzzle: "fan"}
	s := sessionFor(t, level, 3)
	m := NewManager()
	steps, err := m.Walkthrough(s, 10*time.Millisecond)
	if err != nil {
		t.Fatalf("walkthrough: %v", err)
	}
	if steps[0].After != 0 || steps[len(steps)-1].After != 10*time.Millisecond {
		t.Fatalf("unexpected pacing: %+v", steps)
	}
	if _, err := m.Play(context.Background(), steps, s.Submit); err != nil {
		t.Fatalf("play: %v", err)
	}
	if _, err := m.Walkthrough(s, 0); !errors.Is(err, ErrNoWalkthrough) {
		t.Fatalf("err = %v, want ErrNoWalkthrough", err)
	}
}

func TestPlayStopsOnCancelAndRejection(t *testing.T) {
	m := NewManager()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	submitted := 0
	submit := func(string) levels.Outcome {
		submitted++
		return levels.Outcome{Accepted: true}
	}
	if _, err := m.Play(ctx, []Step{{Input: "/a"}, {After: time.Hour, Input: "/b"}}, submit); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if submitted != 0 {
		t.Fatalf("submitted %d steps after cancel", submitted)
	}

	reject := func(string) levels.Outcome { return levels.Outcome{} }
	tr, err := m.Play(context.Background(), []Step{{Input: "/bad"}, {Input: "/never"}}, reject)
	if err == nil || len(tr.Outcomes) != 1 {
		t.Fatalf("expected stop after first rejection, got %d outcomes, err %v", len(tr.Outcomes), err)
	}
}

func TestMockScoreDeterministic(t *testing.T) {
	m := NewManager()
	req := MockScoreRequest{
		LevelID:        "l",
		Spec:           levels.ScoringSpec{BasePoints: 1000, TimeGraceSeconds: 60, TimePenaltyPerSecond: 1},
		Moves:          5,
		ElapsedSeconds: 90,
	}
	a, b := m.MockScore(req), m.MockScore(req)
	if a.Score.TotalPoints != b.Score.TotalPoints || a.Run.DurationMS != b.Run.DurationMS {
		t.Fatalf("mock scores differ: %+v vs %+v", a.Score, b.Score)
	}
	if a.Run.DurationMS != 90_000 {
		t.Fatalf("duration = %d, want 90000", a.Run.DurationMS)
	}
	if a.Score.TimePenaltyPoints != 30 {
		t.Fatalf("time penalty = %d, want 30", a.Score.TimePenaltyPoints)
	}
}

func TestResolveAndSetState(t *testing.T) {
	m := NewManager()
	if sc := m.Resolve("results_pass"); !sc.ResultOpen || !sc.Solve {
		t.Fatalf("results scenario = %+v", sc)
	}
	if sc := m.Resolve("whatever"); sc.Name != "playing" {
		t.Fatalf("fallback scenario = %+v", sc)
	}

	dir := t.TempDir()
	if err := m.SetState(context.Background(), dir, " playing ", true); err != nil {
		t.Fatalf("SetState: %v", err)
	}
	b, err := os.ReadFile(filepath.Join(dir, "dev_state.json"))
	if err != nil {
		t.Fatalf("read state: %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if got["state"] != "playing" || got["rendered"] != true {
		t.Fatalf("state file = %v", got)
	}
}

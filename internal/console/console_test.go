package console

import (
	"bytes"
	"strings"
	"sync"
	"testing"

	"escaperoom/internal/notify"
	"escaperoom/internal/ui"
)

type recorder struct {
	mu    sync.Mutex
	view  *Console
	calls []string
}

func (r *recorder) add(s string) {
	r.mu.Lock()
	r.calls = append(r.calls, s)
	r.mu.Unlock()
}

func (r *recorder) OnContinue()        { r.add("continue") }
func (r *recorder) OnOpenLevelSelect() { r.add("levels") }
func (r *recorder) OnBackToMainMenu()  { r.add("menu") }
func (r *recorder) OnOpenStats()       { r.add("stats") }
func (r *recorder) OnNextLevel()       { r.add("next") }
func (r *recorder) OnRetry()           { r.add("retry") }
func (r *recorder) OnQuit()            { r.add("quit") }
func (r *recorder) OnSubmit(line string) {
	r.add("submit:" + line)
	r.view.Notify(notify.Notification{Title: "Filled", Description: "5L is full", Severity: notify.SeverityDefault})
}

func (r *recorder) OnStartLevel(packID, levelID string) {
	r.add("start:" + packID + "/" + levelID)
	r.view.SetScreen(ui.ScreenPlaying)
	r.view.SetPlayingState(ui.PlayingState{
		PackID: packID, LevelID: levelID, Title: "Water Works",
		Goal: "Measure 4L.", Art: []string{"5L |.....| 0/5"},
	})
}

func catalog() []ui.PackSummary {
	return []ui.PackSummary{{
		PackID: "escape-core",
		Name:   "Escape Core",
		Levels: []ui.LevelSummary{
			{LevelID: "lights-out", Title: "Lights Out", Puzzle: "lights", Difficulty: 1},
			{LevelID: "water-works", Title: "Water Works", Puzzle: "jugs", Difficulty: 2, BestScore: 1200, Solved: true},
		},
	}}
}

func run(t *testing.T, input string) (*recorder, string) {
	t.Helper()
	var out bytes.Buffer
	c := New(Options{In: strings.NewReader(input), Out: &out})
	rec := &recorder{view: c}
	c.SetController(rec)
	c.SetCatalog(catalog())
	c.SetScreen(ui.ScreenMainMenu)
	if err := c.Run(); err != nil {
		t.Fatalf("Run: %v", err)
	}
	return rec, out.String()
}

func TestPlayByNumberThenSubmit(t *testing.T) {
	rec, out := run(t, ":play 2\n/fill 5L\n")
	want := []string{"start:escape-core/water-works", "submit:/fill 5L", "quit"}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
	for _, s := range []string{"== Escape Room ==", "== Water Works ==", "Measure 4L.", "[--] Filled: 5L is full"} {
		if !strings.Contains(out, s) {
			t.Fatalf("output missing %q:\n%s", s, out)
		}
	}
}

func TestNavigationCommands(t *testing.T) {
	rec, _ := run(t, ":levels\n:continue\n:next\n:retry\n:menu\n:stats\n:quit\n/ignored\n")
	want := []string{"levels", "continue", "next", "retry", "menu", "stats", "quit"}
	if strings.Join(rec.calls, ",") != strings.Join(want, ",") {
		t.Fatalf("calls = %v, want %v", rec.calls, want)
	}
}

func TestUnknownLevelAndCommand(t *testing.T) {
	rec, out := run(t, ":play 9\n:dance\nnope\n")
	if len(rec.calls) != 1 || rec.calls[0] != "quit" {
		t.Fatalf("calls = %v, want only the EOF quit", rec.calls)
	}
	if !strings.Contains(out, `no level "9"`) || !strings.Contains(out, `unknown console command "dance"`) {
		t.Fatalf("unexpected output:\n%s", out)
	}
}

func TestCatalogListsLevelsWithBestScore(t *testing.T) {
	var out bytes.Buffer
	c := New(Options{In: strings.NewReader(""), Out: &out})
	c.SetCatalog(catalog())
	c.SetScreen(ui.ScreenLevelSelect)
	got := out.String()
	if !strings.Contains(got, " 1. Lights Out") || !strings.Contains(got, "*  2. Water Works") {
		t.Fatalf("catalog output:\n%s", got)
	}
	if !strings.Contains(got, "best 1,200") {
		t.Fatalf("best score not humanized:\n%s", got)
	}
}

func TestSceneOnlyReprintsOnChange(t *testing.T) {
	var out bytes.Buffer
	c := New(Options{In: strings.NewReader(""), Out: &out})
	state := ui.PlayingState{PackID: "p", LevelID: "l", Title: "Room", Art: []string{"[ ]"}}
	c.SetPlayingState(state)
	c.SetPlayingState(state)
	if n := strings.Count(out.String(), "== Room =="); n != 1 {
		t.Fatalf("scene printed %d times, want 1", n)
	}
	state.Art = []string{"[x]"}
	state.Solved = true
	c.SetPlayingState(state)
	if n := strings.Count(out.String(), "== Room =="); n != 2 {
		t.Fatalf("scene printed %d times, want 2", n)
	}
	if !strings.Contains(out.String(), "SOLVED") {
		t.Fatalf("solved marker missing:\n%s", out.String())
	}
}

func TestResultAndLongNotificationWrap(t *testing.T) {
	var out bytes.Buffer
	c := New(Options{In: strings.NewReader(""), Out: &out, Width: 30})
	c.SetResult(ui.ResultState{
		Visible: true, Title: "Room open", Score: 1450, HasNext: true,
		Breakdown: []ui.BreakdownRow{{Label: "Base", Value: "+1000"}},
	})
	c.Notify(notify.Notification{
		Title:       "Bluff detected",
		Description: "a guess after 1 weighing proves nothing; weigh at least 3 times first",
		Severity:    notify.SeverityDestructive,
	})
	got := out.String()
	for _, s := range []string{"*** Room open ***", "Score: 1,450", "Base", ":next"} {
		if !strings.Contains(got, s) {
			t.Fatalf("output missing %q:\n%s", s, got)
		}
	}
	if !strings.Contains(got, "\n    ") {
		t.Fatalf("continuation lines are not indented:\n%s", got)
	}
}

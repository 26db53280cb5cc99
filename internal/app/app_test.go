package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"escaperoom/internal/notify"
	"escaperoom/internal/ui"
)

type fakeView struct {
	mu       sync.Mutex
	ctrl     ui.Controller
	screen   ui.Screen
	menu     ui.MainMenuState
	catalog  []ui.PackSummary
	playing  ui.PlayingState
	result   ui.ResultState
	helpOpen bool
	info     string
	flashes  []string
	notes    []notify.Notification
	stop     chan struct{}
	once     sync.Once
}

func newFakeView() *fakeView { return &fakeView{stop: make(chan struct{})} }

func (f *fakeView) Run() error {
	<-f.stop
	return nil
}

func (f *fakeView) Stop() { f.once.Do(func() { close(f.stop) }) }

func (f *fakeView) SetController(c ui.Controller) { f.with(func() { f.ctrl = c }) }
func (f *fakeView) SetScreen(s ui.Screen) { f.with(func() { f.screen = s }) }
func (f *fakeView) SetMainMenuState(s ui.MainMenuState) {
	f.with(func() { f.menu = s })
}
func (f *fakeView) SetCatalog(p []ui.PackSummary) { f.with(func() { f.catalog = p }) }
func (f *fakeView) SetLevelSelection(_, _ string) {}
func (f *fakeView) SetPlayingState(s ui.PlayingState) {
	f.with(func() { f.playing = s })
}
func (f *fakeView) SetResult(s ui.ResultState) { f.with(func() { f.result = s }) }
func (f *fakeView) SetHelp(_ string, open bool) { f.with(func() { f.helpOpen = open }) }
func (f *fakeView) SetInfo(_, text string, _ bool) { f.with(func() { f.info = text }) }
func (f *fakeView) FlashStatus(msg string) { f.with(func() { f.flashes = append(f.flashes, msg) }) }
func (f *fakeView) Notify(n notify.Notification) { f.with(func() { f.notes = append(f.notes, n) }) }

func (f *fakeView) with(fn func()) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn()
}

func (f *fakeView) snapshot() fakeView {
	f.mu.Lock()
	defer f.mu.Unlock()
	return fakeView{
		screen:   f.screen,
		menu:     f.menu,
		catalog:  f.catalog,
		playing:  f.playing,
		result:   f.result,
		helpOpen: f.helpOpen,
		info:     f.info,
		flashes:  append([]string(nil), f.flashes...),
		notes:    append([]notify.Notification(nil), f.notes...),
	}
}

func newTestApp(t *testing.T) (*App, *fakeView) {
	t.Helper()
	cfg := DefaultConfig()
	cfg.DataDir = t.TempDir()
	cfg.LogPath = filepath.Join(cfg.DataDir, "app.log")
	cfg.CompletionDelay = 0
	cfg.Seed = 7
	if err := cfg.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
	view := newFakeView()
	a, err := New(cfg, Options{Version: "test", View: view})
	if err != nil {
		t.Fatalf("new app: %v", err)
	}
	t.Cleanup(a.Close)
	return a, view
}

func solve(t *testing.T, a *App, levelID string) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := a.Autoplay(ctx, "escape-core", levelID, 0); err != nil {
		t.Fatalf("autoplay %s: %v", levelID, err)
	}
}

func TestAutoplaySolvesAndRecordsProgress(t *testing.T) {
	a, view := newTestApp(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	res, err := a.Autoplay(ctx, "escape-core", "level-01-lights", 0)
	if err != nil {
		t.Fatalf("autoplay: %v", err)
	}
	if res.Score.TotalPoints <= 0 || res.LevelID != "level-01-lights" {
		t.Fatalf("unexpected result: %+v", res)
	}

	snap := view.snapshot()
	if !snap.result.Visible || !snap.result.HasNext {
		t.Fatalf("expected visible result with a next level, got %+v", snap.result)
	}
	if snap.result.Score != res.Score.TotalPoints {
		t.Fatalf("result overlay score %d != %d", snap.result.Score, res.Score.TotalPoints)
	}
	if !snap.playing.Solved {
		t.Fatalf("expected solved playing state")
	}
	if got := snap.result.Breakdown[len(snap.result.Breakdown)-1].Label; got != "Total" {
		t.Fatalf("expected Total as last breakdown row, got %q", got)
	}

	progress, err := a.store.GetLevelProgressMap(ctx)
	if err != nil {
		t.Fatalf("progress: %v", err)
	}
	p := progress["level-01-lights"]
	if p.SolvedCount != 1 || p.BestScore != res.Score.TotalPoints {
		t.Fatalf("unexpected progress: %+v", p)
	}
	if !snap.catalog[0].Levels[0].Solved {
		t.Fatalf("catalog should mark the level solved")
	}
}

func TestContinuePicksFirstUnsolvedLevel(t *testing.T) {
	a, view := newTestApp(t)
	solve(t, a, "level-01-lights")

	a.OnBackToMainMenu()
	if s := view.snapshot(); s.screen != ui.ScreenMainMenu || s.menu.SolvedCount != 1 {
		t.Fatalf("expected main menu with one solve, got screen=%v menu=%+v", s.screen, s.menu)
	}
	a.OnContinue()
	s := view.snapshot()
	if s.screen != ui.ScreenPlaying || s.playing.LevelID != "level-02-jugs" {
		t.Fatalf("expected to continue into level-02-jugs, got %v %q", s.screen, s.playing.LevelID)
	}
	if s.playing.LevelIndex != 1 || s.playing.LevelCount != 10 {
		t.Fatalf("unexpected level position %d/%d", s.playing.LevelIndex, s.playing.LevelCount)
	}
}

func TestNextLevelAfterSolve(t *testing.T) {
	a, view := newTestApp(t)
	a.OnNextLevel()
	if view.snapshot().screen == ui.ScreenPlaying {
		t.Fatalf("next level must wait for a solve")
	}
	solve(t, a, "level-01-lights")
	a.OnNextLevel()
	if got := view.snapshot().playing.LevelID; got != "level-02-jugs" {
		t.Fatalf("expected level-02-jugs, got %q", got)
	}
	if view.snapshot().result.Visible {
		t.Fatalf("result overlay should close on next level")
	}
}

func TestResetAfterSolveStartsNewRun(t *testing.T) {
	a, view := newTestApp(t)
	solve(t, a, "level-01-lights")

	a.OnSubmit("/reset")
	s := view.snapshot()
	if s.playing.Solved || s.result.Visible {
		t.Fatalf("expected a fresh unsolved room, got playing=%+v result=%+v", s.playing, s.result)
	}
	summary, err := a.store.GetSummary(context.Background())
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.LevelRuns != 2 || summary.Solves != 1 {
		t.Fatalf("unexpected summary: %+v", summary)
	}
}

func TestLeavingLevelRecordsUnsolvedRun(t *testing.T) {
	a, view := newTestApp(t)
	a.OnStartLevel("escape-core", "level-02-jugs")
	a.OnSubmit("/help")
	a.OnSubmit("/teleport")
	if !view.snapshot().helpOpen {
		t.Fatalf("help should open the help overlay")
	}
	a.OnBackToMainMenu()

	ctx := context.Background()
	last, err := a.store.GetLastRun(ctx)
	if err != nil || last == nil {
		t.Fatalf("last run: %v %+v", err, last)
	}
	if last.LevelID != "level-02-jugs" || last.Solved || last.Commands != 2 {
		t.Fatalf("unexpected last run: %+v", last)
	}
	summary, err := a.store.GetSummary(ctx)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	if summary.Rejected != 1 {
		t.Fatalf("expected one rejected command, got %+v", summary)
	}
	notes := view.snapshot().notes
	if len(notes) != 2 || notes[1].Severity != notify.SeverityDestructive {
		t.Fatalf("unexpected notifications: %+v", notes)
	}
}

func TestSubmitWithoutRoomFlashes(t *testing.T) {
	a, view := newTestApp(t)
	a.OnSubmit("/fill 3")
	flashes := view.snapshot().flashes
	if len(flashes) == 0 || flashes[len(flashes)-1] != "start a room first" {
		t.Fatalf("unexpected flashes: %#v", flashes)
	}
}

func TestStatsText(t *testing.T) {
	a, view := newTestApp(t)
	solve(t, a, "level-01-lights")
	a.OnOpenStats()
	info := view.snapshot().info
	for _, want := range []string{"Rooms solved: 1 of 10", "Level runs: 1 (1 solved)", "Playing since:"} {
		if !strings.Contains(info, want) {
			t.Fatalf("stats missing %q:\n%s", want, info)
		}
	}
}

func TestDevHandler(t *testing.T) {
	a, view := newTestApp(t)
	h := a.devHandler()

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/__dev/submit", strings.NewReader(`{"line":"/help"}`)))
	if rec.Code != http.StatusConflict {
		t.Fatalf("expected 409 without a room, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/__dev/demo", strings.NewReader(`{"demo":"level_select"}`)))
	if rec.Code != http.StatusOK {
		t.Fatalf("demo status %d: %s", rec.Code, rec.Body.String())
	}
	if view.snapshot().screen != ui.ScreenLevelSelect {
		t.Fatalf("expected level select screen")
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/__dev/ready", nil))
	var ready map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &ready); err != nil {
		t.Fatalf("decode ready: %v", err)
	}
	if ready["state"] != "level_select" || ready["rendered"] != true {
		t.Fatalf("unexpected ready payload: %v", ready)
	}

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/__dev/demo", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}

	a.OnStartLevel("escape-core", "level-02-jugs")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/__dev/submit", bytes.NewBufferString(`{"line":"/help"}`)))
	var out map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode submit: %v", err)
	}
	if out["ok"] != true || out["verb"] != "help" {
		t.Fatalf("unexpected submit payload: %v", out)
	}
}

func TestRunStopsWithContext(t *testing.T) {
	a, _ := newTestApp(t)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- a.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatalf("run did not return after cancel")
	}
}

func TestLoadConfigLayersDotenvAndEnvironment(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("ESCAPEROOM_COMPLETION_DELAY=250ms\nESCAPEROOM_UI_MOTION=reduced\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() {
		_ = os.Unsetenv("ESCAPEROOM_COMPLETION_DELAY")
		_ = os.Unsetenv("ESCAPEROOM_UI_MOTION")
	})
	t.Setenv("ESCAPEROOM_UI_STYLE", "mocha")
	t.Setenv("ESCAPEROOM_SEED", "42")

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.UI.StyleVariant != "mocha" || cfg.UI.MotionLevel != "reduced" {
		t.Fatalf("unexpected ui config: %+v", cfg.UI)
	}
	if cfg.CompletionDelay != 250*time.Millisecond || cfg.Seed != 42 {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DevHTTP != "127.0.0.1:17321" {
		t.Fatalf("defaults should survive parsing, got %q", cfg.DevHTTP)
	}

	if _, err := LoadConfig(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing dotenv should be ignored: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	t.Run("bad style", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UI.StyleVariant = "neon"
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("negative delay", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.CompletionDelay = -time.Second
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("missing packs dir", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.PacksDir = filepath.Join(t.TempDir(), "nope")
		if err := cfg.Validate(); err == nil {
			t.Fatalf("expected error")
		}
	})
	t.Run("fills defaults", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.UI = UIConfig{}
		cfg.DataDir = t.TempDir()
		if err := cfg.Validate(); err != nil {
			t.Fatalf("validate: %v", err)
		}
		if cfg.UI.StyleVariant != "vault" || cfg.UI.MotionLevel != "full" {
			t.Fatalf("unexpected defaults: %+v", cfg.UI)
		}
	})
}

func TestResolveLevel(t *testing.T) {
	a, _ := newTestApp(t)
	for ref, want := range map[string]string{
		"3":                         "level-03-binary",
		"LEVEL-02-JUGS":             "level-02-jugs",
		"escape-core/level-10-coins": "level-10-coins",
	} {
		_, lv, err := a.ResolveLevel(ref)
		if err != nil || lv.LevelID != want {
			t.Fatalf("ResolveLevel(%q) = %q, %v; want %q", ref, lv.LevelID, err, want)
		}
	}
	for _, ref := range []string{"0", "11", "nowhere"} {
		if _, _, err := a.ResolveLevel(ref); err == nil {
			t.Fatalf("ResolveLevel(%q) should fail", ref)
		}
	}
}

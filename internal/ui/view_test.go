package ui

import (
	"strings"
	"sync"
	"testing"
	"time"

	"escaperoom/internal/notify"

	tea "charm.land/bubbletea/v2"
)

type mockController struct {
	mu            sync.Mutex
	continueCalls int
	quitCalls     int
	nextCalls     int
	retryCalls    int
	submitted     []string
	started       []string
}

func (m *mockController) OnContinue() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.continueCalls++
}
func (m *mockController) OnOpenLevelSelect() {}
func (m *mockController) OnStartLevel(packID, levelID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = append(m.started, packID+"/"+levelID)
}
func (m *mockController) OnBackToMainMenu() {}
func (m *mockController) OnOpenStats()      {}
func (m *mockController) OnSubmit(line string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.submitted = append(m.submitted, line)
}
func (m *mockController) OnNextLevel() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextCalls++
}
func (m *mockController) OnRetry() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.retryCalls++
}
func (m *mockController) OnQuit() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quitCalls++
}

func (m *mockController) waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(500 * time.Millisecond)
	for time.Now().Before(deadline) {
		m.mu.Lock()
		ok := cond()
		m.mu.Unlock()
		if ok {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func press(v *Root, code rune, mod tea.KeyMod, text string) {
	_, _ = v.Update(tea.KeyPressMsg{Code: code, Mod: mod, Text: text})
}

func typeText(v *Root, s string) {
	for _, ch := range s {
		press(v, ch, 0, string(ch))
	}
}

func newPlaying(t *testing.T) (*Root, *mockController) {
	t.Helper()
	v := New(Options{ASCIIOnly: true})
	ctrl := &mockController{}
	v.SetController(ctrl)
	v.SetScreen(ScreenPlaying)
	v.SetPlayingState(PlayingState{PackID: "p", LevelID: "jugs", Title: "Jugs", Goal: "Measure 4L."})
	return v, ctrl
}

func TestEnterSubmitsAndRecordsHistory(t *testing.T) {
	v, ctrl := newPlaying(t)

	typeText(v, "/fill 5L")
	press(v, tea.KeyEnter, 0, "")
	typeText(v, "/pour 5L 3L")
	press(v, tea.KeyEnter, 0, "")

	ctrl.waitFor(t, "two submissions", func() bool { return len(ctrl.submitted) == 2 })
	if ctrl.submitted[0] != "/fill 5L" || ctrl.submitted[1] != "/pour 5L 3L" {
		t.Fatalf("unexpected submissions: %q", ctrl.submitted)
	}
	if v.input.Value() != "" {
		t.Fatalf("expected input cleared, got %q", v.input.Value())
	}

	typeText(v, "/em")
	press(v, tea.KeyUp, 0, "")
	if got := v.input.Value(); got != "/pour 5L 3L" {
		t.Fatalf("up: got %q", got)
	}
	press(v, tea.KeyUp, 0, "")
	if got := v.input.Value(); got != "/fill 5L" {
		t.Fatalf("up twice: got %q", got)
	}
	press(v, tea.KeyDown, 0, "")
	press(v, tea.KeyDown, 0, "")
	if got := v.input.Value(); got != "/em" {
		t.Fatalf("down to draft: got %q", got)
	}
}

func TestBlankEnterIsIgnored(t *testing.T) {
	v, ctrl := newPlaying(t)
	typeText(v, "   ")
	press(v, tea.KeyEnter, 0, "")
	time.Sleep(20 * time.Millisecond)
	ctrl.mu.Lock()
	defer ctrl.mu.Unlock()
	if len(ctrl.submitted) != 0 || v.history.Len() != 0 {
		t.Fatalf("blank input should not submit: %q", ctrl.submitted)
	}
}

func TestNewLevelStartsFreshHistory(t *testing.T) {
	v, _ := newPlaying(t)
	typeText(v, "/fill 3L")
	press(v, tea.KeyEnter, 0, "")
	if v.history.Len() != 1 {
		t.Fatalf("expected one history entry")
	}
	v.SetPlayingState(PlayingState{PackID: "p", LevelID: "jugs", Moves: 1})
	if v.history.Len() != 1 {
		t.Fatalf("same level should keep history")
	}
	v.SetPlayingState(PlayingState{PackID: "p", LevelID: "knight"})
	if v.history.Len() != 0 {
		t.Fatalf("new level should reset history")
	}
}

func TestF6ConfirmSubmitsReset(t *testing.T) {
	v, ctrl := newPlaying(t)

	press(v, tea.KeyF6, 0, "")
	if !v.resetOpen {
		t.Fatalf("expected reset confirm to open")
	}
	press(v, tea.KeyEnter, 0, "")
	if v.resetOpen {
		t.Fatalf("cancel should close the confirm")
	}

	press(v, tea.KeyF6, 0, "")
	press(v, tea.KeyRight, 0, "")
	press(v, tea.KeyEnter, 0, "")
	ctrl.waitFor(t, "reset submission", func() bool { return len(ctrl.submitted) == 1 })
	if ctrl.submitted[0] != "/reset" {
		t.Fatalf("expected /reset, got %q", ctrl.submitted)
	}
}

func TestF1SubmitsHelp(t *testing.T) {
	v, ctrl := newPlaying(t)
	press(v, tea.KeyF1, 0, "")
	ctrl.waitFor(t, "help submission", func() bool { return len(ctrl.submitted) == 1 })
	if ctrl.submitted[0] != "/help" {
		t.Fatalf("expected /help, got %q", ctrl.submitted)
	}
}

func TestHelpOverlayRendersAndCloses(t *testing.T) {
	v, _ := newPlaying(t)
	v.SetHelp("# Jugs\n\nFill and pour.", true)
	if v.topOverlay() != "help" {
		t.Fatalf("expected help overlay, got %q", v.topOverlay())
	}
	out := v.render()
	if !strings.Contains(out, "Fill and pour.") {
		t.Fatalf("help text missing from view")
	}
	press(v, tea.KeyEsc, 0, "")
	if v.overlayActive() {
		t.Fatalf("esc should close help")
	}
}

func TestResultOverlayNextRoom(t *testing.T) {
	v, ctrl := newPlaying(t)
	v.SetResult(ResultState{Visible: true, Score: 900, HasNext: true})
	if got := v.resultButtons(); got[0] != "Next room" {
		t.Fatalf("unexpected buttons: %q", got)
	}
	press(v, tea.KeyEnter, 0, "")
	ctrl.waitFor(t, "next level", func() bool { return ctrl.nextCalls == 1 })
	if v.result.Visible {
		t.Fatalf("result should close")
	}
}

func TestResultOverlayPlayAgain(t *testing.T) {
	v, ctrl := newPlaying(t)
	v.SetResult(ResultState{Visible: true})
	press(v, tea.KeyDown, 0, "")
	press(v, tea.KeyEnter, 0, "")
	ctrl.waitFor(t, "retry", func() bool { return ctrl.retryCalls == 1 })
}

func TestToastsExpireAndCap(t *testing.T) {
	now := time.Date(2026, time.April, 1, 12, 0, 0, 0, time.UTC)
	v := New(Options{MotionLevel: "off", Now: func() time.Time { return now }})
	v.SetScreen(ScreenPlaying)

	for i := 0; i < 5; i++ {
		v.Notify(notify.Notification{Title: "Poured", Description: "moved", Severity: notify.SeveritySuccess})
	}
	if len(v.toasts) != maxToasts {
		t.Fatalf("expected %d toasts, got %d", maxToasts, len(v.toasts))
	}
	if v.toasts[0].id != 3 {
		t.Fatalf("expected oldest kept toast to be #3, got #%d", v.toasts[0].id)
	}
	if !strings.Contains(v.render(), "Poured") {
		t.Fatalf("toast should render")
	}

	now = now.Add(toastTTL)
	_, _ = v.Update(clockMsg(now))
	if len(v.toasts) != 0 {
		t.Fatalf("expected toasts to expire, %d left", len(v.toasts))
	}
}

func TestToastSlidesIn(t *testing.T) {
	v := New(Options{})
	v.SetScreen(ScreenPlaying)
	_, cmd := v.Update(applyMsg{fn: func(m *Root) {
		m.pushToast(notify.Notification{Title: "Rejected", Severity: notify.SeverityDestructive})
	}})
	if cmd == nil {
		t.Fatalf("expected an animation tick")
	}
	for i := 0; i < 600 && v.stepToasts(); i++ {
	}
	if v.toasts[0].pos != 1 {
		t.Fatalf("toast should settle at 1, got %v", v.toasts[0].pos)
	}
}

func TestBladeTickerStopsWhenSceneStill(t *testing.T) {
	v := New(Options{})
	_, cmd := v.Update(applyMsg{fn: func(m *Root) {
		m.screen = ScreenPlaying
		m.state = PlayingState{LevelID: "fan", Animated: true}
	}})
	if cmd == nil || !v.bladesOn {
		t.Fatalf("expected blades to start")
	}
	gen := v.bladeGen

	_, cmd = v.Update(bladeMsg{gen: gen})
	if cmd == nil || v.bladeFrame != 1 {
		t.Fatalf("live tick should advance and reschedule")
	}

	_, _ = v.Update(applyMsg{fn: func(m *Root) { m.state.Animated = false }})
	if v.bladesOn || v.bladeGen == gen {
		t.Fatalf("expected blades stopped with a new generation")
	}
	_, cmd = v.Update(bladeMsg{gen: gen})
	if cmd != nil || v.bladeFrame != 1 {
		t.Fatalf("stale tick should be dropped")
	}
}

func TestLeavingPlayingStopsBlades(t *testing.T) {
	v := New(Options{})
	_, _ = v.Update(applyMsg{fn: func(m *Root) {
		m.screen = ScreenPlaying
		m.state = PlayingState{Animated: true}
	}})
	gen := v.bladeGen
	_, _ = v.Update(applyMsg{fn: func(m *Root) { m.screen = ScreenLevelSelect }})
	_, cmd := v.Update(bladeMsg{gen: gen})
	if cmd != nil || v.bladesOn {
		t.Fatalf("unmounted scene must not keep ticking")
	}
}

func TestMainMenuEnterActivatesSelection(t *testing.T) {
	v := New(Options{})
	ctrl := &mockController{}
	v.SetController(ctrl)
	v.SetScreen(ScreenMainMenu)

	press(v, tea.KeyEnter, 0, "")
	ctrl.waitFor(t, "continue", func() bool { return ctrl.continueCalls == 1 })
}

func TestLevelSelectStartsHighlightedLevel(t *testing.T) {
	v := New(Options{})
	ctrl := &mockController{}
	v.SetController(ctrl)
	v.SetCatalog([]PackSummary{{
		PackID: "escape-core",
		Name:   "Escape Core",
		Levels: []LevelSummary{{LevelID: "a", Title: "A"}, {LevelID: "b", Title: "B", Solved: true, BestScore: 1200}},
	}})
	v.SetScreen(ScreenLevelSelect)

	press(v, tea.KeyRight, 0, "")
	press(v, tea.KeyDown, 0, "")
	if !strings.Contains(v.levelDetailText(), "1,200") {
		t.Fatalf("expected humanized best score in details")
	}
	press(v, tea.KeyEnter, 0, "")
	ctrl.waitFor(t, "start level", func() bool { return len(ctrl.started) == 1 })
	if ctrl.started[0] != "escape-core/b" {
		t.Fatalf("started %q", ctrl.started)
	}
}

func TestCtrlQQuitsFromAnyScreen(t *testing.T) {
	v, ctrl := newPlaying(t)
	press(v, 'q', tea.ModCtrl, "")
	ctrl.waitFor(t, "quit", func() bool { return ctrl.quitCalls == 1 })
}

func TestTooSmallPlayingView(t *testing.T) {
	v, _ := newPlaying(t)
	_, _ = v.Update(tea.WindowSizeMsg{Width: 50, Height: 12})
	if !strings.Contains(v.render(), "Terminal too small") {
		t.Fatalf("expected resize notice")
	}
}

func TestComposeOverlayAtClipsToScreen(t *testing.T) {
	got := composeOverlayAt("abcdef\nghijkl", "XY\nZW", 6, 2, 1, 5)
	want := "abcdef\nghijkZ"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

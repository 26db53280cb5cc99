package levels

import (
	"errors"
	"math/rand/v2"
	"strings"
	"testing"
	"time"

	"escaperoom/internal/command"
	"escaperoom/internal/notify"
)

// counterPuzzle is solved when the counter reaches target and fails when it
// goes past it.
type counterPuzzle struct {
	n      int
	target int
	resets int
}

func (p *counterPuzzle) Reset(rng *rand.Rand) {
	p.n = 0
	p.target = 2 + rng.IntN(2)
	p.resets++
}

func (p *counterPuzzle) Rules() []command.Rule {
	return []command.Rule{
		{Verb: "inc", MaxArgs: 0, Apply: func([]string) (command.Reply, error) {
			p.n++
			return command.Ok("Inc", "n=%d", p.n), nil
		}},
		{Verb: "set", MinArgs: 1, MaxArgs: 1, Apply: func(args []string) (command.Reply, error) {
			if args[0] != "zero" {
				return command.Reply{}, command.Invalid("Bad value", "only zero")
			}
			p.n = 0
			return command.Ok("Set", "n=0"), nil
		}},
	}
}

func (p *counterPuzzle) Solved() bool { return p.n == p.target }
func (p *counterPuzzle) Failed() bool { return p.n > p.target }
func (p *counterPuzzle) Scene() Scene { return Scene{Goal: "count"} }

type manualTimer struct {
	f       func()
	stopped bool
}

func (m *manualTimer) Stop() bool {
	was := !m.stopped
	m.stopped = true
	return was
}

type timerLog struct {
	timers []*manualTimer
	delays []time.Duration
}

func (l *timerLog) after(d time.Duration, f func()) Timer {
	t := &manualTimer{f: f}
	l.timers = append(l.timers, t)
	l.delays = append(l.delays, d)
	return t
}

func (l *timerLog) fireAll() {
	for _, t := range l.timers {
		if !t.stopped {
			t.f()
		}
	}
}

func newTestSession(t *testing.T, fires *int) (*Session, *counterPuzzle, *timerLog) {
	t.Helper()
	p := &counterPuzzle{}
	timers := &timerLog{}
	s := NewSession(Level{LevelID: "count-up", Title: "Count"}, p, SessionOptions{
		Seed:       7,
		Delay:      CompletionDelay,
		AfterFunc:  timers.after,
		OnComplete: func(Completion) { *fires = *fires + 1 },
	})
	return s, p, timers
}

func solve(t *testing.T, s *Session, p *counterPuzzle) Outcome {
	t.Helper()
	var out Outcome
	for p.n < p.target {
		out = s.Submit("/inc")
		if !out.Accepted {
			t.Fatalf("inc rejected: %v", out.Err)
		}
	}
	return out
}

func TestSolveFiresCompletionOnceAfterDelay(t *testing.T) {
	fires := 0
	s, p, timers := newTestSession(t, &fires)

	out := solve(t, s, p)
	if !out.Solved || out.Notification.Severity != notify.SeveritySuccess {
		t.Fatalf("expected success outcome, got %+v", out)
	}
	if fires != 0 {
		t.Fatalf("completion must wait for the delay")
	}
	if len(timers.delays) != 1 || timers.delays[0] != CompletionDelay {
		t.Fatalf("expected one timer with the completion delay, got %v", timers.delays)
	}

	timers.fireAll()
	timers.fireAll()
	if fires != 1 {
		t.Fatalf("expected one completion, got %d", fires)
	}

	again := s.Submit("/inc")
	if again.Accepted || !errors.Is(again.Err, command.ErrIllegalAction) {
		t.Fatalf("expected solved room to reject puzzle commands, got %+v", again)
	}
	if len(timers.timers) != 1 {
		t.Fatalf("solved room must not schedule another completion")
	}
}

func TestResetCancelsPendingCompletionAndAllowsResolve(t *testing.T) {
	fires := 0
	s, p, timers := newTestSession(t, &fires)

	solve(t, s, p)
	out := s.Submit("reset")
	if !out.Accepted || !out.Reset {
		t.Fatalf("reset must always be accepted, got %+v", out)
	}
	if s.Solved() || p.n != 0 {
		t.Fatalf("reset must clear solved and state")
	}
	timers.fireAll()
	if fires != 0 {
		t.Fatalf("reset must cancel the pending completion")
	}

	solve(t, s, p)
	timers.fireAll()
	if fires != 1 {
		t.Fatalf("expected completion after solving again, got %d", fires)
	}
	if st := s.Stats(); st.Resets != 1 {
		t.Fatalf("expected one reset, got %d", st.Resets)
	}
}

func TestCloseStopsPendingCompletion(t *testing.T) {
	fires := 0
	s, p, timers := newTestSession(t, &fires)
	solve(t, s, p)
	s.Close()
	for _, tm := range timers.timers {
		tm.f()
	}
	if fires != 0 {
		t.Fatalf("closed session must not complete")
	}
	if out := s.Submit("/inc"); out.Accepted {
		t.Fatalf("closed session must reject input")
	}
}

func TestFailedStateOnlyLeavesThroughReset(t *testing.T) {
	fires := 0
	s, p, _ := newTestSession(t, &fires)
	p.n = p.target

	// Force past the target without tripping win detection.
	p.n++
	out := s.Submit("/inc")
	if !errors.Is(out.Err, command.ErrGameOver) || !out.Failed {
		t.Fatalf("expected game over, got %+v", out)
	}
	if help := s.Submit("/help"); !help.Accepted || !help.HelpRequested {
		t.Fatalf("help must work in the failed state, got %+v", help)
	}
	if reset := s.Submit("/reset"); !reset.Accepted || reset.Failed {
		t.Fatalf("reset must clear the failed state, got %+v", reset)
	}
	if s.Failed() {
		t.Fatalf("expected puzzle to leave failed state")
	}
}

func TestHelpDoesNotMutateState(t *testing.T) {
	fires := 0
	s, p, _ := newTestSession(t, &fires)
	s.Submit("/inc")
	before := p.n
	out := s.Submit("/HELP")
	if !out.HelpRequested || p.n != before {
		t.Fatalf("help changed state or was not flagged: %+v", out)
	}
	if st := s.Stats(); st.HelpUsed != 1 || st.Moves != 1 {
		t.Fatalf("unexpected stats %+v", st)
	}
}

func TestRejectedCommandsLeaveStateAlone(t *testing.T) {
	fires := 0
	s, p, _ := newTestSession(t, &fires)
	s.Submit("/inc")

	cases := []struct {
		input string
		kind  error
	}{
		{"/set one", command.ErrInvalidArgument},
		{"/dance", command.ErrUnknownCommand},
		{"/inc 3", command.ErrUnknownCommand},
	}
	for _, tc := range cases {
		out := s.Submit(tc.input)
		if !errors.Is(out.Err, tc.kind) {
			t.Fatalf("%s: expected %v, got %v", tc.input, tc.kind, out.Err)
		}
		if out.Notification.Severity != notify.SeverityDestructive {
			t.Fatalf("%s: expected destructive notification", tc.input)
		}
		if p.n != 1 {
			t.Fatalf("%s: state changed to %d", tc.input, p.n)
		}
	}
	if st := s.Stats(); st.Rejected != len(cases) {
		t.Fatalf("expected %d rejected, got %d", len(cases), st.Rejected)
	}
}

func TestSeedMakesResetsDeterministic(t *testing.T) {
	targets := func() []int {
		p := &counterPuzzle{}
		s := NewSession(Level{Title: "x"}, p, SessionOptions{Seed: 42, AfterFunc: (&timerLog{}).after})
		out := []int{p.target}
		for i := 0; i < 5; i++ {
			s.Submit("/reset")
			out = append(out, p.target)
		}
		return out
	}
	a, b := targets(), targets()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("seeded sessions diverged at %d: %v vs %v", i, a, b)
		}
	}
}

func TestHelpMarkdownListsSharedAndPuzzleCommands(t *testing.T) {
	fires := 0
	s, _, _ := newTestSession(t, &fires)
	md := s.HelpMarkdown()
	for _, want := range []string{"# Count", "`/reset`", "`/help`", "`/inc`"} {
		if !strings.Contains(md, want) {
			t.Fatalf("help markdown missing %q:\n%s", want, md)
		}
	}
}

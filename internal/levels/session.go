package levels

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"escaperoom/internal/command"
	"escaperoom/internal/notify"
)

// CompletionDelay is the pause between solving a level and the completion
// callback, long enough for the solve animation to play.
const CompletionDelay = 2 * time.Second

const (
	VerbReset = "reset"
	VerbHelp  = "help"
)

// Timer is the part of *time.Timer the session needs.
type Timer interface {
	Stop() bool
}

type AfterFunc func(d time.Duration, f func()) Timer

type SessionOptions struct {
	Seed uint64
	// Delay before OnComplete runs. Zero runs it as soon as the timer fires.
	Delay      time.Duration
	AfterFunc  AfterFunc
	OnComplete func(Completion)
}

type Stats struct {
	Submitted int
	Moves     int
	Rejected  int
	Resets    int
	HelpUsed  int
	StartedAt time.Time
}

type Completion struct {
	Level    Level
	Stats    Stats
	SolvedAt time.Time
}

// Outcome is the result of one submission.
type Outcome struct {
	Input         string
	Verb          string
	Notification  notify.Notification
	Err           error
	Accepted      bool
	Solved        bool
	Failed        bool
	HelpRequested bool
	Reset         bool
}

// Session runs one mounted level: it owns the puzzle, its random source and
// the pending completion timer.
type Session struct {
	mu         sync.Mutex
	level      Level
	puzzle     Puzzle
	rng        *rand.Rand
	dispatcher *command.Dispatcher
	delay      time.Duration
	afterFunc  AfterFunc
	onComplete func(Completion)

	solved  bool
	fired   bool
	closed  bool
	gen     uint64
	pending Timer
	stats   Stats
	now     func() time.Time
}

func NewSession(level Level, puzzle Puzzle, opts SessionOptions) *Session {
	seed := opts.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	after := opts.AfterFunc
	if after == nil {
		after = func(d time.Duration, f func()) Timer { return time.AfterFunc(d, f) }
	}
	s := &Session{
		level:      level,
		puzzle:     puzzle,
		rng:        rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		delay:      opts.Delay,
		afterFunc:  after,
		onComplete: opts.OnComplete,
		now:        time.Now,
	}
	s.stats.StartedAt = s.now()
	s.puzzle.Reset(s.rng)

	rules := []command.Rule{
		{
			Verb:    VerbReset,
			Usage:   "/reset",
			Summary: "start this room over",
			Apply:   s.applyReset,
		},
		{
			Verb:    VerbHelp,
			Aliases: []string{"?"},
			Usage:   "/help",
			Summary: "show the instructions",
			Apply: func([]string) (command.Reply, error) {
				return command.Ok("Help", "instructions for %s", s.level.Title), nil
			},
		},
	}
	for _, r := range puzzle.Rules() {
		rules = append(rules, s.gate(r))
	}
	s.dispatcher = command.NewDispatcher(rules...)
	return s
}

// gate rejects puzzle commands once the level is solved or failed.
func (s *Session) gate(r command.Rule) command.Rule {
	apply := r.Apply
	if apply == nil {
		return r
	}
	r.Apply = func(args []string) (command.Reply, error) {
		if s.solved {
			return command.Reply{}, command.Illegal("Already open", "this room is solved; use /reset to play it again")
		}
		if s.puzzle.Failed() {
			return command.Reply{}, command.GameOver("use /reset to try again")
		}
		return apply(args)
	}
	return r
}

func (s *Session) applyReset([]string) (command.Reply, error) {
	s.cancelPendingLocked()
	s.solved = false
	s.fired = false
	s.stats.Resets++
	s.puzzle.Reset(s.rng)
	return command.Ok("Reset", "%s is back to a fresh start", s.level.Title), nil
}

// Submit applies one line of input.
func (s *Session) Submit(raw string) Outcome {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		err := command.Illegal("Closed", "this room is no longer active")
		title, detail := command.Describe(err)
		return Outcome{Input: raw, Err: err, Notification: notify.Notification{Title: title, Description: detail, Severity: notify.SeverityDestructive}}
	}

	s.stats.Submitted++
	res := s.dispatcher.Dispatch(raw)
	out := Outcome{Input: res.Input.Raw, Verb: res.Input.Verb, Err: res.Err}
	if res.Rule != nil {
		out.Verb = res.Rule.Verb
	}
	if res.Err != nil {
		s.stats.Rejected++
		title, detail := command.Describe(res.Err)
		out.Notification = notify.Notification{Title: title, Description: detail, Severity: notify.SeverityDestructive}
		out.Failed = s.puzzle.Failed()
		return out
	}

	out.Accepted = true
	n := notify.Notification{Title: res.Reply.Title, Description: res.Reply.Detail, Severity: res.Reply.Severity}
	if n.Severity == "" {
		n.Severity = notify.SeverityDefault
	}
	switch out.Verb {
	case VerbReset:
		out.Reset = true
	case VerbHelp:
		out.HelpRequested = true
		s.stats.HelpUsed++
	default:
		s.stats.Moves++
		if !s.solved && s.puzzle.Solved() {
			s.solved = true
			out.Solved = true
			n.Severity = notify.SeveritySuccess
			s.scheduleCompletionLocked()
		}
	}
	out.Failed = s.puzzle.Failed()
	out.Notification = n
	return out
}

func (s *Session) scheduleCompletionLocked() {
	s.cancelPendingLocked()
	gen := s.gen
	s.pending = s.afterFunc(s.delay, func() {
		s.mu.Lock()
		if s.closed || gen != s.gen || s.fired {
			s.mu.Unlock()
			return
		}
		s.fired = true
		s.pending = nil
		cb := s.onComplete
		c := Completion{Level: s.level, Stats: s.stats, SolvedAt: s.now()}
		s.mu.Unlock()
		if cb != nil {
			cb(c)
		}
	})
}

func (s *Session) cancelPendingLocked() {
	s.gen++
	if s.pending != nil {
		s.pending.Stop()
		s.pending = nil
	}
}

// Close unmounts the session. A pending completion never fires afterwards.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	s.closed = true
	s.cancelPendingLocked()
}

func (s *Session) Level() Level { return s.level }

func (s *Session) Puzzle() Puzzle { return s.puzzle }

func (s *Session) Scene() Scene {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puzzle.Scene()
}

func (s *Session) Solved() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.solved
}

func (s *Session) Failed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.puzzle.Failed()
}

func (s *Session) Stats() Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stats
}

// Solution returns the walkthrough from the current state, if the puzzle
// knows one.
func (s *Session) Solution() ([]string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	solver, ok := s.puzzle.(Solver)
	if !ok || s.solved || s.puzzle.Failed() {
		return nil, false
	}
	return solver.Solution(), true
}

// HelpMarkdown is the level's help text followed by its command list.
func (s *Session) HelpMarkdown() string {
	var b strings.Builder
	b.WriteString("# " + s.level.Title + "\n\n")
	if strings.TrimSpace(s.level.HelpMD) != "" {
		b.WriteString(strings.TrimSpace(s.level.HelpMD))
		b.WriteString("\n\n")
	}
	b.WriteString("## Commands\n\n")
	for _, r := range s.dispatcher.Rules() {
		usage := r.Usage
		if usage == "" {
			usage = "/" + r.Verb
		}
		fmt.Fprintf(&b, "- `%s`", usage)
		if r.Summary != "" {
			b.WriteString(" " + r.Summary)
		}
		b.WriteString("\n")
	}
	return b.String()
}

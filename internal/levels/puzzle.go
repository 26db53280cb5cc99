package levels

import (
	"math/rand/v2"

	"escaperoom/internal/command"
)

// Puzzle is one level's state machine. Rules handlers mutate state; Solved
// and Failed are pure predicates over it.
type Puzzle interface {
	// Reset discards all state and draws a fresh starting configuration.
	Reset(rng *rand.Rand)
	Rules() []command.Rule
	Solved() bool
	Failed() bool
	Scene() Scene
}

// Solver is implemented by puzzles that can produce a command sequence which
// solves them from their current state.
type Solver interface {
	Solution() []string
}

type Scene struct {
	Art      []string
	Facts    []Fact
	Goal     string
	Animated bool
	// Progress is 0..1 for puzzles with a natural measure of it.
	Progress float64
}

type Fact struct {
	Label string
	Value string
}

package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
	"escaperoom/internal/notify"
)

const (
	farmer = iota
	wolf
	goat
	cabbage
)

var riverNames = []string{"farmer", "wolf", "goat", "cabbage"}

// River is the farmer, wolf, goat and cabbage crossing. far[i] reports
// whether item i is on the far bank.
type River struct {
	far    [4]bool
	failed bool
	reason string
}

func NewRiver() *River { return &River{} }

func (r *River) Reset(*rand.Rand) {
	r.far = [4]bool{}
	r.failed = false
	r.reason = ""
}

func (r *River) Rules() []command.Rule {
	return []command.Rule{{
		Verb:    "cross",
		Usage:   "/cross [wolf|goat|cabbage]",
		Summary: "row across, optionally with one passenger",
		MaxArgs: 1,
		Apply:   r.cross,
	}}
}

func (r *River) cross(args []string) (command.Reply, error) {
	passenger := -1
	if len(args) == 1 {
		passenger = riverIndex(args[0])
		if passenger <= farmer {
			return command.Reply{}, command.Invalid("No such passenger", "%q cannot ride; take the wolf, goat or cabbage", args[0])
		}
		if r.far[passenger] != r.far[farmer] {
			return command.Reply{}, command.Invalid("Not here", "the %s is on the other bank", riverNames[passenger])
		}
	}

	r.far[farmer] = !r.far[farmer]
	what := "alone"
	if passenger > 0 {
		r.far[passenger] = r.far[farmer]
		what = "with the " + riverNames[passenger]
	}

	if reason := unsafeBank(r.far, !r.far[farmer]); reason != "" {
		r.failed = true
		r.reason = reason
		return command.Reply{Title: "Disaster", Detail: reason + ". /reset to try again", Severity: notify.SeverityDestructive}, nil
	}
	return command.Ok("Crossed", "the farmer rows %s to the %s bank", what, bankName(r.far[farmer])), nil
}

// unsafeBank reports what goes wrong on the given bank when the farmer is
// not there.
func unsafeBank(far [4]bool, bank bool) string {
	if far[farmer] == bank {
		return ""
	}
	here := func(i int) bool { return far[i] == bank }
	switch {
	case here(wolf) && here(goat):
		return "the wolf ate the goat"
	case here(goat) && here(cabbage):
		return "the goat ate the cabbage"
	}
	return ""
}

func riverIndex(name string) int {
	for i, n := range riverNames {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

func bankName(far bool) string {
	if far {
		return "far"
	}
	return "near"
}

func (r *River) Solved() bool { return r.far == [4]bool{true, true, true, true} }

func (r *River) Failed() bool { return r.failed }

func (r *River) Scene() levels.Scene {
	var near, far []string
	for i, n := range riverNames {
		if r.far[i] {
			far = append(far, n)
		} else {
			near = append(near, n)
		}
	}
	boat := "  \\__/~~~~~~~~~~~~  "
	if r.far[farmer] {
		boat = "  ~~~~~~~~~~~~\\__/  "
	}
	count := 0
	for _, f := range r.far {
		if f {
			count++
		}
	}
	facts := []levels.Fact{{Label: "Boat", Value: bankName(r.far[farmer]) + " bank"}}
	if r.failed {
		facts = append(facts, levels.Fact{Label: "Lost", Value: r.reason})
	}
	return levels.Scene{
		Art: []string{
			fmt.Sprintf("near: %s", strings.Join(near, " ")),
			boat,
			fmt.Sprintf("far:  %s", strings.Join(far, " ")),
		},
		Goal:     "Get everyone to the far bank without anything being eaten.",
		Facts:    facts,
		Progress: float64(count) / 4,
	}
}

// Solution is a shortest safe crossing plan from the current banks.
func (r *River) Solution() []string {
	if r.failed {
		return nil
	}
	type node struct {
		far  [4]bool
		cmds []string
	}
	goal := [4]bool{true, true, true, true}
	seen := map[[4]bool]bool{r.far: true}
	queue := []node{{far: r.far}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.far == goal {
			return cur.cmds
		}
		for p := 0; p < len(riverNames); p++ {
			if p != farmer && cur.far[p] != cur.far[farmer] {
				continue
			}
			next := cur.far
			next[farmer] = !next[farmer]
			cmd := "/cross"
			if p != farmer {
				next[p] = next[farmer]
				cmd += " " + riverNames[p]
			}
			if seen[next] || unsafeBank(next, !next[farmer]) != "" {
				continue
			}
			seen[next] = true
			queue = append(queue, node{far: next, cmds: append(append([]string(nil), cur.cmds...), cmd)})
		}
	}
	return nil
}

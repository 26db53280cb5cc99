package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

type JugsConfig struct {
	Capacities []int `yaml:"capacities"`
	Target     int   `yaml:"target"`
	TargetJug  int   `yaml:"target_jug"`
}

func defaultJugsConfig() JugsConfig {
	return JugsConfig{Capacities: []int{5, 3}, Target: 4, TargetJug: 0}
}

// Jugs is the water-measuring puzzle. Jugs start empty; the tap and drain
// are unlimited.
type Jugs struct {
	cfg    JugsConfig
	names  []string
	amount []int
}

func NewJugs(cfg JugsConfig) (*Jugs, error) {
	if len(cfg.Capacities) < 2 {
		return nil, fmt.Errorf("need at least two jugs")
	}
	seen := map[int]bool{}
	names := make([]string, len(cfg.Capacities))
	for i, c := range cfg.Capacities {
		if c <= 0 {
			return nil, fmt.Errorf("capacity must be >0, got %d", c)
		}
		if seen[c] {
			return nil, fmt.Errorf("duplicate capacity %d", c)
		}
		seen[c] = true
		names[i] = fmt.Sprintf("%dL", c)
	}
	if cfg.TargetJug < 0 || cfg.TargetJug >= len(cfg.Capacities) {
		return nil, fmt.Errorf("target_jug out of range")
	}
	if cfg.Target <= 0 || cfg.Target > cfg.Capacities[cfg.TargetJug] {
		return nil, fmt.Errorf("target must be 1..%d", cfg.Capacities[cfg.TargetJug])
	}
	return &Jugs{cfg: cfg, names: names, amount: make([]int, len(cfg.Capacities))}, nil
}

func (j *Jugs) Reset(*rand.Rand) {
	for i := range j.amount {
		j.amount[i] = 0
	}
}

func (j *Jugs) Rules() []command.Rule {
	return []command.Rule{
		{Verb: "fill", Usage: "/fill <jug>", Summary: "fill a jug from the tap", MinArgs: 1, MaxArgs: 1, Apply: j.fill},
		{Verb: "empty", Usage: "/empty <jug>", Summary: "pour a jug down the drain", MinArgs: 1, MaxArgs: 1, Apply: j.empty},
		{Verb: "pour", Usage: "/pour <from> <to>", Summary: "pour one jug into another", MinArgs: 2, MaxArgs: 2, Apply: j.pour},
	}
}

// jug accepts "5L", "5l" or "5".
func (j *Jugs) jug(raw string) (int, error) {
	name := strings.ToUpper(strings.TrimSpace(raw))
	if !strings.HasSuffix(name, "L") {
		name += "L"
	}
	for i, n := range j.names {
		if n == name {
			return i, nil
		}
	}
	return -1, command.Invalid("No such jug", "%s is not a jug; jugs are %s", raw, strings.Join(j.names, ", "))
}

func (j *Jugs) fill(args []string) (command.Reply, error) {
	i, err := j.jug(args[0])
	if err != nil {
		return command.Reply{}, err
	}
	j.amount[i] = j.cfg.Capacities[i]
	return command.Ok("Filled", "%s is full. %s", j.names[i], j.contents()), nil
}

func (j *Jugs) empty(args []string) (command.Reply, error) {
	i, err := j.jug(args[0])
	if err != nil {
		return command.Reply{}, err
	}
	j.amount[i] = 0
	return command.Ok("Emptied", "%s is empty. %s", j.names[i], j.contents()), nil
}

func (j *Jugs) pour(args []string) (command.Reply, error) {
	from, err := j.jug(args[0])
	if err != nil {
		return command.Reply{}, err
	}
	to, err := j.jug(args[1])
	if err != nil {
		return command.Reply{}, err
	}
	if from == to {
		return command.Reply{}, command.Invalid("Same jug", "pick two different jugs")
	}
	moved := min(j.amount[from], j.cfg.Capacities[to]-j.amount[to])
	j.amount[from] -= moved
	j.amount[to] += moved
	return command.Ok("Poured", "moved %dL from %s to %s. %s", moved, j.names[from], j.names[to], j.contents()), nil
}

// Amounts reports the current contents of each jug in litres.
func (j *Jugs) Amounts() []int { return append([]int(nil), j.amount...) }

func (j *Jugs) contents() string {
	parts := make([]string, len(j.names))
	for i, n := range j.names {
		parts[i] = fmt.Sprintf("%s=%d", n, j.amount[i])
	}
	return strings.Join(parts, " ")
}

func (j *Jugs) Solved() bool { return j.amount[j.cfg.TargetJug] == j.cfg.Target }

func (j *Jugs) Failed() bool { return false }

func (j *Jugs) Scene() levels.Scene {
	art := make([]string, 0, len(j.names))
	for i, n := range j.names {
		c := j.cfg.Capacities[i]
		art = append(art, fmt.Sprintf("%4s |%s%s| %d/%d", n, strings.Repeat("#", j.amount[i]), strings.Repeat(".", c-j.amount[i]), j.amount[i], c))
	}
	return levels.Scene{
		Art:      art,
		Goal:     fmt.Sprintf("Measure exactly %dL in the %s jug.", j.cfg.Target, j.names[j.cfg.TargetJug]),
		Facts:    []levels.Fact{{Label: "Jugs", Value: j.contents()}},
		Progress: min(1, float64(j.amount[j.cfg.TargetJug])/float64(j.cfg.Target)),
	}
}

// Solution is a shortest command sequence from the current amounts.
func (j *Jugs) Solution() []string {
	type node struct {
		state []int
		cmds  []string
	}
	key := func(s []int) string { return fmt.Sprint(s) }
	start := append([]int(nil), j.amount...)
	seen := map[string]bool{key(start): true}
	queue := []node{{state: start}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur.state[j.cfg.TargetJug] == j.cfg.Target {
			return cur.cmds
		}
		for _, next := range j.successors(cur.state) {
			k := key(next.state)
			if seen[k] {
				continue
			}
			seen[k] = true
			cmds := append(append([]string(nil), cur.cmds...), next.cmd)
			queue = append(queue, node{state: next.state, cmds: cmds})
		}
	}
	return nil
}

type jugMove struct {
	state []int
	cmd   string
}

func (j *Jugs) successors(s []int) []jugMove {
	var out []jugMove
	for i := range s {
		if s[i] < j.cfg.Capacities[i] {
			n := append([]int(nil), s...)
			n[i] = j.cfg.Capacities[i]
			out = append(out, jugMove{n, "/fill " + j.names[i]})
		}
		if s[i] > 0 {
			n := append([]int(nil), s...)
			n[i] = 0
			out = append(out, jugMove{n, "/empty " + j.names[i]})
		}
		for k := range s {
			if k == i || s[i] == 0 || s[k] == j.cfg.Capacities[k] {
				continue
			}
			n := append([]int(nil), s...)
			moved := min(n[i], j.cfg.Capacities[k]-n[k])
			n[i] -= moved
			n[k] += moved
			out = append(out, jugMove{n, "/pour " + j.names[i] + " " + j.names[k]})
		}
	}
	return out
}

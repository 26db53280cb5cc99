package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

type FanConfig struct {
	CodeLength int `yaml:"code_length"`
}

func defaultFanConfig() FanConfig { return FanConfig{CodeLength: 4} }

// Fan hides a terminal code behind spinning blades. The code can only be
// entered while the fan is off.
type Fan struct {
	cfg    FanConfig
	on     bool
	code   string
	solved bool
}

func NewFan(cfg FanConfig) (*Fan, error) {
	if cfg.CodeLength < 1 || cfg.CodeLength > 12 {
		return nil, fmt.Errorf("code_length must be 1..12, got %d", cfg.CodeLength)
	}
	return &Fan{cfg: cfg}, nil
}

func (f *Fan) Reset(rng *rand.Rand) {
	b := make([]byte, f.cfg.CodeLength)
	for i := range b {
		b[i] = byte('A' + rng.IntN(26))
	}
	f.code = string(b)
	f.on = true
	f.solved = false
}

func (f *Fan) Rules() []command.Rule {
	return []command.Rule{
		{Verb: "power", Usage: "/power <on|off>", Summary: "switch the fan", MinArgs: 1, MaxArgs: 1, Apply: f.power},
		{Verb: "enter", Usage: "/enter <code>", Summary: "type the terminal code", MinArgs: 1, MaxArgs: -1, Apply: f.enter},
	}
}

func (f *Fan) power(args []string) (command.Reply, error) {
	switch strings.ToLower(args[0]) {
	case "on":
		f.on = true
		return command.Ok("Fan on", "the blades spin up"), nil
	case "off":
		f.on = false
		return command.Ok("Fan off", "the blades slow to a stop"), nil
	}
	return command.Reply{}, command.Invalid("Bad switch", "power is on or off, not %q", args[0])
}

func (f *Fan) enter(args []string) (command.Reply, error) {
	if f.on {
		return command.Reply{}, command.Illegal("Display not legible", "the spinning blades hide the terminal")
	}
	got := strings.Join(args, "")
	if !strings.EqualFold(got, f.code) {
		return command.Reply{}, command.Invalid("Wrong code", "the terminal rejects %q", got)
	}
	f.solved = true
	return command.Ok("Accepted", "the terminal unlocks the door"), nil
}

func (f *Fan) Spinning() bool { return f.on }

func (f *Fan) Solved() bool { return f.solved }

func (f *Fan) Failed() bool { return false }

func (f *Fan) Scene() levels.Scene {
	screen := f.code
	state := "stopped"
	if f.on {
		screen = strings.Repeat("#", len(f.code))
		state = "spinning"
	}
	return levels.Scene{
		Art: []string{
			"+--------------+",
			fmt.Sprintf("|  %-12s|", screen),
			"+--------------+",
		},
		Goal:     "Read the code on the terminal and enter it.",
		Facts:    []levels.Fact{{Label: "Fan", Value: state}},
		Animated: f.on,
	}
}

func (f *Fan) Solution() []string {
	var out []string
	if f.on {
		out = append(out, "/power off")
	}
	return append(out, "/enter "+f.code)
}

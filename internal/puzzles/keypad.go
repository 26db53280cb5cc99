package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

const keypadDisplay = 8

type KeypadConfig struct {
	Length int `yaml:"length"`
}

func defaultKeypadConfig() KeypadConfig { return KeypadConfig{Length: 4} }

// Keypad is a PIN pad that only types while numlock is on. The PIN is
// written on the wall in Roman numerals, so digits are never zero.
type Keypad struct {
	cfg     KeypadConfig
	pin     []int
	numlock bool
	display []int
	solved  bool
	tries   int
}

func NewKeypad(cfg KeypadConfig) (*Keypad, error) {
	if cfg.Length < 1 || cfg.Length > keypadDisplay {
		return nil, fmt.Errorf("length must be 1..%d, got %d", keypadDisplay, cfg.Length)
	}
	return &Keypad{cfg: cfg}, nil
}

func (k *Keypad) Reset(rng *rand.Rand) {
	k.pin = make([]int, k.cfg.Length)
	for i := range k.pin {
		k.pin[i] = 1 + rng.IntN(9)
	}
	k.numlock = false
	k.display = nil
	k.solved = false
	k.tries = 0
}

func (k *Keypad) Rules() []command.Rule {
	return []command.Rule{
		{Verb: "toggle", Usage: "/toggle numlock", Summary: "switch numlock", MinArgs: 1, MaxArgs: 1, Match: command.Exact(0, "numlock"), Apply: k.toggle},
		{Verb: "press", Usage: "/press <digit>", Summary: "type one digit", MinArgs: 1, MaxArgs: 1, Apply: k.press},
		{Verb: "clear", Usage: "/clear", Summary: "wipe the display", Apply: k.clear},
		{Verb: "submit", Usage: "/submit", Summary: "try the code on the display", Apply: k.submit},
	}
}

func (k *Keypad) toggle([]string) (command.Reply, error) {
	k.numlock = !k.numlock
	return command.Ok("Numlock", "numlock is %s", onOff(k.numlock)), nil
}

func (k *Keypad) press(args []string) (command.Reply, error) {
	if !k.numlock {
		return command.Reply{}, command.Illegal("Keypad dead", "nothing happens; numlock is off")
	}
	if len(args[0]) != 1 || args[0][0] < '0' || args[0][0] > '9' {
		return command.Reply{}, command.Invalid("Not a digit", "press one key from 0 to 9, not %q", args[0])
	}
	if len(k.display) >= keypadDisplay {
		return command.Reply{}, command.Invalid("Display full", "/clear the display first")
	}
	k.display = append(k.display, int(args[0][0]-'0'))
	return command.Ok("Beep", "display shows %s", k.shown()), nil
}

func (k *Keypad) clear([]string) (command.Reply, error) {
	k.display = nil
	return command.Ok("Cleared", "the display is blank"), nil
}

func (k *Keypad) submit([]string) (command.Reply, error) {
	if len(k.display) != len(k.pin) {
		return command.Reply{}, command.Invalid("Wrong length", "the code has %d digits; the display shows %d", len(k.pin), len(k.display))
	}
	k.tries++
	for i := range k.pin {
		if k.pin[i] != k.display[i] {
			return command.Reply{}, command.Invalid("Access denied", "%s is not the code", k.shown())
		}
	}
	k.solved = true
	return command.Ok("Access granted", "the lock clicks open"), nil
}

func (k *Keypad) shown() string {
	var b strings.Builder
	for _, d := range k.display {
		b.WriteString(strconv.Itoa(d))
	}
	return b.String()
}

// Clue is the PIN as Roman numerals, one per digit.
func (k *Keypad) Clue() string {
	parts := make([]string, len(k.pin))
	for i, d := range k.pin {
		parts[i] = roman(d)
	}
	return strings.Join(parts, " - ")
}

func (k *Keypad) Solved() bool { return k.solved }

func (k *Keypad) Failed() bool { return false }

func (k *Keypad) Scene() levels.Scene {
	shown := k.shown()
	if shown == "" {
		shown = "_"
	}
	return levels.Scene{
		Art: []string{
			"+-----------+",
			fmt.Sprintf("| %-9s |", shown),
			"+-----------+",
			"| 7   8   9 |",
			"| 4   5   6 |",
			"| 1   2   3 |",
			"|     0     |",
			"+-----------+",
			"",
			"Scratched on the wall: " + k.Clue(),
		},
		Goal: "Type the code from the wall and submit it.",
		Facts: []levels.Fact{
			{Label: "Numlock", Value: onOff(k.numlock)},
			{Label: "Attempts", Value: strconv.Itoa(k.tries)},
		},
		Progress: float64(min(len(k.display), len(k.pin))) / float64(len(k.pin)),
	}
}

func (k *Keypad) Solution() []string {
	var out []string
	if !k.numlock {
		out = append(out, "/toggle numlock")
	}
	if len(k.display) > 0 {
		out = append(out, "/clear")
	}
	for _, d := range k.pin {
		out = append(out, fmt.Sprintf("/press %d", d))
	}
	return append(out, "/submit")
}

var romanTable = []struct {
	value  int
	symbol string
}{
	{1000, "M"}, {900, "CM"}, {500, "D"}, {400, "CD"},
	{100, "C"}, {90, "XC"}, {50, "L"}, {40, "XL"},
	{10, "X"}, {9, "IX"}, {5, "V"}, {4, "IV"}, {1, "I"},
}

func roman(n int) string {
	var b strings.Builder
	for _, r := range romanTable {
		for n >= r.value {
			b.WriteString(r.symbol)
			n -= r.value
		}
	}
	return b.String()
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}

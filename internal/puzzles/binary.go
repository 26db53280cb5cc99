package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

type BinaryConfig struct {
	Bits int `yaml:"bits"`
}

func defaultBinaryConfig() BinaryConfig { return BinaryConfig{Bits: 7} }

// Binary shows a random bit row, most significant bit first.
type Binary struct {
	bits   []int
	solved bool
}

func NewBinary(cfg BinaryConfig) (*Binary, error) {
	if cfg.Bits < 1 || cfg.Bits > 16 {
		return nil, fmt.Errorf("bits must be 1..16, got %d", cfg.Bits)
	}
	return &Binary{bits: make([]int, cfg.Bits)}, nil
}

func (b *Binary) Reset(rng *rand.Rand) {
	for i := range b.bits {
		b.bits[i] = rng.IntN(2)
	}
	b.solved = false
}

func (b *Binary) Rules() []command.Rule {
	return []command.Rule{{
		Verb:    "number",
		Usage:   "/number <value>",
		Summary: "say the decimal value of the lamps",
		MinArgs: 1,
		MaxArgs: 1,
		Apply: func(args []string) (command.Reply, error) {
			n, err := parseInt("Not a number", args[0])
			if err != nil {
				return command.Reply{}, err
			}
			if n != b.Target() {
				return command.Reply{}, command.Invalid("Wrong number", "%d does not open the door", n)
			}
			b.solved = true
			return command.Ok("Correct", "%s is %d", b.String(), n), nil
		},
	}}
}

// Target is the bit row read as a base-2 number.
func (b *Binary) Target() int {
	n, _ := strconv.ParseInt(b.String(), 2, 64)
	return int(n)
}

func (b *Binary) String() string {
	var s strings.Builder
	for _, bit := range b.bits {
		s.WriteString(strconv.Itoa(bit))
	}
	return s.String()
}

func (b *Binary) Solved() bool { return b.solved }

func (b *Binary) Failed() bool { return false }

func (b *Binary) Scene() levels.Scene {
	lamps := make([]string, len(b.bits))
	for i, bit := range b.bits {
		lamps[i] = "( )"
		if bit == 1 {
			lamps[i] = "(*)"
		}
	}
	return levels.Scene{
		Art:   []string{strings.Join(lamps, " ")},
		Goal:  "Read the lamps as a binary number.",
		Facts: []levels.Fact{{Label: "Lamps", Value: strconv.Itoa(len(b.bits))}},
	}
}

func (b *Binary) Solution() []string {
	return []string{fmt.Sprintf("/number %d", b.Target())}
}

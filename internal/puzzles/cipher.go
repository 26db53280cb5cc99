package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

type CipherConfig struct {
	Phrases  []string `yaml:"phrases"`
	MinShift int      `yaml:"min_shift"`
	MaxShift int      `yaml:"max_shift"`
}

func defaultCipherConfig() CipherConfig {
	return CipherConfig{Phrases: []string{"open sesame"}, MinShift: 1, MaxShift: 25}
}

// Cipher shows a Caesar-shifted phrase; entering the plain phrase solves it.
type Cipher struct {
	cfg    CipherConfig
	plain  string
	shift  int
	solved bool
}

func NewCipher(cfg CipherConfig) (*Cipher, error) {
	if len(cfg.Phrases) == 0 {
		return nil, fmt.Errorf("phrases must not be empty")
	}
	if cfg.MinShift < 1 || cfg.MaxShift > 25 || cfg.MinShift > cfg.MaxShift {
		return nil, fmt.Errorf("shift range must be within 1..25")
	}
	return &Cipher{cfg: cfg}, nil
}

func (c *Cipher) Reset(rng *rand.Rand) {
	c.plain = normalizePhrase(c.cfg.Phrases[rng.IntN(len(c.cfg.Phrases))])
	c.shift = c.cfg.MinShift + rng.IntN(c.cfg.MaxShift-c.cfg.MinShift+1)
	c.solved = false
}

func (c *Cipher) Rules() []command.Rule {
	return []command.Rule{{
		Verb:    "enter",
		Usage:   "/enter <text>",
		Summary: "say the decoded phrase",
		MinArgs: 1,
		MaxArgs: -1,
		Apply: func(args []string) (command.Reply, error) {
			got := normalizePhrase(strings.Join(args, " "))
			if got != c.plain {
				return command.Reply{}, command.Invalid("Wrong password", "the lock does not move for %q", got)
			}
			c.solved = true
			return command.Ok("Decoded", "%q opens the lock", c.plain), nil
		},
	}}
}

// Encoded is the phrase as written on the note.
func (c *Cipher) Encoded() string {
	return strings.Map(func(r rune) rune {
		if r >= 'a' && r <= 'z' {
			return 'a' + (r-'a'+rune(c.shift))%26
		}
		return r
	}, c.plain)
}

func (c *Cipher) Solved() bool { return c.solved }

func (c *Cipher) Failed() bool { return false }

func (c *Cipher) Scene() levels.Scene {
	return levels.Scene{
		Art: []string{
			"  ______________________________",
			" /                             /|",
			fmt.Sprintf("|  %-28s| |", strings.ToUpper(c.Encoded())),
			fmt.Sprintf("|  %28s| /", "+"+strconv.Itoa(c.shift)),
			"|______________________________|/",
		},
		Goal:  "Undo the shift and say what the note says.",
		Facts: []levels.Fact{{Label: "Shift", Value: "+" + strconv.Itoa(c.shift)}},
	}
}

func (c *Cipher) Solution() []string {
	return []string{fmt.Sprintf("/enter %q", c.plain)}
}

func normalizePhrase(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

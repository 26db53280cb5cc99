package puzzles

import (
	"fmt"
	"math/rand/v2"
	"slices"
	"strconv"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
	"escaperoom/internal/notify"
)

type CoinsConfig struct {
	Coins        int `yaml:"coins"`
	MinWeighings int `yaml:"min_weighings"`
}

func defaultCoinsConfig() CoinsConfig { return CoinsConfig{Coins: 12, MinWeighings: 3} }

// Coins hides one counterfeit among identical coins. A correct guess only
// counts once MinWeighings weighings have been made; an earlier correct
// guess is treated as a bluff and rejected.
type Coins struct {
	cfg       CoinsConfig
	fake      int
	heavy     bool
	weighings int
	log       []string
	solved    bool
	failed    bool
	lastGuess int
}

func NewCoins(cfg CoinsConfig) (*Coins, error) {
	if cfg.Coins < 3 || cfg.Coins > 40 {
		return nil, fmt.Errorf("coins must be 3..40, got %d", cfg.Coins)
	}
	if cfg.MinWeighings < 0 {
		return nil, fmt.Errorf("min_weighings must be >= 0")
	}
	return &Coins{cfg: cfg}, nil
}

func (c *Coins) Reset(rng *rand.Rand) {
	c.fake = 1 + rng.IntN(c.cfg.Coins)
	c.heavy = rng.IntN(2) == 0
	c.weighings = 0
	c.log = nil
	c.solved = false
	c.failed = false
	c.lastGuess = 0
}

func (c *Coins) Rules() []command.Rule {
	return []command.Rule{
		{Verb: "weigh", Usage: "/weigh <a,b,c> <d,e,f>", Summary: "compare two groups of coins", MinArgs: 2, MaxArgs: 2, Apply: c.weigh},
		{Verb: "guess", Usage: "/guess <n>", Summary: "name the fake coin", MinArgs: 1, MaxArgs: 1, Apply: c.guess},
	}
}

func (c *Coins) weigh(args []string) (command.Reply, error) {
	left, err := c.group(args[0])
	if err != nil {
		return command.Reply{}, err
	}
	right, err := c.group(args[1])
	if err != nil {
		return command.Reply{}, err
	}
	if len(left) != len(right) {
		return command.Reply{}, command.Invalid("Uneven pans", "put the same number of coins on each pan (%d vs %d)", len(left), len(right))
	}
	for _, l := range left {
		for _, r := range right {
			if l == r {
				return command.Reply{}, command.Invalid("Duplicate coin", "coin %d cannot sit on both pans", l)
			}
		}
	}

	result := "the pans balance"
	if slices.Contains(left, c.fake) || slices.Contains(right, c.fake) {
		result = "right pan is heavier"
		if slices.Contains(left, c.fake) == c.heavy {
			result = "left pan is heavier"
		}
	}
	c.weighings++
	entry := fmt.Sprintf("#%d %s vs %s: %s", c.weighings, joinInts(left), joinInts(right), result)
	c.log = append(c.log, entry)
	return command.Ok("Weighed", "%s. %d %s so far", result, c.weighings, plural(c.weighings, "weighing", "weighings")), nil
}

func (c *Coins) group(raw string) ([]int, error) {
	parts := strings.Split(raw, ",")
	out := make([]int, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			return nil, command.Invalid("Bad group", "%q has an empty slot; list coins like 1,2,3", raw)
		}
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, command.Invalid("Bad group", "%q is not a coin number", p)
		}
		if n < 1 || n > c.cfg.Coins {
			return nil, command.Invalid("No such coin", "coins are numbered 1 to %d", c.cfg.Coins)
		}
		if slices.Contains(out, n) {
			return nil, command.Invalid("Duplicate coin", "coin %d is listed twice", n)
		}
		out = append(out, n)
	}
	return out, nil
}

func (c *Coins) guess(args []string) (command.Reply, error) {
	n, err := parseInt("Bad guess", args[0])
	if err != nil {
		return command.Reply{}, err
	}
	if n < 1 || n > c.cfg.Coins {
		return command.Reply{}, command.Invalid("No such coin", "coins are numbered 1 to %d", c.cfg.Coins)
	}
	c.lastGuess = n
	if n != c.fake {
		c.failed = true
		return command.Reply{
			Title:    "Wrong coin",
			Detail:   fmt.Sprintf("coin %d is genuine and the vault has locked. /reset to try again", n),
			Severity: notify.SeverityDestructive,
		}, nil
	}
	if c.weighings < c.cfg.MinWeighings {
		c.solved = false
		return command.Reply{}, command.Illegal("Bluff detected", "a guess after %d %s proves nothing; weigh at least %d times first",
			c.weighings, plural(c.weighings, "weighing", "weighings"), c.cfg.MinWeighings)
	}
	c.solved = true
	weight := "lighter"
	if c.heavy {
		weight = "heavier"
	}
	return command.Ok("Found it", "coin %d is the fake, %s than the rest", n, weight), nil
}

func (c *Coins) Solved() bool { return c.solved }

func (c *Coins) Failed() bool { return c.failed }

func (c *Coins) Weighings() int { return c.weighings }

func (c *Coins) Scene() levels.Scene {
	var coins strings.Builder
	for i := 1; i <= c.cfg.Coins; i++ {
		fmt.Fprintf(&coins, "(%2d)", i)
	}
	art := []string{coins.String(), "", "      ___|___", "     /   |   \\", "   [___] | [___]", "       __|__"}
	if len(c.log) > 0 {
		art = append(art, "")
		art = append(art, c.log...)
	}
	status := "searching"
	switch {
	case c.failed:
		status = fmt.Sprintf("locked (guessed %d)", c.lastGuess)
	case c.solved:
		status = "open"
	}
	return levels.Scene{
		Art:  art,
		Goal: fmt.Sprintf("Find the fake among %d coins.", c.cfg.Coins),
		Facts: []levels.Fact{
			{Label: "Weighings", Value: fmt.Sprintf("%d (need %d)", c.weighings, c.cfg.MinWeighings)},
			{Label: "Vault", Value: status},
		},
		Progress: min(1, float64(c.weighings)/float64(max(1, c.cfg.MinWeighings))),
	}
}

// Solution splits the coins into thirds for as many weighings as the vault
// still wants, then names the fake.
func (c *Coins) Solution() []string {
	if c.failed || c.solved {
		return nil
	}
	third := c.cfg.Coins / 3
	var out []string
	for i := c.weighings; i < c.cfg.MinWeighings; i++ {
		offset := (i % 2) * third
		left := make([]int, 0, third)
		right := make([]int, 0, third)
		for k := 0; k < third; k++ {
			left = append(left, 1+(offset+k)%c.cfg.Coins)
			right = append(right, 1+(offset+third+k)%c.cfg.Coins)
		}
		out = append(out, fmt.Sprintf("/weigh %s %s", joinInts(left), joinInts(right)))
	}
	return append(out, fmt.Sprintf("/guess %d", c.fake))
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

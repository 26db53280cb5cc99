package puzzles

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strconv"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

const (
	gravity        = 9.81
	rangeTolerance = 0.5
)

type CannonConfig struct {
	Velocity float64 `yaml:"velocity"`
	Step     int     `yaml:"step"`
}

func defaultCannonConfig() CannonConfig { return CannonConfig{Velocity: 30, Step: 15} }

// Cannon must be aimed at an angle whose flat-ground range reaches the lock.
type Cannon struct {
	cfg         CannonConfig
	angle       int
	aimed       bool
	target      float64
	targetAngle int
	shots       int
	hit         bool
	last        float64
}

func NewCannon(cfg CannonConfig) (*Cannon, error) {
	if cfg.Velocity <= 0 {
		return nil, fmt.Errorf("velocity must be >0")
	}
	if cfg.Step <= 0 || 90%cfg.Step != 0 || cfg.Step >= 90 {
		return nil, fmt.Errorf("step must divide 90, got %d", cfg.Step)
	}
	return &Cannon{cfg: cfg}, nil
}

func (c *Cannon) Reset(rng *rand.Rand) {
	// Skip 0 and 90 degrees; both land at the muzzle.
	slots := 90/c.cfg.Step - 1
	c.targetAngle = c.cfg.Step * (1 + rng.IntN(slots))
	c.target = c.rangeAt(c.targetAngle)
	c.angle = 0
	c.aimed = false
	c.shots = 0
	c.hit = false
	c.last = 0
}

func (c *Cannon) Rules() []command.Rule {
	return []command.Rule{
		{
			Verb:    "rotate",
			Usage:   "/rotate cannon <angle>",
			Summary: "set the barrel angle",
			MinArgs: 2,
			MaxArgs: 2,
			Match:   command.Exact(0, "cannon"),
			Apply:   c.rotate,
		},
		{Verb: "fire", Usage: "/fire", Summary: "shoot", Apply: c.fire},
	}
}

func (c *Cannon) rotate(args []string) (command.Reply, error) {
	a, err := parseInt("Bad angle", args[1])
	if err != nil {
		return command.Reply{}, err
	}
	if a < 0 || a > 90 || a%c.cfg.Step != 0 {
		return command.Reply{}, command.Invalid("Bad angle", "angles go from 0 to 90 in steps of %d", c.cfg.Step)
	}
	c.angle = a
	c.aimed = true
	return command.Ok("Aimed", "barrel at %d degrees", a), nil
}

func (c *Cannon) fire([]string) (command.Reply, error) {
	if !c.aimed {
		return command.Reply{}, command.Illegal("Not aimed", "rotate the cannon before firing")
	}
	c.shots++
	c.last = c.rangeAt(c.angle)
	if math.Abs(c.last-c.target) <= rangeTolerance {
		c.hit = true
		return command.Ok("Direct hit", "the lock shatters at %.1f m", c.last), nil
	}
	side := "short"
	if c.last > c.target {
		side = "long"
	}
	return command.Ok("Miss", "the ball lands %.1f m, %.1f m %s", c.last, math.Abs(c.last-c.target), side), nil
}

func (c *Cannon) rangeAt(angle int) float64 {
	rad := float64(angle) * math.Pi / 180
	return c.cfg.Velocity * c.cfg.Velocity * math.Sin(2*rad) / gravity
}

func (c *Cannon) Solved() bool { return c.hit }

func (c *Cannon) Failed() bool { return false }

func (c *Cannon) Scene() levels.Scene {
	barrel := "not set"
	if c.aimed {
		barrel = strconv.Itoa(c.angle) + " deg"
	}
	facts := []levels.Fact{
		{Label: "Barrel", Value: barrel},
		{Label: "Lock", Value: fmt.Sprintf("%.1f m", c.target)},
		{Label: "Muzzle speed", Value: fmt.Sprintf("%.0f m/s", c.cfg.Velocity)},
		{Label: "Shots", Value: strconv.Itoa(c.shots)},
	}
	if c.shots > 0 {
		facts = append(facts, levels.Fact{Label: "Last shot", Value: fmt.Sprintf("%.1f m", c.last)})
	}
	return levels.Scene{
		Art: []string{
			"        .                          [#]",
			"    ___/                           |L|",
			"   |__o|==                         | |",
			"=============================================",
		},
		Goal:  "Hit the lock on the far wall.",
		Facts: facts,
	}
}

func (c *Cannon) Solution() []string {
	return []string{fmt.Sprintf("/rotate cannon %d", c.targetAngle), "/fire"}
}

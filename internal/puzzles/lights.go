package puzzles

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"
)

var (
	directionNames  = []string{"up", "right", "down", "left"}
	directionArrows = []string{"^", ">", "v", "<"}
)

type LightsConfig struct {
	Lights int `yaml:"lights"`
}

func defaultLightsConfig() LightsConfig { return LightsConfig{Lights: 3} }

// Lights is a row of rotating lenses that must each face their marker.
type Lights struct {
	names  []string
	facing []int
	target []int
}

func NewLights(cfg LightsConfig) (*Lights, error) {
	if cfg.Lights < 1 || cfg.Lights > 26 {
		return nil, fmt.Errorf("lights must be 1..26, got %d", cfg.Lights)
	}
	l := &Lights{
		names:  make([]string, cfg.Lights),
		facing: make([]int, cfg.Lights),
		target: make([]int, cfg.Lights),
	}
	for i := range l.names {
		l.names[i] = "light" + string(rune('A'+i))
	}
	return l, nil
}

func (l *Lights) Reset(rng *rand.Rand) {
	for i := range l.names {
		l.target[i] = rng.IntN(4)
		l.facing[i] = rng.IntN(4)
	}
	if l.Solved() {
		l.facing[0] = (l.facing[0] + 1 + rng.IntN(3)) % 4
	}
}

func (l *Lights) Rules() []command.Rule {
	return []command.Rule{{
		Verb:    "rotate",
		Usage:   "/rotate <light> <left|right>",
		Summary: "turn a lens a quarter turn",
		MinArgs: 2,
		MaxArgs: 2,
		Match: func(args []string) bool {
			return strings.HasPrefix(strings.ToLower(args[0]), "light")
		},
		Apply: l.rotate,
	}}
}

func (l *Lights) rotate(args []string) (command.Reply, error) {
	idx := l.index(args[0])
	if idx < 0 {
		return command.Reply{}, command.Invalid("No such light", "%s does not exist; lights are %s", args[0], strings.Join(l.names, ", "))
	}
	switch strings.ToLower(args[1]) {
	case "left":
		l.facing[idx] = (l.facing[idx] + 3) % 4
	case "right":
		l.facing[idx] = (l.facing[idx] + 1) % 4
	default:
		return command.Reply{}, command.Invalid("Bad direction", "%q is not a direction; use left or right", args[1])
	}
	return command.Ok("Rotated", "%s now faces %s", l.names[idx], directionNames[l.facing[idx]]), nil
}

func (l *Lights) index(name string) int {
	for i, n := range l.names {
		if strings.EqualFold(n, name) {
			return i
		}
	}
	return -1
}

func (l *Lights) aligned() int {
	n := 0
	for i := range l.facing {
		if l.facing[i] == l.target[i] {
			n++
		}
	}
	return n
}

func (l *Lights) Solved() bool { return l.aligned() == len(l.names) }

func (l *Lights) Failed() bool { return false }

func (l *Lights) Scene() levels.Scene {
	art := make([]string, 0, len(l.names))
	for i, n := range l.names {
		mark := " "
		if l.facing[i] == l.target[i] {
			mark = "*"
		}
		art = append(art, fmt.Sprintf("%s  [%s]  marker %s %s", n, directionArrows[l.facing[i]], directionArrows[l.target[i]], mark))
	}
	return levels.Scene{
		Art:      art,
		Goal:     "Point every lens at its marker.",
		Facts:    []levels.Fact{{Label: "Aligned", Value: fmt.Sprintf("%d/%d", l.aligned(), len(l.names))}},
		Progress: float64(l.aligned()) / float64(len(l.names)),
	}
}

func (l *Lights) Solution() []string {
	var out []string
	for i, n := range l.names {
		switch diff := (l.target[i] - l.facing[i] + 4) % 4; diff {
		case 3:
			out = append(out, fmt.Sprintf("/rotate %s left", n))
		default:
			for j := 0; j < diff; j++ {
				out = append(out, fmt.Sprintf("/rotate %s right", n))
			}
		}
	}
	return out
}

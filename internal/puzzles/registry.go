// Package puzzles holds one state machine per room type. Each puzzle is
// built from the params block of its level definition.
package puzzles

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"

	"gopkg.in/yaml.v3"
)

type factory func(params *yaml.Node) (levels.Puzzle, error)

var registry = map[string]factory{
	"lights": func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultLightsConfig(), NewLights) },
	"jugs":   func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultJugsConfig(), NewJugs) },
	"knight": func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultKnightConfig(), NewKnight) },
	"coins":  func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultCoinsConfig(), NewCoins) },
	"binary": func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultBinaryConfig(), NewBinary) },
	"river":  func(n *yaml.Node) (levels.Puzzle, error) { return NewRiver(), nil },
	"keypad": func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultKeypadConfig(), NewKeypad) },
	"cannon": func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultCannonConfig(), NewCannon) },
	"fan":    func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultFanConfig(), NewFan) },
	"cipher": func(n *yaml.Node) (levels.Puzzle, error) { return build(n, defaultCipherConfig(), NewCipher) },
}

// New builds the puzzle named by kind. params may be nil.
func New(kind string, params *yaml.Node) (levels.Puzzle, error) {
	f, ok := registry[strings.ToLower(strings.TrimSpace(kind))]
	if !ok {
		return nil, fmt.Errorf("unknown puzzle kind %q", kind)
	}
	p, err := f(params)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind, err)
	}
	return p, nil
}

// ForLevel builds the puzzle a level definition asks for.
func ForLevel(level levels.Level) (levels.Puzzle, error) {
	return New(level.Puzzle, &level.Params)
}

func Kinds() []string {
	out := make([]string, 0, len(registry))
	for k := range registry {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// build decodes params over the defaults in cfg and hands the result to ctor.
func build[C any, P levels.Puzzle](params *yaml.Node, cfg C, ctor func(C) (P, error)) (levels.Puzzle, error) {
	if params != nil && params.Kind != 0 {
		if err := params.Decode(&cfg); err != nil {
			return nil, fmt.Errorf("decode params: %w", err)
		}
	}
	p, err := ctor(cfg)
	if err != nil {
		return nil, err
	}
	return p, nil
}

func parseInt(title, raw string) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, command.Invalid(title, "%q is not a whole number", raw)
	}
	return n, nil
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

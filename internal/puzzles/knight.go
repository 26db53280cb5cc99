package puzzles

import (
	"fmt"
	"math/rand/v2"
	"sort"
	"strings"

	"escaperoom/internal/command"
	"escaperoom/internal/levels"

	"github.com/zyedidia/generic/mapset"
)

const boardSize = 5

var knightOffsets = [8][2]int{{1, 2}, {2, 1}, {2, -1}, {1, -2}, {-1, -2}, {-2, -1}, {-2, 1}, {-1, 2}}

type KnightConfig struct {
	Start       string `yaml:"start"`
	RandomStart bool   `yaml:"random_start"`
}

func defaultKnightConfig() KnightConfig { return KnightConfig{Start: "a1"} }

// Knight is a knight's tour on a 5x5 board. Squares are indexed
// rank*boardSize+file with a1 at 0.
type Knight struct {
	cfg     KnightConfig
	start   int
	path    []int
	visited mapset.Set[int]
}

func NewKnight(cfg KnightConfig) (*Knight, error) {
	sq, ok := parseSquare(cfg.Start)
	if !ok {
		return nil, fmt.Errorf("invalid start square %q", cfg.Start)
	}
	return &Knight{cfg: cfg, start: sq, visited: mapset.New[int]()}, nil
}

func (k *Knight) Reset(rng *rand.Rand) {
	if k.cfg.RandomStart {
		// Open tours on an odd board only start on the majority colour.
		for {
			sq := rng.IntN(boardSize * boardSize)
			if (sq/boardSize+sq%boardSize)%2 == 0 {
				k.start = sq
				break
			}
		}
	}
	k.visited = mapset.New[int]()
	k.visited.Put(k.start)
	k.path = []int{k.start}
}

func (k *Knight) Rules() []command.Rule {
	return []command.Rule{
		{Verb: "move", Usage: "/move <square>", Summary: "jump to an unvisited square", MinArgs: 1, MaxArgs: 1, Apply: k.move},
		{Verb: "undo", Usage: "/undo", Summary: "take back the last jump", Apply: k.undo},
	}
}

func (k *Knight) pos() int { return k.path[len(k.path)-1] }

func (k *Knight) move(args []string) (command.Reply, error) {
	to, ok := parseSquare(args[0])
	if !ok {
		return command.Reply{}, command.Invalid("Bad square", "%q is not on the board; squares run a1 to e5", args[0])
	}
	if !isKnightMove(k.pos(), to) {
		return command.Reply{}, command.Invalid("Not a knight move", "%s to %s is not an L-shaped jump", squareName(k.pos()), squareName(to))
	}
	if k.visited.Has(to) {
		return command.Reply{}, command.Invalid("Already visited", "%s has been stepped on", squareName(to))
	}
	k.visited.Put(to)
	k.path = append(k.path, to)
	return command.Ok("Moved", "knight on %s, %d/%d squares", squareName(to), k.visited.Size(), boardSize*boardSize), nil
}

func (k *Knight) undo([]string) (command.Reply, error) {
	if len(k.path) <= 1 {
		return command.Reply{}, command.Illegal("Nothing to undo", "the knight has not moved yet")
	}
	left := k.pos()
	k.path = k.path[:len(k.path)-1]
	if left != k.start {
		k.visited.Remove(left)
	}
	return command.Ok("Undone", "knight back on %s", squareName(k.pos())), nil
}

func (k *Knight) Solved() bool { return k.visited.Size() == boardSize*boardSize }

func (k *Knight) Failed() bool { return false }

// Position is the square the knight stands on, e.g. "c3".
func (k *Knight) Position() string { return squareName(k.pos()) }

func (k *Knight) Visited(square string) bool {
	sq, ok := parseSquare(square)
	return ok && k.visited.Has(sq)
}

func (k *Knight) Scene() levels.Scene {
	order := map[int]int{}
	for i, sq := range k.path {
		order[sq] = i + 1
	}
	art := make([]string, 0, boardSize+1)
	for rank := boardSize - 1; rank >= 0; rank-- {
		var b strings.Builder
		fmt.Fprintf(&b, "%d ", rank+1)
		for file := 0; file < boardSize; file++ {
			sq := rank*boardSize + file
			switch {
			case sq == k.pos():
				b.WriteString("[N]")
			case k.visited.Has(sq):
				fmt.Fprintf(&b, "%3d", order[sq])
			default:
				b.WriteString("  .")
			}
		}
		art = append(art, b.String())
	}
	art = append(art, "    a  b  c  d  e")
	moves := len(k.reachable(k.pos()))
	return levels.Scene{
		Art:  art,
		Goal: "Visit all 25 squares with knight jumps.",
		Facts: []levels.Fact{
			{Label: "Position", Value: squareName(k.pos())},
			{Label: "Visited", Value: fmt.Sprintf("%d/%d", k.visited.Size(), boardSize*boardSize)},
			{Label: "Open jumps", Value: fmt.Sprint(moves)},
		},
		Progress: float64(k.visited.Size()) / float64(boardSize*boardSize),
	}
}

func (k *Knight) reachable(from int) []int {
	var out []int
	f, r := from%boardSize, from/boardSize
	for _, o := range knightOffsets {
		nf, nr := f+o[0], r+o[1]
		if nf < 0 || nr < 0 || nf >= boardSize || nr >= boardSize {
			continue
		}
		sq := nr*boardSize + nf
		if !k.visited.Has(sq) {
			out = append(out, sq)
		}
	}
	return out
}

// Solution completes the tour from the current path, undoing jumps first
// when the current path is a dead end.
func (k *Knight) Solution() []string {
	saved := append([]int(nil), k.path...)
	defer k.restore(saved)

	for undos := 0; undos < len(saved); undos++ {
		k.restore(saved[:len(saved)-undos])
		var moves []int
		if k.search(&moves) {
			out := make([]string, 0, undos+len(moves))
			for i := 0; i < undos; i++ {
				out = append(out, "/undo")
			}
			for _, sq := range moves {
				out = append(out, "/move "+squareName(sq))
			}
			return out
		}
	}
	return nil
}

func (k *Knight) restore(path []int) {
	k.path = append([]int(nil), path...)
	k.visited = mapset.New[int]()
	k.visited.Put(k.start)
	for _, sq := range k.path {
		k.visited.Put(sq)
	}
}

// search is a backtracking walk ordered by Warnsdorff's rule.
func (k *Knight) search(moves *[]int) bool {
	if k.Solved() {
		return true
	}
	next := k.reachable(k.pos())
	sort.SliceStable(next, func(i, j int) bool {
		return len(k.reachable(next[i])) < len(k.reachable(next[j]))
	})
	for _, sq := range next {
		k.visited.Put(sq)
		k.path = append(k.path, sq)
		*moves = append(*moves, sq)
		if k.search(moves) {
			return true
		}
		*moves = (*moves)[:len(*moves)-1]
		k.path = k.path[:len(k.path)-1]
		k.visited.Remove(sq)
	}
	return false
}

func isKnightMove(from, to int) bool {
	df := to%boardSize - from%boardSize
	dr := to/boardSize - from/boardSize
	for _, o := range knightOffsets {
		if o[0] == df && o[1] == dr {
			return true
		}
	}
	return false
}

func parseSquare(raw string) (int, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	if len(s) != 2 {
		return 0, false
	}
	file := int(s[0] - 'a')
	rank := int(s[1] - '1')
	if file < 0 || file >= boardSize || rank < 0 || rank >= boardSize {
		return 0, false
	}
	return rank*boardSize + file, true
}

func squareName(sq int) string {
	return fmt.Sprintf("%c%d", 'a'+sq%boardSize, sq/boardSize+1)
}

package command

import (
	"fmt"
	"sort"
	"strings"

	"github.com/agnivade/levenshtein"
)

const suggestDistance = 2

// Result is what a single dispatch produced. Rule is nil when nothing matched.
type Result struct {
	Input Input
	Rule  *Rule
	Reply Reply
	Err   error
}

// Dispatcher tries its rules in order; the first structural match wins.
type Dispatcher struct {
	rules []Rule
}

func NewDispatcher(rules ...Rule) *Dispatcher {
	return &Dispatcher{rules: append([]Rule(nil), rules...)}
}

func (d *Dispatcher) Rules() []Rule {
	return append([]Rule(nil), d.rules...)
}

func (d *Dispatcher) Dispatch(raw string) Result {
	in, err := Tokenize(raw)
	if err != nil {
		return Result{Input: in, Err: err}
	}
	for i := range d.rules {
		rule := &d.rules[i]
		if !rule.hasVerb(in.Verb) || !rule.fits(in.Args) {
			continue
		}
		if rule.Apply == nil {
			return Result{Input: in, Rule: rule, Err: Illegal("Not available", "/%s does nothing here", rule.Verb)}
		}
		reply, err := rule.Apply(in.Args)
		return Result{Input: in, Rule: rule, Reply: reply, Err: err}
	}
	return Result{Input: in, Err: d.explainMiss(in)}
}

func (d *Dispatcher) explainMiss(in Input) error {
	usages := []string{}
	for _, r := range d.rules {
		if r.hasVerb(in.Verb) {
			usages = append(usages, r.usage())
		}
	}
	if len(usages) > 0 {
		return unknown("usage: " + strings.Join(usages, " or "))
	}
	if s := d.suggest(in.Verb); s != "" {
		return unknown(fmt.Sprintf("/%s is not a command here. Did you mean /%s?", in.Verb, s))
	}
	return unknown(fmt.Sprintf("/%s is not a command here. Try /help", in.Verb))
}

func (d *Dispatcher) suggest(verb string) string {
	type candidate struct {
		name string
		dist int
	}
	seen := map[string]struct{}{}
	cands := []candidate{}
	for _, r := range d.rules {
		for _, n := range r.names() {
			n = strings.ToLower(n)
			if _, ok := seen[n]; ok {
				continue
			}
			seen[n] = struct{}{}
			if dist := levenshtein.ComputeDistance(verb, n); dist <= suggestDistance {
				cands = append(cands, candidate{name: n, dist: dist})
			}
		}
	}
	if len(cands) == 0 {
		return ""
	}
	sort.SliceStable(cands, func(i, j int) bool { return cands[i].dist < cands[j].dist })
	return cands[0].name
}

package command

import (
	"fmt"
	"strings"

	"escaperoom/internal/notify"

	shlex "github.com/anmitsu/go-shlex"
)

// Input is one tokenized submission.
type Input struct {
	Raw  string
	Verb string
	Args []string
}

// Tokenize splits a raw line into a lower-cased verb and its arguments.
// The leading slash is optional and quoted arguments are kept whole.
func Tokenize(raw string) (Input, error) {
	in := Input{Raw: strings.TrimSpace(raw)}
	if in.Raw == "" {
		return in, unknown("type a command such as /help")
	}
	fields, err := shlex.Split(in.Raw, true)
	if err != nil {
		return in, unknown(fmt.Sprintf("could not read %q: %v", in.Raw, err))
	}
	if len(fields) == 0 {
		return in, unknown("type a command such as /help")
	}
	verb := strings.ToLower(strings.TrimPrefix(fields[0], "/"))
	if verb == "" {
		return in, unknown(fmt.Sprintf("%q has no verb", in.Raw))
	}
	in.Verb = verb
	in.Args = fields[1:]
	return in, nil
}

// Reply describes a successfully applied command.
type Reply struct {
	Title    string
	Detail   string
	Severity notify.Severity
}

func Ok(title, format string, args ...any) Reply {
	return Reply{Title: title, Detail: fmt.Sprintf(format, args...)}
}

// Rule is one entry of a level grammar. A rule matches structurally when the
// verb (or an alias) and arity fit and Match, if set, accepts the arguments.
// Argument validation belongs in Apply.
type Rule struct {
	Verb    string
	Aliases []string
	Usage   string
	Summary string
	MinArgs int
	// MaxArgs < 0 means unbounded.
	MaxArgs int
	Match   func(args []string) bool
	Apply   func(args []string) (Reply, error)
}

func (r Rule) names() []string {
	return append([]string{r.Verb}, r.Aliases...)
}

func (r Rule) hasVerb(verb string) bool {
	for _, n := range r.names() {
		if strings.EqualFold(n, verb) {
			return true
		}
	}
	return false
}

func (r Rule) fits(args []string) bool {
	if len(args) < r.MinArgs {
		return false
	}
	if r.MaxArgs >= 0 && len(args) > r.MaxArgs {
		return false
	}
	if r.Match != nil && !r.Match(args) {
		return false
	}
	return true
}

func (r Rule) usage() string {
	if r.Usage != "" {
		return r.Usage
	}
	return "/" + r.Verb
}

// Exact builds a Match that requires args[i] to equal word case-insensitively.
func Exact(i int, word string) func([]string) bool {
	return func(args []string) bool {
		return i < len(args) && strings.EqualFold(args[i], word)
	}
}

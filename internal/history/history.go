// Package history keeps the recallable list of submitted commands for one
// input field.
package history

import "strings"

// Buffer is an append-only command list with an up/down read cursor.
// The zero value is ready to use.
type Buffer struct {
	entries []string
	cursor  int
	browsed bool
	draft   string
}

func New() *Buffer {
	return &Buffer{cursor: -1}
}

// Push appends text when it is non-blank and always leaves browsing mode.
func (b *Buffer) Push(text string) {
	if strings.TrimSpace(text) != "" {
		b.entries = append(b.entries, text)
	}
	b.browsed = false
	b.cursor = -1
	b.draft = ""
}

// Up moves one entry older. current is the uncommitted input, remembered as
// the draft when browsing starts.
func (b *Buffer) Up(current string) (string, bool) {
	if len(b.entries) == 0 {
		return "", false
	}
	if !b.browsed {
		b.browsed = true
		b.draft = current
		b.cursor = len(b.entries) - 1
		return b.entries[b.cursor], true
	}
	if b.cursor > 0 {
		b.cursor--
	}
	return b.entries[b.cursor], true
}

// Down moves one entry newer, returning the draft after the newest entry.
func (b *Buffer) Down() (string, bool) {
	if !b.browsed {
		return "", false
	}
	if b.cursor < len(b.entries)-1 {
		b.cursor++
		return b.entries[b.cursor], true
	}
	draft := b.draft
	b.browsed = false
	b.cursor = -1
	b.draft = ""
	return draft, true
}

func (b *Buffer) Browsing() bool { return b.browsed }

func (b *Buffer) Len() int { return len(b.entries) }

func (b *Buffer) Entries() []string {
	return append([]string(nil), b.entries...)
}

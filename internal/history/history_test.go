package history

import "testing"

func TestUpDownWalksHistoryAndRestoresDraft(t *testing.T) {
	b := New()
	b.Push("a")
	b.Push("b")

	steps := []struct {
		name string
		run  func() (string, bool)
		want string
	}{
		{"up newest", func() (string, bool) { return b.Up("dra") }, "b"},
		{"up older", func() (string, bool) { return b.Up("ignored") }, "a"},
		{"down newer", b.Down, "b"},
		{"down to draft", b.Down, "dra"},
	}
	for _, step := range steps {
		got, ok := step.run()
		if !ok || got != step.want {
			t.Fatalf("%s: got %q ok=%v, want %q", step.name, got, ok, step.want)
		}
	}
	if b.Browsing() {
		t.Fatalf("expected browsing to stop after returning the draft")
	}
	if _, ok := b.Down(); ok {
		t.Fatalf("down while not browsing must be a no-op")
	}
}

func TestUpStopsAtOldestEntry(t *testing.T) {
	b := New()
	b.Push("only")
	if got, _ := b.Up(""); got != "only" {
		t.Fatalf("expected only, got %q", got)
	}
	if got, ok := b.Up(""); !ok || got != "only" {
		t.Fatalf("expected to stay on oldest entry, got %q ok=%v", got, ok)
	}
}

func TestEmptyHistoryUpIsNoop(t *testing.T) {
	var b Buffer
	if _, ok := b.Up("draft"); ok {
		t.Fatalf("expected no entry from empty history")
	}
	if b.Browsing() {
		t.Fatalf("empty history must not enter browsing mode")
	}
}

func TestPushSkipsBlankAndResetsCursor(t *testing.T) {
	b := New()
	b.Push("first")
	b.Up("typed")
	b.Push("   ")
	if b.Len() != 1 {
		t.Fatalf("blank push must not be stored, len=%d", b.Len())
	}
	if b.Browsing() {
		t.Fatalf("push must reset browsing")
	}
	b.Push("second")
	got, _ := b.Up("")
	if got != "second" {
		t.Fatalf("expected newest entry after push, got %q", got)
	}
	if got, _ := b.Down(); got != "" {
		t.Fatalf("expected cleared draft, got %q", got)
	}
}

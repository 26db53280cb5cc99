package levels

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"

	"escaperoom/packs"
)

func TestEmbeddedCorePackLoadsLevelsInManifestOrder(t *testing.T) {
	loader := NewLoader()
	loaded, err := loader.LoadPacks(context.Background(), packs.FS())
	if err != nil {
		t.Fatalf("load packs: %v", err)
	}

	var core *Pack
	for i := range loaded {
		if loaded[i].PackID == "escape-core" {
			core = &loaded[i]
			break
		}
	}
	if core == nil {
		t.Fatalf("escape-core pack not found")
	}
	if len(core.LoadedLevels) != 10 {
		t.Fatalf("expected 10 levels, got %d", len(core.LoadedLevels))
	}

	want := []string{"level-01-lights", "level-02-jugs", "level-03-binary"}
	for i := range want {
		if got := core.LoadedLevels[i].LevelID; got != want[i] {
			t.Fatalf("level order mismatch at %d: got %q want %q", i, got, want[i])
		}
	}
	for _, lv := range core.LoadedLevels {
		if lv.Fingerprint == "" {
			t.Fatalf("%s: missing fingerprint", lv.LevelID)
		}
		if lv.Scoring.BasePoints != 1000 || len(lv.Scoring.Bonuses) == 0 {
			t.Fatalf("%s: pack scoring defaults not applied: %+v", lv.LevelID, lv.Scoring)
		}
	}
}

func TestLoadDirReadsPacksFromDisk(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, "mini", "pack.yaml"), `kind: pack
schema_version: 1
pack_id: mini
name: Mini
version: 0.1.0
`)
	writeFile(t, filepath.Join(root, "mini", "levels", "b.yaml"), levelYAML("mini-b", "jugs"))
	writeFile(t, filepath.Join(root, "mini", "levels", "a.yaml"), levelYAML("mini-a", "binary"))
	writeFile(t, filepath.Join(root, "notes.txt"), "not a pack")

	loaded, err := NewLoader().LoadDir(context.Background(), root)
	if err != nil {
		t.Fatalf("load dir: %v", err)
	}
	if len(loaded) != 1 || len(loaded[0].LoadedLevels) != 2 {
		t.Fatalf("unexpected packs %+v", loaded)
	}
	if loaded[0].LoadedLevels[0].LevelID != "mini-a" {
		t.Fatalf("scanned levels must sort by id, got %q", loaded[0].LoadedLevels[0].LevelID)
	}

	_, lv, err := NewLoader().FindLevel(loaded, "", "mini-b")
	if err != nil || lv.Puzzle != "jugs" {
		t.Fatalf("find level: %+v %v", lv, err)
	}
	if next, ok := NextLevel(loaded[0], "mini-a"); !ok || next.LevelID != "mini-b" {
		t.Fatalf("expected mini-b after mini-a, got %+v", next)
	}
	if _, ok := NextLevel(loaded[0], "mini-b"); ok {
		t.Fatalf("last level has no next level")
	}
}

func TestManifestLevelIDMismatchFails(t *testing.T) {
	fsys := fstest.MapFS{
		"p1/pack.yaml": {Data: []byte(`kind: pack
schema_version: 1
pack_id: p1-pack
name: P1
version: 1.0.0
levels:
  - level_id: expected-id
    path: levels/one.yaml
`)},
		"p1/levels/one.yaml": {Data: []byte(levelYAML("other-id", "lights"))},
	}
	if _, err := NewLoader().LoadPacks(context.Background(), fsys); err == nil {
		t.Fatalf("expected id mismatch error")
	}
}

func TestFingerprintTracksParams(t *testing.T) {
	load := func(capacity string) string {
		fsys := fstest.MapFS{
			"p/pack.yaml": {Data: []byte("kind: pack\nschema_version: 1\npack_id: fp-pack\nname: F\nversion: 1.0.0\n")},
			"p/levels/j.yaml": {Data: []byte(levelYAML("fp-jugs", "jugs") + "params:\n  capacities: [" + capacity + ", 3]\n")},
		}
		loaded, err := NewLoader().LoadPacks(context.Background(), fsys)
		if err != nil {
			t.Fatalf("load: %v", err)
		}
		return loaded[0].LoadedLevels[0].Fingerprint
	}
	if load("5") == load("7") {
		t.Fatalf("different params must change the fingerprint")
	}
	if load("5") != load("5") {
		t.Fatalf("fingerprint must be stable")
	}
}

func TestLoadPacksHonoursCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := NewLoader().LoadPacks(ctx, packs.FS()); err == nil {
		t.Fatalf("expected context error")
	}
}

func levelYAML(id, puzzle string) string {
	return "kind: level\nschema_version: 1\nlevel_id: " + id + "\ntitle: T\npuzzle: " + puzzle + "\ndifficulty: 1\nestimated_minutes: 1\n"
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
}

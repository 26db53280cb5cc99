package levels

import (
	"context"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"

	"github.com/mitchellh/hashstructure/v2"
	"gopkg.in/yaml.v3"
)

type FSLoader struct{}

func NewLoader() *FSLoader { return &FSLoader{} }

// LoadDir loads packs from a directory on disk.
func (l *FSLoader) LoadDir(ctx context.Context, root string) ([]Pack, error) {
	return l.LoadPacks(ctx, os.DirFS(root))
}

// LoadPacks reads every <dir>/pack.yaml at the top of fsys.
func (l *FSLoader) LoadPacks(ctx context.Context, fsys fs.FS) ([]Pack, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, err
	}

	packs := make([]Pack, 0)
	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if !entry.IsDir() {
			continue
		}
		packPath := entry.Name()
		packYAML := path.Join(packPath, "pack.yaml")
		if _, err := fs.Stat(fsys, packYAML); err != nil {
			continue
		}
		pack, err := readPack(fsys, packYAML)
		if err != nil {
			return nil, fmt.Errorf("load pack %s: %w", packPath, err)
		}
		pack.Path = packPath

		levels, err := l.readLevels(fsys, pack)
		if err != nil {
			return nil, err
		}
		pack.LoadedLevels = levels
		packs = append(packs, pack)
	}

	sort.Slice(packs, func(i, j int) bool { return packs[i].PackID < packs[j].PackID })
	return packs, nil
}

func readPack(fsys fs.FS, name string) (Pack, error) {
	var pack Pack
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return pack, err
	}
	if err := yaml.Unmarshal(b, &pack); err != nil {
		return pack, err
	}
	if err := pack.Validate(); err != nil {
		return pack, err
	}
	return pack, nil
}

func (l *FSLoader) readLevels(fsys fs.FS, pack Pack) ([]Level, error) {
	if len(pack.Levels) > 0 {
		return l.readLevelsFromManifest(fsys, pack)
	}
	return l.readLevelsFromScan(fsys, pack)
}

func (l *FSLoader) readLevelsFromManifest(fsys fs.FS, pack Pack) ([]Level, error) {
	levels := make([]Level, 0, len(pack.Levels))
	for _, ref := range pack.Levels {
		if ref.Enabled != nil && !*ref.Enabled {
			continue
		}
		file := path.Join(pack.Path, ref.Path)
		level, err := loadLevelFile(fsys, file)
		if err != nil {
			return nil, err
		}
		if level.LevelID != ref.LevelID {
			return nil, fmt.Errorf("level id mismatch for %s: manifest=%s file=%s", file, ref.LevelID, level.LevelID)
		}
		if err := hydrateLevel(&level, pack, file); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	return levels, nil
}

func (l *FSLoader) readLevelsFromScan(fsys fs.FS, pack Pack) ([]Level, error) {
	matches, err := fs.Glob(fsys, path.Join(pack.Path, "levels", "*.yaml"))
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	levels := make([]Level, 0, len(matches))
	for _, file := range matches {
		level, err := loadLevelFile(fsys, file)
		if err != nil {
			return nil, err
		}
		if err := hydrateLevel(&level, pack, file); err != nil {
			return nil, err
		}
		levels = append(levels, level)
	}
	sort.SliceStable(levels, func(i, j int) bool { return levels[i].LevelID < levels[j].LevelID })
	return levels, nil
}

func loadLevelFile(fsys fs.FS, name string) (Level, error) {
	var level Level
	b, err := fs.ReadFile(fsys, name)
	if err != nil {
		return level, err
	}
	if err := yaml.Unmarshal(b, &level); err != nil {
		return level, fmt.Errorf("parse %s: %w", name, err)
	}
	if err := level.Validate(); err != nil {
		return level, fmt.Errorf("validate %s: %w", name, err)
	}
	return level, nil
}

func hydrateLevel(level *Level, pack Pack, file string) error {
	level.Path = file
	applyLevelDefaults(level, pack)
	fp, err := fingerprint(*level)
	if err != nil {
		return fmt.Errorf("fingerprint %s: %w", level.LevelID, err)
	}
	level.Fingerprint = fp
	return nil
}

func applyLevelDefaults(level *Level, pack Pack) {
	d := pack.Defaults.Scoring
	s := &level.Scoring
	if s.BasePoints <= 0 {
		s.BasePoints = firstPositive(d.BasePoints, 1000)
	}
	if s.TimeGraceSeconds <= 0 {
		s.TimeGraceSeconds = firstPositive(d.TimeGraceSeconds, 60)
	}
	if s.TimePenaltyPerSecond <= 0 {
		s.TimePenaltyPerSecond = firstPositive(d.TimePenaltyPerSecond, 1)
	}
	if s.HelpPenaltyPoints <= 0 {
		s.HelpPenaltyPoints = firstPositive(d.HelpPenaltyPoints, 40)
	}
	if s.ResetPenaltyPoints <= 0 {
		s.ResetPenaltyPoints = firstPositive(d.ResetPenaltyPoints, 120)
	}
	if s.RejectPenaltyPoints <= 0 {
		s.RejectPenaltyPoints = firstPositive(d.RejectPenaltyPoints, 5)
	}
	if s.Par <= 0 {
		s.Par = d.Par
	}
	if len(s.Bonuses) == 0 {
		s.Bonuses = append([]BonusSpec(nil), d.Bonuses...)
	}
}

// fingerprint hashes the parts of a level that change how it plays, so stored
// runs can tell when a level was edited.
func fingerprint(level Level) (string, error) {
	var params any
	if level.Params.Kind != 0 {
		if err := level.Params.Decode(&params); err != nil {
			return "", err
		}
	}
	h, err := hashstructure.Hash(struct {
		Puzzle string
		Params any
	}{level.Puzzle, params}, hashstructure.FormatV2, nil)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%016x", h), nil
}

func (l *FSLoader) FindLevel(packs []Pack, packID string, levelID string) (Pack, Level, error) {
	for _, p := range packs {
		if packID != "" && p.PackID != packID {
			continue
		}
		for _, lv := range p.LoadedLevels {
			if lv.LevelID == levelID {
				return p, lv, nil
			}
		}
	}
	return Pack{}, Level{}, fmt.Errorf("level %s/%s not found", packID, levelID)
}

// NextLevel returns the level after levelID in pack order.
func NextLevel(pack Pack, levelID string) (Level, bool) {
	for i, lv := range pack.LoadedLevels {
		if lv.LevelID == levelID && i+1 < len(pack.LoadedLevels) {
			return pack.LoadedLevels[i+1], true
		}
	}
	return Level{}, false
}

func firstPositive(v, d int) int {
	if v > 0 {
		return v
	}
	return d
}

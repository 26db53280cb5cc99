package levels

import (
	"fmt"
	"regexp"

	version "github.com/hashicorp/go-version"
	"gopkg.in/yaml.v3"
)

const (
	PackKind               = "pack"
	LevelKind              = "level"
	SupportedSchemaVersion = 1

	// EngineVersion is matched against a pack's requires constraint.
	EngineVersion = "1.2.0"
)

var idPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9_-]{2,63}$`)

type Pack struct {
	Kind          string         `yaml:"kind"`
	SchemaVersion int            `yaml:"schema_version"`
	PackID        string         `yaml:"pack_id"`
	Name          string         `yaml:"name"`
	Version       string         `yaml:"version"`
	Requires      string         `yaml:"requires"`
	DescriptionMD string         `yaml:"description_md"`
	Defaults      PackDefaults   `yaml:"defaults"`
	Levels        []PackLevelRef `yaml:"levels"`

	Path         string  `yaml:"-"`
	LoadedLevels []Level `yaml:"-"`
}

type PackDefaults struct {
	Scoring ScoringSpec `yaml:"scoring"`
}

type PackLevelRef struct {
	LevelID string `yaml:"level_id"`
	Path    string `yaml:"path"`
	Enabled *bool  `yaml:"enabled"`
}

type Level struct {
	Kind             string      `yaml:"kind"`
	SchemaVersion    int         `yaml:"schema_version"`
	LevelID          string      `yaml:"level_id"`
	Title            string      `yaml:"title"`
	Puzzle           string      `yaml:"puzzle"`
	SummaryMD        string      `yaml:"summary_md"`
	HelpMD           string      `yaml:"help_md"`
	Difficulty       int         `yaml:"difficulty"`
	EstimatedMinutes int         `yaml:"estimated_minutes"`
	Tags             []string    `yaml:"tags"`
	Params           yaml.Node   `yaml:"params"`
	Scoring          ScoringSpec `yaml:"scoring"`

	Path        string `yaml:"-"`
	Fingerprint string `yaml:"-"`
}

type ScoringSpec struct {
	BasePoints           int         `yaml:"base_points"`
	TimeGraceSeconds     int         `yaml:"time_grace_seconds"`
	TimePenaltyPerSecond int         `yaml:"time_penalty_per_second"`
	HelpPenaltyPoints    int         `yaml:"help_penalty_points"`
	ResetPenaltyPoints   int         `yaml:"reset_penalty_points"`
	RejectPenaltyPoints  int         `yaml:"reject_penalty_points"`
	Par                  int         `yaml:"par"`
	Bonuses              []BonusSpec `yaml:"bonuses"`
}

type BonusSpec struct {
	ID          string `yaml:"id"`
	Description string `yaml:"description"`
	Points      int    `yaml:"points"`
}

func (p Pack) Validate() error {
	if p.Kind != PackKind {
		return fmt.Errorf("kind must be %q", PackKind)
	}
	if p.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if p.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported pack schema_version %d (max supported %d)", p.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(p.PackID) {
		return fmt.Errorf("invalid pack_id %q", p.PackID)
	}
	if p.Name == "" {
		return fmt.Errorf("name is required")
	}
	if p.Version == "" {
		return fmt.Errorf("version is required")
	}
	if _, err := version.NewVersion(p.Version); err != nil {
		return fmt.Errorf("invalid version %q: %w", p.Version, err)
	}
	if p.Requires != "" {
		c, err := version.NewConstraint(p.Requires)
		if err != nil {
			return fmt.Errorf("invalid requires %q: %w", p.Requires, err)
		}
		if !c.Check(version.Must(version.NewVersion(EngineVersion))) {
			return fmt.Errorf("pack requires engine %s, have %s", p.Requires, EngineVersion)
		}
	}
	if err := p.Defaults.Scoring.validate(); err != nil {
		return fmt.Errorf("defaults.scoring: %w", err)
	}
	seen := map[string]struct{}{}
	for _, l := range p.Levels {
		if l.LevelID == "" {
			return fmt.Errorf("levels[].level_id is required")
		}
		if l.Path == "" {
			return fmt.Errorf("levels[%s].path is required", l.LevelID)
		}
		if _, ok := seen[l.LevelID]; ok {
			return fmt.Errorf("duplicate level_id %q in pack.yaml", l.LevelID)
		}
		seen[l.LevelID] = struct{}{}
	}
	return nil
}

func (l Level) Validate() error {
	if l.Kind != LevelKind {
		return fmt.Errorf("kind must be %q", LevelKind)
	}
	if l.SchemaVersion == 0 {
		return fmt.Errorf("schema_version is required")
	}
	if l.SchemaVersion > SupportedSchemaVersion {
		return fmt.Errorf("unsupported level schema_version %d (max supported %d)", l.SchemaVersion, SupportedSchemaVersion)
	}
	if !idPattern.MatchString(l.LevelID) {
		return fmt.Errorf("invalid level_id %q", l.LevelID)
	}
	if l.Title == "" {
		return fmt.Errorf("title is required")
	}
	if l.Puzzle == "" {
		return fmt.Errorf("puzzle is required")
	}
	if l.Difficulty < 1 || l.Difficulty > 5 {
		return fmt.Errorf("difficulty must be 1..5")
	}
	if l.EstimatedMinutes <= 0 {
		return fmt.Errorf("estimated_minutes must be >0")
	}
	if l.Params.Kind != 0 && l.Params.Kind != yaml.MappingNode {
		return fmt.Errorf("params must be a mapping")
	}
	if err := l.Scoring.validate(); err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	return nil
}

func (s ScoringSpec) validate() error {
	if s.BasePoints < 0 || s.TimeGraceSeconds < 0 || s.TimePenaltyPerSecond < 0 ||
		s.HelpPenaltyPoints < 0 || s.ResetPenaltyPoints < 0 || s.RejectPenaltyPoints < 0 || s.Par < 0 {
		return fmt.Errorf("values must be >= 0")
	}
	seen := map[string]struct{}{}
	for _, b := range s.Bonuses {
		if b.ID == "" {
			return fmt.Errorf("bonuses[].id is required")
		}
		if _, ok := seen[b.ID]; ok {
			return fmt.Errorf("duplicate bonus id %q", b.ID)
		}
		seen[b.ID] = struct{}{}
	}
	return nil
}

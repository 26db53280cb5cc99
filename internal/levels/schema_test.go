package levels

import "testing"

func validPack() Pack {
	return Pack{
		Kind:          PackKind,
		SchemaVersion: SupportedSchemaVersion,
		PackID:        "escape-core",
		Name:          "x",
		Version:       "1.0.0",
	}
}

func TestPackValidateRejectsUnsupportedSchemaVersion(t *testing.T) {
	p := validPack()
	p.SchemaVersion = SupportedSchemaVersion + 1
	if err := p.Validate(); err == nil {
		t.Fatalf("expected unsupported schema version error")
	}
}

func TestPackValidateChecksEngineConstraint(t *testing.T) {
	cases := []struct {
		requires string
		ok       bool
	}{
		{"", true},
		{">= 1.0, < 2.0", true},
		{">= 9.0", false},
		{"not a constraint", false},
	}
	for _, tc := range cases {
		p := validPack()
		p.Requires = tc.requires
		err := p.Validate()
		if (err == nil) != tc.ok {
			t.Fatalf("requires %q: ok=%v err=%v", tc.requires, tc.ok, err)
		}
	}
}

func TestPackValidateRejectsBadVersion(t *testing.T) {
	p := validPack()
	p.Version = "one"
	if err := p.Validate(); err == nil {
		t.Fatalf("expected version error")
	}
}

func TestLevelValidate(t *testing.T) {
	base := Level{
		Kind:             LevelKind,
		SchemaVersion:    1,
		LevelID:          "level-abc",
		Title:            "x",
		Puzzle:           "jugs",
		Difficulty:       1,
		EstimatedMinutes: 1,
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("expected valid level, got %v", err)
	}

	mutations := map[string]func(*Level){
		"missing puzzle":  func(l *Level) { l.Puzzle = "" },
		"bad id":          func(l *Level) { l.LevelID = "A" },
		"difficulty":      func(l *Level) { l.Difficulty = 6 },
		"negative points": func(l *Level) { l.Scoring.BasePoints = -1 },
		"dup bonus": func(l *Level) {
			l.Scoring.Bonuses = []BonusSpec{{ID: "no_help"}, {ID: "no_help"}}
		},
	}
	for name, mutate := range mutations {
		t.Run(name, func(t *testing.T) {
			l := base
			mutate(&l)
			if err := l.Validate(); err == nil {
				t.Fatalf("expected validation error")
			}
		})
	}
}

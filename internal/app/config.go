package app

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	gap "github.com/muesli/go-app-paths"
)

const envPrefix = "ESCAPEROOM_"

// Config controls runtime behavior for the game.
type Config struct {
	Dev          bool   `env:"DEV"`
	DevHTTP      string `env:"DEV_HTTP"`
	DemoScenario string `env:"DEMO"`
	LogPath      string `env:"LOG"`
	DebugLayout  bool   `env:"DEBUG_LAYOUT"`
	ASCIIOnly    bool   `env:"ASCII"`
	// Plain forces the line-mode console even on a terminal.
	Plain    bool   `env:"PLAIN"`
	DataDir  string `env:"DATA_DIR"`
	PacksDir string `env:"PACKS_DIR"`
	// Seed fixes every room's random layout. Zero draws a fresh one.
	Seed            uint64        `env:"SEED"`
	CompletionDelay time.Duration `env:"COMPLETION_DELAY"`
	UI              UIConfig      `envPrefix:"UI_"`
}

type UIConfig struct {
	StyleVariant string `env:"STYLE"`
	MotionLevel  string `env:"MOTION"`
}

func DefaultConfig() Config {
	return Config{
		DevHTTP:         "127.0.0.1:17321",
		CompletionDelay: 2 * time.Second,
		UI: UIConfig{
			StyleVariant: "vault",
			MotionLevel:  "full",
		},
	}
}

// LoadConfig layers an optional dotenv file and ESCAPEROOM_* variables over
// the defaults. A missing dotenv file is not an error.
func LoadConfig(dotenvPath string) (Config, error) {
	cfg := DefaultConfig()
	if dotenvPath != "" {
		if err := godotenv.Load(dotenvPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return cfg, fmt.Errorf("load %s: %w", dotenvPath, err)
		}
	}
	if err := env.ParseWithOptions(&cfg, env.Options{Prefix: envPrefix}); err != nil {
		return cfg, fmt.Errorf("parse environment: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch c.UI.StyleVariant {
	case "", "vault", "phosphor", "mocha", "latte":
	default:
		return fmt.Errorf("invalid ui style variant %q", c.UI.StyleVariant)
	}
	if c.UI.StyleVariant == "" {
		c.UI.StyleVariant = "vault"
	}
	switch c.UI.MotionLevel {
	case "", "off", "reduced", "full":
	default:
		return fmt.Errorf("invalid ui motion level %q", c.UI.MotionLevel)
	}
	if c.UI.MotionLevel == "" {
		c.UI.MotionLevel = "full"
	}
	if c.CompletionDelay < 0 {
		return fmt.Errorf("completion delay must not be negative, got %s", c.CompletionDelay)
	}
	if c.Dev && c.DevHTTP == "" {
		return errors.New("dev mode needs a dev http address")
	}
	if c.PacksDir != "" {
		info, err := os.Stat(c.PacksDir)
		if err != nil {
			return fmt.Errorf("packs dir: %w", err)
		}
		if !info.IsDir() {
			return fmt.Errorf("packs dir %s is not a directory", c.PacksDir)
		}
	}

	if c.DataDir == "" {
		dirs, err := gap.NewScope(gap.User, "escaperoom").DataDirs()
		if err != nil || len(dirs) == 0 {
			return errors.New("cannot resolve user data directory")
		}
		c.DataDir = dirs[0]
	}
	return nil
}

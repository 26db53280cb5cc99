package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"escaperoom/internal/app"
	"escaperoom/internal/console"
	"escaperoom/internal/telemetry"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"
	mcobra "github.com/muesli/mango-cobra"
	"github.com/muesli/roff"
	"github.com/spf13/cobra"
)

type flags struct {
	root *cobra.Command

	envFile  string
	dataDir  string
	packsDir string
	logPath  string
	style    string
	motion   string
	ascii    bool
	plain    bool
	fast     bool
	seed     uint64
	dev      bool
	devHTTP  string
	demo     string
	pace     time.Duration
}

func (f *flags) register(root *cobra.Command) {
	f.root = root
	f.pace = 400 * time.Millisecond
	pf := root.PersistentFlags()
	pf.StringVar(&f.envFile, "env-file", ".env", "dotenv file with ESCAPEROOM_* settings")
	pf.StringVar(&f.dataDir, "data-dir", "", "directory for the progress database")
	pf.StringVar(&f.packsDir, "packs", "", "load level packs from this directory instead of the built-in ones")
	pf.StringVar(&f.logPath, "log", "", "write JSON logs to this file")
	pf.StringVar(&f.style, "style", "", "color scheme: vault, phosphor, mocha or latte")
	pf.StringVar(&f.motion, "motion", "", "animation level: off, reduced or full")
	pf.BoolVar(&f.ascii, "ascii", false, "draw with ASCII only")
	pf.BoolVar(&f.plain, "plain", false, "use the line-mode console even on a terminal")
	pf.BoolVar(&f.fast, "fast", false, "show results as soon as a room is solved")
	pf.Uint64Var(&f.seed, "seed", 0, "fix every room's starting layout")
	pf.BoolVar(&f.dev, "dev", false, "enable the dev HTTP control server")
	pf.StringVar(&f.devHTTP, "dev-http", "", "dev HTTP listen address")
	pf.StringVar(&f.demo, "demo", "", "dev demo scenario to apply at startup")
}

func (f *flags) changed(name string) bool {
	return f.root.PersistentFlags().Changed(name)
}

// config layers command-line flags over the environment.
func (f *flags) config() (app.Config, error) {
	cfg, err := app.LoadConfig(f.envFile)
	if err != nil {
		return cfg, err
	}
	if f.changed("data-dir") {
		cfg.DataDir = f.dataDir
	}
	if f.changed("packs") {
		cfg.PacksDir = f.packsDir
	}
	if f.changed("log") {
		cfg.LogPath = f.logPath
	}
	if f.changed("style") {
		cfg.UI.StyleVariant = f.style
	}
	if f.changed("motion") {
		cfg.UI.MotionLevel = f.motion
	}
	if f.changed("ascii") {
		cfg.ASCIIOnly = f.ascii
	}
	if f.changed("plain") {
		cfg.Plain = f.plain
	}
	if f.changed("seed") {
		cfg.Seed = f.seed
	}
	if f.changed("dev") {
		cfg.Dev = f.dev
	}
	if f.changed("dev-http") {
		cfg.DevHTTP = f.devHTTP
	}
	if f.changed("demo") {
		cfg.DemoScenario = f.demo
	}
	if f.fast {
		cfg.CompletionDelay = 0
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func isTerminal(fd uintptr) bool {
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

func runPlay(ctx context.Context, f *flags, args []string) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	tracer, shutdown, err := telemetry.SetupTracing(ctx, Version)
	if err != nil {
		return fmt.Errorf("tracing: %w", err)
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = shutdown(sctx)
	}()

	opts := app.Options{Version: Version, Tracer: tracer}
	if cfg.Plain || !isTerminal(os.Stdout.Fd()) || !isTerminal(os.Stdin.Fd()) {
		opts.View = console.New(console.Options{
			In:           os.Stdin,
			Out:          os.Stdout,
			StyleVariant: cfg.UI.StyleVariant,
			Echo:         !isTerminal(os.Stdin.Fd()),
		})
	}
	a, err := app.New(cfg, opts)
	if err != nil {
		return err
	}
	defer a.Close()
	if len(args) == 1 {
		a.StartAt(args[0])
	}
	return a.Run(ctx)
}

func runLevels(ctx context.Context, f *flags, out io.Writer) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{Version: Version, View: console.New(console.Options{Out: io.Discard})})
	if err != nil {
		return err
	}
	defer a.Close()

	n := 0
	for _, p := range a.Catalog(ctx) {
		fmt.Fprintf(out, "%s (%s)\n", p.Name, p.PackID)
		for _, lv := range p.Levels {
			n++
			mark := " "
			if lv.Solved {
				mark = "*"
			}
			fmt.Fprintf(out, "%s %2d. %-24s %-22s", mark, n, lv.Title, lv.LevelID)
			if lv.BestScore > 0 {
				fmt.Fprintf(out, " best %s in %s", humanize.Comma(int64(lv.BestScore)), time.Duration(lv.BestTimeMS)*time.Millisecond)
			}
			fmt.Fprintln(out)
		}
	}
	return nil
}

func runStats(ctx context.Context, f *flags, out io.Writer) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	a, err := app.New(cfg, app.Options{Version: Version, View: console.New(console.Options{Out: io.Discard})})
	if err != nil {
		return err
	}
	defer a.Close()
	text, err := a.StatsText(ctx)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(out, text)
	return err
}

// runSolve plays a walkthrough against a throwaway progress database.
func runSolve(ctx context.Context, f *flags, ref string, out io.Writer) error {
	cfg, err := f.config()
	if err != nil {
		return err
	}
	tmp, err := os.MkdirTemp("", "escaperoom-solve-")
	if err != nil {
		return err
	}
	defer os.RemoveAll(tmp)
	cfg.DataDir = tmp
	cfg.CompletionDelay = 0

	view := console.New(console.Options{Out: out, StyleVariant: cfg.UI.StyleVariant})
	a, err := app.New(cfg, app.Options{Version: Version, View: view})
	if err != nil {
		return err
	}
	defer a.Close()

	pack, level, err := a.ResolveLevel(ref)
	if err != nil {
		return err
	}
	if _, err := a.Autoplay(ctx, pack.PackID, level.LevelID, f.pace); err != nil {
		return err
	}
	return nil
}

func runMan(root *cobra.Command, out io.Writer) error {
	page, err := mcobra.NewManPage(1, root)
	if err != nil {
		return err
	}
	page = page.WithSection("Files", "Progress is kept in state.db under the user data directory, or under --data-dir.")
	_, err = fmt.Fprint(out, page.Build(roff.NewDocument()))
	return err
}

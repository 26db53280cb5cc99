package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"escaperoom/internal/devtools"
	"escaperoom/internal/levels"
	"escaperoom/internal/puzzles"
	"escaperoom/internal/scoring"
	"escaperoom/internal/state"
	"escaperoom/internal/telemetry"
	"escaperoom/internal/ui"
	"escaperoom/packs"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/errgroup"
)

type App struct {
	cfg     Config
	version string

	logger *telemetry.JSONLogger
	tracer trace.Tracer
	store  Store
	loader levels.Loader
	scorer scoring.Scorer
	demo   devtools.Demo
	view   ui.View
	now    func() time.Time
	after  levels.AfterFunc

	sessionID string
	packs     []levels.Pack
	startRef  string

	// mu guards the mounted level and its run bookkeeping. Controller calls
	// arrive from the view's goroutines and the completion timer.
	mu         sync.Mutex
	screen     ui.Screen
	pack       levels.Pack
	level      levels.Level
	session    *levels.Session
	run        runInfo
	attempts   map[string]int
	lastResult *scoring.Result
	completed  chan scoring.Result

	devMu    sync.Mutex
	devState devState
	demoMu   sync.Mutex
}

func New(cfg Config, opts Options) (*App, error) {
	ctx := context.Background()
	if err := os.MkdirAll(cfg.DataDir, 0o755); err != nil {
		return nil, err
	}

	logger, err := telemetry.NewJSONLogger(cfg.LogPath)
	if err != nil {
		return nil, err
	}

	store, err := state.NewSQLite(filepath.Join(cfg.DataDir, "state.db"))
	if err != nil {
		_ = logger.Close()
		return nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, err
	}

	loader := levels.NewLoader()
	var loaded []levels.Pack
	switch {
	case cfg.PacksDir != "":
		loaded, err = loader.LoadDir(ctx, cfg.PacksDir)
	case opts.Packs != nil:
		loaded, err = loader.LoadPacks(ctx, opts.Packs)
	default:
		loaded, err = loader.LoadPacks(ctx, packs.FS())
	}
	if err == nil && (len(loaded) == 0 || len(loaded[0].LoadedLevels) == 0) {
		err = errors.New("no packs/levels available")
	}
	if err != nil {
		_ = store.Close()
		_ = logger.Close()
		return nil, fmt.Errorf("load packs: %w", err)
	}

	view := opts.View
	if view == nil {
		view = ui.New(ui.Options{
			ASCIIOnly:    cfg.ASCIIOnly,
			Debug:        cfg.DebugLayout,
			StyleVariant: cfg.UI.StyleVariant,
			MotionLevel:  cfg.UI.MotionLevel,
		})
	}
	tracer := opts.Tracer
	if tracer == nil {
		tracer = telemetry.NoopTracer()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	a := &App{
		cfg:       cfg,
		version:   opts.Version,
		logger:    logger,
		tracer:    tracer,
		store:     store,
		loader:    loader,
		scorer:    scoring.NewScorer(),
		demo:      devtools.NewManager(),
		view:      view,
		now:       now,
		after:     opts.AfterFunc,
		sessionID: uuid.NewString(),
		packs:     loaded,
		pack:      loaded[0],
		level:     loaded[0].LoadedLevels[0],
		screen:    ui.ScreenMainMenu,
		attempts:  map[string]int{},
		completed: make(chan scoring.Result, 1),
	}
	a.recordLaunch(ctx)
	view.SetController(a)
	view.SetCatalog(a.catalog(ctx))
	return a, nil
}

func (a *App) recordLaunch(ctx context.Context) {
	settings, err := a.store.LoadSettings(ctx)
	if err != nil {
		a.logger.Error("state.settings_load_failed", map[string]any{"error": err.Error()})
		return
	}
	values := map[string]string{"last_version": a.version}
	if settings["first_launch"] == "" {
		values["first_launch"] = a.now().UTC().Format(time.RFC3339)
	}
	if err := a.store.SaveSettings(ctx, values); err != nil {
		a.logger.Error("state.settings_save_failed", map[string]any{"error": err.Error()})
	}
}

// Run shows the main menu and blocks until the view exits. In dev mode the
// dev HTTP server runs alongside and is shut down with the view.
func (a *App) Run(ctx context.Context) error {
	a.logger.Info("app.start", map[string]any{"session": a.sessionID, "version": a.version, "packs": len(a.packs)})

	a.mu.Lock()
	pack, level := a.pack, a.level
	a.screen = ui.ScreenMainMenu
	a.mu.Unlock()
	a.view.SetMainMenuState(a.mainMenuState(ctx))
	a.view.SetLevelSelection(pack.PackID, level.LevelID)
	a.view.SetScreen(ui.ScreenMainMenu)
	a.setDevState("main_menu", "")
	if a.startRef != "" {
		if pack, level, err := a.ResolveLevel(a.startRef); err != nil {
			a.view.FlashStatus(err.Error())
		} else if err := a.startLevel(ctx, pack, level); err != nil {
			a.view.FlashStatus("start level failed: " + err.Error())
		}
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	g, gctx := errgroup.WithContext(ctx)

	if a.cfg.Dev {
		srv := &http.Server{Addr: a.cfg.DevHTTP, Handler: a.devHandler(), ReadHeaderTimeout: 5 * time.Second}
		g.Go(func() error {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				a.logger.Error("dev_http.listen_failed", map[string]any{"error": err.Error(), "addr": a.cfg.DevHTTP})
				return fmt.Errorf("dev http: %w", err)
			}
			return nil
		})
		g.Go(func() error {
			<-gctx.Done()
			sctx, scancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer scancel()
			return srv.Shutdown(sctx)
		})
		if a.cfg.DemoScenario != "" {
			if _, err := a.runDemoScenario(gctx, a.cfg.DemoScenario); err != nil {
				a.logger.Error("dev.demo.initial_failed", map[string]any{"demo": a.cfg.DemoScenario, "error": err.Error()})
			}
		} else {
			a.writeDevState(gctx, "main_menu")
		}
	}

	g.Go(func() error {
		defer cancel()
		return a.view.Run()
	})
	g.Go(func() error {
		<-gctx.Done()
		a.view.Stop()
		return nil
	})
	return g.Wait()
}

func (a *App) Close() {
	a.leaveLevel(context.Background())
	_ = a.store.Close()
	_ = a.logger.Close()
}

func (a *App) startLevel(ctx context.Context, pack levels.Pack, level levels.Level) error {
	ctx, span := a.tracer.Start(ctx, "level.start", trace.WithAttributes(
		attribute.String("pack", pack.PackID),
		attribute.String("level", level.LevelID),
		attribute.String("puzzle", level.Puzzle),
	))
	defer span.End()

	puzzle, err := puzzles.ForLevel(level)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("build %s: %w", level.LevelID, err)
	}

	a.leaveLevel(ctx)
	a.view.SetResult(ui.ResultState{})
	a.view.SetHelp("", false)

	runID, err := a.store.StartLevelRun(ctx, state.LevelRun{
		SessionID: a.sessionID,
		PackID:    pack.PackID,
		LevelID:   level.LevelID,
		LevelHash: level.Fingerprint,
		StartTS:   a.now().UTC(),
	})
	if err != nil {
		span.RecordError(err)
		return err
	}

	var s *levels.Session
	s = levels.NewSession(level, puzzle, levels.SessionOptions{
		Seed:       a.cfg.Seed,
		Delay:      a.cfg.CompletionDelay,
		AfterFunc:  a.after,
		OnComplete: func(c levels.Completion) { a.handleCompletion(s, c) },
	})

	a.mu.Lock()
	a.pack, a.level = pack, level
	a.session = s
	a.attempts[level.LevelID]++
	a.run = runInfo{id: runID, attempt: a.attempts[level.LevelID]}
	a.lastResult = nil
	a.screen = ui.ScreenPlaying
	a.mu.Unlock()

	a.syncPlayingState(s)
	a.view.SetScreen(ui.ScreenPlaying)
	a.view.FlashStatus("Room ready: " + level.Title)
	a.logger.Info("level.start", map[string]any{"pack": pack.PackID, "level": level.LevelID, "run": runID, "hash": level.Fingerprint})
	a.setDevState("playing", "playing")
	a.writeDevState(ctx, "playing")
	return nil
}

// leaveLevel unmounts the current session. A run that was never scored is
// recorded as unsolved.
func (a *App) leaveLevel(ctx context.Context) {
	a.mu.Lock()
	s := a.session
	run := a.run
	level := a.level
	a.session = nil
	a.run.finished = true
	a.mu.Unlock()
	if s == nil {
		return
	}
	s.Close()
	if run.finished {
		return
	}
	stats := s.Stats()
	end := a.now()
	duration := max(0, end.Sub(stats.StartedAt).Milliseconds())
	if err := a.store.FinishLevelRun(ctx, run.id, state.RunResult{DurationMS: duration, EndTS: end.UTC()}); err != nil {
		a.logger.Error("state.finish_run_failed", map[string]any{"run": run.id, "error": err.Error()})
	}
	if err := a.store.UpsertLevelProgress(ctx, state.LevelProgressUpdate{LevelID: level.LevelID, LastPlayedTS: end.UTC()}); err != nil {
		a.logger.Error("state.progress_failed", map[string]any{"level": level.LevelID, "error": err.Error()})
	}
	a.logger.Info("level.leave", map[string]any{"level": level.LevelID, "run": run.id, "moves": stats.Moves})
}

// submit applies one line to the mounted session. The second result is
// false when no level is mounted.
func (a *App) submit(ctx context.Context, line string) (levels.Outcome, bool) {
	a.mu.Lock()
	s := a.session
	run := a.run
	pack, level := a.pack, a.level
	a.mu.Unlock()
	if s == nil {
		return levels.Outcome{}, false
	}

	ctx, span := a.tracer.Start(ctx, "command.submit", trace.WithAttributes(attribute.String("level", level.LevelID)))
	defer span.End()

	wasFailed := s.Failed()
	out := s.Submit(line)
	span.SetAttributes(
		attribute.String("verb", out.Verb),
		attribute.Bool("accepted", out.Accepted),
		attribute.Bool("solved", out.Solved),
	)

	if err := a.store.RecordCommand(ctx, run.id, state.CommandRecord{
		Input:    out.Input,
		Verb:     out.Verb,
		Accepted: out.Accepted,
		Severity: string(out.Notification.Severity),
		TS:       a.now().UTC(),
	}); err != nil {
		a.logger.Error("state.record_command_failed", map[string]any{"run": run.id, "error": err.Error()})
	}
	if out.Reset && !run.finished {
		if err := a.store.IncrementReset(ctx, run.id); err != nil {
			a.logger.Error("state.increment_reset_failed", map[string]any{"run": run.id, "error": err.Error()})
		}
	}
	fields := map[string]any{"level": level.LevelID, "verb": out.Verb, "accepted": out.Accepted}
	if out.Err != nil {
		fields["error"] = out.Err.Error()
	}
	a.logger.Info("command.submit", fields)

	a.view.Notify(out.Notification)
	if out.HelpRequested {
		a.view.SetHelp(s.HelpMarkdown(), true)
	}
	if out.Solved {
		a.logger.Info("level.solved", map[string]any{"level": level.LevelID, "run": run.id})
		a.setDevState("solved", "")
	}
	if out.Failed && !wasFailed {
		a.logger.Info("level.failed", map[string]any{"level": level.LevelID, "run": run.id})
		a.view.FlashStatus("The room has locked. /reset to try again")
	}
	if out.Reset && run.finished {
		// The solved run is already scored; the reset starts a new one.
		if err := a.startLevel(ctx, pack, level); err != nil {
			a.view.FlashStatus("reset failed: " + err.Error())
		}
		return out, true
	}
	a.syncPlayingState(s)
	return out, true
}

func (a *App) handleCompletion(s *levels.Session, c levels.Completion) {
	ctx, span := a.tracer.Start(context.Background(), "level.complete", trace.WithAttributes(attribute.String("level", c.Level.LevelID)))
	defer span.End()

	a.mu.Lock()
	if a.session != s || a.run.finished {
		a.mu.Unlock()
		return
	}
	pack, run := a.pack, a.run
	result := a.scorer.Score(scoring.Request{
		AppVersion:  a.version,
		PackID:      pack.PackID,
		PackVersion: pack.Version,
		LevelID:     c.Level.LevelID,
		LevelHash:   c.Level.Fingerprint,
		RunID:       fmt.Sprintf("%s-%d", a.sessionID, run.id),
		Attempt:     run.attempt,
		StartedAt:   c.Stats.StartedAt,
		FinishedAt:  c.SolvedAt,
		Spec:        c.Level.Scoring,
		Moves:       c.Stats.Moves,
		Rejected:    c.Stats.Rejected,
		Resets:      c.Stats.Resets,
		HelpUsed:    c.Stats.HelpUsed,
	})
	a.lastResult = &result
	a.run.finished = true
	a.mu.Unlock()

	span.SetAttributes(attribute.Int("score", result.Score.TotalPoints))
	if err := a.store.FinishLevelRun(ctx, run.id, state.RunResult{
		Solved:     true,
		Score:      result.Score.TotalPoints,
		DurationMS: result.Run.DurationMS,
		EndTS:      c.SolvedAt.UTC(),
	}); err != nil {
		a.logger.Error("state.finish_run_failed", map[string]any{"run": run.id, "error": err.Error()})
	}
	if err := a.store.UpsertLevelProgress(ctx, state.LevelProgressUpdate{
		LevelID:      c.Level.LevelID,
		Solved:       true,
		Score:        result.Score.TotalPoints,
		DurationMS:   result.Run.DurationMS,
		LastPlayedTS: c.SolvedAt.UTC(),
	}); err != nil {
		a.logger.Error("state.progress_failed", map[string]any{"level": c.Level.LevelID, "error": err.Error()})
	}

	_, hasNext := levels.NextLevel(pack, c.Level.LevelID)
	a.syncPlayingState(s)
	a.view.SetCatalog(a.catalog(ctx))
	a.view.SetResult(ui.ResultState{
		Visible:   true,
		Title:     c.Level.Title + " unlocked",
		Summary:   resultSummary(result),
		Score:     result.Score.TotalPoints,
		Breakdown: breakdownRows(result),
		HasNext:   hasNext,
	})
	a.logger.Info("level.complete", map[string]any{
		"level":       c.Level.LevelID,
		"run":         run.id,
		"score":       result.Score.TotalPoints,
		"duration_ms": result.Run.DurationMS,
	})
	a.setDevState("results", "results")
	a.writeDevState(ctx, "results")

	select {
	case a.completed <- result:
	default:
	}
}

func (a *App) syncPlayingState(s *levels.Session) {
	a.mu.Lock()
	pack, level := a.pack, a.level
	var elapsed string
	if a.lastResult != nil && a.session == s {
		elapsed = formatDuration(a.lastResult.Run.DurationMS)
	}
	a.mu.Unlock()

	scene := s.Scene()
	stats := s.Stats()
	facts := make([]ui.FactRow, 0, len(scene.Facts))
	for _, f := range scene.Facts {
		facts = append(facts, ui.FactRow{Label: f.Label, Value: f.Value})
	}
	a.view.SetPlayingState(ui.PlayingState{
		PackID:       pack.PackID,
		LevelID:      level.LevelID,
		Title:        level.Title,
		LevelIndex:   levelIndex(pack, level.LevelID),
		LevelCount:   len(pack.LoadedLevels),
		Goal:         scene.Goal,
		Art:          scene.Art,
		Facts:        facts,
		Animated:     scene.Animated,
		Progress:     scene.Progress,
		Solved:       s.Solved(),
		Failed:       s.Failed(),
		ElapsedLabel: elapsed,
		StartedAt:    stats.StartedAt,
		Moves:        stats.Moves,
		Rejected:     stats.Rejected,
		Resets:       stats.Resets,
		HelpUsed:     stats.HelpUsed,
	})
}

func (a *App) OnContinue() {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	pack, level := a.continueTarget(ctx)
	if err := a.startLevel(ctx, pack, level); err != nil {
		a.view.FlashStatus("continue failed: " + err.Error())
	}
}

// continueTarget is the first unsolved level in catalog order, else the
// last level played, else the very first level.
func (a *App) continueTarget(ctx context.Context) (levels.Pack, levels.Level) {
	progress, err := a.store.GetLevelProgressMap(ctx)
	if err == nil {
		for _, p := range a.packs {
			for _, lv := range p.LoadedLevels {
				if progress[lv.LevelID].SolvedCount == 0 {
					return p, lv
				}
			}
		}
	}
	if last, err := a.store.GetLastRun(ctx); err == nil && last != nil {
		if pack, level, findErr := a.loader.FindLevel(a.packs, last.PackID, last.LevelID); findErr == nil {
			return pack, level
		}
	}
	return a.packs[0], a.packs[0].LoadedLevels[0]
}

func (a *App) OnOpenLevelSelect() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.leaveLevel(ctx)
	a.view.SetResult(ui.ResultState{})
	a.view.SetHelp("", false)

	a.mu.Lock()
	pack, level := a.pack, a.level
	a.screen = ui.ScreenLevelSelect
	a.mu.Unlock()
	a.view.SetCatalog(a.catalog(ctx))
	a.view.SetLevelSelection(pack.PackID, level.LevelID)
	a.view.SetScreen(ui.ScreenLevelSelect)
	a.setDevState("level_select", "level_select")
	a.writeDevState(ctx, "level_select")
}

func (a *App) OnStartLevel(packID, levelID string) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	pack, level, err := a.loader.FindLevel(a.packs, packID, levelID)
	if err != nil {
		a.view.FlashStatus("level not found: " + err.Error())
		return
	}
	if err := a.startLevel(ctx, pack, level); err != nil {
		a.view.FlashStatus("start level failed: " + err.Error())
	}
}

func (a *App) OnBackToMainMenu() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	a.leaveLevel(ctx)
	a.view.SetResult(ui.ResultState{})
	a.view.SetHelp("", false)

	a.mu.Lock()
	a.screen = ui.ScreenMainMenu
	a.mu.Unlock()
	a.view.SetMainMenuState(a.mainMenuState(ctx))
	a.view.SetScreen(ui.ScreenMainMenu)
	a.setDevState("main_menu", "main_menu")
	a.writeDevState(ctx, "main_menu")
}

func (a *App) OnOpenStats() {
	text, err := a.StatsText(context.Background())
	if err != nil {
		a.view.SetInfo("Stats", "Failed to load stats: "+err.Error(), true)
		return
	}
	a.view.SetInfo("Stats", text, true)
}

func (a *App) OnSubmit(line string) {
	if _, ok := a.submit(context.Background(), line); !ok {
		a.view.FlashStatus("start a room first")
	}
}

func (a *App) OnNextLevel() {
	a.mu.Lock()
	solved := a.lastResult != nil
	pack, level := a.pack, a.level
	a.mu.Unlock()
	if !solved {
		return
	}
	next, ok := levels.NextLevel(pack, level.LevelID)
	if !ok {
		a.view.FlashStatus("Every room in " + firstNonEmpty(pack.Name, pack.PackID) + " is behind you")
		a.OnOpenLevelSelect()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := a.startLevel(ctx, pack, next); err != nil {
		a.view.FlashStatus("next level failed: " + err.Error())
		return
	}
}

func (a *App) OnRetry() {
	a.mu.Lock()
	pack, level := a.pack, a.level
	a.mu.Unlock()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()
	if err := a.startLevel(ctx, pack, level); err != nil {
		a.view.FlashStatus("retry failed: " + err.Error())
	}
}

func (a *App) OnQuit() {
	a.leaveLevel(context.Background())
	a.view.Stop()
}

// Autoplay mounts a level, replays its walkthrough and waits for the scored
// result.
func (a *App) Autoplay(ctx context.Context, packID, levelID string, pace time.Duration) (scoring.Result, error) {
	pack, level, err := a.loader.FindLevel(a.packs, packID, levelID)
	if err != nil {
		return scoring.Result{}, err
	}
	select {
	case <-a.completed:
	default:
	}
	if err := a.startLevel(ctx, pack, level); err != nil {
		return scoring.Result{}, err
	}
	a.mu.Lock()
	s := a.session
	a.mu.Unlock()

	steps, err := a.demo.Walkthrough(s, pace)
	if err != nil {
		return scoring.Result{}, err
	}
	tr, err := a.demo.Play(ctx, steps, func(line string) levels.Outcome {
		a.view.FlashStatus("> " + line)
		out, _ := a.submit(ctx, line)
		return out
	})
	if err != nil {
		return scoring.Result{}, err
	}
	if !tr.Solved {
		return scoring.Result{}, fmt.Errorf("walkthrough for %s ended unsolved", level.LevelID)
	}
	select {
	case r := <-a.completed:
		return r, nil
	case <-ctx.Done():
		return scoring.Result{}, ctx.Err()
	}
}

// StartAt makes Run open the referenced level instead of the main menu.
func (a *App) StartAt(ref string) { a.startRef = strings.TrimSpace(ref) }

// ResolveLevel accepts a level ID, a pack/level pair or a 1-based position
// in catalog order.
func (a *App) ResolveLevel(ref string) (levels.Pack, levels.Level, error) {
	ref = strings.TrimSpace(ref)
	if packID, levelID, ok := strings.Cut(ref, "/"); ok {
		return a.loader.FindLevel(a.packs, packID, levelID)
	}
	if n, err := strconv.Atoi(ref); err == nil && n > 0 {
		for _, p := range a.packs {
			if n <= len(p.LoadedLevels) {
				return p, p.LoadedLevels[n-1], nil
			}
			n -= len(p.LoadedLevels)
		}
		return levels.Pack{}, levels.Level{}, fmt.Errorf("there is no room number %s", ref)
	}
	for _, p := range a.packs {
		for _, lv := range p.LoadedLevels {
			if strings.EqualFold(lv.LevelID, ref) {
				return p, lv, nil
			}
		}
	}
	return levels.Pack{}, levels.Level{}, fmt.Errorf("unknown room %q", ref)
}

// Packs is the loaded catalog.
func (a *App) Packs() []levels.Pack { return a.packs }

// Catalog is the level list with stored progress folded in.
func (a *App) Catalog(ctx context.Context) []ui.PackSummary { return a.catalog(ctx) }

func (a *App) catalog(ctx context.Context) []ui.PackSummary {
	progress, err := a.store.GetLevelProgressMap(ctx)
	if err != nil {
		a.logger.Error("state.progress_load_failed", map[string]any{"error": err.Error()})
	}
	out := make([]ui.PackSummary, 0, len(a.packs))
	for _, p := range a.packs {
		ps := ui.PackSummary{
			PackID: p.PackID,
			Name:   p.Name,
			Levels: make([]ui.LevelSummary, 0, len(p.LoadedLevels)),
		}
		for _, lv := range p.LoadedLevels {
			pr := progress[lv.LevelID]
			ps.Levels = append(ps.Levels, ui.LevelSummary{
				LevelID:          lv.LevelID,
				Title:            lv.Title,
				Puzzle:           lv.Puzzle,
				Difficulty:       lv.Difficulty,
				EstimatedMinutes: lv.EstimatedMinutes,
				SummaryMD:        lv.SummaryMD,
				Tags:             append([]string(nil), lv.Tags...),
				Solved:           pr.SolvedCount > 0,
				BestScore:        pr.BestScore,
				BestTimeMS:       pr.BestTimeMS,
				LastPlayed:       pr.LastPlayedTS,
			})
		}
		out = append(out, ps)
	}
	return out
}

func (a *App) mainMenuState(ctx context.Context) ui.MainMenuState {
	summary, _ := a.store.GetSummary(ctx)
	last, _ := a.store.GetLastRun(ctx)
	progress, _ := a.store.GetLevelProgressMap(ctx)
	st := ui.MainMenuState{
		PackCount: len(a.packs),
		LevelRuns: summary.LevelRuns,
		Commands:  summary.Commands,
		Resets:    summary.Resets,
		Tip:       tips[summary.LevelRuns%len(tips)],
	}
	for _, p := range a.packs {
		st.LevelCount += len(p.LoadedLevels)
		for _, lv := range p.LoadedLevels {
			if progress[lv.LevelID].SolvedCount > 0 {
				st.SolvedCount++
			}
		}
	}
	if last != nil {
		st.LastPackID = last.PackID
		st.LastLevelID = last.LevelID
	}
	return st
}

// StatsText is the plain-text progress report shared by the stats overlay
// and the stats command.
func (a *App) StatsText(ctx context.Context) (string, error) {
	summary, err := a.store.GetSummary(ctx)
	if err != nil {
		return "", err
	}
	menu := a.mainMenuState(ctx)
	var b strings.Builder
	fmt.Fprintf(&b, "Rooms solved: %d of %d\n", menu.SolvedCount, menu.LevelCount)
	fmt.Fprintf(&b, "Level runs: %s (%s solved)\n", humanize.Comma(int64(summary.LevelRuns)), humanize.Comma(int64(summary.Solves)))
	fmt.Fprintf(&b, "Commands: %s (%s rejected)\n", humanize.Comma(int64(summary.Commands)), humanize.Comma(int64(summary.Rejected)))
	fmt.Fprintf(&b, "Resets: %s\n", humanize.Comma(int64(summary.Resets)))
	if settings, err := a.store.LoadSettings(ctx); err == nil {
		if ts, err := time.Parse(time.RFC3339, settings["first_launch"]); err == nil {
			fmt.Fprintf(&b, "Playing since: %s\n", humanize.Time(ts))
		}
	}
	if verbs, err := a.store.TopVerbs(ctx, 3); err == nil && len(verbs) > 0 {
		parts := make([]string, 0, len(verbs))
		for _, v := range verbs {
			parts = append(parts, fmt.Sprintf("/%s (%d)", v.Verb, v.Count))
		}
		fmt.Fprintf(&b, "Favourite commands: %s\n", strings.Join(parts, ", "))
	}
	return strings.TrimRight(b.String(), "\n"), nil
}

func (a *App) applyDemoScenario(ctx context.Context, scenario string) error {
	s := a.demo.Resolve(scenario)
	a.logger.Info("dev.demo.apply.begin", map[string]any{"requested": scenario, "resolved": s.Name})
	switch s.Screen {
	case "main_menu":
		a.OnBackToMainMenu()
		return nil
	case "level_select":
		a.OnOpenLevelSelect()
		return nil
	}

	a.mu.Lock()
	session := a.session
	pack, level := a.pack, a.level
	a.mu.Unlock()
	if session == nil {
		if err := a.startLevel(ctx, pack, level); err != nil {
			a.view.FlashStatus("demo start failed: " + err.Error())
			return err
		}
		a.mu.Lock()
		session = a.session
		a.mu.Unlock()
	}
	if s.HelpOpen {
		a.view.SetHelp(session.HelpMarkdown(), true)
	}
	if s.Solve {
		steps, err := a.demo.Walkthrough(session, 0)
		if err != nil {
			return err
		}
		if _, err := a.demo.Play(ctx, steps, func(line string) levels.Outcome {
			out, _ := a.submit(ctx, line)
			return out
		}); err != nil {
			return err
		}
	}
	a.logger.Info("dev.demo.apply.ready", map[string]any{"requested": scenario, "resolved": s.Name})
	return nil
}

func (a *App) setDevState(state, demo string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = true
	a.devState.Pending = false
	a.devState.Error = ""
	a.devState.RenderSeq++
}

func (a *App) setDevPending(state, demo string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = false
	a.devState.Pending = true
	a.devState.Error = ""
	a.devState.RenderSeq++
}

func (a *App) setDevError(state, demo, errText string) {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	a.devState.State = state
	a.devState.Demo = demo
	a.devState.Rendered = false
	a.devState.Pending = false
	a.devState.Error = errText
	a.devState.RenderSeq++
}

func (a *App) getDevState() map[string]any {
	a.devMu.Lock()
	defer a.devMu.Unlock()
	return map[string]any{
		"ok":         true,
		"state":      a.devState.State,
		"demo":       a.devState.Demo,
		"render_seq": a.devState.RenderSeq,
		"rendered":   a.devState.Rendered,
		"pending":    a.devState.Pending,
		"error":      a.devState.Error,
	}
}

func (a *App) writeDevState(ctx context.Context, st string) {
	if !a.cfg.Dev {
		return
	}
	if err := a.demo.SetState(ctx, a.cfg.DataDir, st, true); err != nil {
		a.logger.Error("dev_state.write_failed", map[string]any{"state": st, "error": err.Error()})
	}
}

func (a *App) runDemoScenario(ctx context.Context, requested string) (string, error) {
	resolved := a.demo.Resolve(requested).Name
	a.logger.Info("dev.demo.dispatch.begin", map[string]any{"requested": requested, "resolved": resolved})
	a.setDevPending(resolved, requested)

	a.demoMu.Lock()
	defer a.demoMu.Unlock()

	if err := a.applyDemoScenario(ctx, requested); err != nil {
		a.logger.Error("dev.demo.dispatch.apply_failed", map[string]any{"requested": requested, "resolved": resolved, "error": err.Error()})
		a.setDevError(resolved, requested, err.Error())
		return resolved, err
	}
	a.setDevState(resolved, requested)
	a.writeDevState(ctx, resolved)
	return resolved, nil
}

func (a *App) devHandler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/__dev/ready", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(a.getDevState())
	})
	mux.HandleFunc("/__dev/demo", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Demo string `json:"demo"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		req.Demo = strings.TrimSpace(req.Demo)
		if req.Demo == "" {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "demo is required"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 30*time.Second)
		defer cancel()
		resolved, err := a.runDemoScenario(ctx, req.Demo)
		if err != nil {
			writeJSON(w, http.StatusInternalServerError, map[string]any{"ok": false, "error": err.Error(), "state": resolved})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"ok": true, "state": resolved, "requested": req.Demo})
	})
	mux.HandleFunc("/__dev/submit", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		var req struct {
			Line string `json:"line"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"ok": false, "error": "invalid json"})
			return
		}
		out, ok := a.submit(r.Context(), req.Line)
		if !ok {
			writeJSON(w, http.StatusConflict, map[string]any{"ok": false, "error": "no room is active"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"ok":           true,
			"verb":         out.Verb,
			"accepted":     out.Accepted,
			"solved":       out.Solved,
			"failed":       out.Failed,
			"notification": out.Notification,
		})
	})
	return mux
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func resultSummary(r scoring.Result) string {
	parts := []string{fmt.Sprintf("Solved in %s with %d %s", formatDuration(r.Run.DurationMS), r.Run.Moves, plural(r.Run.Moves, "move", "moves"))}
	if r.Run.Rejected > 0 {
		parts = append(parts, fmt.Sprintf("%d rejected", r.Run.Rejected))
	}
	for _, b := range r.Bonuses {
		if b.Awarded {
			parts = append(parts, "bonus: "+b.ID)
		}
	}
	return strings.Join(parts, ", ") + "."
}

func breakdownRows(r scoring.Result) []ui.BreakdownRow {
	rows := []ui.BreakdownRow{{Label: "Base", Value: humanize.Comma(int64(r.Score.BasePoints))}}
	for _, d := range r.Score.Breakdown {
		if d.Points == 0 {
			continue
		}
		rows = append(rows, ui.BreakdownRow{Label: d.Description, Value: fmt.Sprintf("%+d", d.Points)})
	}
	return append(rows, ui.BreakdownRow{Label: "Total", Value: humanize.Comma(int64(r.Score.TotalPoints))})
}

func formatDuration(ms int64) string {
	d := time.Duration(ms) * time.Millisecond
	return fmt.Sprintf("%02d:%02d", int(d.Minutes()), int(d.Seconds())%60)
}

func levelIndex(pack levels.Pack, levelID string) int {
	for i, lv := range pack.LoadedLevels {
		if lv.LevelID == levelID {
			return i
		}
	}
	return 0
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func firstNonEmpty(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

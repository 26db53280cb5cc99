package ui

import (
	"time"

	"escaperoom/internal/notify"
)

type Controller interface {
	OnContinue()
	OnOpenLevelSelect()
	OnStartLevel(packID, levelID string)
	OnBackToMainMenu()
	OnOpenStats()
	OnSubmit(line string)
	OnNextLevel()
	OnRetry()
	OnQuit()
}

type View interface {
	Run() error
	Stop()
	SetController(Controller)
	SetScreen(screen Screen)
	SetMainMenuState(state MainMenuState)
	SetCatalog(packs []PackSummary)
	SetLevelSelection(packID, levelID string)
	SetPlayingState(PlayingState)
	SetResult(state ResultState)
	SetHelp(markdown string, open bool)
	SetInfo(title, text string, open bool)
	FlashStatus(msg string)
	notify.Sink
}

type Screen int

const (
	ScreenMainMenu Screen = iota
	ScreenLevelSelect
	ScreenPlaying
)

type LayoutMode int

const (
	LayoutWide LayoutMode = iota
	LayoutCompact
	LayoutTooSmall
)

type PlayingState struct {
	PackID     string
	LevelID    string
	Title      string
	LevelIndex int
	LevelCount int
	Goal       string
	Art        []string
	Facts      []FactRow
	// Animated is true while the scene has moving parts (fan blades).
	Animated bool
	Progress float64
	Solved   bool
	Failed   bool
	// ElapsedLabel overrides the live timer when set.
	ElapsedLabel string
	StartedAt    time.Time
	Moves        int
	Rejected     int
	Resets       int
	HelpUsed     int
}

type FactRow struct {
	Label string
	Value string
}

type ResultState struct {
	Visible   bool
	Title     string
	Summary   string
	Score     int
	Breakdown []BreakdownRow
	HasNext   bool
}

type BreakdownRow struct {
	Label string
	Value string
}

type MainMenuState struct {
	PackCount   int
	LevelCount  int
	SolvedCount int
	LevelRuns   int
	Commands    int
	Resets      int
	LastPackID  string
	LastLevelID string
	Tip         string
}

type PackSummary struct {
	PackID string
	Name   string
	Levels []LevelSummary
}

type LevelSummary struct {
	LevelID          string
	Title            string
	Puzzle           string
	Difficulty       int
	EstimatedMinutes int
	SummaryMD        string
	Tags             []string
	Solved           bool
	BestScore        int
	BestTimeMS       int64
	LastPlayed       time.Time
}

// Package console is a line-mode front end for terminals that cannot host
// the full-screen view: pipes, dumb terminals and scripted play.
package console

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync"

	"escaperoom/internal/notify"
	"escaperoom/internal/ui"

	"charm.land/lipgloss/v2"
	"github.com/dustin/go-humanize"
	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"
)

const defaultWidth = 72

type Options struct {
	In           io.Reader
	Out          io.Writer
	Width        int
	StyleVariant string
	// Echo prints each input line back, which keeps transcripts of piped
	// sessions readable.
	Echo bool
}

// Console implements ui.View over a plain reader and writer. Lines starting
// with ':' drive navigation; anything else is submitted to the level.
type Console struct {
	in    io.Reader
	out   io.Writer
	width int
	theme ui.Theme
	echo  bool

	mu        sync.Mutex
	ctrl      ui.Controller
	screen    ui.Screen
	menu      ui.MainMenuState
	catalog   []ui.PackSummary
	selPack   string
	selLevel  string
	playing   ui.PlayingState
	lastScene string
	result    ui.ResultState

	stop     chan struct{}
	stopOnce sync.Once
}

func New(opts Options) *Console {
	width := opts.Width
	if width <= 0 {
		width = defaultWidth
	}
	return &Console{
		in:     opts.In,
		out:    opts.Out,
		width:  width,
		theme:  ui.ThemeForVariant(opts.StyleVariant),
		echo:   opts.Echo,
		// Nothing printed yet, so the first SetScreen always draws.
		screen: ui.Screen(-1),
		stop:   make(chan struct{}),
	}
}

// Run reads lines until Stop is called or input ends. End of input counts
// as a quit.
func (c *Console) Run() error {
	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		defer close(lines)
		sc := bufio.NewScanner(c.in)
		for sc.Scan() {
			select {
			case lines <- sc.Text():
			case <-c.stop:
				return
			}
		}
		errs <- sc.Err()
	}()

	c.prompt()
	for {
		select {
		case <-c.stop:
			return nil
		case line, ok := <-lines:
			if !ok {
				var err error
				select {
				case err = <-errs:
				default:
				}
				if ctrl := c.controller(); ctrl != nil {
					ctrl.OnQuit()
				}
				c.Stop()
				if err != nil {
					return fmt.Errorf("read input: %w", err)
				}
				return nil
			}
			c.handleLine(line)
			select {
			case <-c.stop:
				return nil
			default:
				c.prompt()
			}
		}
	}
}

func (c *Console) Stop() {
	c.stopOnce.Do(func() { close(c.stop) })
}

func (c *Console) SetController(ctrl ui.Controller) {
	c.mu.Lock()
	c.ctrl = ctrl
	c.mu.Unlock()
}

func (c *Console) controller() ui.Controller {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.ctrl
}

func (c *Console) SetScreen(screen ui.Screen) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen == screen {
		return
	}
	c.screen = screen
	switch screen {
	case ui.ScreenMainMenu:
		c.lastScene = ""
		c.printMainMenuLocked()
	case ui.ScreenLevelSelect:
		c.lastScene = ""
		c.printCatalogLocked()
	case ui.ScreenPlaying:
		c.result = ui.ResultState{}
	}
}

func (c *Console) SetMainMenuState(state ui.MainMenuState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.menu = state
}

func (c *Console) SetCatalog(packs []ui.PackSummary) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.catalog = packs
}

func (c *Console) SetLevelSelection(packID, levelID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.selPack, c.selLevel = packID, levelID
}

func (c *Console) SetPlayingState(state ui.PlayingState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if state.PackID != c.playing.PackID || state.LevelID != c.playing.LevelID {
		c.lastScene = ""
	}
	c.playing = state
	scene := c.sceneText()
	if scene == c.lastScene {
		return
	}
	c.lastScene = scene
	c.printLocked(scene)
}

func (c *Console) SetResult(state ui.ResultState) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.result = state
	if !state.Visible {
		return
	}
	lines := []string{
		c.theme.SeverityStyle(string(notify.SeveritySuccess)).Render("*** " + state.Title + " ***"),
	}
	if state.Summary != "" {
		lines = append(lines, wordwrap.String(state.Summary, c.width))
	}
	lines = append(lines, fmt.Sprintf("Score: %s", humanize.Comma(int64(state.Score))))
	for _, row := range state.Breakdown {
		lines = append(lines, fmt.Sprintf("  %-18s %s", row.Label, row.Value))
	}
	if state.HasNext {
		lines = append(lines, ":next for the next room, :retry to play again, :levels to choose")
	} else {
		lines = append(lines, ":retry to play again, :levels to choose, :menu for the main menu")
	}
	c.printLocked(strings.Join(lines, "\n"))
}

// SetHelp prints the raw markdown; it reads fine as plain text.
func (c *Console) SetHelp(markdown string, open bool) {
	if !open {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printLocked(wordwrap.String(strings.TrimSpace(markdown), c.width))
}

func (c *Console) SetInfo(title, text string, open bool) {
	if !open {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	head := c.theme.SeverityStyle(string(notify.SeverityDefault)).Render("== " + title + " ==")
	c.printLocked(head + "\n" + strings.TrimRight(text, "\n"))
}

func (c *Console) FlashStatus(msg string) {
	if strings.TrimSpace(msg) == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.printLocked("-- " + msg)
}

func (c *Console) Notify(n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	tag := c.theme.SeverityStyle(string(n.Severity)).Render("[" + severityTag(n.Severity) + "]")
	line := tag + " " + n.Title
	if n.Description != "" {
		line += ": " + n.Description
	}
	wrapped := wordwrap.String(line, c.width)
	if i := strings.IndexByte(wrapped, '\n'); i >= 0 {
		wrapped = wrapped[:i+1] + indent.String(wrapped[i+1:], 4)
	}
	c.printLocked(wrapped)
}

func severityTag(s notify.Severity) string {
	switch s {
	case notify.SeveritySuccess:
		return "ok"
	case notify.SeverityDestructive:
		return "!!"
	default:
		return "--"
	}
}

func (c *Console) handleLine(raw string) {
	line := strings.TrimSpace(raw)
	c.mu.Lock()
	if c.echo {
		c.printLocked("> " + line)
	}
	ctrl := c.ctrl
	screen := c.screen
	c.mu.Unlock()
	if line == "" || ctrl == nil {
		return
	}

	if !strings.HasPrefix(line, ":") {
		if screen == ui.ScreenPlaying {
			ctrl.OnSubmit(line)
			return
		}
		// Outside a room a bare number or level id picks a level.
		c.play(ctrl, line)
		return
	}

	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		c.usage()
		return
	}
	switch strings.ToLower(fields[0]) {
	case "levels", "l":
		if screen == ui.ScreenLevelSelect {
			c.mu.Lock()
			c.printCatalogLocked()
			c.mu.Unlock()
			return
		}
		ctrl.OnOpenLevelSelect()
	case "play", "p":
		if len(fields) < 2 {
			c.FlashStatus("usage: :play <number|level_id>")
			return
		}
		c.play(ctrl, fields[1])
	case "continue", "c":
		ctrl.OnContinue()
	case "next", "n":
		ctrl.OnNextLevel()
	case "retry", "r":
		ctrl.OnRetry()
	case "menu", "m":
		ctrl.OnBackToMainMenu()
	case "stats", "s":
		ctrl.OnOpenStats()
	case "help", "h", "?":
		c.usage()
	case "quit", "q", "exit":
		ctrl.OnQuit()
		c.Stop()
	default:
		c.FlashStatus(fmt.Sprintf("unknown console command %q; try :help", fields[0]))
	}
}

// play resolves a 1-based catalog number or a level id and starts it.
func (c *Console) play(ctrl ui.Controller, ref string) {
	c.mu.Lock()
	packID, levelID, ok := c.resolveLocked(ref)
	c.mu.Unlock()
	if !ok {
		c.FlashStatus(fmt.Sprintf("no level %q; :levels lists them", ref))
		return
	}
	ctrl.OnStartLevel(packID, levelID)
}

func (c *Console) resolveLocked(ref string) (string, string, bool) {
	n, numErr := strconv.Atoi(ref)
	i := 0
	for _, p := range c.catalog {
		for _, l := range p.Levels {
			i++
			if (numErr == nil && n == i) || strings.EqualFold(l.LevelID, ref) {
				return p.PackID, l.LevelID, true
			}
		}
	}
	return "", "", false
}

func (c *Console) usage() {
	c.FlashStatus(":levels  :play <n>  :continue  :next  :retry  :menu  :stats  :quit  (other lines go to the room)")
}

func (c *Console) prompt() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.screen != ui.ScreenPlaying || c.echo {
		return
	}
	fmt.Fprint(c.out, "> ")
}

func (c *Console) printMainMenuLocked() {
	m := c.menu
	lines := []string{
		c.theme.SeverityStyle(string(notify.SeverityDefault)).Render("== Escape Room =="),
		fmt.Sprintf("%d %s solved of %d across %d %s",
			m.SolvedCount, plural(m.SolvedCount, "room", "rooms"), m.LevelCount, m.PackCount, plural(m.PackCount, "pack", "packs")),
	}
	if m.LevelRuns > 0 {
		lines = append(lines, fmt.Sprintf("%s runs, %s commands, %s resets",
			humanize.Comma(int64(m.LevelRuns)), humanize.Comma(int64(m.Commands)), humanize.Comma(int64(m.Resets))))
	}
	if m.LastLevelID != "" {
		lines = append(lines, "Last played: "+m.LastLevelID)
	}
	if m.Tip != "" {
		lines = append(lines, wordwrap.String("Tip: "+m.Tip, c.width))
	}
	lines = append(lines, ":continue  :levels  :stats  :quit")
	c.printLocked(strings.Join(lines, "\n"))
}

func (c *Console) printCatalogLocked() {
	var b strings.Builder
	i := 0
	for _, p := range c.catalog {
		fmt.Fprintf(&b, "%s\n", c.theme.SeverityStyle(string(notify.SeverityDefault)).Render("== "+p.Name+" =="))
		for _, l := range p.Levels {
			i++
			mark := " "
			if l.Solved {
				mark = "*"
			}
			fmt.Fprintf(&b, "%s %2d. %-24s %-8s %s", mark, i, l.Title, l.Puzzle, strings.Repeat("#", max(0, l.Difficulty)))
			if l.BestScore > 0 {
				fmt.Fprintf(&b, "  best %s", humanize.Comma(int64(l.BestScore)))
			}
			b.WriteString("\n")
		}
	}
	b.WriteString(":play <n> to enter a room")
	c.printLocked(b.String())
}

func (c *Console) sceneText() string {
	p := c.playing
	var b strings.Builder
	title := p.Title
	if p.LevelCount > 0 {
		title = fmt.Sprintf("%s (%d/%d)", p.Title, p.LevelIndex+1, p.LevelCount)
	}
	fmt.Fprintf(&b, "== %s ==\n", title)
	if p.Goal != "" {
		b.WriteString(wordwrap.String(p.Goal, c.width))
		b.WriteString("\n")
	}
	for _, line := range p.Art {
		b.WriteString(line)
		b.WriteString("\n")
	}
	for _, f := range p.Facts {
		fmt.Fprintf(&b, "%s: %s\n", f.Label, f.Value)
	}
	switch {
	case p.Solved:
		b.WriteString(c.theme.SeverityStyle(string(notify.SeveritySuccess)).Render("SOLVED"))
	case p.Failed:
		b.WriteString(c.theme.SeverityStyle(string(notify.SeverityDestructive)).Render("FAILED, /reset to try again"))
	}
	return strings.TrimRight(b.String(), "\n")
}

func (c *Console) printLocked(s string) {
	_, _ = lipgloss.Fprintln(c.out, s)
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

var _ ui.View = (*Console)(nil)

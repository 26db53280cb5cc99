package ui

import (
	"fmt"
	"os"
	"runtime/debug"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"escaperoom/internal/history"
	"escaperoom/internal/notify"

	"charm.land/bubbles/v2/help"
	"charm.land/bubbles/v2/key"
	"charm.land/bubbles/v2/progress"
	"charm.land/bubbles/v2/spinner"
	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/harmonica"
	clog "github.com/charmbracelet/log"
	"github.com/charmbracelet/x/ansi"
)

type applyMsg struct {
	fn func(*Root)
}

type drawMsg struct{}
type clockMsg time.Time
type animateMsg time.Time

// bladeMsg advances the fan animation. Ticks from an older generation are
// dropped, which is how the repeating ticker stops.
type bladeMsg struct {
	gen int
}

type gameKeyMap struct {
	Submit  key.Binding
	History key.Binding
	Help    key.Binding
	Reset   key.Binding
	Menu    key.Binding
	Quit    key.Binding
}

func (k gameKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Submit, k.History, k.Help, k.Reset, k.Menu, k.Quit}
}

func (k gameKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{{k.Submit, k.History, k.Help}, {k.Reset, k.Menu, k.Quit}}
}

type Root struct {
	theme       Theme
	ascii       bool
	debug       bool
	ctrl        Controller
	motionLevel string
	now         func() time.Time

	mu      sync.Mutex
	program *tea.Program
	running bool

	screen Screen
	layout LayoutMode
	cols   int
	rows   int

	state         PlayingState
	mainMenu      MainMenuState
	catalog       []PackSummary
	selectedPack  string
	selectedLevel string
	result        ResultState
	statusFlash   string

	helpText  string
	infoTitle string
	infoText  string

	menuOpen  bool
	resetOpen bool
	helpOpen  bool
	infoOpen  bool

	mainMenuIndex int
	packIndex     int
	levelIndex    int
	catalogFocus  int
	menuIndex     int
	resetIndex    int
	resultIndex   int

	input   textinput.Model
	history *history.Buffer
	toasts  []toast
	toastID int

	bladesOn   bool
	bladeGen   int
	bladeFrame int

	help     help.Model
	keymap   gameKeyMap
	bar      progress.Model
	unlock   spinner.Model
	markdown *glamour.TermRenderer
	logger   *clog.Logger
	spring   harmonica.Spring

	drawPending atomic.Bool

	lastInputEvent string
}

type Options struct {
	ASCIIOnly    bool
	Debug        bool
	StyleVariant string
	MotionLevel  string
	// Now overrides the clock used for toast expiry.
	Now func() time.Time
}

func New(opts Options) *Root {
	logger := clog.NewWithOptions(os.Stderr, clog.Options{Prefix: "escaperoom-ui", Level: clog.WarnLevel})
	if opts.Debug {
		logger.SetLevel(clog.DebugLevel)
	}

	renderer, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle("dark"),
		glamour.WithWordWrap(72),
	)
	if err != nil {
		renderer = nil
	}

	h := help.New()
	h.Styles = help.DefaultDarkStyles()
	motionLevel := normalizeMotionLevel(opts.MotionLevel)
	theme := ThemeForVariant(normalizeStyleVariant(opts.StyleVariant))
	spring := harmonica.NewSpring(harmonica.FPS(60), 10.0, 0.8)
	if motionLevel == "reduced" {
		spring = harmonica.NewSpring(harmonica.FPS(30), 9.0, 0.92)
	}
	bar := progress.New(
		progress.WithWidth(20),
		progress.WithColors(theme.BarFrom, theme.BarTo),
		progress.WithScaled(true),
	)
	unlock := spinner.New(
		spinner.WithSpinner(spinner.MiniDot),
		spinner.WithStyle(theme.Accent),
	)
	input := textinput.New()
	input.Prompt = "> "
	input.Placeholder = "type a command, e.g. /help"
	input.CharLimit = 200
	input.Focus()

	now := opts.Now
	if now == nil {
		now = time.Now
	}

	r := &Root{
		theme:       theme,
		ascii:       opts.ASCIIOnly,
		debug:       opts.Debug,
		motionLevel: motionLevel,
		now:         now,
		screen:      ScreenMainMenu,
		layout:      LayoutWide,
		cols:        120,
		rows:        30,
		input:       input,
		history:     history.New(),
		help:        h,
		bar:         bar,
		unlock:      unlock,
		markdown:    renderer,
		logger:      logger,
		spring:      spring,
	}
	r.keymap = gameKeyMap{
		Submit:  key.NewBinding(key.WithKeys("enter"), key.WithHelp("Enter", "Submit")),
		History: key.NewBinding(key.WithKeys("up", "down"), key.WithHelp("Up/Down", "History")),
		Help:    key.NewBinding(key.WithKeys("f1"), key.WithHelp("F1", "Help")),
		Reset:   key.NewBinding(key.WithKeys("f6"), key.WithHelp("F6", "Reset")),
		Menu:    key.NewBinding(key.WithKeys("f10"), key.WithHelp("F10", "Menu")),
		Quit:    key.NewBinding(key.WithKeys("ctrl+q"), key.WithHelp("Ctrl+Q", "Quit")),
	}
	return r
}

func (r *Root) Init() tea.Cmd {
	return tea.Batch(clockTickCmd(), spinnerTickCmd(r.unlock))
}

func (r *Root) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("update", rec, msg)
			model = r
			cmd = nil
		}
	}()

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		r.cols = msg.Width
		r.rows = msg.Height
		r.layout = DetermineLayoutMode(r.cols, r.rows)
		r.input.SetWidth(max(10, r.cols-8))
		return r, nil
	case applyMsg:
		if msg.fn != nil {
			msg.fn(r)
		}
		return r, tea.Batch(r.animateIfNeeded(), r.syncBlades())
	case drawMsg:
		r.drawPending.Store(false)
		return r, nil
	case clockMsg:
		r.expireToasts()
		return r, clockTickCmd()
	case animateMsg:
		if r.stepToasts() {
			return r, animateTickCmd()
		}
		return r, nil
	case bladeMsg:
		if msg.gen != r.bladeGen || !r.bladesOn {
			return r, nil
		}
		r.bladeFrame++
		return r, bladeTickCmd(r.bladeGen)
	case spinner.TickMsg:
		var cmd tea.Cmd
		r.unlock, cmd = r.unlock.Update(msg)
		return r, cmd
	case tea.PasteMsg:
		if r.screen != ScreenPlaying || r.overlayActive() {
			return r, nil
		}
		r.recordInputEvent(fmt.Sprintf("paste:%d", len(msg.Content)))
		var cmd tea.Cmd
		r.input, cmd = r.input.Update(msg)
		return r, cmd
	case tea.MouseClickMsg:
		return r.handleMouseClick(msg)
	case tea.KeyPressMsg:
		return r.handleKey(msg)
	}
	if r.screen == ScreenPlaying {
		var cmd tea.Cmd
		r.input, cmd = r.input.Update(msg)
		return r, cmd
	}
	return r, nil
}

func (r *Root) View() (view tea.View) {
	defer func() {
		if rec := recover(); rec != nil {
			r.onModelPanic("view", rec, nil)
			width := max(1, r.cols)
			if r.statusFlash == "" {
				r.statusFlash = "Recovered UI panic"
			}
			view = tea.NewView(r.theme.Fail.Width(width).Render(trimForWidth("UI recovered from a rendering panic. Check logs.", max(1, width-1))))
		}
	}()

	v := tea.NewView(r.render())
	v.AltScreen = true
	v.MouseMode = r.currentMouseMode()
	return v
}

func (r *Root) render() string {
	if r.cols < 1 {
		r.cols = 120
	}
	if r.rows < 1 {
		r.rows = 30
	}

	var base string
	switch r.screen {
	case ScreenMainMenu:
		base = r.renderMainMenu()
	case ScreenLevelSelect:
		base = r.renderLevelSelect()
	default:
		base = r.renderPlaying()
	}

	if overlay := r.renderOverlay(); overlay != "" {
		base = composeOverlay(base, overlay, r.cols, r.rows)
	}
	if r.screen == ScreenPlaying {
		base = r.composeToasts(base)
	}
	return base
}

func (r *Root) Run() error {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		return nil
	}
	p := tea.NewProgram(r)
	r.program = p
	r.running = true
	r.mu.Unlock()

	_, err := p.Run()

	r.mu.Lock()
	r.program = nil
	r.running = false
	r.mu.Unlock()
	return err
}

func (r *Root) Stop() {
	r.mu.Lock()
	p := r.program
	r.mu.Unlock()
	if p != nil {
		p.Quit()
	}
}

func (r *Root) SetController(c Controller) {
	r.ctrl = c
}

func (r *Root) SetScreen(screen Screen) {
	r.apply(func(m *Root) {
		if m.screen == ScreenPlaying && screen != ScreenPlaying {
			m.toasts = nil
			m.input.SetValue("")
		}
		m.screen = screen
		if screen != ScreenPlaying {
			m.menuOpen = false
			m.resetOpen = false
			m.helpOpen = false
			m.result = ResultState{}
		}
	})
}

func (r *Root) SetMainMenuState(state MainMenuState) {
	r.apply(func(m *Root) {
		m.mainMenu = state
	})
}

func (r *Root) SetCatalog(packs []PackSummary) {
	r.apply(func(m *Root) {
		m.catalog = append([]PackSummary(nil), packs...)
		m.syncCatalogSelection()
	})
}

func (r *Root) SetLevelSelection(packID, levelID string) {
	r.apply(func(m *Root) {
		m.selectedPack = packID
		m.selectedLevel = levelID
		m.syncCatalogSelection()
	})
}

// SetPlayingState replaces the scene. Mounting a different level starts a
// fresh command history.
func (r *Root) SetPlayingState(s PlayingState) {
	r.apply(func(m *Root) {
		if s.StartedAt.IsZero() {
			s.StartedAt = m.now()
		}
		if s.PackID != m.state.PackID || s.LevelID != m.state.LevelID {
			m.history = history.New()
			m.input.SetValue("")
			m.toasts = nil
		}
		m.state = s
	})
}

func (r *Root) SetResult(state ResultState) {
	r.apply(func(m *Root) {
		m.result = state
		m.resultIndex = 0
	})
}

func (r *Root) SetHelp(markdown string, open bool) {
	r.apply(func(m *Root) {
		text := strings.TrimSpace(markdown)
		if m.markdown != nil && text != "" {
			if rendered, err := m.markdown.Render(text); err == nil {
				text = strings.Trim(rendered, "\n")
			}
		}
		m.helpText = text
		m.helpOpen = open
	})
}

func (r *Root) SetInfo(title, text string, open bool) {
	r.apply(func(m *Root) {
		m.infoTitle = title
		m.infoText = text
		m.infoOpen = open
	})
}

func (r *Root) FlashStatus(msg string) {
	r.apply(func(m *Root) {
		m.statusFlash = msg
	})
}

func (r *Root) Notify(n notify.Notification) {
	r.apply(func(m *Root) {
		m.pushToast(n)
	})
}

func (r *Root) RequestDraw() {
	r.mu.Lock()
	p := r.program
	running := r.running
	r.mu.Unlock()
	if !running || p == nil {
		return
	}
	if !r.drawPending.CompareAndSwap(false, true) {
		return
	}
	time.AfterFunc(16*time.Millisecond, func() {
		r.mu.Lock()
		p := r.program
		running := r.running
		r.mu.Unlock()
		if !running || p == nil {
			r.drawPending.Store(false)
			return
		}
		p.Send(drawMsg{})
	})
}

func (r *Root) apply(fn func(*Root)) {
	if fn == nil {
		return
	}
	r.mu.Lock()
	p := r.program
	running := r.running
	if !running || p == nil {
		fn(r)
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()
	p.Send(applyMsg{fn: fn})
}

func (r *Root) dispatchController(fn func(Controller)) {
	if fn == nil || r.ctrl == nil {
		return
	}
	ctrl := r.ctrl
	go fn(ctrl)
}

func (r *Root) handleKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	r.recordInputEvent(fmt.Sprintf("key:%v mod:%v text:%q", msg.Code, msg.Mod, msg.Text))

	if key.Matches(msg, r.keymap.Quit) {
		r.dispatchController(func(c Controller) { c.OnQuit() })
		return r, nil
	}

	if r.overlayActive() {
		return r.handleOverlayKey(msg)
	}

	switch r.screen {
	case ScreenMainMenu:
		return r.handleMainMenuKey(msg)
	case ScreenLevelSelect:
		return r.handleLevelSelectKey(msg)
	default:
		return r.handlePlayingKey(msg)
	}
}

func (r *Root) handleMouseClick(msg tea.MouseClickMsg) (tea.Model, tea.Cmd) {
	m := msg.Mouse()
	r.recordInputEvent(fmt.Sprintf("mouse_click:%d,%d button:%v", m.X, m.Y, m.Button))
	if m.Button != tea.MouseLeft {
		return r, nil
	}
	if r.overlayActive() {
		return r.handleOverlayMouseClick(m.X, m.Y)
	}
	switch r.screen {
	case ScreenMainMenu:
		items := r.mainMenuItems()
		leftW := min(36, max(24, r.cols/3))
		idx := m.Y - 2
		if m.X >= 1 && m.X < leftW-1 && idx >= 0 && idx < len(items) {
			r.mainMenuIndex = idx
			r.activateMainMenuSelection()
		}
	case ScreenLevelSelect:
		return r.handleLevelSelectMouseClick(m.X, m.Y)
	}
	return r, nil
}

func (r *Root) handleLevelSelectMouseClick(x, y int) (tea.Model, tea.Cmd) {
	if y < 2 {
		return r, nil
	}
	leftW := min(34, max(24, r.cols/4))
	middleW := min(46, max(28, r.cols/3))
	idx := y - 2

	if x >= 1 && x < leftW-1 && len(r.catalog) > 0 {
		r.catalogFocus = 0
		r.packIndex = wrapIndex(idx, len(r.catalog))
		r.syncSelectionFromIndices()
		return r, nil
	}
	if x >= leftW+1 && x < leftW+middleW-1 {
		levels := r.selectedPackLevels()
		if len(levels) == 0 || idx >= len(levels) {
			return r, nil
		}
		r.catalogFocus = 1
		r.levelIndex = idx
		r.syncSelectionFromIndices()
		r.startSelectedLevel()
	}
	return r, nil
}

func (r *Root) handleOverlayMouseClick(x, y int) (tea.Model, tea.Cmd) {
	top := r.topOverlay()
	spec, ok := r.overlaySpec(top)
	if !ok {
		return r, nil
	}
	if x < spec.startCol+1 || x >= spec.startCol+spec.width-1 || y < spec.startRow+1 || y >= spec.startRow+spec.height-1 {
		return r, nil
	}
	row := y - (spec.startRow + 1) - spec.actionsAt
	switch top {
	case "menu":
		items := r.menuItems()
		if row >= 0 && row < len(items) {
			r.menuIndex = row
			r.activateMenuItem(items[row])
		}
	case "result":
		buttons := r.resultButtons()
		if row >= 0 && row < len(buttons) {
			r.resultIndex = row
			r.activateResultButton(buttons[row])
		}
	case "reset":
		if row == 0 || row == 1 {
			r.resetIndex = row
			r.confirmReset()
		}
	}
	return r, nil
}

func (r *Root) handleOverlayKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.Code == tea.KeyEsc || msg.Code == tea.KeyEscape ||
		(msg.Mod == 0 && (msg.Code == 'q' || msg.Code == 'Q')) {
		r.closeTopOverlay()
		return r, nil
	}

	switch r.topOverlay() {
	case "menu":
		items := r.menuItems()
		switch msg.Code {
		case tea.KeyUp:
			r.menuIndex = wrapIndex(r.menuIndex-1, len(items))
		case tea.KeyDown, tea.KeyTab:
			r.menuIndex = wrapIndex(r.menuIndex+1, len(items))
		case tea.KeyEnter:
			r.activateMenuItem(items[wrapIndex(r.menuIndex, len(items))])
		}
	case "reset":
		switch msg.Code {
		case tea.KeyLeft, tea.KeyUp:
			r.resetIndex = 0
		case tea.KeyRight, tea.KeyDown, tea.KeyTab:
			r.resetIndex = 1
		case tea.KeyEnter:
			r.confirmReset()
		}
	case "result":
		buttons := r.resultButtons()
		switch msg.Code {
		case tea.KeyUp:
			r.resultIndex = wrapIndex(r.resultIndex-1, len(buttons))
		case tea.KeyDown, tea.KeyTab:
			r.resultIndex = wrapIndex(r.resultIndex+1, len(buttons))
		case tea.KeyEnter:
			r.activateResultButton(buttons[wrapIndex(r.resultIndex, len(buttons))])
		}
	case "help", "info":
		if msg.Code == tea.KeyEnter {
			r.closeTopOverlay()
		}
	}
	return r, nil
}

func (r *Root) confirmReset() {
	r.resetOpen = false
	if r.resetIndex == 1 {
		r.dispatchController(func(c Controller) { c.OnSubmit("/reset") })
	}
	r.resetIndex = 0
}

func (r *Root) handleMainMenuKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	items := r.mainMenuItems()
	switch msg.Code {
	case tea.KeyUp:
		r.mainMenuIndex = wrapIndex(r.mainMenuIndex-1, len(items))
	case tea.KeyDown, tea.KeyTab:
		r.mainMenuIndex = wrapIndex(r.mainMenuIndex+1, len(items))
	case tea.KeyEnter:
		r.activateMainMenuSelection()
	case tea.KeyEsc:
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
	return r, nil
}

func (r *Root) handleLevelSelectKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	if msg.Code == tea.KeyEsc {
		r.dispatchController(func(c Controller) { c.OnBackToMainMenu() })
		return r, nil
	}
	if msg.Code == tea.KeyTab && msg.Mod&tea.ModShift != 0 {
		r.catalogFocus = 0
		return r, nil
	}

	step := 0
	switch msg.Code {
	case tea.KeyLeft:
		r.catalogFocus = 0
	case tea.KeyRight, tea.KeyTab:
		r.catalogFocus = 1
	case tea.KeyUp:
		step = -1
	case tea.KeyDown:
		step = 1
	case tea.KeyEnter:
		if r.catalogFocus == 0 {
			r.catalogFocus = 1
			return r, nil
		}
		r.startSelectedLevel()
	}
	if step != 0 {
		if r.catalogFocus == 0 {
			r.packIndex = wrapIndex(r.packIndex+step, len(r.catalog))
			r.levelIndex = 0
		} else {
			r.levelIndex = wrapIndex(r.levelIndex+step, len(r.selectedPackLevels()))
		}
		r.syncSelectionFromIndices()
	}
	return r, nil
}

func (r *Root) handlePlayingKey(msg tea.KeyPressMsg) (tea.Model, tea.Cmd) {
	switch msg.Code {
	case tea.KeyEnter:
		line := strings.TrimSpace(r.input.Value())
		r.input.SetValue("")
		if line == "" {
			return r, nil
		}
		r.history.Push(line)
		r.dispatchController(func(c Controller) { c.OnSubmit(line) })
		return r, nil
	case tea.KeyUp:
		if entry, ok := r.history.Up(r.input.Value()); ok {
			r.input.SetValue(entry)
			r.input.CursorEnd()
		}
		return r, nil
	case tea.KeyDown:
		if entry, ok := r.history.Down(); ok {
			r.input.SetValue(entry)
			r.input.CursorEnd()
		}
		return r, nil
	case tea.KeyF1:
		r.dispatchController(func(c Controller) { c.OnSubmit("/help") })
		return r, nil
	case tea.KeyF6:
		r.resetOpen = true
		r.resetIndex = 0
		return r, nil
	case tea.KeyF10:
		r.menuOpen = true
		r.menuIndex = 0
		return r, nil
	case tea.KeyEsc:
		if r.input.Value() != "" {
			r.input.SetValue("")
			return r, nil
		}
		r.menuOpen = true
		r.menuIndex = 0
		return r, nil
	}

	var cmd tea.Cmd
	r.input, cmd = r.input.Update(msg)
	return r, cmd
}

func (r *Root) renderMainMenu() string {
	w, h := r.cols, r.rows
	header := r.theme.Header.Width(max(1, w)).Render("Escape Room")

	items := r.mainMenuItems()
	menuLines := make([]string, len(items))
	for i, item := range items {
		prefix := "  "
		if i == r.mainMenuIndex {
			prefix = "> "
		}
		menuLines[i] = prefix + item.Label
	}
	left := r.drawPanel("Main Menu", menuLines, min(36, max(24, w/3)), max(8, h-1))
	rightText := r.mainMenuInfoText(items)
	right := r.drawPanel("Overview", splitLines(rightText), max(20, w-lipgloss.Width(left)), max(8, h-1))
	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, right)
}

func (r *Root) renderLevelSelect() string {
	w, h := r.cols, r.rows
	header := r.theme.Header.Width(max(1, w)).Render("Escape Room - Level Select")

	packs := make([]string, len(r.catalog))
	for i, p := range r.catalog {
		prefix := "  "
		if r.catalogFocus == 0 && i == r.packIndex {
			prefix = "> "
		}
		packs[i] = fmt.Sprintf("%s%s (%d)", prefix, p.Name, len(p.Levels))
	}
	if len(packs) == 0 {
		packs = []string{"No packs loaded."}
	}
	left := r.drawPanel("Packs", packs, min(34, max(24, w/4)), max(8, h-1))

	levels := r.selectedPackLevels()
	levelLines := make([]string, len(levels))
	for i, lv := range levels {
		prefix := "  "
		if r.catalogFocus == 1 && i == r.levelIndex {
			prefix = "> "
		}
		mark := " "
		if lv.Solved {
			mark = r.glyph("✓", "v")
		}
		levelLines[i] = fmt.Sprintf("%s%s %2d. %s", prefix, mark, i+1, lv.Title)
	}
	if len(levelLines) == 0 {
		levelLines = []string{"No levels in this pack."}
	}
	middle := r.drawPanel("Levels", levelLines, min(46, max(28, w/3)), max(8, h-1))

	right := r.drawPanel("Details", splitLines(r.levelDetailText()), max(22, w-lipgloss.Width(left)-lipgloss.Width(middle)), max(8, h-1))
	return header + "\n" + lipgloss.JoinHorizontal(lipgloss.Top, left, middle, right)
}

func (r *Root) renderPlaying() string {
	w, h := r.cols, r.rows
	mode := DetermineLayoutMode(w, h)
	r.layout = mode

	if mode == LayoutTooSmall {
		msg := []string{
			"Terminal too small",
			fmt.Sprintf("Current: %dx%d", w, h),
			"Minimum: 60x18",
			"Resize the terminal to continue.",
		}
		panel := r.drawPanel("Resize Required", msg, min(40, w), min(8, h))
		return lipgloss.Place(w, h, lipgloss.Center, lipgloss.Center, panel)
	}

	header := r.headerText()
	status := r.statusText()
	inputPanel := r.drawPanel("Command", []string{r.input.View()}, w, 3)
	bodyH := max(3, h-5)

	var body string
	if mode == LayoutWide {
		hudW := min(40, max(30, w/3))
		hud := r.drawPanel("Status", splitLines(r.hudText()), hudW, bodyH)
		scene := r.drawPanel(r.sceneTitle(), r.sceneLines(), w-hudW, bodyH)
		body = lipgloss.JoinHorizontal(lipgloss.Top, hud, scene)
	} else {
		lines := r.sceneLines()
		for _, f := range r.state.Facts {
			lines = append(lines, f.Label+": "+f.Value)
		}
		body = r.drawPanel(r.sceneTitle(), lines, w, bodyH)
	}
	return header + "\n" + body + "\n" + inputPanel + "\n" + status
}

func (r *Root) sceneTitle() string {
	title := firstNonEmptyStr(r.state.Title, "Level")
	if r.state.LevelCount > 0 {
		title = fmt.Sprintf("%d/%d %s", r.state.LevelIndex+1, r.state.LevelCount, title)
	}
	return title
}

func (r *Root) sceneLines() []string {
	var lines []string
	if r.state.Goal != "" {
		lines = append(lines, r.state.Goal, "")
	}
	lines = append(lines, r.state.Art...)
	if r.state.Animated {
		lines = append(lines, "", "Fan "+r.bladeGlyph()+"  the blades blur the screen")
	}
	switch {
	case r.state.Failed:
		lines = append(lines, "", "FAILED. Type /reset to try again.")
	case r.state.Solved:
		lines = append(lines, "", "SOLVED. The door is opening...")
	}
	return lines
}

var (
	bladeFrames      = []string{"◐", "◓", "◑", "◒"}
	bladeFramesASCII = []string{"|", "/", "-", "\\"}
)

func (r *Root) bladeGlyph() string {
	frames := bladeFrames
	if r.ascii {
		frames = bladeFramesASCII
	}
	return frames[r.bladeFrame%len(frames)]
}

func (r *Root) headerText() string {
	elapsed := r.state.ElapsedLabel
	if strings.TrimSpace(elapsed) == "" {
		d := r.now().Sub(r.state.StartedAt).Truncate(time.Second)
		if r.state.StartedAt.IsZero() || d < 0 {
			d = 0
		}
		elapsed = d.String()
	}
	width := max(1, r.cols-1)
	packLevel := strings.Trim(strings.TrimSpace(r.state.PackID)+"/"+strings.TrimSpace(r.state.LevelID), "/")
	parts := []string{"Escape Room"}
	if packLevel != "" {
		parts = append(parts, packLevel)
	}
	parts = append(parts, elapsed)
	txt := trimForWidth(strings.Join(parts, " | "), width)
	if r.debug {
		txt = trimForWidth(fmt.Sprintf("%s | %dx%d %v", txt, r.cols, r.rows, r.layout), width)
	}
	return r.theme.Header.Width(max(1, r.cols)).Render(txt)
}

func (r *Root) statusText() string {
	keys := r.help.View(r.keymap)
	if keys == "" {
		keys = "Enter Submit  Up/Down History  F1 Help  F6 Reset  F10 Menu  Ctrl+Q Quit"
	}
	if r.state.Solved && !r.result.Visible {
		keys += " | " + r.theme.Accent.Render(strings.TrimSpace(r.unlock.View())+" Unlocking...")
	}
	if r.statusFlash != "" {
		keys += " | " + r.statusFlash
	}
	keys = trimForWidth(keys, max(1, r.cols-1))
	return r.theme.Status.Width(max(1, r.cols)).Render(keys)
}

func (r *Root) hudText() string {
	var b strings.Builder
	for _, f := range r.state.Facts {
		b.WriteString(fmt.Sprintf("%s: %s\n", f.Label, f.Value))
	}
	b.WriteString("\nProgress\n")
	b.WriteString(r.progressBar(24) + "\n")
	b.WriteString("\nRun\n")
	b.WriteString(fmt.Sprintf("Moves: %d  Rejected: %d\nResets: %d  Help: %d\n", r.state.Moves, r.state.Rejected, r.state.Resets, r.state.HelpUsed))
	if n := r.history.Len(); n > 0 {
		b.WriteString(fmt.Sprintf("History: %d\n", n))
	}
	return b.String()
}

func (r *Root) progressBar(width int) string {
	m := r.bar
	m.SetWidth(max(8, width))
	p := r.state.Progress
	if r.state.Solved {
		p = 1
	}
	return m.ViewAs(clamp01(p))
}

func (r *Root) resultText() string {
	if !r.result.Visible {
		return ""
	}
	var b strings.Builder
	b.WriteString(firstNonEmptyStr(r.result.Title, "Escaped!") + "\n\n")
	if r.result.Summary != "" {
		b.WriteString(r.result.Summary + "\n\n")
	}
	if len(r.result.Breakdown) > 0 {
		b.WriteString("Scoring\n")
		for _, row := range r.result.Breakdown {
			b.WriteString(fmt.Sprintf("- %s: %s\n", row.Label, row.Value))
		}
	}
	b.WriteString(fmt.Sprintf("\nFinal Score: %d\n", r.result.Score))
	return b.String()
}

type menuItem struct {
	Label  string
	Action string
}

func (r *Root) mainMenuItems() []menuItem {
	return []menuItem{
		{Label: "Continue", Action: "continue"},
		{Label: "Level Select", Action: "select"},
		{Label: "Stats", Action: "stats"},
		{Label: "Quit", Action: "quit"},
	}
}

func (r *Root) mainMenuInfoText(items []menuItem) string {
	idx := wrapIndex(r.mainMenuIndex, len(items))
	action := "Use Enter to select an option."
	if len(items) > 0 {
		switch items[idx].Action {
		case "continue":
			action = "Jump to the first room you have not escaped yet."
		case "select":
			action = "Browse packs and pick a room."
		case "stats":
			action = "Review local progress."
		case "quit":
			action = "Leave the building."
		}
	}
	var b strings.Builder
	b.WriteString("Escape Room\n\n")
	b.WriteString(fmt.Sprintf("Packs: %d  Rooms: %d  Escaped: %d\n", r.mainMenu.PackCount, r.mainMenu.LevelCount, r.mainMenu.SolvedCount))
	if r.mainMenu.LastPackID != "" && r.mainMenu.LastLevelID != "" {
		b.WriteString(fmt.Sprintf("Last Played: %s / %s\n", r.mainMenu.LastPackID, r.mainMenu.LastLevelID))
	}
	b.WriteString(fmt.Sprintf("Runs: %d  Commands: %d  Resets: %d\n", r.mainMenu.LevelRuns, r.mainMenu.Commands, r.mainMenu.Resets))
	if strings.TrimSpace(r.mainMenu.Tip) != "" {
		b.WriteString("\nTip:\n" + r.mainMenu.Tip + "\n")
	}
	b.WriteString("\nAction:\n" + action + "\n")
	return b.String()
}

func (r *Root) menuItems() []menuItem {
	return []menuItem{
		{Label: "Resume", Action: "resume"},
		{Label: "Restart room", Action: "restart"},
		{Label: "Level select", Action: "level_select"},
		{Label: "Main menu", Action: "main_menu"},
		{Label: "Quit", Action: "quit"},
	}
}

func (r *Root) activateMainMenuSelection() {
	items := r.mainMenuItems()
	item := items[wrapIndex(r.mainMenuIndex, len(items))]
	switch item.Action {
	case "continue":
		r.dispatchController(func(c Controller) { c.OnContinue() })
	case "select":
		r.dispatchController(func(c Controller) { c.OnOpenLevelSelect() })
	case "stats":
		r.dispatchController(func(c Controller) { c.OnOpenStats() })
	case "quit":
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
}

func (r *Root) activateMenuItem(item menuItem) {
	r.menuOpen = false
	switch item.Action {
	case "restart":
		r.resetOpen = true
		r.resetIndex = 0
	case "level_select":
		r.dispatchController(func(c Controller) { c.OnOpenLevelSelect() })
	case "main_menu":
		r.dispatchController(func(c Controller) { c.OnBackToMainMenu() })
	case "quit":
		r.dispatchController(func(c Controller) { c.OnQuit() })
	}
}

func (r *Root) startSelectedLevel() {
	pack := r.selectedPackSummary()
	if pack == nil || len(pack.Levels) == 0 {
		return
	}
	lv := pack.Levels[wrapIndex(r.levelIndex, len(pack.Levels))]
	packID := pack.PackID
	r.selectedLevel = lv.LevelID
	r.dispatchController(func(c Controller) { c.OnStartLevel(packID, lv.LevelID) })
}

func (r *Root) syncCatalogSelection() {
	if len(r.catalog) == 0 {
		r.packIndex = 0
		r.levelIndex = 0
		return
	}
	pidx := 0
	for i, p := range r.catalog {
		if p.PackID == r.selectedPack {
			pidx = i
			break
		}
	}
	r.packIndex = pidx
	pack := r.catalog[pidx]
	r.selectedPack = pack.PackID
	if len(pack.Levels) == 0 {
		r.levelIndex = 0
		r.selectedLevel = ""
		return
	}
	lidx := 0
	for i, lv := range pack.Levels {
		if lv.LevelID == r.selectedLevel {
			lidx = i
			break
		}
	}
	r.levelIndex = lidx
	r.selectedLevel = pack.Levels[lidx].LevelID
}

func (r *Root) syncSelectionFromIndices() {
	if len(r.catalog) == 0 {
		return
	}
	r.packIndex = wrapIndex(r.packIndex, len(r.catalog))
	pack := r.catalog[r.packIndex]
	r.selectedPack = pack.PackID
	if len(pack.Levels) == 0 {
		r.levelIndex = 0
		r.selectedLevel = ""
		return
	}
	r.levelIndex = wrapIndex(r.levelIndex, len(pack.Levels))
	r.selectedLevel = pack.Levels[r.levelIndex].LevelID
}

func (r *Root) selectedPackSummary() *PackSummary {
	if len(r.catalog) == 0 {
		return nil
	}
	if r.packIndex < 0 || r.packIndex >= len(r.catalog) {
		r.packIndex = 0
	}
	return &r.catalog[r.packIndex]
}

func (r *Root) selectedPackLevels() []LevelSummary {
	pack := r.selectedPackSummary()
	if pack == nil {
		return nil
	}
	return pack.Levels
}

func (r *Root) resultButtons() []string {
	if !r.result.Visible {
		return nil
	}
	primary := "Level select"
	if r.result.HasNext {
		primary = "Next room"
	}
	return []string{primary, "Play again", "Close"}
}

func (r *Root) activateResultButton(label string) {
	r.result = ResultState{}
	switch label {
	case "Next room":
		r.dispatchController(func(c Controller) { c.OnNextLevel() })
	case "Level select":
		r.dispatchController(func(c Controller) { c.OnOpenLevelSelect() })
	case "Play again":
		r.dispatchController(func(c Controller) { c.OnRetry() })
	}
}

func (r *Root) drawPanel(title string, lines []string, width, height int) string {
	width = max(4, width)
	height = max(3, height)
	innerW := width - 2
	innerH := height - 2

	h, v := "─", "│"
	tl, tr, bl, br := "┌", "┐", "└", "┘"
	if r.ascii {
		h, v = "-", "|"
		tl, tr, bl, br = "+", "+", "+", "+"
	}

	top := tl + strings.Repeat(h, innerW) + tr
	if title != "" && innerW > 2 {
		runes := []rune(top)
		for i, ch := range []rune(" " + title + " ") {
			pos := 1 + i
			if pos >= len(runes)-1 {
				break
			}
			runes[pos] = ch
		}
		top = string(runes)
	}

	out := make([]string, 0, height)
	out = append(out, r.theme.PanelBorder.Render(top))
	for row := 0; row < innerH; row++ {
		line := ""
		if row < len(lines) {
			line = lines[row]
		}
		out = append(out, r.theme.PanelBorder.Render(v)+r.theme.PanelBody.Render(padCells(line, innerW))+r.theme.PanelBorder.Render(v))
	}
	out = append(out, r.theme.PanelBorder.Render(bl+strings.Repeat(h, innerW)+br))
	return strings.Join(out, "\n")
}

func (r *Root) glyph(unicode, ascii string) string {
	if r.ascii {
		return ascii
	}
	return unicode
}

// syncBlades starts or stops the fan ticker to match the scene. Each start
// bumps the generation so a tick left over from an earlier run is ignored.
func (r *Root) syncBlades() tea.Cmd {
	want := r.screen == ScreenPlaying && r.state.Animated && r.motionLevel != "off"
	if want == r.bladesOn {
		return nil
	}
	r.bladesOn = want
	r.bladeGen++
	if !want {
		return nil
	}
	return bladeTickCmd(r.bladeGen)
}

func clockTickCmd() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg { return clockMsg(t) })
}

func animateTickCmd() tea.Cmd {
	return tea.Tick(time.Second/60, func(t time.Time) tea.Msg { return animateMsg(t) })
}

func bladeTickCmd(gen int) tea.Cmd {
	return tea.Tick(120*time.Millisecond, func(time.Time) tea.Msg { return bladeMsg{gen: gen} })
}

func spinnerTickCmd(model spinner.Model) tea.Cmd {
	return func() tea.Msg {
		return model.Tick()
	}
}

func (r *Root) currentMouseMode() tea.MouseMode {
	if r.screen == ScreenPlaying && !r.overlayActive() {
		return tea.MouseModeNone
	}
	return tea.MouseModeCellMotion
}

func normalizeStyleVariant(v string) string {
	switch strings.TrimSpace(v) {
	case "vault", "phosphor", "mocha", "latte":
		return strings.TrimSpace(v)
	default:
		return "vault"
	}
}

func normalizeMotionLevel(v string) string {
	switch strings.TrimSpace(v) {
	case "off", "reduced", "full":
		return strings.TrimSpace(v)
	default:
		return "full"
	}
}

func (r *Root) recordInputEvent(event string) {
	r.lastInputEvent = trimForWidth(strings.TrimSpace(event), 160)
}

func (r *Root) onModelPanic(where string, recovered any, msg tea.Msg) {
	if r.statusFlash == "" {
		r.statusFlash = "Recovered UI panic"
	}
	msgType := ""
	if msg != nil {
		msgType = fmt.Sprintf("%T", msg)
	}
	r.logger.Error("ui.panic_recovered",
		"where", where,
		"panic", fmt.Sprintf("%v", recovered),
		"message_type", msgType,
		"screen", r.screen,
		"overlay", r.topOverlay(),
		"last_input", r.lastInputEvent,
		"stack", string(debug.Stack()),
	)
}

func trimForWidth(s string, width int) string {
	if width <= 0 {
		return ""
	}
	return ansi.Truncate(strings.ReplaceAll(s, "\n", " "), width, "…")
}

var _ tea.Model = (*Root)(nil)
var _ View = (*Root)(nil)

package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/x/ansi"
	"github.com/dustin/go-humanize"
)

type overlaySpec struct {
	title    string
	lines    []string
	width    int
	height   int
	startRow int
	startCol int
	// actionsAt is the content row of the first selectable line.
	actionsAt int
}

func (r *Root) renderOverlay() string {
	spec, ok := r.overlaySpec(r.topOverlay())
	if !ok {
		return ""
	}
	return r.drawPanel(spec.title, spec.lines, spec.width, spec.height)
}

func (r *Root) overlaySpec(top string) (overlaySpec, bool) {
	if top == "" {
		return overlaySpec{}, false
	}
	w := min(max(48, r.cols-16), r.cols)
	h := min(max(8, r.rows/2), max(6, r.rows-4))

	var (
		title     string
		lines     []string
		actionsAt int
	)
	selectable := func(labels []string, current int) {
		for i, label := range labels {
			prefix := "  "
			if i == current {
				prefix = "> "
			}
			lines = append(lines, prefix+label)
		}
	}
	switch top {
	case "menu":
		title = "Menu"
		items := r.menuItems()
		labels := make([]string, len(items))
		for i, item := range items {
			labels[i] = item.Label
		}
		selectable(labels, r.menuIndex)
	case "reset":
		title = "Restart Room"
		lines = []string{"Start this room over with a fresh puzzle?", ""}
		actionsAt = len(lines)
		selectable([]string{"Cancel", "Restart"}, r.resetIndex)
	case "result":
		title = "Room Escaped"
		lines = splitLines(r.resultText())
		lines = append(lines, "")
		actionsAt = len(lines)
		selectable(r.resultButtons(), r.resultIndex)
	case "help":
		title = "Help"
		lines = splitLines(r.helpText)
		lines = append(lines, "", "Esc/Enter: Close")
	case "info":
		title = firstNonEmptyStr(r.infoTitle, "Info")
		lines = splitLines(r.infoText)
		lines = append(lines, "", "Esc/Enter: Close")
	default:
		return overlaySpec{}, false
	}
	if len(lines) == 0 {
		lines = []string{"(empty)"}
	}
	if need := len(lines) + 2; need > h {
		h = min(need, max(6, r.rows-2))
	}
	return overlaySpec{
		title:     title,
		lines:     lines,
		width:     w,
		height:    h,
		startRow:  (r.rows - h) / 2,
		startCol:  (r.cols - w) / 2,
		actionsAt: actionsAt,
	}, true
}

func (r *Root) topOverlay() string {
	switch {
	case r.infoOpen:
		return "info"
	case r.resetOpen:
		return "reset"
	case r.result.Visible:
		return "result"
	case r.helpOpen:
		return "help"
	case r.menuOpen:
		return "menu"
	}
	return ""
}

func (r *Root) overlayActive() bool {
	return r.topOverlay() != ""
}

func (r *Root) closeTopOverlay() {
	switch r.topOverlay() {
	case "info":
		r.infoOpen = false
		r.infoText = ""
		r.infoTitle = ""
	case "reset":
		r.resetOpen = false
		r.resetIndex = 0
	case "result":
		r.result = ResultState{}
	case "help":
		r.helpOpen = false
	case "menu":
		r.menuOpen = false
	}
}

func (r *Root) levelDetailText() string {
	pack := r.selectedPackSummary()
	if pack == nil || len(pack.Levels) == 0 {
		return "No levels available in this pack."
	}
	lv := pack.Levels[wrapIndex(r.levelIndex, len(pack.Levels))]
	var b strings.Builder
	b.WriteString(lv.Title + "\n")
	b.WriteString(fmt.Sprintf("ID: %s\nPuzzle: %s\nDifficulty: %s\nEstimated: %d min\n",
		lv.LevelID, lv.Puzzle, strings.Repeat("*", max(1, lv.Difficulty)), lv.EstimatedMinutes))
	if len(lv.Tags) > 0 {
		b.WriteString("Tags: " + strings.Join(lv.Tags, ", ") + "\n")
	}
	if lv.Solved {
		b.WriteString(fmt.Sprintf("Best score: %s\n", humanize.Comma(int64(lv.BestScore))))
		if lv.BestTimeMS > 0 {
			b.WriteString("Best time: " + (time.Duration(lv.BestTimeMS) * time.Millisecond).Truncate(time.Second).String() + "\n")
		}
	}
	if !lv.LastPlayed.IsZero() {
		b.WriteString("Last played: " + humanize.Time(lv.LastPlayed) + "\n")
	}
	if summary := strings.TrimSpace(lv.SummaryMD); summary != "" {
		if r.markdown != nil {
			if rendered, err := r.markdown.Render(summary); err == nil {
				summary = strings.Trim(rendered, "\n")
			}
		}
		b.WriteString("\n" + summary + "\n")
	}
	b.WriteString("\nEnter: Start room    Esc: Back to main menu")
	return b.String()
}

func firstNonEmptyStr(a, b string) string {
	if strings.TrimSpace(a) != "" {
		return a
	}
	return b
}

func wrapIndex(i, n int) int {
	if n <= 0 {
		return 0
	}
	if i < 0 {
		i = n - 1
	}
	if i >= n {
		i = 0
	}
	return i
}

func clamp01(v float64) float64 {
	return min(1, max(0, v))
}

func splitLines(s string) []string {
	return strings.Split(strings.TrimSuffix(s, "\n"), "\n")
}

// padCells pads or cuts s to exactly width terminal cells, keeping any
// styling intact.
func padCells(s string, width int) string {
	if width <= 0 {
		return ""
	}
	s = strings.ReplaceAll(s, "\t", "    ")
	if ansi.StringWidth(s) > width {
		s = ansi.Truncate(s, width, "")
	}
	if w := ansi.StringWidth(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}

func padRune(s string, width int) string {
	if width <= 0 {
		return ""
	}
	r := []rune(strings.ReplaceAll(s, "\t", "    "))
	if len(r) > width {
		r = r[:width]
	}
	if len(r) < width {
		r = append(r, []rune(strings.Repeat(" ", width-len(r)))...)
	}
	return string(r)
}

// composeOverlay centres overlay on base.
func composeOverlay(base, overlay string, cols, rows int) string {
	lines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	ow := 1
	for _, line := range lines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	oh := min(len(lines), rows)
	return composeOverlayAt(base, overlay, cols, rows, (rows-oh)/2, max(0, (cols-ow)/2))
}

// composeOverlayAt pastes overlay over base with its top-left corner at
// (startRow, startCol). Both are flattened to plain text.
func composeOverlayAt(base, overlay string, cols, rows, startRow, startCol int) string {
	if cols <= 0 || rows <= 0 {
		return base
	}
	baseLines := strings.Split(ansi.Strip(base), "\n")
	if len(baseLines) < rows {
		baseLines = append(baseLines, make([]string, rows-len(baseLines))...)
	}
	for i := 0; i < rows; i++ {
		baseLines[i] = padRune(baseLines[i], cols)
	}

	overlayLines := strings.Split(strings.TrimRight(ansi.Strip(overlay), "\n"), "\n")
	ow := 1
	for _, line := range overlayLines {
		ow = max(ow, len([]rune(line)))
	}
	ow = min(ow, cols)
	startRow = max(0, startRow)
	startCol = max(0, startCol)

	for i, line := range overlayLines {
		row := startRow + i
		if row >= rows {
			break
		}
		dst := []rune(baseLines[row])
		src := []rune(line)
		for j := 0; j < ow && startCol+j < len(dst); j++ {
			ch := ' '
			if j < len(src) {
				ch = src[j]
			}
			dst[startCol+j] = ch
		}
		baseLines[row] = string(dst)
	}
	return strings.Join(baseLines[:rows], "\n")
}

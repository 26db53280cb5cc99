package ui

import (
	"math"
	"strings"
	"time"

	"escaperoom/internal/notify"

	tea "charm.land/bubbletea/v2"
	"github.com/muesli/reflow/wordwrap"
)

const (
	toastTTL   = 4 * time.Second
	maxToasts  = 3
	toastWidth = 42
)

// toast is one on-screen notification. pos slides from 0 (off screen) to 1.
type toast struct {
	id   int
	n    notify.Notification
	born time.Time
	pos  float64
	vel  float64
}

func (r *Root) pushToast(n notify.Notification) {
	r.toastID++
	t := toast{id: r.toastID, n: n, born: r.now()}
	if r.motionLevel == "off" {
		t.pos = 1
	}
	r.toasts = append(r.toasts, t)
	if len(r.toasts) > maxToasts {
		r.toasts = append([]toast(nil), r.toasts[len(r.toasts)-maxToasts:]...)
	}
}

func (r *Root) expireToasts() {
	now := r.now()
	kept := r.toasts[:0]
	for _, t := range r.toasts {
		if now.Sub(t.born) < toastTTL {
			kept = append(kept, t)
		}
	}
	r.toasts = kept
}

// stepToasts advances every toast spring one frame and reports whether any
// is still moving.
func (r *Root) stepToasts() bool {
	moving := false
	for i := range r.toasts {
		t := &r.toasts[i]
		t.pos, t.vel = r.spring.Update(t.pos, t.vel, 1)
		if math.Abs(1-t.pos) < 0.001 && math.Abs(t.vel) < 0.001 {
			t.pos, t.vel = 1, 0
			continue
		}
		moving = true
	}
	return moving
}

func (r *Root) animateIfNeeded() tea.Cmd {
	if r.motionLevel == "off" {
		return nil
	}
	for _, t := range r.toasts {
		if t.pos < 0.999 || math.Abs(t.vel) > 0.001 {
			return animateTickCmd()
		}
	}
	return nil
}

func (r *Root) toastMarker(severity notify.Severity) string {
	switch severity {
	case notify.SeveritySuccess:
		return r.glyph("✓", "+")
	case notify.SeverityDestructive:
		return r.glyph("✗", "x")
	default:
		return r.glyph("•", "*")
	}
}

func (r *Root) toastLines(t toast, width int) []string {
	desc := strings.TrimSpace(t.n.Description)
	if desc == "" {
		return nil
	}
	return strings.Split(wordwrap.String(desc, max(8, width-2)), "\n")
}

// composeToasts stacks the live toasts in the top-right corner, newest on
// top, each offset by how far it has slid in.
func (r *Root) composeToasts(base string) string {
	if len(r.toasts) == 0 {
		return base
	}
	w := min(toastWidth, max(20, r.cols/2))
	row := 1
	for i := len(r.toasts) - 1; i >= 0 && row < r.rows-4; i-- {
		t := r.toasts[i]
		lines := r.toastLines(t, w)
		panel := r.drawPanel(r.toastMarker(t.n.Severity)+" "+t.n.Title, lines, w, len(lines)+2)
		col := r.cols - w - 1 + int((1-clamp01(t.pos))*float64(w))
		base = composeOverlayAt(base, panel, r.cols, r.rows, row, col)
		row += len(lines) + 2
	}
	return base
}

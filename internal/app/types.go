package app

import (
	"io/fs"
	"time"

	"escaperoom/internal/levels"
	"escaperoom/internal/ui"

	"go.opentelemetry.io/otel/trace"
)

// Options carries the collaborators New would otherwise build itself.
type Options struct {
	Version string
	// View defaults to the full-screen terminal view.
	View   ui.View
	Tracer trace.Tracer
	// Packs overrides the embedded packs; Config.PacksDir still wins.
	Packs     fs.FS
	AfterFunc levels.AfterFunc
	Now       func() time.Time
}

type devState struct {
	State     string
	Demo      string
	RenderSeq int
	Rendered  bool
	Pending   bool
	Error     string
}

// runInfo is the bookkeeping for the level run currently mounted.
type runInfo struct {
	id       int64
	attempt  int
	finished bool
	failed   bool
}

var tips = []string{
	"Up and Down recall earlier commands, even across resets.",
	"/help lists every command the current room understands.",
	"A /reset costs points but keeps your clock running.",
	"Rejected commands cost a few points each. Read the toast before retrying.",
	"Some rooms reward finishing under par. Check the level details.",
}

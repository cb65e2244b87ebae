// Package state renders the fuzzer's live status line and tracks the
// run-summary metrics snapshot the engine exposes.
package state

import (
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/edgefuzz/edgefuzz/internal/fuzz"
)

// ANSI color codes, carried from the project's console logger palette.
const (
	colorReset  = "\033[0m"
	colorRed    = "\033[31m"
	colorGreen  = "\033[32m"
	colorYellow = "\033[33m"
	colorCyan   = "\033[36m"
	colorBold   = "\033[1m"
)

// TerminalUI renders a single, self-overwriting status line to stderr.
// Per-run, this is the only writer expected to touch that line; other
// log output must go through internal/logger so the two never
// interleave mid-line.
type TerminalUI struct {
	mu      sync.Mutex
	enabled bool
	width   int
}

// NewTerminalUI creates a status-line renderer. Output is written to
// stderr so it does not mix with anything a target writes to stdout.
func NewTerminalUI() *TerminalUI {
	return &TerminalUI{enabled: true, width: 100}
}

// SetEnabled enables or disables rendering (e.g. when stderr is not a
// terminal, or the run is non-interactive).
func (t *TerminalUI) SetEnabled(enabled bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.enabled = enabled
}

// Render overwrites the status line with the given stats snapshot.
func (t *TerminalUI) Render(s fuzz.Stats) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}

	line := t.buildLine(s)
	fmt.Fprint(os.Stderr, "\r\033[K"+line)
}

// Finish writes a trailing newline so subsequent log lines start clean.
func (t *TerminalUI) Finish() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.enabled {
		return
	}
	fmt.Fprintln(os.Stderr)
}

func (t *TerminalUI) buildLine(s fuzz.Stats) string {
	elapsed := formatDuration(time.Since(s.Started))

	var sincePath, sinceCrash string
	if s.LastNewPath.IsZero() {
		sincePath = "n/a"
	} else {
		sincePath = formatDuration(time.Since(s.LastNewPath))
	}
	if s.LastCrash.IsZero() {
		sinceCrash = "n/a"
	} else {
		sinceCrash = formatDuration(time.Since(s.LastCrash))
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s[%s]%s ", colorCyan, elapsed, colorReset)
	fmt.Fprintf(&sb, "execs=%s%d%s ", colorBold, s.Executions, colorReset)
	fmt.Fprintf(&sb, "paths=%s%d%s(%s ago) ", colorGreen, s.Paths, colorReset, sincePath)
	fmt.Fprintf(&sb, "crashes=%s%d%s(%s ago) ", colorRed, s.Crashes, colorReset, sinceCrash)
	fmt.Fprintf(&sb, "queue=%d ", s.InputQueueDepth)
	fmt.Fprintf(&sb, "strategy=%s%s %.1f%%%s", colorYellow, s.StrategyName, s.StrategyPercent, colorReset)

	line := sb.String()
	return line
}

// formatDuration renders d as HH:MM:SS, rounded to the nearest second.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	sec := d / time.Second
	return fmt.Sprintf("%02d:%02d:%02d", h, m, sec)
}

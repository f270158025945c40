// Package display provides unified terminal output for the scheduler
// process: boxed banners for scheduler-level events, and timestamped
// status lines for per-plan setup/build/attempt/rebot progress.
package display

import (
	"fmt"
	"os"
	"strings"
	"time"

	"golang.org/x/term"
)

// Display handles all CLI output with visual hierarchy
type Display struct {
	theme     *Theme
	termWidth int
	noColor   bool
}

// New creates a new Display instance
func New() *Display {
	return NewWithOptions(false)
}

// NewWithOptions creates a Display with configuration
func NewWithOptions(noColor bool) *Display {
	d := &Display{
		termWidth: getTerminalWidth(),
		noColor:   noColor,
	}
	if noColor {
		d.theme = NoColorTheme()
	} else {
		d.theme = DefaultTheme()
	}
	return d
}

// getTerminalWidth returns the terminal width, defaulting to 80
func getTerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width < 40 {
		return 80
	}
	if width > 120 {
		return 120 // Cap at 120 for readability
	}
	return width
}

// Banner prints a boxed message for scheduler-level orchestration output
// (startup, shutdown, setup summary).
func (d *Display) Banner(lines ...string) {
	d.Box("SCHEDULER", lines...)
}

// Box prints a boxed message with a custom title.
func (d *Display) Box(title string, lines ...string) {
	if len(lines) == 0 {
		return
	}

	width := d.termWidth - 2
	titleLen := len(title) + 4 // "─ TITLE "
	remainingWidth := width - titleLen

	topLine := BoxTopLeft + BoxHorizontal + " " + title + " " + strings.Repeat(BoxHorizontal, remainingWidth) + BoxTopRight
	fmt.Println(d.theme.SchedulerBorder(topLine))

	for _, line := range lines {
		paddedLine := d.padRight(line, width-2)
		fmt.Println(d.theme.SchedulerBorder(BoxVertical) + " " + d.theme.SchedulerText(paddedLine) + " " + d.theme.SchedulerBorder(BoxVertical))
	}

	bottomLine := BoxBottomLeft + strings.Repeat(BoxHorizontal, width) + BoxBottomRight
	fmt.Println(d.theme.SchedulerBorder(bottomLine))
}

// Status prints a single-line timestamped status message (no box).
func (d *Display) Status(symbol, message string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		d.theme.SchedulerBorder(timestamp),
		symbol,
		d.theme.SchedulerText(message))
}

// Success prints a success message with green checkmark
func (d *Display) Success(message string) {
	d.Status(d.theme.Success(SymbolSuccess), message)
}

// Error prints an error message with red X. Satisfies scheduler.Logger.
func (d *Display) Error(message string) {
	d.Status(d.theme.Error(SymbolError), message)
}

// Warning prints a warning message with yellow triangle
func (d *Display) Warning(message string) {
	d.Status(d.theme.Warning(SymbolWarning), message)
}

// Info prints a labeled info message. Satisfies scheduler.Logger.
func (d *Display) Info(label, message string) {
	d.Status(d.theme.Info(label+":"), message)
}

// PlanTick prints the banner marking the start of one scheduling tick for
// a plan.
func (d *Display) PlanTick(planID string) {
	timestamp := time.Now().Format("[15:04:05]")
	fmt.Printf("%s %s %s\n",
		d.theme.SchedulerBorder(timestamp),
		d.theme.Info(SymbolPending),
		d.theme.SchedulerLabel("running plan "+planID))
}

// Attempt prints one attempt's outcome, indented under its plan's tick.
func (d *Display) Attempt(planID string, index int, outcome string, ok bool) {
	timestamp := time.Now().Format("[15:04:05]")
	symbol := d.theme.Success(SymbolSuccess)
	if !ok {
		symbol = d.theme.Warning(SymbolPartial)
	}
	fmt.Printf("%s%s %s %s attempt %s: %s\n",
		IndentAttempt,
		d.theme.AttemptTimestamp(timestamp),
		symbol,
		d.theme.AttemptText(planID),
		d.theme.AttemptIndex(fmt.Sprint(index)),
		d.theme.AttemptText(outcome))
}

// Rebot prints the merge outcome for a plan's scheduling tick.
func (d *Display) Rebot(planID string, ok bool, detail string) {
	symbol := d.theme.Success(SymbolSuccess)
	if !ok {
		symbol = d.theme.Error(SymbolError)
	}
	fmt.Printf("%s%s %s rebot %s: %s\n", IndentAttempt, symbol, planID, "merge", detail)
}

// SetupFailure prints a dropped-plan notice from the setup pipeline.
func (d *Display) SetupFailure(planID, summary string) {
	d.Status(d.theme.Error(SymbolError), fmt.Sprintf("setup: dropping plan %s: %s", planID, summary))
}

// BuildState prints an environment-build-stage transition for a plan.
func (d *Display) BuildState(planID, stage string) {
	d.Status(d.theme.Info(SymbolPartial), fmt.Sprintf("build: plan %s: %s", planID, stage))
}

// SectionBreak prints a horizontal separator for tick boundaries
func (d *Display) SectionBreak() {
	width := d.termWidth
	fmt.Println(d.theme.Separator(strings.Repeat(SectionBreak, width)))
}

// Cancelled prints the scheduler shutdown-on-cancel message.
func (d *Display) Cancelled() {
	fmt.Printf("\n%s Scheduler cancelled; waiting for running plans to stop.\n", d.theme.Warning(SymbolWarning))
}

// Duration prints execution duration
func (d *Display) Duration(dur time.Duration) {
	fmt.Printf("   Duration: %s\n", dur.Round(time.Second))
}

// Theme returns the current theme for external use
func (d *Display) Theme() *Theme {
	return d.theme
}

// padRight pads a string to the specified width
func (d *Display) padRight(s string, width int) string {
	if len(s) >= width {
		return s[:width]
	}
	return s + strings.Repeat(" ", width-len(s))
}

// Truncate truncates text to max length with ellipsis
func Truncate(s string, max int) string {
	s = CleanText(s)
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}

// CleanText removes newlines and collapses spaces
func CleanText(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	for strings.Contains(s, "  ") {
		s = strings.ReplaceAll(s, "  ", " ")
	}
	return strings.TrimSpace(s)
}

package display

import "github.com/fatih/color"

// Box drawing characters
const (
	BoxTopLeft     = "┌"
	BoxTopRight    = "┐"
	BoxBottomLeft  = "└"
	BoxBottomRight = "┘"
	BoxHorizontal  = "─"
	BoxVertical    = "│"
	SectionBreak   = "━"
)

// Status symbols
const (
	SymbolSuccess = "✓"
	SymbolError   = "✗"
	SymbolWarning = "⚠"
	SymbolResume  = "↻"
	SymbolPending = "○"
	SymbolPartial = "◐"
)

// IndentAttempt is the indentation for per-attempt status lines nested
// under a plan's tick banner.
const IndentAttempt = "  "

// Theme holds all color functions for consistent styling
type Theme struct {
	// Scheduler orchestration (prominent): tick banners, group headers.
	SchedulerBorder func(a ...interface{}) string
	SchedulerLabel  func(a ...interface{}) string
	SchedulerText   func(a ...interface{}) string

	// Per-attempt/rebot output (subdued), nested under a plan's tick.
	AttemptTimestamp func(a ...interface{}) string
	AttemptText      func(a ...interface{}) string
	AttemptIndex     func(a ...interface{}) string

	// Status indicators
	Success func(a ...interface{}) string
	Error   func(a ...interface{}) string
	Warning func(a ...interface{}) string
	Info    func(a ...interface{}) string

	// Structural elements
	Bold      func(a ...interface{}) string
	Dim       func(a ...interface{}) string
	Separator func(a ...interface{}) string
}

// DefaultTheme creates the default color theme
func DefaultTheme() *Theme {
	return &Theme{
		SchedulerBorder: color.New(color.FgCyan).SprintFunc(),
		SchedulerLabel:  color.New(color.FgCyan, color.Bold).SprintFunc(),
		SchedulerText:   color.New(color.FgWhite).SprintFunc(),

		AttemptTimestamp: color.New(color.FgHiBlack).SprintFunc(),
		AttemptText:      color.New(color.FgWhite).SprintFunc(),
		AttemptIndex:      color.New(color.FgHiBlack).SprintFunc(),

		Success: color.New(color.FgGreen).SprintFunc(),
		Error:   color.New(color.FgRed).SprintFunc(),
		Warning: color.New(color.FgYellow).SprintFunc(),
		Info:    color.New(color.FgCyan).SprintFunc(),

		Bold:      color.New(color.Bold).SprintFunc(),
		Dim:       color.New(color.FgHiBlack).SprintFunc(),
		Separator: color.New(color.FgCyan).SprintFunc(),
	}
}

// NoColorTheme creates a theme without colors (for --no-color flag or non-TTY)
func NoColorTheme() *Theme {
	identity := func(a ...interface{}) string {
		if len(a) == 0 {
			return ""
		}
		return a[0].(string)
	}
	return &Theme{
		SchedulerBorder:  identity,
		SchedulerLabel:   identity,
		SchedulerText:    identity,
		AttemptTimestamp: identity,
		AttemptText:      identity,
		AttemptIndex:     identity,
		Success:          identity,
		Error:            identity,
		Warning:          identity,
		Info:             identity,
		Bold:             identity,
		Dim:              identity,
		Separator:        identity,
	}
}

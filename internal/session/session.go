package session

import (
	"context"
	"fmt"
)

// Descriptor is the tagged variant of which OS security principal a plan
// runs under.
type Descriptor struct {
	UserName string // empty for CurrentSession
}

// IsCurrent reports whether d describes the scheduler's own session.
func (d Descriptor) IsCurrent() bool { return d.UserName == "" }

// ID returns the stable identifier used for per-session directories:
// "current_user" or "user_<name>".
func (d Descriptor) ID() string {
	if d.IsCurrent() {
		return "current_user"
	}
	return "user_" + d.UserName
}

// Session dispatches a RunSpec to the current-session or task-scheduler
// supervisor and normalizes the outcome to Outcome[int].
type Session struct {
	Descriptor    Descriptor
	CurrentRunner Current
	UserRunner    TaskScheduler
}

// Run executes spec under the session's descriptor.
func (s Session) Run(ctx context.Context, spec RunSpec) (Outcome[int], error) {
	if s.Descriptor.IsCurrent() {
		return s.CurrentRunner.Run(spec)
	}
	if s.UserRunner.API == nil {
		return Outcome[int]{}, fmt.Errorf("session: no task-scheduler API configured for user session %s", s.Descriptor.UserName)
	}
	return s.UserRunner.Run(ctx, s.Descriptor.UserName, spec)
}

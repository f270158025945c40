// Package session supervises the execution of a command.Spec under one of
// two OS security principals — the scheduler's own process session, or
// another interactive user session reached through the OS task scheduler —
// and normalizes both to a common Outcome.
package session

import (
	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/command"
)

// RunSpec is one execution request. RuntimeBasePath P implies the sibling
// artifacts P.stdout and P.stderr (always), and on the task-scheduler path
// additionally P.bat and P.exit_code.
type RunSpec struct {
	ID              string
	CommandSpec     command.Spec
	RuntimeBasePath string
	TimeoutSecs     int
	Token           *cancel.Token
}

// Outcome is the tri-state completion status of a supervised run.
type Outcome[T any] struct {
	kind      outcomeKind
	completed T
}

type outcomeKind int

const (
	kindCompleted outcomeKind = iota
	kindTimeout
	kindCancel
)

// Completed builds a Completed(value) outcome.
func Completed[T any](value T) Outcome[T] {
	return Outcome[T]{kind: kindCompleted, completed: value}
}

// Timeout builds a Timeout outcome.
func Timeout[T any]() Outcome[T] {
	return Outcome[T]{kind: kindTimeout}
}

// Cancel builds a Cancel outcome.
func Cancel[T any]() Outcome[T] {
	return Outcome[T]{kind: kindCancel}
}

// IsCompleted reports whether the outcome completed normally, returning
// its value.
func (o Outcome[T]) IsCompleted() (T, bool) {
	return o.completed, o.kind == kindCompleted
}

// IsTimeout reports whether the run hit its timeout.
func (o Outcome[T]) IsTimeout() bool { return o.kind == kindTimeout }

// IsCancel reports whether the run was cancelled.
func (o Outcome[T]) IsCancel() bool { return o.kind == kindCancel }

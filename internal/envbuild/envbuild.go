// Package envbuild runs the environment-build stage (C12): for each plan
// surviving setup, it runs the plan's environment's Build step (if any)
// and publishes a progress map of every plan's build state as a single
// JSON section after every update.
package envbuild

import (
	"context"
	"fmt"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/environment"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/results"
	"github.com/robotmk/scheduler/internal/session"
)

// StageKind tags which of the three states a plan's build is currently in.
type StageKind string

const (
	StagePending    StageKind = "pending"
	StageInProgress StageKind = "in_progress"
	StageComplete   StageKind = "complete"
)

// Stage is the persisted per-plan entry of the environment-build-states
// section.
type Stage struct {
	Kind         StageKind              `json:"kind"`
	StartUnix    int64                  `json:"start_unix,omitempty"`
	BuildOutcome *environment.BuildOutcome `json:"build_outcome,omitempty"`
}

// StateMap is the full section content: plan id to its current Stage.
type StateMap map[string]Stage

// Runner drives the build stage for every surviving plan. Sessions is
// keyed by session.Descriptor.ID(), mirroring setup.SessionRunner; a plan
// whose session has no registered runner falls back to a bare
// session.Session carrying only the plan's own descriptor, matching setup's
// same fallback policy: a current-session plan then runs under a zero-value
// Current supervisor, and a user-session plan's commands fail because no
// task-scheduler API is set.
type Runner struct {
	Global   config.GlobalConfig
	Sessions map[string]session.Session
	Locker   *lock.Locker
	Token    *cancel.Token
}

func (r Runner) sessionFor(d session.Descriptor) session.Session {
	if s, ok := r.Sessions[d.ID()]; ok {
		return s
	}
	return session.Session{Descriptor: d}
}

// Run executes the build stage over plans in order, publishing the
// StateMap section after every single plan's state transition, and
// returns the subset of plans whose build outcome lets them continue to
// scheduling (NotNeeded or Success, per spec.md §4.12). A cancelled token
// aborts the remaining plans: Run returns the survivors gathered so far
// together with an "envbuild: cancelled" error, so cancellation
// propagates upward.
func (r Runner) Run(ctx context.Context, plans []config.Plan) ([]config.Plan, error) {
	state := make(StateMap, len(plans))
	for _, p := range plans {
		state[p.ID] = Stage{Kind: StagePending}
	}
	if err := r.publish(ctx, state); err != nil {
		return nil, err
	}

	var survivors []config.Plan
	for _, p := range plans {
		if r.Token.Cancelled() {
			return survivors, fmt.Errorf("envbuild: cancelled")
		}

		env := environment.New(p.Environment, r.Global, p.ID, p.Session.ID())
		builder, hasBuild := environment.AsBuilder(env)
		if !hasBuild {
			state[p.ID] = Stage{Kind: StageComplete, BuildOutcome: outcomePtr(environment.NotNeeded())}
			if err := r.publish(ctx, state); err != nil {
				return nil, err
			}
			survivors = append(survivors, p)
			continue
		}

		start := time.Now()
		state[p.ID] = Stage{Kind: StageInProgress, StartUnix: start.Unix()}
		if err := r.publish(ctx, state); err != nil {
			return nil, err
		}

		budget := time.Duration(p.OverallTimeoutSecs) * time.Second
		outcome := builder.Build(ctx, r.sessionFor(p.Session), r.Token, budget)

		state[p.ID] = Stage{Kind: StageComplete, BuildOutcome: outcomePtr(outcome)}
		if err := r.publish(ctx, state); err != nil {
			return nil, err
		}

		if outcome.IsSurviving() {
			survivors = append(survivors, p)
		}
	}
	return survivors, nil
}

func (r Runner) publish(ctx context.Context, state StateMap) error {
	path := r.Global.ResultsSectionPath(results.NameEnvironmentBuildStates)
	return results.Write(ctx, r.Locker, path, results.NameEnvironmentBuildStates, results.Host{}, state)
}

func outcomePtr(b environment.BuildOutcome) *environment.BuildOutcome { return &b }

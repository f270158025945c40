// Package scheduler groups plans surviving setup and the environment
// build stage by their declared sequential group, runs each group as a
// phase-aligned periodic task, and runs a separate periodic task that
// prunes each plan's working directory per its cleanup policy (C13).
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/environment"
	"github.com/robotmk/scheduler/internal/lock"
	"github.com/robotmk/scheduler/internal/planrunner"
	"github.com/robotmk/scheduler/internal/session"
)

// ErrCancelled is returned by Run when the process-wide cancellation
// token fires; it is the only error Run ever returns for an
// otherwise-healthy scheduling run, per spec.md §4.13/§7.
var ErrCancelled = errors.New("scheduler: cancelled")

// cleanupInterval is the fixed 5-minute period for the working-directory
// cleanup task, per spec.md §4.13.
const cleanupInterval = 5 * time.Minute

// defaultInterval is used for a group whose declared interval is zero or
// negative, so a misconfigured group still makes forward progress rather
// than ticking in a busy loop.
const defaultInterval = time.Minute

// Logger receives human-facing scheduler narration; callers wire the
// internal/display package's methods in here. Nil is a valid no-op
// logger.
type Logger interface {
	Info(label, message string)
	Error(message string)
}

type nopLogger struct{}

func (nopLogger) Info(string, string) {}
func (nopLogger) Error(string)        {}

// Scheduler drives the group scheduling and cleanup loops described in
// spec.md §4.13. Sessions is keyed by session.Descriptor.ID(), mirroring
// setup.SessionRunner and envbuild.Runner's fallback policy.
type Scheduler struct {
	Global   config.GlobalConfig
	Sessions map[string]session.Session
	Locker   *lock.Locker
	Token    *cancel.Token
	Logger   Logger
}

func (s Scheduler) logger() Logger {
	if s.Logger == nil {
		return nopLogger{}
	}
	return s.Logger
}

func (s Scheduler) sessionFor(d session.Descriptor) session.Session {
	if sess, ok := s.Sessions[d.ID()]; ok {
		return sess
	}
	return session.Session{Descriptor: d}
}

func (s Scheduler) runnerFor(plan config.Plan) planrunner.Runner {
	env := environment.New(plan.Environment, s.Global, plan.ID, plan.Session.ID())
	return planrunner.Runner{
		Sess:   s.sessionFor(plan.Session),
		Env:    env,
		Locker: s.Locker,
		Token:  s.Token,
	}
}

// Run buckets plans by GroupIndex and runs each bucket concurrently as a
// periodic task, alongside a separate 5-minute working-directory cleanup
// task, until the Scheduler's Token is cancelled. It blocks until every
// group has observed cancellation and stopped, then returns ErrCancelled.
func (s Scheduler) Run(ctx context.Context, plans []config.Plan) error {
	groups := groupByIndex(plans)

	cleanupCron := cron.New()
	if _, err := cleanupCron.AddFunc(fmt.Sprintf("@every %s", cleanupInterval), func() {
		s.runCleanup(plans)
	}); err != nil {
		return fmt.Errorf("scheduler: schedule cleanup task: %w", err)
	}
	cleanupCron.Start()
	defer func() { <-cleanupCron.Stop().Done() }()

	var wg sync.WaitGroup
	for _, group := range groups {
		wg.Add(1)
		go func(group []config.Plan) {
			defer wg.Done()
			s.runGroup(ctx, group)
		}(group)
	}

	wg.Wait()

	// With no groups, nothing above has waited for cancellation yet.
	s.Token.Await()
	return ErrCancelled
}

// runGroup runs one sequential group's plans, in position order, on a
// phase-aligned interval, until the token is cancelled. A missed tick (the
// group is still mid-run when the next tick is due) collapses into the
// following tick rather than queuing — the "burst" policy spec.md §4.13
// accepts so long as timeout*attempts stays under interval.
func (s Scheduler) runGroup(ctx context.Context, group []config.Plan) {
	if len(group) == 0 {
		return
	}
	sort.Slice(group, func(i, j int) bool { return group[i].PositionInGroup < group[j].PositionInGroup })

	interval := time.Duration(group[0].ExecutionIntervalSecs) * time.Second
	if interval <= 0 {
		interval = defaultInterval
	}

	timer := time.NewTimer(PhaseAlignedDelay(time.Now(), interval))
	defer timer.Stop()

	for {
		select {
		case <-s.Token.Done():
			return
		case <-timer.C:
			s.runTick(ctx, group)
			if s.Token.Cancelled() {
				return
			}
			timer.Reset(PhaseAlignedDelay(time.Now(), interval))
		}
	}
}

// runTick runs every plan in group sequentially, stopping early if
// cancellation fires mid-plan.
func (s Scheduler) runTick(ctx context.Context, group []config.Plan) {
	for _, plan := range group {
		if s.Token.Cancelled() {
			return
		}
		runner := s.runnerFor(plan)
		if err := runner.Run(ctx, plan); err != nil {
			if errors.Is(err, planrunner.ErrCancelled) {
				return
			}
			s.logger().Error(fmt.Sprintf("plan %s: %v", plan.ID, err))
		}
	}
}

func groupByIndex(plans []config.Plan) [][]config.Plan {
	byIndex := make(map[int][]config.Plan)
	var order []int
	for _, p := range plans {
		if _, ok := byIndex[p.GroupIndex]; !ok {
			order = append(order, p.GroupIndex)
		}
		byIndex[p.GroupIndex] = append(byIndex[p.GroupIndex], p)
	}
	sort.Ints(order)

	groups := make([][]config.Plan, 0, len(order))
	for _, idx := range order {
		groups = append(groups, byIndex[idx])
	}
	return groups
}

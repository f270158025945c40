package setup

import (
	"context"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
)

func plansNamed(ids ...string) []config.Plan {
	plans := make([]config.Plan, len(ids))
	for i, id := range ids {
		plans[i] = config.Plan{ID: id}
	}
	return plans
}

func failStep(name string, failing ...string) Step {
	failingSet := make(map[string]bool, len(failing))
	for _, id := range failing {
		failingSet[id] = true
	}
	return Step{
		Name: name,
		Run: func(ctx context.Context, plans []config.Plan) []Failure {
			var out []Failure
			for _, p := range plans {
				if failingSet[p.ID] {
					out = append(out, Failure{PlanID: p.ID, Summary: name + " failed"})
				}
			}
			return out
		},
	}
}

func TestRunStepsDropsFailingPlansAcrossSteps(t *testing.T) {
	steps := []Step{
		failStep("step1", "p2"),
		failStep("step2", "p3"),
	}
	plans := plansNamed("p1", "p2", "p3")

	survivors, failures, cancelled := RunSteps(context.Background(), cancel.New(), steps, plans)

	require.False(t, cancelled)
	require.Len(t, survivors, 1)
	assert.Equal(t, "p1", survivors[0].ID)
	require.Len(t, failures, 2)
	assert.Equal(t, "p2", failures[0].PlanID)
	assert.Equal(t, "p3", failures[1].PlanID)
}

func TestRunStepsStopsEarlyOnCancellation(t *testing.T) {
	token := cancel.New()
	ranSteps := 0
	steps := []Step{
		{Name: "cancels", Run: func(ctx context.Context, plans []config.Plan) []Failure {
			ranSteps++
			token.Cancel()
			return nil
		}},
		{Name: "never runs", Run: func(ctx context.Context, plans []config.Plan) []Failure {
			ranSteps++
			return nil
		}},
	}
	plans := plansNamed("p1")

	survivors, _, cancelled := RunSteps(context.Background(), token, steps, plans)

	assert.True(t, cancelled)
	assert.Equal(t, 1, ranSteps)
	assert.Len(t, survivors, 1)
}

func TestRunStepsSkipsWindowsOnlyStepsOnOtherPlatforms(t *testing.T) {
	ran := false
	steps := []Step{
		{Name: "windows_only", WindowsOnly: true, Run: func(ctx context.Context, plans []config.Plan) []Failure {
			ran = true
			return nil
		}},
	}

	survivors, failures, cancelled := RunSteps(context.Background(), cancel.New(), steps, plansNamed("p1"))
	require.False(t, cancelled)
	assert.Empty(t, failures)
	assert.Len(t, survivors, 1)

	if runtime.GOOS != "windows" {
		assert.False(t, ran, "windows-only step must not run on this platform")
	}
}

func TestRunStepsNoFailuresKeepsAllSurvivors(t *testing.T) {
	steps := []Step{failStep("noop")}
	survivors, failures, cancelled := RunSteps(context.Background(), cancel.New(), steps, plansNamed("p1", "p2"))

	require.False(t, cancelled)
	assert.Empty(t, failures)
	assert.Len(t, survivors, 2)
}

package setup

import (
	"context"
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/config"
	"github.com/robotmk/scheduler/internal/session"
)

func fakeRCCBinary(t *testing.T, script string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("fake-executable scripts assume a POSIX shell")
	}
	path := filepath.Join(t.TempDir(), "rcc")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+script+"\n"), 0o755))
	return path
}

func newConfigureGlobal(t *testing.T) config.GlobalConfig {
	g := config.GlobalConfig{RuntimeDir: t.TempDir()}
	require.NoError(t, os.MkdirAll(g.RCCSetupDir()+"/current_user", 0o755))
	return g
}

func TestRCCConfigureStepRunsDefaultProfileAndRevokesHolotree(t *testing.T) {
	// Revoke always reports "already not shared" (exit 5), everything
	// else succeeds.
	bin := fakeRCCBinary(t, `
case "$*" in
  *"holotree shared --revoke"*) exit 5 ;;
  *) exit 0 ;;
esac
`)
	g := newConfigureGlobal(t)
	runner := &SessionRunner{ACL: NoopACL{}, Sessions: map[string]session.Session{
		"current_user": {CurrentRunner: session.Current{}},
	}, Token: cancel.New()}

	plans := []config.Plan{
		{
			ID:          "p1",
			Environment: config.EnvironmentSpec{Kind: config.EnvRCC, RCCBinaryPath: bin},
		},
	}

	step := rccConfigureStep(g, runner)
	failures := step.Run(context.Background(), plans)
	assert.Empty(t, failures)
}

func TestRCCConfigureStepImportsCustomProfile(t *testing.T) {
	bin := fakeRCCBinary(t, "exit 0")
	g := newConfigureGlobal(t)
	runner := &SessionRunner{ACL: NoopACL{}, Sessions: map[string]session.Session{
		"current_user": {CurrentRunner: session.Current{}},
	}, Token: cancel.New()}

	plans := []config.Plan{
		{
			ID: "p1",
			Environment: config.EnvironmentSpec{
				Kind:           config.EnvRCC,
				RCCBinaryPath:  bin,
				RCCProfilePath: "/profiles/custom.yaml",
				RCCProfileName: "custom",
			},
		},
	}

	failures := rccConfigureStep(g, runner).Run(context.Background(), plans)
	assert.Empty(t, failures)

	_, err := os.Stat(g.RCCSetupDir() + "/current_user/profile_import.stdout")
	assert.NoError(t, err)
}

func TestRCCConfigureStepRecordsFailureForAllPlansInSession(t *testing.T) {
	bin := fakeRCCBinary(t, "exit 1")
	g := newConfigureGlobal(t)
	runner := &SessionRunner{ACL: NoopACL{}, Sessions: map[string]session.Session{
		"current_user": {CurrentRunner: session.Current{}},
	}, Token: cancel.New()}

	plans := []config.Plan{
		{ID: "p1", Environment: config.EnvironmentSpec{Kind: config.EnvRCC, RCCBinaryPath: bin}},
		{ID: "p2", Environment: config.EnvironmentSpec{Kind: config.EnvRCC, RCCBinaryPath: bin}},
	}

	failures := rccConfigureStep(g, runner).Run(context.Background(), plans)
	require.Len(t, failures, 2)
	assert.Equal(t, "p1", failures[0].PlanID)
	assert.Equal(t, "p2", failures[1].PlanID)
}

func TestRCCConfigureStepSkipsNonRCCPlans(t *testing.T) {
	g := newConfigureGlobal(t)
	runner := &SessionRunner{ACL: NoopACL{}, Sessions: map[string]session.Session{}, Token: cancel.New()}

	plans := []config.Plan{{ID: "p1", Environment: config.EnvironmentSpec{Kind: config.EnvSystem}}}
	failures := rccConfigureStep(g, runner).Run(context.Background(), plans)
	assert.Empty(t, failures)
}

// Package results writes and reads the JSON "section" files published
// under <runtime>/results/, serialized against concurrent access by an
// internal/lock.Locker and always written atomically (temp file + rename).
package results

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/robotmk/scheduler/internal/lock"
)

// Host identifies where a section's content logically originated: the
// scheduler's own host, or a piggybacked named host.
type Host struct {
	Piggyback string // empty means Source
}

// MarshalJSON renders {"Source":null} or {"Piggyback":"<name>"}.
func (h Host) MarshalJSON() ([]byte, error) {
	if h.Piggyback == "" {
		return []byte(`{"Source":null}`), nil
	}
	return json.Marshal(struct {
		Piggyback string `json:"Piggyback"`
	}{h.Piggyback})
}

func (h *Host) UnmarshalJSON(data []byte) error {
	var raw struct {
		Source    *struct{} `json:"Source"`
		Piggyback *string   `json:"Piggyback"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if raw.Piggyback != nil {
		h.Piggyback = *raw.Piggyback
	} else {
		h.Piggyback = ""
	}
	return nil
}

// Stable section names, per spec.md §6.
const (
	NameSchedulerPhase         = "robotmk_scheduler_phase"
	NameEnvironmentBuildStates = "robotmk_environment_build_states"
	NamePlanExecutionReport    = "robotmk_plan_execution_report"
	NameSetupFailures          = "robotmk_setup_failures"
	NameConfigV2               = "robotmk_config_v2"
)

// Envelope is the fixed shape of every file written under results/.
type Envelope struct {
	Host    Host   `json:"host"`
	Name    string `json:"name"`
	Content string `json:"content"`
}

// Write marshals content to JSON, wraps it in an Envelope, and publishes
// it to path atomically: data is written to path+".tmp" and renamed to
// path while holding an exclusive lock from locker. On any error the temp
// file is best-effort removed. This is the only way any component in this
// repo writes a section file — it is what gives every file under
// results/ the "either absent or a fully valid envelope" invariant from
// spec.md §3/§8.
func Write(ctx context.Context, locker *lock.Locker, path, name string, host Host, content any) error {
	contentJSON, err := json.Marshal(content)
	if err != nil {
		return fmt.Errorf("results: marshal content for section %s: %w", name, err)
	}

	env := Envelope{Host: host, Name: name, Content: string(contentJSON)}
	data, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("results: marshal envelope for section %s: %w", name, err)
	}

	handle, err := locker.WaitForWriteLock(ctx)
	if err != nil {
		return fmt.Errorf("results: acquire write lock for section %s: %w", name, err)
	}
	defer handle.Release()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("results: create directory for section %s: %w", name, err)
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("results: write temp file for section %s: %w", name, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		os.Remove(tmpPath)
		return fmt.Errorf("results: rename temp file for section %s: %w", name, err)
	}
	return nil
}

// Read acquires a shared lock from locker and decodes the envelope at
// path, then unmarshals its Content into out.
func Read(ctx context.Context, locker *lock.Locker, path string, out any) (Envelope, error) {
	handle, err := locker.WaitForReadLock(ctx)
	if err != nil {
		return Envelope{}, fmt.Errorf("results: acquire read lock for %s: %w", path, err)
	}
	defer handle.Release()

	data, err := os.ReadFile(path)
	if err != nil {
		return Envelope{}, fmt.Errorf("results: read %s: %w", path, err)
	}

	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, fmt.Errorf("results: decode envelope %s: %w", path, err)
	}
	if out != nil {
		if err := json.Unmarshal([]byte(env.Content), out); err != nil {
			return Envelope{}, fmt.Errorf("results: decode content %s: %w", path, err)
		}
	}
	return env, nil
}

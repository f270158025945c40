// Package runflag watches a run-flag file and cancels a token when it is
// deleted, the trigger spec.md §6's CLI surface describes: "the scheduler
// treats deletion of the run-flag as a cancellation trigger."
package runflag

import (
	"os"
	"time"

	"github.com/robotmk/scheduler/internal/cancel"
)

// pollInterval is how often the run-flag's existence is checked.
const pollInterval = time.Second

// Watch polls path until it disappears or token is already cancelled by
// some other means, then calls token.Cancel(). It returns once it has
// either observed the deletion or the token's own cancellation, so
// callers can run it in a goroutine and not worry about leaking it past
// process shutdown.
func Watch(path string, token *cancel.Token) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-token.Done():
			return
		case <-ticker.C:
			if _, err := os.Stat(path); os.IsNotExist(err) {
				token.Cancel()
				return
			}
		}
	}
}

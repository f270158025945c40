package setup

import (
	"github.com/robotmk/scheduler/internal/cancel"
	"github.com/robotmk/scheduler/internal/session"
)

// SessionRunner bundles what the directory/RCC-configure steps need to
// run commands under each plan's session and grant its user access to
// the directories it created.
type SessionRunner struct {
	ACL       ACLGranter
	Sessions  map[string]session.Session // keyed by session.Descriptor.ID()
	Token     *cancel.Token
}

// sessionFor resolves the session a plan should run configure commands
// under, falling back to a bare session.Session carrying only d if none was
// registered: that runs current-session commands under a zero-value
// Current supervisor, and fails user-session commands because no
// task-scheduler API is set.
func (r *SessionRunner) sessionFor(d session.Descriptor) session.Session {
	if s, ok := r.Sessions[d.ID()]; ok {
		return s
	}
	return session.Session{Descriptor: d}
}

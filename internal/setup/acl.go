package setup

// ACLGranter performs the OS-level security/ACL manipulation the setup
// pipeline needs to grant other session users access to working
// directories. Per spec.md §1, the core requires only that such
// adjustments are performed where indicated — the actual ACL/ownership
// syscalls are an external collaborator behind this interface, not part
// of the core. NoopACL below satisfies it for platforms/tests where no
// such adjustment is needed (e.g. CurrentSession-only deployments).
type ACLGranter interface {
	// Grant gives principal full access to path.
	Grant(path, principal string) error
	// TakeOwnership transfers ownership of path to the invoking
	// identity.
	TakeOwnership(path string) error
	// ResetToDefaults removes any non-default ACL entries from path,
	// restoring it to the invoking identity's defaults.
	ResetToDefaults(path string) error
	// RestrictToAdmins removes all but administrative access from path.
	RestrictToAdmins(path string) error
}

// NoopACL performs no ACL manipulation; every call succeeds
// unconditionally. The run command uses it on every platform other than
// Windows.
type NoopACL struct{}

func (NoopACL) Grant(string, string) error    { return nil }
func (NoopACL) TakeOwnership(string) error    { return nil }
func (NoopACL) ResetToDefaults(string) error  { return nil }
func (NoopACL) RestrictToAdmins(string) error { return nil }

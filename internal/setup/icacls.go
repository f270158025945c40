package setup

import (
	"fmt"
	"os/exec"
	"os/user"
)

// ICACLSGranter implements ACLGranter against the real Windows icacls.exe
// facility. Per spec.md §1 this ACL manipulation is explicitly named as
// an external-collaborator concern ("the core requires only that such
// adjustments are performed where indicated") — ICACLSGranter is that
// collaborator's reference implementation, wired in by the CLI entry
// point on Windows; NoopACL remains the default elsewhere.
type ICACLSGranter struct{}

func (ICACLSGranter) Grant(path, principal string) error {
	if out, err := exec.Command("icacls", path, "/grant", principal+":(OI)(CI)F").CombinedOutput(); err != nil {
		return fmt.Errorf("icacls grant %s to %s: %w: %s", path, principal, err, out)
	}
	return nil
}

func (ICACLSGranter) TakeOwnership(path string) error {
	u, err := user.Current()
	if err != nil {
		return fmt.Errorf("icacls setowner %s: resolve invoking identity: %w", path, err)
	}
	if out, err := exec.Command("icacls", path, "/setowner", u.Username, "/T").CombinedOutput(); err != nil {
		return fmt.Errorf("icacls setowner %s to %s: %w: %s", path, u.Username, err, out)
	}
	return nil
}

func (ICACLSGranter) ResetToDefaults(path string) error {
	if out, err := exec.Command("icacls", path, "/reset", "/T").CombinedOutput(); err != nil {
		return fmt.Errorf("icacls reset %s: %w: %s", path, err, out)
	}
	return nil
}

func (ICACLSGranter) RestrictToAdmins(path string) error {
	if out, err := exec.Command("icacls", path, "/inheritance:r", "/grant", "Administrators:(OI)(CI)F").CombinedOutput(); err != nil {
		return fmt.Errorf("icacls restrict %s: %w: %s", path, err, out)
	}
	return nil
}

// Package system abstracts the privileged host operations the provisioning
// workflow depends on: account and group management, directory construction,
// ownership and mode changes, and service control.
package system

import (
	"os"

	"sftp-provision/types"
)

// Runner is the capability interface consumed by the Provisioner. The real
// implementation (HostRunner) shells out to the host account tools; DryRunner
// only logs; tests substitute a call-recording fake.
type Runner interface {
	// AccountExists reports whether a system account with this name is
	// present in the account database.
	AccountExists(username string) bool

	// CreateAccount creates the system account described by spec. It fails
	// with KindAlreadyExists when the account is present.
	CreateAccount(spec types.AccountSpec) error

	// SetSecret assigns the account password. The secret is fed to the
	// privileged helper on stdin and never appears in an argument list.
	SetSecret(username, secret string) error

	// EnsureGroup creates the group if missing. Idempotent.
	EnsureGroup(group string) error

	// MakeDirectory creates the directory if missing. Idempotent.
	MakeDirectory(path string, mode os.FileMode) error

	// SetOwnership assigns owner and group of a path.
	SetOwnership(path, owner, group string) error

	// SetMode assigns the permission bits of a path.
	SetMode(path string, mode os.FileMode) error

	// ReloadService reloads the service unit, falling back to a restart when
	// the reload mechanism is unavailable. Fails with KindServiceReloadFailed
	// only when both mechanisms fail.
	ReloadService(service string) error
}

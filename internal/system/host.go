package system

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"sftp-provision/types"
)

// HostRunner executes privileged operations against the real host. It must
// run as root: the account tools (useradd, groupadd, chpasswd) refuse
// non-root callers.
type HostRunner struct {
	logger  *logrus.Logger
	timeout time.Duration
}

// NewHostRunner creates a HostRunner with a default per-command timeout.
func NewHostRunner(logger *logrus.Logger) *HostRunner {
	return &HostRunner{
		logger:  logger,
		timeout: 30 * time.Second,
	}
}

func (r *HostRunner) run(name string, args ...string) error {
	return r.runWithStdin(nil, name, args...)
}

func (r *HostRunner) runWithStdin(stdin []byte, name string, args ...string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, name, args...)
	if stdin != nil {
		cmd.Stdin = bytes.NewReader(stdin)
	}
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if s := strings.TrimSpace(stderr.String()); s != "" {
			return fmt.Errorf("%s: %s", name, s)
		}
		return fmt.Errorf("%s: %w", name, err)
	}
	return nil
}

func (r *HostRunner) AccountExists(username string) bool {
	_, err := user.Lookup(username)
	return err == nil
}

func (r *HostRunner) CreateAccount(spec types.AccountSpec) error {
	if r.AccountExists(spec.Username) {
		return types.KindErrorf(types.KindAlreadyExists, "account %q already exists", spec.Username)
	}

	r.logger.WithFields(logrus.Fields{
		"username": spec.Username,
		"home":     spec.HomeDir,
		"group":    spec.Group,
		"shell":    spec.Shell,
	}).Info("Creating system account")

	// The home directory is built separately with root ownership, so the
	// account is created without one.
	err := r.run("useradd",
		"--home-dir", spec.HomeDir,
		"--no-create-home",
		"--shell", spec.Shell,
		"--gid", spec.Group,
		"--comment", fmt.Sprintf("SFTP user %s", spec.Username),
		spec.Username,
	)
	if err != nil {
		return types.WrapKind(types.KindSystemCallFailed, fmt.Errorf("useradd failed for %q: %w", spec.Username, err))
	}

	return nil
}

func (r *HostRunner) SetSecret(username, secret string) error {
	r.logger.WithField("username", username).Info("Setting account password")

	// chpasswd reads "user:pass" lines from stdin, keeping the secret out of
	// argument lists and shell history.
	line := fmt.Sprintf("%s:%s\n", username, secret)
	if err := r.runWithStdin([]byte(line), "chpasswd"); err != nil {
		return types.WrapKind(types.KindSystemCallFailed, fmt.Errorf("chpasswd failed for %q: %w", username, err))
	}

	return nil
}

func (r *HostRunner) EnsureGroup(group string) error {
	if _, err := user.LookupGroup(group); err == nil {
		r.logger.WithField("group", group).Debug("Group already exists")
		return nil
	}

	r.logger.WithField("group", group).Info("Creating group")

	if err := r.run("groupadd", group); err != nil {
		return types.WrapKind(types.KindSystemCallFailed, fmt.Errorf("groupadd failed for %q: %w", group, err))
	}

	return nil
}

func (r *HostRunner) MakeDirectory(path string, mode os.FileMode) error {
	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return types.KindErrorf(types.KindSystemCallFailed, "%s exists and is not a directory", path)
		}
		r.logger.WithField("dir", path).Debug("Directory already exists")
		return nil
	}

	r.logger.WithFields(logrus.Fields{
		"dir":  path,
		"mode": fmt.Sprintf("%04o", mode),
	}).Info("Creating directory")

	if err := os.MkdirAll(path, mode); err != nil {
		return types.WrapKind(types.KindSystemCallFailed, fmt.Errorf("mkdir %s: %w", path, err))
	}

	return nil
}

func (r *HostRunner) SetOwnership(path, owner, group string) error {
	r.logger.WithFields(logrus.Fields{
		"path":  path,
		"owner": owner,
		"group": group,
	}).Info("Setting ownership")

	if err := r.run("chown", owner+":"+group, path); err != nil {
		return types.WrapKind(types.KindSystemCallFailed, fmt.Errorf("chown %s: %w", path, err))
	}

	return nil
}

func (r *HostRunner) SetMode(path string, mode os.FileMode) error {
	r.logger.WithFields(logrus.Fields{
		"path": path,
		"mode": fmt.Sprintf("%04o", mode),
	}).Info("Setting permissions")

	if err := os.Chmod(path, mode); err != nil {
		return types.WrapKind(types.KindSystemCallFailed, fmt.Errorf("chmod %s: %w", path, err))
	}

	return nil
}

func (r *HostRunner) ReloadService(service string) error {
	r.logger.WithField("service", service).Info("Reloading service")

	// Reload keeps existing sessions alive; a full restart is only the
	// fallback for hosts without systemctl.
	reloadErr := r.run("systemctl", "reload", service)
	if reloadErr == nil {
		r.logger.WithField("service", service).Info("✅ Service reloaded (systemctl)")
		return nil
	}

	r.logger.WithError(reloadErr).WithField("service", service).Warn("systemctl reload failed, trying service restart")

	restartErr := r.run("service", service, "restart")
	if restartErr == nil {
		r.logger.WithField("service", service).Info("✅ Service restarted (service)")
		return nil
	}

	return types.WrapKind(types.KindServiceReloadFailed,
		fmt.Errorf("reload failed (%v) and restart failed (%v)", reloadErr, restartErr))
}

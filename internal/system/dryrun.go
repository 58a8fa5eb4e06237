package system

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"sftp-provision/types"
)

// DryRunner logs every privileged operation instead of executing it, so an
// operator can preview a provisioning run without touching the host.
type DryRunner struct {
	logger *logrus.Logger
}

// NewDryRunner creates a DryRunner.
func NewDryRunner(logger *logrus.Logger) *DryRunner {
	return &DryRunner{logger: logger}
}

func (r *DryRunner) AccountExists(username string) bool {
	r.logger.WithField("username", username).Info("🔍 DRY-RUN: Would check whether account exists")
	return false
}

func (r *DryRunner) CreateAccount(spec types.AccountSpec) error {
	r.logger.WithFields(logrus.Fields{
		"username": spec.Username,
		"home":     spec.HomeDir,
		"group":    spec.Group,
		"shell":    spec.Shell,
	}).Info("🔍 DRY-RUN: Would create system account")
	return nil
}

func (r *DryRunner) SetSecret(username, _ string) error {
	r.logger.WithField("username", username).Info("🔍 DRY-RUN: Would set account password")
	return nil
}

func (r *DryRunner) EnsureGroup(group string) error {
	r.logger.WithField("group", group).Info("🔍 DRY-RUN: Would ensure group exists")
	return nil
}

func (r *DryRunner) MakeDirectory(path string, mode os.FileMode) error {
	r.logger.WithFields(logrus.Fields{
		"dir":  path,
		"mode": fmt.Sprintf("%04o", mode),
	}).Info("🔍 DRY-RUN: Would create directory")
	return nil
}

func (r *DryRunner) SetOwnership(path, owner, group string) error {
	r.logger.WithFields(logrus.Fields{
		"path":  path,
		"owner": owner,
		"group": group,
	}).Info("🔍 DRY-RUN: Would set ownership")
	return nil
}

func (r *DryRunner) SetMode(path string, mode os.FileMode) error {
	r.logger.WithFields(logrus.Fields{
		"path": path,
		"mode": fmt.Sprintf("%04o", mode),
	}).Info("🔍 DRY-RUN: Would set permissions")
	return nil
}

func (r *DryRunner) ReloadService(service string) error {
	r.logger.WithField("service", service).Info("🔍 DRY-RUN: Would reload service")
	return nil
}

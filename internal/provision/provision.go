// Package provision drives the ordered sequence of privileged operations
// that turns a validated username/password pair into a working restricted
// SFTP account.
package provision

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"sftp-provision/internal/system"
	"sftp-provision/internal/validate"
	"sftp-provision/types"
)

const (
	// homeDirMode keeps the chroot home readable and traversable but never
	// writable by group or other: sshd rejects chroot directories writable by
	// the chrooted user.
	homeDirMode = 0755

	// uploadDirMode grants the owner and the shared group full access and
	// locks everyone else out.
	uploadDirMode = 0770
)

// ConfigPatcher is the slice of the sshd config patcher the workflow needs.
type ConfigPatcher interface {
	ApplyRule(username string) error
}

// StepError reports the step at which provisioning halted and the failure
// category.
type StepError struct {
	Step types.Step
	Kind types.ErrorKind
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("step %s failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// Provisioner orchestrates the provisioning workflow over the capability
// interface. It holds no state between runs; all workflow state is local to
// Run.
type Provisioner struct {
	cfg     *types.Config
	runner  system.Runner
	patcher ConfigPatcher
	logger  *logrus.Logger
}

// New creates a Provisioner.
func New(cfg *types.Config, runner system.Runner, patcher ConfigPatcher, logger *logrus.Logger) *Provisioner {
	return &Provisioner{
		cfg:     cfg,
		runner:  runner,
		patcher: patcher,
		logger:  logger,
	}
}

// Run executes the full workflow for one request. Validation failures return
// before any privileged call. After privileged work begins, the first failing
// step halts the run; completed steps are reported and never unwound, since
// every step except account creation is idempotent and safe to re-run.
func (p *Provisioner) Run(req types.ProvisionRequest) types.ProvisionResult {
	var completed []types.Step

	fail := func(step types.Step, err error) types.ProvisionResult {
		stepErr := &StepError{Step: step, Kind: types.KindOf(err), Err: err}
		p.logger.WithFields(logrus.Fields{
			"username":        req.Username,
			"step":            string(step),
			"error_kind":      string(stepErr.Kind),
			"steps_completed": len(completed),
		}).WithError(err).Error("Provisioning halted")
		return types.ProvisionResult{
			Success:        false,
			StepsCompleted: completed,
			FailedStep:     step,
			Kind:           stepErr.Kind,
			Error:          stepErr.Error(),
		}
	}

	// Input policy gate: no privileged call happens past a validation error.
	if err := validate.Username(req.Username, p.cfg.Group); err != nil {
		return fail(types.StepCreateAccount, err)
	}
	if err := validate.Secret(req.Username, req.Secret); err != nil {
		return fail(types.StepCreateAccount, err)
	}

	spec := types.AccountSpec{
		Username: req.Username,
		HomeDir:  p.cfg.HomeDir(req.Username),
		Group:    p.cfg.Group,
		Shell:    p.cfg.Shell,
	}

	p.logger.WithFields(logrus.Fields{
		"username": spec.Username,
		"home":     spec.HomeDir,
		"group":    spec.Group,
		"shell":    spec.Shell,
	}).Info("🧑 Provisioning SFTP user")

	// A pre-existing account is a conflict, not something to retry around:
	// the operator has to resolve it out-of-band.
	if p.runner.AccountExists(req.Username) {
		return fail(types.StepCreateAccount,
			types.KindErrorf(types.KindAlreadyExists, "account %q already exists", req.Username))
	}

	// The shared group must exist before useradd references it via --gid.
	if err := p.runner.EnsureGroup(p.cfg.Group); err != nil {
		return fail(types.StepEnsureGroup, err)
	}
	completed = append(completed, types.StepEnsureGroup)

	if err := p.runner.CreateAccount(spec); err != nil {
		return fail(types.StepCreateAccount, err)
	}
	completed = append(completed, types.StepCreateAccount)

	// Past this point a failure leaves the account in place. That is
	// deliberate: deleting a freshly created account on error risks removing
	// something an operator already acted on. Fail loud, leave state.
	if err := p.runner.SetSecret(req.Username, req.Secret); err != nil {
		return fail(types.StepSetSecret, err)
	}
	completed = append(completed, types.StepSetSecret)

	uploadDir := p.cfg.UploadDir(req.Username)

	// Home first: the upload directory lives inside it.
	if err := p.runner.MakeDirectory(spec.HomeDir, homeDirMode); err != nil {
		return fail(types.StepBuildDirectories, err)
	}
	if err := p.runner.MakeDirectory(uploadDir, uploadDirMode); err != nil {
		return fail(types.StepBuildDirectories, err)
	}
	completed = append(completed, types.StepBuildDirectories)

	// Home belongs to root so the chrooted user cannot write it; the upload
	// directory belongs to the user and the shared group.
	if err := p.runner.SetOwnership(spec.HomeDir, "root", "root"); err != nil {
		return fail(types.StepApplyPermissions, err)
	}
	if err := p.runner.SetMode(spec.HomeDir, homeDirMode); err != nil {
		return fail(types.StepApplyPermissions, err)
	}
	if err := p.runner.SetOwnership(uploadDir, req.Username, p.cfg.Group); err != nil {
		return fail(types.StepApplyPermissions, err)
	}
	if err := p.runner.SetMode(uploadDir, uploadDirMode); err != nil {
		return fail(types.StepApplyPermissions, err)
	}
	completed = append(completed, types.StepApplyPermissions)

	if err := p.patcher.ApplyRule(req.Username); err != nil {
		return fail(types.StepUpdateConfig, err)
	}
	completed = append(completed, types.StepUpdateConfig)

	if err := p.runner.ReloadService(p.cfg.SSHDService); err != nil {
		return fail(types.StepReloadService, err)
	}
	completed = append(completed, types.StepReloadService)

	p.logger.WithFields(logrus.Fields{
		"username": req.Username,
		"home":     spec.HomeDir,
		"upload":   uploadDir,
	}).Info("✅ SFTP user provisioned successfully")

	return types.ProvisionResult{
		Success:        true,
		StepsCompleted: completed,
	}
}

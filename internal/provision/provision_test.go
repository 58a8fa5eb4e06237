package provision

import (
	"fmt"
	"os"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"sftp-provision/types"
)

// fakeRunner records every capability call and can be told to fail at a
// specific operation.
type fakeRunner struct {
	calls      []string
	existing   map[string]bool
	failOn     string
	failErr    error
	lastSecret string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{existing: map[string]bool{}}
}

func (f *fakeRunner) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeRunner) maybeFail(op string) error {
	if f.failOn == op {
		if f.failErr != nil {
			return f.failErr
		}
		return types.KindErrorf(types.KindSystemCallFailed, "%s failed", op)
	}
	return nil
}

func (f *fakeRunner) AccountExists(username string) bool {
	f.record("accountExists %s", username)
	return f.existing[username]
}

func (f *fakeRunner) CreateAccount(spec types.AccountSpec) error {
	f.record("createAccount %s home=%s group=%s shell=%s", spec.Username, spec.HomeDir, spec.Group, spec.Shell)
	return f.maybeFail("createAccount")
}

func (f *fakeRunner) SetSecret(username, secret string) error {
	f.record("setSecret %s", username)
	f.lastSecret = secret
	return f.maybeFail("setSecret")
}

func (f *fakeRunner) EnsureGroup(group string) error {
	f.record("ensureGroup %s", group)
	return f.maybeFail("ensureGroup")
}

func (f *fakeRunner) MakeDirectory(path string, mode os.FileMode) error {
	f.record("makeDirectory %s %04o", path, mode)
	return f.maybeFail("makeDirectory")
}

func (f *fakeRunner) SetOwnership(path, owner, group string) error {
	f.record("setOwnership %s %s:%s", path, owner, group)
	return f.maybeFail("setOwnership")
}

func (f *fakeRunner) SetMode(path string, mode os.FileMode) error {
	f.record("setMode %s %04o", path, mode)
	return f.maybeFail("setMode")
}

func (f *fakeRunner) ReloadService(service string) error {
	f.record("reloadService %s", service)
	return f.maybeFail("reloadService")
}

// fakePatcher records ApplyRule calls.
type fakePatcher struct {
	applied []string
	err     error
}

func (f *fakePatcher) ApplyRule(username string) error {
	f.applied = append(f.applied, username)
	return f.err
}

func testConfig() *types.Config {
	return &types.Config{
		BaseDir:        "/srv/sftp",
		Group:          "sftpusers",
		Shell:          "/usr/sbin/nologin",
		UploadDirName:  "upload",
		SSHDConfigPath: "/etc/ssh/sshd_config.d/sftp-provision.conf",
		SSHDService:    "sshd",
	}
}

func newTestProvisioner(runner *fakeRunner, patcher *fakePatcher) *Provisioner {
	logger := logrus.New()
	logger.SetLevel(logrus.ErrorLevel)
	return New(testConfig(), runner, patcher, logger)
}

func TestRunSuccess(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "hunter2222"})

	require.True(t, result.Success)
	require.Empty(t, result.FailedStep)
	require.Equal(t, []types.Step{
		types.StepEnsureGroup,
		types.StepCreateAccount,
		types.StepSetSecret,
		types.StepBuildDirectories,
		types.StepApplyPermissions,
		types.StepUpdateConfig,
		types.StepReloadService,
	}, result.StepsCompleted)

	require.Equal(t, []string{
		"accountExists john_doe",
		"ensureGroup sftpusers",
		"createAccount john_doe home=/srv/sftp/john_doe group=sftpusers shell=/usr/sbin/nologin",
		"setSecret john_doe",
		"makeDirectory /srv/sftp/john_doe 0755",
		"makeDirectory /srv/sftp/john_doe/upload 0770",
		"setOwnership /srv/sftp/john_doe root:root",
		"setMode /srv/sftp/john_doe 0755",
		"setOwnership /srv/sftp/john_doe/upload john_doe:sftpusers",
		"setMode /srv/sftp/john_doe/upload 0770",
		"reloadService sshd",
	}, runner.calls)
	require.Equal(t, "hunter2222", runner.lastSecret)
	require.Equal(t, []string{"john_doe"}, patcher.applied)
}

func TestRunAccountAlreadyExists(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.existing["john_doe"] = true
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.StepCreateAccount, result.FailedStep)
	require.Equal(t, types.KindAlreadyExists, result.Kind)
	require.Empty(t, result.StepsCompleted)

	// Only the existence probe ran: no account, directory, or config mutation.
	require.Equal(t, []string{"accountExists john_doe"}, runner.calls)
	require.Empty(t, patcher.applied)
}

func TestRunReservedUsername(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "root", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.KindReservedName, result.Kind)
	require.Empty(t, runner.calls)
	require.Empty(t, patcher.applied)
}

func TestRunInvalidUsernameFormat(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "9lives", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.KindInvalidFormat, result.Kind)
	require.Empty(t, runner.calls)
}

func TestRunWeakSecret(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "short"})

	require.False(t, result.Success)
	require.Equal(t, types.KindTooWeak, result.Kind)
	require.Empty(t, runner.calls)
}

func TestRunSetSecretFailureLeavesAccountInPlace(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.failOn = "setSecret"
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.StepSetSecret, result.FailedStep)
	require.Equal(t, types.KindSystemCallFailed, result.Kind)
	require.Equal(t, []types.Step{types.StepEnsureGroup, types.StepCreateAccount}, result.StepsCompleted)

	// No rollback and no later steps: the account stays, directories are
	// never built, config never touched.
	require.Equal(t, []string{
		"accountExists john_doe",
		"ensureGroup sftpusers",
		"createAccount john_doe home=/srv/sftp/john_doe group=sftpusers shell=/usr/sbin/nologin",
		"setSecret john_doe",
	}, runner.calls)
	require.Empty(t, patcher.applied)
}

func TestRunDirectoryFailureHalts(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.failOn = "makeDirectory"
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.StepBuildDirectories, result.FailedStep)
	require.Equal(t, []types.Step{
		types.StepEnsureGroup,
		types.StepCreateAccount,
		types.StepSetSecret,
	}, result.StepsCompleted)
	require.Empty(t, patcher.applied)
}

func TestRunConfigPatchFailure(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	patcher := &fakePatcher{err: types.KindErrorf(types.KindConfigUnwritable, "read-only filesystem")}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.StepUpdateConfig, result.FailedStep)
	require.Equal(t, types.KindConfigUnwritable, result.Kind)

	// The reload never happens when the config patch fails.
	require.NotContains(t, runner.calls, "reloadService sshd")
}

func TestRunReloadFailureReportsCompletedSteps(t *testing.T) {
	t.Parallel()

	runner := newFakeRunner()
	runner.failOn = "reloadService"
	runner.failErr = types.KindErrorf(types.KindServiceReloadFailed, "both reload and restart failed")
	patcher := &fakePatcher{}
	p := newTestProvisioner(runner, patcher)

	result := p.Run(types.ProvisionRequest{Username: "john_doe", Secret: "hunter2222"})

	require.False(t, result.Success)
	require.Equal(t, types.StepReloadService, result.FailedStep)
	require.Equal(t, types.KindServiceReloadFailed, result.Kind)
	require.Equal(t, []types.Step{
		types.StepEnsureGroup,
		types.StepCreateAccount,
		types.StepSetSecret,
		types.StepBuildDirectories,
		types.StepApplyPermissions,
		types.StepUpdateConfig,
	}, result.StepsCompleted)
}

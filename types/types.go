package types

import (
	"errors"
	"fmt"
	"path/filepath"
)

// Config holds the provisioning policy. Values come from the config file,
// environment variables, and command-line flag overrides (see internal/config).
type Config struct {
	BaseDir        string `json:"baseDir" yaml:"baseDir"`               // chroot base directory, user homes live under it
	Group          string `json:"group" yaml:"group"`                   // shared group all SFTP accounts join
	Shell          string `json:"shell" yaml:"shell"`                   // non-interactive login shell
	UploadDirName  string `json:"uploadDirName" yaml:"uploadDirName"`   // writable subdirectory inside each home
	SSHDConfigPath string `json:"sshdConfigPath" yaml:"sshdConfigPath"` // drop-in config file patched per user
	SSHDService    string `json:"sshdService" yaml:"sshdService"`       // service unit reloaded after config changes
	LogPath        string `json:"logPath" yaml:"logPath"`
	DryRun         bool   `json:"dryRun" yaml:"dryRun"` // If true, log privileged commands but don't execute them
}

// HomeDir returns the home directory for a username under the chroot base.
func (c *Config) HomeDir(username string) string {
	return filepath.Join(c.BaseDir, username)
}

// UploadDir returns the writable upload directory inside a user's home.
func (c *Config) UploadDir(username string) string {
	return filepath.Join(c.HomeDir(username), c.UploadDirName)
}

// GetLogPath returns the configured log file path.
func (c *Config) GetLogPath() string {
	return c.LogPath
}

// ProvisionRequest is the validated input consumed by the provisioning
// workflow. It is constructed once and never persisted.
type ProvisionRequest struct {
	Username string `json:"username"`
	Secret   string `json:"-"`
}

// AccountSpec parameterizes the account-creation call. Derived from a
// ProvisionRequest plus the policy constants in Config.
type AccountSpec struct {
	Username string `json:"username"`
	HomeDir  string `json:"homeDir"`
	Group    string `json:"group"`
	Shell    string `json:"shell"`
}

// Step identifies one privileged operation in the provisioning workflow.
type Step string

const (
	StepCreateAccount    Step = "createAccount"
	StepSetSecret        Step = "setSecret"
	StepEnsureGroup      Step = "ensureGroup"
	StepBuildDirectories Step = "buildDirectories"
	StepApplyPermissions Step = "applyPermissions"
	StepUpdateConfig     Step = "updateConfig"
	StepReloadService    Step = "reloadService"
)

// ProvisionResult reports the outcome of a provisioning run, including every
// step that completed before a failure so an operator can decide how to
// recover.
type ProvisionResult struct {
	Success        bool      `json:"success"`
	StepsCompleted []Step    `json:"stepsCompleted"`
	FailedStep     Step      `json:"failedStep,omitempty"`
	Kind           ErrorKind `json:"errorKind,omitempty"`
	Error          string    `json:"error,omitempty"`
}

// ErrorKind is a closed set of failure categories propagated instead of raw
// tool exit codes, so failure handling stays uniform across the workflow.
type ErrorKind string

const (
	KindInvalidFormat       ErrorKind = "invalidFormat"
	KindReservedName        ErrorKind = "reservedName"
	KindTooWeak             ErrorKind = "tooWeak"
	KindMismatch            ErrorKind = "mismatch"
	KindAlreadyExists       ErrorKind = "alreadyExists"
	KindSystemCallFailed    ErrorKind = "systemCallFailed"
	KindConfigUnwritable    ErrorKind = "configUnwritable"
	KindServiceReloadFailed ErrorKind = "serviceReloadFailed"
)

// KindError tags an underlying error with its ErrorKind so callers can
// classify failures without matching on message strings.
type KindError struct {
	Kind ErrorKind
	Err  error
}

func (e *KindError) Error() string {
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *KindError) Unwrap() error {
	return e.Err
}

// WrapKind attaches an ErrorKind to err.
func WrapKind(kind ErrorKind, err error) error {
	return &KindError{Kind: kind, Err: err}
}

// KindErrorf builds a tagged error from a format string.
func KindErrorf(kind ErrorKind, format string, args ...interface{}) error {
	return &KindError{Kind: kind, Err: fmt.Errorf(format, args...)}
}

// KindOf extracts the ErrorKind from err. Errors that were never tagged are
// treated as generic system-call failures.
func KindOf(err error) ErrorKind {
	var kindErr *KindError
	if errors.As(err, &kindErr) {
		return kindErr.Kind
	}
	return KindSystemCallFailed
}

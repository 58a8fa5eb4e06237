package create

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sftp-provision/internal/config"
	"sftp-provision/internal/logging"
	"sftp-provision/internal/prompt"
	"sftp-provision/internal/provision"
	"sftp-provision/internal/sshdconf"
	"sftp-provision/internal/system"
	"sftp-provision/internal/validate"
	"sftp-provision/types"
)

// NewCreateCommand creates the create command
func NewCreateCommand(verbose *bool, configPath *string) *cobra.Command {
	var (
		// Create command flags
		username       string
		passwordFile   string
		baseDir        string
		group          string
		shell          string
		uploadDirName  string
		sshdConfigPath string
		sshdService    string
		logPath        string
		dryRun         bool
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Provision a new restricted SFTP account",
		Long: `Provision a new restricted SFTP account on this host.

Without flags the command prompts for a username and a password (entered
twice, echo disabled). The workflow then creates the system account, builds
the chroot directory tree (read-only home, writable upload folder), inserts
the per-user sshd Match block, and reloads sshd.

Every step except account creation is idempotent: after fixing the cause of
a partial failure, re-running the command is the intended recovery path.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCreate(
				*verbose, *configPath,
				username, passwordFile,
				baseDir, group, shell, uploadDirName,
				sshdConfigPath, sshdService, logPath, dryRun,
			)
		},
	}

	// Create command flags
	cmd.Flags().StringVar(&username, "username", "", "Username for the new account (prompted when omitted)")
	cmd.Flags().StringVar(&passwordFile, "password-file", "", "Path to a file containing the password, or - to read one line from stdin (prompted when omitted)")
	cmd.Flags().StringVar(&baseDir, "base-dir", "", "Chroot base directory (default /srv/sftp)")
	cmd.Flags().StringVar(&group, "group", "", "Shared group for SFTP accounts (default sftpusers)")
	cmd.Flags().StringVar(&shell, "shell", "", "Login shell for the account (default /usr/sbin/nologin)")
	cmd.Flags().StringVar(&uploadDirName, "upload-dir-name", "", "Name of the writable upload directory (default upload)")
	cmd.Flags().StringVar(&sshdConfigPath, "sshd-config-path", "", "sshd drop-in file to patch (default /etc/ssh/sshd_config.d/sftp-provision.conf)")
	cmd.Flags().StringVar(&sshdService, "sshd-service", "", "Service unit to reload (default sshd)")
	cmd.Flags().StringVar(&logPath, "log-path", "", "Path to store log files")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Log privileged commands but don't execute them (safe testing mode)")

	return cmd
}

func runCreate(
	verbose bool, configPath string,
	username, passwordFile string,
	baseDir, group, shell, uploadDirName string,
	sshdConfigPath, sshdService, logPath string, dryRun bool,
) error {
	flagOverrides := map[string]interface{}{
		"baseDir":        baseDir,
		"group":          group,
		"shell":          shell,
		"uploadDirName":  uploadDirName,
		"sshdConfigPath": sshdConfigPath,
		"sshdService":    sshdService,
		"logPath":        logPath,
		"dryRun":         dryRun,
	}

	cfg, err := config.LoadWithOverrides(configPath, flagOverrides)
	if err != nil {
		// If config loading fails, use basic logging
		logger := logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logger := logging.SetupLoggerFromConfig(verbose, cfg)

	// The account tools refuse non-root callers, so fail before prompting.
	if !cfg.DryRun && os.Geteuid() != 0 {
		logger.Error("This command must be run with root privileges")
		logger.Error("💡 Try: sudo sftp-provision create")
		return fmt.Errorf("root privileges required")
	}

	if username == "" {
		username, err = prompt.ReadUsername()
		if err != nil {
			return err
		}
	}

	if err := validate.Username(username, cfg.Group); err != nil {
		logger.WithError(err).Error("Username rejected")
		return err
	}

	secret, err := resolveSecret(username, passwordFile)
	if err != nil {
		logger.WithError(err).Error("Password rejected")
		return err
	}

	if err := validate.Secret(username, secret); err != nil {
		logger.WithError(err).Error("Password rejected")
		return err
	}

	var runner system.Runner
	if cfg.DryRun {
		runner = system.NewDryRunner(logger)
	} else {
		runner = system.NewHostRunner(logger)
	}
	patcher := sshdconf.New(cfg.SSHDConfigPath, cfg.BaseDir, cfg.DryRun, logger)

	result := provision.New(cfg, runner, patcher, logger).Run(types.ProvisionRequest{
		Username: username,
		Secret:   secret,
	})

	if !result.Success {
		displayFailure(result)
		return fmt.Errorf("provisioning failed at step %s (%s)", result.FailedStep, result.Kind)
	}

	displaySummary(cfg, username)
	return nil
}

// resolveSecret obtains the password from --password-file (a path or - for
// stdin) or by interactive double prompt. The match check runs here, before
// any privileged call.
func resolveSecret(username, passwordFile string) (string, error) {
	if passwordFile != "" {
		secret, err := readPasswordFile(passwordFile)
		if err != nil {
			return "", err
		}
		return secret, nil
	}

	first, second, err := prompt.ReadSecret(username)
	if err != nil {
		return "", err
	}
	if err := validate.SecretsMatch(first, second); err != nil {
		return "", err
	}
	return first, nil
}

func readPasswordFile(path string) (string, error) {
	var data []byte
	var err error
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read password file: %w", err)
	}

	secret := strings.TrimRight(string(data), "\r\n")
	if secret == "" {
		return "", fmt.Errorf("password file %s is empty", path)
	}
	return secret, nil
}

func displayFailure(result types.ProvisionResult) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("❌ PROVISIONING FAILED")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Failed step: %s\n", result.FailedStep)
	fmt.Printf("Reason:      %s\n", result.Error)

	if len(result.StepsCompleted) > 0 {
		fmt.Println("\nSteps completed before the failure:")
		for _, step := range result.StepsCompleted {
			fmt.Printf("   ✅ %s\n", step)
		}
		fmt.Println("\n💡 Completed steps are left in place. Fix the cause and re-run;")
		fmt.Println("   every step except account creation is idempotent.")
	} else {
		fmt.Println("\nNo changes were made to the system.")
	}
}

func displaySummary(cfg *types.Config, username string) {
	fmt.Println("\n" + strings.Repeat("=", 60))
	fmt.Println("✅ SFTP USER CREATED")
	fmt.Println(strings.Repeat("=", 60))
	fmt.Printf("Username:         %s\n", username)
	fmt.Printf("Home directory:   %s (root:root, read-only for the user)\n", cfg.HomeDir(username))
	fmt.Printf("Upload directory: %s (%s:%s, writable)\n", cfg.UploadDir(username), username, cfg.Group)
	fmt.Printf("Group:            %s\n", cfg.Group)
	fmt.Printf("Shell:            %s\n", cfg.Shell)
	fmt.Printf("sshd rule:        %s\n", cfg.SSHDConfigPath)

	fmt.Println("\n💡 Next steps:")
	fmt.Printf("   1. Test the connection: sftp %s@localhost\n", username)
	fmt.Printf("   2. Uploads go to: %s\n", cfg.UploadDir(username))
	fmt.Println("   3. Authentication is password-only; no keys are configured")
}

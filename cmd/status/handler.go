package status

import (
	"fmt"
	"os"
	"os/exec"
	"os/user"
	"strings"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"sftp-provision/internal/config"
	"sftp-provision/internal/logging"
	"sftp-provision/internal/sshdconf"
	"sftp-provision/types"
)

func NewStatusCommand(verbose *bool, configPath *string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status <username>",
		Short: "Check the provisioning state of an SFTP account",
		Long: `Validate the provisioning state of an SFTP account including:
- System account presence and login shell
- Home directory existence and permissions (must not be user-writable)
- Upload directory existence
- sshd access rule presence in the drop-in config
- sshd service activity

This command is read-only and never modifies the host.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatusCheck(*verbose, *configPath, args[0])
		},
	}

	return cmd
}

func runStatusCheck(verbose bool, configPath, username string) error {
	cfg, err := config.LoadWithOverrides(configPath, nil)
	if err != nil {
		logger := logrus.New()
		if verbose {
			logger.SetLevel(logrus.DebugLevel)
		}
		logger.WithError(err).Error("Failed to load configuration")
		return err
	}

	logger := logging.SetupLoggerFromConfig(verbose, cfg)
	logger.WithField("username", username).Info("🔍 SFTP account status check")

	fmt.Printf("🔍 SFTP account status: %s\n", username)
	fmt.Println(strings.Repeat("=", 40))

	allChecksPass := true

	fmt.Print("👤 System account... ")
	if checkAccount(username, cfg, logger) {
		fmt.Println("✅ PRESENT")
	} else {
		fmt.Println("❌ MISSING")
		allChecksPass = false
	}

	fmt.Print("🏠 Home directory... ")
	if checkHomeDir(cfg.HomeDir(username), logger) {
		fmt.Println("✅ CORRECT")
	} else {
		fmt.Println("❌ INCORRECT")
		allChecksPass = false
	}

	fmt.Print("📁 Upload directory... ")
	if checkUploadDir(cfg.UploadDir(username), logger) {
		fmt.Println("✅ PRESENT")
	} else {
		fmt.Println("❌ MISSING")
		allChecksPass = false
	}

	fmt.Print("📝 sshd access rule... ")
	if checkConfigRule(cfg, username, logger) {
		fmt.Println("✅ PRESENT")
	} else {
		fmt.Println("❌ MISSING")
		allChecksPass = false
	}

	fmt.Print("⚙️  sshd service... ")
	if checkService(cfg.SSHDService, logger) {
		fmt.Println("✅ ACTIVE")
	} else {
		fmt.Println("❌ NOT ACTIVE")
		allChecksPass = false
	}

	fmt.Println(strings.Repeat("=", 40))

	if allChecksPass {
		fmt.Printf("🎉 All checks passed! Account %s is fully provisioned.\n", username)
		return nil
	}

	fmt.Println("⚠️  Some checks failed. Please review the issues above.")
	fmt.Println("\n💡 Quick fixes:")
	fmt.Printf("   • Re-run provisioning: sudo sftp-provision create --username %s\n", username)
	fmt.Printf("   • Check service logs: sudo journalctl -u %s\n", cfg.SSHDService)
	return fmt.Errorf("status check failed for %s", username)
}

func checkAccount(username string, cfg *types.Config, logger *logrus.Logger) bool {
	u, err := user.Lookup(username)
	if err != nil {
		logger.WithField("username", username).Debug("Account not found")
		return false
	}

	if u.HomeDir != cfg.HomeDir(username) {
		logger.WithFields(logrus.Fields{
			"username": username,
			"have":     u.HomeDir,
			"want":     cfg.HomeDir(username),
		}).Warn("Account home differs from the configured base directory")
	}

	return true
}

func checkHomeDir(path string, logger *logrus.Logger) bool {
	info, err := os.Stat(path)
	if err != nil {
		logger.WithField("dir", path).Debug("Home directory not found")
		return false
	}

	if !info.IsDir() {
		logger.WithField("dir", path).Error("Home path is not a directory")
		return false
	}

	// sshd refuses chroot directories writable by group or other.
	if info.Mode().Perm()&0022 != 0 {
		logger.WithFields(logrus.Fields{
			"dir":  path,
			"mode": fmt.Sprintf("%04o", info.Mode().Perm()),
		}).Error("Home directory is group- or world-writable")
		return false
	}

	return true
}

func checkUploadDir(path string, logger *logrus.Logger) bool {
	info, err := os.Stat(path)
	if err != nil {
		logger.WithField("dir", path).Debug("Upload directory not found")
		return false
	}
	return info.IsDir()
}

func checkConfigRule(cfg *types.Config, username string, logger *logrus.Logger) bool {
	patcher := sshdconf.New(cfg.SSHDConfigPath, cfg.BaseDir, false, logger)
	found, err := patcher.HasRule(username)
	if err != nil {
		logger.WithError(err).WithField("file", cfg.SSHDConfigPath).Error("Cannot read sshd drop-in config")
		return false
	}
	return found
}

func checkService(service string, logger *logrus.Logger) bool {
	if err := exec.Command("systemctl", "is-active", service).Run(); err == nil {
		return true
	}
	logger.WithField("service", service).Debug("systemctl reports service not active")
	return false
}

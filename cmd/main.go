package main

import (
	"os"

	"github.com/spf13/cobra"

	"sftp-provision/cmd/create"
	"sftp-provision/cmd/status"
	"sftp-provision/cmd/version"
)

var (
	verbose    bool
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "sftp-provision",
	Short: "sftp-provision - creates restricted, chrooted SFTP accounts",
	Long: `sftp-provision creates restricted file-transfer accounts on this host: a
system account with a non-interactive shell, a confined directory tree with a
read-only home and a writable upload folder, an sshd Match block scoping the
account to internal-sftp, and a service reload so the rule takes effect
without dropping active sessions.`,
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to configuration file")

	rootCmd.AddCommand(create.NewCreateCommand(&verbose, &configPath))
	rootCmd.AddCommand(status.NewStatusCommand(&verbose, &configPath))
	rootCmd.AddCommand(version.NewVersionCommand())
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

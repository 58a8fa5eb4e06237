package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"sftp-provision/types"
)

// LoadWithOverrides loads configuration from various sources with command-line flag overrides
func LoadWithOverrides(configPath string, flagOverrides map[string]interface{}) (*types.Config, error) {
	// Initialize viper
	v := viper.New()

	// Set config file if provided
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("sftp-provision")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.sftp-provision")
		v.AddConfigPath("/etc/sftp-provision")
	}

	// Environment variable support
	v.SetEnvPrefix("SFTP_PROVISION")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults
	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	// Apply flag overrides (only set non-empty/non-zero values)
	for key, value := range flagOverrides {
		switch val := value.(type) {
		case string:
			if val != "" {
				v.Set(key, value)
			}
		case int:
			if val != 0 {
				v.Set(key, value)
			}
		case bool:
			if val {
				v.Set(key, value)
			}
		default:
			if value != nil {
				v.Set(key, value)
			}
		}
	}

	config := &types.Config{}
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validateConfig(config); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Load loads configuration from various sources (backward compatibility)
func Load() (*types.Config, error) {
	return LoadWithOverrides("", nil)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("baseDir", "/srv/sftp")
	v.SetDefault("group", "sftpusers")
	v.SetDefault("shell", "/usr/sbin/nologin")
	v.SetDefault("uploadDirName", "upload")
	v.SetDefault("sshdConfigPath", "/etc/ssh/sshd_config.d/sftp-provision.conf")
	v.SetDefault("sshdService", "sshd")
	v.SetDefault("logPath", "")
	v.SetDefault("dryRun", false)
}

// validateConfig validates the configuration
func validateConfig(config *types.Config) error {
	if config.BaseDir == "" {
		return fmt.Errorf("baseDir is required")
	}

	if !filepath.IsAbs(config.BaseDir) {
		return fmt.Errorf("baseDir must be an absolute path, got %q", config.BaseDir)
	}

	if config.Group == "" {
		return fmt.Errorf("group is required")
	}

	if config.Shell == "" || !filepath.IsAbs(config.Shell) {
		return fmt.Errorf("shell must be an absolute path, got %q", config.Shell)
	}

	// The upload directory lives directly inside each home, so the name must
	// be a single path element.
	if config.UploadDirName == "" || strings.ContainsAny(config.UploadDirName, "/") {
		return fmt.Errorf("uploadDirName must be a single path element, got %q", config.UploadDirName)
	}

	if config.SSHDConfigPath == "" || !filepath.IsAbs(config.SSHDConfigPath) {
		return fmt.Errorf("sshdConfigPath must be an absolute path, got %q", config.SSHDConfigPath)
	}

	if config.SSHDService == "" {
		return fmt.Errorf("sshdService is required")
	}

	return nil
}

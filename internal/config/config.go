// =============================================================================
// Spond Attendance Pipeline - Configuration Module
// =============================================================================
//
// This module loads the main application configuration from YAML. The
// config file is optional: a missing file loads pure defaults, so a fresh
// checkout runs without any setup. Flags passed on the command line win
// over config values.
//
// CONFIGURATION FILE (config.yaml):
//   output_dir: output_data
//   disclaimer_prefix: "*Attendance"
//   suggester_command: claude
//   suggester_timeout_seconds: 60
//
// =============================================================================

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// MainConfig holds the global application configuration.
type MainConfig struct {
	// OutputDir is where the output tables, lookup tables and the state
	// record live. Default: "output_data".
	OutputDir string `yaml:"output_dir"`

	// DisclaimerPrefix identifies the export tool's footer rows by the
	// start of their Name value. Default: "*Attendance".
	DisclaimerPrefix string `yaml:"disclaimer_prefix"`

	// SuggesterCommand is the LLM CLI used for name/category suggestions.
	// Default: "claude".
	SuggesterCommand string `yaml:"suggester_command"`

	// SuggesterTimeoutSeconds bounds one suggester invocation.
	// Default: 60.
	SuggesterTimeoutSeconds int `yaml:"suggester_timeout_seconds"`
}

// DefaultConfig returns the configuration used when no config file exists.
func DefaultConfig() *MainConfig {
	return &MainConfig{
		OutputDir:               "output_data",
		DisclaimerPrefix:        "*Attendance",
		SuggesterCommand:        "claude",
		SuggesterTimeoutSeconds: 60,
	}
}

// LoadMainConfig loads the configuration from path. A missing file is not
// an error: it yields DefaultConfig. Fields absent from the file keep
// their defaults.
func LoadMainConfig(path string) (*MainConfig, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	// Re-apply defaults for fields set to empty/zero in the file.
	defaults := DefaultConfig()
	if cfg.OutputDir == "" {
		cfg.OutputDir = defaults.OutputDir
	}
	if cfg.DisclaimerPrefix == "" {
		cfg.DisclaimerPrefix = defaults.DisclaimerPrefix
	}
	if cfg.SuggesterCommand == "" {
		cfg.SuggesterCommand = defaults.SuggesterCommand
	}
	if cfg.SuggesterTimeoutSeconds <= 0 {
		cfg.SuggesterTimeoutSeconds = defaults.SuggesterTimeoutSeconds
	}

	return cfg, nil
}

// SuggesterTimeout returns the suggester timeout as a duration.
func (c *MainConfig) SuggesterTimeout() time.Duration {
	return time.Duration(c.SuggesterTimeoutSeconds) * time.Second
}

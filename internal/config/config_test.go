package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMainConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadMainConfig(filepath.Join(t.TempDir(), "config.yaml"))
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}
	if cfg.OutputDir != "output_data" {
		t.Errorf("OutputDir = %q; want output_data", cfg.OutputDir)
	}
	if cfg.DisclaimerPrefix != "*Attendance" {
		t.Errorf("DisclaimerPrefix = %q; want *Attendance", cfg.DisclaimerPrefix)
	}
	if cfg.SuggesterCommand != "claude" {
		t.Errorf("SuggesterCommand = %q; want claude", cfg.SuggesterCommand)
	}
	if cfg.SuggesterTimeout() != 60*time.Second {
		t.Errorf("SuggesterTimeout = %v; want 60s", cfg.SuggesterTimeout())
	}
}

func TestLoadMainConfigOverridesAndBackfills(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := "output_dir: /srv/attendance\nsuggester_timeout_seconds: 30\n"
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadMainConfig(path)
	if err != nil {
		t.Fatalf("LoadMainConfig: %v", err)
	}
	if cfg.OutputDir != "/srv/attendance" {
		t.Errorf("OutputDir = %q; want /srv/attendance", cfg.OutputDir)
	}
	if cfg.SuggesterTimeout() != 30*time.Second {
		t.Errorf("SuggesterTimeout = %v; want 30s", cfg.SuggesterTimeout())
	}
	// Fields absent from the file keep their defaults.
	if cfg.SuggesterCommand != "claude" {
		t.Errorf("SuggesterCommand = %q; want claude", cfg.SuggesterCommand)
	}
}

func TestLoadMainConfigRejectsBadYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("output_dir: [unclosed"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadMainConfig(path); err == nil {
		t.Fatal("LoadMainConfig should fail on malformed YAML")
	}
}

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("PUSHCTL_API_BASE_URL", "https://api.example.com")
	t.Setenv("PUSHCTL_HTTP_TIMEOUT", "3s")
	t.Setenv("PUSHCTL_DELIVERY_MODE", "LOCAL")
	t.Setenv("PUSHCTL_PROJECT_ID", "env-project")
	t.Setenv("PUSHCTL_STATE_DIR", "/tmp/pushctl")
	t.Setenv("PUSHCTL_LOG_LEVEL", "debug")
	t.Setenv("PUSHCTL_METRICS_ENABLED", "true")
	t.Setenv("PUSHCTL_METRICS_PORT", "9300")
	t.Setenv("PUSHCTL_DEVICE_PHYSICAL", "false")
	t.Setenv("PUSHCTL_DEVICE_OS", "iOS")
	t.Setenv("PUSHCTL_DEVICE_PERMISSION", "denied")

	cfg := DefaultConfig()
	if err := ApplyEnvOverrides(cfg); err != nil {
		t.Fatalf("ApplyEnvOverrides failed: %v", err)
	}
	if cfg.APIBaseURL != "https://api.example.com" {
		t.Fatalf("unexpected base url: %s", cfg.APIBaseURL)
	}
	if cfg.HTTPTimeout != 3*time.Second {
		t.Fatalf("unexpected timeout: %v", cfg.HTTPTimeout)
	}
	if cfg.DeliveryMode != ModeLocal {
		t.Fatalf("unexpected mode: %s", cfg.DeliveryMode)
	}
	if id, _ := cfg.Manifest.ProjectID(); id != "env-project" {
		t.Fatalf("unexpected project id: %s", id)
	}
	if cfg.StateDir != "/tmp/pushctl" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected storage/log config: %+v", cfg)
	}
	if !cfg.MetricsEnabled || cfg.MetricsPort != 9300 {
		t.Fatalf("unexpected metrics config: %v %d", cfg.MetricsEnabled, cfg.MetricsPort)
	}
	if cfg.Device.Physical || cfg.Device.OS != "ios" || cfg.Device.Permission != "denied" {
		t.Fatalf("unexpected device config: %+v", cfg.Device)
	}
}

func TestApplyEnvOverridesRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"PUSHCTL_HTTP_TIMEOUT":    "soon",
		"PUSHCTL_DELIVERY_MODE":   "fax",
		"PUSHCTL_METRICS_ENABLED": "maybe",
		"PUSHCTL_METRICS_PORT":    "http",
		"PUSHCTL_DEVICE_PHYSICAL": "kinda",
	}
	for env, val := range cases {
		t.Run(env, func(t *testing.T) {
			t.Setenv(env, val)
			if err := ApplyEnvOverrides(DefaultConfig()); err == nil {
				t.Fatalf("expected error for %s=%s", env, val)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	// missing file is fine
	if err := LoadDotEnv(filepath.Join(t.TempDir(), ".env")); err != nil {
		t.Fatalf("missing .env should not fail: %v", err)
	}

	path := filepath.Join(t.TempDir(), ".env")
	if err := os.WriteFile(path, []byte("PUSHCTL_TEST_DOTENV=from-file\n"), 0o600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Setenv("PUSHCTL_TEST_DOTENV", "")
	os.Unsetenv("PUSHCTL_TEST_DOTENV")
	if err := LoadDotEnv(path); err != nil {
		t.Fatalf("LoadDotEnv failed: %v", err)
	}
	if got := os.Getenv("PUSHCTL_TEST_DOTENV"); got != "from-file" {
		t.Fatalf("expected value from .env, got %q", got)
	}
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadDotEnv loads variables from a .env file into the process environment
// without overriding variables that are already set. A missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ApplyEnvOverrides reads configuration values from environment variables and
// overrides fields in the provided Config. Returns an error if parsing fails.
//
// Environment variables supported:
// - PUSHCTL_API_BASE_URL (string, e.g. https://api.example.com)
// - PUSHCTL_HTTP_TIMEOUT (duration, e.g. "15s")
// - PUSHCTL_DELIVERY_MODE ("local" or "remote")
// - PUSHCTL_PROJECT_ID (string, fallback project id)
// - PUSHCTL_STATE_DIR, PUSHCTL_STATE_PASSPHRASE
// - PUSHCTL_LOG_LEVEL, PUSHCTL_LOG_FILE
// - PUSHCTL_METRICS_ENABLED (bool), PUSHCTL_METRICS_PORT (int)
// - PUSHCTL_DEVICE_PHYSICAL (bool), PUSHCTL_DEVICE_OS, PUSHCTL_DEVICE_PERMISSION
func ApplyEnvOverrides(cfg *Config) error {
	if err := applyAPIEnv(cfg); err != nil {
		return err
	}
	applyStorageEnv(cfg)
	if err := applyMetricsEnv(cfg); err != nil {
		return err
	}
	if err := applyDeviceEnv(cfg); err != nil {
		return err
	}
	return nil
}

func applyAPIEnv(cfg *Config) error {
	if v := os.Getenv("PUSHCTL_API_BASE_URL"); v != "" {
		cfg.APIBaseURL = v
	}
	if v := os.Getenv("PUSHCTL_HTTP_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("invalid PUSHCTL_HTTP_TIMEOUT: %w", err)
		}
		cfg.HTTPTimeout = d
	}
	if v := os.Getenv("PUSHCTL_DELIVERY_MODE"); v != "" {
		mode := strings.ToLower(strings.TrimSpace(v))
		if mode != ModeLocal && mode != ModeRemote {
			return fmt.Errorf("invalid PUSHCTL_DELIVERY_MODE: %q", v)
		}
		cfg.DeliveryMode = mode
	}
	if v := os.Getenv("PUSHCTL_PROJECT_ID"); v != "" {
		cfg.Manifest.EAS.ProjectID = v
	}
	return nil
}

func applyStorageEnv(cfg *Config) {
	if v := os.Getenv("PUSHCTL_STATE_DIR"); v != "" {
		cfg.StateDir = v
	}
	if v := os.Getenv("PUSHCTL_STATE_PASSPHRASE"); v != "" {
		cfg.StatePassphrase = v
	}
	if v := os.Getenv("PUSHCTL_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("PUSHCTL_LOG_FILE"); v != "" {
		cfg.LogFile = v
	}
}

func applyMetricsEnv(cfg *Config) error {
	if err := setBoolEnv("PUSHCTL_METRICS_ENABLED", func(b bool) { cfg.MetricsEnabled = b }); err != nil {
		return err
	}
	if v := os.Getenv("PUSHCTL_METRICS_PORT"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PUSHCTL_METRICS_PORT: %w", err)
		}
		cfg.MetricsPort = p
	}
	return nil
}

func applyDeviceEnv(cfg *Config) error {
	if err := setBoolEnv("PUSHCTL_DEVICE_PHYSICAL", func(b bool) { cfg.Device.Physical = b }); err != nil {
		return err
	}
	if err := setBoolEnv("PUSHCTL_DEVICE_GRANT_ON_REQUEST", func(b bool) { cfg.Device.GrantOnRequest = b }); err != nil {
		return err
	}
	if v := os.Getenv("PUSHCTL_DEVICE_OS"); v != "" {
		cfg.Device.OS = strings.ToLower(v)
	}
	if v := os.Getenv("PUSHCTL_DEVICE_PERMISSION"); v != "" {
		cfg.Device.Permission = strings.ToLower(v)
	}
	return nil
}

// setBoolEnv is a small helper to parse boolean environment variables
func setBoolEnv(env string, setter func(bool)) error {
	if v := os.Getenv(env); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", env, err)
		}
		setter(b)
	}
	return nil
}

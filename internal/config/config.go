package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Delivery modes for the notification sender.
const (
	ModeLocal  = "local"
	ModeRemote = "remote"
)

// Config holds runtime configuration for the push client
type Config struct {
	// API endpoints (auth + remote send)
	APIBaseURL  string        `json:"api_base_url" yaml:"api_base_url"`
	AuthPath    string        `json:"auth_path" yaml:"auth_path"`
	SendPath    string        `json:"send_path" yaml:"send_path"`
	HTTPTimeout time.Duration `json:"http_timeout" yaml:"http_timeout"` // 0 disables the client timeout

	// DeliveryMode selects the sender path: "local" or "remote"
	DeliveryMode string `json:"delivery_mode" yaml:"delivery_mode"`

	// Manifest is the static app configuration that carries the project id
	Manifest Manifest `json:"manifest" yaml:"manifest"`

	// Channel used on platforms that require explicit notification channels.
	// An empty ID picks the default for the delivery mode.
	Channel Channel `json:"channel" yaml:"channel"`

	// Foreground presentation policy, applied once at startup
	Foreground Foreground `json:"foreground" yaml:"foreground"`

	LocalIdentifier    string  `json:"local_identifier" yaml:"local_identifier"`
	LocalNotification  Content `json:"local_notification" yaml:"local_notification"`
	RemoteNotification Content `json:"remote_notification" yaml:"remote_notification"`

	// Secure storage
	StateDir        string `json:"state_dir" yaml:"state_dir"`
	StatePassphrase string `json:"state_passphrase" yaml:"state_passphrase"`

	LogLevel string `json:"log_level" yaml:"log_level"`
	LogFile  string `json:"log_file" yaml:"log_file"`

	// Metrics
	MetricsEnabled bool `json:"metrics_enabled" yaml:"metrics_enabled"`
	MetricsPort    int  `json:"metrics_port" yaml:"metrics_port"`

	// Device simulation for the loopback platform
	Device Device `json:"device" yaml:"device"`
}

// Manifest mirrors the two places an app build can carry its project id.
type Manifest struct {
	Expo ExpoConfig `json:"expo" yaml:"expo"`
	EAS  EASConfig  `json:"eas" yaml:"eas"`
}

type ExpoConfig struct {
	Extra struct {
		EAS EASConfig `json:"eas" yaml:"eas"`
	} `json:"extra" yaml:"extra"`
}

type EASConfig struct {
	ProjectID string `json:"project_id" yaml:"project_id"`
}

// ProjectID returns the primary project id (expo.extra.eas) and falls back to
// the top-level eas block.
func (m Manifest) ProjectID() (string, bool) {
	if id := strings.TrimSpace(m.Expo.Extra.EAS.ProjectID); id != "" {
		return id, true
	}
	if id := strings.TrimSpace(m.EAS.ProjectID); id != "" {
		return id, true
	}
	return "", false
}

type Channel struct {
	ID               string  `json:"id" yaml:"id"`
	Name             string  `json:"name" yaml:"name"`
	VibrationPattern []int64 `json:"vibration_pattern" yaml:"vibration_pattern"`
	LightColor       string  `json:"light_color" yaml:"light_color"`
}

type Foreground struct {
	ShowAlert bool `json:"show_alert" yaml:"show_alert"`
	PlaySound bool `json:"play_sound" yaml:"play_sound"`
	SetBadge  bool `json:"set_badge" yaml:"set_badge"`
}

type Content struct {
	Title string         `json:"title" yaml:"title"`
	Body  string         `json:"body" yaml:"body"`
	Data  map[string]any `json:"data" yaml:"data"`
	Sound string         `json:"sound" yaml:"sound"`
}

type Device struct {
	Physical   bool   `json:"physical" yaml:"physical"`
	OS         string `json:"os" yaml:"os"`                 // "android" or "ios"
	Permission string `json:"permission" yaml:"permission"` // "granted", "denied", "undetermined"
	// GrantOnRequest decides the answer to the permission dialog
	GrantOnRequest bool `json:"grant_on_request" yaml:"grant_on_request"`
}

// DefaultConfig returns a sane default configuration
func DefaultConfig() *Config {
	return &Config{
		AuthPath:     "/auth",
		SendPath:     "/send-notification",
		HTTPTimeout:  15 * time.Second,
		DeliveryMode: ModeRemote,
		Channel: Channel{
			VibrationPattern: []int64{0, 250, 250, 250},
			LightColor:       "#FF231F7C",
		},
		Foreground:      Foreground{ShowAlert: true, PlaySound: true, SetBadge: true},
		LocalIdentifier: "pizza-notification",
		LocalNotification: Content{
			Title: "The pizzas are here! 🍕",
			Body:  "Pizza pizza 🍕",
			Data:  map[string]any{"data": "goes here", "test": map[string]any{"test1": "more data"}},
			Sound: "default",
		},
		RemoteNotification: Content{
			Title: "Notification 🔔",
			Body:  "Hot-N-Ready!",
			Data:  map[string]any{"customData": "some data"},
		},
		LogLevel:    "info",
		MetricsPort: 9091,
		Device: Device{
			Physical:       true,
			OS:             "android",
			Permission:     "undetermined",
			GrantOnRequest: true,
		},
	}
}

// Channel identifiers used when the config leaves channel.id empty.
const (
	LocalChannelID   = "myNotificationChannel"
	LocalChannelName = "Notification channel"
	RemoteChannelID  = "default"
)

// ResolvedChannel returns the channel with the mode-specific defaults filled in.
func (c *Config) ResolvedChannel() Channel {
	ch := c.Channel
	if ch.ID == "" {
		if c.DeliveryMode == ModeLocal {
			ch.ID = LocalChannelID
			if ch.Name == "" {
				ch.Name = LocalChannelName
			}
		} else {
			ch.ID = RemoteChannelID
		}
	}
	if ch.Name == "" {
		ch.Name = ch.ID
	}
	return ch
}

// Endpoint joins the API base URL with path.
func (c *Config) Endpoint(path string) string {
	return strings.TrimRight(c.APIBaseURL, "/") + "/" + strings.TrimLeft(path, "/")
}

// Validate returns a list of non-fatal configuration warnings.
func (c *Config) Validate() []string {
	var warnings []string
	checks := []struct {
		cond bool
		msg  string
	}{
		{c.APIBaseURL == "", "api_base_url is empty: sign-in and remote send will fail"},
		{c.DeliveryMode != ModeLocal && c.DeliveryMode != ModeRemote, fmt.Sprintf("unknown delivery_mode %q (expected local or remote)", c.DeliveryMode)},
		{c.LocalIdentifier == "", "local_identifier is empty: scheduled notifications cannot replace each other"},
		{c.HTTPTimeout < 0, "http_timeout is negative"},
	}
	for _, ch := range checks {
		if ch.cond {
			warnings = append(warnings, ch.msg)
		}
	}
	if _, ok := c.Manifest.ProjectID(); !ok {
		warnings = append(warnings, "no project id in manifest.expo.extra.eas or manifest.eas: push registration will fail")
	}
	if c.APIBaseURL != "" {
		if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			warnings = append(warnings, fmt.Sprintf("invalid api_base_url: %q", c.APIBaseURL))
		}
	}
	return warnings
}

// LoadConfigFromFile loads config from a YAML/JSON file. A data map given in
// the file replaces the default one instead of being merged into it.
func LoadConfigFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	localData, remoteData := cfg.LocalNotification.Data, cfg.RemoteNotification.Data
	cfg.LocalNotification.Data, cfg.RemoteNotification.Data = nil, nil
	if err := yaml.Unmarshal(b, cfg); err != nil {
		return nil, err
	}
	if cfg.LocalNotification.Data == nil {
		cfg.LocalNotification.Data = localData
	}
	if cfg.RemoteNotification.Data == nil {
		cfg.RemoteNotification.Data = remoteData
	}
	return cfg, nil
}

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/Cortado-Group/website-watchdog/internal/storage"
)

const (
	AppName               = "watchdog"
	DefaultMethod         = "GET"
	DefaultExpectedStatus = 200
	DefaultTimeout        = 10
	DefaultSlackChannel   = "#alerts"
	DefaultEmailEscalate  = 3
	DefaultSMSEscalate    = 5
	DefaultSMSMethod      = "email_gateway"
)

// Config is the full watchdog configuration: monitored targets plus
// per-channel alert settings.
type Config struct {
	Targets []TargetConfig `yaml:"targets"`
	Alerts  AlertsConfig   `yaml:"alerts"`
}

// TargetConfig is one monitored endpoint as declared in YAML.
type TargetConfig struct {
	Name           string   `yaml:"name"`
	URL            string   `yaml:"url"`
	Method         string   `yaml:"method"`
	ExpectedStatus int      `yaml:"expected_status"`
	Timeout        int      `yaml:"timeout"`
	Contains       string   `yaml:"contains"`
	Enabled        *bool    `yaml:"enabled"`
	AlertChannels  []string `yaml:"alert_channels"`
}

// ToTarget converts the declaration into a storage row, applying defaults.
func (t TargetConfig) ToTarget() storage.Target {
	method := t.Method
	if method == "" {
		method = DefaultMethod
	}
	expected := t.ExpectedStatus
	if expected == 0 {
		expected = DefaultExpectedStatus
	}
	timeout := t.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	enabled := true
	if t.Enabled != nil {
		enabled = *t.Enabled
	}
	channels := t.AlertChannels
	if len(channels) == 0 {
		channels = []string{string(storage.ChannelSlack)}
	}
	parsed := make([]storage.AlertChannel, 0, len(channels))
	for _, ch := range channels {
		parsed = append(parsed, storage.AlertChannel(ch))
	}

	return storage.Target{
		Name:           t.Name,
		URL:            t.URL,
		Method:         method,
		ExpectedStatus: expected,
		Timeout:        timeout,
		Contains:       t.Contains,
		Enabled:        enabled,
		AlertChannels:  storage.JoinChannels(parsed),
	}
}

// AlertsConfig holds per-channel notification settings.
type AlertsConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Email   EmailConfig   `yaml:"email"`
	SMS     SMSConfig     `yaml:"sms"`
	Desktop DesktopConfig `yaml:"desktop"`
}

type SlackConfig struct {
	Enabled bool   `yaml:"enabled"`
	Channel string `yaml:"channel"`
}

type EmailConfig struct {
	Enabled       bool     `yaml:"enabled"`
	EscalateAfter int      `yaml:"escalate_after"`
	Recipients    []string `yaml:"recipients"`
}

type SMSConfig struct {
	Enabled       bool     `yaml:"enabled"`
	EscalateAfter int      `yaml:"escalate_after"`
	Method        string   `yaml:"method"`
	Recipients    []string `yaml:"recipients"`
}

// DesktopConfig enables a local heads-up notification alongside the tracked
// channels. It is never recorded on incidents.
type DesktopConfig struct {
	Enabled bool `yaml:"enabled"`
}

// Load reads and parses the YAML config at path. Missing fields are filled
// with defaults before validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %q: %w", path, err)
	}

	cfg := defaults()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("config: parse yaml: %w", err)
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}

	return cfg, nil
}

// LoadEnv loads a .env file into the process environment. A missing file is
// not an error; shipped environments set variables directly.
func LoadEnv(path string) {
	if path == "" {
		return
	}
	if _, err := os.Stat(path); err != nil {
		return
	}
	_ = godotenv.Load(path)
}

func defaults() *Config {
	return &Config{
		Alerts: AlertsConfig{
			Slack: SlackConfig{
				Enabled: true,
				Channel: DefaultSlackChannel,
			},
			Email: EmailConfig{
				Enabled:       true,
				EscalateAfter: DefaultEmailEscalate,
			},
			SMS: SMSConfig{
				Enabled:       false,
				EscalateAfter: DefaultSMSEscalate,
				Method:        DefaultSMSMethod,
			},
		},
	}
}

func validate(cfg *Config) error {
	names := make(map[string]struct{}, len(cfg.Targets))
	for i, t := range cfg.Targets {
		if t.Name == "" {
			return fmt.Errorf("targets[%d]: name is required", i)
		}
		if t.URL == "" {
			return fmt.Errorf("target %q: url is required", t.Name)
		}
		if _, dup := names[t.Name]; dup {
			return fmt.Errorf("target %q: duplicate name", t.Name)
		}
		names[t.Name] = struct{}{}
		if t.Timeout < 0 {
			return fmt.Errorf("target %q: timeout must not be negative", t.Name)
		}
		for _, ch := range t.AlertChannels {
			if !storage.KnownChannel(storage.AlertChannel(ch)) {
				return fmt.Errorf("target %q: unknown alert channel %q: want slack|email|sms", t.Name, ch)
			}
		}
	}

	if cfg.Alerts.Email.EscalateAfter < 1 {
		return fmt.Errorf("alerts.email.escalate_after must be at least 1")
	}
	if cfg.Alerts.SMS.EscalateAfter < 1 {
		return fmt.Errorf("alerts.sms.escalate_after must be at least 1")
	}
	switch cfg.Alerts.SMS.Method {
	case "twilio", "email_gateway":
	default:
		return fmt.Errorf("alerts.sms.method %q unknown: want twilio|email_gateway", cfg.Alerts.SMS.Method)
	}

	return nil
}

// GetConfigDir returns the per-user config directory, creating it if needed.
func GetConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}

	configDir := filepath.Join(home, ".config", AppName)
	if err := os.MkdirAll(configDir, 0755); err != nil {
		return "", err
	}

	return configDir, nil
}

// GetDatabasePath returns the default sqlite database location.
func GetDatabasePath() (string, error) {
	configDir, err := GetConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "watchdog.db"), nil
}

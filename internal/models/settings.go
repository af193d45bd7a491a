package models

import "time"

// DefaultServerURL is the remote service base path used when nothing else
// is configured.
const DefaultServerURL = "http://localhost:8000/api"

// ServerConfig describes how to reach the remote service.
type ServerConfig struct {
	URL      string `yaml:"url"`
	LogLines int    `yaml:"log_lines"` // 0 = engine default
}

// PollingConfig holds the refresh periods in milliseconds.
type PollingConfig struct {
	StatusIntervalMS int `yaml:"status_interval_ms"`
	LogsIntervalMS   int `yaml:"logs_interval_ms"`
}

// TelemetryConfig holds opt-in usage reporting settings.
type TelemetryConfig struct {
	Enabled   bool   `yaml:"enabled"`
	APIKey    string `yaml:"api_key,omitempty"`
	Endpoint  string `yaml:"endpoint,omitempty"`
	InstallID string `yaml:"install_id,omitempty"`
}

// Settings represents the console's own settings.
// This corresponds to ~/.dropdeck/settings.yaml.
type Settings struct {
	Version   int             `yaml:"version"`
	Server    ServerConfig    `yaml:"server"`
	Polling   PollingConfig   `yaml:"polling"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// NewSettings creates settings with default values.
func NewSettings() *Settings {
	return &Settings{
		Version: 1,
		Server: ServerConfig{
			URL: DefaultServerURL,
		},
		Polling: PollingConfig{
			StatusIntervalMS: 5000,
			LogsIntervalMS:   5000,
		},
		Telemetry: TelemetryConfig{
			Enabled:  false,
			Endpoint: "https://us.i.posthog.com",
		},
	}
}

// Refresh period bounds.
const (
	DefaultPollInterval = 5 * time.Second
	MinPollInterval     = time.Second
)

// StatusInterval returns the status poll period. Unset means
// DefaultPollInterval; anything shorter than MinPollInterval is raised to it.
func (s *Settings) StatusInterval() time.Duration {
	return clampInterval(s.Polling.StatusIntervalMS)
}

// LogsInterval returns the log poll period, see StatusInterval.
func (s *Settings) LogsInterval() time.Duration {
	return clampInterval(s.Polling.LogsIntervalMS)
}

func clampInterval(ms int) time.Duration {
	if ms <= 0 {
		return DefaultPollInterval
	}
	d := time.Duration(ms) * time.Millisecond
	if d < MinPollInterval {
		return MinPollInterval
	}
	return d
}

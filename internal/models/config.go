package models

import (
	"fmt"
	"regexp"
)

// Schedule frequencies understood by the remote scheduler.
const (
	FrequencyDaily  = "daily"
	FrequencyHourly = "hourly"
)

// AESKeyLength is the length of a WeCom EncodingAESKey.
const AESKeyLength = 43

// WeComConfig holds the WeCom application credentials and recipients.
type WeComConfig struct {
	CorpID  string `json:"corpid" yaml:"corpid" toml:"corpid"`
	Secret  string `json:"secret" yaml:"secret" toml:"secret"`
	AgentID string `json:"agentid" yaml:"agentid" toml:"agentid"`
	ToUser  string `json:"touser" yaml:"touser" toml:"touser"`   // "|"-separated user IDs or "@all"
	ToParty string `json:"toparty" yaml:"toparty" toml:"toparty"` // "|"-separated party IDs

	// Callback verification, both optional.
	Token  string `json:"token,omitempty" yaml:"token,omitempty" toml:"token,omitempty"`
	AESKey string `json:"aes_key,omitempty" yaml:"aes_key,omitempty" toml:"aes_key,omitempty"`
}

// ScheduleConfig controls the remote scheduler.
type ScheduleConfig struct {
	Enabled   bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Time      string `json:"time" yaml:"time" toml:"time"`                // HH:MM
	Frequency string `json:"frequency" yaml:"frequency" toml:"frequency"` // "daily" | "hourly"
}

// Config is the remote automation configuration served by GET /config.
type Config struct {
	MonitorFolder string         `json:"monitor_folder" yaml:"monitor_folder" toml:"monitor_folder"`
	WeCom         WeComConfig    `json:"wecom" yaml:"wecom" toml:"wecom"`
	Schedule      ScheduleConfig `json:"schedule" yaml:"schedule" toml:"schedule"`
}

// NewConfig returns the configuration the remote engine starts with.
func NewConfig() *Config {
	return &Config{
		WeCom: WeComConfig{
			ToUser: "@all",
		},
		Schedule: ScheduleConfig{
			Enabled:   false,
			Time:      "09:00",
			Frequency: FrequencyDaily,
		},
	}
}

// Clone returns a copy that can be edited as a draft.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	cp := *c
	return &cp
}

var scheduleTimeRe = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// Validate returns the problems found in a draft. An empty result means the
// draft looks acceptable to the remote engine.
func (c *Config) Validate() []error {
	var errs []error
	if c.Schedule.Enabled && !scheduleTimeRe.MatchString(c.Schedule.Time) {
		errs = append(errs, fmt.Errorf("schedule time %q is not HH:MM", c.Schedule.Time))
	}
	switch c.Schedule.Frequency {
	case FrequencyDaily, FrequencyHourly:
	default:
		errs = append(errs, fmt.Errorf("unknown schedule frequency %q (expected %s or %s)",
			c.Schedule.Frequency, FrequencyDaily, FrequencyHourly))
	}
	if c.WeCom.AESKey != "" && len(c.WeCom.AESKey) != AESKeyLength {
		errs = append(errs, fmt.Errorf("aes_key is %d characters, expected %d", len(c.WeCom.AESKey), AESKeyLength))
	}
	return errs
}

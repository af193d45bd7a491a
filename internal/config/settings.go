package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/watchfire-io/dropdeck/internal/models"
)

// LoadSettings loads the console settings from ~/.dropdeck/settings.yaml.
// If the file doesn't exist, returns default settings. DROPDECK_SERVER
// overrides the server URL.
func LoadSettings() (*models.Settings, error) {
	path, err := GlobalSettingsFile()
	if err != nil {
		return nil, err
	}
	settings, err := LoadYAMLOrDefault(path, models.NewSettings)
	if err != nil {
		return nil, err
	}
	if env := os.Getenv(ServerEnv); env != "" {
		settings.Server.URL = env
	}
	if settings.Server.URL == "" {
		settings.Server.URL = models.DefaultServerURL
	}
	return settings, nil
}

// SaveSettings saves the console settings to ~/.dropdeck/settings.yaml.
func SaveSettings(settings *models.Settings) error {
	path, err := GlobalSettingsFile()
	if err != nil {
		return err
	}
	return SaveYAML(path, settings)
}

// EnsureInstallID assigns an anonymous install ID if the settings lack one
// and persists it. It returns the ID.
func EnsureInstallID(settings *models.Settings) (string, error) {
	if settings.Telemetry.InstallID != "" {
		return settings.Telemetry.InstallID, nil
	}
	settings.Telemetry.InstallID = uuid.NewString()
	if err := SaveSettings(settings); err != nil {
		return "", fmt.Errorf("failed to save install id: %w", err)
	}
	return settings.Telemetry.InstallID, nil
}

// NormalizeServerURL validates a server base URL and strips trailing slashes.
func NormalizeServerURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid server URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("invalid server URL %q: scheme must be http or https", raw)
	}
	if u.Host == "" {
		return "", fmt.Errorf("invalid server URL %q: missing host", raw)
	}
	return strings.TrimRight(raw, "/"), nil
}

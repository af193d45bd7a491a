// Package config handles console settings, config drafts, logging setup, and
// path management.
package config

import (
	"os"
	"path/filepath"
)

const (
	// GlobalDirName is the name of the console's directory under $HOME.
	GlobalDirName = ".dropdeck"

	// HomeEnv overrides the console directory when set.
	HomeEnv = "DROPDECK_HOME"

	// ServerEnv overrides the configured server URL when set.
	ServerEnv = "DROPDECK_SERVER"
)

// File names
const (
	SettingsFileName = "settings.yaml"
	LogFileName      = "console.log"
)

// GlobalDir returns the path to the console directory (~/.dropdeck/).
func GlobalDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, GlobalDirName), nil
}

// GlobalSettingsFile returns the path to the settings.yaml file.
func GlobalSettingsFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, SettingsFileName), nil
}

// GlobalLogFile returns the path to the console's diagnostic log.
func GlobalLogFile() (string, error) {
	dir, err := GlobalDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, LogFileName), nil
}

// EnsureGlobalDir creates the console directory if it doesn't exist.
func EnsureGlobalDir() error {
	dir, err := GlobalDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

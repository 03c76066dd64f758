package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// DefaultConfigPath returns the platform config file location.
//
//   - Windows: %APPDATA%\subfolder-loader\loader.conf
//   - Unix: ~/.config/subfolder-loader/loader.conf
func DefaultConfigPath() (string, error) {
	if runtime.GOOS == "windows" {
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "subfolder-loader", "loader.conf"), nil
		}
	}

	configDir, err := os.UserConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(configDir, "subfolder-loader", "loader.conf"), nil
}

// DefaultInputDir returns the image root used when none is configured:
// the "input" directory under the current working directory.
func DefaultInputDir() string {
	wd, err := os.Getwd()
	if err != nil {
		return "input"
	}
	return filepath.Join(wd, "input")
}

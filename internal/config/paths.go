package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
)

// Environment overrides for grip's directories.
const (
	EnvConfigDir = "GRIP_CONFIG_DIR"
	EnvDataDir   = "GRIP_DATA_DIR"
)

// ConfigDir returns the directory holding config.lua: GRIP_CONFIG_DIR, else
// the user config directory plus "grip".
func ConfigDir() (string, error) {
	if dir := os.Getenv(EnvConfigDir); dir != "" {
		return filepath.Abs(dir)
	}
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("determine config directory: %w", err)
	}
	return filepath.Join(base, "grip"), nil
}

// DataDir returns grip's data directory: GRIP_DATA_DIR, else
// $XDG_DATA_HOME/grip, else the platform default.
func DataDir() (string, error) {
	if dir := os.Getenv(EnvDataDir); dir != "" {
		return filepath.Abs(dir)
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" && filepath.IsAbs(xdg) {
		return filepath.Join(xdg, "grip"), nil
	}
	return defaultDataDir(runtime.GOOS)
}

func defaultDataDir(goos string) (string, error) {
	if goos == "windows" {
		if local := os.Getenv("LOCALAPPDATA"); local != "" {
			return filepath.Join(local, "grip"), nil
		}
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determine home directory: %w", err)
	}

	switch goos {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "grip"), nil
	case "windows":
		return filepath.Join(home, "AppData", "Local", "grip"), nil
	default:
		return filepath.Join(home, ".local", "share", "grip"), nil
	}
}

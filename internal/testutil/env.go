// Package testutil provides utilities for testing grip in isolation.
package testutil

import (
	"os"
	"path/filepath"
	"testing"
)

// Env holds the isolated locations set up by SetupTestEnv.
type Env struct {
	Root      string
	ConfigDir string
	DataDir   string
	RCFile    string
}

// SetupTestEnv points every grip location at a fresh temporary directory so
// tests never touch the user's config, data directory, shell rc files or
// GitHub credentials. t.TempDir handles cleanup.
func SetupTestEnv(t *testing.T) *Env {
	t.Helper()

	tmpDir := t.TempDir()
	env := &Env{
		Root:      tmpDir,
		ConfigDir: filepath.Join(tmpDir, "config"),
		DataDir:   filepath.Join(tmpDir, "data"),
		RCFile:    filepath.Join(tmpDir, "home", ".bashrc"),
	}

	t.Setenv("GRIP_CONFIG_DIR", env.ConfigDir)
	t.Setenv("GRIP_DATA_DIR", env.DataDir)
	t.Setenv("GRIP_RC_FILE", env.RCFile)
	t.Setenv("HOME", filepath.Join(tmpDir, "home"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(tmpDir, "xdg"))
	t.Setenv("SHELL", "/bin/bash")

	// Never authenticate against the real API from tests.
	t.Setenv("GRIP_GITHUB_TOKEN", "")
	t.Setenv("GITHUB_TOKEN", "")
	t.Setenv("GRIP_DEBUG", "")

	for _, dir := range []string{env.ConfigDir, env.DataDir, filepath.Dir(env.RCFile)} {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			t.Fatalf("failed to create test directory %s: %v", dir, err)
		}
	}
	return env
}

package testutil_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ZebulonRouseFrantzich/grip/internal/testutil"
)

func TestSetupTestEnv(t *testing.T) {
	env := testutil.SetupTestEnv(t)

	vars := map[string]string{
		"GRIP_CONFIG_DIR": env.ConfigDir,
		"GRIP_DATA_DIR":   env.DataDir,
		"GRIP_RC_FILE":    env.RCFile,
	}
	for name, want := range vars {
		if got := os.Getenv(name); got != want {
			t.Errorf("%s = %q, want %q", name, got, want)
		}
		if !strings.HasPrefix(want, env.Root) {
			t.Errorf("%s = %q is outside the test root %q", name, want, env.Root)
		}
	}

	for _, name := range []string{"GRIP_GITHUB_TOKEN", "GITHUB_TOKEN"} {
		if os.Getenv(name) != "" {
			t.Errorf("%s should be cleared", name)
		}
	}

	for _, dir := range []string{env.ConfigDir, env.DataDir, filepath.Dir(env.RCFile)} {
		info, err := os.Stat(dir)
		if err != nil {
			t.Errorf("directory %s not created: %v", dir, err)
			continue
		}
		if !info.IsDir() {
			t.Errorf("%s is not a directory", dir)
		}
	}

	if _, err := os.Stat(env.RCFile); !os.IsNotExist(err) {
		t.Errorf("rc file should not exist yet: %v", err)
	}
}

func TestSetupTestEnvIsolation(t *testing.T) {
	var first, second string

	t.Run("first", func(t *testing.T) {
		first = testutil.SetupTestEnv(t).DataDir
	})
	t.Run("second", func(t *testing.T) {
		second = testutil.SetupTestEnv(t).DataDir
	})

	if first == second {
		t.Errorf("subtests shared data directory %s", first)
	}
}

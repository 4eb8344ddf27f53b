//go:build !windows

package shell

import (
	"context"
	"fmt"
	"os"

	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

func newPlatformManager(ctx context.Context) (PathManager, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("get home directory: %w", err)
	}

	detection := DetectShell(ctx)
	rc := RCFilePath(detection.Shell, home)
	log.Debug("detected shell", "shell", detection.Shell, "method", detection.Method, "rc", rc)
	return NewRCFileManager(rc, detection.Shell), nil
}

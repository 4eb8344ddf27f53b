package shell

import (
	"context"
	"os"

	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// PathManager persistently adds and removes directories on the user's PATH.
type PathManager interface {
	AddToPath(dir string) (*Result, error)
	RemoveFromPath(dir string) (*Result, error)
}

// NewPathManager returns the PathManager for this host. GRIP_RC_FILE selects
// an rc file manager on every platform; its syntax follows the detected
// shell.
func NewPathManager(ctx context.Context) (PathManager, error) {
	if rc := os.Getenv(EnvRCFile); rc != "" {
		detection := DetectShell(ctx)
		log.Debug("using rc file override", "path", rc, "shell", detection.Shell)
		return NewRCFileManager(rc, detection.Shell), nil
	}
	return newPlatformManager(ctx)
}

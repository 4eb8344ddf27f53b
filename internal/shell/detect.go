package shell

import (
	"context"
	"os"
	"strings"

	"github.com/shirou/gopsutil/v4/process"
)

// maxParentDepth bounds how far up the process tree detection looks.
const maxParentDepth = 3

// DetectShell determines the user's shell from $SHELL, falling back to the
// names of the parent processes. It never fails; an unrecognised shell is
// reported as ShellPOSIX.
func DetectShell(ctx context.Context) *DetectionResult {
	if sh := os.Getenv("SHELL"); sh != "" {
		if shellType, ok := parseShellFromPath(sh); ok {
			return &DetectionResult{
				Shell:     shellType,
				Method:    "$SHELL environment variable",
				ShellPath: sh,
			}
		}
	}

	if shellType, name, ok := detectFromParentProcess(ctx); ok {
		return &DetectionResult{
			Shell:     shellType,
			Method:    "parent process",
			ShellPath: name,
		}
	}

	return &DetectionResult{
		Shell:  ShellPOSIX,
		Method: "fallback",
	}
}

// parseShellFromPath extracts the shell type from a shell binary path such as
// /usr/bin/zsh or a login-shell process name such as -bash.
func parseShellFromPath(shellPath string) (ShellType, bool) {
	base := shellPath
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	base = strings.ToLower(base)
	base = strings.TrimPrefix(base, "-")
	base = strings.TrimSuffix(base, ".exe")

	switch base {
	case "bash":
		return ShellBash, true
	case "zsh":
		return ShellZsh, true
	case "fish":
		return ShellFish, true
	case "sh", "dash", "ksh", "mksh", "ash":
		return ShellPOSIX, true
	default:
		return "", false
	}
}

// detectFromParentProcess walks up from grip's parent process looking for a
// recognisable shell.
func detectFromParentProcess(ctx context.Context) (ShellType, string, bool) {
	proc, err := process.NewProcessWithContext(ctx, int32(os.Getppid()))
	if err != nil {
		return "", "", false
	}

	for depth := 0; depth < maxParentDepth && proc != nil; depth++ {
		name, err := proc.NameWithContext(ctx)
		if err != nil {
			return "", "", false
		}
		if shellType, ok := parseShellFromPath(name); ok {
			return shellType, name, true
		}
		proc, err = proc.ParentWithContext(ctx)
		if err != nil {
			return "", "", false
		}
	}
	return "", "", false
}

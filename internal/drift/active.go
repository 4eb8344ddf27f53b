package drift

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/ZebulonRouseFrantzich/grip/internal/ledger"
)

// QueryManaged turns ledger entries into tools, checking that each recorded
// executable (or install directory when no executable was recorded) still
// exists.
func QueryManaged(entries []ledger.Entry) []Tool {
	tools := make([]Tool, 0, len(entries))
	for _, e := range entries {
		path := e.ExecutablePath
		if path == "" {
			path = e.InstallPath
		}
		_, err := os.Stat(path)
		tools = append(tools, Tool{
			Name:       e.Name,
			Version:    e.Version,
			Executable: executableName(e),
			Path:       path,
			Present:    path != "" && err == nil,
		})
	}
	return tools
}

func executableName(e ledger.Entry) string {
	if e.ExecutablePath == "" {
		return e.Name
	}
	base := filepath.Base(e.ExecutablePath)
	if runtime.GOOS == "windows" {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return base
}

// QueryActive looks up each tool's executable in pathEnv, a PATH-style list,
// and returns the tools that were found with the resolved location.
func QueryActive(tools []Tool, pathEnv string) []Tool {
	var active []Tool
	for _, t := range tools {
		name := t.Executable
		if name == "" {
			name = t.Name
		}
		path, ok := lookPath(name, pathEnv)
		if !ok {
			continue
		}
		if resolved, err := filepath.EvalSymlinks(path); err == nil {
			path = resolved
		}
		active = append(active, Tool{Name: t.Name, Executable: name, Path: path, Present: true})
	}
	return active
}

// lookPath is exec.LookPath against an explicit PATH value.
func lookPath(name, pathEnv string) (string, bool) {
	candidates := []string{name}
	if runtime.GOOS == "windows" && filepath.Ext(name) == "" {
		candidates = []string{name + ".exe", name + ".cmd", name + ".bat"}
	}
	for _, dir := range filepath.SplitList(pathEnv) {
		if dir == "" {
			continue
		}
		for _, c := range candidates {
			path := filepath.Join(dir, c)
			if isExecutable(path) {
				return path, true
			}
		}
	}
	return "", false
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	if runtime.GOOS == "windows" {
		return true
	}
	return info.Mode().Perm()&0o111 != 0
}

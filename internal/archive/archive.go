// Package archive turns a downloaded release asset into an installed file
// tree. Archives (.zip, .tar.gz, .tgz) are extracted and removed; anything
// else is treated as a single raw executable and renamed in place.
package archive

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// Kind classifies a downloaded asset.
type Kind string

const (
	KindZip   Kind = "zip"
	KindTarGz Kind = "tar.gz"
	KindRaw   Kind = "raw"
)

// IsArchive reports whether the kind needs extraction.
func (k Kind) IsArchive() bool {
	return k == KindZip || k == KindTarGz
}

// Classify detects the asset kind from its file name suffix.
func Classify(filename string) Kind {
	lower := strings.ToLower(filename)
	switch {
	case strings.HasSuffix(lower, ".zip"):
		return KindZip
	case strings.HasSuffix(lower, ".tar.gz"), strings.HasSuffix(lower, ".tgz"):
		return KindTarGz
	default:
		return KindRaw
	}
}

// Result describes what Install produced.
type Result struct {
	Kind Kind
	// ExecutablePath is empty when no canonical executable could be named.
	ExecutablePath string
	// Warning is set for non-fatal conditions, such as an archive that
	// contained no file matching the executable name.
	Warning string
}

// Handler installs downloaded assets.
type Handler struct {
	// ExeSuffix is the platform executable suffix (".exe" on Windows).
	ExeSuffix string
}

// NewHandler creates a handler for a platform with the given executable suffix.
func NewHandler(exeSuffix string) *Handler {
	return &Handler{ExeSuffix: exeSuffix}
}

// Install processes downloadedPath, which must live inside targetDir.
// executableName may be empty.
func (h *Handler) Install(downloadedPath, targetDir, executableName string) (*Result, error) {
	info, err := os.Stat(downloadedPath)
	if err != nil {
		return nil, errs.Filesystem("stat", downloadedPath, err)
	}
	if !info.Mode().IsRegular() {
		return nil, errs.Filesystem("stat", downloadedPath, errors.New("not a regular file"))
	}

	kind := Classify(filepath.Base(downloadedPath))
	result := &Result{Kind: kind}

	if !kind.IsArchive() {
		if executableName == "" {
			log.Debug("raw asset kept under downloaded name", "path", downloadedPath)
			return result, nil
		}
		dest, err := h.renameRaw(downloadedPath, executableName)
		if err != nil {
			return nil, err
		}
		result.ExecutablePath = dest
		return result, nil
	}

	switch kind {
	case KindZip:
		err = ExtractZip(downloadedPath, targetDir)
	case KindTarGz:
		err = ExtractTarGz(downloadedPath, targetDir)
	}
	if err != nil {
		return nil, err
	}

	if err := os.Remove(downloadedPath); err != nil {
		return nil, errs.Filesystem("remove", downloadedPath, err)
	}

	if executableName == "" {
		return result, nil
	}

	found, err := h.findExecutable(targetDir, executableName)
	if err != nil {
		return nil, err
	}
	if found == "" {
		result.Warning = fmt.Sprintf("no file named %q found in %s", executableName, filepath.Base(downloadedPath))
		return result, nil
	}

	dest := filepath.Join(targetDir, executableName+keptExtension(filepath.Base(found), executableName))
	if fi, err := os.Stat(dest); err == nil && fi.IsDir() {
		// The archive's top-level directory already carries the name; move it
		// aside so the executable can take the canonical path.
		moved, err := moveAside(dest, found)
		if err != nil {
			return nil, err
		}
		found = moved
	}

	if found != dest {
		if err := copyFile(found, dest, 0755); err != nil {
			return nil, err
		}
	} else if err := SetExecutable(dest); err != nil {
		return nil, err
	}

	result.ExecutablePath = dest
	return result, nil
}

// moveAside renames dir to dir+".d" and returns where found ends up.
func moveAside(dir, found string) (string, error) {
	rel, err := filepath.Rel(dir, found)
	if err != nil {
		return "", fmt.Errorf("locate %s: %w", found, err)
	}
	aside := dir + ".d"
	if _, err := os.Lstat(aside); err == nil {
		return "", errs.Filesystem("rename", dir, fmt.Errorf("%s already exists", filepath.Base(aside)))
	}
	if err := os.Rename(dir, aside); err != nil {
		return "", errs.Filesystem("rename", dir, err)
	}
	return filepath.Join(aside, rel), nil
}

// renameRaw renames a raw asset to executableName, keeping its extension.
func (h *Handler) renameRaw(path, executableName string) (string, error) {
	ext := rawExtension(filepath.Base(path))
	dest := filepath.Join(filepath.Dir(path), executableName+ext)

	if dest != path {
		if err := os.Rename(path, dest); err != nil {
			return "", errs.Filesystem("rename", dest, err)
		}
	}
	if err := SetExecutable(dest); err != nil {
		return "", err
	}
	return dest, nil
}

// extensionPattern matches extensions worth preserving on rename. Version
// fragments such as ".0-linux" in "tool-1.2.0-linux" do not match.
var extensionPattern = regexp.MustCompile(`^\.[A-Za-z][A-Za-z0-9]{0,7}$`)

func rawExtension(name string) string {
	ext := filepath.Ext(name)
	if extensionPattern.MatchString(ext) {
		return ext
	}
	return ""
}

// keptExtension returns the suffix of found beyond executableName, if any.
func keptExtension(found, executableName string) string {
	if found == executableName {
		return ""
	}
	if strings.HasPrefix(found, executableName) {
		rest := found[len(executableName):]
		if extensionPattern.MatchString(rest) {
			return rest
		}
	}
	return ""
}

// findExecutable walks root looking for the artifact that should become the
// canonical executable. Exact names win over platform-suffixed names, which
// win over names carrying any other extension. Shallower paths win ties.
func (h *Handler) findExecutable(root, executableName string) (string, error) {
	candidates := []string{executableName}
	if h.ExeSuffix != "" {
		candidates = append(candidates, executableName+h.ExeSuffix)
	}

	best := ""
	bestRank, bestDepth := 3, 0

	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}

		name := d.Name()
		rank := 3
		for i, c := range candidates {
			if name == c {
				rank = i
				break
			}
		}
		if rank == 3 && keptExtension(name, executableName) != "" {
			rank = 2
		}
		if rank == 3 {
			return nil
		}

		depth := strings.Count(path[len(root):], string(os.PathSeparator))
		if best == "" || rank < bestRank || (rank == bestRank && depth < bestDepth) {
			best, bestRank, bestDepth = path, rank, depth
		}
		return nil
	})
	if err != nil {
		return "", errs.Filesystem("walk", root, err)
	}
	return best, nil
}

func copyFile(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return errs.Filesystem("open", src, err)
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return errs.Filesystem("create", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return errs.Filesystem("write", dst, err)
	}
	if err := out.Close(); err != nil {
		return errs.Filesystem("close", dst, err)
	}
	return SetExecutable(dst)
}

// SetExecutable sets executable permissions on a file
func SetExecutable(path string) error {
	if err := os.Chmod(path, 0755); err != nil {
		return errs.Filesystem("chmod", path, err)
	}
	return nil
}

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/ledger"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
	"github.com/ZebulonRouseFrantzich/grip/internal/shell"
)

// List returns the installed packages sorted by name.
func (in *Installer) List(ctx context.Context) ([]ledger.Entry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	state, err := ledger.Load(in.dataDir)
	if err != nil {
		return nil, err
	}
	return state.List(), nil
}

// UninstallResult describes a removed package.
type UninstallResult struct {
	Name    string
	Version string
	Path    *shell.Result
}

// Uninstall removes a package's files, its PATH entry and its ledger entry.
func (in *Installer) Uninstall(ctx context.Context, name string) (*UninstallResult, error) {
	lock, err := in.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	state, err := ledger.Load(in.dataDir)
	if err != nil {
		return nil, err
	}
	pkg, ok := state.Get(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotInstalled, name)
	}

	result := &UninstallResult{Name: name, Version: pkg.Version}
	if pkg.InstallPath != "" {
		pathResult, err := in.paths.RemoveFromPath(pkg.InstallPath)
		if err != nil {
			return nil, fmt.Errorf("remove %s from PATH: %w", pkg.InstallPath, err)
		}
		result.Path = pathResult
	}

	pkgDir := filepath.Join(in.dataDir, PackagesDirName, name)
	if err := os.RemoveAll(pkgDir); err != nil {
		return nil, errs.Filesystem("remove", pkgDir, err)
	}
	if pkg.InstallPath != "" && in.managedPath(pkg.InstallPath) {
		if err := os.RemoveAll(pkg.InstallPath); err != nil {
			return nil, errs.Filesystem("remove", pkg.InstallPath, err)
		}
	}

	state.Remove(name)
	if err := state.Save(in.dataDir); err != nil {
		return nil, err
	}

	log.Debug("package uninstalled", "package", name, "version", pkg.Version)
	return result, nil
}

// ManifestFileName is the project manifest written by Init.
const ManifestFileName = "grip.json"

// DefaultProjectName is used when Init is not given a name.
const DefaultProjectName = "grip-project"

// ErrManifestExists is returned by Init when grip.json is already present.
var ErrManifestExists = errors.New("grip.json already exists")

// Manifest is a project's grip.json.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// InitRequest controls Init.
type InitRequest struct {
	Dir   string
	Name  string
	Force bool
}

// Init writes a boilerplate grip.json into req.Dir and returns its path. An
// existing manifest is only replaced when Force is set.
func (in *Installer) Init(req InitRequest) (string, error) {
	dir := req.Dir
	if dir == "" {
		dir = "."
	}
	path := filepath.Join(dir, ManifestFileName)

	if !req.Force {
		if _, err := os.Stat(path); err == nil {
			return "", fmt.Errorf("%w (use --force to overwrite)", ErrManifestExists)
		}
	}

	name := req.Name
	if name == "" {
		name = DefaultProjectName
	}
	data, err := json.MarshalIndent(Manifest{
		Name:         name,
		Version:      "0.1.0",
		Dependencies: map[string]string{},
	}, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal manifest: %w", err)
	}

	if err := os.WriteFile(path, append(data, '\n'), FilePermissions); err != nil {
		return "", errs.Filesystem("write", path, err)
	}
	return path, nil
}

//go:build windows

package shell

import (
	"context"
	"errors"

	"golang.org/x/sys/windows/registry"
)

const (
	envKeyPath   = `Environment`
	envValueName = "Path"
	envLocation  = `HKCU\Environment\Path`
)

// registryManager edits the per-user Path in the Windows registry. New
// terminals see the change; running ones keep their environment.
type registryManager struct{}

func newPlatformManager(ctx context.Context) (PathManager, error) {
	return &registryManager{}, nil
}

func (m *registryManager) AddToPath(dir string) (*Result, error) {
	changed, err := m.update(func(cur string) (string, bool) {
		return addPathEntry(cur, dir, ";")
	})
	if err != nil {
		return nil, err
	}
	return &Result{Added: changed, Location: envLocation}, nil
}

func (m *registryManager) RemoveFromPath(dir string) (*Result, error) {
	changed, err := m.update(func(cur string) (string, bool) {
		return removePathEntry(cur, dir, ";")
	})
	if err != nil {
		return nil, err
	}
	return &Result{Removed: changed, Location: envLocation}, nil
}

func (m *registryManager) update(fn func(string) (string, bool)) (bool, error) {
	k, err := registry.OpenKey(registry.CURRENT_USER, envKeyPath, registry.QUERY_VALUE|registry.SET_VALUE)
	if err != nil {
		return false, &RCFileError{Path: envLocation, Message: "failed to open registry key", Cause: err}
	}
	defer k.Close()

	cur, _, err := k.GetStringValue(envValueName)
	if err != nil && !errors.Is(err, registry.ErrNotExist) {
		return false, &RCFileError{Path: envLocation, Message: "failed to read value", Cause: err}
	}

	updated, changed := fn(cur)
	if !changed {
		return false, nil
	}
	if err := k.SetExpandStringValue(envValueName, updated); err != nil {
		return false, &RCFileError{Path: envLocation, Message: "failed to write value", Cause: err}
	}
	return true, nil
}

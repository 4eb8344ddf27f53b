package service

import (
	"context"
	"fmt"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/ledger"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// RegistryAdd appends a registry to the configuration. The name must be
// unused and the URL non-empty; nothing is written when validation fails.
func (in *Installer) RegistryAdd(ctx context.Context, name, url string, priority int) error {
	if err := config.ValidateRegistryName(name); err != nil {
		return err
	}
	if err := config.ValidateRegistryURL(url); err != nil {
		return err
	}

	lock, err := in.lock(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = lock.Release() }()

	cfg, err := in.config.Load(ctx)
	if err != nil {
		return err
	}
	if cfg.FindRegistry(name) >= 0 {
		return fmt.Errorf("%w: %s", ErrRegistryAlreadyExists, name)
	}
	if len(cfg.Registries) >= config.MaxRegistryCount {
		return fmt.Errorf("cannot add %s: at most %d registries are supported", name, config.MaxRegistryCount)
	}

	cfg.Registries = append(cfg.Registries, config.Registry{Name: name, URL: url, Priority: priority})
	if err := in.config.Save(cfg); err != nil {
		return fmt.Errorf("save config: %w", err)
	}

	log.Debug("registry added", "name", name, "url", url, "priority", priority)
	return nil
}

// RegistryRemoveResult describes a removed registry.
type RegistryRemoveResult struct {
	Name string
	// Packages lists installed packages that were sourced from the registry.
	// They stay installed.
	Packages []string
}

// RegistryRemove deletes a registry from the configuration and drops its
// cached index. The default registry can never be removed. Installed
// packages are left alone.
func (in *Installer) RegistryRemove(ctx context.Context, name string) (*RegistryRemoveResult, error) {
	if name == config.DefaultRegistryName {
		return nil, ErrCannotRemoveDefaultRegistry
	}

	lock, err := in.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	cfg, err := in.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	idx := cfg.FindRegistry(name)
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrRegistryNotFound, name)
	}

	cfg.Registries = append(cfg.Registries[:idx], cfg.Registries[idx+1:]...)
	if err := in.config.Save(cfg); err != nil {
		return nil, fmt.Errorf("save config: %w", err)
	}
	if err := in.resolver.RemoveCache(name); err != nil {
		return nil, fmt.Errorf("remove cached index of %s: %w", name, err)
	}

	result := &RegistryRemoveResult{Name: name}
	state, err := ledger.Load(in.dataDir)
	if err != nil {
		log.Warn("could not read ledger", "error", err)
		return result, nil
	}
	for _, e := range state.List() {
		if e.Registry == name {
			result.Packages = append(result.Packages, e.Name)
		}
	}

	log.Debug("registry removed", "name", name, "installed_from", len(result.Packages))
	return result, nil
}

// RegistryList returns the configured registries in configuration order.
func (in *Installer) RegistryList(ctx context.Context) ([]config.Registry, error) {
	cfg, err := in.config.Load(ctx)
	if err != nil {
		return nil, err
	}
	return cfg.Registries, nil
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/download"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
	"github.com/ZebulonRouseFrantzich/grip/internal/output"
	"github.com/ZebulonRouseFrantzich/grip/internal/platform"
	"github.com/ZebulonRouseFrantzich/grip/internal/prompt"
	"github.com/ZebulonRouseFrantzich/grip/internal/registry"
	"github.com/ZebulonRouseFrantzich/grip/internal/selection"
	"github.com/ZebulonRouseFrantzich/grip/internal/service"
	"github.com/ZebulonRouseFrantzich/grip/internal/shell"
)

// installerOptions tune how the installer is assembled for one command.
type installerOptions struct {
	yes      bool
	refresh  bool
	progress *output.Progress
	observer service.Observer
}

// newInstaller wires the service layer for the current environment.
func (a *app) newInstaller(ctx context.Context, opts installerOptions) (*service.Installer, error) {
	configDir, err := config.ConfigDir()
	if err != nil {
		return nil, err
	}
	dataDir, err := config.DataDir()
	if err != nil {
		return nil, err
	}
	log.Debug("using directories", "config", configDir, "data", dataDir)

	info, err := platform.NewDetector().Detect(ctx)
	if err != nil {
		return nil, fmt.Errorf("detect platform: %w", err)
	}
	log.Debug("detected platform", "os", info.OS, "arch", info.Arch, "platform", info.Platform)

	store := config.NewStore(configDir, platform.StaticDetector{Info: info})
	cfg, err := store.Load(ctx)
	if err != nil {
		return nil, err
	}

	var fetcherOpts []download.Option
	if opts.progress != nil {
		fetcherOpts = append(fetcherOpts, download.WithProgress(opts.progress.Update))
	}
	resolver, err := registry.NewResolver(dataDir,
		registry.WithTTL(cfg.IndexTTL()),
		registry.WithRefresh(opts.refresh),
		registry.WithFetcher(download.NewFetcher(fetcherOpts...)),
	)
	if err != nil {
		return nil, err
	}

	paths, err := shell.NewPathManager(ctx)
	if err != nil {
		return nil, err
	}

	return service.NewInstaller(service.Deps{
		DataDir:  dataDir,
		Config:   store,
		Resolver: resolver,
		Paths:    paths,
		Chooser:  a.chooser(opts.yes),
		Platform: info,
		Observer: opts.observer,
	}), nil
}

// chooser picks the selection strategy: --yes takes defaults, a terminal
// gets an interactive list, anything else must name its choices.
func (a *app) chooser(yes bool) selection.Chooser {
	switch {
	case yes:
		return selection.FirstChooser{}
	case a.interactive():
		return prompt.NewChooser(a.stdin, a.stderr)
	default:
		return selection.StrictChooser{}
	}
}

// interactive reports whether the process talks to a user on a terminal.
func (a *app) interactive() bool {
	return a.stdin == io.Reader(os.Stdin) && a.stderr == io.Writer(os.Stderr) && prompt.IsInteractive()
}

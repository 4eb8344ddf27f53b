// Package service implements grip's commands on top of the registry,
// selection, download, archive, shell and ledger components.
package service

import (
	"context"
	"fmt"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/ZebulonRouseFrantzich/grip/internal/archive"
	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/github"
	"github.com/ZebulonRouseFrantzich/grip/internal/platform"
	"github.com/ZebulonRouseFrantzich/grip/internal/registry"
	"github.com/ZebulonRouseFrantzich/grip/internal/selection"
	"github.com/ZebulonRouseFrantzich/grip/internal/shell"
	"github.com/ZebulonRouseFrantzich/grip/internal/transaction"
)

const (
	// PackagesDirName holds installed packages under the data directory.
	PackagesDirName = "packages"
	// DirPermissions sets the permission mode for created directories.
	DirPermissions = 0755
	// FilePermissions sets the permission mode for written files.
	FilePermissions = 0644
)

// ConfigStore loads and saves the registry configuration.
type ConfigStore interface {
	Load(ctx context.Context) (*config.Config, error)
	Save(cfg *config.Config) error
}

// Resolver finds packages and fetches their releases and assets.
type Resolver interface {
	FindPackage(ctx context.Context, registries []config.Registry, name string) (*registry.PackageDefinition, error)
	GetReleases(ctx context.Context, repository string) ([]github.Release, error)
	DownloadAsset(ctx context.Context, url, filename, targetDir string) (string, error)
	RemoveCache(name string) error
}

// Extractor turns a downloaded asset into an installed tree.
type Extractor interface {
	Install(downloadedPath, targetDir, executableName string) (*archive.Result, error)
}

// Deps are the collaborators of an Installer. Platform, Chooser, Clock and
// Observer are optional.
type Deps struct {
	DataDir  string
	Config   ConfigStore
	Resolver Resolver
	Archive  Extractor
	Paths    shell.PathManager
	Chooser  selection.Chooser
	Platform *platform.Info
	Clock    Clock
	Observer Observer
}

// Installer runs grip's commands against one data directory.
type Installer struct {
	dataDir  string
	config   ConfigStore
	resolver Resolver
	archive  Extractor
	paths    shell.PathManager
	chooser  selection.Chooser
	platform *platform.Info
	clock    Clock
	observer Observer
}

// NewInstaller creates an installer with dependency injection.
func NewInstaller(d Deps) *Installer {
	in := &Installer{
		dataDir:  d.DataDir,
		config:   d.Config,
		resolver: d.Resolver,
		archive:  d.Archive,
		paths:    d.Paths,
		chooser:  d.Chooser,
		platform: d.Platform,
		clock:    d.Clock,
		observer: d.Observer,
	}
	if in.chooser == nil {
		in.chooser = selection.StrictChooser{}
	}
	if in.clock == nil {
		in.clock = ClockFunc(time.Now)
	}
	if in.archive == nil {
		suffix := ""
		if in.platform != nil {
			suffix = in.platform.ExeSuffix()
		}
		in.archive = archive.NewHandler(suffix)
	}
	return in
}

// PackageDir returns the install directory of one version of a package.
func PackageDir(dataDir, name, version string) string {
	return filepath.Join(dataDir, PackagesDirName, name, pathSegment(version))
}

// lock takes the data-directory lock for a mutating command.
func (in *Installer) lock(ctx context.Context) (*transaction.Lock, error) {
	l, err := transaction.AcquireLock(ctx, in.dataDir)
	if err != nil {
		return nil, fmt.Errorf("acquire lock on %s: %w", in.dataDir, err)
	}
	return l, nil
}

var packageNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.+-]*$`)

func validatePackageName(name string) error {
	if !packageNamePattern.MatchString(name) {
		return fmt.Errorf("invalid package name %q", name)
	}
	return nil
}

// pathSegment makes a release tag safe to use as a single directory name.
func pathSegment(s string) string {
	s = strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':':
			return '_'
		}
		return r
	}, s)
	if s == "" || s == "." || s == ".." {
		return "_" + s
	}
	return s
}

// managedPath reports whether path lies inside the packages directory, so
// ledger paths edited by hand never lead to deleting unrelated files.
func (in *Installer) managedPath(path string) bool {
	root := filepath.Join(in.dataDir, PackagesDirName)
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

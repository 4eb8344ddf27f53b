package service

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/grip/internal/download"
	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/github"
	"github.com/ZebulonRouseFrantzich/grip/internal/ledger"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
	"github.com/ZebulonRouseFrantzich/grip/internal/selection"
	"github.com/ZebulonRouseFrantzich/grip/internal/shell"
	"github.com/ZebulonRouseFrantzich/grip/internal/transaction"
)

// State is a step of the install pipeline.
type State int

const (
	StateResolving State = iota
	StateSelectingRelease
	StateSelectingAsset
	StateDownloading
	StateExtracting
	StatePromoting
	StateUpdatingPath
	StateRecording
	StateDone
	StateFailed
)

var stateNames = [...]string{
	StateResolving:        "resolving",
	StateSelectingRelease: "selecting release",
	StateSelectingAsset:   "selecting asset",
	StateDownloading:      "downloading",
	StateExtracting:       "extracting",
	StatePromoting:        "promoting",
	StateUpdatingPath:     "updating path",
	StateRecording:        "recording",
	StateDone:             "done",
	StateFailed:           "failed",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}
	return fmt.Sprintf("State(%d)", int(s))
}

// Event reports a pipeline transition. Err is set for StateFailed.
type Event struct {
	Package string
	State   State
	Detail  string
	Err     error
}

// Observer receives pipeline transitions.
type Observer interface {
	OnEvent(Event)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(Event)

// OnEvent calls f.
func (f ObserverFunc) OnEvent(e Event) { f(e) }

// InstallRequest names the package and, optionally, the exact release tag
// and asset to install. Empty fields are chosen through the Chooser.
type InstallRequest struct {
	Package string
	Version string
	Asset   string
	// SkipChecksum installs without checking a published SHA-256 file.
	SkipChecksum bool
}

// InstallResult describes a completed install.
type InstallResult struct {
	Package        string
	Version        string
	Asset          string
	AssetSize      int64
	Registry       string
	Repository     string
	InstallPath    string
	ExecutablePath string
	Path           *shell.Result

	// Checksum names the release file the asset was verified against.
	Checksum string
	// Replaced is the version this install superseded, if any.
	Replaced string
	Warnings []string
}

// Install runs the pipeline: resolve the package, pick a release and an
// asset, download and unpack it in a staging directory, promote it to
// packages/<name>/<version>, put that directory on PATH and record it in the
// ledger. Nothing under packages/ changes unless extraction succeeded.
func (in *Installer) Install(ctx context.Context, req InstallRequest) (result *InstallResult, err error) {
	if err := validatePackageName(req.Package); err != nil {
		return nil, err
	}

	p := &pipeline{in: in, pkg: req.Package}
	defer func() {
		if err != nil {
			p.emit(StateFailed, "", err)
		}
	}()

	lock, err := in.lock(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = lock.Release() }()

	swept, err := transaction.Recover(in.dataDir)
	if err != nil {
		return nil, fmt.Errorf("recover interrupted installs: %w", err)
	}
	for _, j := range swept {
		log.Info("removed leftovers of interrupted install", "package", j.Package, "id", j.ID, "state", j.State)
	}

	state, err := ledger.Load(in.dataDir)
	if err != nil {
		return nil, err
	}
	cfg, err := in.config.Load(ctx)
	if err != nil {
		return nil, err
	}

	p.emit(StateResolving, req.Package, nil)
	def, err := in.resolver.FindPackage(ctx, cfg.Registries, req.Package)
	if err != nil {
		return nil, err
	}
	releases, err := in.resolver.GetReleases(ctx, def.Repository)
	if err != nil {
		return nil, err
	}

	p.emit(StateSelectingRelease, def.Repository, nil)
	release, err := selection.SelectRelease(ctx, in.chooser, releases, req.Version)
	if err != nil {
		return nil, err
	}

	p.emit(StateSelectingAsset, release.TagName, nil)
	asset, err := selection.SelectAsset(ctx, in.chooser, release, req.Asset)
	if err != nil {
		return nil, err
	}

	result = &InstallResult{
		Package:    req.Package,
		Version:    release.TagName,
		Asset:      asset.Name,
		AssetSize:  asset.Size,
		Registry:   def.Registry,
		Repository: def.Repository,
	}
	if in.platform != nil && !in.platform.MatchesAsset(asset.Name) {
		msg := fmt.Sprintf("asset %s does not look like a %s build", asset.Name, in.platform)
		log.Warn(msg)
		result.Warnings = append(result.Warnings, msg)
	}

	staging, err := transaction.NewStaging(in.dataDir, req.Package)
	if err != nil {
		return nil, err
	}
	defer func() {
		if abortErr := staging.Abort(); abortErr != nil {
			log.Warn("failed to clean up staging directory", "dir", staging.Dir(), "error", abortErr)
		}
	}()

	p.emit(StateDownloading, asset.Name, nil)
	var sums *checksumFile
	if !req.SkipChecksum {
		sums = in.fetchChecksum(ctx, release, asset, result)
		defer sums.remove()
	}
	downloaded, err := in.resolver.DownloadAsset(ctx, asset.BrowserDownloadURL, asset.Name, staging.Dir())
	if err != nil {
		return nil, err
	}
	if err := sums.verify(downloaded, asset.Name, result); err != nil {
		return nil, err
	}

	p.emit(StateExtracting, filepath.Base(downloaded), nil)
	unpacked, err := in.archive.Install(downloaded, staging.Dir(), def.ExecutableName)
	if err != nil {
		return nil, err
	}
	if unpacked.Warning != "" {
		log.Warn(unpacked.Warning, "package", req.Package)
		result.Warnings = append(result.Warnings, unpacked.Warning)
	}

	// Last point where cancellation leaves nothing behind.
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	final := PackageDir(in.dataDir, req.Package, release.TagName)
	previous, hadPrevious := state.Get(req.Package)

	p.emit(StatePromoting, final, nil)
	if err := staging.Promote(final); err != nil {
		return nil, err
	}
	result.InstallPath = final
	if unpacked.ExecutablePath != "" {
		rel, err := filepath.Rel(staging.Dir(), unpacked.ExecutablePath)
		if err != nil {
			return nil, fmt.Errorf("locate executable: %w", err)
		}
		result.ExecutablePath = filepath.Join(final, rel)
	}

	// A later failure removes the new tree unless the ledger already
	// points at the same directory.
	rollback := func() {
		if hadPrevious && previous.InstallPath == final {
			return
		}
		if rmErr := os.RemoveAll(final); rmErr != nil {
			log.Warn("failed to roll back install directory", "dir", final, "error", rmErr)
		}
	}

	p.emit(StateUpdatingPath, final, nil)
	pathResult, err := in.paths.AddToPath(final)
	if err != nil {
		rollback()
		return nil, fmt.Errorf("add %s to PATH: %w", final, err)
	}
	result.Path = pathResult

	p.emit(StateRecording, ledger.Path(in.dataDir), nil)
	state.Add(req.Package, ledger.InstalledPackage{
		Version:        release.TagName,
		InstallPath:    final,
		ExecutablePath: result.ExecutablePath,
		Registry:       def.Registry,
		Asset:          asset.Name,
		InstalledAt:    in.clock.Now().UTC(),
	})
	if err := state.Save(in.dataDir); err != nil {
		if pathResult.Added {
			if _, rmErr := in.paths.RemoveFromPath(final); rmErr != nil {
				log.Warn("failed to roll back PATH entry", "dir", final, "error", rmErr)
			}
		}
		rollback()
		return nil, err
	}

	if hadPrevious && previous.InstallPath != final {
		result.Replaced = previous.Version
		in.retire(previous)
	}

	p.emit(StateDone, result.Version, nil)
	return result, nil
}

// checksumFile is a downloaded checksum file living in its own temporary
// directory. A nil *checksumFile verifies nothing.
type checksumFile struct {
	name string
	dir  string
	path string
}

// fetchChecksum downloads the checksum file the release publishes for asset.
// A release without one, or a failed fetch, yields nil and at most a warning.
func (in *Installer) fetchChecksum(ctx context.Context, release *github.Release, asset *github.Asset, result *InstallResult) *checksumFile {
	names := make([]string, 0, len(release.Assets))
	for _, a := range release.Assets {
		names = append(names, a.Name)
	}
	name, ok := download.FindChecksumAsset(asset.Name, names)
	if !ok {
		log.Debug("release publishes no checksum", "asset", asset.Name)
		return nil
	}
	var url string
	for _, a := range release.Assets {
		if a.Name == name {
			url = a.BrowserDownloadURL
		}
	}

	dir, err := os.MkdirTemp("", "grip-checksum-*")
	if err != nil {
		log.Warn("cannot create checksum directory", "error", err)
		return nil
	}
	path, err := in.resolver.DownloadAsset(ctx, url, name, dir)
	if err != nil {
		_ = os.RemoveAll(dir)
		msg := fmt.Sprintf("could not fetch %s, installing unverified", name)
		log.Warn(msg, "error", err)
		result.Warnings = append(result.Warnings, msg)
		return nil
	}
	return &checksumFile{name: name, dir: dir, path: path}
}

// verify checks downloaded against the checksum file. Only a mismatch is an
// error; a file that does not list the asset is reported as a warning.
func (c *checksumFile) verify(downloaded, assetName string, result *InstallResult) error {
	if c == nil {
		return nil
	}
	err := download.VerifySHA256(downloaded, c.path, assetName)
	switch {
	case err == nil:
		log.Debug("checksum verified", "asset", assetName, "checksums", c.name)
		result.Checksum = c.name
		return nil
	case errors.Is(err, download.ErrNoChecksum):
		msg := fmt.Sprintf("%s does not list %s, installing unverified", c.name, assetName)
		log.Warn(msg)
		result.Warnings = append(result.Warnings, msg)
		return nil
	default:
		return err
	}
}

func (c *checksumFile) remove() {
	if c == nil {
		return
	}
	if err := os.RemoveAll(c.dir); err != nil {
		log.Warn("failed to remove checksum directory", "dir", c.dir, "error", err)
	}
}

// retire removes the PATH entry and tree of a superseded version. Failures
// only leave stale files behind, so they are logged.
func (in *Installer) retire(old ledger.InstalledPackage) {
	if old.InstallPath == "" || !in.managedPath(old.InstallPath) {
		return
	}
	if _, err := in.paths.RemoveFromPath(old.InstallPath); err != nil {
		log.Warn("failed to remove old PATH entry", "dir", old.InstallPath, "error", err)
	}
	if err := os.RemoveAll(old.InstallPath); err != nil {
		log.Warn("failed to remove old version", "dir", old.InstallPath, "error", errs.Filesystem("remove", old.InstallPath, err))
	}
}

// pipeline tracks the current state of one install.
type pipeline struct {
	in    *Installer
	pkg   string
	state State
}

func (p *pipeline) emit(s State, detail string, err error) {
	if s == StateFailed {
		log.Debug("install failed", "package", p.pkg, "state", p.state, "error", err)
	} else {
		log.Debug("install state", "package", p.pkg, "from", p.state, "to", s, "detail", detail)
		p.state = s
	}
	if p.in.observer != nil {
		p.in.observer.OnEvent(Event{Package: p.pkg, State: s, Detail: detail, Err: err})
	}
}

package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/download"
	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/git"
	"github.com/ZebulonRouseFrantzich/grip/internal/github"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
	"github.com/ZebulonRouseFrantzich/grip/internal/selection"
)

// RegistriesDirName holds per-registry state under the data directory.
const RegistriesDirName = "registries"

// RegistryDir returns the state directory of a registry.
func RegistryDir(dataDir, name string) string {
	return filepath.Join(dataDir, RegistriesDirName, name)
}

// Resolver finds packages across registries and fronts the release client
// and asset fetcher for the installer.
type Resolver struct {
	dataDir   string
	userAgent string
	ttl       time.Duration
	refresh   bool
	now       func() time.Time

	http     *http.Client
	git      git.Git
	releases *github.Client
	fetcher  *download.Fetcher

	// refreshed records registries already refetched by this resolver so a
	// forced refresh happens once per run.
	refreshed map[string]bool
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithTTL sets how long a cached index stays fresh.
func WithTTL(ttl time.Duration) Option {
	return func(r *Resolver) { r.ttl = ttl }
}

// WithRefresh forces every consulted index to be refetched once.
func WithRefresh(refresh bool) Option {
	return func(r *Resolver) { r.refresh = refresh }
}

// WithClock overrides the time source used for cache expiry.
func WithClock(now func() time.Time) Option {
	return func(r *Resolver) { r.now = now }
}

// WithHTTPClient sets the client used to fetch HTTP indexes.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) { r.http = c }
}

// WithGit sets the git implementation used for git-backed registries.
func WithGit(g git.Git) Option {
	return func(r *Resolver) { r.git = g }
}

// WithReleaseClient sets the GitHub release client.
func WithReleaseClient(c *github.Client) Option {
	return func(r *Resolver) { r.releases = c }
}

// WithFetcher sets the asset fetcher.
func WithFetcher(f *download.Fetcher) Option {
	return func(r *Resolver) { r.fetcher = f }
}

// NewResolver creates a resolver keeping its caches under dataDir.
func NewResolver(dataDir string, opts ...Option) (*Resolver, error) {
	r := &Resolver{
		dataDir:   dataDir,
		userAgent: download.UserAgent,
		ttl:       config.DefaultIndexTTL,
		now:       time.Now,
		refreshed: make(map[string]bool),
	}
	for _, opt := range opts {
		opt(r)
	}

	if r.http == nil {
		r.http = &http.Client{Timeout: github.DefaultTimeout}
	}
	if r.git == nil {
		r.git = git.NewClient()
	}
	if r.fetcher == nil {
		r.fetcher = download.NewFetcher()
	}
	if r.releases == nil {
		c, err := github.NewClient("", r.userAgent)
		if err != nil {
			return nil, err
		}
		r.releases = c
	}
	return r, nil
}

// FindPackage returns the first definition of name across registries, in
// ascending priority order with ties kept in configuration order. Registries
// whose index cannot be loaded are skipped. When every registry failed on
// the network the result is a NetworkError; otherwise a miss is
// ErrPackageNotFound.
func (r *Resolver) FindPackage(ctx context.Context, registries []config.Registry, name string) (*PackageDefinition, error) {
	ordered := SortByPriority(registries)

	var failures []error
	var known []string
	allNetwork := true

	for _, reg := range ordered {
		def, names, err := r.lookup(ctx, reg, name)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			log.Warn("skipping registry", "registry", reg.Name, "error", err)
			failures = append(failures, fmt.Errorf("registry %s: %w", reg.Name, err))
			if !errs.IsNetwork(err) {
				allNetwork = false
			}
			continue
		}
		if def != nil {
			def.Registry = reg.Name
			log.Debug("package resolved", "package", name, "registry", reg.Name, "repository", def.Repository)
			return def, nil
		}
		known = append(known, names...)
	}

	if len(ordered) > 0 && len(failures) == len(ordered) && allNetwork {
		return nil, &errs.NetworkError{Op: "fetch index", URL: ordered[0].URL, Cause: errors.Join(failures...)}
	}
	return nil, &selection.NotFoundError{
		Kind:        errs.ErrPackageNotFound,
		Requested:   name,
		Suggestions: selection.Suggest(name, known),
	}
}

// SortByPriority returns a copy of registries in ascending priority order.
// The sort is stable so equal priorities keep configuration order.
func SortByPriority(registries []config.Registry) []config.Registry {
	ordered := make([]config.Registry, len(registries))
	copy(ordered, registries)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority < ordered[j].Priority
	})
	return ordered
}

// lookup consults one registry, refreshing its cache when needed. A nil
// definition with a nil error is a miss; names lists what the index holds.
func (r *Resolver) lookup(ctx context.Context, reg config.Registry, name string) (*PackageDefinition, []string, error) {
	cachePath := filepath.Join(RegistryDir(r.dataDir, reg.Name), CacheFileName)
	cache, err := OpenCache(cachePath)
	if err != nil {
		return nil, nil, errs.Filesystem("open", cachePath, err)
	}
	defer cache.Close()

	meta, cached, err := cache.Meta(ctx)
	if err != nil {
		return nil, nil, err
	}
	usable := cached && meta.SourceURL == reg.URL

	if r.needsRefresh(reg, meta, usable) {
		if err := r.refreshCache(ctx, cache, reg); err != nil {
			if !usable || ctx.Err() != nil {
				return nil, nil, err
			}
			log.Warn("using stale registry index", "registry", reg.Name,
				"fetched_at", meta.FetchedAt.Format(time.RFC3339), "error", err)
		}
	}

	def, found, err := cache.Lookup(ctx, name)
	if err != nil {
		return nil, nil, err
	}
	if found {
		return def, nil, nil
	}
	names, err := cache.Names(ctx)
	if err != nil {
		return nil, nil, err
	}
	return nil, names, nil
}

func (r *Resolver) needsRefresh(reg config.Registry, meta Meta, usable bool) bool {
	if !usable {
		return true
	}
	if r.refresh && !r.refreshed[reg.Name] {
		return true
	}
	return r.now().Sub(meta.FetchedAt) >= r.ttl
}

// refreshCache fetches, validates and stores the index of reg.
func (r *Resolver) refreshCache(ctx context.Context, cache *Cache, reg config.Registry) error {
	log.Debug("fetching registry index", "registry", reg.Name, "url", reg.URL)

	doc, err := r.fetchIndex(ctx, reg)
	if err != nil {
		return err
	}
	defs, err := ParseIndex(doc.data)
	if err != nil {
		return fmt.Errorf("index of %s: %w", reg.Name, err)
	}

	meta := Meta{FetchedAt: r.now(), SourceURL: reg.URL, Revision: doc.revision}
	if err := cache.Replace(ctx, defs, meta); err != nil {
		return err
	}
	r.refreshed[reg.Name] = true

	log.Debug("cached registry index", "registry", reg.Name, "packages", len(defs))
	return nil
}

// RemoveCache deletes every piece of state kept for a registry.
func (r *Resolver) RemoveCache(name string) error {
	dir := RegistryDir(r.dataDir, name)
	if err := os.RemoveAll(dir); err != nil {
		return errs.Filesystem("remove", dir, err)
	}
	return nil
}

// GetReleases lists the releases of repository, newest first.
func (r *Resolver) GetReleases(ctx context.Context, repository string) ([]github.Release, error) {
	return r.releases.GetReleases(ctx, repository)
}

// DownloadAsset fetches url into targetDir/filename and returns the path.
func (r *Resolver) DownloadAsset(ctx context.Context, url, filename, targetDir string) (string, error) {
	return r.fetcher.Download(ctx, url, filename, targetDir)
}

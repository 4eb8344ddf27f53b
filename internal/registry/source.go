package registry

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/git"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// maxIndexSize bounds a fetched index document.
const maxIndexSize = 16 << 20

// RepoDirName is the checkout directory of a git-backed registry.
const RepoDirName = "repo"

// indexFileNames are tried in order at the root of a git-backed registry.
var indexFileNames = []string{"index.yaml", "index.yml", "index.json"}

// fetched is a raw index document plus its revision, if any.
type fetched struct {
	data     []byte
	revision string
}

// fetchIndex retrieves the raw index document for reg.
func (r *Resolver) fetchIndex(ctx context.Context, reg config.Registry) (*fetched, error) {
	switch {
	case git.IsGitURL(reg.URL):
		return r.fetchGit(ctx, reg)
	case strings.HasPrefix(reg.URL, "http://"), strings.HasPrefix(reg.URL, "https://"):
		data, err := r.fetchHTTP(ctx, reg.URL)
		if err != nil {
			return nil, err
		}
		return &fetched{data: data}, nil
	default:
		path, err := localPath(reg.URL)
		if err != nil {
			return nil, err
		}
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errs.Filesystem("read", path, err)
		}
		return &fetched{data: data}, nil
	}
}

func (r *Resolver) fetchHTTP(ctx context.Context, rawURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, errs.Network("GET", rawURL, err)
	}
	req.Header.Set("User-Agent", r.userAgent)
	req.Header.Set("Accept", "application/yaml, application/json;q=0.9, */*;q=0.8")

	resp, err := r.http.Do(req)
	if err != nil {
		return nil, errs.Network("GET", rawURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errs.Network("GET", rawURL, fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxIndexSize+1))
	if err != nil {
		return nil, errs.Network("GET", rawURL, fmt.Errorf("read body: %w", err))
	}
	if len(data) > maxIndexSize {
		return nil, fmt.Errorf("%w: index larger than %d bytes", errs.ErrInvalidRemoteMetadata, maxIndexSize)
	}
	return data, nil
}

func (r *Resolver) fetchGit(ctx context.Context, reg config.Registry) (*fetched, error) {
	dir := filepath.Join(RegistryDir(r.dataDir, reg.Name), RepoDirName)

	head, err := r.git.Sync(ctx, reg.URL, dir)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, errs.Network("clone", reg.URL, err)
	}
	log.Debug("synced registry repository", "registry", reg.Name, "head", head)

	for _, name := range indexFileNames {
		path := filepath.Join(dir, name)
		data, err := os.ReadFile(path)
		if err == nil {
			return &fetched{data: data, revision: head}, nil
		}
		if !errors.Is(err, os.ErrNotExist) {
			return nil, errs.Filesystem("read", path, err)
		}
	}
	return nil, fmt.Errorf("%w: %s has no index.yaml", errs.ErrInvalidRemoteMetadata, reg.URL)
}

// localPath turns a file:// URL or plain path into a filesystem path.
func localPath(raw string) (string, error) {
	if !strings.HasPrefix(raw, "file://") {
		return raw, nil
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("invalid registry URL %q: %w", raw, err)
	}
	if u.Host != "" && u.Host != "localhost" {
		return "", fmt.Errorf("invalid registry URL %q: remote file hosts are not supported", raw)
	}
	return filepath.FromSlash(u.Path), nil
}

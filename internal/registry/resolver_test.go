package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/ZebulonRouseFrantzich/grip/internal/config"
	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/selection"
)

// indexServer serves body and counts requests. A status other than 200 is
// returned verbatim.
type indexServer struct {
	*httptest.Server
	hits   atomic.Int32
	status atomic.Int32
	body   atomic.Value
}

func newIndexServer(t *testing.T, body string) *indexServer {
	t.Helper()
	s := &indexServer{}
	s.status.Store(http.StatusOK)
	s.body.Store(body)
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.hits.Add(1)
		if code := int(s.status.Load()); code != http.StatusOK {
			w.WriteHeader(code)
			return
		}
		fmt.Fprint(w, s.body.Load().(string))
	}))
	t.Cleanup(s.Close)
	return s
}

func newTestResolver(t *testing.T, opts ...Option) (*Resolver, string) {
	t.Helper()
	dataDir := t.TempDir()
	r, err := NewResolver(dataDir, opts...)
	if err != nil {
		t.Fatalf("NewResolver: %v", err)
	}
	return r, dataDir
}

func writeIndex(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "index.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFindPackagePriorityOrder(t *testing.T) {
	low := writeIndex(t, "packages:\n  - {name: foo, repository: low/foo}\n")
	high := writeIndex(t, "packages:\n  - {name: foo, repository: high/foo}\n")
	r, _ := newTestResolver(t)

	tests := []struct {
		name       string
		registries []config.Registry
		wantRepo   string
		wantReg    string
	}{
		{
			name: "lower priority value wins",
			registries: []config.Registry{
				{Name: "second", URL: high, Priority: 10},
				{Name: "first", URL: low, Priority: 1},
			},
			wantRepo: "low/foo",
			wantReg:  "first",
		},
		{
			name: "ties keep configuration order",
			registries: []config.Registry{
				{Name: "a", URL: high, Priority: 5},
				{Name: "b", URL: low, Priority: 5},
			},
			wantRepo: "high/foo",
			wantReg:  "a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			def, err := r.FindPackage(context.Background(), tt.registries, "foo")
			if err != nil {
				t.Fatalf("FindPackage: %v", err)
			}
			if def.Repository != tt.wantRepo || def.Registry != tt.wantReg {
				t.Errorf("got %s from %s, want %s from %s", def.Repository, def.Registry, tt.wantRepo, tt.wantReg)
			}
		})
	}
}

func TestSortByPriorityDoesNotMutateInput(t *testing.T) {
	in := []config.Registry{{Name: "b", Priority: 2}, {Name: "a", Priority: 1}}
	out := SortByPriority(in)

	if in[0].Name != "b" {
		t.Error("input slice was reordered")
	}
	if diff := cmp.Diff([]config.Registry{{Name: "a", Priority: 1}, {Name: "b", Priority: 2}}, out); diff != "" {
		t.Errorf("SortByPriority mismatch (-want +got):\n%s", diff)
	}
}

func TestFindPackageNotFound(t *testing.T) {
	idx := writeIndex(t, "packages:\n  - {name: ripgrep, repository: BurntSushi/ripgrep}\n")
	r, _ := newTestResolver(t)

	_, err := r.FindPackage(context.Background(), []config.Registry{{Name: "default", URL: idx}}, "ripgre")
	if !errors.Is(err, errs.ErrPackageNotFound) {
		t.Fatalf("error = %v, want ErrPackageNotFound", err)
	}

	var nf *selection.NotFoundError
	if !errors.As(err, &nf) {
		t.Fatalf("error %T is not a NotFoundError", err)
	}
	if diff := cmp.Diff([]string{"ripgrep"}, nf.Suggestions); diff != "" {
		t.Errorf("suggestions mismatch (-want +got):\n%s", diff)
	}
}

func TestFindPackageIsCaseSensitive(t *testing.T) {
	idx := writeIndex(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	r, _ := newTestResolver(t)

	_, err := r.FindPackage(context.Background(), []config.Registry{{Name: "default", URL: idx}}, "FOO")
	if !errors.Is(err, errs.ErrPackageNotFound) {
		t.Errorf("error = %v, want ErrPackageNotFound", err)
	}
}

func TestFindPackageSkipsFailingRegistry(t *testing.T) {
	down := newIndexServer(t, "")
	down.status.Store(http.StatusInternalServerError)
	good := writeIndex(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	r, _ := newTestResolver(t)

	def, err := r.FindPackage(context.Background(), []config.Registry{
		{Name: "down", URL: down.URL + "/index.yaml", Priority: 0},
		{Name: "good", URL: good, Priority: 1},
	}, "foo")
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}
	if def.Registry != "good" {
		t.Errorf("resolved from %s, want good", def.Registry)
	}
}

func TestFindPackageAllNetworkFailures(t *testing.T) {
	a := newIndexServer(t, "")
	a.status.Store(http.StatusBadGateway)
	b := newIndexServer(t, "")
	b.status.Store(http.StatusNotFound)
	r, _ := newTestResolver(t)

	_, err := r.FindPackage(context.Background(), []config.Registry{
		{Name: "a", URL: a.URL},
		{Name: "b", URL: b.URL},
	}, "foo")

	var ne *errs.NetworkError
	if !errors.As(err, &ne) {
		t.Fatalf("error = %v, want NetworkError", err)
	}
	if errors.Is(err, errs.ErrPackageNotFound) {
		t.Error("network failure reported as not found")
	}
}

func TestFindPackageMixedFailuresIsNotFound(t *testing.T) {
	down := newIndexServer(t, "")
	down.status.Store(http.StatusBadGateway)
	broken := writeIndex(t, "packages: nope\n")
	r, _ := newTestResolver(t)

	_, err := r.FindPackage(context.Background(), []config.Registry{
		{Name: "down", URL: down.URL},
		{Name: "broken", URL: broken},
	}, "foo")
	if !errors.Is(err, errs.ErrPackageNotFound) {
		t.Errorf("error = %v, want ErrPackageNotFound", err)
	}
}

func TestFindPackageNoRegistries(t *testing.T) {
	r, _ := newTestResolver(t)
	_, err := r.FindPackage(context.Background(), nil, "foo")
	if !errors.Is(err, errs.ErrPackageNotFound) {
		t.Errorf("error = %v, want ErrPackageNotFound", err)
	}
}

func TestFindPackageUsesCacheWithinTTL(t *testing.T) {
	srv := newIndexServer(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	r, _ := newTestResolver(t, WithTTL(time.Hour), WithClock(func() time.Time { return now }))
	regs := []config.Registry{{Name: "default", URL: srv.URL}}
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if _, err := r.FindPackage(ctx, regs, "foo"); err != nil {
			t.Fatalf("FindPackage #%d: %v", i, err)
		}
	}
	if got := srv.hits.Load(); got != 1 {
		t.Errorf("index fetched %d times within TTL, want 1", got)
	}

	now = now.Add(2 * time.Hour)
	srv.body.Store("packages:\n  - {name: foo, repository: acme/foo-v2}\n")
	def, err := r.FindPackage(ctx, regs, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if srv.hits.Load() != 2 || def.Repository != "acme/foo-v2" {
		t.Errorf("expired cache not refreshed: hits=%d repo=%s", srv.hits.Load(), def.Repository)
	}
}

func TestFindPackageStaleFallback(t *testing.T) {
	srv := newIndexServer(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	now := time.Now()
	r, _ := newTestResolver(t, WithTTL(time.Minute), WithClock(func() time.Time { return now }))
	regs := []config.Registry{{Name: "default", URL: srv.URL}}
	ctx := context.Background()

	if _, err := r.FindPackage(ctx, regs, "foo"); err != nil {
		t.Fatal(err)
	}

	now = now.Add(time.Hour)
	srv.status.Store(http.StatusServiceUnavailable)
	def, err := r.FindPackage(ctx, regs, "foo")
	if err != nil {
		t.Fatalf("FindPackage with stale cache: %v", err)
	}
	if def.Repository != "acme/foo" {
		t.Errorf("Repository = %s, want acme/foo", def.Repository)
	}
}

func TestFindPackageRefetchesWhenURLChanges(t *testing.T) {
	first := writeIndex(t, "packages:\n  - {name: foo, repository: acme/one}\n")
	second := writeIndex(t, "packages:\n  - {name: foo, repository: acme/two}\n")
	r, _ := newTestResolver(t)
	ctx := context.Background()

	if _, err := r.FindPackage(ctx, []config.Registry{{Name: "default", URL: first}}, "foo"); err != nil {
		t.Fatal(err)
	}
	def, err := r.FindPackage(ctx, []config.Registry{{Name: "default", URL: second}}, "foo")
	if err != nil {
		t.Fatal(err)
	}
	if def.Repository != "acme/two" {
		t.Errorf("Repository = %s, want acme/two", def.Repository)
	}
}

func TestFindPackageForcedRefreshHappensOnce(t *testing.T) {
	srv := newIndexServer(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	dataDir := t.TempDir()
	regs := []config.Registry{{Name: "default", URL: srv.URL}}
	ctx := context.Background()

	warm, err := NewResolver(dataDir)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := warm.FindPackage(ctx, regs, "foo"); err != nil {
		t.Fatal(err)
	}

	r, err := NewResolver(dataDir, WithRefresh(true))
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 2; i++ {
		if _, err := r.FindPackage(ctx, regs, "foo"); err != nil {
			t.Fatal(err)
		}
	}
	if got := srv.hits.Load(); got != 2 {
		t.Errorf("index fetched %d times, want 2", got)
	}
}

func TestFindPackageFileURL(t *testing.T) {
	idx := writeIndex(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	r, _ := newTestResolver(t)

	def, err := r.FindPackage(context.Background(), []config.Registry{{Name: "local", URL: "file://" + filepath.ToSlash(idx)}}, "foo")
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}
	if def.Repository != "acme/foo" {
		t.Errorf("Repository = %s", def.Repository)
	}
}

func TestFindPackageHTTPSendsUserAgent(t *testing.T) {
	var ua atomic.Value
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ua.Store(r.Header.Get("User-Agent"))
		fmt.Fprint(w, `{"packages": {"foo": {"repository": "acme/foo"}}}`)
	}))
	defer srv.Close()
	r, _ := newTestResolver(t)

	if _, err := r.FindPackage(context.Background(), []config.Registry{{Name: "default", URL: srv.URL}}, "foo"); err != nil {
		t.Fatal(err)
	}
	if got, _ := ua.Load().(string); !strings.HasPrefix(got, "grip/") {
		t.Errorf("User-Agent = %q, want grip/...", got)
	}
}

// fakeGit materialises an index file instead of cloning.
type fakeGit struct {
	index string
	err   error
	syncs int
}

func (f *fakeGit) Sync(ctx context.Context, url, dir string) (string, error) {
	f.syncs++
	if f.err != nil {
		return "", f.err
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", err
	}
	if err := os.WriteFile(filepath.Join(dir, "index.yaml"), []byte(f.index), 0644); err != nil {
		return "", err
	}
	return "0123abcd", nil
}

func (f *fakeGit) GetHeadCommit(ctx context.Context, dir string) (string, error) {
	return "0123abcd", nil
}

func TestFindPackageGitRegistry(t *testing.T) {
	g := &fakeGit{index: "packages:\n  - {name: foo, repository: acme/foo}\n"}
	r, dataDir := newTestResolver(t, WithGit(g))
	reg := config.Registry{Name: "team", URL: "git@github.com:acme/registry.git"}

	def, err := r.FindPackage(context.Background(), []config.Registry{reg}, "foo")
	if err != nil {
		t.Fatalf("FindPackage: %v", err)
	}
	if def.Repository != "acme/foo" || g.syncs != 1 {
		t.Errorf("got %s after %d syncs", def.Repository, g.syncs)
	}

	if _, err := os.Stat(filepath.Join(RegistryDir(dataDir, "team"), RepoDirName, "index.yaml")); err != nil {
		t.Errorf("checkout missing: %v", err)
	}

	cache, err := OpenCache(filepath.Join(RegistryDir(dataDir, "team"), CacheFileName))
	if err != nil {
		t.Fatal(err)
	}
	defer cache.Close()
	meta, _, _ := cache.Meta(context.Background())
	if meta.Revision != "0123abcd" {
		t.Errorf("Revision = %q, want 0123abcd", meta.Revision)
	}
}

func TestFindPackageGitFailureIsNetwork(t *testing.T) {
	g := &fakeGit{err: errors.New("connection refused")}
	r, _ := newTestResolver(t, WithGit(g))

	_, err := r.FindPackage(context.Background(), []config.Registry{{Name: "team", URL: "ssh://git@example.com/registry"}}, "foo")
	if !errs.IsNetwork(err) {
		t.Errorf("error = %v, want NetworkError", err)
	}
}

func TestFindPackageCancelled(t *testing.T) {
	idx := writeIndex(t, "packages: []\n")
	r, _ := newTestResolver(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.FindPackage(ctx, []config.Registry{{Name: "default", URL: idx}}, "foo")
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestRemoveCache(t *testing.T) {
	idx := writeIndex(t, "packages:\n  - {name: foo, repository: acme/foo}\n")
	r, dataDir := newTestResolver(t)

	if _, err := r.FindPackage(context.Background(), []config.Registry{{Name: "extra", URL: idx}}, "foo"); err != nil {
		t.Fatal(err)
	}
	dir := RegistryDir(dataDir, "extra")
	if _, err := os.Stat(filepath.Join(dir, CacheFileName)); err != nil {
		t.Fatalf("cache not created: %v", err)
	}

	if err := r.RemoveCache("extra"); err != nil {
		t.Fatalf("RemoveCache: %v", err)
	}
	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Errorf("registry directory still present: %v", err)
	}

	// Removing state that does not exist is fine.
	if err := r.RemoveCache("never-used"); err != nil {
		t.Errorf("RemoveCache on missing dir: %v", err)
	}
}

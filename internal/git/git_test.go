package git

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// newSourceRepo creates a repository with one committed index.yaml.
func newSourceRepo(t *testing.T) (string, *gogit.Repository) {
	t.Helper()
	dir := t.TempDir()

	repo, err := gogit.PlainInit(dir, false)
	if err != nil {
		t.Fatalf("PlainInit: %v", err)
	}
	commitFile(t, repo, dir, "index.yaml", "packages: []\n")
	return dir, repo
}

func commitFile(t *testing.T, repo *gogit.Repository, dir, name, content string) string {
	t.Helper()
	if err := os.WriteFile(filepath.Join(dir, name), []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	wt, err := repo.Worktree()
	if err != nil {
		t.Fatal(err)
	}
	if _, err := wt.Add(name); err != nil {
		t.Fatal(err)
	}
	hash, err := wt.Commit("update "+name, &gogit.CommitOptions{
		Author: &object.Signature{Name: "Test User", Email: "test@example.com", When: time.Now()},
	})
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	return hash.String()
}

func TestIsGitURL(t *testing.T) {
	tests := []struct {
		url  string
		want bool
	}{
		{"git@github.com:acme/index.git", true},
		{"ssh://git@example.com/acme/index", true},
		{"https://github.com/acme/index.git", true},
		{"https://github.com/acme/index.git/", true},
		{"/srv/registry.git", true},
		{"https://example.com/index.yaml", false},
		{"/srv/index.yaml", false},
	}
	for _, tt := range tests {
		if got := IsGitURL(tt.url); got != tt.want {
			t.Errorf("IsGitURL(%q) = %v, want %v", tt.url, got, tt.want)
		}
	}
}

func TestClient_SyncClonesThenPulls(t *testing.T) {
	src, repo := newSourceRepo(t)
	checkout := filepath.Join(t.TempDir(), "repo")
	client := NewClient()
	ctx := context.Background()

	first, err := client.Sync(ctx, src, checkout)
	if err != nil {
		t.Fatalf("Sync() clone error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkout, "index.yaml")); err != nil {
		t.Fatalf("index.yaml not checked out: %v", err)
	}

	want := commitFile(t, repo, src, "index.yaml", "packages:\n  - name: foo\n    repository: acme/foo\n")

	second, err := client.Sync(ctx, src, checkout)
	if err != nil {
		t.Fatalf("Sync() update error = %v", err)
	}
	if second == first {
		t.Error("HEAD did not move after upstream commit")
	}
	if second != want {
		t.Errorf("HEAD = %s, want %s", second, want)
	}
	data, _ := os.ReadFile(filepath.Join(checkout, "index.yaml"))
	if string(data) == "packages: []\n" {
		t.Error("checkout still has old index content")
	}

	head, err := client.GetHeadCommit(ctx, checkout)
	if err != nil || head != want {
		t.Errorf("GetHeadCommit() = %s, %v", head, err)
	}
}

func TestClient_SyncReplacesNonRepo(t *testing.T) {
	src, _ := newSourceRepo(t)
	checkout := t.TempDir()
	if err := os.WriteFile(filepath.Join(checkout, "junk"), []byte("x"), 0644); err != nil {
		t.Fatal(err)
	}

	if _, err := NewClient().Sync(context.Background(), src, checkout); err != nil {
		t.Fatalf("Sync() error = %v", err)
	}
	if _, err := os.Stat(filepath.Join(checkout, "junk")); !os.IsNotExist(err) {
		t.Error("stale files should be removed before cloning")
	}
}

func TestClient_Errors(t *testing.T) {
	client := NewClient()
	ctx := context.Background()

	if _, err := client.Sync(ctx, "", t.TempDir()); err != ErrEmptyURL {
		t.Errorf("Sync(empty url) error = %v, want ErrEmptyURL", err)
	}

	missing := filepath.Join(t.TempDir(), "nope")
	if _, err := client.Sync(ctx, missing, filepath.Join(t.TempDir(), "co")); err == nil {
		t.Error("Sync(missing source) should fail")
	}

	if _, err := client.GetHeadCommit(ctx, t.TempDir()); err != ErrNotAGitRepo {
		t.Errorf("GetHeadCommit(non repo) error = %v, want ErrNotAGitRepo", err)
	}

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	if _, err := client.Sync(cancelled, "https://example.com/x.git", t.TempDir()); err == nil {
		t.Error("Sync with cancelled context should fail")
	}
}

func TestClient_IsGitRepo(t *testing.T) {
	src, _ := newSourceRepo(t)
	client := NewClient()
	ctx := context.Background()

	if ok, err := client.IsGitRepo(ctx, src); !ok || err != nil {
		t.Errorf("IsGitRepo(repo) = %v, %v", ok, err)
	}
	if ok, err := client.IsGitRepo(ctx, t.TempDir()); ok || err != nil {
		t.Errorf("IsGitRepo(empty dir) = %v, %v", ok, err)
	}
}

// Package git keeps local checkouts of git-hosted registry indexes using
// go-git, so no git binary is needed at runtime.
package git

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	gogit "github.com/go-git/go-git/v5"

	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// Common Git errors
var (
	ErrNotAGitRepo = errors.New("not a git repository")
	ErrEmptyURL    = errors.New("repository URL cannot be empty")
)

// Git is the interface for the git operations registries need.
type Git interface {
	// Sync makes dir a current checkout of url and returns the HEAD commit.
	Sync(ctx context.Context, url, dir string) (string, error)
	GetHeadCommit(ctx context.Context, dir string) (string, error)
}

// Client implements the Git interface.
type Client struct{}

// NewClient creates a new Git client.
func NewClient() *Client {
	return &Client{}
}

// IsGitURL reports whether a registry URL names a git repository rather
// than an index document.
func IsGitURL(url string) bool {
	return strings.HasPrefix(url, "git@") ||
		strings.HasPrefix(url, "ssh://") ||
		strings.HasPrefix(url, "git://") ||
		strings.HasSuffix(strings.TrimSuffix(url, "/"), ".git")
}

// Sync clones url into dir, or pulls when dir already holds a checkout. A
// checkout that cannot be fast-forwarded is discarded and cloned again.
func (c *Client) Sync(ctx context.Context, url, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}
	if url == "" {
		return "", ErrEmptyURL
	}

	ok, err := c.IsGitRepo(ctx, dir)
	if err != nil || !ok {
		if err != nil {
			log.Debug("discarding unusable checkout", "dir", dir, "error", err)
		}
		return c.Clone(ctx, url, dir)
	}

	if err := c.Pull(ctx, dir); err != nil {
		if ctx.Err() != nil {
			return "", fmt.Errorf("context cancelled: %w", ctx.Err())
		}
		log.Debug("pull failed, recloning", "dir", dir, "error", err)
		return c.Clone(ctx, url, dir)
	}
	return c.GetHeadCommit(ctx, dir)
}

// Clone performs a shallow clone of url into dir, replacing anything there.
func (c *Client) Clone(ctx context.Context, url, dir string) (string, error) {
	if err := os.RemoveAll(dir); err != nil {
		return "", fmt.Errorf("clear checkout directory: %w", err)
	}

	repo, err := gogit.PlainCloneContext(ctx, dir, false, &gogit.CloneOptions{
		URL:          url,
		Depth:        1,
		SingleBranch: true,
		Tags:         gogit.NoTags,
	})
	if err != nil {
		os.RemoveAll(dir)
		return "", fmt.Errorf("clone %s: %w", url, err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}
	log.Debug("cloned registry", "url", url, "commit", ref.Hash().String())
	return ref.Hash().String(), nil
}

// Pull fast-forwards the checkout in dir from origin.
func (c *Client) Pull(ctx context.Context, dir string) error {
	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		return fmt.Errorf("open repository: %w", err)
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return fmt.Errorf("get worktree: %w", err)
	}

	err = worktree.PullContext(ctx, &gogit.PullOptions{
		RemoteName:   "origin",
		SingleBranch: true,
		Depth:        1,
		Force:        true,
	})
	if err != nil && !errors.Is(err, gogit.NoErrAlreadyUpToDate) {
		return fmt.Errorf("pull: %w", err)
	}
	return nil
}

// GetHeadCommit returns the commit hash of HEAD using go-git.
func (c *Client) GetHeadCommit(ctx context.Context, dir string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	repo, err := gogit.PlainOpen(dir)
	if err != nil {
		if errors.Is(err, gogit.ErrRepositoryNotExists) {
			return "", ErrNotAGitRepo
		}
		return "", fmt.Errorf("open repository: %w", err)
	}

	ref, err := repo.Head()
	if err != nil {
		return "", fmt.Errorf("get HEAD: %w", err)
	}

	return ref.Hash().String(), nil
}

// IsGitRepo checks if the path is a valid git repository.
// Returns (true, nil) if valid, (false, nil) if not exists, (false, err) if corrupted.
func (c *Client) IsGitRepo(ctx context.Context, dir string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context cancelled: %w", err)
	}

	_, err := gogit.PlainOpen(dir)
	if errors.Is(err, gogit.ErrRepositoryNotExists) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("%w: %s", ErrNotAGitRepo, err.Error())
	}
	return true, nil
}

// Package download fetches release assets over HTTP into a target directory.
package download

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

const (
	// DefaultTimeout is the default HTTP request timeout
	DefaultTimeout = 10 * time.Minute
	// MaxRedirects bounds redirect chains (GitHub redirects assets to a CDN)
	MaxRedirects = 10
)

// UserAgent is sent with every request. The CLI overrides it with its version.
var UserAgent = "grip/dev"

// ProgressFunc receives the number of bytes written so far and the expected
// total, which is -1 when the server sends no Content-Length.
type ProgressFunc func(written, total int64)

// Fetcher downloads assets. Transfers are never resumed or retried.
type Fetcher struct {
	client   *http.Client
	progress ProgressFunc
}

// Option configures a Fetcher.
type Option func(*Fetcher)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(f *Fetcher) {
		f.client = c
	}
}

// WithProgress registers a progress callback.
func WithProgress(fn ProgressFunc) Option {
	return func(f *Fetcher) {
		f.progress = fn
	}
}

// NewFetcher creates a new fetcher
func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client: &http.Client{
			Timeout: DefaultTimeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= MaxRedirects {
					return fmt.Errorf("too many redirects")
				}
				return nil
			},
		},
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Download streams url into targetDir/filename and returns that path.
// targetDir and its parents are created if absent and an existing file of
// the same name is overwritten.
func (f *Fetcher) Download(ctx context.Context, url, filename, targetDir string) (string, error) {
	if filename == "" || filename != filepath.Base(filename) || filename == "." || filename == ".." {
		return "", errs.Filesystem("create", filename, fmt.Errorf("invalid file name %q", filename))
	}

	if err := os.MkdirAll(targetDir, 0755); err != nil {
		return "", errs.Filesystem("mkdir", targetDir, err)
	}

	destPath := filepath.Join(targetDir, filename)
	log.Debug("downloading asset", "url", url, "dest", destPath)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", errs.Network("GET", url, fmt.Errorf("create request: %w", err))
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept", "application/octet-stream")

	resp, err := f.client.Do(req)
	if err != nil {
		return "", errs.Network("GET", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errs.Network("GET", url, fmt.Errorf("unexpected status code: %d", resp.StatusCode))
	}

	tmpFile, err := os.CreateTemp(targetDir, "."+filename+".part-*")
	if err != nil {
		return "", errs.Filesystem("create", destPath, err)
	}
	tmpPath := tmpFile.Name()

	cleanupNeeded := true
	defer func() {
		tmpFile.Close()
		if cleanupNeeded {
			os.Remove(tmpPath)
		}
	}()

	var dst io.Writer = &fileWriter{w: tmpFile}
	if f.progress != nil {
		dst = &progressWriter{w: dst, total: resp.ContentLength, fn: f.progress}
	}

	if err := copyBody(ctx, dst, resp.Body, url, tmpPath); err != nil {
		return "", err
	}

	if err := tmpFile.Close(); err != nil {
		return "", errs.Filesystem("close", tmpPath, err)
	}

	if err := os.Rename(tmpPath, destPath); err != nil {
		return "", errs.Filesystem("rename", destPath, err)
	}

	cleanupNeeded = false
	return destPath, nil
}

type progressWriter struct {
	w       io.Writer
	written int64
	total   int64
	fn      ProgressFunc
}

func (p *progressWriter) Write(b []byte) (int, error) {
	n, err := p.w.Write(b)
	p.written += int64(n)
	p.fn(p.written, p.total)
	return n, err
}

// copyBody streams body into dst. Failures writing dst are filesystem errors;
// everything else is blamed on the network.
func copyBody(ctx context.Context, dst io.Writer, body io.Reader, url, path string) error {
	_, err := io.Copy(dst, body)
	if err == nil {
		return nil
	}
	var we *writeError
	if errors.As(err, &we) {
		return errs.Filesystem("write", path, we.err)
	}
	if ctx.Err() != nil {
		return errs.Network("GET", url, ctx.Err())
	}
	return errs.Network("GET", url, fmt.Errorf("copy response body: %w", err))
}

// writeError marks failures of the destination file.
type writeError struct{ err error }

func (e *writeError) Error() string { return e.err.Error() }
func (e *writeError) Unwrap() error { return e.err }

type fileWriter struct{ w io.Writer }

func (f *fileWriter) Write(b []byte) (int, error) {
	n, err := f.w.Write(b)
	if err != nil {
		err = &writeError{err: err}
	}
	return n, err
}

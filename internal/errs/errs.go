// Package errs defines the error taxonomy shared by the install pipeline.
//
// Sentinel errors identify a failure class and are matched with errors.Is.
// NetworkError, FilesystemError and ArchiveError carry the failing resource
// and the underlying cause and are matched with errors.As.
package errs

import (
	"errors"
	"fmt"
)

var (
	ErrPackageNotFound             = errors.New("package not found")
	ErrNoReleases                  = errors.New("no releases found")
	ErrVersionNotFound             = errors.New("version not found")
	ErrAssetNotFound               = errors.New("asset not found")
	ErrInvalidRemoteMetadata       = errors.New("invalid remote metadata")
	ErrRegistryAlreadyExists       = errors.New("registry already exists")
	ErrRegistryNotFound            = errors.New("registry not found")
	ErrCannotRemoveDefaultRegistry = errors.New("cannot remove default registry")
	ErrNotInstalled                = errors.New("package not installed")
	ErrChecksumMismatch            = errors.New("checksum mismatch")
)

// NetworkError reports a failed fetch or download.
type NetworkError struct {
	URL   string
	Op    string
	Cause error
}

func (e *NetworkError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("network error (%s %s): %v", e.Op, e.URL, e.Cause)
	}
	return fmt.Sprintf("network error (%s %s)", e.Op, e.URL)
}

func (e *NetworkError) Unwrap() error {
	return e.Cause
}

// FilesystemError reports a failed create, write, rename or remove.
type FilesystemError struct {
	Path  string
	Op    string
	Cause error
}

func (e *FilesystemError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("filesystem error (%s %s): %v", e.Op, e.Path, e.Cause)
	}
	return fmt.Sprintf("filesystem error (%s %s)", e.Op, e.Path)
}

func (e *FilesystemError) Unwrap() error {
	return e.Cause
}

// ArchiveError reports a corrupt or unsupported archive.
type ArchiveError struct {
	Path    string
	Message string
	Cause   error
}

func (e *ArchiveError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("archive error (%s): %s: %v", e.Path, e.Message, e.Cause)
	}
	return fmt.Sprintf("archive error (%s): %s", e.Path, e.Message)
}

func (e *ArchiveError) Unwrap() error {
	return e.Cause
}

// Network wraps cause as a NetworkError.
func Network(op, url string, cause error) error {
	return &NetworkError{Op: op, URL: url, Cause: cause}
}

// Filesystem wraps cause as a FilesystemError.
func Filesystem(op, path string, cause error) error {
	return &FilesystemError{Op: op, Path: path, Cause: cause}
}

// IsNetwork reports whether err is or wraps a NetworkError.
func IsNetwork(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}

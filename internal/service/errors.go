package service

import "github.com/ZebulonRouseFrantzich/grip/internal/errs"

// Errors returned by service operations. They are the component sentinels,
// re-exported so callers only need this package for errors.Is checks.
var (
	ErrPackageNotFound             = errs.ErrPackageNotFound
	ErrNoReleases                  = errs.ErrNoReleases
	ErrVersionNotFound             = errs.ErrVersionNotFound
	ErrAssetNotFound               = errs.ErrAssetNotFound
	ErrInvalidRemoteMetadata       = errs.ErrInvalidRemoteMetadata
	ErrRegistryAlreadyExists       = errs.ErrRegistryAlreadyExists
	ErrRegistryNotFound            = errs.ErrRegistryNotFound
	ErrCannotRemoveDefaultRegistry = errs.ErrCannotRemoveDefaultRegistry
	ErrNotInstalled                = errs.ErrNotInstalled
	ErrChecksumMismatch            = errs.ErrChecksumMismatch
)

// Typed errors, matched with errors.As.
type (
	NetworkError    = errs.NetworkError
	FilesystemError = errs.FilesystemError
	ArchiveError    = errs.ArchiveError
)

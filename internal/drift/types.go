// Package drift compares three views of installed packages: the versions a
// project declares in grip.json, the packages recorded in the ledger, and
// the executables the current PATH actually resolves.
package drift

// DriftType represents the type of drift detected
type DriftType int

const (
	DriftOK DriftType = iota
	DriftVersionMismatch
	DriftMissing
	DriftExtra
	DriftExternalOverride
	DriftManagedButNotActive
	DriftBroken
)

// String returns human-readable drift type name
func (d DriftType) String() string {
	switch d {
	case DriftOK:
		return "OK"
	case DriftVersionMismatch:
		return "VERSION_MISMATCH"
	case DriftMissing:
		return "MISSING"
	case DriftExtra:
		return "EXTRA"
	case DriftExternalOverride:
		return "EXTERNAL_OVERRIDE"
	case DriftManagedButNotActive:
		return "MANAGED_BUT_NOT_ACTIVE"
	case DriftBroken:
		return "BROKEN"
	default:
		return "UNKNOWN"
	}
}

// Spec is a package a project declares, with its wanted version. An empty
// version or "*" accepts anything.
type Spec struct {
	Name    string
	Version string
}

// Tool is a package as seen by the ledger or by PATH lookup.
type Tool struct {
	Name       string
	Version    string
	Executable string
	Path       string
	// Present reports whether Path exists on disk. Only meaningful for
	// ledger tools.
	Present bool
}

// Result is the outcome for a single package.
type Result struct {
	Package         string
	DriftType       DriftType
	DeclaredVersion string
	ManagedVersion  string
	ManagedPath     string
	ActivePath      string
}

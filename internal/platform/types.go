// Package platform detects the host OS, architecture and Linux distribution.
//
// The result decides the executable suffix used when installing release
// assets and is exposed to config.lua as a read-only "platform" table, so a
// registry URL can depend on where grip runs.
package platform

import (
	"context"
	"strings"
)

// Linux distribution family constants.
const (
	FamilyDebian  = "debian"  // Debian, Ubuntu, Linux Mint
	FamilyRHEL    = "rhel"    // RHEL, CentOS, Rocky Linux, AlmaLinux
	FamilyFedora  = "fedora"  // Fedora
	FamilySUSE    = "suse"    // openSUSE, SLES
	FamilyArch    = "arch"    // Arch Linux, Manjaro
	FamilyAlpine  = "alpine"  // Alpine Linux
	FamilyGentoo  = "gentoo"  // Gentoo
	FamilyUnknown = "unknown" // Unrecognized distributions
)

// Info contains platform detection information.
type Info struct {
	OS       string // "linux", "darwin", "windows"
	Arch     string // normalized, e.g. "amd64", "arm64"
	ArchRaw  string // original GOARCH
	Platform string // distro ID (Linux only, e.g., "ubuntu", "arch")
	Family   string // canonical family (e.g., "debian", "rhel", "arch")
	Version  string // distro version (Linux only, e.g., "22.04")
}

// Distro contains Linux distribution information.
type Distro struct {
	ID      string
	Family  string
	Version string
}

// GetDistro returns distro information, or nil off Linux or when detection
// failed.
func (i *Info) GetDistro() *Distro {
	if i.OS != "linux" || i.Platform == "" {
		return nil
	}
	return &Distro{
		ID:      i.Platform,
		Family:  i.Family,
		Version: i.Version,
	}
}

func (i *Info) IsLinux() bool   { return i.OS == "linux" }
func (i *Info) IsMacOS() bool   { return i.OS == "darwin" }
func (i *Info) IsWindows() bool { return i.OS == "windows" }
func (i *Info) IsAMD64() bool   { return i.Arch == "amd64" }
func (i *Info) IsARM64() bool   { return i.Arch == "arm64" }

// ExeSuffix returns the executable file suffix for the OS.
func (i *Info) ExeSuffix() string {
	if i.IsWindows() {
		return ".exe"
	}
	return ""
}

// String renders the platform as os/arch.
func (i *Info) String() string {
	return i.OS + "/" + i.Arch
}

// MatchesAsset reports whether an asset name mentions both this OS and this
// architecture under any of their common spellings. It is a hint only.
func (i *Info) MatchesAsset(name string) bool {
	lower := strings.ToLower(name)
	return containsAny(lower, osAliases[i.OS], i.OS) && containsAny(lower, archAliases[i.Arch], i.Arch)
}

func containsAny(s string, aliases []string, fallback string) bool {
	if len(aliases) == 0 {
		return fallback != "" && strings.Contains(s, fallback)
	}
	for _, a := range aliases {
		if strings.Contains(s, a) {
			return true
		}
	}
	return false
}

// Detector is the interface for platform detection.
type Detector interface {
	Detect(ctx context.Context) (*Info, error)
}

// StaticDetector returns a fixed Info. Tests use it in place of RealDetector.
type StaticDetector struct {
	Info *Info
}

// Detect returns a copy of the fixed Info.
func (d StaticDetector) Detect(ctx context.Context) (*Info, error) {
	info := *d.Info
	return &info, nil
}

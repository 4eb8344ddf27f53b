// Package ledger persists the record of installed packages.
//
// The ledger is a single JSON document, package_state.json, in the data
// directory. It is loaded once, mutated in memory and saved in full after
// each mutation. There is at most one entry per package name.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
)

// FileName is the ledger document name inside the data directory.
const FileName = "package_state.json"

// InstalledPackage is one ledger entry.
type InstalledPackage struct {
	Version        string    `json:"version"`
	InstallPath    string    `json:"install_path"`
	ExecutablePath string    `json:"executable_path,omitempty"`
	Registry       string    `json:"registry,omitempty"`
	Asset          string    `json:"asset,omitempty"`
	InstalledAt    time.Time `json:"installed_at,omitzero"`
}

// Entry pairs a package name with its ledger record.
type Entry struct {
	Name string
	InstalledPackage
}

// PackageState is the in-memory ledger.
type PackageState struct {
	Packages map[string]InstalledPackage `json:"packages"`
}

// New returns an empty ledger.
func New() *PackageState {
	return &PackageState{Packages: make(map[string]InstalledPackage)}
}

// Path returns the ledger location for dataDir.
func Path(dataDir string) string {
	return filepath.Join(dataDir, FileName)
}

// Load reads the ledger from dataDir. A missing file yields an empty ledger.
func Load(dataDir string) (*PackageState, error) {
	data, err := os.ReadFile(Path(dataDir))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return New(), nil
		}
		return nil, errs.Filesystem("read", Path(dataDir), err)
	}

	state := New()
	if err := json.Unmarshal(data, state); err != nil {
		return nil, fmt.Errorf("parse %s: %w", FileName, err)
	}
	if state.Packages == nil {
		state.Packages = make(map[string]InstalledPackage)
	}
	return state, nil
}

// Save writes the full ledger to dataDir using write-then-rename.
func (s *PackageState) Save(dataDir string) error {
	if err := os.MkdirAll(dataDir, 0755); err != nil {
		return errs.Filesystem("mkdir", dataDir, err)
	}

	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal ledger: %w", err)
	}

	finalPath := Path(dataDir)
	tmpFile, err := os.CreateTemp(dataDir, "."+FileName+".tmp-*")
	if err != nil {
		return errs.Filesystem("create", finalPath, err)
	}
	tmpPath := tmpFile.Name()
	defer os.Remove(tmpPath)

	if _, err := tmpFile.Write(data); err != nil {
		tmpFile.Close()
		return errs.Filesystem("write", tmpPath, err)
	}
	if err := tmpFile.Sync(); err != nil {
		tmpFile.Close()
		return errs.Filesystem("sync", tmpPath, err)
	}
	if err := tmpFile.Close(); err != nil {
		return errs.Filesystem("close", tmpPath, err)
	}

	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errs.Filesystem("rename", finalPath, err)
	}
	return nil
}

// Add records pkg under name, replacing any existing entry.
func (s *PackageState) Add(name string, pkg InstalledPackage) {
	if s.Packages == nil {
		s.Packages = make(map[string]InstalledPackage)
	}
	s.Packages[name] = pkg
}

// Remove deletes the entry for name and returns it.
func (s *PackageState) Remove(name string) (InstalledPackage, bool) {
	pkg, ok := s.Packages[name]
	if ok {
		delete(s.Packages, name)
	}
	return pkg, ok
}

// Get returns the entry for name.
func (s *PackageState) Get(name string) (InstalledPackage, bool) {
	pkg, ok := s.Packages[name]
	return pkg, ok
}

// List returns all entries sorted by name.
func (s *PackageState) List() []Entry {
	entries := make([]Entry, 0, len(s.Packages))
	for name, pkg := range s.Packages {
		entries = append(entries, Entry{Name: name, InstalledPackage: pkg})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Name < entries[j].Name
	})
	return entries
}

// Len returns the number of installed packages.
func (s *PackageState) Len() int {
	return len(s.Packages)
}

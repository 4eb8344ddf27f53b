package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/ZebulonRouseFrantzich/grip/internal/drift"
	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
)

// LoadManifest reads grip.json from dir. A missing manifest returns nil and
// no error.
func LoadManifest(dir string) (*Manifest, error) {
	path := filepath.Join(dir, ManifestFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, errs.Filesystem("read", path, err)
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// CheckRequest controls Check.
type CheckRequest struct {
	// ManifestDir holds the grip.json whose dependencies are the declared
	// versions. Empty skips the manifest.
	ManifestDir string
	// PathEnv is searched for executables. Empty uses $PATH.
	PathEnv string
}

// CheckReport is the outcome of Check.
type CheckReport struct {
	Manifest *Manifest
	Results  []drift.Result
}

// Drifted reports whether any package is out of sync.
func (r *CheckReport) Drifted() bool {
	for _, res := range r.Results {
		if res.DriftType != drift.DriftOK {
			return true
		}
	}
	return false
}

// Check compares the project's declared packages, the ledger and what PATH
// resolves.
func (in *Installer) Check(ctx context.Context, req CheckRequest) (*CheckReport, error) {
	entries, err := in.List(ctx)
	if err != nil {
		return nil, err
	}

	report := &CheckReport{}
	var declared []drift.Spec
	if req.ManifestDir != "" {
		m, err := LoadManifest(req.ManifestDir)
		if err != nil {
			return nil, err
		}
		if m != nil {
			report.Manifest = m
			declared = make([]drift.Spec, 0, len(m.Dependencies))
			for name, version := range m.Dependencies {
				declared = append(declared, drift.Spec{Name: name, Version: version})
			}
			sort.Slice(declared, func(i, j int) bool { return declared[i].Name < declared[j].Name })
		}
	}

	pathEnv := req.PathEnv
	if pathEnv == "" {
		pathEnv = os.Getenv("PATH")
	}

	managed := drift.QueryManaged(entries)
	active := drift.QueryActive(managed, pathEnv)
	report.Results = drift.DetectDrift(declared, managed, active, filepath.Join(in.dataDir, PackagesDirName))
	log.Debug("drift check", "declared", len(declared), "managed", len(managed), "active", len(active))
	return report, nil
}

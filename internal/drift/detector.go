package drift

import (
	"path/filepath"
	"sort"
	"strings"
)

// DetectDrift performs a three-way comparison and returns one result per
// package, sorted by name.
//
// declared is nil when there is no project manifest; every ledger package is
// then checked on its own and nothing is reported as extra. active is keyed
// by package name and only holds packages whose executable was found on
// PATH. packagesDir is the directory grip installs into.
func DetectDrift(declared []Spec, managed []Tool, active []Tool, packagesDir string) []Result {
	managedMap := make(map[string]Tool, len(managed))
	for _, t := range managed {
		managedMap[t.Name] = t
	}
	activeMap := make(map[string]Tool, len(active))
	for _, t := range active {
		activeMap[t.Name] = t
	}

	var results []Result
	for _, spec := range declared {
		m, hasManaged := managedMap[spec.Name]
		a, hasActive := activeMap[spec.Name]
		r := newResult(spec.Name, m, hasManaged, a, hasActive)
		r.DeclaredVersion = spec.Version
		r.DriftType = classify(&spec, m, hasManaged, a, hasActive, packagesDir)
		results = append(results, r)
		delete(managedMap, spec.Name)
	}

	for name, m := range managedMap {
		a, hasActive := activeMap[name]
		r := newResult(name, m, true, a, hasActive)
		if declared != nil {
			r.DriftType = DriftExtra
		} else {
			r.DriftType = classify(nil, m, true, a, hasActive, packagesDir)
		}
		results = append(results, r)
	}

	sort.Slice(results, func(i, j int) bool { return results[i].Package < results[j].Package })
	return results
}

func newResult(name string, m Tool, hasManaged bool, a Tool, hasActive bool) Result {
	r := Result{Package: name}
	if hasManaged {
		r.ManagedVersion = m.Version
		r.ManagedPath = m.Path
	}
	if hasActive {
		r.ActivePath = a.Path
	}
	return r
}

// classify determines the drift type. First match wins:
//  1. Missing: declared but not in the ledger
//  2. Broken: recorded but its executable is gone from disk
//  3. ManagedButNotActive: recorded but not found on PATH
//  4. ExternalOverride: PATH resolves to something grip did not install
//  5. VersionMismatch: recorded version differs from the declared one
//  6. OK
func classify(spec *Spec, m Tool, hasManaged bool, a Tool, hasActive bool, packagesDir string) DriftType {
	if !hasManaged {
		return DriftMissing
	}
	if !m.Present {
		return DriftBroken
	}
	if !hasActive {
		return DriftManagedButNotActive
	}
	if !IsManaged(a.Path, packagesDir) {
		return DriftExternalOverride
	}
	if spec != nil && spec.Version != "" && spec.Version != "*" && spec.Version != m.Version {
		return DriftVersionMismatch
	}
	return DriftOK
}

// IsManaged reports whether path lies inside packagesDir.
func IsManaged(path, packagesDir string) bool {
	if path == "" || packagesDir == "" {
		return false
	}
	rel, err := filepath.Rel(filepath.Clean(packagesDir), filepath.Clean(path))
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}

// Package transaction provides the data-directory lock and the staging area
// that makes package installs all-or-nothing.
//
// An install is written into .staging/<id> and only renamed into
// packages/<name>/<version> once it is complete. Each staging directory has a
// small JSON journal next to it so that leftovers from an interrupted run can
// be recognised and swept by Recover.
package transaction

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
)

// StagingDirName is the staging root inside the data directory.
const StagingDirName = ".staging"

// State represents the current state of a staged install.
type State string

const (
	StatePending   State = "pending"
	StatePromoted  State = "promoted"
	StateAborted   State = "aborted"
	StateCompleted State = "completed"
)

// ErrClosed is returned when a finished staging area is used again.
var ErrClosed = errors.New("staging area already promoted or aborted")

// Journal is the on-disk record of a staging area.
type Journal struct {
	Version   int       `json:"version"`
	ID        string    `json:"id"`
	Package   string    `json:"package,omitempty"`
	State     State     `json:"state"`
	Timestamp time.Time `json:"timestamp"`
	Target    string    `json:"target,omitempty"`
}

// Staging is a private directory that an install is assembled in.
type Staging struct {
	root    string
	dir     string
	journal Journal
	closed  bool
}

// NewStaging creates an empty staging directory under dataDir for pkg.
func NewStaging(dataDir, pkg string) (*Staging, error) {
	root := filepath.Join(dataDir, StagingDirName)
	id := uuid.New().String()
	dir := filepath.Join(root, id)

	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, errs.Filesystem("mkdir", dir, err)
	}

	s := &Staging{
		root: root,
		dir:  dir,
		journal: Journal{
			Version:   1,
			ID:        id,
			Package:   pkg,
			State:     StatePending,
			Timestamp: time.Now().UTC(),
		},
	}
	if err := s.save(); err != nil {
		os.RemoveAll(dir)
		return nil, err
	}
	return s, nil
}

// ID returns the staging identifier.
func (s *Staging) ID() string { return s.journal.ID }

// Dir returns the directory to assemble the install in.
func (s *Staging) Dir() string { return s.dir }

// Promote moves the staging directory to final. An existing final directory is
// replaced; if the rename fails it is restored.
func (s *Staging) Promote(final string) error {
	if s.closed {
		return ErrClosed
	}

	if err := os.MkdirAll(filepath.Dir(final), 0755); err != nil {
		return errs.Filesystem("mkdir", filepath.Dir(final), err)
	}

	s.journal.Target = final
	if err := s.save(); err != nil {
		return err
	}

	backup := ""
	if _, err := os.Lstat(final); err == nil {
		backup = filepath.Join(s.root, s.journal.ID+".old")
		if err := os.Rename(final, backup); err != nil {
			return errs.Filesystem("rename", final, err)
		}
	}

	if err := os.Rename(s.dir, final); err != nil {
		if backup != "" {
			os.Rename(backup, final)
		}
		return errs.Filesystem("rename", final, err)
	}

	s.closed = true
	s.journal.State = StatePromoted
	if backup != "" {
		os.RemoveAll(backup)
	}
	return s.finish()
}

// Abort discards the staging directory. It is a no-op after Promote.
func (s *Staging) Abort() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.journal.State = StateAborted

	if err := os.RemoveAll(s.dir); err != nil {
		return errs.Filesystem("remove", s.dir, err)
	}
	return s.finish()
}

func (s *Staging) journalPath() string {
	return filepath.Join(s.root, s.journal.ID+".json")
}

// save writes the journal atomically.
// Uses write-then-rename pattern for atomicity.
func (s *Staging) save() error {
	data, err := json.MarshalIndent(s.journal, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal journal: %w", err)
	}

	finalPath := s.journalPath()
	tmpPath := finalPath + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0600); err != nil {
		return errs.Filesystem("write", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		os.Remove(tmpPath)
		return errs.Filesystem("rename", finalPath, err)
	}
	return nil
}

// finish removes the journal once the staging area is resolved.
func (s *Staging) finish() error {
	if err := os.Remove(s.journalPath()); err != nil && !os.IsNotExist(err) {
		return errs.Filesystem("remove", s.journalPath(), err)
	}
	return nil
}

// LoadJournal reads a staging journal from disk.
func LoadJournal(path string) (*Journal, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read journal: %w", err)
	}

	var j Journal
	if err := json.Unmarshal(data, &j); err != nil {
		return nil, fmt.Errorf("unmarshal journal: %w", err)
	}
	return &j, nil
}

// Recover removes staging directories left behind by interrupted runs and
// returns the journals it swept. A previous install moved aside by a Promote
// that never finished is put back at its target first. The caller must hold
// the data-directory lock.
func Recover(dataDir string) ([]Journal, error) {
	root := filepath.Join(dataDir, StagingDirName)
	entries, err := os.ReadDir(root)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, errs.Filesystem("read", root, err)
	}

	var swept []Journal
	for _, e := range entries {
		if e.IsDir() || filepath.Ext(e.Name()) != ".json" {
			continue
		}
		path := filepath.Join(root, e.Name())
		j, err := LoadJournal(path)
		if err != nil {
			continue
		}
		if err := restoreBackup(root, j); err != nil {
			return swept, err
		}
		swept = append(swept, *j)
	}

	for _, e := range entries {
		path := filepath.Join(root, e.Name())
		if e.IsDir() {
			if err := os.RemoveAll(path); err != nil {
				return swept, errs.Filesystem("remove", path, err)
			}
			continue
		}
		os.Remove(path)
	}
	return swept, nil
}

// restoreBackup renames <id>.old back to the journal's target when the
// target is missing.
func restoreBackup(root string, j *Journal) error {
	if j.Target == "" {
		return nil
	}
	backup := filepath.Join(root, j.ID+".old")
	if _, err := os.Lstat(backup); err != nil {
		return nil
	}
	if _, err := os.Lstat(j.Target); err == nil {
		return nil
	}
	if err := os.Rename(backup, j.Target); err != nil {
		return errs.Filesystem("rename", backup, err)
	}
	return nil
}

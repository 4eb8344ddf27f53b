package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/ZebulonRouseFrantzich/grip/internal/errs"
	"github.com/ZebulonRouseFrantzich/grip/internal/log"
	"github.com/ZebulonRouseFrantzich/grip/internal/platform"
)

// Store loads and saves config.lua in a config directory.
type Store struct {
	dir       string
	parser    *Parser
	generator *Generator
}

// NewStore creates a store for dir. detector may be nil.
func NewStore(dir string, detector platform.Detector) *Store {
	return &Store{
		dir:       dir,
		parser:    NewParser(detector),
		generator: NewGenerator(),
	}
}

// Path returns the location of config.lua.
func (s *Store) Path() string {
	return filepath.Join(s.dir, FileName)
}

// Load reads config.lua. A missing file yields Default. The default registry
// is always present in the result.
func (s *Store) Load(ctx context.Context) (*Config, error) {
	path := s.Path()
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			log.Debug("no config file, using defaults", "path", path)
			return Default(), nil
		}
		return nil, errs.Filesystem("read", path, err)
	}

	content := string(data)
	for _, f := range DetectSensitiveData(content) {
		log.Warn(f.Description, "path", path, "line", f.Line, "preview", f.Preview)
	}

	cfg, err := s.parser.ParseString(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}
	cfg.ensureDefault()
	return cfg, nil
}

// Save writes cfg to config.lua using write-then-rename.
func (s *Store) Save(cfg *Config) error {
	content, err := s.generator.Generate(cfg)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return errs.Filesystem("mkdir", s.dir, err)
	}

	finalPath := s.Path()
	tmp, err := os.CreateTemp(s.dir, "."+FileName+".tmp-*")
	if err != nil {
		return errs.Filesystem("create", finalPath, err)
	}
	tmpPath := tmp.Name()
	defer os.Remove(tmpPath)

	if _, err := tmp.WriteString(content); err != nil {
		tmp.Close()
		return errs.Filesystem("write", tmpPath, err)
	}
	if err := tmp.Close(); err != nil {
		return errs.Filesystem("close", tmpPath, err)
	}
	if err := os.Chmod(tmpPath, 0644); err != nil {
		return errs.Filesystem("chmod", tmpPath, err)
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		return errs.Filesystem("rename", finalPath, err)
	}

	log.Debug("saved config", "path", finalPath, "registries", len(cfg.Registries))
	return nil
}

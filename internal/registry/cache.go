package registry

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// CacheFileName is the per-registry index database.
const CacheFileName = "index.db"

const cacheSchema = `
CREATE TABLE IF NOT EXISTS packages (
	name            TEXT PRIMARY KEY,
	repository      TEXT NOT NULL,
	executable_name TEXT NOT NULL DEFAULT '',
	description     TEXT NOT NULL DEFAULT ''
);

CREATE TABLE IF NOT EXISTS meta (
	id         INTEGER PRIMARY KEY CHECK (id = 1),
	fetched_at INTEGER NOT NULL,
	source_url TEXT NOT NULL,
	revision   TEXT NOT NULL DEFAULT ''
);
`

// Meta describes when and where a cached index was fetched from.
type Meta struct {
	FetchedAt time.Time
	SourceURL string
	// Revision is the commit hash for git-backed registries.
	Revision string
}

// Cache is the SQLite copy of one registry's index.
type Cache struct {
	db   *sql.DB
	path string
}

// OpenCache opens (creating if needed) the cache database at path. Use
// ":memory:" for a throwaway cache.
func OpenCache(path string) (*Cache, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create cache directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open index cache: %w", err)
	}

	// SQLite only allows one writer at a time
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}
	if _, err := db.Exec(cacheSchema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create cache schema: %w", err)
	}

	return &Cache{db: db, path: path}, nil
}

// Close closes the database connection.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

// Meta returns the fetch metadata. ok is false for a cache that was never
// filled.
func (c *Cache) Meta(ctx context.Context) (meta Meta, ok bool, err error) {
	var fetched int64
	row := c.db.QueryRowContext(ctx, `SELECT fetched_at, source_url, revision FROM meta WHERE id = 1`)
	if err := row.Scan(&fetched, &meta.SourceURL, &meta.Revision); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Meta{}, false, nil
		}
		return Meta{}, false, fmt.Errorf("read cache metadata: %w", err)
	}
	meta.FetchedAt = time.Unix(0, fetched)
	return meta, true, nil
}

// Replace swaps the cached index for defs in a single transaction.
func (c *Cache) Replace(ctx context.Context, defs []PackageDefinition, meta Meta) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache update: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM packages`); err != nil {
		return fmt.Errorf("clear cached packages: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO packages (name, repository, executable_name, description)
		VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, d := range defs {
		if _, err := stmt.ExecContext(ctx, d.Name, d.Repository, d.ExecutableName, d.Description); err != nil {
			return fmt.Errorf("cache package %s: %w", d.Name, err)
		}
	}

	_, err = tx.ExecContext(ctx, `
		INSERT OR REPLACE INTO meta (id, fetched_at, source_url, revision)
		VALUES (1, ?, ?, ?)`,
		meta.FetchedAt.UnixNano(), meta.SourceURL, meta.Revision)
	if err != nil {
		return fmt.Errorf("write cache metadata: %w", err)
	}

	return tx.Commit()
}

// Lookup returns the cached definition for name. Matching is exact and
// case-sensitive.
func (c *Cache) Lookup(ctx context.Context, name string) (*PackageDefinition, bool, error) {
	d := &PackageDefinition{}
	row := c.db.QueryRowContext(ctx, `
		SELECT name, repository, executable_name, description
		FROM packages WHERE name = ?`, name)
	if err := row.Scan(&d.Name, &d.Repository, &d.ExecutableName, &d.Description); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("lookup %s: %w", name, err)
	}
	return d, true, nil
}

// Names returns every cached package name in sorted order.
func (c *Cache) Names(ctx context.Context) ([]string, error) {
	rows, err := c.db.QueryContext(ctx, `SELECT name FROM packages ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cached packages: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	return names, rows.Err()
}

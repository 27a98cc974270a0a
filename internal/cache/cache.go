// Package cache records per-file content hashes between runs so unchanged
// files can skip annotation.
package cache

import (
	"database/sql"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/zeebo/xxh3"
)

// Cache is a sqlite-backed record of annotated files. Safe for concurrent
// use through database/sql's connection pool.
type Cache struct {
	db *sql.DB
}

// Stats summarizes the cache contents.
type Stats struct {
	Files      int
	Statements int
	LastRun    time.Time // zero when the cache is empty
}

// Open opens or creates the cache database at path.
func Open(path string) (*Cache, error) {
	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cache: open %s: %w", path, err)
	}
	c := &Cache{db: db}
	if err := c.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("cache: init schema: %w", err)
	}
	return c, nil
}

func (c *Cache) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS files (
		path TEXT PRIMARY KEY,
		hash TEXT NOT NULL,
		statements INTEGER NOT NULL DEFAULT 0,
		annotated_at TEXT NOT NULL
	);`
	_, err := c.db.Exec(schema)
	return err
}

// Changed reports whether path's content differs from its recorded hash.
// Files the cache has never seen are changed.
func (c *Cache) Changed(path string) (bool, error) {
	hash, err := fileHash(path)
	if err != nil {
		return false, fmt.Errorf("cache: hash %s: %w", path, err)
	}
	var stored string
	err = c.db.QueryRow("SELECT hash FROM files WHERE path = ?", path).Scan(&stored)
	if err == sql.ErrNoRows {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("cache: lookup %s: %w", path, err)
	}
	return stored != hash, nil
}

// MarkAnnotated records path's current hash after a successful run.
func (c *Cache) MarkAnnotated(path string, statements int) error {
	hash, err := fileHash(path)
	if err != nil {
		return fmt.Errorf("cache: hash %s: %w", path, err)
	}
	_, err = c.db.Exec(`
		INSERT INTO files (path, hash, statements, annotated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(path) DO UPDATE SET
			hash = excluded.hash,
			statements = excluded.statements,
			annotated_at = excluded.annotated_at`,
		path, hash, statements, time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("cache: record %s: %w", path, err)
	}
	return nil
}

// Forget drops path so the next run re-annotates it. Removing an unknown
// path is a no-op.
func (c *Cache) Forget(path string) error {
	if _, err := c.db.Exec("DELETE FROM files WHERE path = ?", path); err != nil {
		return fmt.Errorf("cache: forget %s: %w", path, err)
	}
	return nil
}

// Stats reports cache contents for status output.
func (c *Cache) Stats() (Stats, error) {
	var s Stats
	var last sql.NullString
	err := c.db.QueryRow(
		"SELECT COUNT(*), COALESCE(SUM(statements), 0), MAX(annotated_at) FROM files").
		Scan(&s.Files, &s.Statements, &last)
	if err != nil {
		return Stats{}, fmt.Errorf("cache: stats: %w", err)
	}
	if last.Valid {
		if t, err := time.Parse(time.RFC3339, last.String); err == nil {
			s.LastRun = t
		}
	}
	return s, nil
}

// Close closes the underlying database.
func (c *Cache) Close() error {
	return c.db.Close()
}

func fileHash(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", err
	}
	defer f.Close()
	h := xxh3.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

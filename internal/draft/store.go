// Package draft persists in-progress session drafts to a local durable
// cache so unsaved work survives a crash or reload. Writes are debounced
// and every storage fault degrades to a logged no-op: a failing local
// cache must never interrupt an active editing session.
package draft

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"
)

// Cache is the local durable cache contract: string payloads keyed by
// editor identity. Keys include the subject id so drafts for different
// subjects never collide.
type Cache interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
	Remove(key string) error
}

// SQLiteCache implements Cache on a local SQLite database.
type SQLiteCache struct {
	db *sql.DB
}

// OpenCache opens (or creates) the draft cache at dir/drafts.db.
func OpenCache(dir string) (*SQLiteCache, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating draft dir %s: %w", dir, err)
	}

	dbPath := filepath.Join(dir, "drafts.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening draft db: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS drafts (
		key        TEXT PRIMARY KEY,
		payload    TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating drafts table: %w", err)
	}

	return &SQLiteCache{db: db}, nil
}

// Get returns the stored payload for a key, reporting presence.
func (c *SQLiteCache) Get(key string) (string, bool, error) {
	var payload string
	err := c.db.QueryRow(`SELECT payload FROM drafts WHERE key = ?`, key).Scan(&payload)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return payload, true, nil
}

// Set stores or replaces the payload for a key.
func (c *SQLiteCache) Set(key, value string) error {
	_, err := c.db.Exec(
		`INSERT OR REPLACE INTO drafts (key, payload, updated_at) VALUES (?, ?, CURRENT_TIMESTAMP)`,
		key, value,
	)
	return err
}

// Remove deletes the payload for a key.
func (c *SQLiteCache) Remove(key string) error {
	_, err := c.db.Exec(`DELETE FROM drafts WHERE key = ?`, key)
	return err
}

// Close closes the underlying database.
func (c *SQLiteCache) Close() error {
	return c.db.Close()
}

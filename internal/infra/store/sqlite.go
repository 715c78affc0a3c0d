package store

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	// CurrentSchemaVersion is the current database schema version.
	CurrentSchemaVersion = "1"

	// DefaultDBPath is the default path for the state database.
	DefaultDBPath = "data/player.db"
)

// SQLite is a Backend storing every namespace in a single kv table.
type SQLite struct {
	mu   sync.RWMutex
	db   *sql.DB
	path string
}

// NewSQLite creates a new SQLite backend. Call Open before use.
func NewSQLite(path string) *SQLite {
	if path == "" {
		path = DefaultDBPath
	}
	return &SQLite{path: path}
}

// Open opens the database and initializes the schema.
func (s *SQLite) Open() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := sql.Open(driverName, dsn(s.path))
	if err != nil {
		return fmt.Errorf("failed to open store database: %w", err)
	}

	// SQLite only supports one writer
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	s.db = db

	if err := s.initSchema(); err != nil {
		s.db.Close()
		s.db = nil
		return fmt.Errorf("failed to initialize schema: %w", err)
	}

	log.Info().Str("path", s.path).Str("driver", driverName).Msg("State store opened")
	return nil
}

// Close closes the database connection.
func (s *SQLite) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// Namespace returns the view for name.
func (s *SQLite) Namespace(name string) Namespace {
	return &sqliteNamespace{s: s, name: name}
}

func (s *SQLite) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS kv (
		namespace TEXT NOT NULL,
		key TEXT NOT NULL,
		value BLOB,
		updated_at INTEGER NOT NULL,
		PRIMARY KEY (namespace, key)
	);

	CREATE TABLE IF NOT EXISTS store_meta (
		key TEXT PRIMARY KEY,
		value TEXT
	);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	current := s.getMeta("schema_version")
	if current != CurrentSchemaVersion {
		if current != "" {
			log.Info().
				Str("current", current).
				Str("target", CurrentSchemaVersion).
				Msg("Migrating store schema")
		}
		return s.setMeta("schema_version", CurrentSchemaVersion)
	}
	return nil
}

func (s *SQLite) getMeta(key string) string {
	var value string
	err := s.db.QueryRow("SELECT value FROM store_meta WHERE key = ?", key).Scan(&value)
	if err != nil {
		return ""
	}
	return value
}

func (s *SQLite) setMeta(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO store_meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value
	`, key, value)
	return err
}

type sqliteNamespace struct {
	s    *SQLite
	name string
}

func (n *sqliteNamespace) Get(ctx context.Context, key string) ([]byte, bool, error) {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	if n.s.db == nil {
		return nil, false, ErrClosed
	}

	var value []byte
	err := n.s.db.QueryRowContext(ctx,
		"SELECT value FROM kv WHERE namespace = ? AND key = ?", n.name, key).Scan(&value)
	if err == sql.ErrNoRows {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read %s/%s: %w", n.name, key, err)
	}
	return value, true, nil
}

func (n *sqliteNamespace) Put(ctx context.Context, key string, value []byte) error {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	if n.s.db == nil {
		return ErrClosed
	}

	_, err := n.s.db.ExecContext(ctx, `
		INSERT INTO kv (namespace, key, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT(namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, n.name, key, value, time.Now().UnixMilli())
	if err != nil {
		return fmt.Errorf("failed to write %s/%s: %w", n.name, key, err)
	}
	return nil
}

func (n *sqliteNamespace) Delete(ctx context.Context, key string) error {
	n.s.mu.RLock()
	defer n.s.mu.RUnlock()

	if n.s.db == nil {
		return ErrClosed
	}

	_, err := n.s.db.ExecContext(ctx,
		"DELETE FROM kv WHERE namespace = ? AND key = ?", n.name, key)
	if err != nil {
		return fmt.Errorf("failed to delete %s/%s: %w", n.name, key, err)
	}
	return nil
}

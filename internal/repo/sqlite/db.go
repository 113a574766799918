// Package sqlite is the persisted implementation of every internal/repo
// contract: one JSON-document column per aggregate (plus the narrow
// set of columns each repository's query patterns need to index on),
// migrated with pressly/goose, over either a local modernc.org/sqlite
// file or a libsql/Turso remote database. JSON-document-per-row fits
// here because every domain aggregate is already a single
// JSON-marshalable value rather than a wide relational row.
package sqlite

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

// DB wraps the connection pool shared by every repository
// implementation in this package.
type DB struct {
	conn *sql.DB
}

// Open connects to databaseURL, detecting a remote libsql/Turso target
// by its URL scheme (libsql://, http://, https://), and otherwise
// treats databaseURL as a local
// sqlite file path, creating its parent directory and applying the
// pragmas this module's concurrent repository access needs.
func Open(databaseURL string) (*DB, error) {
	isRemote := strings.HasPrefix(databaseURL, "libsql://") ||
		strings.HasPrefix(databaseURL, "http://") ||
		strings.HasPrefix(databaseURL, "https://")

	if isRemote {
		conn, err := sql.Open("libsql", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("sqlite: open libsql database: %w", err)
		}
		conn.SetMaxOpenConns(25)
		conn.SetMaxIdleConns(10)
		conn.SetConnMaxLifetime(5 * time.Minute)
		if err := conn.Ping(); err != nil {
			return nil, fmt.Errorf("sqlite: ping libsql database: %w", err)
		}
		return &DB{conn: conn}, nil
	}

	if dir := filepath.Dir(databaseURL); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("sqlite: create database directory %s: %w", dir, err)
		}
	}

	var conn *sql.DB
	var err error
	const maxRetries = 5
	baseDelay := 100 * time.Millisecond
	for attempt := 0; attempt < maxRetries; attempt++ {
		conn, err = sql.Open("sqlite", databaseURL)
		if err != nil {
			return nil, fmt.Errorf("sqlite: open database: %w", err)
		}
		conn.SetMaxOpenConns(10)
		conn.SetMaxIdleConns(5)

		if err = conn.Ping(); err == nil {
			break
		}
		conn.Close()
		if attempt == maxRetries-1 {
			return nil, fmt.Errorf("sqlite: ping database after %d attempts: %w", maxRetries, err)
		}
		time.Sleep(baseDelay * time.Duration(1<<uint(attempt)))
	}

	for _, pragma := range []string{
		"PRAGMA foreign_keys = ON",
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 30000",
		"PRAGMA synchronous = NORMAL",
	} {
		if _, err := conn.Exec(pragma); err != nil {
			return nil, fmt.Errorf("sqlite: %s: %w", pragma, err)
		}
	}

	return &DB{conn: conn}, nil
}

// Conn exposes the underlying pool for goose migrations and tests.
func (db *DB) Conn() *sql.DB { return db.conn }

// Close releases the connection pool.
func (db *DB) Close() error { return db.conn.Close() }

// Migrate applies every not-yet-applied migration in ./migrations.
func (db *DB) Migrate() error { return RunMigrations(db.conn) }

// Package index keeps the catalog of media copied into the user's library: one row per file,
// written pending first and made visible once its content is complete.
package index

import (
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // Pure Go SQLite driver
)

const (
	Images = "images"
	Videos = "videos"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS media (
		id TEXT PRIMARY KEY,
		collection TEXT NOT NULL,
		display_name TEXT NOT NULL,
		mime_type TEXT NOT NULL,
		relative_path TEXT NOT NULL,
		data_path TEXT NOT NULL,
		size INTEGER NOT NULL DEFAULT 0,
		checksum TEXT NOT NULL DEFAULT '',
		owner TEXT NOT NULL,
		is_pending INTEGER NOT NULL DEFAULT 1,
		date_added INTEGER NOT NULL,
		date_modified INTEGER NOT NULL,
		UNIQUE (relative_path, display_name)
	)`,
	`CREATE INDEX IF NOT EXISTS media_date_modified ON media (date_modified)`,
	`CREATE INDEX IF NOT EXISTS media_checksum ON media (checksum)`,
	`CREATE TABLE IF NOT EXISTS delete_grants (
		id TEXT NOT NULL,
		owner TEXT NOT NULL,
		PRIMARY KEY (id, owner)
	)`,
	`CREATE TABLE IF NOT EXISTS confirmations (
		handle TEXT PRIMARY KEY,
		id TEXT NOT NULL,
		owner TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

type Index struct {
	conn   *sql.DB
	root   string
	logger *zap.Logger
}

// Open initializes the index stored at dbPath. Media files live under root.
func Open(dbPath string, root string, logger *zap.Logger) (*Index, error) {
	for _, dir := range []string{filepath.Dir(dbPath), root} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, err
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, err
	}
	// a single connection serializes writers, sqlite would otherwise report SQLITE_BUSY
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
	} {
		if _, err := db.Exec(pragma); err != nil {
			_ = db.Close()
			return nil, err
		}
	}

	for _, stmt := range schema {
		if _, err := db.Exec(stmt); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("unable to create schema: %w", err)
		}
	}

	return &Index{
		conn:   db,
		root:   root,
		logger: logger,
	}, nil
}

func (x *Index) Root() string {
	return x.root
}

func (x *Index) Close() error {
	return x.conn.Close()
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

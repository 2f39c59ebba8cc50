// Package store persists the virtual project in SQLite. The surrounding
// editor replaces the project wholesale on every edit; the preview engine
// loads snapshots and detects changes by polling. No diff representation
// is kept — a replace supersedes everything.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hazyhaar/previewd/dbopen"
	"github.com/hazyhaar/previewd/preview/internal/vfs"
)

// Schema is the project store DDL, applied via dbopen.WithSchema.
const Schema = `
CREATE TABLE IF NOT EXISTS project_files (
	path       TEXT PRIMARY KEY,
	content    TEXT NOT NULL,
	updated_at INTEGER NOT NULL
);
`

// Store reads and replaces project snapshots.
type Store struct {
	db *sql.DB
}

// New wraps an already opened database. The schema must be present.
func New(db *sql.DB) *Store {
	return &Store{db: db}
}

// Open opens (or creates) the project store at path.
func Open(path string) (*Store, *sql.DB, error) {
	db, err := dbopen.Open(path, dbopen.WithSchema(Schema), dbopen.WithMkdirAll())
	if err != nil {
		return nil, nil, fmt.Errorf("store: %w", err)
	}
	return New(db), db, nil
}

// Load returns the current project snapshot.
func (s *Store) Load(ctx context.Context) (vfs.ProjectMap, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT path, content FROM project_files`)
	if err != nil {
		return nil, fmt.Errorf("store: load: %w", err)
	}
	defer rows.Close()

	project := make(vfs.ProjectMap)
	for rows.Next() {
		var p, content string
		if err := rows.Scan(&p, &content); err != nil {
			return nil, fmt.Errorf("store: scan: %w", err)
		}
		project[p] = content
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: rows: %w", err)
	}
	return project, nil
}

// Replace swaps the whole project for the given map in one transaction.
// All rows share the same updated_at stamp, so MAX(updated_at) works as a
// change-detection token for the watcher.
func (s *Store) Replace(ctx context.Context, project vfs.ProjectMap) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM project_files`); err != nil {
		return fmt.Errorf("store: clear: %w", err)
	}

	now := time.Now().UnixNano()
	for p, content := range project {
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO project_files (path, content, updated_at) VALUES (?,?,?)`,
			p, content, now); err != nil {
			return fmt.Errorf("store: insert %s: %w", p, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// Count returns the number of files in the store.
func (s *Store) Count(ctx context.Context) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM project_files`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("store: count: %w", err)
	}
	return n, nil
}

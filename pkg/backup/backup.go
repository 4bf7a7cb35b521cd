// Package backup periodically mirrors the three JSON documents into a
// sqlite database. The files stay the record of truth; the sqlite copy is a
// recovery tier that survives a mangled data directory.
package backup

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/astromechza/ticktrack/pkg/store"
)

type Runner struct {
	database *sql.DB
	store    *store.FileStore
	interval time.Duration
}

// Open opens (or creates) the backup database and ensures its schema.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("failed to open backup database: %w", err)
	}
	if _, err := db.Exec(
		`CREATE TABLE IF NOT EXISTS backups (
    	kind text not null primary key,
    	content text not null,
    	saved_at text not null
		)`,
	); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create backup table: %w", err)
	}
	return db, nil
}

// New builds a runner snapshotting st into db every interval.
func New(db *sql.DB, st *store.FileStore, interval time.Duration) (*Runner, error) {
	if interval <= 0 {
		interval = time.Minute
	}
	r := &Runner{database: db, store: st, interval: interval}
	for _, kind := range store.Kinds {
		empty, err := store.DefaultContent(kind)
		if err != nil {
			return nil, err
		}
		if _, err := db.Exec(
			`INSERT OR IGNORE INTO backups (kind, content, saved_at) VALUES (?, ?, ?)`,
			string(kind), string(empty), time.Now().UTC().Format(time.RFC3339),
		); err != nil {
			return nil, fmt.Errorf("failed to seed backup row: %w", err)
		}
	}
	return r, nil
}

// Run loops until the context is cancelled.
func (r *Runner) Run(ctx context.Context) {
	t := time.NewTicker(r.interval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			r.Snapshot(ctx)
		case <-ctx.Done():
			return
		}
	}
}

// Snapshot copies each document into the backup table, skipping documents
// whose content has not changed since the last snapshot.
func (r *Runner) Snapshot(ctx context.Context) {
	for _, kind := range store.Kinds {
		raw, err := r.store.Read(kind)
		if err != nil {
			slog.Error("failed to read document for backup", "kind", kind, "err", err)
			continue
		}
		content := string(raw)
		if res, err := r.database.ExecContext(
			ctx, `UPDATE backups SET content = ?, saved_at = ? WHERE kind = ? AND content != ?`,
			content, time.Now().UTC().Format(time.RFC3339), string(kind), content,
		); err != nil {
			slog.Error("failed to back up document", "kind", kind, "err", err)
		} else if n, _ := res.RowsAffected(); n > 0 {
			slog.Info("backed up", "kind", kind, "bytes", len(raw))
		}
	}
}

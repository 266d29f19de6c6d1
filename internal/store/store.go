// Package store is the durable clipboard history and template store.
//
// It runs on SQLite through database/sql with a single connection, so the
// database serialises every statement and transaction. Deduplication and
// retention settings are read from Settings on every call.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"go.klb.dev/clipkeep/internal/metrics"
)

// ErrNotFound is returned when a record or template id does not exist.
var ErrNotFound = errors.New("not found")

// ErrNotImage is returned by ImageData for records that hold no image.
var ErrNotImage = errors.New("not an image record")

// Settings is the part of the settings store the storage layer consults.
type Settings interface {
	HistoryLimit() int
	DeduplicateEnabled() bool
}

const retentionTimeout = 30 * time.Second

// Store provides history and template persistence.
type Store struct {
	db       *sql.DB
	settings Settings
	now      func() time.Time

	// bg tracks detached retention passes so Close can drain them.
	bg sync.WaitGroup
}

// Open opens (creating if needed) the database at path and runs migrations.
func Open(path string, settings Settings) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db, settings: settings, now: time.Now}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	slog.Debug("store opened", "path", path)
	return s, nil
}

// Close waits for pending retention passes and closes the database.
func (s *Store) Close() error {
	s.bg.Wait()
	return s.db.Close()
}

var migrations = []string{
	`CREATE TABLE IF NOT EXISTS clipboard_history (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		content_type TEXT NOT NULL CHECK (content_type IN ('text', 'image', 'file')),
		text_content TEXT,
		image_path TEXT,
		file_paths TEXT,
		source_app TEXT,
		timestamp INTEGER NOT NULL,
		is_favorite INTEGER NOT NULL DEFAULT 0,
		hash TEXT,
		preview_text TEXT,
		search_text TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_timestamp ON clipboard_history (timestamp)`,
	`CREATE INDEX IF NOT EXISTS idx_content_type ON clipboard_history (content_type)`,
	`CREATE INDEX IF NOT EXISTS idx_is_favorite ON clipboard_history (is_favorite)`,
	`CREATE INDEX IF NOT EXISTS idx_hash ON clipboard_history (hash)`,
	`CREATE TABLE IF NOT EXISTS templates (
		id TEXT PRIMARY KEY,
		description TEXT NOT NULL DEFAULT '',
		enabled INTEGER NOT NULL DEFAULT 1,
		keywords TEXT NOT NULL DEFAULT '[]',
		snippet_content TEXT NOT NULL,
		trigger_type TEXT NOT NULL DEFAULT 'shortcut',
		created_at INTEGER NOT NULL,
		updated_at INTEGER NOT NULL,
		shortcut TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_templates_enabled ON templates (enabled)`,
}

func (s *Store) migrate(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, m := range migrations {
		if _, err := tx.ExecContext(ctx, m); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// execer is satisfied by *sql.DB and *sql.Tx.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// isConstraint reports whether err is an SQLite constraint violation.
func isConstraint(err error) bool {
	var se *sqlite.Error
	if !errors.As(err, &se) {
		return false
	}
	return se.Code()&0xff == sqlite3.SQLITE_CONSTRAINT
}

// removeImage deletes a cached image file. Failures are logged and counted.
func removeImage(path string) error {
	if err := os.Remove(path); err != nil {
		slog.Warn("cached image not removed", "path", path, "err", err)
		metrics.FileCleanupErrors.Inc()
		return err
	}
	slog.Debug("cached image removed", "path", path)
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// Package sqlite implements the persistence ports on an embedded SQLite
// database. A single pooled connection serializes writers, full-text search
// lives in an FTS5 shadow table maintained through explicit index hooks, and
// multi-statement mutations run inside transactions handed out by the unit
// of work.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// timeLayout is RFC 3339 with fixed nanosecond width. Keeping trailing zeros
// makes stored timestamps compare lexicographically, so ORDER BY on the text
// column is also chronological order.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// dbtx is the intersection of *sql.DB and *sql.Tx used by the repositories,
// letting the same repository code run standalone or inside a unit of work.
type dbtx interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

// DB wraps the SQLite handle together with the on-disk path so size and
// schema questions can be answered without reopening the file.
type DB struct {
	sql    *sql.DB
	path   string
	logger *zap.Logger
}

// Open creates the database file if needed and configures the connection for
// concurrent readers with a single serialized writer.
func Open(path string, logger *zap.Logger) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, pkgerrors.NewStorageFailure("create data directory", err)
		}
	}

	handle, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("open database", err)
	}

	// SQLite allows one writer at a time. Funneling every statement through a
	// single pooled connection turns lock contention into in-process queueing
	// instead of SQLITE_BUSY failures.
	handle.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, pragma := range pragmas {
		if _, err := handle.Exec(pragma); err != nil {
			handle.Close()
			return nil, pkgerrors.NewStorageFailure(fmt.Sprintf("apply %q", pragma), err)
		}
	}

	logger.Info("Database opened", zap.String("path", path))

	return &DB{sql: handle, path: path, logger: logger}, nil
}

// Close releases the underlying connection pool.
func (d *DB) Close() error {
	return d.sql.Close()
}

// Path returns the location of the database file.
func (d *DB) Path() string { return d.path }

// SizeBytes reports the current size of the database file. WAL content not
// yet checkpointed is not included.
func (d *DB) SizeBytes() (int64, error) {
	info, err := os.Stat(d.path)
	if err != nil {
		return 0, pkgerrors.NewStorageFailure("stat database file", err)
	}
	return info.Size(), nil
}

// SchemaVersion reads the user_version pragma, which the migrator keeps in
// step with the newest applied migration.
func (d *DB) SchemaVersion(ctx context.Context) (int, error) {
	var version int
	if err := d.sql.QueryRowContext(ctx, "PRAGMA user_version").Scan(&version); err != nil {
		return 0, pkgerrors.NewStorageFailure("read schema version", err)
	}
	return version, nil
}

// formatTime renders a timestamp for storage. All stored times are UTC.
func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

// parseTime accepts both the fixed-width layout written by this package and
// plain RFC 3339 values carried in imported snapshots.
func parseTime(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t.UTC(), nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", value, err)
	}
	return t.UTC(), nil
}

// isUniqueViolation reports whether err is a SQLite UNIQUE constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

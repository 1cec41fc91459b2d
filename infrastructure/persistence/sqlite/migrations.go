package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// MigrationFunc applies one schema change inside the supplied transaction.
type MigrationFunc func(ctx context.Context, tx *sql.Tx) error

// Migration is a single numbered schema change. Versions are contiguous and
// start at 1. Up must tolerate the structure it creates already existing, so
// a replay after a partially recorded run converges instead of failing.
type Migration struct {
	Version     int
	Description string
	Up          MigrationFunc
}

// AppliedMigration is one row of the durable migration record.
type AppliedMigration struct {
	Version     int       `json:"version"`
	Description string    `json:"description"`
	AppliedAt   time.Time `json:"appliedAt"`
}

// migrations returns the full ordered schedule. Append only; never renumber
// or edit a shipped entry.
func migrations() []Migration {
	return []Migration{
		{
			Version:     1,
			Description: "create memories table",
			Up: execAll(
				`CREATE TABLE IF NOT EXISTS memories (
					id           INTEGER PRIMARY KEY AUTOINCREMENT,
					content      TEXT NOT NULL,
					content_hash TEXT NOT NULL,
					tags         TEXT NOT NULL DEFAULT '[]',
					created_at   TEXT NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_memories_content_hash ON memories(content_hash)`,
				`CREATE INDEX IF NOT EXISTS idx_memories_created_at ON memories(created_at DESC)`,
			),
		},
		{
			Version:     2,
			Description: "create full-text index table",
			Up: execAll(
				`CREATE VIRTUAL TABLE IF NOT EXISTS memories_fts USING fts5(
					content,
					tags,
					tokenize = 'unicode61'
				)`,
			),
		},
		{
			Version:     3,
			Description: "create relationships table",
			Up: execAll(
				`CREATE TABLE IF NOT EXISTS relationships (
					id                INTEGER PRIMARY KEY AUTOINCREMENT,
					from_id           INTEGER NOT NULL,
					to_id             INTEGER NOT NULL,
					relationship_type TEXT NOT NULL,
					created_at        TEXT NOT NULL
				)`,
				`CREATE UNIQUE INDEX IF NOT EXISTS idx_relationships_edge ON relationships(from_id, to_id, relationship_type)`,
				`CREATE INDEX IF NOT EXISTS idx_relationships_from ON relationships(from_id)`,
				`CREATE INDEX IF NOT EXISTS idx_relationships_to ON relationships(to_id)`,
			),
		},
		{
			Version:     4,
			Description: "add metadata column to memories",
			Up: execAll(
				`ALTER TABLE memories ADD COLUMN metadata TEXT NOT NULL DEFAULT '{}'`,
			),
		},
		{
			Version:     5,
			Description: "add metadata column to relationships",
			Up: execAll(
				`ALTER TABLE relationships ADD COLUMN metadata TEXT NOT NULL DEFAULT '{}'`,
			),
		},
	}
}

// execAll builds a MigrationFunc that runs each statement in order.
func execAll(statements ...string) MigrationFunc {
	return func(ctx context.Context, tx *sql.Tx) error {
		for _, stmt := range statements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return err
			}
		}
		return nil
	}
}

// Migrator brings the schema to the newest version at startup. Every pending
// migration runs in its own transaction and is recorded in the
// schema_migrations table; the user_version pragma mirrors the newest applied
// version and serves as a fast path that skips the table scan entirely when
// the schema is current.
type Migrator struct {
	db       *DB
	logger   *zap.Logger
	schedule []Migration
}

// NewMigrator creates a migrator over the built-in schedule.
func NewMigrator(db *DB, logger *zap.Logger) *Migrator {
	return &Migrator{
		db:       db,
		logger:   logger.Named("migrator"),
		schedule: migrations(),
	}
}

// TargetVersion returns the newest version in the schedule.
func (m *Migrator) TargetVersion() int {
	if len(m.schedule) == 0 {
		return 0
	}
	return m.schedule[len(m.schedule)-1].Version
}

// Migrate applies every pending migration in ascending order. A migration
// whose structure already exists is recorded as applied; any other failure
// aborts immediately and the caller treats it as fatal.
func (m *Migrator) Migrate(ctx context.Context) error {
	current, err := m.db.SchemaVersion(ctx)
	if err != nil {
		return err
	}
	target := m.TargetVersion()
	if current >= target {
		m.logger.Debug("Schema up to date", zap.Int("version", current))
		return nil
	}

	if err := m.ensureMigrationsTable(ctx); err != nil {
		return err
	}
	applied, err := m.appliedVersions(ctx)
	if err != nil {
		return err
	}

	for _, mig := range m.schedule {
		if applied[mig.Version] {
			continue
		}
		if err := m.applyOne(ctx, mig); err != nil {
			if !isAlreadyExists(err) {
				return pkgerrors.NewStorageFailure(
					fmt.Sprintf("apply migration %d (%s)", mig.Version, mig.Description), err)
			}
			// Structure left behind by an earlier partial run. Record the
			// version and keep going.
			m.logger.Warn("Migration target already present, recording as applied",
				zap.Int("version", mig.Version),
				zap.String("description", mig.Description))
			if err := m.recordVersion(ctx, mig); err != nil {
				return err
			}
			continue
		}
		m.logger.Info("Migration applied",
			zap.Int("version", mig.Version),
			zap.String("description", mig.Description))
	}

	return m.setUserVersion(ctx, target)
}

// History returns the durable migration record in version order.
func (m *Migrator) History(ctx context.Context) ([]AppliedMigration, error) {
	if err := m.ensureMigrationsTable(ctx); err != nil {
		return nil, err
	}
	rows, err := m.db.sql.QueryContext(ctx,
		`SELECT version, description, applied_at FROM schema_migrations ORDER BY version`)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("read migration history", err)
	}
	defer rows.Close()

	var history []AppliedMigration
	for rows.Next() {
		var entry AppliedMigration
		var appliedAt string
		if err := rows.Scan(&entry.Version, &entry.Description, &appliedAt); err != nil {
			return nil, pkgerrors.NewStorageFailure("scan migration history", err)
		}
		if t, err := parseTime(appliedAt); err == nil {
			entry.AppliedAt = t
		}
		history = append(history, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStorageFailure("read migration history", err)
	}
	return history, nil
}

func (m *Migrator) ensureMigrationsTable(ctx context.Context) error {
	_, err := m.db.sql.ExecContext(ctx,
		`CREATE TABLE IF NOT EXISTS schema_migrations (
			version     INTEGER PRIMARY KEY,
			description TEXT NOT NULL,
			applied_at  TEXT NOT NULL
		)`)
	if err != nil {
		return pkgerrors.NewStorageFailure("create schema_migrations table", err)
	}
	return nil
}

func (m *Migrator) appliedVersions(ctx context.Context) (map[int]bool, error) {
	rows, err := m.db.sql.QueryContext(ctx, `SELECT version FROM schema_migrations`)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("read applied migrations", err)
	}
	defer rows.Close()

	applied := make(map[int]bool)
	for rows.Next() {
		var version int
		if err := rows.Scan(&version); err != nil {
			return nil, pkgerrors.NewStorageFailure("scan applied migration", err)
		}
		applied[version] = true
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStorageFailure("read applied migrations", err)
	}
	return applied, nil
}

// applyOne runs a migration and its durable record inside one transaction.
func (m *Migrator) applyOne(ctx context.Context, mig Migration) error {
	tx, err := m.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := mig.Up(ctx, tx); err != nil {
		tx.Rollback()
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		mig.Version, mig.Description, formatTime(time.Now())); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// recordVersion writes the durable record for a migration whose structure
// already existed.
func (m *Migrator) recordVersion(ctx context.Context, mig Migration) error {
	_, err := m.db.sql.ExecContext(ctx,
		`INSERT OR IGNORE INTO schema_migrations (version, description, applied_at) VALUES (?, ?, ?)`,
		mig.Version, mig.Description, formatTime(time.Now()))
	if err != nil {
		return pkgerrors.NewStorageFailure(
			fmt.Sprintf("record migration %d", mig.Version), err)
	}
	return nil
}

func (m *Migrator) setUserVersion(ctx context.Context, version int) error {
	// PRAGMA does not accept bound parameters.
	if _, err := m.db.sql.ExecContext(ctx, fmt.Sprintf("PRAGMA user_version = %d", version)); err != nil {
		return pkgerrors.NewStorageFailure("update schema version marker", err)
	}
	return nil
}

// isAlreadyExists matches the SQLite errors raised when a migration recreates
// a table, index, or column that is already present.
func isAlreadyExists(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "already exists") || strings.Contains(msg, "duplicate column name")
}

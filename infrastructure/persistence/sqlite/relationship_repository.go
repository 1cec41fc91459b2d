package sqlite

import (
	"context"
	"database/sql"

	"go.uber.org/zap"

	"github.com/chyax98/recall/domain/core/entities"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// RelationshipRepository implements ports.RelationshipRepository over the
// relationships table. Edges are directed and unique per (from, to, type).
type RelationshipRepository struct {
	q      dbtx
	logger *zap.Logger
}

// NewRelationshipRepository binds a repository to the shared connection.
func NewRelationshipRepository(db *DB, logger *zap.Logger) *RelationshipRepository {
	return newRelationshipRepository(db.sql, logger)
}

func newRelationshipRepository(q dbtx, logger *zap.Logger) *RelationshipRepository {
	return &RelationshipRepository{q: q, logger: logger.Named("relationships")}
}

// Insert persists an edge. A duplicate (from, to, type) triple is absorbed by
// the unique index and reported as (false, nil).
func (r *RelationshipRepository) Insert(ctx context.Context, rel *entities.Relationship) (bool, error) {
	metadata, err := marshalMetadata(rel.Metadata())
	if err != nil {
		return false, err
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO relationships (from_id, to_id, relationship_type, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (from_id, to_id, relationship_type) DO NOTHING`,
		rel.FromID(), rel.ToID(), string(rel.Type()), metadata, formatTime(rel.CreatedAt()))
	if err != nil {
		return false, pkgerrors.NewStorageFailure("insert relationship", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, pkgerrors.NewStorageFailure("read insert row count", err)
	}
	return affected > 0, nil
}

// Neighbors returns the memories directly linked to memoryID in either
// direction. Multiple edges to the same neighbor collapse to one entry and
// the order follows the most recent connecting edge, newest first.
func (r *RelationshipRepository) Neighbors(ctx context.Context, memoryID int64, limit int) ([]*entities.Memory, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT m.id, m.content, m.tags, m.metadata, m.created_at
		 FROM relationships r
		 JOIN memories m ON m.id = CASE WHEN r.from_id = ? THEN r.to_id ELSE r.from_id END
		 WHERE r.from_id = ? OR r.to_id = ?
		 GROUP BY m.id
		 ORDER BY MAX(r.created_at) DESC, m.id DESC
		 LIMIT ?`,
		memoryID, memoryID, memoryID, limit)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("load neighbors", err)
	}
	defer rows.Close()
	return collectMemories(rows)
}

// ListByMemory returns every edge touching the memory, newest first.
func (r *RelationshipRepository) ListByMemory(ctx context.Context, memoryID int64) ([]*entities.Relationship, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, from_id, to_id, relationship_type, metadata, created_at
		 FROM relationships
		 WHERE from_id = ? OR to_id = ?
		 ORDER BY created_at DESC, id DESC`,
		memoryID, memoryID)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("list relationships for memory", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// ListAll returns every edge ordered by (from, to, type) so exports are
// deterministic.
func (r *RelationshipRepository) ListAll(ctx context.Context) ([]*entities.Relationship, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, from_id, to_id, relationship_type, metadata, created_at
		 FROM relationships
		 ORDER BY from_id, to_id, relationship_type`)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("list relationships", err)
	}
	defer rows.Close()
	return collectRelationships(rows)
}

// DeleteByMemoryID removes every edge touching the memory and returns the
// number removed.
func (r *RelationshipRepository) DeleteByMemoryID(ctx context.Context, memoryID int64) (int64, error) {
	res, err := r.q.ExecContext(ctx,
		`DELETE FROM relationships WHERE from_id = ? OR to_id = ?`, memoryID, memoryID)
	if err != nil {
		return 0, pkgerrors.NewStorageFailure("delete relationships for memory", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, pkgerrors.NewStorageFailure("read delete row count", err)
	}
	return affected, nil
}

// Count returns the number of live edges.
func (r *RelationshipRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM relationships`).Scan(&count); err != nil {
		return 0, pkgerrors.NewStorageFailure("count relationships", err)
	}
	return count, nil
}

func scanRelationship(s rowScanner) (*entities.Relationship, error) {
	var (
		id        int64
		fromID    int64
		toID      int64
		relType   string
		metaJSON  string
		createdAt string
	)
	if err := s.Scan(&id, &fromID, &toID, &relType, &metaJSON, &createdAt); err != nil {
		return nil, err
	}
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructRelationship(id, fromID, toID, relType, t, unmarshalMetadata(metaJSON)), nil
}

func collectRelationships(rows *sql.Rows) ([]*entities.Relationship, error) {
	var relationships []*entities.Relationship
	for rows.Next() {
		rel, err := scanRelationship(rows)
		if err != nil {
			return nil, pkgerrors.NewStorageFailure("scan relationship row", err)
		}
		relationships = append(relationships, rel)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStorageFailure("iterate relationship rows", err)
	}
	return relationships, nil
}

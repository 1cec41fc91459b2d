package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// MemoryRepository implements ports.MemoryRepository over the memories table.
// The bound index receives a hook call inside the same statement scope as
// every mutation, so mutations should normally run through the unit of work.
type MemoryRepository struct {
	q      dbtx
	index  Index
	logger *zap.Logger
}

// NewMemoryRepository binds a repository to the shared connection, suitable
// for single-statement reads.
func NewMemoryRepository(db *DB, index Index, logger *zap.Logger) *MemoryRepository {
	return newMemoryRepository(db.sql, index, logger)
}

func newMemoryRepository(q dbtx, index Index, logger *zap.Logger) *MemoryRepository {
	return &MemoryRepository{q: q, index: index, logger: logger.Named("memories")}
}

// Insert persists a new memory, assigns its id and projects it into the
// index. A live row with the same content hash yields a conflict.
func (r *MemoryRepository) Insert(ctx context.Context, m *entities.Memory) error {
	tags, err := marshalTags(m.Tags())
	if err != nil {
		return err
	}
	metadata, err := marshalMetadata(m.Metadata())
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx,
		`INSERT INTO memories (content, content_hash, tags, metadata, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		m.Content(), m.Hash().String(), tags, metadata, formatTime(m.CreatedAt()))
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflict("a memory with identical content already exists").
				WithDetails(map[string]interface{}{"hash": m.Hash().String()})
		}
		return pkgerrors.NewStorageFailure("insert memory", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return pkgerrors.NewStorageFailure("read inserted memory id", err)
	}
	if err := m.SetID(id); err != nil {
		return err
	}

	return r.index.OnInsert(ctx, r.q, id, m.Content(), m.TagSet().Joined())
}

// GetByHash loads a memory by hash identity. Absence is (nil, nil).
func (r *MemoryRepository) GetByHash(ctx context.Context, hash valueobjects.ContentHash) (*entities.Memory, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, content, tags, metadata, created_at FROM memories WHERE content_hash = ?`,
		hash.String())
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.NewStorageFailure("load memory by hash", err)
	}
	return m, nil
}

// GetByID loads a memory by surrogate id. Absence is (nil, nil).
func (r *MemoryRepository) GetByID(ctx context.Context, id int64) (*entities.Memory, error) {
	row := r.q.QueryRowContext(ctx,
		`SELECT id, content, tags, metadata, created_at FROM memories WHERE id = ?`, id)
	m, err := scanMemory(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, pkgerrors.NewStorageFailure("load memory by id", err)
	}
	return m, nil
}

// Update rewrites the stored row for the memory's id and reprojects it into
// the index. A hash collision with a different live row yields a conflict.
func (r *MemoryRepository) Update(ctx context.Context, m *entities.Memory) error {
	if m.ID() == 0 {
		return pkgerrors.NewInvalidInput("memory has no id")
	}
	tags, err := marshalTags(m.Tags())
	if err != nil {
		return err
	}
	metadata, err := marshalMetadata(m.Metadata())
	if err != nil {
		return err
	}

	res, err := r.q.ExecContext(ctx,
		`UPDATE memories SET content = ?, content_hash = ?, tags = ?, metadata = ? WHERE id = ?`,
		m.Content(), m.Hash().String(), tags, metadata, m.ID())
	if err != nil {
		if isUniqueViolation(err) {
			return pkgerrors.NewConflict("another memory already has this content").
				WithDetails(map[string]interface{}{"hash": m.Hash().String()})
		}
		return pkgerrors.NewStorageFailure("update memory", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewStorageFailure("read update row count", err)
	}
	if affected == 0 {
		return pkgerrors.NewNotFound("memory")
	}

	return r.index.OnUpdate(ctx, r.q, m.ID(), m.Content(), m.TagSet().Joined())
}

// Delete removes the row and its index projection. Edges are the caller's
// responsibility.
func (r *MemoryRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.q.ExecContext(ctx, `DELETE FROM memories WHERE id = ?`, id)
	if err != nil {
		return pkgerrors.NewStorageFailure("delete memory", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return pkgerrors.NewStorageFailure("read delete row count", err)
	}
	if affected == 0 {
		return pkgerrors.NewNotFound("memory")
	}
	return r.index.OnDelete(ctx, r.q, id)
}

// ListAll returns every live memory, newest first.
func (r *MemoryRepository) ListAll(ctx context.Context) ([]*entities.Memory, error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, content, tags, metadata, created_at FROM memories
		 ORDER BY created_at DESC, id DESC`)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("list memories", err)
	}
	defer rows.Close()
	return collectMemories(rows)
}

// SearchText runs the full-text stage: every memory containing at least one
// query token, scored in [0,1), best match first and ties newest first. A
// query with no usable tokens matches nothing.
func (r *MemoryRepository) SearchText(ctx context.Context, query string) ([]ports.ScoredMemory, error) {
	match := buildMatchQuery(query)
	if match == "" {
		return nil, nil
	}

	rows, err := r.q.QueryContext(ctx,
		`SELECT m.id, m.content, m.tags, m.metadata, m.created_at, bm25(memories_fts) AS rank
		 FROM memories_fts
		 JOIN memories m ON m.id = memories_fts.rowid
		 WHERE memories_fts MATCH ?
		 ORDER BY rank, m.created_at DESC, m.id DESC`,
		match)
	if err != nil {
		return nil, pkgerrors.NewStorageFailure("search memories", err)
	}
	defer rows.Close()

	var results []ports.ScoredMemory
	for rows.Next() {
		var (
			id        int64
			content   string
			tagsJSON  string
			metaJSON  string
			createdAt string
			rank      float64
		)
		if err := rows.Scan(&id, &content, &tagsJSON, &metaJSON, &createdAt, &rank); err != nil {
			return nil, pkgerrors.NewStorageFailure("scan search result", err)
		}
		m, err := reconstructRow(id, content, tagsJSON, metaJSON, createdAt)
		if err != nil {
			return nil, pkgerrors.NewStorageFailure("decode search result", err)
		}
		results = append(results, ports.ScoredMemory{Memory: m, Score: normalizeScore(rank)})
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStorageFailure("search memories", err)
	}
	return results, nil
}

// Count returns the number of live memories.
func (r *MemoryRepository) Count(ctx context.Context) (int64, error) {
	var count int64
	if err := r.q.QueryRowContext(ctx, `SELECT COUNT(*) FROM memories`).Scan(&count); err != nil {
		return 0, pkgerrors.NewStorageFailure("count memories", err)
	}
	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanMemory(s rowScanner) (*entities.Memory, error) {
	var (
		id        int64
		content   string
		tagsJSON  string
		metaJSON  string
		createdAt string
	)
	if err := s.Scan(&id, &content, &tagsJSON, &metaJSON, &createdAt); err != nil {
		return nil, err
	}
	return reconstructRow(id, content, tagsJSON, metaJSON, createdAt)
}

func reconstructRow(id int64, content, tagsJSON, metaJSON, createdAt string) (*entities.Memory, error) {
	t, err := parseTime(createdAt)
	if err != nil {
		return nil, err
	}
	return entities.ReconstructMemory(id, content, unmarshalTags(tagsJSON), t, unmarshalMetadata(metaJSON))
}

func collectMemories(rows *sql.Rows) ([]*entities.Memory, error) {
	var memories []*entities.Memory
	for rows.Next() {
		m, err := scanMemory(rows)
		if err != nil {
			return nil, pkgerrors.NewStorageFailure("scan memory row", err)
		}
		memories = append(memories, m)
	}
	if err := rows.Err(); err != nil {
		return nil, pkgerrors.NewStorageFailure("iterate memory rows", err)
	}
	return memories, nil
}

func marshalTags(tags []string) (string, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return "", pkgerrors.NewInternalError("encode tags").WithCause(err)
	}
	return string(b), nil
}

func unmarshalTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	if err := json.Unmarshal([]byte(raw), &tags); err != nil {
		return nil
	}
	return tags
}

func marshalMetadata(metadata map[string]interface{}) (string, error) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	b, err := json.Marshal(metadata)
	if err != nil {
		return "", pkgerrors.NewInternalError("encode metadata").WithCause(err)
	}
	return string(b), nil
}

func unmarshalMetadata(raw string) map[string]interface{} {
	if raw == "" {
		return nil
	}
	var metadata map[string]interface{}
	if err := json.Unmarshal([]byte(raw), &metadata); err != nil {
		return nil
	}
	return metadata
}

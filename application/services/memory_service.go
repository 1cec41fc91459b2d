// Package services holds the application services implementing the store's
// public operations over the persistence ports. Mutations run through the
// unit of work so row, index and edge changes commit or roll back together.
package services

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// DefaultSearchLimit is the result cap used when a caller does not choose
// one. The engine itself clamps any supplied limit to at least 1.
const DefaultSearchLimit = 10

// MemoryService implements the memory operations: store, fetch, update,
// delete and search.
type MemoryService struct {
	memories      ports.MemoryRepository
	relationships ports.RelationshipRepository
	uow           ports.UnitOfWork
	info          ports.StoreInfo
	logger        *zap.Logger
}

// NewMemoryService creates a memory service.
func NewMemoryService(
	memories ports.MemoryRepository,
	relationships ports.RelationshipRepository,
	uow ports.UnitOfWork,
	info ports.StoreInfo,
	logger *zap.Logger,
) *MemoryService {
	return &MemoryService{
		memories:      memories,
		relationships: relationships,
		uow:           uow,
		info:          info,
		logger:        logger.Named("memory-service"),
	}
}

// StoreInput carries a new memory.
type StoreInput struct {
	Content  string
	Tags     []string
	Metadata map[string]interface{}
}

// StoreResult reports a store call. Created is false when content identical
// to a live memory made the call a no-op.
type StoreResult struct {
	Memory  *entities.Memory
	Created bool
}

// Store saves a new memory. Content whose hash already belongs to a live
// memory is a no-op success: the existing record comes back untouched, tags
// included, and no second row is written.
func (s *MemoryService) Store(ctx context.Context, input StoreInput) (*StoreResult, error) {
	m, err := entities.NewMemory(input.Content, input.Tags)
	if err != nil {
		return nil, err
	}
	if len(input.Metadata) > 0 {
		m.SetMetadata(input.Metadata)
	}

	var result *StoreResult
	err = s.uow.Execute(ctx, func(stores ports.Stores) error {
		existing, err := stores.Memories().GetByHash(ctx, m.Hash())
		if err != nil {
			return err
		}
		if existing != nil {
			result = &StoreResult{Memory: existing, Created: false}
			return nil
		}
		if err := stores.Memories().Insert(ctx, m); err != nil {
			return err
		}
		result = &StoreResult{Memory: m, Created: true}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Memory stored",
		zap.String("hash", result.Memory.Hash().String()),
		zap.Bool("created", result.Created))
	return result, nil
}

// GetByHash fetches one memory by its hash identity. Absence is not an
// error: a well-formed hash that resolves to nothing returns (nil, nil).
func (s *MemoryService) GetByHash(ctx context.Context, hash string) (*entities.Memory, error) {
	h, err := valueobjects.ParseContentHash(hash)
	if err != nil {
		return nil, err
	}
	return s.memories.GetByHash(ctx, h)
}

// List returns memories newest first, capped at limit when limit > 0.
func (s *MemoryService) List(ctx context.Context, limit int) ([]*entities.Memory, error) {
	all, err := s.memories.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

// UpdateInput changes the memory addressed by Hash. Nil fields keep the
// stored value; a non-nil empty Tags slice clears the tag set. Changing
// content changes the memory's hash identity, so callers must switch to the
// hash of the returned memory.
type UpdateInput struct {
	Hash     string
	Content  *string
	Tags     []string
	Metadata map[string]interface{}
}

// Update applies an UpdateInput in one transaction. When the new content
// hashes to a value owned by a different live memory the call fails with a
// conflict and neither record changes.
func (s *MemoryService) Update(ctx context.Context, input UpdateInput) (*entities.Memory, error) {
	h, err := valueobjects.ParseContentHash(input.Hash)
	if err != nil {
		return nil, err
	}

	var updated *entities.Memory
	err = s.uow.Execute(ctx, func(stores ports.Stores) error {
		m, err := stores.Memories().GetByHash(ctx, h)
		if err != nil {
			return err
		}
		if m == nil {
			return pkgerrors.NewNotFound("memory")
		}

		if input.Content != nil {
			if err := m.UpdateContent(*input.Content); err != nil {
				return err
			}
			if !m.Hash().Equals(h) {
				other, err := stores.Memories().GetByHash(ctx, m.Hash())
				if err != nil {
					return err
				}
				if other != nil && other.ID() != m.ID() {
					return pkgerrors.NewConflict("another memory already has this content").
						WithDetails(map[string]interface{}{"hash": m.Hash().String()})
				}
			}
		}
		if input.Tags != nil {
			m.ReplaceTags(input.Tags)
		}
		if input.Metadata != nil {
			m.SetMetadata(input.Metadata)
		}

		if err := stores.Memories().Update(ctx, m); err != nil {
			return err
		}
		updated = m
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Memory updated",
		zap.String("previousHash", h.String()),
		zap.String("hash", updated.Hash().String()))
	return updated, nil
}

// DeleteResult reports a single-memory delete.
type DeleteResult struct {
	Deleted          bool
	RemovedRelations int64
}

// Delete removes a memory, its index projection and every edge touching it
// in one transaction. A hash that resolves to nothing reports Deleted=false
// without error.
func (s *MemoryService) Delete(ctx context.Context, hash string) (*DeleteResult, error) {
	h, err := valueobjects.ParseContentHash(hash)
	if err != nil {
		return nil, err
	}

	result := &DeleteResult{}
	err = s.uow.Execute(ctx, func(stores ports.Stores) error {
		m, err := stores.Memories().GetByHash(ctx, h)
		if err != nil {
			return err
		}
		if m == nil {
			return nil
		}
		removed, err := stores.Relationships().DeleteByMemoryID(ctx, m.ID())
		if err != nil {
			return err
		}
		if err := stores.Memories().Delete(ctx, m.ID()); err != nil {
			return err
		}
		result.Deleted = true
		result.RemovedRelations = removed
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.Deleted {
		s.logger.Info("Memory deleted",
			zap.String("hash", h.String()),
			zap.Int64("removedRelations", result.RemovedRelations))
	}
	return result, nil
}

// TagDeleteResult reports a delete-by-tag sweep.
type TagDeleteResult struct {
	Deleted          int64
	RemovedRelations int64
}

// DeleteByTag removes every memory carrying the exact tag, each with the
// same cascade as Delete, all inside one transaction.
func (s *MemoryService) DeleteByTag(ctx context.Context, tag string) (*TagDeleteResult, error) {
	tag = strings.TrimSpace(tag)
	if tag == "" {
		return nil, pkgerrors.NewInvalidInput("tag cannot be empty")
	}

	result := &TagDeleteResult{}
	err := s.uow.Execute(ctx, func(stores ports.Stores) error {
		all, err := stores.Memories().ListAll(ctx)
		if err != nil {
			return err
		}
		for _, m := range all {
			if !m.HasTag(tag) {
				continue
			}
			removed, err := stores.Relationships().DeleteByMemoryID(ctx, m.ID())
			if err != nil {
				return err
			}
			if err := stores.Memories().Delete(ctx, m.ID()); err != nil {
				return err
			}
			result.Deleted++
			result.RemovedRelations += removed
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Memories deleted by tag",
		zap.String("tag", tag),
		zap.Int64("deleted", result.Deleted))
	return result, nil
}

// SearchResult pairs a memory with its relevance. Score is nil when the
// query stage did not run.
type SearchResult struct {
	Memory *entities.Memory
	Score  *float64
}

// Search runs the filter pipeline in fixed order: text relevance, tag
// intersection, date range, minimum relevance, then the limit. With a query
// the order is best match first, ties newest first; without one it is newest
// first.
func (s *MemoryService) Search(ctx context.Context, query ports.SearchQuery) ([]SearchResult, error) {
	var results []SearchResult
	hasQuery := strings.TrimSpace(query.Query) != ""

	if hasQuery {
		scored, err := s.memories.SearchText(ctx, query.Query)
		if err != nil {
			return nil, err
		}
		results = make([]SearchResult, 0, len(scored))
		for _, sm := range scored {
			score := sm.Score
			results = append(results, SearchResult{Memory: sm.Memory, Score: &score})
		}
	} else {
		all, err := s.memories.ListAll(ctx)
		if err != nil {
			return nil, err
		}
		results = make([]SearchResult, 0, len(all))
		for _, m := range all {
			results = append(results, SearchResult{Memory: m})
		}
	}

	if len(query.Tags) > 0 {
		results = filterResults(results, func(m *entities.Memory) bool {
			return m.TagSet().Intersects(query.Tags)
		})
	}

	start, end := resolveDateRange(query)
	if start != nil || end != nil {
		results = filterResults(results, func(m *entities.Memory) bool {
			created := m.CreatedAt()
			if start != nil && created.Before(*start) {
				return false
			}
			if end != nil && created.After(*end) {
				return false
			}
			return true
		})
	}

	if hasQuery && query.MinRelevance != nil {
		threshold := clamp01(*query.MinRelevance)
		kept := results[:0]
		for _, r := range results {
			if r.Score != nil && *r.Score >= threshold {
				kept = append(kept, r)
			}
		}
		results = kept
	}

	limit := query.Limit
	if limit < 1 {
		limit = 1
	}
	if len(results) > limit {
		results = results[:limit]
	}
	return results, nil
}

// Stats reports the aggregate counts from one consistent transaction view
// plus the on-disk size of the store.
func (s *MemoryService) Stats(ctx context.Context) (*ports.Stats, error) {
	stats := &ports.Stats{}
	err := s.uow.Execute(ctx, func(stores ports.Stores) error {
		memories, err := stores.Memories().Count(ctx)
		if err != nil {
			return err
		}
		relationships, err := stores.Relationships().Count(ctx)
		if err != nil {
			return err
		}
		stats.TotalMemories = memories
		stats.TotalRelationships = relationships
		return nil
	})
	if err != nil {
		return nil, err
	}

	size, err := s.info.SizeBytes()
	if err != nil {
		return nil, err
	}
	stats.StorageSizeBytes = size
	return stats, nil
}

func filterResults(in []SearchResult, keep func(*entities.Memory) bool) []SearchResult {
	out := in[:0]
	for _, r := range in {
		if keep(r.Memory) {
			out = append(out, r)
		}
	}
	return out
}

func resolveDateRange(q ports.SearchQuery) (*time.Time, *time.Time) {
	start := q.StartDate
	if start == nil && q.SinceDays != nil {
		days := *q.SinceDays
		if days < 0 {
			days = 0
		}
		midnight := midnightDaysAgo(days)
		start = &midnight
	}
	return start, q.EndDate
}

// midnightDaysAgo returns 00:00:00 UTC of the day N days before now. UTC
// keeps the boundary deterministic; stored timestamps are UTC as well.
func midnightDaysAgo(days int) time.Time {
	day := time.Now().UTC().AddDate(0, 0, -days)
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

package observability

import (
	"context"
	"time"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
)

// InstrumentMemoryRepository wraps a repository so every call lands in the
// db_* series, and successful writes bump the business counters.
func InstrumentMemoryRepository(inner ports.MemoryRepository, collector *Collector) ports.MemoryRepository {
	return &instrumentedMemoryRepository{inner: inner, collector: collector}
}

type instrumentedMemoryRepository struct {
	inner     ports.MemoryRepository
	collector *Collector
}

func (r *instrumentedMemoryRepository) Insert(ctx context.Context, m *entities.Memory) error {
	started := time.Now()
	err := r.inner.Insert(ctx, m)
	r.collector.ObserveDB("insert", "memories", err, started)
	if err == nil {
		r.collector.MemoriesCreated.Inc()
	}
	return err
}

func (r *instrumentedMemoryRepository) GetByHash(ctx context.Context, hash valueobjects.ContentHash) (*entities.Memory, error) {
	started := time.Now()
	m, err := r.inner.GetByHash(ctx, hash)
	r.collector.ObserveDB("get_by_hash", "memories", err, started)
	return m, err
}

func (r *instrumentedMemoryRepository) GetByID(ctx context.Context, id int64) (*entities.Memory, error) {
	started := time.Now()
	m, err := r.inner.GetByID(ctx, id)
	r.collector.ObserveDB("get_by_id", "memories", err, started)
	return m, err
}

func (r *instrumentedMemoryRepository) Update(ctx context.Context, m *entities.Memory) error {
	started := time.Now()
	err := r.inner.Update(ctx, m)
	r.collector.ObserveDB("update", "memories", err, started)
	return err
}

func (r *instrumentedMemoryRepository) Delete(ctx context.Context, id int64) error {
	started := time.Now()
	err := r.inner.Delete(ctx, id)
	r.collector.ObserveDB("delete", "memories", err, started)
	if err == nil {
		r.collector.MemoriesDeleted.Inc()
	}
	return err
}

func (r *instrumentedMemoryRepository) ListAll(ctx context.Context) ([]*entities.Memory, error) {
	started := time.Now()
	memories, err := r.inner.ListAll(ctx)
	r.collector.ObserveDB("list_all", "memories", err, started)
	return memories, err
}

func (r *instrumentedMemoryRepository) SearchText(ctx context.Context, query string) ([]ports.ScoredMemory, error) {
	started := time.Now()
	results, err := r.inner.SearchText(ctx, query)
	r.collector.ObserveDB("search_text", "memories_fts", err, started)
	if err == nil {
		r.collector.Searches.Inc()
	}
	return results, err
}

func (r *instrumentedMemoryRepository) Count(ctx context.Context) (int64, error) {
	started := time.Now()
	n, err := r.inner.Count(ctx)
	r.collector.ObserveDB("count", "memories", err, started)
	return n, err
}

// InstrumentRelationshipRepository wraps an edge repository with db_* metrics.
func InstrumentRelationshipRepository(inner ports.RelationshipRepository, collector *Collector) ports.RelationshipRepository {
	return &instrumentedRelationshipRepository{inner: inner, collector: collector}
}

type instrumentedRelationshipRepository struct {
	inner     ports.RelationshipRepository
	collector *Collector
}

func (r *instrumentedRelationshipRepository) Insert(ctx context.Context, rel *entities.Relationship) (bool, error) {
	started := time.Now()
	created, err := r.inner.Insert(ctx, rel)
	r.collector.ObserveDB("insert", "relationships", err, started)
	if err == nil && created {
		r.collector.EdgesCreated.Inc()
	}
	return created, err
}

func (r *instrumentedRelationshipRepository) Neighbors(ctx context.Context, memoryID int64, limit int) ([]*entities.Memory, error) {
	started := time.Now()
	memories, err := r.inner.Neighbors(ctx, memoryID, limit)
	r.collector.ObserveDB("neighbors", "relationships", err, started)
	return memories, err
}

func (r *instrumentedRelationshipRepository) ListByMemory(ctx context.Context, memoryID int64) ([]*entities.Relationship, error) {
	started := time.Now()
	edges, err := r.inner.ListByMemory(ctx, memoryID)
	r.collector.ObserveDB("list_by_memory", "relationships", err, started)
	return edges, err
}

func (r *instrumentedRelationshipRepository) ListAll(ctx context.Context) ([]*entities.Relationship, error) {
	started := time.Now()
	edges, err := r.inner.ListAll(ctx)
	r.collector.ObserveDB("list_all", "relationships", err, started)
	return edges, err
}

func (r *instrumentedRelationshipRepository) DeleteByMemoryID(ctx context.Context, memoryID int64) (int64, error) {
	started := time.Now()
	n, err := r.inner.DeleteByMemoryID(ctx, memoryID)
	r.collector.ObserveDB("delete_by_memory", "relationships", err, started)
	return n, err
}

func (r *instrumentedRelationshipRepository) Count(ctx context.Context) (int64, error) {
	started := time.Now()
	n, err := r.inner.Count(ctx)
	r.collector.ObserveDB("count", "relationships", err, started)
	return n, err
}

// InstrumentUnitOfWork wraps a unit of work so the stores handed to each
// transaction are themselves instrumented. Without this the in-transaction
// repositories would bypass the collector entirely.
func InstrumentUnitOfWork(inner ports.UnitOfWork, collector *Collector) ports.UnitOfWork {
	return &instrumentedUnitOfWork{inner: inner, collector: collector}
}

type instrumentedUnitOfWork struct {
	inner     ports.UnitOfWork
	collector *Collector
}

func (u *instrumentedUnitOfWork) Execute(ctx context.Context, fn func(ports.Stores) error) error {
	started := time.Now()
	err := u.inner.Execute(ctx, func(stores ports.Stores) error {
		return fn(&instrumentedStores{inner: stores, collector: u.collector})
	})
	u.collector.ObserveDB("transaction", "all", err, started)
	return err
}

type instrumentedStores struct {
	inner     ports.Stores
	collector *Collector
}

func (s *instrumentedStores) Memories() ports.MemoryRepository {
	return InstrumentMemoryRepository(s.inner.Memories(), s.collector)
}

func (s *instrumentedStores) Relationships() ports.RelationshipRepository {
	return InstrumentRelationshipRepository(s.inner.Relationships(), s.collector)
}

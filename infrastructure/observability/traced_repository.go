package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
)

// TraceMemoryRepository wraps a repository so every call opens a span.
func TraceMemoryRepository(inner ports.MemoryRepository, tracer trace.Tracer) ports.MemoryRepository {
	return &tracedMemoryRepository{inner: inner, tracer: tracer}
}

type tracedMemoryRepository struct {
	inner  ports.MemoryRepository
	tracer trace.Tracer
}

func (r *tracedMemoryRepository) Insert(ctx context.Context, m *entities.Memory) error {
	ctx, span := r.tracer.Start(ctx, "repository.Insert",
		trace.WithAttributes(
			attribute.String("memory.hash", m.Hash().String()),
		),
	)
	defer span.End()

	err := r.inner.Insert(ctx, m)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *tracedMemoryRepository) GetByHash(ctx context.Context, hash valueobjects.ContentHash) (*entities.Memory, error) {
	ctx, span := r.tracer.Start(ctx, "repository.GetByHash",
		trace.WithAttributes(
			attribute.String("memory.hash", hash.String()),
		),
	)
	defer span.End()

	m, err := r.inner.GetByHash(ctx, hash)
	if err != nil {
		span.RecordError(err)
	}

	return m, err
}

func (r *tracedMemoryRepository) GetByID(ctx context.Context, id int64) (*entities.Memory, error) {
	ctx, span := r.tracer.Start(ctx, "repository.GetByID",
		trace.WithAttributes(
			attribute.Int64("memory.id", id),
		),
	)
	defer span.End()

	m, err := r.inner.GetByID(ctx, id)
	if err != nil {
		span.RecordError(err)
	}

	return m, err
}

func (r *tracedMemoryRepository) Update(ctx context.Context, m *entities.Memory) error {
	ctx, span := r.tracer.Start(ctx, "repository.Update",
		trace.WithAttributes(
			attribute.Int64("memory.id", m.ID()),
			attribute.String("memory.hash", m.Hash().String()),
		),
	)
	defer span.End()

	err := r.inner.Update(ctx, m)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *tracedMemoryRepository) Delete(ctx context.Context, id int64) error {
	ctx, span := r.tracer.Start(ctx, "repository.Delete",
		trace.WithAttributes(
			attribute.Int64("memory.id", id),
		),
	)
	defer span.End()

	err := r.inner.Delete(ctx, id)
	if err != nil {
		span.RecordError(err)
	}

	return err
}

func (r *tracedMemoryRepository) ListAll(ctx context.Context) ([]*entities.Memory, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListAll")
	defer span.End()

	memories, err := r.inner.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
	}

	return memories, err
}

func (r *tracedMemoryRepository) SearchText(ctx context.Context, query string) ([]ports.ScoredMemory, error) {
	ctx, span := r.tracer.Start(ctx, "repository.SearchText",
		trace.WithAttributes(
			attribute.Int("query.length", len(query)),
		),
	)
	defer span.End()

	results, err := r.inner.SearchText(ctx, query)
	if err != nil {
		span.RecordError(err)
	} else {
		span.SetAttributes(attribute.Int("result.count", len(results)))
	}

	return results, err
}

func (r *tracedMemoryRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Count")
	defer span.End()

	n, err := r.inner.Count(ctx)
	if err != nil {
		span.RecordError(err)
	}

	return n, err
}

// TraceRelationshipRepository wraps an edge repository with tracing.
func TraceRelationshipRepository(inner ports.RelationshipRepository, tracer trace.Tracer) ports.RelationshipRepository {
	return &tracedRelationshipRepository{inner: inner, tracer: tracer}
}

type tracedRelationshipRepository struct {
	inner  ports.RelationshipRepository
	tracer trace.Tracer
}

func (r *tracedRelationshipRepository) Insert(ctx context.Context, rel *entities.Relationship) (bool, error) {
	ctx, span := r.tracer.Start(ctx, "repository.InsertEdge",
		trace.WithAttributes(
			attribute.Int64("edge.from", rel.FromID()),
			attribute.Int64("edge.to", rel.ToID()),
			attribute.String("edge.type", string(rel.Type())),
		),
	)
	defer span.End()

	created, err := r.inner.Insert(ctx, rel)
	if err != nil {
		span.RecordError(err)
	}

	return created, err
}

func (r *tracedRelationshipRepository) Neighbors(ctx context.Context, memoryID int64, limit int) ([]*entities.Memory, error) {
	ctx, span := r.tracer.Start(ctx, "repository.Neighbors",
		trace.WithAttributes(
			attribute.Int64("memory.id", memoryID),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	memories, err := r.inner.Neighbors(ctx, memoryID, limit)
	if err != nil {
		span.RecordError(err)
	}

	return memories, err
}

func (r *tracedRelationshipRepository) ListByMemory(ctx context.Context, memoryID int64) ([]*entities.Relationship, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListByMemory",
		trace.WithAttributes(
			attribute.Int64("memory.id", memoryID),
		),
	)
	defer span.End()

	edges, err := r.inner.ListByMemory(ctx, memoryID)
	if err != nil {
		span.RecordError(err)
	}

	return edges, err
}

func (r *tracedRelationshipRepository) ListAll(ctx context.Context) ([]*entities.Relationship, error) {
	ctx, span := r.tracer.Start(ctx, "repository.ListAllEdges")
	defer span.End()

	edges, err := r.inner.ListAll(ctx)
	if err != nil {
		span.RecordError(err)
	}

	return edges, err
}

func (r *tracedRelationshipRepository) DeleteByMemoryID(ctx context.Context, memoryID int64) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "repository.DeleteEdgesByMemory",
		trace.WithAttributes(
			attribute.Int64("memory.id", memoryID),
		),
	)
	defer span.End()

	n, err := r.inner.DeleteByMemoryID(ctx, memoryID)
	if err != nil {
		span.RecordError(err)
	}

	return n, err
}

func (r *tracedRelationshipRepository) Count(ctx context.Context) (int64, error) {
	ctx, span := r.tracer.Start(ctx, "repository.CountEdges")
	defer span.End()

	n, err := r.inner.Count(ctx)
	if err != nil {
		span.RecordError(err)
	}

	return n, err
}

// TraceUnitOfWork wraps a unit of work so the whole transaction shares one
// parent span and the in-transaction stores are traced as well.
func TraceUnitOfWork(inner ports.UnitOfWork, tracer trace.Tracer) ports.UnitOfWork {
	return &tracedUnitOfWork{inner: inner, tracer: tracer}
}

type tracedUnitOfWork struct {
	inner  ports.UnitOfWork
	tracer trace.Tracer
}

func (u *tracedUnitOfWork) Execute(ctx context.Context, fn func(ports.Stores) error) error {
	ctx, span := u.tracer.Start(ctx, "repository.Transaction")
	defer span.End()

	err := u.inner.Execute(ctx, func(stores ports.Stores) error {
		return fn(&tracedStores{inner: stores, tracer: u.tracer})
	})
	if err != nil {
		span.RecordError(err)
	}

	return err
}

type tracedStores struct {
	inner  ports.Stores
	tracer trace.Tracer
}

func (s *tracedStores) Memories() ports.MemoryRepository {
	return TraceMemoryRepository(s.inner.Memories(), s.tracer)
}

func (s *tracedStores) Relationships() ports.RelationshipRepository {
	return TraceRelationshipRepository(s.inner.Relationships(), s.tracer)
}

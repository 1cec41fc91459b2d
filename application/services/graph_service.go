package services

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// Traversal depth bounds for RelatedWithDepth.
const (
	MinTraversalDepth = 1
	MaxTraversalDepth = 3
)

// DefaultRelatedLimit caps related lookups when the caller does not choose
// a limit.
const DefaultRelatedLimit = 10

// GraphService implements the relationship graph operations.
type GraphService struct {
	memories      ports.MemoryRepository
	relationships ports.RelationshipRepository
	uow           ports.UnitOfWork
	logger        *zap.Logger
}

// NewGraphService creates a graph service.
func NewGraphService(
	memories ports.MemoryRepository,
	relationships ports.RelationshipRepository,
	uow ports.UnitOfWork,
	logger *zap.Logger,
) *GraphService {
	return &GraphService{
		memories:      memories,
		relationships: relationships,
		uow:           uow,
		logger:        logger.Named("graph-service"),
	}
}

// LinkResult reports a bulk link call. Skipped counts entries whose endpoint
// hashes resolved to nothing, self edges, and triples that already existed.
type LinkResult struct {
	Created int
	Skipped int
}

// LinkBulk creates the given edges in one transaction. A malformed entry
// (unparseable hash, empty type) rejects the whole batch before any write;
// entries that merely cannot be created are skipped without error.
func (s *GraphService) LinkBulk(ctx context.Context, edges []ports.EdgeSpec) (*LinkResult, error) {
	if len(edges) == 0 {
		return &LinkResult{}, nil
	}

	specs, err := resolveEdgeSpecs(edges)
	if err != nil {
		return nil, err
	}

	result := &LinkResult{}
	err = s.uow.Execute(ctx, func(stores ports.Stores) error {
		created, skipped, err := linkEdges(ctx, stores, specs)
		if err != nil {
			return err
		}
		result.Created = created
		result.Skipped = skipped
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("Edges linked",
		zap.Int("created", result.Created),
		zap.Int("skipped", result.Skipped))
	return result, nil
}

// Related returns memories directly linked to the given one in either
// direction, ordered by the most recent connecting edge, newest first.
func (s *GraphService) Related(ctx context.Context, hash string, limit int) ([]*entities.Memory, error) {
	h, err := valueobjects.ParseContentHash(hash)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}

	m, err := s.memories.GetByHash(ctx, h)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, pkgerrors.NewNotFound("memory")
	}
	return s.relationships.Neighbors(ctx, m.ID(), limit)
}

// RelatedWithDepth chains Related up to depth hops, de-duplicating against
// the origin and everything already collected, and returns the union in
// discovery order. Depth is clamped to [1,3]; limit applies per expanded
// memory.
func (s *GraphService) RelatedWithDepth(ctx context.Context, hash string, limit, depth int) ([]*entities.Memory, error) {
	h, err := valueobjects.ParseContentHash(hash)
	if err != nil {
		return nil, err
	}
	if limit < 1 {
		limit = 1
	}
	if depth < MinTraversalDepth {
		depth = MinTraversalDepth
	}
	if depth > MaxTraversalDepth {
		depth = MaxTraversalDepth
	}

	origin, err := s.memories.GetByHash(ctx, h)
	if err != nil {
		return nil, err
	}
	if origin == nil {
		return nil, pkgerrors.NewNotFound("memory")
	}

	seen := map[int64]bool{origin.ID(): true}
	var collected []*entities.Memory
	frontier := []int64{origin.ID()}

	for hop := 0; hop < depth && len(frontier) > 0; hop++ {
		var next []int64
		for _, id := range frontier {
			neighbors, err := s.relationships.Neighbors(ctx, id, limit)
			if err != nil {
				return nil, err
			}
			for _, n := range neighbors {
				if seen[n.ID()] {
					continue
				}
				seen[n.ID()] = true
				collected = append(collected, n)
				next = append(next, n.ID())
			}
		}
		frontier = next
	}
	return collected, nil
}

// resolvedEdge is an edge spec with parsed hashes, ready for linking.
type resolvedEdge struct {
	from     valueobjects.ContentHash
	to       valueobjects.ContentHash
	relType  string
	metadata map[string]interface{}
}

// resolveEdgeSpecs validates the shape of every entry before any write
// happens. Shape problems are the caller's fault and fail the whole batch.
func resolveEdgeSpecs(edges []ports.EdgeSpec) ([]resolvedEdge, error) {
	specs := make([]resolvedEdge, 0, len(edges))
	for i, e := range edges {
		from, err := valueobjects.ParseContentHash(e.FromHash)
		if err != nil {
			return nil, pkgerrors.NewInvalidInput(fmt.Sprintf("edge %d: invalid fromHash", i))
		}
		to, err := valueobjects.ParseContentHash(e.ToHash)
		if err != nil {
			return nil, pkgerrors.NewInvalidInput(fmt.Sprintf("edge %d: invalid toHash", i))
		}
		relType := strings.TrimSpace(e.Type)
		if relType == "" {
			return nil, pkgerrors.NewInvalidInput(fmt.Sprintf("edge %d: relationship type cannot be empty", i))
		}
		specs = append(specs, resolvedEdge{from: from, to: to, relType: relType, metadata: e.Metadata})
	}
	return specs, nil
}

// linkEdges applies the bulk-link contract against an open transaction:
// endpoints that resolve to nothing, self edges and existing triples are
// skipped, everything else is inserted. The snapshot importer shares this
// path so imported edges behave exactly like linked ones.
func linkEdges(ctx context.Context, stores ports.Stores, specs []resolvedEdge) (created, skipped int, err error) {
	ids := make(map[string]int64)
	resolve := func(h valueobjects.ContentHash) (int64, error) {
		key := h.String()
		if id, ok := ids[key]; ok {
			return id, nil
		}
		m, err := stores.Memories().GetByHash(ctx, h)
		if err != nil {
			return 0, err
		}
		var id int64
		if m != nil {
			id = m.ID()
		}
		ids[key] = id
		return id, nil
	}

	for _, spec := range specs {
		fromID, err := resolve(spec.from)
		if err != nil {
			return 0, 0, err
		}
		toID, err := resolve(spec.to)
		if err != nil {
			return 0, 0, err
		}
		if fromID == 0 || toID == 0 || fromID == toID {
			skipped++
			continue
		}

		rel, err := entities.NewRelationship(fromID, toID, spec.relType)
		if err != nil {
			return 0, 0, err
		}
		if len(spec.metadata) > 0 {
			rel.SetMetadata(spec.metadata)
		}

		inserted, err := stores.Relationships().Insert(ctx, rel)
		if err != nil {
			return 0, 0, err
		}
		if inserted {
			created++
		} else {
			skipped++
		}
	}
	return created, skipped, nil
}

package entities

import (
	"strings"
	"time"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// RelationshipType is the label on a directed edge between two memories.
// Free-form: callers commonly use "related" or "similar", but any non-empty
// label is accepted.
type RelationshipType string

const (
	RelationRelated RelationshipType = "related"
	RelationSimilar RelationshipType = "similar"
)

// Relationship is a directed, typed edge between two memories. The triple
// (from, to, type) is unique among live edges; re-adding an identical edge is
// a no-op. Edges never outlive either endpoint: deleting a memory removes
// every edge touching it in the same transaction.
type Relationship struct {
	id        int64
	fromID    int64
	toID      int64
	relType   RelationshipType
	createdAt time.Time
	metadata  map[string]interface{}
}

// NewRelationship creates an edge with validation.
func NewRelationship(fromID, toID int64, relType string) (*Relationship, error) {
	if fromID <= 0 || toID <= 0 {
		return nil, pkgerrors.NewInvalidInput("relationship endpoints must be persisted memories")
	}
	if fromID == toID {
		return nil, pkgerrors.NewInvalidInput("cannot link a memory to itself")
	}
	if strings.TrimSpace(relType) == "" {
		return nil, pkgerrors.NewInvalidInput("relationship type cannot be empty")
	}

	return &Relationship{
		fromID:    fromID,
		toID:      toID,
		relType:   RelationshipType(strings.TrimSpace(relType)),
		createdAt: time.Now().UTC(),
		metadata:  map[string]interface{}{},
	}, nil
}

// ReconstructRelationship rebuilds an edge from repository data.
func ReconstructRelationship(
	id, fromID, toID int64,
	relType string,
	createdAt time.Time,
	metadata map[string]interface{},
) *Relationship {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	return &Relationship{
		id:        id,
		fromID:    fromID,
		toID:      toID,
		relType:   RelationshipType(relType),
		createdAt: createdAt,
		metadata:  metadata,
	}
}

// ID returns the surrogate identifier
func (r *Relationship) ID() int64 {
	return r.id
}

// FromID returns the source memory id
func (r *Relationship) FromID() int64 {
	return r.fromID
}

// ToID returns the target memory id
func (r *Relationship) ToID() int64 {
	return r.toID
}

// Type returns the relationship label
func (r *Relationship) Type() RelationshipType {
	return r.relType
}

// CreatedAt returns the edge creation timestamp
func (r *Relationship) CreatedAt() time.Time {
	return r.createdAt
}

// Metadata returns a copy of the open-ended metadata map
func (r *Relationship) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(r.metadata))
	for k, v := range r.metadata {
		out[k] = v
	}
	return out
}

// SetMetadata replaces the metadata map, preserved verbatim by the engine.
func (r *Relationship) SetMetadata(metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	r.metadata = metadata
}

// Touches reports whether the edge references the given memory id in either
// direction.
func (r *Relationship) Touches(memoryID int64) bool {
	return r.fromID == memoryID || r.toID == memoryID
}

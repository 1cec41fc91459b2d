// Package ports defines the persistence interfaces the application layer
// depends on. These are ports in the hexagonal sense: the domain and services
// know nothing about the storage engine behind them.
package ports

import (
	"context"
	"time"

	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
)

// SearchQuery carries the filter stages of a search call. Stages apply in a
// fixed order: text relevance, tag intersection, date range, minimum
// relevance, then the limit.
type SearchQuery struct {
	// Query is the full-text query. Empty means "no text stage": results
	// order by creation time, newest first, and MinRelevance is ignored.
	Query string

	// Tags keeps only memories whose tag set intersects these labels.
	Tags []string

	// StartDate/EndDate bound created_at inclusively when set.
	StartDate *time.Time
	EndDate   *time.Time

	// SinceDays is the "days ago" shorthand: start at midnight N days back,
	// no end bound. Ignored when StartDate is set.
	SinceDays *int

	// MinRelevance drops scored results below the threshold, clamped to
	// [0,1]. Only meaningful together with Query.
	MinRelevance *float64

	// Limit caps the result count, applied after every other stage and
	// clamped to at least 1.
	Limit int
}

// ExportFilter selects which memories a snapshot includes. Same shape as the
// search filters minus relevance: inclusion is filter-only, never ranked.
type ExportFilter struct {
	Tags      []string
	StartDate *time.Time
	EndDate   *time.Time
	Limit     int
}

// EdgeSpec is one edge in a bulk-link request, expressed with external hash
// identities. Resolution to surrogate ids happens inside the transaction.
type EdgeSpec struct {
	FromHash string
	ToHash   string
	Type     string
	Metadata map[string]interface{}
}

// Stats is the read-only aggregate over the whole store.
type Stats struct {
	TotalMemories      int64 `json:"totalMemories"`
	TotalRelationships int64 `json:"totalRelationships"`
	StorageSizeBytes   int64 `json:"storageSizeBytes"`
}

// ScoredMemory pairs a memory with its normalized text relevance in [0,1).
type ScoredMemory struct {
	Memory *entities.Memory
	Score  float64
}

// MemoryRepository defines the interface for memory persistence.
// Implementations keep the full-text projection synchronized inside the same
// transaction as every mutation.
type MemoryRepository interface {
	// Insert persists a new memory and assigns its id. A live memory with
	// the same hash makes it fail with a conflict.
	Insert(ctx context.Context, m *entities.Memory) error

	// GetByHash retrieves a memory by hash identity. Absence is not an
	// error: (nil, nil).
	GetByHash(ctx context.Context, hash valueobjects.ContentHash) (*entities.Memory, error)

	// GetByID retrieves a memory by surrogate id, (nil, nil) when absent.
	GetByID(ctx context.Context, id int64) (*entities.Memory, error)

	// Update rewrites content, hash, tags and metadata for the memory's id.
	Update(ctx context.Context, m *entities.Memory) error

	// Delete removes the row and its index projection. The caller removes
	// edges first; cascade is an explicit step, not a storage feature.
	Delete(ctx context.Context, id int64) error

	// ListAll returns every live memory, newest first.
	ListAll(ctx context.Context) ([]*entities.Memory, error)

	// SearchText returns the memories matching any token of the query,
	// scored and ordered best first (ties newest first). An empty query
	// matches nothing.
	SearchText(ctx context.Context, query string) ([]ScoredMemory, error)

	// Count returns the number of live memories
	Count(ctx context.Context) (int64, error)
}

// RelationshipRepository defines the interface for edge persistence.
type RelationshipRepository interface {
	// Insert persists an edge. Returns false without error when the
	// (from, to, type) triple already exists.
	Insert(ctx context.Context, r *entities.Relationship) (bool, error)

	// Neighbors returns memories directly linked to the given memory in
	// either direction, most-recently-created edge first, de-duplicated,
	// capped at limit.
	Neighbors(ctx context.Context, memoryID int64, limit int) ([]*entities.Memory, error)

	// ListByMemory returns the edges touching a memory in either direction,
	// newest first.
	ListByMemory(ctx context.Context, memoryID int64) ([]*entities.Relationship, error)

	// ListAll returns every edge ordered (from, to, type) for deterministic
	// snapshots.
	ListAll(ctx context.Context) ([]*entities.Relationship, error)

	// DeleteByMemoryID removes every edge touching the memory, returning
	// the number removed.
	DeleteByMemoryID(ctx context.Context, memoryID int64) (int64, error)

	// Count returns the number of live edges
	Count(ctx context.Context) (int64, error)
}

// Stores bundles the repositories bound to one transaction.
type Stores interface {
	Memories() MemoryRepository
	Relationships() RelationshipRepository
}

// UnitOfWork runs a function inside a single atomic transaction. Either every
// effect of fn is visible afterwards or none are; a storage failure rolls the
// whole unit back.
type UnitOfWork interface {
	Execute(ctx context.Context, fn func(Stores) error) error
}

// StoreInfo exposes store-level facts the services report but do not own.
type StoreInfo interface {
	// SchemaVersion returns the currently applied schema version
	SchemaVersion(ctx context.Context) (int, error)

	// SizeBytes returns the on-disk size of the primary database file
	SizeBytes() (int64, error)
}

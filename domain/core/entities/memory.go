// Package entities holds the rich domain model of the memory engine.
package entities

import (
	"time"

	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// Memory is the main entity: a stored, hashed, taggable unit of content.
//
// Identity contract: a memory's externally-facing identity is its content
// hash, a pure function of the content text. UpdateContent recomputes the
// hash, so updating a memory hands the caller a NEW identity and retires the
// old one. The numeric id is a process-local surrogate used for relationship
// endpoints and index rows; it is never reused after deletion.
type Memory struct {
	// Private fields ensure encapsulation
	id        int64
	content   valueobjects.Content
	tags      valueobjects.TagSet
	hash      valueobjects.ContentHash
	createdAt time.Time
	metadata  map[string]interface{}
}

// NewMemory creates a memory with full validation. The id stays zero until
// the repository persists the record.
func NewMemory(content string, tags []string) (*Memory, error) {
	c, err := valueobjects.NewContent(content)
	if err != nil {
		return nil, err
	}

	return &Memory{
		content:   c,
		tags:      valueobjects.NewTagSet(tags),
		hash:      c.Hash(),
		createdAt: time.Now().UTC(),
		metadata:  map[string]interface{}{},
	}, nil
}

// ReconstructMemory rebuilds a memory from repository data with preserved
// identity and timestamps.
func ReconstructMemory(
	id int64,
	content string,
	tags []string,
	createdAt time.Time,
	metadata map[string]interface{},
) (*Memory, error) {
	c, err := valueobjects.NewContent(content)
	if err != nil {
		return nil, err
	}
	if metadata == nil {
		metadata = map[string]interface{}{}
	}

	return &Memory{
		id:        id,
		content:   c,
		tags:      valueobjects.NewTagSet(tags),
		hash:      c.Hash(),
		createdAt: createdAt,
		metadata:  metadata,
	}, nil
}

// ID returns the surrogate identifier
func (m *Memory) ID() int64 {
	return m.id
}

// SetID assigns the surrogate identifier after insertion. Calling it on an
// already persisted memory is a programming error.
func (m *Memory) SetID(id int64) error {
	if m.id != 0 {
		return pkgerrors.NewInternalError("memory id already assigned")
	}
	m.id = id
	return nil
}

// Content returns the content text
func (m *Memory) Content() string {
	return m.content.String()
}

// ContentValue returns the content as a value object
func (m *Memory) ContentValue() valueobjects.Content {
	return m.content
}

// Tags returns the tag labels in order
func (m *Memory) Tags() []string {
	return m.tags.Values()
}

// TagSet returns the tags as a value object
func (m *Memory) TagSet() valueobjects.TagSet {
	return m.tags
}

// Hash returns the content hash identity
func (m *Memory) Hash() valueobjects.ContentHash {
	return m.hash
}

// CreatedAt returns the creation timestamp
func (m *Memory) CreatedAt() time.Time {
	return m.createdAt
}

// Metadata returns a copy of the open-ended metadata map
func (m *Memory) Metadata() map[string]interface{} {
	out := make(map[string]interface{}, len(m.metadata))
	for k, v := range m.metadata {
		out[k] = v
	}
	return out
}

// SetMetadata replaces the metadata map. The map is opaque to the engine and
// preserved verbatim across persistence and snapshots.
func (m *Memory) SetMetadata(metadata map[string]interface{}) {
	if metadata == nil {
		metadata = map[string]interface{}{}
	}
	m.metadata = metadata
}

// SetCreatedAt overrides the creation timestamp. Only the snapshot importer
// uses this, when timestamp preservation is enabled.
func (m *Memory) SetCreatedAt(t time.Time) {
	m.createdAt = t.UTC()
}

// UpdateContent replaces the content and recomputes the hash identity.
// The previous hash stops resolving once the change is persisted.
func (m *Memory) UpdateContent(newContent string) error {
	c, err := valueobjects.NewContent(newContent)
	if err != nil {
		return err
	}
	m.content = c
	m.hash = c.Hash()
	return nil
}

// ReplaceTags swaps the whole tag set. A nil slice means "keep existing
// tags"; a non-nil empty slice clears them.
func (m *Memory) ReplaceTags(tags []string) {
	if tags == nil {
		return
	}
	m.tags = valueobjects.NewTagSet(tags)
}

// HasTag checks for an exact tag match
func (m *Memory) HasTag(tag string) bool {
	return m.tags.Contains(tag)
}

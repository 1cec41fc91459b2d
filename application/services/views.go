package services

import (
	"time"

	"github.com/chyax98/recall/domain/core/entities"
)

// MemoryView is the wire shape of a memory. The hash doubles as the public
// identity, so a view produced after an update carries the new identity.
type MemoryView struct {
	Hash      string                 `json:"hash"`
	Content   string                 `json:"content"`
	Tags      []string               `json:"tags"`
	CreatedAt time.Time              `json:"createdAt"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	WordCount int                    `json:"wordCount"`
}

// NewMemoryView maps an entity to its wire shape.
func NewMemoryView(m *entities.Memory) MemoryView {
	tags := m.Tags()
	if tags == nil {
		tags = []string{}
	}
	return MemoryView{
		Hash:      m.Hash().String(),
		Content:   m.Content(),
		Tags:      tags,
		CreatedAt: m.CreatedAt().UTC(),
		Metadata:  m.Metadata(),
		WordCount: m.ContentValue().WordCount(),
	}
}

// MemoryViews maps a slice of entities.
func MemoryViews(memories []*entities.Memory) []MemoryView {
	views := make([]MemoryView, 0, len(memories))
	for _, m := range memories {
		views = append(views, NewMemoryView(m))
	}
	return views
}

// SearchResultView is the wire shape of one search hit. Score is omitted
// when the search ran without a text query.
type SearchResultView struct {
	MemoryView
	Score *float64 `json:"score,omitempty"`
}

// SearchResultViews maps service search results to their wire shape.
func SearchResultViews(results []SearchResult) []SearchResultView {
	views := make([]SearchResultView, 0, len(results))
	for _, r := range results {
		views = append(views, SearchResultView{
			MemoryView: NewMemoryView(r.Memory),
			Score:      r.Score,
		})
	}
	return views
}

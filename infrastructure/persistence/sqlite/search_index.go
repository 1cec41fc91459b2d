package sqlite

import (
	"context"
	"strings"
	"unicode"

	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// Index keeps the full-text projection in step with the primary rows. The
// repositories invoke the hooks inside the same transaction as the mutation
// they mirror, so committed data and the projection can never drift apart.
type Index interface {
	OnInsert(ctx context.Context, q dbtx, id int64, content, tags string) error
	OnUpdate(ctx context.Context, q dbtx, id int64, content, tags string) error
	OnDelete(ctx context.Context, q dbtx, id int64) error
}

// FTSIndex maintains the memories_fts table. The table is standalone rather
// than content-linked, with rowid equal to the memory id, which keeps every
// write an explicit statement issued by a hook.
type FTSIndex struct{}

// NewFTSIndex returns the FTS5-backed index implementation.
func NewFTSIndex() *FTSIndex {
	return &FTSIndex{}
}

// OnInsert adds the searchable projection of a new memory.
func (FTSIndex) OnInsert(ctx context.Context, q dbtx, id int64, content, tags string) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO memories_fts (rowid, content, tags) VALUES (?, ?, ?)`,
		id, content, tags)
	if err != nil {
		return pkgerrors.NewStorageFailure("index memory", err)
	}
	return nil
}

// OnUpdate replaces the projection of a changed memory.
func (f FTSIndex) OnUpdate(ctx context.Context, q dbtx, id int64, content, tags string) error {
	if err := f.OnDelete(ctx, q, id); err != nil {
		return err
	}
	return f.OnInsert(ctx, q, id, content, tags)
}

// OnDelete drops the projection of a removed memory.
func (FTSIndex) OnDelete(ctx context.Context, q dbtx, id int64) error {
	_, err := q.ExecContext(ctx, `DELETE FROM memories_fts WHERE rowid = ?`, id)
	if err != nil {
		return pkgerrors.NewStorageFailure("deindex memory", err)
	}
	return nil
}

// buildMatchQuery lowercases the raw query, splits it on every character the
// unicode61 tokenizer would discard, and ORs the double-quoted tokens so a
// row matches when it contains at least one of them. Quoting neutralizes FTS5
// operator syntax in user input. Returns "" when no usable token remains.
func buildMatchQuery(raw string) string {
	tokens := tokenize(raw)
	if len(tokens) == 0 {
		return ""
	}
	quoted := make([]string, len(tokens))
	for i, token := range tokens {
		quoted[i] = `"` + token + `"`
	}
	return strings.Join(quoted, " OR ")
}

// tokenize splits text into the lowercase letter and digit runs that the
// unicode61 tokenizer produces.
func tokenize(raw string) []string {
	return strings.FieldsFunc(strings.ToLower(raw), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
}

// normalizeScore maps an FTS5 bm25 rank onto [0, 1). Rank is negated BM25,
// so stronger matches are more negative; the magnitude is unbounded and gets
// squashed with x/(1+x).
func normalizeScore(rank float64) float64 {
	raw := -rank
	if raw < 0 {
		raw = 0
	}
	return raw / (1 + raw)
}

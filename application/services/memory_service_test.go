package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chyax98/recall/application/ports"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

func TestMemoryService_Store_NewContent(t *testing.T) {
	f := newServiceFixture(t)

	result, err := f.memories.Store(context.Background(), StoreInput{
		Content:  "first note",
		Tags:     []string{"inbox"},
		Metadata: map[string]interface{}{"origin": "cli"},
	})

	require.NoError(t, err)
	assert.True(t, result.Created)
	assert.NotZero(t, result.Memory.ID())
	assert.Equal(t, []string{"inbox"}, result.Memory.Tags())
	assert.Equal(t, "cli", result.Memory.Metadata()["origin"])
}

func TestMemoryService_Store_DuplicateContentIsNoOp(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	original := mustStore(t, f, "same words", "original")

	result, err := f.memories.Store(ctx, StoreInput{
		Content: "same words",
		Tags:    []string{"replacement"},
	})
	require.NoError(t, err)

	// The existing record comes back untouched, tags included
	assert.False(t, result.Created)
	assert.Equal(t, original.ID(), result.Memory.ID())
	assert.Equal(t, []string{"original"}, result.Memory.Tags())

	stats, err := f.memories.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalMemories)
}

func TestMemoryService_Store_RejectsEmptyContent(t *testing.T) {
	f := newServiceFixture(t)

	_, err := f.memories.Store(context.Background(), StoreInput{Content: "   "})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsInvalidInput(err))
}

func TestMemoryService_GetByHash(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stored := mustStore(t, f, "retrievable")

	found, err := f.memories.GetByHash(ctx, stored.Hash().String())
	require.NoError(t, err)
	assert.Equal(t, stored.ID(), found.ID())

	_, err = f.memories.GetByHash(ctx, "not-a-hash")
	assert.True(t, pkgerrors.IsInvalidInput(err))

	// A well-formed hash that resolves to nothing is none, not an error
	absent := "0000000000000000000000000000000000000000000000000000000000000000"
	missing, err := f.memories.GetByHash(ctx, absent)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryService_List_NewestFirstWithLimit(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "list one")
	time.Sleep(2 * time.Millisecond)
	mustStore(t, f, "list two")
	time.Sleep(2 * time.Millisecond)
	newest := mustStore(t, f, "list three")

	all, err := f.memories.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, newest.ID(), all[0].ID())

	capped, err := f.memories.List(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, capped, 2)
}

func TestMemoryService_Update_ContentMovesHashIdentity(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stored := mustStore(t, f, "draft text", "draft")
	oldHash := stored.Hash().String()

	updated, err := f.memories.Update(ctx, UpdateInput{
		Hash:    oldHash,
		Content: strPtr("final text"),
	})
	require.NoError(t, err)
	assert.NotEqual(t, oldHash, updated.Hash().String())
	assert.Equal(t, []string{"draft"}, updated.Tags())

	// The old identity no longer resolves, the new one does
	gone, err := f.memories.GetByHash(ctx, oldHash)
	require.NoError(t, err)
	assert.Nil(t, gone)

	found, err := f.memories.GetByHash(ctx, updated.Hash().String())
	require.NoError(t, err)
	assert.Equal(t, "final text", found.Content())
}

func TestMemoryService_Update_HashCollisionConflicts(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "occupied content")
	victim := mustStore(t, f, "soon to collide")

	_, err := f.memories.Update(ctx, UpdateInput{
		Hash:    victim.Hash().String(),
		Content: strPtr("occupied content"),
	})
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))

	// Nothing changed
	found, err := f.memories.GetByHash(ctx, victim.Hash().String())
	require.NoError(t, err)
	assert.Equal(t, "soon to collide", found.Content())
}

func TestMemoryService_Update_NilFieldsKeepStoredValues(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	stored := mustStore(t, f, "stable content", "keep")

	updated, err := f.memories.Update(ctx, UpdateInput{
		Hash:     stored.Hash().String(),
		Metadata: map[string]interface{}{"reviewed": true},
	})
	require.NoError(t, err)
	assert.Equal(t, "stable content", updated.Content())
	assert.Equal(t, []string{"keep"}, updated.Tags())
	assert.Equal(t, true, updated.Metadata()["reviewed"])

	// A non-nil empty slice clears the tags, unlike nil
	cleared, err := f.memories.Update(ctx, UpdateInput{
		Hash: stored.Hash().String(),
		Tags: []string{},
	})
	require.NoError(t, err)
	assert.Empty(t, cleared.Tags())
}

func TestMemoryService_Update_AbsentHashIsNotFound(t *testing.T) {
	f := newServiceFixture(t)

	absent := "1111111111111111111111111111111111111111111111111111111111111111"
	_, err := f.memories.Update(context.Background(), UpdateInput{
		Hash:    absent,
		Content: strPtr("anything"),
	})

	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMemoryService_Delete_CascadesEdges(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doomed := mustStore(t, f, "doomed node")
	peerA := mustStore(t, f, "peer a")
	peerB := mustStore(t, f, "peer b")

	_, err := f.graph.LinkBulk(ctx, []ports.EdgeSpec{
		{FromHash: doomed.Hash().String(), ToHash: peerA.Hash().String(), Type: "related"},
		{FromHash: peerB.Hash().String(), ToHash: doomed.Hash().String(), Type: "extends"},
		{FromHash: peerA.Hash().String(), ToHash: peerB.Hash().String(), Type: "related"},
	})
	require.NoError(t, err)

	result, err := f.memories.Delete(ctx, doomed.Hash().String())
	require.NoError(t, err)
	assert.True(t, result.Deleted)
	assert.Equal(t, int64(2), result.RemovedRelations)

	gone, err := f.memories.GetByHash(ctx, doomed.Hash().String())
	require.NoError(t, err)
	assert.Nil(t, gone)

	// The edge between the two survivors is untouched
	stats, err := f.memories.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalRelationships)
}

func TestMemoryService_Delete_MissingIsQuietNoOp(t *testing.T) {
	f := newServiceFixture(t)

	absent := "2222222222222222222222222222222222222222222222222222222222222222"
	result, err := f.memories.Delete(context.Background(), absent)

	require.NoError(t, err)
	assert.False(t, result.Deleted)
	assert.Zero(t, result.RemovedRelations)
}

func TestMemoryService_DeleteByTag_ExactMatchOnly(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "tagged go", "go")
	mustStore(t, f, "tagged golang", "golang")
	survivor := mustStore(t, f, "untagged")

	result, err := f.memories.DeleteByTag(ctx, "go")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Deleted)

	remaining, err := f.memories.List(ctx, 0)
	require.NoError(t, err)
	require.Len(t, remaining, 2)

	// "golang" did not match the exact tag "go"
	kept, err := f.memories.GetByHash(ctx, survivor.Hash().String())
	require.NoError(t, err)
	assert.NotNil(t, kept)

	byTag, err := f.memories.Search(ctx, ports.SearchQuery{Tags: []string{"go"}, Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, byTag)
}

func TestMemoryService_DeleteByTag_CascadesEdges(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	doomed := mustStore(t, f, "sweep target", "sweep")
	peer := mustStore(t, f, "sweep peer")
	_, err := f.graph.LinkBulk(ctx, []ports.EdgeSpec{
		{FromHash: doomed.Hash().String(), ToHash: peer.Hash().String(), Type: "related"},
	})
	require.NoError(t, err)

	result, err := f.memories.DeleteByTag(ctx, "sweep")
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Deleted)
	assert.Equal(t, int64(1), result.RemovedRelations)
}

func TestMemoryService_DeleteByTag_RejectsEmptyTag(t *testing.T) {
	f := newServiceFixture(t)

	for _, tag := range []string{"", "   "} {
		_, err := f.memories.DeleteByTag(context.Background(), tag)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsInvalidInput(err))
	}
}

func TestMemoryService_Search_TextBestMatchFirst(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	dense := mustStore(t, f, "kafka kafka kafka")
	sparse := mustStore(t, f, "kafka mentioned once in a much longer body of text here")
	mustStore(t, f, "nothing relevant at all")

	results, err := f.memories.Search(ctx, ports.SearchQuery{Query: "kafka", Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, dense.ID(), results[0].Memory.ID())
	assert.Equal(t, sparse.ID(), results[1].Memory.ID())
	require.NotNil(t, results[0].Score)
	require.NotNil(t, results[1].Score)
	assert.GreaterOrEqual(t, *results[0].Score, *results[1].Score)
}

func TestMemoryService_Search_NoQueryIsNewestFirstUnscored(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "older entry")
	time.Sleep(2 * time.Millisecond)
	newest := mustStore(t, f, "newer entry")

	results, err := f.memories.Search(ctx, ports.SearchQuery{Limit: 10})
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, newest.ID(), results[0].Memory.ID())
	assert.Nil(t, results[0].Score)
}

func TestMemoryService_Search_TagsIntersect(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	tagged := mustStore(t, f, "notes about storage", "db", "infra")
	mustStore(t, f, "notes about frontend", "ui")

	results, err := f.memories.Search(ctx, ports.SearchQuery{
		Query: "notes",
		Tags:  []string{"infra", "unused"},
		Limit: 10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, tagged.ID(), results[0].Memory.ID())
}

func TestMemoryService_Search_SinceDaysExcludesOlder(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	old := mustStoreAt(t, f, "three days ago", time.Now().UTC().AddDate(0, 0, -3))
	recent := mustStore(t, f, "fresh entry")

	results, err := f.memories.Search(ctx, ports.SearchQuery{
		SinceDays: intPtr(1),
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, recent.ID(), results[0].Memory.ID())

	// An explicit start date wins over the shorthand
	tenDaysAgo := time.Now().UTC().AddDate(0, 0, -10)
	results, err = f.memories.Search(ctx, ports.SearchQuery{
		StartDate: &tenDaysAgo,
		SinceDays: intPtr(1),
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	ids := []int64{results[0].Memory.ID(), results[1].Memory.ID()}
	assert.Contains(t, ids, old.ID())
}

func TestMemoryService_Search_DateRangeEndpointsAreInclusive(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	moment := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	boundary := mustStoreAt(t, f, "boundary entry", moment)

	results, err := f.memories.Search(ctx, ports.SearchQuery{
		StartDate: &moment,
		EndDate:   &moment,
		Limit:     10,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, boundary.ID(), results[0].Memory.ID())
}

func TestMemoryService_Search_MinRelevance(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "threshold target text")

	// Scores never reach 1.0, so a threshold of 1 drops every match
	results, err := f.memories.Search(ctx, ports.SearchQuery{
		Query:        "threshold",
		MinRelevance: floatPtr(1.0),
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Empty(t, results)

	// A zero threshold keeps them all
	results, err = f.memories.Search(ctx, ports.SearchQuery{
		Query:        "threshold",
		MinRelevance: floatPtr(0.0),
		Limit:        10,
	})
	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryService_Search_MinRelevanceIgnoredWithoutQuery(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "unscored entry")

	results, err := f.memories.Search(ctx, ports.SearchQuery{
		MinRelevance: floatPtr(0.99),
		Limit:        10,
	})

	require.NoError(t, err)
	assert.Len(t, results, 1)
}

func TestMemoryService_Search_LimitClampsToOne(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	mustStore(t, f, "clamp one")
	mustStore(t, f, "clamp two")

	for _, limit := range []int{0, -5} {
		results, err := f.memories.Search(ctx, ports.SearchQuery{Limit: limit})
		require.NoError(t, err)
		assert.Len(t, results, 1, "limit %d should clamp to one result", limit)
	}
}

func TestMemoryService_Stats(t *testing.T) {
	f := newServiceFixture(t)
	ctx := context.Background()

	a := mustStore(t, f, "stats a")
	b := mustStore(t, f, "stats b")
	_, err := f.graph.LinkBulk(ctx, []ports.EdgeSpec{
		{FromHash: a.Hash().String(), ToHash: b.Hash().String(), Type: "related"},
	})
	require.NoError(t, err)

	stats, err := f.memories.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.TotalMemories)
	assert.Equal(t, int64(1), stats.TotalRelationships)
	assert.Greater(t, stats.StorageSizeBytes, int64(0))
}

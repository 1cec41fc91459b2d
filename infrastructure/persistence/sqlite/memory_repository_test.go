package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/domain/core/valueobjects"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

func newTestMemoryRepo(t *testing.T) *MemoryRepository {
	t.Helper()
	return NewMemoryRepository(newMigratedDB(t), NewFTSIndex(), zap.NewNop())
}

func TestMemoryRepository_InsertAndGetByHash(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	memory, err := entities.NewMemory("repository round trip", []string{"go", "db"})
	require.NoError(t, err)
	memory.SetMetadata(map[string]interface{}{"origin": "test"})

	require.NoError(t, repo.Insert(ctx, memory))
	require.NotZero(t, memory.ID())

	found, err := repo.GetByHash(ctx, memory.Hash())
	require.NoError(t, err)
	require.NotNil(t, found)

	assert.Equal(t, memory.ID(), found.ID())
	assert.Equal(t, "repository round trip", found.Content())
	assert.Equal(t, []string{"go", "db"}, found.Tags())
	assert.Equal(t, "test", found.Metadata()["origin"])
	assert.True(t, memory.CreatedAt().Equal(found.CreatedAt()))
}

func TestMemoryRepository_Insert_DuplicateHashConflicts(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	mustInsertMemory(t, repo, "identical content")

	duplicate, err := entities.NewMemory("identical content", []string{"other"})
	require.NoError(t, err)

	err = repo.Insert(ctx, duplicate)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsConflict(err))
}

func TestMemoryRepository_GetByHash_AbsentIsNilNil(t *testing.T) {
	repo := newTestMemoryRepo(t)

	found, err := repo.GetByHash(context.Background(), valueobjects.NewContentHash("never stored"))

	require.NoError(t, err)
	assert.Nil(t, found)
}

func TestMemoryRepository_GetByID(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	stored := mustInsertMemory(t, repo, "by id")

	found, err := repo.GetByID(ctx, stored.ID())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, stored.Content(), found.Content())

	missing, err := repo.GetByID(ctx, 99999)
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestMemoryRepository_Update_RewritesRowAndIdentity(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	stored := mustInsertMemory(t, repo, "original wording", "draft")
	oldHash := stored.Hash()

	require.NoError(t, stored.UpdateContent("revised wording"))
	stored.ReplaceTags([]string{"final"})
	require.NoError(t, repo.Update(ctx, stored))

	// Old identity stops resolving, new one does
	gone, err := repo.GetByHash(ctx, oldHash)
	require.NoError(t, err)
	assert.Nil(t, gone)

	found, err := repo.GetByHash(ctx, stored.Hash())
	require.NoError(t, err)
	require.NotNil(t, found)
	assert.Equal(t, "revised wording", found.Content())
	assert.Equal(t, []string{"final"}, found.Tags())
	assert.Equal(t, stored.ID(), found.ID())
}

func TestMemoryRepository_Update_KeepsIndexInSync(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	stored := mustInsertMemory(t, repo, "searchable banana text")
	require.NoError(t, stored.UpdateContent("searchable kiwi text"))
	require.NoError(t, repo.Update(ctx, stored))

	stale, err := repo.SearchText(ctx, "banana")
	require.NoError(t, err)
	assert.Empty(t, stale)

	fresh, err := repo.SearchText(ctx, "kiwi")
	require.NoError(t, err)
	require.Len(t, fresh, 1)
	assert.Equal(t, stored.ID(), fresh[0].Memory.ID())
}

func TestMemoryRepository_Update_MissingRowIsNotFound(t *testing.T) {
	repo := newTestMemoryRepo(t)

	ghost, err := entities.ReconstructMemory(424242, "never persisted", nil, time.Now().UTC(), nil)
	require.NoError(t, err)

	err = repo.Update(context.Background(), ghost)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMemoryRepository_Delete(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	stored := mustInsertMemory(t, repo, "short lived mango")

	require.NoError(t, repo.Delete(ctx, stored.ID()))

	found, err := repo.GetByHash(ctx, stored.Hash())
	require.NoError(t, err)
	assert.Nil(t, found)

	// Index projection is gone with the row
	results, err := repo.SearchText(ctx, "mango")
	require.NoError(t, err)
	assert.Empty(t, results)

	err = repo.Delete(ctx, stored.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestMemoryRepository_ListAll_NewestFirst(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	first := mustInsertMemory(t, repo, "oldest entry")
	time.Sleep(2 * time.Millisecond)
	second := mustInsertMemory(t, repo, "middle entry")
	time.Sleep(2 * time.Millisecond)
	third := mustInsertMemory(t, repo, "newest entry")

	memories, err := repo.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, memories, 3)

	assert.Equal(t, third.ID(), memories[0].ID())
	assert.Equal(t, second.ID(), memories[1].ID())
	assert.Equal(t, first.ID(), memories[2].ID())
}

func TestMemoryRepository_SearchText_MatchesAnyToken(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	alpha := mustInsertMemory(t, repo, "alpha release notes")
	mustInsertMemory(t, repo, "unrelated text entirely")

	results, err := repo.SearchText(ctx, "alpha zulu")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, alpha.ID(), results[0].Memory.ID())
}

func TestMemoryRepository_SearchText_ScoresWithinBounds(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	mustInsertMemory(t, repo, "score me score me score me")
	mustInsertMemory(t, repo, "score appears once here in a longer line of text")

	results, err := repo.SearchText(ctx, "score")
	require.NoError(t, err)
	require.Len(t, results, 2)

	for _, result := range results {
		assert.Greater(t, result.Score, 0.0)
		assert.Less(t, result.Score, 1.0)
	}
	// Best match first
	assert.GreaterOrEqual(t, results[0].Score, results[1].Score)
}

func TestMemoryRepository_SearchText_TagsAreSearchable(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	tagged := mustInsertMemory(t, repo, "plain content", "quarterly")

	results, err := repo.SearchText(ctx, "quarterly")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, tagged.ID(), results[0].Memory.ID())
}

func TestMemoryRepository_SearchText_NoUsableTokens(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	mustInsertMemory(t, repo, "something stored")

	for _, query := range []string{"", "   ", "!!! ???"} {
		results, err := repo.SearchText(ctx, query)
		require.NoError(t, err)
		assert.Empty(t, results, "query %q should match nothing", query)
	}
}

func TestMemoryRepository_SearchText_CaseInsensitive(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	stored := mustInsertMemory(t, repo, "Deployment Checklist")

	results, err := repo.SearchText(ctx, "DEPLOYMENT")
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, stored.ID(), results[0].Memory.ID())
}

func TestMemoryRepository_Count(t *testing.T) {
	repo := newTestMemoryRepo(t)
	ctx := context.Background()

	count, err := repo.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, count)

	mustInsertMemory(t, repo, "counted one")
	mustInsertMemory(t, repo, "counted two")

	count, err = repo.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}

package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chyax98/recall/domain/core/entities"
)

// newTestDB opens a fresh database under the test's temp dir.
func newTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := Open(filepath.Join(t.TempDir(), "test.db"), zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	return db
}

// newMigratedDB opens a fresh database with the full schema applied.
func newMigratedDB(t *testing.T) *DB {
	t.Helper()

	db := newTestDB(t)
	require.NoError(t, NewMigrator(db, zap.NewNop()).Migrate(context.Background()))

	return db
}

// mustInsertMemory persists a memory and returns it with its id assigned.
func mustInsertMemory(t *testing.T, repo *MemoryRepository, content string, tags ...string) *entities.Memory {
	t.Helper()

	memory, err := entities.NewMemory(content, tags)
	require.NoError(t, err)
	require.NoError(t, repo.Insert(context.Background(), memory))
	require.NotZero(t, memory.ID())

	return memory
}

// mustLink persists an edge and asserts it was newly created.
func mustLink(t *testing.T, repo *RelationshipRepository, fromID, toID int64, relType string) {
	t.Helper()

	edge, err := entities.NewRelationship(fromID, toID, relType)
	require.NoError(t, err)
	created, err := repo.Insert(context.Background(), edge)
	require.NoError(t, err)
	require.True(t, created)
}

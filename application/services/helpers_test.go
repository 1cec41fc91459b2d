package services

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chyax98/recall/domain/core/entities"
	"github.com/chyax98/recall/infrastructure/persistence/sqlite"
)

// serviceFixture wires the services against a real migrated store in a
// temporary directory, matching production composition minus observability.
// The raw repository stays reachable so tests can seed backdated rows.
type serviceFixture struct {
	memories   *MemoryService
	graph      *GraphService
	snapshots  *SnapshotService
	memoryRepo *sqlite.MemoryRepository
}

func newServiceFixture(t *testing.T) *serviceFixture {
	t.Helper()

	logger := zap.NewNop()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "service_test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, sqlite.NewMigrator(db, logger).Migrate(context.Background()))

	index := sqlite.NewFTSIndex()
	memories := sqlite.NewMemoryRepository(db, index, logger)
	relationships := sqlite.NewRelationshipRepository(db, logger)
	uow := sqlite.NewUnitOfWork(db, index, logger)

	return &serviceFixture{
		memories:   NewMemoryService(memories, relationships, uow, db, logger),
		graph:      NewGraphService(memories, relationships, uow, logger),
		snapshots:  NewSnapshotService(uow, db, "recall-test", logger),
		memoryRepo: memories,
	}
}

// mustStoreAt seeds a memory with an explicit creation time, bypassing the
// service so date-range behavior can be exercised.
func mustStoreAt(t *testing.T, f *serviceFixture, content string, createdAt time.Time) *entities.Memory {
	t.Helper()

	memory, err := entities.NewMemory(content, nil)
	require.NoError(t, err)
	memory.SetCreatedAt(createdAt)
	require.NoError(t, f.memoryRepo.Insert(context.Background(), memory))

	return memory
}

// mustStore stores content through the service and asserts it was new.
func mustStore(t *testing.T, f *serviceFixture, content string, tags ...string) *entities.Memory {
	t.Helper()

	result, err := f.memories.Store(context.Background(), StoreInput{Content: content, Tags: tags})
	require.NoError(t, err)
	require.True(t, result.Created)

	return result.Memory
}

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func strPtr(v string) *string { return &v }

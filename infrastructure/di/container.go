package di

import (
	"context"

	"github.com/google/wire"
	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ops"
	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/infrastructure/config"
	"github.com/chyax98/recall/infrastructure/observability"
	"github.com/chyax98/recall/infrastructure/persistence/sqlite"
	"github.com/chyax98/recall/interfaces/http/rest"
	"github.com/chyax98/recall/pkg/errors"
)

// Container holds all application dependencies
type Container struct {
	Config   *config.Config
	Logger   *zap.Logger
	LogLevel zap.AtomicLevel

	DB       *sqlite.DB
	Migrator *sqlite.Migrator
	Index    sqlite.Index

	Collector      *observability.Collector
	TracerProvider *observability.TracerProvider

	MemoryRepository       ports.MemoryRepository
	RelationshipRepository ports.RelationshipRepository
	UnitOfWork             ports.UnitOfWork
	StoreInfo              ports.StoreInfo

	MemoryService   *services.MemoryService
	GraphService    *services.GraphService
	SnapshotService *services.SnapshotService
	Services        ops.Services
	Registry        *ops.Registry

	ErrorHandler *errors.ErrorHandler
	Router       *rest.Router
}

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogLevel,
	ProvideLogger,
	ProvideDB,
	ProvideMigrator,
	ProvideIndex,
	ProvideCollector,
	ProvideTracerProvider,
	ProvideMemoryRepository,
	ProvideRelationshipRepository,
	ProvideUnitOfWork,
	ProvideStoreInfo,
	ProvideMemoryService,
	ProvideGraphService,
	ProvideSnapshotService,
	ProvideServices,
	ProvideRegistry,
	ProvideErrorHandler,
	ProvideRouter,
	wire.Struct(new(Container), "*"),
)

// Shutdown releases the container's resources. Spans flush before the
// database closes; the logger syncs last so teardown failures still land in
// the log.
func (c *Container) Shutdown(ctx context.Context) error {
	var firstErr error

	if c.TracerProvider != nil {
		if err := c.TracerProvider.Shutdown(ctx); err != nil {
			c.Logger.Error("Tracer shutdown failed", zap.Error(err))
			firstErr = err
		}
	}

	if err := c.DB.Close(); err != nil {
		c.Logger.Error("Database close failed", zap.Error(err))
		if firstErr == nil {
			firstErr = err
		}
	}

	_ = c.Logger.Sync()

	return firstErr
}

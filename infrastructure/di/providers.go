// Package di wires the application together. Providers construct each
// component from its dependencies; wire generates the assembly in
// wire_gen.go.
package di

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/chyax98/recall/application/ops"
	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/infrastructure/config"
	"github.com/chyax98/recall/infrastructure/observability"
	"github.com/chyax98/recall/infrastructure/persistence/sqlite"
	"github.com/chyax98/recall/interfaces/http/rest"
	"github.com/chyax98/recall/pkg/errors"
)

// ProvideLogLevel parses the configured log level into an atomic level so it
// can be adjusted at runtime, for instance from a config reload.
func ProvideLogLevel(cfg *config.Config) (zap.AtomicLevel, error) {
	level, err := zapcore.ParseLevel(cfg.LogLevel)
	if err != nil {
		return zap.AtomicLevel{}, err
	}
	return zap.NewAtomicLevelAt(level), nil
}

// ProvideLogger creates the root logger for the configured environment.
func ProvideLogger(cfg *config.Config, level zap.AtomicLevel) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}
	zapCfg.Level = level

	return zapCfg.Build()
}

// ProvideDB opens the SQLite database at the configured path.
func ProvideDB(cfg *config.Config, logger *zap.Logger) (*sqlite.DB, error) {
	return sqlite.Open(cfg.DatabasePath, logger)
}

// ProvideMigrator creates the schema migrator.
func ProvideMigrator(db *sqlite.DB, logger *zap.Logger) *sqlite.Migrator {
	return sqlite.NewMigrator(db, logger)
}

// ProvideIndex creates the full-text index hooks.
func ProvideIndex() sqlite.Index {
	return sqlite.NewFTSIndex()
}

// ProvideCollector creates the metrics collector.
func ProvideCollector() *observability.Collector {
	return observability.NewCollector("recall")
}

// ProvideTracerProvider initializes tracing when enabled. Disabled tracing
// yields a nil provider and undecorated repositories.
func ProvideTracerProvider(cfg *config.Config) (*observability.TracerProvider, error) {
	if !cfg.EnableTracing {
		return nil, nil
	}
	return observability.InitTracing(observability.TracingConfig{
		ServiceName: "recall",
		Environment: cfg.Environment,
		Endpoint:    cfg.TracingEndpoint,
		SampleRate:  cfg.TracingSampleRate,
	})
}

// ProvideMemoryRepository builds the memory repository with the configured
// observability decorators.
func ProvideMemoryRepository(
	db *sqlite.DB,
	index sqlite.Index,
	cfg *config.Config,
	collector *observability.Collector,
	tracerProvider *observability.TracerProvider,
	logger *zap.Logger,
) ports.MemoryRepository {
	var repo ports.MemoryRepository = sqlite.NewMemoryRepository(db, index, logger)
	if cfg.EnableMetrics {
		repo = observability.InstrumentMemoryRepository(repo, collector)
	}
	if tracerProvider != nil {
		repo = observability.TraceMemoryRepository(repo, tracerProvider.Tracer())
	}
	return repo
}

// ProvideRelationshipRepository builds the edge repository with the
// configured observability decorators.
func ProvideRelationshipRepository(
	db *sqlite.DB,
	cfg *config.Config,
	collector *observability.Collector,
	tracerProvider *observability.TracerProvider,
	logger *zap.Logger,
) ports.RelationshipRepository {
	var repo ports.RelationshipRepository = sqlite.NewRelationshipRepository(db, logger)
	if cfg.EnableMetrics {
		repo = observability.InstrumentRelationshipRepository(repo, collector)
	}
	if tracerProvider != nil {
		repo = observability.TraceRelationshipRepository(repo, tracerProvider.Tracer())
	}
	return repo
}

// ProvideUnitOfWork builds the transactional unit of work with the same
// decorator chain as the repositories.
func ProvideUnitOfWork(
	db *sqlite.DB,
	index sqlite.Index,
	cfg *config.Config,
	collector *observability.Collector,
	tracerProvider *observability.TracerProvider,
	logger *zap.Logger,
) ports.UnitOfWork {
	var uow ports.UnitOfWork = sqlite.NewUnitOfWork(db, index, logger)
	if cfg.EnableMetrics {
		uow = observability.InstrumentUnitOfWork(uow, collector)
	}
	if tracerProvider != nil {
		uow = observability.TraceUnitOfWork(uow, tracerProvider.Tracer())
	}
	return uow
}

// ProvideStoreInfo exposes store-level facts from the database handle.
func ProvideStoreInfo(db *sqlite.DB) ports.StoreInfo {
	return db
}

// ProvideMemoryService creates the memory service.
func ProvideMemoryService(
	memories ports.MemoryRepository,
	relationships ports.RelationshipRepository,
	uow ports.UnitOfWork,
	info ports.StoreInfo,
	logger *zap.Logger,
) *services.MemoryService {
	return services.NewMemoryService(memories, relationships, uow, info, logger)
}

// ProvideGraphService creates the graph service.
func ProvideGraphService(
	memories ports.MemoryRepository,
	relationships ports.RelationshipRepository,
	uow ports.UnitOfWork,
	logger *zap.Logger,
) *services.GraphService {
	return services.NewGraphService(memories, relationships, uow, logger)
}

// ProvideSnapshotService creates the snapshot service.
func ProvideSnapshotService(
	uow ports.UnitOfWork,
	info ports.StoreInfo,
	cfg *config.Config,
	logger *zap.Logger,
) *services.SnapshotService {
	return services.NewSnapshotService(uow, info, cfg.SnapshotSource, logger)
}

// ProvideServices bundles the services consumed by the transports.
func ProvideServices(
	memories *services.MemoryService,
	graph *services.GraphService,
	snapshots *services.SnapshotService,
) ops.Services {
	return ops.Services{
		Memories:  memories,
		Graph:     graph,
		Snapshots: snapshots,
	}
}

// ProvideRegistry creates the operation registry with every operation
// registered.
func ProvideRegistry(svc ops.Services, logger *zap.Logger) (*ops.Registry, error) {
	registry := ops.NewRegistry(logger)
	if err := ops.RegisterAll(registry, svc); err != nil {
		return nil, err
	}
	return registry, nil
}

// ProvideErrorHandler creates the shared HTTP error responder.
func ProvideErrorHandler(cfg *config.Config, logger *zap.Logger) *errors.ErrorHandler {
	return errors.NewErrorHandler(logger, cfg.IsDevelopment())
}

// ProvideRouter creates the REST router.
func ProvideRouter(
	cfg *config.Config,
	svc ops.Services,
	registry *ops.Registry,
	collector *observability.Collector,
	info ports.StoreInfo,
	migrator *sqlite.Migrator,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) *rest.Router {
	return rest.NewRouter(cfg, svc, registry, collector, info, migrator.TargetVersion(), logger, errorHandler)
}

package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// UnitOfWork implements ports.UnitOfWork on a SQLite transaction. Repositories
// handed to the callback share the transaction, index hooks included, so a
// rollback reverts rows and projections together.
type UnitOfWork struct {
	db     *DB
	index  Index
	logger *zap.Logger
}

// NewUnitOfWork creates a unit of work over the shared connection.
func NewUnitOfWork(db *DB, index Index, logger *zap.Logger) *UnitOfWork {
	return &UnitOfWork{db: db, index: index, logger: logger}
}

type txStores struct {
	memories      *MemoryRepository
	relationships *RelationshipRepository
}

func (s *txStores) Memories() ports.MemoryRepository { return s.memories }

func (s *txStores) Relationships() ports.RelationshipRepository { return s.relationships }

// Execute runs fn inside one transaction. Any error from fn rolls everything
// back and is returned unchanged.
func (u *UnitOfWork) Execute(ctx context.Context, fn func(ports.Stores) error) error {
	tx, err := u.db.sql.BeginTx(ctx, nil)
	if err != nil {
		return pkgerrors.NewStorageFailure("begin transaction", err)
	}

	stores := &txStores{
		memories:      newMemoryRepository(tx, u.index, u.logger),
		relationships: newRelationshipRepository(tx, u.logger),
	}

	if err := fn(stores); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			u.logger.Error("Transaction rollback failed", zap.Error(rbErr))
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return pkgerrors.NewStorageFailure("commit transaction", err)
	}
	return nil
}

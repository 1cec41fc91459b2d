// Package ops holds the explicit registry of the store's public operations.
// Every operation the engine exposes is registered here by name, and
// transports consume the registry for discovery and dispatch instead of
// hard-coding their own surfaces.
package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/chyax98/recall/pkg/common"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// HandlerFunc executes one operation against a raw JSON parameter payload.
type HandlerFunc func(ctx context.Context, payload json.RawMessage) (interface{}, error)

// Operation describes one dispatchable operation.
type Operation struct {
	Name    string      `json:"name"`
	Summary string      `json:"summary"`
	Handler HandlerFunc `json:"-"`
}

// Registry maps operation names to handlers. It is assembled once at startup
// and read-only afterwards; the mutex only guards against a misbehaving late
// registration.
type Registry struct {
	mu         sync.RWMutex
	operations map[string]Operation
	logger     *zap.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *zap.Logger) *Registry {
	return &Registry{
		operations: make(map[string]Operation),
		logger:     logger.Named("ops"),
	}
}

// Register adds an operation. Duplicate names are rejected.
func (r *Registry) Register(op Operation) error {
	if op.Name == "" {
		return pkgerrors.NewInvalidInput("operation name cannot be empty")
	}
	if op.Handler == nil {
		return pkgerrors.NewInvalidInput(fmt.Sprintf("operation %q has no handler", op.Name))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.operations[op.Name]; exists {
		return pkgerrors.NewConflict(fmt.Sprintf("operation %q already registered", op.Name))
	}
	r.operations[op.Name] = op
	return nil
}

// List returns every operation descriptor sorted by name.
func (r *Registry) List() []Operation {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := make([]Operation, 0, len(r.operations))
	for _, op := range r.operations {
		list = append(list, op)
	}
	sort.Slice(list, func(i, j int) bool { return list[i].Name < list[j].Name })
	return list
}

// Dispatch runs the named operation. Every invocation gets a fresh uuid that
// travels in the context and the logs; the id is returned so transports can
// echo it to the caller.
func (r *Registry) Dispatch(ctx context.Context, name string, payload json.RawMessage) (interface{}, string, error) {
	invocationID := uuid.NewString()

	r.mu.RLock()
	op, exists := r.operations[name]
	r.mu.RUnlock()
	if !exists {
		return nil, invocationID, pkgerrors.NewNotFound(fmt.Sprintf("operation %q", name))
	}

	ctx = common.WithInvocationID(ctx, invocationID)
	r.logger.Debug("Dispatching operation",
		zap.String("operation", name),
		zap.String("invocationId", invocationID))

	result, err := op.Handler(ctx, payload)
	if err != nil {
		r.logger.Warn("Operation failed",
			zap.String("operation", name),
			zap.String("invocationId", invocationID),
			zap.Error(err))
		return nil, invocationID, err
	}
	return result, invocationID, nil
}

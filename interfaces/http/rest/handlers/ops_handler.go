package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ops"
	"github.com/chyax98/recall/infrastructure/observability"
	"github.com/chyax98/recall/pkg/common"
	"github.com/chyax98/recall/pkg/errors"
)

// OpsHandler exposes the operation registry over HTTP: discovery plus
// dispatch by name.
type OpsHandler struct {
	registry     *ops.Registry
	collector    *observability.Collector
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewOpsHandler creates a new ops handler
func NewOpsHandler(
	registry *ops.Registry,
	collector *observability.Collector,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) *OpsHandler {
	return &OpsHandler{
		registry:     registry,
		collector:    collector,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// ListOpsResponse lists the registered operations.
type ListOpsResponse struct {
	Operations []ops.Operation `json:"operations"`
	Count      int             `json:"count"`
}

// List handles GET /ops
func (h *OpsHandler) List(w http.ResponseWriter, r *http.Request) {
	operations := h.registry.List()
	common.RespondJSON(w, http.StatusOK, ListOpsResponse{
		Operations: operations,
		Count:      len(operations),
	})
}

// Dispatch handles POST /ops/{name}. The body is the operation's parameter
// object; the invocation id comes back in the response meta.
func (h *OpsHandler) Dispatch(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")

	body, err := io.ReadAll(io.LimitReader(r.Body, maxSnapshotBytes))
	if err != nil {
		h.errorHandler.Handle(w, r, errors.NewInvalidInput("unreadable request body"))
		return
	}

	result, invocationID, err := h.registry.Dispatch(r.Context(), name, json.RawMessage(body))
	h.collector.OpsDispatches.WithLabelValues(name).Inc()
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondWithMeta(w, http.StatusOK, result, &common.MetaInfo{
		RequestID:    chimiddleware.GetReqID(r.Context()),
		InvocationID: invocationID,
		Timestamp:    time.Now().UTC().Format(time.RFC3339),
	})
}

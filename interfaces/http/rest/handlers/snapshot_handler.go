package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/infrastructure/observability"
	"github.com/chyax98/recall/pkg/common"
	"github.com/chyax98/recall/pkg/errors"
)

// maxSnapshotBytes caps import payloads, which carry whole stores.
const maxSnapshotBytes = 64 << 20

// SnapshotHandler handles snapshot export and import requests
type SnapshotHandler struct {
	snapshots    *services.SnapshotService
	collector    *observability.Collector
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(
	snapshots *services.SnapshotService,
	collector *observability.Collector,
	logger *zap.Logger,
	errorHandler *errors.ErrorHandler,
) *SnapshotHandler {
	return &SnapshotHandler{
		snapshots:    snapshots,
		collector:    collector,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Export handles GET /snapshot. Filters mirror search minus relevance:
// tags, from, to, limit.
func (h *SnapshotHandler) Export(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	filter := ports.ExportFilter{
		Tags: splitTags(params.Get("tags")),
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	filter.Limit = limit

	if filter.StartDate, err = parseTimeParam(params.Get("from"), "from"); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if filter.EndDate, err = parseTimeParam(params.Get("to"), "to"); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	snapshot, err := h.snapshots.Export(r.Context(), filter)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, snapshot)
}

// ImportRequest wraps a snapshot document with import options.
type ImportRequest struct {
	Snapshot           json.RawMessage `json:"snapshot"`
	SkipDuplicates     *bool           `json:"skipDuplicates,omitempty"`
	PreserveTimestamps bool            `json:"preserveTimestamps,omitempty"`
	DryRun             bool            `json:"dryRun,omitempty"`
}

// Import handles POST /snapshot/import. A malformed snapshot document fails
// the whole request; bad entries inside a well-formed one surface as soft
// errors in the result.
func (h *SnapshotHandler) Import(w http.ResponseWriter, r *http.Request) {
	var req ImportRequest
	if err := common.ParseJSONBody(r, &req, maxSnapshotBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if len(req.Snapshot) == 0 {
		h.errorHandler.Handle(w, r, errors.NewInvalidInput("snapshot payload is required"))
		return
	}

	opts := services.ImportOptions{
		SkipDuplicates:     true,
		PreserveTimestamps: req.PreserveTimestamps,
		DryRun:             req.DryRun,
	}
	if req.SkipDuplicates != nil {
		opts.SkipDuplicates = *req.SkipDuplicates
	}

	result, err := h.snapshots.Import(r.Context(), req.Snapshot, opts)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	mode := "live"
	if req.DryRun {
		mode = "dry"
	}
	h.collector.Imports.WithLabelValues(mode).Inc()

	common.RespondJSON(w, http.StatusOK, result)
}

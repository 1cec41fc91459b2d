package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/pkg/common"
)

// HealthHandler answers liveness and readiness probes.
type HealthHandler struct {
	info          ports.StoreInfo
	targetVersion int
	logger        *zap.Logger
}

// NewHealthHandler creates a new health handler. targetVersion is the schema
// version the running binary expects.
func NewHealthHandler(info ports.StoreInfo, targetVersion int, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{
		info:          info,
		targetVersion: targetVersion,
		logger:        logger,
	}
}

// Health handles GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	common.RespondJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// Ready handles GET /ready. Not ready until the store answers and its schema
// matches what this binary expects.
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	version, err := h.info.SchemaVersion(r.Context())
	if err != nil {
		h.logger.Warn("Readiness probe failed", zap.Error(err))
		common.RespondError(w, http.StatusServiceUnavailable, "NOT_READY", "store unreachable")
		return
	}
	if version != h.targetVersion {
		common.RespondError(w, http.StatusServiceUnavailable, "NOT_READY", "schema migration pending")
		return
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"status":        "ready",
		"schemaVersion": version,
	})
}

package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/pkg/common"
	"github.com/chyax98/recall/pkg/errors"
)

// StatsHandler handles store statistics requests
type StatsHandler struct {
	memories     *services.MemoryService
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewStatsHandler creates a new stats handler
func NewStatsHandler(memories *services.MemoryService, logger *zap.Logger, errorHandler *errors.ErrorHandler) *StatsHandler {
	return &StatsHandler{
		memories:     memories,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// Stats handles GET /stats
func (h *StatsHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.memories.Stats(r.Context())
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, stats)
}

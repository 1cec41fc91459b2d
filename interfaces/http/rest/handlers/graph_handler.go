package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/pkg/common"
	"github.com/chyax98/recall/pkg/errors"
	"github.com/chyax98/recall/pkg/validation"
)

// GraphHandler handles relationship requests
type GraphHandler struct {
	graph        *services.GraphService
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewGraphHandler creates a new graph handler
func NewGraphHandler(graph *services.GraphService, logger *zap.Logger, errorHandler *errors.ErrorHandler) *GraphHandler {
	return &GraphHandler{
		graph:        graph,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// EdgeRequest is one edge in a bulk link request
type EdgeRequest struct {
	FromHash string                 `json:"fromHash" validate:"required"`
	ToHash   string                 `json:"toHash" validate:"required"`
	Type     string                 `json:"type" validate:"required"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// LinkRequest represents the request body for bulk linking
type LinkRequest struct {
	Edges []EdgeRequest `json:"edges" validate:"required,min=1,dive"`
}

// LinkResponse reports how many edges a bulk link created.
type LinkResponse struct {
	Created int `json:"created"`
	Skipped int `json:"skipped"`
}

// Link handles POST /relationships. The whole batch commits in one
// transaction; edges whose endpoints are missing are skipped, not failed.
func (h *GraphHandler) Link(w http.ResponseWriter, r *http.Request) {
	var req LinkRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, errors.NewInvalidInput(err.Error()))
		return
	}

	specs := make([]ports.EdgeSpec, 0, len(req.Edges))
	for _, edge := range req.Edges {
		specs = append(specs, ports.EdgeSpec{
			FromHash: edge.FromHash,
			ToHash:   edge.ToHash,
			Type:     edge.Type,
			Metadata: edge.Metadata,
		})
	}

	result, err := h.graph.LinkBulk(r.Context(), specs)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created > 0 {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, LinkResponse{
		Created: result.Created,
		Skipped: result.Skipped,
	})
}

// RelatedResponse wraps neighborhood results.
type RelatedResponse struct {
	Memories []services.MemoryView `json:"memories"`
	Count    int                   `json:"count"`
}

// Related handles GET /memories/{hash}/related with optional limit and depth.
func (h *GraphHandler) Related(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", services.DefaultRelatedLimit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	depth, err := queryInt(r, "depth", 1)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	hash := chi.URLParam(r, "hash")

	var related []services.MemoryView
	if depth > 1 {
		found, err := h.graph.RelatedWithDepth(r.Context(), hash, limit, depth)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		related = services.MemoryViews(found)
	} else {
		found, err := h.graph.Related(r.Context(), hash, limit)
		if err != nil {
			h.errorHandler.Handle(w, r, err)
			return
		}
		related = services.MemoryViews(found)
	}

	common.RespondJSON(w, http.StatusOK, RelatedResponse{
		Memories: related,
		Count:    len(related),
	})
}

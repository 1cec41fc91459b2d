// Package handlers contains the REST endpoint handlers. Each handler decodes
// and validates its request, calls one service method, and maps the result or
// error back onto the wire.
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/pkg/common"
	"github.com/chyax98/recall/pkg/errors"
	"github.com/chyax98/recall/pkg/validation"
)

// maxBodyBytes caps request bodies. Snapshot imports get a higher cap in the
// snapshot handler.
const maxBodyBytes = 1 << 20

// MemoryHandler handles memory CRUD requests
type MemoryHandler struct {
	memories     *services.MemoryService
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewMemoryHandler creates a new memory handler
func NewMemoryHandler(memories *services.MemoryService, logger *zap.Logger, errorHandler *errors.ErrorHandler) *MemoryHandler {
	return &MemoryHandler{
		memories:     memories,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// StoreMemoryRequest represents the request body for storing a memory
type StoreMemoryRequest struct {
	Content  string                 `json:"content" validate:"required"`
	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// StoreMemoryResponse wraps the stored memory with the idempotency outcome.
type StoreMemoryResponse struct {
	Memory  services.MemoryView `json:"memory"`
	Created bool                `json:"created"`
}

// Store handles POST /memories
func (h *MemoryHandler) Store(w http.ResponseWriter, r *http.Request) {
	var req StoreMemoryRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if err := validation.ValidateStruct(req); err != nil {
		h.errorHandler.Handle(w, r, errors.NewInvalidInput(err.Error()))
		return
	}

	result, err := h.memories.Store(r.Context(), services.StoreInput{
		Content:  req.Content,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	status := http.StatusOK
	if result.Created {
		status = http.StatusCreated
	}
	common.RespondJSON(w, status, StoreMemoryResponse{
		Memory:  services.NewMemoryView(result.Memory),
		Created: result.Created,
	})
}

// Get handles GET /memories/{hash}. The engine treats an unresolved hash as
// "none" rather than a failure; this surface renders none as 404.
func (h *MemoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	memory, err := h.memories.GetByHash(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if memory == nil {
		h.errorHandler.Handle(w, r, errors.NewNotFound("memory"))
		return
	}

	common.RespondJSON(w, http.StatusOK, services.NewMemoryView(memory))
}

// ListMemoriesResponse wraps a page of memories.
type ListMemoriesResponse struct {
	Memories []services.MemoryView `json:"memories"`
	Count    int                   `json:"count"`
}

// List handles GET /memories
func (h *MemoryHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	memories, err := h.memories.List(r.Context(), limit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	views := services.MemoryViews(memories)
	common.RespondJSON(w, http.StatusOK, ListMemoriesResponse{
		Memories: views,
		Count:    len(views),
	})
}

// UpdateMemoryRequest represents the request body for updating a memory.
// Absent fields stay unchanged.
type UpdateMemoryRequest struct {
	Content  *string                `json:"content,omitempty"`
	Tags     []string               `json:"tags,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Update handles PUT /memories/{hash}
func (h *MemoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	var req UpdateMemoryRequest
	if err := common.ParseJSONBody(r, &req, maxBodyBytes); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	memory, err := h.memories.Update(r.Context(), services.UpdateInput{
		Hash:     chi.URLParam(r, "hash"),
		Content:  req.Content,
		Tags:     req.Tags,
		Metadata: req.Metadata,
	})
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, services.NewMemoryView(memory))
}

// DeleteMemoryResponse reports what a delete removed.
type DeleteMemoryResponse struct {
	Deleted              bool  `json:"deleted"`
	RemovedRelationships int64 `json:"removedRelationships"`
}

// Delete handles DELETE /memories/{hash}. Deleting an absent memory is not
// an error; the response carries deleted=false.
func (h *MemoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	result, err := h.memories.Delete(r.Context(), chi.URLParam(r, "hash"))
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, DeleteMemoryResponse{
		Deleted:              result.Deleted,
		RemovedRelationships: result.RemovedRelations,
	})
}

// DeleteByTagResponse reports a bulk delete by tag.
type DeleteByTagResponse struct {
	Deleted              int64 `json:"deleted"`
	RemovedRelationships int64 `json:"removedRelationships"`
}

// DeleteByTag handles DELETE /memories?tag=...
func (h *MemoryHandler) DeleteByTag(w http.ResponseWriter, r *http.Request) {
	tag := r.URL.Query().Get("tag")
	if tag == "" {
		h.errorHandler.Handle(w, r, errors.NewInvalidInput("tag query parameter is required"))
		return
	}

	result, err := h.memories.DeleteByTag(r.Context(), tag)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, DeleteByTagResponse{
		Deleted:              result.Deleted,
		RemovedRelationships: result.RemovedRelations,
	})
}

// queryInt reads an integer query parameter, falling back when absent.
func queryInt(r *http.Request, name string, fallback int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.NewInvalidInput("malformed " + name + " parameter")
	}
	return value, nil
}

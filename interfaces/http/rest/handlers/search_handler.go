package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/pkg/common"
	"github.com/chyax98/recall/pkg/errors"
)

// SearchHandler handles search requests
type SearchHandler struct {
	memories     *services.MemoryService
	logger       *zap.Logger
	errorHandler *errors.ErrorHandler
}

// NewSearchHandler creates a new search handler
func NewSearchHandler(memories *services.MemoryService, logger *zap.Logger, errorHandler *errors.ErrorHandler) *SearchHandler {
	return &SearchHandler{
		memories:     memories,
		logger:       logger,
		errorHandler: errorHandler,
	}
}

// SearchResponse wraps scored search results.
type SearchResponse struct {
	Results []services.SearchResultView `json:"results"`
	Count   int                         `json:"count"`
}

// Search handles GET /search. All filters are optional; with no text query
// the results are filter-only, ordered newest first.
func (h *SearchHandler) Search(w http.ResponseWriter, r *http.Request) {
	params := r.URL.Query()

	query := ports.SearchQuery{
		Query: params.Get("q"),
		Tags:  splitTags(params.Get("tags")),
	}

	limit, err := queryInt(r, "limit", services.DefaultSearchLimit)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	query.Limit = limit

	if raw := params.Get("since_days"); raw != "" {
		days, err := strconv.Atoi(raw)
		if err != nil {
			h.errorHandler.Handle(w, r, errors.NewInvalidInput("malformed since_days parameter"))
			return
		}
		query.SinceDays = &days
	}

	if query.StartDate, err = parseTimeParam(params.Get("from"), "from"); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}
	if query.EndDate, err = parseTimeParam(params.Get("to"), "to"); err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	if raw := params.Get("min_relevance"); raw != "" {
		minRelevance, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			h.errorHandler.Handle(w, r, errors.NewInvalidInput("malformed min_relevance parameter"))
			return
		}
		query.MinRelevance = &minRelevance
	}

	results, err := h.memories.Search(r.Context(), query)
	if err != nil {
		h.errorHandler.Handle(w, r, err)
		return
	}

	views := services.SearchResultViews(results)
	common.RespondJSON(w, http.StatusOK, SearchResponse{
		Results: views,
		Count:   len(views),
	})
}

// splitTags parses a comma-separated tag list, dropping empty entries.
func splitTags(raw string) []string {
	if raw == "" {
		return nil
	}
	var tags []string
	for _, tag := range strings.Split(raw, ",") {
		if tag = strings.TrimSpace(tag); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}

// parseTimeParam accepts RFC 3339 timestamps and bare dates, which mean
// midnight UTC of that day.
func parseTimeParam(raw, name string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		t = t.UTC()
		return &t, nil
	}
	return nil, errors.NewInvalidInput("malformed " + name + " parameter")
}

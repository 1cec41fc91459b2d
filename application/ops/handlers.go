package ops

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/chyax98/recall/application/ports"
	"github.com/chyax98/recall/application/services"
	pkgerrors "github.com/chyax98/recall/pkg/errors"
)

// Services bundles the application services the operations dispatch into.
type Services struct {
	Memories  *services.MemoryService
	Graph     *services.GraphService
	Snapshots *services.SnapshotService
}

// RegisterAll wires every public store operation into the registry. The
// registry is the authoritative list of what this engine can do; transports
// discover it instead of maintaining their own.
func RegisterAll(r *Registry, svc Services) error {
	operations := []Operation{
		{
			Name:    "memory.store",
			Summary: "Save a new memory; identical content is a no-op returning the existing hash",
			Handler: storeHandler(svc.Memories),
		},
		{
			Name:    "memory.get",
			Summary: "Fetch a memory by content hash",
			Handler: getHandler(svc.Memories),
		},
		{
			Name:    "memory.list",
			Summary: "List memories, newest first",
			Handler: listHandler(svc.Memories),
		},
		{
			Name:    "memory.update",
			Summary: "Update content, tags or metadata; changing content changes the hash identity",
			Handler: updateHandler(svc.Memories),
		},
		{
			Name:    "memory.delete",
			Summary: "Delete a memory together with every edge touching it",
			Handler: deleteHandler(svc.Memories),
		},
		{
			Name:    "memory.deleteByTag",
			Summary: "Delete every memory carrying the exact tag",
			Handler: deleteByTagHandler(svc.Memories),
		},
		{
			Name:    "memory.search",
			Summary: "Search by text relevance, tags and date range",
			Handler: searchHandler(svc.Memories),
		},
		{
			Name:    "store.stats",
			Summary: "Aggregate counts and on-disk size",
			Handler: statsHandler(svc.Memories),
		},
		{
			Name:    "graph.link",
			Summary: "Create typed directed edges in bulk",
			Handler: linkHandler(svc.Graph),
		},
		{
			Name:    "graph.related",
			Summary: "Memories linked to a memory, optionally chained over multiple hops",
			Handler: relatedHandler(svc.Graph),
		},
		{
			Name:    "snapshot.export",
			Summary: "Export a filtered snapshot of the store",
			Handler: exportHandler(svc.Snapshots),
		},
		{
			Name:    "snapshot.import",
			Summary: "Import a snapshot with duplicate and timestamp policies",
			Handler: importHandler(svc.Snapshots),
		},
	}

	for _, op := range operations {
		if err := r.Register(op); err != nil {
			return err
		}
	}
	return nil
}

type storeParams struct {
	Content  string                 `json:"content"`
	Tags     []string               `json:"tags"`
	Metadata map[string]interface{} `json:"metadata"`
}

func storeHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params storeParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		result, err := svc.Store(ctx, services.StoreInput{
			Content:  params.Content,
			Tags:     params.Tags,
			Metadata: params.Metadata,
		})
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"hash":    result.Memory.Hash().String(),
			"created": result.Created,
		}, nil
	}
}

type hashParams struct {
	Hash string `json:"hash"`
}

func getHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params hashParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		m, err := svc.GetByHash(ctx, params.Hash)
		if err != nil {
			return nil, err
		}
		if m == nil {
			return nil, pkgerrors.NewNotFound("memory")
		}
		return services.NewMemoryView(m), nil
	}
}

type listParams struct {
	Limit int `json:"limit"`
}

func listHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params listParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		memories, err := svc.List(ctx, params.Limit)
		if err != nil {
			return nil, err
		}
		return services.MemoryViews(memories), nil
	}
}

type updateParams struct {
	Hash     string                 `json:"hash"`
	Content  *string                `json:"content"`
	Tags     []string               `json:"tags"`
	Metadata map[string]interface{} `json:"metadata"`
}

func updateHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params updateParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		m, err := svc.Update(ctx, services.UpdateInput{
			Hash:     params.Hash,
			Content:  params.Content,
			Tags:     params.Tags,
			Metadata: params.Metadata,
		})
		if err != nil {
			return nil, err
		}
		return services.NewMemoryView(m), nil
	}
}

func deleteHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params hashParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		result, err := svc.Delete(ctx, params.Hash)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"deleted":              result.Deleted,
			"removedRelationships": result.RemovedRelations,
		}, nil
	}
}

type tagParams struct {
	Tag string `json:"tag"`
}

func deleteByTagHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params tagParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		result, err := svc.DeleteByTag(ctx, params.Tag)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"deleted":              result.Deleted,
			"removedRelationships": result.RemovedRelations,
		}, nil
	}
}

type searchParams struct {
	Query        string   `json:"query"`
	Tags         []string `json:"tags"`
	Limit        int      `json:"limit"`
	SinceDays    *int     `json:"sinceDays"`
	From         string   `json:"from"`
	To           string   `json:"to"`
	MinRelevance *float64 `json:"minRelevance"`
}

func searchHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params searchParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		query, err := buildSearchQuery(params)
		if err != nil {
			return nil, err
		}
		results, err := svc.Search(ctx, query)
		if err != nil {
			return nil, err
		}
		return services.SearchResultViews(results), nil
	}
}

func buildSearchQuery(params searchParams) (ports.SearchQuery, error) {
	from, err := parseTimestamp("from", params.From)
	if err != nil {
		return ports.SearchQuery{}, err
	}
	to, err := parseTimestamp("to", params.To)
	if err != nil {
		return ports.SearchQuery{}, err
	}
	limit := params.Limit
	if limit <= 0 {
		limit = services.DefaultSearchLimit
	}
	return ports.SearchQuery{
		Query:        params.Query,
		Tags:         params.Tags,
		StartDate:    from,
		EndDate:      to,
		SinceDays:    params.SinceDays,
		MinRelevance: params.MinRelevance,
		Limit:        limit,
	}, nil
}

func statsHandler(svc *services.MemoryService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		return svc.Stats(ctx)
	}
}

type edgeParams struct {
	FromHash string                 `json:"fromHash"`
	ToHash   string                 `json:"toHash"`
	Type     string                 `json:"type"`
	Metadata map[string]interface{} `json:"metadata"`
}

type linkParams struct {
	Edges []edgeParams `json:"edges"`
}

func linkHandler(svc *services.GraphService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params linkParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		edges := make([]ports.EdgeSpec, 0, len(params.Edges))
		for _, e := range params.Edges {
			edges = append(edges, ports.EdgeSpec{
				FromHash: e.FromHash,
				ToHash:   e.ToHash,
				Type:     e.Type,
				Metadata: e.Metadata,
			})
		}
		result, err := svc.LinkBulk(ctx, edges)
		if err != nil {
			return nil, err
		}
		return map[string]interface{}{
			"created": result.Created,
			"skipped": result.Skipped,
		}, nil
	}
}

type relatedParams struct {
	Hash  string `json:"hash"`
	Limit int    `json:"limit"`
	Depth int    `json:"depth"`
}

func relatedHandler(svc *services.GraphService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params relatedParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		limit := params.Limit
		if limit <= 0 {
			limit = services.DefaultRelatedLimit
		}

		if params.Depth > 1 {
			found, err := svc.RelatedWithDepth(ctx, params.Hash, limit, params.Depth)
			if err != nil {
				return nil, err
			}
			return services.MemoryViews(found), nil
		}
		found, err := svc.Related(ctx, params.Hash, limit)
		if err != nil {
			return nil, err
		}
		return services.MemoryViews(found), nil
	}
}

type exportParams struct {
	Tags  []string `json:"tags"`
	From  string   `json:"from"`
	To    string   `json:"to"`
	Limit int      `json:"limit"`
}

func exportHandler(svc *services.SnapshotService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params exportParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		from, err := parseTimestamp("from", params.From)
		if err != nil {
			return nil, err
		}
		to, err := parseTimestamp("to", params.To)
		if err != nil {
			return nil, err
		}
		return svc.Export(ctx, ports.ExportFilter{
			Tags:      params.Tags,
			StartDate: from,
			EndDate:   to,
			Limit:     params.Limit,
		})
	}
}

type importParams struct {
	Snapshot           json.RawMessage `json:"snapshot"`
	SkipDuplicates     *bool           `json:"skipDuplicates"`
	PreserveTimestamps bool            `json:"preserveTimestamps"`
	DryRun             bool            `json:"dryRun"`
}

func importHandler(svc *services.SnapshotService) HandlerFunc {
	return func(ctx context.Context, payload json.RawMessage) (interface{}, error) {
		var params importParams
		if err := decodeParams(payload, &params); err != nil {
			return nil, err
		}
		if len(params.Snapshot) == 0 {
			return nil, pkgerrors.NewInvalidInput("snapshot payload is required")
		}
		opts := services.ImportOptions{
			SkipDuplicates:     true,
			PreserveTimestamps: params.PreserveTimestamps,
			DryRun:             params.DryRun,
		}
		if params.SkipDuplicates != nil {
			opts.SkipDuplicates = *params.SkipDuplicates
		}
		return svc.Import(ctx, params.Snapshot, opts)
	}
}

func decodeParams(payload json.RawMessage, v interface{}) error {
	if len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, v); err != nil {
		return pkgerrors.NewInvalidInput("malformed operation parameters").WithCause(err)
	}
	return nil
}

// parseTimestamp accepts RFC 3339 timestamps and plain dates, which mean
// midnight UTC of that day.
func parseTimestamp(field, value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		u := t.UTC()
		return &u, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		u := t.UTC()
		return &u, nil
	}
	return nil, pkgerrors.NewInvalidInput(fmt.Sprintf("malformed %s timestamp %q", field, value))
}

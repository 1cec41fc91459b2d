package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/chyax98/recall/application/ops"
	"github.com/chyax98/recall/application/services"
	"github.com/chyax98/recall/infrastructure/config"
	"github.com/chyax98/recall/infrastructure/observability"
	"github.com/chyax98/recall/infrastructure/persistence/sqlite"
	"github.com/chyax98/recall/pkg/errors"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	logger := zap.NewNop()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "rest_test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	migrator := sqlite.NewMigrator(db, logger)
	require.NoError(t, migrator.Migrate(context.Background()))

	index := sqlite.NewFTSIndex()
	memories := sqlite.NewMemoryRepository(db, index, logger)
	relationships := sqlite.NewRelationshipRepository(db, logger)
	uow := sqlite.NewUnitOfWork(db, index, logger)

	svc := ops.Services{
		Memories:  services.NewMemoryService(memories, relationships, uow, db, logger),
		Graph:     services.NewGraphService(memories, relationships, uow, logger),
		Snapshots: services.NewSnapshotService(uow, db, "recall-test", logger),
	}
	registry := ops.NewRegistry(logger)
	require.NoError(t, ops.RegisterAll(registry, svc))

	observability.ResetForTesting()
	t.Cleanup(observability.ResetForTesting)
	collector := observability.NewCollector("recall")

	cfg := &config.Config{
		ServerAddress: ":0",
		Environment:   "development",
		EnableMetrics: true,
		EnableCORS:    false,
		LogLevel:      "info",
	}
	errorHandler := errors.NewErrorHandler(logger, false)

	return NewRouter(cfg, svc, registry, collector, db, migrator.TargetVersion(), logger, errorHandler).Setup()
}

func doJSON(t *testing.T, handler http.Handler, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body == "" {
		reader = bytes.NewReader(nil)
	} else {
		reader = bytes.NewReader([]byte(body))
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	var decoded map[string]interface{}
	if strings.Contains(recorder.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &decoded))
	}
	return recorder, decoded
}

func storeMemory(t *testing.T, handler http.Handler, content string, tags ...string) string {
	t.Helper()

	payload := map[string]interface{}{"content": content}
	if len(tags) > 0 {
		payload["tags"] = tags
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)

	recorder, decoded := doJSON(t, handler, http.MethodPost, "/api/v1/memories", string(body))
	require.Equal(t, http.StatusCreated, recorder.Code)

	data := decoded["data"].(map[string]interface{})
	memory := data["memory"].(map[string]interface{})
	return memory["hash"].(string)
}

func TestRouter_HealthAndReady(t *testing.T) {
	handler := newTestRouter(t)

	recorder, decoded := doJSON(t, handler, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, "healthy", decoded["data"].(map[string]interface{})["status"])

	recorder, decoded = doJSON(t, handler, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, "ready", data["status"])
	assert.NotZero(t, data["schemaVersion"])
}

func TestRouter_StoreAndGetMemory(t *testing.T) {
	handler := newTestRouter(t)

	hash := storeMemory(t, handler, "rest round trip", "http")

	recorder, decoded := doJSON(t, handler, http.MethodGet, "/api/v1/memories/"+hash, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decoded["success"])

	memory := decoded["data"].(map[string]interface{})
	assert.Equal(t, "rest round trip", memory["content"])
	assert.Equal(t, hash, memory["hash"])
}

func TestRouter_StoreDuplicateReturnsOK(t *testing.T) {
	handler := newTestRouter(t)

	storeMemory(t, handler, "stored twice")

	recorder, decoded := doJSON(t, handler, http.MethodPost, "/api/v1/memories",
		`{"content": "stored twice"}`)

	// Existing content answers 200 instead of 201
	assert.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, false, data["created"])
}

func TestRouter_StoreRejectsMalformedBody(t *testing.T) {
	handler := newTestRouter(t)

	cases := []struct {
		name string
		body string
	}{
		{"not json", "not json"},
		{"missing content", `{"tags": ["x"]}`},
		{"unknown field", `{"content": "x", "nope": true}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			recorder, decoded := doJSON(t, handler, http.MethodPost, "/api/v1/memories", tc.body)
			assert.Equal(t, http.StatusBadRequest, recorder.Code)
			assert.Equal(t, true, decoded["error"])
			assert.Equal(t, "INVALID_INPUT", decoded["type"])
		})
	}
}

func TestRouter_GetUnknownHashIs404(t *testing.T) {
	handler := newTestRouter(t)

	absent := strings.Repeat("a", 64)
	recorder, decoded := doJSON(t, handler, http.MethodGet, "/api/v1/memories/"+absent, "")

	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "NOT_FOUND", decoded["type"])
}

func TestRouter_UpdateMovesIdentity(t *testing.T) {
	handler := newTestRouter(t)

	hash := storeMemory(t, handler, "rest draft")

	recorder, decoded := doJSON(t, handler, http.MethodPut, "/api/v1/memories/"+hash,
		`{"content": "rest final"}`)
	require.Equal(t, http.StatusOK, recorder.Code)

	updated := decoded["data"].(map[string]interface{})
	newHash := updated["hash"].(string)
	assert.NotEqual(t, hash, newHash)

	recorder, _ = doJSON(t, handler, http.MethodGet, "/api/v1/memories/"+hash, "")
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	recorder, _ = doJSON(t, handler, http.MethodGet, "/api/v1/memories/"+newHash, "")
	assert.Equal(t, http.StatusOK, recorder.Code)
}

func TestRouter_DeleteMemory(t *testing.T) {
	handler := newTestRouter(t)

	hash := storeMemory(t, handler, "rest doomed")

	recorder, decoded := doJSON(t, handler, http.MethodDelete, "/api/v1/memories/"+hash, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, true, data["deleted"])

	// A second delete still answers 200, it just reports nothing happened
	recorder, decoded = doJSON(t, handler, http.MethodDelete, "/api/v1/memories/"+hash, "")
	require.Equal(t, http.StatusOK, recorder.Code)
	data = decoded["data"].(map[string]interface{})
	assert.Equal(t, false, data["deleted"])
}

func TestRouter_DeleteByTagRequiresTag(t *testing.T) {
	handler := newTestRouter(t)

	recorder, decoded := doJSON(t, handler, http.MethodDelete, "/api/v1/memories", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "INVALID_INPUT", decoded["type"])
}

func TestRouter_DeleteByTag(t *testing.T) {
	handler := newTestRouter(t)

	storeMemory(t, handler, "tagged for sweep", "sweep")
	storeMemory(t, handler, "kept", "other")

	recorder, decoded := doJSON(t, handler, http.MethodDelete, "/api/v1/memories?tag=sweep", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["deleted"])
}

func TestRouter_Search(t *testing.T) {
	handler := newTestRouter(t)

	storeMemory(t, handler, "searchable postgres notes", "db")
	storeMemory(t, handler, "searchable redis notes", "cache")

	recorder, decoded := doJSON(t, handler,
		http.MethodGet, "/api/v1/search?q=searchable&tags=db", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])

	results := data["results"].([]interface{})
	first := results[0].(map[string]interface{})
	assert.Equal(t, "searchable postgres notes", first["content"])
	assert.NotNil(t, first["score"])
}

func TestRouter_SearchRejectsMalformedDate(t *testing.T) {
	handler := newTestRouter(t)

	recorder, decoded := doJSON(t, handler, http.MethodGet, "/api/v1/search?from=whenever", "")

	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Equal(t, "INVALID_INPUT", decoded["type"])
}

func TestRouter_LinkAndRelated(t *testing.T) {
	handler := newTestRouter(t)

	from := storeMemory(t, handler, "rest graph from")
	to := storeMemory(t, handler, "rest graph to")

	recorder, decoded := doJSON(t, handler, http.MethodPost, "/api/v1/relationships",
		fmt.Sprintf(`{"edges": [{"fromHash": %q, "toHash": %q, "type": "related"}]}`, from, to))
	require.Equal(t, http.StatusCreated, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["created"])

	recorder, decoded = doJSON(t, handler, http.MethodGet,
		"/api/v1/memories/"+from+"/related", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	data = decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["count"])
}

func TestRouter_Stats(t *testing.T) {
	handler := newTestRouter(t)

	storeMemory(t, handler, "counted by stats")

	recorder, decoded := doJSON(t, handler, http.MethodGet, "/api/v1/stats", "")

	require.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["totalMemories"])
}

func TestRouter_SnapshotExportImport(t *testing.T) {
	handler := newTestRouter(t)
	storeMemory(t, handler, "snapshot over rest", "snap")

	recorder, decoded := doJSON(t, handler, http.MethodGet, "/api/v1/snapshot", "")
	require.Equal(t, http.StatusOK, recorder.Code)

	snapshot, err := json.Marshal(decoded["data"])
	require.NoError(t, err)

	target := newTestRouter(t)
	recorder, decoded = doJSON(t, target, http.MethodPost, "/api/v1/snapshot/import",
		fmt.Sprintf(`{"snapshot": %s}`, snapshot))
	require.Equal(t, http.StatusOK, recorder.Code)

	result := decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(1), result["imported"])
}

func TestRouter_OpsListAndDispatch(t *testing.T) {
	handler := newTestRouter(t)

	recorder, decoded := doJSON(t, handler, http.MethodGet, "/api/v1/ops", "")
	require.Equal(t, http.StatusOK, recorder.Code)
	data := decoded["data"].(map[string]interface{})
	assert.Equal(t, float64(12), data["count"])

	recorder, decoded = doJSON(t, handler, http.MethodPost, "/api/v1/ops/memory.store",
		`{"content": "dispatched over rest"}`)
	require.Equal(t, http.StatusOK, recorder.Code)
	assert.Equal(t, true, decoded["success"])

	meta := decoded["meta"].(map[string]interface{})
	assert.NotEmpty(t, meta["invocation_id"])

	recorder, decoded = doJSON(t, handler, http.MethodPost, "/api/v1/ops/no.such.op", `{}`)
	assert.Equal(t, http.StatusNotFound, recorder.Code)
	assert.Equal(t, "NOT_FOUND", decoded["type"])
}

func TestRouter_MetricsEndpoint(t *testing.T) {
	handler := newTestRouter(t)

	storeMemory(t, handler, "observed memory")

	req := httptest.NewRequest(http.MethodGet, "/metrics", nil)
	recorder := httptest.NewRecorder()
	handler.ServeHTTP(recorder, req)

	require.Equal(t, http.StatusOK, recorder.Code)
	body := recorder.Body.String()
	assert.Contains(t, body, "recall_http_requests_total")
	assert.Contains(t, body, "recall_memories_created_total")
}

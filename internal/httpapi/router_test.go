package httpapi_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JamesPrial/mindful-journal/internal/dataroot"
	"github.com/JamesPrial/mindful-journal/internal/httpapi"
	"github.com/JamesPrial/mindful-journal/internal/journal"
	"github.com/JamesPrial/mindful-journal/internal/lists"
	"github.com/JamesPrial/mindful-journal/internal/metrics"
	"github.com/JamesPrial/mindful-journal/internal/storage"
)

type testEnv struct {
	root    *dataroot.Root
	handler http.Handler
	metrics *metrics.Collector
}

func newEnv(t *testing.T, opts ...httpapi.Option) *testEnv {
	t.Helper()
	root, err := dataroot.New(t.TempDir())
	require.NoError(t, err)
	return newEnvWithBackend(t, root, storage.NewJSONBackend(root.Path(), nil), opts...)
}

func newEnvWithBackend(t *testing.T, root *dataroot.Root, backend storage.ListBackend, opts ...httpapi.Option) *testEnv {
	t.Helper()
	collector := metrics.NewCollector()
	opts = append([]httpapi.Option{httpapi.WithMetrics(collector, "/metrics")}, opts...)
	srv := httpapi.NewServer(
		root,
		journal.NewStore(root, nil),
		lists.NewService(backend, nil, lists.WithObserver(collector.ListObserver())),
		nil,
		opts...,
	)
	return &testEnv{root: root, handler: srv.Handler(), metrics: collector}
}

func (e *testEnv) do(t *testing.T, method, path, body string, headers ...string) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	e.handler.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), "body: %s", rec.Body.String())
	return v
}

type listsBody struct {
	Active    []map[string]any `json:"active"`
	Completed []map[string]any `json:"completed"`
}

// ----------------------------------------------------------------------------
// Goals and tasks
// ----------------------------------------------------------------------------

func TestTaskLifecycle(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/tasks/active", `{"id":"t1","text":"buy milk"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	added := decode[map[string]any](t, rec)
	assert.Equal(t, true, added["success"])
	assert.Equal(t, map[string]any{"id": "t1", "text": "buy milk"}, added["item"])

	got := decode[listsBody](t, env.do(t, http.MethodGet, "/api/tasks", ""))
	assert.Equal(t, []map[string]any{{"id": "t1", "text": "buy milk"}}, got.Active)
	assert.Empty(t, got.Completed)
	assert.NotNil(t, got.Completed)

	rec = env.do(t, http.MethodPost, "/api/tasks/t1/complete", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"success":true}`, rec.Body.String())

	got = decode[listsBody](t, env.do(t, http.MethodGet, "/api/tasks", ""))
	assert.Empty(t, got.Active)
	require.Len(t, got.Completed, 1)
	assert.Equal(t, "t1", got.Completed[0]["id"])
	assert.Equal(t, "buy milk", got.Completed[0]["text"])
	assert.NotEmpty(t, got.Completed[0]["completed_at"])

	rec = env.do(t, http.MethodPost, "/api/tasks/t1/reactivate", "")
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[listsBody](t, env.do(t, http.MethodGet, "/api/tasks", ""))
	assert.Equal(t, []map[string]any{{"id": "t1", "text": "buy milk"}}, got.Active)

	rec = env.do(t, http.MethodPut, "/api/tasks/t1", `{"id":"t1","text":"buy oat milk"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	got = decode[listsBody](t, env.do(t, http.MethodGet, "/api/tasks", ""))
	assert.Equal(t, "buy oat milk", got.Active[0]["text"])

	rec = env.do(t, http.MethodDelete, "/api/tasks/t1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	rec = env.do(t, http.MethodDelete, "/api/tasks/t1", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"Item not found"}`, rec.Body.String())
}

func TestListFilesUseNormativeLayout(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	env.do(t, http.MethodPost, "/api/goals/active", `{"id":"g1","title":"Läufe 🏃 <5k>"}`)

	data, err := os.ReadFile(filepath.Join(env.root.Path(), "active", "active_goals.json"))
	require.NoError(t, err)
	assert.Equal(t, "[\n  {\n    \"id\": \"g1\",\n    \"title\": \"Läufe 🏃 <5k>\"\n  }\n]\n", string(data))
}

func TestInvalidKind(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	requests := []struct{ method, path, body string }{
		{http.MethodGet, "/api/notes", ""},
		{http.MethodPost, "/api/notes/active", `{"id":"x"}`},
		{http.MethodPost, "/api/notes/x/complete", ""},
		{http.MethodPost, "/api/notes/x/reactivate", ""},
		{http.MethodPut, "/api/notes/x", `{"id":"x"}`},
		{http.MethodDelete, "/api/notes/x", ""},
	}
	for _, r := range requests {
		rec := env.do(t, r.method, r.path, r.body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, "%s %s", r.method, r.path)
		assert.JSONEq(t, `{"error":"Invalid data type"}`, rec.Body.String())
	}
}

func TestItemBodyValidation(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		wantMsg string
	}{
		{"add empty", http.MethodPost, "/api/goals/active", "", "No data provided"},
		{"add empty object", http.MethodPost, "/api/goals/active", "{}", "No data provided"},
		{"add malformed", http.MethodPost, "/api/goals/active", "{nope", "Request must be JSON"},
		{"add array", http.MethodPost, "/api/goals/active", `[1]`, "request body must be a JSON object"},
		{"update empty", http.MethodPut, "/api/goals/g1", "", "No data provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newEnv(t)

			rec := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tt.wantMsg, decode[map[string]string](t, rec)["error"])
		})
	}
}

func TestNotFound(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	for _, r := range []struct{ method, path, body string }{
		{http.MethodPost, "/api/goals/missing/complete", ""},
		{http.MethodPost, "/api/goals/missing/reactivate", ""},
		{http.MethodPut, "/api/goals/missing", `{"id":"missing"}`},
		{http.MethodDelete, "/api/goals/missing", ""},
	} {
		rec := env.do(t, r.method, r.path, r.body)
		assert.Equal(t, http.StatusNotFound, rec.Code, "%s %s", r.method, r.path)
		assert.JSONEq(t, `{"error":"Item not found"}`, rec.Body.String())
	}
}

func TestBodyTooLarge(t *testing.T) {
	t.Parallel()
	env := newEnv(t, httpapi.WithMaxBodyBytes(16))

	rec := env.do(t, http.MethodPost, "/api/tasks/active", `{"id":"t1","text":"`+strings.Repeat("x", 64)+`"}`)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestStorageFailureIs500(t *testing.T) {
	t.Parallel()
	root, err := dataroot.New(t.TempDir())
	require.NoError(t, err)
	env := newEnvWithBackend(t, root, failingBackend{})

	rec := env.do(t, http.MethodPost, "/api/tasks/active", `{"id":"t1"}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Failed to save data"}`, rec.Body.String())
}

// ----------------------------------------------------------------------------
// Journal
// ----------------------------------------------------------------------------

func TestJournalSaveAndList(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	rec := env.do(t, http.MethodPost, "/api/journal/entry", `{"type":"work","id":"e1","content":"first","updated":1600000000000}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	saved := decode[map[string]any](t, rec)
	assert.Equal(t, "success", saved["status"])
	assert.Equal(t, "e1", saved["id"])
	assert.Equal(t, "Entry saved successfully", saved["message"])
	assert.Equal(t, filepath.Join(env.root.Path(), "journal", "work", "e1.txt"), saved["path"])

	rec = env.do(t, http.MethodPost, "/api/journal/entry", `{"content":"second","updated":1700000000000}`)
	require.Equal(t, http.StatusOK, rec.Code)
	generated := decode[map[string]any](t, rec)["id"].(string)
	assert.NotEmpty(t, generated)

	entries := decode[[]journal.Entry](t, env.do(t, http.MethodGet, "/api/journal/entries", ""))
	require.Len(t, entries, 2)
	assert.Equal(t, generated, entries[0].ID)
	assert.Equal(t, "personal", entries[0].Type)
	assert.Equal(t, "e1", entries[1].ID)
	assert.Equal(t, "first", entries[1].Content)
	assert.Equal(t, 1_600_000_000_000.0, entries[1].Updated)
}

func TestJournalListEmpty(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/api/journal/entries", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `[]`, rec.Body.String())
}

func TestJournalSaveErrors(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		body        string
		contentType string
		wantStatus  int
		wantMsg     string
	}{
		{"not json content type", `{"content":"x"}`, "text/plain", http.StatusBadRequest, "Request must be JSON"},
		{"empty object", `{}`, "application/json", http.StatusBadRequest, "No data provided"},
		{"malformed", `{"content":`, "application/json", http.StatusBadRequest, "Request must be JSON"},
		{"traversal type", `{"type":"../../etc","content":"x"}`, "application/json", http.StatusBadRequest, ""},
		{"traversal id", `{"id":"../x","content":"x"}`, "application/json", http.StatusBadRequest, ""},
		{"bad updated", `{"content":"x","updated":"later"}`, "application/json", http.StatusBadRequest, "updated must be a number"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			env := newEnv(t)

			rec := env.do(t, http.MethodPost, "/api/journal/entry", tt.body, "Content-Type", tt.contentType)
			assert.Equal(t, tt.wantStatus, rec.Code)
			body := decode[map[string]string](t, rec)
			assert.Equal(t, "error", body["status"])
			if tt.wantMsg != "" {
				assert.Equal(t, tt.wantMsg, body["message"])
			} else {
				assert.NotEmpty(t, body["message"])
			}
		})
	}
}

// ----------------------------------------------------------------------------
// System, CORS, discovery, metrics, static
// ----------------------------------------------------------------------------

func TestSystemInfo(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	env.do(t, http.MethodPost, "/api/tasks/active", `{"id":"t1"}`)
	env.do(t, http.MethodPost, "/api/tasks/t1/complete", "")

	rec := env.do(t, http.MethodGet, "/api/system/info", "")
	require.Equal(t, http.StatusOK, rec.Code)
	info := decode[map[string]any](t, rec)
	assert.Equal(t, env.root.Path(), info["data_folder"])
	assert.Equal(t, float64(2), info["file_count"])
	assert.Greater(t, info["total_size"].(float64), float64(0))
	assert.Equal(t, "success", info["status"])
}

func TestCORS(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/api/goals", "", "Origin", "http://localhost:3000")
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))

	rec = env.do(t, http.MethodOptions, "/api/goals/g1", "",
		"Origin", "http://localhost:3000",
		"Access-Control-Request-Method", http.MethodDelete,
		"Access-Control-Request-Headers", "Content-Type")
	assert.Less(t, rec.Code, 300)
	assert.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
	assert.Contains(t, rec.Header().Get("Access-Control-Allow-Methods"), http.MethodDelete)
}

func TestHealthAndRoutes(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	rec := env.do(t, http.MethodGet, "/health", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var health struct {
		Status    string `json:"status"`
		Endpoints []struct {
			Path    string   `json:"path"`
			Methods []string `json:"methods"`
		} `json:"endpoints"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &health))
	assert.Equal(t, "healthy", health.Status)
	paths := make(map[string][]string)
	for _, ep := range health.Endpoints {
		paths[ep.Path] = ep.Methods
	}
	assert.Equal(t, []string{"GET"}, paths["/api/journal/entries"])
	assert.Equal(t, []string{"POST"}, paths["/api/journal/entry"])
	assert.Equal(t, []string{"DELETE", "PUT"}, paths["/api/{kind}/{id}"])

	rec = env.do(t, http.MethodGet, "/routes", "")
	require.Equal(t, http.StatusOK, rec.Code)
	routes := decode[map[string][]string](t, rec)["routes"]
	assert.Contains(t, routes, "/api/{kind}/{id} [DELETE,PUT]")
	assert.IsNonDecreasing(t, routes)
}

func TestMetrics(t *testing.T) {
	t.Parallel()
	env := newEnv(t)

	env.do(t, http.MethodPost, "/api/goals/active", `{"id":"g1"}`)
	env.do(t, http.MethodPost, "/api/goals/nope/complete", "")
	env.do(t, http.MethodPost, "/api/journal/entry", `{"content":"x"}`)

	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreOperations.WithLabelValues("goals", "add", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreOperations.WithLabelValues("goals", "complete", "not_found")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.StoreOperations.WithLabelValues("journal", "save", "ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(env.metrics.HTTPRequests.WithLabelValues("POST", "/api/{kind}/{id}/complete", "404")))

	rec := env.do(t, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "mindful_http_requests_total")
}

func TestStaticSPA(t *testing.T) {
	t.Parallel()
	dist := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dist, "index.html"), []byte("<html>app</html>"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dist, "app.js"), []byte("console.log(1)"), 0o644))
	env := newEnv(t, httpapi.WithStaticDir(dist))

	rec := env.do(t, http.MethodGet, "/app.js", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "console.log(1)", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/journal/today", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "<html>app</html>", rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/tasks", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"active":[],"completed":[]}`, rec.Body.String())
}

// ----------------------------------------------------------------------------
// Test doubles
// ----------------------------------------------------------------------------

type failingBackend struct{}

func (failingBackend) Load(context.Context, storage.Kind, storage.Status) ([]storage.Item, error) {
	return make([]storage.Item, 0), nil
}

func (failingBackend) Save(context.Context, storage.Kind, storage.Status, []storage.Item) error {
	return errors.New("disk full")
}

func (failingBackend) SaveAll(context.Context, storage.Kind, ...storage.Bucket) error {
	return errors.New("disk full")
}

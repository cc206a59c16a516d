package mcpserver

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/WayneSimpson/clickup-mcp-server/api"
	"github.com/WayneSimpson/clickup-mcp-server/internal/clickup"
	"github.com/WayneSimpson/clickup-mcp-server/internal/retrieval"
)

// stubBackend serves a fixed task listing so REST tests can exercise the
// live-backend path.
type stubBackend struct {
	tasks map[string]*clickup.Task
	list  []clickup.Task
}

func (b *stubBackend) GetTask(_ context.Context, id string) (*clickup.Task, error) {
	task, ok := b.tasks[id]
	if !ok {
		return nil, &clickup.APIError{Status: 404, Code: "ITEM_013", Detail: "Task not found"}
	}
	return task, nil
}

func (b *stubBackend) ListTaskSummaries(context.Context, clickup.FilterOptions) ([]clickup.Task, error) {
	return b.list, nil
}

func withStubBackend(s *server, backend retrieval.Backend) {
	s.facade = retrieval.New(backend, nil, s.metrics)
	s.backendConfigured = true
}

func invoiceTask(id, name string, updatedMillis int64) clickup.Task {
	return clickup.Task{
		ID:          id,
		Name:        name,
		Status:      clickup.TaskStatus{Status: "open"},
		DateUpdated: strconv.FormatInt(updatedMillis, 10),
		URL:         "https://app.clickup.com/t/" + id,
	}
}

func decodeSearch(t *testing.T, resp *http.Response) api.RESTSearchResponse {
	t.Helper()
	defer resp.Body.Close()
	var payload api.RESTSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	return payload
}

func TestRESTSearchParamSynonyms(t *testing.T) {
	s := newTestServer(t)
	backend := &stubBackend{list: []clickup.Task{
		invoiceTask("t1", "Send invoice to client", 2000),
		invoiceTask("t2", "Invoice #1", 1000),
		invoiceTask("t3", "Unrelated task", 3000),
	}}
	withStubBackend(s, backend)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	for _, rawQuery := range []string{
		"query=invoice",
		"q=invoice",
		"q=invoice&limit=10",
		"q=invoice&top_k=10",
		"q=invoice&k=10",
		"q=invoice&n=10",
	} {
		resp, err := http.Get(ts.URL + "/search?" + rawQuery)
		if err != nil {
			t.Fatal(err)
		}
		payload := decodeSearch(t, resp)
		if len(payload.Results) != 2 {
			t.Fatalf("%s: got %d results, want 2", rawQuery, len(payload.Results))
		}
	}
}

func TestRESTSearchPostBody(t *testing.T) {
	s := newTestServer(t)
	backend := &stubBackend{list: []clickup.Task{
		invoiceTask("t1", "Send invoice to client", 2000),
		invoiceTask("t2", "Invoice #1", 1000),
	}}
	withStubBackend(s, backend)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/search", "application/json",
		strings.NewReader(`{"query":"invoice","top_k":1}`))
	if err != nil {
		t.Fatal(err)
	}
	payload := decodeSearch(t, resp)
	if len(payload.Results) != 1 {
		t.Fatalf("top_k not honored: %d results", len(payload.Results))
	}
}

func TestRESTSearchAliases(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	for _, path := range []string{"/search", "/mcp/search", "/chatgpt/search"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		payload := decodeSearch(t, resp)
		if len(payload.Results) == 0 {
			t.Fatalf("%s: empty results for empty query", path)
		}
	}
}

func TestRESTSearchInvalidLimit(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/search?q=x&limit=many")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.ErrorCode != "invalid_limit" {
		t.Fatalf("unexpected error %+v", payload)
	}
}

func TestRESTFetchMissingID(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/fetch")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.ErrorCode != "missing_id" {
		t.Fatalf("unexpected error %+v", payload)
	}
}

func TestRESTFetchNotFound(t *testing.T) {
	s := newTestServer(t)
	withStubBackend(s, &stubBackend{})
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/fetch?id=missing")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var payload api.ErrorResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.ErrorCode != "not_found" {
		t.Fatalf("unexpected error %+v", payload)
	}
}

func TestRESTFetchTask(t *testing.T) {
	s := newTestServer(t)
	task := invoiceTask("abc", "Send invoice to client", 2000)
	task.TextContent = "Wire the Q3 invoice."
	withStubBackend(s, &stubBackend{tasks: map[string]*clickup.Task{"abc": &task}})
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/fetch", "application/json", strings.NewReader(`{"id":"abc"}`))
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var payload api.RESTFetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.ID != "abc" || !strings.Contains(payload.Content, "Wire the Q3 invoice.") {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if payload.Metadata["title"] != "Send invoice to client" {
		t.Fatalf("title metadata missing: %+v", payload.Metadata)
	}
}

func TestRESTFetchCatalogWithoutBackend(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/chatgpt/fetch?id=tool:fetch")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var payload api.RESTFetchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		t.Fatal(err)
	}
	if payload.ID != "tool:fetch" || payload.Content == "" {
		t.Fatalf("unexpected payload %+v", payload)
	}
}

func TestRESTHealth(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	initializeSession(t, ts)

	for _, path := range []string{"/health", "/chatgpt/health"} {
		resp, err := http.Get(ts.URL + path)
		if err != nil {
			t.Fatal(err)
		}
		var payload api.HealthResponse
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if payload.Status != "ok" || payload.Server != "clickup-mcp-server" {
			t.Fatalf("%s: unexpected payload %+v", path, payload)
		}
		if payload.RequestResponseSessions != 1 {
			t.Fatalf("%s: session count %d, want 1", path, payload.RequestResponseSessions)
		}
		if payload.BackendConfigured {
			t.Fatalf("%s: no token configured, backend must report false", path)
		}
	}
}

func TestRESTOpenAPI(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/openapi.json")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	var doc struct {
		OpenAPI string                    `json:"openapi"`
		Paths   map[string]map[string]any `json:"paths"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(doc.OpenAPI, "3.1") {
		t.Fatalf("unexpected openapi version %q", doc.OpenAPI)
	}
	for _, path := range []string{"/search", "/fetch", "/health"} {
		if _, ok := doc.Paths[path]; !ok {
			t.Fatalf("path %s missing from document", path)
		}
	}
}

func TestOptionsPreflight(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	for _, path := range []string{"/mcp", "/search", "/sse", "/anything"} {
		req, err := http.NewRequest(http.MethodOptions, ts.URL+path, nil)
		if err != nil {
			t.Fatal(err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusNoContent {
			t.Fatalf("%s: status %d", path, resp.StatusCode)
		}
		allowed := resp.Header.Get("Access-Control-Allow-Headers")
		for _, name := range []string{"Content-Type", "Authorization", "x-api-key", "session-id"} {
			if !strings.Contains(allowed, name) {
				t.Fatalf("%s: %q missing from allow headers %q", path, name, allowed)
			}
		}
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
}

func TestCorrelationIDEchoed(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/health", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(headerCorrelationID, "abc-123")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if got := resp.Header.Get(headerCorrelationID); got != "abc-123" {
		t.Fatalf("correlation id not echoed: %q", got)
	}

	// Without an inbound id one is minted.
	resp, err = http.Get(ts.URL + "/health")
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.Header.Get(headerCorrelationID) == "" {
		t.Fatal("correlation id must be minted")
	}
}

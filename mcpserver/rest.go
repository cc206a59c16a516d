package mcpserver

import (
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/WayneSimpson/clickup-mcp-server/api"
	"github.com/WayneSimpson/clickup-mcp-server/internal/retrieval"
)

// Parameter synonyms accepted by the REST aliases. Different agent
// frontends send different names for the same thing.
var (
	queryParamNames = []string{"query", "q"}
	limitParamNames = []string{"limit", "top_k", "k", "n"}
)

type restRequestBody struct {
	Query string `json:"query"`
	Q     string `json:"q"`
	Limit int    `json:"limit"`
	TopK  int    `json:"top_k"`
	K     int    `json:"k"`
	N     int    `json:"n"`
	ID    string `json:"id"`
}

// decodeRESTParams merges URL query parameters with an optional JSON
// body, body values winning.
func decodeRESTParams(r *http.Request) (restRequestBody, error) {
	var params restRequestBody
	values := r.URL.Query()
	params.Query = firstParam(values, queryParamNames)
	for _, name := range limitParamNames {
		raw := strings.TrimSpace(values.Get(name))
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return params, httpError{Status: http.StatusBadRequest, Code: "invalid_limit", Detail: "limit must be an integer"}
		}
		params.Limit = n
		break
	}
	params.ID = strings.TrimSpace(values.Get("id"))

	if r.Method != http.MethodPost || r.Body == nil {
		return params, nil
	}
	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes))
	if err != nil {
		return params, httpError{Status: http.StatusBadRequest, Code: "read_error", Detail: "could not read request body"}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return params, nil
	}
	var fromBody restRequestBody
	if err := json.Unmarshal(body, &fromBody); err != nil {
		return params, httpError{Status: http.StatusBadRequest, Code: "invalid_body", Detail: "request body must be JSON"}
	}
	if q := firstNonEmpty(fromBody.Query, fromBody.Q); q != "" {
		params.Query = q
	}
	if n := firstNonZero(fromBody.Limit, fromBody.TopK, fromBody.K, fromBody.N); n != 0 {
		params.Limit = n
	}
	if id := strings.TrimSpace(fromBody.ID); id != "" {
		params.ID = id
	}
	return params, nil
}

func firstParam(values url.Values, names []string) string {
	for _, name := range names {
		if v := strings.TrimSpace(values.Get(name)); v != "" {
			return v
		}
	}
	return ""
}

func firstNonEmpty(candidates ...string) string {
	for _, c := range candidates {
		if v := strings.TrimSpace(c); v != "" {
			return v
		}
	}
	return ""
}

func firstNonZero(candidates ...int) int {
	for _, c := range candidates {
		if c != 0 {
			return c
		}
	}
	return 0
}

func (s *server) handleRESTSearch(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET or POST"}
	}
	params, err := decodeRESTParams(r)
	if err != nil {
		return err
	}
	resp := s.facade.Search(r.Context(), params.Query, params.Limit)
	writeJSON(w, http.StatusOK, api.RESTSearchResponse{Results: resp.Results})
	return nil
}

func (s *server) handleRESTFetch(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet && r.Method != http.MethodPost {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET or POST"}
	}
	params, err := decodeRESTParams(r)
	if err != nil {
		return err
	}
	if params.ID == "" {
		return httpError{Status: http.StatusBadRequest, Code: "missing_id", Detail: "id parameter is required"}
	}

	outcome := s.facade.Fetch(r.Context(), params.ID)
	switch outcome.Status {
	case retrieval.FetchOK:
		doc := outcome.Document
		metadata := make(map[string]string, len(doc.Metadata)+2)
		for k, v := range doc.Metadata {
			metadata[k] = v
		}
		if doc.Title != "" {
			metadata["title"] = doc.Title
		}
		if doc.URL != "" {
			metadata["url"] = doc.URL
		}
		writeJSON(w, http.StatusOK, api.RESTFetchResponse{ID: doc.ID, Content: doc.Text, Metadata: metadata})
		return nil
	case retrieval.FetchNotFound:
		return httpError{Status: http.StatusNotFound, Code: "not_found", Detail: outcome.Reason}
	default:
		return httpError{Status: http.StatusBadGateway, Code: "backend_error", Detail: outcome.Reason}
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET"}
	}
	streaming, requestResponse := s.registry.counts()
	writeJSON(w, http.StatusOK, api.HealthResponse{
		Status:                  "ok",
		Server:                  s.cfg.ServerName,
		Version:                 s.cfg.ServerVersion,
		UptimeSeconds:           int64(time.Since(s.startedAt) / time.Second),
		StreamingSessions:       streaming,
		RequestResponseSessions: requestResponse,
		BackendConfigured:       s.backendConfigured,
	})
	return nil
}

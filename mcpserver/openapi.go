package mcpserver

import (
	"net/http"
)

// handleOpenAPI serves a hand-assembled OpenAPI 3.1 document covering
// the REST aliases. Agent frontends use it to discover the search and
// fetch surface without speaking MCP.
func (s *server) handleOpenAPI(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET"}
	}
	writeJSON(w, http.StatusOK, s.openAPIDocument())
	return nil
}

func (s *server) openAPIDocument() map[string]any {
	searchResultSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"id":       map[string]any{"type": "string"},
			"title":    map[string]any{"type": "string"},
			"text":     map[string]any{"type": "string"},
			"snippet":  map[string]any{"type": "string"},
			"url":      map[string]any{"type": "string"},
			"metadata": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
		},
		"required": []string{"id", "title", "text"},
	}
	errorSchema := map[string]any{
		"type": "object",
		"properties": map[string]any{
			"error":  map[string]any{"type": "string"},
			"detail": map[string]any{"type": "string"},
		},
		"required": []string{"error"},
	}

	searchOperation := map[string]any{
		"operationId": "search",
		"summary":     "Search ClickUp tasks",
		"parameters": []map[string]any{
			{"name": "query", "in": "query", "schema": map[string]any{"type": "string"}},
			{"name": "limit", "in": "query", "schema": map[string]any{"type": "integer", "minimum": 1, "maximum": 50, "default": 10}},
		},
		"responses": map[string]any{
			"200": map[string]any{
				"description": "Ranked search results; never empty while the catalog can answer.",
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"results": map[string]any{"type": "array", "items": searchResultSchema},
							},
							"required": []string{"results"},
						},
					},
				},
			},
		},
	}
	fetchOperation := map[string]any{
		"operationId": "fetch",
		"summary":     "Fetch one document by id",
		"parameters": []map[string]any{
			{"name": "id", "in": "query", "required": true, "schema": map[string]any{"type": "string"}},
		},
		"responses": map[string]any{
			"200": map[string]any{
				"description": "The document.",
				"content": map[string]any{
					"application/json": map[string]any{
						"schema": map[string]any{
							"type": "object",
							"properties": map[string]any{
								"id":       map[string]any{"type": "string"},
								"content":  map[string]any{"type": "string"},
								"metadata": map[string]any{"type": "object", "additionalProperties": map[string]any{"type": "string"}},
							},
							"required": []string{"id", "content"},
						},
					},
				},
			},
			"400": map[string]any{
				"description": "Missing id.",
				"content":     map[string]any{"application/json": map[string]any{"schema": errorSchema}},
			},
			"404": map[string]any{
				"description": "Unknown id.",
				"content":     map[string]any{"application/json": map[string]any{"schema": errorSchema}},
			},
		},
	}

	return map[string]any{
		"openapi": "3.1.0",
		"info": map[string]any{
			"title":   s.cfg.ServerName,
			"version": s.cfg.ServerVersion,
		},
		"paths": map[string]any{
			"/search": map[string]any{"get": searchOperation, "post": searchOperation},
			"/fetch":  map[string]any{"get": fetchOperation, "post": fetchOperation},
			"/health": map[string]any{
				"get": map[string]any{
					"operationId": "health",
					"summary":     "Liveness and session occupancy",
					"responses": map[string]any{
						"200": map[string]any{"description": "Service health."},
					},
				},
			},
		},
	}
}

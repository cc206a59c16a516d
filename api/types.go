package api

import "encoding/json"

// SearchResultItem is one ranked hit returned by the search tool and the
// REST search aliases.
type SearchResultItem struct {
	// ID is the stable identifier usable with fetch.
	ID string `json:"id"`
	// Title is the human-readable headline for the hit.
	Title string `json:"title"`
	// Text is the human-readable body for the hit.
	Text string `json:"text"`
	// Snippet is a short description suitable for result lists.
	Snippet string `json:"snippet,omitempty"`
	// URL links to the canonical page for the underlying object.
	URL string `json:"url,omitempty"`
	// Metadata carries free-form key/value annotations (status, source,
	// match reason).
	Metadata map[string]string `json:"metadata,omitempty"`
}

// SearchResponse is the search tool output.
type SearchResponse struct {
	// IDs lists result identifiers in rank order.
	IDs []string `json:"ids"`
	// ObjectIDs mirrors IDs for callers that expect the objectIds field.
	ObjectIDs []string `json:"objectIds"`
	// Results carries the ranked result items.
	Results []SearchResultItem `json:"results"`
}

// FetchDocument is the fetch tool output for a single identifier.
type FetchDocument struct {
	// ID echoes the requested identifier.
	ID string `json:"id"`
	// Title is the document headline.
	Title string `json:"title"`
	// Text is the assembled human-readable document body.
	Text string `json:"text"`
	// URL links to the canonical page for the document.
	URL string `json:"url,omitempty"`
	// Metadata carries status and location annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
	// Raw is the untransformed backend record for advanced consumers.
	Raw json.RawMessage `json:"raw,omitempty"`
}

// RESTSearchResponse wraps search results for the REST aliases.
type RESTSearchResponse struct {
	Results []SearchResultItem `json:"results"`
}

// RESTFetchResponse is the REST alias fetch payload.
type RESTFetchResponse struct {
	// ID echoes the requested identifier.
	ID string `json:"id"`
	// Content is the document body text.
	Content string `json:"content"`
	// Metadata carries status and location annotations.
	Metadata map[string]string `json:"metadata,omitempty"`
}

// HealthResponse reports liveness and session occupancy.
type HealthResponse struct {
	// Status is "ok" while the process serves traffic.
	Status string `json:"status"`
	// Server is the service name.
	Server string `json:"server"`
	// Version is the build version string.
	Version string `json:"version"`
	// UptimeSeconds counts seconds since the server started.
	UptimeSeconds int64 `json:"uptime_seconds"`
	// StreamingSessions counts live streaming-channel sessions.
	StreamingSessions int `json:"streaming_sessions"`
	// RequestResponseSessions counts live request/response sessions.
	RequestResponseSessions int `json:"request_response_sessions"`
	// BackendConfigured is true when a backend API token is present.
	BackendConfigured bool `json:"backend_configured"`
}

// ErrorResponse is the JSON error envelope for REST endpoints.
type ErrorResponse struct {
	// ErrorCode is the stable error identifier.
	ErrorCode string `json:"error"`
	// Detail provides human-readable diagnostic context for the error.
	Detail string `json:"detail,omitempty"`
}

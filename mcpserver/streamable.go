package mcpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/WayneSimpson/clickup-mcp-server/internal/rpc"
)

// Fixed rejection texts for session protocol violations. Clients match
// on these strings, so they never change.
const (
	msgSessionHeaderRequired = "Bad Request: Mcp-Session-Id header is required"
	msgNoValidSession        = "Bad Request: No valid session ID provided"
)

const maxFrameBytes = 4 << 20

// handleMCP serves the streamable HTTP transport on the MCP path.
func (s *server) handleMCP(w http.ResponseWriter, r *http.Request) error {
	switch r.Method {
	case http.MethodPost:
		return s.handleMCPPost(w, r)
	case http.MethodGet:
		return s.handleMCPGet(w, r)
	case http.MethodDelete:
		return s.handleMCPDelete(w, r)
	default:
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use POST, GET or DELETE"}
	}
}

func (s *server) handleMCPPost(w http.ResponseWriter, r *http.Request) error {
	acceptBefore := r.Header.Get("Accept")
	normalizeAccept(r.Header)

	body, err := io.ReadAll(io.LimitReader(r.Body, maxFrameBytes+1))
	if err != nil {
		return httpError{Status: http.StatusBadRequest, Code: "read_error", Detail: "could not read request body"}
	}
	if len(body) > maxFrameBytes {
		return httpError{Status: http.StatusRequestEntityTooLarge, Code: "frame_too_large", Detail: fmt.Sprintf("frame exceeds %d bytes", maxFrameBytes)}
	}
	req, parseErr := rpc.DecodeRequest(body)
	if parseErr != nil {
		writeJSON(w, http.StatusBadRequest, parseErr)
		return nil
	}

	sessionID := strings.TrimSpace(r.Header.Get(headerSessionID))
	var sess *session
	switch {
	case sessionID == "" && req.Method == "initialize":
		sess = s.registry.create(kindRequestResponse)
		w.Header().Set(headerSessionID, sess.id)
	case sessionID == "":
		s.rejectSession(w, req.ID, "missing_session_id", msgNoValidSession)
		return nil
	default:
		existing, ok := s.registry.get(sessionID)
		if !ok || existing.kind != kindRequestResponse || existing.isClosed() {
			s.rejectSession(w, req.ID, "unknown_session_id", msgNoValidSession)
			return nil
		}
		sess = existing
	}

	sess.dispatchMu.Lock()
	resp := s.dispatcher.Dispatch(r.Context(), req)
	sess.dispatchMu.Unlock()
	if req.Method == "initialize" {
		sess.markActive()
	} else {
		sess.touch()
	}

	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return nil
	}
	if prefersEventStream(acceptBefore) {
		return writeSingleEventStream(w, resp)
	}
	writeJSON(w, http.StatusOK, resp)
	return nil
}

// handleMCPGet opens the server-to-client notification stream for an
// existing request/response session.
func (s *server) handleMCPGet(w http.ResponseWriter, r *http.Request) error {
	sessionID := strings.TrimSpace(r.Header.Get(headerSessionID))
	if sessionID == "" {
		s.rejectSession(w, nil, "missing_session_id", msgSessionHeaderRequired)
		return nil
	}
	sess, ok := s.registry.get(sessionID)
	if !ok || sess.kind != kindRequestResponse || sess.isClosed() {
		s.rejectSession(w, nil, "unknown_session_id", msgNoValidSession)
		return nil
	}
	sess.touch()
	return s.streamSessionEvents(w, r, sess, nil)
}

func (s *server) handleMCPDelete(w http.ResponseWriter, r *http.Request) error {
	sessionID := strings.TrimSpace(r.Header.Get(headerSessionID))
	if sessionID == "" {
		s.rejectSession(w, nil, "missing_session_id", msgSessionHeaderRequired)
		return nil
	}
	if !s.registry.closeSession(sessionID, "client_request") {
		s.rejectSession(w, nil, "unknown_session_id", msgNoValidSession)
		return nil
	}
	w.WriteHeader(http.StatusNoContent)
	return nil
}

func (s *server) rejectSession(w http.ResponseWriter, id json.RawMessage, reason, message string) {
	s.metrics.ProtocolViolation()
	s.transportLog.Debug("mcp.session.rejected", "reason", reason)
	writeJSON(w, http.StatusBadRequest, rpc.ErrorResponse(id, rpc.NewError(rpc.CodeServerError, message)))
}

// normalizeAccept injects the two media types the transport can produce
// into the Accept header when missing. Idempotent: tokens already
// present are never duplicated.
func normalizeAccept(h http.Header) {
	accept := h.Get("Accept")
	tokens := []string{}
	hasJSON := false
	hasSSE := false
	for _, part := range strings.Split(accept, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		media := strings.TrimSpace(strings.SplitN(part, ";", 2)[0])
		switch media {
		case "application/json":
			hasJSON = true
		case "text/event-stream":
			hasSSE = true
		}
		tokens = append(tokens, part)
	}
	if !hasJSON {
		tokens = append(tokens, "application/json")
	}
	if !hasSSE {
		tokens = append(tokens, "text/event-stream")
	}
	h.Set("Accept", strings.Join(tokens, ", "))
}

// prefersEventStream reports whether the client's original Accept header
// asked for SSE ahead of (or instead of) plain JSON.
func prefersEventStream(accept string) bool {
	ssePos := strings.Index(accept, "text/event-stream")
	if ssePos < 0 {
		return false
	}
	jsonPos := strings.Index(accept, "application/json")
	return jsonPos < 0 || ssePos < jsonPos
}

// writeSingleEventStream renders one JSON-RPC response as a short-lived
// SSE stream, the shape streamable HTTP clients negotiate via Accept.
func writeSingleEventStream(w http.ResponseWriter, resp *rpc.Response) error {
	payload, err := json.Marshal(resp)
	if err != nil {
		return httpError{Status: http.StatusInternalServerError, Code: "encode_error", Detail: "could not encode response"}
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusOK, resp)
		return nil
	}
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, "event: message\ndata: %s\n\n", payload)
	flusher.Flush()
	return nil
}

func setSSEHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("Content-Type", "text/event-stream")
	h.Set("Cache-Control", "no-cache")
	h.Set("Connection", "keep-alive")
}

// streamSessionEvents holds the connection open and relays queued
// session frames as SSE message events until the peer disconnects or the
// session closes. opening, when non-nil, is written first.
func (s *server) streamSessionEvents(w http.ResponseWriter, r *http.Request, sess *session, opening []byte) error {
	flusher, ok := w.(http.Flusher)
	if !ok {
		return httpError{Status: http.StatusInternalServerError, Code: "streaming_unsupported", Detail: "response writer cannot stream"}
	}
	setSSEHeaders(w)
	w.WriteHeader(http.StatusOK)
	if len(opening) > 0 {
		_, _ = w.Write(opening)
	}
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return nil
		case <-sess.done:
			return nil
		case frame := <-sess.events:
			fmt.Fprintf(w, "event: message\ndata: %s\n\n", frame)
			flusher.Flush()
		}
	}
}

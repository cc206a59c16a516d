package mcpserver

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/WayneSimpson/clickup-mcp-server/internal/rpc"
)

// handleSSE opens a streaming-channel session. The first event names the
// companion message endpoint; every JSON-RPC response afterwards travels
// over this stream. The connection is held until the peer disconnects,
// the session is deleted, or the server shuts down.
func (s *server) handleSSE(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodGet {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use GET"}
	}
	sess := s.registry.create(kindStreaming)
	defer func() {
		// Peer disconnects end the session; an explicit close beat us here.
		if s.registry.closeSession(sess.id, "peer_disconnect") {
			s.sseLog.Debug("mcp.sse.disconnect", "session_id", sess.id)
		}
	}()

	endpoint := fmt.Sprintf("event: endpoint\ndata: /messages?sessionId=%s\n\n", sess.id)
	return s.streamSessionEvents(w, r, sess, []byte(endpoint))
}

// handleMessages accepts client-to-server JSON-RPC frames for a
// streaming session. The HTTP reply is 202; the real response is queued
// on the session's SSE stream.
func (s *server) handleMessages(w http.ResponseWriter, r *http.Request) error {
	if r.Method != http.MethodPost {
		return httpError{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Detail: "use POST"}
	}

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

	sessionID := strings.TrimSpace(r.URL.Query().Get("sessionId"))
	if sessionID == "" {
		s.rejectSession(w, req.ID, "missing_session_id", msgNoValidSession)
		return nil
	}
	sess, ok := s.registry.get(sessionID)
	if !ok || sess.kind != kindStreaming || sess.isClosed() {
		s.rejectSession(w, req.ID, "unknown_session_id", msgNoValidSession)
		return nil
	}

	w.WriteHeader(http.StatusAccepted)

	sess.dispatchMu.Lock()
	resp := s.dispatcher.Dispatch(r.Context(), req)
	sess.dispatchMu.Unlock()
	if req.Method == "initialize" {
		sess.markActive()
	} else {
		sess.touch()
	}
	if resp == nil {
		return nil
	}

	payload, err := json.Marshal(resp)
	if err != nil {
		s.sseLog.Warn("mcp.sse.encode_failure", "session_id", sess.id, "error", err)
		return nil
	}
	if err := sess.send(payload); err != nil {
		// The session closed while we were dispatching; the frame is
		// dropped on the floor, not an error.
		s.sseLog.Debug("mcp.sse.dropped_frame", "session_id", sess.id, "error", err)
	}
	return nil
}

package mcpserver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/rpc"
)

func newTestServer(t *testing.T) *server {
	t.Helper()
	s, err := newServer(NewServerRequest{
		Config: Config{ServerVersion: "test"},
		Logger: pslog.NoopLogger(),
	})
	if err != nil {
		t.Fatal(err)
	}
	return s
}

func postMCP(t *testing.T, ts *httptest.Server, sessionID, body string, header http.Header) *http.Response {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, ts.URL+"/mcp", strings.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	for name, values := range header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if sessionID != "" {
		req.Header.Set(headerSessionID, sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	return resp
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *rpc.Error      `json:"error"`
}

func decodeRPC(t *testing.T, resp *http.Response) rpcEnvelope {
	t.Helper()
	defer resp.Body.Close()
	var env rpcEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	return env
}

func initializeSession(t *testing.T, ts *httptest.Server) string {
	t.Helper()
	resp := postMCP(t, ts, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("initialize status %d", resp.StatusCode)
	}
	sid := resp.Header.Get(headerSessionID)
	if sid == "" {
		t.Fatal("initialize must return a session id header")
	}
	env := decodeRPC(t, resp)
	if env.Error != nil {
		t.Fatalf("initialize failed: %+v", env.Error)
	}
	return sid
}

func TestStreamableInitializeCreatesSession(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp := postMCP(t, ts, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if resp.Header.Get(headerSessionID) == "" {
		t.Fatal("missing session id header")
	}
	env := decodeRPC(t, resp)
	var result struct {
		ProtocolVersion string `json:"protocolVersion"`
	}
	if err := json.Unmarshal(env.Result, &result); err != nil {
		t.Fatal(err)
	}
	if result.ProtocolVersion != rpc.ProtocolVersion {
		t.Fatalf("unexpected protocol version %q", result.ProtocolVersion)
	}
	_, requestResponse := s.registry.counts()
	if requestResponse != 1 {
		t.Fatalf("expected one request/response session, got %d", requestResponse)
	}
}

func TestStreamablePostWithoutSessionRejected(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp := postMCP(t, ts, "", `{"jsonrpc":"2.0","id":2,"method":"ping"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	if env.Error == nil || env.Error.Code != rpc.CodeServerError {
		t.Fatalf("unexpected error %+v", env.Error)
	}
	if env.Error.Message != msgNoValidSession {
		t.Fatalf("rejection text drifted: %q", env.Error.Message)
	}
}

func TestStreamableUnknownSessionRejected(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp := postMCP(t, ts, "0199c3a4-0000-7000-8000-000000000000", `{"jsonrpc":"2.0","id":2,"method":"ping"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	if env.Error == nil || env.Error.Message != msgNoValidSession {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestStreamableParseError(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp := postMCP(t, ts, "", `{"jsonrpc":`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	if env.Error == nil || env.Error.Code != rpc.CodeParseError {
		t.Fatalf("expected parse error, got %+v", env.Error)
	}
}

func TestStreamableGetRequiresHeader(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/mcp")
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	if env.Error == nil || env.Error.Message != msgSessionHeaderRequired {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestStreamableDeleteRequiresHeader(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/mcp", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	if env.Error == nil || env.Error.Message != msgSessionHeaderRequired {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestStreamableClosedSessionIsTerminal(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	sid := initializeSession(t, ts)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/mcp", nil)
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set(headerSessionID, sid)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("delete status %d", resp.StatusCode)
	}

	// The id must never resolve again.
	resp = postMCP(t, ts, sid, `{"jsonrpc":"2.0","id":3,"method":"ping"}`, nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("closed session accepted, status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	if env.Error == nil || env.Error.Message != msgNoValidSession {
		t.Fatalf("unexpected error %+v", env.Error)
	}
}

func TestStreamableToolsFlow(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	sid := initializeSession(t, ts)

	resp := postMCP(t, ts, sid, `{"jsonrpc":"2.0","id":2,"method":"tools/list"}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tools/list status %d", resp.StatusCode)
	}
	env := decodeRPC(t, resp)
	var listed struct {
		Tools []rpc.Tool `json:"tools"`
	}
	if err := json.Unmarshal(env.Result, &listed); err != nil {
		t.Fatal(err)
	}
	if len(listed.Tools) != 2 || listed.Tools[0].Name != "search" || listed.Tools[1].Name != "fetch" {
		t.Fatalf("unexpected tools %+v", listed.Tools)
	}

	resp = postMCP(t, ts, sid, `{"jsonrpc":"2.0","id":3,"method":"tools/call","params":{"name":"search","arguments":{"query":"search tasks"}}}`, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("tools/call status %d", resp.StatusCode)
	}
	env = decodeRPC(t, resp)
	if env.Error != nil {
		t.Fatalf("tool call failed: %+v", env.Error)
	}
	var result rpc.ToolResult
	if err := json.Unmarshal(env.Result, &result); err != nil {
		t.Fatal(err)
	}
	if len(result.Content) == 0 || result.Content[0].Text == "" {
		t.Fatalf("empty tool result %+v", result)
	}
}

func TestStreamableNotificationAccepted(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	sid := initializeSession(t, ts)
	resp := postMCP(t, ts, sid, `{"jsonrpc":"2.0","method":"notifications/initialized"}`, nil)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		t.Fatalf("notification status %d", resp.StatusCode)
	}
}

func TestStreamableSSEResponseNegotiation(t *testing.T) {
	s := newTestServer(t)
	ts := httptest.NewServer(s.handler)
	defer ts.Close()

	header := http.Header{}
	header.Set("Accept", "text/event-stream")
	resp := postMCP(t, ts, "", `{"jsonrpc":"2.0","id":1,"method":"initialize","params":{}}`, header)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status %d", resp.StatusCode)
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/event-stream") {
		t.Fatalf("expected SSE response, got %q", ct)
	}
	buf := make([]byte, 4096)
	n, _ := resp.Body.Read(buf)
	body := string(buf[:n])
	if !strings.Contains(body, "event: message") || !strings.Contains(body, `"jsonrpc":"2.0"`) {
		t.Fatalf("unexpected SSE body %q", body)
	}
}

func TestNormalizeAccept(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{name: "empty", in: "", want: "application/json, text/event-stream"},
		{name: "json only", in: "application/json", want: "application/json, text/event-stream"},
		{name: "sse only", in: "text/event-stream", want: "text/event-stream, application/json"},
		{name: "both", in: "application/json, text/event-stream", want: "application/json, text/event-stream"},
		{name: "unrelated preserved", in: "text/html", want: "text/html, application/json, text/event-stream"},
		{name: "params preserved", in: "application/json;q=0.9, text/event-stream", want: "application/json;q=0.9, text/event-stream"},
	}
	for _, tc := range cases {
		h := http.Header{}
		if tc.in != "" {
			h.Set("Accept", tc.in)
		}
		normalizeAccept(h)
		if got := h.Get("Accept"); got != tc.want {
			t.Fatalf("%s: normalizeAccept(%q) = %q, want %q", tc.name, tc.in, got, tc.want)
		}
		// Idempotent: a second pass changes nothing.
		normalizeAccept(h)
		if got := h.Get("Accept"); got != tc.want {
			t.Fatalf("%s: second pass drifted to %q", tc.name, got)
		}
	}
}

func TestPrefersEventStream(t *testing.T) {
	cases := []struct {
		accept string
		want   bool
	}{
		{accept: "", want: false},
		{accept: "application/json", want: false},
		{accept: "text/event-stream", want: true},
		{accept: "text/event-stream, application/json", want: true},
		{accept: "application/json, text/event-stream", want: false},
	}
	for _, tc := range cases {
		if got := prefersEventStream(tc.accept); got != tc.want {
			t.Fatalf("prefersEventStream(%q) = %v, want %v", tc.accept, got, tc.want)
		}
	}
}

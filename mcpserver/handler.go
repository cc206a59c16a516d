package mcpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/api"
	"github.com/WayneSimpson/clickup-mcp-server/internal/correlation"
	"github.com/WayneSimpson/clickup-mcp-server/internal/svcfields"
	"github.com/WayneSimpson/clickup-mcp-server/internal/uuidv7"
)

const (
	headerSessionID     = "Mcp-Session-Id"
	headerCorrelationID = "X-Correlation-Id"
)

type handlerFunc func(http.ResponseWriter, *http.Request) error

// httpError renders as the REST JSON error envelope when returned from a
// wrapped handler.
type httpError struct {
	Status int
	Code   string
	Detail string
}

func (e httpError) Error() string {
	return e.Code + ": " + e.Detail
}

// wrap adapts a handlerFunc into an http.Handler: it establishes the
// correlation id, attaches a request logger to the context, and renders
// returned errors as the JSON error envelope.
func (s *server) wrap(operation string, fn handlerFunc) http.Handler {
	logger := svcfields.WithSubsystem(s.logger, "http."+operation)
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ctx := r.Context()
		if corr := strings.TrimSpace(r.Header.Get(headerCorrelationID)); corr != "" {
			ctx = correlation.Set(ctx, corr)
		}
		if correlation.ID(ctx) == "" {
			ctx = correlation.Set(ctx, correlation.Mint())
		}
		w.Header().Set(headerCorrelationID, correlation.ID(ctx))

		reqLog := logger.With(
			"req_id", uuidv7.NewString(),
			"method", r.Method,
			"path", r.URL.Path,
		)
		ctx = pslog.ContextWithLogger(ctx, reqLog)
		r = r.WithContext(ctx)

		reqLog.Trace("http.request.start", "remote_addr", r.RemoteAddr)
		if err := fn(w, r); err != nil {
			var httpErr httpError
			if !errors.As(err, &httpErr) {
				httpErr = httpError{Status: http.StatusInternalServerError, Code: "internal", Detail: "internal server error"}
			}
			reqLog.Debug("http.request.error", "elapsed", time.Since(start), "error", err)
			writeJSON(w, httpErr.Status, api.ErrorResponse{ErrorCode: httpErr.Code, Detail: httpErr.Detail})
			return
		}
		reqLog.Trace("http.request.complete", "elapsed", time.Since(start))
	})
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	enc := json.NewEncoder(w)
	_ = enc.Encode(payload)
}

// corsAllowHeaders lists the request headers browser-based MCP clients
// send preflights for.
const corsAllowHeaders = "Content-Type, Authorization, x-api-key, session-id, Mcp-Session-Id, X-Correlation-Id"

// withCORS answers OPTIONS preflights with 204 and stamps permissive
// CORS headers on every response.
func withCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		h := w.Header()
		h.Set("Access-Control-Allow-Origin", "*")
		h.Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
		h.Set("Access-Control-Expose-Headers", headerSessionID+", "+headerCorrelationID)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

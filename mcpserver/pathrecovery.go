package mcpserver

import (
	"net/http"
	"net/url"
	"strings"
)

// pathRecoveryHeaders is the fixed precedence order for reconstructing a
// request path that a reverse proxy rewrote before forwarding.
var pathRecoveryHeaders = []string{
	"X-Original-Url",
	"X-Rewrite-Url",
	"X-Forwarded-Uri",
	"X-Forwarded-Path",
}

// recoverPath returns the best-effort original request path: the first
// proxy header carrying a usable path wins, otherwise the literal path
// stands. Unparseable header values fall through silently.
func recoverPath(header http.Header, literal string) string {
	for _, name := range pathRecoveryHeaders {
		raw := strings.TrimSpace(header.Get(name))
		if raw == "" {
			continue
		}
		parsed, err := url.Parse(raw)
		if err != nil {
			continue
		}
		if parsed.Path == "" || !strings.HasPrefix(parsed.Path, "/") {
			continue
		}
		return parsed.Path
	}
	return literal
}

// withPathRecovery re-routes tool traffic that arrived on the MCP path
// because a proxy collapsed the URL. Only the /search and /fetch alias
// suffixes are short-circuited; everything else keeps its literal path,
// the recovery being advisory.
func (s *server) withPathRecovery(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		recovered := recoverPath(r.Header, r.URL.Path)
		if recovered != r.URL.Path && strings.HasPrefix(recovered, s.cfg.MCPPath) {
			switch {
			case strings.HasSuffix(recovered, "/search"):
				r.URL.Path = "/search"
			case strings.HasSuffix(recovered, "/fetch"):
				r.URL.Path = "/fetch"
			}
		}
		next.ServeHTTP(w, r)
	})
}

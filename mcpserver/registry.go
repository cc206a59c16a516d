package mcpserver

import (
	"sync"
	"time"

	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/metrics"
	"github.com/WayneSimpson/clickup-mcp-server/internal/uuidv7"
)

// sessionRegistry owns every live session. It is constructor-injected
// into the transports; nothing in this package holds global state. A
// closed session is removed immediately, so its id can never resolve
// again: closed is terminal.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
	logger   pslog.Logger
	metrics  *metrics.Set
}

func newSessionRegistry(logger pslog.Logger, metricsSet *metrics.Set) *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
		logger:   logger,
		metrics:  metricsSet,
	}
}

func (r *sessionRegistry) create(kind sessionKind) *session {
	s := newSession(uuidv7.NewString(), kind)
	r.mu.Lock()
	r.sessions[s.id] = s
	r.mu.Unlock()
	r.metrics.SessionOpened(kind.String())
	r.logger.Info("mcp.session.create", "session_id", s.id, "kind", kind.String())
	return s
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.Lock()
	s, ok := r.sessions[id]
	r.mu.Unlock()
	return s, ok
}

// closeSession closes and deregisters the session. Returns false when
// the id is unknown or already closed.
func (r *sessionRegistry) closeSession(id, reason string) bool {
	r.mu.Lock()
	s, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	if !ok || !s.close() {
		return false
	}
	r.metrics.SessionClosed(s.kind.String(), reason)
	r.logger.Info("mcp.session.close", "session_id", id, "kind", s.kind.String(), "reason", reason)
	return true
}

// counts reports live sessions per kind.
func (r *sessionRegistry) counts() (streaming, requestResponse int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		switch s.kind {
		case kindStreaming:
			streaming++
		case kindRequestResponse:
			requestResponse++
		}
	}
	return streaming, requestResponse
}

// closeAll closes every live session, used on shutdown.
func (r *sessionRegistry) closeAll(reason string) {
	r.mu.Lock()
	drained := make([]*session, 0, len(r.sessions))
	for id, s := range r.sessions {
		drained = append(drained, s)
		delete(r.sessions, id)
	}
	r.mu.Unlock()
	for _, s := range drained {
		if s.close() {
			r.metrics.SessionClosed(s.kind.String(), reason)
			r.logger.Info("mcp.session.close", "session_id", s.id, "kind", s.kind.String(), "reason", reason)
		}
	}
}

// sweepIdle closes sessions idle beyond ttl and returns how many.
func (r *sessionRegistry) sweepIdle(ttl time.Duration) int {
	now := time.Now()
	r.mu.Lock()
	expired := make([]*session, 0)
	for id, s := range r.sessions {
		if s.idleFor(now) >= ttl {
			expired = append(expired, s)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()
	for _, s := range expired {
		if s.close() {
			r.metrics.SessionClosed(s.kind.String(), "idle_timeout")
			r.logger.Info("mcp.session.close", "session_id", s.id, "kind", s.kind.String(), "reason", "idle_timeout")
		}
	}
	return len(expired)
}

package mcpserver

import (
	"errors"
	"sync"
	"time"
)

// ErrSessionClosed is returned by session writes after close. In-flight
// writers treat it as a discard signal, never a fault.
var ErrSessionClosed = errors.New("mcp session closed")

type sessionKind int

const (
	kindStreaming sessionKind = iota
	kindRequestResponse
)

func (k sessionKind) String() string {
	switch k {
	case kindStreaming:
		return "streaming"
	case kindRequestResponse:
		return "request_response"
	}
	return "unknown"
}

type sessionState int

const (
	stateUninitialized sessionState = iota
	stateActive
	stateClosed
)

// session is one live MCP session. The mutex serializes dispatch so
// message handling within a session stays FIFO; no ordering is promised
// across sessions. events carries outbound frames for any attached
// stream reader; done closes exactly once when the session closes.
type session struct {
	id        string
	kind      sessionKind
	createdAt time.Time

	dispatchMu sync.Mutex

	mu           sync.Mutex
	state        sessionState
	lastActivity time.Time

	events chan []byte
	done   chan struct{}
}

const sessionEventBuffer = 16

func newSession(id string, kind sessionKind) *session {
	now := time.Now()
	return &session{
		id:           id,
		kind:         kind,
		createdAt:    now,
		lastActivity: now,
		events:       make(chan []byte, sessionEventBuffer),
		done:         make(chan struct{}),
	}
}

// touch records activity for idle sweeping.
func (s *session) touch() {
	s.mu.Lock()
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *session) markActive() {
	s.mu.Lock()
	if s.state == stateUninitialized {
		s.state = stateActive
	}
	s.lastActivity = time.Now()
	s.mu.Unlock()
}

func (s *session) isClosed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state == stateClosed
}

func (s *session) idleFor(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastActivity)
}

// close transitions the session to its terminal state. Idempotent and
// safe concurrently with in-flight sends.
func (s *session) close() bool {
	s.mu.Lock()
	if s.state == stateClosed {
		s.mu.Unlock()
		return false
	}
	s.state = stateClosed
	close(s.done)
	s.mu.Unlock()
	return true
}

// send queues one outbound frame for the attached stream reader. After
// close it returns ErrSessionClosed without blocking.
func (s *session) send(frame []byte) error {
	select {
	case <-s.done:
		return ErrSessionClosed
	default:
	}
	select {
	case s.events <- frame:
		return nil
	case <-s.done:
		return ErrSessionClosed
	}
}

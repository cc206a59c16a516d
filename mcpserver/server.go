// Package mcpserver implements the multi-transport MCP session layer in
// front of the ClickUp retrieval facade. It owns session lifecycle for
// both transport shapes (SSE streaming channels and streamable HTTP
// request/response), the REST aliases, and the path recovery middleware
// that keeps rewriting proxies from breaking tool traffic.
package mcpserver

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/clickup"
	"github.com/WayneSimpson/clickup-mcp-server/internal/metrics"
	"github.com/WayneSimpson/clickup-mcp-server/internal/retrieval"
	"github.com/WayneSimpson/clickup-mcp-server/internal/rpc"
	"github.com/WayneSimpson/clickup-mcp-server/internal/svcfields"
)

// Config controls MCP server runtime behavior.
type Config struct {
	Listen             string
	ServerName         string
	ServerVersion      string
	MCPPath            string
	ClickUpAPIToken    string
	ClickUpTeamID      string
	ClickUpBaseURL     string
	ClickUpHTTPTimeout time.Duration
	SessionIdleTimeout time.Duration
	ShutdownTimeout    time.Duration
	EnableHTTPTracing  bool
}

// Server is the MCP service contract.
type Server interface {
	Run(context.Context) error
}

// NewServerRequest wraps constructor inputs.
type NewServerRequest struct {
	Config Config
	Logger pslog.Logger
}

type server struct {
	cfg          Config
	logger       pslog.Logger
	lifecycleLog pslog.Logger
	transportLog pslog.Logger
	sseLog       pslog.Logger
	restLog      pslog.Logger

	metrics    *metrics.Set
	registry   *sessionRegistry
	dispatcher *rpc.Dispatcher
	facade     *retrieval.Facade

	backendConfigured bool
	startedAt         time.Time
	handler           http.Handler
	httpServer        *http.Server
}

func applyDefaults(cfg *Config) {
	if cfg.Listen == "" {
		cfg.Listen = ":8787"
	}
	if cfg.ServerName == "" {
		cfg.ServerName = "clickup-mcp-server"
	}
	if cfg.ServerVersion == "" {
		cfg.ServerVersion = "dev"
	}
	if cfg.MCPPath == "" {
		cfg.MCPPath = "/mcp"
	}
	if cfg.ClickUpHTTPTimeout <= 0 {
		cfg.ClickUpHTTPTimeout = 30 * time.Second
	}
	if cfg.SessionIdleTimeout <= 0 {
		cfg.SessionIdleTimeout = 30 * time.Minute
	}
	if cfg.ShutdownTimeout <= 0 {
		cfg.ShutdownTimeout = 10 * time.Second
	}
}

func validateConfig(cfg Config) error {
	if !strings.HasPrefix(cfg.MCPPath, "/") {
		return fmt.Errorf("mcp path must start with /: %q", cfg.MCPPath)
	}
	if cfg.ClickUpAPIToken != "" && cfg.ClickUpTeamID == "" {
		return errors.New("clickup team id required when an api token is configured")
	}
	return nil
}

// errBackendNotConfigured is served by the placeholder backend when no
// API token is present; retrieval degrades to catalog results.
var errBackendNotConfigured = errors.New("clickup backend not configured")

type unconfiguredBackend struct{}

func (unconfiguredBackend) GetTask(context.Context, string) (*clickup.Task, error) {
	return nil, errBackendNotConfigured
}

func (unconfiguredBackend) ListTaskSummaries(context.Context, clickup.FilterOptions) ([]clickup.Task, error) {
	return nil, errBackendNotConfigured
}

// NewServer constructs the MCP service.
func NewServer(req NewServerRequest) (Server, error) {
	s, err := newServer(req)
	if err != nil {
		return nil, err
	}
	return s, nil
}

func newServer(req NewServerRequest) (*server, error) {
	cfg := req.Config
	applyDefaults(&cfg)
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	logger := req.Logger
	if logger == nil {
		logger = pslog.NewStructured(os.Stderr).With("app", cfg.ServerName)
	}

	s := &server{
		cfg:          cfg,
		logger:       logger,
		lifecycleLog: svcfields.WithSubsystem(logger, "server.lifecycle"),
		transportLog: svcfields.WithSubsystem(logger, "mcp.transport.http"),
		sseLog:       svcfields.WithSubsystem(logger, "mcp.transport.sse"),
		restLog:      svcfields.WithSubsystem(logger, "rest"),
		metrics:      metrics.NewSet(),
		startedAt:    time.Now(),
	}
	s.registry = newSessionRegistry(svcfields.WithSubsystem(logger, "mcp.sessions"), s.metrics)

	var backend retrieval.Backend
	if cfg.ClickUpAPIToken != "" {
		client, err := clickup.New(clickup.Config{
			BaseURL:     cfg.ClickUpBaseURL,
			APIToken:    cfg.ClickUpAPIToken,
			TeamID:      cfg.ClickUpTeamID,
			HTTPTimeout: cfg.ClickUpHTTPTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, err
		}
		backend = client
		s.backendConfigured = true
	} else {
		backend = unconfiguredBackend{}
		s.lifecycleLog.Warn("clickup.backend.unconfigured",
			"detail", "no api token; search and fetch serve catalog documents only")
	}
	s.facade = retrieval.New(backend, logger, s.metrics)

	s.dispatcher = rpc.NewDispatcher(cfg.ServerName, cfg.ServerVersion, logger)
	s.registerTools()

	s.handler = s.buildHandler()
	return s, nil
}

func (s *server) buildHandler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle(s.cfg.MCPPath, s.wrap("mcp", s.handleMCP))
	mux.Handle("/sse", s.wrap("sse", s.handleSSE))
	mux.Handle("/messages", s.wrap("sse.messages", s.handleMessages))

	searchHandler := s.wrap("rest.search", s.handleRESTSearch)
	mux.Handle("/search", searchHandler)
	mux.Handle("/mcp/search", searchHandler)
	mux.Handle("/chatgpt/search", searchHandler)

	fetchHandler := s.wrap("rest.fetch", s.handleRESTFetch)
	mux.Handle("/fetch", fetchHandler)
	mux.Handle("/mcp/fetch", fetchHandler)
	mux.Handle("/chatgpt/fetch", fetchHandler)

	healthHandler := s.wrap("health", s.handleHealth)
	mux.Handle("/health", healthHandler)
	mux.Handle("/chatgpt/health", healthHandler)

	mux.Handle("/openapi.json", s.wrap("openapi", s.handleOpenAPI))
	mux.Handle("/metrics", s.metrics.Handler())

	var handler http.Handler = mux
	handler = s.withPathRecovery(handler)
	handler = withCORS(handler)
	if s.cfg.EnableHTTPTracing {
		handler = otelhttp.NewHandler(handler, "clickup-mcp.http",
			otelhttp.WithMessageEvents(otelhttp.ReadEvents, otelhttp.WriteEvents))
	}
	return handler
}

// Run serves until ctx is canceled or the listener fails. Cancellation
// closes every live session before the HTTP server drains.
func (s *server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Listen)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Listen, err)
	}
	s.httpServer = &http.Server{
		Handler:           s.handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	sweepCtx, stopSweeper := context.WithCancel(ctx)
	defer stopSweeper()
	go s.runIdleSweeper(sweepCtx)

	s.lifecycleLog.Info("server.start",
		"listen", ln.Addr().String(),
		"mcp_path", s.cfg.MCPPath,
		"backend_configured", s.backendConfigured,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case <-ctx.Done():
		s.lifecycleLog.Info("server.shutdown.begin", "reason", ctx.Err())
		s.registry.closeAll("shutdown")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ShutdownTimeout)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
			<-errCh
			return err
		}
		if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		s.lifecycleLog.Info("server.shutdown.complete")
		return nil
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *server) runIdleSweeper(ctx context.Context) {
	interval := s.cfg.SessionIdleTimeout / 4
	if interval < time.Second {
		interval = time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := s.registry.sweepIdle(s.cfg.SessionIdleTimeout); n > 0 {
				s.lifecycleLog.Debug("mcp.sessions.swept", "count", n)
			}
		}
	}
}

// Package retrieval implements the backend-agnostic search/fetch contract
// on top of the ClickUp store. Search never propagates backend failures:
// a layered chain of strategies guarantees a populated, explainable result
// set wherever possible, falling back to the built-in capability catalog.
package retrieval

import (
	"context"

	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/clickup"
	"github.com/WayneSimpson/clickup-mcp-server/internal/metrics"
	"github.com/WayneSimpson/clickup-mcp-server/internal/svcfields"
)

// DefaultLimit is the search result cap when the caller does not supply one.
const DefaultLimit = 10

// MaxLimit bounds the search result cap.
const MaxLimit = 50

// Backend is the opaque domain store consumed by the facade.
type Backend interface {
	GetTask(ctx context.Context, id string) (*clickup.Task, error)
	ListTaskSummaries(ctx context.Context, opts clickup.FilterOptions) ([]clickup.Task, error)
}

// Facade serves search and fetch. It owns no persistent state; every call
// reads the immutable catalog and consults the backend.
type Facade struct {
	backend    Backend
	logger     pslog.Logger
	metrics    *metrics.Set
	strategies []searchStrategy
}

// New constructs a Facade. metricsSet may be nil.
func New(backend Backend, logger pslog.Logger, metricsSet *metrics.Set) *Facade {
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	f := &Facade{
		backend: backend,
		logger:  svcfields.WithSubsystem(logger, "retrieval"),
		metrics: metricsSet,
	}
	f.strategies = []searchStrategy{
		{name: "catalog_browse", run: f.catalogForEmptyQuery},
		{name: "ranked_match", run: f.rankedBackendMatches},
		{name: "recency_blend", run: f.recencyFallback},
		{name: "degraded_catalog", run: f.degradedCatalog},
		{name: "catalog_tail", run: f.catalogTail},
	}
	return f
}

// ClampLimit maps an arbitrary limit request into [1, MaxLimit], applying
// DefaultLimit when the caller supplied none.
func ClampLimit(limit int) int {
	switch {
	case limit == 0:
		return DefaultLimit
	case limit < 1:
		return 1
	case limit > MaxLimit:
		return MaxLimit
	}
	return limit
}

package retrieval

import (
	"context"
	"sort"
	"strings"

	"github.com/WayneSimpson/clickup-mcp-server/api"
	"github.com/WayneSimpson/clickup-mcp-server/internal/catalog"
	"github.com/WayneSimpson/clickup-mcp-server/internal/clickup"
	"github.com/WayneSimpson/clickup-mcp-server/internal/match"
)

const snippetMaxLength = 200

// degradedNoticeID identifies the explanatory leading item served when the
// backend is unavailable.
const degradedNoticeID = "status:backend-unavailable"

// searchInput is the shared state the strategy chain operates on. The
// backend listing is fetched once per call, before the chain runs.
type searchInput struct {
	query      string
	limit      int
	summaries  []clickup.Task
	backendErr error
}

// searchStrategy is one tier of the fallback chain. Returning an empty
// slice passes control to the next tier; the first non-empty result wins.
type searchStrategy struct {
	name string
	run  func(ctx context.Context, in *searchInput) []api.SearchResultItem
}

// Search ranks workspace tasks against query. The result is always a
// well-formed response; backend failures degrade to catalog-sourced
// results instead of erroring.
func (f *Facade) Search(ctx context.Context, query string, limit int) api.SearchResponse {
	in := &searchInput{
		query: strings.TrimSpace(query),
		limit: ClampLimit(limit),
	}
	if in.query != "" {
		summaries, err := f.backend.ListTaskSummaries(ctx, clickup.FilterOptions{
			IncludeClosed: true,
			Subtasks:      true,
			OrderBy:       "updated",
			Reverse:       true,
		})
		in.summaries = summaries
		in.backendErr = err
		if err != nil {
			f.logger.Warn("retrieval.search.backend_unavailable", "error", err)
		}
	}

	for _, strategy := range f.strategies {
		results := strategy.run(ctx, in)
		if len(results) == 0 {
			continue
		}
		f.metrics.SearchServed(strategy.name)
		f.logger.Debug("retrieval.search.served",
			"tier", strategy.name,
			"query", in.query,
			"limit", in.limit,
			"results", len(results),
		)
		return buildSearchResponse(results)
	}

	f.metrics.SearchServed("empty")
	return buildSearchResponse(nil)
}

// catalogForEmptyQuery serves the catalog head for empty queries so an
// agent probing the connector always sees its capabilities.
func (f *Facade) catalogForEmptyQuery(_ context.Context, in *searchInput) []api.SearchResultItem {
	if in.query != "" {
		return nil
	}
	return catalogHead(in.limit)
}

// rankedBackendMatches scores every summary title against the query and
// returns the matches ordered by score, recency breaking ties.
func (f *Facade) rankedBackendMatches(_ context.Context, in *searchInput) []api.SearchResultItem {
	if in.query == "" || in.backendErr != nil {
		return nil
	}
	type scored struct {
		task   clickup.Task
		result match.Result
	}
	matches := make([]scored, 0, len(in.summaries))
	for _, task := range in.summaries {
		res := match.Match(task.Name, in.query)
		if !res.IsMatch {
			continue
		}
		matches = append(matches, scored{task: task, result: res})
	}
	if len(matches) == 0 {
		return nil
	}
	sort.SliceStable(matches, func(i, j int) bool {
		if matches[i].result.Score != matches[j].result.Score {
			return matches[i].result.Score > matches[j].result.Score
		}
		return matches[i].task.UpdatedAt().After(matches[j].task.UpdatedAt())
	})
	if len(matches) > in.limit {
		matches = matches[:in.limit]
	}
	items := make([]api.SearchResultItem, 0, len(matches))
	for _, m := range matches {
		items = append(items, taskItem(m.task, m.result.Reason))
	}
	return items
}

// recencyFallback serves the most recently updated tasks when nothing
// matched lexically, blended with catalog entries that relate to the
// query. Duplicate ids across the two sources are filtered.
func (f *Facade) recencyFallback(_ context.Context, in *searchInput) []api.SearchResultItem {
	if in.query == "" || in.backendErr != nil {
		return nil
	}
	recent := make([]clickup.Task, len(in.summaries))
	copy(recent, in.summaries)
	sort.SliceStable(recent, func(i, j int) bool {
		return recent[i].UpdatedAt().After(recent[j].UpdatedAt())
	})
	if len(recent) > in.limit {
		recent = recent[:in.limit]
	}

	seen := make(map[string]struct{}, in.limit)
	items := make([]api.SearchResultItem, 0, in.limit)
	for _, task := range recent {
		if _, dup := seen[task.ID]; dup {
			continue
		}
		seen[task.ID] = struct{}{}
		items = append(items, taskItem(task, "recent activity"))
	}
	for _, entry := range catalog.Entries() {
		if len(items) >= in.limit {
			break
		}
		if !catalog.MatchesQuery(entry, in.query) {
			continue
		}
		if _, dup := seen[entry.ID]; dup {
			continue
		}
		seen[entry.ID] = struct{}{}
		items = append(items, catalogItem(entry))
	}
	return items
}

// degradedCatalog answers when the backend call failed: an explanatory
// leading item followed by catalog entries relating to the query.
func (f *Facade) degradedCatalog(_ context.Context, in *searchInput) []api.SearchResultItem {
	if in.backendErr == nil {
		return nil
	}
	items := []api.SearchResultItem{degradedNotice()}
	for _, entry := range catalog.Entries() {
		if len(items) >= in.limit {
			break
		}
		if !catalog.MatchesQuery(entry, in.query) {
			continue
		}
		items = append(items, catalogItem(entry))
	}
	return items
}

// catalogTail is the terminal tier: with a healthy but empty backend and
// no catalog overlap, serve the catalog head rather than nothing at all.
func (f *Facade) catalogTail(_ context.Context, in *searchInput) []api.SearchResultItem {
	return catalogHead(in.limit)
}

func catalogHead(limit int) []api.SearchResultItem {
	entries := catalog.Entries()
	if len(entries) > limit {
		entries = entries[:limit]
	}
	items := make([]api.SearchResultItem, 0, len(entries))
	for _, entry := range entries {
		items = append(items, catalogItem(entry))
	}
	return items
}

func buildSearchResponse(items []api.SearchResultItem) api.SearchResponse {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	if items == nil {
		items = []api.SearchResultItem{}
	}
	return api.SearchResponse{
		IDs:       ids,
		ObjectIDs: append([]string(nil), ids...),
		Results:   items,
	}
}

func taskItem(task clickup.Task, reason string) api.SearchResultItem {
	metadata := map[string]string{
		"source":       "clickup",
		"match_reason": reason,
	}
	if status := strings.TrimSpace(task.Status.Status); status != "" {
		metadata["status"] = status
	}
	return api.SearchResultItem{
		ID:       task.ID,
		Title:    task.Name,
		Text:     task.Name,
		Snippet:  snippet(task.BodyText()),
		URL:      task.URL,
		Metadata: metadata,
	}
}

func catalogItem(entry catalog.Entry) api.SearchResultItem {
	return api.SearchResultItem{
		ID:      entry.ID,
		Title:   entry.Title,
		Text:    entry.Description,
		Snippet: entry.Title,
		URL:     entry.ReferenceURL,
		Metadata: map[string]string{
			"source": "catalog",
		},
	}
}

func degradedNotice() api.SearchResultItem {
	return api.SearchResultItem{
		ID:    degradedNoticeID,
		Title: "ClickUp backend unavailable",
		Text:  "The ClickUp API could not be reached; showing the connector's built-in capability documents instead of live tasks. Retry shortly for live results.",
		Metadata: map[string]string{
			"source": "status",
		},
	}
}

func snippet(body string) string {
	body = strings.TrimSpace(body)
	if len(body) <= snippetMaxLength {
		return body
	}
	cut := body[:snippetMaxLength]
	if idx := strings.LastIndexByte(cut, ' '); idx > 0 {
		cut = cut[:idx]
	}
	return cut + "…"
}

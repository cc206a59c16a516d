// Package catalog holds the built-in set of capability documents served
// when the live backend yields nothing. The catalog guarantees that search
// never returns an empty result set while the backend is empty or
// unreachable, and that the connector can describe its own capabilities.
package catalog

import (
	"strings"

	"github.com/WayneSimpson/clickup-mcp-server/internal/match"
)

// IDPrefix is the identifier namespace for catalog entries.
const IDPrefix = "tool:"

// Entry is one immutable capability document.
type Entry struct {
	// ID has the form "tool:<name>".
	ID string
	// Name is the short machine name of the capability.
	Name string
	// Title is the human-readable headline.
	Title string
	// Description explains what the capability does.
	Description string
	// ReferenceURL points at the relevant upstream documentation.
	ReferenceURL string
}

// entries is loaded once at init and read-only thereafter.
var entries = []Entry{
	{
		ID:           IDPrefix + "search",
		Name:         "search",
		Title:        "Search ClickUp tasks",
		Description:  "Keyword search across task names in the connected ClickUp workspace. Returns ranked, fetchable task identifiers. Accepts a free-text query and an optional result limit between 1 and 50.",
		ReferenceURL: "https://clickup.com/api/clickupreference/operation/GetFilteredTeamTasks/",
	},
	{
		ID:           IDPrefix + "fetch",
		Name:         "fetch",
		Title:        "Fetch a ClickUp task by id",
		Description:  "Retrieves the full document for a task identifier returned by search, including description, status, location within the workspace and a canonical URL.",
		ReferenceURL: "https://clickup.com/api/clickupreference/operation/GetTask/",
	},
	{
		ID:           IDPrefix + "get-task",
		Name:         "get-task",
		Title:        "Task detail retrieval",
		Description:  "Tasks carry a name, rich-text description, status, assignees, due dates and a canonical URL. Fetch a task id to read all of it.",
		ReferenceURL: "https://clickup.com/api/clickupreference/operation/GetTask/",
	},
	{
		ID:           IDPrefix + "list-tasks",
		Name:         "list-tasks",
		Title:        "Workspace task listing",
		Description:  "The connector lists tasks across the whole workspace, including closed tasks and subtasks, ordered by most recent update. Search uses this listing as its candidate pool.",
		ReferenceURL: "https://clickup.com/api/clickupreference/operation/GetFilteredTeamTasks/",
	},
	{
		ID:           IDPrefix + "list-lists",
		Name:         "list-lists",
		Title:        "Lists and folders",
		Description:  "ClickUp organizes tasks into lists, folders and spaces. Task documents include their location in this hierarchy so results can be placed in context.",
		ReferenceURL: "https://clickup.com/api/clickupreference/operation/GetLists/",
	},
	{
		ID:           IDPrefix + "workspace",
		Name:         "workspace",
		Title:        "Workspace overview",
		Description:  "The connector is bound to a single ClickUp workspace (team). All search and fetch operations are scoped to that workspace.",
		ReferenceURL: "https://clickup.com/api/clickupreference/operation/GetAuthorizedTeams/",
	},
}

// Entries returns the catalog in declaration order. The slice is shared;
// callers must not mutate it.
func Entries() []Entry {
	return entries
}

// Size reports how many entries the catalog carries.
func Size() int {
	return len(entries)
}

// IsCatalogID reports whether id has the catalog identifier shape.
func IsCatalogID(id string) bool {
	return strings.HasPrefix(id, IDPrefix)
}

// Lookup resolves a catalog identifier.
func Lookup(id string) (Entry, bool) {
	for _, e := range entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// MatchesQuery reports whether e textually relates to query. This is a
// lenient token-overlap check, deliberately looser than the ranking policy
// in package match: a single overlapping token (partial containment in
// either direction) is enough.
func MatchesQuery(e Entry, query string) bool {
	queryTokens := match.Tokenize(query)
	if len(queryTokens) == 0 {
		return false
	}
	haystack := match.Tokenize(e.Name + " " + e.Title + " " + e.Description)
	for _, qt := range queryTokens {
		for _, ht := range haystack {
			if strings.Contains(ht, qt) || strings.Contains(qt, ht) {
				return true
			}
		}
	}
	return false
}

package retrieval

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/WayneSimpson/clickup-mcp-server/api"
	"github.com/WayneSimpson/clickup-mcp-server/internal/catalog"
	"github.com/WayneSimpson/clickup-mcp-server/internal/clickup"
)

// FetchStatus tags a fetch outcome.
type FetchStatus int

const (
	// FetchOK means Document is fully populated.
	FetchOK FetchStatus = iota
	// FetchNotFound means the id resolved to nothing.
	FetchNotFound
	// FetchBackendError means the domain store call failed.
	FetchBackendError
)

// FetchOutcome is the tagged result of a fetch call. Document is only
// meaningful when Status is FetchOK; Reason explains the other two tags.
type FetchOutcome struct {
	Status   FetchStatus
	Document api.FetchDocument
	Reason   string
}

// Fetch resolves id to a document. Catalog-shaped ids are served from the
// immutable catalog without touching the backend; everything else is a
// backend task id.
func (f *Facade) Fetch(ctx context.Context, id string) FetchOutcome {
	id = strings.TrimSpace(id)
	if id == "" {
		f.metrics.FetchServed("not_found")
		return FetchOutcome{Status: FetchNotFound, Reason: "id is required"}
	}

	if catalog.IsCatalogID(id) {
		entry, ok := catalog.Lookup(id)
		if !ok {
			f.metrics.FetchServed("not_found")
			return FetchOutcome{Status: FetchNotFound, Reason: "unknown catalog document: " + id}
		}
		f.metrics.FetchServed("ok")
		return FetchOutcome{Status: FetchOK, Document: catalogDocument(entry)}
	}

	task, err := f.backend.GetTask(ctx, id)
	if err != nil {
		if clickup.IsNotFound(err) {
			f.metrics.FetchServed("not_found")
			return FetchOutcome{Status: FetchNotFound, Reason: "task not found: " + id}
		}
		f.logger.Warn("retrieval.fetch.backend_failure", "id", id, "error", err)
		f.metrics.FetchServed("backend_error")
		return FetchOutcome{Status: FetchBackendError, Reason: err.Error()}
	}
	f.metrics.FetchServed("ok")
	return FetchOutcome{Status: FetchOK, Document: taskDocument(id, task)}
}

func catalogDocument(entry catalog.Entry) api.FetchDocument {
	lines := []string{entry.Description}
	if entry.ReferenceURL != "" {
		lines = append(lines, "Reference: "+entry.ReferenceURL)
	}
	return api.FetchDocument{
		ID:    entry.ID,
		Title: entry.Title,
		Text:  strings.Join(lines, "\n"),
		URL:   entry.ReferenceURL,
		Metadata: map[string]string{
			"source": "catalog",
			"name":   entry.Name,
		},
	}
}

// taskDocument assembles the fetch document for a backend task: body,
// status line, location line and canonical URL, one per line, empty lines
// omitted.
func taskDocument(id string, task *clickup.Task) api.FetchDocument {
	status := strings.TrimSpace(task.Status.Status)
	location := task.Location()

	lines := make([]string, 0, 4)
	if body := task.BodyText(); body != "" {
		lines = append(lines, body)
	}
	if status != "" {
		lines = append(lines, "Status: "+status)
	}
	if location != "" {
		lines = append(lines, "Location: "+location)
	}
	if task.URL != "" {
		lines = append(lines, task.URL)
	}

	metadata := map[string]string{}
	if status != "" {
		metadata["status"] = status
	}
	if location != "" {
		metadata["location"] = location
	}

	raw, err := json.Marshal(task)
	if err != nil {
		raw = nil
	}
	return api.FetchDocument{
		ID:       id,
		Title:    task.Name,
		Text:     strings.Join(lines, "\n"),
		URL:      task.URL,
		Metadata: metadata,
		Raw:      raw,
	}
}

package clickup

import (
	"strconv"
	"strings"
	"time"
)

// Task is a ClickUp task record. Only the fields the connector reads are
// declared; the raw JSON is preserved separately by the retrieval facade.
type Task struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	TextContent string     `json:"text_content,omitempty"`
	Status      TaskStatus `json:"status"`
	// DateUpdated is a millisecond epoch encoded as a string by ClickUp.
	DateUpdated string     `json:"date_updated,omitempty"`
	DateCreated string     `json:"date_created,omitempty"`
	URL         string     `json:"url,omitempty"`
	List        *Container `json:"list,omitempty"`
	Folder      *Container `json:"folder,omitempty"`
	Space       *Container `json:"space,omitempty"`
}

// TaskStatus is the status object attached to a task.
type TaskStatus struct {
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
}

// Container is a list, folder or space reference.
type Container struct {
	ID   string `json:"id"`
	Name string `json:"name,omitempty"`
}

// UpdatedAt parses DateUpdated; the zero time when absent or malformed.
func (t Task) UpdatedAt() time.Time {
	return parseMillis(t.DateUpdated)
}

// BodyText returns the task body, preferring the plain-text rendering over
// the markdown description.
func (t Task) BodyText() string {
	if body := strings.TrimSpace(t.TextContent); body != "" {
		return body
	}
	return strings.TrimSpace(t.Description)
}

// Location renders the task's position in the workspace hierarchy, e.g.
// "Space / Folder / List". Unnamed levels are skipped.
func (t Task) Location() string {
	parts := make([]string, 0, 3)
	for _, c := range []*Container{t.Space, t.Folder, t.List} {
		if c == nil {
			continue
		}
		if name := strings.TrimSpace(c.Name); name != "" {
			parts = append(parts, name)
		}
	}
	return strings.Join(parts, " / ")
}

func parseMillis(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	millis, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(millis)
}

package mcpserver

import (
	"context"
	"encoding/json"

	"github.com/WayneSimpson/clickup-mcp-server/internal/retrieval"
	"github.com/WayneSimpson/clickup-mcp-server/internal/rpc"
)

func (s *server) registerTools() {
	s.dispatcher.RegisterTool(rpc.Tool{
		Name:        "search",
		Description: "Search ClickUp tasks by keyword. Returns ranked results with ids usable with fetch. An empty query lists this connector's capabilities.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"query": map[string]any{
					"type":        "string",
					"description": "Keywords to match against task names.",
				},
				"limit": map[string]any{
					"type":        "integer",
					"description": "Maximum results to return (1-50, default 10).",
				},
			},
			"required": []string{"query"},
		},
	}, s.searchTool)

	s.dispatcher.RegisterTool(rpc.Tool{
		Name:        "fetch",
		Description: "Fetch the full document for an id returned by search.",
		InputSchema: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"id": map[string]any{
					"type":        "string",
					"description": "Task id or tool:<name> catalog id.",
				},
			},
			"required": []string{"id"},
		},
	}, s.fetchTool)
}

func (s *server) searchTool(ctx context.Context, arguments json.RawMessage) (*rpc.ToolResult, error) {
	var in struct {
		Query string `json:"query"`
		Limit int    `json:"limit"`
	}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &in); err != nil {
			return rpc.ErrorResult("invalid arguments: " + err.Error()), nil
		}
	}
	resp := s.facade.Search(ctx, in.Query, in.Limit)
	payload, err := json.Marshal(resp)
	if err != nil {
		return nil, err
	}
	result := rpc.TextResult(string(payload))
	result.StructuredContent = resp
	return result, nil
}

func (s *server) fetchTool(ctx context.Context, arguments json.RawMessage) (*rpc.ToolResult, error) {
	var in struct {
		ID string `json:"id"`
	}
	if len(arguments) > 0 {
		if err := json.Unmarshal(arguments, &in); err != nil {
			return rpc.ErrorResult("invalid arguments: " + err.Error()), nil
		}
	}
	outcome := s.facade.Fetch(ctx, in.ID)
	switch outcome.Status {
	case retrieval.FetchOK:
		payload, err := json.Marshal(outcome.Document)
		if err != nil {
			return nil, err
		}
		result := rpc.TextResult(string(payload))
		result.StructuredContent = outcome.Document
		return result, nil
	case retrieval.FetchNotFound:
		return rpc.ErrorResult("not found: " + outcome.Reason), nil
	default:
		return rpc.ErrorResult("backend error: " + outcome.Reason), nil
	}
}

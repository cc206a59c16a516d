// Package clickup is a thin client for the ClickUp REST API v2. The
// retrieval facade consumes it as an opaque service: fetch one task by id,
// or list task summaries for a whole workspace.
package clickup

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"pkt.systems/pslog"

	"github.com/WayneSimpson/clickup-mcp-server/internal/svcfields"
)

// DefaultBaseURL is the public ClickUp API endpoint.
const DefaultBaseURL = "https://api.clickup.com/api/v2"

// DefaultHTTPTimeout bounds individual backend calls.
const DefaultHTTPTimeout = 30 * time.Second

const maxErrorBodyBytes = 64 << 10

// Config carries client construction inputs.
type Config struct {
	// BaseURL overrides the API endpoint (tests point it at a fake).
	BaseURL string
	// APIToken is the personal or OAuth token sent as Authorization.
	APIToken string
	// TeamID scopes workspace-wide task listings.
	TeamID string
	// HTTPTimeout bounds each request; DefaultHTTPTimeout when zero.
	HTTPTimeout time.Duration
	// Logger receives request/failure events; a no-op logger when nil.
	Logger pslog.Logger
}

// Client talks to the ClickUp API.
type Client struct {
	baseURL    string
	apiToken   string
	teamID     string
	httpClient *http.Client
	logger     pslog.Logger
}

// New validates cfg and constructs a Client.
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.APIToken) == "" {
		return nil, fmt.Errorf("clickup: api token required")
	}
	if strings.TrimSpace(cfg.TeamID) == "" {
		return nil, fmt.Errorf("clickup: team id required")
	}
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = DefaultHTTPTimeout
	}
	logger := cfg.Logger
	if logger == nil {
		logger = pslog.NoopLogger()
	}
	return &Client{
		baseURL:    baseURL,
		apiToken:   strings.TrimSpace(cfg.APIToken),
		teamID:     strings.TrimSpace(cfg.TeamID),
		httpClient: &http.Client{Timeout: timeout},
		logger:     svcfields.WithSubsystem(logger, "clickup.client"),
	}, nil
}

// APIError is a non-2xx response from the ClickUp API.
type APIError struct {
	// Status is the HTTP status code returned by the server.
	Status int
	// Code is the ClickUp error code (ECODE), when available.
	Code string
	// Detail is the human-readable error text, when available.
	Detail string
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("clickup: %s (%s)", e.Code, e.Detail)
	}
	return fmt.Sprintf("clickup: status %d", e.Status)
}

// IsNotFound reports whether err represents a missing resource.
func IsNotFound(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status == http.StatusNotFound
	}
	return false
}

// FilterOptions narrows workspace task listings.
type FilterOptions struct {
	// IncludeClosed also returns closed/archived tasks.
	IncludeClosed bool
	// Subtasks also returns subtasks.
	Subtasks bool
	// OrderBy selects the sort column ("updated", "created", "due_date").
	OrderBy string
	// Reverse inverts the sort (most recent first when OrderBy=updated).
	Reverse bool
	// Page selects the result page; ClickUp pages are 100 tasks.
	Page int
}

// GetTask retrieves one task by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Task, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("clickup: task id required")
	}
	var task Task
	if err := c.getJSON(ctx, "/task/"+url.PathEscape(id), nil, &task); err != nil {
		return nil, err
	}
	return &task, nil
}

// ListTaskSummaries lists tasks across the configured workspace.
func (c *Client) ListTaskSummaries(ctx context.Context, opts FilterOptions) ([]Task, error) {
	params := url.Values{}
	if opts.IncludeClosed {
		params.Set("include_closed", "true")
	}
	if opts.Subtasks {
		params.Set("subtasks", "true")
	}
	if orderBy := strings.TrimSpace(opts.OrderBy); orderBy != "" {
		params.Set("order_by", orderBy)
	}
	if opts.Reverse {
		params.Set("reverse", "true")
	}
	if opts.Page > 0 {
		params.Set("page", strconv.Itoa(opts.Page))
	}
	var payload struct {
		Tasks []Task `json:"tasks"`
	}
	if err := c.getJSON(ctx, "/team/"+url.PathEscape(c.teamID)+"/task", params, &payload); err != nil {
		return nil, err
	}
	return payload.Tasks, nil
}

func (c *Client) getJSON(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("clickup: build request: %w", err)
	}
	req.Header.Set("Authorization", c.apiToken)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Warn("clickup.request.transport_failure", "path", path, "error", err)
		return fmt.Errorf("clickup: %s: %w", path, err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, resp.Body)
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeAPIError(resp)
		c.logger.Warn("clickup.request.failure",
			"path", path,
			"status", resp.StatusCode,
			"code", apiErr.Code,
			"elapsed", time.Since(start),
		)
		return apiErr
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("clickup: decode %s response: %w", path, err)
	}
	c.logger.Debug("clickup.request.ok", "path", path, "elapsed", time.Since(start))
	return nil
}

func decodeAPIError(resp *http.Response) *APIError {
	apiErr := &APIError{Status: resp.StatusCode}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
	if err != nil || len(body) == 0 {
		return apiErr
	}
	var envelope struct {
		Err   string `json:"err"`
		ECode string `json:"ECODE"`
	}
	if err := json.Unmarshal(body, &envelope); err == nil {
		apiErr.Code = envelope.ECode
		apiErr.Detail = envelope.Err
	}
	return apiErr
}

package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client is the canonmap daemon SDK client.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient creates a new canonmap client.
// endpoint defaults to "http://127.0.0.1:8080" if empty.
func NewClient(endpoint string) *Client {
	if endpoint == "" {
		endpoint = "http://127.0.0.1:8080"
	}
	return &Client{
		endpoint: endpoint,
		http: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Ping checks the health of the daemon.
func (c *Client) Ping(ctx context.Context) (Status, error) {
	var status Status
	if err := c.get(ctx, "/v1/health", &status); err != nil {
		return Status{}, err
	}
	return status, nil
}

// Validate runs the governance rule set against the current graph.
func (c *Client) Validate(ctx context.Context) (ValidationReport, error) {
	var report ValidationReport
	if err := c.post(ctx, "/v1/validate", nil, &report); err != nil {
		return ValidationReport{}, err
	}
	return report, nil
}

// DueTasks fetches the review tasks most in need of attention.
func (c *Client) DueTasks(ctx context.Context) ([]DueTask, error) {
	var tasks []DueTask
	if err := c.get(ctx, "/v1/tasks", &tasks); err != nil {
		return nil, err
	}
	return tasks, nil
}

// Pick asks the daemon which product to work on next.
func (c *Client) Pick(ctx context.Context) (Pick, error) {
	var pick Pick
	if err := c.get(ctx, "/v1/pick", &pick); err != nil {
		return Pick{}, err
	}
	return pick, nil
}

// Routine fetches the current daily and weekly checklist state.
func (c *Client) Routine(ctx context.Context) (RoutineState, error) {
	var state RoutineState
	if err := c.get(ctx, "/v1/routine", &state); err != nil {
		return RoutineState{}, err
	}
	return state, nil
}

// Act applies a checklist mutation and returns the updated state.
func (c *Client) Act(ctx context.Context, action RoutineAction) (RoutineState, error) {
	var state RoutineState
	if err := c.post(ctx, "/v1/routine", action, &state); err != nil {
		return RoutineState{}, err
	}
	return state, nil
}

// Acknowledge records a sign-off on a finding for the current week.
func (c *Client) Acknowledge(ctx context.Context, message, reason string) error {
	body := map[string]string{"message": message, "reason": reason}
	return c.post(ctx, "/v1/acks", body, nil)
}

// Acks fetches the current week's acknowledgements.
func (c *Client) Acks(ctx context.Context) (AcksResponse, error) {
	var resp AcksResponse
	if err := c.get(ctx, "/v1/acks", &resp); err != nil {
		return AcksResponse{}, err
	}
	return resp, nil
}

// CreateNode adds a node to the graph and, when a remote is
// configured, commits it upstream.
func (c *Client) CreateNode(ctx context.Context, req NodeRequest) (*CommitInfo, error) {
	var resp struct {
		Commit *CommitInfo `json:"commit"`
	}
	if err := c.post(ctx, "/v1/nodes", req, &resp); err != nil {
		return nil, err
	}
	return resp.Commit, nil
}

// DeleteNode removes a node and its links from the graph.
func (c *Client) DeleteNode(ctx context.Context, id string) (*CommitInfo, error) {
	req, err := http.NewRequestWithContext(ctx, "DELETE", c.endpoint+"/v1/nodes/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, err
	}
	var resp struct {
		Commit *CommitInfo `json:"commit"`
	}
	if err := c.do(req, &resp); err != nil {
		return nil, err
	}
	return resp.Commit, nil
}

// Export fetches a report in the given format. The raw bytes are
// returned as-is: CSV or JSON depending on format.
func (c *Client) Export(ctx context.Context, reportType, format string) ([]byte, error) {
	u := fmt.Sprintf("%s/v1/reports?type=%s&format=%s",
		c.endpoint, url.QueryEscape(reportType), url.QueryEscape(format))
	req, err := http.NewRequestWithContext(ctx, "GET", u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, path string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.endpoint+path, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) post(ctx context.Context, path string, body, out interface{}) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) do(req *http.Request, out interface{}) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("daemon unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error   string `json:"error"`
			Details string `json:"details"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Error != "" {
			if apiErr.Details != "" {
				return fmt.Errorf("%s: %s", apiErr.Error, apiErr.Details)
			}
			return fmt.Errorf("%s", apiErr.Error)
		}
		return fmt.Errorf("unexpected status: %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

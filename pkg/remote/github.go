// Package remote syncs the graph document to a GitHub repository
// through the contents API. Writes are optimistic: each attempt
// re-fetches the file, reapplies the mutation, and commits against
// the SHA it just saw.
package remote

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/canonmap/canonmap/pkg/graph"
)

// DefaultFilePath is where the graph document lives in the remote
// repository.
const DefaultFilePath = "public/data.json"

const (
	maxRetries = 3
	retryDelay = 500 * time.Millisecond
)

// Client talks to one GitHub repository.
type Client struct {
	owner    string
	repo     string
	token    string
	filePath string
	baseURL  string
	client   *http.Client
}

// NewClient builds a client for owner/repo. An empty filePath means
// DefaultFilePath.
func NewClient(owner, repo, token, filePath string) *Client {
	if filePath == "" {
		filePath = DefaultFilePath
	}
	return &Client{
		owner:    owner,
		repo:     repo,
		token:    token,
		filePath: filePath,
		baseURL:  "https://api.github.com",
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// SetBaseURL overrides the API endpoint, for GitHub Enterprise or
// tests.
func (c *Client) SetBaseURL(u string) { c.baseURL = strings.TrimSuffix(u, "/") }

func (c *Client) newRequest(ctx context.Context, method, url string, body []byte) (*http.Request, error) {
	var r *bytes.Reader
	if body != nil {
		r = bytes.NewReader(body)
	} else {
		r = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, r)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github.v3+json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

// CheckAccess verifies the token can see the repository.
func (c *Client) CheckAccess(ctx context.Context) error {
	req, err := c.newRequest(ctx, "GET", fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo), nil)
	if err != nil {
		return err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		return nil
	case http.StatusUnauthorized:
		return fmt.Errorf("invalid token: check your personal access token")
	case http.StatusNotFound:
		return fmt.Errorf("repository not found: check owner and repo name")
	default:
		return fmt.Errorf("github api error: HTTP %d", resp.StatusCode)
	}
}

// DefaultBranch asks the repository for its default branch. Any
// failure falls back to "main".
func (c *Client) DefaultBranch(ctx context.Context) string {
	req, err := c.newRequest(ctx, "GET", fmt.Sprintf("%s/repos/%s/%s", c.baseURL, c.owner, c.repo), nil)
	if err != nil {
		return "main"
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return "main"
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "main"
	}
	var info struct {
		DefaultBranch string `json:"default_branch"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil || info.DefaultBranch == "" {
		return "main"
	}
	return info.DefaultBranch
}

// File is one fetched contents-API file: decoded bytes plus the SHA a
// conditional write must present.
type File struct {
	Content []byte
	SHA     string
}

// GetFile fetches and decodes the graph document from the repository.
func (c *Client) GetFile(ctx context.Context) (*File, error) {
	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, c.filePath)
	req, err := c.newRequest(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to get %s: HTTP %d", c.filePath, resp.StatusCode)
	}

	var payload struct {
		Content string `json:"content"`
		SHA     string `json:"sha"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode contents response: %w", err)
	}

	// The API wraps base64 content in newlines.
	cleaned := strings.NewReplacer("\n", "", "\r", "").Replace(payload.Content)
	decoded, err := base64.StdEncoding.DecodeString(cleaned)
	if err != nil {
		return nil, fmt.Errorf("failed to decode file content: %w", err)
	}
	return &File{Content: decoded, SHA: payload.SHA}, nil
}

// Commit identifies the commit a successful write produced.
type Commit struct {
	SHA     string `json:"sha"`
	HTMLURL string `json:"html_url"`
}

// PutFile writes content against the given SHA. A stale SHA makes
// GitHub reject the write; the returned error carries the API's
// message so callers can recognize the conflict.
func (c *Client) PutFile(ctx context.Context, branch, message string, content []byte, sha string) (*Commit, error) {
	body, err := json.Marshal(map[string]string{
		"message": message,
		"content": base64.StdEncoding.EncodeToString(content),
		"sha":     sha,
		"branch":  branch,
	})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/repos/%s/%s/contents/%s", c.baseURL, c.owner, c.repo, c.filePath)
	req, err := c.newRequest(ctx, "PUT", url, body)
	if err != nil {
		return nil, err
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusCreated {
		var result struct {
			Commit Commit `json:"commit"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
			return nil, fmt.Errorf("failed to decode commit response: %w", err)
		}
		return &result.Commit, nil
	}

	var apiErr struct {
		Message string `json:"message"`
	}
	_ = json.NewDecoder(resp.Body).Decode(&apiErr)
	if apiErr.Message == "" {
		apiErr.Message = fmt.Sprintf("commit failed: HTTP %d", resp.StatusCode)
	}
	return nil, fmt.Errorf("%s", apiErr.Message)
}

// isSHAConflict matches the contents API's stale-SHA rejection by its
// message text, the only signal the API gives.
func isSHAConflict(err error) bool {
	return err != nil && strings.Contains(err.Error(), "sha")
}

// Mutation rewrites the remote document in place.
type Mutation func(doc *graph.Document)

// CommitWithRetry applies mutate to the latest remote document and
// commits the result. On a SHA conflict it waits briefly and starts
// over from a fresh fetch, up to three attempts; any other error
// returns immediately.
func (c *Client) CommitWithRetry(ctx context.Context, branch, message string, mutate Mutation) (*Commit, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		file, err := c.GetFile(ctx)
		if err != nil {
			return nil, err
		}

		var doc graph.Document
		if err := json.Unmarshal(file.Content, &doc); err != nil {
			return nil, fmt.Errorf("remote document is not valid JSON: %w", err)
		}
		mutate(&doc)

		content, err := graph.MarshalDocument(&doc)
		if err != nil {
			return nil, err
		}

		commit, err := c.PutFile(ctx, branch, message, content, file.SHA)
		if err == nil {
			return commit, nil
		}
		lastErr = err
		if !isSHAConflict(err) || attempt == maxRetries-1 {
			return nil, err
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(retryDelay):
		}
	}
	return nil, lastErr
}

// UpsertNode adds the node to the remote document, or replaces it when
// one with the same id already exists.
func UpsertNode(node *graph.Node) Mutation {
	return func(doc *graph.Document) {
		for i, n := range doc.Nodes {
			if n.ID == node.ID {
				doc.Nodes[i] = node
				return
			}
		}
		doc.Nodes = append(doc.Nodes, node)
	}
}

// RemoveNode drops the node and every link touching it.
func RemoveNode(nodeID string) Mutation {
	return func(doc *graph.Document) {
		nodes := doc.Nodes[:0]
		for _, n := range doc.Nodes {
			if n.ID != nodeID {
				nodes = append(nodes, n)
			}
		}
		doc.Nodes = nodes

		links := doc.Links[:0]
		for _, l := range doc.Links {
			if l.Source != nodeID && l.Target != nodeID {
				links = append(links, l)
			}
		}
		doc.Links = links
	}
}

// AddCommitMessage is the conventional message for a node addition.
func AddCommitMessage(node *graph.Node) string {
	return fmt.Sprintf("Add new %s: %s", node.Type, node.Name)
}

// DeleteCommitMessage is the conventional message for a node removal.
func DeleteCommitMessage(node *graph.Node) string {
	return fmt.Sprintf("Delete %s: %s", node.Type, node.Name)
}

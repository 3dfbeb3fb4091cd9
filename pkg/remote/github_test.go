package remote

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/canonmap/canonmap/pkg/graph"
)

const sampleDoc = `{
  "nodes": [
    {"id": "p1", "type": "CPD", "name": "Billing"}
  ],
  "links": []
}`

// fakeContents is a minimal stand-in for the repository and contents
// endpoints, with optimistic concurrency on the file SHA.
type fakeContents struct {
	content  string
	sha      string
	putCount int
	failPuts int    // reject this many PUTs with a stale-sha message
	failMsg  string // message for rejected PUTs
}

func (f *fakeContents) handler(t *testing.T) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/canon", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"default_branch": "trunk"})
	})
	mux.HandleFunc("/repos/acme/canon/contents/public/data.json", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode(map[string]string{
				// Wrapped base64, the way the API returns it.
				"content": base64.StdEncoding.EncodeToString([]byte(f.content)) + "\n",
				"sha":     f.sha,
			})
		case http.MethodPut:
			f.putCount++
			var body struct {
				Message string `json:"message"`
				Content string `json:"content"`
				SHA     string `json:"sha"`
				Branch  string `json:"branch"`
			}
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				t.Errorf("bad PUT body: %v", err)
			}
			if f.failPuts > 0 {
				f.failPuts--
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"message": f.failMsg})
				return
			}
			if body.SHA != f.sha {
				w.WriteHeader(http.StatusConflict)
				json.NewEncoder(w).Encode(map[string]string{"message": "public/data.json does not match sha"})
				return
			}
			decoded, err := base64.StdEncoding.DecodeString(body.Content)
			if err != nil {
				t.Errorf("content not base64: %v", err)
			}
			f.content = string(decoded)
			f.sha = fmt.Sprintf("sha-%d", f.putCount)
			w.WriteHeader(http.StatusOK)
			json.NewEncoder(w).Encode(map[string]interface{}{
				"commit": map[string]string{"sha": f.sha, "html_url": "https://example.test/" + f.sha},
			})
		default:
			w.WriteHeader(http.StatusMethodNotAllowed)
		}
	})
	return mux
}

func newTestClient(t *testing.T, f *fakeContents) *Client {
	t.Helper()
	srv := httptest.NewServer(f.handler(t))
	t.Cleanup(srv.Close)
	c := NewClient("acme", "canon", "tok", "")
	c.SetBaseURL(srv.URL)
	return c
}

func TestGetFileDecodesWrappedBase64(t *testing.T) {
	f := &fakeContents{content: sampleDoc, sha: "abc123"}
	c := newTestClient(t, f)

	file, err := c.GetFile(context.Background())
	if err != nil {
		t.Fatalf("GetFile: %v", err)
	}
	if string(file.Content) != sampleDoc {
		t.Errorf("content mismatch: %q", file.Content)
	}
	if file.SHA != "abc123" {
		t.Errorf("sha = %q", file.SHA)
	}
}

func TestDefaultBranch(t *testing.T) {
	f := &fakeContents{content: sampleDoc, sha: "abc123"}
	c := newTestClient(t, f)
	if got := c.DefaultBranch(context.Background()); got != "trunk" {
		t.Errorf("branch = %q, want trunk", got)
	}
}

func TestDefaultBranchFallsBackToMain(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)
	c := NewClient("acme", "canon", "tok", "")
	c.SetBaseURL(srv.URL)
	if got := c.DefaultBranch(context.Background()); got != "main" {
		t.Errorf("branch = %q, want main", got)
	}
}

func TestCheckAccessErrors(t *testing.T) {
	cases := []struct {
		status  int
		wantSub string
	}{
		{http.StatusOK, ""},
		{http.StatusUnauthorized, "invalid token"},
		{http.StatusNotFound, "repository not found"},
		{http.StatusForbidden, "HTTP 403"},
	}
	for _, tc := range cases {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(tc.status)
		}))
		c := NewClient("acme", "canon", "tok", "")
		c.SetBaseURL(srv.URL)
		err := c.CheckAccess(context.Background())
		srv.Close()

		if tc.wantSub == "" {
			if err != nil {
				t.Errorf("status %d: unexpected error %v", tc.status, err)
			}
			continue
		}
		if err == nil || !strings.Contains(err.Error(), tc.wantSub) {
			t.Errorf("status %d: err = %v, want substring %q", tc.status, err, tc.wantSub)
		}
	}
}

func TestCommitWithRetryAppliesMutation(t *testing.T) {
	f := &fakeContents{content: sampleDoc, sha: "abc123"}
	c := newTestClient(t, f)

	node := &graph.Node{ID: "c9", Type: graph.NodeCCD, Name: "Metering"}
	commit, err := c.CommitWithRetry(context.Background(), "main", AddCommitMessage(node), UpsertNode(node))
	if err != nil {
		t.Fatalf("CommitWithRetry: %v", err)
	}
	if commit.SHA == "" {
		t.Error("missing commit sha")
	}

	var doc graph.Document
	if err := json.Unmarshal([]byte(f.content), &doc); err != nil {
		t.Fatalf("stored content invalid: %v", err)
	}
	if len(doc.Nodes) != 2 || doc.Nodes[1].ID != "c9" {
		t.Errorf("node not appended: %+v", doc.Nodes)
	}
	if !strings.HasSuffix(f.content, "\n") {
		t.Error("committed document should end with a newline")
	}
}

func TestCommitWithRetryRecoversFromSHAConflict(t *testing.T) {
	f := &fakeContents{
		content:  sampleDoc,
		sha:      "abc123",
		failPuts: 2,
		failMsg:  "public/data.json does not match sha",
	}
	c := newTestClient(t, f)

	_, err := c.CommitWithRetry(context.Background(), "main", "Delete CPD: Billing", RemoveNode("p1"))
	if err != nil {
		t.Fatalf("expected recovery on third attempt, got %v", err)
	}
	if f.putCount != 3 {
		t.Errorf("putCount = %d, want 3", f.putCount)
	}
}

func TestCommitWithRetryGivesUpAfterThreeConflicts(t *testing.T) {
	f := &fakeContents{
		content:  sampleDoc,
		sha:      "abc123",
		failPuts: 5,
		failMsg:  "public/data.json does not match sha",
	}
	c := newTestClient(t, f)

	_, err := c.CommitWithRetry(context.Background(), "main", "msg", RemoveNode("p1"))
	if err == nil {
		t.Fatal("expected failure")
	}
	if f.putCount != 3 {
		t.Errorf("putCount = %d, want exactly 3 attempts", f.putCount)
	}
}

func TestCommitWithRetryDoesNotRetryOtherErrors(t *testing.T) {
	f := &fakeContents{
		content:  sampleDoc,
		sha:      "abc123",
		failPuts: 1,
		failMsg:  "Branch protection rejected this commit",
	}
	c := newTestClient(t, f)

	_, err := c.CommitWithRetry(context.Background(), "main", "msg", RemoveNode("p1"))
	if err == nil || !strings.Contains(err.Error(), "Branch protection") {
		t.Fatalf("err = %v, want the API message verbatim", err)
	}
	if f.putCount != 1 {
		t.Errorf("putCount = %d, non-conflict errors must not retry", f.putCount)
	}
}

func TestRemoveNodeDropsIncidentLinks(t *testing.T) {
	doc := &graph.Document{
		Nodes: []*graph.Node{
			{ID: "a"}, {ID: "b"}, {ID: "c"},
		},
		Links: []graph.Link{
			{Source: "a", Target: "b", Type: graph.LinkUses},
			{Source: "b", Target: "c", Type: graph.LinkUses},
			{Source: "a", Target: "c", Type: graph.LinkInspiredBy},
		},
	}
	RemoveNode("b")(doc)
	if len(doc.Nodes) != 2 {
		t.Errorf("nodes = %+v", doc.Nodes)
	}
	if len(doc.Links) != 1 || doc.Links[0].Source != "a" || doc.Links[0].Target != "c" {
		t.Errorf("links = %+v", doc.Links)
	}
}

func TestUpsertNodeReplacesExisting(t *testing.T) {
	doc := &graph.Document{Nodes: []*graph.Node{{ID: "p1", Name: "Old"}}}
	UpsertNode(&graph.Node{ID: "p1", Name: "New"})(doc)
	if len(doc.Nodes) != 1 || doc.Nodes[0].Name != "New" {
		t.Errorf("nodes = %+v", doc.Nodes)
	}
}

package mcp

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
)

func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/v1/validate", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"errors":[{"message":"Remove \"depends-on\" link between Alpha and Beta. Use \"uses\" for optional relationships instead.","hash":"-curc7r","acknowledged":false}],
			"warnings":[],
			"summary":{"errors":1,"warnings":0,"acknowledgedErrors":0},
			"vacation":{"active":false}
		}`))
	})
	mux.HandleFunc("/v1/tasks", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[
			{"id":"review_p1_reliabilitySLO","text":"Billing: Reliability SLO","ageDays":0,"neverCompleted":true},
			{"id":"review_p1_pricingEconomicModel","text":"Billing: Pricing & Economic Model","ageDays":9,"neverCompleted":false}
		]`))
	})
	mux.HandleFunc("/v1/routine", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{
			"todayKey":"2026-03-11",
			"daily":{"review_p1_reliabilitySLO":true,"review_p1_valuePropositionClarity":true},
			"weekly":{},
			"totalTasks":12,
			"threshold":3
		}`))
	})
	mux.HandleFunc("/v1/pick", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"node":{"id":"cpd-billing","name":"Billing","type":"CPD"},"score":5,"reasons":["customerResearchData=TBD","reliabilitySLO=NONE"]}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestRunValidationTool(t *testing.T) {
	s := NewServer(fakeAPI(t).URL)

	result, err := s.handleRunValidation(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "Errors: 1") {
		t.Errorf("summary missing: %s", text)
	}
	if !strings.Contains(text, `ERROR: Remove "depends-on" link between Alpha and Beta.`) {
		t.Errorf("finding missing: %s", text)
	}
}

func TestListDueTasksTool(t *testing.T) {
	s := NewServer(fakeAPI(t).URL)

	result, err := s.handleListDueTasks(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "Billing: Reliability SLO (never reviewed)") {
		t.Errorf("never-reviewed task missing: %s", text)
	}
	if !strings.Contains(text, "Billing: Pricing & Economic Model (9d old)") {
		t.Errorf("aged task missing: %s", text)
	}
}

func TestPickProductTool(t *testing.T) {
	s := NewServer(fakeAPI(t).URL)

	result, err := s.handlePickProduct(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	text := result.Content[0].(mcp.TextContent).Text
	if !strings.Contains(text, "Work on: Billing (score 5)") {
		t.Errorf("pick missing: %s", text)
	}
	if !strings.Contains(text, "customerResearchData=TBD") {
		t.Errorf("reasons missing: %s", text)
	}
}

func TestCompleteReviewReportsProgress(t *testing.T) {
	s := NewServer(fakeAPI(t).URL)

	req := mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name: "complete_review",
			Arguments: map[string]interface{}{
				"node_id":   "p1",
				"field_key": "reliabilitySLO",
			},
		},
	}
	result, err := s.handleCompleteReview(context.Background(), req)
	if err != nil {
		t.Fatal(err)
	}
	if result.IsError {
		t.Fatalf("unexpected tool error: %+v", result)
	}
	// The action response carries the updated state, so the progress
	// count reflects the completion just made.
	text := result.Content[0].(mcp.TextContent).Text
	if text != "Reviewed. 2 of 3 for today's threshold." {
		t.Errorf("text = %q", text)
	}
}

func TestToolErrorsSurfaceAsResults(t *testing.T) {
	s := NewServer("http://127.0.0.1:1")

	result, err := s.handleRunValidation(context.Background(), mcp.CallToolRequest{})
	if err != nil {
		t.Fatal(err)
	}
	if !result.IsError {
		t.Error("unreachable daemon should produce a tool error result")
	}
}

package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/canonmap/canonmap/pkg/client"
)

// Server adapts canonmap-d to the Model Context Protocol.
type Server struct {
	mcpServer *server.MCPServer
	apiClient *client.Client
}

// NewServer creates a new MCP server instance.
func NewServer(apiURL string) *Server {
	s := &Server{
		mcpServer: server.NewMCPServer(
			"canonmap",
			"1.0.0",
		),
		apiClient: client.NewClient(apiURL),
	}
	s.registerResources()
	s.registerTools()
	s.registerPrompts()
	return s
}

// Serve starts the MCP server on stdio.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcpServer)
}

// --- Resources ---

func (s *Server) registerResources() {
	// canonmap://routine
	s.mcpServer.AddResource(mcp.NewResource(
		"canonmap://routine",
		"Canonmap Routine State",
		mcp.WithResourceDescription("Today's review checklist, the weekly hygiene checklist, and streaks"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadRoutine)

	// canonmap://validation
	s.mcpServer.AddResource(mcp.NewResource(
		"canonmap://validation",
		"Governance Validation Report",
		mcp.WithResourceDescription("Current rule violations and warnings across the product/concept graph"),
		mcp.WithMIMEType("application/json"),
	), s.handleReadValidation)
}

// --- Tools ---

func (s *Server) registerTools() {
	s.mcpServer.AddTool(mcp.NewTool(
		"run_validation",
		mcp.WithDescription("Validate the governance graph against the rule set. Errors block, warnings advise."),
	), s.handleRunValidation)

	s.mcpServer.AddTool(mcp.NewTool(
		"list_due_tasks",
		mcp.WithDescription("List the review tasks most in need of attention, stalest first."),
	), s.handleListDueTasks)

	s.mcpServer.AddTool(mcp.NewTool(
		"pick_product",
		mcp.WithDescription("Pick the product whose status most needs work, with the reasons why."),
	), s.handlePickProduct)

	s.mcpServer.AddTool(mcp.NewTool(
		"acknowledge_finding",
		mcp.WithDescription("Record a sign-off on a validation finding for the current week."),
		mcp.WithString("message", mcp.Required(), mcp.Description("The exact finding message to acknowledge")),
		mcp.WithString("reason", mcp.Required(), mcp.Description("Why the finding is accepted for now")),
	), s.handleAcknowledgeFinding)

	s.mcpServer.AddTool(mcp.NewTool(
		"complete_review",
		mcp.WithDescription("Mark one status field of a node as reviewed today."),
		mcp.WithString("node_id", mcp.Required(), mcp.Description("The node the field belongs to")),
		mcp.WithString("field_key", mcp.Required(), mcp.Description("The status field key that was reviewed")),
	), s.handleCompleteReview)
}

// --- Prompts ---

func (s *Server) registerPrompts() {
	s.mcpServer.AddPrompt(mcp.NewPrompt(
		"canonmap-aware",
		mcp.WithPromptDescription("Provides context about Canonmap concepts (CPDs, CCDs, links, the routine)"),
	), s.handleGetPrompt)
}

// --- Handlers ---

func (s *Server) handleReadRoutine(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	state, err := s.apiClient.Routine(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch routine: %w", err)
	}

	data, err := json.MarshalIndent(state, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal routine: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleReadValidation(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	report, err := s.apiClient.Validate(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch validation report: %w", err)
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      request.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

func (s *Server) handleRunValidation(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report, err := s.apiClient.Validate(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Errors: %d (%d acknowledged), Warnings: %d\n",
		report.Summary.Errors, report.Summary.AcknowledgedErrors, report.Summary.Warnings)
	for _, f := range report.Errors {
		if f.Acknowledged {
			fmt.Fprintf(&b, "ERROR (ack: %s): %s\n", f.Reason, f.Message)
		} else {
			fmt.Fprintf(&b, "ERROR: %s\n", f.Message)
		}
	}
	for _, f := range report.Warnings {
		fmt.Fprintf(&b, "WARN: %s\n", f.Message)
	}
	if report.Vacation.Active {
		b.WriteString("Vacation prep is active.\n")
		for _, gap := range report.Vacation.Gaps {
			fmt.Fprintf(&b, "GAP: %s\n", gap)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handleListDueTasks(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	tasks, err := s.apiClient.DueTasks(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	if len(tasks) == 0 {
		return mcp.NewToolResultText("No review tasks due."), nil
	}
	var b strings.Builder
	for _, task := range tasks {
		if task.NeverCompleted {
			fmt.Fprintf(&b, "%s (never reviewed) [%s]\n", task.Text, task.ID)
		} else {
			fmt.Fprintf(&b, "%s (%dd old) [%s]\n", task.Text, task.AgeDays, task.ID)
		}
	}
	return mcp.NewToolResultText(b.String()), nil
}

func (s *Server) handlePickProduct(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	pick, err := s.apiClient.Pick(ctx)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}

	msg := fmt.Sprintf("Work on: %s (score %d)", pick.Node.Name, pick.Score)
	if len(pick.Reasons) > 0 {
		msg += "\nReasons: " + strings.Join(pick.Reasons, ", ")
	}
	return mcp.NewToolResultText(msg), nil
}

func (s *Server) handleAcknowledgeFinding(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	message := mcp.ParseString(request, "message", "")
	reason := mcp.ParseString(request, "reason", "")
	if message == "" || reason == "" {
		return mcp.NewToolResultError("message and reason are required"), nil
	}

	if err := s.apiClient.Acknowledge(ctx, message, reason); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	return mcp.NewToolResultText("Finding acknowledged for this week."), nil
}

func (s *Server) handleCompleteReview(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	nodeID := mcp.ParseString(request, "node_id", "")
	fieldKey := mcp.ParseString(request, "field_key", "")
	if nodeID == "" || fieldKey == "" {
		return mcp.NewToolResultError("node_id and field_key are required"), nil
	}

	state, err := s.apiClient.Act(ctx, client.RoutineAction{
		Action:   "complete_field",
		NodeID:   nodeID,
		FieldKey: fieldKey,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("API error: %v", err)), nil
	}
	done := 0
	for _, v := range state.Daily {
		if v {
			done++
		}
	}
	return mcp.NewToolResultText(fmt.Sprintf("Reviewed. %d of %d for today's threshold.", done, state.Threshold)), nil
}

func (s *Server) handleGetPrompt(ctx context.Context, request mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	name := request.Params.Name
	if name != "canonmap-aware" {
		return nil, fmt.Errorf("prompt not found: %s", name)
	}

	promptText := `You are interacting with Canonmap, a governance map of products and concepts.

Concepts:
- CPD (Canonical Product Definition): a product with owners, lifecycle, and a status scorecard.
- CCD (Canonical Concept Definition): a concept with a steward and maturity; it is not a product.
- Links: 'uses' and 'inspired-by' are the only allowed relationship types. 'depends-on' is forbidden.
- Routine: a daily review checklist over status fields plus a fixed weekly hygiene checklist.
- Acknowledgement: a weekly sign-off that a known finding is accepted for now, with a reason.

When asked about graph health, use 'run_validation'. When asked what to work on,
use 'pick_product' or 'list_due_tasks'. Record reviews with 'complete_review'.
`

	return mcp.NewGetPromptResult(
		"canonmap-aware",
		[]mcp.PromptMessage{
			mcp.NewPromptMessage(mcp.RoleUser, mcp.NewTextContent(promptText)),
		},
	), nil
}

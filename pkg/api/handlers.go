package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/canonmap/canonmap/pkg/backup"
	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/remote"
	"github.com/canonmap/canonmap/pkg/reports"
	"github.com/canonmap/canonmap/pkg/routine"
	"github.com/canonmap/canonmap/pkg/schedule"
	"github.com/canonmap/canonmap/pkg/template"
	"github.com/canonmap/canonmap/pkg/validate"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_encode_response","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
}

// handleGraph returns the current graph document.
func (s *Server) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	doc := s.graph.AsDocument()
	s.mu.RUnlock()
	writeJSON(w, r, http.StatusOK, doc)
}

// handleValidate runs the rule set. Running it counts as the weekly
// validate item, and every finding comes back annotated with this
// week's acknowledgement state.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	result := validate.Run(g)

	CanonmapValidationRuns.Inc()
	CanonmapValidationFindings.WithLabelValues("error").Set(float64(len(result.Errors)))
	CanonmapValidationFindings.WithLabelValues("warning").Set(float64(len(result.Warnings)))

	if err := s.tracker.MarkValidationRun(); err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_mark_validation_run","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}

	acks, err := s.tracker.WeekAcknowledgements()
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_load_acks","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		acks = nil
	}

	annotate := func(messages []string) []Finding {
		findings := make([]Finding, 0, len(messages))
		for _, m := range messages {
			f := Finding{Message: m, Hash: routine.HashMessage(m)}
			if ack, ok := acks[f.Hash]; ok {
				f.Acknowledged = true
				f.Reason = ack.Reason
			}
			findings = append(findings, f)
		}
		return findings
	}

	resp := ValidateResponse{
		Errors:   annotate(result.Errors),
		Warnings: annotate(result.Warnings),
	}
	resp.Summary.Errors = len(resp.Errors)
	resp.Summary.Warnings = len(resp.Warnings)
	for _, f := range resp.Errors {
		if f.Acknowledged {
			resp.Summary.AcknowledgedErrors++
		}
	}
	resp.Vacation = s.vacationCheck(g)

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) vacationCheck(g *graph.Graph) VacationCheck {
	vc := VacationCheck{Active: routine.VacationCheckActive(s.vacationStart, time.Now())}
	if vc.Active {
		vc.Gaps = routine.HardeningGaps(g)
	}
	return vc
}

// handleTasks returns the most overdue review tasks, or the full task
// set when ?all=1 is given.
func (s *Server) handleTasks(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	if r.URL.Query().Get("all") == "1" {
		writeJSON(w, r, http.StatusOK, schedule.DeriveTasks(g))
		return
	}

	due, err := s.tracker.DueTasks(g)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_rank_tasks","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, due)
}

// handlePick returns the product most in need of attention.
func (s *Server) handlePick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	pick := schedule.PickCPD(g)
	if pick == nil {
		http.Error(w, `{"error":"no_products"}`, http.StatusNotFound)
		return
	}
	writeJSON(w, r, http.StatusOK, pick)
}

// handleRoutine serves the routine dashboard and applies checklist
// actions.
func (s *Server) handleRoutine(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.routineState(w, r)
	case http.MethodPost:
		s.routineAction(w, r)
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

// routineSnapshot assembles the current routine state. Rollover
// detection is left to the caller: only the GET path consumes it, so
// action POSTs cannot swallow a day or week transition the dashboard
// is polling for.
func (s *Server) routineSnapshot() (*RoutineResponse, error) {
	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	daily, err := s.tracker.DailyState()
	if err != nil {
		return nil, err
	}
	weekly, err := s.tracker.WeeklyState()
	if err != nil {
		return nil, err
	}
	due, err := s.tracker.DueTasks(g)
	if err != nil {
		return nil, err
	}

	tasks := schedule.DeriveTasks(g)
	dailyStreak, weeklyStreak := s.tracker.Streaks(g)

	return &RoutineResponse{
		TodayKey:     s.tracker.TodayKey(),
		WeekKey:      s.tracker.WeekKey(),
		Daily:        daily,
		Weekly:       weekly,
		WeeklyTasks:  routine.WeeklyTasks,
		DueTasks:     due,
		TotalTasks:   len(tasks),
		Threshold:    schedule.DailyThreshold(len(tasks)),
		DailyStreak:  dailyStreak,
		WeeklyStreak: weeklyStreak,
		Vacation:     s.vacationCheck(g),
	}, nil
}

func (s *Server) routineState(w http.ResponseWriter, r *http.Request) {
	resp, err := s.routineSnapshot()
	if err != nil {
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	newDay, newWeek, err := s.tracker.Rollover()
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"rollover_check_failed","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
	}
	resp.NewDay = newDay
	resp.NewWeek = newWeek

	writeJSON(w, r, http.StatusOK, resp)
}

func (s *Server) routineAction(w http.ResponseWriter, r *http.Request) {
	var req RoutineAction
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}

	var err error
	var done bool
	switch req.Action {
	case "toggle_daily":
		if req.TaskID == "" {
			http.Error(w, `{"error":"missing_task_id"}`, http.StatusBadRequest)
			return
		}
		done, err = s.tracker.ToggleDaily(req.TaskID)
		if err == nil && done {
			CanonmapTaskCompletions.WithLabelValues("daily").Inc()
		}
	case "toggle_weekly":
		if req.TaskID == "" {
			http.Error(w, `{"error":"missing_task_id"}`, http.StatusBadRequest)
			return
		}
		done, err = s.tracker.ToggleWeekly(req.TaskID)
		if err == nil && done {
			CanonmapTaskCompletions.WithLabelValues("weekly").Inc()
		}
	case "complete_field":
		if req.NodeID == "" || req.FieldKey == "" {
			http.Error(w, `{"error":"missing_node_or_field"}`, http.StatusBadRequest)
			return
		}
		err = s.tracker.MarkFieldReviewed(req.NodeID, req.FieldKey)
		done = err == nil
		if done {
			CanonmapTaskCompletions.WithLabelValues("daily").Inc()
		}
	case "reset_today":
		err = s.tracker.ResetToday()
	default:
		http.Error(w, `{"error":"unknown_action"}`, http.StatusBadRequest)
		return
	}

	if err != nil {
		fmt.Printf(`{"level":"error","msg":"routine_action_failed","trace_id":"%s","action":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), req.Action, err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	// Answer with the refreshed state so callers see the effect of the
	// action without a second round trip.
	resp, err := s.routineSnapshot()
	if err != nil {
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// handleAcks lists and records weekly acknowledgements.
func (s *Server) handleAcks(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		acks, err := s.tracker.WeekAcknowledgements()
		if err != nil {
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, http.StatusOK, AcksResponse{WeekKey: s.tracker.WeekKey(), Acks: acks})
	case http.MethodPost:
		var req AckRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
			return
		}
		if req.Message == "" || req.Reason == "" {
			http.Error(w, `{"error":"missing_message_or_reason"}`, http.StatusBadRequest)
			return
		}
		ack, err := s.tracker.AcknowledgeFinding(req.Message, req.Reason)
		if err != nil {
			http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
			return
		}
		writeJSON(w, r, http.StatusOK, ack)
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

// handleReports streams a CSV or JSON export of review history or
// acknowledgements.
func (s *Server) handleReports(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}

	format, err := reports.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		http.Error(w, `{"error":"invalid_format","valid":["csv","json"]}`, http.StatusBadRequest)
		return
	}

	s.mu.RLock()
	g := s.graph
	s.mu.RUnlock()

	gen, err := s.reports.NewGenerator(reports.ReportType(r.URL.Query().Get("type")), g)
	if err != nil {
		http.Error(w, `{"error":"invalid_type","valid":["completions","acks"]}`, http.StatusBadRequest)
		return
	}

	out, err := gen.Generate(r.Context(), format)
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_generate_report","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		http.Error(w, `{"error":"internal_server_error"}`, http.StatusInternalServerError)
		return
	}

	if format == reports.ReportFormatJSON {
		w.Header().Set("Content-Type", "application/json")
	} else {
		w.Header().Set("Content-Type", "text/csv")
	}
	io.Copy(w, out)
}

// handleTemplate returns the authoring scaffold for a node type,
// parsed from the on-disk template when present.
func (s *Server) handleTemplate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
		return
	}
	t, err := parseNodeType(r.URL.Query().Get("type"))
	if err != nil {
		http.Error(w, `{"error":"invalid_type","valid":["CPD","CCD"]}`, http.StatusBadRequest)
		return
	}

	markdown := ""
	if s.templateDir != "" {
		path := filepath.Join(s.templateDir, fmt.Sprintf("%s_TEMPLATE.md", t))
		if data, err := os.ReadFile(path); err == nil {
			markdown = string(data)
		}
	}
	writeJSON(w, r, http.StatusOK, template.FieldsOrDefault(markdown, t))
}

func parseNodeType(s string) (graph.NodeType, error) {
	switch s {
	case "CPD":
		return graph.NodeCPD, nil
	case "CCD":
		return graph.NodeCCD, nil
	default:
		return "", fmt.Errorf("unknown node type %q", s)
	}
}

// handleNodes creates and deletes nodes. Edits apply to the local
// graph first; when a remote is configured the same mutation is
// committed upstream, and a failed commit rolls the local change back.
func (s *Server) handleNodes(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.createNode(w, r)
	case http.MethodDelete:
		s.deleteNode(w, r)
	default:
		http.Error(w, `{"error":"method_not_allowed"}`, http.StatusMethodNotAllowed)
	}
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req NodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, `{"error":"invalid_json_body"}`, http.StatusBadRequest)
		return
	}
	t, err := parseNodeType(req.Type)
	if err != nil {
		http.Error(w, `{"error":"invalid_type","valid":["CPD","CCD"]}`, http.StatusBadRequest)
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		http.Error(w, `{"error":"missing_name"}`, http.StatusBadRequest)
		return
	}

	fields := template.DefaultFields(t)
	fields.Name = req.Name
	fields.WhatIs = req.WhatIs
	fields.WhatIsNot = req.WhatIsNot
	fields.NeverImplicit = req.NeverImplicit
	fields.ProductOwner = req.ProductOwner
	fields.DeliveryOwner = req.DeliveryOwner
	fields.TechnicalAuthority = req.TechnicalAuthority
	fields.Lifecycle = req.Lifecycle
	if req.ConceptSteward != "" {
		fields.ConceptSteward = req.ConceptSteward
	}
	fields.Maturity = req.Maturity
	for k, v := range req.Status {
		fields.Status[k] = v
	}
	node := fields.BuildNode()

	s.mu.Lock()
	prev := s.graph.Clone()
	s.graph.AddNode(node)
	s.persistLocked(r)
	s.mu.Unlock()

	commit, err := s.pushRemote(r, remote.AddCommitMessage(node), remote.UpsertNode(node))
	if err != nil {
		s.rollback(r, prev)
		writeJSON(w, r, http.StatusBadGateway, map[string]string{
			"error":   "remote_commit_failed",
			"details": err.Error(),
		})
		return
	}

	resp := map[string]interface{}{"node": node}
	if commit != nil {
		resp["commit"] = CommitInfo{SHA: commit.SHA, HTMLURL: commit.HTMLURL}
	}
	writeJSON(w, r, http.StatusCreated, resp)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := strings.TrimPrefix(r.URL.Path, "/v1/nodes")
	id = strings.Trim(id, "/")
	if id == "" {
		http.Error(w, `{"error":"missing_node_id"}`, http.StatusBadRequest)
		return
	}

	s.mu.Lock()
	node := s.graph.NodeByID(id)
	if node == nil {
		s.mu.Unlock()
		http.Error(w, `{"error":"node_not_found"}`, http.StatusNotFound)
		return
	}
	prev := s.graph.Clone()
	s.graph.RemoveNode(id)
	s.persistLocked(r)
	s.mu.Unlock()

	commit, err := s.pushRemote(r, remote.DeleteCommitMessage(node), remote.RemoveNode(id))
	if err != nil {
		s.rollback(r, prev)
		writeJSON(w, r, http.StatusBadGateway, map[string]string{
			"error":   "remote_commit_failed",
			"details": err.Error(),
		})
		return
	}

	resp := map[string]interface{}{"status": "deleted", "id": id}
	if commit != nil {
		resp["commit"] = CommitInfo{SHA: commit.SHA, HTMLURL: commit.HTMLURL}
	}
	writeJSON(w, r, http.StatusOK, resp)
}

// pushRemote commits the mutation upstream when a remote is
// configured. A nil commit with nil error means local-only mode.
func (s *Server) pushRemote(r *http.Request, message string, mutate remote.Mutation) (*remote.Commit, error) {
	if s.remote == nil {
		return nil, nil
	}
	ctx := r.Context()
	branch := s.remote.DefaultBranch(ctx)
	commit, err := s.remote.CommitWithRetry(ctx, branch, message, mutate)
	if err != nil {
		CanonmapRemoteCommits.WithLabelValues("failure").Inc()
		fmt.Printf(`{"level":"error","msg":"remote_commit_failed","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		return nil, err
	}
	CanonmapRemoteCommits.WithLabelValues("success").Inc()
	fmt.Printf(`{"level":"info","msg":"remote_commit","trace_id":"%s","sha":"%s"}`+"\n", getTraceID(r.Context()), commit.SHA)
	return commit, nil
}

// persistLocked writes the current graph to the local document and
// snapshots it. Callers hold s.mu.
func (s *Server) persistLocked(r *http.Request) {
	if s.dataPath == "" {
		return
	}
	data, err := graph.MarshalDocument(s.graph.AsDocument())
	if err == nil {
		err = os.WriteFile(s.dataPath, data, 0o644)
	}
	if err != nil {
		fmt.Printf(`{"level":"error","msg":"failed_to_persist_graph","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		return
	}
	if s.backups != nil {
		if _, err := s.backups.Snapshot(data, time.Now()); err != nil {
			fmt.Printf(`{"level":"warn","msg":"failed_to_snapshot_graph","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
			return
		}
		if err := s.backups.Prune(backup.DefaultKeep); err != nil {
			fmt.Printf(`{"level":"warn","msg":"failed_to_prune_backups","trace_id":"%s","error":"%v"}`+"\n", getTraceID(r.Context()), err)
		}
	}
}

// rollback restores the pre-edit snapshot after a failed remote
// commit.
func (s *Server) rollback(r *http.Request, prev *graph.Graph) {
	s.mu.Lock()
	s.graph = prev
	s.persistLocked(r)
	s.mu.Unlock()
	fmt.Printf(`{"level":"info","msg":"local_edit_rolled_back","trace_id":"%s"}`+"\n", getTraceID(r.Context()))
}

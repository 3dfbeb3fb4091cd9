package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"

	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/routine"
)

// CompletionRow is one review task with its staleness state.
type CompletionRow struct {
	TaskID         string `json:"taskId"`
	Node           string `json:"node"`
	Field          string `json:"field"`
	AgeDays        int    `json:"ageDays"`
	NeverCompleted bool   `json:"neverCompleted"`
}

// CompletionsReport lists every review task, stalest first.
type CompletionsReport struct {
	tracker *routine.Tracker
	graph   *graph.Graph
}

func (r *CompletionsReport) Generate(ctx context.Context, format ReportFormat) (io.Reader, error) {
	tasks, err := r.tracker.AllTasks(r.graph)
	if err != nil {
		return nil, err
	}

	rows := make([]CompletionRow, 0, len(tasks))
	for _, t := range tasks {
		rows = append(rows, CompletionRow{
			TaskID:         t.ID,
			Node:           t.NodeName,
			Field:          t.Label,
			AgeDays:        t.AgeDays,
			NeverCompleted: t.NeverCompleted,
		})
	}

	buf := &bytes.Buffer{}
	if format == ReportFormatJSON {
		if err := json.NewEncoder(buf).Encode(rows); err != nil {
			return nil, err
		}
		return buf, nil
	}

	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"task_id", "node", "field", "age_days", "never_completed"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.TaskID,
			row.Node,
			row.Field,
			strconv.Itoa(row.AgeDays),
			strconv.FormatBool(row.NeverCompleted),
		}
		if err := writer.Write(record); err != nil {
			return nil, err
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, err
	}
	return buf, nil
}

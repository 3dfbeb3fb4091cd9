package reports

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"io"
	"sort"
	"strconv"

	"github.com/canonmap/canonmap/pkg/routine"
)

// AckRow is one acknowledged finding of the current week.
type AckRow struct {
	WeekKey   string `json:"weekKey"`
	Hash      string `json:"hash"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"`
}

// AcksReport lists this week's acknowledged findings.
type AcksReport struct {
	tracker *routine.Tracker
}

func (r *AcksReport) Generate(ctx context.Context, format ReportFormat) (io.Reader, error) {
	acks, err := r.tracker.WeekAcknowledgements()
	if err != nil {
		return nil, err
	}
	week := r.tracker.WeekKey()

	rows := make([]AckRow, 0, len(acks))
	for _, a := range acks {
		rows = append(rows, AckRow{
			WeekKey:   week,
			Hash:      a.Hash,
			Message:   a.Message,
			Reason:    a.Reason,
			Timestamp: a.Timestamp,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Hash < rows[j].Hash })

	buf := &bytes.Buffer{}
	if format == ReportFormatJSON {
		if err := json.NewEncoder(buf).Encode(rows); err != nil {
			return nil, err
		}
		return buf, nil
	}

	writer := csv.NewWriter(buf)
	if err := writer.Write([]string{"week_key", "hash", "message", "reason", "timestamp"}); err != nil {
		return nil, err
	}
	for _, row := range rows {
		record := []string{
			row.WeekKey,
			row.Hash,
			row.Message,
			row.Reason,
			strconv.FormatInt(row.Timestamp, 10),
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

// Package reports exports review history and acknowledgements in
// machine-readable form, for spreadsheets and retro notes.
package reports

import (
	"context"
	"fmt"
	"io"

	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/routine"
)

type ReportType string

const (
	ReportTypeCompletions ReportType = "completions"
	ReportTypeAcks        ReportType = "acks"
)

type ReportFormat string

const (
	ReportFormatCSV  ReportFormat = "csv"
	ReportFormatJSON ReportFormat = "json"
)

// Generator renders one report in the requested format.
type Generator interface {
	Generate(ctx context.Context, format ReportFormat) (io.Reader, error)
}

// Factory builds report generators over the routine state.
type Factory struct {
	Tracker *routine.Tracker
}

// NewGenerator creates a generator for the report type. The graph is
// passed per call because it changes under the caller's lock.
func (f *Factory) NewGenerator(reportType ReportType, g *graph.Graph) (Generator, error) {
	switch reportType {
	case ReportTypeCompletions:
		return &CompletionsReport{tracker: f.Tracker, graph: g}, nil
	case ReportTypeAcks:
		return &AcksReport{tracker: f.Tracker}, nil
	default:
		return nil, fmt.Errorf("unknown report type: %s", reportType)
	}
}

// ParseFormat validates a format string, defaulting to CSV.
func ParseFormat(s string) (ReportFormat, error) {
	switch s {
	case "", "csv":
		return ReportFormatCSV, nil
	case "json":
		return ReportFormatJSON, nil
	default:
		return "", fmt.Errorf("unknown report format: %s", s)
	}
}

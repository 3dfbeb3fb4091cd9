package reports

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/routine"
	"github.com/canonmap/canonmap/pkg/store"
)

func strp(s string) *string { return &s }

func testFactory(t *testing.T) (*Factory, *routine.Tracker, *graph.Graph) {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	tracker := routine.NewTracker(s, func() time.Time {
		return time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local)
	})
	g := graph.New([]*graph.Node{
		{ID: "p1", Type: graph.NodeCPD, Name: "Billing", Status: graph.Status{
			"customerResearchData": strp("set"),
		}},
	}, nil)
	return &Factory{Tracker: tracker}, tracker, g
}

func TestCompletionsCSV(t *testing.T) {
	f, tracker, g := testFactory(t)
	if err := tracker.MarkFieldReviewed("p1", "customerResearchData"); err != nil {
		t.Fatal(err)
	}

	gen, err := f.NewGenerator(ReportTypeCompletions, g)
	if err != nil {
		t.Fatal(err)
	}
	r, err := gen.Generate(context.Background(), ReportFormatCSV)
	if err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	// Header plus the six product status fields.
	if len(records) != 7 {
		t.Fatalf("records = %d", len(records))
	}
	if records[0][0] != "task_id" {
		t.Errorf("header = %v", records[0])
	}
	// The reviewed field sorts last: everything else is never-completed.
	last := records[len(records)-1]
	if last[0] != "review_p1_customerResearchData" || last[3] != "0" || last[4] != "false" {
		t.Errorf("last row = %v", last)
	}
}

func TestCompletionsJSON(t *testing.T) {
	f, _, g := testFactory(t)

	gen, _ := f.NewGenerator(ReportTypeCompletions, g)
	r, err := gen.Generate(context.Background(), ReportFormatJSON)
	if err != nil {
		t.Fatal(err)
	}

	var rows []CompletionRow
	if err := json.NewDecoder(r).Decode(&rows); err != nil {
		t.Fatal(err)
	}
	if len(rows) != 6 || !rows[0].NeverCompleted {
		t.Errorf("rows = %+v", rows)
	}
}

func TestAcksCSV(t *testing.T) {
	f, tracker, g := testFactory(t)
	if _, err := tracker.AcknowledgeFinding("some finding", "accepted for now"); err != nil {
		t.Fatal(err)
	}

	gen, err := f.NewGenerator(ReportTypeAcks, g)
	if err != nil {
		t.Fatal(err)
	}
	r, err := gen.Generate(context.Background(), ReportFormatCSV)
	if err != nil {
		t.Fatal(err)
	}

	records, err := csv.NewReader(r).ReadAll()
	if err != nil {
		t.Fatal(err)
	}
	if len(records) != 2 {
		t.Fatalf("records = %v", records)
	}
	if records[1][0] != "2026-03-09" || records[1][2] != "some finding" {
		t.Errorf("row = %v", records[1])
	}
}

func TestUnknownTypeAndFormat(t *testing.T) {
	f, _, g := testFactory(t)

	if _, err := f.NewGenerator("bogus", g); err == nil || !strings.Contains(err.Error(), "unknown report type") {
		t.Errorf("err = %v", err)
	}
	if _, err := ParseFormat("xml"); err == nil {
		t.Error("xml should be rejected")
	}
	if format, err := ParseFormat(""); err != nil || format != ReportFormatCSV {
		t.Errorf("default = %v %v", format, err)
	}
}

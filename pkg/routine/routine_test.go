package routine

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/store"
)

func TestHashMessage(t *testing.T) {
	// Stored acknowledgements are keyed by these exact values.
	cases := []struct {
		msg  string
		want string
	}{
		{"hello", "1n1e4y"},
		{`Remove "depends-on" link between Alpha and Beta. Use "uses" for optional relationships instead.`, "-curc7r"},
		{`Change link type from "depends-on" to "uses" or "inspired-by" for Alpha → Beta`, "j9r9tw"},
		{"", "0"},
	}
	for _, c := range cases {
		if got := HashMessage(c.msg); got != c.want {
			t.Errorf("HashMessage(%q) = %q, want %q", c.msg, got, c.want)
		}
	}
}

func newTestTracker(t *testing.T, now time.Time) *Tracker {
	t.Helper()
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return NewTracker(s, func() time.Time { return now })
}

func TestPeriodKeys(t *testing.T) {
	// A Wednesday; the week is keyed by its Monday.
	tr := newTestTracker(t, time.Date(2026, 3, 11, 16, 30, 0, 0, time.Local))
	if got := tr.TodayKey(); got != "2026-03-11" {
		t.Errorf("TodayKey = %q", got)
	}
	if got := tr.WeekKey(); got != "2026-03-09" {
		t.Errorf("WeekKey = %q", got)
	}
}

func TestToggleAndReset(t *testing.T) {
	tr := newTestTracker(t, time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local))

	on, err := tr.ToggleDaily("review_p1_reliabilitySLO")
	if err != nil || !on {
		t.Fatalf("first toggle: on=%v err=%v", on, err)
	}
	off, err := tr.ToggleDaily("review_p1_reliabilitySLO")
	if err != nil || off {
		t.Fatalf("second toggle: on=%v err=%v", off, err)
	}

	if _, err := tr.ToggleWeekly("W3"); err != nil {
		t.Fatalf("ToggleWeekly: %v", err)
	}
	weekly, _ := tr.WeeklyState()
	if !weekly["W3"] {
		t.Error("W3 should be done")
	}

	_, _ = tr.ToggleDaily("a")
	if err := tr.ResetToday(); err != nil {
		t.Fatalf("ResetToday: %v", err)
	}
	daily, _ := tr.DailyState()
	if len(daily) != 0 {
		t.Errorf("daily state not cleared: %v", daily)
	}
	// Weekly state survives a daily reset.
	weekly, _ = tr.WeeklyState()
	if !weekly["W3"] {
		t.Error("weekly state must survive daily reset")
	}
}

func TestMarkFieldReviewedFeedsHistory(t *testing.T) {
	tr := newTestTracker(t, time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local))

	if err := tr.MarkFieldReviewed("p1", "reliabilitySLO"); err != nil {
		t.Fatalf("MarkFieldReviewed: %v", err)
	}

	daily, _ := tr.DailyState()
	if !daily["review_p1_reliabilitySLO"] {
		t.Error("daily checkbox not set")
	}

	g := graph.New([]*graph.Node{
		{ID: "p1", Type: graph.NodeCPD, Name: "Billing"},
	}, nil)
	due, err := tr.DueTasks(g)
	if err != nil {
		t.Fatalf("DueTasks: %v", err)
	}
	// The reviewed field drops to the bottom; the other five stay
	// never-completed and outrank it.
	if len(due) != 6 {
		t.Fatalf("expected 6 tasks, got %d", len(due))
	}
	last := due[len(due)-1]
	if last.FieldKey != "reliabilitySLO" || last.NeverCompleted {
		t.Errorf("reviewed task should rank last with history, got %+v", last)
	}
}

func TestMarkValidationRunChecksW1(t *testing.T) {
	tr := newTestTracker(t, time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local))
	if err := tr.MarkValidationRun(); err != nil {
		t.Fatalf("MarkValidationRun: %v", err)
	}
	weekly, _ := tr.WeeklyState()
	if !weekly["W1"] {
		t.Error("W1 should be done after a validation run")
	}
}

func TestAcknowledgeFinding(t *testing.T) {
	tr := newTestTracker(t, time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local))
	msg := `Define "Operational Ownership" for CPD "Billing" before setting reliability promises`

	ack, err := tr.AcknowledgeFinding(msg, "ownership hire starts next sprint")
	if err != nil {
		t.Fatalf("AcknowledgeFinding: %v", err)
	}
	if ack.Hash != HashMessage(msg) {
		t.Errorf("ack hash = %q", ack.Hash)
	}

	acks, err := tr.WeekAcknowledgements()
	if err != nil {
		t.Fatalf("WeekAcknowledgements: %v", err)
	}
	got, ok := acks[ack.Hash]
	if !ok || got.Message != msg {
		t.Fatalf("acks = %v", acks)
	}
}

func TestAcknowledgeReasonTrimmedAndCapped(t *testing.T) {
	tr := newTestTracker(t, time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local))

	ack, err := tr.AcknowledgeFinding("some finding", "  spaced out  ")
	if err != nil {
		t.Fatalf("AcknowledgeFinding: %v", err)
	}
	if ack.Reason != "spaced out" {
		t.Errorf("reason = %q", ack.Reason)
	}

	long := strings.Repeat("x", 300)
	ack, err = tr.AcknowledgeFinding("another finding", long)
	if err != nil {
		t.Fatalf("AcknowledgeFinding: %v", err)
	}
	if len(ack.Reason) != 120 {
		t.Errorf("reason length = %d", len(ack.Reason))
	}

	// The stored copy is the capped one.
	acks, err := tr.WeekAcknowledgements()
	if err != nil {
		t.Fatalf("WeekAcknowledgements: %v", err)
	}
	if stored := acks[ack.Hash]; len(stored.Reason) != 120 {
		t.Errorf("stored reason length = %d", len(stored.Reason))
	}
}

func TestStreaksFromStore(t *testing.T) {
	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local)
	tr := newTestTracker(t, now)

	g := graph.New([]*graph.Node{
		{ID: "p1", Type: graph.NodeCPD, Name: "Billing"},
	}, nil) // 6 tasks, threshold max(3, 6/5) = 3

	ids := []string{
		"review_p1_customerResearchData",
		"review_p1_valuePropositionClarity",
		"review_p1_pricingEconomicModel",
	}
	for _, day := range []string{"2026-03-11", "2026-03-10"} {
		for _, id := range ids {
			if err := tr.store.SetTaskDone(day, id, true); err != nil {
				t.Fatalf("SetTaskDone: %v", err)
			}
		}
	}
	for _, id := range []string{"W1", "W2", "W4"} {
		if err := tr.store.SetTaskDone("2026-03-09", id, true); err != nil {
			t.Fatalf("SetTaskDone: %v", err)
		}
	}

	daily, weekly := tr.Streaks(g)
	if daily != 2 {
		t.Errorf("daily streak = %d, want 2", daily)
	}
	if weekly != 1 {
		t.Errorf("weekly streak = %d, want 1", weekly)
	}
}

func TestVacationCheckActive(t *testing.T) {
	now := time.Date(2026, 1, 25, 12, 0, 0, 0, time.Local)
	cases := []struct {
		start string
		want  bool
	}{
		{"2026-02-01", true},  // 7 days out
		{"2026-02-08", true},  // exactly 14 days
		{"2026-02-09", false}, // 15 days out
		{"2026-01-24", false}, // already past
		{"", false},
		{"not-a-date", false},
	}
	for _, c := range cases {
		if got := VacationCheckActive(c.start, now); got != c.want {
			t.Errorf("VacationCheckActive(%q) = %v, want %v", c.start, got, c.want)
		}
	}
}

func TestHardeningGaps(t *testing.T) {
	none := "NONE"
	owned := "platform-team"
	g := graph.New([]*graph.Node{
		{ID: "p1", Type: graph.NodeCPD, Name: "Billing", Status: graph.Status{"operationalOwnership": &none}},
		{ID: "p2", Type: graph.NodeCPD, Name: "Metering", Status: graph.Status{"operationalOwnership": &owned}},
		{ID: "c1", Type: graph.NodeCCD, Name: "Concept"},
	}, nil)

	gaps := HardeningGaps(g)
	if len(gaps) != 1 {
		t.Fatalf("gaps = %v", gaps)
	}
	want := `CPD "Billing" has Operational Ownership = NONE`
	if gaps[0] != want {
		t.Errorf("got %q, want %q", gaps[0], want)
	}
}

func TestRolloverDetection(t *testing.T) {
	s, err := store.NewStore(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	now := time.Date(2026, 3, 11, 10, 0, 0, 0, time.Local) // Wednesday
	tr := NewTracker(s, func() time.Time { return now })

	// First sighting is not a rollover.
	newDay, newWeek, err := tr.Rollover()
	if err != nil {
		t.Fatal(err)
	}
	if newDay || newWeek {
		t.Errorf("first call = %v/%v, want false/false", newDay, newWeek)
	}

	// Same day again.
	if newDay, newWeek, _ = tr.Rollover(); newDay || newWeek {
		t.Errorf("same day = %v/%v, want false/false", newDay, newWeek)
	}

	// Next day, same week.
	now = now.AddDate(0, 0, 1)
	newDay, newWeek, err = tr.Rollover()
	if err != nil {
		t.Fatal(err)
	}
	if !newDay || newWeek {
		t.Errorf("next day = %v/%v, want true/false", newDay, newWeek)
	}

	// Following Monday flips both.
	now = time.Date(2026, 3, 16, 8, 0, 0, 0, time.Local)
	newDay, newWeek, err = tr.Rollover()
	if err != nil {
		t.Fatal(err)
	}
	if !newDay || !newWeek {
		t.Errorf("next week = %v/%v, want true/true", newDay, newWeek)
	}
}

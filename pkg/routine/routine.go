// Package routine tracks the daily and weekly review checklists:
// which tasks were completed in which period, acknowledgement of
// validation findings, and streaks. State lives in the store; period
// keys roll over automatically because every method derives them from
// the clock at call time.
package routine

import (
	"fmt"
	"strings"
	"time"

	"github.com/canonmap/canonmap/pkg/graph"
	"github.com/canonmap/canonmap/pkg/schedule"
	"github.com/canonmap/canonmap/pkg/store"
)

// WeeklyTask is one fixed item of the weekly checklist.
type WeeklyTask struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// WeeklyTasks is the fixed weekly checklist. Three completed items
// keep the weekly streak alive.
var WeeklyTasks = []WeeklyTask{
	{ID: "W1", Text: "Run Validate and review all Errors/Warnings."},
	{ID: "W2", Text: "Resolve all ERRORS this week (or mark as acknowledged with a reason)."},
	{ID: "W3", Text: "Pick 1 CPD and answer: 'What decision did this product enable this week?' (write 1 sentence in CPD)."},
	{ID: "W4", Text: "Review CCDs for misuse: no product language, no implied commitments."},
	{ID: "W5", Text: "Pre-vacation hardening check (if within 14 days before a configured vacation date): ensure every CPD has OperationalOwnership ≠ NONE."},
}

// WeeklyTaskIDs returns the checklist ids in order.
func WeeklyTaskIDs() []string {
	ids := make([]string, len(WeeklyTasks))
	for i, t := range WeeklyTasks {
		ids[i] = t.ID
	}
	return ids
}

// Tracker is the stateful side of the routine: periods, completions,
// acknowledgements, streaks.
type Tracker struct {
	store *store.Store
	now   func() time.Time
}

// NewTracker wires a tracker to its store. A nil clock means wall time.
func NewTracker(s *store.Store, now func() time.Time) *Tracker {
	if now == nil {
		now = time.Now
	}
	return &Tracker{store: s, now: now}
}

// TodayKey returns the current daily period key.
func (t *Tracker) TodayKey() string { return schedule.DayKey(t.now()) }

// WeekKey returns the current weekly period key (this week's Monday).
func (t *Tracker) WeekKey() string { return schedule.WeekKey(t.now()) }

// DailyState loads today's checklist state.
func (t *Tracker) DailyState() (map[string]bool, error) {
	return t.store.RoutineState(t.TodayKey())
}

// WeeklyState loads this week's checklist state.
func (t *Tracker) WeeklyState() (map[string]bool, error) {
	return t.store.RoutineState(t.WeekKey())
}

// ToggleDaily flips one daily task for today and returns the new
// value.
func (t *Tracker) ToggleDaily(taskID string) (bool, error) {
	return t.toggle(t.TodayKey(), taskID)
}

// ToggleWeekly flips one weekly checklist item for this week and
// returns the new value.
func (t *Tracker) ToggleWeekly(taskID string) (bool, error) {
	return t.toggle(t.WeekKey(), taskID)
}

func (t *Tracker) toggle(periodKey, taskID string) (bool, error) {
	state, err := t.store.RoutineState(periodKey)
	if err != nil {
		return false, err
	}
	next := !state[taskID]
	if err := t.store.SetTaskDone(periodKey, taskID, next); err != nil {
		return false, err
	}
	return next, nil
}

// MarkFieldReviewed completes the review task for one node field: the
// daily checkbox for today plus the cross-day completion history used
// for staleness ranking.
func (t *Tracker) MarkFieldReviewed(nodeID, fieldKey string) error {
	today := t.TodayKey()
	taskID := schedule.TaskID(nodeID, fieldKey)
	if err := t.store.SetTaskDone(today, taskID, true); err != nil {
		return fmt.Errorf("failed to mark task done: %w", err)
	}
	if err := t.store.RecordCompletion(taskID, today); err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// ResetToday clears today's daily checklist. Completion history is
// untouched.
func (t *Tracker) ResetToday() error {
	return t.store.ResetPeriod(t.TodayKey())
}

// Rollover compares the current period keys with the last ones seen
// and persists the new keys. Callers use the flags to surface "new day"
// and "new week" transitions; old-period state stays in the store.
func (t *Tracker) Rollover() (newDay, newWeek bool, err error) {
	today, week := t.TodayKey(), t.WeekKey()

	lastDay, seenDay, err := t.store.Setting("last_seen_day")
	if err != nil {
		return false, false, err
	}
	lastWeek, seenWeek, err := t.store.Setting("last_seen_week")
	if err != nil {
		return false, false, err
	}

	newDay = seenDay && lastDay != today
	newWeek = seenWeek && lastWeek != week

	if lastDay != today {
		if err := t.store.SetSetting("last_seen_day", today); err != nil {
			return false, false, err
		}
	}
	if lastWeek != week {
		if err := t.store.SetSetting("last_seen_week", week); err != nil {
			return false, false, err
		}
	}
	return newDay, newWeek, nil
}

// MarkValidationRun checks off the weekly validate item. Running a
// validation is how W1 gets done.
func (t *Tracker) MarkValidationRun() error {
	return t.store.SetTaskDone(t.WeekKey(), "W1", true)
}

// maxReasonLen caps acknowledgement reasons; longer input is
// truncated, not rejected.
const maxReasonLen = 120

// AcknowledgeFinding accepts one finding for the current week with a
// reason. The key is the message hash, so an identical finding stays
// acknowledged until the week rolls over or its text changes. The
// reason is trimmed and capped at 120 characters.
func (t *Tracker) AcknowledgeFinding(message, reason string) (store.Acknowledgement, error) {
	reason = strings.TrimSpace(reason)
	if r := []rune(reason); len(r) > maxReasonLen {
		reason = string(r[:maxReasonLen])
	}
	ack := store.Acknowledgement{
		Hash:      HashMessage(message),
		Message:   message,
		Reason:    reason,
		Timestamp: t.now().UnixMilli(),
	}
	if err := t.store.Acknowledge(t.WeekKey(), ack); err != nil {
		return store.Acknowledgement{}, err
	}
	return ack, nil
}

// WeekAcknowledgements returns this week's accepted findings keyed by
// message hash.
func (t *Tracker) WeekAcknowledgements() (map[string]store.Acknowledgement, error) {
	return t.store.Acknowledgements(t.WeekKey())
}

// DueTasks ranks the graph's review tasks by staleness, oldest first,
// capped at the daily limit.
func (t *Tracker) DueTasks(g *graph.Graph) ([]schedule.DueTask, error) {
	hist, err := t.store.CompletionHistory()
	if err != nil {
		return nil, err
	}
	lookup := func(id string) (string, bool) {
		v, ok := hist[id]
		return v, ok
	}
	return schedule.SelectDue(schedule.DeriveTasks(g), lookup, t.now(), schedule.DueLimit), nil
}

// AllTasks ranks every review task by staleness, without the daily
// cap. Reporting uses this; the dashboard uses DueTasks.
func (t *Tracker) AllTasks(g *graph.Graph) ([]schedule.DueTask, error) {
	hist, err := t.store.CompletionHistory()
	if err != nil {
		return nil, err
	}
	lookup := func(id string) (string, bool) {
		v, ok := hist[id]
		return v, ok
	}
	tasks := schedule.DeriveTasks(g)
	return schedule.SelectDue(tasks, lookup, t.now(), len(tasks)), nil
}

// Streaks computes the daily and weekly streaks for the given graph.
// Store read errors truncate the streak at that period rather than
// failing the whole call.
func (t *Tracker) Streaks(g *graph.Graph) (daily, weekly int) {
	lookup := func(periodKey string) map[string]bool {
		state, err := t.store.RoutineState(periodKey)
		if err != nil {
			return nil
		}
		return state
	}
	tasks := schedule.DeriveTasks(g)
	daily = schedule.DailyStreak(tasks, lookup, t.now())
	weekly = schedule.WeeklyStreak(WeeklyTaskIDs(), lookup, t.now())
	return daily, weekly
}

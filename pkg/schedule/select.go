package schedule

import (
	"sort"
	"time"
)

// DueLimit is how many overdue tasks the daily routine surfaces.
const DueLimit = 12

// HistoryLookup reports the day key (YYYY-MM-DD, local) a task was
// last completed on. ok is false when the task has never been done.
type HistoryLookup func(taskID string) (string, bool)

// DueTask is a task annotated with its staleness.
type DueTask struct {
	Task
	// AgeDays is whole local days since last completion. Meaningless
	// when NeverCompleted is set; never-completed tasks outrank any
	// finite age.
	AgeDays        int  `json:"ageDays"`
	NeverCompleted bool `json:"neverCompleted"`
}

// SelectDue ranks tasks by staleness and returns at most limit of
// them. Ordering is age descending with never-completed first, ties
// broken by node display name ascending. A malformed history entry is
// treated as never-completed rather than dropped.
func SelectDue(tasks []Task, history HistoryLookup, now time.Time, limit int) []DueTask {
	due := make([]DueTask, 0, len(tasks))
	for _, t := range tasks {
		dt := DueTask{Task: t}
		key, ok := history(t.ID)
		if !ok {
			dt.NeverCompleted = true
		} else if last, err := time.ParseInLocation("2006-01-02", key, now.Location()); err != nil {
			dt.NeverCompleted = true
		} else {
			dt.AgeDays = int(now.Sub(last).Hours() / 24)
		}
		due = append(due, dt)
	}

	sort.SliceStable(due, func(i, j int) bool {
		a, b := due[i], due[j]
		if a.NeverCompleted != b.NeverCompleted {
			return a.NeverCompleted
		}
		if !a.NeverCompleted && a.AgeDays != b.AgeDays {
			return a.AgeDays > b.AgeDays
		}
		return a.NodeName < b.NodeName
	})

	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	return due
}

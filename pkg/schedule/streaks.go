package schedule

import "time"

// StateLookup loads the completion state for one routine period,
// keyed by task id. Missing periods return an empty or nil map.
type StateLookup func(periodKey string) map[string]bool

const (
	dailyLookback  = 365
	weeklyLookback = 52

	// weeklyThreshold is the fixed completions-per-week bar. The
	// weekly checklist has five items; three count as a kept week.
	weeklyThreshold = 3
)

// DailyThreshold is the minimum completions that keep a day's streak
// alive: at least 3, or a fifth of the full task list when the graph
// is large.
func DailyThreshold(totalTasks int) int {
	if n := totalTasks / 5; n > 3 {
		return n
	}
	return 3
}

// DayKey formats t as a local-date routine key.
func DayKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// WeekKey returns the local date of the Monday starting t's week.
// Weeks run Monday through Sunday.
func WeekKey(t time.Time) string {
	back := (int(t.Weekday()) + 6) % 7
	return t.AddDate(0, 0, -back).Format("2006-01-02")
}

// DailyStreak counts consecutive days, today included, on which at
// least DailyThreshold of tasks were completed. Today failing the bar
// zeroes the streak regardless of history. Lookback caps at a year.
func DailyStreak(tasks []Task, lookup StateLookup, now time.Time) int {
	threshold := DailyThreshold(len(tasks))
	streak := 0
	for i := 0; i < dailyLookback; i++ {
		state := lookup(DayKey(now.AddDate(0, 0, -i)))
		if countDone(tasks, state) < threshold {
			break
		}
		streak++
	}
	return streak
}

// WeeklyStreak counts consecutive weeks, the current one included,
// with at least three of the given checklist items done. Weeks are
// keyed by their Monday. Lookback caps at a year.
func WeeklyStreak(taskIDs []string, lookup StateLookup, now time.Time) int {
	streak := 0
	for w := 0; w < weeklyLookback; w++ {
		state := lookup(WeekKey(now.AddDate(0, 0, -7*w)))
		done := 0
		for _, id := range taskIDs {
			if state[id] {
				done++
			}
		}
		if done < weeklyThreshold {
			break
		}
		streak++
	}
	return streak
}

func countDone(tasks []Task, state map[string]bool) int {
	n := 0
	for _, t := range tasks {
		if state[t.ID] {
			n++
		}
	}
	return n
}

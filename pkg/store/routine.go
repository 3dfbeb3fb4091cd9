package store

import (
	"database/sql"
	"fmt"
)

// Acknowledgement is one validation finding a user accepted for a
// given week, with the reason they gave.
type Acknowledgement struct {
	Hash      string `json:"hash"`
	Message   string `json:"message"`
	Reason    string `json:"reason"`
	Timestamp int64  `json:"timestamp"` // unix milliseconds
}

// RoutineState returns the done-map for one period. Unknown periods
// yield an empty map.
func (s *Store) RoutineState(periodKey string) (map[string]bool, error) {
	rows, err := s.db.Query(
		`SELECT task_id, done FROM routine_state WHERE period_key = ?`, periodKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load routine state: %w", err)
	}
	defer rows.Close()

	state := make(map[string]bool)
	for rows.Next() {
		var id string
		var done int
		if err := rows.Scan(&id, &done); err != nil {
			return nil, fmt.Errorf("failed to scan routine row: %w", err)
		}
		state[id] = done != 0
	}
	return state, rows.Err()
}

// SetTaskDone upserts one checklist entry for a period.
func (s *Store) SetTaskDone(periodKey, taskID string, done bool) error {
	v := 0
	if done {
		v = 1
	}
	_, err := s.db.Exec(`
		INSERT INTO routine_state (period_key, task_id, done) VALUES (?, ?, ?)
		ON CONFLICT(period_key, task_id) DO UPDATE SET done = excluded.done`,
		periodKey, taskID, v)
	if err != nil {
		return fmt.Errorf("failed to set task state: %w", err)
	}
	return nil
}

// ResetPeriod clears all checklist state for one period.
func (s *Store) ResetPeriod(periodKey string) error {
	if _, err := s.db.Exec(
		`DELETE FROM routine_state WHERE period_key = ?`, periodKey); err != nil {
		return fmt.Errorf("failed to reset period: %w", err)
	}
	return nil
}

// RecordCompletion stamps a task's last completion day.
func (s *Store) RecordCompletion(taskID, day string) error {
	_, err := s.db.Exec(`
		INSERT INTO completion_history (task_id, completed_on) VALUES (?, ?)
		ON CONFLICT(task_id) DO UPDATE SET completed_on = excluded.completed_on`,
		taskID, day)
	if err != nil {
		return fmt.Errorf("failed to record completion: %w", err)
	}
	return nil
}

// LastCompleted returns the day a task was last completed, or ok=false
// if it never was.
func (s *Store) LastCompleted(taskID string) (string, bool, error) {
	var day string
	err := s.db.QueryRow(
		`SELECT completed_on FROM completion_history WHERE task_id = ?`, taskID).Scan(&day)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load completion: %w", err)
	}
	return day, true, nil
}

// CompletionHistory returns the full task -> last-completed-day map.
func (s *Store) CompletionHistory() (map[string]string, error) {
	rows, err := s.db.Query(`SELECT task_id, completed_on FROM completion_history`)
	if err != nil {
		return nil, fmt.Errorf("failed to load completion history: %w", err)
	}
	defer rows.Close()

	hist := make(map[string]string)
	for rows.Next() {
		var id, day string
		if err := rows.Scan(&id, &day); err != nil {
			return nil, fmt.Errorf("failed to scan completion row: %w", err)
		}
		hist[id] = day
	}
	return hist, rows.Err()
}

// Acknowledge records one accepted finding for a week. Re-acknowledging
// the same finding overwrites the reason and timestamp.
func (s *Store) Acknowledge(weekKey string, ack Acknowledgement) error {
	_, err := s.db.Exec(`
		INSERT INTO acknowledgements (week_key, msg_hash, message, reason, ts)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(week_key, msg_hash) DO UPDATE SET
			message = excluded.message,
			reason  = excluded.reason,
			ts      = excluded.ts`,
		weekKey, ack.Hash, ack.Message, ack.Reason, ack.Timestamp)
	if err != nil {
		return fmt.Errorf("failed to save acknowledgement: %w", err)
	}
	return nil
}

// Acknowledgements returns all accepted findings for a week, keyed by
// message hash.
func (s *Store) Acknowledgements(weekKey string) (map[string]Acknowledgement, error) {
	rows, err := s.db.Query(`
		SELECT msg_hash, message, reason, ts
		FROM acknowledgements WHERE week_key = ?`, weekKey)
	if err != nil {
		return nil, fmt.Errorf("failed to load acknowledgements: %w", err)
	}
	defer rows.Close()

	acks := make(map[string]Acknowledgement)
	for rows.Next() {
		var a Acknowledgement
		if err := rows.Scan(&a.Hash, &a.Message, &a.Reason, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("failed to scan acknowledgement: %w", err)
		}
		acks[a.Hash] = a
	}
	return acks, rows.Err()
}

// Setting returns one settings value, ok=false when unset.
func (s *Store) Setting(key string) (string, bool, error) {
	var v string
	err := s.db.QueryRow(`SELECT value FROM settings WHERE key = ?`, key).Scan(&v)
	if err == sql.ErrNoRows {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to load setting: %w", err)
	}
	return v, true, nil
}

// SetSetting upserts one settings value.
func (s *Store) SetSetting(key, value string) error {
	_, err := s.db.Exec(`
		INSERT INTO settings (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value)
	if err != nil {
		return fmt.Errorf("failed to save setting: %w", err)
	}
	return nil
}

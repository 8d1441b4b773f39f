package storage

import (
	"fmt"
	"time"
)

// Transition kinds
const (
	KindEngaged    = "engaged"
	KindDisengaged = "disengaged"
	KindFeedLost   = "feed_lost"
)

// Transition is a recorded change of the combination state
type Transition struct {
	ID          int64     `json:"id"`
	SessionID   string    `json:"sessionId"`
	Timestamp   time.Time `json:"timestamp"`
	Kind        string    `json:"kind"`
	Combination string    `json:"combination"`
	TriggerKey  string    `json:"triggerKey"`
	HeldMs      int64     `json:"heldMs"`
}

// SaveTransition saves a transition to the database
func (db *DB) SaveTransition(t *Transition) error {
	query := `
		INSERT INTO transitions (
			session_id, timestamp_ms, kind, combination, trigger_key, held_ms
		) VALUES (?, ?, ?, ?, ?, ?)
	`

	result, err := db.conn.Exec(query,
		t.SessionID, t.Timestamp.UnixMilli(), t.Kind, t.Combination, t.TriggerKey, t.HeldMs,
	)
	if err != nil {
		return fmt.Errorf("failed to save transition: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert ID: %w", err)
	}

	t.ID = id
	return nil
}

// GetTransitions retrieves transitions with pagination, newest first
func (db *DB) GetTransitions(limit, offset int) ([]Transition, error) {
	query := `
		SELECT id, session_id, timestamp_ms, kind, combination, trigger_key, held_ms
		FROM transitions
		ORDER BY timestamp_ms DESC, id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := db.conn.Query(query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query transitions: %w", err)
	}
	defer rows.Close()

	var transitions []Transition
	for rows.Next() {
		var t Transition
		var ts int64

		err := rows.Scan(&t.ID, &t.SessionID, &ts, &t.Kind, &t.Combination, &t.TriggerKey, &t.HeldMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan transition: %w", err)
		}
		t.Timestamp = time.UnixMilli(ts).UTC()

		transitions = append(transitions, t)
	}

	return transitions, rows.Err()
}

// DeleteTransition deletes a transition by ID
func (db *DB) DeleteTransition(id int64) error {
	result, err := db.conn.Exec(`DELETE FROM transitions WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete transition: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return ErrNotFound
	}

	return nil
}

// GetTransitionCount returns the total number of transitions
func (db *DB) GetTransitionCount() (int, error) {
	var count int
	err := db.conn.QueryRow("SELECT COUNT(*) FROM transitions").Scan(&count)
	return count, err
}

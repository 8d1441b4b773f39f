package storage

import (
	"fmt"
	"time"
)

// DailyStats represents statistics for a single day
type DailyStats struct {
	Date        string `json:"date"`
	Engagements int    `json:"engagements"`
	TotalHeldMs int64  `json:"totalHeldMs"`
	FeedLosses  int    `json:"feedLosses"`
}

// ComboStats represents statistics grouped by combination
type ComboStats struct {
	Combination string  `json:"combination"`
	Engagements int     `json:"engagements"`
	AvgHeldMs   float64 `json:"avgHeldMs"`
	MaxHeldMs   int64   `json:"maxHeldMs"`
}

// OverallStats represents overall statistics
type OverallStats struct {
	Engagements int     `json:"engagements"`
	FeedLosses  int     `json:"feedLosses"`
	Sessions    int     `json:"sessions"`
	TotalHeldMs int64   `json:"totalHeldMs"`
	AvgHeldMs   float64 `json:"avgHeldMs"`
	MaxHeldMs   int64   `json:"maxHeldMs"`
}

// GetDailyStats retrieves statistics grouped by UTC date since the given time
func (db *DB) GetDailyStats(since time.Time) ([]DailyStats, error) {
	query := `
		SELECT
			DATE(timestamp_ms / 1000, 'unixepoch') as date,
			SUM(CASE WHEN kind = 'engaged' THEN 1 ELSE 0 END) as engagements,
			COALESCE(SUM(CASE WHEN kind = 'disengaged' THEN held_ms ELSE 0 END), 0) as total_held_ms,
			SUM(CASE WHEN kind = 'feed_lost' THEN 1 ELSE 0 END) as feed_losses
		FROM transitions
		WHERE timestamp_ms >= ?
		GROUP BY date
		ORDER BY date DESC
	`

	rows, err := db.conn.Query(query, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query daily stats: %w", err)
	}
	defer rows.Close()

	var stats []DailyStats
	for rows.Next() {
		var s DailyStats
		err := rows.Scan(&s.Date, &s.Engagements, &s.TotalHeldMs, &s.FeedLosses)
		if err != nil {
			return nil, fmt.Errorf("failed to scan daily stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetComboStats retrieves hold statistics grouped by combination
func (db *DB) GetComboStats(since time.Time) ([]ComboStats, error) {
	query := `
		SELECT
			combination,
			COUNT(*) as engagements,
			COALESCE(AVG(held_ms), 0) as avg_held_ms,
			COALESCE(MAX(held_ms), 0) as max_held_ms
		FROM transitions
		WHERE kind = 'disengaged' AND timestamp_ms >= ?
		GROUP BY combination
		ORDER BY engagements DESC
	`

	rows, err := db.conn.Query(query, since.UnixMilli())
	if err != nil {
		return nil, fmt.Errorf("failed to query combination stats: %w", err)
	}
	defer rows.Close()

	var stats []ComboStats
	for rows.Next() {
		var s ComboStats
		err := rows.Scan(&s.Combination, &s.Engagements, &s.AvgHeldMs, &s.MaxHeldMs)
		if err != nil {
			return nil, fmt.Errorf("failed to scan combination stats: %w", err)
		}
		stats = append(stats, s)
	}

	return stats, rows.Err()
}

// GetOverallStats retrieves overall statistics since the given time
func (db *DB) GetOverallStats(since time.Time) (*OverallStats, error) {
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN kind = 'engaged' THEN 1 ELSE 0 END), 0) as engagements,
			COALESCE(SUM(CASE WHEN kind = 'feed_lost' THEN 1 ELSE 0 END), 0) as feed_losses,
			COUNT(DISTINCT session_id) as sessions,
			COALESCE(SUM(CASE WHEN kind = 'disengaged' THEN held_ms ELSE 0 END), 0) as total_held_ms,
			COALESCE(AVG(CASE WHEN kind = 'disengaged' THEN held_ms END), 0) as avg_held_ms,
			COALESCE(MAX(CASE WHEN kind = 'disengaged' THEN held_ms END), 0) as max_held_ms
		FROM transitions
		WHERE timestamp_ms >= ?
	`

	var stats OverallStats
	err := db.conn.QueryRow(query, since.UnixMilli()).Scan(
		&stats.Engagements,
		&stats.FeedLosses,
		&stats.Sessions,
		&stats.TotalHeldMs,
		&stats.AvgHeldMs,
		&stats.MaxHeldMs,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query overall stats: %w", err)
	}

	return &stats, nil
}

package storage

import (
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// ErrNotFound is returned when a record does not exist
var ErrNotFound = errors.New("record not found")

type DB struct {
	conn *sql.DB
}

// Open opens the database in configDir and initializes the schema
func Open(configDir string) (*DB, error) {
	dbPath := filepath.Join(configDir, "sonarkey.db")

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
	}

	// Enable foreign keys
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to enable foreign keys: %w", err)
	}

	db := &DB{conn: conn}

	if err := db.initSchema(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return db, nil
}

// Close closes the database connection
func (db *DB) Close() error {
	return db.conn.Close()
}

// initSchema creates the database schema
func (db *DB) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		started_ms INTEGER NOT NULL,
		ended_ms INTEGER,
		platform TEXT NOT NULL,
		effect_mode TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS transitions (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL REFERENCES sessions(id) ON DELETE CASCADE,
		timestamp_ms INTEGER NOT NULL,

		-- engaged, disengaged or feed_lost
		kind TEXT NOT NULL,
		combination TEXT NOT NULL,
		trigger_key TEXT NOT NULL,

		-- Set on disengage: how long the combination was held
		held_ms INTEGER NOT NULL DEFAULT 0
	);

	CREATE INDEX IF NOT EXISTS idx_transitions_timestamp ON transitions(timestamp_ms);
	CREATE INDEX IF NOT EXISTS idx_transitions_kind ON transitions(kind);
	CREATE INDEX IF NOT EXISTS idx_transitions_session ON transitions(session_id);
	`

	_, err := db.conn.Exec(schema)
	return err
}

// Session is one run of the agent
type Session struct {
	ID         string
	Started    time.Time
	Ended      time.Time
	Platform   string
	EffectMode string
}

// StartSession records the start of an agent run
func (db *DB) StartSession(s *Session) error {
	_, err := db.conn.Exec(
		`INSERT INTO sessions (id, started_ms, platform, effect_mode) VALUES (?, ?, ?, ?)`,
		s.ID, s.Started.UnixMilli(), s.Platform, s.EffectMode,
	)
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	return nil
}

// EndSession records the end of an agent run
func (db *DB) EndSession(id string, at time.Time) error {
	result, err := db.conn.Exec(`UPDATE sessions SET ended_ms = ? WHERE id = ?`, at.UnixMilli(), id)
	if err != nil {
		return fmt.Errorf("failed to end session: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetSession loads a session by ID
func (db *DB) GetSession(id string) (*Session, error) {
	var s Session
	var started int64
	var ended sql.NullInt64

	err := db.conn.QueryRow(
		`SELECT id, started_ms, ended_ms, platform, effect_mode FROM sessions WHERE id = ?`, id,
	).Scan(&s.ID, &started, &ended, &s.Platform, &s.EffectMode)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query session: %w", err)
	}

	s.Started = time.UnixMilli(started).UTC()
	if ended.Valid {
		s.Ended = time.UnixMilli(ended.Int64).UTC()
	}
	return &s, nil
}

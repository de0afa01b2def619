// Package audit persists a rolling, diagnostic-only log of dispatch
// decisions (command invoked, session key, outcome, latency). It is
// never read back at startup — the kernel always starts cold, per
// spec.md §1's no-persistence non-goal.
package audit

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Outcome classifies how one invocation ended.
type Outcome string

const (
	OutcomeOK       Outcome = "ok"
	OutcomeError    Outcome = "error"
	OutcomeTimeout  Outcome = "timeout"
	OutcomeDenied   Outcome = "denied"
	OutcomeCooldown Outcome = "cooldown"
	OutcomeBusy     Outcome = "busy"
)

// Entry is one recorded dispatch decision.
type Entry struct {
	ID         string
	Time       time.Time
	TraceID    string
	Command    string
	SessionKey string
	UserID     int64
	Outcome    Outcome
	Detail     string
	LatencyMS  int64
}

// tsLayout stores timestamps as fixed-width UTC text, so ordering the ts
// column as text orders rows by time.
const tsLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Store is a SQLite-backed rolling log of dispatch decisions.
type Store struct {
	db *sql.DB
}

// NewStore opens (creating if necessary) the audit log schema on db.
func NewStore(db *sql.DB) (*Store, error) {
	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("audit: migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS dispatch_log (
			id TEXT PRIMARY KEY,
			ts TEXT NOT NULL,
			trace_id TEXT NOT NULL,
			command TEXT NOT NULL,
			session_key TEXT,
			user_id INTEGER,
			outcome TEXT NOT NULL,
			detail TEXT,
			latency_ms INTEGER NOT NULL
		);

		CREATE INDEX IF NOT EXISTS idx_dispatch_log_ts ON dispatch_log(ts DESC);
		CREATE INDEX IF NOT EXISTS idx_dispatch_log_command ON dispatch_log(command);
	`)
	return err
}

// Record inserts one dispatch decision.
func (s *Store) Record(e Entry) error {
	id, err := uuid.NewV7()
	if err != nil {
		return fmt.Errorf("audit: generate id: %w", err)
	}
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}

	_, err = s.db.Exec(`
		INSERT INTO dispatch_log (id, ts, trace_id, command, session_key, user_id, outcome, detail, latency_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, id.String(), e.Time.UTC().Format(tsLayout), e.TraceID, e.Command, e.SessionKey, e.UserID, string(e.Outcome), e.Detail, e.LatencyMS)
	if err != nil {
		return fmt.Errorf("audit: insert: %w", err)
	}
	return nil
}

// Recent returns the most recently recorded entries, newest first.
func (s *Store) Recent(limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.Query(`
		SELECT id, ts, trace_id, command, session_key, user_id, outcome, detail, latency_ms
		FROM dispatch_log ORDER BY ts DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("audit: query: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var tsStr, outcomeStr string
		var sessionKey, detail sql.NullString
		if err := rows.Scan(&e.ID, &tsStr, &e.TraceID, &e.Command, &sessionKey, &e.UserID, &outcomeStr, &detail, &e.LatencyMS); err != nil {
			return nil, fmt.Errorf("audit: scan: %w", err)
		}
		e.Time, _ = time.Parse(time.RFC3339Nano, tsStr)
		e.Outcome = Outcome(outcomeStr)
		e.SessionKey = sessionKey.String
		e.Detail = detail.String
		out = append(out, e)
	}
	return out, rows.Err()
}

// Prune deletes entries older than olderThan, keeping at least minKeep
// rows regardless of age (mirrors the teacher's checkpoint retention
// policy: age-based deletion with a floor on row count).
func (s *Store) Prune(olderThan time.Duration, minKeep int) (int, error) {
	cutoff := time.Now().UTC().Add(-olderThan)

	var total int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM dispatch_log`).Scan(&total); err != nil {
		return 0, fmt.Errorf("audit: count: %w", err)
	}
	if total <= minKeep {
		return 0, nil
	}

	result, err := s.db.Exec(`
		DELETE FROM dispatch_log
		WHERE id IN (
			SELECT id FROM dispatch_log
			WHERE ts < ?
			ORDER BY ts ASC
			LIMIT ?
		)
	`, cutoff.Format(tsLayout), total-minKeep)
	if err != nil {
		return 0, fmt.Errorf("audit: prune: %w", err)
	}
	deleted, _ := result.RowsAffected()
	return int(deleted), nil
}

// Close closes the underlying database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

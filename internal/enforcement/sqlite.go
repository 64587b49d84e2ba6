package enforcement

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// openDB is a package-level var to allow test injection.
var openDB = sql.Open

// timeLayout is fixed-width so stored timestamps compare as strings.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// DBFile is the database file name inside the data directory.
const DBFile = "enforcement.db"

// SQLiteStore is the durable Store. Terminal transitions are conditional
// updates, so of several concurrent validations only one changes the row.
type SQLiteStore struct {
	db *sql.DB
}

var _ Store = (*SQLiteStore)(nil)

// OpenSQLite opens (creating if needed) the store under dataDir.
func OpenSQLite(dataDir string) (*SQLiteStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("enforcement: create data dir: %w", err)
	}
	return openSQLite(filepath.Join(dataDir, DBFile))
}

func openSQLite(dsn string) (*SQLiteStore, error) {
	db, err := openDB("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("enforcement: open database: %w", err)
	}
	// One writer keeps the conditional update and the pragmas on a
	// single connection.
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("enforcement: pragma %q: %w", p, err)
		}
	}

	s := &SQLiteStore{db: db}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enforcement: migration: %w", err)
	}
	return s, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
		CREATE TABLE IF NOT EXISTS enforcement_sessions (
			token             TEXT PRIMARY KEY,
			team_id           TEXT NOT NULL DEFAULT '',
			task              TEXT NOT NULL,
			planned_files     TEXT NOT NULL DEFAULT '[]',
			keywords          TEXT NOT NULL DEFAULT '[]',
			patterns_returned TEXT NOT NULL DEFAULT '[]',
			safety_session_id TEXT NOT NULL DEFAULT '',
			start_gate_passed INTEGER NOT NULL DEFAULT 0,
			end_gate_passed   INTEGER NOT NULL DEFAULT 0,
			status            TEXT NOT NULL DEFAULT 'active',
			issues            TEXT NOT NULL DEFAULT '[]',
			safety_score      INTEGER NOT NULL DEFAULT 0,
			mode              TEXT NOT NULL DEFAULT '',
			gates_followed    TEXT NOT NULL DEFAULT '[]',
			gates_skipped     TEXT NOT NULL DEFAULT '[]',
			validated_safety_session_id TEXT NOT NULL DEFAULT '',
			created_at        TEXT NOT NULL,
			expires_at        TEXT NOT NULL,
			closed_at         TEXT
		);
		CREATE INDEX IF NOT EXISTS idx_enforcement_status_expiry
			ON enforcement_sessions(status, expires_at);
		CREATE INDEX IF NOT EXISTS idx_enforcement_team
			ON enforcement_sessions(team_id);
	`
	if _, err := s.db.Exec(schema); err != nil {
		return err
	}

	// Columns added after the first release; older databases lack them.
	added := []string{
		"ALTER TABLE enforcement_sessions ADD COLUMN mode TEXT NOT NULL DEFAULT ''",
		"ALTER TABLE enforcement_sessions ADD COLUMN gates_followed TEXT NOT NULL DEFAULT '[]'",
		"ALTER TABLE enforcement_sessions ADD COLUMN gates_skipped TEXT NOT NULL DEFAULT '[]'",
		"ALTER TABLE enforcement_sessions ADD COLUMN validated_safety_session_id TEXT NOT NULL DEFAULT ''",
	}
	for _, stmt := range added {
		if _, err := s.db.Exec(stmt); err != nil && !strings.Contains(err.Error(), "duplicate column") {
			return err
		}
	}
	return nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Create implements Store.
func (s *SQLiteStore) Create(ctx context.Context, sess *Session) error {
	planned, err := json.Marshal(nonNil(sess.PlannedFiles))
	if err != nil {
		return fmt.Errorf("enforcement: encode planned files: %w", err)
	}
	keywords, err := json.Marshal(nonNil(sess.Keywords))
	if err != nil {
		return fmt.Errorf("enforcement: encode keywords: %w", err)
	}
	patterns, err := json.Marshal(nonNil(sess.PatternsReturned))
	if err != nil {
		return fmt.Errorf("enforcement: encode patterns: %w", err)
	}
	issues, err := json.Marshal(nonNilIssues(sess.Issues))
	if err != nil {
		return fmt.Errorf("enforcement: encode issues: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO enforcement_sessions
			(token, team_id, task, planned_files, keywords, patterns_returned, safety_session_id,
			 start_gate_passed, end_gate_passed, status, issues, safety_score, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sess.Token, sess.TeamID, sess.Task, string(planned), string(keywords), string(patterns),
		sess.SafetySessionID, boolInt(sess.StartGatePassed), boolInt(sess.EndGatePassed),
		string(sess.Status), string(issues), sess.SafetyScore,
		formatTime(sess.CreatedAt), formatTime(sess.ExpiresAt),
	)
	if err != nil {
		return fmt.Errorf("enforcement: insert session: %w", err)
	}
	return nil
}

// Get implements Store.
func (s *SQLiteStore) Get(ctx context.Context, token string) (*Session, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT token, team_id, task, planned_files, keywords, patterns_returned, safety_session_id,
		       start_gate_passed, end_gate_passed, status, issues, safety_score,
		       mode, gates_followed, gates_skipped, validated_safety_session_id,
		       created_at, expires_at, closed_at
		FROM enforcement_sessions WHERE token = ?`, token)

	var (
		sess                             Session
		planned, keywords, patterns, iss string
		followed, skipped                string
		startGate, endGate               int
		status, createdAt, expiresAt     string
		closedAt                         sql.NullString
	)
	err := row.Scan(&sess.Token, &sess.TeamID, &sess.Task, &planned, &keywords, &patterns,
		&sess.SafetySessionID, &startGate, &endGate, &status, &iss, &sess.SafetyScore,
		&sess.Mode, &followed, &skipped, &sess.ValidatedSafetySessionID,
		&createdAt, &expiresAt, &closedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("enforcement: read session: %w", err)
	}

	if err := decodeJSON(planned, &sess.PlannedFiles); err != nil {
		return nil, err
	}
	if err := decodeJSON(keywords, &sess.Keywords); err != nil {
		return nil, err
	}
	if err := decodeJSON(patterns, &sess.PatternsReturned); err != nil {
		return nil, err
	}
	if err := decodeJSON(iss, &sess.Issues); err != nil {
		return nil, err
	}
	if err := decodeJSON(followed, &sess.GatesFollowed); err != nil {
		return nil, err
	}
	if err := decodeJSON(skipped, &sess.GatesSkipped); err != nil {
		return nil, err
	}
	sess.StartGatePassed = startGate != 0
	sess.EndGatePassed = endGate != 0
	sess.Status = Status(status)
	if sess.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, err
	}
	if sess.ExpiresAt, err = parseTime(expiresAt); err != nil {
		return nil, err
	}
	if closedAt.Valid {
		t, err := parseTime(closedAt.String)
		if err != nil {
			return nil, err
		}
		sess.ClosedAt = &t
	}
	return &sess, nil
}

// Transition implements Store.
func (s *SQLiteStore) Transition(ctx context.Context, token string, c Closure) (bool, error) {
	issues, err := json.Marshal(nonNilIssues(c.Issues))
	if err != nil {
		return false, fmt.Errorf("enforcement: encode issues: %w", err)
	}
	followed, err := json.Marshal(nonNil(c.GatesFollowed))
	if err != nil {
		return false, fmt.Errorf("enforcement: encode gates followed: %w", err)
	}
	skipped, err := json.Marshal(nonNil(c.GatesSkipped))
	if err != nil {
		return false, fmt.Errorf("enforcement: encode gates skipped: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE enforcement_sessions
		SET status = ?, issues = ?, safety_score = ?, end_gate_passed = ?, closed_at = ?,
		    mode = ?, gates_followed = ?, gates_skipped = ?, validated_safety_session_id = ?
		WHERE token = ? AND status = 'active'`,
		string(c.Status), string(issues), c.SafetyScore, boolInt(c.EndGatePassed),
		formatTime(c.ClosedAt), c.Mode, string(followed), string(skipped), c.SafetySessionID, token,
	)
	if err != nil {
		return false, fmt.Errorf("enforcement: transition session: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("enforcement: transition rows: %w", err)
	}
	if n == 1 {
		return true, nil
	}

	// Distinguish "someone else closed it" from "no such token".
	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM enforcement_sessions WHERE token = ?`, token).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, ErrNotFound
	}
	if err != nil {
		return false, fmt.Errorf("enforcement: transition lookup: %w", err)
	}
	return false, nil
}

// ExpireOverdue implements Store.
func (s *SQLiteStore) ExpireOverdue(ctx context.Context, now time.Time) (int, error) {
	c := expiredClosure(now)
	issues, err := json.Marshal(c.Issues)
	if err != nil {
		return 0, fmt.Errorf("enforcement: encode issues: %w", err)
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE enforcement_sessions
		SET status = 'expired', issues = ?, closed_at = ?
		WHERE status = 'active' AND expires_at < ?`,
		string(issues), formatTime(c.ClosedAt), formatTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("enforcement: expire sessions: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("enforcement: expire rows: %w", err)
	}
	return int(n), nil
}

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("enforcement: parse time %q: %w", s, err)
	}
	return t, nil
}

func decodeJSON(raw string, v any) error {
	if err := json.Unmarshal([]byte(raw), v); err != nil {
		return fmt.Errorf("enforcement: decode column: %w", err)
	}
	return nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilIssues(s []Issue) []Issue {
	if s == nil {
		return []Issue{}
	}
	return s
}

package ledger

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/slideforge/slideforge/internal/quality"
)

// Ledger is an open ledger database.
type Ledger struct {
	db *sql.DB
}

// Open opens the SQLite database at dbPath, creating it and its tables if
// they don't exist.
func Open(dbPath string) (*Ledger, error) {
	if dir := filepath.Dir(dbPath); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", dbPath+"?_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	if err := createTables(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	return &Ledger{db: db}, nil
}

// Close closes the database connection.
func (l *Ledger) Close() error {
	return l.db.Close()
}

func createTables(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		title TEXT NOT NULL,
		status TEXT NOT NULL,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS attempts (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		slide INTEGER NOT NULL,
		attempt INTEGER NOT NULL,
		template_id TEXT NOT NULL,
		html_file TEXT NOT NULL,
		score REAL NOT NULL,
		passed INTEGER NOT NULL,
		critical_failures TEXT NOT NULL DEFAULT '[]',
		digest TEXT NOT NULL DEFAULT '',
		timestamp DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE INDEX IF NOT EXISTS attempts_by_session ON attempts (session_id, slide);

	CREATE TABLE IF NOT EXISTS outcomes (
		session_id TEXT NOT NULL,
		slide INTEGER NOT NULL,
		reason TEXT NOT NULL,
		score REAL NOT NULL,
		template_id TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (session_id, slide)
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertSession records or refreshes a session's metadata.
func (l *Ledger) UpsertSession(s SessionRow) error {
	_, err := l.db.Exec(
		`INSERT INTO sessions (id, title, status, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET
		   title = excluded.title,
		   status = excluded.status,
		   updated_at = excluded.updated_at`,
		s.ID, s.Title, s.Status, s.CreatedAt, s.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}
	return nil
}

// RecordAttempt appends an attempt row.
func (l *Ledger) RecordAttempt(sessionID string, slide int, rec quality.AttemptRecord) error {
	failures := make([]string, 0, len(rec.CriticalFailures))
	for _, f := range rec.CriticalFailures {
		failures = append(failures, string(f))
	}
	encoded, err := json.Marshal(failures)
	if err != nil {
		return fmt.Errorf("encode critical failures: %w", err)
	}

	ts := rec.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}

	_, err = l.db.Exec(
		`INSERT INTO attempts (session_id, slide, attempt, template_id, html_file, score, passed, critical_failures, digest, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		sessionID, slide, rec.Attempt, rec.TemplateID, rec.HTMLFile, rec.Score, rec.Passed, string(encoded), rec.Digest, ts,
	)
	if err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

// RecordOutcome updates or inserts how a slide's loop ended.
func (l *Ledger) RecordOutcome(o Outcome) error {
	if o.UpdatedAt.IsZero() {
		o.UpdatedAt = time.Now()
	}

	result, err := l.db.Exec(
		`UPDATE outcomes
		 SET reason = ?, score = ?, template_id = ?, updated_at = ?
		 WHERE session_id = ? AND slide = ?`,
		o.Reason, o.Score, o.TemplateID, o.UpdatedAt, o.SessionID, o.Slide,
	)
	if err != nil {
		return fmt.Errorf("update outcome: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check rows affected: %w", err)
	}

	if rowsAffected == 0 {
		_, err = l.db.Exec(
			`INSERT INTO outcomes (session_id, slide, reason, score, template_id, updated_at)
			 VALUES (?, ?, ?, ?, ?, ?)`,
			o.SessionID, o.Slide, o.Reason, o.Score, o.TemplateID, o.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("insert outcome: %w", err)
		}
	}

	return nil
}

// DeleteSession removes everything recorded for a session.
func (l *Ledger) DeleteSession(sessionID string) error {
	for _, stmt := range []string{
		`DELETE FROM attempts WHERE session_id = ?`,
		`DELETE FROM outcomes WHERE session_id = ?`,
		`DELETE FROM sessions WHERE id = ?`,
	} {
		if _, err := l.db.Exec(stmt, sessionID); err != nil {
			return fmt.Errorf("delete session: %w", err)
		}
	}
	return nil
}

const attemptColumns = `id, session_id, slide, attempt, template_id, html_file, score, passed, critical_failures, digest, timestamp`

// RecentAttempts returns the newest attempts across all sessions.
func (l *Ledger) RecentAttempts(limit int) ([]Attempt, error) {
	rows, err := l.db.Query(
		`SELECT `+attemptColumns+`
		 FROM attempts
		 ORDER BY timestamp DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return scanAttempts(rows)
}

// SessionAttempts returns every attempt of one session in recording order.
func (l *Ledger) SessionAttempts(sessionID string) ([]Attempt, error) {
	rows, err := l.db.Query(
		`SELECT `+attemptColumns+`
		 FROM attempts
		 WHERE session_id = ?
		 ORDER BY id ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query attempts: %w", err)
	}
	return scanAttempts(rows)
}

func scanAttempts(rows *sql.Rows) ([]Attempt, error) {
	defer func() { _ = rows.Close() }()

	var attempts []Attempt
	for rows.Next() {
		var a Attempt
		var failures string
		if err := rows.Scan(&a.ID, &a.SessionID, &a.Slide, &a.Attempt, &a.TemplateID, &a.HTMLFile,
			&a.Score, &a.Passed, &failures, &a.Digest, &a.Timestamp); err != nil {
			return nil, fmt.Errorf("scan attempt: %w", err)
		}
		if err := json.Unmarshal([]byte(failures), &a.CriticalFailures); err != nil {
			return nil, fmt.Errorf("decode critical failures: %w", err)
		}
		attempts = append(attempts, a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return attempts, nil
}

// Outcomes returns the recorded outcome of each slide in a session.
func (l *Ledger) Outcomes(sessionID string) ([]Outcome, error) {
	rows, err := l.db.Query(
		`SELECT session_id, slide, reason, score, template_id, updated_at
		 FROM outcomes
		 WHERE session_id = ?
		 ORDER BY slide ASC`,
		sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var outcomes []Outcome
	for rows.Next() {
		var o Outcome
		if err := rows.Scan(&o.SessionID, &o.Slide, &o.Reason, &o.Score, &o.TemplateID, &o.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scan outcome: %w", err)
		}
		outcomes = append(outcomes, o)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return outcomes, nil
}

// TemplateStats aggregates attempts per template, most attempted first.
func (l *Ledger) TemplateStats() ([]TemplateStat, error) {
	rows, err := l.db.Query(
		`SELECT template_id,
		        COUNT(*) AS attempts,
		        COALESCE(SUM(CASE WHEN passed THEN 1 ELSE 0 END), 0) AS passes,
		        COALESCE(SUM(CASE WHEN critical_failures != '[]' THEN 1 ELSE 0 END), 0) AS critical,
		        COALESCE(AVG(score), 0) AS avg_score
		 FROM attempts
		 GROUP BY template_id
		 ORDER BY attempts DESC, template_id ASC`,
	)
	if err != nil {
		return nil, fmt.Errorf("query template stats: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var stats []TemplateStat
	for rows.Next() {
		var s TemplateStat
		if err := rows.Scan(&s.TemplateID, &s.Attempts, &s.Passes, &s.CriticalFailures, &s.AvgScore); err != nil {
			return nil, fmt.Errorf("scan template stat: %w", err)
		}
		stats = append(stats, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}

	return stats, nil
}

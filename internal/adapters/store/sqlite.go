package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	// sqlite3 driver registration.
	_ "github.com/mattn/go-sqlite3"

	"github.com/easyshift/presence/internal/domain/model"
	"github.com/easyshift/presence/pkg/logger"
)

const schema = `
CREATE TABLE IF NOT EXISTS attendance_events (
	session_id   TEXT PRIMARY KEY,
	user_id      TEXT NOT NULL,
	payload      TEXT NOT NULL,
	method       TEXT NOT NULL,
	captured_at  TIMESTAMP NOT NULL,
	submitted_at TIMESTAMP NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_attendance_user ON attendance_events(user_id, submitted_at);
`

// SQLiteStore implements Store over a local SQLite database. The primary
// key on session_id makes Write naturally idempotent.
type SQLiteStore struct {
	db  *sql.DB
	log logger.Logger
}

// NewSQLiteStore opens (and if needed initializes) the database at dsn.
// Use ":memory:" for an ephemeral store.
func NewSQLiteStore(ctx context.Context, dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite handles one writer; a larger pool just trades errors for locks.
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init sqlite schema: %w", err)
	}

	return &SQLiteStore{
		db:  db,
		log: logger.Get().Named("store"),
	}, nil
}

// Write implements Store. A conflicting session id is acknowledged without
// a second insert.
func (s *SQLiteStore) Write(ctx context.Context, ev model.AttendanceEvent) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO attendance_events
		 (session_id, user_id, payload, method, captured_at, submitted_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		ev.SessionID, ev.UserID, ev.Payload, string(ev.Method),
		ev.CapturedAt.UTC(), ev.SubmittedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		s.log.Debug(ctx, "duplicate attendance write acknowledged",
			logger.String("session", ev.SessionID),
		)
	}
	return nil
}

// Count implements Store.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM attendance_events`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return n, nil
}

// Events returns all persisted events, newest first. Used by stats and
// verification tooling.
func (s *SQLiteStore) Events(ctx context.Context) ([]model.AttendanceEvent, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, user_id, payload, method, captured_at, submitted_at
		 FROM attendance_events ORDER BY submitted_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer rows.Close()

	var out []model.AttendanceEvent
	for rows.Next() {
		var ev model.AttendanceEvent
		var method string
		var capturedAt, submittedAt time.Time
		if err := rows.Scan(&ev.SessionID, &ev.UserID, &ev.Payload, &method, &capturedAt, &submittedAt); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
		ev.Method = model.Method(method)
		ev.CapturedAt = capturedAt
		ev.SubmittedAt = submittedAt
		out = append(out, ev)
	}
	return out, rows.Err()
}

// Close implements Store.
func (s *SQLiteStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

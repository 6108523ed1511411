package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"emberhollow/client/internal/session"
)

// ErrNotCached reports that no local copy of the session exists.
var ErrNotCached = errors.New("session not cached locally")

// Local is the best-effort session cache backed by SQLite. Callers log its
// failures and move on; nothing here is allowed to take the client down.
type Local struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	id       TEXT PRIMARY KEY,
	version  INTEGER NOT NULL,
	payload  TEXT NOT NULL,
	saved_at TEXT NOT NULL
);`

func OpenLocal(path string) (*Local, error) {
	if path == "" {
		return nil, fmt.Errorf("storage: empty db path")
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("storage: open %s: %w", path, err)
	}
	// The cache is touched by one process; a single connection keeps
	// SQLite's locking out of the picture.
	db.SetMaxOpenConns(1)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("storage: init schema: %w", err)
	}
	return &Local{db: db}, nil
}

func (l *Local) Close() error {
	return l.db.Close()
}

// SaveLocalSession upserts the session's JSON payload.
func (l *Local) SaveLocalSession(ctx context.Context, s *session.Session) error {
	if s == nil || s.ID == "" {
		return fmt.Errorf("storage: session missing id")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("storage: encode session %s: %w", s.ID, err)
	}
	_, err = l.db.ExecContext(ctx, `
		INSERT INTO sessions (id, version, payload, saved_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			version = excluded.version,
			payload = excluded.payload,
			saved_at = excluded.saved_at`,
		s.ID, s.Version, string(payload), time.Now().UTC().Format(time.RFC3339))
	if err != nil {
		return fmt.Errorf("storage: save session %s: %w", s.ID, err)
	}
	return nil
}

// LoadLocalSession reads the cached session, or ErrNotCached.
func (l *Local) LoadLocalSession(ctx context.Context, id string) (*session.Session, error) {
	var payload string
	err := l.db.QueryRowContext(ctx, `SELECT payload FROM sessions WHERE id = ?`, id).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("storage: load session %s: %w", id, err)
	}
	var s session.Session
	if err := json.Unmarshal([]byte(payload), &s); err != nil {
		return nil, fmt.Errorf("storage: decode session %s: %w", id, err)
	}
	return &s, nil
}

// ClearLocalSession removes the cached copy. Clearing an absent session is
// not an error.
func (l *Local) ClearLocalSession(ctx context.Context, id string) error {
	if _, err := l.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("storage: clear session %s: %w", id, err)
	}
	return nil
}

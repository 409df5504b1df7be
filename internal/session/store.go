package session

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// MaxAge is the inactivity window after which a saved session is considered
// expired and must not silently resurrect stale workflow state.
const MaxAge = time.Hour

// saveOutcome records whether a write reached durable storage. Persistence
// is best-effort: a degraded outcome is logged, never returned to callers.
type saveOutcome int

const (
	outcomeSaved saveOutcome = iota
	outcomeDegraded
)

// Store persists workflow session fields backed by SQLite. One session
// identity is created per profile and reused across workflow runs.
type Store struct {
	db        *sql.DB
	path      string
	sessionID string
	logger    *slog.Logger
	now       func() time.Time
}

// Open initializes or connects to the session database, applies the schema,
// and ensures a session identity exists.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure session dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open session db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:     db,
		path:   path,
		logger: logger,
		now:    time.Now,
	}
	if err := store.applySchema(); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := store.ensureSession(); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SessionID returns the profile-scoped session identity.
func (s *Store) SessionID() string {
	return s.sessionID
}

// SaveField merges one field into the session record and refreshes its
// update timestamp. Write failures are logged and swallowed; persistence
// never aborts the workflow.
func (s *Store) SaveField(key, value string) {
	if outcome := s.save(key, value); outcome == outcomeDegraded {
		s.logger.Warn("session save degraded", "key", key)
	}
}

// save performs the durable write and reports the outcome.
func (s *Store) save(key, value string) saveOutcome {
	timestamp := s.now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO session_fields (session_id, key, value, updated_at)
         VALUES (?, ?, ?, ?)
         ON CONFLICT(session_id, key)
         DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		s.sessionID, key, value, timestamp,
	)
	if err != nil {
		return outcomeDegraded
	}
	return outcomeSaved
}

// LoadField returns the stored value for key, or def when absent or
// unreadable.
func (s *Store) LoadField(key, def string) string {
	var value string
	err := s.db.QueryRow(
		`SELECT value FROM session_fields WHERE session_id = ? AND key = ?`,
		s.sessionID, key,
	).Scan(&value)
	if err != nil {
		if !errors.Is(err, sql.ErrNoRows) {
			s.logger.Warn("session load failed", "key", key, "error", err)
		}
		return def
	}
	return value
}

// ClearAll removes every saved field for the current session. The session
// identity itself is retained.
func (s *Store) ClearAll() {
	if _, err := s.db.Exec(
		`DELETE FROM session_fields WHERE session_id = ?`, s.sessionID,
	); err != nil {
		s.logger.Warn("session clear failed", "error", err)
	}
}

// HasAnyState reports whether any field is saved for the current session.
func (s *Store) HasAnyState() bool {
	var count int
	err := s.db.QueryRow(
		`SELECT COUNT(*) FROM session_fields WHERE session_id = ?`, s.sessionID,
	).Scan(&count)
	return err == nil && count > 0
}

// Age returns the time since the most recent field write. The second result
// is false when no state is saved.
func (s *Store) Age() (time.Duration, bool) {
	var raw string
	err := s.db.QueryRow(
		`SELECT MAX(updated_at) FROM session_fields WHERE session_id = ?`,
		s.sessionID,
	).Scan(&raw)
	if err != nil || raw == "" {
		return 0, false
	}

	updated, parseErr := time.Parse(time.RFC3339Nano, raw)
	if parseErr != nil {
		return 0, false
	}
	return s.now().UTC().Sub(updated), true
}

// Expired reports whether the saved record is older than the inactivity
// window.
func (s *Store) Expired() bool {
	age, ok := s.Age()
	return ok && age > MaxAge
}

// applySchema creates tables on first open and records the schema version.
func (s *Store) applySchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS schema_migrations (
            version INTEGER PRIMARY KEY,
            applied_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS sessions (
            id TEXT PRIMARY KEY,
            created_at TEXT NOT NULL
        )`,
		`CREATE TABLE IF NOT EXISTS session_fields (
            session_id TEXT NOT NULL REFERENCES sessions(id),
            key TEXT NOT NULL,
            value TEXT NOT NULL,
            updated_at TEXT NOT NULL,
            PRIMARY KEY (session_id, key)
        )`,
		`INSERT OR IGNORE INTO schema_migrations (version, applied_at)
         VALUES (1, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))`,
	}
	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	return nil
}

// ensureSession loads the existing session identity or creates one.
func (s *Store) ensureSession() error {
	var id string
	err := s.db.QueryRow(
		`SELECT id FROM sessions ORDER BY created_at LIMIT 1`,
	).Scan(&id)
	if err == nil {
		s.sessionID = id
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("load session identity: %w", err)
	}

	id = uuid.NewString()
	_, err = s.db.Exec(
		`INSERT INTO sessions (id, created_at) VALUES (?, ?)`,
		id, s.now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("create session identity: %w", err)
	}
	s.sessionID = id
	return nil
}

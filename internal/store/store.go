// Package store is the durable session record mapping. Pure data
// access: it never talks to the container engine and never infers
// runtime state. Lifecycle transitions are linearized per session id
// through the conditional status update.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// Sentinel errors
var (
	ErrNotFound = errors.New("not found")

	// ErrConflict means a conditional status update matched no row:
	// another transition won the race (or the session is gone). Callers
	// surface a retry, never queue.
	ErrConflict = errors.New("concurrent transition in flight")
)

// Persisted session statuses.
const (
	StatusProvisioning    = "provisioning"
	StatusProvisionFailed = "provision_failed"
	StatusRunning         = "running"
	StatusSuspended       = "suspended"
	StatusDeleted         = "deleted"
)

type Session struct {
	ID           string    `json:"id"`
	OwnerID      string    `json:"owner_id"`
	DisplayName  string    `json:"display_name"`
	Status       string    `json:"status"`
	ContainerRef string    `json:"container_ref,omitempty"`
	VolumeRef    string    `json:"volume_ref"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastActivity time.Time `json:"last_activity"`
}

type Store struct {
	db *sql.DB
}

const createTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	id            TEXT PRIMARY KEY,
	owner_id      TEXT NOT NULL,
	display_name  TEXT NOT NULL DEFAULT '',
	status        TEXT NOT NULL DEFAULT 'provisioning',
	container_ref TEXT,
	volume_ref    TEXT NOT NULL DEFAULT '',
	created_at    DATETIME NOT NULL,
	updated_at    DATETIME NOT NULL,
	last_activity DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_sessions_owner_id ON sessions(owner_id);
CREATE INDEX IF NOT EXISTS idx_sessions_status ON sessions(status);
`

// isBusyLock reports whether err indicates SQLite database lock (SQLITE_BUSY).
func isBusyLock(err error) bool {
	if err == nil {
		return false
	}
	s := err.Error()
	return strings.Contains(s, "database is locked") || strings.Contains(s, "SQLITE_BUSY")
}

// retryOnBusy runs fn and retries on SQLITE_BUSY with exponential backoff.
func retryOnBusy(fn func() error) error {
	const maxAttempts = 4
	backoff := 25 * time.Millisecond
	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		lastErr = fn()
		if lastErr == nil || !isBusyLock(lastErr) {
			return lastErr
		}
		if attempt < maxAttempts-1 {
			time.Sleep(backoff)
			backoff *= 2
		}
	}
	return lastErr
}

// dsnWithPragmas returns a connection string with WAL, busy_timeout, and
// perf pragmas applied to every new connection.
func dsnWithPragmas(dbPath string) string {
	return dbPath + "?_pragma=busy_timeout(15000)" +
		"&_pragma=journal_mode(WAL)" +
		"&_pragma=synchronous(NORMAL)" +
		"&_pragma=temp_store(MEMORY)"
}

func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dsnWithPragmas(dbPath))
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// WAL allows concurrent readers plus a single writer.
	db.SetMaxOpenConns(4)
	db.SetMaxIdleConns(4)

	if _, err := db.Exec(createTableSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) CreateSession(sess *Session) error {
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`INSERT INTO sessions (id, owner_id, display_name, status, container_ref, volume_ref, created_at, updated_at, last_activity)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			sess.ID, sess.OwnerID, sess.DisplayName, sess.Status, nullable(sess.ContainerRef), sess.VolumeRef,
			sess.CreatedAt.UTC(), sess.UpdatedAt.UTC(), sess.LastActivity.UTC(),
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("inserting session: %w", err)
	}
	return nil
}

func (s *Store) GetSession(id string) (*Session, error) {
	row := s.db.QueryRow(
		`SELECT id, owner_id, display_name, status, container_ref, volume_ref, created_at, updated_at, last_activity
		 FROM sessions WHERE id = ?`, id,
	)
	return scanSession(row)
}

func (s *Store) ListForOwner(ownerID string) ([]*Session, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, display_name, status, container_ref, volume_ref, created_at, updated_at, last_activity
		 FROM sessions WHERE owner_id = ? ORDER BY created_at DESC`, ownerID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// ListIdleRunning returns running sessions whose last activity is at or
// before cutoff. Used by the reaper to suspend idle workspaces.
func (s *Store) ListIdleRunning(cutoff time.Time) ([]*Session, error) {
	rows, err := s.db.Query(
		`SELECT id, owner_id, display_name, status, container_ref, volume_ref, created_at, updated_at, last_activity
		 FROM sessions WHERE status = ? AND last_activity <= ?`,
		StatusRunning, cutoff.UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("listing idle sessions: %w", err)
	}
	defer rows.Close()
	return scanSessions(rows)
}

// UpdateStatusIf atomically moves a session from one of the given
// statuses to the target status. containerRef, when non-nil, replaces
// the stored container reference in the same statement ("" clears it).
// Matching no row yields ErrConflict: the compare-and-set is the
// linearization point for all lifecycle transitions on one session id.
func (s *Store) UpdateStatusIf(id string, from []string, to string, containerRef *string) error {
	if len(from) == 0 {
		return fmt.Errorf("update status: empty source status set")
	}

	placeholders := strings.Repeat("?,", len(from))
	placeholders = placeholders[:len(placeholders)-1]

	var query string
	args := []any{to, time.Now().UTC()}
	if containerRef != nil {
		query = `UPDATE sessions SET status = ?, updated_at = ?, container_ref = ? WHERE id = ? AND status IN (` + placeholders + `)`
		args = append(args, nullable(*containerRef))
	} else {
		query = `UPDATE sessions SET status = ?, updated_at = ? WHERE id = ? AND status IN (` + placeholders + `)`
	}
	args = append(args, id)
	for _, f := range from {
		args = append(args, f)
	}

	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(query, args...)
		return e
	})
	if err != nil {
		return fmt.Errorf("updating session status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: session %s", ErrConflict, id)
	}
	return nil
}

// TouchActivity records activity on a session (file op, exec, terminal
// traffic) for idle-suspend bookkeeping.
func (s *Store) TouchActivity(id string) error {
	err := retryOnBusy(func() error {
		_, e := s.db.Exec(
			`UPDATE sessions SET last_activity = ? WHERE id = ?`,
			time.Now().UTC(), id,
		)
		return e
	})
	if err != nil {
		return fmt.Errorf("touching session activity: %w", err)
	}
	return nil
}

// HardDelete removes the session row entirely. Soft deletes keep the
// row under StatusDeleted via UpdateStatusIf.
func (s *Store) HardDelete(id string) error {
	var result sql.Result
	err := retryOnBusy(func() error {
		var e error
		result, e = s.db.Exec(`DELETE FROM sessions WHERE id = ?`, id)
		return e
	})
	if err != nil {
		return fmt.Errorf("deleting session: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: session %s", ErrNotFound, id)
	}
	return nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

type scannable interface {
	Scan(dest ...any) error
}

func scanSession(row scannable) (*Session, error) {
	var sess Session
	var containerRef sql.NullString
	err := row.Scan(
		&sess.ID, &sess.OwnerID, &sess.DisplayName, &sess.Status,
		&containerRef, &sess.VolumeRef,
		&sess.CreatedAt, &sess.UpdatedAt, &sess.LastActivity,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scanning session: %w", err)
	}
	if containerRef.Valid {
		sess.ContainerRef = containerRef.String
	}
	return &sess, nil
}

func scanSessions(rows *sql.Rows) ([]*Session, error) {
	var sessions []*Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, sess)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating sessions: %w", err)
	}
	return sessions, nil
}

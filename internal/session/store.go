package session

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #region schema
const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id    TEXT PRIMARY KEY,
	created_at    TEXT NOT NULL,
	updated_at    TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS state_versions (
	version_id    TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	parent_id     TEXT,
	state_json    TEXT NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id),
	FOREIGN KEY (parent_id) REFERENCES state_versions(version_id)
);

CREATE TABLE IF NOT EXISTS active_state (
	session_id    TEXT PRIMARY KEY,
	version_id    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id),
	FOREIGN KEY (version_id) REFERENCES state_versions(version_id)
);

CREATE TABLE IF NOT EXISTS turn_log (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	session_id    TEXT NOT NULL,
	version_id    TEXT,
	intent        TEXT NOT NULL,
	outcome       TEXT NOT NULL,
	detail_json   TEXT,
	evidence_refs TEXT,
	duration_ms   INTEGER NOT NULL DEFAULT 0,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE INDEX IF NOT EXISTS idx_versions_session ON state_versions(session_id, created_at);
CREATE INDEX IF NOT EXISTS idx_turns_session ON turn_log(session_id, id);
`

// #endregion schema

// #region store-struct
// Store manages versioned per-session state in SQLite.
type Store struct {
	db *sql.DB
}

// #endregion store-struct

// #region constructor
// NewStore opens a SQLite database and runs migrations.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// sqlite allows a single writer
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use by other packages (e.g. logging).
func (s *Store) DB() *sql.DB {
	return s.db
}

// #endregion constructor

// #region create-session
// CreateSession registers a session. An empty id gets a fresh UUID; an
// existing id is left as is.
func (s *Store) CreateSession(id string) (string, error) {
	if id == "" {
		id = uuid.NewString()
	}
	now := time.Now().UTC().Format(time.RFC3339Nano)
	_, err := s.db.Exec(
		`INSERT INTO sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO NOTHING`,
		id, now, now,
	)
	if err != nil {
		return "", fmt.Errorf("create session: %w", err)
	}
	return id, nil
}

// #endregion create-session

// #region load
// Load reads a session's active state version. It returns ErrNotFound when
// the session has never committed a state.
func (s *Store) Load(sessionID string) (Record, error) {
	var versionID string
	err := s.db.QueryRow(`SELECT version_id FROM active_state WHERE session_id = ?`, sessionID).Scan(&versionID)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("session %s: %w", sessionID, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get active: %w", err)
	}
	return s.GetVersion(versionID)
}

// #endregion load

// #region get-version
// GetVersion retrieves a specific state version by ID.
func (s *Store) GetVersion(id string) (Record, error) {
	row := s.db.QueryRow(
		`SELECT version_id, session_id, parent_id, state_json, created_at
		 FROM state_versions WHERE version_id = ?`, id,
	)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("version %s: %w", id, ErrNotFound)
	}
	if err != nil {
		return Record{}, fmt.Errorf("get version %s: %w", id, err)
	}
	return rec, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (Record, error) {
	var rec Record
	var parentID sql.NullString
	var stateJSON, createdStr string
	if err := sc.Scan(&rec.VersionID, &rec.SessionID, &parentID, &stateJSON, &createdStr); err != nil {
		return Record{}, err
	}
	rec.ParentID = parentID.String
	if err := json.Unmarshal([]byte(stateJSON), &rec.Snapshot); err != nil {
		return Record{}, fmt.Errorf("unmarshal state: %w", err)
	}
	rec.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
	return rec, nil
}

// #endregion get-version

// #region commit
// Commit stores snap as a new version of the session's state, parented on
// the current active version, and moves the active pointer atomically.
func (s *Store) Commit(sessionID string, snap clinical.Snapshot) (Record, error) {
	data, err := json.Marshal(snap)
	if err != nil {
		return Record{}, fmt.Errorf("marshal state: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return Record{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	rec := Record{
		VersionID: uuid.NewString(),
		SessionID: sessionID,
		Snapshot:  snap,
		CreatedAt: now,
	}
	stamp := now.Format(time.RFC3339Nano)

	if _, err := tx.Exec(
		`INSERT INTO sessions (session_id, created_at, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET updated_at = excluded.updated_at`,
		sessionID, stamp, stamp,
	); err != nil {
		return Record{}, fmt.Errorf("touch session: %w", err)
	}

	var parent sql.NullString
	err = tx.QueryRow(`SELECT version_id FROM active_state WHERE session_id = ?`, sessionID).Scan(&parent)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return Record{}, fmt.Errorf("get active: %w", err)
	}
	rec.ParentID = parent.String

	var parentPtr interface{}
	if rec.ParentID != "" {
		parentPtr = rec.ParentID
	}
	if _, err := tx.Exec(
		`INSERT INTO state_versions (version_id, session_id, parent_id, state_json, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		rec.VersionID, sessionID, parentPtr, string(data), stamp,
	); err != nil {
		return Record{}, fmt.Errorf("insert version: %w", err)
	}

	if _, err := tx.Exec(
		`INSERT INTO active_state (session_id, version_id) VALUES (?, ?)
		 ON CONFLICT(session_id) DO UPDATE SET version_id = excluded.version_id`,
		sessionID, rec.VersionID,
	); err != nil {
		return Record{}, fmt.Errorf("set active: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return Record{}, fmt.Errorf("commit: %w", err)
	}
	return rec, nil
}

// #endregion commit

// #region rollback
// Rollback points the session at one of its earlier versions.
func (s *Store) Rollback(sessionID, targetVersionID string) error {
	var owner string
	err := s.db.QueryRow(
		`SELECT session_id FROM state_versions WHERE version_id = ?`, targetVersionID,
	).Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("version %s: %w", targetVersionID, ErrNotFound)
	}
	if err != nil {
		return fmt.Errorf("check version: %w", err)
	}
	if owner != sessionID {
		return fmt.Errorf("version %s belongs to session %s, not %s", targetVersionID, owner, sessionID)
	}

	_, err = s.db.Exec(`UPDATE active_state SET version_id = ? WHERE session_id = ?`, targetVersionID, sessionID)
	if err != nil {
		return fmt.Errorf("rollback: %w", err)
	}
	return nil
}

// #endregion rollback

// #region list-versions
// ListVersions returns a session's most recent state versions, newest first.
func (s *Store) ListVersions(sessionID string, limit int) ([]Record, error) {
	rows, err := s.db.Query(
		`SELECT version_id, session_id, parent_id, state_json, created_at
		 FROM state_versions WHERE session_id = ?
		 ORDER BY created_at DESC, rowid DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list versions: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

// #endregion list-versions

// #region list-sessions
// ListSessions returns the most recently updated sessions.
func (s *Store) ListSessions(limit int) ([]Info, error) {
	rows, err := s.db.Query(
		`SELECT s.session_id, COALESCE(a.version_id, ''), s.created_at, s.updated_at,
		        (SELECT COUNT(*) FROM state_versions v WHERE v.session_id = s.session_id),
		        (SELECT COUNT(*) FROM turn_log t WHERE t.session_id = s.session_id)
		 FROM sessions s LEFT JOIN active_state a ON a.session_id = s.session_id
		 ORDER BY s.updated_at DESC, s.rowid DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []Info
	for rows.Next() {
		var info Info
		var created, updated string
		if err := rows.Scan(&info.ID, &info.ActiveVersion, &created, &updated, &info.Versions, &info.Turns); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		info.CreatedAt, _ = time.Parse(time.RFC3339Nano, created)
		info.UpdatedAt, _ = time.Parse(time.RFC3339Nano, updated)
		out = append(out, info)
	}
	return out, rows.Err()
}

// #endregion list-sessions

package logging

import (
	"database/sql"
	"fmt"
	"time"
)

// #region log-turn
// LogTurn writes a turn entry to the turn_log table.
func LogTurn(db *sql.DB, entry TurnEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := db.Exec(
		`INSERT INTO turn_log (session_id, version_id, intent, outcome, detail_json, evidence_refs, duration_ms, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		nullIfEmpty(entry.VersionID),
		entry.Intent,
		entry.Outcome,
		nullIfEmpty(entry.DetailJSON),
		nullIfEmpty(entry.EvidenceRefs),
		entry.DurationMS,
		entry.CreatedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("log turn: %w", err)
	}
	return nil
}

// #endregion log-turn

// #region list-turns
// ListTurns returns the most recent turns for a session, newest first.
func ListTurns(db *sql.DB, sessionID string, limit int) ([]TurnEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, version_id, intent, outcome, detail_json, evidence_refs, duration_ms, created_at
		 FROM turn_log WHERE session_id = ? ORDER BY id DESC LIMIT ?`, sessionID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list turns: %w", err)
	}
	defer rows.Close()

	var entries []TurnEntry
	for rows.Next() {
		var e TurnEntry
		var versionID, detail, evidence sql.NullString
		var createdStr string
		if err := rows.Scan(&e.SessionID, &versionID, &e.Intent, &e.Outcome, &detail, &evidence, &e.DurationMS, &createdStr); err != nil {
			return nil, fmt.Errorf("scan turn: %w", err)
		}
		e.VersionID = versionID.String
		e.DetailJSON = detail.String
		e.EvidenceRefs = evidence.String
		e.CreatedAt, _ = time.Parse(time.RFC3339Nano, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// #endregion list-turns

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

// #endregion helpers

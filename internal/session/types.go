package session

import (
	"errors"
	"time"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/engine"
)

// ErrNotFound is returned when a session or version does not exist.
var ErrNotFound = errors.New("not found")

// ErrInvalidMerge wraps every merge_state validation failure.
var ErrInvalidMerge = errors.New("invalid merge_state")

// #region record
// Record is one persisted version of a session's clinical state.
type Record struct {
	VersionID string
	SessionID string
	ParentID  string
	Snapshot  clinical.Snapshot
	CreatedAt time.Time
}

// Info summarises a stored session.
type Info struct {
	ID            string
	ActiveVersion string
	Versions      int
	Turns         int
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// #endregion record

// #region result
// Result is what a caller gets back from one turn.
type Result struct {
	SessionID string
	VersionID string // new state version, empty when the state did not change
	Turn      engine.Turn
}

// #endregion result

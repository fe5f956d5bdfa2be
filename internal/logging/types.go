package logging

import "time"

// #region turn-entry
// TurnEntry is a single row in the turn_log table.
type TurnEntry struct {
	SessionID    string
	VersionID    string // state version after the turn; empty when unchanged
	Intent       string
	Outcome      string
	DetailJSON   string // TurnRecord
	EvidenceRefs string // comma-separated sources
	DurationMS   int64
	CreatedAt    time.Time
}

// #endregion turn-entry

// #region turn-record
// TurnRecord captures what a turn changed and computed.
// Serialized as JSON into turn_log.detail_json for replay and inspection.
type TurnRecord struct {
	Message   string             `json:"message"`
	Extracted map[string]float64 `json:"extracted,omitempty"`
	Filled    []string           `json:"filled,omitempty"`
	Fired     []string           `json:"fired,omitempty"`

	// Per-task scores, in configured task order
	Risks []TurnRisk `json:"risks,omitempty"`

	Merged []string `json:"merged,omitempty"` // fields set by a caller-provided merge
}

// TurnRisk is one task's score as logged.
type TurnRisk struct {
	Task        string  `json:"task"`
	Base        float64 `json:"base"`
	Probability float64 `json:"probability"`
}

// #endregion turn-record

package replay

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #region fixture-types

// Fixture is a recorded conversation with the expected outcome of each turn.
type Fixture struct {
	Description string             `json:"description"`
	StartState  map[string]float64 `json:"start_state"`
	Turns       []FixtureTurn      `json:"turns"`
	Expected    []Expectation      `json:"expected"`
}

// FixtureTurn is one user message, optionally with fields merged first.
type FixtureTurn struct {
	TurnID     string             `json:"turn_id"`
	Message    string             `json:"message"`
	MergeState map[string]float64 `json:"merge_state,omitempty"`
}

// Expectation lists what a turn must produce. Zero values are not checked.
type Expectation struct {
	TurnID        string             `json:"turn_id"`
	Intent        string             `json:"intent,omitempty"`
	Outcome       string             `json:"outcome,omitempty"`
	Fields        map[string]float64 `json:"fields,omitempty"`
	StateSize     *int               `json:"state_size,omitempty"`
	RiskLevel     string             `json:"risk_level,omitempty"`
	ReplyContains []string           `json:"reply_contains,omitempty"`
	Evidence      []string           `json:"evidence,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Expected) > 0 && len(f.Expected) != len(f.Turns) {
		return nil, fmt.Errorf("fixture %s: %d turns but %d expectations", path, len(f.Turns), len(f.Expected))
	}
	return &f, nil
}

// Start converts the start state, rejecting unknown field names.
func (f *Fixture) Start() (clinical.Snapshot, error) {
	snap := clinical.Snapshot{Fields: make(map[string]float64, len(f.StartState))}
	for name, v := range f.StartState {
		if _, err := clinical.ParseField(name); err != nil {
			return clinical.Snapshot{}, fmt.Errorf("start_state: %w", err)
		}
		snap.Fields[name] = v
	}
	return snap, nil
}

// Interactions converts the fixture turns to replay inputs.
func (f *Fixture) Interactions() ([]Interaction, error) {
	out := make([]Interaction, len(f.Turns))
	for i, t := range f.Turns {
		merge := make(clinical.Extraction, len(t.MergeState))
		for name, v := range t.MergeState {
			field, err := clinical.ParseField(name)
			if err != nil {
				return nil, fmt.Errorf("turn %s merge_state: %w", t.TurnID, err)
			}
			merge[field] = v
		}
		out[i] = Interaction{TurnID: t.TurnID, Message: t.Message, Merge: merge}
	}
	return out, nil
}

// #endregion fixture-loader

package clinical

import "sort"

// #region state

// State is the accumulated clinical record for one conversation.
// Unset fields are absent. Not safe for concurrent use.
type State struct {
	values map[Field]float64

	// InferredTriage is set when IMMEDR was derived rather than stated.
	InferredTriage bool
}

// NewState returns an empty state.
func NewState() *State {
	return &State{values: make(map[Field]float64)}
}

// #endregion state

// #region accessors

// Get returns the value of f and whether it is set.
func (s *State) Get(f Field) (float64, bool) {
	v, ok := s.values[f]
	return v, ok
}

// Has reports whether f is set.
func (s *State) Has(f Field) bool {
	_, ok := s.values[f]
	return ok
}

// Flag reports whether condition flag f is present and set to 1.
func (s *State) Flag(f Field) bool {
	v, ok := s.values[f]
	return ok && v == 1.0
}

// Set writes f unconditionally.
func (s *State) Set(f Field, v float64) {
	if s.values == nil {
		s.values = make(map[Field]float64)
	}
	s.values[f] = v
}

// Fill writes f only if it is absent. Returns true if written.
func (s *State) Fill(f Field, v float64) bool {
	if s.Has(f) {
		return false
	}
	s.Set(f, v)
	return true
}

// Merge overwrites state fields with every key in e.
// An explicit IMMEDR replaces an inferred one and clears the flag.
func (s *State) Merge(e Extraction) {
	for f, v := range e {
		s.Set(f, v)
	}
	if _, ok := e[Triage]; ok {
		s.InferredTriage = false
	}
}

// Clear drops every value and flag.
func (s *State) Clear() {
	s.values = make(map[Field]float64)
	s.InferredTriage = false
}

// Len returns the number of set fields.
func (s *State) Len() int {
	return len(s.values)
}

// Empty reports whether no field is set.
func (s *State) Empty() bool {
	return len(s.values) == 0
}

// ActiveConditions returns the set condition flags in display order.
func (s *State) ActiveConditions() []Field {
	var out []Field
	for _, f := range conditionFields {
		if s.Flag(f) {
			out = append(out, f)
		}
	}
	return out
}

// #endregion accessors

// #region snapshot

// Snapshot is the persisted form of a State.
type Snapshot struct {
	Fields         map[string]float64 `json:"fields"`
	InferredTriage bool               `json:"inferred_triage"`
}

// Snapshot copies the state into its persisted form.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Fields:         make(map[string]float64, len(s.values)),
		InferredTriage: s.InferredTriage,
	}
	for f, v := range s.values {
		snap.Fields[string(f)] = v
	}
	return snap
}

// Restore replaces the state with snap. Unknown field names are skipped
// and returned so callers can log them.
func (s *State) Restore(snap Snapshot) []string {
	s.Clear()
	var unknown []string
	for name, v := range snap.Fields {
		f, err := ParseField(name)
		if err != nil {
			unknown = append(unknown, name)
			continue
		}
		s.values[f] = v
	}
	s.InferredTriage = snap.InferredTriage
	sortStrings(unknown)
	return unknown
}

// Equal reports whether two states hold the same values and flags.
func (s *State) Equal(other *State) bool {
	if s.InferredTriage != other.InferredTriage || len(s.values) != len(other.values) {
		return false
	}
	for f, v := range s.values {
		if ov, ok := other.values[f]; !ok || ov != v {
			return false
		}
	}
	return true
}

// Clone returns an independent copy.
func (s *State) Clone() *State {
	c := NewState()
	for f, v := range s.values {
		c.values[f] = v
	}
	c.InferredTriage = s.InferredTriage
	return c
}

// #endregion snapshot

func sortStrings(s []string) { sort.Strings(s) }

package clinical

import "testing"

func TestStateMergeLaterWins(t *testing.T) {
	s := NewState()
	s.Merge(Extraction{Age: 60, Pulse: 90})
	s.Merge(Extraction{Age: 72})

	if v, _ := s.Get(Age); v != 72 {
		t.Errorf("AGE: got %v, want 72", v)
	}
	if v, _ := s.Get(Pulse); v != 90 {
		t.Errorf("PULSE: got %v, want 90", v)
	}
}

func TestStateFillNeverOverwrites(t *testing.T) {
	s := NewState()
	s.Set(Triage, 4)
	if s.Fill(Triage, 2) {
		t.Fatal("Fill should not overwrite an existing value")
	}
	if v, _ := s.Get(Triage); v != 4 {
		t.Errorf("IMMEDR: got %v, want 4", v)
	}
	if !s.Fill(Seen72, 1) {
		t.Fatal("Fill should write an absent value")
	}
}

func TestStateExplicitTriageClearsInferredFlag(t *testing.T) {
	s := NewState()
	s.Set(Triage, 2)
	s.InferredTriage = true

	s.Merge(Extraction{Triage: 4})
	if s.InferredTriage {
		t.Error("explicit triage should clear the inferred flag")
	}
}

func TestStateClear(t *testing.T) {
	s := NewState()
	s.Merge(Extraction{Age: 50, COPD: 1})
	s.InferredTriage = true
	s.Clear()

	if !s.Empty() {
		t.Fatalf("expected empty state, got %d fields", s.Len())
	}
	if s.InferredTriage {
		t.Error("flag should be cleared")
	}
}

func TestSnapshotRoundTripSkipsUnknown(t *testing.T) {
	s := NewState()
	s.Merge(Extraction{Age: 81, CHF: 1, PriorED30d: 2})
	s.InferredTriage = true

	snap := s.Snapshot()
	snap.Fields["BOGUS"] = 3

	r := NewState()
	unknown := r.Restore(snap)
	if len(unknown) != 1 || unknown[0] != "BOGUS" {
		t.Fatalf("unknown: got %v, want [BOGUS]", unknown)
	}
	if !r.Equal(s) {
		t.Errorf("restored state differs: %+v vs %+v", r.Snapshot(), s.Snapshot())
	}
}

func TestActiveConditionsDisplayOrder(t *testing.T) {
	s := NewState()
	s.Merge(Extraction{Injury: 1, CHF: 1, COPD: 1, HTN: 0})

	got := s.ActiveConditions()
	want := []Field{COPD, CHF, Injury}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("index %d: got %s, want %s", i, got[i], want[i])
		}
	}
}

func TestParseField(t *testing.T) {
	tests := []struct {
		name    string
		wantErr bool
	}{
		{"AGE", false},
		{"prior_ed_30d", false},
		{"DIABTYP2", false},
		{"SEEN72", false},
		{"age", true},
		{"CONDITIONS", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseField(tt.name)
			if (err != nil) != tt.wantErr {
				t.Errorf("ParseField(%q): err=%v, wantErr=%v", tt.name, err, tt.wantErr)
			}
		})
	}
}

func TestLabel(t *testing.T) {
	if got := Label(CHF); got != "Heart Failure (CHF)" {
		t.Errorf("got %q", got)
	}
	if got := Label(Triage); got != "Triage acuity (ESI)" {
		t.Errorf("got %q", got)
	}
	if got := Label(Seen72); got != "SEEN72" {
		t.Errorf("got %q", got)
	}
}

package replay

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/retrieval"
)

// #region helpers

var kb = []retrieval.Document{
	{Source: "copd.md", Text: "# COPD\nCOPD patients with high risk of readmission need inhaler review and pulmonary follow-up within 7 days."},
	{Source: "discharge.md", Text: "# Discharge planning\nDischarge planning best practices include medication reconciliation and scheduled follow-up calls."},
	{Source: "elderly.md", Text: "# Elderly patients\nElderly patient revisits fall when home care and fall-risk screening are arranged."},
}

// replayEngine builds an engine over the shared model fixture and a small KB.
func replayEngine(t *testing.T) *engine.Engine {
	t.Helper()
	dir := t.TempDir()
	data, err := os.ReadFile(filepath.Join("..", "risk", "testdata", "readmission_model.json"))
	if err != nil {
		t.Fatalf("read model fixture: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "readmission_model.json"), data, 0o644); err != nil {
		t.Fatal(err)
	}
	idx, err := retrieval.BuildLexical(kb, 0)
	if err != nil {
		t.Fatal(err)
	}
	if err := idx.Save(filepath.Join(dir, "kb_index.json")); err != nil {
		t.Fatal(err)
	}

	cfg := engine.DefaultConfig()
	cfg.ArtifactDir = dir
	e, err := engine.New(cfg, engine.Deps{Embedder: embed.Nop{}})
	if err != nil {
		t.Fatalf("engine.New: %v", err)
	}
	return e
}

func runFixture(t *testing.T, name string) ([]Result, Summary) {
	t.Helper()
	f, err := LoadFixture(filepath.Join("testdata", name))
	if err != nil {
		t.Fatalf("LoadFixture: %v", err)
	}
	results, sum, mismatches, err := Run(context.Background(), replayEngine(t), f)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	for _, m := range mismatches {
		t.Errorf("%s", m)
	}
	return results, sum
}

// #endregion helpers

// #region fixture-tests

// TestFixture_AssessSession is the main regression baseline: if extraction,
// inference, scoring or routing drift, a turn's expectation breaks.
func TestFixture_AssessSession(t *testing.T) {
	results, sum := runFixture(t, "assess_session.json")
	if len(results) != 5 {
		t.Fatalf("expected 5 results, got %d", len(results))
	}
	if sum.Assessed != 2 || sum.Answered != 1 || sum.Fixed != 2 || sum.Degraded != 0 {
		t.Errorf("summary: %+v", sum)
	}
	// t2 populates, t3 updates, t5 clears
	if sum.StateChanges != 3 {
		t.Errorf("state changes: got %d, want 3", sum.StateChanges)
	}
	if len(sum.FinalState.Fields) != 0 {
		t.Errorf("final state should be empty after reset: %v", sum.FinalState.Fields)
	}
}

func TestFixture_ResumedSession(t *testing.T) {
	results, sum := runFixture(t, "resumed_session.json")
	if results[0].Risk == nil || results[1].Risk == nil {
		t.Fatal("both turns should be scored")
	}
	// r1 gains inferred fields, r2 the merged flag
	if sum.StateChanges != 2 {
		t.Errorf("state changes: got %d, want 2", sum.StateChanges)
	}
	if _, ok := results[0].Fields["IMMEDR"]; !ok {
		t.Errorf("triage should be inferred on re-score: %v", results[0].Fields)
	}
	if sum.FinalState.Fields["AGE"] != 80 {
		t.Errorf("start state lost: %v", sum.FinalState.Fields)
	}
}

// TestLoadFixture_NotFound verifies error on missing file.
func TestLoadFixture_NotFound(t *testing.T) {
	_, err := LoadFixture("testdata/nonexistent.json")
	if err == nil {
		t.Fatal("expected error for missing file, got nil")
	}
}

// TestLoadFixture_Malformed verifies error on invalid JSON.
func TestLoadFixture_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(path, []byte("{not valid json}"), 0644); err != nil {
		t.Fatalf("write temp file: %v", err)
	}

	_, err := LoadFixture(path)
	if err == nil {
		t.Fatal("expected error for malformed JSON, got nil")
	}
}

func TestLoadFixture_CountMismatch(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "short.json")
	body := `{"turns":[{"turn_id":"a","message":"hi"},{"turn_id":"b","message":"hi"}],"expected":[{"turn_id":"a"}]}`
	if err := os.WriteFile(path, []byte(body), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadFixture(path); err == nil {
		t.Fatal("expected error for turn/expectation count mismatch")
	}
}

func TestFixture_UnknownFields(t *testing.T) {
	f := &Fixture{StartState: map[string]float64{"HEIGHT": 180}}
	if _, err := f.Start(); err == nil {
		t.Error("unknown start_state field accepted")
	}
	f = &Fixture{Turns: []FixtureTurn{{TurnID: "a", MergeState: map[string]float64{"HEIGHT": 1}}}}
	if _, err := f.Interactions(); err == nil {
		t.Error("unknown merge_state field accepted")
	}
}

// #endregion fixture-tests

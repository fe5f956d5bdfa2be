package engine

import (
	"context"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/compose"
	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/intent"
	"github.com/ofeng1/datathon/internal/retrieval"
)

const scenario = "72 year old male with COPD and CHF, temp 101.2, BP 135/85, pulse 110, pain 8/10"

var kb = []retrieval.Document{
	{Source: "copd.md", Text: "# COPD\nCOPD patients with high risk of readmission need inhaler review and pulmonary follow-up within 7 days."},
	{Source: "discharge.md", Text: "# Discharge planning\nDischarge planning best practices include medication reconciliation and scheduled follow-up calls."},
	{Source: "elderly.md", Text: "# Elderly patients\nElderly patient revisits fall when home care and fall-risk screening are arranged."},
}

const statsDoc = `{"regions":[],"conditions":[
	{"id":"COPD","name":"COPD","n_visits":733,"pct_72h_revisit":8.0,"pct_admitted":30.15}
],"national":{"n_visits":1000,"pct_72h_revisit":5.0,"pct_admitted":12.0}}`

// #region helpers

type artifacts struct {
	model bool
	index bool
	stats bool
}

func testEngine(t *testing.T, a artifacts) *Engine {
	t.Helper()
	dir := t.TempDir()
	if a.model {
		data, err := os.ReadFile(filepath.Join("..", "risk", "testdata", "readmission_model.json"))
		if err != nil {
			t.Fatalf("read model fixture: %v", err)
		}
		if err := os.WriteFile(filepath.Join(dir, "readmission_model.json"), data, 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if a.index {
		idx, err := retrieval.BuildLexical(kb, 0)
		if err != nil {
			t.Fatal(err)
		}
		if err := idx.Save(filepath.Join(dir, "kb_index.json")); err != nil {
			t.Fatal(err)
		}
	}
	if a.stats {
		if err := os.WriteFile(filepath.Join(dir, "stats.json"), []byte(statsDoc), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	cfg := DefaultConfig()
	cfg.ArtifactDir = dir
	e, err := New(cfg, Deps{Embedder: embed.Nop{}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return e
}

func full(t *testing.T) *Engine {
	return testEngine(t, artifacts{model: true, index: true, stats: true})
}

// #endregion helpers

// #region construction-tests

func TestNewStatus(t *testing.T) {
	st := full(t).Status()
	if !slices.Equal(st.ModelsLoaded, []string{"readmission"}) || len(st.ModelsMissing) != 0 {
		t.Errorf("models: %+v", st)
	}
	if st.IndexBackend != retrieval.BackendLexical || !st.StatsLoaded || !st.Ready() {
		t.Errorf("status: %+v", st)
	}

	st = testEngine(t, artifacts{}).Status()
	if len(st.ModelsLoaded) != 0 || !slices.Equal(st.ModelsMissing, []string{"readmission"}) {
		t.Errorf("degraded models: %+v", st)
	}
	if st.IndexBackend != retrieval.BackendNone || st.StatsLoaded || st.Ready() {
		t.Errorf("degraded status: %+v", st)
	}
}

func TestNewCorruptModelFails(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "readmission_model.json"), []byte("{"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg := DefaultConfig()
	cfg.ArtifactDir = dir
	if _, err := New(cfg, Deps{}); err == nil {
		t.Error("expected error for corrupt model")
	}
}

// #endregion construction-tests

// #region fixed-reply-tests

func TestFixedReplies(t *testing.T) {
	e := full(t)
	tests := []struct {
		msg     string
		intent  intent.Intent
		outcome Outcome
		reply   string
	}{
		{"hello", intent.Greeting, OutcomeGreeting, compose.Greeting},
		{"", intent.Help, OutcomeHelp, compose.Help},
		{"help", intent.Help, OutcomeHelp, compose.Help},
	}
	for _, tt := range tests {
		t.Run(tt.msg, func(t *testing.T) {
			s := clinical.NewState()
			turn := e.Respond(context.Background(), s, tt.msg)
			if turn.Intent != tt.intent || turn.Outcome != tt.outcome || turn.Reply != tt.reply {
				t.Errorf("got (%s, %s, %q)", turn.Intent, turn.Outcome, turn.Reply)
			}
			if !s.Empty() {
				t.Error("fixed replies must not touch state")
			}
		})
	}
}

func TestReset(t *testing.T) {
	e := full(t)
	s := clinical.NewState()
	e.Respond(context.Background(), s, scenario)
	if s.Empty() {
		t.Fatal("scenario should populate state")
	}
	turn := e.Respond(context.Background(), s, "new patient")
	if turn.Outcome != OutcomeReset || turn.Reply != compose.ResetDone {
		t.Errorf("got %s %q", turn.Outcome, turn.Reply)
	}
	if !s.Empty() || s.InferredTriage {
		t.Error("reset should clear values and the inferred flag")
	}
}

// #endregion fixed-reply-tests

// #region assess-tests

func TestAssessScenario(t *testing.T) {
	e := full(t)
	s := clinical.NewState()
	turn := e.Respond(context.Background(), s, scenario)

	if turn.Intent != intent.Assess || turn.Outcome != OutcomeAssessed {
		t.Fatalf("got %s/%s: %q", turn.Intent, turn.Outcome, turn.Reply)
	}
	if v, _ := s.Get(clinical.Triage); v != 2 || !s.InferredTriage {
		t.Errorf("IMMEDR %v inferred=%v", v, s.InferredTriage)
	}
	if !slices.Contains(turn.Filled, clinical.Triage) || !slices.Contains(turn.Filled, clinical.Seen72) {
		t.Errorf("filled %v", turn.Filled)
	}
	if len(turn.Risks) != 1 || turn.Risks[0].Task != "readmission" {
		t.Fatalf("risks %+v", turn.Risks)
	}
	if r := turn.Risks[0]; r.Probability <= r.Base || r.Probability > 1 {
		t.Errorf("adjustment should raise this patient's risk: %+v", r)
	}

	for _, want := range []string{
		"### Patient Summary\n",
		"- **Triage acuity (ESI):** 2 — Emergent *(inferred)*",
		"**Conditions:** COPD, Heart Failure (CHF)",
		"### Readmission Risk: **",
		"— **High**",
		"- **COPD:** 8.0% 72-hour ED revisit rate, 30.15% admitted (NHAMCS sample).",
		"- **Heart Failure (CHF):** (no aggregate stats in this dataset)",
		"### Recommendations\n",
	} {
		if !strings.Contains(turn.Reply, want) {
			t.Errorf("reply missing %q:\n%s", want, turn.Reply)
		}
	}
	if !strings.HasSuffix(turn.Reply, "\n---\n*Update values (e.g. \"change pain to 3\"), ask a clinical question, or type **new patient** to start over.*") {
		t.Errorf("reply footer:\n%s", turn.Reply)
	}
	if len(turn.Evidence) == 0 || turn.Evidence[0] != "copd.md" {
		t.Errorf("evidence %v", turn.Evidence)
	}
}

func TestAssessIsDeterministic(t *testing.T) {
	e := full(t)
	a := e.Respond(context.Background(), clinical.NewState(), scenario)
	b := e.Respond(context.Background(), clinical.NewState(), scenario)
	if a.Reply != b.Reply {
		t.Error("same input produced different replies")
	}
}

func TestUpdateMergesIntoState(t *testing.T) {
	e := full(t)
	s := clinical.NewState()
	e.Respond(context.Background(), s, scenario)

	turn := e.Respond(context.Background(), s, "change age to 60")
	if turn.Intent != intent.Update || turn.Outcome != OutcomeAssessed {
		t.Fatalf("got %s/%s", turn.Intent, turn.Outcome)
	}
	if v, _ := s.Get(clinical.Age); v != 60 {
		t.Errorf("AGE %v, want 60", v)
	}
	if v, _ := s.Get(clinical.Pulse); v != 110 {
		t.Errorf("PULSE %v should survive the update", v)
	}
	if !strings.Contains(turn.Reply, "- **Age:** 60") {
		t.Errorf("summary not refreshed:\n%s", turn.Reply)
	}
}

func TestAssessNoExtraction(t *testing.T) {
	e := full(t)
	s := clinical.NewState()
	turn := e.Respond(context.Background(), s, "predict risk please")
	if turn.Intent != intent.Assess || turn.Outcome != OutcomeNoExtraction || turn.Reply != compose.NoExtraction {
		t.Errorf("got %s/%s %q", turn.Intent, turn.Outcome, turn.Reply)
	}

	// With prior state the same message re-scores instead.
	e.Respond(context.Background(), s, scenario)
	if turn = e.Respond(context.Background(), s, "predict risk please"); turn.Outcome != OutcomeAssessed {
		t.Errorf("with state: %s", turn.Outcome)
	}
}

func TestAssessModelsUnavailable(t *testing.T) {
	e := testEngine(t, artifacts{index: true})
	s := clinical.NewState()
	turn := e.Respond(context.Background(), s, scenario)
	if turn.Outcome != OutcomeModelsUnavailable || turn.Reply != compose.ModelsUnavailable {
		t.Errorf("got %s %q", turn.Outcome, turn.Reply)
	}
	if v, _ := s.Get(clinical.Age); v != 72 {
		t.Error("state should still be merged")
	}
}

func TestAssessWithoutKnowledgeBase(t *testing.T) {
	e := testEngine(t, artifacts{model: true})
	turn := e.Respond(context.Background(), clinical.NewState(), scenario)
	if turn.Outcome != OutcomeAssessed {
		t.Fatalf("outcome %s", turn.Outcome)
	}
	if strings.Contains(turn.Reply, "### Recommendations") || len(turn.Evidence) != 0 {
		t.Errorf("recommendations without a KB:\n%s", turn.Reply)
	}
	if !strings.Contains(turn.Reply, "- **COPD:** (no aggregate stats in this dataset)") {
		t.Errorf("missing stats should render the fallback line:\n%s", turn.Reply)
	}
}

// #endregion assess-tests

// #region ask-tests

func TestAsk(t *testing.T) {
	e := full(t)
	turn := e.Respond(context.Background(), clinical.NewState(), "What are discharge planning best practices?")
	if turn.Intent != intent.Ask || turn.Outcome != OutcomeAnswered {
		t.Fatalf("got %s/%s", turn.Intent, turn.Outcome)
	}
	if !strings.HasPrefix(turn.Reply, "### Knowledge Base Results\n\nDischarge planning best practices") {
		t.Errorf("reply:\n%s", turn.Reply)
	}
	if turn.Evidence[0] != "discharge.md" {
		t.Errorf("evidence %v", turn.Evidence)
	}
}

func TestAskNothingRelevant(t *testing.T) {
	turn := full(t).Respond(context.Background(), clinical.NewState(), "What is the weather on mars?")
	if turn.Outcome != OutcomeNothingRelevant || turn.Reply != compose.NothingRelevant {
		t.Errorf("got %s %q", turn.Outcome, turn.Reply)
	}
}

func TestAskWithoutKnowledgeBase(t *testing.T) {
	turn := testEngine(t, artifacts{model: true}).Respond(context.Background(), clinical.NewState(), "What are discharge planning best practices?")
	if turn.Outcome != OutcomeKBUnavailable || turn.Reply != compose.KnowledgeUnavailable {
		t.Errorf("got %s %q", turn.Outcome, turn.Reply)
	}
}

// #endregion ask-tests

func TestParseForm(t *testing.T) {
	parsed, summary := full(t).ParseForm("Age: 67  Sex: M\nPULSE: 118\nSIGNIFICANT MEDICAL HISTORY: COPD\nPHYSICAL FINDINGS: none")
	if parsed[clinical.Age] != 67 || parsed[clinical.Pulse] != 118 || parsed[clinical.COPD] != 1 {
		t.Errorf("parsed %v", parsed)
	}
	if !strings.HasPrefix(summary, "### Patient Summary") || !strings.Contains(summary, "**Conditions:** COPD") {
		t.Errorf("summary:\n%s", summary)
	}
}

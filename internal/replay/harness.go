package replay

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/compose"
	"github.com/ofeng1/datathon/internal/engine"
	"github.com/ofeng1/datathon/internal/risk"
)

// #region types

// Responder runs one turn against a state.
type Responder interface {
	Respond(ctx context.Context, s *clinical.State, msg string) engine.Turn
}

// Interaction is a single recorded turn for replay.
type Interaction struct {
	TurnID  string
	Message string
	Merge   clinical.Extraction
}

// Result captures one replayed turn.
type Result struct {
	TurnID   string
	Intent   string
	Outcome  string
	Reply    string
	Fields   map[string]float64 // state after the turn
	Risk     *risk.Result       // highest task probability, nil when unscored
	Level    compose.Level
	Changed  bool
	Evidence []string
}

// Summary aggregates a replay run.
type Summary struct {
	TotalTurns   int
	Assessed     int
	Answered     int
	Fixed        int // greeting, help, reset
	Degraded     int // no extraction, missing models or KB, nothing relevant
	StateChanges int
	FinalState   clinical.Snapshot
}

// Mismatch is one failed expectation.
type Mismatch struct {
	TurnID string
	Check  string
	Want   string
	Got    string
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s %s: want %s, got %s", m.TurnID, m.Check, m.Want, m.Got)
}

// #endregion types

// #region replay

// Replay runs interactions in order against one state seeded from start.
// Operates entirely in memory.
func Replay(ctx context.Context, r Responder, start clinical.Snapshot, interactions []Interaction) ([]Result, clinical.Snapshot) {
	s := clinical.NewState()
	s.Restore(start)
	results := make([]Result, 0, len(interactions))

	for _, inter := range interactions {
		before := s.Clone()
		s.Merge(inter.Merge)
		turn := r.Respond(ctx, s, inter.Message)

		res := Result{
			TurnID:   inter.TurnID,
			Intent:   string(turn.Intent),
			Outcome:  string(turn.Outcome),
			Reply:    turn.Reply,
			Fields:   s.Snapshot().Fields,
			Changed:  !before.Equal(s),
			Evidence: turn.Evidence,
		}
		if best, ok := risk.Max(turn.Risks); ok {
			res.Risk = &best
			res.Level = compose.Bucket(best.Probability)
		}
		results = append(results, res)
	}
	return results, s.Snapshot()
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []Result, final clinical.Snapshot) Summary {
	sum := Summary{TotalTurns: len(results), FinalState: final}
	for _, r := range results {
		switch engine.Outcome(r.Outcome) {
		case engine.OutcomeAssessed:
			sum.Assessed++
		case engine.OutcomeAnswered:
			sum.Answered++
		case engine.OutcomeGreeting, engine.OutcomeHelp, engine.OutcomeReset:
			sum.Fixed++
		default:
			sum.Degraded++
		}
		if r.Changed {
			sum.StateChanges++
		}
	}
	return sum
}

// Run replays a fixture and checks it against its expectations.
func Run(ctx context.Context, r Responder, f *Fixture) ([]Result, Summary, []Mismatch, error) {
	start, err := f.Start()
	if err != nil {
		return nil, Summary{}, nil, err
	}
	interactions, err := f.Interactions()
	if err != nil {
		return nil, Summary{}, nil, err
	}
	results, final := Replay(ctx, r, start, interactions)
	return results, Summarize(results, final), Check(results, f.Expected), nil
}

// #endregion replay

// #region check

// Check compares results with expectations position by position.
func Check(results []Result, expected []Expectation) []Mismatch {
	var out []Mismatch
	if len(expected) == 0 {
		return nil
	}
	if len(results) != len(expected) {
		return []Mismatch{{Check: "turns", Want: fmt.Sprint(len(expected)), Got: fmt.Sprint(len(results))}}
	}
	for i, exp := range expected {
		got := results[i]
		miss := func(check, want, have string) {
			out = append(out, Mismatch{TurnID: got.TurnID, Check: check, Want: want, Got: have})
		}
		if exp.TurnID != "" && exp.TurnID != got.TurnID {
			miss("turn_id", exp.TurnID, got.TurnID)
		}
		if exp.Intent != "" && exp.Intent != got.Intent {
			miss("intent", exp.Intent, got.Intent)
		}
		if exp.Outcome != "" && exp.Outcome != got.Outcome {
			miss("outcome", exp.Outcome, got.Outcome)
		}
		for _, name := range slices.Sorted(maps.Keys(exp.Fields)) {
			want := exp.Fields[name]
			v, ok := got.Fields[name]
			switch {
			case !ok:
				miss(name, compose.FormatNumber(want), "absent")
			case v != want:
				miss(name, compose.FormatNumber(want), compose.FormatNumber(v))
			}
		}
		if exp.StateSize != nil && *exp.StateSize != len(got.Fields) {
			miss("state_size", fmt.Sprint(*exp.StateSize), fmt.Sprint(len(got.Fields)))
		}
		if exp.RiskLevel != "" && exp.RiskLevel != string(got.Level) {
			have := string(got.Level)
			if got.Risk == nil {
				have = "unscored"
			}
			miss("risk_level", exp.RiskLevel, have)
		}
		for _, sub := range exp.ReplyContains {
			if !strings.Contains(got.Reply, sub) {
				miss("reply", fmt.Sprintf("%q", sub), "missing")
			}
		}
		for _, src := range exp.Evidence {
			if !slices.Contains(got.Evidence, src) {
				miss("evidence", src, strings.Join(got.Evidence, ","))
			}
		}
	}
	return out
}

// #endregion check

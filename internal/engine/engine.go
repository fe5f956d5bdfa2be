package engine

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/compose"
	"github.com/ofeng1/datathon/internal/extract"
	"github.com/ofeng1/datathon/internal/inference"
	"github.com/ofeng1/datathon/internal/intent"
	"github.com/ofeng1/datathon/internal/metrics"
	"github.com/ofeng1/datathon/internal/retrieval"
	"github.com/ofeng1/datathon/internal/risk"
	"github.com/ofeng1/datathon/internal/stats"
)

// #region engine

// Engine turns one message plus the caller's state into a reply. Its
// artifacts are read-only after New, so one Engine may serve many sessions
// as long as each State is used by one goroutine at a time.
type Engine struct {
	pipeline *extract.Pipeline
	scorer   *risk.Scorer
	fusion   *retrieval.Fusion
	stats    *stats.Document
	status   Status
	logger   *slog.Logger
}

// New loads models, the knowledge index and the stats document. Missing
// artifacts degrade the engine and are recorded in Status; artifacts that
// exist but cannot be read are errors.
func New(cfg Config, deps Deps) (*Engine, error) {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	pipeline := deps.Pipeline
	if pipeline == nil {
		pipeline = extract.DefaultPipeline()
	}

	scorer, err := risk.NewScorer(cfg.ArtifactDir, cfg.Tasks, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	rcfg := cfg.Retrieval
	rcfg.DenseDir = artifactPath(cfg.ArtifactDir, rcfg.DenseDir)
	rcfg.LexicalFile = artifactPath(cfg.ArtifactDir, rcfg.LexicalFile)
	strategy, err := retrieval.Open(rcfg, deps.Embedder, logger)
	if err != nil {
		return nil, fmt.Errorf("engine: %w", err)
	}

	statsFile := cfg.StatsFile
	if statsFile == "" {
		statsFile = stats.FileName
	}
	doc := stats.Load(artifactPath(cfg.ArtifactDir, statsFile), logger)

	ms := scorer.Status()
	e := &Engine{
		pipeline: pipeline,
		scorer:   scorer,
		fusion:   retrieval.NewFusion(strategy, rcfg, logger),
		stats:    doc,
		status: Status{
			ModelsLoaded:  ms.Loaded,
			ModelsMissing: ms.Missing,
			IndexBackend:  strategy.Backend(),
			StatsLoaded:   doc.Loaded(),
		},
		logger: logger.With("component", "engine"),
	}
	e.logger.Info("engine ready",
		"models", e.status.ModelsLoaded, "missing", e.status.ModelsMissing,
		"index", e.status.IndexBackend, "stats", e.status.StatsLoaded)
	return e, nil
}

// artifactPath resolves a relative artifact name against dir.
func artifactPath(dir, name string) string {
	if name == "" || filepath.IsAbs(name) || dir == "" {
		return name
	}
	return filepath.Join(dir, name)
}

// Status reports what loaded at construction.
func (e *Engine) Status() Status { return e.status }

// Stats returns the loaded stats document.
func (e *Engine) Stats() *stats.Document { return e.stats }

// #endregion engine

// #region respond

// Respond classifies msg and runs the matching handler against s.
func (e *Engine) Respond(ctx context.Context, s *clinical.State, msg string) Turn {
	start := time.Now()
	in := intent.Classify(msg)

	var t Turn
	switch in {
	case intent.Greeting:
		t = Turn{Outcome: OutcomeGreeting, Reply: compose.Greeting}
	case intent.Help:
		t = Turn{Outcome: OutcomeHelp, Reply: compose.Help}
	case intent.Reset:
		s.Clear()
		t = Turn{Outcome: OutcomeReset, Reply: compose.ResetDone}
	case intent.Assess, intent.Update:
		t = e.assess(ctx, s, msg)
	default:
		t = e.ask(ctx, msg)
	}

	t.Intent = in
	t.Duration = time.Since(start)
	metrics.RecordTurn(string(in), string(t.Outcome), t.Duration)
	e.logger.Debug("turn",
		"intent", in, "outcome", t.Outcome, "extracted", len(t.Extracted),
		"filled", len(t.Filled), "evidence", len(t.Evidence), "duration", t.Duration)
	return t
}

// #endregion respond

// #region ask

func (e *Engine) ask(ctx context.Context, msg string) Turn {
	if !e.fusion.Available() {
		return Turn{Outcome: OutcomeKBUnavailable, Reply: compose.KnowledgeUnavailable}
	}
	cfg := e.fusion.Config()
	hits := e.retrieve(ctx, "ask", msg, cfg.AskThreshold, cfg.AskExcerptChars)
	if len(hits) == 0 {
		return Turn{Outcome: OutcomeNothingRelevant, Reply: compose.NothingRelevant}
	}
	return Turn{
		Outcome:  OutcomeAnswered,
		Reply:    compose.KnowledgeResults(hits),
		Evidence: sources(hits),
	}
}

// retrieve runs the gated pipeline. Search failures are logged and treated
// as no evidence.
func (e *Engine) retrieve(ctx context.Context, purpose, query string, threshold float64, maxChars int) []retrieval.Hit {
	res, err := e.fusion.Retrieve(ctx, query, threshold, maxChars)
	if err != nil {
		e.logger.Warn("retrieval failed", "purpose", purpose, "error", err)
		return nil
	}
	metrics.RecordRetrieval(e.fusion.Backend(), purpose, len(res.Retrieved))
	e.logger.Debug("retrieval", "purpose", purpose, "reason", res.Reason)
	return res.Retrieved
}

func sources(hits []retrieval.Hit) []string {
	out := make([]string, len(hits))
	for i, h := range hits {
		out[i] = h.Source
	}
	return out
}

// #endregion ask

// #region assess

func (e *Engine) assess(ctx context.Context, s *clinical.State, msg string) Turn {
	extracted := e.pipeline.Run(msg)
	if len(extracted) == 0 && s.Empty() {
		return Turn{Outcome: OutcomeNoExtraction, Reply: compose.NoExtraction}
	}

	s.Merge(extracted)
	filled := inference.Fill(s)
	t := Turn{Extracted: extracted, Filled: filled.Filled, Fired: filled.Fired}

	if !e.scorer.Loaded() {
		t.Outcome = OutcomeModelsUnavailable
		t.Reply = compose.ModelsUnavailable
		return t
	}

	t.Risks = e.scorer.Score(s)
	a := compose.Assessment{
		Summary:       compose.Summary(s),
		ConditionRisk: compose.ConditionRisk(s, e.stats),
	}
	for _, r := range t.Risks {
		metrics.RecordRisk(r.Task, r.Probability)
		a.Risks = append(a.Risks, compose.RiskHeader(r))
	}

	if best, ok := risk.Max(t.Risks); ok && e.fusion.Available() {
		cfg := e.fusion.Config()
		query := compose.RecommendationQuery(s, best.Probability)
		hits := e.retrieve(ctx, "recommend", query, cfg.RecommendThreshold, cfg.RecommendExcerptChars)
		a.Recommendations = compose.Recommendations(hits)
		t.Evidence = sources(hits)
	}

	t.Outcome = OutcomeAssessed
	t.Reply = a.Render()
	return t
}

// #endregion assess

// #region parse-form

// ParseForm parses ED record text and summarises the fields found.
func (e *Engine) ParseForm(text string) (clinical.Extraction, string) {
	return SummarizeForm(e.pipeline, text)
}

// SummarizeForm runs p's form parser without loading any artifacts.
func SummarizeForm(p *extract.Pipeline, text string) (clinical.Extraction, string) {
	parsed := p.ParseForm(text)
	s := clinical.NewState()
	s.Merge(parsed)
	return parsed, compose.Summary(s)
}

// #endregion parse-form

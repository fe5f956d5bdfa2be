package engine

import (
	"log/slog"
	"time"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/embed"
	"github.com/ofeng1/datathon/internal/extract"
	"github.com/ofeng1/datathon/internal/intent"
	"github.com/ofeng1/datathon/internal/retrieval"
	"github.com/ofeng1/datathon/internal/risk"
)

// #region outcome

// Outcome names the branch a turn took.
type Outcome string

const (
	OutcomeGreeting          Outcome = "greeting"
	OutcomeHelp              Outcome = "help"
	OutcomeReset             Outcome = "reset"
	OutcomeAnswered          Outcome = "answered"
	OutcomeNothingRelevant   Outcome = "nothing_relevant"
	OutcomeKBUnavailable     Outcome = "kb_unavailable"
	OutcomeNoExtraction      Outcome = "no_extraction"
	OutcomeModelsUnavailable Outcome = "models_unavailable"
	OutcomeAssessed          Outcome = "assessed"
)

// #endregion outcome

// #region turn

// Turn is the result of one message.
type Turn struct {
	Intent    intent.Intent
	Outcome   Outcome
	Reply     string
	Extracted clinical.Extraction
	Filled    []clinical.Field
	Fired     []string
	Risks     []risk.Result
	Evidence  []string // sources of the excerpts shown
	Duration  time.Duration
}

// #endregion turn

// #region config

// Config locates the artifacts loaded at construction.
type Config struct {
	ArtifactDir string           `yaml:"artifact_dir"`
	Tasks       []risk.Task      `yaml:"tasks"`
	StatsFile   string           `yaml:"stats_file"`
	Retrieval   retrieval.Config `yaml:"retrieval"`
}

// DefaultConfig returns the single readmission task and default retrieval
// settings under ./artifacts.
func DefaultConfig() Config {
	return Config{
		ArtifactDir: "artifacts",
		Tasks:       []risk.Task{{Name: "readmission", File: "readmission_model.json"}},
		Retrieval:   retrieval.DefaultConfig(),
	}
}

// Path resolves an artifact name the way New does.
func (c Config) Path(name string) string {
	return artifactPath(c.ArtifactDir, name)
}

// Deps are the collaborators the engine does not build itself.
type Deps struct {
	Embedder embed.Embedder
	Pipeline *extract.Pipeline
	Logger   *slog.Logger
}

// Status records what loaded during New.
type Status struct {
	ModelsLoaded  []string `json:"models_loaded"`
	ModelsMissing []string `json:"models_missing"`
	IndexBackend  string   `json:"index_backend"`
	StatsLoaded   bool     `json:"stats_loaded"`
}

// Ready reports whether at least one model and a knowledge index loaded.
func (s Status) Ready() bool {
	return len(s.ModelsLoaded) > 0 && s.IndexBackend != retrieval.BackendNone
}

// #endregion config

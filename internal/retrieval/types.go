package retrieval

import "context"

// Backend names reported by a Strategy.
const (
	BackendDense   = "dense"
	BackendLexical = "lexical"
	BackendNone    = "none"
)

// #region config
// Config holds index locations, thresholds and excerpt limits.
type Config struct {
	DenseDir              string  `yaml:"dense_dir"`
	LexicalFile           string  `yaml:"lexical_file"`
	TopK                  int     `yaml:"top_k"`
	AskThreshold          float64 `yaml:"ask_threshold"`
	RecommendThreshold    float64 `yaml:"recommend_threshold"`
	AskExcerptChars       int     `yaml:"ask_excerpt_chars"`
	RecommendExcerptChars int     `yaml:"recommend_excerpt_chars"`
}

// DefaultConfig returns the thresholds and excerpt limits used for question
// answering and recommendation lookups.
func DefaultConfig() Config {
	return Config{
		DenseDir:              "rag_dense",
		LexicalFile:           "kb_index.json",
		TopK:                  3,
		AskThreshold:          0.05,
		RecommendThreshold:    0.03,
		AskExcerptChars:       1500,
		RecommendExcerptChars: 1200,
	}
}

// #endregion config

// #region hit
// Hit is one ranked knowledge-base passage. Score is in (0,1], higher is better.
type Hit struct {
	Score   float64 `json:"score"`
	Source  string  `json:"source"`
	Excerpt string  `json:"excerpt"`
}

// #endregion hit

// #region strategy
// Strategy is one knowledge-index backend, chosen once at construction.
type Strategy interface {
	Backend() string
	Search(ctx context.Context, query string, k int) ([]Hit, error)
}

// none is the strategy used when no index exists.
type none struct{}

func (none) Backend() string { return BackendNone }

func (none) Search(context.Context, string, int) ([]Hit, error) { return []Hit{}, nil }

// #endregion strategy

// #region gate-result
// GateResult captures the outcome of the gated retrieval pipeline.
type GateResult struct {
	Gate1Passed bool   // an index is available
	Gate2Count  int    // hits above the score threshold
	Gate3Count  int    // hits passing the consistency check
	Retrieved   []Hit  // final hits, excerpts cleaned
	Reason      string // human-readable explanation
}

// #endregion gate-result

// Document is one knowledge-base file.
type Document struct {
	Source string
	Text   string
}

package risk

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #region scorer
// Scorer holds the loaded task models. Models are read-only after
// construction.
type Scorer struct {
	tasks  []string
	models map[string]*Model
	status Status
	logger *slog.Logger
}

// NewScorer loads each task's model from dir. A missing file leaves the task
// unloaded; a file that exists but cannot be parsed is an error.
func NewScorer(dir string, tasks []Task, logger *slog.Logger) (*Scorer, error) {
	if logger == nil {
		logger = slog.Default()
	}
	sc := &Scorer{
		models: make(map[string]*Model),
		logger: logger.With("component", "risk"),
	}
	for _, t := range tasks {
		path := t.File
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}
		m, err := LoadModel(path)
		if errors.Is(err, fs.ErrNotExist) {
			sc.logger.Warn("model file missing", "task", t.Name, "path", path)
			sc.status.Missing = append(sc.status.Missing, t.Name)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load %s model: %w", t.Name, err)
		}
		sc.tasks = append(sc.tasks, t.Name)
		sc.models[t.Name] = m
		sc.status.Loaded = append(sc.status.Loaded, t.Name)
		sc.logger.Info("model loaded", "task", t.Name, "features", len(m.featureNames), "trees", len(m.trees))
	}
	return sc, nil
}

// NewScorerFromModels builds a scorer around already-parsed models.
func NewScorerFromModels(tasks []string, models map[string]*Model) *Scorer {
	sc := &Scorer{models: make(map[string]*Model), logger: slog.Default().With("component", "risk")}
	for _, name := range tasks {
		if m, ok := models[name]; ok {
			sc.tasks = append(sc.tasks, name)
			sc.models[name] = m
			sc.status.Loaded = append(sc.status.Loaded, name)
		}
	}
	return sc
}

// Loaded reports whether at least one model is available.
func (sc *Scorer) Loaded() bool {
	return sc != nil && len(sc.tasks) > 0
}

// Status returns which tasks loaded and which were missing.
func (sc *Scorer) Status() Status {
	return sc.status
}

// Tasks returns loaded task names in configured order.
func (sc *Scorer) Tasks() []string {
	out := make([]string, len(sc.tasks))
	copy(out, sc.tasks)
	return out
}

// Score evaluates every loaded task against s.
func (sc *Scorer) Score(s *clinical.State) []Result {
	results := make([]Result, 0, len(sc.tasks))
	for _, name := range sc.tasks {
		m := sc.models[name]
		base := m.Predict(FeatureVector(m.featureNames, s))
		results = append(results, Result{
			Task:        name,
			Base:        base,
			Probability: Adjust(base, s),
		})
	}
	return results
}

// #endregion scorer

// Max returns the highest-probability result, or false when rs is empty.
func Max(rs []Result) (Result, bool) {
	if len(rs) == 0 {
		return Result{}, false
	}
	best := rs[0]
	for _, r := range rs[1:] {
		if r.Probability > best.Probability {
			best = r
		}
	}
	return best, true
}

package risk

import "errors"

// ErrUnsupportedModel is returned for model files this package cannot evaluate
// (non-gbtree boosters, multi-class objectives).
var ErrUnsupportedModel = errors.New("unsupported model")

// #region result
// Result is one task's score for the current state.
type Result struct {
	Task        string  `json:"task"`
	Base        float64 `json:"base"`        // classifier output before adjustment
	Probability float64 `json:"probability"` // adjusted, clamped to [0,1]
}

// #endregion result

// #region task
// Task names a risk model and the file it is loaded from.
type Task struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

// Status records which task models loaded.
type Status struct {
	Loaded  []string
	Missing []string
}

// #endregion task

// #region shift
// Shift is one applied log-odds adjustment.
type Shift struct {
	Name  string
	Delta float64
}

// #endregion shift

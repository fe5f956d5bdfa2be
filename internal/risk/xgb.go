package risk

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

// #region wire-format
// Only the parts of the XGBoost JSON model schema needed for inference.

type xgbFile struct {
	Learner struct {
		FeatureNames    []string `json:"feature_names"`
		FeatureTypes    []string `json:"feature_types"`
		GradientBooster struct {
			Name  string `json:"name"`
			Model struct {
				Trees    []xgbTree `json:"trees"`
				TreeInfo []int     `json:"tree_info"`
			} `json:"model"`
		} `json:"gradient_booster"`
		LearnerModelParam struct {
			BaseScore string `json:"base_score"`
			NumClass  string `json:"num_class"`
		} `json:"learner_model_param"`
		Objective struct {
			Name string `json:"name"`
		} `json:"objective"`
	} `json:"learner"`
}

type xgbTree struct {
	LeftChildren       []int      `json:"left_children"`
	RightChildren      []int      `json:"right_children"`
	SplitIndices       []int      `json:"split_indices"`
	SplitConditions    []float64  `json:"split_conditions"`
	DefaultLeft        []flexBool `json:"default_left"`
	SplitType          []int      `json:"split_type"`
	Categories         []int      `json:"categories"`
	CategoriesNodes    []int      `json:"categories_nodes"`
	CategoriesSegments []int      `json:"categories_segments"`
	CategoriesSizes    []int      `json:"categories_sizes"`
}

// flexBool accepts both the boolean and the 0/1 integer encodings that
// different XGBoost versions write for default_left.
type flexBool bool

func (b *flexBool) UnmarshalJSON(data []byte) error {
	switch strings.TrimSpace(string(data)) {
	case "true", "1":
		*b = true
	case "false", "0":
		*b = false
	default:
		return fmt.Errorf("default_left: unexpected value %s", data)
	}
	return nil
}

// #endregion wire-format

// #region model
type node struct {
	left, right int
	feature     int
	cond        float32
	defaultLeft bool
	categorical bool
	cats        map[int]bool
}

type tree []node

// Model is an in-memory gradient-boosted tree ensemble for binary
// classification. Read-only after load; safe for concurrent use.
type Model struct {
	featureNames []string
	trees        []tree
	baseMargin   float64
	objective    string
}

// LoadModel reads an XGBoost JSON model from path.
func LoadModel(path string) (*Model, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read model: %w", err)
	}
	m, err := ParseModel(data)
	if err != nil {
		return nil, fmt.Errorf("parse model %s: %w", path, err)
	}
	return m, nil
}

// ParseModel decodes an XGBoost JSON model document.
func ParseModel(data []byte) (*Model, error) {
	var f xgbFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}
	l := f.Learner

	if l.GradientBooster.Name != "gbtree" {
		return nil, fmt.Errorf("%w: booster %q", ErrUnsupportedModel, l.GradientBooster.Name)
	}
	if nc := l.LearnerModelParam.NumClass; nc != "" && nc != "0" && nc != "1" {
		return nil, fmt.Errorf("%w: num_class %s", ErrUnsupportedModel, nc)
	}

	base, err := parseBaseScore(l.LearnerModelParam.BaseScore)
	if err != nil {
		return nil, err
	}

	m := &Model{
		featureNames: l.FeatureNames,
		objective:    l.Objective.Name,
	}
	switch m.objective {
	case "binary:logistic", "reg:logistic":
		if base <= 0 || base >= 1 {
			return nil, fmt.Errorf("base_score %v outside (0,1)", base)
		}
		m.baseMargin = math.Log(base / (1 - base))
	case "binary:logitraw":
		m.baseMargin = base
	default:
		return nil, fmt.Errorf("%w: objective %q", ErrUnsupportedModel, m.objective)
	}

	for i, t := range l.GradientBooster.Model.Trees {
		tr, err := buildTree(t, len(m.featureNames))
		if err != nil {
			return nil, fmt.Errorf("tree %d: %w", i, err)
		}
		m.trees = append(m.trees, tr)
	}
	if len(m.trees) == 0 {
		return nil, fmt.Errorf("model has no trees")
	}
	return m, nil
}

// parseBaseScore handles both "5E-1" and the bracketed "[5E-1]" form.
func parseBaseScore(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(strings.TrimPrefix(s, "["), "]")
	if i := strings.IndexByte(s, ','); i >= 0 {
		s = s[:i]
	}
	if s == "" {
		return 0.5, nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0, fmt.Errorf("base_score %q: %w", s, err)
	}
	return v, nil
}

func buildTree(t xgbTree, nFeatures int) (tree, error) {
	n := len(t.LeftChildren)
	if n == 0 {
		return nil, fmt.Errorf("empty tree")
	}
	if len(t.RightChildren) != n || len(t.SplitIndices) != n || len(t.SplitConditions) != n {
		return nil, fmt.Errorf("inconsistent node arrays")
	}

	out := make(tree, n)
	for i := 0; i < n; i++ {
		nd := node{
			left:    t.LeftChildren[i],
			right:   t.RightChildren[i],
			feature: t.SplitIndices[i],
			cond:    float32(t.SplitConditions[i]),
		}
		if i < len(t.DefaultLeft) {
			nd.defaultLeft = bool(t.DefaultLeft[i])
		}
		if i < len(t.SplitType) && t.SplitType[i] == 1 {
			nd.categorical = true
		}
		if nd.left != -1 {
			if nd.left <= i || nd.left >= n || nd.right <= i || nd.right >= n {
				return nil, fmt.Errorf("node %d: child out of range", i)
			}
			if nd.feature < 0 || (nFeatures > 0 && nd.feature >= nFeatures) {
				return nil, fmt.Errorf("node %d: feature %d out of range", i, nd.feature)
			}
		}
		out[i] = nd
	}

	for j, nodeID := range t.CategoriesNodes {
		if j >= len(t.CategoriesSegments) || j >= len(t.CategoriesSizes) {
			return nil, fmt.Errorf("inconsistent category arrays")
		}
		lo := t.CategoriesSegments[j]
		hi := lo + t.CategoriesSizes[j]
		if nodeID < 0 || nodeID >= n || lo < 0 || hi > len(t.Categories) {
			return nil, fmt.Errorf("category segment %d out of range", j)
		}
		set := make(map[int]bool, hi-lo)
		for _, c := range t.Categories[lo:hi] {
			set[c] = true
		}
		out[nodeID].cats = set
	}
	return out, nil
}

// #endregion model

// #region predict

// FeatureNames returns the feature order Predict expects.
func (m *Model) FeatureNames() []string {
	out := make([]string, len(m.featureNames))
	copy(out, m.featureNames)
	return out
}

// Margin returns the raw ensemble output for x. NaN entries are missing.
func (m *Model) Margin(x []float64) float64 {
	sum := m.baseMargin
	for _, t := range m.trees {
		sum += float64(t.leaf(x))
	}
	return sum
}

// Predict returns the positive-class probability for x.
func (m *Model) Predict(x []float64) float64 {
	return sigmoid(m.Margin(x))
}

func (t tree) leaf(x []float64) float32 {
	i := 0
	for {
		nd := t[i]
		if nd.left == -1 {
			return nd.cond
		}
		v := math.NaN()
		if nd.feature < len(x) {
			v = x[nd.feature]
		}
		switch {
		case math.IsNaN(v):
			if nd.defaultLeft {
				i = nd.left
			} else {
				i = nd.right
			}
		case nd.categorical:
			// Categories in the split set go right.
			if nd.cats[int(v)] {
				i = nd.right
			} else {
				i = nd.left
			}
		case float32(v) < nd.cond:
			i = nd.left
		default:
			i = nd.right
		}
	}
}

func sigmoid(z float64) float64 {
	return 1.0 / (1.0 + math.Exp(-z))
}

// #endregion predict

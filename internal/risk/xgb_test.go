package risk

import (
	"errors"
	"math"
	"testing"
)

const epsilon = 1e-6

func loadTestModel(t *testing.T) *Model {
	t.Helper()
	m, err := LoadModel("testdata/readmission_model.json")
	if err != nil {
		t.Fatalf("LoadModel: %v", err)
	}
	return m
}

func TestModelPredict(t *testing.T) {
	m := loadTestModel(t)
	nan := math.NaN()

	tests := []struct {
		name string
		x    []float64
		want float64
	}{
		{"old-pulse-missing", []float64{70, nan, nan}, sigmoid(0.5)},
		{"young-normal-pulse", []float64{40, 80, nan}, sigmoid(-0.3)},
		{"all-missing", []float64{nan, nan, nan}, 0.5},
		{"threshold-goes-right", []float64{65, 100, nan}, sigmoid(0.5)},
		{"short-vector", []float64{40}, sigmoid(0.0)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Predict(tt.x)
			if math.Abs(got-tt.want) > epsilon {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}

func TestModelFeatureNamesCopy(t *testing.T) {
	m := loadTestModel(t)
	names := m.FeatureNames()
	if len(names) != 3 || names[0] != "AGE" || names[1] != "PULSE" {
		t.Fatalf("unexpected names %v", names)
	}
	names[0] = "mutated"
	if m.FeatureNames()[0] != "AGE" {
		t.Error("FeatureNames exposed internal slice")
	}
}

const categoricalModel = `{
  "learner": {
    "feature_names": ["VDAYR"],
    "feature_types": ["c"],
    "gradient_booster": {"name": "gbtree", "model": {"tree_info": [0], "trees": [{
      "left_children": [1, -1, -1],
      "right_children": [2, -1, -1],
      "split_indices": [0, 0, 0],
      "split_conditions": [0, -1.0, 1.0],
      "default_left": [true, false, false],
      "split_type": [1, 0, 0],
      "categories": [1, 7],
      "categories_nodes": [0],
      "categories_segments": [0],
      "categories_sizes": [2]
    }]}},
    "learner_model_param": {"base_score": "0", "num_class": "0"},
    "objective": {"name": "binary:logitraw"}
  }
}`

func TestModelCategoricalSplit(t *testing.T) {
	m, err := ParseModel([]byte(categoricalModel))
	if err != nil {
		t.Fatalf("ParseModel: %v", err)
	}
	tests := []struct {
		day  float64
		want float64
	}{
		{1, 1.0},
		{7, 1.0},
		{3, -1.0},
		{math.NaN(), -1.0},
	}
	for _, tt := range tests {
		if got := m.Margin([]float64{tt.day}); got != tt.want {
			t.Errorf("day %v: margin %v, want %v", tt.day, got, tt.want)
		}
	}
}

func TestParseModelErrors(t *testing.T) {
	tests := []struct {
		name        string
		doc         string
		unsupported bool
	}{
		{"not-json", `{"learner":`, false},
		{"linear-booster", `{"learner":{"gradient_booster":{"name":"gblinear"},"objective":{"name":"binary:logistic"}}}`, true},
		{"multiclass", `{"learner":{"gradient_booster":{"name":"gbtree"},"learner_model_param":{"num_class":"3"},"objective":{"name":"multi:softprob"}}}`, true},
		{"regression-objective", `{"learner":{"gradient_booster":{"name":"gbtree"},"learner_model_param":{"base_score":"1"},"objective":{"name":"reg:squarederror"}}}`, true},
		{"no-trees", `{"learner":{"gradient_booster":{"name":"gbtree","model":{"trees":[]}},"learner_model_param":{"base_score":"0.5"},"objective":{"name":"binary:logistic"}}}`, false},
		{"bad-child", `{"learner":{"feature_names":["A"],"gradient_booster":{"name":"gbtree","model":{"trees":[{"left_children":[5,-1,-1],"right_children":[2,-1,-1],"split_indices":[0,0,0],"split_conditions":[1,0,0]}]}},"learner_model_param":{"base_score":"0.5"},"objective":{"name":"binary:logistic"}}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseModel([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if got := errors.Is(err, ErrUnsupportedModel); got != tt.unsupported {
				t.Errorf("unsupported: got %v, want %v (%v)", got, tt.unsupported, err)
			}
		})
	}
}

func TestParseBaseScore(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"5E-1", 0.5},
		{"[5E-1]", 0.5},
		{"[2.5E-1,1E-1]", 0.25},
		{"", 0.5},
	}
	for _, tt := range tests {
		got, err := parseBaseScore(tt.in)
		if err != nil {
			t.Fatalf("%q: %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("%q: got %v, want %v", tt.in, got, tt.want)
		}
	}
}

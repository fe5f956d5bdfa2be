package risk

import (
	"math"

	"github.com/ofeng1/datathon/internal/clinical"
)

// missingCodes are dataset sentinels for "unknown" that must not reach the
// classifier as real values.
var missingCodes = map[float64]bool{-9: true, -8: true, -7: true}

// FeatureVector aligns state values to names. Names with no state value, or a
// sentinel value, are NaN.
func FeatureVector(names []string, s *clinical.State) []float64 {
	x := make([]float64, len(names))
	for i, name := range names {
		x[i] = math.NaN()
		f, err := clinical.ParseField(name)
		if err != nil {
			continue
		}
		v, ok := s.Get(f)
		if !ok || missingCodes[v] {
			continue
		}
		x[i] = v
	}
	return x
}

package extract

import (
	"github.com/ofeng1/datathon/internal/clinical"
)

// #region pipeline

// Pipeline runs extractors in a fixed order and merges their output.
// Later extractors overwrite keys set by earlier ones.
type Pipeline struct {
	extractors []Named
}

// NewPipeline builds a pipeline from the given ordered extractors.
func NewPipeline(extractors ...Named) *Pipeline {
	return &Pipeline{extractors: extractors}
}

// DefaultPipeline returns the standard extractor order.
func DefaultPipeline() *Pipeline {
	return NewPipeline(
		Named{"age", Age},
		Named{"sex", Sex},
		Named{"vitals", Vitals},
		Named{"pain", Pain},
		Named{"arrival_time", ArrivalTime},
		Named{"length_of_visit", LengthOfVisit},
		Named{"chronic", Chronic},
		Named{"injury", InjuryFlag},
		Named{"substance", SubstanceFlag},
		Named{"day_of_week", DayOfWeek},
		Named{"triage", Triage},
		Named{"prior_visits", PriorVisits},
	)
}

// Names returns extractor names in run order.
func (p *Pipeline) Names() []string {
	out := make([]string, len(p.extractors))
	for i, e := range p.extractors {
		out[i] = e.Name
	}
	return out
}

// Run applies every extractor to text and returns the merged map.
func (p *Pipeline) Run(text string) clinical.Extraction {
	merged := clinical.Extraction{}
	for _, e := range p.extractors {
		for f, v := range e.Fn(text) {
			merged[f] = v
		}
	}
	return merged
}

// #endregion pipeline

package inference

import (
	"github.com/ofeng1/datathon/internal/clinical"
)

// #region fill
// Fill derives missing acuity and revisit fields from what the state already
// holds. Existing values are never overwritten, so a second pass is a no-op.
func Fill(s *clinical.State) Result {
	res := Result{Triage: defaultAcuity}

	if !s.Has(clinical.Triage) {
		esi, fired := Triage(s)
		res.Triage = esi
		res.Fired = fired
		if esi < defaultAcuity {
			s.Set(clinical.Triage, esi)
			s.InferredTriage = true
			res.Filled = append(res.Filled, clinical.Triage)
		}
	}

	if !s.Has(clinical.Seen72) {
		if n, ok := s.Get(clinical.TotChron); ok && n >= 2 {
			s.Set(clinical.Seen72, 1)
			res.Filled = append(res.Filled, clinical.Seen72)
		}
	}

	return res
}

// #endregion fill

// #region triage
// Triage returns the most urgent acuity among triggered rules and the names
// of those rules. It does not read or write IMMEDR.
func Triage(s *clinical.State) (float64, []string) {
	esi := defaultAcuity
	var fired []string

	for _, c := range conditionAcuity {
		if s.Flag(c.field) {
			fired = append(fired, string(c.field))
			esi = min(esi, c.esi)
		}
	}
	for _, r := range vitalRules {
		if v, ok := s.Get(r.field); ok && r.hit(v) {
			fired = append(fired, r.name)
			esi = min(esi, r.esi)
		}
	}

	return esi, fired
}

// #endregion triage

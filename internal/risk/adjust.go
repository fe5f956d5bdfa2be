package risk

import (
	"math"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #region tables
// conditionShift is the per-flag log-odds shift, applied for each flag set to 1.
var conditionShift = []struct {
	field clinical.Field
	delta float64
}{
	{clinical.CHF, 1.8},
	{clinical.COPD, 1.5},
	{clinical.CKD, 1.3},
	{clinical.ESRD, 1.6},
	{clinical.Diabetes, 0.9},
	{clinical.DiabT1, 1.1},
	{clinical.DiabT2, 1.0},
	{clinical.Cancer, 1.2},
	{clinical.CeBVD, 1.0},
	{clinical.CAD, 0.9},
	{clinical.Deprn, 0.7},
	{clinical.Asthma, 0.7},
	{clinical.AlzHD, 0.8},
	{clinical.EDHIV, 0.7},
	{clinical.EtOHAb, 0.9},
	{clinical.SubstAb, 0.8},
	{clinical.HTN, 0.4},
	{clinical.HypLipid, 0.3},
	{clinical.Obesity, 0.4},
}

// bracket is one threshold band; the first matching band of a variable wins.
type bracket struct {
	name  string
	hit   func(v float64) bool
	delta float64
}

func ge(t float64) func(float64) bool { return func(v float64) bool { return v >= t } }
func gt(t float64) func(float64) bool { return func(v float64) bool { return v > t } }
func lt(t float64) func(float64) bool { return func(v float64) bool { return v < t } }
func le(t float64) func(float64) bool { return func(v float64) bool { return v <= t } }
func eq(t float64) func(float64) bool { return func(v float64) bool { return v == t } }

// variableBrackets lists bands per variable, most severe first.
var variableBrackets = []struct {
	field    clinical.Field
	brackets []bracket
}{
	{clinical.Age, []bracket{
		{"age>=80", ge(80), 1.2},
		{"age>=75", ge(75), 1.0},
		{"age>=65", ge(65), 0.7},
		{"age<5", lt(5), 0.4},
		{"age<18", lt(18), 0.2},
	}},
	{clinical.Pulse, []bracket{
		{"pulse>130", gt(130), 0.7},
		{"pulse>120", gt(120), 0.5},
		{"pulse>100", gt(100), 0.3},
	}},
	{clinical.BPSys, []bracket{
		{"bpsys<80", lt(80), 0.8},
		{"bpsys<90", lt(90), 0.6},
		{"bpsys>200", gt(200), 0.6},
		{"bpsys>180", gt(180), 0.4},
	}},
	{clinical.TempF, []bracket{
		{"tempf>102", gt(102), 0.6},
		{"tempf>101", gt(101), 0.4},
		{"tempf>100.4", gt(100.4), 0.2},
	}},
	{clinical.RespRate, []bracket{
		{"respr>30", gt(30), 0.6},
		{"respr>24", gt(24), 0.4},
	}},
	{clinical.PulseOx, []bracket{
		{"popct<88", lt(88), 0.8},
		{"popct<92", lt(92), 0.5},
	}},
	{clinical.PainScale, []bracket{
		{"pain>=8", ge(8), 0.4},
	}},
	{clinical.Triage, []bracket{
		{"immedr<=1", le(1), 1.0},
		{"immedr<=2", le(2), 0.7},
		{"immedr==3", eq(3), 0.4},
	}},
}

// totchronBrackets only apply when TOTCHRON is non-zero.
var totchronBrackets = []bracket{
	{"totchron>=4", ge(4), 1.2},
	{"totchron>=3", ge(3), 0.8},
	{"totchron>=2", ge(2), 0.4},
}

// #endregion tables

// #region adjust

// Shifts returns every log-odds adjustment the state triggers, in table order.
func Shifts(s *clinical.State) []Shift {
	var out []Shift
	for _, c := range conditionShift {
		if s.Flag(c.field) {
			out = append(out, Shift{Name: string(c.field), Delta: c.delta})
		}
	}
	for _, vb := range variableBrackets {
		v, ok := s.Get(vb.field)
		if !ok {
			continue
		}
		if b, ok := firstBracket(vb.brackets, v); ok {
			out = append(out, Shift{Name: b.name, Delta: b.delta})
		}
	}
	if v, ok := s.Get(clinical.TotChron); ok && v != 0 {
		if b, ok := firstBracket(totchronBrackets, v); ok {
			out = append(out, Shift{Name: b.name, Delta: b.delta})
		}
	}
	if s.Flag(clinical.Injury) {
		out = append(out, Shift{Name: "injury", Delta: 0.3})
	}
	return out
}

func firstBracket(bs []bracket, v float64) (bracket, bool) {
	for _, b := range bs {
		if b.hit(v) {
			return b, true
		}
	}
	return bracket{}, false
}

// Adjust moves base into log-odds space, adds the state's shifts, and maps
// the result back to a probability clamped to [0,1].
func Adjust(base float64, s *clinical.State) float64 {
	z := LogOdds(base)
	for _, sh := range Shifts(s) {
		z += sh.Delta
	}
	return clamp01(sigmoid(z))
}

// LogOdds is log(p/(1-p)) with a small epsilon guarding p == 1.
func LogOdds(p float64) float64 {
	return math.Log(p / (1.0 - p + 1e-9))
}

func clamp01(p float64) float64 {
	if math.IsNaN(p) || p < 0 {
		return 0
	}
	if p > 1 {
		return 1
	}
	return p
}

// #endregion adjust

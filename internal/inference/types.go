package inference

import "github.com/ofeng1/datathon/internal/clinical"

// #region result
// Result records what a fill pass changed.
type Result struct {
	Filled []clinical.Field // fields written this pass, in write order
	Fired  []string         // triage rules that triggered, in evaluation order
	Triage float64          // computed acuity, 5 when nothing fired
}

// Changed reports whether the pass wrote anything.
func (r Result) Changed() bool {
	return len(r.Filled) > 0
}

// #endregion result

// #region rules
// defaultAcuity is the least urgent ESI level; inference only writes below it.
const defaultAcuity = 5.0

// conditionAcuity caps triage for a present condition flag.
var conditionAcuity = []struct {
	field clinical.Field
	esi   float64
}{
	{clinical.CHF, 2},
	{clinical.CeBVD, 2},
	{clinical.CAD, 2},
	{clinical.COPD, 3},
	{clinical.ESRD, 3},
	{clinical.CKD, 3},
	{clinical.Cancer, 3},
	{clinical.Diabetes, 3},
	{clinical.DiabT1, 3},
	{clinical.DiabT2, 3},
	{clinical.Asthma, 3},
	{clinical.EDHIV, 3},
	{clinical.AlzHD, 3},
}

// vitalRule caps triage when a measured value crosses a threshold.
type vitalRule struct {
	name  string
	field clinical.Field
	hit   func(v float64) bool
	esi   float64
}

var vitalRules = []vitalRule{
	{"age>=75", clinical.Age, func(v float64) bool { return v >= 75 }, 3},
	{"pulse>120", clinical.Pulse, func(v float64) bool { return v > 120 }, 2},
	{"bpsys<90", clinical.BPSys, func(v float64) bool { return v < 90 }, 2},
	{"tempf>101", clinical.TempF, func(v float64) bool { return v > 101.0 }, 3},
	{"popct<92", clinical.PulseOx, func(v float64) bool { return v < 92 }, 2},
}

// #endregion rules

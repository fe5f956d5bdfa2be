package extract

import (
	"regexp"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #region extractor

// Extractor pulls a partial field map from text. It never fails: absent or
// malformed values simply produce no key.
type Extractor func(text string) clinical.Extraction

// Named pairs an extractor with a stable name for logging and tests.
type Named struct {
	Name string
	Fn   Extractor
}

// #endregion extractor

// #region conditions

// conditionPattern maps one regex to a condition code.
type conditionPattern struct {
	re   *regexp.Regexp
	code clinical.Field
}

// conditionTable is evaluated in order; the first match per code wins.
var conditionTable = []conditionPattern{
	{ci(`copd|chronic\s*obstructive`), clinical.COPD},
	{ci(`chf|congestive\s*heart\s*failure|heart\s*failure`), clinical.CHF},
	{ci(`cad|coronary\s*artery`), clinical.CAD},
	{ci(`asthma`), clinical.Asthma},
	{ci(`ckd|chronic\s*kidney|kidney\s*disease`), clinical.CKD},
	{ci(`esrd|end[\s-]*stage\s*renal`), clinical.ESRD},
	{ci(`hypertension|htn|\bhigh\s*blood\s*pressure`), clinical.HTN},
	{ci(`diabet(?:es|ic)\s*(?:type\s*)?(?:1|i)\b`), clinical.DiabT1},
	{ci(`diabet(?:es|ic)\s*(?:type\s*)?(?:2|ii)\b`), clinical.DiabT2},
	{ci(`diabet(?:es|ic)`), clinical.Diabetes},
	{ci(`cancer|malignan|lymphoma|leukemia|tumor|oncol`), clinical.Cancer},
	{ci(`depression|depressed|major\s*depress`), clinical.Deprn},
	{ci(`cerebrovascular|stroke|\bcva\b`), clinical.CeBVD},
	{ci(`alzheimer|dementia`), clinical.AlzHD},
	{ci(`hyperlipid|high\s*cholesterol`), clinical.HypLipid},
	{ci(`obesity|obese|\bbmi\s*>\s*3[0-9]`), clinical.Obesity},
	{ci(`sleep\s*apnea|\bosa\b`), clinical.OSA},
	{ci(`osteoporosis`), clinical.OstPrsis},
	{ci(`\bhiv\b|human\s*immunodeficiency`), clinical.EDHIV},
	{ci(`alcohol(?:ism|ic|\s*abuse|use\s*disorder)`), clinical.EtOHAb},
	{ci(`substance\s*abuse|drug\s*abuse|sud\b`), clinical.SubstAb},
}

// #endregion conditions

// #region weekdays

type weekday struct {
	re  *regexp.Regexp
	num float64
}

// weekdays is checked in order; the first name found wins.
var weekdays = func() []weekday {
	names := []struct {
		name string
		num  float64
	}{
		{"sunday", 1}, {"sun", 1},
		{"monday", 2}, {"mon", 2},
		{"tuesday", 3}, {"tue", 3}, {"tues", 3},
		{"wednesday", 4}, {"wed", 4},
		{"thursday", 5}, {"thu", 5}, {"thurs", 5},
		{"friday", 6}, {"fri", 6},
		{"saturday", 7}, {"sat", 7},
	}
	out := make([]weekday, len(names))
	for i, n := range names {
		out[i] = weekday{ci(`\b` + n.name + `\b`), n.num}
	}
	return out
}()

// #endregion weekdays

func ci(p string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + p)
}

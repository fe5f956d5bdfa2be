package extract

// #region imports
import (
	"regexp"
	"strings"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #endregion

// #region form-patterns

var (
	formAgeRe   = ci(`\b(?:age)\s*:?\s*(\d{1,3})\b`)
	formMaleRe  = regexp.MustCompile(`\b(?:sex|Sex)\s*:?\s*[M1]\b|\bM\s*(?:/|$)|Male\b`)
	formFemRe   = regexp.MustCompile(`\b(?:sex|Sex)\s*:?\s*[F2]\b|\bF\s*(?:/|$)|Female\b`)
	formTempRe  = ci(`\b(?:temp|temperature)\s*:?\s*([\d.]+)`)
	formPulseRe = ci(`\bpulse\s*:?\s*(\d+)`)
	formRespRe  = ci(`\b(?:resp|respiration)\s*:?\s*(\d+)`)
	formBPRe    = ci(`\b(?:B/P|BP|blood\s*pressure)\s*:?\s*(\d+)\s*/\s*(\d+)`)
	formSpO2Re  = ci(`\b(?:pulse\s*ox|spo2|oxygen)\s*:?\s*(\d+)`)
	formPainRe  = ci(`\bpain\s*(?:scale)?\s*:?\s*(\d+)\s*(?:/\s*10)?`)
	formSubstRe = ci(`street\s*drugs\s*[Y\s]*Y|alcohol\s*[Y\s]*Y|used\s+any.*yes`)
	anyStatusRe = ci(`\b(critical|guarded|stable|fair|good)\b`)

	historyHeadRe = ci(`SIGNIFICANT\s+MEDICAL\s+HISTORY\s*[\s:]*`)
	historyEndRe  = ci(`CURRENT\s+PRESCRIPTION|PROBLEM\s+ORIENTED|PHYSICAL\s+FINDINGS|LAB\s+&\s+X`)
	medsHeadRe    = ci(`CURRENT\s+PRESCRIPTION\s+MEDICATION\s*[\s:]*`)
	medsEndRe     = ci(`SIGNIFICANT\s+MEDICAL|PROBLEM\s+ORIENTED|PHYSICAL\s+FINDINGS|USED\s+ANY`)
)

// admissionStatus maps "condition on admission" wording to ESI, checked in order.
var admissionStatus = []struct {
	label string
	esi   float64
	on    *regexp.Regexp
	word  *regexp.Regexp
}{
	{label: "critical", esi: 1},
	{label: "guarded", esi: 2},
	{label: "stable", esi: 3},
	{label: "fair", esi: 4},
	{label: "good", esi: 5},
}

func init() {
	for i := range admissionStatus {
		s := &admissionStatus[i]
		s.on = ci(`\bcondition\s+on\s+admission\s*:?\s*` + s.label)
		s.word = ci(`\b` + s.label + `\b`)
	}
}

// #endregion form-patterns

// #region parse-form

// ParseForm reads text extracted from an ED record form into a field map.
// Labelled vitals win; free-text history and medication blocks are run
// through the pipeline and only fill keys still absent.
func (p *Pipeline) ParseForm(raw string) clinical.Extraction {
	text := strings.NewReplacer("\r\n", "\n", "\r", "\n").Replace(raw)
	out := clinical.Extraction{}

	if v, ok := captureNum(formAgeRe, text, 1); ok {
		out[clinical.Age] = v
	}

	switch {
	case formMaleRe.MatchString(text):
		out[clinical.Sex] = clinical.SexMale
	case formFemRe.MatchString(text):
		out[clinical.Sex] = clinical.SexFemale
	}

	if v, ok := captureNum(formTempRe, text, 1); ok && v > 90 && v < 110 {
		out[clinical.TempF] = v
	}
	if v, ok := captureNum(formPulseRe, text, 1); ok {
		out[clinical.Pulse] = v
	}
	if v, ok := captureNum(formRespRe, text, 1); ok {
		out[clinical.RespRate] = v
	}
	if m := formBPRe.FindStringSubmatch(text); m != nil {
		sys, okS := parseNum(m[1])
		dia, okD := parseNum(m[2])
		if okS && okD {
			out[clinical.BPSys] = sys
			out[clinical.BPDias] = dia
		}
	}
	if v, ok := captureNum(formSpO2Re, text, 1); ok {
		out[clinical.PulseOx] = v
	}

	for _, s := range admissionStatus {
		if s.on.MatchString(text) {
			out[clinical.Triage] = s.esi
			break
		}
	}
	if _, ok := out[clinical.Triage]; !ok && anyStatusRe.MatchString(text) {
		for _, s := range admissionStatus {
			if s.word.MatchString(text) {
				out[clinical.Triage] = s.esi
				break
			}
		}
	}

	if block := section(text, historyHeadRe, historyEndRe); len(block) > 10 {
		fillAbsent(out, p.Run(block))
	}
	if block := section(text, medsHeadRe, medsEndRe); len(block) > 5 {
		fillAbsent(out, p.Run(block))
	}

	if v, ok := captureNum(formPainRe, text, 1); ok {
		out[clinical.PainScale] = v
	}
	if formSubstRe.MatchString(text) {
		out[clinical.SubstAb] = 1
	}

	return out
}

// section returns the trimmed text after head up to the earliest end marker.
func section(text string, head, end *regexp.Regexp) string {
	loc := head.FindStringIndex(text)
	if loc == nil {
		return ""
	}
	rest := text[loc[1]:]
	if e := end.FindStringIndex(rest); e != nil {
		rest = rest[:e[0]]
	}
	return strings.TrimSpace(rest)
}

func fillAbsent(dst, src clinical.Extraction) {
	for f, v := range src {
		if _, ok := dst[f]; !ok {
			dst[f] = v
		}
	}
}

// #endregion parse-form

package extract

// #region imports
import (
	"regexp"
	"strconv"
	"strings"

	"github.com/ofeng1/datathon/internal/clinical"
)

// #endregion

// #region patterns

var (
	ageYearsRe = ci(`\b(\d{1,3})\s*[-]?\s*(yr|year|yo|y/?o)\s*(old)?`)
	ageLabelRe = ci(`\bage\s*(?:[:=]|is|to)?\s*(\d{1,3})\b`)

	femaleRe   = ci(`\b(female|woman|girl)\b`)
	maleRe     = ci(`\b(male|man|boy)\b`)
	sexLabelRe = regexp.MustCompile(`\b(sex|gender)\s*[:=]?\s*([MFmf])\b`)

	tempRe  = ci(`\btemp(?:erature|f)?\s*(?:[:=]|is|of)?\s*([\d.]+)`)
	pulseRe = ci(`\b(?:pulse|hr|heart\s*rate)\s*(?:[:=]|is|of)?\s*(\d+)`)
	respRe  = ci(`\b(?:resp|rr|respiratory\s*rate)\s*(?:[:=]|is|of)?\s*(\d+)`)
	bpRe    = ci(`\b(?:bp|blood\s*pressure)\s*[:=]?\s*(\d+)\s*/\s*(\d+)`)
	spo2Re  = ci(`\b(?:spo2|o2\s*sat|oxygen|sat)\s*[:=]?\s*(\d+)`)

	painRe = ci(`\bpain\s*(?:scale|score)?\s*(?:[:=]|is|of)?\s*(\d+)\s*(?:/\s*10)?`)

	arrClockRe = ci(`\b(?:arriv\w*|arrival)\s*(?:time|at)?\s*[:=]?\s*(\d{1,2}):(\d{2})\s*(am|pm)?`)
	arrHHMMRe  = ci(`\b(?:arriv\w*|arrival)\s*(?:time)?\s*[:=]?\s*(\d{3,4})\b`)

	lovUnitRe  = ci(`\b(?:lov|length of visit|been here|here for)\s*[:=]?\s*([\d.]+)\s*(hr|hour|h|min|minute|m)\w*`)
	lovPhrasRe = ci(`\b(\d+)\s*(hr|hour|h)\s*(visit|in the ed|in ed)`)

	chronCountRe = ci(`(\d+)\s*(?:chronic)?\s*(?:condition|comorbidit|disease)`)

	injuryRe    = ci(`\b(injury|injured|trauma|fall|accident|laceration|fracture)\b`)
	substanceRe = ci(`\b(substance\s*abuse|drug\s*abuse|alcoholi|intoxicat|overdose|drug\s*use)\b`)

	triageRe = ci(`\b(?:triage|esi|acuity|immedr)\s*[:=]?\s*(\d)\b`)

	priorVisitRe = ci(`(\d+)\s*(?:prior|previous)\s*(?:ed)?\s*visit`)
	daysSinceRe  = ci(`\b(?:last visit|last ed|days since)\s*[:=]?\s*(\d+)\s*(?:day)?`)
)

// #endregion patterns

// #region helpers

func parseNum(s string) (float64, bool) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// captureNum parses group n of the first match of re in text.
func captureNum(re *regexp.Regexp, text string, n int) (float64, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, false
	}
	return parseNum(m[n])
}

// #endregion helpers

// #region age-sex

// Age prefers "<N> year(s) old / yo / y/o", then "age: N".
func Age(text string) clinical.Extraction {
	if v, ok := captureNum(ageYearsRe, text, 1); ok {
		return clinical.Extraction{clinical.Age: v}
	}
	if v, ok := captureNum(ageLabelRe, text, 1); ok {
		return clinical.Extraction{clinical.Age: v}
	}
	return nil
}

// Sex checks keywords before a labelled "sex: M|F".
func Sex(text string) clinical.Extraction {
	if femaleRe.MatchString(text) {
		return clinical.Extraction{clinical.Sex: clinical.SexFemale}
	}
	if maleRe.MatchString(text) {
		return clinical.Extraction{clinical.Sex: clinical.SexMale}
	}
	if m := sexLabelRe.FindStringSubmatch(text); m != nil {
		if strings.ToUpper(m[2]) == "M" {
			return clinical.Extraction{clinical.Sex: clinical.SexMale}
		}
		return clinical.Extraction{clinical.Sex: clinical.SexFemale}
	}
	return nil
}

// #endregion age-sex

// #region vitals

// Vitals runs independent sub-patterns for temperature, pulse, respiratory
// rate, blood pressure and oxygen saturation.
func Vitals(text string) clinical.Extraction {
	out := clinical.Extraction{}

	// Temperatures at or below 50 are noise (durations, counts).
	if v, ok := captureNum(tempRe, text, 1); ok && v > 50 {
		out[clinical.TempF] = v
	}
	if v, ok := captureNum(pulseRe, text, 1); ok {
		out[clinical.Pulse] = v
	}
	if v, ok := captureNum(respRe, text, 1); ok {
		out[clinical.RespRate] = v
	}
	if m := bpRe.FindStringSubmatch(text); m != nil {
		sys, okS := parseNum(m[1])
		dia, okD := parseNum(m[2])
		if okS && okD {
			out[clinical.BPSys] = sys
			out[clinical.BPDias] = dia
		}
	}
	if v, ok := captureNum(spo2Re, text, 1); ok {
		out[clinical.PulseOx] = v
	}

	return out
}

// Pain reads an integer pain score, tolerating a "/10" suffix.
func Pain(text string) clinical.Extraction {
	if v, ok := captureNum(painRe, text, 1); ok {
		return clinical.Extraction{clinical.PainScale: v}
	}
	return nil
}

// #endregion vitals

// #region visit

// ArrivalTime encodes "H:MM am/pm" or a bare "HHMM" as hour*100+minute.
func ArrivalTime(text string) clinical.Extraction {
	if m := arrClockRe.FindStringSubmatch(text); m != nil {
		h, errH := strconv.Atoi(m[1])
		mi, errM := strconv.Atoi(m[2])
		if errH == nil && errM == nil {
			switch strings.ToLower(m[3]) {
			case "pm":
				if h < 12 {
					h += 12
				}
			case "am":
				if h == 12 {
					h = 0
				}
			}
			return clinical.Extraction{clinical.ArrTime: float64(h*100 + mi)}
		}
	}
	if v, ok := captureNum(arrHHMMRe, text, 1); ok {
		return clinical.Extraction{clinical.ArrTime: v}
	}
	return nil
}

// LengthOfVisit normalises a stated visit length to minutes.
func LengthOfVisit(text string) clinical.Extraction {
	if m := lovUnitRe.FindStringSubmatch(text); m != nil {
		if v, ok := parseNum(m[1]); ok {
			if strings.HasPrefix(strings.ToLower(m[2]), "h") {
				return clinical.Extraction{clinical.LOV: v * 60}
			}
			return clinical.Extraction{clinical.LOV: v}
		}
	}
	if v, ok := captureNum(lovPhrasRe, text, 1); ok {
		return clinical.Extraction{clinical.LOV: v * 60}
	}
	return nil
}

// DayOfWeek maps a weekday name to 1 (Sunday) through 7 (Saturday).
func DayOfWeek(text string) clinical.Extraction {
	for _, d := range weekdays {
		if d.re.MatchString(text) {
			return clinical.Extraction{clinical.DayOfWeek: d.num}
		}
	}
	return nil
}

// Triage reads a labelled 1-5 acuity.
func Triage(text string) clinical.Extraction {
	if v, ok := captureNum(triageRe, text, 1); ok {
		return clinical.Extraction{clinical.Triage: v}
	}
	return nil
}

// PriorVisits reads prior-visit and days-since-last-visit counters.
func PriorVisits(text string) clinical.Extraction {
	out := clinical.Extraction{}
	if v, ok := captureNum(priorVisitRe, text, 1); ok {
		out[clinical.PriorED30d] = v
	}
	if v, ok := captureNum(daysSinceRe, text, 1); ok {
		out[clinical.DaysSinceVisit] = v
	}
	return out
}

// #endregion visit

// #region history

// Chronic runs the condition table and derives TOTCHRON and NOCHRON.
func Chronic(text string) clinical.Extraction {
	out := clinical.Extraction{}
	matched := make(map[clinical.Field]bool)

	for _, cp := range conditionTable {
		if matched[cp.code] {
			continue
		}
		if cp.re.MatchString(text) {
			out[cp.code] = 1
			matched[cp.code] = true
		}
	}

	// A specific diabetes subtype supersedes the generic flag.
	if _, generic := out[clinical.Diabetes]; generic {
		_, t1 := out[clinical.DiabT1]
		_, t2 := out[clinical.DiabT2]
		if t1 || t2 {
			delete(out, clinical.Diabetes)
		}
	}

	// The count covers every matched code, including a superseded DIABTYP0.
	if v, ok := captureNum(chronCountRe, text, 1); ok {
		out[clinical.TotChron] = v
	} else if len(matched) > 0 {
		out[clinical.TotChron] = float64(len(matched))
	}

	if len(matched) > 0 {
		out[clinical.NoChron] = 0
	} else if v, ok := out[clinical.TotChron]; ok && v == 0 {
		out[clinical.NoChron] = 1
	}

	return out
}

// InjuryFlag sets INJURY on keyword presence. No negation handling.
func InjuryFlag(text string) clinical.Extraction {
	if injuryRe.MatchString(text) {
		return clinical.Extraction{clinical.Injury: 1}
	}
	return nil
}

// SubstanceFlag sets SUBSTAB on keyword presence. No negation handling.
func SubstanceFlag(text string) clinical.Extraction {
	if substanceRe.MatchString(text) {
		return clinical.Extraction{clinical.SubstAb: 1}
	}
	return nil
}

// #endregion history

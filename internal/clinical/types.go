package clinical

import "fmt"

// #region field

// Field is a clinical field identifier. Names are the wire-level vocabulary
// shared with the trained classifier and the stats document.
type Field string

const (
	Age       Field = "AGE"
	Sex       Field = "SEX"
	TempF     Field = "TEMPF"
	Pulse     Field = "PULSE"
	RespRate  Field = "RESPR"
	BPSys     Field = "BPSYS"
	BPDias    Field = "BPDIAS"
	PulseOx   Field = "POPCT"
	PainScale Field = "PAINSCALE"
	ArrTime   Field = "ARRTIME"
	LOV       Field = "LOV"
	DayOfWeek Field = "VDAYR"
	Triage    Field = "IMMEDR"
	TotChron  Field = "TOTCHRON"
	NoChron   Field = "NOCHRON"
	Seen72    Field = "SEEN72"

	PriorED30d     Field = "prior_ed_30d"
	DaysSinceVisit Field = "days_since_last_encounter"
)

// Condition flags. A present flag always holds 1.
const (
	COPD     Field = "COPD"
	CHF      Field = "CHF"
	CAD      Field = "CAD"
	Asthma   Field = "ASTHMA"
	CKD      Field = "CKD"
	ESRD     Field = "ESRD"
	HTN      Field = "HTN"
	Diabetes Field = "DIABTYP0"
	DiabT1   Field = "DIABTYP1"
	DiabT2   Field = "DIABTYP2"
	Cancer   Field = "CANCER"
	Deprn    Field = "DEPRN"
	CeBVD    Field = "CEBVD"
	AlzHD    Field = "ALZHD"
	HypLipid Field = "HYPLIPID"
	Obesity  Field = "OBESITY"
	OSA      Field = "OSA"
	OstPrsis Field = "OSTPRSIS"
	EDHIV    Field = "EDHIV"
	EtOHAb   Field = "ETOHAB"
	SubstAb  Field = "SUBSTAB"
	Injury   Field = "INJURY"
)

// Sex codes.
const (
	SexMale   = 1.0
	SexFemale = 2.0
)

// #endregion field

// #region vocabulary

var vitalFields = []Field{
	Age, Sex, TempF, Pulse, RespRate, BPSys, BPDias, PulseOx, PainScale,
	ArrTime, LOV, DayOfWeek, Triage, TotChron, PriorED30d, DaysSinceVisit,
}

var conditionFields = []Field{
	COPD, CHF, CAD, Asthma, CKD, ESRD, HTN, Diabetes, DiabT1, DiabT2,
	Cancer, Deprn, CeBVD, AlzHD, HypLipid, Obesity, OSA, OstPrsis,
	EDHIV, EtOHAb, SubstAb, Injury,
}

var internalFields = []Field{NoChron, Seen72}

var known = func() map[Field]bool {
	m := make(map[Field]bool)
	for _, group := range [][]Field{vitalFields, conditionFields, internalFields} {
		for _, f := range group {
			m[f] = true
		}
	}
	return m
}()

// ParseField validates a field name against the vocabulary.
func ParseField(name string) (Field, error) {
	f := Field(name)
	if !known[f] {
		return "", fmt.Errorf("unknown clinical field %q", name)
	}
	return f, nil
}

// Conditions returns the condition flags in display order.
func Conditions() []Field {
	out := make([]Field, len(conditionFields))
	copy(out, conditionFields)
	return out
}

// Vitals returns the labelled non-condition fields in display order.
func Vitals() []Field {
	out := make([]Field, len(vitalFields))
	copy(out, vitalFields)
	return out
}

// IsCondition reports whether f is a condition flag.
func IsCondition(f Field) bool {
	_, ok := conditionLabels[f]
	return ok
}

// #endregion vocabulary

// #region labels

var vitalLabels = map[Field]string{
	Age:            "Age",
	Sex:            "Sex",
	TempF:          "Temp (°F)",
	Pulse:          "Pulse",
	RespRate:       "Resp rate",
	BPSys:          "BP systolic",
	BPDias:         "BP diastolic",
	PulseOx:        "SpO₂ %",
	PainScale:      "Pain scale",
	ArrTime:        "Arrival time",
	LOV:            "Length of visit (min)",
	DayOfWeek:      "Day of week",
	Triage:         "Triage acuity (ESI)",
	TotChron:       "Chronic conditions",
	PriorED30d:     "Prior ED visits (30 d)",
	DaysSinceVisit: "Days since last visit",
}

var conditionLabels = map[Field]string{
	COPD:     "COPD",
	CHF:      "Heart Failure (CHF)",
	CAD:      "Coronary Artery Disease",
	Asthma:   "Asthma",
	CKD:      "Chronic Kidney Disease",
	ESRD:     "End-Stage Renal Disease",
	HTN:      "Hypertension",
	Diabetes: "Diabetes",
	DiabT1:   "Diabetes Type 1",
	DiabT2:   "Diabetes Type 2",
	Cancer:   "Cancer",
	Deprn:    "Depression",
	CeBVD:    "Cerebrovascular Disease",
	AlzHD:    "Alzheimer's / Dementia",
	HypLipid: "Hyperlipidemia",
	Obesity:  "Obesity",
	OSA:      "Sleep Apnea",
	OstPrsis: "Osteoporosis",
	EDHIV:    "HIV",
	EtOHAb:   "Alcohol Use Disorder",
	SubstAb:  "Substance Abuse",
	Injury:   "Injury / Trauma",
}

// Label returns the display label for a field, or its identifier.
func Label(f Field) string {
	if l, ok := vitalLabels[f]; ok {
		return l
	}
	if l, ok := conditionLabels[f]; ok {
		return l
	}
	return string(f)
}

// #endregion labels

// #region extraction

// Extraction is a partial field map produced from one piece of text.
type Extraction map[Field]float64

// Fields returns the extracted field names sorted for stable output.
func (e Extraction) Fields() []string {
	out := make([]string, 0, len(e))
	for f := range e {
		out = append(out, string(f))
	}
	sortStrings(out)
	return out
}

// #endregion extraction

package extract

import (
	"testing"

	"github.com/ofeng1/datathon/internal/clinical"
)

const sampleForm = `EMERGENCY DEPARTMENT RECORD
Age: 67   Sex: M
TEMP: 100.9  PULSE: 118  RESP: 22  B/P 150/95  PULSE OX: 91
Condition on admission: guarded
SIGNIFICANT MEDICAL HISTORY: COPD, hypertension, type 2 diabetes
CURRENT PRESCRIPTION MEDICATION: albuterol, metformin
PHYSICAL FINDINGS: wheezing
Pain scale: 6/10
`

func TestParseForm(t *testing.T) {
	got := DefaultPipeline().ParseForm(sampleForm)
	want := clinical.Extraction{
		clinical.Age:       67,
		clinical.Sex:       clinical.SexMale,
		clinical.TempF:     100.9,
		clinical.Pulse:     118,
		clinical.RespRate:  22,
		clinical.BPSys:     150,
		clinical.BPDias:    95,
		clinical.PulseOx:   91,
		clinical.Triage:    2,
		clinical.COPD:      1,
		clinical.HTN:       1,
		clinical.Diabetes:  1,
		clinical.TotChron:  3,
		clinical.NoChron:   0,
		clinical.PainScale: 6,
	}
	assertFields(t, got, want)
	if len(got) != len(want) {
		t.Errorf("field count: got %d (%v), want %d", len(got), got.Fields(), len(want))
	}
}

func TestParseFormLabelledVitalsWin(t *testing.T) {
	form := "PULSE: 88\nSIGNIFICANT MEDICAL HISTORY: CHF, pulse 140 at home\nPHYSICAL FINDINGS: none"
	got := DefaultPipeline().ParseForm(form)
	if got[clinical.Pulse] != 88 {
		t.Errorf("PULSE: got %v, want 88", got[clinical.Pulse])
	}
	if got[clinical.CHF] != 1 {
		t.Errorf("CHF: got %v, want 1", got[clinical.CHF])
	}
}

func TestParseFormStatusFallback(t *testing.T) {
	got := DefaultPipeline().ParseForm("Patient appears stable on arrival.")
	if got[clinical.Triage] != 3 {
		t.Errorf("IMMEDR: got %v, want 3", got[clinical.Triage])
	}
}

func TestParseFormSubstance(t *testing.T) {
	got := DefaultPipeline().ParseForm("Have you used any street drugs? yes")
	if got[clinical.SubstAb] != 1 {
		t.Errorf("SUBSTAB: got %v, want 1", got[clinical.SubstAb])
	}
}

func TestParseFormEmpty(t *testing.T) {
	got := DefaultPipeline().ParseForm("")
	if len(got) != 0 {
		t.Errorf("expected no fields, got %v", got)
	}
}

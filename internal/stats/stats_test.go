package stats

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func TestLoad(t *testing.T) {
	doc := Load(filepath.Join("testdata", FileName), nil)
	if !doc.Loaded() {
		t.Fatal("expected loaded document")
	}
	if len(doc.Regions) != 2 || doc.Regions[1].Name != "South" {
		t.Errorf("regions: %+v", doc.Regions)
	}
	if doc.National == nil || doc.National.NVisits != 18340 {
		t.Errorf("national: %+v", doc.National)
	}
	c, ok := doc.ConditionByID("CHF")
	if !ok || c.NVisits != 512 || c.Pct72hRevisit.String() != "9.38" {
		t.Errorf("CHF: %+v, %v", c, ok)
	}
	if _, ok := doc.ConditionByID("ASTHMA"); ok {
		t.Error("ASTHMA should be absent")
	}
}

func TestLoadMissingOrCorrupt(t *testing.T) {
	dir := t.TempDir()
	corrupt := filepath.Join(dir, "corrupt.json")
	if err := os.WriteFile(corrupt, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}
	for _, path := range []string{filepath.Join(dir, "missing.json"), corrupt} {
		doc := Load(path, nil)
		if doc.Loaded() {
			t.Errorf("%s: should not be loaded", path)
		}
		if _, ok := doc.ConditionByID("COPD"); ok {
			t.Errorf("%s: empty document has conditions", path)
		}
		if string(doc.JSON()) != `{"regions":[],"conditions":[],"national":{}}` {
			t.Errorf("%s: skeleton %s", path, doc.JSON())
		}
	}
}

func TestJSONServesFileVerbatim(t *testing.T) {
	raw, err := os.ReadFile(filepath.Join("testdata", FileName))
	if err != nil {
		t.Fatal(err)
	}
	doc, err := Parse(raw)
	if err != nil {
		t.Fatal(err)
	}
	if string(doc.JSON()) != string(raw) {
		t.Error("JSON() should return the file as written")
	}
}

func TestFormatPct(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"9.38", "9.38"},
		{"8.0", "8.0"},
		{"8.00", "8.0"},
		{"12", "12"},
		{"1.5e1", "15.0"},
		{"", "0"},
	}
	for _, tt := range tests {
		if got := FormatPct(json.Number(tt.in)); got != tt.want {
			t.Errorf("FormatPct(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

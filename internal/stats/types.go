package stats

import "encoding/json"

// FileName is the stats document inside the artifact directory.
const FileName = "stats.json"

// Rates are visit counts and percentages for one population. Percentages
// keep their JSON literal so they render exactly as written.
type Rates struct {
	NVisits       int         `json:"n_visits"`
	Pct72hRevisit json.Number `json:"pct_72h_revisit"`
	PctAdmitted   json.Number `json:"pct_admitted"`
}

// Region is one census region row.
type Region struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
	Rates
}

// Condition is one chronic-condition row, keyed by clinical field code.
type Condition struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Rates
}

// Document is the aggregate ED statistics document.
type Document struct {
	Regions    []Region    `json:"regions"`
	Conditions []Condition `json:"conditions"`
	National   *Rates      `json:"national"`

	raw        []byte
	conditions map[string]Condition
}

package compose

// #region fixed-texts

// Greeting introduces the assistant.
const Greeting = "### Welcome\n" +
	"I'm the **ED Risk Assessment** assistant.\n\n" +
	"Describe a patient and I'll predict their **readmission risk** " +
	"and provide evidence-based recommendations.\n\n" +
	"**Example:** *72 year old male with COPD and CHF, " +
	"temp 101.2, BP 135/85, pulse 110, pain 8/10*\n\n" +
	"You can also ask clinical questions — " +
	"e.g. *\"What are the risk factors for ED revisits?\"*\n\n" +
	"Type **help** for more options."

// Help lists what the assistant understands.
const Help = "### What I can do\n\n" +
	"**Assess a patient** — describe them in plain language:\n" +
	"- *55 year old female with CHF, BP 90/60, pulse 120, pain 9/10*\n" +
	"- *patient age 30, male, COPD, triage 3*\n\n" +
	"**Update values** — refine after an assessment:\n" +
	"- *actually the pain is 5*\n" +
	"- *change age to 60*\n\n" +
	"**Ask a question** — search the knowledge base:\n" +
	"- *What are discharge planning best practices?*\n" +
	"- *Tell me about COPD and ED revisits*\n\n" +
	"**Other commands**\n" +
	"- *new patient* or *reset* — clear current patient data\n" +
	"- *help* — show this message"

const (
	ResetDone = "Patient data cleared. Describe a new patient to begin."

	KnowledgeUnavailable = "Knowledge base not available. Run the training pipeline first."

	NothingRelevant = "I couldn't find relevant information for that question. " +
		"Try rephrasing, or ask about topics like ED revisits, " +
		"discharge planning, chronic conditions, or triage acuity."

	NoExtraction = "I couldn't extract any clinical values from that. " +
		"Try something like: *65 year old male with COPD, temp 101, " +
		"BP 140/90, pulse 105, pain 7/10*"

	ModelsUnavailable = "No models loaded. Run the training pipeline first."

	EmptySummary = "No patient data recorded yet."

	footerRule = "\n---"
	footerHint = "*Update values (e.g. \"change pain to 3\"), " +
		"ask a clinical question, or type **new patient** to start over.*"
)

// #endregion fixed-texts

// #region esi

var esiLabels = map[int]string{
	1: "1 — Immediate",
	2: "2 — Emergent",
	3: "3 — Urgent",
	4: "4 — Semi-urgent",
	5: "5 — Non-urgent",
}

// #endregion esi

package compose

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/ofeng1/datathon/internal/clinical"
	"github.com/ofeng1/datathon/internal/retrieval"
	"github.com/ofeng1/datathon/internal/risk"
	"github.com/ofeng1/datathon/internal/stats"
)

// BarWidth is the number of cells in the risk bar.
const BarWidth = 20

// #region bucket

// Level is a coarse risk bucket.
type Level string

const (
	Low      Level = "low"
	Moderate Level = "moderate"
	High     Level = "high"
)

// Label is the capitalised display form.
func (l Level) Label() string {
	switch l {
	case High:
		return "High"
	case Moderate:
		return "Moderate"
	default:
		return "Low"
	}
}

// Bucket places a probability in the display bucket: 30% and above is
// High, 15% and above is Moderate.
func Bucket(p float64) Level {
	pct := p * 100
	switch {
	case pct >= 30:
		return High
	case pct >= 15:
		return Moderate
	default:
		return Low
	}
}

// queryLevel is the bucket used to phrase the recommendation query. Its
// thresholds are strict, unlike Bucket.
func queryLevel(p float64) Level {
	switch {
	case p > 0.3:
		return High
	case p > 0.15:
		return Moderate
	default:
		return Low
	}
}

// #endregion bucket

// #region risk

// Bar renders p as a fixed-width block bar.
func Bar(p float64) string {
	filled := int(math.RoundToEven(p * BarWidth))
	filled = max(0, min(BarWidth, filled))
	return "[" + strings.Repeat("█", filled) + strings.Repeat("░", BarWidth-filled) + "]"
}

// RiskHeader renders the headline and bar for one task.
func RiskHeader(r risk.Result) string {
	return fmt.Sprintf("### %s Risk: **%.1f%%** — **%s**\n\n%s",
		taskTitle(r.Task), r.Probability*100, Bucket(r.Probability).Label(), Bar(r.Probability))
}

// taskTitle turns a task key such as "readmission" into a heading word.
func taskTitle(task string) string {
	if task == "" {
		return "Readmission"
	}
	words := strings.Fields(strings.ReplaceAll(task, "_", " "))
	for i, w := range words {
		words[i] = strings.ToUpper(w[:1]) + w[1:]
	}
	return strings.Join(words, " ")
}

// #endregion risk

// #region summary

// Summary lists the recorded vitals and conditions.
func Summary(s *clinical.State) string {
	if s.Empty() {
		return EmptySummary
	}
	lines := []string{"### Patient Summary\n"}
	for _, f := range clinical.Vitals() {
		v, ok := s.Get(f)
		if !ok {
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s:** %s", clinical.Label(f), display(f, v, s.InferredTriage)))
	}

	if conds := conditionLabels(s); len(conds) > 0 {
		lines = append(lines, "", "**Conditions:** "+strings.Join(conds, ", "))
	}
	return strings.Join(lines, "\n")
}

func display(f clinical.Field, v float64, inferred bool) string {
	switch f {
	case clinical.Sex:
		if v == clinical.SexMale {
			return "Male"
		}
		return "Female"
	case clinical.Triage:
		out, ok := esiLabels[int(v)]
		if !ok {
			out = strconv.Itoa(int(v))
		}
		if inferred {
			out += " *(inferred)*"
		}
		return out
	default:
		return FormatNumber(v)
	}
}

// FormatNumber renders v with up to six significant digits and no
// trailing zeros.
func FormatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', 6, 64)
}

func conditionLabels(s *clinical.State) []string {
	var out []string
	for _, f := range s.ActiveConditions() {
		out = append(out, clinical.Label(f))
	}
	return out
}

// #endregion summary

// #region condition-risk

// ConditionRisk lists the per-condition national rates for each condition
// present in s. Empty when s has no conditions.
func ConditionRisk(s *clinical.State, doc *stats.Document) string {
	conds := s.ActiveConditions()
	if len(conds) == 0 {
		return ""
	}
	lines := []string{
		"### Risk categories for this patient\n",
		"Based on the **conditions you entered**, here are relevant stats from national ED data:\n",
	}
	for _, f := range conds {
		label := clinical.Label(f)
		c, ok := doc.ConditionByID(string(f))
		if !ok {
			lines = append(lines, fmt.Sprintf("- **%s:** (no aggregate stats in this dataset)", label))
			continue
		}
		lines = append(lines, fmt.Sprintf("- **%s:** %s%% 72-hour ED revisit rate, %s%% admitted (NHAMCS sample).",
			label, stats.FormatPct(c.Pct72hRevisit), stats.FormatPct(c.PctAdmitted)))
	}
	return strings.Join(lines, "\n")
}

// #endregion condition-risk

// #region evidence

// RecommendationQuery phrases the knowledge-base query for a patient whose
// highest task probability is p.
func RecommendationQuery(s *clinical.State, p float64) string {
	parts := []string{fmt.Sprintf("%s risk readmission recommendations", queryLevel(p))}
	parts = append(parts, conditionLabels(s)...)
	if v, ok := s.Get(clinical.Age); ok && v >= 65 {
		parts = append(parts, "elderly patient")
	}
	if v, ok := s.Get(clinical.PainScale); ok && v >= 7 {
		parts = append(parts, "severe pain")
	}
	return strings.Join(parts, " ")
}

// KnowledgeResults renders cleaned hits for a question.
func KnowledgeResults(hits []retrieval.Hit) string {
	return section("### Knowledge Base Results\n", hits)
}

// Recommendations renders cleaned hits as the recommendation section.
// Empty when there are no hits.
func Recommendations(hits []retrieval.Hit) string {
	if len(hits) == 0 {
		return ""
	}
	return section("### Recommendations\n", hits)
}

func section(heading string, hits []retrieval.Hit) string {
	parts := []string{heading}
	for _, h := range hits {
		parts = append(parts, h.Excerpt, "")
	}
	return strings.Join(parts, "\n")
}

// #endregion evidence

// #region assessment

// Assessment is the set of sections making up an assessment reply.
type Assessment struct {
	Summary         string
	Risks           []string
	ConditionRisk   string
	Recommendations string
}

// Render joins the sections in display order and appends the footer.
func (a Assessment) Render() string {
	parts := []string{a.Summary, ""}
	parts = append(parts, strings.Join(a.Risks, "\n\n"))
	if a.ConditionRisk != "" {
		parts = append(parts, "", a.ConditionRisk)
	}
	if a.Recommendations != "" {
		parts = append(parts, "", a.Recommendations)
	}
	parts = append(parts, footerRule, footerHint)
	return strings.Join(parts, "\n")
}

// #endregion assessment

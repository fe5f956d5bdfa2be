package intent

// #region imports
import (
	"regexp"
	"slices"
	"sort"
	"strings"
)

// #endregion

// #region rules

func compile(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(`(?i)` + p)
	}
	return out
}

// rules is evaluated in declaration order; equal priorities keep that order.
var rules = []Rule{
	{
		Name:     Reset,
		Patterns: compile(`\b(new patient|reset|clear|start over)\b`),
		Priority: 90,
	},
	{
		Name: Help,
		Patterns: compile(
			`^help$`,
			`\bwhat can you do\b`,
			`\bcommands\b`,
			`\bhow do i use\b`,
		),
		Priority: 80,
	},
	{
		Name:     Greeting,
		Patterns: compile(`^(hi|hello|hey|greetings|good (morning|afternoon|evening))[\s!.]*$`),
		Priority: 70,
	},
	{
		Name: Ask,
		Patterns: compile(
			`^(what|why|how|when|who|tell me|explain|describe)\b`,
			`\bwhat is\b`,
			`\btell me about\b`,
		),
		Priority: 30,
	},
	{
		Name:     Update,
		Patterns: compile(`\b(actually|change|update|correct|set)\b.*(to|is|=)\b`),
		Priority: 50,
	},
	{
		Name: Assess,
		Patterns: compile(
			`\d+\s*(yr|year|yo|y/?o)\b`,
			`\b(patient|pt)\b`,
			`\b(male|female)\b`,
			`\b(age|temp|pulse|bp|pain|lov|chronic|arriv|triage)\b`,
			`\b(assess|predict|evaluate|risk|score)\b`,
		),
		Priority: 40,
	},
}

// Rules returns a deep copy of the rule table in declaration order.
func Rules() []Rule {
	out := make([]Rule, len(rules))
	for i, r := range rules {
		r.Patterns = slices.Clone(r.Patterns)
		out[i] = r
	}
	return out
}

// #endregion rules

// #region classify

type hit struct {
	priority int
	name     Intent
}

// Classify returns the highest-priority matching intent for message.
// Blank input is Help; no match is Ask.
func Classify(message string) Intent {
	msg := strings.TrimSpace(message)
	if msg == "" {
		return Help
	}

	var hits []hit
	for _, r := range rules {
		if r.Matches(msg) {
			hits = append(hits, hit{r.Priority, r.Name})
		}
	}
	if len(hits) == 0 {
		return Ask
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].priority > hits[j].priority
	})
	return hits[0].name
}

// #endregion classify

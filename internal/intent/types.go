package intent

import "regexp"

// #region intent

// Intent is the conversational purpose of a message.
type Intent string

const (
	Greeting Intent = "greeting"
	Help     Intent = "help"
	Reset    Intent = "reset"
	Ask      Intent = "ask"
	Update   Intent = "update"
	Assess   Intent = "assess"
)

// #endregion intent

// #region rule

// Rule maps an ordered pattern list to an intent at a fixed priority.
type Rule struct {
	Name     Intent
	Patterns []*regexp.Regexp
	Priority int
}

// Matches reports whether any pattern matches msg.
func (r Rule) Matches(msg string) bool {
	for _, p := range r.Patterns {
		if p.MatchString(msg) {
			return true
		}
	}
	return false
}

// #endregion rule

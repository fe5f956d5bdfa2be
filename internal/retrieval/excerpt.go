package retrieval

import "strings"

// CleanExcerpt trims a passage for display. A leading "# " title is dropped.
// Text over maxChars runes is cut at the last line boundary at or past half
// the limit and loses dangling headings and unbalanced bold markers before
// an ellipsis line is appended.
func CleanExcerpt(raw string, maxChars int) string {
	lines := strings.Split(strings.TrimSpace(raw), "\n")
	kept := make([]string, 0, len(lines))
	for _, ln := range lines {
		if len(kept) == 0 && strings.HasPrefix(ln, "# ") {
			continue
		}
		kept = append(kept, ln)
	}
	text := strings.TrimSpace(strings.Join(kept, "\n"))

	runes := []rune(text)
	if len(runes) <= maxChars {
		return text
	}

	cut := string(runes[:maxChars])
	if nl := strings.LastIndex(cut, "\n"); nl >= 0 && float64(len([]rune(cut[:nl]))) >= float64(maxChars)*0.5 {
		cut = cut[:nl]
	}

	out := strings.Split(strings.TrimRight(cut, " \t\r\n"), "\n")
	for len(out) > 0 {
		tail := strings.TrimSpace(out[len(out)-1])
		switch {
		case tail == "", strings.HasPrefix(tail, "#") && len([]rune(tail)) < 6:
			out = out[:len(out)-1]
		case strings.Count(tail, "**")%2 != 0:
			out = out[:len(out)-1]
		default:
			return strings.Join(out, "\n") + "\n..."
		}
	}
	return "\n..."
}

package stats

import (
	"encoding/json"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"strconv"
	"strings"
)

var emptyJSON = []byte(`{"regions":[],"conditions":[],"national":{}}`)

// Empty returns the document used when no stats are available.
func Empty() *Document {
	return &Document{conditions: map[string]Condition{}}
}

// Load reads path. A missing or unreadable file yields the empty document;
// the error is logged, never returned.
func Load(path string, logger *slog.Logger) *Document {
	if logger == nil {
		logger = slog.Default()
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			logger.Warn("stats unreadable", "component", "stats", "path", path, "error", err)
		}
		return Empty()
	}
	doc, err := Parse(data)
	if err != nil {
		logger.Warn("stats corrupt", "component", "stats", "path", path, "error", err)
		return Empty()
	}
	return doc
}

// Parse decodes a stats document.
func Parse(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	doc.raw = data
	doc.conditions = make(map[string]Condition, len(doc.Conditions))
	for _, c := range doc.Conditions {
		if _, dup := doc.conditions[c.ID]; !dup {
			doc.conditions[c.ID] = c
		}
	}
	return &doc, nil
}

// Loaded reports whether the document came from a stats file.
func (d *Document) Loaded() bool {
	return d != nil && d.raw != nil
}

// ConditionByID looks up the row for a condition code.
func (d *Document) ConditionByID(id string) (Condition, bool) {
	if d == nil {
		return Condition{}, false
	}
	c, ok := d.conditions[id]
	return c, ok
}

// JSON returns the document as served over HTTP: the file as written, or
// an empty skeleton.
func (d *Document) JSON() []byte {
	if !d.Loaded() {
		return emptyJSON
	}
	return d.raw
}

// FormatPct renders a percentage the way the stats file writer printed
// floats: integral floats keep a trailing ".0", integers stay bare.
func FormatPct(n json.Number) string {
	s := n.String()
	if s == "" {
		return "0"
	}
	if strings.ContainsAny(s, ".eE") {
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			out := strconv.FormatFloat(f, 'f', -1, 64)
			if !strings.Contains(out, ".") {
				out += ".0"
			}
			return out
		}
	}
	return s
}

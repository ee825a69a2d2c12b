package stats

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// statLine matches "*Label: value", optionally closed by a trailing "*".
var statLine = regexp.MustCompile(`^\s*\*\s*([^:*]+?)\s*:\s*(.*?)\s*\*?\s*$`)

// Extract collects catalog fields written as "*Label: value" lines in text.
// Labels outside the catalog and empty values are skipped; a later line for
// the same field wins.
func Extract(c *Catalog, text string) map[string]any {
	out := make(map[string]any)
	for _, line := range strings.Split(text, "\n") {
		m := statLine.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		f, ok := c.FieldByLabel(m[1])
		if !ok || m[2] == "" {
			continue
		}
		out[f.Key] = parseValue(m[2])
	}
	return out
}

// FormatLine renders a field the way Extract reads it back.
func FormatLine(f Field, value string) string {
	return "*" + f.Label + ": " + value
}

// parseValue keeps numbers as numbers only when they print back exactly as
// written and JSON can encode them; everything else stays text.
func parseValue(raw string) any {
	if i, err := strconv.Atoi(raw); err == nil {
		if strconv.Itoa(i) == raw {
			return i
		}
		return raw
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsNaN(f) && !math.IsInf(f, 0) {
		return f
	}
	return raw
}

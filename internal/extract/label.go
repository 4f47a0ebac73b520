package extract

import "strings"

// labelHit is one occurrence of a field label in the document text.
type labelHit struct {
	line  int    // line index in the document
	col   int    // byte offset of the label within the line
	label string // variant that matched
	after string // candidate value text following the label
}

// knownLabelList is every label variant the default matcher set recognizes.
// Value text is truncated at the next occurrence of any of these, so two
// fields sharing a line do not bleed into each other.
var knownLabelList = buildKnownLabels()

func buildKnownLabels() []string {
	seen := make(map[string]bool)
	var out []string
	add := func(v string) {
		v = strings.ToLower(v)
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, variants := range fieldLabels {
		for _, v := range variants {
			add(v)
		}
	}
	for _, t := range usageTiers {
		for _, v := range t.labels {
			add(v)
		}
	}
	return out
}

// findLabel scans every line for the given label variants and returns all
// occurrences. Matching is case-insensitive on word boundaries; the longest
// variant wins at a position. The captured value runs from after the label
// and an optional separator to the line end or the next known label.
func findLabel(lines []string, variants []string) []labelHit {
	lowered := make([]string, len(variants))
	for i, v := range variants {
		lowered[i] = strings.ToLower(v)
	}

	var hits []labelHit
	for li, line := range lines {
		lower := strings.ToLower(line)
		i := 0
		for i < len(lower) {
			m := matchAt(lower, i, lowered)
			if m == "" || !onBoundary(lower, i, len(m)) {
				i++
				continue
			}
			end := i + len(m)
			cut := nextKnownLabel(lower, end)
			hits = append(hits, labelHit{
				line:  li,
				col:   i,
				label: m,
				after: trimValuePrefix(line[end:cut]),
			})
			i = end
		}
	}
	return hits
}

// matchAt returns the longest variant starting at position i, or "".
func matchAt(lower string, i int, variants []string) string {
	best := ""
	for _, v := range variants {
		if len(v) > len(best) && strings.HasPrefix(lower[i:], v) {
			best = v
		}
	}
	return best
}

// onBoundary rejects labels embedded in a longer word or number, so "period"
// does not match inside "period7" and "tier 1" does not match "tier 10".
func onBoundary(lower string, start, length int) bool {
	if start > 0 && isWordChar(lower[start-1]) {
		return false
	}
	end := start + length
	if end < len(lower) && isWordChar(lower[end]) && isWordChar(lower[end-1]) {
		return false
	}
	return true
}

func isWordChar(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= '0' && c <= '9'
}

// nextKnownLabel finds where the value text must stop: the start of the next
// recognized label on the same line, or the line end.
func nextKnownLabel(lower string, from int) int {
	for j := from; j < len(lower); j++ {
		if m := matchAt(lower, j, knownLabelList); m != "" && onBoundary(lower, j, len(m)) {
			return j
		}
	}
	return len(lower)
}

// trimValuePrefix strips the label/value separator: surrounding spaces plus
// any run of ":", "=", ")", "#", or a dash used as a separator. A dash glued
// to the value is kept so dashed identifiers survive.
func trimValuePrefix(s string) string {
	s = strings.TrimSpace(s)
	for len(s) > 0 {
		switch s[0] {
		case ':', '=', ')', '#':
			s = strings.TrimSpace(s[1:])
			continue
		case '-':
			if len(s) == 1 || s[1] == ' ' || s[1] == '\t' {
				s = strings.TrimSpace(s[1:])
				continue
			}
		}
		break
	}
	return s
}

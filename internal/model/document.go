package model

import "strings"

// Document is the raw per-page text of one PDF. Immutable once produced;
// matchers only ever read it.
type Document struct {
	Pages []string `json:"pages"`
}

// NewDocument wraps per-page text in a Document.
func NewDocument(pages ...string) Document {
	return Document{Pages: pages}
}

// Text returns the concatenated page text.
func (d Document) Text() string {
	return strings.Join(d.Pages, "\n")
}

// Lines returns the document text split into trimmed-right lines.
func (d Document) Lines() []string {
	raw := strings.Split(d.Text(), "\n")
	lines := make([]string, len(raw))
	for i, l := range raw {
		lines[i] = strings.TrimRight(l, " \t\r\f")
	}
	return lines
}

// Empty reports whether the document carries no text at all.
func (d Document) Empty() bool {
	for _, p := range d.Pages {
		if strings.TrimSpace(p) != "" {
			return false
		}
	}
	return true
}

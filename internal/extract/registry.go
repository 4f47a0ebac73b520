package extract

import "github.com/gridbill/gridbill/internal/model"

// Matcher locates and parses one semantic field from raw document text.
// Implementations are independent and side-effect-free; invocation order
// never affects an individual outcome.
type Matcher interface {
	// Field returns the field this matcher is responsible for.
	Field() model.Field

	// Match scans the document and reports the outcome. Malformed input is
	// never an error; it surfaces through the result status.
	Match(doc model.Document) model.FieldResult
}

// Registry holds the matcher set applied to every document.
type Registry struct {
	matchers []Matcher
}

// NewRegistry creates a registry with the default matcher set.
func NewRegistry() *Registry {
	r := &Registry{}
	for _, m := range defaultMatchers() {
		r.Register(m)
	}
	return r
}

// Register appends a matcher. New invoice layouts add matchers without
// touching existing ones.
func (r *Registry) Register(m Matcher) {
	r.matchers = append(r.matchers, m)
}

// Matchers returns the registered matchers in registration order.
func (r *Registry) Matchers() []Matcher {
	return r.matchers
}

// Run applies every matcher to the document, one result per matcher.
func (r *Registry) Run(doc model.Document) []model.FieldResult {
	results := make([]model.FieldResult, 0, len(r.matchers))
	for _, m := range r.matchers {
		results = append(results, m.Match(doc))
	}
	return results
}

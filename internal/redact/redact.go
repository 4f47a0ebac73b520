package redact

import (
	"strings"

	"github.com/gridbill/gridbill/internal/model"
)

// Apply returns a copy of the record with the sensitive fields the policy
// withholds removed. The input record is never modified, and applying the
// same policy again changes nothing. Status and missing_fields pass through
// untouched; which fields a document lacked is not sensitive.
func Apply(record *model.InvoiceRecord, policy model.RedactionPolicy) *model.InvoiceRecord {
	out := record.Clone()
	for _, f := range model.AllFields() {
		if !f.Sensitive() || policy.Show(f) {
			continue
		}
		delete(out.Fields, f)
		out.Notes = dropFieldNotes(out.Notes, f)
	}
	return out
}

// dropFieldNotes removes notes attributed to the field. Matcher notes can
// quote raw candidate text, so they go with the value.
func dropFieldNotes(notes []string, f model.Field) []string {
	prefix := string(f) + ":"
	kept := notes[:0]
	for _, n := range notes {
		if strings.HasPrefix(n, prefix) {
			continue
		}
		kept = append(kept, n)
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}

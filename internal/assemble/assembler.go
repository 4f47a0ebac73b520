package assemble

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/gridbill/gridbill/internal/extract"
	"github.com/gridbill/gridbill/internal/model"
)

// ErrEmptyDocument is returned when a document carries no text to match
// against.
var ErrEmptyDocument = errors.New("document contains no extractable text")

// reconciliationTolerance is one cent. Subtotal plus tax may differ from the
// grand total by at most this much before the record is flagged.
var reconciliationTolerance = decimal.New(1, -2)

// Assembler merges per-field matcher results into invoice records and grades
// each record complete, partial or failed.
type Assembler struct {
	registry *extract.Registry
}

// New creates an assembler backed by the given matcher registry.
func New(registry *extract.Registry) *Assembler {
	return &Assembler{registry: registry}
}

// Assemble runs every registered matcher against the document and merges the
// results into a single record.
func (a *Assembler) Assemble(doc model.Document, sourceFile string) (*model.InvoiceRecord, error) {
	if doc.Empty() {
		return nil, fmt.Errorf("%s: %w", sourceFile, ErrEmptyDocument)
	}
	return a.AssembleResults(sourceFile, a.registry.Run(doc)), nil
}

// AssembleResults merges field results into a record. It is a pure function
// of its inputs: the same results always produce the same record, so a
// post-fill reassembly regrades without re-reading the document.
func (a *Assembler) AssembleResults(sourceFile string, results []model.FieldResult) *model.InvoiceRecord {
	record := &model.InvoiceRecord{
		SourceFile: sourceFile,
		Fields:     make(map[model.Field]model.Value),
	}

	requiredMissing := false
	gaps := false

	// 1. Merge per-field outcomes
	for _, r := range results {
		switch r.Status {
		case model.ResultFound:
			record.Fields[r.Field] = r.Value
		case model.ResultAmbiguous:
			gaps = true
			record.MissingFields = append(record.MissingFields, r.Field)
		case model.ResultNotFound:
			gaps = true
			record.MissingFields = append(record.MissingFields, r.Field)
			if r.Field.Required() {
				requiredMissing = true
				record.Notes = append(record.Notes, fmt.Sprintf("%s: required field not found", r.Field))
			}
		}
		if r.Note != "" {
			record.Notes = append(record.Notes, fmt.Sprintf("%s: %s", r.Field, r.Note))
		}
	}

	// 2. Cross-check the totals arithmetic
	reconciled := reconcile(record)

	// 3. Cross-check tier units against metered usage
	checkTierUsage(record)

	record.Status = grade(requiredMissing, gaps, reconciled)
	model.SortFields(record.MissingFields)
	return record
}

// grade picks the record status. A required field that never resolved fails
// the record; anything else that kept a field out of the record, or a totals
// mismatch, demotes it to partial.
func grade(requiredMissing, gaps bool, reconciled bool) model.ExtractionStatus {
	if requiredMissing {
		return model.StatusFailed
	}
	if gaps || !reconciled {
		return model.StatusPartial
	}
	return model.StatusComplete
}

// reconcile verifies that subtotal plus tax lands within one cent of the
// grand total. It only runs when all three amounts resolved; a mismatch is
// recorded as a note and demotes the record, it never fails it.
func reconcile(record *model.InvoiceRecord) bool {
	subtotal, okSub := record.Get(model.FieldSubtotal)
	tax, okTax := record.Get(model.FieldTax)
	grand, okGrand := record.Get(model.FieldGrandTotal)
	if !okSub || !okTax || !okGrand {
		return true
	}

	sum := subtotal.Number.Add(tax.Number)
	diff := sum.Sub(grand.Number).Abs()
	if diff.LessThanOrEqual(reconciliationTolerance) {
		return true
	}

	record.Notes = append(record.Notes, fmt.Sprintf(
		"reconciliation: subtotal %s + tax %s = %s, grand total is %s",
		subtotal.Number.StringFixed(2), tax.Number.StringFixed(2),
		sum.StringFixed(2), grand.Number.StringFixed(2)))
	return false
}

// checkTierUsage compares the sum of tier unit counts to the metered usage.
// Utilities round tier boundaries inconsistently, so a mismatch here is worth
// a note but says nothing about record health.
func checkTierUsage(record *model.InvoiceRecord) {
	usage, ok := record.Get(model.FieldUsage)
	if !ok {
		return
	}

	sum := 0
	for _, f := range []model.Field{model.FieldTier1Units, model.FieldTier2Units, model.FieldTier3Units} {
		v, ok := record.Get(f)
		if !ok {
			return
		}
		sum += v.Count
	}

	if usage.Number.Equal(decimal.NewFromInt(int64(sum))) {
		return
	}
	record.Notes = append(record.Notes, fmt.Sprintf(
		"usage: tier units total %d, metered usage is %s", sum, usage.Number))
}

package extract

import (
	"fmt"
	"regexp"

	"github.com/shopspring/decimal"

	"github.com/gridbill/gridbill/internal/model"
)

// fieldLabels maps each label-anchored field to its accepted label variants,
// covering the layouts seen across supported utility invoices.
var fieldLabels = map[model.Field][]string{
	model.FieldInvoiceNumber:   {"invoice number", "invoice no", "invoice #", "bill number", "bill no"},
	model.FieldBillingPeriod:   {"billing period", "bill period", "period"},
	model.FieldInvoiceDate:     {"invoice date", "issue date", "date issued"},
	model.FieldDueDate:         {"due date", "payment due", "pay by"},
	model.FieldCustomerAccount: {"customer account", "account number", "account no"},
	model.FieldCustomerAddress: {"service address", "customer address"},
	model.FieldPreviousReading: {"previous reading", "prev reading", "last reading"},
	model.FieldCurrentReading:  {"current reading", "present reading"},
	model.FieldServiceCharge:   {"service charge", "fixed charge"},
	model.FieldSubtotal:        {"subtotal", "sub total", "sub-total"},
	model.FieldTax:             {"vat", "tax", "sales tax"},
	model.FieldGrandTotal:      {"grand total", "total amount due", "amount due", "total due"},
}

// usageTier describes one consumption tier line of a tariff: units, per-unit
// rate and charged amount follow the tier label on the same line.
type usageTier struct {
	labels []string
	units  model.Field
	rate   model.Field
	amount model.Field
}

var usageTiers = []usageTier{
	{
		labels: []string{"tier 1 (1-150)", "tier 1", "1-150"},
		units:  model.FieldTier1Units,
		rate:   model.FieldTier1Rate,
		amount: model.FieldTier1Amount,
	},
	{
		labels: []string{"tier 2 (151-400)", "tier 2", "151-400"},
		units:  model.FieldTier2Units,
		rate:   model.FieldTier2Rate,
		amount: model.FieldTier2Amount,
	},
	{
		labels: []string{"tier 3 (over 400)", "tier 3", "over 400", "401+"},
		units:  model.FieldTier3Units,
		rate:   model.FieldTier3Rate,
		amount: model.FieldTier3Amount,
	},
}

// defaultMatchers returns the built-in matcher set, one per recognized field.
func defaultMatchers() []Matcher {
	labelFields := []model.Field{
		model.FieldInvoiceNumber,
		model.FieldBillingPeriod,
		model.FieldInvoiceDate,
		model.FieldDueDate,
		model.FieldCustomerAccount,
		model.FieldCustomerAddress,
		model.FieldPreviousReading,
		model.FieldCurrentReading,
		model.FieldServiceCharge,
		model.FieldSubtotal,
		model.FieldTax,
	}

	ms := make([]Matcher, 0, len(labelFields)+2+3*len(usageTiers))
	for _, f := range labelFields {
		ms = append(ms, &labelMatcher{field: f, labels: fieldLabels[f]})
	}

	anchors := append(append([]string{}, fieldLabels[model.FieldSubtotal]...), fieldLabels[model.FieldTax]...)
	ms = append(ms, &grandTotalMatcher{
		labels:  fieldLabels[model.FieldGrandTotal],
		anchors: anchors,
	})
	ms = append(ms, &usageMatcher{})

	for _, t := range usageTiers {
		ms = append(ms,
			&tierMatcher{tier: t, component: tierUnits},
			&tierMatcher{tier: t, component: tierRate},
			&tierMatcher{tier: t, component: tierAmount},
		)
	}
	return ms
}

// parsedHit is a label occurrence whose value text parsed cleanly.
type parsedHit struct {
	hit   labelHit
	value model.Value
}

// parseHits runs the field's kind parser over each occurrence, dropping
// occurrences with no parseable value.
func parseHits(f model.Field, hits []labelHit) []parsedHit {
	var out []parsedHit
	for _, h := range hits {
		if h.after == "" {
			continue
		}
		v, err := ParseValue(f, h.after)
		if err != nil {
			continue
		}
		out = append(out, parsedHit{hit: h, value: v})
	}
	return out
}

// resolveParsed applies the shared duplicate rule: no occurrence or no
// parseable value is not_found; occurrences agreeing on one parsed value
// resolve found; disagreeing values stay ambiguous.
func resolveParsed(f model.Field, hits []labelHit, parsed []parsedHit) model.FieldResult {
	if len(hits) == 0 || len(parsed) == 0 {
		return model.NotFound(f)
	}

	first := parsed[0]
	agreed := true
	for _, p := range parsed[1:] {
		if !p.value.Equal(first.value) {
			agreed = false
			break
		}
	}
	if agreed {
		return model.Found(f, first.value, first.hit.after)
	}

	candidates := make([]string, len(parsed))
	for i, p := range parsed {
		candidates[i] = p.hit.after
	}
	note := fmt.Sprintf("label occurs %d times with differing values", len(parsed))
	return model.Ambiguous(f, candidates, note)
}

// labelMatcher extracts one field anchored to a known label.
type labelMatcher struct {
	field  model.Field
	labels []string
}

func (m *labelMatcher) Field() model.Field {
	return m.field
}

func (m *labelMatcher) Match(doc model.Document) model.FieldResult {
	hits := findLabel(doc.Lines(), m.labels)
	return resolveParsed(m.field, hits, parseHits(m.field, hits))
}

// grandTotalMatcher adds a totals-block tie-break on top of the shared label
// scan: when duplicate labels disagree, the occurrence nearest a subtotal or
// tax line wins. A distance tie or an absent anchor keeps the ambiguity.
type grandTotalMatcher struct {
	labels  []string
	anchors []string
}

func (m *grandTotalMatcher) Field() model.Field {
	return model.FieldGrandTotal
}

func (m *grandTotalMatcher) Match(doc model.Document) model.FieldResult {
	lines := doc.Lines()
	hits := findLabel(lines, m.labels)
	parsed := parseHits(model.FieldGrandTotal, hits)
	res := resolveParsed(model.FieldGrandTotal, hits, parsed)
	if res.Status != model.ResultAmbiguous {
		return res
	}

	anchors := findLabel(lines, m.anchors)
	if len(anchors) == 0 {
		return res
	}

	best := -1
	bestDist := 0
	tie := false
	for i, p := range parsed {
		d := anchorDistance(p.hit.line, anchors)
		switch {
		case best == -1 || d < bestDist:
			best, bestDist, tie = i, d, false
		case d == bestDist && !p.value.Equal(parsed[best].value):
			tie = true
		}
	}
	if tie {
		return res
	}

	out := model.Found(model.FieldGrandTotal, parsed[best].value, parsed[best].hit.after)
	out.Note = "tie-break: occurrence nearest totals section"
	return out
}

func anchorDistance(line int, anchors []labelHit) int {
	best := -1
	for _, a := range anchors {
		d := line - a.line
		if d < 0 {
			d = -d
		}
		if best == -1 || d < best {
			best = d
		}
	}
	return best
}

// usageMatcher derives usage from the meter reading pair. It locates both
// reading labels itself so matcher independence holds.
type usageMatcher struct{}

func (m *usageMatcher) Field() model.Field {
	return model.FieldUsage
}

func (m *usageMatcher) Match(doc model.Document) model.FieldResult {
	lines := doc.Lines()
	prev := singleReading(lines, model.FieldPreviousReading)
	curr := singleReading(lines, model.FieldCurrentReading)
	if prev == nil || curr == nil {
		return model.NotFound(model.FieldUsage)
	}

	usage := curr.Sub(*prev)
	if usage.IsNegative() {
		return model.Ambiguous(
			model.FieldUsage,
			[]string{usage.String()},
			"negative derived usage, possible meter rollover",
		)
	}
	raw := fmt.Sprintf("%s - %s", curr.String(), prev.String())
	return model.Found(model.FieldUsage, model.ReadingValue(usage), raw)
}

// singleReading resolves a reading field to one agreed value, or nil when the
// field is absent or ambiguous.
func singleReading(lines []string, f model.Field) *decimal.Decimal {
	hits := findLabel(lines, fieldLabels[f])
	res := resolveParsed(f, hits, parseHits(f, hits))
	if res.Status != model.ResultFound {
		return nil
	}
	n := res.Value.Number
	return &n
}

// tierComponent selects which column of a tier line a matcher extracts.
type tierComponent int

const (
	tierUnits tierComponent = iota
	tierRate
	tierAmount
)

// tierLinePattern captures "<units> [units] [@] <rate> <amount>" following a
// tier label.
var tierLinePattern = regexp.MustCompile(`^(\d+)(?:\s*units?)?\s*@?\s*([\d.,]+)\s+([\d.,]+)$`)

// tierMatcher extracts one column of one consumption tier line.
type tierMatcher struct {
	tier      usageTier
	component tierComponent
}

func (m *tierMatcher) Field() model.Field {
	switch m.component {
	case tierRate:
		return m.tier.rate
	case tierAmount:
		return m.tier.amount
	default:
		return m.tier.units
	}
}

func (m *tierMatcher) Match(doc model.Document) model.FieldResult {
	f := m.Field()
	hits := findLabel(doc.Lines(), m.tier.labels)

	var parsed []parsedHit
	for _, h := range hits {
		groups := tierLinePattern.FindStringSubmatch(h.after)
		if groups == nil {
			continue
		}
		raw := groups[1+int(m.component)]
		v, err := ParseValue(f, raw)
		if err != nil {
			continue
		}
		ph := h
		ph.after = raw
		parsed = append(parsed, parsedHit{hit: ph, value: v})
	}
	return resolveParsed(f, hits, parsed)
}

package model

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Field names one semantic invoice field. The string form doubles as the
// CSV column name.
type Field string

const (
	FieldInvoiceNumber   Field = "invoice_number"
	FieldBillingPeriod   Field = "billing_period"
	FieldInvoiceDate     Field = "invoice_date"
	FieldDueDate         Field = "due_date"
	FieldCustomerAccount Field = "customer_account"
	FieldCustomerAddress Field = "customer_address"
	FieldPreviousReading Field = "previous_reading"
	FieldCurrentReading  Field = "current_reading"
	FieldUsage           Field = "usage"
	FieldTier1Units      Field = "tier1_units"
	FieldTier1Rate       Field = "tier1_rate"
	FieldTier1Amount     Field = "tier1_amount"
	FieldTier2Units      Field = "tier2_units"
	FieldTier2Rate       Field = "tier2_rate"
	FieldTier2Amount     Field = "tier2_amount"
	FieldTier3Units      Field = "tier3_units"
	FieldTier3Rate       Field = "tier3_rate"
	FieldTier3Amount     Field = "tier3_amount"
	FieldServiceCharge   Field = "service_charge"
	FieldSubtotal        Field = "subtotal"
	FieldTax             Field = "tax"
	FieldGrandTotal      Field = "grand_total"
)

// allFields is the canonical column order for tabular output.
var allFields = []Field{
	FieldInvoiceNumber,
	FieldBillingPeriod,
	FieldInvoiceDate,
	FieldDueDate,
	FieldCustomerAccount,
	FieldCustomerAddress,
	FieldPreviousReading,
	FieldCurrentReading,
	FieldUsage,
	FieldTier1Units,
	FieldTier1Rate,
	FieldTier1Amount,
	FieldTier2Units,
	FieldTier2Rate,
	FieldTier2Amount,
	FieldTier3Units,
	FieldTier3Rate,
	FieldTier3Amount,
	FieldServiceCharge,
	FieldSubtotal,
	FieldTax,
	FieldGrandTotal,
}

// AllFields returns every recognized field in canonical column order.
func AllFields() []Field {
	out := make([]Field, len(allFields))
	copy(out, allFields)
	return out
}

// RequiredFields returns the fields a record must carry to avoid failed status.
func RequiredFields() []Field {
	return []Field{FieldInvoiceNumber, FieldBillingPeriod, FieldGrandTotal}
}

// Required reports whether the field is mandatory for a usable record.
func (f Field) Required() bool {
	switch f {
	case FieldInvoiceNumber, FieldBillingPeriod, FieldGrandTotal:
		return true
	}
	return false
}

// Sensitive reports whether the field is subject to privacy redaction.
func (f Field) Sensitive() bool {
	switch f {
	case FieldCustomerAccount, FieldCustomerAddress:
		return true
	}
	return false
}

// Kind returns the value kind the field parses to.
func (f Field) Kind() Kind {
	switch f {
	case FieldInvoiceNumber, FieldCustomerAccount, FieldCustomerAddress:
		return KindText
	case FieldBillingPeriod:
		return KindPeriod
	case FieldInvoiceDate, FieldDueDate:
		return KindDate
	case FieldPreviousReading, FieldCurrentReading, FieldUsage:
		return KindReading
	case FieldTier1Units, FieldTier2Units, FieldTier3Units:
		return KindCount
	case FieldTier1Rate, FieldTier2Rate, FieldTier3Rate:
		return KindRate
	default:
		return KindAmount
	}
}

// Kind fixes how a field value is parsed and rendered.
type Kind string

const (
	KindText    Kind = "text"    // identifier or free text
	KindAmount  Kind = "amount"  // monetary, two-decimal precision
	KindRate    Kind = "rate"    // per-unit price, up to four decimals
	KindDate    Kind = "date"    // calendar date
	KindPeriod  Kind = "period"  // billing month
	KindReading Kind = "reading" // meter counter value
	KindCount   Kind = "count"   // whole units
)

// Value is one parsed, typed field value.
type Value struct {
	Kind   Kind            `json:"kind"`
	Text   string          `json:"text,omitempty"`
	Number decimal.Decimal `json:"number,omitempty"` // amount, rate, reading
	Count  int             `json:"count,omitempty"`
	Date   time.Time       `json:"date,omitempty"`
	Period Period          `json:"period,omitempty"`
}

// TextValue wraps an identifier or free-text value.
func TextValue(s string) Value {
	return Value{Kind: KindText, Text: s}
}

// AmountValue wraps a monetary amount.
func AmountValue(d decimal.Decimal) Value {
	return Value{Kind: KindAmount, Number: d}
}

// RateValue wraps a per-unit price.
func RateValue(d decimal.Decimal) Value {
	return Value{Kind: KindRate, Number: d}
}

// ReadingValue wraps a meter reading or derived usage.
func ReadingValue(d decimal.Decimal) Value {
	return Value{Kind: KindReading, Number: d}
}

// CountValue wraps a whole-unit count.
func CountValue(n int) Value {
	return Value{Kind: KindCount, Count: n}
}

// DateValue wraps a calendar date.
func DateValue(t time.Time) Value {
	return Value{Kind: KindDate, Date: t}
}

// PeriodValue wraps a billing period.
func PeriodValue(p Period) Value {
	return Value{Kind: KindPeriod, Period: p}
}

// String renders the canonical tabular form of the value.
func (v Value) String() string {
	switch v.Kind {
	case KindText:
		return v.Text
	case KindAmount:
		return v.Number.StringFixed(2)
	case KindRate, KindReading:
		return v.Number.String()
	case KindCount:
		return strconv.Itoa(v.Count)
	case KindDate:
		return v.Date.Format("2006-01-02")
	case KindPeriod:
		return v.Period.String()
	}
	return ""
}

// Equal compares two values for semantic equality.
func (v Value) Equal(o Value) bool {
	if v.Kind != o.Kind {
		return false
	}
	switch v.Kind {
	case KindText:
		return v.Text == o.Text
	case KindAmount, KindRate, KindReading:
		return v.Number.Equal(o.Number)
	case KindCount:
		return v.Count == o.Count
	case KindDate:
		return v.Date.Equal(o.Date)
	case KindPeriod:
		return v.Period == o.Period
	}
	return false
}

// Period is a billing period with month resolution.
type Period struct {
	Year  int        `json:"year"`
	Month time.Month `json:"month"`
}

// String renders the canonical YYYY-MM form.
func (p Period) String() string {
	return fmt.Sprintf("%04d-%02d", p.Year, int(p.Month))
}

// Before reports whether p precedes o in time.
func (p Period) Before(o Period) bool {
	if p.Year != o.Year {
		return p.Year < o.Year
	}
	return p.Month < o.Month
}

// IsZero reports whether the period is unset.
func (p Period) IsZero() bool {
	return p.Year == 0 && p.Month == 0
}

// ParsePeriod parses the canonical YYYY-MM form.
func ParsePeriod(s string) (Period, error) {
	t, err := time.Parse("2006-01", s)
	if err != nil {
		return Period{}, fmt.Errorf("parse period %q: %w", s, err)
	}
	return Period{Year: t.Year(), Month: t.Month()}, nil
}

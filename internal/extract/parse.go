package extract

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/gridbill/gridbill/internal/model"
)

var (
	amountPattern     = regexp.MustCompile(`^\d+(\.\d{1,2})?$`)
	ratePattern       = regexp.MustCompile(`^\d+(\.\d{1,4})?$`)
	readingPattern    = regexp.MustCompile(`^\d+(\.\d+)?$`)
	countPattern      = regexp.MustCompile(`^\d+$`)
	identifierPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9/_-]*$`)
)

// currencyAffixes are stripped from either end of monetary text before the
// numeric parse. Lowercase; comparison is case-insensitive.
var currencyAffixes = []string{"$", "฿", "€", "£", "thb", "usd", "eur", "gbp", "baht"}

var dateFormats = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2 January 2006",
	"Jan 2, 2006",
	"2 Jan 2006",
}

var periodFormats = []string{
	"01/2006",
	"2006-01",
	"Jan 2006",
	"January 2006",
}

// ParseValue parses raw text according to the field's kind. Matchers and the
// LLM fill both validate through here, so a value is typed the same way no
// matter which path produced it.
func ParseValue(f model.Field, raw string) (model.Value, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return model.Value{}, fmt.Errorf("%s: empty value", f)
	}

	switch f.Kind() {
	case model.KindText:
		if f == model.FieldCustomerAddress {
			return parseFreeText(f, raw)
		}
		return parseIdentifier(f, raw)
	case model.KindAmount:
		d, err := parseDecimal(raw, amountPattern)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %w", f, err)
		}
		return model.AmountValue(d), nil
	case model.KindRate:
		d, err := parseDecimal(raw, ratePattern)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %w", f, err)
		}
		return model.RateValue(d), nil
	case model.KindReading:
		d, err := parseDecimal(raw, readingPattern)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %w", f, err)
		}
		return model.ReadingValue(d), nil
	case model.KindCount:
		n, err := parseCount(raw)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %w", f, err)
		}
		return model.CountValue(n), nil
	case model.KindDate:
		t, err := parseDate(raw)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %w", f, err)
		}
		return model.DateValue(t), nil
	case model.KindPeriod:
		p, err := parsePeriod(raw)
		if err != nil {
			return model.Value{}, fmt.Errorf("%s: %w", f, err)
		}
		return model.PeriodValue(p), nil
	}
	return model.Value{}, fmt.Errorf("%s: unsupported kind %s", f, f.Kind())
}

// parseDecimal tries the full text, then the first and last whitespace
// tokens, against the kind's numeric pattern. Currency affixes and thousands
// separators are stripped first; negatives never match.
func parseDecimal(raw string, pattern *regexp.Regexp) (decimal.Decimal, error) {
	for _, cand := range numericCandidates(raw) {
		s := strings.ReplaceAll(stripCurrency(cand), ",", "")
		if !pattern.MatchString(s) {
			continue
		}
		d, err := decimal.NewFromString(s)
		if err != nil {
			continue
		}
		return d, nil
	}
	return decimal.Decimal{}, fmt.Errorf("no numeric value in %q", raw)
}

func parseCount(raw string) (int, error) {
	for _, cand := range numericCandidates(raw) {
		s := strings.ReplaceAll(strings.TrimSpace(cand), ",", "")
		if !countPattern.MatchString(s) {
			continue
		}
		return strconv.Atoi(s)
	}
	return 0, fmt.Errorf("no unit count in %q", raw)
}

func numericCandidates(raw string) []string {
	cands := []string{raw}
	fields := strings.Fields(raw)
	if len(fields) > 1 {
		cands = append(cands, fields[0], fields[len(fields)-1])
	}
	return cands
}

// stripCurrency removes currency symbols and codes from either end of the
// text, repeatedly, so "$ 128.45" and "128.45 THB" both reduce to "128.45".
func stripCurrency(s string) string {
	s = strings.TrimSpace(s)
	for {
		lower := strings.ToLower(s)
		trimmed := s
		for _, affix := range currencyAffixes {
			if strings.HasPrefix(lower, affix) {
				trimmed = strings.TrimSpace(s[len(affix):])
				break
			}
			if strings.HasSuffix(lower, affix) {
				trimmed = strings.TrimSpace(s[:len(s)-len(affix)])
				break
			}
		}
		if trimmed == s {
			return s
		}
		s = trimmed
	}
}

func parseDate(raw string) (time.Time, error) {
	for _, cand := range tokenPrefixes(raw, 3) {
		for _, layout := range dateFormats {
			if t, err := time.Parse(layout, cand); err == nil {
				return t, nil
			}
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized date %q", raw)
}

func parsePeriod(raw string) (model.Period, error) {
	for _, cand := range tokenPrefixes(raw, 2) {
		for _, layout := range periodFormats {
			if t, err := time.Parse(layout, cand); err == nil {
				return model.Period{Year: t.Year(), Month: t.Month()}, nil
			}
		}
	}
	return model.Period{}, fmt.Errorf("unrecognized billing period %q", raw)
}

// tokenPrefixes yields the full text followed by leading token prefixes,
// longest first, so trailing qualifiers do not defeat the parse.
func tokenPrefixes(raw string, max int) []string {
	fields := strings.Fields(raw)
	n := len(fields)
	if n > max {
		n = max
	}
	cands := []string{raw}
	for i := n; i >= 1; i-- {
		cands = append(cands, strings.Join(fields[:i], " "))
	}
	return cands
}

func parseIdentifier(f model.Field, raw string) (model.Value, error) {
	tok := strings.Fields(raw)[0]
	if !identifierPattern.MatchString(tok) {
		return model.Value{}, fmt.Errorf("%s: invalid identifier %q", f, tok)
	}
	return model.TextValue(tok), nil
}

func parseFreeText(f model.Field, raw string) (model.Value, error) {
	for _, r := range raw {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' {
			return model.TextValue(raw), nil
		}
	}
	return model.Value{}, fmt.Errorf("%s: no content in %q", f, raw)
}

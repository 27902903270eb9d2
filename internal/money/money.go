// Package money parses Brazilian-formatted monetary amounts, where '.' is
// the thousands separator and ',' the decimal mark ("3.038,08" -> 3038.08).
package money

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

var (
	// "R$ 3.038,08", "1.234,56", "89,00"
	amountPattern = regexp.MustCompile(`R?\$?\s*\d{1,3}(?:\.\d{3})*,\d{2}`)
	currencyToken = regexp.MustCompile(`R\$`)
)

// Parse converts an amount fragment to a decimal. It tolerates a leading
// currency symbol and surrounding whitespace.
func Parse(s string) (decimal.Decimal, error) {
	s = strings.ReplaceAll(s, "R$", "")
	s = strings.TrimPrefix(strings.TrimSpace(s), "R")
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ".", "")
	s = strings.ReplaceAll(s, ",", ".")
	return decimal.NewFromString(s)
}

// ScanAll returns every amount-shaped token in the text, in order.
func ScanAll(text string) []decimal.Decimal {
	var out []decimal.Decimal
	for _, tok := range amountPattern.FindAllString(text, -1) {
		if v, err := Parse(tok); err == nil {
			out = append(out, v)
		}
	}
	return out
}

// Max returns the largest amount-shaped token in the text, or false when
// the text carries none.
func Max(text string) (decimal.Decimal, bool) {
	values := ScanAll(text)
	if len(values) == 0 {
		return decimal.Decimal{}, false
	}
	max := values[0]
	for _, v := range values[1:] {
		if v.GreaterThan(max) {
			max = v
		}
	}
	return max, true
}

// CountCurrencyTokens counts "R$" occurrences; used as an ML feature.
func CountCurrencyTokens(text string) int {
	return len(currencyToken.FindAllString(text, -1))
}

// CountValueTokens counts amount-shaped tokens; used as an ML feature.
func CountValueTokens(text string) int {
	return len(amountPattern.FindAllString(text, -1))
}

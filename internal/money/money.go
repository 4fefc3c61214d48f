// Package money rounds and formats currency amounts for presentation.
// The mortgage engine works in float64; values pass through here on their
// way to a response, a template or the terminal.
package money

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Round returns v rounded half away from zero to whole cents
func Round(v float64) float64 {
	return Decimal(v).InexactFloat64()
}

// Decimal converts v to a decimal rounded to cents
func Decimal(v float64) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(2)
}

// Format renders v as US dollars with thousands separators, e.g. "-$1,234.50"
func Format(v float64) string {
	return withSign(v, "$", 2)
}

// FormatWhole renders v as whole dollars, e.g. "$312,000"
func FormatWhole(v float64) string {
	return withSign(v, "$", 0)
}

func withSign(v float64, symbol string, places int32) string {
	d := decimal.NewFromFloat(v).Round(places)
	if d.IsNegative() {
		return "-" + symbol + group(d.Abs().StringFixed(places))
	}
	return symbol + group(d.StringFixed(places))
}

// group inserts thousands separators into a non-negative fixed-point string
func group(s string) string {
	intPart, fracPart, hasFrac := strings.Cut(s, ".")

	var sb strings.Builder
	for i, c := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			sb.WriteRune(',')
		}
		sb.WriteRune(c)
	}
	if hasFrac {
		sb.WriteByte('.')
		sb.WriteString(fracPart)
	}
	return sb.String()
}

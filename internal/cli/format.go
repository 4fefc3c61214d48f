// Package cli provides formatting and rendering utilities for terminal output.
package cli

import (
	"fmt"

	"realestate/internal/money"
)

// FormatMoney formats a dollar amount with cents, e.g. "$1,234.50"
func FormatMoney(v float64) string {
	return money.Format(v)
}

// FormatWhole formats a dollar amount without cents
func FormatWhole(v float64) string {
	return money.FormatWhole(v)
}

// FormatPercent formats a 0-1 fraction as a percentage string.
func FormatPercent(f float64) string {
	return fmt.Sprintf("%.1f%%", f*100)
}

// FormatRate formats a rate already expressed in percent, e.g. 6.5 -> "6.50%"
func FormatRate(pct float64) string {
	return fmt.Sprintf("%.2f%%", pct)
}

// FormatMonths formats a count of monthly payments as years and months.
// e.g., 360 -> "30y", 125 -> "10y 5m", 7 -> "7m"
func FormatMonths(n int) string {
	if n <= 0 {
		return "0m"
	}
	years, months := n/12, n%12
	switch {
	case years == 0:
		return fmt.Sprintf("%dm", months)
	case months == 0:
		return fmt.Sprintf("%dy", years)
	default:
		return fmt.Sprintf("%dy %dm", years, months)
	}
}

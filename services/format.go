package services

import (
	"fmt"
	"strings"
)

// FormatEUR formats an amount in Italian Euro notation: dots group the
// thousands, a comma separates the decimals (e.g. €1.234.567,89). The
// result always carries exactly 2 decimal places.
func FormatEUR(amount float64) string {
	negative := false
	if amount < 0 {
		negative = true
		amount = -amount
	}

	raw := fmt.Sprintf("%.2f", amount)
	parts := strings.SplitN(raw, ".", 2)
	intPart := parts[0]
	decPart := parts[1]

	result := "€" + applyThousandsGrouping(intPart) + "," + decPart
	if negative {
		result = "-" + result
	}
	return result
}

// applyThousandsGrouping inserts dots into an integer string, grouping
// digits in threes from the right.
func applyThousandsGrouping(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	remaining := s[:n-3]
	for len(remaining) > 3 {
		result = remaining[len(remaining)-3:] + "." + result
		remaining = remaining[:len(remaining)-3]
	}
	if len(remaining) > 0 {
		result = remaining + "." + result
	}
	return result
}

// FormatQty renders a quantity without trailing zeros, comma-decimal.
func FormatQty(qty float64) string {
	raw := fmt.Sprintf("%.4f", qty)
	raw = strings.TrimRight(raw, "0")
	raw = strings.TrimRight(raw, ".")
	return strings.ReplaceAll(raw, ".", ",")
}

// FormatPercent renders a ratio as a percentage with one decimal.
func FormatPercent(ratio float64) string {
	return strings.ReplaceAll(fmt.Sprintf("%.1f%%", ratio*100), ".", ",")
}

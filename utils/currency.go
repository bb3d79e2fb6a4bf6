package utils

import (
	"strconv"
	"strings"
)

// FormatCurrencyIDR formats a rupiah amount with dot thousand separators.
// Example: 15000 -> "Rp 15.000", -2500 -> "-Rp 2.500"
func FormatCurrencyIDR(amount int64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = -amount
	}

	digits := strconv.FormatInt(amount, 10)
	var groups []string
	for i := len(digits); i > 0; i -= 3 {
		start := i - 3
		if start < 0 {
			start = 0
		}
		groups = append([]string{digits[start:i]}, groups...)
	}

	return sign + "Rp " + strings.Join(groups, ".")
}

package handlers

import (
	"math"
	"strconv"
	"strings"
)

// FormatPrice renders amount as "$1.234,56": dot thousands separator, comma decimals.
func FormatPrice(amount float64) string {
	sign := ""
	if amount < 0 {
		sign = "-"
		amount = math.Abs(amount)
	}

	fixed := strconv.FormatFloat(amount, 'f', 2, 64)
	whole, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(r)
	}
	return sign + "$" + b.String() + "," + frac
}

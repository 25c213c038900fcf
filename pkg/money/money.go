// Package money provides fixed-point money arithmetic in integer minor
// units (cents). All balances, fees, and transaction amounts in the
// platform are int64 minor units; floating point never touches money.
package money

import (
	"fmt"
	"strconv"
	"strings"
)

// BasisPointsDenominator is the scale of all commission rates.
// A rate of 500 bps = 5.00%.
const BasisPointsDenominator = 10000

// ApplyRate multiplies an amount in minor units by a rate in basis
// points, rounding half-up. Amount and rate must be non-negative.
func ApplyRate(amount int64, rateBps int64) int64 {
	return (amount*rateBps + BasisPointsDenominator/2) / BasisPointsDenominator
}

// Parse converts a decimal string with up to two fraction digits
// ("10", "10.5", "10.50") into minor units.
func Parse(s string) (int64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}
	neg := false
	if strings.HasPrefix(s, "-") {
		neg = true
		s = s[1:]
	}

	whole, frac := s, ""
	if i := strings.IndexByte(s, '.'); i >= 0 {
		whole, frac = s[:i], s[i+1:]
	}
	if whole == "" {
		whole = "0"
	}
	if len(frac) > 2 {
		return 0, fmt.Errorf("amount %q has more than two decimal places", s)
	}
	for len(frac) < 2 {
		frac += "0"
	}

	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}

	v := w*100 + f
	if neg {
		v = -v
	}
	return v, nil
}

// Format renders minor units as a decimal string with two fraction
// digits ("1050" -> "10.50").
func Format(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

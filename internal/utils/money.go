package utils

import (
	"fmt"
	"strconv"
	"strings"
)

// FormatAmount renders a minor-unit amount as a decimal string
// ("12345" -> "123.45"). All arithmetic stays in int64 minor units;
// this is display only.
func FormatAmount(minor int64) string {
	sign := ""
	if minor < 0 {
		sign = "-"
		minor = -minor
	}
	return fmt.Sprintf("%s%d.%02d", sign, minor/100, minor%100)
}

// ParseAmountToMinor parses "123.45", "123" or "1,234.50" into minor units.
func ParseAmountToMinor(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.ReplaceAll(s, ",", "")
	if s == "" {
		return 0, fmt.Errorf("invalid amount")
	}
	whole, frac, found := strings.Cut(s, ".")
	w, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if !found {
		return w * 100, nil
	}
	if len(frac) > 2 {
		frac = frac[:2]
	}
	for len(frac) < 2 {
		frac += "0"
	}
	f, err := strconv.ParseInt(frac, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q", s)
	}
	if w < 0 {
		return w*100 - f, nil
	}
	return w*100 + f, nil
}

// PayoutShare returns the driver's cut of a charge in minor units,
// rounded down so the split never exceeds the charged amount.
func PayoutShare(amount int64, fraction float64) int64 {
	if amount <= 0 || fraction <= 0 {
		return 0
	}
	// scale fraction to basis points to stay in integer arithmetic
	bps := int64(fraction * 10000)
	if bps > 10000 {
		bps = 10000
	}
	return amount * bps / 10000
}

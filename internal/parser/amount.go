package parser

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a raw amount token into a decimal. Source files mix
// plain and thousands-grouped formatting with a comma decimal separator, so
// "6.020,00", "6 020,00" and "6020,00" all normalize to 6020.00, and plain
// "6020.00" parses unchanged.
func ParseAmount(raw string) (decimal.Decimal, error) {
	s := strings.TrimSpace(raw)
	s = strings.ReplaceAll(s, " ", "")
	s = strings.ReplaceAll(s, " ", "") // non-breaking space
	s = strings.ReplaceAll(s, " ", "") // narrow non-breaking space

	if s == "" || s == "-" {
		return decimal.Zero, fmt.Errorf("parse amount: empty token %q", raw)
	}

	lastComma := strings.LastIndex(s, ",")
	lastDot := strings.LastIndex(s, ".")

	switch {
	case lastComma > lastDot:
		// Comma is the decimal separator, dots group thousands. The LAST
		// comma is the decimal point; any earlier ones are malformed
		// grouping like "1,234,56" and are stripped.
		s = strings.ReplaceAll(s, ".", "")
		i := strings.LastIndex(s, ",")
		s = strings.ReplaceAll(s[:i], ",", "") + "." + s[i+1:]
	case lastDot > lastComma:
		// Dot is the decimal separator, commas group thousands.
		s = strings.ReplaceAll(s, ",", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("parse amount %q: %w", raw, err)
	}
	return d, nil
}

package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount reads a user-entered amount such as "3.50", "$3.50" or "3,50".
// The value must be positive and is rounded half-up to two decimals.
func ParseAmount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "$")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, invalid("amount", ErrInvalidAmount)
	}
	s = strings.ReplaceAll(s, ",", ".")

	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, invalid("amount", ErrInvalidAmount)
	}
	f := d.Round(2).InexactFloat64()
	if err := ValidateAmount(f); err != nil {
		return 0, err
	}
	return f, nil
}

// ValidateAmount checks that a is a positive finite number.
func ValidateAmount(a float64) error {
	if math.IsNaN(a) || math.IsInf(a, 0) || a <= 0 {
		return invalid("amount", ErrInvalidAmount)
	}
	return nil
}

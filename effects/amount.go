package effects

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// ValidateAmount checks that amount is a non-negative base-10 integer string.
func ValidateAmount(amount string) error {
	if amount == "" || strings.IndexFunc(amount, func(r rune) bool { return r < '0' || r > '9' }) >= 0 {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	if _, err := decimal.NewFromString(amount); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidAmount, amount)
	}
	return nil
}

// formatAmount renders a decimal amount after validating it.
func formatAmount(d decimal.Decimal) (string, error) {
	if d.IsNegative() || !d.IsInteger() {
		return "", fmt.Errorf("%w: %s", ErrInvalidAmount, d.String())
	}
	s := d.String()
	if err := ValidateAmount(s); err != nil {
		return "", err
	}
	return s, nil
}

func formatInt(v int64) (string, error) {
	return formatAmount(decimal.NewFromInt(v))
}

// delta returns after - before.
func delta(before, after int64) decimal.Decimal {
	return decimal.NewFromInt(after).Sub(decimal.NewFromInt(before))
}

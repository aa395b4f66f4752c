package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// minorUnitExponent is the number of fractional digits carried by Amount.
const minorUnitExponent = 2

var (
	ErrInvalidAmountFormat = errors.New("amount must be a decimal number")
	ErrAmountPrecision     = errors.New("amount has more than two fractional digits")
	ErrAmountOverflow      = errors.New("amount is out of range")
)

// Amount is a single-currency fixed-point value stored in minor units (cents).
type Amount int64

// ParseAmount converts a decimal string such as "50.00" or "12.5" into minor units.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmountFormat, s)
	}
	return AmountFromDecimal(d)
}

// AmountFromDecimal converts a decimal value into minor units, refusing to round.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	scaled := d.Shift(minorUnitExponent)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, ErrAmountPrecision
	}
	if !scaled.BigInt().IsInt64() {
		return 0, ErrAmountOverflow
	}
	return Amount(scaled.IntPart()), nil
}

// Decimal returns the amount in major units.
func (a Amount) Decimal() decimal.Decimal {
	return decimal.New(int64(a), -minorUnitExponent)
}

// String renders the amount with exactly two fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(minorUnitExponent)
}

func (a Amount) IsPositive() bool {
	return a > 0
}

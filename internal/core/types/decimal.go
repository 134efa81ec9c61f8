// Package types provides money helpers shared by sales and imports.
package types

import (
	"github.com/shopspring/decimal"
)

// MoneyScale is the number of decimal places stored for amounts.
const MoneyScale int32 = 2

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors.
type Money = decimal.Decimal

// NewMoneyFromString creates a Money value from a string.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants and tests.
func MustMoney(s string) Money {
	d, err := NewMoneyFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to two decimals, half away from zero (half-up for the
// non-negative amounts a sale can carry).
func RoundMoney(m Money) Money {
	return m.Round(MoneyScale)
}

// LineAmount is quantity x unit price rounded to two decimals.
func LineAmount(quantity int64, unitPrice Money) Money {
	return RoundMoney(unitPrice.Mul(decimal.NewFromInt(quantity)))
}

// Sum adds amounts and rounds the result.
func Sum(amounts ...Money) Money {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return RoundMoney(total)
}

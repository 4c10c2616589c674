// Package core holds the domain model of the ledger: entities, the
// transaction type table, fixed-point money and the error kinds shared
// by every layer.
package core

import (
	"github.com/shopspring/decimal"
)

const (
	USD Currency = "USD"
	EUR Currency = "EUR"
	KZT Currency = "KZT"

	// CanonicalCurrency is the currency every stored amount is kept in.
	CanonicalCurrency = KZT
)

type Currency string

func (c Currency) Valid() bool {
	switch c {
	case USD, EUR, KZT:
		return true
	}
	return false
}

// Money is a fixed-point amount in minor units (tiyn for KZT).
// All stored balances and plans are canonical-currency Money; display
// conversion happens only at the boundary.
type Money struct {
	Cents int64
}

var centsPerUnit = decimal.NewFromInt(100)

// FromDecimal converts a major-unit decimal amount into Money,
// rounding half away from zero at the second decimal place.
func FromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Round(2).Mul(centsPerUnit).IntPart()}
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.NewFromInt(m.Cents).Div(centsPerUnit)
}

func (m Money) Add(o Money) Money {
	return Money{Cents: m.Cents + o.Cents}
}

func (m Money) Neg() Money {
	return Money{Cents: -m.Cents}
}

func (m Money) IsPositive() bool {
	return m.Cents > 0
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

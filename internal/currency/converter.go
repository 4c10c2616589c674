// Package currency converts amounts between the supported currencies
// through a canonical-currency rate table. The table is loaded once at
// process start and is immutable afterwards, so a Converter is safe for
// concurrent use without synchronization.
package currency

import (
	"fmt"

	"github.com/shopspring/decimal"

	"tenge/internal/core"
)

// Rates maps each supported currency to its value in canonical units.
type Rates map[core.Currency]decimal.Decimal

// DefaultRates returns the built-in rates-to-KZT table.
func DefaultRates() Rates {
	return Rates{
		core.USD: decimal.NewFromInt(450),
		core.EUR: decimal.NewFromInt(490),
		core.KZT: decimal.NewFromInt(1),
	}
}

type Converter struct {
	rates Rates
	signs map[core.Currency]string
}

// NewConverter builds a converter from a rate table. The table must
// cover the canonical currency with a positive rate of exactly 1 and
// every rate must be positive.
func NewConverter(rates Rates) (*Converter, error) {
	canonical, ok := rates[core.CanonicalCurrency]
	if !ok {
		return nil, fmt.Errorf("rate table missing canonical currency %s", core.CanonicalCurrency)
	}
	if !canonical.Equal(decimal.NewFromInt(1)) {
		return nil, fmt.Errorf("canonical currency %s must have rate 1, got %s", core.CanonicalCurrency, canonical)
	}
	for cur, rate := range rates {
		if !cur.Valid() {
			return nil, fmt.Errorf("%w: %s", core.ErrUnsupportedCurrency, cur)
		}
		if !rate.IsPositive() {
			return nil, fmt.Errorf("rate for %s must be positive, got %s", cur, rate)
		}
	}
	return &Converter{
		rates: rates,
		signs: map[core.Currency]string{
			core.USD: "$",
			core.EUR: "€",
			core.KZT: "₸",
		},
	}, nil
}

// Convert translates a major-unit amount from one currency to another,
// rounded to 2 decimal places half away from zero.
func (c *Converter) Convert(amount decimal.Decimal, from, to core.Currency) (decimal.Decimal, error) {
	fromRate, ok := c.rates[from]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrUnsupportedCurrency, from)
	}
	toRate, ok := c.rates[to]
	if !ok {
		return decimal.Zero, fmt.Errorf("%w: %s", core.ErrUnsupportedCurrency, to)
	}
	return amount.Mul(fromRate).Div(toRate).Round(2), nil
}

// ToCanonical converts a major-unit amount in the given currency into
// canonical fixed-point money.
func (c *Converter) ToCanonical(amount decimal.Decimal, from core.Currency) (core.Money, error) {
	d, err := c.Convert(amount, from, core.CanonicalCurrency)
	if err != nil {
		return core.Money{}, err
	}
	return core.FromDecimal(d), nil
}

// FromCanonical converts canonical money into a major-unit amount in
// the given currency.
func (c *Converter) FromCanonical(m core.Money, to core.Currency) (decimal.Decimal, error) {
	return c.Convert(m.Decimal(), core.CanonicalCurrency, to)
}

// Sign returns the display glyph for a currency. It is used only for
// formatting, never for arithmetic.
func (c *Converter) Sign(cur core.Currency) string {
	return c.signs[cur]
}

// Format renders canonical money in the target currency for display,
// amount first and glyph last, trailing zeros trimmed ("10$", "7.5€").
func (c *Converter) Format(m core.Money, to core.Currency) (string, error) {
	d, err := c.FromCanonical(m, to)
	if err != nil {
		return "", err
	}
	return d.String() + c.signs[to], nil
}

// Package money holds monetary amounts as integer cents and renders them with
// exactly two decimal places.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

var ErrInvalidAmount = errors.New("invalid monetary amount")

type Money struct {
	cents int64
}

var Zero = Money{}

func FromCents(c int64) Money { return Money{cents: c} }

var maxAmount = decimal.New(math.MaxInt64, -2)

// FromDecimal rounds half away from zero to two places. Amounts whose cents
// do not fit in an int64 are rejected.
func FromDecimal(d decimal.Decimal) (Money, error) {
	d = d.Round(2)
	if d.Abs().GreaterThan(maxAmount) {
		return Zero, fmt.Errorf("%w: %s out of range", ErrInvalidAmount, d.String())
	}
	return Money{cents: d.Shift(2).IntPart()}, nil
}

func Parse(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Zero, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	return FromDecimal(d)
}

func MustParse(s string) Money {
	m, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return m
}

func (m Money) Cents() int64             { return m.cents }
func (m Money) Decimal() decimal.Decimal { return decimal.New(m.cents, -2) }
func (m Money) Add(o Money) Money        { return Money{cents: m.cents + o.cents} }
func (m Money) Mul(qty int) Money        { return Money{cents: m.cents * int64(qty)} }
func (m Money) IsNegative() bool         { return m.cents < 0 }
func (m Money) GreaterThan(o Money) bool { return m.cents > o.cents }
func (m Money) String() string           { return m.Decimal().StringFixed(2) }
func (m Money) Equal(o Money) bool       { return m.cents == o.cents }
func (m Money) LessThan(o Money) bool    { return m.cents < o.cents }

// MarshalJSON renders a JSON number such as 30.00.
func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON accepts a JSON number or a quoted decimal string.
func (m *Money) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	b = bytes.Trim(b, `"`)
	v, err := Parse(string(b))
	if err != nil {
		return err
	}
	*m = v
	return nil
}

// Sum adds amounts; the result keeps two-decimal precision because every
// operand already does.
func Sum(ms ...Money) Money {
	var total Money
	for _, m := range ms {
		total = total.Add(m)
	}
	return total
}

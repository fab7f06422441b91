package domain

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

// Money денежная сумма в минимальных единицах (центы)
type Money int64

// ParseMoney разбирает десятичную запись ("19.99") в центы. Дробные центы не допускаются.
func ParseMoney(s string) (Money, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: bad amount %q", ErrValidation, s)
	}
	return moneyFromDecimal(d)
}

func moneyFromDecimal(d decimal.Decimal) (Money, error) {
	cents := d.Shift(2)
	if !cents.Equal(cents.Truncate(0)) {
		return 0, fmt.Errorf("%w: amount %s has sub-cent precision", ErrValidation, d.String())
	}
	return Money(cents.IntPart()), nil
}

// Decimal возвращает сумму в основных единицах
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(int64(m), -2)
}

func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// Mul умножает цену на количество
func (m Money) Mul(qty int64) Money {
	return m * Money(qty)
}

// Percent возвращает pct процентов от суммы, округляя половину вверх до цента
func (m Money) Percent(pct int64) Money {
	return Money(m.Decimal().Mul(decimal.NewFromInt(pct)).Div(decimal.NewFromInt(100)).Shift(2).Round(0).IntPart())
}

func (m Money) MarshalJSON() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalJSON принимает как число (19.99), так и строку ("19.99")
func (m *Money) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return nil
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(data); err != nil {
		return fmt.Errorf("%w: bad amount %s", ErrValidation, string(data))
	}
	v, err := moneyFromDecimal(d)
	if err != nil {
		return err
	}
	*m = v
	return nil
}

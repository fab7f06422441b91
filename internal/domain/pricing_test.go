package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPriceQuote(t *testing.T) {
	for i := 0; i < 100; i++ {
		q := PriceQuote(10000)
		assert.Equal(t, Money(10000), q.ItemsPrice)
		assert.Equal(t, Money(1000), q.TaxPrice)
		assert.Equal(t, Money(599), q.ShippingPrice)
		assert.Equal(t, Money(11599), q.TotalPrice)
		assert.Equal(t, "115.99", q.TotalPrice.String())
	}
}

func TestPriceQuote_OddCents(t *testing.T) {
	q := PriceQuote(1995) // tax 1.995 -> 2.00
	assert.Equal(t, Money(200), q.TaxPrice)
	assert.Equal(t, Money(1995+200+599), q.TotalPrice)
}

package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusCreated, OrderStatusPaid, true},
		{OrderStatusCreated, OrderStatusDelivered, true},
		{OrderStatusPaid, OrderStatusDelivered, true},
		{OrderStatusPaid, OrderStatusCreated, false},
		{OrderStatusPaid, OrderStatusPaid, false},
		{OrderStatusDelivered, OrderStatusPaid, false},
		{OrderStatusDelivered, OrderStatusCreated, false},
		{OrderStatusDelivered, OrderStatusDelivered, false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.ok, tt.from.CanTransition(tt.to))
		})
	}
}

func TestNewOrderFromCart(t *testing.T) {
	c := NewCart(5)
	_, _ = c.Add(&Product{ID: 1, Name: "A", Price: 4000}, 2)
	_, _ = c.Add(&Product{ID: 2, Name: "B", Price: 2000}, 1)

	addr := ShippingAddress{Address: "1 Main", City: "X", PostalCode: "1", Country: "Y"}
	o, err := NewOrderFromCart(c, map[int64]*Product{1: {ID: 1, Name: "A renamed", Price: 1}}, addr)
	require.NoError(t, err)
	assert.Equal(t, OrderStatusCreated, o.Status)
	assert.Equal(t, Money(10000), o.ItemsPrice)
	assert.Equal(t, Money(1000), o.TaxPrice)
	assert.Equal(t, Money(599), o.ShippingPrice)
	assert.Equal(t, Money(11599), o.TotalPrice)
	require.Len(t, o.Items, 2)
	assert.Equal(t, "A renamed", o.Items[0].Name)
	assert.Equal(t, Money(4000), o.Items[0].Price)

	_, err = NewOrderFromCart(NewCart(5), nil, addr)
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestOrder_PaidThenDelivered(t *testing.T) {
	o := &Order{Status: OrderStatusCreated}
	now := time.Now()
	require.NoError(t, o.MarkPaid("pi_1", now))
	assert.True(t, o.IsPaid)
	assert.Equal(t, "pi_1", o.PaymentIntentID)

	err := o.MarkPaid("pi_2", now)
	assert.True(t, errors.Is(err, ErrInvalidTransition))
	assert.Equal(t, "pi_1", o.PaymentIntentID)

	require.NoError(t, o.MarkDelivered(now))
	assert.Equal(t, OrderStatusDelivered, o.Status)
	assert.True(t, errors.Is(o.MarkDelivered(now), ErrInvalidTransition))
}

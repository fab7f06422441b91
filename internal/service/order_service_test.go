package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/repository"
)

func TestCreateOrder_PricingStockAndCart(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "Headphones", 10000, 5)

	o := e.placeOrder(t, alice, p, 1)
	assert.Equal(t, domain.OrderStatusCreated, o.Status)
	assert.Equal(t, domain.Money(10000), o.ItemsPrice)
	assert.Equal(t, domain.Money(1000), o.TaxPrice)
	assert.Equal(t, domain.Money(599), o.ShippingPrice)
	assert.Equal(t, domain.Money(11599), o.TotalPrice)
	assert.Equal(t, "115.99", o.TotalPrice.String())
	require.Len(t, o.Items, 1)
	assert.Equal(t, "Headphones", o.Items[0].Name)

	assert.Equal(t, int64(4), e.stock(t, p.ID))
	c, err := e.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 1, e.events.Count(events.OrderCreated))

	// total fixed at creation
	_, err = e.products.Update(ctx, admin, p.ID, ProductInput{Name: "Headphones", Price: 20000, CountInStock: 4})
	require.NoError(t, err)
	again, err := e.order.GetOrder(ctx, alice, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.Money(11599), again.TotalPrice)
}

func TestCreateOrder_Validation(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)

	_, _, err := e.order.CreateOrder(ctx, alice, CreateOrderRequest{ShippingAddress: testAddress}, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	req := CreateOrderRequest{Items: []RequestedItem{{ProductID: p.ID, Quantity: 1}}, ShippingAddress: testAddress}
	_, _, err = e.order.CreateOrder(ctx, alice, req, "")
	assert.ErrorIs(t, err, domain.ErrValidation, "empty cart")

	_, err = e.cart.AddItem(ctx, alice, p.ID, 2)
	require.NoError(t, err)
	_, _, err = e.order.CreateOrder(ctx, alice, req, "")
	assert.ErrorIs(t, err, domain.ErrConflict, "stale client view")

	bad := e.requestFor(t, alice)
	bad.ShippingAddress.City = ""
	_, _, err = e.order.CreateOrder(ctx, alice, bad, "")
	assert.ErrorIs(t, err, domain.ErrValidation)

	assert.Equal(t, int64(5), e.stock(t, p.ID))
}

func TestCreateOrder_InsufficientStockLeavesCart(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	a := e.product(t, "A", 1000, 5)
	b := e.product(t, "B", 1000, 1)

	_, err := e.cart.AddItem(ctx, alice, a.ID, 2)
	require.NoError(t, err)
	_, err = e.cart.AddItem(ctx, alice, b.ID, 1)
	require.NoError(t, err)
	req := e.requestFor(t, alice)

	// someone else buys the last B
	e.placeOrder(t, bob, b, 1)

	_, _, err = e.order.CreateOrder(ctx, alice, req, "")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)
	assert.Equal(t, int64(5), e.stock(t, a.ID))
	c, err := e.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, c.Lines, 2)
}

// failingOrders ломается в середине оформления, после списания остатков
type failingOrders struct {
	*repository.MemoryOrders
}

func (failingOrders) Create(context.Context, *domain.Order) error {
	return errors.New("disk full")
}

func TestCreateOrder_AtomicUnderFault(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)
	_, err := e.cart.AddItem(ctx, alice, p.ID, 3)
	require.NoError(t, err)
	before, err := e.cart.GetCart(ctx, alice)
	require.NoError(t, err)

	broken := NewOrderService(e.store, e.carts, failingOrders{e.orders}, e.tx, Deps{Events: e.events})
	_, _, err = broken.CreateOrder(ctx, alice, e.requestFor(t, alice), "")
	require.Error(t, err)

	assert.Equal(t, int64(5), e.stock(t, p.ID))
	after, err := e.cart.GetCart(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, before.Lines, after.Lines)
	assert.Equal(t, before.Version, after.Version)
	all, err := e.orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, e.events.Count(events.OrderCreated))
}

func TestCreateOrder_IdempotencyKey(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)
	_, err := e.cart.AddItem(ctx, alice, p.ID, 1)
	require.NoError(t, err)
	req := e.requestFor(t, alice)

	first, created, err := e.order.CreateOrder(ctx, alice, req, "key-1")
	require.NoError(t, err)
	assert.True(t, created)

	second, created, err := e.order.CreateOrder(ctx, alice, req, "key-1")
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, int64(4), e.stock(t, p.ID))

	// the key is scoped per user
	_, err = e.cart.AddItem(ctx, bob, p.ID, 1)
	require.NoError(t, err)
	_, created, err = e.order.CreateOrder(ctx, bob, e.requestFor(t, bob), "key-1")
	require.NoError(t, err)
	assert.True(t, created)
}

func TestCreateOrder_ConcurrentBuyers(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "Hot item", 1000, 5)

	const buyers = 12
	reqs := make([]CreateOrderRequest, buyers)
	for i := 0; i < buyers; i++ {
		id := domain.Identity{UserID: int64(100 + i), Role: domain.RoleUser}
		_, err := e.cart.AddItem(ctx, id, p.ID, 1)
		require.NoError(t, err)
		reqs[i] = e.requestFor(t, id)
	}

	var ok, short int64
	var wg sync.WaitGroup
	for i := 0; i < buyers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			id := domain.Identity{UserID: int64(100 + i), Role: domain.RoleUser}
			_, _, err := e.order.CreateOrder(ctx, id, reqs[i], "")
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt64(&short, 1)
			default:
				t.Errorf("unexpected: %v", err)
			}
		}(i)
	}
	wg.Wait()
	assert.Equal(t, int64(5), ok)
	assert.Equal(t, int64(buyers-5), short)
	assert.Equal(t, int64(0), e.stock(t, p.ID))
}

func TestOrder_AccessAndDelivery(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)
	o := e.placeOrder(t, alice, p, 1)

	_, err := e.order.GetOrder(ctx, bob, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.order.GetOrder(ctx, admin, o.ID)
	assert.NoError(t, err)
	_, err = e.order.GetOrder(ctx, alice, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	mine, err := e.order.ListMyOrders(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)
	_, err = e.order.ListAllOrders(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = e.order.MarkDelivered(ctx, alice, o.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	// created -> delivered is allowed for admins
	d, err := e.order.MarkDelivered(ctx, admin, o.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusDelivered, d.Status)
	assert.True(t, d.IsDelivered)
	assert.NotNil(t, d.DeliveredAt)

	_, err = e.order.MarkDelivered(ctx, admin, o.ID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, 1, e.events.Count(events.OrderDelivered))
}

func TestOrder_ListAllNewestFirst(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)
	first := e.placeOrder(t, alice, p, 1)
	second := e.placeOrder(t, bob, p, 1)

	all, err := e.order.ListAllOrders(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, second.ID, all[0].ID)
	assert.Equal(t, first.ID, all[1].ID)
}

func TestOrder_StoreTimeoutIsUnavailable(t *testing.T) {
	e := setup(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.order.ListMyOrders(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrUnavailable)
}

func TestOrder_DashboardStatsCountsPaidRevenueOnly(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 10000, 20)
	e.product(t, "B", 500, 1)

	paid := e.placeOrder(t, alice, p, 1)
	intent, err := e.pay.CreateOrderIntent(ctx, alice, paid.ID)
	require.NoError(t, err)
	require.NoError(t, e.provider.Succeed(intent.IntentID))
	_, err = e.pay.ConfirmOrderPayment(ctx, alice, paid.ID, intent.IntentID)
	require.NoError(t, err)

	var last *domain.Order
	for i := 0; i < 5; i++ {
		last = e.placeOrder(t, bob, p, 1)
	}

	stats, err := e.order.DashboardStats(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.TotalProducts)
	assert.Equal(t, 6, stats.TotalOrders)
	assert.Equal(t, domain.Money(11599), stats.TotalRevenue)
	require.Len(t, stats.RecentOrders, 5)
	assert.Equal(t, last.ID, stats.RecentOrders[0].ID)
	for _, o := range stats.RecentOrders {
		assert.NotEqual(t, paid.ID, o.ID)
	}

	_, err = e.order.DashboardStats(ctx, alice)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/payment"
	"commerce/internal/repository"
)

var (
	admin      = domain.Identity{UserID: 1, Name: "Admin", Role: domain.RoleAdmin}
	alice      = domain.Identity{UserID: 2, Name: "Alice", Role: domain.RoleUser}
	bob        = domain.Identity{UserID: 3, Name: "Bob", Role: domain.RoleUser}
	instructor = domain.Identity{UserID: 4, Name: "Irene", Role: domain.RoleInstructor}
)

type env struct {
	store    *repository.MemoryStore
	tx       *repository.MemoryTx
	carts    *repository.MemoryCarts
	orders   *repository.MemoryOrders
	payments *repository.MemoryPayments
	courses  *repository.MemoryCourses
	quizzes  *repository.MemoryQuizzes
	certs    *repository.MemoryCertificates
	provider *payment.Fake
	events   *events.Recorder

	products *ProductService
	cart     *CartService
	order    *OrderService
	pay      *PaymentService
	course   *CourseService
	quiz     *QuizService
}

func setup(t *testing.T) *env {
	t.Helper()
	e := &env{store: repository.NewMemoryStore(), provider: payment.NewFake(false), events: &events.Recorder{}}
	e.tx = repository.NewMemoryTx(e.store)
	e.carts = repository.NewMemoryCarts(e.store)
	e.orders = repository.NewMemoryOrders(e.store)
	e.payments = repository.NewMemoryPayments(e.store)
	e.courses = repository.NewMemoryCourses(e.store)
	e.quizzes = repository.NewMemoryQuizzes(e.store)
	e.certs = repository.NewMemoryCertificates(e.store)

	deps := Deps{Events: e.events}
	e.products = NewProductService(e.store, e.store, e.tx, deps)
	e.cart = NewCartService(e.store, e.carts, e.tx, deps)
	e.order = NewOrderService(e.store, e.carts, e.orders, e.tx, deps)
	e.pay = NewPaymentService(e.orders, e.courses, e.payments, e.tx, e.provider, PaymentConfig{Currency: "usd"}, deps)
	e.course = NewCourseService(e.courses, e.tx, deps)
	e.quiz = NewQuizService(e.quizzes, e.courses, e.certs, e.tx, deps)
	return e
}

func (e *env) product(t *testing.T, name string, price domain.Money, stock int64) *domain.Product {
	t.Helper()
	p, err := e.products.Create(context.Background(), admin, ProductInput{Name: name, Category: "general", Price: price, CountInStock: stock})
	require.NoError(t, err)
	return p
}

func (e *env) stock(t *testing.T, productID int64) int64 {
	t.Helper()
	p, err := e.store.GetByID(context.Background(), productID)
	require.NoError(t, err)
	return p.CountInStock
}

var testAddress = domain.ShippingAddress{Address: "1 Main St", City: "Springfield", PostalCode: "12345", Country: "US"}

// requestFor собирает запрос на оформление из текущей корзины
func (e *env) requestFor(t *testing.T, id domain.Identity) CreateOrderRequest {
	t.Helper()
	c, err := e.cart.GetCart(context.Background(), id)
	require.NoError(t, err)
	req := CreateOrderRequest{ShippingAddress: testAddress}
	for _, l := range c.Lines {
		req.Items = append(req.Items, RequestedItem{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return req
}

func (e *env) placeOrder(t *testing.T, id domain.Identity, p *domain.Product, qty int64) *domain.Order {
	t.Helper()
	ctx := context.Background()
	_, err := e.cart.AddItem(ctx, id, p.ID, qty)
	require.NoError(t, err)
	o, created, err := e.order.CreateOrder(ctx, id, e.requestFor(t, id), "")
	require.NoError(t, err)
	require.True(t, created)
	return o
}

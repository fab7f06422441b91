package repository

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
)

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	p := domain.Product{Name: "A", Price: 1000, CountInStock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if p.ID == 0 {
		t.Fatalf("no id")
	}

	got, err := store.GetByID(ctx, p.ID)
	if err != nil || got.ID != p.ID {
		t.Fatalf("get: %v", err)
	}

	p.Price = 1200
	if err := store.Update(ctx, &p); err != nil {
		t.Fatalf("update: %v", err)
	}

	if err := store.Delete(ctx, p.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetByID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: 100, CountInStock: 1}
	require.NoError(t, store.Create(ctx, &p))

	got, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	require.NoError(t, got.AddReview(domain.Review{UserID: 1, Rating: 5}))

	again, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Empty(t, again.Reviews)
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", Price: 1000, CountInStock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	// emulate atomic create order with stock decrease
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.DecrementStock(ctx, p.ID, 3); err != nil {
			return err
		}
		o := domain.Order{UserID: 1, Items: []domain.OrderItem{{ProductID: p.ID, Quantity: 3}}, Status: domain.OrderStatusCreated}
		return orders.Create(ctx, &o)
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	// check stock after
	pp, _ := store.GetByID(context.Background(), p.ID)
	if pp.CountInStock != 2 {
		t.Fatalf("stock expected 2, got %v", pp.CountInStock)
	}
}

func TestMemoryTx_RollbackOnError(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)
	carts := NewMemoryCarts(store)

	p := domain.Product{Name: "A", Price: 1000, CountInStock: 5}
	require.NoError(t, store.Create(ctx, &p))
	cart := domain.NewCart(1)
	_, err := cart.Add(&p, 2)
	require.NoError(t, err)
	require.NoError(t, carts.Save(ctx, cart))

	boom := errors.New("boom")
	err = tx.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, store.DecrementStock(ctx, p.ID, 2))
		o := domain.Order{UserID: 1, Status: domain.OrderStatusCreated}
		require.NoError(t, orders.Create(ctx, &o))
		cart.Clear()
		require.NoError(t, carts.Save(ctx, cart))
		return boom
	})
	require.ErrorIs(t, err, boom)

	pp, err := store.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), pp.CountInStock)

	all, err := orders.ListAll(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)

	stored, err := carts.GetByUser(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 1)
	assert.Equal(t, int64(1), stored.Version)
}

func TestMemoryStore_DecrementStock_Concurrent(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := domain.Product{Name: "A", Price: 100, CountInStock: 10}
	require.NoError(t, store.Create(ctx, &p))

	var ok, short int64
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.DecrementStock(ctx, p.ID, 1)
			switch {
			case err == nil:
				atomic.AddInt64(&ok, 1)
			case errors.Is(err, domain.ErrInsufficientStock):
				atomic.AddInt64(&short, 1)
			default:
				t.Errorf("unexpected: %v", err)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int64(10), ok)
	assert.Equal(t, int64(40), short)
}

func TestMemoryCarts_OptimisticVersion(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	carts := NewMemoryCarts(store)

	_, err := carts.GetByUser(ctx, 3)
	require.ErrorIs(t, err, ErrNotFound)

	c := domain.NewCart(3)
	require.NoError(t, carts.Save(ctx, c))
	assert.Equal(t, int64(1), c.Version)

	a, _ := carts.GetByUser(ctx, 3)
	b, _ := carts.GetByUser(ctx, 3)
	require.NoError(t, carts.Save(ctx, a))
	require.ErrorIs(t, carts.Save(ctx, b), ErrConflict)
}

func TestMemoryPayments_UniqueIntent(t *testing.T) {
	ctx := context.Background()
	payments := NewMemoryPayments(NewMemoryStore())
	require.NoError(t, payments.Create(ctx, &domain.Payment{IntentID: "pi_1", Amount: 100}))
	require.ErrorIs(t, payments.Create(ctx, &domain.Payment{IntentID: "pi_1", Amount: 100}), ErrConflict)
	got, err := payments.GetByIntentID(ctx, "pi_1")
	require.NoError(t, err)
	assert.Equal(t, domain.Money(100), got.Amount)
}

func TestMemoryCertificates_UniquePerUserQuiz(t *testing.T) {
	ctx := context.Background()
	certs := NewMemoryCertificates(NewMemoryStore())
	require.NoError(t, certs.Create(ctx, &domain.Certificate{Number: "N1", UserID: 1, QuizID: 1}))
	require.ErrorIs(t, certs.Create(ctx, &domain.Certificate{Number: "N2", UserID: 1, QuizID: 1}), ErrConflict)
	require.ErrorIs(t, certs.Create(ctx, &domain.Certificate{Number: "N1", UserID: 2, QuizID: 1}), ErrConflict)
	require.NoError(t, certs.Create(ctx, &domain.Certificate{Number: "N3", UserID: 2, QuizID: 1}))
	list, err := certs.ListByUser(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n, cat string, price domain.Money) {
		p := domain.Product{Name: n, Category: cat, Price: price, CountInStock: 1}
		if err := store.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
	add("Aspirin", "pharma", 10000)
	add("Paracetamol", "pharma", 5000)
	add("Ibuprofen", "pain", 15000)

	// name contains
	page, _ := store.List(ctx, ProductFilter{Keyword: "A"})
	if len(page.Products) != 2 {
		t.Fatalf("name filter: %d", len(page.Products))
	}

	// min
	min := domain.Money(10000)
	page, _ = store.List(ctx, ProductFilter{MinPrice: &min})
	for _, p := range page.Products {
		if p.Price < min {
			t.Fatalf("min filter fail")
		}
	}

	// max
	max := domain.Money(10000)
	page, _ = store.List(ctx, ProductFilter{MaxPrice: &max})
	for _, p := range page.Products {
		if p.Price > max {
			t.Fatalf("max filter fail")
		}
	}

	page, _ = store.List(ctx, ProductFilter{Category: "pharma", PageSize: 1, Page: 1})
	assert.Len(t, page.Products, 1)
	assert.Equal(t, 2, page.Pages)
	assert.True(t, page.HasMore)
	assert.Equal(t, "Paracetamol", page.Products[0].Name)

	cats, err := store.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pain", "pharma"}, cats)
}

func TestMemoryTx_LockWaitHonorsDeadline(t *testing.T) {
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	p := domain.Product{Name: "A", Price: 1, CountInStock: 1}
	require.NoError(t, store.Create(context.Background(), &p))

	holding := make(chan struct{})
	release := make(chan struct{})
	go func() {
		_ = tx.WithTransaction(context.Background(), func(ctx context.Context) error {
			close(holding)
			<-release
			return nil
		})
	}()
	<-holding
	defer close(release)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	start := time.Now()
	err := tx.WithTransaction(ctx, func(context.Context) error { return nil })
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	_, err = store.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestMemoryTx_AfterCommit(t *testing.T) {
	ctx := context.Background()
	tx := NewMemoryTx(NewMemoryStore())

	var ran []string
	require.NoError(t, tx.WithTransaction(ctx, func(ctx context.Context) error {
		assert.True(t, InTransaction(ctx))
		AfterCommit(ctx, func() { ran = append(ran, "committed") })
		assert.Empty(t, ran)
		return nil
	}))
	assert.Equal(t, []string{"committed"}, ran)

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		AfterCommit(ctx, func() { ran = append(ran, "rolled back") })
		return domain.ErrConflict
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, []string{"committed"}, ran)

	assert.False(t, InTransaction(ctx))
	AfterCommit(ctx, func() { ran = append(ran, "immediate") })
	assert.Equal(t, []string{"committed", "immediate"}, ran)
}

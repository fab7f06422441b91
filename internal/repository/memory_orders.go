package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"commerce/internal/domain"
)

// MemoryCarts корзины поверх MemoryStore
type MemoryCarts struct{ store *MemoryStore }

func NewMemoryCarts(store *MemoryStore) *MemoryCarts { return &MemoryCarts{store: store} }

var _ CartRepository = (*MemoryCarts)(nil)

func (mc *MemoryCarts) GetByUser(ctx context.Context, userID int64) (*domain.Cart, error) {
	if err := mc.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mc.store.runlock(ctx)
	c, ok := mc.store.cartsByUser[userID]
	if !ok {
		return nil, fmt.Errorf("cart of user %d: %w", userID, ErrNotFound)
	}
	return c.Clone(), nil
}

func (mc *MemoryCarts) Save(ctx context.Context, c *domain.Cart) error {
	if err := mc.store.wlock(ctx); err != nil {
		return err
	}
	defer mc.store.wunlock(ctx)
	var current int64
	if stored, ok := mc.store.cartsByUser[c.UserID]; ok {
		current = stored.Version
	}
	if current != c.Version {
		return fmt.Errorf("cart of user %d version %d, stored %d: %w", c.UserID, c.Version, current, ErrConflict)
	}
	remember(ctx, mc.store.cartsByUser, c.UserID)
	c.Version++
	c.UpdatedAt = time.Now().UTC()
	mc.store.cartsByUser[c.UserID] = *c.Clone()
	return nil
}

// OrderRepository implementation on wrapper type
type MemoryOrders struct{ store *MemoryStore }

func NewMemoryOrders(store *MemoryStore) *MemoryOrders { return &MemoryOrders{store: store} }

var _ OrderRepository = (*MemoryOrders)(nil)

func (mo *MemoryOrders) Create(ctx context.Context, o *domain.Order) error {
	if err := mo.store.wlock(ctx); err != nil {
		return err
	}
	defer mo.store.wunlock(ctx)
	if o.IdempotencyKey != "" {
		for _, existing := range mo.store.ordersByID {
			if existing.UserID == o.UserID && existing.IdempotencyKey == o.IdempotencyKey {
				return fmt.Errorf("idempotency key %q: %w", o.IdempotencyKey, ErrConflict)
			}
		}
	}
	o.ID = mo.store.nextOrderID
	mo.store.nextOrderID++
	o.CreatedAt = time.Now().UTC()
	o.UpdatedAt = o.CreatedAt
	remember(ctx, mo.store.ordersByID, o.ID)
	mo.store.ordersByID[o.ID] = *o.Clone()
	return nil
}

func (mo *MemoryOrders) GetByID(ctx context.Context, id int64) (*domain.Order, error) {
	if err := mo.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mo.store.runlock(ctx)
	o, ok := mo.store.ordersByID[id]
	if !ok {
		return nil, fmt.Errorf("order %d: %w", id, ErrNotFound)
	}
	return o.Clone(), nil
}

func (mo *MemoryOrders) GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error) {
	if err := mo.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mo.store.runlock(ctx)
	for _, o := range mo.store.ordersByID {
		if o.UserID == userID && o.IdempotencyKey == key {
			return o.Clone(), nil
		}
	}
	return nil, fmt.Errorf("order with key %q: %w", key, ErrNotFound)
}

func (mo *MemoryOrders) Update(ctx context.Context, o *domain.Order) error {
	if err := mo.store.wlock(ctx); err != nil {
		return err
	}
	defer mo.store.wunlock(ctx)
	if _, ok := mo.store.ordersByID[o.ID]; !ok {
		return fmt.Errorf("order %d: %w", o.ID, ErrNotFound)
	}
	o.UpdatedAt = time.Now().UTC()
	remember(ctx, mo.store.ordersByID, o.ID)
	mo.store.ordersByID[o.ID] = *o.Clone()
	return nil
}

func (mo *MemoryOrders) ListByUser(ctx context.Context, userID int64) ([]domain.Order, error) {
	return mo.list(ctx, func(o domain.Order) bool { return o.UserID == userID })
}

func (mo *MemoryOrders) ListAll(ctx context.Context) ([]domain.Order, error) {
	return mo.list(ctx, func(domain.Order) bool { return true })
}

func (mo *MemoryOrders) list(ctx context.Context, keep func(domain.Order) bool) ([]domain.Order, error) {
	if err := mo.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mo.store.runlock(ctx)
	out := make([]domain.Order, 0)
	for _, o := range mo.store.ordersByID {
		if keep(o) {
			out = append(out, *o.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// MemoryPayments журнал платежей
type MemoryPayments struct{ store *MemoryStore }

func NewMemoryPayments(store *MemoryStore) *MemoryPayments { return &MemoryPayments{store: store} }

var _ PaymentRepository = (*MemoryPayments)(nil)

func (mp *MemoryPayments) Create(ctx context.Context, p *domain.Payment) error {
	if err := mp.store.wlock(ctx); err != nil {
		return err
	}
	defer mp.store.wunlock(ctx)
	if _, ok := mp.store.paymentsByIntent[p.IntentID]; ok {
		return fmt.Errorf("payment %q: %w", p.IntentID, ErrConflict)
	}
	p.ID = mp.store.nextPaymentID
	mp.store.nextPaymentID++
	p.CreatedAt = time.Now().UTC()
	remember(ctx, mp.store.paymentsByIntent, p.IntentID)
	mp.store.paymentsByIntent[p.IntentID] = *p
	return nil
}

func (mp *MemoryPayments) GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error) {
	if err := mp.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mp.store.runlock(ctx)
	p, ok := mp.store.paymentsByIntent[intentID]
	if !ok {
		return nil, fmt.Errorf("payment %q: %w", intentID, ErrNotFound)
	}
	return &p, nil
}

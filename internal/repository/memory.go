package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"golang.org/x/sync/semaphore"

	"commerce/internal/domain"
)

// MemoryStore объединённое in-memory хранилище и простой генератор ID
type MemoryStore struct {
	// читатели берут вес 1, писатели весь семафор; ожидание прерывается контекстом
	sem           *semaphore.Weighted
	nextProdID    int64
	nextOrderID   int64
	nextPaymentID int64
	nextCourseID  int64
	nextQuizID    int64
	nextCertID    int64

	productsByID     map[int64]domain.Product
	cartsByUser      map[int64]domain.Cart
	ordersByID       map[int64]domain.Order
	paymentsByIntent map[string]domain.Payment
	coursesByID      map[int64]domain.Course
	quizzesByID      map[int64]domain.Quiz
	certsByID        map[int64]domain.Certificate
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sem:              semaphore.NewWeighted(maxReaders),
		nextProdID:       1,
		nextOrderID:      1,
		nextPaymentID:    1,
		nextCourseID:     1,
		nextQuizID:       1,
		nextCertID:       1,
		productsByID:     make(map[int64]domain.Product),
		cartsByUser:      make(map[int64]domain.Cart),
		ordersByID:       make(map[int64]domain.Order),
		paymentsByIntent: make(map[string]domain.Payment),
		coursesByID:      make(map[int64]domain.Course),
		quizzesByID:      make(map[int64]domain.Quiz),
		certsByID:        make(map[int64]domain.Certificate),
	}
}

const maxReaders = 1 << 20

// transaction-aware locking helpers
type txKey struct{}

// memTx журнал отмены открытой транзакции
type memTx struct {
	undo []func()
}

func txFrom(ctx context.Context) *memTx {
	tx, _ := ctx.Value(txKey{}).(*memTx)
	return tx
}

func isTx(ctx context.Context) bool { return txFrom(ctx) != nil }

func (m *MemoryStore) rlock(ctx context.Context) error {
	if err := ctx.Err(); err != nil || isTx(ctx) {
		return err
	}
	return m.sem.Acquire(ctx, 1)
}
func (m *MemoryStore) runlock(ctx context.Context) {
	if !isTx(ctx) {
		m.sem.Release(1)
	}
}
func (m *MemoryStore) wlock(ctx context.Context) error {
	if err := ctx.Err(); err != nil || isTx(ctx) {
		return err
	}
	return m.sem.Acquire(ctx, maxReaders)
}
func (m *MemoryStore) wunlock(ctx context.Context) {
	if !isTx(ctx) {
		m.sem.Release(maxReaders)
	}
}

// remember запоминает прежнее значение ключа, чтобы откатить его при ошибке транзакции
func remember[K comparable, V any](ctx context.Context, store map[K]V, key K) {
	tx := txFrom(ctx)
	if tx == nil {
		return
	}
	old, existed := store[key]
	tx.undo = append(tx.undo, func() {
		if existed {
			store[key] = old
		} else {
			delete(store, key)
		}
	})
}

// Ensure interfaces
var _ ProductRepository = (*MemoryStore)(nil)

func cloneProduct(p domain.Product) domain.Product {
	p.Reviews = append([]domain.Review(nil), p.Reviews...)
	if p.DiscountPrice != nil {
		d := *p.DiscountPrice
		p.DiscountPrice = &d
	}
	return p
}

// ProductRepository implementation
func (m *MemoryStore) Create(ctx context.Context, p *domain.Product) error {
	if err := m.wlock(ctx); err != nil {
		return err
	}
	defer m.wunlock(ctx)
	p.ID = m.nextProdID
	m.nextProdID++
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	remember(ctx, m.productsByID, p.ID)
	m.productsByID[p.ID] = cloneProduct(*p)
	return nil
}

func (m *MemoryStore) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if err := m.rlock(ctx); err != nil {
		return nil, err
	}
	defer m.runlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	// return copy
	cp := cloneProduct(p)
	return &cp, nil
}

func (m *MemoryStore) Update(ctx context.Context, p *domain.Product) error {
	if err := m.wlock(ctx); err != nil {
		return err
	}
	defer m.wunlock(ctx)
	old, ok := m.productsByID[p.ID]
	if !ok {
		return fmt.Errorf("product %d: %w", p.ID, ErrNotFound)
	}
	p.CreatedAt = old.CreatedAt
	p.UpdatedAt = time.Now().UTC()
	remember(ctx, m.productsByID, p.ID)
	m.productsByID[p.ID] = cloneProduct(*p)
	return nil
}

func (m *MemoryStore) Delete(ctx context.Context, id int64) error {
	if err := m.wlock(ctx); err != nil {
		return err
	}
	defer m.wunlock(ctx)
	if _, ok := m.productsByID[id]; !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	remember(ctx, m.productsByID, id)
	delete(m.productsByID, id)
	return nil
}

func (m *MemoryStore) DecrementStock(ctx context.Context, id, qty int64) error {
	if qty <= 0 {
		return fmt.Errorf("%w: decrement must be positive", domain.ErrValidation)
	}
	if err := m.wlock(ctx); err != nil {
		return err
	}
	defer m.wunlock(ctx)
	p, ok := m.productsByID[id]
	if !ok {
		return fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	if p.CountInStock < qty {
		return fmt.Errorf("product %d: %w", id, domain.ErrInsufficientStock)
	}
	remember(ctx, m.productsByID, id)
	p.CountInStock -= qty
	m.productsByID[id] = p
	return nil
}

func (m *MemoryStore) List(ctx context.Context, f ProductFilter) (ProductPage, error) {
	if err := m.rlock(ctx); err != nil {
		return ProductPage{}, err
	}
	defer m.runlock(ctx)
	matched := make([]domain.Product, 0)
	for _, p := range m.productsByID {
		if !containsIgnoreCase(p.Name, f.Keyword) {
			continue
		}
		if f.Category != "" && p.Category != f.Category {
			continue
		}
		if f.MinPrice != nil && p.Price < *f.MinPrice {
			continue
		}
		if f.MaxPrice != nil && p.Price > *f.MaxPrice {
			continue
		}
		if f.Featured && !p.IsFeatured {
			continue
		}
		matched = append(matched, cloneProduct(p))
	}
	// newest first
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID > matched[j].ID })

	page, size := normalizePaging(f)
	pages := pageCount(len(matched), size)
	from := (page - 1) * size
	if from > len(matched) {
		from = len(matched)
	}
	to := from + size
	if to > len(matched) {
		to = len(matched)
	}
	return ProductPage{
		Products: matched[from:to],
		Page:     page,
		Pages:    pages,
		Total:    len(matched),
		HasMore:  page < pages,
	}, nil
}

func (m *MemoryStore) Categories(ctx context.Context) ([]string, error) {
	if err := m.rlock(ctx); err != nil {
		return nil, err
	}
	defer m.runlock(ctx)
	set := make(map[string]struct{})
	for _, p := range m.productsByID {
		if p.Category != "" {
			set[p.Category] = struct{}{}
		}
	}
	out := make([]string, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

// Tx manager using write lock to emulate transaction boundary
type MemoryTx struct{ store *MemoryStore }

func NewMemoryTx(store *MemoryStore) *MemoryTx { return &MemoryTx{store: store} }

// WithTransaction держит блокировку записи на время fn и помечает контекст, чтобы репозитории
// пропускали внутренние локи. При ошибке изменения откатываются по журналу в обратном порядке.
// Ожидание блокировки ограничено контекстом.
func (tx *MemoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if isTx(ctx) {
		return fn(ctx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := tx.store.sem.Acquire(ctx, maxReaders); err != nil {
		return err
	}
	txCtx, st := beginTxState(ctx)
	err := func() error {
		defer tx.store.sem.Release(maxReaders)
		t := &memTx{}
		err := fn(context.WithValue(txCtx, txKey{}, t))
		if err != nil {
			for i := len(t.undo) - 1; i >= 0; i-- {
				t.undo[i]()
			}
		}
		return err
	}()
	if err == nil {
		st.committed()
	}
	return err
}

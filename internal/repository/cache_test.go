package repository

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
)

func newCached(t *testing.T) (*CachedProducts, *MemoryStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	store := NewMemoryStore()
	return NewCachedProducts(store, rdb, 0, nil), store, mr
}

func TestCachedProducts_GetByIDCachesAndInvalidates(t *testing.T) {
	ctx := context.Background()
	cached, store, mr := newCached(t)

	p := domain.Product{Name: "Lamp", Category: "home", Price: 2599, CountInStock: 3}
	require.NoError(t, cached.Create(ctx, &p))

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)
	assert.True(t, mr.Exists(productKey(p.ID)))

	// store changes behind the cache are not visible until invalidation
	raw, _ := store.GetByID(ctx, p.ID)
	raw.Name = "Desk lamp"
	require.NoError(t, store.Update(ctx, raw))
	got, err = cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lamp", got.Name)

	raw.Name = "Floor lamp"
	require.NoError(t, cached.Update(ctx, raw))
	assert.False(t, mr.Exists(productKey(p.ID)))
	got, err = cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Floor lamp", got.Name)
}

func TestCachedProducts_NotFoundMarker(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCached(t)

	_, err := cached.GetByID(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)
	v, err := mr.Get(productKey(42))
	require.NoError(t, err)
	assert.Equal(t, notFoundMarker, v)

	_, err = cached.GetByID(ctx, 42)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCachedProducts_DecrementStockInvalidates(t *testing.T) {
	ctx := context.Background()
	cached, _, mr := newCached(t)

	p := domain.Product{Name: "Mug", Price: 900, CountInStock: 2}
	require.NoError(t, cached.Create(ctx, &p))
	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)

	require.NoError(t, cached.DecrementStock(ctx, p.ID, 2))
	assert.False(t, mr.Exists(productKey(p.ID)))
	require.ErrorIs(t, cached.DecrementStock(ctx, p.ID, 1), domain.ErrInsufficientStock)

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.CountInStock)
}

func TestCachedProducts_RedisDownFallsBack(t *testing.T) {
	ctx := context.Background()
	cached, store, mr := newCached(t)

	p := domain.Product{Name: "Pen", Category: "office", Price: 100, CountInStock: 1}
	require.NoError(t, store.Create(ctx, &p))
	mr.Close()

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pen", got.Name)

	cats, err := cached.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"office"}, cats)
}

func TestCachedProducts_InvalidatesAfterCommit(t *testing.T) {
	ctx := context.Background()
	cached, store, mr := newCached(t)
	tx := NewMemoryTx(store)

	p := domain.Product{Name: "Kettle", Price: 3500, CountInStock: 4}
	require.NoError(t, cached.Create(ctx, &p))
	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)

	err = tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := cached.DecrementStock(ctx, p.ID, 1); err != nil {
			return err
		}
		// key survives until commit, reads in the tx go to the store
		assert.True(t, mr.Exists(productKey(p.ID)))
		got, err := cached.GetByID(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, int64(3), got.CountInStock)
		return nil
	})
	require.NoError(t, err)
	assert.False(t, mr.Exists(productKey(p.ID)))

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(3), got.CountInStock)
}

func TestCachedProducts_RollbackKeepsCache(t *testing.T) {
	ctx := context.Background()
	cached, store, mr := newCached(t)
	tx := NewMemoryTx(store)

	p := domain.Product{Name: "Kettle", Price: 3500, CountInStock: 4}
	require.NoError(t, cached.Create(ctx, &p))
	_, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)

	err = tx.WithTransaction(ctx, func(ctx context.Context) error {
		require.NoError(t, cached.DecrementStock(ctx, p.ID, 2))
		return domain.ErrConflict
	})
	require.ErrorIs(t, err, domain.ErrConflict)
	assert.True(t, mr.Exists(productKey(p.ID)))

	got, err := cached.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(4), got.CountInStock)
}

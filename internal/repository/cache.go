package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"commerce/internal/domain"
)

const notFoundMarker = "notfound"

// CachedProducts кэширует чтения каталога в Redis поверх настоящего репозитория.
// Решения по остаткам принимаются только по живому хранилищу: в транзакции кэш не читается.
type CachedProducts struct {
	realRepo ProductRepository
	redis    *redis.Client
	ttl      time.Duration
	log      *slog.Logger
}

var _ ProductRepository = (*CachedProducts)(nil)

func NewCachedProducts(realRepo ProductRepository, rdb *redis.Client, ttl time.Duration, log *slog.Logger) *CachedProducts {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if log == nil {
		log = slog.Default()
	}
	return &CachedProducts{realRepo: realRepo, redis: rdb, ttl: ttl, log: log}
}

// ConnectRedis открывает клиента и проверяет соединение
func ConnectRedis(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		PoolSize:     20,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return rdb, nil
}

func productKey(id int64) string { return fmt.Sprintf("product:%d", id) }

const categoriesKey = "products:categories"

// GetByID внутри транзакции читает хранилище напрямую: незакоммиченное состояние не попадает в кэш
func (c *CachedProducts) GetByID(ctx context.Context, id int64) (*domain.Product, error) {
	if InTransaction(ctx) {
		return c.realRepo.GetByID(ctx, id)
	}
	key := productKey(id)
	data, err := c.redis.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		if string(data) == notFoundMarker {
			return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
		}
		var p domain.Product
		if err := json.Unmarshal(data, &p); err != nil {
			c.log.Warn("failed to unmarshal cached product, continuing with store", "key", key, "error", err)
			break
		}
		return &p, nil
	case errors.Is(err, redis.Nil):
	default:
		c.log.Warn("redis error, continuing with store", "key", key, "error", err)
	}

	p, err := c.realRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			if setErr := c.redis.Set(ctx, key, notFoundMarker, time.Minute).Err(); setErr != nil {
				c.log.Warn("failed to cache notfound", "key", key, "error", setErr)
			}
		}
		return nil, err
	}
	data, err = json.Marshal(p)
	if err != nil {
		c.log.Warn("failed to marshal product", "id", id, "error", err)
		return p, nil
	}
	if err := c.redis.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("failed to cache product", "key", key, "error", err)
	}
	return p, nil
}

func (c *CachedProducts) Categories(ctx context.Context) ([]string, error) {
	data, err := c.redis.Get(ctx, categoriesKey).Bytes()
	if err == nil {
		var cats []string
		if json.Unmarshal(data, &cats) == nil {
			return cats, nil
		}
	} else if !errors.Is(err, redis.Nil) {
		c.log.Warn("redis error, continuing with store", "key", categoriesKey, "error", err)
	}

	cats, err := c.realRepo.Categories(ctx)
	if err != nil {
		return nil, err
	}
	if data, err := json.Marshal(cats); err == nil {
		if err := c.redis.Set(ctx, categoriesKey, data, c.ttl).Err(); err != nil {
			c.log.Warn("failed to cache categories", "error", err)
		}
	}
	return cats, nil
}

// List не кэшируется: фильтры и страницы дают слишком много ключей
func (c *CachedProducts) List(ctx context.Context, f ProductFilter) (ProductPage, error) {
	return c.realRepo.List(ctx, f)
}

// invalidate удаляет ключи после коммита; откат оставляет кэш как есть
func (c *CachedProducts) invalidate(ctx context.Context, keys ...string) {
	AfterCommit(ctx, func() {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
		defer cancel()
		if err := c.redis.Del(ctx, keys...).Err(); err != nil {
			c.log.Warn("failed to invalidate cache", "keys", keys, "error", err)
		}
	})
}

func (c *CachedProducts) Create(ctx context.Context, p *domain.Product) error {
	if err := c.realRepo.Create(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, productKey(p.ID), categoriesKey)
	return nil
}

func (c *CachedProducts) Update(ctx context.Context, p *domain.Product) error {
	if err := c.realRepo.Update(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, productKey(p.ID), categoriesKey)
	return nil
}

func (c *CachedProducts) Delete(ctx context.Context, id int64) error {
	if err := c.realRepo.Delete(ctx, id); err != nil {
		return err
	}
	c.invalidate(ctx, productKey(id), categoriesKey)
	return nil
}

func (c *CachedProducts) DecrementStock(ctx context.Context, id, qty int64) error {
	if err := c.realRepo.DecrementStock(ctx, id, qty); err != nil {
		return err
	}
	c.invalidate(ctx, productKey(id))
	return nil
}

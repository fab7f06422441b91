package service

import (
	"context"
	"errors"
	"fmt"

	"commerce/internal/domain"
	"commerce/internal/repository"
)

// CartService операции с корзиной. Остатки проверяются по живому хранилищу, но не резервируются.
type CartService struct {
	base
	products repository.ProductRepository
	carts    repository.CartRepository
	tx       repository.TxManager
}

func NewCartService(products repository.ProductRepository, carts repository.CartRepository, tx repository.TxManager, deps Deps) *CartService {
	return &CartService{base: newBase(deps), products: products, carts: carts, tx: tx}
}

// GetCart возвращает пустую корзину, если её ещё нет
func (s *CartService) GetCart(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	c, err := s.load(ctx, id.UserID)
	return c, unavailable(err)
}

func (s *CartService) load(ctx context.Context, userID int64) (*domain.Cart, error) {
	c, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return domain.NewCart(userID), nil
	}
	return c, err
}

// AddItem добавляет товар; итоговое количество позиции не может превысить остаток
func (s *CartService) AddItem(ctx context.Context, id domain.Identity, productID, qty int64) (*domain.Cart, error) {
	if qty < 1 {
		return nil, fmt.Errorf("%w: quantity must be at least 1", domain.ErrValidation)
	}
	return s.mutate(ctx, id, func(ctx context.Context, c *domain.Cart) error {
		p, err := s.products.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		resulting, err := c.Add(p, qty)
		if err != nil {
			return err
		}
		if resulting > p.CountInStock {
			return fmt.Errorf("%w: %d of %q requested, %d available", domain.ErrInsufficientStock, resulting, p.Name, p.CountInStock)
		}
		return nil
	})
}

// SetItemQuantity 0 удаляет позицию
func (s *CartService) SetItemQuantity(ctx context.Context, id domain.Identity, productID, qty int64) (*domain.Cart, error) {
	if qty < 0 {
		return nil, fmt.Errorf("%w: quantity must not be negative", domain.ErrValidation)
	}
	return s.mutate(ctx, id, func(ctx context.Context, c *domain.Cart) error {
		if _, ok := c.Line(productID); !ok {
			return fmt.Errorf("product %d not in cart: %w", productID, domain.ErrNotFound)
		}
		if qty > 0 {
			p, err := s.products.GetByID(ctx, productID)
			if err != nil {
				return err
			}
			if qty > p.CountInStock {
				return fmt.Errorf("%w: %d of %q requested, %d available", domain.ErrInsufficientStock, qty, p.Name, p.CountInStock)
			}
		}
		return c.SetQuantity(productID, qty)
	})
}

func (s *CartService) RemoveItem(ctx context.Context, id domain.Identity, productID int64) (*domain.Cart, error) {
	return s.mutate(ctx, id, func(_ context.Context, c *domain.Cart) error {
		c.Remove(productID)
		return nil
	})
}

func (s *CartService) Clear(ctx context.Context, id domain.Identity) (*domain.Cart, error) {
	return s.mutate(ctx, id, func(_ context.Context, c *domain.Cart) error {
		c.Clear()
		return nil
	})
}

// mutate читает корзину, применяет fn и сохраняет с проверкой версии в одной транзакции.
// Конфликт версии повторяется.
func (s *CartService) mutate(ctx context.Context, id domain.Identity, fn func(ctx context.Context, c *domain.Cart) error) (*domain.Cart, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	var saved *domain.Cart
	err := withRetry(ctx, func() error {
		return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			c, err := s.load(ctx, id.UserID)
			if err != nil {
				return err
			}
			if err := fn(ctx, c); err != nil {
				return err
			}
			if err := s.carts.Save(ctx, c); err != nil {
				return retryable(err)
			}
			saved = c
			return nil
		})
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return saved, nil
}

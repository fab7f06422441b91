package service

import (
	"cmp"
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/logging"
	"commerce/internal/repository"
)

// OrderService оформление заказа из корзины и его жизненный цикл
type OrderService struct {
	base
	products repository.ProductRepository
	carts    repository.CartRepository
	orders   repository.OrderRepository
	tx       repository.TxManager
}

func NewOrderService(products repository.ProductRepository, carts repository.CartRepository, orders repository.OrderRepository, tx repository.TxManager, deps Deps) *OrderService {
	return &OrderService{base: newBase(deps), products: products, carts: carts, orders: orders, tx: tx}
}

// RequestedItem позиция, которую клиент видел в корзине при оформлении
type RequestedItem struct {
	ProductID int64
	Quantity  int64
}

// CreateOrderRequest цены клиента не принимаются: суммы считает сервер
type CreateOrderRequest struct {
	Items           []RequestedItem
	ShippingAddress domain.ShippingAddress
}

// CreateOrder атомарно списывает остатки, создаёт заказ и очищает корзину.
// Второй результат false, если заказ найден по ключу идемпотентности.
func (s *OrderService) CreateOrder(ctx context.Context, id domain.Identity, req CreateOrderRequest, idempotencyKey string) (*domain.Order, bool, error) {
	if err := requireUser(id); err != nil {
		return nil, false, err
	}
	if len(req.Items) == 0 {
		return nil, false, fmt.Errorf("%w: no order items", domain.ErrValidation)
	}
	for _, it := range req.Items {
		if it.ProductID <= 0 || it.Quantity <= 0 {
			return nil, false, fmt.Errorf("%w: invalid order item", domain.ErrValidation)
		}
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return nil, false, err
	}

	ctx, cancel := s.begin(ctx)
	defer cancel()
	done := logging.Step(s.Log, "order.create", "user_id", id.UserID)

	var (
		order   *domain.Order
		created bool
	)
	err := withRetry(ctx, func() error {
		return s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			if idempotencyKey != "" {
				existing, err := s.orders.GetByIdempotencyKey(ctx, id.UserID, idempotencyKey)
				if err == nil {
					order, created = existing, false
					return nil
				}
				if !errors.Is(err, repository.ErrNotFound) {
					return err
				}
			}
			o, err := s.placeOrder(ctx, id.UserID, req, idempotencyKey)
			if err != nil {
				return err
			}
			order, created = o, true
			return nil
		})
	})
	done(err)
	if err != nil {
		return nil, false, unavailable(err)
	}
	if created {
		s.publish(ctx, events.New(events.OrderCreated, strconv.FormatInt(order.ID, 10), order.UserID, map[string]any{
			"totalPrice": order.TotalPrice.String(),
			"items":      len(order.Items),
		}))
	}
	return order, created, nil
}

// placeOrder выполняется внутри транзакции; любая ошибка откатывает всё
func (s *OrderService) placeOrder(ctx context.Context, userID int64, req CreateOrderRequest, key string) (*domain.Order, error) {
	cart, err := s.carts.GetByUser(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}
	if err != nil {
		return nil, err
	}
	if cart.IsEmpty() {
		return nil, fmt.Errorf("%w: cart is empty", domain.ErrValidation)
	}
	if !matchesCart(cart, req.Items) {
		return nil, fmt.Errorf("%w: order items do not match the cart", domain.ErrConflict)
	}

	// строки товаров блокируются в порядке id, чтобы параллельные заказы не взаимоблокировались
	lines := slices.Clone(cart.Lines)
	slices.SortFunc(lines, func(a, b domain.CartLine) int { return cmp.Compare(a.ProductID, b.ProductID) })
	products := make(map[int64]*domain.Product, len(lines))
	for _, l := range lines {
		if err := s.products.DecrementStock(ctx, l.ProductID, l.Quantity); err != nil {
			return nil, err
		}
		p, err := s.products.GetByID(ctx, l.ProductID)
		if err != nil {
			return nil, err
		}
		products[p.ID] = p
	}

	order, err := domain.NewOrderFromCart(cart, products, req.ShippingAddress)
	if err != nil {
		return nil, err
	}
	order.IdempotencyKey = key
	if err := s.orders.Create(ctx, order); err != nil {
		return nil, retryable(err)
	}
	cart.Clear()
	if err := s.carts.Save(ctx, cart); err != nil {
		return nil, retryable(err)
	}
	return order, nil
}

// matchesCart сравнивает набор товар→количество запроса и корзины
func matchesCart(cart *domain.Cart, items []RequestedItem) bool {
	requested := make(map[int64]int64, len(items))
	for _, it := range items {
		requested[it.ProductID] += it.Quantity
	}
	if len(requested) != len(cart.Lines) {
		return false
	}
	for _, l := range cart.Lines {
		if requested[l.ProductID] != l.Quantity {
			return false
		}
	}
	return true
}

// GetOrder доступен владельцу и администратору
func (s *OrderService) GetOrder(ctx context.Context, id domain.Identity, orderID int64) (*domain.Order, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	o, err := s.orders.GetByID(ctx, orderID)
	if err != nil {
		return nil, unavailable(err)
	}
	if o.UserID != id.UserID && !id.IsAdmin() {
		return nil, fmt.Errorf("%w: order %d belongs to another user", domain.ErrForbidden, orderID)
	}
	return o, nil
}

func (s *OrderService) ListMyOrders(ctx context.Context, id domain.Identity) ([]domain.Order, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	list, err := s.orders.ListByUser(ctx, id.UserID)
	return list, unavailable(err)
}

func (s *OrderService) ListAllOrders(ctx context.Context, id domain.Identity) ([]domain.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	list, err := s.orders.ListAll(ctx)
	return list, unavailable(err)
}

const recentOrdersLimit = 5

// DashboardStats сводка для администратора; выручка только по оплаченным заказам
type DashboardStats struct {
	TotalProducts int            `json:"totalProducts"`
	TotalOrders   int            `json:"totalOrders"`
	TotalRevenue  domain.Money   `json:"totalRevenue" swaggertype:"number"`
	RecentOrders  []domain.Order `json:"recentOrders"`
}

func (s *OrderService) DashboardStats(ctx context.Context, id domain.Identity) (*DashboardStats, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	page, err := s.products.List(ctx, repository.ProductFilter{PageSize: 1})
	if err != nil {
		return nil, unavailable(err)
	}
	orders, err := s.orders.ListAll(ctx)
	if err != nil {
		return nil, unavailable(err)
	}
	stats := &DashboardStats{TotalProducts: page.Total, TotalOrders: len(orders)}
	for _, o := range orders {
		if o.IsPaid {
			stats.TotalRevenue += o.TotalPrice
		}
	}
	// ListAll отдаёт новые первыми
	stats.RecentOrders = orders[:min(len(orders), recentOrdersLimit)]
	return stats, nil
}

// MarkDelivered только для администратора. Доставка неоплаченного заказа разрешена, но логируется.
func (s *OrderService) MarkDelivered(ctx context.Context, id domain.Identity, orderID int64) (*domain.Order, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, orderID)
		if err != nil {
			return err
		}
		wasUnpaid := o.Status == domain.OrderStatusCreated
		if err := o.MarkDelivered(s.now()); err != nil {
			return err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		if wasUnpaid {
			s.Log.Warn("order delivered without payment", logging.FieldOrderID, o.ID, "admin_id", id.UserID)
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	s.publish(ctx, events.New(events.OrderDelivered, strconv.FormatInt(updated.ID, 10), updated.UserID, nil))
	return updated, nil
}

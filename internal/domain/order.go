package domain

import (
	"fmt"
	"time"
)

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusCreated   OrderStatus = "created"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
)

// orderTransitions допустимые переходы; обратных нет, delivered терминальный
var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusCreated: {OrderStatusPaid, OrderStatusDelivered},
	OrderStatusPaid:    {OrderStatusDelivered},
}

// CanTransition проверяет переход по таблице
func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == to {
			return true
		}
	}
	return false
}

// OrderItem позиция заказа, снимок товара на момент оформления
type OrderItem struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Price     Money  `json:"price"`
	Quantity  int64  `json:"quantity"`
}

// ShippingAddress адрес доставки
type ShippingAddress struct {
	Address    string `json:"address"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

func (a ShippingAddress) Validate() error {
	if a.Address == "" || a.City == "" || a.PostalCode == "" || a.Country == "" {
		return fmt.Errorf("%w: shipping address is incomplete", ErrValidation)
	}
	return nil
}

// Order неизменяемый снимок корзины; меняется только статус
type Order struct {
	ID              int64           `json:"id"`
	UserID          int64           `json:"userId"`
	Items           []OrderItem     `json:"orderItems"`
	ShippingAddress ShippingAddress `json:"shippingAddress"`
	ItemsPrice      Money           `json:"itemsPrice"`
	TaxPrice        Money           `json:"taxPrice"`
	ShippingPrice   Money           `json:"shippingPrice"`
	TotalPrice      Money           `json:"totalPrice"`
	Status          OrderStatus     `json:"status"`
	IsPaid          bool            `json:"isPaid"`
	PaidAt          *time.Time      `json:"paidAt,omitempty"`
	PaymentIntentID string          `json:"paymentIntentId,omitempty"`
	IsDelivered     bool            `json:"isDelivered"`
	DeliveredAt     *time.Time      `json:"deliveredAt,omitempty"`
	IdempotencyKey  string          `json:"-"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// NewOrderFromCart фиксирует позиции и цены корзины. Цены каталога не перечитываются.
func NewOrderFromCart(cart *Cart, products map[int64]*Product, addr ShippingAddress) (*Order, error) {
	if cart == nil || cart.IsEmpty() {
		return nil, fmt.Errorf("%w: cart is empty", ErrValidation)
	}
	items := make([]OrderItem, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		name, image := l.Name, l.Image
		if p, ok := products[l.ProductID]; ok {
			name, image = p.Name, p.Image
		}
		items = append(items, OrderItem{
			ProductID: l.ProductID,
			Name:      name,
			Image:     image,
			Price:     l.UnitPrice,
			Quantity:  l.Quantity,
		})
	}
	q := PriceQuote(cart.TotalAmount)
	return &Order{
		UserID:          cart.UserID,
		Items:           items,
		ShippingAddress: addr,
		ItemsPrice:      q.ItemsPrice,
		TaxPrice:        q.TaxPrice,
		ShippingPrice:   q.ShippingPrice,
		TotalPrice:      q.TotalPrice,
		Status:          OrderStatusCreated,
	}, nil
}

// MarkPaid переводит заказ в paid
func (o *Order) MarkPaid(intentID string, at time.Time) error {
	if err := o.transition(OrderStatusPaid); err != nil {
		return err
	}
	o.IsPaid = true
	o.PaidAt = &at
	o.PaymentIntentID = intentID
	return nil
}

// MarkDelivered переводит заказ в delivered, в том числе без оплаты
func (o *Order) MarkDelivered(at time.Time) error {
	if err := o.transition(OrderStatusDelivered); err != nil {
		return err
	}
	o.IsDelivered = true
	o.DeliveredAt = &at
	return nil
}

func (o *Order) transition(to OrderStatus) error {
	if !o.Status.CanTransition(to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, o.Status, to)
	}
	o.Status = to
	return nil
}

// Clone копия с собственным срезом позиций
func (o *Order) Clone() *Order {
	cp := *o
	cp.Items = append([]OrderItem(nil), o.Items...)
	return &cp
}

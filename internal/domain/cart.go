package domain

import (
	"fmt"
	"time"
)

// CartLine позиция корзины с ценой, зафиксированной в момент добавления
type CartLine struct {
	ProductID int64  `json:"productId"`
	Name      string `json:"name"`
	Image     string `json:"image"`
	Quantity  int64  `json:"quantity"`
	UnitPrice Money  `json:"price"`
}

// Subtotal стоимость позиции
func (l CartLine) Subtotal() Money { return l.UnitPrice.Mul(l.Quantity) }

// Cart корзина пользователя. Version используется для оптимистичной блокировки.
type Cart struct {
	UserID      int64      `json:"userId"`
	Lines       []CartLine `json:"items"`
	TotalAmount Money      `json:"totalAmount"`
	Version     int64      `json:"version"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

// NewCart пустая корзина пользователя
func NewCart(userID int64) *Cart {
	return &Cart{UserID: userID, Lines: []CartLine{}}
}

// Line возвращает позицию по товару
func (c *Cart) Line(productID int64) (CartLine, bool) {
	if i := c.indexOf(productID); i >= 0 {
		return c.Lines[i], true
	}
	return CartLine{}, false
}

func (c *Cart) IsEmpty() bool { return len(c.Lines) == 0 }

// Add добавляет товар; если позиция уже есть, увеличивает количество, цена остаётся прежней.
// Возвращает итоговое количество позиции.
func (c *Cart) Add(p *Product, qty int64) (int64, error) {
	if qty < 1 {
		return 0, fmt.Errorf("%w: quantity must be at least 1", ErrValidation)
	}
	if i := c.indexOf(p.ID); i >= 0 {
		c.Lines[i].Quantity += qty
		c.recalculate()
		return c.Lines[i].Quantity, nil
	}
	c.Lines = append(c.Lines, CartLine{
		ProductID: p.ID,
		Name:      p.Name,
		Image:     p.Image,
		Quantity:  qty,
		UnitPrice: p.EffectivePrice(),
	})
	c.recalculate()
	return qty, nil
}

// SetQuantity задаёт количество позиции, 0 удаляет её
func (c *Cart) SetQuantity(productID, qty int64) error {
	if qty < 0 {
		return fmt.Errorf("%w: quantity must not be negative", ErrValidation)
	}
	i := c.indexOf(productID)
	if i < 0 {
		return fmt.Errorf("%w: item not in cart", ErrNotFound)
	}
	if qty == 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	} else {
		c.Lines[i].Quantity = qty
	}
	c.recalculate()
	return nil
}

// Remove удаляет позицию, отсутствие позиции не ошибка
func (c *Cart) Remove(productID int64) {
	if i := c.indexOf(productID); i >= 0 {
		c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
	}
	c.recalculate()
}

func (c *Cart) Clear() {
	c.Lines = []CartLine{}
	c.TotalAmount = 0
}

func (c *Cart) indexOf(productID int64) int {
	for i, l := range c.Lines {
		if l.ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) recalculate() {
	var total Money
	for _, l := range c.Lines {
		total += l.Subtotal()
	}
	c.TotalAmount = total
}

// Clone глубокая копия, чтобы хранилище не делило срез позиций с вызывающим
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Lines = append([]CartLine(nil), c.Lines...)
	if cp.Lines == nil {
		cp.Lines = []CartLine{}
	}
	return &cp
}

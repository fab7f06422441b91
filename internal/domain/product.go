package domain

import (
	"fmt"
	"strings"
	"time"
)

// Review отзыв покупателя о товаре
type Review struct {
	UserID    int64     `json:"userId"`
	Name      string    `json:"name"`
	Rating    int       `json:"rating"`
	Comment   string    `json:"comment"`
	CreatedAt time.Time `json:"createdAt"`
}

// Product товар каталога. CountInStock является источником истины для решений по остаткам.
type Product struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Description   string    `json:"description"`
	Category      string    `json:"category"`
	Brand         string    `json:"brand"`
	Image         string    `json:"image"`
	Price         Money     `json:"price"`
	DiscountPrice *Money    `json:"discountPrice,omitempty"`
	CountInStock  int64     `json:"countInStock"`
	IsFeatured    bool      `json:"isFeatured"`
	Rating        float64   `json:"rating"`
	NumReviews    int       `json:"numReviews"`
	Reviews       []Review  `json:"reviews"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// EffectivePrice цена, по которой товар попадает в корзину
func (p *Product) EffectivePrice() Money {
	if p.DiscountPrice != nil {
		return *p.DiscountPrice
	}
	return p.Price
}

// Validate проверяет поля, задаваемые администратором
func (p *Product) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrValidation)
	}
	if p.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if p.CountInStock < 0 {
		return fmt.Errorf("%w: countInStock must not be negative", ErrValidation)
	}
	if p.DiscountPrice != nil && (*p.DiscountPrice < 0 || *p.DiscountPrice >= p.Price) {
		return fmt.Errorf("%w: discountPrice must be below price", ErrValidation)
	}
	return nil
}

// AddReview добавляет отзыв и пересчитывает рейтинг. Один отзыв на пользователя.
func (p *Product) AddReview(r Review) error {
	if r.Rating < 1 || r.Rating > 5 {
		return fmt.Errorf("%w: rating must be between 1 and 5", ErrValidation)
	}
	for _, existing := range p.Reviews {
		if existing.UserID == r.UserID {
			return fmt.Errorf("%w: product already reviewed", ErrConflict)
		}
	}
	p.Reviews = append(p.Reviews, r)
	p.recalculateRating()
	return nil
}

func (p *Product) recalculateRating() {
	p.NumReviews = len(p.Reviews)
	if p.NumReviews == 0 {
		p.Rating = 0
		return
	}
	sum := 0
	for _, r := range p.Reviews {
		sum += r.Rating
	}
	p.Rating = float64(sum) / float64(p.NumReviews)
}

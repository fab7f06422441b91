package repository

import (
	"context"
	"strings"

	"commerce/internal/domain"
)

// ErrNotFound возвращается, когда сущность не найдена
var ErrNotFound = domain.ErrNotFound

// ErrConflict нарушение уникальности или несовпадение версии
var ErrConflict = domain.ErrConflict

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	Keyword  string
	Category string
	MinPrice *domain.Money
	MaxPrice *domain.Money
	Featured bool
	Page     int
	PageSize int
}

// ProductPage страница каталога
type ProductPage struct {
	Products []domain.Product `json:"products"`
	Page     int              `json:"page"`
	Pages    int              `json:"pages"`
	Total    int              `json:"total"`
	HasMore  bool             `json:"hasMore"`
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id int64) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id int64) error
	List(ctx context.Context, f ProductFilter) (ProductPage, error)
	Categories(ctx context.Context) ([]string, error)
	// DecrementStock атомарно списывает qty, если остаток достаточен, иначе ErrInsufficientStock
	DecrementStock(ctx context.Context, id, qty int64) error
}

// CartRepository интерфейс репозитория корзин
type CartRepository interface {
	// GetByUser возвращает ErrNotFound, если корзина ещё не создана
	GetByUser(ctx context.Context, userID int64) (*domain.Cart, error)
	// Save сохраняет корзину, если Version совпадает с сохранённой (0 для новой), и увеличивает её
	Save(ctx context.Context, c *domain.Cart) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id int64) (*domain.Order, error)
	GetByIdempotencyKey(ctx context.Context, userID int64, key string) (*domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	ListByUser(ctx context.Context, userID int64) ([]domain.Order, error)
	ListAll(ctx context.Context) ([]domain.Order, error)
}

// PaymentRepository журнал платежей, только добавление
type PaymentRepository interface {
	// Create возвращает ErrConflict, если платёж с таким IntentID уже есть
	Create(ctx context.Context, p *domain.Payment) error
	GetByIntentID(ctx context.Context, intentID string) (*domain.Payment, error)
}

// CourseRepository интерфейс репозитория курсов
type CourseRepository interface {
	Create(ctx context.Context, c *domain.Course) error
	GetByID(ctx context.Context, id int64) (*domain.Course, error)
	Update(ctx context.Context, c *domain.Course) error
	ListPublished(ctx context.Context) ([]domain.Course, error)
}

// QuizRepository интерфейс репозитория тестов
type QuizRepository interface {
	Create(ctx context.Context, q *domain.Quiz) error
	GetByID(ctx context.Context, id int64) (*domain.Quiz, error)
}

// CertificateRepository интерфейс репозитория сертификатов
type CertificateRepository interface {
	// Create возвращает ErrConflict при повторе (user, quiz) или номера
	Create(ctx context.Context, c *domain.Certificate) error
	GetByID(ctx context.Context, id int64) (*domain.Certificate, error)
	GetByUserQuiz(ctx context.Context, userID, quizID int64) (*domain.Certificate, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Certificate, error)
}

// TxManager абстракция транзакции. Ошибка из fn откатывает все изменения.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}

// normalizePaging значения по умолчанию как в каталоге: 12 на страницу, с первой
func normalizePaging(f ProductFilter) (page, size int) {
	page, size = f.Page, f.PageSize
	if page < 1 {
		page = 1
	}
	if size < 1 {
		size = 12
	}
	return page, size
}

func pageCount(total, size int) int {
	return (total + size - 1) / size
}

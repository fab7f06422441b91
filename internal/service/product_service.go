package service

import (
	"context"
	"fmt"

	"commerce/internal/domain"
	"commerce/internal/repository"
)

// ProductService каталог товаров. Чтения идут через repo (возможно, кэш),
// read-modify-write через live, чтобы не перезаписать свежие данные устаревшими из кэша.
type ProductService struct {
	base
	repo repository.ProductRepository
	live repository.ProductRepository
	tx   repository.TxManager
}

// NewProductService repo и live могут совпадать, если кэша нет
func NewProductService(repo, live repository.ProductRepository, tx repository.TxManager, deps Deps) *ProductService {
	return &ProductService{base: newBase(deps), repo: repo, live: live, tx: tx}
}

// ProductInput поля, которые задаёт администратор
type ProductInput struct {
	Name          string
	Description   string
	Category      string
	Brand         string
	Image         string
	Price         domain.Money
	DiscountPrice *domain.Money
	CountInStock  int64
	IsFeatured    bool
}

func (in ProductInput) apply(p *domain.Product) {
	p.Name = in.Name
	p.Description = in.Description
	p.Category = in.Category
	p.Brand = in.Brand
	p.Image = in.Image
	p.Price = in.Price
	p.DiscountPrice = in.DiscountPrice
	p.CountInStock = in.CountInStock
	p.IsFeatured = in.IsFeatured
}

func (s *ProductService) Create(ctx context.Context, id domain.Identity, in ProductInput) (*domain.Product, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	p := domain.Product{Reviews: []domain.Review{}}
	in.apply(&p)
	if err := p.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	if err := s.repo.Create(ctx, &p); err != nil {
		return nil, unavailable(err)
	}
	return &p, nil
}

func (s *ProductService) GetByID(ctx context.Context, productID int64) (*domain.Product, error) {
	if productID <= 0 {
		return nil, fmt.Errorf("%w: invalid product id", domain.ErrValidation)
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	p, err := s.repo.GetByID(ctx, productID)
	return p, unavailable(err)
}

// Update заменяет редактируемые поля; отзывы и рейтинг сохраняются
func (s *ProductService) Update(ctx context.Context, id domain.Identity, productID int64, in ProductInput) (*domain.Product, error) {
	if err := requireAdmin(id); err != nil {
		return nil, err
	}
	return s.modify(ctx, productID, func(p *domain.Product) error {
		in.apply(p)
		return p.Validate()
	})
}

func (s *ProductService) Delete(ctx context.Context, id domain.Identity, productID int64) error {
	if err := requireAdmin(id); err != nil {
		return err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	return unavailable(s.repo.Delete(ctx, productID))
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) (repository.ProductPage, error) {
	if f.MinPrice != nil && f.MaxPrice != nil && *f.MinPrice > *f.MaxPrice {
		return repository.ProductPage{}, fmt.Errorf("%w: minPrice above maxPrice", domain.ErrValidation)
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	page, err := s.repo.List(ctx, f)
	return page, unavailable(err)
}

func (s *ProductService) Categories(ctx context.Context) ([]string, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	cats, err := s.repo.Categories(ctx)
	return cats, unavailable(err)
}

// AddReview один отзыв на пользователя, рейтинг пересчитывается
func (s *ProductService) AddReview(ctx context.Context, id domain.Identity, productID int64, rating int, comment string) (*domain.Product, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	return s.modify(ctx, productID, func(p *domain.Product) error {
		return p.AddReview(domain.Review{
			UserID:    id.UserID,
			Name:      id.Name,
			Rating:    rating,
			Comment:   comment,
			CreatedAt: s.now(),
		})
	})
}

func (s *ProductService) modify(ctx context.Context, productID int64, fn func(p *domain.Product) error) (*domain.Product, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	var updated *domain.Product
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		p, err := s.live.GetByID(ctx, productID)
		if err != nil {
			return err
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := s.repo.Update(ctx, p); err != nil {
			return err
		}
		updated = p
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	return updated, nil
}

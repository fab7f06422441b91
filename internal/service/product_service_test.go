package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
	"commerce/internal/repository"
)

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p, err := e.products.Create(ctx, admin, ProductInput{Name: "Aspirin", Price: 100, CountInStock: 10})
	require.NoError(t, err)
	assert.NotZero(t, p.ID)
	assert.NotNil(t, p.Reviews)
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	disc := domain.Money(100)
	cases := []ProductInput{
		{Name: "", Price: 1, CountInStock: 1},
		{Name: "N", Price: -1, CountInStock: 1},
		{Name: "N", Price: 1, CountInStock: -1},
		{Name: "N", Price: 100, DiscountPrice: &disc, CountInStock: 1},
	}
	for _, in := range cases {
		_, err := e.products.Create(ctx, admin, in)
		assert.ErrorIs(t, err, domain.ErrValidation, "%+v", in)
	}
	_, err := e.products.Create(ctx, alice, ProductInput{Name: "N", Price: 1})
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)
	_, err := e.products.AddReview(ctx, alice, p.ID, 4, "ok")
	require.NoError(t, err)

	up, err := e.products.Update(ctx, admin, p.ID, ProductInput{Name: "A+", Price: 1200, CountInStock: 7})
	require.NoError(t, err)
	assert.Equal(t, "A+", up.Name)
	assert.Equal(t, domain.Money(1200), up.Price)
	assert.Equal(t, int64(7), up.CountInStock)
	assert.Equal(t, 1, up.NumReviews)

	_, err = e.products.Update(ctx, admin, 999, ProductInput{Name: "X", Price: 1})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, e.products.Delete(ctx, admin, p.ID))
	_, err = e.products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestProduct_Reviews(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	p := e.product(t, "A", 1000, 5)

	_, err := e.products.AddReview(ctx, alice, p.ID, 5, "great")
	require.NoError(t, err)
	got, err := e.products.AddReview(ctx, bob, p.ID, 2, "meh")
	require.NoError(t, err)
	assert.Equal(t, 2, got.NumReviews)
	assert.InDelta(t, 3.5, got.Rating, 1e-9)
	assert.Equal(t, "Bob", got.Reviews[1].Name)

	_, err = e.products.AddReview(ctx, alice, p.ID, 1, "changed my mind")
	assert.ErrorIs(t, err, domain.ErrConflict)
	_, err = e.products.AddReview(ctx, bob, p.ID, 6, "")
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestProduct_List_Filtering(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	for _, in := range []ProductInput{
		{Name: "Aspirin", Category: "pharma", Price: 100, CountInStock: 5},
		{Name: "Paracetamol", Category: "pharma", Price: 50, CountInStock: 5},
		{Name: "Ibuprofen", Category: "pain", Price: 150, CountInStock: 5, IsFeatured: true},
	} {
		_, err := e.products.Create(ctx, admin, in)
		require.NoError(t, err)
	}

	page, err := e.products.List(ctx, repository.ProductFilter{Keyword: "a"})
	require.NoError(t, err)
	assert.Len(t, page.Products, 2)

	min := domain.Money(100)
	page, err = e.products.List(ctx, repository.ProductFilter{MinPrice: &min})
	require.NoError(t, err)
	for _, p := range page.Products {
		assert.GreaterOrEqual(t, int64(p.Price), int64(min))
	}

	page, err = e.products.List(ctx, repository.ProductFilter{Featured: true})
	require.NoError(t, err)
	require.Len(t, page.Products, 1)
	assert.Equal(t, "Ibuprofen", page.Products[0].Name)

	max := domain.Money(10)
	_, err = e.products.List(ctx, repository.ProductFilter{MinPrice: &min, MaxPrice: &max})
	assert.ErrorIs(t, err, domain.ErrValidation)

	cats, err := e.products.Categories(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"pain", "pharma"}, cats)
}

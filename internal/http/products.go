package httpapi

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"commerce/internal/domain"
	"commerce/internal/repository"
	"commerce/internal/service"
)

type productReq struct {
	Name          string        `json:"name" binding:"required"`
	Description   string        `json:"description"`
	Category      string        `json:"category"`
	Brand         string        `json:"brand"`
	Image         string        `json:"image"`
	Price         domain.Money  `json:"price" binding:"money" swaggertype:"number"`
	DiscountPrice *domain.Money `json:"discountPrice" binding:"omitempty,money" swaggertype:"number"`
	CountInStock  int64         `json:"countInStock" binding:"gte=0"`
	IsFeatured    bool          `json:"isFeatured"`
}

func (r productReq) input() service.ProductInput {
	return service.ProductInput{
		Name:          r.Name,
		Description:   r.Description,
		Category:      r.Category,
		Brand:         r.Brand,
		Image:         r.Image,
		Price:         r.Price,
		DiscountPrice: r.DiscountPrice,
		CountInStock:  r.CountInStock,
		IsFeatured:    r.IsFeatured,
	}
}

// @Summary Create product
// @Tags products
// @Accept json
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Param X-User-Role header string true "Role (admin)"
// @Param input body productReq true "Product"
// @Success 201 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /products [post]
func (s *Server) createProduct(c *gin.Context) {
	var req productReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.svc.Products.Create(c.Request.Context(), caller(c), req.input())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// @Summary Get product by id
// @Tags products
// @Produce json
// @Param id path int true "Product ID"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [get]
func (s *Server) getProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	p, err := s.svc.Products.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Update product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body productReq true "Product"
// @Success 200 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /products/{id} [put]
func (s *Server) updateProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req productReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.svc.Products.Update(c.Request.Context(), caller(c), id, req.input())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Delete product
// @Tags products
// @Param id path int true "Product ID"
// @Success 204
// @Failure 404 {object} errorResponse
// @Router /products/{id} [delete]
func (s *Server) deleteProduct(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if err := s.svc.Products.Delete(c.Request.Context(), caller(c), id); err != nil {
		s.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// @Summary List products
// @Tags products
// @Produce json
// @Param keyword query string false "Name contains (case-insensitive)"
// @Param category query string false "Category"
// @Param minPrice query number false "Min price"
// @Param maxPrice query number false "Max price"
// @Param featured query bool false "Featured only"
// @Param page query int false "Page (1-based)"
// @Param pageSize query int false "Page size"
// @Success 200 {object} repository.ProductPage
// @Failure 400 {object} errorResponse
// @Router /products [get]
func (s *Server) listProducts(c *gin.Context) {
	f := repository.ProductFilter{
		Keyword:  c.Query("keyword"),
		Category: c.Query("category"),
	}
	var err error
	if f.MinPrice, err = queryMoney(c, "minPrice"); err != nil {
		s.writeError(c, err)
		return
	}
	if f.MaxPrice, err = queryMoney(c, "maxPrice"); err != nil {
		s.writeError(c, err)
		return
	}
	if v := c.Query("featured"); v != "" {
		if f.Featured, err = strconv.ParseBool(v); err != nil {
			badRequest(c, "invalid featured")
			return
		}
	}
	if f.Page, err = queryInt(c, "page"); err != nil {
		badRequest(c, "invalid page")
		return
	}
	if f.PageSize, err = queryInt(c, "pageSize"); err != nil {
		badRequest(c, "invalid pageSize")
		return
	}
	page, err := s.svc.Products.List(c.Request.Context(), f)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, page)
}

// @Summary Distinct product categories
// @Tags products
// @Produce json
// @Success 200 {array} string
// @Router /products/categories [get]
func (s *Server) listCategories(c *gin.Context) {
	cats, err := s.svc.Products.Categories(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cats)
}

type reviewReq struct {
	Rating  int    `json:"rating" binding:"required,min=1,max=5"`
	Comment string `json:"comment"`
}

// @Summary Review a product
// @Tags products
// @Accept json
// @Produce json
// @Param id path int true "Product ID"
// @Param input body reviewReq true "Review"
// @Success 201 {object} domain.Product
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /products/{id}/reviews [post]
func (s *Server) addReview(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req reviewReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.svc.Products.AddReview(c.Request.Context(), caller(c), id, req.Rating, req.Comment)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, p)
}

// queryMoney пустой параметр значит "не задан"
func queryMoney(c *gin.Context, name string) (*domain.Money, error) {
	v := c.Query(name)
	if v == "" {
		return nil, nil
	}
	m, err := domain.ParseMoney(v)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func queryInt(c *gin.Context, name string) (int, error) {
	v := c.Query(name)
	if v == "" {
		return 0, nil
	}
	return strconv.Atoi(v)
}

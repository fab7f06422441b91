package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type addToCartReq struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

// cartQuantityReq 0 удаляет позицию
type cartQuantityReq struct {
	Quantity *int64 `json:"quantity" binding:"required,gte=0"`
}

// @Summary Current user's cart
// @Tags cart
// @Produce json
// @Param X-User-ID header int true "User ID"
// @Success 200 {object} domain.Cart
// @Failure 401 {object} errorResponse
// @Router /cart [get]
func (s *Server) getCart(c *gin.Context) {
	cart, err := s.svc.Carts.GetCart(c.Request.Context(), caller(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// @Summary Add product to cart
// @Tags cart
// @Accept json
// @Produce json
// @Param input body addToCartReq true "Line"
// @Success 200 {object} domain.Cart
// @Failure 400 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /cart/add [post]
func (s *Server) addToCart(c *gin.Context) {
	var req addToCartReq
	if !bindJSON(c, &req) {
		return
	}
	cart, err := s.svc.Carts.AddItem(c.Request.Context(), caller(c), req.ProductID, req.Quantity)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// @Summary Set line quantity
// @Tags cart
// @Accept json
// @Produce json
// @Param productId path int true "Product ID"
// @Param input body cartQuantityReq true "Quantity"
// @Success 200 {object} domain.Cart
// @Failure 404 {object} errorResponse
// @Router /cart/{productId} [put]
func (s *Server) setCartQuantity(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	var req cartQuantityReq
	if !bindJSON(c, &req) {
		return
	}
	cart, err := s.svc.Carts.SetItemQuantity(c.Request.Context(), caller(c), productID, *req.Quantity)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// @Summary Remove line from cart
// @Tags cart
// @Produce json
// @Param productId path int true "Product ID"
// @Success 200 {object} domain.Cart
// @Router /cart/{productId} [delete]
func (s *Server) removeFromCart(c *gin.Context) {
	productID, ok := pathID(c, "productId")
	if !ok {
		return
	}
	cart, err := s.svc.Carts.RemoveItem(c.Request.Context(), caller(c), productID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

// @Summary Clear cart
// @Tags cart
// @Produce json
// @Success 200 {object} domain.Cart
// @Router /cart [delete]
func (s *Server) clearCart(c *gin.Context) {
	cart, err := s.svc.Carts.Clear(c.Request.Context(), caller(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cart)
}

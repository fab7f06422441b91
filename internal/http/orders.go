package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"commerce/internal/domain"
	"commerce/internal/service"
)

// HeaderIdempotencyKey повтор с тем же ключом возвращает уже созданный заказ
const HeaderIdempotencyKey = "Idempotency-Key"

type orderItemReq struct {
	ProductID int64 `json:"productId" binding:"required,gt=0"`
	Quantity  int64 `json:"quantity" binding:"required,gt=0"`
}

type shippingAddressReq struct {
	Address    string `json:"address" binding:"required"`
	City       string `json:"city" binding:"required"`
	PostalCode string `json:"postalCode" binding:"required"`
	Country    string `json:"country" binding:"required"`
}

type createOrderReq struct {
	OrderItems      []orderItemReq     `json:"orderItems" binding:"required,min=1,dive"`
	ShippingAddress shippingAddressReq `json:"shippingAddress" binding:"required"`
}

type payOrderReq struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
}

// @Summary Place order from the cart
// @Description Items must match the caller's cart. Stock is reserved atomically.
// @Tags orders
// @Accept json
// @Produce json
// @Param Idempotency-Key header string false "Replay key"
// @Param input body createOrderReq true "Order"
// @Success 201 {object} domain.Order
// @Success 200 {object} domain.Order "replayed"
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /orders [post]
func (s *Server) createOrder(c *gin.Context) {
	var req createOrderReq
	if !bindJSON(c, &req) {
		return
	}
	in := service.CreateOrderRequest{
		Items: make([]service.RequestedItem, 0, len(req.OrderItems)),
		ShippingAddress: domain.ShippingAddress{
			Address:    req.ShippingAddress.Address,
			City:       req.ShippingAddress.City,
			PostalCode: req.ShippingAddress.PostalCode,
			Country:    req.ShippingAddress.Country,
		},
	}
	for _, it := range req.OrderItems {
		in.Items = append(in.Items, service.RequestedItem{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	key := strings.TrimSpace(c.GetHeader(HeaderIdempotencyKey))
	o, created, err := s.svc.Orders.CreateOrder(c.Request.Context(), caller(c), in, key)
	if err != nil {
		s.writeError(c, err)
		return
	}
	if !created {
		c.JSON(http.StatusOK, o)
		return
	}
	c.JSON(http.StatusCreated, o)
}

// @Summary Get order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 403 {object} errorResponse
// @Failure 404 {object} errorResponse
// @Router /orders/{id} [get]
func (s *Server) getOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := s.svc.Orders.GetOrder(c.Request.Context(), caller(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Caller's orders
// @Tags orders
// @Produce json
// @Success 200 {array} domain.Order
// @Router /orders/mine [get]
func (s *Server) listMyOrders(c *gin.Context) {
	orders, err := s.svc.Orders.ListMyOrders(c.Request.Context(), caller(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// @Summary Create payment intent for an order
// @Tags orders
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} service.IntentResult
// @Failure 409 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /orders/{id}/payment-intent [post]
func (s *Server) createOrderIntent(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	res, err := s.svc.Payments.CreateOrderIntent(c.Request.Context(), caller(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Confirm order payment
// @Description The intent is re-queried at the provider; repeated calls are no-ops.
// @Tags orders
// @Accept json
// @Produce json
// @Param id path int true "Order ID"
// @Param input body payOrderReq true "Intent"
// @Success 200 {object} domain.Order
// @Failure 402 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /orders/{id}/pay [put]
func (s *Server) payOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	var req payOrderReq
	if !bindJSON(c, &req) {
		return
	}
	o, err := s.svc.Payments.ConfirmOrderPayment(c.Request.Context(), caller(c), id, req.PaymentIntentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

// @Summary Admin dashboard: catalog size, order count, paid revenue, recent orders
// @Tags admin
// @Produce json
// @Success 200 {object} service.DashboardStats
// @Failure 403 {object} errorResponse
// @Router /admin/dashboard [get]
func (s *Server) dashboard(c *gin.Context) {
	stats, err := s.svc.Orders.DashboardStats(c.Request.Context(), caller(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// @Summary All orders, newest first
// @Tags admin
// @Produce json
// @Success 200 {array} domain.Order
// @Failure 403 {object} errorResponse
// @Router /admin/orders [get]
func (s *Server) listAllOrders(c *gin.Context) {
	orders, err := s.svc.Orders.ListAllOrders(c.Request.Context(), caller(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, orders)
}

// @Summary Mark order delivered
// @Tags admin
// @Produce json
// @Param id path int true "Order ID"
// @Success 200 {object} domain.Order
// @Failure 409 {object} errorResponse
// @Router /admin/orders/{id}/deliver [put]
func (s *Server) deliverOrder(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	o, err := s.svc.Orders.MarkDelivered(c.Request.Context(), caller(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

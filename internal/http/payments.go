package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce/internal/domain"
)

type courseIntentReq struct {
	CourseID int64 `json:"courseId" binding:"required,gt=0"`
}

type confirmCourseReq struct {
	PaymentIntentID string `json:"paymentIntentId" binding:"required"`
	CourseID        int64  `json:"courseId" binding:"required,gt=0"`
}

type webhookReq struct {
	IntentID string `json:"intentId" binding:"required"`
}

type webhookResp struct {
	Status  string          `json:"status"`
	Payment *domain.Payment `json:"payment,omitempty"`
}

// @Summary Create payment intent for a course
// @Tags payments
// @Accept json
// @Produce json
// @Param input body courseIntentReq true "Course"
// @Success 200 {object} service.IntentResult
// @Failure 400 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /payments/intent [post]
func (s *Server) createCourseIntent(c *gin.Context) {
	var req courseIntentReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.svc.Payments.CreateCourseIntent(c.Request.Context(), caller(c), req.CourseID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Confirm course payment and enroll
// @Tags payments
// @Accept json
// @Produce json
// @Param input body confirmCourseReq true "Confirmation"
// @Success 200 {object} domain.Payment
// @Failure 402 {object} errorResponse
// @Failure 409 {object} errorResponse
// @Router /payments/confirm [post]
func (s *Server) confirmCoursePayment(c *gin.Context) {
	var req confirmCourseReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.svc.Payments.ConfirmCoursePayment(c.Request.Context(), caller(c), req.CourseID, req.PaymentIntentID)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

// @Summary Payment provider notification
// @Description Only the intent id is taken from the body; the status is re-queried at the provider.
// @Tags payments
// @Accept json
// @Produce json
// @Param input body webhookReq true "Notification"
// @Success 200 {object} webhookResp
// @Success 202 {object} webhookResp "intent not succeeded yet"
// @Failure 404 {object} errorResponse
// @Failure 503 {object} errorResponse
// @Router /payments/webhook [post]
func (s *Server) paymentWebhook(c *gin.Context) {
	var req webhookReq
	if !bindJSON(c, &req) {
		return
	}
	p, err := s.svc.Payments.HandleWebhook(c.Request.Context(), req.IntentID)
	switch {
	case errors.Is(err, domain.ErrPaymentIncomplete):
		// провайдер пришлёт следующее уведомление
		c.JSON(http.StatusAccepted, webhookResp{Status: "ignored"})
	case err != nil:
		s.writeError(c, err)
	default:
		c.JSON(http.StatusOK, webhookResp{Status: "applied", Payment: p})
	}
}

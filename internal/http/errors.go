package httpapi

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce/internal/domain"
)

// errorResponse тело любой ошибки API
type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

var errorTable = []struct {
	err    error
	status int
	code   string
}{
	{domain.ErrNotFound, http.StatusNotFound, "not_found"},
	{domain.ErrValidation, http.StatusBadRequest, "validation_failed"},
	{domain.ErrInsufficientStock, http.StatusConflict, "insufficient_stock"},
	{domain.ErrAmountMismatch, http.StatusConflict, "amount_mismatch"},
	{domain.ErrInvalidTransition, http.StatusConflict, "invalid_transition"},
	{domain.ErrConflict, http.StatusConflict, "conflict"},
	{domain.ErrPaymentIncomplete, http.StatusPaymentRequired, "payment_incomplete"},
	{domain.ErrUnavailable, http.StatusServiceUnavailable, "unavailable"},
	{domain.ErrDegenerateQuiz, http.StatusUnprocessableEntity, "degenerate_quiz"},
	{domain.ErrUnauthorized, http.StatusUnauthorized, "unauthorized"},
	{domain.ErrForbidden, http.StatusForbidden, "forbidden"},
}

// mapError статус и код по первой совпавшей сентинельной ошибке
func mapError(err error) (int, string) {
	for _, e := range errorTable {
		if errors.Is(err, e.err) {
			return e.status, e.code
		}
	}
	return http.StatusInternalServerError, "internal_error"
}

func (s *Server) writeError(c *gin.Context, err error) {
	status, code := mapError(err)
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.log.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err)
		msg = "internal server error"
	} else if status == http.StatusServiceUnavailable {
		s.log.Warn("dependency unavailable", "path", c.FullPath(), "error", err)
		c.Header("Retry-After", "1")
	}
	_ = c.Error(err)
	c.AbortWithStatusJSON(status, errorResponse{Error: code, Message: msg})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{Error: "validation_failed", Message: msg})
}

func logAttrs(c *gin.Context) []any {
	return []any{slog.String("method", c.Request.Method), slog.String("path", c.FullPath())}
}

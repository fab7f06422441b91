package domain

import "errors"

// Ошибки предметной области. Слои выше оборачивают их через %w и сверяют через errors.Is.
var (
	ErrNotFound          = errors.New("not found")
	ErrValidation        = errors.New("validation failed")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrAmountMismatch    = errors.New("amount mismatch")
	ErrConflict          = errors.New("conflict")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrPaymentIncomplete = errors.New("payment not completed")
	ErrUnavailable       = errors.New("dependency unavailable")
	ErrDegenerateQuiz    = errors.New("quiz has no points")
	ErrUnauthorized      = errors.New("unauthorized")
	ErrForbidden         = errors.New("forbidden")
)

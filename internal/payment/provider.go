package payment

import (
	"context"

	"commerce/internal/domain"
)

// Ключи metadata, которые сервер кладёт в платёжное намерение и сверяет при подтверждении
const (
	MetaKind = "kind"
	MetaRef  = "ref_id"
	MetaUser = "user_id"
)

// Intent созданное у провайдера платёжное намерение
type Intent struct {
	ID           string
	ClientSecret string
	Amount       domain.Money
	Currency     string
}

// IntentStatus состояние намерения, как его видит провайдер
type IntentStatus struct {
	ID       string
	Status   string
	Amount   domain.Money
	Currency string
	Metadata map[string]string
}

// Succeeded провайдер подтвердил списание
func (s IntentStatus) Succeeded() bool { return s.Status == domain.PaymentStatusSucceeded }

// Provider внешний платёжный провайдер. Retrieve возвращает domain.ErrNotFound для неизвестного
// намерения и domain.ErrUnavailable, если провайдер недоступен.
type Provider interface {
	CreateIntent(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (Intent, error)
	Retrieve(ctx context.Context, intentID string) (IntentStatus, error)
}

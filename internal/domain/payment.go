package domain

import "time"

// PaymentKind к чему относится оплата
type PaymentKind string

const (
	PaymentKindOrder  PaymentKind = "order"
	PaymentKindCourse PaymentKind = "course"
)

// PaymentStatusSucceeded статус успешного платежа у провайдера
const PaymentStatusSucceeded = "succeeded"

// Payment запись об оплате. Создаётся только после подтверждения провайдером, не изменяется.
type Payment struct {
	ID        int64       `json:"id"`
	UserID    int64       `json:"userId"`
	Kind      PaymentKind `json:"kind"`
	RefID     int64       `json:"refId"`
	Amount    Money       `json:"amount"`
	Currency  string      `json:"currency"`
	IntentID  string      `json:"paymentIntentId"`
	Status    string      `json:"status"`
	CreatedAt time.Time   `json:"createdAt"`
}

package payment

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"

	"commerce/internal/domain"
)

// Stripe платёжные намерения через stripe-go
type Stripe struct {
	api *client.API
}

var _ Provider = (*Stripe)(nil)

// NewStripe baseURL пустой для боевого API; повторы отключены, ими управляет вызывающий
func NewStripe(baseURL, secretKey string, timeout time.Duration) *Stripe {
	if baseURL == "" {
		baseURL = stripe.APIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	backend := stripe.GetBackendWithConfig(stripe.APIBackend, &stripe.BackendConfig{
		URL:               stripe.String(baseURL),
		HTTPClient:        &http.Client{Timeout: timeout},
		MaxNetworkRetries: stripe.Int64(0),
		LeveledLogger:     &stripe.LeveledLogger{Level: stripe.LevelNull},
	})
	api := &client.API{}
	api.Init(secretKey, &stripe.Backends{API: backend, Connect: backend, Uploads: backend})
	return &Stripe{api: api}
}

func (s *Stripe) CreateIntent(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(int64(amount)),
		Currency: stripe.String(currency),
		AutomaticPaymentMethods: &stripe.PaymentIntentAutomaticPaymentMethodsParams{
			Enabled: stripe.Bool(true),
		},
	}
	params.Context = ctx
	for k, v := range metadata {
		params.AddMetadata(k, v)
	}
	pi, err := s.api.PaymentIntents.New(params)
	if err != nil {
		return Intent{}, mapStripeError(err)
	}
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Amount:       domain.Money(pi.Amount),
		Currency:     string(pi.Currency),
	}, nil
}

func (s *Stripe) Retrieve(ctx context.Context, intentID string) (IntentStatus, error) {
	if intentID == "" {
		return IntentStatus{}, fmt.Errorf("%w: payment intent id is required", domain.ErrValidation)
	}
	params := &stripe.PaymentIntentParams{}
	params.Context = ctx
	pi, err := s.api.PaymentIntents.Get(intentID, params)
	if err != nil {
		return IntentStatus{}, mapStripeError(err)
	}
	meta := pi.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	return IntentStatus{
		ID:       pi.ID,
		Status:   string(pi.Status),
		Amount:   domain.Money(pi.Amount),
		Currency: string(pi.Currency),
		Metadata: meta,
	}, nil
}

// mapStripeError: 404 не найдено, 429 и 5xx недоступен, 400 ошибка запроса.
// Ответ без разбираемой ошибки Stripe (сеть, таймаут, пустое тело) считается недоступностью.
func mapStripeError(err error) error {
	var se *stripe.Error
	if !errors.As(err, &se) {
		return fmt.Errorf("%w: payment provider: %v", domain.ErrUnavailable, err)
	}
	status := se.HTTPStatusCode
	msg := se.Msg
	if msg == "" {
		msg = http.StatusText(status)
	}
	switch {
	case status == http.StatusNotFound:
		return fmt.Errorf("payment provider: %s: %w", msg, domain.ErrNotFound)
	case status == http.StatusTooManyRequests || status >= 500:
		return fmt.Errorf("%w: payment provider status %d: %s", domain.ErrUnavailable, status, msg)
	case status == http.StatusBadRequest:
		return fmt.Errorf("%w: payment provider: %s", domain.ErrValidation, msg)
	default:
		return fmt.Errorf("payment provider status %d: %s", status, msg)
	}
}

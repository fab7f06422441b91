package payment

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"

	"commerce/internal/domain"
)

// Fake провайдер в памяти для разработки и тестов
type Fake struct {
	mu      sync.Mutex
	intents map[string]IntentStatus
	// AutoConfirm создаёт намерения сразу в статусе succeeded
	AutoConfirm bool
}

var _ Provider = (*Fake)(nil)

func NewFake(autoConfirm bool) *Fake {
	return &Fake{intents: make(map[string]IntentStatus), AutoConfirm: autoConfirm}
}

func (f *Fake) CreateIntent(ctx context.Context, amount domain.Money, currency string, metadata map[string]string) (Intent, error) {
	if err := ctx.Err(); err != nil {
		return Intent{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	if amount <= 0 {
		return Intent{}, fmt.Errorf("%w: intent amount must be positive", domain.ErrValidation)
	}
	id := "pi_" + strings.ReplaceAll(uuid.NewString(), "-", "")
	status := "requires_payment_method"
	if f.AutoConfirm {
		status = domain.PaymentStatusSucceeded
	}
	meta := make(map[string]string, len(metadata))
	for k, v := range metadata {
		meta[k] = v
	}

	f.mu.Lock()
	f.intents[id] = IntentStatus{ID: id, Status: status, Amount: amount, Currency: currency, Metadata: meta}
	f.mu.Unlock()
	return Intent{ID: id, ClientSecret: id + "_secret_" + uuid.NewString()[:8], Amount: amount, Currency: currency}, nil
}

func (f *Fake) Retrieve(ctx context.Context, intentID string) (IntentStatus, error) {
	if err := ctx.Err(); err != nil {
		return IntentStatus{}, fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.intents[intentID]
	if !ok {
		return IntentStatus{}, fmt.Errorf("payment intent %q: %w", intentID, domain.ErrNotFound)
	}
	meta := make(map[string]string, len(st.Metadata))
	for k, v := range st.Metadata {
		meta[k] = v
	}
	st.Metadata = meta
	return st, nil
}

// Succeed имитирует успешное списание
func (f *Fake) Succeed(intentID string) error {
	return f.update(intentID, func(st *IntentStatus) { st.Status = domain.PaymentStatusSucceeded })
}

// SetStatus произвольный статус, например processing или canceled
func (f *Fake) SetStatus(intentID, status string) error {
	return f.update(intentID, func(st *IntentStatus) { st.Status = status })
}

// SetAmount подменяет сумму на стороне провайдера
func (f *Fake) SetAmount(intentID string, amount domain.Money) error {
	return f.update(intentID, func(st *IntentStatus) { st.Amount = amount })
}

// SetMetadata подменяет значение metadata на стороне провайдера
func (f *Fake) SetMetadata(intentID, key, value string) error {
	return f.update(intentID, func(st *IntentStatus) { st.Metadata[key] = value })
}

func (f *Fake) update(intentID string, fn func(st *IntentStatus)) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	st, ok := f.intents[intentID]
	if !ok {
		return fmt.Errorf("payment intent %q: %w", intentID, domain.ErrNotFound)
	}
	fn(&st)
	f.intents[intentID] = st
	return nil
}

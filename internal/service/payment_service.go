package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/logging"
	"commerce/internal/payment"
	"commerce/internal/repository"
)

// PaymentService сверяет состояние платежей у провайдера с заказами и записями на курсы.
// Клиентскому утверждению об успешной оплате не доверяем: статус всегда перезапрашивается.
type PaymentService struct {
	base
	orders          repository.OrderRepository
	courses         repository.CourseRepository
	payments        repository.PaymentRepository
	tx              repository.TxManager
	provider        payment.Provider
	currency        string
	providerTimeout time.Duration
}

type PaymentConfig struct {
	Currency        string
	ProviderTimeout time.Duration
}

func NewPaymentService(orders repository.OrderRepository, courses repository.CourseRepository, payments repository.PaymentRepository,
	tx repository.TxManager, provider payment.Provider, cfg PaymentConfig, deps Deps) *PaymentService {
	if cfg.Currency == "" {
		cfg.Currency = "usd"
	}
	if cfg.ProviderTimeout <= 0 {
		cfg.ProviderTimeout = 10 * time.Second
	}
	return &PaymentService{
		base:            newBase(deps),
		orders:          orders,
		courses:         courses,
		payments:        payments,
		tx:              tx,
		provider:        provider,
		currency:        strings.ToLower(cfg.Currency),
		providerTimeout: cfg.ProviderTimeout,
	}
}

// IntentResult данные для клиента, чтобы завершить оплату у провайдера
type IntentResult struct {
	IntentID     string       `json:"intentId"`
	ClientSecret string       `json:"clientSecret"`
	Amount       domain.Money `json:"amount"`
	Currency     string       `json:"currency"`
}

// target то, что оплачивается
type target struct {
	kind   domain.PaymentKind
	refID  int64
	userID int64
}

func (t target) metadata() map[string]string {
	return map[string]string{
		payment.MetaKind: string(t.kind),
		payment.MetaRef:  strconv.FormatInt(t.refID, 10),
		payment.MetaUser: strconv.FormatInt(t.userID, 10),
	}
}

func targetFromMetadata(meta map[string]string) (target, error) {
	kind := domain.PaymentKind(meta[payment.MetaKind])
	if kind != domain.PaymentKindOrder && kind != domain.PaymentKindCourse {
		return target{}, fmt.Errorf("%w: payment intent has no known target", domain.ErrValidation)
	}
	ref, err1 := strconv.ParseInt(meta[payment.MetaRef], 10, 64)
	user, err2 := strconv.ParseInt(meta[payment.MetaUser], 10, 64)
	if err1 != nil || err2 != nil {
		return target{}, fmt.Errorf("%w: malformed payment intent metadata", domain.ErrValidation)
	}
	return target{kind: kind, refID: ref, userID: user}, nil
}

// CreateOrderIntent сумма берётся из заказа, не от клиента
func (s *PaymentService) CreateOrderIntent(ctx context.Context, id domain.Identity, orderID int64) (IntentResult, error) {
	if err := requireUser(id); err != nil {
		return IntentResult{}, err
	}
	sctx, cancel := s.begin(ctx)
	o, err := s.orders.GetByID(sctx, orderID)
	cancel()
	if err != nil {
		return IntentResult{}, unavailable(err)
	}
	if o.UserID != id.UserID {
		return IntentResult{}, fmt.Errorf("%w: order %d belongs to another user", domain.ErrForbidden, orderID)
	}
	if o.IsPaid {
		return IntentResult{}, fmt.Errorf("%w: order %d is already paid", domain.ErrConflict, orderID)
	}
	if o.Status != domain.OrderStatusCreated {
		return IntentResult{}, fmt.Errorf("%w: order %d is %s", domain.ErrInvalidTransition, orderID, o.Status)
	}
	return s.createIntent(ctx, o.TotalPrice, target{kind: domain.PaymentKindOrder, refID: o.ID, userID: id.UserID})
}

// CreateCourseIntent бесплатные курсы оформляются напрямую, без оплаты
func (s *PaymentService) CreateCourseIntent(ctx context.Context, id domain.Identity, courseID int64) (IntentResult, error) {
	if err := requireUser(id); err != nil {
		return IntentResult{}, err
	}
	sctx, cancel := s.begin(ctx)
	c, err := s.courses.GetByID(sctx, courseID)
	cancel()
	if err != nil {
		return IntentResult{}, unavailable(err)
	}
	if c.IsEnrolled(id.UserID) {
		return IntentResult{}, fmt.Errorf("%w: already enrolled in course %d", domain.ErrConflict, courseID)
	}
	if c.Price <= 0 {
		return IntentResult{}, fmt.Errorf("%w: course %d is free, enroll directly", domain.ErrValidation, courseID)
	}
	return s.createIntent(ctx, c.Price, target{kind: domain.PaymentKindCourse, refID: c.ID, userID: id.UserID})
}

func (s *PaymentService) createIntent(ctx context.Context, amount domain.Money, t target) (IntentResult, error) {
	ctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	defer cancel()
	intent, err := s.provider.CreateIntent(ctx, amount, s.currency, t.metadata())
	if err != nil {
		return IntentResult{}, unavailable(err)
	}
	return IntentResult{IntentID: intent.ID, ClientSecret: intent.ClientSecret, Amount: amount, Currency: s.currency}, nil
}

// ConfirmOrderPayment переводит заказ в paid после проверки у провайдера. Повтор возвращает заказ без изменений.
func (s *PaymentService) ConfirmOrderPayment(ctx context.Context, id domain.Identity, orderID int64, intentID string) (*domain.Order, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	if _, err := s.confirm(ctx, intentID, &target{kind: domain.PaymentKindOrder, refID: orderID, userID: id.UserID}); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	o, err := s.orders.GetByID(ctx, orderID)
	return o, unavailable(err)
}

// ConfirmCoursePayment записывает пользователя на курс после проверки у провайдера
func (s *PaymentService) ConfirmCoursePayment(ctx context.Context, id domain.Identity, courseID int64, intentID string) (*domain.Payment, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	return s.confirm(ctx, intentID, &target{kind: domain.PaymentKindCourse, refID: courseID, userID: id.UserID})
}

// HandleWebhook уведомление провайдера: цель берётся из metadata намерения на стороне провайдера
func (s *PaymentService) HandleWebhook(ctx context.Context, intentID string) (*domain.Payment, error) {
	return s.confirm(ctx, intentID, nil)
}

// confirm общая сверка. expected == nil означает, что цель определяется по metadata.
func (s *PaymentService) confirm(ctx context.Context, intentID string, expected *target) (*domain.Payment, error) {
	intentID = strings.TrimSpace(intentID)
	if intentID == "" {
		return nil, fmt.Errorf("%w: paymentIntentId is required", domain.ErrValidation)
	}
	done := logging.Step(s.Log, "payment.confirm", "intent_id", intentID)

	p, replay, err := s.reconcile(ctx, intentID, expected)
	done(err)
	if err != nil {
		return nil, unavailable(err)
	}
	if replay {
		s.Log.Info("payment already recorded", "intent_id", intentID, "payment_id", p.ID)
		return p, nil
	}

	ref := strconv.FormatInt(p.RefID, 10)
	switch p.Kind {
	case domain.PaymentKindOrder:
		s.publish(ctx, events.New(events.OrderPaid, ref, p.UserID, map[string]any{"intentId": p.IntentID, "amount": p.Amount.String()}))
	case domain.PaymentKindCourse:
		s.publish(ctx, events.New(events.CourseEnrolled, ref, p.UserID, map[string]any{"intentId": p.IntentID}))
	}
	return p, nil
}

func (s *PaymentService) reconcile(ctx context.Context, intentID string, expected *target) (*domain.Payment, bool, error) {
	if expected != nil {
		if p, ok, err := s.existing(ctx, intentID); err != nil || ok {
			if ok {
				err = checkTarget(p, *expected)
			}
			return p, ok, err
		}
	}

	pctx, cancel := context.WithTimeout(ctx, s.providerTimeout)
	status, err := s.provider.Retrieve(pctx, intentID)
	cancel()
	if err != nil {
		return nil, false, err
	}

	t, err := targetFromMetadata(status.Metadata)
	if err != nil {
		return nil, false, err
	}
	if expected != nil {
		if t.userID != expected.userID {
			return nil, false, fmt.Errorf("%w: payment intent belongs to another user", domain.ErrForbidden)
		}
		if t.kind != expected.kind || t.refID != expected.refID {
			return nil, false, fmt.Errorf("%w: payment intent is for %s %d", domain.ErrValidation, t.kind, t.refID)
		}
	} else if p, ok, err := s.existing(ctx, intentID); err != nil || ok {
		return p, ok, err
	}

	if !status.Succeeded() {
		return nil, false, fmt.Errorf("%w: provider status %q", domain.ErrPaymentIncomplete, status.Status)
	}
	if !strings.EqualFold(status.Currency, s.currency) {
		return nil, false, fmt.Errorf("%w: currency %q, expected %q", domain.ErrAmountMismatch, status.Currency, s.currency)
	}

	sctx, scancel := s.begin(ctx)
	defer scancel()
	var recorded *domain.Payment
	err = s.tx.WithTransaction(sctx, func(ctx context.Context) error {
		p, err := s.apply(ctx, intentID, status, t)
		recorded = p
		return err
	})
	if errors.Is(err, repository.ErrConflict) {
		// параллельное подтверждение того же намерения успело раньше
		if p, ok, lookupErr := s.existing(ctx, intentID); lookupErr == nil && ok {
			return p, true, nil
		}
	}
	if err != nil {
		return nil, false, err
	}
	return recorded, false, nil
}

// apply внутри транзакции: сверка суммы, запись платежа и зависимое изменение
func (s *PaymentService) apply(ctx context.Context, intentID string, status payment.IntentStatus, t target) (*domain.Payment, error) {
	p := &domain.Payment{
		UserID:   t.userID,
		Kind:     t.kind,
		RefID:    t.refID,
		Amount:   status.Amount,
		Currency: s.currency,
		IntentID: intentID,
		Status:   domain.PaymentStatusSucceeded,
	}
	switch t.kind {
	case domain.PaymentKindOrder:
		o, err := s.orders.GetByID(ctx, t.refID)
		if err != nil {
			return nil, err
		}
		if o.UserID != t.userID {
			return nil, fmt.Errorf("%w: order %d belongs to another user", domain.ErrForbidden, o.ID)
		}
		if status.Amount != o.TotalPrice {
			return nil, fmt.Errorf("%w: paid %s, order total %s", domain.ErrAmountMismatch, status.Amount, o.TotalPrice)
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return nil, err
		}
		if err := o.MarkPaid(intentID, s.now()); err != nil {
			return nil, err
		}
		if err := s.orders.Update(ctx, o); err != nil {
			return nil, err
		}
	case domain.PaymentKindCourse:
		c, err := s.courses.GetByID(ctx, t.refID)
		if err != nil {
			return nil, err
		}
		if status.Amount != c.Price {
			return nil, fmt.Errorf("%w: paid %s, course price %s", domain.ErrAmountMismatch, status.Amount, c.Price)
		}
		if err := s.payments.Create(ctx, p); err != nil {
			return nil, err
		}
		if c.Enroll(t.userID) {
			if err := s.courses.Update(ctx, c); err != nil {
				return nil, err
			}
		} else {
			s.Log.Warn("paid for a course already enrolled", "course_id", c.ID, "user_id", t.userID, "intent_id", intentID)
		}
	}
	return p, nil
}

func (s *PaymentService) existing(ctx context.Context, intentID string) (*domain.Payment, bool, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	p, err := s.payments.GetByIntentID(ctx, intentID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return p, true, nil
}

func checkTarget(p *domain.Payment, t target) error {
	if p.UserID != t.userID {
		return fmt.Errorf("%w: payment belongs to another user", domain.ErrForbidden)
	}
	if p.Kind != t.kind || p.RefID != t.refID {
		return fmt.Errorf("%w: payment intent already used for %s %d", domain.ErrConflict, p.Kind, p.RefID)
	}
	return nil
}

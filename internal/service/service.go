package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/logging"
	"commerce/internal/repository"
)

const (
	defaultStoreTimeout = 3 * time.Second
	publishTimeout      = 2 * time.Second
	maxAttempts         = 8
)

// Deps общие зависимости сервисов
type Deps struct {
	Log          *slog.Logger
	Events       events.Publisher
	StoreTimeout time.Duration
	Now          func() time.Time
}

type base struct{ Deps }

func newBase(d Deps) base {
	if d.Log == nil {
		d.Log = logging.Discard()
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.StoreTimeout <= 0 {
		d.StoreTimeout = defaultStoreTimeout
	}
	if d.Now == nil {
		d.Now = func() time.Time { return time.Now().UTC() }
	}
	return base{d}
}

// begin ограничивает операцию таймаутом хранилища
func (b base) begin(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, b.StoreTimeout)
}

func (b base) now() time.Time { return b.Now() }

// publish после коммита; ошибка доставки только логируется
func (b base) publish(ctx context.Context, e events.Event) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	if err := b.Events.Publish(ctx, e); err != nil {
		b.Log.Warn("event publish failed", "type", e.Type, "aggregate_id", e.AggregateID, "error", err)
	}
}

// unavailable переводит истёкший контекст в повторяемую ошибку
func unavailable(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, domain.ErrUnavailable) {
		return err
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", domain.ErrUnavailable, err)
	}
	return err
}

// errRetry помечает конфликт версии или уникальности, после которого операцию можно повторить
var errRetry = errors.New("retry")

func retryable(err error) error {
	if errors.Is(err, repository.ErrConflict) {
		return fmt.Errorf("%w: %w", errRetry, err)
	}
	return err
}

// withRetry повторяет fn, пока она возвращает errRetry, не более maxAttempts раз
func withRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if err = fn(); !errors.Is(err, errRetry) {
			return err
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt+1) * time.Millisecond):
		}
	}
	return err
}

func requireUser(id domain.Identity) error {
	if id.UserID <= 0 {
		return domain.ErrUnauthorized
	}
	return nil
}

func requireAdmin(id domain.Identity) error {
	if err := requireUser(id); err != nil {
		return err
	}
	if !id.IsAdmin() {
		return fmt.Errorf("%w: admin only", domain.ErrForbidden)
	}
	return nil
}

func requireAuthor(id domain.Identity) error {
	if err := requireUser(id); err != nil {
		return err
	}
	if !id.CanAuthor() {
		return fmt.Errorf("%w: instructor or admin only", domain.ErrForbidden)
	}
	return nil
}

package events

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	OrderCreated      = "order.created"
	OrderPaid         = "order.paid"
	OrderDelivered    = "order.delivered"
	CourseEnrolled    = "course.enrolled"
	CertificateIssued = "certificate.issued"
)

// Event доменное событие, публикуется после коммита транзакции
type Event struct {
	EventID     string         `json:"event_id"`
	Type        string         `json:"type"`
	AggregateID string         `json:"aggregate_id"`
	UserID      int64          `json:"user_id"`
	CreatedAt   time.Time      `json:"created_at"`
	Payload     map[string]any `json:"payload,omitempty"`
}

func New(eventType, aggregateID string, userID int64, payload map[string]any) Event {
	return Event{
		EventID:     uuid.NewString(),
		Type:        eventType,
		AggregateID: aggregateID,
		UserID:      userID,
		CreatedAt:   time.Now().UTC(),
		Payload:     payload,
	}
}

// Publisher доставка событий. Ошибка публикации не откатывает уже закоммиченную операцию.
type Publisher interface {
	Publish(ctx context.Context, e Event) error
	Close() error
}

// Nop используется, когда брокеры не настроены
type Nop struct{}

func (Nop) Publish(context.Context, Event) error { return nil }
func (Nop) Close() error                         { return nil }

// Recorder запоминает опубликованные события
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *Recorder) Close() error { return nil }

// Events копия опубликованного
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

// Count число событий данного типа
func (r *Recorder) Count(eventType string) int {
	n := 0
	for _, e := range r.Events() {
		if e.Type == eventType {
			n++
		}
	}
	return n
}

// ParseBrokers разбирает список брокеров через запятую
func ParseBrokers(csv string) []string {
	brokers := []string{}
	for _, b := range strings.Split(csv, ",") {
		b = strings.TrimSpace(b)
		if b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

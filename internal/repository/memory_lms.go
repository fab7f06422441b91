package repository

import (
	"context"
	"fmt"
	"sort"
	"time"

	"commerce/internal/domain"
)

// MemoryCourses курсы поверх MemoryStore
type MemoryCourses struct{ store *MemoryStore }

func NewMemoryCourses(store *MemoryStore) *MemoryCourses { return &MemoryCourses{store: store} }

var _ CourseRepository = (*MemoryCourses)(nil)

func (mc *MemoryCourses) Create(ctx context.Context, c *domain.Course) error {
	if err := mc.store.wlock(ctx); err != nil {
		return err
	}
	defer mc.store.wunlock(ctx)
	c.ID = mc.store.nextCourseID
	mc.store.nextCourseID++
	c.CreatedAt = time.Now().UTC()
	remember(ctx, mc.store.coursesByID, c.ID)
	mc.store.coursesByID[c.ID] = *c.Clone()
	return nil
}

func (mc *MemoryCourses) GetByID(ctx context.Context, id int64) (*domain.Course, error) {
	if err := mc.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mc.store.runlock(ctx)
	c, ok := mc.store.coursesByID[id]
	if !ok {
		return nil, fmt.Errorf("course %d: %w", id, ErrNotFound)
	}
	return c.Clone(), nil
}

func (mc *MemoryCourses) Update(ctx context.Context, c *domain.Course) error {
	if err := mc.store.wlock(ctx); err != nil {
		return err
	}
	defer mc.store.wunlock(ctx)
	if _, ok := mc.store.coursesByID[c.ID]; !ok {
		return fmt.Errorf("course %d: %w", c.ID, ErrNotFound)
	}
	remember(ctx, mc.store.coursesByID, c.ID)
	mc.store.coursesByID[c.ID] = *c.Clone()
	return nil
}

func (mc *MemoryCourses) ListPublished(ctx context.Context) ([]domain.Course, error) {
	if err := mc.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mc.store.runlock(ctx)
	out := make([]domain.Course, 0)
	for _, c := range mc.store.coursesByID {
		if c.IsPublished {
			out = append(out, *c.Clone())
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// MemoryQuizzes тесты поверх MemoryStore
type MemoryQuizzes struct{ store *MemoryStore }

func NewMemoryQuizzes(store *MemoryStore) *MemoryQuizzes { return &MemoryQuizzes{store: store} }

var _ QuizRepository = (*MemoryQuizzes)(nil)

func (mq *MemoryQuizzes) Create(ctx context.Context, q *domain.Quiz) error {
	if err := mq.store.wlock(ctx); err != nil {
		return err
	}
	defer mq.store.wunlock(ctx)
	q.ID = mq.store.nextQuizID
	mq.store.nextQuizID++
	q.CreatedAt = time.Now().UTC()
	remember(ctx, mq.store.quizzesByID, q.ID)
	mq.store.quizzesByID[q.ID] = *q.Clone()
	return nil
}

func (mq *MemoryQuizzes) GetByID(ctx context.Context, id int64) (*domain.Quiz, error) {
	if err := mq.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mq.store.runlock(ctx)
	q, ok := mq.store.quizzesByID[id]
	if !ok {
		return nil, fmt.Errorf("quiz %d: %w", id, ErrNotFound)
	}
	return q.Clone(), nil
}

// MemoryCertificates сертификаты поверх MemoryStore
type MemoryCertificates struct{ store *MemoryStore }

func NewMemoryCertificates(store *MemoryStore) *MemoryCertificates {
	return &MemoryCertificates{store: store}
}

var _ CertificateRepository = (*MemoryCertificates)(nil)

func (mc *MemoryCertificates) Create(ctx context.Context, c *domain.Certificate) error {
	if err := mc.store.wlock(ctx); err != nil {
		return err
	}
	defer mc.store.wunlock(ctx)
	for _, existing := range mc.store.certsByID {
		if existing.UserID == c.UserID && existing.QuizID == c.QuizID {
			return fmt.Errorf("certificate for user %d quiz %d: %w", c.UserID, c.QuizID, ErrConflict)
		}
		if existing.Number == c.Number {
			return fmt.Errorf("certificate number %s: %w", c.Number, ErrConflict)
		}
	}
	c.ID = mc.store.nextCertID
	mc.store.nextCertID++
	remember(ctx, mc.store.certsByID, c.ID)
	mc.store.certsByID[c.ID] = *c
	return nil
}

func (mc *MemoryCertificates) GetByID(ctx context.Context, id int64) (*domain.Certificate, error) {
	if err := mc.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mc.store.runlock(ctx)
	c, ok := mc.store.certsByID[id]
	if !ok {
		return nil, fmt.Errorf("certificate %d: %w", id, ErrNotFound)
	}
	return &c, nil
}

func (mc *MemoryCertificates) GetByUserQuiz(ctx context.Context, userID, quizID int64) (*domain.Certificate, error) {
	if err := mc.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mc.store.runlock(ctx)
	for _, c := range mc.store.certsByID {
		if c.UserID == userID && c.QuizID == quizID {
			cp := c
			return &cp, nil
		}
	}
	return nil, fmt.Errorf("certificate for user %d quiz %d: %w", userID, quizID, ErrNotFound)
}

func (mc *MemoryCertificates) ListByUser(ctx context.Context, userID int64) ([]domain.Certificate, error) {
	if err := mc.store.rlock(ctx); err != nil {
		return nil, err
	}
	defer mc.store.runlock(ctx)
	out := make([]domain.Certificate, 0)
	for _, c := range mc.store.certsByID {
		if c.UserID == userID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

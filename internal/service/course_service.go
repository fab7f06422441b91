package service

import (
	"context"
	"fmt"
	"strconv"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/repository"
)

// CourseService курсы LMS: создание, каталог, запись на бесплатные курсы
type CourseService struct {
	base
	courses repository.CourseRepository
	tx      repository.TxManager
}

func NewCourseService(courses repository.CourseRepository, tx repository.TxManager, deps Deps) *CourseService {
	return &CourseService{base: newBase(deps), courses: courses, tx: tx}
}

// Create автором курса становится текущий пользователь
func (s *CourseService) Create(ctx context.Context, id domain.Identity, c domain.Course) (*domain.Course, error) {
	if err := requireAuthor(id); err != nil {
		return nil, err
	}
	c.ID = 0
	c.InstructorID = id.UserID
	c.EnrolledStudents = []int64{}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	if err := s.courses.Create(ctx, &c); err != nil {
		return nil, unavailable(err)
	}
	return &c, nil
}

func (s *CourseService) Get(ctx context.Context, courseID int64) (*domain.Course, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	c, err := s.courses.GetByID(ctx, courseID)
	return c, unavailable(err)
}

func (s *CourseService) ListPublished(ctx context.Context) ([]domain.Course, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	list, err := s.courses.ListPublished(ctx)
	return list, unavailable(err)
}

// Enroll напрямую только для бесплатных курсов; платные идут через оплату
func (s *CourseService) Enroll(ctx context.Context, id domain.Identity, courseID int64) (*domain.Course, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	var enrolled *domain.Course
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		c, err := s.courses.GetByID(ctx, courseID)
		if err != nil {
			return err
		}
		if c.Price > 0 {
			return fmt.Errorf("%w: course %d costs %s", domain.ErrPaymentIncomplete, courseID, c.Price)
		}
		if !c.Enroll(id.UserID) {
			return fmt.Errorf("%w: already enrolled in course %d", domain.ErrConflict, courseID)
		}
		if err := s.courses.Update(ctx, c); err != nil {
			return err
		}
		enrolled = c
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}
	s.publish(ctx, events.New(events.CourseEnrolled, strconv.FormatInt(courseID, 10), id.UserID, nil))
	return enrolled, nil
}

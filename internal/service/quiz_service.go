package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"commerce/internal/domain"
	"commerce/internal/events"
	"commerce/internal/repository"
)

// QuizService тесты и выдача сертификатов
type QuizService struct {
	base
	quizzes repository.QuizRepository
	courses repository.CourseRepository
	certs   repository.CertificateRepository
	tx      repository.TxManager
}

func NewQuizService(quizzes repository.QuizRepository, courses repository.CourseRepository, certs repository.CertificateRepository, tx repository.TxManager, deps Deps) *QuizService {
	return &QuizService{base: newBase(deps), quizzes: quizzes, courses: courses, certs: certs, tx: tx}
}

// Create тест к курсу; инструктор может добавлять тесты только к своим курсам
func (s *QuizService) Create(ctx context.Context, id domain.Identity, q domain.Quiz) (*domain.Quiz, error) {
	if err := requireAuthor(id); err != nil {
		return nil, err
	}
	q.ID = 0
	if err := q.Validate(); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	c, err := s.courses.GetByID(ctx, q.CourseID)
	if err != nil {
		return nil, unavailable(err)
	}
	if !id.IsAdmin() && c.InstructorID != id.UserID {
		return nil, fmt.Errorf("%w: course %d belongs to another instructor", domain.ErrForbidden, c.ID)
	}
	if err := s.quizzes.Create(ctx, &q); err != nil {
		return nil, unavailable(err)
	}
	return &q, nil
}

// Get студентам правильные ответы не показываются
func (s *QuizService) Get(ctx context.Context, id domain.Identity, quizID int64) (*domain.Quiz, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	q, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, unavailable(err)
	}
	if id.CanAuthor() {
		return q, nil
	}
	return q.Redacted(), nil
}

// SubmitResult результат попытки. Issued true только если сертификат выдан этой попыткой.
type SubmitResult struct {
	domain.Result
	Certificate *domain.Certificate `json:"certificate,omitempty"`
	Issued      bool                `json:"issued"`
}

// Submit проверяет ответы и при успехе выдаёт не более одного сертификата на (пользователь, тест)
func (s *QuizService) Submit(ctx context.Context, id domain.Identity, quizID int64, answers []int) (*SubmitResult, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()

	q, err := s.quizzes.GetByID(ctx, quizID)
	if err != nil {
		return nil, unavailable(err)
	}
	res, err := q.Score(answers)
	if err != nil {
		return nil, err
	}
	out := &SubmitResult{Result: res}
	if !res.Passed {
		return out, nil
	}

	err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		existing, err := s.certs.GetByUserQuiz(ctx, id.UserID, q.ID)
		if err == nil {
			out.Certificate = existing
			return nil
		}
		if !errors.Is(err, repository.ErrNotFound) {
			return err
		}
		cert, err := domain.IssueCertificate(q, id.UserID, res, s.now())
		if err != nil {
			return err
		}
		if err := s.certs.Create(ctx, cert); err != nil {
			return err
		}
		out.Certificate, out.Issued = cert, true
		return nil
	})
	if errors.Is(err, repository.ErrConflict) {
		// параллельная попытка успела выдать сертификат
		existing, lookupErr := s.certs.GetByUserQuiz(ctx, id.UserID, q.ID)
		if lookupErr == nil {
			out.Certificate, out.Issued, err = existing, false, nil
		}
	}
	if err != nil {
		return nil, unavailable(err)
	}
	if out.Issued {
		s.publish(ctx, events.New(events.CertificateIssued, strconv.FormatInt(out.Certificate.ID, 10), id.UserID, map[string]any{
			"certificateNumber": out.Certificate.Number,
			"quizId":            q.ID,
			"courseId":          q.CourseID,
		}))
	}
	return out, nil
}

// GetCertificate сертификаты проверяемы по id без авторизации
func (s *QuizService) GetCertificate(ctx context.Context, certID int64) (*domain.Certificate, error) {
	ctx, cancel := s.begin(ctx)
	defer cancel()
	c, err := s.certs.GetByID(ctx, certID)
	return c, unavailable(err)
}

func (s *QuizService) ListMyCertificates(ctx context.Context, id domain.Identity) ([]domain.Certificate, error) {
	if err := requireUser(id); err != nil {
		return nil, err
	}
	ctx, cancel := s.begin(ctx)
	defer cancel()
	list, err := s.certs.ListByUser(ctx, id.UserID)
	return list, unavailable(err)
}

package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Certificate сертификат о прохождении теста. Хранит собственный снимок результата.
type Certificate struct {
	ID          int64     `json:"id"`
	Number      string    `json:"certificateNumber"`
	UserID      int64     `json:"userId"`
	CourseID    int64     `json:"courseId"`
	QuizID      int64     `json:"quizId"`
	Score       int       `json:"score"`
	TotalPoints int       `json:"totalPoints"`
	Percentage  int       `json:"percentage"`
	IssuedAt    time.Time `json:"issuedAt"`
}

// NewCertificateNumber CERT-<unix ms>-<user>-<random>. Случайная часть исключает коллизии
// при одновременной выдаче в одну миллисекунду.
func NewCertificateNumber(userID int64, at time.Time) string {
	random := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:12])
	return fmt.Sprintf("CERT-%d-%d-%s", at.UnixMilli(), userID, random)
}

// IssueCertificate выдаёт сертификат по результату; для непройденного теста ошибка
func IssueCertificate(q *Quiz, userID int64, r Result, at time.Time) (*Certificate, error) {
	if !r.Passed {
		return nil, fmt.Errorf("%w: quiz not passed", ErrValidation)
	}
	return &Certificate{
		Number:      NewCertificateNumber(userID, at),
		UserID:      userID,
		CourseID:    q.CourseID,
		QuizID:      q.ID,
		Score:       r.Score,
		TotalPoints: r.TotalPoints,
		Percentage:  r.Percentage,
		IssuedAt:    at,
	}, nil
}

package domain

import (
	"fmt"
	"strings"
	"time"
)

const (
	DefaultPassingScore = 70
	DefaultTimeLimit    = 30
)

// Question вопрос с вариантами ответа
type Question struct {
	Text          string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer int      `json:"correctAnswer"`
	Points        int      `json:"points"`
}

// Quiz тест курса
type Quiz struct {
	ID               int64      `json:"id"`
	CourseID         int64      `json:"courseId"`
	Title            string     `json:"title"`
	Questions        []Question `json:"questions"`
	TimeLimitMinutes int        `json:"timeLimit"`
	PassingScore     int        `json:"passingScore"`
	CreatedAt        time.Time  `json:"createdAt"`
}

func (q *Quiz) Validate() error {
	if strings.TrimSpace(q.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrValidation)
	}
	if q.CourseID <= 0 {
		return fmt.Errorf("%w: courseId is required", ErrValidation)
	}
	if q.PassingScore < 0 || q.PassingScore > 100 {
		return fmt.Errorf("%w: passingScore must be within 0..100", ErrValidation)
	}
	if q.TimeLimitMinutes < 0 {
		return fmt.Errorf("%w: timeLimit must not be negative", ErrValidation)
	}
	if len(q.Questions) == 0 {
		return fmt.Errorf("%w: quiz needs at least one question", ErrValidation)
	}
	for i, qu := range q.Questions {
		if strings.TrimSpace(qu.Text) == "" || len(qu.Options) < 2 {
			return fmt.Errorf("%w: question %d needs text and at least two options", ErrValidation, i)
		}
		if qu.CorrectAnswer < 0 || qu.CorrectAnswer >= len(qu.Options) {
			return fmt.Errorf("%w: question %d correctAnswer out of range", ErrValidation, i)
		}
		if qu.Points < 0 {
			return fmt.Errorf("%w: question %d points must not be negative", ErrValidation, i)
		}
	}
	return nil
}

// TotalPoints сумма баллов всех вопросов
func (q *Quiz) TotalPoints() int {
	total := 0
	for _, qu := range q.Questions {
		total += qu.Points
	}
	return total
}

// Result результат проверки ответов
type Result struct {
	Score        int  `json:"score"`
	TotalPoints  int  `json:"totalPoints"`
	Percentage   int  `json:"percentage"`
	Passed       bool `json:"passed"`
	PassingScore int  `json:"passingScore"`
}

// Score проверяет ответы по позициям. Отсутствующий или невалидный ответ считается неверным.
func (q *Quiz) Score(answers []int) (Result, error) {
	total := q.TotalPoints()
	if total <= 0 {
		return Result{}, ErrDegenerateQuiz
	}
	score := 0
	for i, qu := range q.Questions {
		if i >= len(answers) {
			break
		}
		if answers[i] == qu.CorrectAnswer {
			score += qu.Points
		}
	}
	// round half up: floor((200*score + total) / (2*total))
	pct := (200*score + total) / (2 * total)
	return Result{
		Score:        score,
		TotalPoints:  total,
		Percentage:   pct,
		Passed:       pct >= q.PassingScore,
		PassingScore: q.PassingScore,
	}, nil
}

// Redacted копия без правильных ответов, для студентов
func (q *Quiz) Redacted() *Quiz {
	cp := *q
	cp.Questions = make([]Question, len(q.Questions))
	for i, qu := range q.Questions {
		qu.CorrectAnswer = -1
		qu.Options = append([]string(nil), qu.Options...)
		cp.Questions[i] = qu
	}
	return &cp
}

func (q *Quiz) Clone() *Quiz {
	cp := *q
	cp.Questions = make([]Question, len(q.Questions))
	for i, qu := range q.Questions {
		qu.Options = append([]string(nil), qu.Options...)
		cp.Questions[i] = qu
	}
	return &cp
}

package service

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
	"commerce/internal/events"
)

func seedQuiz(t *testing.T, e *env) *domain.Quiz {
	t.Helper()
	ctx := context.Background()
	c, err := e.course.Create(ctx, instructor, domain.Course{Title: "Go", Description: "Basics", Category: "programming", IsPublished: true})
	require.NoError(t, err)
	opts := []string{"a", "b", "c"}
	q, err := e.quiz.Create(ctx, instructor, domain.Quiz{
		CourseID:     c.ID,
		Title:        "Final",
		PassingScore: 70,
		Questions: []domain.Question{
			{Text: "q1", Options: opts, CorrectAnswer: 0, Points: 1},
			{Text: "q2", Options: opts, CorrectAnswer: 1, Points: 1},
			{Text: "q3", Options: opts, CorrectAnswer: 1, Points: 2},
		},
	})
	require.NoError(t, err)
	return q
}

func TestQuiz_SubmitScoring(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	q := seedQuiz(t, e)

	res, err := e.quiz.Submit(ctx, alice, q.ID, []int{0, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Score)
	assert.Equal(t, 4, res.TotalPoints)
	assert.Equal(t, 100, res.Percentage)
	assert.True(t, res.Passed)
	require.NotNil(t, res.Certificate)
	assert.True(t, res.Issued)
	assert.Regexp(t, `^CERT-\d+-2-[0-9A-F]{12}$`, res.Certificate.Number)

	res, err = e.quiz.Submit(ctx, bob, q.ID, []int{1, 1, 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Score)
	assert.Equal(t, 75, res.Percentage)
	assert.True(t, res.Passed)

	res, err = e.quiz.Submit(ctx, domain.Identity{UserID: 9, Role: domain.RoleUser}, q.ID, []int{1, 0, 0})
	require.NoError(t, err)
	assert.Equal(t, 0, res.Score)
	assert.Equal(t, 0, res.Percentage)
	assert.False(t, res.Passed)
	assert.Nil(t, res.Certificate)

	none, err := e.quiz.ListMyCertificates(ctx, domain.Identity{UserID: 9, Role: domain.RoleUser})
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestQuiz_ResubmitReturnsExistingCertificate(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	q := seedQuiz(t, e)

	first, err := e.quiz.Submit(ctx, alice, q.ID, []int{1, 1, 1})
	require.NoError(t, err)
	require.True(t, first.Issued)

	second, err := e.quiz.Submit(ctx, alice, q.ID, []int{0, 1, 1})
	require.NoError(t, err)
	assert.False(t, second.Issued)
	assert.Equal(t, first.Certificate.ID, second.Certificate.ID)
	// the certificate keeps the score it was issued with
	assert.Equal(t, 75, second.Certificate.Percentage)
	assert.Equal(t, 100, second.Percentage)

	mine, err := e.quiz.ListMyCertificates(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	got, err := e.quiz.GetCertificate(ctx, first.Certificate.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Certificate.Number, got.Number)
	assert.Equal(t, 1, e.events.Count(events.CertificateIssued))
}

func TestQuiz_ConcurrentSubmitIssuesOne(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	q := seedQuiz(t, e)

	var wg sync.WaitGroup
	issued := make(chan bool, 30)
	for i := 0; i < 30; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := e.quiz.Submit(ctx, alice, q.ID, []int{0, 1, 1})
			if err != nil {
				t.Errorf("submit: %v", err)
				return
			}
			issued <- res.Issued
		}()
	}
	wg.Wait()
	close(issued)
	n := 0
	for v := range issued {
		if v {
			n++
		}
	}
	assert.Equal(t, 1, n)
}

func TestQuiz_DegenerateQuiz(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	c, err := e.course.Create(ctx, instructor, domain.Course{Title: "T", Description: "D", Category: "C"})
	require.NoError(t, err)
	q, err := e.quiz.Create(ctx, instructor, domain.Quiz{
		CourseID: c.ID, Title: "Zero", PassingScore: 0,
		Questions: []domain.Question{{Text: "q", Options: []string{"x", "y"}, Points: 0}},
	})
	require.NoError(t, err)

	_, err = e.quiz.Submit(ctx, alice, q.ID, []int{0})
	assert.ErrorIs(t, err, domain.ErrDegenerateQuiz)
}

func TestQuiz_AnswersHiddenFromStudents(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	q := seedQuiz(t, e)

	student, err := e.quiz.Get(ctx, alice, q.ID)
	require.NoError(t, err)
	for _, qu := range student.Questions {
		assert.Equal(t, -1, qu.CorrectAnswer)
	}
	author, err := e.quiz.Get(ctx, instructor, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, author.Questions[2].CorrectAnswer)
}

func TestQuiz_CreatePermissions(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	q := seedQuiz(t, e)
	draft := domain.Quiz{CourseID: q.CourseID, Title: "Another", PassingScore: 50,
		Questions: []domain.Question{{Text: "q", Options: []string{"x", "y"}, Points: 1}}}

	_, err := e.quiz.Create(ctx, alice, draft)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	other := domain.Identity{UserID: 40, Role: domain.RoleInstructor}
	_, err = e.quiz.Create(ctx, other, draft)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.quiz.Create(ctx, admin, draft)
	assert.NoError(t, err)

	draft.CourseID = 999
	_, err = e.quiz.Create(ctx, admin, draft)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"commerce/internal/domain"
)

func TestCourse_CreateAndList(t *testing.T) {
	ctx := context.Background()
	e := setup(t)

	_, err := e.course.Create(ctx, alice, domain.Course{Title: "T", Description: "D", Category: "C"})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = e.course.Create(ctx, instructor, domain.Course{Title: "T", Description: "D", Category: "C", Level: "expert"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	pub, err := e.course.Create(ctx, instructor, domain.Course{Title: "Public", Description: "D", Category: "C", IsPublished: true})
	require.NoError(t, err)
	assert.Equal(t, instructor.UserID, pub.InstructorID)
	assert.Equal(t, "beginner", pub.Level)
	_, err = e.course.Create(ctx, instructor, domain.Course{Title: "Draft", Description: "D", Category: "C"})
	require.NoError(t, err)

	list, err := e.course.ListPublished(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Public", list[0].Title)
}

func TestCourse_Enroll(t *testing.T) {
	ctx := context.Background()
	e := setup(t)
	free, err := e.course.Create(ctx, instructor, domain.Course{Title: "Free", Description: "D", Category: "C", IsPublished: true})
	require.NoError(t, err)
	paid, err := e.course.Create(ctx, instructor, domain.Course{Title: "Paid", Description: "D", Category: "C", Price: 1999, IsPublished: true})
	require.NoError(t, err)

	c, err := e.course.Enroll(ctx, alice, free.ID)
	require.NoError(t, err)
	assert.True(t, c.IsEnrolled(alice.UserID))

	_, err = e.course.Enroll(ctx, alice, free.ID)
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = e.course.Enroll(ctx, alice, paid.ID)
	assert.ErrorIs(t, err, domain.ErrPaymentIncomplete)

	_, err = e.course.Enroll(ctx, alice, 999)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCourse_Validate(t *testing.T) {
	c := Course{Title: "Go", Description: "d", Category: "programming"}
	require.NoError(t, c.Validate())
	assert.Equal(t, "beginner", c.Level)
	assert.NotNil(t, c.Videos)

	c.Videos = []Video{{Title: "Intro", URL: "https://cdn.example.com/1.mp4", Duration: 300}}
	assert.NoError(t, c.Validate())

	c.Videos = append(c.Videos, Video{Title: "No url"})
	assert.ErrorIs(t, c.Validate(), ErrValidation)

	c.Videos = []Video{{Title: "Neg", URL: "u", Duration: -1}}
	assert.ErrorIs(t, c.Validate(), ErrValidation)

	c = Course{Title: "Go", Description: "d", Category: "c", Level: "expert"}
	assert.ErrorIs(t, c.Validate(), ErrValidation)
}

func TestCourse_EnrollAndClone(t *testing.T) {
	c := &Course{Videos: []Video{{Title: "A", URL: "u"}}}
	assert.True(t, c.Enroll(7))
	assert.False(t, c.Enroll(7))

	cp := c.Clone()
	cp.Videos[0].Title = "B"
	cp.Enroll(8)
	assert.Equal(t, "A", c.Videos[0].Title)
	assert.Equal(t, []int64{7}, c.EnrolledStudents)
}

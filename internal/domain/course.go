package domain

import (
	"fmt"
	"slices"
	"strings"
	"time"
)

// Course курс LMS
type Course struct {
	ID               int64     `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	Category         string    `json:"category"`
	Level            string    `json:"level"`
	InstructorID     int64     `json:"instructorId"`
	Price            Money     `json:"price"`
	Thumbnail        string    `json:"thumbnail"`
	Videos           []Video   `json:"videos"`
	IsPublished      bool      `json:"isPublished"`
	EnrolledStudents []int64   `json:"enrolledStudents"`
	CreatedAt        time.Time `json:"createdAt"`
}

// Video урок курса; Duration в секундах
type Video struct {
	Title    string `json:"title"`
	URL      string `json:"url"`
	Duration int    `json:"duration"`
}

var courseLevels = map[string]bool{"beginner": true, "intermediate": true, "advanced": true}

func (c *Course) Validate() error {
	if strings.TrimSpace(c.Title) == "" || strings.TrimSpace(c.Description) == "" || c.Category == "" {
		return fmt.Errorf("%w: title, description and category are required", ErrValidation)
	}
	if c.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrValidation)
	}
	if c.Level == "" {
		c.Level = "beginner"
	}
	if !courseLevels[c.Level] {
		return fmt.Errorf("%w: unknown level %q", ErrValidation, c.Level)
	}
	for i, v := range c.Videos {
		if strings.TrimSpace(v.Title) == "" || strings.TrimSpace(v.URL) == "" {
			return fmt.Errorf("%w: video %d needs title and url", ErrValidation, i)
		}
		if v.Duration < 0 {
			return fmt.Errorf("%w: video %d has negative duration", ErrValidation, i)
		}
	}
	if c.Videos == nil {
		c.Videos = []Video{}
	}
	return nil
}

func (c *Course) IsEnrolled(userID int64) bool {
	for _, id := range c.EnrolledStudents {
		if id == userID {
			return true
		}
	}
	return false
}

// Enroll записывает студента; повторная запись ничего не меняет и возвращает false
func (c *Course) Enroll(userID int64) bool {
	if c.IsEnrolled(userID) {
		return false
	}
	c.EnrolledStudents = append(c.EnrolledStudents, userID)
	return true
}

func (c *Course) Clone() *Course {
	cp := *c
	cp.EnrolledStudents = append([]int64(nil), c.EnrolledStudents...)
	cp.Videos = slices.Clone(c.Videos)
	return &cp
}

package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"commerce/internal/domain"
)

type createCourseReq struct {
	Title       string       `json:"title" binding:"required"`
	Description string       `json:"description" binding:"required"`
	Category    string       `json:"category" binding:"required"`
	Level       string       `json:"level" binding:"omitempty,oneof=beginner intermediate advanced"`
	Price       domain.Money `json:"price" binding:"money" swaggertype:"number"`
	Thumbnail   string       `json:"thumbnail"`
	Videos      []videoReq   `json:"videos" binding:"omitempty,dive"`
	IsPublished *bool        `json:"isPublished"`
}

type videoReq struct {
	Title    string `json:"title" binding:"required"`
	URL      string `json:"url" binding:"required,url"`
	Duration int    `json:"duration" binding:"gte=0"`
}

// @Summary Published courses
// @Tags courses
// @Produce json
// @Success 200 {array} domain.Course
// @Router /courses [get]
func (s *Server) listCourses(c *gin.Context) {
	courses, err := s.svc.Courses.ListPublished(c.Request.Context())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, courses)
}

// @Summary Get course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} domain.Course
// @Failure 404 {object} errorResponse
// @Router /courses/{id} [get]
func (s *Server) getCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	course, err := s.svc.Courses.Get(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// @Summary Create course
// @Tags courses
// @Accept json
// @Produce json
// @Param input body createCourseReq true "Course"
// @Success 201 {object} domain.Course
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /courses [post]
func (s *Server) createCourse(c *gin.Context) {
	var req createCourseReq
	if !bindJSON(c, &req) {
		return
	}
	published := true
	if req.IsPublished != nil {
		published = *req.IsPublished
	}
	videos := make([]domain.Video, 0, len(req.Videos))
	for _, v := range req.Videos {
		videos = append(videos, domain.Video{Title: v.Title, URL: v.URL, Duration: v.Duration})
	}
	course, err := s.svc.Courses.Create(c.Request.Context(), caller(c), domain.Course{
		Title:       req.Title,
		Description: req.Description,
		Category:    req.Category,
		Level:       req.Level,
		Price:       req.Price,
		Thumbnail:   req.Thumbnail,
		Videos:      videos,
		IsPublished: published,
	})
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, course)
}

// @Summary Enroll in a free course
// @Tags courses
// @Produce json
// @Param id path int true "Course ID"
// @Success 200 {object} domain.Course
// @Failure 402 {object} errorResponse "paid course"
// @Failure 409 {object} errorResponse
// @Router /courses/{id}/enroll [post]
func (s *Server) enrollCourse(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	course, err := s.svc.Courses.Enroll(c.Request.Context(), caller(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

type questionReq struct {
	Question      string   `json:"question" binding:"required"`
	Options       []string `json:"options" binding:"required,min=2"`
	CorrectAnswer *int     `json:"correctAnswer" binding:"required,gte=0"`
	Points        *int     `json:"points" binding:"omitempty,gte=0"`
}

type createQuizReq struct {
	CourseID     int64         `json:"courseId" binding:"required,gt=0"`
	Title        string        `json:"title" binding:"required"`
	Questions    []questionReq `json:"questions" binding:"required,min=1,dive"`
	TimeLimit    *int          `json:"timeLimit" binding:"omitempty,gt=0"`
	PassingScore *int          `json:"passingScore" binding:"omitempty,min=0,max=100"`
}

func (r createQuizReq) quiz() domain.Quiz {
	q := domain.Quiz{
		CourseID:         r.CourseID,
		Title:            r.Title,
		Questions:        make([]domain.Question, 0, len(r.Questions)),
		TimeLimitMinutes: domain.DefaultTimeLimit,
		PassingScore:     domain.DefaultPassingScore,
	}
	if r.TimeLimit != nil {
		q.TimeLimitMinutes = *r.TimeLimit
	}
	if r.PassingScore != nil {
		q.PassingScore = *r.PassingScore
	}
	for _, in := range r.Questions {
		points := 1
		if in.Points != nil {
			points = *in.Points
		}
		q.Questions = append(q.Questions, domain.Question{
			Text:          in.Question,
			Options:       in.Options,
			CorrectAnswer: *in.CorrectAnswer,
			Points:        points,
		})
	}
	return q
}

type submitQuizReq struct {
	QuizID  int64 `json:"quizId" binding:"required,gt=0"`
	Answers []int `json:"answers" binding:"required"`
}

// @Summary Create quiz for a course
// @Tags quizzes
// @Accept json
// @Produce json
// @Param input body createQuizReq true "Quiz"
// @Success 201 {object} domain.Quiz
// @Failure 400 {object} errorResponse
// @Failure 403 {object} errorResponse
// @Router /quizzes [post]
func (s *Server) createQuiz(c *gin.Context) {
	var req createQuizReq
	if !bindJSON(c, &req) {
		return
	}
	q, err := s.svc.Quizzes.Create(c.Request.Context(), caller(c), req.quiz())
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, q)
}

// @Summary Get quiz
// @Description Correct answers are hidden unless the caller is an instructor or admin.
// @Tags quizzes
// @Produce json
// @Param id path int true "Quiz ID"
// @Success 200 {object} domain.Quiz
// @Failure 404 {object} errorResponse
// @Router /quizzes/{id} [get]
func (s *Server) getQuiz(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	q, err := s.svc.Quizzes.Get(c.Request.Context(), caller(c), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, q)
}

// @Summary Submit quiz answers
// @Description A passing attempt issues at most one certificate per user and quiz.
// @Tags quizzes
// @Accept json
// @Produce json
// @Param input body submitQuizReq true "Answers"
// @Success 200 {object} service.SubmitResult
// @Failure 404 {object} errorResponse
// @Failure 422 {object} errorResponse
// @Router /quizzes/submit [post]
func (s *Server) submitQuiz(c *gin.Context) {
	var req submitQuizReq
	if !bindJSON(c, &req) {
		return
	}
	res, err := s.svc.Quizzes.Submit(c.Request.Context(), caller(c), req.QuizID, req.Answers)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

// @Summary Caller's certificates
// @Tags certificates
// @Produce json
// @Success 200 {array} domain.Certificate
// @Router /certificates/mine [get]
func (s *Server) listMyCertificates(c *gin.Context) {
	certs, err := s.svc.Quizzes.ListMyCertificates(c.Request.Context(), caller(c))
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, certs)
}

// @Summary Get certificate
// @Tags certificates
// @Produce json
// @Param id path int true "Certificate ID"
// @Success 200 {object} domain.Certificate
// @Failure 404 {object} errorResponse
// @Router /certificates/{id} [get]
func (s *Server) getCertificate(c *gin.Context) {
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	cert, err := s.svc.Quizzes.GetCertificate(c.Request.Context(), id)
	if err != nil {
		s.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cert)
}

package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"

	"commerce/internal/domain"
)

// Заголовки, которые выставляет шлюз после проверки токена
const (
	HeaderUserID   = "X-User-ID"
	HeaderUserRole = "X-User-Role"
	HeaderUserName = "X-User-Name"
)

const identityKey = "identity"

// authenticate разбирает заголовки шлюза. Запрос без них анонимный, с некорректными получает 401.
func (s *Server) authenticate() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := strings.TrimSpace(c.GetHeader(HeaderUserID))
		if raw == "" {
			c.Next()
			return
		}
		uid, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || uid <= 0 {
			s.writeError(c, domain.ErrUnauthorized)
			return
		}
		role := domain.Role(strings.ToLower(strings.TrimSpace(c.GetHeader(HeaderUserRole))))
		if role == "" {
			role = domain.RoleUser
		}
		if !role.Valid() {
			s.writeError(c, domain.ErrUnauthorized)
			return
		}
		c.Set(identityKey, domain.Identity{UserID: uid, Name: c.GetHeader(HeaderUserName), Role: role})
		c.Next()
	}
}

// requireAuth пропускает только аутентифицированные запросы
func (s *Server) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := identity(c); !ok {
			s.writeError(c, domain.ErrUnauthorized)
			return
		}
		c.Next()
	}
}

func identity(c *gin.Context) (domain.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return domain.Identity{}, false
	}
	id, ok := v.(domain.Identity)
	return id, ok
}

// caller личность запроса; для анонимного нулевая Identity
func caller(c *gin.Context) domain.Identity {
	id, _ := identity(c)
	return id
}

// requestLogger одна строка на запрос
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		attrs := append(logAttrs(c),
			"status", c.Writer.Status(),
			"duration_ms", time.Since(start).Milliseconds(),
			"client_ip", c.ClientIP(),
		)
		if id, ok := identity(c); ok {
			attrs = append(attrs, "user_id", id.UserID)
		}
		if c.Writer.Status() >= http.StatusInternalServerError {
			s.log.Error("request", attrs...)
			return
		}
		s.log.Info("request", attrs...)
	}
}

var registerValidators sync.Once

// money: сумма в центах не может быть отрицательной
func setupValidation() {
	registerValidators.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			_ = v.RegisterValidation("money", func(fl validator.FieldLevel) bool {
				return fl.Field().Int() >= 0
			})
		}
	})
}

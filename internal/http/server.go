package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"commerce/internal/service"
)

// Services всё, что нужно обработчикам
type Services struct {
	Products *service.ProductService
	Carts    *service.CartService
	Orders   *service.OrderService
	Payments *service.PaymentService
	Courses  *service.CourseService
	Quizzes  *service.QuizService
}

// Options необязательные параметры сервера
type Options struct {
	Log *slog.Logger
	// Health проверяет зависимости для /healthz; nil значит всегда ok
	Health func(ctx context.Context) error
}

type Server struct {
	engine  *gin.Engine
	svc     Services
	log     *slog.Logger
	health  func(ctx context.Context) error
	metrics *serverMetrics
}

func NewServer(svc Services, opts Options) *Server {
	if opts.Log == nil {
		opts.Log = slog.Default()
	}
	setupValidation()

	r := gin.New()
	s := &Server{engine: r, svc: svc, log: opts.Log, health: opts.Health, metrics: newServerMetrics()}
	r.Use(gin.Recovery(), s.requestLogger(), s.metrics.middleware(), s.authenticate())
	s.registerRoutes()
	return s
}

func (s *Server) Engine() *gin.Engine { return s.engine }

func (s *Server) registerRoutes() {
	// Swagger UI
	s.engine.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	s.engine.GET("/healthz", s.healthz)
	s.engine.GET("/metrics", gin.WrapH(s.metrics.handler()))

	v1 := s.engine.Group("/api/v1")
	auth := s.requireAuth()
	{
		products := v1.Group("/products")
		products.GET("", s.listProducts)
		products.GET("/categories", s.listCategories)
		products.GET("/:id", s.getProduct)
		products.POST("", auth, s.createProduct)
		products.PUT("/:id", auth, s.updateProduct)
		products.DELETE("/:id", auth, s.deleteProduct)
		products.POST("/:id/reviews", auth, s.addReview)

		cart := v1.Group("/cart", auth)
		cart.GET("", s.getCart)
		cart.POST("/add", s.addToCart)
		cart.PUT("/:productId", s.setCartQuantity)
		cart.DELETE("/:productId", s.removeFromCart)
		cart.DELETE("", s.clearCart)

		orders := v1.Group("/orders", auth)
		orders.POST("", s.createOrder)
		orders.GET("/mine", s.listMyOrders)
		orders.GET("/:id", s.getOrder)
		orders.POST("/:id/payment-intent", s.createOrderIntent)
		orders.PUT("/:id/pay", s.payOrder)

		admin := v1.Group("/admin", auth)
		admin.GET("/dashboard", s.dashboard)
		admin.GET("/orders", s.listAllOrders)
		admin.PUT("/orders/:id/deliver", s.deliverOrder)

		courses := v1.Group("/courses")
		courses.GET("", s.listCourses)
		courses.GET("/:id", s.getCourse)
		courses.POST("", auth, s.createCourse)
		courses.POST("/:id/enroll", auth, s.enrollCourse)

		payments := v1.Group("/payments")
		payments.POST("/intent", auth, s.createCourseIntent)
		payments.POST("/confirm", auth, s.confirmCoursePayment)
		payments.POST("/webhook", s.paymentWebhook)

		quizzes := v1.Group("/quizzes")
		quizzes.GET("/:id", s.getQuiz)
		quizzes.POST("", auth, s.createQuiz)
		quizzes.POST("/submit", auth, s.submitQuiz)

		certs := v1.Group("/certificates")
		certs.GET("/mine", auth, s.listMyCertificates)
		certs.GET("/:id", s.getCertificate)
	}
}

// @Summary Liveness and dependency check
// @Tags system
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /healthz [get]
func (s *Server) healthz(c *gin.Context) {
	if s.health != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.health(ctx); err != nil {
			s.log.Warn("health check failed", "error", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// pathID разбирает положительный id из пути, иначе отвечает 400
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := parseID(c.Param(name))
	if err != nil || id <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}

func parseID(s string) (int64, error) {
	return strconv.ParseInt(s, 10, 64)
}

// bindJSON ошибки биндинга и валидатора отдаются как 400
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		badRequest(c, err.Error())
		return false
	}
	return true
}

package httpapi

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// serverMetrics регистрируются в собственном реестре сервера
type serverMetrics struct {
	registry  *prometheus.Registry
	requests  *prometheus.CounterVec
	latencyMS *prometheus.HistogramVec
}

func newServerMetrics() *serverMetrics {
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "commerce",
		Subsystem: "api",
		Name:      "http_requests_total",
		Help:      "Total number of HTTP requests.",
	}, []string{"handler", "status"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "commerce",
		Subsystem: "api",
		Name:      "http_request_duration_ms",
		Help:      "HTTP request latency in milliseconds.",
		Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
	}, []string{"handler"})

	reg := prometheus.NewRegistry()
	reg.MustRegister(requests, latency,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return &serverMetrics{registry: reg, requests: requests, latencyMS: latency}
}

func (m *serverMetrics) middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		handler := c.FullPath()
		if handler == "" {
			handler = "unmatched"
		}
		m.requests.WithLabelValues(handler, strconv.Itoa(c.Writer.Status())).Inc()
		m.latencyMS.WithLabelValues(handler).Observe(float64(time.Since(start).Microseconds()) / 1000)
	}
}

func (m *serverMetrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

package middleware

import (
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	requestDuration *prometheus.HistogramVec
	requestTotal    *prometheus.CounterVec
	rateLimited     *prometheus.CounterVec
}

// NewMetrics registers the HTTP collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		requestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "registry_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route and status.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		requestTotal: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_http_requests_total",
			Help: "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		rateLimited: f.NewCounterVec(prometheus.CounterOpts{
			Name: "registry_rate_limit_exceeded_total",
			Help: "Requests rejected by the per-IP rate limiter.",
		}, []string{"method"}),
	}
}

// Middleware records one observation per request, labelled by the route
// template rather than the raw path.
func (m *Metrics) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			err := next(c)

			status := c.Response().Status
			if err != nil {
				status = statusOf(err)
			}
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			labels := []string{c.Request().Method, route, strconv.Itoa(status)}

			m.requestDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
			m.requestTotal.WithLabelValues(labels...).Inc()
			return err
		}
	}
}

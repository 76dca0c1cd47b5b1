// Package server assembles the echo instance: codec, error handler, the
// middleware chain and the operational endpoints. Domain handlers register
// their routes on the group returned by API.
package server

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/ehr/registry/internal/platform/db"
	"github.com/ehr/registry/internal/platform/middleware"
)

const Version = "0.1.0"

type Options struct {
	// Diagnostics adds the error cause and a stack trace to error bodies.
	Diagnostics    bool
	CORSOrigins    []string
	RateLimit      middleware.RateLimitConfig
	BodyLimit      string
	RequestTimeout time.Duration
	// DB backs /health/db. The route is omitted when nil.
	DB db.Pinger
	// Registry receives the HTTP collectors and is served on /metrics.
	// A fresh registry is used when nil.
	Registry *prometheus.Registry
}

type Server struct {
	Echo *echo.Echo
	api  *echo.Group
}

func New(logger zerolog.Logger, opts Options) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.JSONSerializer = JSONSerializer{}
	e.HTTPErrorHandler = middleware.ErrorHandler(logger, opts.Diagnostics)

	reg := opts.Registry
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	metrics := middleware.NewMetrics(reg)

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(metrics.Middleware())
	e.Use(middleware.SecurityHeaders())
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: opts.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut},
		AllowHeaders: []string{echo.HeaderContentType, middleware.RequestIDHeader},
	}))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": Version,
		})
	})
	if opts.DB != nil {
		e.GET("/health/db", db.HealthHandler(opts.DB))
	}
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{})))

	api := e.Group("/api",
		middleware.RateLimit(opts.RateLimit, metrics),
		middleware.BodyLimit(opts.BodyLimit),
		middleware.RequestTimeout(opts.RequestTimeout),
	)

	return &Server{Echo: e, api: api}
}

// API is the group every domain handler registers on.
func (s *Server) API() *echo.Group {
	return s.api
}

package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/httprate"
	"github.com/labstack/echo/v4"
)

type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// DefaultRateLimitConfig allows 300 requests per client IP every 15 minutes.
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		Requests: 300,
		Window:   15 * time.Minute,
	}
}

const rateLimitBody = `{"error":"Too many requests, please try again later."}`

// RateLimit applies a sliding-window per-IP limit. A non-positive Requests
// disables limiting.
func RateLimit(cfg RateLimitConfig, metrics *Metrics) echo.MiddlewareFunc {
	if cfg.Requests <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	limiter := httprate.Limit(cfg.Requests, cfg.Window,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			if metrics != nil {
				metrics.rateLimited.WithLabelValues(r.Method).Inc()
			}
			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Retry-After", strconv.Itoa(int(cfg.Window.Seconds())))
			w.WriteHeader(http.StatusTooManyRequests)
			w.Write([]byte(rateLimitBody))
		}),
	)

	return echo.WrapMiddleware(limiter)
}

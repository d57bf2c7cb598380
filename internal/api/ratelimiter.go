package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"golang.org/x/time/rate"
)

type rateLimiter interface {
	Allow() bool
}

type limiterAdapter struct {
	limiter *rate.Limiter
}

func newTokenBucketLimiter(ratePerSecond float64, burst int) rateLimiter {
	if ratePerSecond <= 0 {
		ratePerSecond = 1
	}
	if burst <= 0 {
		burst = 1
	}

	return &limiterAdapter{
		limiter: rate.NewLimiter(rate.Limit(ratePerSecond), burst),
	}
}

func (l *limiterAdapter) Allow() bool {
	if l == nil || l.limiter == nil {
		return true
	}
	return l.limiter.Allow()
}

func rateLimitMiddleware(limiter rateLimiter) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limiter == nil {
			return next
		}
		return func(c echo.Context) error {
			if limiter.Allow() {
				return next(c)
			}
			return c.JSON(http.StatusTooManyRequests, ErrorResponse{
				Error:   "too_many_requests",
				Message: "rate limit exceeded, please retry shortly",
			})
		}
	}
}

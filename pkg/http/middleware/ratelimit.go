package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// Limiter decides whether a request identified by key may proceed.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests under prefix that exceed the per-client budget.
// Clients are keyed by their real IP. Rejected requests get Retry-After and
// are answered by reject, or a bare 429 when reject is nil.
func RateLimit(limiter Limiter, prefix string, reject echo.HandlerFunc) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if limiter == nil || !strings.HasPrefix(c.Request().URL.Path, prefix) {
				return next(c)
			}
			if limiter.Allow(c.RealIP()) {
				return next(c)
			}
			c.Response().Header().Set("Retry-After", "1")
			if reject == nil {
				return echo.NewHTTPError(http.StatusTooManyRequests)
			}
			return reject(c)
		}
	}
}

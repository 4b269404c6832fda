package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
)

// Limiter decides whether a keyed request may proceed.
type Limiter interface {
	Allow(key string) bool
}

// RateLimit rejects requests over the per-IP budget with 429.
func RateLimit(l Limiter, log zerolog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			key := c.RealIP()
			if !l.Allow(key) {
				log.Warn().Str("ip", key).Str("path", c.Path()).Msg("rate limit exceeded")
				return echo.NewHTTPError(http.StatusTooManyRequests, "too many requests, please try again later")
			}
			return next(c)
		}
	}
}

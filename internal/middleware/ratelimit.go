package middleware

import (
	"net/http"
	"strconv"
	"time"

	"furnistore/internal/caching"
	"furnistore/internal/common"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// RateLimit caps requests per client IP in a fixed window counted in redis.
// When the counter cannot be read the request is let through.
func RateLimit(cache caching.CacheService, limit int, window time.Duration, logger *zap.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		if limit <= 0 {
			return next
		}
		return func(c echo.Context) error {
			limited, err := cache.IsRateLimited(c.Request().Context(), "ip:"+c.RealIP(), limit, window)
			if err != nil {
				logger.Warn("rate limit check failed", zap.Error(err))
				return next(c)
			}
			if limited {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return c.JSON(http.StatusTooManyRequests,
					common.CreateErrorResponse("RATE_LIMITED", "Too many requests", nil))
			}
			return next(c)
		}
	}
}

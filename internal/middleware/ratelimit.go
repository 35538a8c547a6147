package middleware

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/openkiosk/container-tracker/internal/config"
)

// NewRateLimiter limits requests per client IP with a fixed window counter
// in Redis (INCR + EXPIRE on first hit). Exceeding the limit yields 429 with
// a Retry-After header. Redis errors fail open: a broken limiter must not
// take the dashboard down with it.
func NewRateLimiter(cfg config.RateLimitConfig, rdb *redis.Client) echo.MiddlewareFunc {
	if !cfg.Enabled || rdb == nil || cfg.Max <= 0 {
		return passthrough
	}
	window := cfg.Window
	if window <= 0 {
		window = time.Minute
	}

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			slot := time.Now().Unix() / int64(window.Seconds())
			key := fmt.Sprintf("%s:%s:%d", cfg.Prefix, c.RealIP(), slot)

			n, err := rdb.Incr(ctx, key).Result()
			if err != nil {
				return next(c)
			}
			if n == 1 {
				_ = rdb.Expire(ctx, key, window).Err()
			}
			if n > int64(cfg.Max) {
				c.Response().Header().Set("Retry-After", strconv.Itoa(int(window.Seconds())))
				return c.JSON(http.StatusTooManyRequests, echo.Map{"error": "rate limit exceeded"})
			}
			return next(c)
		}
	}
}

package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/openkiosk/container-tracker/internal/config"
)

func TestRateLimiterBlocksOverLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	cfg := config.RateLimitConfig{Enabled: true, Max: 2, Window: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.Use(NewRateLimiter(cfg, rdb))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.NotEmpty(t, rec.Header().Get("Retry-After"))
}

func TestRateLimiterPassthroughWithoutRedis(t *testing.T) {
	cfg := config.RateLimitConfig{Enabled: true, Max: 1, Window: time.Minute, Prefix: "rl"}
	e := echo.New()
	e.Use(NewRateLimiter(cfg, nil))
	e.GET("/", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusOK, rec.Code)
	}
}

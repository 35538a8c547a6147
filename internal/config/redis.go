package config

// Redis backs the dashboard's response cache and per-client rate limiting.
// Neither is load-bearing for custody tracking, so a missing or unreachable
// Redis must never keep the tracker from starting: the constructor returns
// nil on failure and the middleware degrades to passthrough.

import (
	"context"
	"os"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// NewRedisClient instantiates a Redis client from the environment:
//
//	REDIS_ADDR     host:port (default "localhost:6379")
//	REDIS_PASSWORD optional password
//	REDIS_DB       database number (default 0)
//
// The server is pinged with a short timeout; nil is returned when it does not
// answer, and callers disable caching and rate limiting.
func NewRedisClient() *redis.Client {
	addr := getenv("REDIS_ADDR", "localhost:6379")
	dbNum := 0
	if s := os.Getenv("REDIS_DB"); s != "" {
		if n, err := strconv.Atoi(s); err == nil {
			dbNum = n
		}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       dbNum,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil
	}
	return client
}

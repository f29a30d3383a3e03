package utils

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/RonnelR/italics-api/config"
)

var redisClient *redis.Client

// InitRedis connects the shared cache client. Callers that never initialize it
// (tests, cache-less deployments) get nil from GetRedis and cache helpers
// become no-ops.
func InitRedis(cfg config.AppConfig) {
	redisClient = redis.NewClient(&redis.Options{
		Addr:         net.JoinHostPort(cfg.RedisHost, strconv.Itoa(cfg.RedisPort)),
		Password:     cfg.RedisPassword,
		DB:           cfg.RedisDB,
		DialTimeout:  3 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := redisClient.Ping(ctx).Err(); err != nil && Sugar != nil {
		Sugar.Warnf("redis unreachable, caching disabled until it recovers: %v", err)
	}
}

// GetRedis returns the shared client, or nil when caching is not configured.
func GetRedis() *redis.Client {
	return redisClient
}

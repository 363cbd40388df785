package config

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
	redisMu     sync.RWMutex
)

// RedisEnabled reports whether REDIS_ENABLED asks for a Redis connection.
func RedisEnabled() bool {
	v, err := strconv.ParseBool(os.Getenv("REDIS_ENABLED"))
	return err == nil && v
}

// ConnectRedis initializes a singleton Redis client based on environment variables.
// Returns nil without error when Redis is disabled; sessions and rate limits then fall
// back to the database or are skipped.
func ConnectRedis() (*redis.Client, error) {
	if !RedisEnabled() || os.Getenv("APPENV") == "test" {
		return nil, nil
	}

	var err error
	redisOnce.Do(func() {
		addr := os.Getenv("REDIS_ADDR")
		if addr == "" {
			addr = "localhost:6379"
		}
		pass := os.Getenv("REDIS_PASSWORD")
		dbNum := 0
		if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
			if v, e := strconv.Atoi(dbStr); e == nil {
				dbNum = v
			}
		}

		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: pass,
			DB:       dbNum,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err = rdb.Ping(ctx).Err(); err != nil {
			err = fmt.Errorf("redis ping failed: %w", err)
			return
		}

		redisMu.Lock()
		redisClient = rdb
		redisMu.Unlock()
		log.Printf("Connected to Redis at %s", addr)
	})
	return GetRedisClient(), err
}

// GetRedisClient returns the initialized Redis client (may be nil if ConnectRedis failed or not called).
func GetRedisClient() *redis.Client {
	redisMu.RLock()
	defer redisMu.RUnlock()
	return redisClient
}

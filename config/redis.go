package config

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

var (
	redisClient *redis.Client
	redisOnce   sync.Once
)

// RedisOptions builds client options from REDIS_ADDR, REDIS_PASS and REDIS_DB.
func RedisOptions() *redis.Options {
	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	dbNum := 0
	if dbStr := os.Getenv("REDIS_DB"); dbStr != "" {
		if v, e := strconv.Atoi(dbStr); e == nil {
			dbNum = v
		}
	}
	return &redis.Options{
		Addr:         addr,
		Password:     os.Getenv("REDIS_PASS"),
		DB:           dbNum,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  time.Second,
		WriteTimeout: time.Second,
	}
}

func redisDisabled() bool {
	if os.Getenv("APPENV") == "test" {
		return true
	}
	v := strings.TrimSpace(os.Getenv("REDIS_ENABLED"))
	if v == "" {
		return false
	}
	enabled, err := strconv.ParseBool(v)
	return err == nil && !enabled
}

// ConnectRedis initializes a singleton Redis client based on environment variables.
// Returns the client (or nil) and an error if connection/ping failed.
func ConnectRedis() (*redis.Client, error) {
	var err error
	redisOnce.Do(func() {
		if redisDisabled() {
			return
		}

		opts := RedisOptions()
		rdb := redis.NewClient(opts)

		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err = rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()
			redisClient = nil
			err = fmt.Errorf("redis ping failed: %w", err)
			return
		}

		redisClient = rdb
	})
	return redisClient, err
}

// GetRedisClient returns the initialized Redis client (may be nil if ConnectRedis failed or not called).
func GetRedisClient() *redis.Client {
	return redisClient
}

// SetRedisClientForTesting allows tests to inject a mock Redis client.
// This should only be used in tests.
func SetRedisClientForTesting(client *redis.Client) {
	redisClient = client
}

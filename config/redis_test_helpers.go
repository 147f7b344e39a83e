package config

import (
	"sync"
)

// ResetRedisClientForTest resets the Redis client singleton for testing purposes.
// This function is only available for testing and should not be used in production code.
func ResetRedisClientForTest() {
	redisClient = nil
	redisOnce = sync.Once{}
}

package config

import (
	"sync"

	"github.com/redis/go-redis/v9"
)

// SetRedisClientForTest swaps in a mock client. Test-only.
func SetRedisClientForTest(client *redis.Client) {
	redisClient = client
}

// ResetRedisClientForTest clears the singleton so the next ConnectRedis
// call dials again. Test-only.
func ResetRedisClientForTest() {
	redisClient = nil
	redisOnce = sync.Once{}
}

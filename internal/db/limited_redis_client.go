package db

import (
	"context"

	"github.com/redis/go-redis/v9"
)

// LimitedRedisClient covers the commands the token repository issues. Both
// redis.Client and redis.FailoverClient satisfy it, and so does MockRedisClient.
type LimitedRedisClient interface {
	// HSET writes the fields of one token
	HSet(ctx context.Context, key string, values ...any) *redis.IntCmd
	// HGETALL reads them back, a missing key is an empty map
	HGetAll(ctx context.Context, key string) *redis.MapStringStringCmd
	// DEL drops both tokens at once on logout
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

package ratelimit

import (
	"time"

	redis "github.com/redis/go-redis/v9"
	limiter "github.com/ulule/limiter/v3"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	limiterredis "github.com/ulule/limiter/v3/drivers/store/redis"
)

// DefaultPrefix namespaces limiter keys in a shared store.
const DefaultPrefix = "payments:ratelimit"

// NewStore returns a Redis-backed store when rdb is set and an in-process
// store otherwise. Counters in the memory store are per instance.
func NewStore(rdb *redis.Client, prefix string) (limiter.Store, error) {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if rdb == nil {
		return memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          prefix,
			CleanUpInterval: time.Minute,
		}), nil
	}
	return limiterredis.NewStoreWithOptions(rdb, limiter.StoreOptions{Prefix: prefix})
}

// New builds a fixed-window limiter allowing max requests per window.
func New(store limiter.Store, window time.Duration, max int) *limiter.Limiter {
	return limiter.New(store, limiter.Rate{Period: window, Limit: int64(max)})
}

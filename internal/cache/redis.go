package cache

import (
	"context"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

// RedisCache is a Provider backed by Redis, for deployments where multiple
// instances should share ESP classification results. Writes are best-effort;
// a failed Set only costs a cache miss later.
type RedisCache struct {
	client *redis.Client
	prefix string
}

func NewRedisCache(client *redis.Client, prefix string) *RedisCache {
	return &RedisCache{client: client, prefix: prefix}
}

func (r *RedisCache) key(key string) string {
	return r.prefix + ":" + key
}

func (r *RedisCache) Get(key string) ([]byte, bool) {
	val, err := r.client.Get(context.Background(), r.key(key)).Bytes()
	if err != nil {
		return nil, false
	}
	return val, true
}

func (r *RedisCache) Set(key string, value []byte, ttl time.Duration) {
	if err := r.client.Set(context.Background(), r.key(key), value, ttl).Err(); err != nil {
		log.Warn("cache: redis set failed", "key", key, "error", err)
	}
}

func (r *RedisCache) Invalidate(key string) {
	if err := r.client.Del(context.Background(), r.key(key)).Err(); err != nil {
		log.Warn("cache: redis delete failed", "key", key, "error", err)
	}
}

func (r *RedisCache) Flush() {
	ctx := context.Background()
	iter := r.client.Scan(ctx, 0, r.prefix+":*", 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			log.Warn("cache: redis flush delete failed", "key", iter.Val(), "error", err)
		}
	}
	if err := iter.Err(); err != nil {
		log.Warn("cache: redis flush scan failed", "error", err)
	}
}

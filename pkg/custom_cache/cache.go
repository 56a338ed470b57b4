package custom_cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/allegro/bigcache"
	"github.com/eko/gocache/lib/v4/cache"
	"github.com/eko/gocache/lib/v4/store"
	bigcache_store "github.com/eko/gocache/store/bigcache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ResponseCache keeps recently downloaded remote responses. It is backed by redis
// when an address is configured and by an in-process bigcache otherwise.
type ResponseCache struct {
	cache *cache.Cache[any]
	ttl   time.Duration
}

func NewResponseCache(redisAddress string, ttl time.Duration) (*ResponseCache, error) {
	if redisAddress != "" {
		log.Printf("[INFO] using redis response cache at %s", redisAddress)
		redisStore := redis_store.NewRedis(redis.NewClient(&redis.Options{
			Addr: redisAddress,
		}), store.WithExpiration(ttl))
		return &ResponseCache{cache: cache.New[any](redisStore), ttl: ttl}, nil
	}

	bigcacheClient, err := bigcache.NewBigCache(bigcache.DefaultConfig(ttl))
	if err != nil {
		return nil, errors.Wrap(err, "failed to initialize the in-memory response cache")
	}
	bigcacheStore := bigcache_store.NewBigcache(bigcacheClient)

	log.Printf("[INFO] using in-memory response cache")
	return &ResponseCache{cache: cache.New[any](bigcacheStore), ttl: ttl}, nil
}

// Get returns an error if the key is missing, expired or the backend is unreachable.
func (c *ResponseCache) Get(ctx context.Context, key string) (string, error) {
	value, err := c.cache.Get(ctx, key)
	if err != nil {
		return "", err
	}

	switch v := value.(type) {
	case string:
		return v, nil
	case []byte:
		return string(v), nil
	default:
		return "", fmt.Errorf("unexpected cached value of type %T", value)
	}
}

func (c *ResponseCache) Set(ctx context.Context, key string, value string) error {
	return c.cache.Set(ctx, key, []byte(value), store.WithExpiration(c.ttl))
}

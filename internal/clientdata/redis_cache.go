package clientdata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	"github.com/holdfast/holdfast/internal/domain"
	"github.com/vmihailenco/msgpack/v5"
)

// DefaultRedisPrefix namespaces every key written by RedisCache
const DefaultRedisPrefix = "holdfast:"

const scanBatch = 100

// RedisCache is a price cache backed by Redis. Expiry is native, so
// DeleteExpired has nothing to do.
type RedisCache struct {
	client redis.Cmdable
	prefix string
	now    func() time.Time
}

// NewRedisCache creates a Redis price cache
func NewRedisCache(client redis.Cmdable, prefix string) *RedisCache {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &RedisCache{client: client, prefix: prefix, now: time.Now}
}

func (c *RedisCache) quoteKey(symbol string) string {
	return c.prefix + "quote:" + quoteKey(symbol)
}

func (c *RedisCache) historyKey(symbol string, period domain.Period) string {
	return c.prefix + "bars:" + historyKey(symbol, period)
}

func (c *RedisCache) load(ctx context.Context, key string, out interface{}) (bool, error) {
	blob, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get %s from redis: %w", key, err)
	}
	if err := msgpack.Unmarshal(blob, out); err != nil {
		return false, fmt.Errorf("failed to unmarshal %s: %w", key, err)
	}
	return true, nil
}

func (c *RedisCache) store(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	blob, err := msgpack.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to marshal data: %w", err)
	}
	if err := c.client.Set(ctx, key, blob, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set %s in redis: %w", key, err)
	}
	return nil
}

// Get returns a cached price
func (c *RedisCache) Get(ctx context.Context, symbol string) (float64, time.Time, bool, error) {
	var e priceEntry
	ok, err := c.load(ctx, c.quoteKey(symbol), &e)
	if err != nil || !ok {
		return 0, time.Time{}, false, err
	}
	return e.Price, e.FetchedAt, true, nil
}

// Set caches a price for ttl
func (c *RedisCache) Set(ctx context.Context, symbol string, price float64, ttl time.Duration) error {
	return c.store(ctx, c.quoteKey(symbol), priceEntry{Price: price, FetchedAt: c.now().UTC()}, ttl)
}

// GetBars returns cached bars
func (c *RedisCache) GetBars(ctx context.Context, symbol string, period domain.Period) ([]domain.Bar, bool, error) {
	var bars []domain.Bar
	ok, err := c.load(ctx, c.historyKey(symbol, period), &bars)
	if err != nil || !ok {
		return nil, false, err
	}
	return bars, true, nil
}

// SetBars caches bars for ttl
func (c *RedisCache) SetBars(ctx context.Context, symbol string, period domain.Period, bars []domain.Bar, ttl time.Duration) error {
	return c.store(ctx, c.historyKey(symbol, period), bars, ttl)
}

// Clear deletes every key under the prefix
func (c *RedisCache) Clear(ctx context.Context) (int64, error) {
	var (
		cursor  uint64
		deleted int64
	)
	for {
		keys, next, err := c.client.Scan(ctx, cursor, c.prefix+"*", scanBatch).Result()
		if err != nil {
			return deleted, fmt.Errorf("failed to scan redis keys: %w", err)
		}
		if len(keys) > 0 {
			n, err := c.client.Del(ctx, keys...).Result()
			if err != nil {
				return deleted, fmt.Errorf("failed to delete redis keys: %w", err)
			}
			deleted += n
		}
		if next == 0 {
			return deleted, nil
		}
		cursor = next
	}
}

// DeleteExpired is a no-op; Redis evicts expired keys itself
func (c *RedisCache) DeleteExpired(ctx context.Context) (int64, error) {
	return 0, nil
}

var (
	_ domain.PriceCache = (*RedisCache)(nil)
	_ domain.BarCache   = (*RedisCache)(nil)
)

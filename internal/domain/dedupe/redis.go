package dedupe

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// replaceScript sets KEYS[1] to ARGV[2] when it is unset or still holds
// ARGV[1]. ARGV[3] is the TTL in milliseconds; 0 keeps the key forever.
var replaceScript = redis.NewScript(`
local v = redis.call('GET', KEYS[1])
if v ~= false and v ~= ARGV[1] then
  return 0
end
if tonumber(ARGV[3]) > 0 then
  redis.call('SET', KEYS[1], ARGV[2], 'PX', ARGV[3])
else
  redis.call('SET', KEYS[1], ARGV[2])
end
return 1
`)

// RedisDeduper is a Deduper shared between service instances.
type RedisDeduper struct {
	client redis.UniversalClient
	ttl    time.Duration
	prefix string
}

// NewRedisDeduper creates a deduper backed by client.
func NewRedisDeduper(client redis.UniversalClient, opts ...RedisOption) *RedisDeduper {
	d := &RedisDeduper{
		client: client,
		ttl:    defaultRedisTTL,
		prefix: defaultKeyPrefix,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Claim implements Deduper.
func (d *RedisDeduper) Claim(ctx context.Context, key, value string) (string, bool, error) {
	k := d.prefix + key
	ok, err := d.client.SetNX(ctx, k, value, d.ttl).Result()
	if err != nil {
		return "", false, fmt.Errorf("redis setnx %s: %w", k, err)
	}
	if ok {
		return value, false, nil
	}

	existing, err := d.client.Get(ctx, k).Result()
	if errors.Is(err, redis.Nil) {
		// expired between SETNX and GET; claim again
		return d.Claim(ctx, key, value)
	}
	if err != nil {
		return "", false, fmt.Errorf("redis get %s: %w", k, err)
	}
	return existing, true, nil
}

// Release implements Deduper.
func (d *RedisDeduper) Release(ctx context.Context, key string) error {
	if err := d.client.Del(ctx, d.prefix+key).Err(); err != nil {
		return fmt.Errorf("redis del %s: %w", d.prefix+key, err)
	}
	return nil
}

// Replace implements Deduper.
func (d *RedisDeduper) Replace(ctx context.Context, key, old, value string) (bool, error) {
	k := d.prefix + key
	n, err := replaceScript.Run(ctx, d.client, []string{k}, old, value, d.ttl.Milliseconds()).Int()
	if err != nil {
		return false, fmt.Errorf("redis replace %s: %w", k, err)
	}
	return n == 1, nil
}

// Ping checks connectivity.
func (d *RedisDeduper) Ping(ctx context.Context) error {
	return d.client.Ping(ctx).Err()
}

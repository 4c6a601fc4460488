package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

var cooldownScript = redis.NewScript(`
local current = redis.call("INCR", KEYS[1])
if current == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
local ttl = redis.call("PTTL", KEYS[1])
if ttl < 0 then
  ttl = tonumber(ARGV[1])
end
return {current, ttl}
`)

// AdCooldown is a fixed-window limiter for ad sessions, shared across
// instances via Redis. A nil client disables it, in which case the pure
// per-account policy still applies.
type AdCooldown struct {
	client *redis.Client
	window time.Duration
}

func NewAdCooldown(client *redis.Client, window time.Duration) *AdCooldown {
	return &AdCooldown{client: client, window: window}
}

// Allow reports whether the account may start another ad session now,
// and if not, how long until it can.
func (c *AdCooldown) Allow(ctx context.Context, accountID int64) (bool, time.Duration, error) {
	if c == nil || c.client == nil || c.window <= 0 {
		return true, 0, nil
	}

	key := fmt.Sprintf("cashyads:ad_cooldown:%d", accountID)
	raw, err := cooldownScript.Run(ctx, c.client, []string{key}, c.window.Milliseconds()).Result()
	if err != nil {
		return false, 0, err
	}

	values, ok := raw.([]interface{})
	if !ok || len(values) != 2 {
		return false, 0, fmt.Errorf("unexpected limiter response shape: %T", raw)
	}
	count, ok := values[0].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected limiter count type: %T", values[0])
	}
	ttlMs, ok := values[1].(int64)
	if !ok {
		return false, 0, fmt.Errorf("unexpected limiter ttl type: %T", values[1])
	}

	if count > 1 {
		return false, time.Duration(ttlMs) * time.Millisecond, nil
	}
	return true, 0, nil
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// guardBumpScript increments one failure counter and returns the cooldown in
// milliseconds. State lives in a hash so Check can read it without Lua.
var guardBumpScript = redis.NewScript(`
local now_ms = tonumber(ARGV[1])
local base_ms = tonumber(ARGV[2])
local multiplier = tonumber(ARGV[3])
local max_ms = tonumber(ARGV[4])
local reset_ms = tonumber(ARGV[5])
local free = tonumber(ARGV[6])

local fails = tonumber(redis.call("HGET", KEYS[1], "fails") or "0")
local last_ms = tonumber(redis.call("HGET", KEYS[1], "last_ms") or "0")
if last_ms == 0 or (now_ms - last_ms) > reset_ms then
  fails = 0
end
fails = fails + 1

local delay = 0
if fails > free then
  delay = math.floor(base_ms * (multiplier ^ (fails - free - 1)))
  if delay > max_ms then
    delay = max_ms
  end
end

redis.call("HSET", KEYS[1], "fails", fails, "last_ms", now_ms, "until_ms", now_ms + delay)
redis.call("PEXPIRE", KEYS[1], reset_ms + delay)
return delay
`)

type RedisCredentialGuard struct {
	client redis.UniversalClient
	prefix string
	policy GuardPolicy
	now    func() time.Time
}

func NewRedisCredentialGuard(client redis.UniversalClient, prefix string, policy GuardPolicy) *RedisCredentialGuard {
	if prefix == "" {
		prefix = "credential_guard"
	}
	return &RedisCredentialGuard{client: client, prefix: prefix, policy: normalizeGuardPolicy(policy), now: time.Now}
}

func (g *RedisCredentialGuard) Check(ctx context.Context, scope GuardScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UnixMilli()
	var wait time.Duration
	for _, key := range guardKeys(scope, identity, ip) {
		untilMS, err := g.client.HGet(ctx, g.prefix+":"+key, "until_ms").Int64()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			return 0, fmt.Errorf("read guard state: %w", err)
		}
		if untilMS > nowMS {
			wait = max(wait, time.Duration(untilMS-nowMS)*time.Millisecond)
		}
	}
	return wait, nil
}

func (g *RedisCredentialGuard) RegisterFailure(ctx context.Context, scope GuardScope, identity, ip string) (time.Duration, error) {
	nowMS := g.now().UnixMilli()
	var wait time.Duration
	for _, key := range guardKeys(scope, identity, ip) {
		delayMS, err := guardBumpScript.Run(ctx, g.client, []string{g.prefix + ":" + key},
			nowMS,
			g.policy.BaseDelay.Milliseconds(),
			g.policy.Multiplier,
			g.policy.MaxDelay.Milliseconds(),
			g.policy.ResetWindow.Milliseconds(),
			g.policy.FreeAttempts,
		).Int64()
		if err != nil {
			return 0, fmt.Errorf("bump guard state: %w", err)
		}
		wait = max(wait, time.Duration(delayMS)*time.Millisecond)
	}
	return wait, nil
}

func (g *RedisCredentialGuard) Reset(ctx context.Context, scope GuardScope, identity, ip string) error {
	keys := guardKeys(scope, identity, ip)
	for i := range keys {
		keys[i] = g.prefix + ":" + keys[i]
	}
	return g.client.Del(ctx, keys...).Err()
}

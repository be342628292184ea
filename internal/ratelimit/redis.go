package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// windowScript counts a hit and gives the key a TTL in one step. A key found
// without a TTL gets one too, so no identifier stays blocked forever.
var windowScript = redis.NewScript(`
local n = redis.call("INCR", KEYS[1])
if redis.call("PTTL", KEYS[1]) < 0 then
	redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return n
`)

// Redis shares windows between processes. The first hit in a window creates
// the key with a TTL equal to the window; the key expiring resets the count.
type Redis struct {
	client *redis.Client
	prefix string
	limit  int
	window time.Duration
}

func NewRedis(client *redis.Client, prefix string, limit int, window time.Duration) *Redis {
	return &Redis{client: client, prefix: prefix, limit: limit, window: window}
}

func (r *Redis) Allow(ctx context.Context, key string) (bool, error) {
	redisKey := fmt.Sprintf("ratelimit:%s:%s", r.prefix, key)

	count, err := windowScript.Run(ctx, r.client, []string{redisKey}, r.window.Milliseconds()).Int64()
	if err != nil {
		return false, fmt.Errorf("rate limiter %s: %w", r.prefix, err)
	}
	return count <= int64(r.limit), nil
}

package ruleeng

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// RedisClauseCache is the optional distributed backend for the §5
// clause_cache, for deployments that run many analyzer processes
// against a shared, immutable rule file and want to share clause
// results across them instead of recomputing per-process. The default
// remains memClauseCache; this exists because the rest of the
// evaluator and analyzer only depend on the ClauseCache interface, so
// swapping backends is a one-line change at construction.
//
// Grounded on the Lua-script pattern in
// core/pkg/kernel/limiter_redis.go, adapted from token-bucket
// rate-limiting to clearing every key under one handle; Get and Set
// are plain GET/SET commands.
type RedisClauseCache struct {
	client *redis.Client
	prefix string
	ctx    context.Context
}

// NewRedisClauseCache wraps an existing redis client. prefix namespaces
// keys so multiple engines can share one Redis instance.
func NewRedisClauseCache(client *redis.Client, prefix string) *RedisClauseCache {
	return &RedisClauseCache{client: client, prefix: prefix, ctx: context.Background()}
}

func (c *RedisClauseCache) key(handle ResultHandle, clause ClauseIdentity) string {
	return fmt.Sprintf("%s:clause:%s:%s", c.prefix, handle.String(), clause)
}

func (c *RedisClauseCache) Get(handle ResultHandle, clause ClauseIdentity) (bool, bool) {
	v, err := c.client.Get(c.ctx, c.key(handle, clause)).Result()
	if err != nil {
		if err != redis.Nil {
			logFault("redis clause cache get failed", "error", err)
		}
		return false, false
	}
	return v == "1", true
}

func (c *RedisClauseCache) Set(handle ResultHandle, clause ClauseIdentity, value bool) {
	v := "0"
	if value {
		v = "1"
	}
	if err := c.client.Set(c.ctx, c.key(handle, clause), v, 0).Err(); err != nil {
		logFault("redis clause cache set failed", "error", err)
	}
}

// clearByHandleScript deletes every key under prefix:clause:<handle>:*
// in one round trip instead of SCAN-then-DEL from the Go side.
var clearByHandleScript = redis.NewScript(`
local keys = redis.call("KEYS", ARGV[1])
for _, k in ipairs(keys) do
    redis.call("DEL", k)
end
return #keys
`)

func (c *RedisClauseCache) Clear(handle ResultHandle) {
	pattern := fmt.Sprintf("%s:clause:%s:*", c.prefix, handle.String())
	if err := clearByHandleScript.Run(c.ctx, c.client, nil, pattern).Err(); err != nil {
		logFault("redis clause cache clear failed", "error", err)
	}
}

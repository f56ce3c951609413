// Package cache holds the Redis-backed pieces of the service: the party
// store, the per-party action feed, and the cross-instance
// party lock.
package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const (
	partyKeyPrefix  = "party:"
	actionKeyPrefix = "actions:"
	lockKeyPrefix   = "lock:party:"
)

func partyKey(id string) string  { return partyKeyPrefix + id }
func actionKey(id string) string { return actionKeyPrefix + id }
func lockKey(id string) string   { return lockKeyPrefix + id }

// Connect parses a redis:// URL, dials and pings the server.
func Connect(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return rdb, nil
}

package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockTimeout is returned when a party lock could not be taken in time.
var ErrLockTimeout = errors.New("timed out waiting for party lock")

// releaseScript deletes the lock only if we still own it.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker serializes operations on one party across server instances with
// SET NX PX. The lease bounds how long a crashed holder can block others.
type Locker struct {
	rdb   redis.UniversalClient
	lease time.Duration
	retry time.Duration
}

// NewLocker creates a Locker with the given lease.
func NewLocker(rdb redis.UniversalClient, lease time.Duration) *Locker {
	return &Locker{rdb: rdb, lease: lease, retry: 25 * time.Millisecond}
}

// Lock blocks until the party lock is held or ctx ends.
func (l *Locker) Lock(ctx context.Context, partyID string) (func(), error) {
	token := uuid.NewString()
	key := lockKey(partyID)
	for {
		ok, err := l.rdb.SetNX(ctx, key, token, l.lease).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire lock %s: %w", partyID, err)
		}
		if ok {
			return func() {
				// Release with a fresh context so a cancelled request still unlocks.
				rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
				defer cancel()
				releaseScript.Run(rctx, l.rdb, []string{key}, token)
			}, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("%w: %s", ErrLockTimeout, partyID)
		case <-time.After(l.retry):
		}
	}
}

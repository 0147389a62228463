package redisad

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"innkeeper/internal/adapters/observability"
)

// GroupLock serializes booking-group mutations across API instances. Group
// totals are derived sums over sibling bookings, so two concurrent edits on
// the same group must not interleave. The lock key carries an owner token;
// only the acquirer can release it.
type GroupLock struct {
	c     *redis.Client
	ttl   time.Duration
	retry time.Duration
}

func NewGroupLock(addr, pass string, db int, ttl time.Duration) *GroupLock {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &GroupLock{
		c:     redis.NewClient(&redis.Options{Addr: addr, Password: pass, DB: db}),
		ttl:   ttl,
		retry: 50 * time.Millisecond,
	}
}

// releaseScript deletes the key only when the caller still owns it, so a lock
// that expired and was re-acquired elsewhere is never stolen back.
var releaseScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

func lockKey(groupID int64) string { return fmt.Sprintf("grouplock:%d", groupID) }

// Lock blocks until the group lock is held or ctx ends. The returned function
// releases the lock; releasing twice is harmless.
func (l *GroupLock) Lock(ctx context.Context, groupID int64) (func(context.Context) error, error) {
	key := lockKey(groupID)
	token := uuid.NewString()

	for {
		ok, err := l.c.SetNX(ctx, key, token, l.ttl).Result()
		if err != nil {
			return nil, fmt.Errorf("acquire group lock %d: %w", groupID, err)
		}
		if ok {
			observability.ObserveLock("acquired")
			break
		}
		observability.ObserveLock("busy")
		select {
		case <-ctx.Done():
			observability.ObserveLock("timeout")
			return nil, fmt.Errorf("group %d is locked by another edit: %w", groupID, ctx.Err())
		case <-time.After(l.retry):
		}
	}

	unlock := func(ctx context.Context) error {
		if err := releaseScript.Run(ctx, l.c, []string{key}, token).Err(); err != nil && err != redis.Nil {
			return fmt.Errorf("release group lock %d: %w", groupID, err)
		}
		observability.ObserveLock("released")
		return nil
	}
	return unlock, nil
}

package locks

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"equipment_lending/lending"
	"equipment_lending/models"
)

const redisLockKeyFmt = "lending:lock:equipment:%s"

// 只有持有者才能释放/续期
var (
	releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0`)

	renewScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisGuard holds a Redis lease per equipment id so every replica sharing the
// Redis instance serializes on the same item. The lease is renewed while fn runs.
type RedisGuard struct {
	rdb      *redis.Client
	store    lending.Store
	ttl      time.Duration
	wait     time.Duration
	poll     time.Duration
	conflict lending.ConflictCounter
}

func NewRedisGuard(rdb *redis.Client, store lending.Store, ttl, wait time.Duration, conflict lending.ConflictCounter) *RedisGuard {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	poll := wait / 20
	if poll < 5*time.Millisecond {
		poll = 5 * time.Millisecond
	}
	if poll > 100*time.Millisecond {
		poll = 100 * time.Millisecond
	}
	return &RedisGuard{rdb: rdb, store: store, ttl: ttl, wait: wait, poll: poll, conflict: conflict}
}

func (g *RedisGuard) WithExclusiveLock(ctx context.Context, equipmentID string, fn func(tx lending.Tx, eq *models.Equipment) error) error {
	key := fmt.Sprintf(redisLockKeyFmt, equipmentID)
	token := uuid.NewString()

	if err := g.acquire(ctx, key, token); err != nil {
		return err
	}
	stop := g.keepAlive(ctx, key, token)
	defer func() {
		stop()
		_ = releaseScript.Run(context.WithoutCancel(ctx), g.rdb, []string{key}, token).Err()
	}()

	return g.store.Transaction(ctx, func(tx lending.Tx) error {
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return err
		}
		return fn(tx, eq)
	})
}

// wait <= 0 polls until ctx is done, as Keyed.Acquire does.
func (g *RedisGuard) acquire(ctx context.Context, key, token string) error {
	deadline := time.Now().Add(g.wait)
	for {
		ok, err := g.rdb.SetNX(ctx, key, token, g.ttl).Result()
		if err != nil {
			return fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			return nil
		}
		if g.wait > 0 && !time.Now().Before(deadline) {
			if g.conflict != nil {
				g.conflict.LockConflict("redis")
			}
			return fmt.Errorf("%w: %s", lending.ErrLockConflict, key)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(g.poll):
		}
	}
}

func (g *RedisGuard) keepAlive(ctx context.Context, key, token string) (stop func()) {
	done := make(chan struct{})
	go func() {
		t := time.NewTicker(g.ttl / 3)
		defer t.Stop()
		for {
			select {
			case <-done:
				return
			case <-t.C:
				_ = renewScript.Run(context.WithoutCancel(ctx), g.rdb, []string{key}, token, g.ttl.Milliseconds()).Err()
			}
		}
	}()
	return func() { close(done) }
}

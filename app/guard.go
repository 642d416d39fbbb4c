package app

import (
	"fmt"

	"github.com/redis/go-redis/v9"

	"equipment_lending/db"
	"equipment_lending/lending"
	"equipment_lending/locks"
)

func newGuard(cfg Config, store lending.Store, rdb *redis.Client, conflicts lending.ConflictCounter) (lending.Guard, error) {
	switch cfg.LockBackend {
	case "row":
		repo, ok := store.(*db.Repo)
		if !ok {
			return nil, fmt.Errorf("LOCK_BACKEND=row needs STORE_BACKEND=postgres")
		}
		return db.NewRowLockGuard(repo, cfg.LockWait, conflicts), nil
	case "redis":
		return locks.NewRedisGuard(rdb, store, cfg.LockTTL, cfg.LockWait, conflicts), nil
	case "local":
		return locks.NewLocalGuard(store, cfg.LockWait, conflicts), nil
	default:
		return nil, fmt.Errorf("unknown LOCK_BACKEND %q", cfg.LockBackend)
	}
}

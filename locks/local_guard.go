package locks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"equipment_lending/lending"
	"equipment_lending/models"
)

// LocalGuard serializes decisions inside one process. Only valid for a single replica.
type LocalGuard struct {
	store    lending.Store
	keys     *Keyed
	wait     time.Duration
	conflict lending.ConflictCounter
}

func NewLocalGuard(store lending.Store, wait time.Duration, conflict lending.ConflictCounter) *LocalGuard {
	return &LocalGuard{store: store, keys: NewKeyed(), wait: wait, conflict: conflict}
}

func (g *LocalGuard) WithExclusiveLock(ctx context.Context, equipmentID string, fn func(tx lending.Tx, eq *models.Equipment) error) error {
	release, err := g.keys.Acquire(ctx, "equipment:"+equipmentID, g.wait)
	if errors.Is(err, ErrNotAcquired) {
		if g.conflict != nil {
			g.conflict.LockConflict("local")
		}
		return fmt.Errorf("%w: equipment %s", lending.ErrLockConflict, equipmentID)
	}
	if err != nil {
		return err
	}
	// 先提交再放锁
	defer release()

	return g.store.Transaction(ctx, func(tx lending.Tx) error {
		eq, err := tx.GetEquipment(ctx, equipmentID)
		if err != nil {
			return err
		}
		return fn(tx, eq)
	})
}

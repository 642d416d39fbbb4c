package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"equipment_lending/lending"
	"equipment_lending/models"
)

// RowLockGuard takes SELECT ... FOR UPDATE on the equipment row. The lock lives
// exactly as long as the transaction fn runs in.
type RowLockGuard struct {
	repo     *Repo
	wait     time.Duration
	conflict lending.ConflictCounter
}

func NewRowLockGuard(repo *Repo, wait time.Duration, conflict lending.ConflictCounter) *RowLockGuard {
	return &RowLockGuard{repo: repo, wait: wait, conflict: conflict}
}

func (g *RowLockGuard) WithExclusiveLock(ctx context.Context, equipmentID string, fn func(tx lending.Tx, eq *models.Equipment) error) error {
	if err := validID("equipment", equipmentID); err != nil {
		return err
	}

	err := g.repo.inTx(ctx, func(tx *Repo) error {
		if g.wait > 0 {
			// SET LOCAL 不支持参数绑定
			if err := tx.DB.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", g.wait.Milliseconds())).Error; err != nil {
				return err
			}
		}

		var eq models.Equipment
		if err := tx.DB.WithContext(ctx).
			Clauses(clause.Locking{Strength: "UPDATE"}).
			First(&eq, "id = ?", equipmentID).Error; err != nil {
			return notFound(err, "equipment", equipmentID)
		}
		return fn(tx, &eq)
	})

	if errors.Is(err, lending.ErrLockConflict) && g.conflict != nil {
		g.conflict.LockConflict("row")
	}
	return err
}

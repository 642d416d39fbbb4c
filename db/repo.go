package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	"equipment_lending/lending"
	"equipment_lending/models"
)

// Repo is the Postgres lending.Store. Inside Transaction the same type serves
// as the lending.Tx, bound to the transaction handle.
type Repo struct{ DB *gorm.DB }

func NewRepo(db *gorm.DB) *Repo { return &Repo{DB: db} }

func (r *Repo) Transaction(ctx context.Context, fn func(tx lending.Tx) error) error {
	return r.inTx(ctx, func(tx *Repo) error { return fn(tx) })
}

func (r *Repo) inTx(ctx context.Context, fn func(tx *Repo) error) error {
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repo{DB: tx})
	})
	return translate(err)
}

// Postgres 锁等待/死锁/串行化失败都按可重试处理
const (
	pgLockNotAvailable     = "55P03"
	pgDeadlockDetected     = "40P01"
	pgSerializationFailure = "40001"
)

func translate(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgDeadlockDetected, pgSerializationFailure:
			return fmt.Errorf("%w: %s", lending.ErrLockConflict, pgErr.Message)
		}
	}
	return err
}

func notFound(err error, entity, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return &lending.NotFoundError{Entity: entity, ID: id}
	}
	return err
}

// 非 UUID 的 id 直接当作不存在，避免 22P02
func validID(entity, id string) error {
	if uuid.Validate(id) != nil {
		return &lending.NotFoundError{Entity: entity, ID: id}
	}
	return nil
}

// Users

func (r *Repo) GetUser(ctx context.Context, id string) (*models.User, error) {
	if err := validID("user", id); err != nil {
		return nil, err
	}
	var u models.User
	if err := r.DB.WithContext(ctx).First(&u, "id = ?", id).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &u, nil
}

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&u).Error; err != nil {
		return nil, notFound(err, "user", username)
	}
	return &u, nil
}

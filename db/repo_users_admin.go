// db/repo_users_admin.go
package db

import (
	"context"

	"gorm.io/gorm"

	"equipment_lending/models"
)

func (r *Repo) TouchUserSeen(ctx context.Context, userID string) error {
	if validID("user", userID) != nil {
		return nil
	}
	return r.DB.WithContext(ctx).Model(&models.User{}).
		Where("id = ?", userID).
		Update("last_seen_at", gorm.Expr("NOW()")).Error
}

// PromoteAdmin sets is_admin for username; ok is false when no such user exists.
func (r *Repo) PromoteAdmin(ctx context.Context, username string) (ok bool, err error) {
	res := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("username = ?", username).
		Update("is_admin", true)
	return res.RowsAffected > 0, res.Error
}

func (r *Repo) CountAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.DB.WithContext(ctx).
		Model(&models.User{}).
		Where("is_admin = TRUE").
		Count(&n).Error
	return n, err
}

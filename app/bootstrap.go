// app/bootstrap.go
package app

import (
	"context"
	"log/slog"
)

// PromoteConfiguredAdmins 启动时把 ADMIN_USERNAMES 中已存在的用户标记为管理员
func PromoteConfiguredAdmins(ctx context.Context, users UserDirectory, usernames []string, logger *slog.Logger) {
	for _, name := range usernames {
		ok, err := users.PromoteAdmin(ctx, name)
		if err != nil {
			logger.Warn("admin promotion failed", "username", name, "error", err.Error())
			continue
		}
		if !ok {
			logger.Info("configured admin has no account yet", "username", name)
		}
	}

	n, err := users.CountAdmins(ctx)
	if err != nil {
		logger.Warn("count admins failed", "error", err.Error())
		return
	}
	if n == 0 {
		logger.Warn("no admin user exists; set ADMIN_USERNAMES to an existing username")
	}
}

package app

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment_lending/models"
	"equipment_lending/session"
)

const AppSessionCookie = "app_session"

type SessionStore interface {
	Get(ctx context.Context, id string) (*session.AppSession, error)
	Delete(ctx context.Context, id string) error
	RevokeAllForUser(ctx context.Context, userID string) error
}

type UserLookup interface {
	User(ctx context.Context, id string) (*models.User, error)
}

// SessionID 先看 Cookie，再看 Authorization: Bearer
func SessionID(c *gin.Context) string {
	if ck, err := c.Request.Cookie(AppSessionCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	if h := c.GetHeader("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimSpace(strings.TrimPrefix(h, "Bearer "))
	}
	return ""
}

func AuthRequired(sessions SessionStore, users UserLookup, cfg Config) gin.HandlerFunc {
	return func(c *gin.Context) {
		sid := SessionID(c)
		if sid == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		as, err := sessions.Get(c.Request.Context(), sid)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "invalid session"})
			return
		}

		// 确认用户仍存在，并把 isAdmin 放进 Context（只查一次）
		u, err := users.User(c.Request.Context(), as.UserID)
		if err != nil {
			_ = sessions.Delete(c.Request.Context(), sid)
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		c.Set("userID", u.ID)
		c.Set("username", u.Username)
		c.Set("isAdmin", u.IsAdmin || cfg.IsAdminUsername(u.Username))

		c.Next()
	}
}

// AdminOnly 必须挂在 AuthRequired 之后
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, ok := c.Get("userID"); !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, H{"error": "unauthorized"})
			return
		}
		if !c.GetBool("isAdmin") {
			c.AbortWithStatusJSON(http.StatusForbidden, H{"error": "forbidden"})
			return
		}
		c.Next()
	}
}

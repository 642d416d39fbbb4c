package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment_lending/app"
)

type UserController struct{ *Srv }

func NewUserController(s *Srv) *UserController { return &UserController{Srv: s} }

// GET /api/me
func (uc *UserController) Me(c *gin.Context) {
	uid, isAdmin := actor(c)
	u, err := uc.Svc.User(c.Request.Context(), uid)
	if err != nil {
		uc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"user": u, "isAdmin": isAdmin})
}

// POST /api/logout：删 Redis 会话，Cookie 置空
func (uc *UserController) Logout(c *gin.Context) {
	if sid := app.SessionID(c); sid != "" {
		_ = uc.Sessions.Delete(c.Request.Context(), sid)
	}
	uc.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

// POST /api/logout/all：撤销该用户在所有设备上的会话
func (uc *UserController) LogoutAll(c *gin.Context) {
	uid, _ := actor(c)
	if err := uc.Sessions.RevokeAllForUser(c.Request.Context(), uid); err != nil {
		uc.Logger.Error("revoke sessions failed", "user_id", uid, "error", err.Error())
		c.JSON(http.StatusInternalServerError, app.H{"error": "could not revoke sessions"})
		return
	}
	uc.clearAppCookie(c.Writer)
	c.JSON(http.StatusOK, app.H{"ok": true})
}

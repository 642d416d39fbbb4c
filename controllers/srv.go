// controllers/srv.go
package controllers

import (
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"equipment_lending/app"
	"equipment_lending/lending"
)

type Srv struct {
	Svc       *lending.Service
	Sessions  app.SessionStore
	Logger    *slog.Logger
	WebOrigin string
}

func GetSrv(a *app.App) *Srv {
	logger := a.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Srv{
		Svc:       a.Service,
		Sessions:  a.Sessions,
		Logger:    logger,
		WebOrigin: a.Config.WebOrigin,
	}
}

// --- helpers ---

// 由 AuthRequired 注入
func actor(c *gin.Context) (userID string, isAdmin bool) {
	return c.GetString("userID"), c.GetBool("isAdmin")
}

// 清除业务会话 Cookie
func (s *Srv) clearAppCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     app.AppSessionCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   strings.HasPrefix(s.WebOrigin, "https://"),
	})
}

// body 可省略；非空则必须是合法 JSON
func bindOptionalJSON(c *gin.Context, obj any) error {
	if err := c.ShouldBindJSON(obj); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// 可选时间参数，RFC3339
func parseTimeParam(c *gin.Context, name string) (t time.Time, ok bool, err error) {
	v := c.Query(name)
	if v == "" {
		return time.Time{}, false, nil
	}
	t, err = time.Parse(time.RFC3339, v)
	if err != nil {
		return time.Time{}, false, &lending.ValidationError{Field: name, Reason: "must be an RFC3339 timestamp"}
	}
	return t.UTC(), true, nil
}

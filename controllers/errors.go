package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment_lending/app"
	"equipment_lending/lending"
)

// writeError 把引擎错误映射为 HTTP 响应
func (s *Srv) writeError(c *gin.Context, err error) {
	var (
		capErr   *lending.CapacityError
		valErr   *lending.ValidationError
		stateErr *lending.StateError
	)

	switch {
	case errors.As(err, &capErr):
		c.JSON(http.StatusConflict, app.H{
			"error":     capErr.Error(),
			"code":      "insufficient_capacity",
			"available": capErr.Available,
			"requested": capErr.Requested,
		})
	case errors.Is(err, lending.ErrLockConflict):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, app.H{"error": lending.ErrLockConflict.Error(), "code": "lock_conflict"})
	case errors.Is(err, lending.ErrAlreadyReturned):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "code": "already_returned"})
	case errors.Is(err, lending.ErrConflict):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "code": "conflict"})
	case errors.As(err, &stateErr):
		c.JSON(http.StatusConflict, app.H{"error": err.Error(), "code": "invalid_state", "status": stateErr.Status})
	case errors.Is(err, lending.ErrNotFound):
		c.JSON(http.StatusNotFound, app.H{"error": err.Error(), "code": "not_found"})
	case errors.Is(err, lending.ErrForbidden):
		c.JSON(http.StatusForbidden, app.H{"error": err.Error(), "code": "forbidden"})
	case errors.As(err, &valErr):
		c.JSON(http.StatusBadRequest, app.H{"error": err.Error(), "code": "validation", "field": valErr.Field})
	case errors.Is(err, context.Canceled):
		c.AbortWithStatus(499)
	default:
		s.Logger.Error("request failed", "method", c.Request.Method, "path", c.FullPath(), "error", err.Error())
		c.JSON(http.StatusInternalServerError, app.H{"error": "internal error"})
	}
}

func (s *Srv) badRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, app.H{"error": "invalid request: " + err.Error(), "code": "validation"})
}

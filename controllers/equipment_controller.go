package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"equipment_lending/app"
	"equipment_lending/lending"
)

type EquipmentController struct{ *Srv }

func NewEquipmentController(s *Srv) *EquipmentController { return &EquipmentController{Srv: s} }

// GET /api/equipment
func (ec *EquipmentController) List(c *gin.Context) {
	items, err := ec.Svc.ListEquipment(c.Request.Context())
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": items})
}

// GET /api/equipment/:id
func (ec *EquipmentController) Get(c *gin.Context) {
	eq, err := ec.Svc.Equipment(c.Request.Context(), c.Param("id"))
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

// GET /api/equipment/:id/availability?at= | ?start=&end=
// 都不传时按当前时刻
func (ec *EquipmentController) Availability(c *gin.Context) {
	at, hasAt, err := parseTimeParam(c, "at")
	if err != nil {
		ec.writeError(c, err)
		return
	}
	start, hasStart, err := parseTimeParam(c, "start")
	if err != nil {
		ec.writeError(c, err)
		return
	}
	end, hasEnd, err := parseTimeParam(c, "end")
	if err != nil {
		ec.writeError(c, err)
		return
	}

	var w lending.Window
	switch {
	case hasAt:
		w = lending.At(at)
	case hasStart && hasEnd:
		if !end.After(start) {
			ec.writeError(c, &lending.ValidationError{Field: "end", Reason: "must be after start"})
			return
		}
		w = lending.Between(start, end)
	case hasStart:
		w = lending.From(start)
	case hasEnd:
		ec.writeError(c, &lending.ValidationError{Field: "start", Reason: "is required with end"})
		return
	default:
		w = lending.At(ec.Svc.Now())
	}

	n, err := ec.Svc.AvailableUnits(c.Request.Context(), c.Param("id"), w)
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"equipmentId": c.Param("id"), "window": w.String(), "availableUnits": n})
}

// POST /api/equipment（管理员）
func (ec *EquipmentController) Create(c *gin.Context) {
	var in struct {
		Name          string `json:"name" binding:"required"`
		TotalQuantity int    `json:"totalQuantity"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		ec.badRequest(c, err)
		return
	}
	eq, err := ec.Svc.CreateEquipment(c.Request.Context(), in.Name, in.TotalQuantity)
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, eq)
}

// PUT /api/equipment/:id/quantity（管理员）
func (ec *EquipmentController) SetQuantity(c *gin.Context) {
	var in struct {
		TotalQuantity *int `json:"totalQuantity" binding:"required"`
	}
	if err := c.ShouldBindJSON(&in); err != nil {
		ec.badRequest(c, err)
		return
	}
	eq, err := ec.Svc.SetTotalQuantity(c.Request.Context(), c.Param("id"), *in.TotalQuantity)
	if err != nil {
		ec.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, eq)
}

package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"equipment_lending/app"
	"equipment_lending/lending"
	"equipment_lending/models"
)

type BookingController struct{ *Srv }

func NewBookingController(s *Srv) *BookingController { return &BookingController{Srv: s} }

type createBookingReq struct {
	EquipmentID       string    `json:"equipmentId" binding:"required"`
	StartAt           time.Time `json:"startAt" binding:"required"`
	EndAt             time.Time `json:"endAt" binding:"required"`
	QuantityRequested int       `json:"quantityRequested"`
}

// POST /api/bookings
func (bc *BookingController) Create(c *gin.Context) {
	var req createBookingReq
	if err := c.ShouldBindJSON(&req); err != nil {
		bc.badRequest(c, err)
		return
	}
	if req.QuantityRequested == 0 {
		req.QuantityRequested = 1
	}
	uid, _ := actor(c)

	b, err := bc.Svc.Bookings.Create(c.Request.Context(), uid, req.EquipmentID, req.StartAt.UTC(), req.EndAt.UTC(), req.QuantityRequested)
	if err != nil {
		bc.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, b)
}

type decisionReq struct {
	Note *string `json:"note"`
}

// POST /api/bookings/:id/approve（管理员）
func (bc *BookingController) Approve(c *gin.Context) {
	var req decisionReq
	if err := bindOptionalJSON(c, &req); err != nil {
		bc.badRequest(c, err)
		return
	}
	uid, _ := actor(c)

	b, loan, err := bc.Svc.Bookings.Approve(c.Request.Context(), c.Param("id"), uid, req.Note)
	if err != nil {
		bc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"booking": b, "loan": loan})
}

// POST /api/bookings/:id/reject（管理员）
func (bc *BookingController) Reject(c *gin.Context) {
	var req decisionReq
	if err := bindOptionalJSON(c, &req); err != nil {
		bc.badRequest(c, err)
		return
	}
	uid, _ := actor(c)

	b, err := bc.Svc.Bookings.Reject(c.Request.Context(), c.Param("id"), uid, req.Note)
	if err != nil {
		bc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"booking": b})
}

// GET /api/bookings/my
func (bc *BookingController) ListMine(c *gin.Context) {
	uid, _ := actor(c)
	bs, err := bc.Svc.ListBookings(c.Request.Context(), lending.BookingFilter{RequesterID: uid})
	if err != nil {
		bc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": bs})
}

// GET /api/bookings/pending（管理员）
func (bc *BookingController) ListPending(c *gin.Context) {
	bs, err := bc.Svc.ListBookings(c.Request.Context(), lending.BookingFilter{
		Status:      models.BookingPending,
		EquipmentID: c.Query("equipmentId"),
	})
	if err != nil {
		bc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": bs})
}

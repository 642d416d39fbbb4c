package controllers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"equipment_lending/app"
	"equipment_lending/lending"
	"equipment_lending/models"
)

type LoanController struct{ *Srv }

func NewLoanController(s *Srv) *LoanController { return &LoanController{Srv: s} }

type borrowReq struct {
	EquipmentID  string `json:"equipmentId" binding:"required"`
	Quantity     int    `json:"quantity"`
	DurationDays *int   `json:"durationDays"` // 不传表示不限期
}

// POST /api/loans/borrow
func (lc *LoanController) Borrow(c *gin.Context) {
	var req borrowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		lc.badRequest(c, err)
		return
	}
	uid, _ := actor(c)
	lc.borrow(c, uid, req)
}

type adminBorrowReq struct {
	borrowReq
	UserName string `json:"userName" binding:"required"`
}

// POST /api/admin/loans：管理员代借
func (lc *LoanController) AdminBorrow(c *gin.Context) {
	var req adminBorrowReq
	if err := c.ShouldBindJSON(&req); err != nil {
		lc.badRequest(c, err)
		return
	}

	// 先用 username 查 userId
	user, err := lc.Svc.UserByUsername(c.Request.Context(), req.UserName)
	if err != nil {
		lc.writeError(c, err)
		return
	}
	lc.borrow(c, user.ID, req.borrowReq)
}

func (lc *LoanController) borrow(c *gin.Context, borrowerID string, req borrowReq) {
	if req.Quantity == 0 {
		req.Quantity = 1
	}
	loan, err := lc.Svc.Loans.BorrowNow(c.Request.Context(), borrowerID, req.EquipmentID, req.Quantity, req.DurationDays)
	if err != nil {
		lc.writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, loan)
}

// POST /api/loans/:loanId/return
func (lc *LoanController) Return(c *gin.Context) {
	uid, isAdmin := actor(c)
	loan, err := lc.Svc.Loans.MarkReturned(c.Request.Context(), c.Param("loanId"), uid, isAdmin)
	if err != nil {
		lc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// POST /api/loans/:loanId/cancel
func (lc *LoanController) Cancel(c *gin.Context) {
	uid, isAdmin := actor(c)
	loan, err := lc.Svc.Loans.Cancel(c.Request.Context(), c.Param("loanId"), uid, isAdmin)
	if err != nil {
		lc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GET /api/loans/:loanId：本人或管理员
func (lc *LoanController) Get(c *gin.Context) {
	uid, isAdmin := actor(c)
	loan, err := lc.Svc.Loans.Get(c.Request.Context(), c.Param("loanId"))
	if err != nil {
		lc.writeError(c, err)
		return
	}
	if loan.BorrowerID != uid && !isAdmin {
		c.JSON(http.StatusForbidden, app.H{"error": "forbidden", "code": "forbidden"})
		return
	}
	c.JSON(http.StatusOK, loan)
}

// GET /api/loans/my
func (lc *LoanController) ListMine(c *gin.Context) {
	uid, _ := actor(c)
	lc.list(c, lending.LoanFilter{BorrowerID: uid})
}

// GET /api/loans?status=&equipmentId=（管理员）
func (lc *LoanController) ListAll(c *gin.Context) {
	f := lending.LoanFilter{EquipmentID: c.Query("equipmentId")}
	if s := c.Query("status"); s != "" {
		st := models.LoanStatus(strings.ToUpper(s))
		if !st.Valid() {
			lc.writeError(c, &lending.ValidationError{Field: "status", Reason: "must be one of BORROWED, RETURNED, OVERDUE, CANCELLED"})
			return
		}
		f.Status = st
	}
	lc.list(c, f)
}

// GET /api/loans/active（管理员）
func (lc *LoanController) ListActive(c *gin.Context) {
	lc.list(c, lending.LoanFilter{Status: models.LoanBorrowed})
}

func (lc *LoanController) list(c *gin.Context, f lending.LoanFilter) {
	ls, err := lc.Svc.ListLoans(c.Request.Context(), f)
	if err != nil {
		lc.writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, app.H{"items": ls})
}

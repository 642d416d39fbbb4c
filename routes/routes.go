package routes

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"equipment_lending/app"
	"equipment_lending/controllers"
)

func RegisterRoutes(r *gin.Engine, a *app.App) {
	// 控制器与依赖
	s := controllers.GetSrv(a)
	uc := controllers.NewUserController(s)
	eqCtl := controllers.NewEquipmentController(s)
	bookingCtl := controllers.NewBookingController(s)
	loanCtl := controllers.NewLoanController(s)

	// 复用的中间件
	authMW := app.AuthRequired(a.Sessions, a.Service, a.Config)
	adminMW := app.AdminOnly()
	seenMW := app.TouchLastSeen(a.Users, a.RDB, 5*time.Minute)

	r.GET("/healthz", func(c *app.Ctx) { c.JSON(http.StatusOK, app.H{"ok": true}) })
	if a.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(a.Registry, promhttp.HandlerOpts{})))
	}

	api := r.Group("/api", authMW, seenMW)
	{
		api.GET("/me", uc.Me)
		api.POST("/logout", uc.Logout)
		api.POST("/logout/all", uc.LogoutAll)
	}

	// ------------------------------
	// 设备目录
	// ------------------------------
	equipment := api.Group("/equipment")
	{
		equipment.GET("", eqCtl.List)
		equipment.GET("/:id", eqCtl.Get)
		equipment.GET("/:id/availability", eqCtl.Availability) // ?at= | ?start=&end=
		equipment.POST("", adminMW, eqCtl.Create)
		equipment.PUT("/:id/quantity", adminMW, eqCtl.SetQuantity)
	}

	// ------------------------------
	// 预约：申请 → 审批
	// ------------------------------
	bookings := api.Group("/bookings")
	{
		bookings.POST("", bookingCtl.Create)
		bookings.GET("/my", bookingCtl.ListMine)
		bookings.GET("/pending", adminMW, bookingCtl.ListPending)
		bookings.POST("/:id/approve", adminMW, bookingCtl.Approve)
		bookings.POST("/:id/reject", adminMW, bookingCtl.Reject)
	}

	// ------------------------------
	// 借还
	// ------------------------------
	loans := api.Group("/loans")
	{
		loans.POST("/borrow", loanCtl.Borrow)
		loans.GET("/my", loanCtl.ListMine)
		loans.GET("/:loanId", loanCtl.Get)
		loans.POST("/:loanId/return", loanCtl.Return)
		loans.POST("/:loanId/cancel", loanCtl.Cancel)
		loans.GET("", adminMW, loanCtl.ListAll) // ?status=&equipmentId=
		loans.GET("/active", adminMW, loanCtl.ListActive)
	}

	admin := api.Group("/admin", adminMW)
	{
		admin.POST("/loans", loanCtl.AdminBorrow)
	}
}

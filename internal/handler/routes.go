package handler

import (
	"time"

	"github.com/labstack/echo/v4"
)

// Register mounts every route on e
func (h *Handler) Register(e *echo.Echo) {
	e.GET("/health", h.Health)

	api := e.Group("/api")
	api.GET("", h.Index)

	health := api.Group("/health")
	health.GET("", h.Health)
	health.GET("/db", h.HealthDB)
	health.GET("/discord", h.HealthDiscord)
	health.GET("/qr", h.HealthQR)
	health.GET("/system", h.HealthSystem)

	rooms := api.Group("/rooms")
	rooms.GET("", h.ListRooms)
	rooms.GET("/available", h.AvailableRooms)
	rooms.GET("/stats/overview", h.RoomStats)
	rooms.GET("/:id", h.GetRoom)
	rooms.POST("", h.CreateRoom)
	rooms.PUT("/:id", h.UpdateRoom)
	rooms.DELETE("/:id", h.DeleteRoom)

	tenants := api.Group("/tenants")
	tenants.GET("", h.ListTenants)
	tenants.GET("/active", h.ActiveTenants)
	tenants.GET("/stats/overview", h.TenantStats)
	tenants.GET("/:id", h.GetTenant)
	tenants.POST("", h.CreateTenant)
	tenants.PUT("/:id", h.UpdateTenant)
	tenants.PUT("/:id/move-in", h.MoveIn)
	tenants.PUT("/:id/move-out", h.MoveOut)
	tenants.DELETE("/:id", h.DeleteTenant)

	contracts := api.Group("/contracts")
	contracts.GET("", h.ListContracts)
	contracts.GET("/expiring", h.ExpiringContracts)
	contracts.GET("/expired", h.ExpiredContracts)
	contracts.GET("/stats/overview", h.ContractStats)
	contracts.GET("/:id", h.GetContract)
	contracts.POST("", h.CreateContract)
	contracts.PUT("/:id", h.UpdateContract)
	contracts.PUT("/:id/renew", h.RenewContract)
	contracts.PUT("/:id/terminate", h.TerminateContract)
	contracts.DELETE("/:id", h.DeleteContract)

	payments := api.Group("/payments")
	payments.GET("", h.ListPayments)
	payments.GET("/overdue", h.OverduePayments)
	payments.GET("/due-soon", h.DueSoonPayments)
	payments.GET("/stats/overview", h.PaymentStats)
	payments.GET("/:id", h.GetPayment)
	payments.POST("", h.CreatePayment)
	payments.POST("/bulk-create", h.BulkCreatePayments)
	payments.PUT("/:id", h.UpdatePayment)
	payments.PUT("/:id/pay", h.PayPayment)
	payments.PUT("/:id/cancel", h.CancelPayment)
	payments.DELETE("/:id", h.DeletePayment)

	notes := api.Group("/notes")
	notes.GET("", h.ListNotes)
	notes.GET("/important", h.ImportantNotes)
	notes.GET("/reminders", h.DueReminders)
	notes.GET("/category/:category", h.NotesByCategory)
	notes.GET("/tag/:tag", h.NotesByTag)
	notes.GET("/stats/overview", h.NoteStats)
	notes.GET("/:id", h.GetNote)
	notes.POST("", h.CreateNote)
	notes.PUT("/:id", h.UpdateNote)
	notes.PUT("/:id/complete", h.CompleteNote)
	notes.PUT("/:id/reminder", h.SetReminder)
	notes.DELETE("/:id/reminder", h.CancelReminder)
	notes.DELETE("/:id", h.DeleteNote)

	discord := api.Group("/discord")
	discord.POST("/notify", h.SendNotification)
	discord.POST("/payment-reminder", h.SendPaymentReminder)
	discord.POST("/contract-expiry", h.SendContractExpiry)
	discord.POST("/system-status", h.SendSystemStatus)
	discord.POST("/test", h.TestDiscord)
	discord.GET("/webhook-info", h.WebhookInfo)

	qr := api.Group("/qr")
	qr.POST("/generate", h.GenerateQR)
	qr.POST("/payment", h.PaymentQRCode)
	qr.POST("/batch", h.BatchQR)
	qr.GET("/banks", h.Banks)
	qr.GET("/config", h.QRConfig)
	qr.POST("/validate", h.ValidateQR)

	backups := api.Group("/backup")
	backups.POST("/create", h.CreateBackup)
	backups.GET("/list", h.ListBackups)
	backups.GET("/download/:fileName", h.DownloadBackup)
	backups.POST("/cleanup", h.CleanupBackups)
	backups.GET("/info/:fileName", h.BackupInfo)
	backups.GET("/stats", h.BackupStats)
	backups.DELETE("/:fileName", h.DeleteBackup)
}

// Index describes the API
func (h *Handler) Index(c echo.Context) error {
	now := h.gate.Now()
	data := echo.Map{
		"name":        "Rental Management API",
		"version":     Version,
		"environment": h.cfg.Server.Env,
		"timezone":    now.Location().String(),
		"serverTime":  now.Format(time.RFC3339),
		"endpoints": echo.Map{
			"rooms":     "/api/rooms",
			"tenants":   "/api/tenants",
			"contracts": "/api/contracts",
			"payments":  "/api/payments",
			"notes":     "/api/notes",
			"discord":   "/api/discord",
			"qr":        "/api/qr",
			"backup":    "/api/backup",
			"health":    "/api/health",
		},
	}
	if holiday, isHoliday := h.gate.Holiday(now); isHoliday {
		data["holiday"] = holiday
	}
	return ok(c, "", data)
}

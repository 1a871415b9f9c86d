package handler

import (
	"net/http"
	"runtime"
	"time"

	"rental-service/internal/model"
	"rental-service/pkg/database"
	"rental-service/pkg/logger"

	"github.com/dustin/go-humanize"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const (
	statusHealthy   = "healthy"
	statusWarning   = "warning"
	statusUnhealthy = "unhealthy"

	clockLayout = "02/01/2006 15:04:05"
)

// Check is the outcome of one probe
type Check struct {
	Status  string      `json:"status"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
	Details interface{} `json:"details,omitempty"`
}

// HealthReport aggregates every probe
type HealthReport struct {
	Status    string           `json:"status"`
	Timestamp time.Time        `json:"timestamp"`
	Uptime    float64          `json:"uptime"`
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
}

// MemoryUsage is the Go heap in human units
type MemoryUsage struct {
	Sys        string `json:"sys"`
	HeapAlloc  string `json:"heapAlloc"`
	HeapSys    string `json:"heapSys"`
	StackInUse string `json:"stackInUse"`
	NumGC      uint32 `json:"numGC"`
	Goroutines int    `json:"goroutines"`
}

func memoryUsage() MemoryUsage {
	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	return MemoryUsage{
		Sys:        humanize.Bytes(ms.Sys),
		HeapAlloc:  humanize.Bytes(ms.HeapAlloc),
		HeapSys:    humanize.Bytes(ms.HeapSys),
		StackInUse: humanize.Bytes(ms.StackInuse),
		NumGC:      ms.NumGC,
		Goroutines: runtime.NumGoroutine(),
	}
}

func (h *Handler) dbStatus(c echo.Context) Check {
	db := h.svc.DB()
	if err := database.Ping(db); err != nil {
		return Check{Status: statusUnhealthy, Error: err.Error()}
	}
	var rooms int64
	if err := db.WithContext(c.Request().Context()).Model(&model.Room{}).Count(&rooms).Error; err != nil {
		return Check{Status: statusUnhealthy, Error: err.Error()}
	}
	return Check{
		Status: statusHealthy,
		Details: echo.Map{
			"driver":    db.Dialector.Name(),
			"testQuery": humanize.Comma(rooms) + " rooms found",
		},
	}
}

func (h *Handler) discordStatus(c echo.Context) Check {
	client := h.notifier.Client()
	if !client.Configured() {
		return Check{Status: statusWarning, Message: "Discord webhook chưa được cấu hình"}
	}
	info, err := client.Info(c.Request().Context())
	if err != nil {
		return Check{Status: statusUnhealthy, Error: err.Error()}
	}
	return Check{Status: statusHealthy, Details: info}
}

func (h *Handler) qrStatus() Check {
	acc := h.qr.Account
	if !acc.Complete() {
		return Check{
			Status:  statusWarning,
			Message: "QR payment chưa được cấu hình đầy đủ",
			Details: echo.Map{
				"bankCode":      acc.BankCode != "",
				"accountNumber": acc.AccountNumber != "",
				"accountName":   acc.AccountName != "",
			},
		}
	}
	return Check{
		Status: statusHealthy,
		Details: echo.Map{
			"bankCode":      acc.BankCode,
			"accountNumber": acc.AccountNumber,
			"accountName":   acc.AccountName,
			"baseUrl":       h.qr.BaseURL,
			"testUrl":       h.qr.ImageURL(acc),
		},
	}
}

func (h *Handler) backupStatus(c echo.Context) Check {
	stats, err := h.backups.Stats(c.Request().Context())
	if err != nil {
		return Check{Status: statusUnhealthy, Error: err.Error()}
	}
	details := echo.Map{
		"driver":       stats.Driver,
		"totalBackups": stats.TotalBackups,
		"totalSize":    stats.TotalSizeText,
	}
	if stats.NewestBackup != nil {
		details["lastBackup"] = stats.NewestBackup.FileName
	}
	return Check{Status: statusHealthy, Details: details}
}

func (h *Handler) timezoneStatus() Check {
	now := h.gate.Now()
	_, offset := now.Zone()
	return Check{
		Status: statusHealthy,
		Details: echo.Map{
			"timezone":    now.Location().String(),
			"currentTime": now.Format(clockLayout),
			"utcOffset":   offset / 60,
		},
	}
}

// Health runs every probe. Warnings keep 200; any unhealthy probe turns
// the response into 503.
func (h *Handler) Health(c echo.Context) error {
	report := HealthReport{
		Status:    statusHealthy,
		Timestamp: time.Now().UTC(),
		Uptime:    time.Since(h.started).Seconds(),
		Version:   Version,
		Checks: map[string]Check{
			"database": h.dbStatus(c),
			"discord":  h.discordStatus(c),
			"qr":       h.qrStatus(),
			"memory":   {Status: statusHealthy, Details: memoryUsage()},
			"backup":   h.backupStatus(c),
			"timezone": h.timezoneStatus(),
		},
	}
	for _, check := range report.Checks {
		switch check.Status {
		case statusUnhealthy:
			report.Status = statusUnhealthy
		case statusWarning:
			if report.Status == statusHealthy {
				report.Status = statusWarning
			}
		}
	}

	code := http.StatusOK
	if report.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	logger.FromEcho(c).Info("Health check", zap.String("status", report.Status))
	return c.JSON(code, envelope{Success: true, Data: report})
}

// HealthDB reports the database probe with per-table row counts
func (h *Handler) HealthDB(c echo.Context) error {
	check := h.dbStatus(c)
	if check.Status == statusHealthy {
		counts := echo.Map{}
		db := h.svc.DB().WithContext(c.Request().Context())
		for name, m := range map[string]interface{}{
			"rooms":     &model.Room{},
			"tenants":   &model.Tenant{},
			"contracts": &model.Contract{},
			"payments":  &model.Payment{},
			"notes":     &model.Note{},
		} {
			var n int64
			if err := db.Model(m).Count(&n).Error; err != nil {
				check = Check{Status: statusUnhealthy, Error: err.Error()}
				break
			}
			counts[name] = n
		}
		if check.Status == statusHealthy {
			check.Details = echo.Map{"driver": db.Dialector.Name(), "counts": counts}
		}
	}
	return h.probe(c, check)
}

// HealthDiscord reports the webhook probe
func (h *Handler) HealthDiscord(c echo.Context) error {
	return h.probe(c, h.discordStatus(c))
}

// HealthQR reports the QR configuration probe
func (h *Handler) HealthQR(c echo.Context) error {
	return h.probe(c, h.qrStatus())
}

// HealthSystem reports runtime details
func (h *Handler) HealthSystem(c echo.Context) error {
	return ok(c, "", echo.Map{
		"status":    statusHealthy,
		"uptime":    time.Since(h.started).Seconds(),
		"version":   runtime.Version(),
		"platform":  runtime.GOOS,
		"arch":      runtime.GOARCH,
		"cpus":      runtime.NumCPU(),
		"memory":    memoryUsage(),
		"env":       h.cfg.Server.Env,
		"port":      h.cfg.Server.Port,
		"timezone":  h.timezoneStatus().Details,
		"timestamp": time.Now().UTC(),
	})
}

func (h *Handler) probe(c echo.Context, check Check) error {
	code := http.StatusOK
	if check.Status == statusUnhealthy {
		code = http.StatusServiceUnavailable
	}
	return c.JSON(code, envelope{Success: check.Status != statusUnhealthy, Data: check})
}

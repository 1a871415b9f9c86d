package middleware

import (
	"fmt"
	"net/http"
	"time"

	"rental-service/pkg/config"
	"rental-service/pkg/logger"
	"rental-service/prometheus"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const displayLayout = "15:04:05 02/01/2006"

// Fixed-date public holidays as MM-DD
var holidays = map[string]string{
	"01-01": "Tết Dương lịch",
	"04-30": "Giải phóng miền Nam",
	"05-01": "Quốc tế lao động",
	"09-02": "Quốc khánh",
}

// Window is the metadata returned with a 503 from either gate
type Window struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Timezone string `json:"timezone"`
}

// MaintenanceResponse is the body of a maintenance window rejection
type MaintenanceResponse struct {
	Success           bool   `json:"success"`
	Message           string `json:"message"`
	Details           string `json:"details"`
	MaintenanceWindow Window `json:"maintenanceWindow"`
	CurrentTime       string `json:"currentTime"`
	NextAccessTime    string `json:"nextAccessTime"`
}

// BackupResponse is the body of a backup window rejection
type BackupResponse struct {
	Success      bool   `json:"success"`
	Message      string `json:"message"`
	Details      string `json:"details"`
	BackupWindow Window `json:"backupWindow"`
	CurrentTime  string `json:"currentTime"`
}

// TimeGate evaluates the daily maintenance and backup windows in the
// configured timezone. It keeps no state between requests.
type TimeGate struct {
	cfg     config.AccessControlConfig
	loc     *time.Location
	now     func() time.Time
	skipper echomw.Skipper
}

// TimeGateOption customizes a TimeGate
type TimeGateOption func(*TimeGate)

// WithClock replaces the wall clock
func WithClock(now func() time.Time) TimeGateOption {
	return func(g *TimeGate) { g.now = now }
}

// WithSkipper exempts requests from both windows
func WithSkipper(s echomw.Skipper) TimeGateOption {
	return func(g *TimeGate) { g.skipper = s }
}

// NewTimeGate builds a gate for cfg
func NewTimeGate(cfg config.AccessControlConfig, opts ...TimeGateOption) *TimeGate {
	g := &TimeGate{
		cfg:     cfg,
		loc:     cfg.Location(),
		now:     time.Now,
		skipper: echomw.DefaultSkipper,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Now returns the current time in the gate's timezone
func (g *TimeGate) Now() time.Time {
	return g.now().In(g.loc)
}

// Blocked reports whether t falls in [BlockStartHour, BlockEndHour)
func (g *TimeGate) Blocked(t time.Time) bool {
	h := t.In(g.loc).Hour()
	return h >= g.cfg.BlockStartHour && h < g.cfg.BlockEndHour
}

// InBackupWindow reports whether t falls in the backup window, which opens
// at BlockStartHour and lasts BackupWindowMinutes inclusive
func (g *TimeGate) InBackupWindow(t time.Time) bool {
	t = t.In(g.loc)
	return t.Hour() == g.cfg.BlockStartHour && t.Minute() <= g.cfg.BackupWindowMinutes
}

// NextAccess is the end of the maintenance window on the day of t
func (g *TimeGate) NextAccess(t time.Time) time.Time {
	t = t.In(g.loc)
	return time.Date(t.Year(), t.Month(), t.Day(), g.cfg.BlockEndHour, 0, 0, 0, g.loc)
}

// Holiday returns the holiday name for t, if any
func (g *TimeGate) Holiday(t time.Time) (string, bool) {
	name, ok := holidays[t.In(g.loc).Format("01-02")]
	return name, ok
}

// AccessWindow rejects every request inside the maintenance window
func (g *TimeGate) AccessWindow() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.cfg.Enabled || g.skipper(c) {
				return next(c)
			}
			now := g.Now()
			if !g.Blocked(now) {
				return next(c)
			}

			logger.FromEcho(c).Warn("Access denied during maintenance window",
				zap.String("local_time", now.Format(displayLayout)),
				zap.String("path", c.Request().URL.Path))
			prometheus.RecordAccessDenied("maintenance")

			start, end := g.cfg.BlockStartHour, g.cfg.BlockEndHour
			return c.JSON(http.StatusServiceUnavailable, MaintenanceResponse{
				Success: false,
				Message: "Hệ thống đang bảo trì",
				Details: fmt.Sprintf("Hệ thống tạm khóa từ %d:00 đến %d:00 (%s) hằng ngày để bảo trì.",
					start, end, g.cfg.Timezone),
				MaintenanceWindow: Window{
					Start:    fmt.Sprintf("%d:00", start),
					End:      fmt.Sprintf("%d:00", end),
					Timezone: g.cfg.Timezone,
				},
				CurrentTime:    now.Format(displayLayout),
				NextAccessTime: g.NextAccess(now).Format(displayLayout),
			})
		}
	}
}

// BackupWindow allows only reads while the nightly backup runs
func (g *TimeGate) BackupWindow() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !g.cfg.Enabled || g.skipper(c) {
				return next(c)
			}
			now := g.Now()
			if !g.InBackupWindow(now) {
				return next(c)
			}
			switch c.Request().Method {
			case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
			default:
				return next(c)
			}

			logger.FromEcho(c).Warn("Write rejected during backup window",
				zap.String("method", c.Request().Method),
				zap.String("local_time", now.Format(displayLayout)))
			prometheus.RecordAccessDenied("backup")

			start := fmt.Sprintf("%d:00", g.cfg.BlockStartHour)
			end := fmt.Sprintf("%d:%02d", g.cfg.BlockStartHour, g.cfg.BackupWindowMinutes)
			return c.JSON(http.StatusServiceUnavailable, BackupResponse{
				Success: false,
				Message: "Hệ thống đang backup dữ liệu",
				Details: fmt.Sprintf("Chỉ cho phép truy cập đọc dữ liệu trong thời gian backup (%s-%s).", start, end),
				BackupWindow: Window{
					Start:    start,
					End:      end,
					Timezone: g.cfg.Timezone,
				},
				CurrentTime: now.Format(displayLayout),
			})
		}
	}
}

// HolidayFlag marks requests made on a public holiday with "is_holiday"
func (g *TimeGate) HolidayFlag() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if name, ok := g.Holiday(g.Now()); ok {
				c.Set("is_holiday", true)
				logger.FromEcho(c).Debug("Request on public holiday", zap.String("holiday", name))
			}
			return next(c)
		}
	}
}

// ClientTimezone echoes the server timezone and time when the client
// announces its own with X-Client-Timezone
func (g *TimeGate) ClientTimezone() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tz := c.Request().Header.Get("X-Client-Timezone"); tz != "" {
				logger.FromEcho(c).Debug("Client timezone",
					zap.String("client_timezone", tz),
					zap.String("server_timezone", g.cfg.Timezone))
				h := c.Response().Header()
				h.Set("X-Server-Timezone", g.cfg.Timezone)
				h.Set("X-Server-Time", g.Now().Format(time.RFC3339))
			}
			return next(c)
		}
	}
}

// Package handler exposes the rental services over HTTP with Echo. Every
// response uses the {success,message,data,pagination} envelope.
package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/backup"
	"rental-service/internal/middleware"
	"rental-service/internal/notify"
	"rental-service/internal/service"
	"rental-service/pkg/config"
	"rental-service/pkg/vietqr"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

// Version is reported by the index and health endpoints
const Version = "1.0.0"

const dateLayout = "2006-01-02"

// Handler holds the dependencies of every route
type Handler struct {
	svc      *service.Services
	notifier *notify.Notifier
	qr       *vietqr.Builder
	backups  *backup.Manager
	gate     *middleware.TimeGate
	cfg      *config.Config
	started  time.Time
}

// New creates the route handlers
func New(cfg *config.Config, svc *service.Services, notifier *notify.Notifier, qr *vietqr.Builder,
	backups *backup.Manager, gate *middleware.TimeGate) *Handler {
	return &Handler{
		svc:      svc,
		notifier: notifier,
		qr:       qr,
		backups:  backups,
		gate:     gate,
		cfg:      cfg,
		started:  time.Now(),
	}
}

// envelope is the success response body
type envelope struct {
	Success    bool                `json:"success"`
	Message    string              `json:"message,omitempty"`
	Data       interface{}         `json:"data,omitempty"`
	Pagination *service.Pagination `json:"pagination,omitempty"`
	Count      *int                `json:"count,omitempty"`
}

func ok(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

func created(c echo.Context, message string, data interface{}) error {
	return c.JSON(http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

func page(c echo.Context, data interface{}, p service.Pagination) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data, Pagination: &p})
}

func list(c echo.Context, data interface{}, n int) error {
	return c.JSON(http.StatusOK, envelope{Success: true, Data: data, Count: &n})
}

// bind decodes the body into req and validates its tags
func bind(c echo.Context, req interface{}) error {
	if err := c.Bind(req); err != nil {
		return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	return c.Validate(req)
}

// patchBody reads the body as a partial update. The patch decodes it over
// the stored row, so keys that were not sent keep their stored value.
func patchBody[T any](c echo.Context) (service.Patch[T], error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	body = bytes.TrimSpace(body)
	if len(body) > 0 && (body[0] != '{' || !json.Valid(body)) {
		return nil, apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	return func(row *T) error {
		if len(body) > 0 {
			if err := json.Unmarshal(body, row); err != nil {
				return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
			}
		}
		return c.Validate(row)
	}, nil
}

func idParam(c echo.Context) (uint, error) {
	return uintParam(c, "id")
}

func uintParam(c echo.Context, name string) (uint, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, apperr.Validation(name, "ID không hợp lệ")
	}
	return uint(n), nil
}

func listParams(c echo.Context) service.ListParams {
	return service.ListParams{
		Page:      queryInt(c, "page", 1),
		Limit:     queryInt(c, "limit", service.DefaultLimit),
		SortBy:    c.QueryParam("sortBy"),
		SortOrder: c.QueryParam("sortOrder"),
		Search:    strings.TrimSpace(c.QueryParam("search")),
	}
}

func queryInt(c echo.Context, name string, def int) int {
	n, err := strconv.Atoi(c.QueryParam(name))
	if err != nil {
		return def
	}
	return n
}

func queryUint(c echo.Context, name string) *uint {
	n, err := strconv.ParseUint(c.QueryParam(name), 10, 64)
	if err != nil || n == 0 {
		return nil
	}
	v := uint(n)
	return &v
}

func queryBool(c echo.Context, name string) *bool {
	b, err := strconv.ParseBool(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &b
}

func queryDecimal(c echo.Context, name string) *decimal.Decimal {
	d, err := decimal.NewFromString(c.QueryParam(name))
	if err != nil {
		return nil
	}
	return &d
}

func queryDate(c echo.Context, name string) *time.Time {
	raw := c.QueryParam(name)
	if raw == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, dateLayout} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t
		}
	}
	return nil
}

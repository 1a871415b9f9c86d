package handler

import (
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/internal/notify"
	"rental-service/pkg/discord"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotifyRequest is a free-form embed
type NotifyRequest struct {
	Title       string          `json:"title" validate:"notblank,max=256"`
	Description string          `json:"description" validate:"notblank,max=4096"`
	Color       int             `json:"color"`
	Fields      []discord.Field `json:"fields" validate:"max=25"`
	Footer      *discord.Footer `json:"footer"`
	Thumbnail   *discord.Image  `json:"thumbnail"`
	Image       *discord.Image  `json:"image"`
}

// PaymentReminderRequest names the payments to remind about. An empty list
// falls back to overdue and soon-due payments.
type PaymentReminderRequest struct {
	PaymentIDs []uint `json:"paymentIds"`
	Days       int    `json:"days" validate:"min=0,max=60"`
}

// ContractExpiryRequest names the contracts to warn about. An empty list
// falls back to contracts expiring within Days.
type ContractExpiryRequest struct {
	ContractIDs []uint `json:"contractIds"`
	Days        int    `json:"days" validate:"min=0,max=365"`
}

// SendNotification relays a custom embed
func (h *Handler) SendNotification(c echo.Context) error {
	var req NotifyRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	if err := c.Validate(&req); err != nil {
		return apperr.Validation("title", "Tiêu đề và mô tả là bắt buộc")
	}

	e := discord.Embed{
		Title:       req.Title,
		Description: req.Description,
		Color:       req.Color,
		Fields:      req.Fields,
		Footer:      req.Footer,
	}
	if req.Thumbnail != nil && req.Thumbnail.URL != "" {
		e.Thumbnail = req.Thumbnail
	}
	if req.Image != nil && req.Image.URL != "" {
		e.Image = req.Image
	}
	if err := h.notifier.Custom(c.Request().Context(), e); err != nil {
		return err
	}

	logger.FromEcho(c).Info("Discord notification sent", zap.String("title", req.Title))
	return ok(c, "Gửi thông báo Discord thành công", nil)
}

// SendPaymentReminder posts the reminder for the given or outstanding payments
func (h *Handler) SendPaymentReminder(c echo.Context) error {
	ctx := c.Request().Context()
	var req PaymentReminderRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var (
		payments []model.Payment
		err      error
	)
	if len(req.PaymentIDs) > 0 {
		payments, err = h.svc.Payments.GetMany(ctx, req.PaymentIDs)
	} else {
		payments, err = h.outstandingPayments(c, req.Days)
	}
	if err != nil {
		return err
	}
	if len(payments) == 0 {
		return apperr.Validation("paymentIds", "Danh sách thanh toán không hợp lệ")
	}

	if err := h.notifier.PaymentReminder(ctx, payments); err != nil {
		return err
	}
	logger.FromEcho(c).Info("Payment reminder sent", zap.Int("payments", len(payments)))
	return ok(c, "Gửi nhắc nhở thanh toán thành công", echo.Map{"count": len(payments)})
}

// outstandingPayments is overdue plus due within days, without duplicates
func (h *Handler) outstandingPayments(c echo.Context, days int) ([]model.Payment, error) {
	ctx := c.Request().Context()
	if days == 0 {
		days = defaultDueSoonDays
	}
	overdue, err := h.svc.Payments.FindOverdue(ctx)
	if err != nil {
		return nil, err
	}
	soon, err := h.svc.Payments.FindDueWithin(ctx, days)
	if err != nil {
		return nil, err
	}
	seen := make(map[uint]bool, len(overdue))
	for _, p := range overdue {
		seen[p.ID] = true
	}
	for _, p := range soon {
		if !seen[p.ID] {
			overdue = append(overdue, p)
		}
	}
	return overdue, nil
}

// SendContractExpiry posts the expiry warning
func (h *Handler) SendContractExpiry(c echo.Context) error {
	ctx := c.Request().Context()
	var req ContractExpiryRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	var (
		contracts []model.Contract
		err       error
	)
	if len(req.ContractIDs) > 0 {
		contracts, err = h.svc.Contracts.GetMany(ctx, req.ContractIDs)
	} else {
		days := req.Days
		if days == 0 {
			days = model.ExpiringSoonDays
		}
		contracts, err = h.svc.Contracts.FindExpiringWithin(ctx, days)
	}
	if err != nil {
		return err
	}
	if len(contracts) == 0 {
		return apperr.Validation("contractIds", "Danh sách hợp đồng không hợp lệ")
	}

	if err := h.notifier.ContractExpiry(ctx, contracts); err != nil {
		return err
	}
	logger.FromEcho(c).Info("Contract expiry notice sent", zap.Int("contracts", len(contracts)))
	return ok(c, "Gửi thông báo hợp đồng sắp hết hạn thành công", echo.Map{"count": len(contracts)})
}

// SendSystemStatus posts a health report, filling in live values the
// caller left out
func (h *Handler) SendSystemStatus(c echo.Context) error {
	var req notify.SystemStatus
	if err := bind(c, &req); err != nil {
		return err
	}
	if req.Uptime == "" {
		req.Uptime = time.Since(h.started).Round(time.Second).String()
	}
	if req.DBStatus == "" {
		req.DBStatus = h.dbStatus(c).Status
	}
	if req.MemoryUsage == "" {
		req.MemoryUsage = memoryUsage().HeapAlloc
	}

	if err := h.notifier.SystemStatus(c.Request().Context(), req); err != nil {
		return err
	}
	return ok(c, "Gửi trạng thái hệ thống thành công", nil)
}

// TestDiscord sends the webhook self-test
func (h *Handler) TestDiscord(c echo.Context) error {
	if err := h.notifier.Test(c.Request().Context()); err != nil {
		return err
	}
	return ok(c, "Test Discord webhook thành công", nil)
}

// WebhookInfo reports whether the webhook is configured and reachable
func (h *Handler) WebhookInfo(c echo.Context) error {
	client := h.notifier.Client()
	if !client.Configured() {
		return ok(c, "", echo.Map{
			"configured": false,
			"message":    "Discord webhook chưa được cấu hình",
		})
	}

	info, err := client.Info(c.Request().Context())
	if err != nil {
		logger.FromEcho(c).Warn("Discord webhook unreachable", zap.Error(err))
		return ok(c, "", echo.Map{
			"configured": true,
			"status":     "inactive",
			"error":      err.Error(),
		})
	}
	return ok(c, "", echo.Map{
		"configured":  true,
		"status":      "active",
		"webhookInfo": info,
	})
}

package handler

import (
	"fmt"

	"rental-service/internal/model"
	"rental-service/internal/service"
	"rental-service/pkg/logger"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

const defaultDueSoonDays = 3

// PayRequest settles a payment
type PayRequest struct {
	PaymentMethod model.PaymentMethod `json:"paymentMethod" validate:"omitempty,oneof=cash bank_transfer qr_code other"`
	Notes         string              `json:"notes" validate:"max=1000"`
	BankTransfer  *model.BankTransfer `json:"bankTransfer"`
}

// CancelRequest voids a payment
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

// BulkCreateRequest bills every active contract for one period
type BulkCreateRequest struct {
	Month   int    `json:"month" validate:"required,min=1,max=12"`
	Year    int    `json:"year" validate:"required,min=2020"`
	RoomIDs []uint `json:"roomIds"`
}

// ListPayments returns one page of payments
func (h *Handler) ListPayments(c echo.Context) error {
	f := service.PaymentFilter{
		ListParams:    listParams(c),
		Status:        c.QueryParam("status"),
		PaymentMethod: c.QueryParam("paymentMethod"),
		RoomID:        queryUint(c, "roomId"),
		TenantID:      queryUint(c, "tenantId"),
		ContractID:    queryUint(c, "contractId"),
		Month:         queryInt(c, "month", 0),
		Year:          queryInt(c, "year", 0),
	}
	payments, p, err := h.svc.Payments.List(c.Request().Context(), f)
	if err != nil {
		return err
	}
	logger.FromEcho(c).Info("Payments listed", zap.Int("count", len(payments)))
	return page(c, payments, p)
}

// OverduePayments returns unpaid bills past their due date
func (h *Handler) OverduePayments(c echo.Context) error {
	payments, err := h.svc.Payments.FindOverdue(c.Request().Context())
	if err != nil {
		return err
	}
	return list(c, payments, len(payments))
}

// DueSoonPayments returns pending bills due within ?days (default 3)
func (h *Handler) DueSoonPayments(c echo.Context) error {
	days := queryInt(c, "days", defaultDueSoonDays)
	payments, err := h.svc.Payments.FindDueWithin(c.Request().Context(), days)
	if err != nil {
		return err
	}
	return list(c, payments, len(payments))
}

// GetPayment returns one payment with its parties
func (h *Handler) GetPayment(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return err
	}
	payment, err := h.svc.Payments.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}
	return ok(c, "", payment)
}

// CreatePayment bills one period of a contract
func (h *Handler) CreatePayment(c echo.Context) error {
	log := logger.FromEcho(c)

	var payment model.Payment
	if err := bind(c, &payment); err != nil {
		return err
	}
	if err := h.svc.Payments.Create(c.Request().Context(), &payment); err != nil {
		log.Warn("Payment creation failed", zap.Uint("contract_id", payment.ContractID), zap.Error(err))
		return err
	}

	log.Info("Payment created",
		zap.Uint("payment_id", payment.ID),
		zap.String("payment_code", payment.PaymentCode),
		zap.String("total", payment.TotalAmount.String()))
	return created(c, "Tạo thanh toán mới thành công", payment)
}

// UpdatePayment edits an unpaid bill
func (h *Handler) UpdatePayment(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	patch, err := patchBody[model.Payment](c)
	if err != nil {
		return err
	}
	payment, err := h.svc.Payments.Update(c.Request().Context(), id, patch)
	if err != nil {
		log.Warn("Payment update failed", zap.Uint("payment_id", id), zap.Error(err))
		return err
	}

	log.Info("Payment updated", zap.Uint("payment_id", id), zap.String("total", payment.TotalAmount.String()))
	return ok(c, "Cập nhật thanh toán thành công", payment)
}

// PayPayment marks a bill as paid
func (h *Handler) PayPayment(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req PayRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	payment, err := h.svc.Payments.MarkPaid(c.Request().Context(), id, service.MarkPaidInput{
		Method:       req.PaymentMethod,
		Notes:        req.Notes,
		BankTransfer: req.BankTransfer,
	})
	if err != nil {
		log.Warn("Payment settlement refused", zap.Uint("payment_id", id), zap.Error(err))
		return err
	}

	log.Info("Payment settled", zap.Uint("payment_id", id), zap.String("method", string(payment.PaymentMethod)))
	return ok(c, "Đánh dấu thanh toán thành công", payment)
}

// CancelPayment voids an unpaid bill
func (h *Handler) CancelPayment(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}

	var req CancelRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	payment, err := h.svc.Payments.Cancel(c.Request().Context(), id, req.Reason)
	if err != nil {
		log.Warn("Payment cancellation refused", zap.Uint("payment_id", id), zap.Error(err))
		return err
	}

	log.Info("Payment cancelled", zap.Uint("payment_id", id))
	return ok(c, "Hủy thanh toán thành công", payment)
}

// DeletePayment archives an unpaid bill
func (h *Handler) DeletePayment(c echo.Context) error {
	log := logger.FromEcho(c)
	id, err := idParam(c)
	if err != nil {
		return err
	}
	if err := h.svc.Payments.Delete(c.Request().Context(), id); err != nil {
		log.Warn("Payment deletion refused", zap.Uint("payment_id", id), zap.Error(err))
		return err
	}
	log.Info("Payment deleted", zap.Uint("payment_id", id))
	return ok(c, "Xóa thanh toán thành công", nil)
}

// BulkCreatePayments bills every active contract for a period
func (h *Handler) BulkCreatePayments(c echo.Context) error {
	log := logger.FromEcho(c)

	var req BulkCreateRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	res, err := h.svc.Payments.BulkCreate(c.Request().Context(), req.Month, req.Year, req.RoomIDs)
	if err != nil {
		return err
	}

	log.Info("Bulk billing finished",
		zap.Int("month", req.Month),
		zap.Int("year", req.Year),
		zap.Int("created", res.Created),
		zap.Int("errors", res.Errors))
	return ok(c, fmt.Sprintf("Tạo thành công %d thanh toán, %d lỗi", res.Created, res.Errors), res)
}

// PaymentStats returns the billing overview
func (h *Handler) PaymentStats(c echo.Context) error {
	stats, err := h.svc.Payments.Stats(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, "", stats)
}

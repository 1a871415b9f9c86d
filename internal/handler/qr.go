package handler

import (
	"fmt"
	"strings"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/pkg/logger"
	"rental-service/pkg/vietqr"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// GenerateQRRequest asks for an ad-hoc payment link
type GenerateQRRequest struct {
	Amount      decimal.Decimal `json:"amount"`
	RoomID      string          `json:"roomId" validate:"notblank"`
	TenantName  string          `json:"tenantName" validate:"notblank"`
	Description string          `json:"description" validate:"max=200"`
}

// PaymentQRRequest asks for the link of a stored payment
type PaymentQRRequest struct {
	PaymentID uint `json:"paymentId" validate:"required"`
}

// BatchQRRequest asks for links of several stored payments
type BatchQRRequest struct {
	PaymentIDs []uint `json:"paymentIds" validate:"required,min=1,max=100"`
}

// BankInfo describes the receiving account
type BankInfo struct {
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
	BankCode      string `json:"bankCode"`
	BankName      string `json:"bankName"`
}

// PaymentQR is the link for one stored payment
type PaymentQR struct {
	PaymentID   uint            `json:"paymentId"`
	PaymentCode string          `json:"paymentCode"`
	QRURL       string          `json:"qrUrl"`
	Amount      decimal.Decimal `json:"amount"`
	DueDate     time.Time       `json:"dueDate"`
	Room        *model.Room     `json:"room,omitempty"`
	Tenant      *model.Tenant   `json:"tenant,omitempty"`
	Description string          `json:"description"`
}

func (h *Handler) bankInfo() BankInfo {
	acc := h.qr.Account
	return BankInfo{
		AccountNumber: acc.AccountNumber,
		AccountName:   acc.AccountName,
		BankCode:      strings.ToUpper(acc.BankCode),
		BankName:      vietqr.BankName(acc.BankCode),
	}
}

func (h *Handler) paymentQR(p model.Payment) PaymentQR {
	room, tenant := "", ""
	if p.Room != nil {
		room = p.Room.Number
	}
	if p.Tenant != nil {
		tenant = p.Tenant.Name
	}
	desc := vietqr.PaymentDescription(p.PaymentCode, room, tenant)
	return PaymentQR{
		PaymentID:   p.ID,
		PaymentCode: p.PaymentCode,
		QRURL:       h.qr.URL(p.TotalAmount, desc),
		Amount:      p.TotalAmount,
		DueDate:     p.DueDate,
		Room:        p.Room,
		Tenant:      p.Tenant,
		Description: desc,
	}
}

// GenerateQR builds an ad-hoc payment link
func (h *Handler) GenerateQR(c echo.Context) error {
	var req GenerateQRRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	if err := c.Validate(&req); err != nil || req.Amount.IsZero() {
		return apperr.Validation("amount", "Số tiền, ID phòng và tên khách thuê là bắt buộc")
	}
	if !req.Amount.IsPositive() {
		return apperr.Validation("amount", "Số tiền phải là số dương")
	}

	desc := req.Description
	if desc == "" {
		desc = vietqr.RoomDescription(req.RoomID, req.TenantName)
	}
	info := h.bankInfo()

	logger.FromEcho(c).Info("Payment QR generated",
		zap.String("room", req.RoomID),
		zap.String("amount", req.Amount.String()))
	return ok(c, "Tạo QR code thanh toán thành công", echo.Map{
		"qrUrl":         h.qr.URL(req.Amount, desc),
		"amount":        req.Amount,
		"accountNumber": info.AccountNumber,
		"accountName":   info.AccountName,
		"bankCode":      info.BankCode,
		"description":   desc,
		"roomId":        req.RoomID,
		"tenantName":    req.TenantName,
	})
}

// PaymentQRCode builds the link for one unpaid payment
func (h *Handler) PaymentQRCode(c echo.Context) error {
	var req PaymentQRRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	if err := c.Validate(&req); err != nil {
		return apperr.Validation("paymentId", "ID thanh toán là bắt buộc")
	}

	payment, err := h.svc.Payments.Get(c.Request().Context(), req.PaymentID)
	if err != nil {
		return err
	}
	if payment.Status == model.PaymentPaid {
		return apperr.Precondition("Thanh toán đã được thanh toán")
	}

	qr := h.paymentQR(*payment)
	logger.FromEcho(c).Info("Payment QR generated", zap.String("payment_code", payment.PaymentCode))
	return ok(c, "Tạo QR code cho thanh toán thành công", echo.Map{
		"qrUrl":       qr.QRURL,
		"payment":     qr,
		"bankInfo":    h.bankInfo(),
		"description": qr.Description,
	})
}

// BatchQR builds links for every unpaid payment in the list
func (h *Handler) BatchQR(c echo.Context) error {
	var req BatchQRRequest
	if err := c.Bind(&req); err != nil {
		return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	if err := c.Validate(&req); err != nil {
		return apperr.Validation("paymentIds", "Danh sách ID thanh toán không hợp lệ")
	}

	payments, err := h.svc.Payments.GetMany(c.Request().Context(), req.PaymentIDs)
	if err != nil {
		return err
	}
	codes := make([]PaymentQR, 0, len(payments))
	total := decimal.Zero
	for _, p := range payments {
		if p.Status == model.PaymentPaid {
			continue
		}
		codes = append(codes, h.paymentQR(p))
		total = total.Add(p.TotalAmount)
	}
	if len(codes) == 0 {
		return apperr.NotFound("Không tìm thấy thanh toán hợp lệ")
	}

	logger.FromEcho(c).Info("Batch QR generated", zap.Int("count", len(codes)))
	return ok(c, fmt.Sprintf("Tạo QR code hàng loạt thành công cho %d thanh toán", len(codes)), echo.Map{
		"qrCodes":     codes,
		"bankInfo":    h.bankInfo(),
		"total":       len(codes),
		"totalAmount": total,
	})
}

// Banks lists the common receiving banks
func (h *Handler) Banks(c echo.Context) error {
	return ok(c, "", echo.Map{
		"banks": vietqr.Banks,
		"current": echo.Map{
			"code": h.qr.Account.BankCode,
			"name": vietqr.BankName(h.qr.Account.BankCode),
		},
		"note": "Chỉ hiển thị một số ngân hàng phổ biến. VietQR hỗ trợ hầu hết các ngân hàng tại Việt Nam.",
	})
}

// QRConfig reports the configured receiving account
func (h *Handler) QRConfig(c echo.Context) error {
	acc := h.qr.Account
	return ok(c, "", echo.Map{
		"bankCode":      acc.BankCode,
		"bankName":      vietqr.BankName(acc.BankCode),
		"accountNumber": acc.AccountNumber,
		"accountName":   acc.AccountName,
		"baseUrl":       h.qr.BaseURL,
		"configured":    acc.Complete(),
	})
}

// ValidateQR checks an account and returns a test link
func (h *Handler) ValidateQR(c echo.Context) error {
	var acc vietqr.Account
	if err := c.Bind(&acc); err != nil {
		return apperr.Validation("body", "Dữ liệu gửi lên không đúng định dạng")
	}
	if problems := acc.Validate(); len(problems) > 0 {
		verr := &apperr.ValidationError{}
		for _, p := range problems {
			verr.Add("account", p)
		}
		return verr
	}

	return ok(c, "Thông tin QR hợp lệ", echo.Map{
		"bankCode":      acc.BankCode,
		"bankName":      vietqr.BankName(acc.BankCode),
		"accountNumber": acc.AccountNumber,
		"accountName":   acc.AccountName,
		"testUrl":       h.qr.URLFor(acc, decimal.NewFromInt(10000), "Test QR Code"),
	})
}

package model

import (
	"encoding/json"
	"time"

	"rental-service/internal/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// PaymentStatus is the billing state of a payment
type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentPaid      PaymentStatus = "paid"
	PaymentOverdue   PaymentStatus = "overdue"
	PaymentCancelled PaymentStatus = "cancelled"
)

// Valid reports whether s is a known payment status
func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentPending, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// PaymentMethod is how a payment was settled
type PaymentMethod string

const (
	MethodCash         PaymentMethod = "cash"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodQRCode       PaymentMethod = "qr_code"
	MethodOther        PaymentMethod = "other"
)

// Valid reports whether m is a known payment method
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodQRCode, MethodOther:
		return true
	}
	return false
}

// Status history reasons
const (
	ReasonPaid      = "Thanh toán thành công"
	ReasonCancelled = "Hủy thanh toán"
)

// OtherFee is an itemised extra charge
type OtherFee struct {
	Description string          `json:"description"`
	Amount      decimal.Decimal `json:"amount"`
}

// BankTransfer holds the details of a bank transfer payment
type BankTransfer struct {
	BankName      string     `json:"bankName" gorm:"column:bank_name"`
	AccountNumber string     `json:"accountNumber" gorm:"column:account_number"`
	TransferCode  string     `json:"transferCode" gorm:"column:transfer_code"`
	TransferDate  *time.Time `json:"transferDate" gorm:"column:transfer_date"`
}

// Receipt is a scanned proof of payment
type Receipt struct {
	URL         string    `json:"url"`
	Description string    `json:"description"`
	UploadedAt  time.Time `json:"uploadedAt"`
}

// StatusChange is one entry of the payment status log
type StatusChange struct {
	Status    PaymentStatus `json:"status"`
	ChangedAt time.Time     `json:"changedAt"`
	ChangedBy string        `json:"changedBy"`
	Reason    string        `json:"reason"`
}

// Payment is the bill of one contract for one month
type Payment struct {
	ID                uint                              `json:"id" gorm:"primarykey"`
	PaymentCode       string                            `json:"paymentCode" gorm:"type:varchar(20);uniqueIndex;not null"`
	RoomID            uint                              `json:"roomId" gorm:"index;not null"`
	Room              *Room                             `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	TenantID          uint                              `json:"tenantId" gorm:"index;not null"`
	Tenant            *Tenant                           `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	ContractID        uint                              `json:"contractId" gorm:"index:idx_payment_period,priority:1;not null"`
	Contract          *Contract                         `json:"contract,omitempty" gorm:"foreignKey:ContractID"`
	Month             int                               `json:"month" gorm:"index:idx_payment_period,priority:2;not null"`
	Year              int                               `json:"year" gorm:"index:idx_payment_period,priority:3;not null"`
	DueDate           time.Time                         `json:"dueDate" gorm:"index;not null"`
	PaidDate          *time.Time                        `json:"paidDate" gorm:"index"`
	RentAmount        decimal.Decimal                   `json:"rentAmount" gorm:"type:numeric(15,2);not null"`
	ElectricityUsage  decimal.Decimal                   `json:"electricityUsage" gorm:"type:numeric(12,2);not null"`
	ElectricityPrice  decimal.Decimal                   `json:"electricityPrice" gorm:"type:numeric(15,2);not null"`
	ElectricityAmount decimal.Decimal                   `json:"electricityAmount" gorm:"type:numeric(15,2);not null"`
	WaterUsage        decimal.Decimal                   `json:"waterUsage" gorm:"type:numeric(12,2);not null"`
	WaterPrice        decimal.Decimal                   `json:"waterPrice" gorm:"type:numeric(15,2);not null"`
	WaterAmount       decimal.Decimal                   `json:"waterAmount" gorm:"type:numeric(15,2);not null"`
	InternetAmount    decimal.Decimal                   `json:"internetAmount" gorm:"type:numeric(15,2);not null"`
	ParkingAmount     decimal.Decimal                   `json:"parkingAmount" gorm:"type:numeric(15,2);not null"`
	CleaningAmount    decimal.Decimal                   `json:"cleaningAmount" gorm:"type:numeric(15,2);not null"`
	OtherFees         datatypes.JSONSlice[OtherFee]     `json:"otherFees"`
	Discount          decimal.Decimal                   `json:"discount" gorm:"type:numeric(15,2);not null"`
	DiscountReason    string                            `json:"discountReason"`
	TotalAmount       decimal.Decimal                   `json:"totalAmount" gorm:"type:numeric(15,2);not null"`
	Status            PaymentStatus                     `json:"status" gorm:"type:varchar(20);index;not null"`
	PaymentMethod     PaymentMethod                     `json:"paymentMethod" gorm:"type:varchar(20);not null"`
	BankTransfer      BankTransfer                      `json:"bankTransfer" gorm:"embedded;embeddedPrefix:bank_"`
	Notes             string                            `json:"notes" gorm:"type:text"`
	CollectedBy       string                            `json:"collectedBy" gorm:"type:varchar(100)"`
	Receipts          datatypes.JSONSlice[Receipt]      `json:"receipts"`
	StatusHistory     datatypes.JSONSlice[StatusChange] `json:"statusHistory"`
	IsActive          bool                              `json:"isActive" gorm:"index;not null"`
	CreatedAt         time.Time                         `json:"createdAt"`
	UpdatedAt         time.Time                         `json:"updatedAt"`
}

// OtherFeesTotal sums the itemised fees
func (p *Payment) OtherFeesTotal() decimal.Decimal {
	sum := decimal.Zero
	for _, f := range p.OtherFees {
		sum = sum.Add(f.Amount)
	}
	return sum
}

// Recompute derives the utility amounts and the total from their inputs
func (p *Payment) Recompute() {
	p.ElectricityAmount = p.ElectricityUsage.Mul(p.ElectricityPrice)
	p.WaterAmount = p.WaterUsage.Mul(p.WaterPrice)
	p.TotalAmount = p.RentAmount.
		Add(p.ElectricityAmount).
		Add(p.WaterAmount).
		Add(p.InternetAmount).
		Add(p.ParkingAmount).
		Add(p.CleaningAmount).
		Add(p.OtherFeesTotal()).
		Sub(p.Discount)
}

// RecordStatus appends to the status history
func (p *Payment) RecordStatus(status PaymentStatus, reason string, at time.Time) {
	p.StatusHistory = append(p.StatusHistory, StatusChange{
		Status:    status,
		ChangedAt: at,
		ChangedBy: "Admin",
		Reason:    reason,
	})
}

// MarkPaid settles the payment
func (p *Payment) MarkPaid(method PaymentMethod, notes string, at time.Time) {
	if method == "" {
		method = MethodCash
	}
	p.Status = PaymentPaid
	p.PaidDate = &at
	p.PaymentMethod = method
	if notes != "" {
		p.Notes = notes
	}
	p.RecordStatus(PaymentPaid, ReasonPaid, at)
}

// Cancel voids the payment and keeps the reason in notes and history
func (p *Payment) Cancel(reason string, at time.Time) {
	p.Status = PaymentCancelled
	if reason != "" {
		p.Notes = p.Notes + "\nLý do hủy: " + reason
	} else {
		reason = ReasonCancelled
	}
	p.RecordStatus(PaymentCancelled, reason, at)
}

// DerivedStatus is the status the payment should show at now
func (p *Payment) DerivedStatus(now time.Time) PaymentStatus {
	switch p.Status {
	case PaymentPaid, PaymentCancelled:
		return p.Status
	}
	if p.DueDate.Before(now) {
		return PaymentOverdue
	}
	return PaymentPending
}

// DaysOverdue is the ceiling of elapsed days since the due date, 0 when
// settled or not yet due
func (p *Payment) DaysOverdue(now time.Time) int {
	if p.Status == PaymentPaid || p.Status == PaymentCancelled {
		return 0
	}
	if !p.DueDate.Before(now) {
		return 0
	}
	return ceilDays(now.Sub(p.DueDate))
}

// Validate checks field constraints
func (p *Payment) Validate() error {
	v := &apperr.ValidationError{}
	if p.Month < 1 || p.Month > 12 {
		v.Add("month", "Tháng phải từ 1-12")
	}
	if p.Year < 2020 {
		v.Add("year", "Năm phải từ 2020 trở lên")
	}
	if p.DueDate.IsZero() {
		v.Add("dueDate", "Ngày hạn thanh toán là bắt buộc")
	}
	for _, m := range []struct {
		field  string
		amount decimal.Decimal
	}{
		{"rentAmount", p.RentAmount},
		{"electricityUsage", p.ElectricityUsage},
		{"electricityPrice", p.ElectricityPrice},
		{"waterUsage", p.WaterUsage},
		{"waterPrice", p.WaterPrice},
		{"internetAmount", p.InternetAmount},
		{"parkingAmount", p.ParkingAmount},
		{"cleaningAmount", p.CleaningAmount},
		{"discount", p.Discount},
	} {
		if m.amount.IsNegative() {
			v.Add(m.field, m.field+" phải lớn hơn hoặc bằng 0")
		}
	}
	for _, f := range p.OtherFees {
		if f.Description == "" {
			v.Add("otherFees.description", "Mô tả phí là bắt buộc")
		}
		if f.Amount.IsNegative() {
			v.Add("otherFees.amount", "Số tiền phải lớn hơn hoặc bằng 0")
		}
	}
	if p.TotalAmount.IsNegative() {
		v.Add("totalAmount", "Tổng tiền phải lớn hơn hoặc bằng 0")
	}
	if !p.Status.Valid() {
		v.Add("status", "Trạng thái thanh toán không hợp lệ")
	}
	if !p.PaymentMethod.Valid() {
		v.Add("paymentMethod", "Phương thức thanh toán không hợp lệ")
	}
	return v.OrNil()
}

// BeforeSave recomputes amounts, validates, and flips an overdue pending
// payment to overdue
func (p *Payment) BeforeSave(tx *gorm.DB) error {
	if p.Status == "" {
		p.Status = PaymentPending
	}
	if p.PaymentMethod == "" {
		p.PaymentMethod = MethodCash
	}
	if p.CollectedBy == "" {
		p.CollectedBy = "Admin"
	}
	p.Recompute()
	if err := p.Validate(); err != nil {
		return err
	}
	if p.Status == PaymentPending && p.DueDate.Before(Now()) {
		p.Status = PaymentOverdue
	}
	return nil
}

// MarshalJSON adds the derived fields
func (p Payment) MarshalJSON() ([]byte, error) {
	type plain Payment
	now := Now()
	return json.Marshal(struct {
		plain
		PaymentStatus PaymentStatus `json:"paymentStatus"`
		DaysOverdue   int           `json:"daysOverdue"`
	}{
		plain:         plain(p),
		PaymentStatus: p.DerivedStatus(now),
		DaysOverdue:   p.DaysOverdue(now),
	})
}

// DueDateFor returns the due date of a billing period; days past the end of
// the month roll over into the next one
func DueDateFor(year, month, paymentDay int, loc *time.Location) time.Time {
	return time.Date(year, time.Month(month), paymentDay, 0, 0, 0, 0, loc)
}

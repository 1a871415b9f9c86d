package model

import (
	"encoding/json"
	"time"

	"rental-service/internal/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ContractStatus is the stored lifecycle state of a lease
type ContractStatus string

const (
	ContractActive     ContractStatus = "active"
	ContractExpired    ContractStatus = "expired"
	ContractTerminated ContractStatus = "terminated"
	ContractRenewed    ContractStatus = "renewed"
)

// ContractExpiringSoon is only ever derived, never stored
const ContractExpiringSoon ContractStatus = "expiring_soon"

// ExpiringSoonDays is the window used by EffectiveStatus
const ExpiringSoonDays = 30

// DefaultRenewalReason is recorded when a renewal gives no reason
const DefaultRenewalReason = "Gia hạn hợp đồng"

// Valid reports whether s is a storable contract status
func (s ContractStatus) Valid() bool {
	switch s {
	case ContractActive, ContractExpired, ContractTerminated, ContractRenewed:
		return true
	}
	return false
}

// Witness signed the contract alongside the parties
type Witness struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	IDCard string `json:"idCard"`
}

// Renewal is one entry of the renewal log
type Renewal struct {
	OldEndDate  time.Time `json:"oldEndDate"`
	NewEndDate  time.Time `json:"newEndDate"`
	RenewalDate time.Time `json:"renewalDate"`
	Reason      string    `json:"reason"`
}

// Contract is a lease binding one tenant to one room
type Contract struct {
	ID                uint                          `json:"id" gorm:"primarykey"`
	ContractNumber    string                        `json:"contractNumber" gorm:"type:varchar(20);uniqueIndex;not null"`
	RoomID            uint                          `json:"roomId" gorm:"index;not null"`
	Room              *Room                         `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	TenantID          uint                          `json:"tenantId" gorm:"index;not null"`
	Tenant            *Tenant                       `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	StartDate         time.Time                     `json:"startDate" gorm:"index;not null"`
	EndDate           time.Time                     `json:"endDate" gorm:"index;not null"`
	MonthlyRent       decimal.Decimal               `json:"monthlyRent" gorm:"type:numeric(15,2);not null"`
	Deposit           decimal.Decimal               `json:"deposit" gorm:"type:numeric(15,2);not null"`
	ElectricityPrice  decimal.Decimal               `json:"electricityPrice" gorm:"type:numeric(15,2);not null"`
	WaterPrice        decimal.Decimal               `json:"waterPrice" gorm:"type:numeric(15,2);not null"`
	InternetPrice     decimal.Decimal               `json:"internetPrice" gorm:"type:numeric(15,2);not null"`
	ParkingPrice      decimal.Decimal               `json:"parkingPrice" gorm:"type:numeric(15,2);not null"`
	CleaningPrice     decimal.Decimal               `json:"cleaningPrice" gorm:"type:numeric(15,2);not null"`
	PaymentDay        int                           `json:"paymentDay" gorm:"not null"`
	Status            ContractStatus                `json:"status" gorm:"type:varchar(20);index;not null"`
	Terms             string                        `json:"terms" gorm:"type:text"`
	Rules             datatypes.JSONSlice[string]   `json:"rules"`
	Witnesses         datatypes.JSONSlice[Witness]  `json:"witnesses"`
	Documents         datatypes.JSONSlice[Document] `json:"documents"`
	RenewalHistory    datatypes.JSONSlice[Renewal]  `json:"renewalHistory"`
	TerminationReason string                        `json:"terminationReason"`
	TerminationDate   *time.Time                    `json:"terminationDate"`
	Notes             string                        `json:"notes" gorm:"type:text"`
	Payments          []Payment                     `json:"payments,omitempty" gorm:"foreignKey:ContractID"`
	IsActive          bool                          `json:"isActive" gorm:"index;not null"`
	CreatedAt         time.Time                     `json:"createdAt"`
	UpdatedAt         time.Time                     `json:"updatedAt"`
}

// DurationInMonths is ceil(ceil(days)/30) between start and end
func (c *Contract) DurationInMonths() int {
	d := c.EndDate.Sub(c.StartDate)
	if d < 0 {
		d = -d
	}
	days := ceilDays(d)
	return (days + 29) / 30
}

// EffectiveStatus folds the end date into the stored status
func (c *Contract) EffectiveStatus(now time.Time) ContractStatus {
	if c.Status == ContractTerminated {
		return ContractTerminated
	}
	if c.Status == ContractExpired || c.EndDate.Before(now) {
		return ContractExpired
	}
	if ceilDays(c.EndDate.Sub(now)) <= ExpiringSoonDays {
		return ContractExpiringSoon
	}
	return ContractActive
}

// DaysRemaining is the number of whole days until the end date
func (c *Contract) DaysRemaining(now time.Time) int {
	return int(c.EndDate.Sub(now) / day)
}

// Renew records a renewal and extends the end date
func (c *Contract) Renew(newEndDate time.Time, reason string, at time.Time) {
	if reason == "" {
		reason = DefaultRenewalReason
	}
	c.RenewalHistory = append(c.RenewalHistory, Renewal{
		OldEndDate:  c.EndDate,
		NewEndDate:  newEndDate,
		RenewalDate: at,
		Reason:      reason,
	})
	c.EndDate = newEndDate
	c.Status = ContractRenewed
}

// Terminate ends the lease early
func (c *Contract) Terminate(reason string, at time.Time) {
	c.Status = ContractTerminated
	c.TerminationReason = reason
	c.TerminationDate = &at
}

// Validate checks field constraints
func (c *Contract) Validate() error {
	v := &apperr.ValidationError{}
	if c.StartDate.IsZero() {
		v.Add("startDate", "Ngày bắt đầu là bắt buộc")
	}
	if c.EndDate.IsZero() {
		v.Add("endDate", "Ngày kết thúc là bắt buộc")
	} else if !c.EndDate.After(c.StartDate) {
		v.Add("endDate", "Ngày kết thúc phải sau ngày bắt đầu")
	}
	if c.PaymentDay < 1 || c.PaymentDay > 31 {
		v.Add("paymentDay", "Ngày thanh toán phải từ 1-31")
	}
	for _, m := range []struct {
		field  string
		amount decimal.Decimal
	}{
		{"monthlyRent", c.MonthlyRent},
		{"deposit", c.Deposit},
		{"electricityPrice", c.ElectricityPrice},
		{"waterPrice", c.WaterPrice},
		{"internetPrice", c.InternetPrice},
		{"parkingPrice", c.ParkingPrice},
		{"cleaningPrice", c.CleaningPrice},
	} {
		if m.amount.IsNegative() {
			v.Add(m.field, m.field+" phải lớn hơn hoặc bằng 0")
		}
	}
	for _, w := range c.Witnesses {
		if !ValidPhone(w.Phone) {
			v.Add("witnesses.phone", "Số điện thoại người làm chứng không hợp lệ")
		}
		if !ValidIDCard(w.IDCard) {
			v.Add("witnesses.idCard", "Số CMND/CCCD người làm chứng không hợp lệ")
		}
	}
	if !c.Status.Valid() {
		v.Add("status", "Trạng thái hợp đồng không hợp lệ")
	}
	return v.OrNil()
}

// BeforeSave validates the row and expires an active contract whose end
// date has passed
func (c *Contract) BeforeSave(tx *gorm.DB) error {
	if c.Status == "" {
		c.Status = ContractActive
	}
	if err := c.Validate(); err != nil {
		return err
	}
	if c.Status == ContractActive && c.EndDate.Before(Now()) {
		c.Status = ContractExpired
	}
	return nil
}

// MarshalJSON adds the derived fields
func (c Contract) MarshalJSON() ([]byte, error) {
	type plain Contract
	return json.Marshal(struct {
		plain
		DurationInMonths int            `json:"durationInMonths"`
		ContractStatus   ContractStatus `json:"contractStatus"`
	}{
		plain:            plain(c),
		DurationInMonths: c.DurationInMonths(),
		ContractStatus:   c.EffectiveStatus(Now()),
	})
}

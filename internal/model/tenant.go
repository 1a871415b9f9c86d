package model

import (
	"fmt"
	"strings"
	"time"

	"rental-service/internal/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// TenantStatus is the lifecycle state of a renter
type TenantStatus string

const (
	TenantActive   TenantStatus = "active"
	TenantInactive TenantStatus = "inactive"
	TenantMovedOut TenantStatus = "moved_out"
)

// Valid reports whether s is a known tenant status
func (s TenantStatus) Valid() bool {
	switch s {
	case TenantActive, TenantInactive, TenantMovedOut:
		return true
	}
	return false
}

// Gender values accepted for tenants
const (
	GenderMale   = "male"
	GenderFemale = "female"
	GenderOther  = "other"
)

// Address is a Vietnamese postal address
type Address struct {
	Street   string `json:"street" gorm:"column:street"`
	Ward     string `json:"ward" gorm:"column:ward"`
	District string `json:"district" gorm:"column:district"`
	City     string `json:"city" gorm:"column:city"`
}

// EmergencyContact is who to call when something happens to the tenant
type EmergencyContact struct {
	Name         string `json:"name" gorm:"column:name"`
	Phone        string `json:"phone" gorm:"column:phone"`
	Relationship string `json:"relationship" gorm:"column:relationship"`
}

// Tenant is a renter
type Tenant struct {
	ID               uint                          `json:"id" gorm:"primarykey"`
	Name             string                        `json:"name" gorm:"type:varchar(100);not null"`
	Phone            string                        `json:"phone" gorm:"type:varchar(11);uniqueIndex;not null"`
	Email            string                        `json:"email" gorm:"type:varchar(255);uniqueIndex;not null"`
	IDCard           string                        `json:"idCard" gorm:"column:id_card;type:varchar(12);uniqueIndex;not null"`
	DateOfBirth      time.Time                     `json:"dateOfBirth"`
	Gender           string                        `json:"gender" gorm:"type:varchar(10)"`
	Address          Address                       `json:"address" gorm:"embedded;embeddedPrefix:address_"`
	EmergencyContact EmergencyContact              `json:"emergencyContact" gorm:"embedded;embeddedPrefix:emergency_"`
	Occupation       string                        `json:"occupation"`
	Workplace        string                        `json:"workplace"`
	RoomID           *uint                         `json:"roomId" gorm:"index"`
	Room             *Room                         `json:"room,omitempty" gorm:"foreignKey:RoomID"`
	MoveInDate       *time.Time                    `json:"moveInDate"`
	MoveOutDate      *time.Time                    `json:"moveOutDate"`
	Deposit          decimal.Decimal               `json:"deposit" gorm:"type:numeric(15,2);not null"`
	Status           TenantStatus                  `json:"status" gorm:"type:varchar(20);index;not null"`
	Notes            string                        `json:"notes" gorm:"type:text"`
	Documents        datatypes.JSONSlice[Document] `json:"documents"`
	Contracts        []Contract                    `json:"contracts,omitempty" gorm:"foreignKey:TenantID"`
	Payments         []Payment                     `json:"payments,omitempty" gorm:"foreignKey:TenantID"`
	IsActive         bool                          `json:"isActive" gorm:"index;not null"`
	CreatedAt        time.Time                     `json:"createdAt"`
	UpdatedAt        time.Time                     `json:"updatedAt"`
}

// FullAddress joins the address parts
func (t *Tenant) FullAddress() string {
	parts := []string{t.Address.Street, t.Address.Ward, t.Address.District, t.Address.City}
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, ", ")
}

// HasRoom reports whether the tenant is currently renting
func (t *Tenant) HasRoom() bool {
	return t.RoomID != nil && t.Status == TenantActive
}

// Age returns completed years at the given time
func (t *Tenant) Age(at time.Time) int {
	if t.DateOfBirth.IsZero() {
		return 0
	}
	years := at.Year() - t.DateOfBirth.Year()
	if at.YearDay() < t.DateOfBirth.YearDay() {
		years--
	}
	return years
}

// AppendNote adds a line to the free-text notes
func (t *Tenant) AppendNote(line string) {
	if line == "" {
		return
	}
	t.Notes = t.Notes + "\n" + line
}

// Validate checks field constraints
func (t *Tenant) Validate() error {
	v := &apperr.ValidationError{}
	if strings.TrimSpace(t.Name) == "" {
		v.Add("name", "Tên khách thuê là bắt buộc")
	} else if len([]rune(t.Name)) > 100 {
		v.Add("name", "Tên không được vượt quá 100 ký tự")
	}
	if !ValidPhone(t.Phone) {
		v.Add("phone", "Số điện thoại không hợp lệ")
	}
	if !ValidEmail(t.Email) {
		v.Add("email", "Email không hợp lệ")
	}
	if !ValidIDCard(t.IDCard) {
		v.Add("idCard", "Số CMND/CCCD không hợp lệ")
	}
	if !t.DateOfBirth.IsZero() && !t.DateOfBirth.Before(Now()) {
		v.Add("dateOfBirth", "Ngày sinh phải nhỏ hơn ngày hiện tại")
	}
	switch t.Gender {
	case GenderMale, GenderFemale, GenderOther, "":
	default:
		v.Add("gender", fmt.Sprintf("Giới tính %q không hợp lệ", t.Gender))
	}
	if t.EmergencyContact.Phone != "" && !ValidPhone(t.EmergencyContact.Phone) {
		v.Add("emergencyContact.phone", "Số điện thoại liên hệ khẩn cấp không hợp lệ")
	}
	if !t.Status.Valid() {
		v.Add("status", "Trạng thái khách thuê không hợp lệ")
	}
	if t.Deposit.IsNegative() {
		v.Add("deposit", "Tiền cọc phải lớn hơn hoặc bằng 0")
	}
	return v.OrNil()
}

// BeforeSave normalizes and validates the row
func (t *Tenant) BeforeSave(tx *gorm.DB) error {
	t.Name = strings.TrimSpace(t.Name)
	t.Email = NormalizeEmail(t.Email)
	if t.Status == "" {
		t.Status = TenantActive
	}
	return t.Validate()
}

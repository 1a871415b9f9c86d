package model

import (
	"time"

	"rental-service/internal/apperr"

	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// RoomStatus is the occupancy state of a room
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomReserved    RoomStatus = "reserved"
)

// Valid reports whether s is a known room status
func (s RoomStatus) Valid() bool {
	switch s {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomReserved:
		return true
	}
	return false
}

// Amenities are the equipment flags of a room
type Amenities struct {
	HasWifi            bool `json:"hasWifi" gorm:"column:has_wifi;not null;default:false"`
	HasAirConditioner  bool `json:"hasAirConditioner" gorm:"column:has_air_conditioner;not null;default:false"`
	HasRefrigerator    bool `json:"hasRefrigerator" gorm:"column:has_refrigerator;not null;default:false"`
	HasWashingMachine  bool `json:"hasWashingMachine" gorm:"column:has_washing_machine;not null;default:false"`
	HasBalcony         bool `json:"hasBalcony" gorm:"column:has_balcony;not null;default:false"`
	HasPrivateBathroom bool `json:"hasPrivateBathroom" gorm:"column:has_private_bathroom;not null;default:false"`
}

// RoomImage is a photo of a room
type RoomImage struct {
	URL       string `json:"url"`
	Caption   string `json:"caption"`
	IsPrimary bool   `json:"isPrimary"`
}

// Room is a rentable unit
type Room struct {
	ID          uint                           `json:"id" gorm:"primarykey"`
	Number      string                         `json:"number" gorm:"type:varchar(20);uniqueIndex;not null"`
	Name        string                         `json:"name" gorm:"type:varchar(100);not null"`
	Status      RoomStatus                     `json:"status" gorm:"type:varchar(20);index;not null"`
	Price       decimal.Decimal                `json:"price" gorm:"type:numeric(15,2);index;not null"`
	Area        float64                        `json:"area" gorm:"not null"`
	Floor       int                            `json:"floor" gorm:"index;not null"`
	Amenities   Amenities                      `json:"amenities" gorm:"embedded"`
	Images      datatypes.JSONSlice[RoomImage] `json:"images"`
	Description string                         `json:"description" gorm:"type:text"`
	TenantID    *uint                          `json:"tenantId" gorm:"index"`
	Tenant      *Tenant                        `json:"tenant,omitempty" gorm:"foreignKey:TenantID"`
	Contracts   []Contract                     `json:"contracts,omitempty" gorm:"foreignKey:RoomID"`
	Payments    []Payment                      `json:"payments,omitempty" gorm:"foreignKey:RoomID"`
	IsActive    bool                           `json:"isActive" gorm:"index;not null"`
	CreatedAt   time.Time                      `json:"createdAt"`
	UpdatedAt   time.Time                      `json:"updatedAt"`
}

// NormalizeStatus keeps status and tenant in step: a tenant means occupied,
// and occupied without a tenant falls back to available. Maintenance and
// reserved are left alone while no tenant is attached.
func (r *Room) NormalizeStatus() {
	if r.Status == "" {
		r.Status = RoomAvailable
	}
	if r.TenantID != nil {
		r.Status = RoomOccupied
	} else if r.Status == RoomOccupied {
		r.Status = RoomAvailable
	}
}

// IsOccupied reports whether a tenant currently lives in the room
func (r *Room) IsOccupied() bool {
	return r.Status == RoomOccupied && r.TenantID != nil
}

// Validate checks field constraints
func (r *Room) Validate() error {
	v := &apperr.ValidationError{}
	if r.Number == "" {
		v.Add("number", "Số phòng là bắt buộc")
	}
	if r.Name == "" {
		v.Add("name", "Tên phòng là bắt buộc")
	}
	if !r.Status.Valid() {
		v.Add("status", "Trạng thái phòng không hợp lệ")
	}
	if r.Price.IsNegative() {
		v.Add("price", "Giá phòng phải lớn hơn 0")
	}
	if r.Area < 0 {
		v.Add("area", "Diện tích phải lớn hơn 0")
	}
	if r.Floor < 1 {
		v.Add("floor", "Tầng phải từ 1 trở lên")
	}
	return v.OrNil()
}

// BeforeSave normalizes status and validates the row
func (r *Room) BeforeSave(tx *gorm.DB) error {
	r.NormalizeStatus()
	return r.Validate()
}

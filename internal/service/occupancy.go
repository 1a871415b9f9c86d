package service

import (
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
)

// Occupancy commands keep Room.tenant, Room.status and Tenant.room in step.
// They write with UpdateColumns so neither row's hooks re-run.

const msgRoomUnavailable = "Phòng không có sẵn"

// loadRoomForTenant fetches an active room that tenantID may move into
func loadRoomForTenant(tx *gorm.DB, roomID, tenantID uint) (*model.Room, error) {
	var room model.Room
	if err := onlyActive(tx).First(&room, roomID).Error; err != nil {
		return nil, notFound(err, "Không tìm thấy phòng")
	}
	if room.TenantID != nil && *room.TenantID == tenantID {
		return &room, nil
	}
	if room.Status != model.RoomAvailable {
		return nil, apperr.Precondition(msgRoomUnavailable)
	}
	return &room, nil
}

// occupyRoom attaches tenantID to roomID
func occupyRoom(tx *gorm.DB, roomID, tenantID uint) error {
	err := tx.Model(&model.Room{}).
		Where("id = ?", roomID).
		UpdateColumns(map[string]interface{}{
			"tenant_id":  tenantID,
			"status":     model.RoomOccupied,
			"updated_at": model.Now(),
		}).Error
	return errors.Wrap(err, "occupy room")
}

// releaseRoom detaches tenantID from roomID. A room now held by someone
// else is left untouched.
func releaseRoom(tx *gorm.DB, roomID, tenantID uint) error {
	err := tx.Model(&model.Room{}).
		Where("id = ? AND tenant_id = ?", roomID, tenantID).
		UpdateColumns(map[string]interface{}{
			"tenant_id":  nil,
			"status":     model.RoomAvailable,
			"updated_at": model.Now(),
		}).Error
	return errors.Wrap(err, "release room")
}

// moveIn binds tenant and room on both sides
func moveIn(tx *gorm.DB, tenantID, roomID uint, at time.Time) error {
	if err := occupyRoom(tx, roomID, tenantID); err != nil {
		return err
	}
	err := tx.Model(&model.Tenant{}).
		Where("id = ?", tenantID).
		UpdateColumns(map[string]interface{}{
			"room_id":       roomID,
			"status":        model.TenantActive,
			"move_in_date":  at,
			"move_out_date": nil,
			"updated_at":    model.Now(),
		}).Error
	return errors.Wrap(err, "move tenant in")
}

// moveOut unbinds tenant from its room and marks it moved out
func moveOut(tx *gorm.DB, tenant *model.Tenant, at time.Time, notes string) error {
	if tenant.RoomID != nil {
		if err := releaseRoom(tx, *tenant.RoomID, tenant.ID); err != nil {
			return err
		}
	}
	err := tx.Model(&model.Tenant{}).
		Where("id = ?", tenant.ID).
		UpdateColumns(map[string]interface{}{
			"room_id":       nil,
			"status":        model.TenantMovedOut,
			"move_out_date": at,
			"notes":         notes,
			"updated_at":    model.Now(),
		}).Error
	return errors.Wrap(err, "move tenant out")
}

// syncTenantRoom pushes a saved tenant's room and status onto rooms.
// before is the row as it was loaded, after is the row as saved.
func syncTenantRoom(tx *gorm.DB, before, after *model.Tenant) error {
	leaving := after.Status == model.TenantMovedOut || after.Status == model.TenantInactive

	if before.RoomID != nil && (leaving || after.RoomID == nil || *after.RoomID != *before.RoomID) {
		if err := releaseRoom(tx, *before.RoomID, after.ID); err != nil {
			return err
		}
	}
	if after.RoomID == nil {
		return nil
	}
	if leaving {
		return releaseRoom(tx, *after.RoomID, after.ID)
	}
	if _, err := loadRoomForTenant(tx, *after.RoomID, after.ID); err != nil {
		return err
	}
	return occupyRoom(tx, *after.RoomID, after.ID)
}

package service

import (
	"context"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/prometheus"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgTenantNotFound = "Không tìm thấy khách thuê"

var tenantSort = sortSpec{
	columns: map[string]string{
		"name":       "name",
		"phone":      "phone",
		"email":      "email",
		"status":     "status",
		"moveInDate": "move_in_date",
		"createdAt":  "created_at",
	},
	defaultKey:   "createdAt",
	defaultOrder: "desc",
}

// TenantService manages tenants and their room assignment
type TenantService struct {
	*base
}

// TenantFilter narrows tenant lists
type TenantFilter struct {
	ListParams
	Status string
	RoomID *uint
	Gender string
}

// List returns one page of active tenants with their room
func (s *TenantService) List(ctx context.Context, f TenantFilter) ([]model.Tenant, Pagination, error) {
	defer prometheus.TrackDBOperation("tenant_list")(time.Now())

	q := onlyActive(s.db.WithContext(ctx).Model(&model.Tenant{}))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if f.Gender != "" {
		q = q.Where("gender = ?", f.Gender)
	}
	q = searchAny(q, f.Search, "name", "phone", "email", "id_card")

	var tenants []model.Tenant
	page, err := paginate(q, f.ListParams, tenantSort, &tenants, "Room")
	if err != nil {
		return nil, Pagination{}, err
	}
	return tenants, page, nil
}

// Active returns tenants currently renting a room
func (s *TenantService) Active(ctx context.Context) ([]model.Tenant, error) {
	defer prometheus.TrackDBOperation("tenant_active")(time.Now())

	var tenants []model.Tenant
	err := onlyActive(s.db.WithContext(ctx)).
		Preload("Room").
		Where("status = ? AND room_id IS NOT NULL", model.TenantActive).
		Order("name asc").
		Find(&tenants).Error
	return tenants, dbErr(err, "list active tenants")
}

// Get loads a tenant with room, contracts and recent payments
func (s *TenantService) Get(ctx context.Context, id uint) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("tenant_get")(time.Now())

	var tenant model.Tenant
	err := onlyActive(s.db.WithContext(ctx)).
		Preload("Room").
		Preload("Contracts", "is_active = ?", true, func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at desc")
		}).
		Preload("Contracts.Room").
		Preload("Payments", "is_active = ?", true, func(db *gorm.DB) *gorm.DB {
			return db.Order("year desc, month desc").Limit(12)
		}).
		First(&tenant, id).Error
	if err != nil {
		return nil, notFound(err, msgTenantNotFound)
	}
	return &tenant, nil
}

func (s *TenantService) checkUnique(tx *gorm.DB, t *model.Tenant, excludeID uint) error {
	for _, u := range []struct {
		field, column, value string
	}{
		{"phone", "phone", t.Phone},
		{"email", "email", model.NormalizeEmail(t.Email)},
		{"idCard", "id_card", t.IDCard},
	} {
		var count int64
		err := tx.Model(&model.Tenant{}).
			Where(u.column+" = ? AND id <> ?", u.value, excludeID).
			Count(&count).Error
		if err != nil {
			return errors.Wrap(err, "check tenant uniqueness")
		}
		if count > 0 {
			return &apperr.DuplicateError{Field: u.field}
		}
	}
	return nil
}

// Create adds a tenant, moving it into RoomID when one is given
func (s *TenantService) Create(ctx context.Context, t *model.Tenant) error {
	defer prometheus.TrackDBOperation("tenant_create")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.checkUnique(tx, t, 0); err != nil {
			return err
		}

		roomID := t.RoomID
		t.ID = 0
		t.RoomID = nil
		t.IsActive = true
		if t.Status == "" || t.Status == model.TenantMovedOut {
			t.Status = model.TenantActive
		}
		if err := tx.Omit(clause.Associations).Create(t).Error; err != nil {
			return dbErr(err, "create tenant")
		}

		if roomID == nil || t.Status != model.TenantActive {
			return nil
		}
		if _, err := loadRoomForTenant(tx, *roomID, t.ID); err != nil {
			return err
		}
		at := model.Now()
		if t.MoveInDate != nil {
			at = *t.MoveInDate
		}
		if err := moveIn(tx, t.ID, *roomID, at); err != nil {
			return err
		}
		t.RoomID = roomID
		t.MoveInDate = &at
		return nil
	})
	if err != nil {
		return err
	}

	prometheus.RecordOperation("tenant", "create")
	s.log.Info("Tenant created", zap.Uint("tenant_id", t.ID), zap.String("name", t.Name))
	return nil
}

// Update merges a patch into the editable fields of a tenant. A change of
// room or status is propagated to the rooms involved.
func (s *TenantService) Update(ctx context.Context, id uint, patch Patch[model.Tenant]) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("tenant_update")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := onlyActive(tx).First(&tenant, id).Error; err != nil {
			return notFound(err, msgTenantNotFound)
		}
		before := tenant

		in, err := patched(tx, id, patch)
		if err != nil {
			return err
		}
		if err := s.checkUnique(tx, in, id); err != nil {
			return err
		}

		tenant.Name = in.Name
		tenant.Phone = in.Phone
		tenant.Email = in.Email
		tenant.IDCard = in.IDCard
		tenant.DateOfBirth = in.DateOfBirth
		tenant.Gender = in.Gender
		tenant.Address = in.Address
		tenant.EmergencyContact = in.EmergencyContact
		tenant.Occupation = in.Occupation
		tenant.Workplace = in.Workplace
		tenant.Deposit = in.Deposit
		tenant.Notes = in.Notes
		tenant.Documents = in.Documents
		tenant.RoomID = in.RoomID
		tenant.MoveInDate = in.MoveInDate
		tenant.MoveOutDate = in.MoveOutDate
		if in.Status != "" {
			tenant.Status = in.Status
		}

		leaving := tenant.Status == model.TenantMovedOut || tenant.Status == model.TenantInactive
		if leaving {
			tenant.RoomID = nil
		}
		if tenant.Status == model.TenantMovedOut && tenant.MoveOutDate == nil {
			now := model.Now()
			tenant.MoveOutDate = &now
		}
		if !leaving && tenant.RoomID != nil && tenant.MoveInDate == nil {
			now := model.Now()
			tenant.MoveInDate = &now
		}

		if err := tx.Omit(clause.Associations).Save(&tenant).Error; err != nil {
			return dbErr(err, "update tenant")
		}
		if sameRoom(before.RoomID, tenant.RoomID) && before.Status == tenant.Status {
			return nil
		}
		return syncTenantRoom(tx, &before, &tenant)
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordOperation("tenant", "update")
	s.log.Info("Tenant updated", zap.Uint("tenant_id", id))
	return s.Get(ctx, id)
}

func sameRoom(a, b *uint) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// Delete soft-deletes a tenant that is not renting and has no history
func (s *TenantService) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("tenant_delete")(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := onlyActive(tx).First(&tenant, id).Error; err != nil {
			return notFound(err, msgTenantNotFound)
		}
		if tenant.HasRoom() {
			return apperr.Precondition("Không thể xóa khách thuê đang thuê phòng")
		}

		var contracts, payments int64
		if err := onlyActive(tx.Model(&model.Contract{})).Where("tenant_id = ?", id).Count(&contracts).Error; err != nil {
			return errors.Wrap(err, "count tenant contracts")
		}
		if err := onlyActive(tx.Model(&model.Payment{})).Where("tenant_id = ?", id).Count(&payments).Error; err != nil {
			return errors.Wrap(err, "count tenant payments")
		}
		if contracts > 0 || payments > 0 {
			return apperr.Precondition("Không thể xóa khách thuê có hợp đồng hoặc thanh toán liên quan")
		}

		if err := tx.Model(&tenant).UpdateColumn("is_active", false).Error; err != nil {
			return errors.Wrap(err, "soft delete tenant")
		}
		prometheus.RecordOperation("tenant", "delete")
		s.log.Info("Tenant deleted", zap.Uint("tenant_id", id))
		return nil
	})
}

// MoveIn assigns an available room to the tenant
func (s *TenantService) MoveIn(ctx context.Context, id, roomID uint, at time.Time) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("tenant_move_in")(time.Now())

	if at.IsZero() {
		at = model.Now()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := onlyActive(tx).First(&tenant, id).Error; err != nil {
			return notFound(err, msgTenantNotFound)
		}
		var room model.Room
		if err := onlyActive(tx).First(&room, roomID).Error; err != nil {
			return notFound(err, msgRoomNotFound)
		}
		if room.Status != model.RoomAvailable {
			return apperr.Precondition(msgRoomUnavailable)
		}
		if tenant.RoomID != nil && *tenant.RoomID != roomID {
			if err := releaseRoom(tx, *tenant.RoomID, tenant.ID); err != nil {
				return err
			}
		}
		return moveIn(tx, id, roomID, at)
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordOperation("tenant", "move_in")
	s.log.Info("Tenant moved in", zap.Uint("tenant_id", id), zap.Uint("room_id", roomID))
	return s.Get(ctx, id)
}

// MoveOut releases the tenant's room and records the reason in notes
func (s *TenantService) MoveOut(ctx context.Context, id uint, at time.Time, reason string) (*model.Tenant, error) {
	defer prometheus.TrackDBOperation("tenant_move_out")(time.Now())

	if at.IsZero() {
		at = model.Now()
	}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var tenant model.Tenant
		if err := onlyActive(tx).First(&tenant, id).Error; err != nil {
			return notFound(err, msgTenantNotFound)
		}
		if tenant.RoomID == nil {
			return apperr.Precondition("Khách thuê không đang thuê phòng nào")
		}
		if reason != "" {
			tenant.AppendNote("Lý do chuyển đi: " + reason)
		}
		return moveOut(tx, &tenant, at, tenant.Notes)
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordOperation("tenant", "move_out")
	s.log.Info("Tenant moved out", zap.Uint("tenant_id", id))
	return s.Get(ctx, id)
}

// TenantStats is the tenant overview
type TenantStats struct {
	Total               int64            `json:"total"`
	Active              int64            `json:"active"`
	Inactive            int64            `json:"inactive"`
	MovedOut            int64            `json:"movedOut"`
	WithRoom            int64            `json:"withRoom"`
	NewTenantsThisMonth int64            `json:"newTenantsThisMonth"`
	GenderStats         map[string]int64 `json:"genderStats"`
	AgeStats            map[string]int64 `json:"ageStats"`
}

// Stats builds the tenant overview
func (s *TenantService) Stats(ctx context.Context) (*TenantStats, error) {
	defer prometheus.TrackDBOperation("tenant_stats")(time.Now())

	var tenants []model.Tenant
	if err := onlyActive(s.db.WithContext(ctx)).Find(&tenants).Error; err != nil {
		return nil, dbErr(err, "load tenants")
	}

	now := model.Now().In(s.loc)
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, s.loc)
	stats := &TenantStats{
		Total:       int64(len(tenants)),
		GenderStats: map[string]int64{},
		AgeStats: map[string]int64{
			"under_25": 0,
			"25_35":    0,
			"35_45":    0,
			"over_45":  0,
		},
	}
	for _, t := range tenants {
		switch t.Status {
		case model.TenantActive:
			stats.Active++
		case model.TenantInactive:
			stats.Inactive++
		case model.TenantMovedOut:
			stats.MovedOut++
		}
		if t.HasRoom() {
			stats.WithRoom++
		}
		if !t.CreatedAt.Before(monthStart) {
			stats.NewTenantsThisMonth++
		}
		if t.Gender != "" {
			stats.GenderStats[t.Gender]++
		}
		if t.DateOfBirth.IsZero() {
			continue
		}
		switch age := t.Age(now); {
		case age < 25:
			stats.AgeStats["under_25"]++
		case age < 35:
			stats.AgeStats["25_35"]++
		case age < 45:
			stats.AgeStats["35_45"]++
		default:
			stats.AgeStats["over_45"]++
		}
	}
	return stats, nil
}

package service

import (
	"context"
	"sort"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"
	"rental-service/prometheus"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const msgRoomNotFound = "Không tìm thấy phòng"

var roomSort = sortSpec{
	columns: map[string]string{
		"number":    "number",
		"name":      "name",
		"price":     "price",
		"area":      "area",
		"floor":     "floor",
		"status":    "status",
		"createdAt": "created_at",
	},
	defaultKey:   "number",
	defaultOrder: "asc",
}

// RoomService manages rooms
type RoomService struct {
	*base
}

// RoomFilter narrows room lists
type RoomFilter struct {
	ListParams
	Status   string
	Floor    *int
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
}

// List returns one page of active rooms with their tenant
func (s *RoomService) List(ctx context.Context, f RoomFilter) ([]model.Room, Pagination, error) {
	defer prometheus.TrackDBOperation("room_list")(time.Now())

	q := onlyActive(s.db.WithContext(ctx).Model(&model.Room{}))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.Floor != nil {
		q = q.Where("floor = ?", *f.Floor)
	}
	if f.MinPrice != nil {
		q = q.Where("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		q = q.Where("price <= ?", *f.MaxPrice)
	}
	q = searchAny(q, f.Search, "number", "name", "description")

	var rooms []model.Room
	page, err := paginate(q, f.ListParams, roomSort, &rooms, "Tenant")
	if err != nil {
		return nil, Pagination{}, err
	}
	return rooms, page, nil
}

// Available returns every room open for a new lease
func (s *RoomService) Available(ctx context.Context) ([]model.Room, error) {
	defer prometheus.TrackDBOperation("room_available")(time.Now())

	var rooms []model.Room
	err := onlyActive(s.db.WithContext(ctx)).
		Where("status = ?", model.RoomAvailable).
		Order("number asc").
		Find(&rooms).Error
	return rooms, dbErr(err, "list available rooms")
}

// Get loads a room with its tenant, contracts and latest payments
func (s *RoomService) Get(ctx context.Context, id uint) (*model.Room, error) {
	defer prometheus.TrackDBOperation("room_get")(time.Now())

	var room model.Room
	err := onlyActive(s.db.WithContext(ctx)).
		Preload("Tenant").
		Preload("Contracts", "is_active = ?", true, func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at desc")
		}).
		Preload("Contracts.Tenant").
		Preload("Payments", "is_active = ?", true, func(db *gorm.DB) *gorm.DB {
			return db.Order("year desc, month desc").Limit(12)
		}).
		First(&room, id).Error
	if err != nil {
		return nil, notFound(err, msgRoomNotFound)
	}
	return &room, nil
}

// Create adds a room. A new room never starts with a tenant.
func (s *RoomService) Create(ctx context.Context, room *model.Room) error {
	defer prometheus.TrackDBOperation("room_create")(time.Now())

	var count int64
	err := s.db.WithContext(ctx).Model(&model.Room{}).Where("number = ?", room.Number).Count(&count).Error
	if err != nil {
		return errors.Wrap(err, "check room number")
	}
	if count > 0 {
		s.log.Warn("Room with this number already exists", zap.String("number", room.Number))
		return &apperr.DuplicateError{Field: "number"}
	}

	room.ID = 0
	room.TenantID = nil
	room.IsActive = true
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Create(room).Error; err != nil {
		return dbErr(err, "create room")
	}

	prometheus.RecordOperation("room", "create")
	s.log.Info("Room created", zap.Uint("room_id", room.ID), zap.String("number", room.Number))
	return nil
}

// Update merges a patch into the editable fields of a room. The tenant is
// owned by the occupancy commands and cannot be changed here.
func (s *RoomService) Update(ctx context.Context, id uint, patch Patch[model.Room]) (*model.Room, error) {
	defer prometheus.TrackDBOperation("room_update")(time.Now())

	var room model.Room
	if err := onlyActive(s.db.WithContext(ctx)).First(&room, id).Error; err != nil {
		return nil, notFound(err, msgRoomNotFound)
	}
	in, err := patched(s.db.WithContext(ctx), id, patch)
	if err != nil {
		return nil, err
	}

	if in.Number != room.Number {
		var count int64
		err := s.db.WithContext(ctx).Model(&model.Room{}).Where("number = ? AND id <> ?", in.Number, id).Count(&count).Error
		if err != nil {
			return nil, errors.Wrap(err, "check room number")
		}
		if count > 0 {
			return nil, &apperr.DuplicateError{Field: "number"}
		}
	}

	room.Number = in.Number
	room.Name = in.Name
	room.Price = in.Price
	room.Area = in.Area
	room.Floor = in.Floor
	room.Amenities = in.Amenities
	room.Images = in.Images
	room.Description = in.Description
	if in.Status != "" {
		room.Status = in.Status
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&room).Error; err != nil {
		return nil, dbErr(err, "update room")
	}

	prometheus.RecordOperation("room", "update")
	s.log.Info("Room updated", zap.Uint("room_id", room.ID), zap.String("status", string(room.Status)))
	return s.Get(ctx, id)
}

// Delete soft-deletes an empty room that has no lease or billing history
func (s *RoomService) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("room_delete")(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		if err := onlyActive(tx).First(&room, id).Error; err != nil {
			return notFound(err, msgRoomNotFound)
		}
		if room.TenantID != nil || room.Status == model.RoomOccupied {
			return apperr.Precondition("Không thể xóa phòng đang có khách thuê")
		}

		var contracts, payments int64
		if err := onlyActive(tx.Model(&model.Contract{})).Where("room_id = ?", id).Count(&contracts).Error; err != nil {
			return errors.Wrap(err, "count room contracts")
		}
		if err := onlyActive(tx.Model(&model.Payment{})).Where("room_id = ?", id).Count(&payments).Error; err != nil {
			return errors.Wrap(err, "count room payments")
		}
		if contracts > 0 || payments > 0 {
			return apperr.Precondition("Không thể xóa phòng có hợp đồng hoặc thanh toán liên quan")
		}

		if err := tx.Model(&room).UpdateColumn("is_active", false).Error; err != nil {
			return errors.Wrap(err, "soft delete room")
		}
		prometheus.RecordOperation("room", "delete")
		s.log.Info("Room deleted", zap.Uint("room_id", id), zap.String("number", room.Number))
		return nil
	})
}

// FloorStats summarizes one floor
type FloorStats struct {
	Floor    int   `json:"floor"`
	Total    int64 `json:"total"`
	Occupied int64 `json:"occupied"`
}

// MonthlyAmount is a revenue figure for one month
type MonthlyAmount struct {
	Year   int             `json:"year"`
	Month  int             `json:"month"`
	Amount decimal.Decimal `json:"amount"`
	Count  int64           `json:"count"`
}

// RoomStats is the room overview
type RoomStats struct {
	Total          int64           `json:"total"`
	Available      int64           `json:"available"`
	Occupied       int64           `json:"occupied"`
	Maintenance    int64           `json:"maintenance"`
	Reserved       int64           `json:"reserved"`
	OccupancyRate  float64         `json:"occupancyRate"`
	FloorStats     []FloorStats    `json:"floorStats"`
	MonthlyRevenue []MonthlyAmount `json:"monthlyRevenue"`
}

// Stats builds the room overview and refreshes the occupancy gauge
func (s *RoomService) Stats(ctx context.Context) (*RoomStats, error) {
	defer prometheus.TrackDBOperation("room_stats")(time.Now())

	var rooms []model.Room
	if err := onlyActive(s.db.WithContext(ctx)).Find(&rooms).Error; err != nil {
		return nil, dbErr(err, "load rooms")
	}

	stats := &RoomStats{Total: int64(len(rooms))}
	floors := map[int]*FloorStats{}
	for _, r := range rooms {
		switch r.Status {
		case model.RoomAvailable:
			stats.Available++
		case model.RoomOccupied:
			stats.Occupied++
		case model.RoomMaintenance:
			stats.Maintenance++
		case model.RoomReserved:
			stats.Reserved++
		}
		fs, ok := floors[r.Floor]
		if !ok {
			fs = &FloorStats{Floor: r.Floor}
			floors[r.Floor] = fs
		}
		fs.Total++
		if r.Status == model.RoomOccupied {
			fs.Occupied++
		}
	}
	stats.OccupancyRate = percent(stats.Occupied, stats.Total)

	stats.FloorStats = make([]FloorStats, 0, len(floors))
	for _, fs := range floors {
		stats.FloorStats = append(stats.FloorStats, *fs)
	}
	sort.Slice(stats.FloorStats, func(i, j int) bool {
		return stats.FloorStats[i].Floor < stats.FloorStats[j].Floor
	})

	var paid []model.Payment
	err := onlyActive(s.db.WithContext(ctx)).
		Where("status = ?", model.PaymentPaid).
		Find(&paid).Error
	if err != nil {
		return nil, dbErr(err, "load paid payments")
	}
	stats.MonthlyRevenue = monthlyTotals(paid, 12)

	prometheus.SetRoomStatus(string(model.RoomAvailable), stats.Available)
	prometheus.SetRoomStatus(string(model.RoomOccupied), stats.Occupied)
	prometheus.SetRoomStatus(string(model.RoomMaintenance), stats.Maintenance)
	prometheus.SetRoomStatus(string(model.RoomReserved), stats.Reserved)
	return stats, nil
}

// percent rounds part/total*100 to two decimals
func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	v := float64(part) / float64(total) * 100
	return float64(int64(v*100+0.5)) / 100
}

// monthlyTotals groups payments by billing period, newest first
func monthlyTotals(payments []model.Payment, limit int) []MonthlyAmount {
	byPeriod := map[[2]int]*MonthlyAmount{}
	for _, p := range payments {
		key := [2]int{p.Year, p.Month}
		m, ok := byPeriod[key]
		if !ok {
			m = &MonthlyAmount{Year: p.Year, Month: p.Month, Amount: decimal.Zero}
			byPeriod[key] = m
		}
		m.Amount = m.Amount.Add(p.TotalAmount)
		m.Count++
	}
	out := make([]MonthlyAmount, 0, len(byPeriod))
	for _, m := range byPeriod {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year > out[j].Year
		}
		return out[i].Month > out[j].Month
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

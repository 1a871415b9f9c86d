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

const msgContractNotFound = "Không tìm thấy hợp đồng"

var contractSort = sortSpec{
	columns: map[string]string{
		"contractNumber": "contract_number",
		"startDate":      "start_date",
		"endDate":        "end_date",
		"monthlyRent":    "monthly_rent",
		"status":         "status",
		"createdAt":      "created_at",
	},
	defaultKey:   "createdAt",
	defaultOrder: "desc",
}

// ContractService manages leases
type ContractService struct {
	*base
}

// ContractFilter narrows contract lists
type ContractFilter struct {
	ListParams
	Status    string
	RoomID    *uint
	TenantID  *uint
	StartFrom *time.Time
	StartTo   *time.Time
}

func withParties(q *gorm.DB) *gorm.DB {
	return q.Preload("Room").Preload("Tenant")
}

// List returns one page of contracts with room and tenant
func (s *ContractService) List(ctx context.Context, f ContractFilter) ([]model.Contract, Pagination, error) {
	defer prometheus.TrackDBOperation("contract_list")(time.Now())

	q := onlyActive(s.db.WithContext(ctx).Model(&model.Contract{}))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}
	if f.StartFrom != nil {
		q = q.Where("start_date >= ?", *f.StartFrom)
	}
	if f.StartTo != nil {
		q = q.Where("start_date <= ?", *f.StartTo)
	}
	q = searchAny(q, f.Search, "contract_number", "terms", "notes")

	var contracts []model.Contract
	page, err := paginate(q, f.ListParams, contractSort, &contracts, "Room", "Tenant")
	if err != nil {
		return nil, Pagination{}, err
	}
	return contracts, page, nil
}

// Get loads a contract with parties and payments
func (s *ContractService) Get(ctx context.Context, id uint) (*model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_get")(time.Now())

	var contract model.Contract
	err := withParties(onlyActive(s.db.WithContext(ctx))).
		Preload("Payments", "is_active = ?", true, func(db *gorm.DB) *gorm.DB {
			return db.Order("year desc, month desc")
		}).
		First(&contract, id).Error
	if err != nil {
		return nil, notFound(err, msgContractNotFound)
	}
	return &contract, nil
}

// GetMany loads the given contracts with their parties, skipping unknown IDs
func (s *ContractService) GetMany(ctx context.Context, ids []uint) ([]model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_get_many")(time.Now())

	var contracts []model.Contract
	if len(ids) == 0 {
		return contracts, nil
	}
	err := withParties(onlyActive(s.db.WithContext(ctx))).
		Where("id IN ?", ids).
		Order("end_date asc").
		Find(&contracts).Error
	return contracts, dbErr(err, "load contracts")
}

// Create signs a lease. In one transaction it numbers and stores the
// contract, moves the tenant into the room and bills the first month.
func (s *ContractService) Create(ctx context.Context, c *model.Contract) error {
	defer prometheus.TrackDBOperation("contract_create")(time.Now())

	if c.ElectricityPrice.IsZero() {
		c.ElectricityPrice = decimal.NewFromInt(s.pricing.ElectricityPrice)
	}
	if c.WaterPrice.IsZero() {
		c.WaterPrice = decimal.NewFromInt(s.pricing.WaterPrice)
	}

	var first model.Payment
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var room model.Room
		var tenant model.Tenant
		roomErr := onlyActive(tx).First(&room, c.RoomID).Error
		tenantErr := onlyActive(tx).First(&tenant, c.TenantID).Error
		if roomErr != nil || tenantErr != nil {
			if errors.Is(roomErr, gorm.ErrRecordNotFound) || errors.Is(tenantErr, gorm.ErrRecordNotFound) {
				return apperr.Precondition("Phòng hoặc khách thuê không tồn tại")
			}
			return dbErr(firstErr(roomErr, tenantErr), "load contract parties")
		}
		if room.Status != model.RoomAvailable {
			return apperr.Precondition("Phòng không có sẵn để tạo hợp đồng")
		}

		number, err := nextContractNumber(tx, model.Now().In(s.loc).Year())
		if err != nil {
			return err
		}
		c.ID = 0
		c.ContractNumber = number
		c.Status = model.ContractActive
		c.IsActive = true
		if err := tx.Omit(clause.Associations).Create(c).Error; err != nil {
			return dbErr(err, "create contract")
		}

		if tenant.RoomID != nil && *tenant.RoomID != room.ID {
			if err := releaseRoom(tx, *tenant.RoomID, tenant.ID); err != nil {
				return err
			}
		}
		if err := moveIn(tx, tenant.ID, room.ID, c.StartDate); err != nil {
			return err
		}

		start := c.StartDate.In(s.loc)
		first = s.firstPayment(c, start.Year(), int(start.Month()))
		code, err := nextPaymentCode(tx, first.Year, first.Month)
		if err != nil {
			return err
		}
		first.PaymentCode = code
		return dbErr(tx.Omit(clause.Associations).Create(&first).Error, "create first payment")
	})
	if err != nil {
		return err
	}

	prometheus.RecordOperation("contract", "create")
	prometheus.RecordOperation("payment", "create")
	s.log.Info("Contract created",
		zap.Uint("contract_id", c.ID),
		zap.String("contract_number", c.ContractNumber),
		zap.Uint("room_id", c.RoomID),
		zap.Uint("tenant_id", c.TenantID),
		zap.String("first_payment", first.PaymentCode))
	return nil
}

// firstPayment seeds a zero-usage bill from the contract's pricing terms
func (s *base) firstPayment(c *model.Contract, year, month int) model.Payment {
	return model.Payment{
		RoomID:           c.RoomID,
		TenantID:         c.TenantID,
		ContractID:       c.ID,
		Month:            month,
		Year:             year,
		DueDate:          model.DueDateFor(year, month, c.PaymentDay, s.loc),
		RentAmount:       c.MonthlyRent,
		ElectricityUsage: decimal.Zero,
		ElectricityPrice: c.ElectricityPrice,
		WaterUsage:       decimal.Zero,
		WaterPrice:       c.WaterPrice,
		InternetAmount:   c.InternetPrice,
		ParkingAmount:    c.ParkingPrice,
		CleaningAmount:   c.CleaningPrice,
		Discount:         decimal.Zero,
		Status:           model.PaymentPending,
		PaymentMethod:    model.MethodCash,
		IsActive:         true,
	}
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// Update merges a patch into the editable terms of a contract. Parties and
// status are changed only through Create, Renew and Terminate.
func (s *ContractService) Update(ctx context.Context, id uint, patch Patch[model.Contract]) (*model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_update")(time.Now())

	var contract model.Contract
	if err := onlyActive(s.db.WithContext(ctx)).First(&contract, id).Error; err != nil {
		return nil, notFound(err, msgContractNotFound)
	}
	in, err := patched(s.db.WithContext(ctx), id, patch)
	if err != nil {
		return nil, err
	}

	if !in.StartDate.IsZero() {
		contract.StartDate = in.StartDate
	}
	if !in.EndDate.IsZero() {
		contract.EndDate = in.EndDate
	}
	contract.MonthlyRent = in.MonthlyRent
	contract.Deposit = in.Deposit
	contract.ElectricityPrice = in.ElectricityPrice
	contract.WaterPrice = in.WaterPrice
	contract.InternetPrice = in.InternetPrice
	contract.ParkingPrice = in.ParkingPrice
	contract.CleaningPrice = in.CleaningPrice
	if in.PaymentDay != 0 {
		contract.PaymentDay = in.PaymentDay
	}
	contract.Terms = in.Terms
	contract.Rules = in.Rules
	contract.Witnesses = in.Witnesses
	contract.Documents = in.Documents
	contract.Notes = in.Notes

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&contract).Error; err != nil {
		return nil, dbErr(err, "update contract")
	}

	prometheus.RecordOperation("contract", "update")
	s.log.Info("Contract updated", zap.Uint("contract_id", id))
	return s.Get(ctx, id)
}

// Renew extends an active contract to newEndDate
func (s *ContractService) Renew(ctx context.Context, id uint, newEndDate time.Time, reason string) (*model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_renew")(time.Now())

	var contract model.Contract
	if err := onlyActive(s.db.WithContext(ctx)).First(&contract, id).Error; err != nil {
		return nil, notFound(err, msgContractNotFound)
	}
	if contract.Status != model.ContractActive {
		return nil, apperr.Precondition("Chỉ có thể gia hạn hợp đồng đang hoạt động")
	}
	if !newEndDate.After(contract.EndDate) {
		return nil, apperr.Validation("newEndDate", "Ngày kết thúc mới phải sau ngày kết thúc hiện tại")
	}

	contract.Renew(newEndDate, reason, model.Now())
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&contract).Error; err != nil {
		return nil, dbErr(err, "renew contract")
	}

	prometheus.RecordOperation("contract", "renew")
	s.log.Info("Contract renewed",
		zap.Uint("contract_id", id),
		zap.Time("new_end_date", newEndDate))
	return s.Get(ctx, id)
}

// Terminate ends an active contract and releases its room and tenant
func (s *ContractService) Terminate(ctx context.Context, id uint, reason string) (*model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_terminate")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contract model.Contract
		if err := onlyActive(tx).First(&contract, id).Error; err != nil {
			return notFound(err, msgContractNotFound)
		}
		if contract.Status != model.ContractActive {
			return apperr.Precondition("Chỉ có thể kết thúc hợp đồng đang hoạt động")
		}

		now := model.Now()
		contract.Terminate(reason, now)
		if err := tx.Omit(clause.Associations).Save(&contract).Error; err != nil {
			return dbErr(err, "terminate contract")
		}

		if err := releaseRoom(tx, contract.RoomID, contract.TenantID); err != nil {
			return err
		}
		err := tx.Model(&model.Tenant{}).
			Where("id = ?", contract.TenantID).
			UpdateColumns(map[string]interface{}{
				"room_id":       nil,
				"status":        model.TenantMovedOut,
				"move_out_date": now,
				"updated_at":    now,
			}).Error
		return errors.Wrap(err, "move tenant out")
	})
	if err != nil {
		return nil, err
	}

	prometheus.RecordOperation("contract", "terminate")
	s.log.Info("Contract terminated", zap.Uint("contract_id", id), zap.String("reason", reason))
	return s.Get(ctx, id)
}

// Delete soft-deletes a contract that is no longer active and was never billed
func (s *ContractService) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("contract_delete")(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contract model.Contract
		if err := onlyActive(tx).First(&contract, id).Error; err != nil {
			return notFound(err, msgContractNotFound)
		}
		if contract.Status == model.ContractActive {
			return apperr.Precondition("Không thể xóa hợp đồng đang hoạt động")
		}

		var payments int64
		if err := onlyActive(tx.Model(&model.Payment{})).Where("contract_id = ?", id).Count(&payments).Error; err != nil {
			return errors.Wrap(err, "count contract payments")
		}
		if payments > 0 {
			return apperr.Precondition("Không thể xóa hợp đồng có thanh toán liên quan")
		}

		if err := tx.Model(&contract).UpdateColumn("is_active", false).Error; err != nil {
			return errors.Wrap(err, "soft delete contract")
		}
		prometheus.RecordOperation("contract", "delete")
		s.log.Info("Contract deleted", zap.Uint("contract_id", id))
		return nil
	})
}

// FindExpiringWithin returns active contracts ending in the next days days
func (s *ContractService) FindExpiringWithin(ctx context.Context, days int) ([]model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_expiring")(time.Now())

	if days <= 0 {
		days = model.ExpiringSoonDays
	}
	now := model.Now()
	var contracts []model.Contract
	err := withParties(onlyActive(s.db.WithContext(ctx))).
		Where("status = ? AND end_date >= ? AND end_date <= ?",
			model.ContractActive, now, now.AddDate(0, 0, days)).
		Order("end_date asc").
		Find(&contracts).Error
	return contracts, dbErr(err, "find expiring contracts")
}

// FindExpired returns contracts still marked active whose end date passed
func (s *ContractService) FindExpired(ctx context.Context) ([]model.Contract, error) {
	defer prometheus.TrackDBOperation("contract_expired")(time.Now())

	var contracts []model.Contract
	err := withParties(onlyActive(s.db.WithContext(ctx))).
		Where("status = ? AND end_date < ?", model.ContractActive, model.Now()).
		Order("end_date asc").
		Find(&contracts).Error
	return contracts, dbErr(err, "find expired contracts")
}

// ExpireOverdue flips every active contract past its end date to expired
func (s *ContractService) ExpireOverdue(ctx context.Context) (int64, error) {
	defer prometheus.TrackDBOperation("contract_expire_sweep")(time.Now())

	now := model.Now()
	res := s.db.WithContext(ctx).Model(&model.Contract{}).
		Where("is_active = ? AND status = ? AND end_date < ?", true, model.ContractActive, now).
		UpdateColumns(map[string]interface{}{
			"status":     model.ContractExpired,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "expire contracts")
	}
	if res.RowsAffected > 0 {
		prometheus.RecordOperation("contract", "expire")
		s.log.Info("Contracts expired", zap.Int64("count", res.RowsAffected))
	}
	return res.RowsAffected, nil
}

// MonthlyCount is the number of records created in one month
type MonthlyCount struct {
	Year  int   `json:"year"`
	Month int   `json:"month"`
	Count int64 `json:"count"`
}

// ContractStats is the contract overview
type ContractStats struct {
	Total         int64            `json:"total"`
	Active        int64            `json:"active"`
	Expired       int64            `json:"expired"`
	Terminated    int64            `json:"terminated"`
	Renewed       int64            `json:"renewed"`
	ExpiringSoon  int64            `json:"expiringSoon"`
	MonthlyStats  []MonthlyCount   `json:"monthlyStats"`
	DurationStats map[string]int64 `json:"durationStats"`
}

// Stats builds the contract overview
func (s *ContractService) Stats(ctx context.Context) (*ContractStats, error) {
	defer prometheus.TrackDBOperation("contract_stats")(time.Now())

	var contracts []model.Contract
	if err := onlyActive(s.db.WithContext(ctx)).Find(&contracts).Error; err != nil {
		return nil, dbErr(err, "load contracts")
	}

	now := model.Now()
	stats := &ContractStats{
		Total: int64(len(contracts)),
		DurationStats: map[string]int64{
			"under_6_months": 0,
			"6_12_months":    0,
			"1_2_years":      0,
			"over_2_years":   0,
		},
	}
	monthly := map[[2]int]int64{}
	for i := range contracts {
		c := &contracts[i]
		switch c.Status {
		case model.ContractActive:
			stats.Active++
			if c.EffectiveStatus(now) == model.ContractExpiringSoon {
				stats.ExpiringSoon++
			}
		case model.ContractExpired:
			stats.Expired++
		case model.ContractTerminated:
			stats.Terminated++
		case model.ContractRenewed:
			stats.Renewed++
		}

		created := c.CreatedAt.In(s.loc)
		monthly[[2]int{created.Year(), int(created.Month())}]++

		switch months := c.DurationInMonths(); {
		case months < 6:
			stats.DurationStats["under_6_months"]++
		case months <= 12:
			stats.DurationStats["6_12_months"]++
		case months <= 24:
			stats.DurationStats["1_2_years"]++
		default:
			stats.DurationStats["over_2_years"]++
		}
	}

	stats.MonthlyStats = make([]MonthlyCount, 0, len(monthly))
	for k, n := range monthly {
		stats.MonthlyStats = append(stats.MonthlyStats, MonthlyCount{Year: k[0], Month: k[1], Count: n})
	}
	sort.Slice(stats.MonthlyStats, func(i, j int) bool {
		a, b := stats.MonthlyStats[i], stats.MonthlyStats[j]
		if a.Year != b.Year {
			return a.Year > b.Year
		}
		return a.Month > b.Month
	})
	if len(stats.MonthlyStats) > 12 {
		stats.MonthlyStats = stats.MonthlyStats[:12]
	}
	return stats, nil
}

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

const (
	msgPaymentNotFound = "Không tìm thấy thanh toán"
	msgPeriodExists    = "Đã có thanh toán cho tháng này"
)

var paymentSort = sortSpec{
	columns: map[string]string{
		"paymentCode": "payment_code",
		"dueDate":     "due_date",
		"paidDate":    "paid_date",
		"totalAmount": "total_amount",
		"status":      "status",
		"year":        "year",
		"month":       "month",
		"createdAt":   "created_at",
	},
	defaultKey:   "createdAt",
	defaultOrder: "desc",
}

// PaymentService manages monthly bills
type PaymentService struct {
	*base
}

// PaymentFilter narrows payment lists
type PaymentFilter struct {
	ListParams
	Status        string
	PaymentMethod string
	RoomID        *uint
	TenantID      *uint
	ContractID    *uint
	Month         int
	Year          int
}

func withBillingParties(q *gorm.DB) *gorm.DB {
	return q.Preload("Room").Preload("Tenant").Preload("Contract")
}

// List returns one page of payments with room, tenant and contract
func (s *PaymentService) List(ctx context.Context, f PaymentFilter) ([]model.Payment, Pagination, error) {
	defer prometheus.TrackDBOperation("payment_list")(time.Now())

	q := onlyActive(s.db.WithContext(ctx).Model(&model.Payment{}))
	if f.Status != "" {
		q = q.Where("status = ?", f.Status)
	}
	if f.PaymentMethod != "" {
		q = q.Where("payment_method = ?", f.PaymentMethod)
	}
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if f.TenantID != nil {
		q = q.Where("tenant_id = ?", *f.TenantID)
	}
	if f.ContractID != nil {
		q = q.Where("contract_id = ?", *f.ContractID)
	}
	if f.Month != 0 {
		q = q.Where("month = ?", f.Month)
	}
	if f.Year != 0 {
		q = q.Where("year = ?", f.Year)
	}
	q = searchAny(q, f.Search, "payment_code", "notes")

	var payments []model.Payment
	page, err := paginate(q, f.ListParams, paymentSort, &payments, "Room", "Tenant", "Contract")
	if err != nil {
		return nil, Pagination{}, err
	}
	return payments, page, nil
}

// Get loads a payment with room, tenant and contract
func (s *PaymentService) Get(ctx context.Context, id uint) (*model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_get")(time.Now())

	var payment model.Payment
	err := withBillingParties(onlyActive(s.db.WithContext(ctx))).First(&payment, id).Error
	if err != nil {
		return nil, notFound(err, msgPaymentNotFound)
	}
	return &payment, nil
}

// GetMany loads the given payments, skipping unknown IDs
func (s *PaymentService) GetMany(ctx context.Context, ids []uint) ([]model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_get_many")(time.Now())

	var payments []model.Payment
	if len(ids) == 0 {
		return payments, nil
	}
	err := withBillingParties(onlyActive(s.db.WithContext(ctx))).
		Where("id IN ?", ids).
		Order("id asc").
		Find(&payments).Error
	return payments, dbErr(err, "load payments")
}

func periodExists(tx *gorm.DB, contractID uint, month, year int) (bool, error) {
	var count int64
	err := onlyActive(tx.Model(&model.Payment{})).
		Where("contract_id = ? AND month = ? AND year = ?", contractID, month, year).
		Count(&count).Error
	if err != nil {
		return false, errors.Wrap(err, "check billing period")
	}
	return count > 0, nil
}

// Create bills one period of a contract. Room, tenant, due date and unit
// prices default to the contract's terms.
func (s *PaymentService) Create(ctx context.Context, p *model.Payment) error {
	defer prometheus.TrackDBOperation("payment_create")(time.Now())

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var contract model.Contract
		if err := onlyActive(tx).First(&contract, p.ContractID).Error; err != nil {
			return notFound(err, msgContractNotFound)
		}

		exists, err := periodExists(tx, contract.ID, p.Month, p.Year)
		if err != nil {
			return err
		}
		if exists {
			return apperr.Precondition(msgPeriodExists)
		}

		p.ID = 0
		p.RoomID = contract.RoomID
		p.TenantID = contract.TenantID
		p.IsActive = true
		p.Status = model.PaymentPending
		p.PaidDate = nil
		if p.DueDate.IsZero() {
			p.DueDate = model.DueDateFor(p.Year, p.Month, contract.PaymentDay, s.loc)
		}
		if p.ElectricityPrice.IsZero() {
			p.ElectricityPrice = contract.ElectricityPrice
		}
		if p.WaterPrice.IsZero() {
			p.WaterPrice = contract.WaterPrice
		}
		if p.Month < 1 || p.Month > 12 || p.Year < 2020 {
			return p.Validate()
		}

		code, err := nextPaymentCode(tx, p.Year, p.Month)
		if err != nil {
			return err
		}
		p.PaymentCode = code
		return dbErr(tx.Omit(clause.Associations).Create(p).Error, "create payment")
	})
	if err != nil {
		return err
	}

	prometheus.RecordOperation("payment", "create")
	s.log.Info("Payment created",
		zap.Uint("payment_id", p.ID),
		zap.String("payment_code", p.PaymentCode),
		zap.String("total_amount", p.TotalAmount.String()))
	return nil
}

// Update merges a patch into the billable fields of an unpaid payment.
// Amounts are recomputed by the save hook.
func (s *PaymentService) Update(ctx context.Context, id uint, patch Patch[model.Payment]) (*model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_update")(time.Now())

	var payment model.Payment
	if err := onlyActive(s.db.WithContext(ctx)).First(&payment, id).Error; err != nil {
		return nil, notFound(err, msgPaymentNotFound)
	}
	if payment.Status == model.PaymentPaid {
		return nil, apperr.Precondition("Không thể cập nhật thanh toán đã thanh toán")
	}
	in, err := patched(s.db.WithContext(ctx), id, patch)
	if err != nil {
		return nil, err
	}

	payment.RentAmount = in.RentAmount
	payment.ElectricityUsage = in.ElectricityUsage
	payment.ElectricityPrice = in.ElectricityPrice
	payment.WaterUsage = in.WaterUsage
	payment.WaterPrice = in.WaterPrice
	payment.InternetAmount = in.InternetAmount
	payment.ParkingAmount = in.ParkingAmount
	payment.CleaningAmount = in.CleaningAmount
	payment.OtherFees = in.OtherFees
	payment.Discount = in.Discount
	payment.DiscountReason = in.DiscountReason
	payment.Notes = in.Notes
	payment.Receipts = in.Receipts
	payment.BankTransfer = in.BankTransfer
	if !in.DueDate.IsZero() {
		payment.DueDate = in.DueDate
	}
	if payment.Status == model.PaymentOverdue {
		// re-evaluated by the save hook against the new due date
		payment.Status = model.PaymentPending
	}

	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&payment).Error; err != nil {
		return nil, dbErr(err, "update payment")
	}

	prometheus.RecordOperation("payment", "update")
	s.log.Info("Payment updated",
		zap.Uint("payment_id", id),
		zap.String("total_amount", payment.TotalAmount.String()))
	return s.Get(ctx, id)
}

// MarkPaidInput carries the settlement details
type MarkPaidInput struct {
	Method       model.PaymentMethod
	Notes        string
	BankTransfer *model.BankTransfer
}

// MarkPaid settles a payment. Paying twice is rejected.
func (s *PaymentService) MarkPaid(ctx context.Context, id uint, in MarkPaidInput) (*model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_mark_paid")(time.Now())

	var payment model.Payment
	if err := onlyActive(s.db.WithContext(ctx)).First(&payment, id).Error; err != nil {
		return nil, notFound(err, msgPaymentNotFound)
	}
	if payment.Status == model.PaymentPaid {
		return nil, apperr.Precondition("Thanh toán đã được thanh toán")
	}
	if payment.Status == model.PaymentCancelled {
		return nil, apperr.Precondition("Không thể thanh toán khoản đã hủy")
	}

	payment.MarkPaid(in.Method, in.Notes, model.Now())
	if in.BankTransfer != nil {
		payment.BankTransfer = *in.BankTransfer
	}
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&payment).Error; err != nil {
		return nil, dbErr(err, "mark payment paid")
	}

	prometheus.RecordOperation("payment", "mark_paid")
	s.log.Info("Payment marked as paid",
		zap.Uint("payment_id", id),
		zap.String("method", string(payment.PaymentMethod)))
	return s.Get(ctx, id)
}

// Cancel voids an unpaid payment
func (s *PaymentService) Cancel(ctx context.Context, id uint, reason string) (*model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_cancel")(time.Now())

	var payment model.Payment
	if err := onlyActive(s.db.WithContext(ctx)).First(&payment, id).Error; err != nil {
		return nil, notFound(err, msgPaymentNotFound)
	}
	if payment.Status == model.PaymentPaid {
		return nil, apperr.Precondition("Không thể hủy thanh toán đã thanh toán")
	}

	payment.Cancel(reason, model.Now())
	if err := s.db.WithContext(ctx).Omit(clause.Associations).Save(&payment).Error; err != nil {
		return nil, dbErr(err, "cancel payment")
	}

	prometheus.RecordOperation("payment", "cancel")
	s.log.Info("Payment cancelled", zap.Uint("payment_id", id), zap.String("reason", reason))
	return s.Get(ctx, id)
}

// Delete soft-deletes an unpaid payment
func (s *PaymentService) Delete(ctx context.Context, id uint) error {
	defer prometheus.TrackDBOperation("payment_delete")(time.Now())

	var payment model.Payment
	if err := onlyActive(s.db.WithContext(ctx)).First(&payment, id).Error; err != nil {
		return notFound(err, msgPaymentNotFound)
	}
	if payment.Status == model.PaymentPaid {
		return apperr.Precondition("Không thể xóa thanh toán đã thanh toán")
	}
	if err := s.db.WithContext(ctx).Model(&payment).UpdateColumn("is_active", false).Error; err != nil {
		return errors.Wrap(err, "soft delete payment")
	}

	prometheus.RecordOperation("payment", "delete")
	s.log.Info("Payment deleted", zap.Uint("payment_id", id))
	return nil
}

// BulkError explains why one contract was not billed
type BulkError struct {
	ContractNumber string `json:"contractNumber"`
	Room           string `json:"room"`
	Message        string `json:"message"`
}

// BulkResult is the outcome of BulkCreate
type BulkResult struct {
	Created      int             `json:"created"`
	Errors       int             `json:"errors"`
	Payments     []model.Payment `json:"payments"`
	ErrorDetails []BulkError     `json:"errorDetails"`
}

// BulkCreate bills every active contract for one period. Each contract is
// billed in its own transaction so one failure never aborts the batch.
func (s *PaymentService) BulkCreate(ctx context.Context, month, year int, roomIDs []uint) (*BulkResult, error) {
	defer prometheus.TrackDBOperation("payment_bulk_create")(time.Now())

	if month == 0 || year == 0 {
		return nil, apperr.Validation("month", "Tháng và năm là bắt buộc")
	}
	if month < 1 || month > 12 {
		return nil, apperr.Validation("month", "Tháng phải từ 1-12")
	}
	if year < 2020 {
		return nil, apperr.Validation("year", "Năm phải từ 2020 trở lên")
	}

	q := onlyActive(s.db.WithContext(ctx)).
		Preload("Room").
		Where("status = ?", model.ContractActive)
	if len(roomIDs) > 0 {
		q = q.Where("room_id IN ?", roomIDs)
	}
	var contracts []model.Contract
	if err := q.Order("id asc").Find(&contracts).Error; err != nil {
		return nil, dbErr(err, "load active contracts")
	}

	result := &BulkResult{Payments: []model.Payment{}, ErrorDetails: []BulkError{}}
	for i := range contracts {
		c := &contracts[i]
		roomNumber := ""
		if c.Room != nil {
			roomNumber = c.Room.Number
		}

		var created model.Payment
		err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
			exists, err := periodExists(tx, c.ID, month, year)
			if err != nil {
				return err
			}
			if exists {
				return apperr.Precondition(msgPeriodExists)
			}
			created = s.firstPayment(c, year, month)
			code, err := nextPaymentCode(tx, year, month)
			if err != nil {
				return err
			}
			created.PaymentCode = code
			return dbErr(tx.Omit(clause.Associations).Create(&created).Error, "create payment")
		})
		if err != nil {
			s.log.Warn("Bulk payment skipped",
				zap.String("contract_number", c.ContractNumber),
				zap.Error(err))
			result.ErrorDetails = append(result.ErrorDetails, BulkError{
				ContractNumber: c.ContractNumber,
				Room:           roomNumber,
				Message:        errors.Cause(err).Error(),
			})
			continue
		}
		result.Payments = append(result.Payments, created)
	}
	result.Created = len(result.Payments)
	result.Errors = len(result.ErrorDetails)

	prometheus.RecordBulkPayments(result.Created, result.Errors)
	s.log.Info("Bulk payments created",
		zap.Int("month", month),
		zap.Int("year", year),
		zap.Int("created", result.Created),
		zap.Int("errors", result.Errors))
	return result, nil
}

// FindOverdue returns unpaid payments past their due date
func (s *PaymentService) FindOverdue(ctx context.Context) ([]model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_overdue")(time.Now())

	var payments []model.Payment
	err := withBillingParties(onlyActive(s.db.WithContext(ctx))).
		Where("status IN ? AND due_date < ?",
			[]model.PaymentStatus{model.PaymentPending, model.PaymentOverdue}, model.Now()).
		Order("due_date asc").
		Find(&payments).Error
	return payments, dbErr(err, "find overdue payments")
}

// FindDueWithin returns pending payments due in the next days days
func (s *PaymentService) FindDueWithin(ctx context.Context, days int) ([]model.Payment, error) {
	defer prometheus.TrackDBOperation("payment_due_soon")(time.Now())

	if days <= 0 {
		days = 3
	}
	now := model.Now()
	var payments []model.Payment
	err := withBillingParties(onlyActive(s.db.WithContext(ctx))).
		Where("status = ? AND due_date >= ? AND due_date <= ?",
			model.PaymentPending, now, now.AddDate(0, 0, days)).
		Order("due_date asc").
		Find(&payments).Error
	return payments, dbErr(err, "find payments due soon")
}

// MarkOverdue flips every pending payment past its due date to overdue
func (s *PaymentService) MarkOverdue(ctx context.Context) (int64, error) {
	defer prometheus.TrackDBOperation("payment_overdue_sweep")(time.Now())

	now := model.Now()
	res := s.db.WithContext(ctx).Model(&model.Payment{}).
		Where("is_active = ? AND status = ? AND due_date < ?", true, model.PaymentPending, now).
		UpdateColumns(map[string]interface{}{
			"status":     model.PaymentOverdue,
			"updated_at": now,
		})
	if res.Error != nil {
		return 0, errors.Wrap(res.Error, "mark payments overdue")
	}
	return res.RowsAffected, nil
}

// PeriodStats summarizes the bills of one month
type PeriodStats struct {
	Year       int             `json:"year"`
	Month      int             `json:"month"`
	Total      int64           `json:"total"`
	Paid       int64           `json:"paid"`
	Amount     decimal.Decimal `json:"amount"`
	PaidAmount decimal.Decimal `json:"paidAmount"`
}

// MethodStats is the paid volume of one payment method
type MethodStats struct {
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

// PaymentStats is the payment overview
type PaymentStats struct {
	Total              int64                  `json:"total"`
	Paid               int64                  `json:"paid"`
	Pending            int64                  `json:"pending"`
	Overdue            int64                  `json:"overdue"`
	Cancelled          int64                  `json:"cancelled"`
	TotalRevenue       decimal.Decimal        `json:"totalRevenue"`
	PendingAmount      decimal.Decimal        `json:"pendingAmount"`
	OverdueAmount      decimal.Decimal        `json:"overdueAmount"`
	PaymentRate        float64                `json:"paymentRate"`
	MonthlyRevenue     []MonthlyAmount        `json:"monthlyRevenue"`
	MonthlyStats       []PeriodStats          `json:"monthlyStats"`
	PaymentMethodStats map[string]MethodStats `json:"paymentMethodStats"`
}

// Stats builds the payment overview
func (s *PaymentService) Stats(ctx context.Context) (*PaymentStats, error) {
	defer prometheus.TrackDBOperation("payment_stats")(time.Now())

	var payments []model.Payment
	if err := onlyActive(s.db.WithContext(ctx)).Find(&payments).Error; err != nil {
		return nil, dbErr(err, "load payments")
	}

	now := model.Now()
	stats := &PaymentStats{
		Total:              int64(len(payments)),
		TotalRevenue:       decimal.Zero,
		PendingAmount:      decimal.Zero,
		OverdueAmount:      decimal.Zero,
		PaymentMethodStats: map[string]MethodStats{},
	}
	periods := map[[2]int]*PeriodStats{}
	var paid []model.Payment
	for i := range payments {
		p := &payments[i]
		key := [2]int{p.Year, p.Month}
		ps, ok := periods[key]
		if !ok {
			ps = &PeriodStats{Year: p.Year, Month: p.Month, Amount: decimal.Zero, PaidAmount: decimal.Zero}
			periods[key] = ps
		}
		ps.Total++
		ps.Amount = ps.Amount.Add(p.TotalAmount)

		switch p.DerivedStatus(now) {
		case model.PaymentPaid:
			stats.Paid++
			stats.TotalRevenue = stats.TotalRevenue.Add(p.TotalAmount)
			ps.Paid++
			ps.PaidAmount = ps.PaidAmount.Add(p.TotalAmount)
			ms := stats.PaymentMethodStats[string(p.PaymentMethod)]
			ms.Count++
			ms.Amount = ms.Amount.Add(p.TotalAmount)
			stats.PaymentMethodStats[string(p.PaymentMethod)] = ms
			paid = append(paid, *p)
		case model.PaymentPending:
			stats.Pending++
			stats.PendingAmount = stats.PendingAmount.Add(p.TotalAmount)
		case model.PaymentOverdue:
			stats.Overdue++
			stats.OverdueAmount = stats.OverdueAmount.Add(p.TotalAmount)
		case model.PaymentCancelled:
			stats.Cancelled++
		}
	}
	stats.PaymentRate = percent(stats.Paid, stats.Total-stats.Cancelled)
	stats.MonthlyRevenue = monthlyTotals(paid, 12)

	stats.MonthlyStats = make([]PeriodStats, 0, len(periods))
	for _, ps := range periods {
		stats.MonthlyStats = append(stats.MonthlyStats, *ps)
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

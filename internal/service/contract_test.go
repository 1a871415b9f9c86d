package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateContractLeasesRoomAndBillsFirstMonth(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)

	c := mustContract(t, svc, room, tenant)
	assert.Equal(t, "HD20240001", c.ContractNumber)
	assert.Equal(t, model.ContractActive, c.Status)

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomOccupied, gotRoom.Status)
	require.NotNil(t, gotRoom.TenantID)
	assert.Equal(t, tenant.ID, *gotRoom.TenantID)

	gotTenant, err := svc.Tenants.Get(ctx, tenant.ID)
	require.NoError(t, err)
	require.NotNil(t, gotTenant.RoomID)
	assert.Equal(t, room.ID, *gotTenant.RoomID)
	assert.Equal(t, model.TenantActive, gotTenant.Status)
	require.NotNil(t, gotTenant.MoveInDate)
	assert.True(t, gotTenant.MoveInDate.Equal(c.StartDate))

	var payments []model.Payment
	require.NoError(t, db.Where("contract_id = ?", c.ID).Find(&payments).Error)
	require.Len(t, payments, 1)
	p := payments[0]
	assert.Equal(t, "TT2024010001", p.PaymentCode)
	assert.Equal(t, 1, p.Month)
	assert.Equal(t, 2024, p.Year)
	assert.True(t, p.DueDate.Equal(time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)))
	assert.True(t, p.RentAmount.Equal(decimal.NewFromInt(800000)))
	assert.True(t, p.ElectricityUsage.IsZero())
	assert.True(t, p.WaterUsage.IsZero())
	assert.True(t, p.TotalAmount.Equal(decimal.NewFromInt(800000)))
	assert.Equal(t, model.PaymentPending, p.Status)
}

func TestCreateContractNumbersAreSequential(t *testing.T) {
	svc, _ := newTestServices(t)

	first := mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))
	second := mustContract(t, svc, mustRoom(t, svc, "R102"), mustTenant(t, svc, 2))

	assert.Equal(t, "HD20240001", first.ContractNumber)
	assert.Equal(t, "HD20240002", second.ContractNumber)
}

func TestCreateContractOnUnavailableRoomChangesNothing(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)

	_, err := svc.Rooms.Update(ctx, room.ID, Set(func(r *model.Room) { r.Status = model.RoomMaintenance }))
	require.NoError(t, err)

	err = svc.Contracts.Create(ctx, leaseTerms(room, tenant))
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)

	assert.Zero(t, count(t, db, &model.Contract{}))
	assert.Zero(t, count(t, db, &model.Payment{}))

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomMaintenance, gotRoom.Status)
	assert.Nil(t, gotRoom.TenantID)

	gotTenant, err := svc.Tenants.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Nil(t, gotTenant.RoomID)
}

func TestCreateContractWithMissingPartyFails(t *testing.T) {
	svc, _ := newTestServices(t)
	room := mustRoom(t, svc, "R101")

	err := svc.Contracts.Create(context.Background(), leaseTerms(room, &model.Tenant{ID: 999}))
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Phòng hoặc khách thuê không tồn tại", pre.Message)
}

func TestCreateContractRejectsEndBeforeStart(t *testing.T) {
	svc, db := newTestServices(t)
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)

	c := leaseTerms(room, tenant)
	c.EndDate = c.StartDate
	err := svc.Contracts.Create(context.Background(), c)

	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "endDate", verr.Fields[0].Field)
	assert.Zero(t, count(t, db, &model.Contract{}))

	gotRoom, err := svc.Rooms.Get(context.Background(), room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomAvailable, gotRoom.Status)
}

func TestTerminateContractReleasesRoomAndTenant(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)
	c := mustContract(t, svc, room, tenant)

	got, err := svc.Contracts.Terminate(ctx, c.ID, "khách chuyển đi")
	require.NoError(t, err)
	assert.Equal(t, model.ContractTerminated, got.Status)
	assert.Equal(t, "khách chuyển đi", got.TerminationReason)
	require.NotNil(t, got.TerminationDate)

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomAvailable, gotRoom.Status)
	assert.Nil(t, gotRoom.TenantID)

	gotTenant, err := svc.Tenants.Get(ctx, tenant.ID)
	require.NoError(t, err)
	assert.Equal(t, model.TenantMovedOut, gotTenant.Status)
	assert.Nil(t, gotTenant.RoomID)
	assert.NotNil(t, gotTenant.MoveOutDate)

	_, err = svc.Contracts.Terminate(ctx, c.ID, "again")
	var pre *apperr.PreconditionError
	assert.ErrorAs(t, err, &pre)
}

func TestUpdateContractPartialKeepsTerms(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	c := mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))

	got, err := svc.Contracts.Update(ctx, c.ID, func(row *model.Contract) error {
		return json.Unmarshal([]byte(`{"paymentDay":10,"notes":"đổi ngày thu tiền"}`), row)
	})
	require.NoError(t, err)
	assert.Equal(t, 10, got.PaymentDay)
	assert.Equal(t, "đổi ngày thu tiền", got.Notes)
	assert.True(t, got.MonthlyRent.Equal(decimal.NewFromInt(800000)), got.MonthlyRent.String())
	assert.True(t, got.Deposit.Equal(decimal.NewFromInt(800000)))
	assert.True(t, got.ElectricityPrice.Equal(decimal.NewFromInt(3000)))
	assert.True(t, got.WaterPrice.Equal(decimal.NewFromInt(5000)))
	assert.True(t, got.EndDate.Equal(c.EndDate))

	bill := svc.Contracts.firstPayment(got, 2024, 2)
	assert.True(t, bill.RentAmount.Equal(decimal.NewFromInt(800000)))
}

func TestRenewContract(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	c := mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))

	newEnd := time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)
	got, err := svc.Contracts.Renew(ctx, c.ID, newEnd, "")
	require.NoError(t, err)
	assert.Equal(t, model.ContractRenewed, got.Status)
	assert.True(t, got.EndDate.Equal(newEnd))
	require.Len(t, got.RenewalHistory, 1)
	assert.Equal(t, model.DefaultRenewalReason, got.RenewalHistory[0].Reason)
	assert.True(t, got.RenewalHistory[0].OldEndDate.Equal(c.EndDate))

	_, err = svc.Contracts.Renew(ctx, c.ID, newEnd.AddDate(1, 0, 0), "")
	var pre *apperr.PreconditionError
	assert.ErrorAs(t, err, &pre)
}

func TestRenewContractRequiresLaterEndDate(t *testing.T) {
	svc, _ := newTestServices(t)
	c := mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))

	_, err := svc.Contracts.Renew(context.Background(), c.ID, c.EndDate.AddDate(0, -1, 0), "")
	var verr *apperr.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestDeleteContractGuards(t *testing.T) {
	svc, db := newTestServices(t)
	ctx := context.Background()
	c := mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))

	err := svc.Contracts.Delete(ctx, c.ID)
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Không thể xóa hợp đồng đang hoạt động", pre.Message)

	_, err = svc.Contracts.Terminate(ctx, c.ID, "")
	require.NoError(t, err)

	err = svc.Contracts.Delete(ctx, c.ID)
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Không thể xóa hợp đồng có thanh toán liên quan", pre.Message)

	require.NoError(t, db.Model(&model.Payment{}).Where("contract_id = ?", c.ID).
		UpdateColumn("is_active", false).Error)
	require.NoError(t, svc.Contracts.Delete(ctx, c.ID))

	_, err = svc.Contracts.Get(ctx, c.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestFindExpiringAndExpired(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	c := mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))

	setClock(t, time.Date(2024, 12, 15, 0, 0, 0, 0, time.UTC))
	expiring, err := svc.Contracts.FindExpiringWithin(ctx, 30)
	require.NoError(t, err)
	require.Len(t, expiring, 1)
	assert.Equal(t, c.ID, expiring[0].ID)
	assert.Equal(t, model.ContractExpiringSoon, expiring[0].EffectiveStatus(model.Now()))

	expired, err := svc.Contracts.FindExpired(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)

	setClock(t, time.Date(2025, 1, 15, 0, 0, 0, 0, time.UTC))
	expired, err = svc.Contracts.FindExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)

	n, err := svc.Contracts.ExpireOverdue(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	got, err := svc.Contracts.Get(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ContractExpired, got.Status)
}

func TestContractStats(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))
	second := mustContract(t, svc, mustRoom(t, svc, "R102"), mustTenant(t, svc, 2))
	_, err := svc.Contracts.Terminate(ctx, second.ID, "")
	require.NoError(t, err)

	stats, err := svc.Contracts.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Active)
	assert.Equal(t, int64(1), stats.Terminated)
	assert.Equal(t, int64(2), stats.DurationStats["1_2_years"])
}

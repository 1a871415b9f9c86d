package service

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"rental-service/internal/apperr"
	"rental-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateTenantRejectsDuplicates(t *testing.T) {
	svc, _ := newTestServices(t)
	first := mustTenant(t, svc, 1)

	dup := *first
	dup.ID = 0
	dup.Phone = "0911111111"
	dup.IDCard = "111111111"
	err := svc.Tenants.Create(context.Background(), &dup)

	var derr *apperr.DuplicateError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "email", derr.Field)
	assert.Equal(t, "email already exists", derr.Error())
}

func TestCreateTenantValidatesFields(t *testing.T) {
	svc, _ := newTestServices(t)

	err := svc.Tenants.Create(context.Background(), &model.Tenant{
		Name:   "Tran Thi B",
		Phone:  "12345",
		Email:  "b@example.com",
		IDCard: "123456789",
	})
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "phone", verr.Fields[0].Field)
	assert.Equal(t, "Số điện thoại không hợp lệ", verr.Fields[0].Message)
}

func TestCreateTenantWithRoomOccupiesIt(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")

	tenant := &model.Tenant{
		Name:   "Le Van C",
		Phone:  "0987654321",
		Email:  "c@example.com",
		IDCard: "987654321",
		RoomID: &room.ID,
	}
	require.NoError(t, svc.Tenants.Create(ctx, tenant))

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomOccupied, gotRoom.Status)
	require.NotNil(t, gotRoom.TenantID)
	assert.Equal(t, tenant.ID, *gotRoom.TenantID)
}

func TestUpdateTenantStatusReleasesRoom(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)

	_, err := svc.Tenants.MoveIn(ctx, tenant.ID, room.ID, time.Time{})
	require.NoError(t, err)

	got, err := svc.Tenants.Update(ctx, tenant.ID, Set(func(row *model.Tenant) { row.Status = model.TenantMovedOut }))
	require.NoError(t, err)
	assert.Equal(t, model.TenantMovedOut, got.Status)
	assert.NotNil(t, got.MoveOutDate)

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomAvailable, gotRoom.Status)
	assert.Nil(t, gotRoom.TenantID)
}

func TestUpdateTenantProfileKeepsLease(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)
	mustContract(t, svc, room, tenant)

	got, err := svc.Tenants.Update(ctx, tenant.ID, func(row *model.Tenant) error {
		return json.Unmarshal([]byte(`{
			"name": "Nguyen Van Moi",
			"phone": "0900000001",
			"email": "tenant1@example.com",
			"idCard": "000000000001",
			"occupation": "teacher"
		}`), row)
	})
	require.NoError(t, err)
	assert.Equal(t, "Nguyen Van Moi", got.Name)
	assert.Equal(t, "teacher", got.Occupation)
	assert.Equal(t, model.TenantActive, got.Status)
	require.NotNil(t, got.RoomID)
	assert.Equal(t, room.ID, *got.RoomID)

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomOccupied, gotRoom.Status)
	require.NotNil(t, gotRoom.TenantID)
	assert.Equal(t, tenant.ID, *gotRoom.TenantID)
}

func TestUpdateTenantDetectsMixedCaseEmail(t *testing.T) {
	svc, _ := newTestServices(t)
	mustTenant(t, svc, 1)
	other := mustTenant(t, svc, 2)

	_, err := svc.Tenants.Update(context.Background(), other.ID, Set(func(row *model.Tenant) {
		row.Email = " Tenant1@Example.COM "
	}))
	var derr *apperr.DuplicateError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "email", derr.Field)
}

func TestUpdateTenantRoomSwitchesOccupancy(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	r1 := mustRoom(t, svc, "R101")
	r2 := mustRoom(t, svc, "R102")
	tenant := mustTenant(t, svc, 1)

	_, err := svc.Tenants.MoveIn(ctx, tenant.ID, r1.ID, time.Time{})
	require.NoError(t, err)

	_, err = svc.Tenants.Update(ctx, tenant.ID, Set(func(row *model.Tenant) { row.RoomID = &r2.ID }))
	require.NoError(t, err)

	old, err := svc.Rooms.Get(ctx, r1.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomAvailable, old.Status)
	assert.Nil(t, old.TenantID)

	next, err := svc.Rooms.Get(ctx, r2.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomOccupied, next.Status)
	require.NotNil(t, next.TenantID)
	assert.Equal(t, tenant.ID, *next.TenantID)
}

func TestUpdateTenantIntoOccupiedRoomRollsBack(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	holder := mustTenant(t, svc, 1)
	other := mustTenant(t, svc, 2)

	_, err := svc.Tenants.MoveIn(ctx, holder.ID, room.ID, time.Time{})
	require.NoError(t, err)

	_, err = svc.Tenants.Update(ctx, other.ID, Set(func(row *model.Tenant) {
		row.RoomID = &room.ID
		row.Occupation = "engineer"
	}))
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)

	reloaded, err := svc.Tenants.Get(ctx, other.ID)
	require.NoError(t, err)
	assert.Nil(t, reloaded.RoomID)
	assert.Empty(t, reloaded.Occupation)
}

func TestMoveInRequiresAvailableRoom(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	first := mustTenant(t, svc, 1)
	second := mustTenant(t, svc, 2)

	moveInAt := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	got, err := svc.Tenants.MoveIn(ctx, first.ID, room.ID, moveInAt)
	require.NoError(t, err)
	require.NotNil(t, got.MoveInDate)
	assert.True(t, got.MoveInDate.Equal(moveInAt))

	_, err = svc.Tenants.MoveIn(ctx, second.ID, room.ID, moveInAt)
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, msgRoomUnavailable, pre.Message)
}

func TestMoveOut(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	tenant := mustTenant(t, svc, 1)

	_, err := svc.Tenants.MoveOut(ctx, tenant.ID, time.Time{}, "")
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Khách thuê không đang thuê phòng nào", pre.Message)

	_, err = svc.Tenants.MoveIn(ctx, tenant.ID, room.ID, time.Time{})
	require.NoError(t, err)

	got, err := svc.Tenants.MoveOut(ctx, tenant.ID, time.Time{}, "về quê")
	require.NoError(t, err)
	assert.Equal(t, model.TenantMovedOut, got.Status)
	assert.Nil(t, got.RoomID)
	assert.Contains(t, got.Notes, "Lý do chuyển đi: về quê")

	gotRoom, err := svc.Rooms.Get(ctx, room.ID)
	require.NoError(t, err)
	assert.Equal(t, model.RoomAvailable, gotRoom.Status)
}

func TestDeleteTenantGuards(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	room := mustRoom(t, svc, "R101")
	renting := mustTenant(t, svc, 1)
	idle := mustTenant(t, svc, 2)
	mustContract(t, svc, room, renting)

	err := svc.Tenants.Delete(ctx, renting.ID)
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Không thể xóa khách thuê đang thuê phòng", pre.Message)

	require.NoError(t, svc.Tenants.Delete(ctx, idle.ID))
	_, err = svc.Tenants.Get(ctx, idle.ID)
	assert.True(t, apperr.IsNotFound(err))
}

func TestTenantStats(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))
	mustTenant(t, svc, 2)

	stats, err := svc.Tenants.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(2), stats.Active)
	assert.Equal(t, int64(1), stats.WithRoom)
	assert.Equal(t, int64(2), stats.GenderStats[model.GenderMale])
	// born 1995-05-01, 28 on 2024-01-02
	assert.Equal(t, int64(2), stats.AgeStats["25_35"])
}

package service

import (
	"context"
	"testing"

	"rental-service/internal/apperr"
	"rental-service/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateRoomRejectsDuplicateNumber(t *testing.T) {
	svc, _ := newTestServices(t)
	mustRoom(t, svc, "R101")

	err := svc.Rooms.Create(context.Background(), &model.Room{
		Number: "R101", Name: "dup", Price: decimal.NewFromInt(1), Floor: 1,
	})
	var derr *apperr.DuplicateError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "number already exists", err.Error())
}

func TestUpdateRoomCannotForceOccupied(t *testing.T) {
	svc, _ := newTestServices(t)
	room := mustRoom(t, svc, "R101")

	got, err := svc.Rooms.Update(context.Background(), room.ID, Set(func(r *model.Room) { r.Status = model.RoomOccupied }))
	require.NoError(t, err)
	assert.Equal(t, model.RoomAvailable, got.Status)
}

func TestListRoomsFiltersAndPaginates(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	for _, n := range []string{"R103", "R101", "R102"} {
		mustRoom(t, svc, n)
	}
	expensive := mustRoom(t, svc, "R201")
	_, err := svc.Rooms.Update(ctx, expensive.ID, Set(func(r *model.Room) {
		r.Price = decimal.NewFromInt(2000000)
		r.Floor = 2
	}))
	require.NoError(t, err)

	rooms, page, err := svc.Rooms.List(ctx, RoomFilter{ListParams: ListParams{Limit: 2}})
	require.NoError(t, err)
	require.Len(t, rooms, 2)
	assert.Equal(t, "R101", rooms[0].Number)
	assert.Equal(t, "R102", rooms[1].Number)
	assert.Equal(t, Pagination{
		CurrentPage: 1, TotalPages: 2, TotalItems: 4, ItemsPerPage: 2, HasNext: true,
	}, page)

	floor := 2
	rooms, _, err = svc.Rooms.List(ctx, RoomFilter{Floor: &floor})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
	assert.Equal(t, "R201", rooms[0].Number)

	maxPrice := decimal.NewFromInt(1000000)
	rooms, _, err = svc.Rooms.List(ctx, RoomFilter{MaxPrice: &maxPrice, ListParams: ListParams{SortBy: "number", SortOrder: "desc"}})
	require.NoError(t, err)
	require.Len(t, rooms, 3)
	assert.Equal(t, "R103", rooms[0].Number)

	rooms, _, err = svc.Rooms.List(ctx, RoomFilter{ListParams: ListParams{Search: "r20"}})
	require.NoError(t, err)
	require.Len(t, rooms, 1)
}

func TestDeleteRoomGuards(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	leased := mustRoom(t, svc, "R101")
	empty := mustRoom(t, svc, "R102")
	c := mustContract(t, svc, leased, mustTenant(t, svc, 1))

	err := svc.Rooms.Delete(ctx, leased.ID)
	var pre *apperr.PreconditionError
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Không thể xóa phòng đang có khách thuê", pre.Message)

	_, err = svc.Contracts.Terminate(ctx, c.ID, "")
	require.NoError(t, err)
	err = svc.Rooms.Delete(ctx, leased.ID)
	require.ErrorAs(t, err, &pre)
	assert.Equal(t, "Không thể xóa phòng có hợp đồng hoặc thanh toán liên quan", pre.Message)

	require.NoError(t, svc.Rooms.Delete(ctx, empty.ID))
	_, err = svc.Rooms.Get(ctx, empty.ID)
	var nf *apperr.NotFoundError
	assert.ErrorAs(t, err, &nf)
}

func TestRoomStats(t *testing.T) {
	svc, _ := newTestServices(t)
	ctx := context.Background()
	mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))
	mustRoom(t, svc, "R102")

	stats, err := svc.Rooms.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), stats.Total)
	assert.Equal(t, int64(1), stats.Occupied)
	assert.Equal(t, int64(1), stats.Available)
	assert.Equal(t, 50.0, stats.OccupancyRate)
	require.Len(t, stats.FloorStats, 1)
	assert.Equal(t, int64(2), stats.FloorStats[0].Total)
	assert.Empty(t, stats.MonthlyRevenue)
}

func TestCreateRoomReportsNumberCheckFailure(t *testing.T) {
	svc, db := newTestServices(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	require.NoError(t, sqlDB.Close())

	err = svc.Rooms.Create(context.Background(), &model.Room{
		Number: "R101", Name: "Phòng R101", Price: decimal.NewFromInt(1), Floor: 1,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "check room number")
}

package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"rental-service/internal/model"
	"rental-service/pkg/config"
	"rental-service/pkg/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var testNow = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func setClock(t *testing.T, now time.Time) {
	t.Helper()
	prev := model.Now
	model.Now = func() time.Time { return now }
	t.Cleanup(func() { model.Now = prev })
}

func newTestServices(t *testing.T) (*Services, *gorm.DB) {
	t.Helper()
	setClock(t, testNow)

	db, err := database.OpenSQLite(":memory:")
	require.NoError(t, err)
	require.NoError(t, database.MigrateModels(db, model.All()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})

	pricing := config.PricingConfig{ElectricityPrice: 3000, WaterPrice: 5000, RoomBasePrice: 800000}
	return New(db, zap.NewNop(), pricing, time.UTC), db
}

func mustRoom(t *testing.T, svc *Services, number string) *model.Room {
	t.Helper()
	room := &model.Room{
		Number: number,
		Name:   "Phòng " + number,
		Price:  decimal.NewFromInt(800000),
		Area:   20,
		Floor:  1,
	}
	require.NoError(t, svc.Rooms.Create(context.Background(), room))
	return room
}

func mustTenant(t *testing.T, svc *Services, n int) *model.Tenant {
	t.Helper()
	tenant := &model.Tenant{
		Name:        fmt.Sprintf("Nguyen Van %d", n),
		Phone:       fmt.Sprintf("09%08d", n),
		Email:       fmt.Sprintf("tenant%d@example.com", n),
		IDCard:      fmt.Sprintf("%012d", n),
		DateOfBirth: time.Date(1995, 5, 1, 0, 0, 0, 0, time.UTC),
		Gender:      model.GenderMale,
	}
	require.NoError(t, svc.Tenants.Create(context.Background(), tenant))
	return tenant
}

func leaseTerms(room *model.Room, tenant *model.Tenant) *model.Contract {
	return &model.Contract{
		RoomID:           room.ID,
		TenantID:         tenant.ID,
		StartDate:        time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		MonthlyRent:      decimal.NewFromInt(800000),
		Deposit:          decimal.NewFromInt(800000),
		ElectricityPrice: decimal.NewFromInt(3000),
		WaterPrice:       decimal.NewFromInt(5000),
		PaymentDay:       5,
	}
}

func mustContract(t *testing.T, svc *Services, room *model.Room, tenant *model.Tenant) *model.Contract {
	t.Helper()
	c := leaseTerms(room, tenant)
	require.NoError(t, svc.Contracts.Create(context.Background(), c))
	return c
}

func count(t *testing.T, db *gorm.DB, m interface{}) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(m).Count(&n).Error)
	return n
}

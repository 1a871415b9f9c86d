package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"rental-service/internal/app"
	"rental-service/internal/model"
	"rental-service/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

var testNow = time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)

func testFactory(t *testing.T, webhook string) appFactory {
	t.Helper()
	prev := model.Now
	model.Now = func() time.Time { return testNow }
	t.Cleanup(func() { model.Now = prev })

	dir := t.TempDir()
	cfg := &config.Config{
		ServiceName: serviceName,
		DB: config.DBConfig{
			Driver:     "sqlite",
			SQLitePath: filepath.Join(dir, "rental.db"),
			LogLevel:   gormlogger.Silent,
		},
		Server:        config.ServerConfig{UploadsDir: filepath.Join(dir, "uploads")},
		AccessControl: config.AccessControlConfig{Timezone: "UTC"},
		Pricing:       config.PricingConfig{ElectricityPrice: 3000, WaterPrice: 5000},
		Discord:       config.DiscordConfig{WebhookURL: webhook, Timeout: time.Second},
		Backup:        config.BackupConfig{Driver: "fs", Directory: filepath.Join(dir, "backups"), RetentionDays: 30},
	}
	return func(ctx context.Context) (*app.App, error) {
		return app.New(ctx, cfg, zap.NewNop())
	}
}

func run(t *testing.T, open appFactory, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd(open)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute(), out.String())
	return out.String()
}

func seedLease(t *testing.T, open appFactory) {
	t.Helper()
	ctx := context.Background()
	a, err := open(ctx)
	require.NoError(t, err)
	defer a.Close()

	room := &model.Room{Number: "R101", Name: "Phòng 101", Price: decimal.NewFromInt(800000), Area: 20, Floor: 1}
	require.NoError(t, a.Services.Rooms.Create(ctx, room))
	tenant := &model.Tenant{
		Name: "Nguyen Van A", Phone: "0912345678", Email: "a@example.com", IDCard: "012345678901",
	}
	require.NoError(t, a.Services.Tenants.Create(ctx, tenant))
	require.NoError(t, a.Services.Contracts.Create(ctx, &model.Contract{
		RoomID:           room.ID,
		TenantID:         tenant.ID,
		StartDate:        time.Date(2023, 12, 1, 0, 0, 0, 0, time.UTC),
		EndDate:          time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
		MonthlyRent:      decimal.NewFromInt(800000),
		Deposit:          decimal.NewFromInt(800000),
		ElectricityPrice: decimal.NewFromInt(3000),
		WaterPrice:       decimal.NewFromInt(5000),
		PaymentDay:       5,
	}))
}

func TestBillingAndBackupJobs(t *testing.T) {
	open := testFactory(t, "")

	assert.Contains(t, run(t, open, "migrate"), "Database migrated")
	seedLease(t, open)

	assert.Contains(t, run(t, open, "payments", "bulk-create", "--month", "1", "--year", "2024"),
		"Created 1 payments for 01/2024, 0 errors")
	assert.Contains(t, run(t, open, "payments", "bulk-create"),
		"Created 0 payments for 01/2024, 1 errors")
	assert.Contains(t, run(t, open, "payments", "mark-overdue"), "Marked 0 payments overdue")
	assert.Contains(t, run(t, open, "contracts", "expire"), "Expired 0 contracts")

	assert.Contains(t, run(t, open, "backup", "create", "--no-files"), "Created backup_20240102_090000.zip")
	assert.Contains(t, run(t, open, "backup", "list"), "backup_20240102_090000.zip")
	assert.Contains(t, run(t, open, "backup", "restore", "backup_20240102_090000.zip"),
		"Restored backup_20240102_090000.zip: 1 rooms, 1 tenants, 1 contracts, 1 payments, 0 notes, 0 files")
	assert.Contains(t, run(t, open, "backup", "cleanup"), "Deleted 0 archives older than 30 days")
}

func TestNotifyJobs(t *testing.T) {
	var posts int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&posts, 1)
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	open := testFactory(t, srv.URL)
	run(t, open, "migrate")

	assert.Contains(t, run(t, open, "notify", "overdue"), "No outstanding payments")
	assert.Zero(t, atomic.LoadInt32(&posts))

	seedLease(t, open)
	run(t, open, "payments", "bulk-create", "--month", "1", "--year", "2024")

	assert.Contains(t, run(t, open, "notify", "overdue"), "Reminded about 1 payments")
	assert.Contains(t, run(t, open, "notify", "expiring"), "Warned about 1 contracts")
	assert.Equal(t, int32(2), atomic.LoadInt32(&posts))
}

func TestRestoreRequiresFileName(t *testing.T) {
	cmd := newRootCmd(testFactory(t, ""))
	cmd.SetArgs([]string{"backup", "restore"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	assert.Error(t, cmd.Execute())
}

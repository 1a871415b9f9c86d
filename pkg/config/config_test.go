package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/logger"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("rental-service")
	require.NoError(t, err)

	assert.Equal(t, "postgres", cfg.DB.Driver)
	assert.Equal(t, 2, cfg.AccessControl.BlockStartHour)
	assert.Equal(t, 5, cfg.AccessControl.BlockEndHour)
	assert.Equal(t, int64(3000), cfg.Pricing.ElectricityPrice)
	assert.Equal(t, int64(5000), cfg.Pricing.WaterPrice)
	assert.Equal(t, "bidv", cfg.QR.BankCode)
	assert.Equal(t, "https://img.vietqr.io/image", cfg.QR.BaseURL)
	assert.Equal(t, 30, cfg.Backup.RetentionDays)
	assert.Equal(t, "rental_service", cfg.Metrics.Prefix)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("DB_DRIVER", "sqlite")
	t.Setenv("DB_SQLITE_PATH", "file:test.db")
	t.Setenv("DB_LOG_LEVEL", "silent")
	t.Setenv("ACCESS_BLOCK_START_HOUR", "1")
	t.Setenv("ACCESS_BLOCK_END_HOUR", "3")
	t.Setenv("DISCORD_TIMEOUT", "3s")
	t.Setenv("QR_ACCOUNT_NAME", "Pham%20Thi%20Luyen")

	cfg, err := Load("rental-service")
	require.NoError(t, err)

	assert.Equal(t, "file:test.db", cfg.DB.GetDSN())
	assert.Equal(t, logger.Silent, cfg.DB.LogLevel)
	assert.Equal(t, 1, cfg.AccessControl.BlockStartHour)
	assert.Equal(t, 3, cfg.AccessControl.BlockEndHour)
	assert.Equal(t, 3*time.Second, cfg.Discord.Timeout)
	assert.Equal(t, "Pham Thi Luyen", cfg.QR.AccountName)
}

func TestLoadRejectsInvalidWindow(t *testing.T) {
	t.Setenv("ACCESS_BLOCK_START_HOUR", "6")
	t.Setenv("ACCESS_BLOCK_END_HOUR", "4")

	_, err := Load("rental-service")
	assert.Error(t, err)
}

func TestLoadRequiresBucketForS3(t *testing.T) {
	t.Setenv("BACKUP_DRIVER", "s3")

	_, err := Load("rental-service")
	assert.Error(t, err)

	t.Setenv("BACKUP_S3_BUCKET", "backups")
	cfg, err := Load("rental-service")
	require.NoError(t, err)
	assert.Equal(t, "backups", cfg.Backup.S3Bucket)
}

func TestPostgresDSN(t *testing.T) {
	c := DBConfig{Driver: "postgres", Host: "db", Port: "5432", User: "u", Password: "p", DBName: "n", SSLMode: "disable"}
	assert.Equal(t, "host=db port=5432 user=u password=p dbname=n sslmode=disable", c.GetDSN())
}

func TestLocationFallback(t *testing.T) {
	ac := AccessControlConfig{Timezone: "Not/AZone"}
	_, offset := time.Date(2024, 1, 1, 0, 0, 0, 0, ac.Location()).Zone()
	assert.Equal(t, 7*60*60, offset)
}

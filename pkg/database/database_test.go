package database

import (
	"testing"

	"rental-service/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm/logger"
)

type widget struct {
	ID   uint `gorm:"primarykey"`
	Name string
}

func TestInitDBWithSQLite(t *testing.T) {
	cfg := &config.DBConfig{Driver: "sqlite", SQLitePath: ":memory:", LogLevel: logger.Silent}

	db, err := InitDB(cfg, zap.NewNop())
	require.NoError(t, err)
	assert.Same(t, db, GetDB())

	require.NoError(t, MigrateModels(db, &widget{}))
	require.NoError(t, db.Create(&widget{Name: "a"}).Error)

	var count int64
	require.NoError(t, db.Model(&widget{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
	assert.NoError(t, Ping(db))
}

func TestMigrateModelsWithoutDB(t *testing.T) {
	assert.Error(t, MigrateModels(nil, &widget{}))
}

package database

import (
	"fmt"

	"rental-service/pkg/config"

	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	// pure-Go sqlite driver registered as "sqlite"
	_ "modernc.org/sqlite"
)

// DB is the global database instance
var DB *gorm.DB

// InitDB opens the configured database and applies pool settings
func InitDB(dbConfig *config.DBConfig, log *zap.Logger) (*gorm.DB, error) {
	var dialector gorm.Dialector
	switch dbConfig.Driver {
	case "sqlite":
		dialector = sqliteDialector(dbConfig.GetDSN())
	default:
		dialector = postgres.New(postgres.Config{
			DSN:                  dbConfig.GetDSN(),
			PreferSimpleProtocol: true, // Disables implicit prepared statement usage
		})
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                                   logger.Default.LogMode(dbConfig.LogLevel),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get database instance: %w", err)
	}

	if dbConfig.Driver == "sqlite" {
		// sqlite allows a single writer
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxIdleConns(dbConfig.MaxIdleConns)
		sqlDB.SetMaxOpenConns(dbConfig.MaxOpenConns)
		sqlDB.SetConnMaxLifetime(dbConfig.ConnMaxLifetime)
	}

	log.Info("Database connected successfully",
		zap.String("driver", dbConfig.Driver),
		zap.String("name", dbConfig.DBName))

	DB = db
	return db, nil
}

// OpenSQLite opens a sqlite database, used by tests and the CLI
func OpenSQLite(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqliteDialector(dsn), &gorm.Config{
		Logger:                                   logger.Default.LogMode(logger.Silent),
		DisableForeignKeyConstraintWhenMigrating: true,
	})
	if err != nil {
		return nil, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)
	return db, nil
}

func sqliteDialector(dsn string) gorm.Dialector {
	return sqlite.New(sqlite.Config{
		DriverName: "sqlite",
		DSN:        dsn,
	})
}

// MigrateModels runs migrations for the provided models
func MigrateModels(db *gorm.DB, models ...interface{}) error {
	if db == nil {
		return fmt.Errorf("database is not initialized")
	}

	if err := db.AutoMigrate(models...); err != nil {
		return fmt.Errorf("failed to run database migrations: %w", err)
	}

	return nil
}

// Ping checks that the underlying connection is alive
func Ping(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Ping()
}

// GetDB returns the database instance
func GetDB() *gorm.DB {
	return DB
}

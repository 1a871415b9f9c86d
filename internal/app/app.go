// Package app wires the configured dependencies shared by the server and
// the CLI.
package app

import (
	"context"
	"time"

	"rental-service/internal/backup"
	"rental-service/internal/middleware"
	"rental-service/internal/model"
	"rental-service/internal/notify"
	"rental-service/internal/service"
	"rental-service/pkg/blob"
	"rental-service/pkg/config"
	"rental-service/pkg/database"
	"rental-service/pkg/discord"
	"rental-service/pkg/vietqr"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// App holds the long-lived dependencies
type App struct {
	Config   *config.Config
	DB       *gorm.DB
	Location *time.Location
	Services *service.Services
	Notifier *notify.Notifier
	QR       *vietqr.Builder
	Backups  *backup.Manager
	Gate     *middleware.TimeGate
}

// New connects to the database and builds every component. Migration is
// left to the caller.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger, gateOpts ...middleware.TimeGateOption) (*App, error) {
	db, err := database.InitDB(&cfg.DB, log)
	if err != nil {
		return nil, err
	}

	store, err := blob.Open(ctx, cfg.Backup)
	if err != nil {
		return nil, errors.Wrap(err, "open backup store")
	}

	loc := cfg.AccessControl.Location()
	return &App{
		Config:   cfg,
		DB:       db,
		Location: loc,
		Services: service.New(db, log, cfg.Pricing, loc),
		Notifier: notify.New(discord.NewClient(cfg.Discord.WebhookURL, cfg.Discord.Timeout, log), loc),
		QR:       vietqr.New(cfg.QR),
		Backups: backup.New(db, store, backup.Options{
			UploadsDir:    cfg.Server.UploadsDir,
			RetentionDays: cfg.Backup.RetentionDays,
			Location:      loc,
		}, log),
		Gate: middleware.NewTimeGate(cfg.AccessControl, gateOpts...),
	}, nil
}

// Migrate creates or updates every table
func (a *App) Migrate() error {
	return database.MigrateModels(a.DB, model.All()...)
}

// Close releases the database connection
func (a *App) Close() error {
	sqlDB, err := a.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Package service implements the rental operations on top of GORM. Every
// operation that touches more than one row runs in a single transaction.
package service

import (
	"time"

	"rental-service/internal/apperr"
	"rental-service/pkg/config"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Services bundles the entity services sharing one database handle
type Services struct {
	Rooms     *RoomService
	Tenants   *TenantService
	Contracts *ContractService
	Payments  *PaymentService
	Notes     *NoteService
}

type base struct {
	db      *gorm.DB
	log     *zap.Logger
	pricing config.PricingConfig
	loc     *time.Location
}

// New wires every service to db
func New(db *gorm.DB, log *zap.Logger, pricing config.PricingConfig, loc *time.Location) *Services {
	if log == nil {
		log = zap.NewNop()
	}
	if loc == nil {
		loc = time.Local
	}
	b := &base{db: db, log: log, pricing: pricing, loc: loc}
	return &Services{
		Rooms:     &RoomService{base: b},
		Tenants:   &TenantService{base: b},
		Contracts: &ContractService{base: b},
		Payments:  &PaymentService{base: b},
		Notes:     &NoteService{base: b},
	}
}

// DB exposes the shared handle for health checks and backups
func (s *Services) DB() *gorm.DB {
	return s.Rooms.db
}

// Patch applies client changes onto a row. Fields it leaves alone keep
// their stored value.
type Patch[T any] func(*T) error

// Set returns a Patch that runs fn and never fails
func Set[T any](fn func(*T)) Patch[T] {
	return func(row *T) error {
		fn(row)
		return nil
	}
}

// patched loads a separate copy of row id and applies p to it. The copy
// shares no memory with rows loaded by the caller, so those stay usable as
// the before image.
func patched[T any](tx *gorm.DB, id uint, p Patch[T]) (*T, error) {
	var row T
	if err := tx.First(&row, id).Error; err != nil {
		return nil, dbErr(err, "reload row")
	}
	if p != nil {
		if err := p(&row); err != nil {
			return nil, err
		}
	}
	return &row, nil
}

// dbErr maps unique violations and adds context
func dbErr(err error, msg string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}
	return errors.Wrap(apperr.FromDB(err), msg)
}

// notFound converts gorm.ErrRecordNotFound into a NotFoundError with msg
func notFound(err error, msg string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperr.NotFound(msg)
	}
	return dbErr(err, msg)
}

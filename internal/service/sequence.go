package service

import (
	"fmt"
	"strconv"

	"rental-service/internal/model"

	"github.com/pkg/errors"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// nextSequence atomically reserves the next number for prefix. It must run
// inside the caller's transaction so the reservation rolls back with it.
func nextSequence(tx *gorm.DB, prefix string) (int64, error) {
	err := tx.Clauses(clause.OnConflict{DoNothing: true}).
		Create(&model.SequenceCounter{Prefix: prefix, Value: 0}).Error
	if err != nil {
		return 0, errors.Wrap(err, "seed sequence")
	}

	err = tx.Model(&model.SequenceCounter{}).
		Where("prefix = ?", prefix).
		UpdateColumn("value", gorm.Expr("value + ?", 1)).Error
	if err != nil {
		return 0, errors.Wrap(err, "increment sequence")
	}

	var counter model.SequenceCounter
	if err := tx.Where("prefix = ?", prefix).First(&counter).Error; err != nil {
		return 0, errors.Wrap(err, "read sequence")
	}
	return counter.Value, nil
}

func contractPrefix(year int) string {
	return fmt.Sprintf("HD%d", year)
}

func paymentPrefix(year, month int) string {
	return fmt.Sprintf("TT%d%02d", year, month)
}

func nextContractNumber(tx *gorm.DB, year int) (string, error) {
	prefix := contractPrefix(year)
	seq, err := nextSequence(tx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

func nextPaymentCode(tx *gorm.DB, year, month int) (string, error) {
	prefix := paymentPrefix(year, month)
	seq, err := nextSequence(tx, prefix)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s%04d", prefix, seq), nil
}

// ResyncSequences raises every counter to the highest code already stored,
// which keeps numbering collision free after a restore.
func ResyncSequences(tx *gorm.DB) error {
	highest := map[string]int64{}
	collect := func(codes []string, prefixLen int) {
		for _, code := range codes {
			if len(code) <= prefixLen {
				continue
			}
			n, err := strconv.ParseInt(code[prefixLen:], 10, 64)
			if err != nil {
				continue
			}
			if p := code[:prefixLen]; n > highest[p] {
				highest[p] = n
			}
		}
	}

	var numbers []string
	if err := tx.Model(&model.Contract{}).Pluck("contract_number", &numbers).Error; err != nil {
		return errors.Wrap(err, "load contract numbers")
	}
	collect(numbers, len("HD2024"))

	var codes []string
	if err := tx.Model(&model.Payment{}).Pluck("payment_code", &codes).Error; err != nil {
		return errors.Wrap(err, "load payment codes")
	}
	collect(codes, len("TT202401"))

	for prefix, value := range highest {
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "prefix"}},
			DoUpdates: clause.AssignmentColumns([]string{"value"}),
		}).Create(&model.SequenceCounter{Prefix: prefix, Value: value}).Error
		if err != nil {
			return errors.Wrapf(err, "resync sequence %s", prefix)
		}
	}
	return nil
}

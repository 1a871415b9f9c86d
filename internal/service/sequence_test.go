package service

import (
	"testing"

	"rental-service/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestNextSequenceIsPerPrefix(t *testing.T) {
	_, db := newTestServices(t)

	for want := int64(1); want <= 3; want++ {
		got, err := nextSequence(db, "HD2024")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := nextSequence(db, "HD2025")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)

	code, err := nextPaymentCode(db, 2024, 3)
	require.NoError(t, err)
	assert.Equal(t, "TT2024030001", code)
}

func TestSequenceRollsBackWithTransaction(t *testing.T) {
	_, db := newTestServices(t)

	err := db.Transaction(func(tx *gorm.DB) error {
		if _, err := nextContractNumber(tx, 2024); err != nil {
			return err
		}
		return gorm.ErrInvalidData
	})
	require.ErrorIs(t, err, gorm.ErrInvalidData)

	number, err := nextContractNumber(db, 2024)
	require.NoError(t, err)
	assert.Equal(t, "HD20240001", number)
}

func TestResyncSequencesAfterRestore(t *testing.T) {
	svc, db := newTestServices(t)
	mustContract(t, svc, mustRoom(t, svc, "R101"), mustTenant(t, svc, 1))

	// a restored database carries rows but no counters
	require.NoError(t, db.Where("1 = 1").Delete(&model.SequenceCounter{}).Error)
	require.NoError(t, ResyncSequences(db))

	number, err := nextContractNumber(db, 2024)
	require.NoError(t, err)
	assert.Equal(t, "HD20240002", number)

	code, err := nextPaymentCode(db, 2024, 1)
	require.NoError(t, err)
	assert.Equal(t, "TT2024010002", code)
}

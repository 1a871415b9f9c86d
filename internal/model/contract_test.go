package model

import (
	"testing"
	"time"

	"rental-service/internal/apperr"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestContractDurationInMonths(t *testing.T) {
	tests := []struct {
		name       string
		start, end time.Time
		want       int
	}{
		{"one year", date(2024, 1, 1), date(2024, 12, 31), 13},
		{"thirty days", date(2024, 1, 1), date(2024, 1, 31), 1},
		{"thirty one days", date(2024, 1, 1), date(2024, 2, 1), 2},
		{"partial day", date(2024, 1, 1), date(2024, 1, 1).Add(time.Hour), 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Contract{StartDate: tt.start, EndDate: tt.end}
			assert.Equal(t, tt.want, c.DurationInMonths())
		})
	}
}

func TestContractEffectiveStatus(t *testing.T) {
	now := date(2024, 6, 1)
	tests := []struct {
		name   string
		status ContractStatus
		end    time.Time
		want   ContractStatus
	}{
		{"active", ContractActive, date(2024, 12, 31), ContractActive},
		{"expiring soon", ContractActive, date(2024, 6, 30), ContractExpiringSoon},
		{"renewed but ending", ContractRenewed, date(2024, 6, 15), ContractExpiringSoon},
		{"past end", ContractActive, date(2024, 5, 31), ContractExpired},
		{"stored expired", ContractExpired, date(2024, 12, 31), ContractExpired},
		{"terminated", ContractTerminated, date(2024, 5, 1), ContractTerminated},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := &Contract{Status: tt.status, EndDate: tt.end}
			assert.Equal(t, tt.want, c.EffectiveStatus(now))
		})
	}
}

func TestContractRenew(t *testing.T) {
	c := &Contract{Status: ContractActive, EndDate: date(2024, 12, 31)}
	at := date(2024, 12, 1)
	c.Renew(date(2025, 12, 31), "", at)

	assert.Equal(t, ContractRenewed, c.Status)
	assert.Equal(t, date(2025, 12, 31), c.EndDate)
	require.Len(t, c.RenewalHistory, 1)
	assert.Equal(t, Renewal{
		OldEndDate:  date(2024, 12, 31),
		NewEndDate:  date(2025, 12, 31),
		RenewalDate: at,
		Reason:      DefaultRenewalReason,
	}, c.RenewalHistory[0])
}

func TestContractValidate(t *testing.T) {
	c := &Contract{
		StartDate:  date(2024, 1, 1),
		EndDate:    date(2024, 1, 1),
		PaymentDay: 32,
		Status:     ContractActive,
		Witnesses:  []Witness{{Name: "A", Phone: "0987654321", IDCard: "123"}},
	}
	var verr *apperr.ValidationError
	require.ErrorAs(t, c.Validate(), &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"endDate", "paymentDay", "witnesses.idCard"}, fields)
	assert.Equal(t, "Ngày kết thúc phải sau ngày bắt đầu", verr.Fields[0].Message)
}

package model

import (
	"encoding/json"
	"testing"
	"time"

	"rental-service/internal/apperr"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

func TestPaymentRecompute(t *testing.T) {
	p := &Payment{
		RentAmount:       dec(800000),
		ElectricityUsage: dec(50),
		ElectricityPrice: dec(3500),
		WaterUsage:       dec(4),
		WaterPrice:       dec(20000),
		InternetAmount:   dec(100000),
		OtherFees:        []OtherFee{{Description: "rác", Amount: dec(20000)}},
		Discount:         dec(5000),
	}
	p.Recompute()

	assert.True(t, p.ElectricityAmount.Equal(dec(175000)))
	assert.True(t, p.WaterAmount.Equal(dec(80000)))
	assert.True(t, p.TotalAmount.Equal(dec(1170000)), p.TotalAmount.String())
}

func TestPaymentValidate(t *testing.T) {
	p := &Payment{
		Month:         13,
		Year:          2024,
		DueDate:       time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Discount:      dec(10),
		Status:        PaymentPending,
		PaymentMethod: MethodCash,
	}
	p.Recompute()

	err := p.Validate()
	var verr *apperr.ValidationError
	require.ErrorAs(t, err, &verr)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	assert.Equal(t, []string{"month", "totalAmount"}, fields)
}

func TestPaymentDerivedStatus(t *testing.T) {
	due := time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC)
	p := &Payment{DueDate: due, Status: PaymentPending}

	assert.Equal(t, PaymentPending, p.DerivedStatus(due))
	assert.Equal(t, 0, p.DaysOverdue(due))

	later := due.Add(3*24*time.Hour + time.Hour)
	assert.Equal(t, PaymentOverdue, p.DerivedStatus(later))
	assert.Equal(t, 4, p.DaysOverdue(later))

	p.MarkPaid("", "", later)
	assert.Equal(t, PaymentPaid, p.DerivedStatus(later))
	assert.Equal(t, 0, p.DaysOverdue(later))
	assert.Equal(t, MethodCash, p.PaymentMethod)
	require.Len(t, p.StatusHistory, 1)
	assert.Equal(t, ReasonPaid, p.StatusHistory[0].Reason)
	assert.Equal(t, "Admin", p.StatusHistory[0].ChangedBy)
}

func TestPaymentCancel(t *testing.T) {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	p := &Payment{Status: PaymentPending, Notes: "tháng 1"}
	p.Cancel("trả phòng", at)
	assert.Equal(t, PaymentCancelled, p.Status)
	assert.Equal(t, "tháng 1\nLý do hủy: trả phòng", p.Notes)
	assert.Equal(t, "trả phòng", p.StatusHistory[0].Reason)

	q := &Payment{Status: PaymentPending}
	q.Cancel("", at)
	assert.Empty(t, q.Notes)
	assert.Equal(t, ReasonCancelled, q.StatusHistory[0].Reason)
}

func TestDueDateForRollsOver(t *testing.T) {
	got := DueDateFor(2024, 2, 31, time.UTC)
	assert.Equal(t, time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC), got)
}

func TestPaymentMarshalJSONAddsDerivedFields(t *testing.T) {
	prev := Now
	Now = func() time.Time { return time.Date(2024, 1, 7, 12, 0, 0, 0, time.UTC) }
	t.Cleanup(func() { Now = prev })

	p := Payment{
		DueDate:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		Status:      PaymentPending,
		TotalAmount: dec(800000),
	}
	raw, err := json.Marshal(p)
	require.NoError(t, err)

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(raw, &out))
	assert.Equal(t, "overdue", out["paymentStatus"])
	assert.Equal(t, float64(3), out["daysOverdue"])
	assert.Equal(t, float64(800000), out["totalAmount"])
}

package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"rental-service/internal/model"
	"rental-service/pkg/discord"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2024, 1, 10, 3, 0, 0, 0, time.UTC)

func TestFormatVND(t *testing.T) {
	assert.Equal(t, "1.090.000 ₫", FormatVND(decimal.NewFromInt(1090000)))
	assert.Equal(t, "0 ₫", FormatVND(decimal.Zero))
}

func TestPaymentReminderEmbed(t *testing.T) {
	payments := []model.Payment{{
		Room:        &model.Room{Number: "101"},
		Tenant:      &model.Tenant{Name: "An"},
		DueDate:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(800000),
	}, {
		DueDate:     time.Date(2024, 1, 5, 0, 0, 0, 0, time.UTC),
		TotalAmount: decimal.NewFromInt(1),
	}}

	e := PaymentReminderEmbed(payments, time.UTC, now)
	assert.Equal(t, "Có 2 phòng cần thanh toán", e.Description)
	assert.Equal(t, discord.ColorRed, e.Color)
	require.Len(t, e.Fields, 2)
	assert.Equal(t, "Phòng 101", e.Fields[0].Name)
	assert.Equal(t, "👤 An\n📅 Hạn: 05/01/2024\n💰 Số tiền: 800.000 ₫", e.Fields[0].Value)
	assert.Equal(t, "Phòng N/A", e.Fields[1].Name)
}

func TestEmbedsStayWithinFieldLimit(t *testing.T) {
	payments := make([]model.Payment, 30)
	for i := range payments {
		payments[i].Room = &model.Room{Number: fmt.Sprint(i)}
	}

	e := PaymentReminderEmbed(payments, time.UTC, now)
	require.Len(t, e.Fields, discord.MaxFields)
	last := e.Fields[discord.MaxFields-1]
	assert.Equal(t, "Và 6 phòng khác...", last.Value)
	assert.False(t, last.Inline)

	exact := PaymentReminderEmbed(payments[:25], time.UTC, now)
	require.Len(t, exact.Fields, 25)
	assert.Equal(t, "Phòng 24", exact.Fields[24].Name)
}

func TestContractExpiryEmbed(t *testing.T) {
	contracts := []model.Contract{{
		ContractNumber: "HD20240001",
		Room:           &model.Room{Number: "101"},
		Tenant:         &model.Tenant{Name: "An"},
		EndDate:        time.Date(2024, 1, 20, 0, 0, 0, 0, time.UTC),
	}}
	e := ContractExpiryEmbed(contracts, time.UTC, now)
	require.Len(t, e.Fields, 1)
	assert.Equal(t, "Hợp đồng HD20240001", e.Fields[0].Name)
	assert.Contains(t, e.Fields[0].Value, "⏳ Còn: 9 ngày")
}

func TestSystemStatusEmbed(t *testing.T) {
	e := SystemStatusEmbed(SystemStatus{Status: "maintenance", DBStatus: "ok"}, now)
	assert.Equal(t, discord.ColorPurple, e.Color)
	assert.Equal(t, "Hệ thống hoạt động bình thường", e.Description)
	assert.Equal(t, []discord.Field{{Name: "🗄️ Database", Value: "ok", Inline: true}}, e.Fields)
}

func TestNotifierSends(t *testing.T) {
	var got struct {
		Embeds []discord.Embed `json:"embeds"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	n := New(discord.NewClient(srv.URL, time.Second, nil), time.UTC)
	require.NoError(t, n.Custom(context.Background(), discord.Embed{Title: "x", Description: "y"}))
	require.Len(t, got.Embeds, 1)
	assert.Equal(t, discord.ColorBlue, got.Embeds[0].Color)
	assert.Equal(t, "Quản lý phòng trọ", got.Embeds[0].Footer.Text)
	assert.NotEmpty(t, got.Embeds[0].Timestamp)
}

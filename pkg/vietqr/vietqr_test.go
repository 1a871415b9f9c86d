package vietqr

import (
	"net/url"
	"testing"

	"rental-service/pkg/config"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuilderURL(t *testing.T) {
	b := New(config.QRConfig{
		BankCode:      "bidv",
		AccountNumber: "3950630937",
		AccountName:   "Pham Thi Luyen",
	})

	raw := b.URL(decimal.NewFromInt(1090000), "TT2024010001 P101 Nguyen Van A")
	u, err := url.Parse(raw)
	require.NoError(t, err)
	assert.Equal(t, "img.vietqr.io", u.Host)
	assert.Equal(t, "/image/bidv-3950630937-print.jpg", u.Path)
	assert.Equal(t, "1090000", u.Query().Get("amount"))
	assert.Equal(t, "Pham Thi Luyen", u.Query().Get("accountName"))
	assert.Equal(t, "TT2024010001 P101 Nguyen Van A", u.Query().Get("addInfo"))
}

func TestBankName(t *testing.T) {
	assert.Equal(t, "BIDV", BankName("BIDV"))
	assert.Equal(t, "Vietcombank", BankName("vcb"))
	assert.Equal(t, "Ngân hàng không xác định", BankName("xyz"))
}

func TestAccountValidate(t *testing.T) {
	assert.Empty(t, Account{BankCode: "vcb", AccountNumber: "123456", AccountName: "An"}.Validate())
	assert.Equal(t, []string{
		"Mã ngân hàng là bắt buộc",
		"Số tài khoản phải từ 6-20 chữ số",
		"Tên tài khoản phải có ít nhất 2 ký tự",
	}, Account{AccountNumber: "12ab", AccountName: "A"}.Validate())
	assert.False(t, Account{BankCode: "vcb"}.Complete())
}

func TestDescriptions(t *testing.T) {
	assert.Equal(t, "Thanh toan phong 12 - An", RoomDescription("12", "An"))
	assert.Equal(t, "TT2024010001 P101 An", PaymentDescription("TT2024010001", "101", "An"))
}

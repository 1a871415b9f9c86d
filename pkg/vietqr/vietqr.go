// Package vietqr builds img.vietqr.io payment image links. Nothing here
// calls the service; the client fetches the image itself.
package vietqr

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"rental-service/pkg/config"

	"github.com/shopspring/decimal"
)

// DefaultBaseURL is the public VietQR image endpoint
const DefaultBaseURL = "https://img.vietqr.io/image"

const unknownBank = "Ngân hàng không xác định"

// Bank is a supported receiving bank
type Bank struct {
	Code     string `json:"code"`
	Name     string `json:"name"`
	FullName string `json:"fullName"`
}

// Banks lists the common banks shown to users. VietQR accepts most others.
var Banks = []Bank{
	{Code: "vcb", Name: "Vietcombank", FullName: "Ngân hàng TMCP Ngoại thương Việt Nam"},
	{Code: "bidv", Name: "BIDV", FullName: "Ngân hàng TMCP Đầu tư và Phát triển Việt Nam"},
	{Code: "vtb", Name: "Vietinbank", FullName: "Ngân hàng TMCP Công thương Việt Nam"},
	{Code: "agribank", Name: "Agribank", FullName: "Ngân hàng Nông nghiệp và Phát triển Nông thôn Việt Nam"},
	{Code: "acb", Name: "ACB", FullName: "Ngân hàng TMCP Á Châu"},
	{Code: "tcb", Name: "Techcombank", FullName: "Ngân hàng TMCP Kỹ thương Việt Nam"},
	{Code: "mb", Name: "MBBank", FullName: "Ngân hàng TMCP Quân đội"},
	{Code: "vpbank", Name: "VPBank", FullName: "Ngân hàng TMCP Việt Nam Thịnh vượng"},
	{Code: "tpb", Name: "TPBank", FullName: "Ngân hàng TMCP Tiên Phong"},
	{Code: "stb", Name: "Sacombank", FullName: "Ngân hàng TMCP Sài Gòn Thương tín"},
}

// BankName returns the short name of a bank code
func BankName(code string) string {
	code = strings.ToLower(code)
	for _, b := range Banks {
		if b.Code == code {
			return b.Name
		}
	}
	return unknownBank
}

var accountNumberPattern = regexp.MustCompile(`^[0-9]{6,20}$`)

// Account is a receiving bank account
type Account struct {
	BankCode      string `json:"bankCode"`
	AccountNumber string `json:"accountNumber"`
	AccountName   string `json:"accountName"`
}

// Complete reports whether every field is set
func (a Account) Complete() bool {
	return a.BankCode != "" && a.AccountNumber != "" && a.AccountName != ""
}

// Validate returns the human readable problems with a, if any
func (a Account) Validate() []string {
	var problems []string
	if a.BankCode == "" {
		problems = append(problems, "Mã ngân hàng là bắt buộc")
	}
	if a.AccountNumber == "" {
		problems = append(problems, "Số tài khoản là bắt buộc")
	} else if !accountNumberPattern.MatchString(a.AccountNumber) {
		problems = append(problems, "Số tài khoản phải từ 6-20 chữ số")
	}
	if a.AccountName == "" {
		problems = append(problems, "Tên tài khoản là bắt buộc")
	} else if len([]rune(a.AccountName)) < 2 {
		problems = append(problems, "Tên tài khoản phải có ít nhất 2 ký tự")
	}
	return problems
}

// Builder creates links for one receiving account
type Builder struct {
	BaseURL string
	Account Account
}

// New creates a builder from configuration
func New(cfg config.QRConfig) *Builder {
	base := cfg.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	return &Builder{
		BaseURL: strings.TrimRight(base, "/"),
		Account: Account{
			BankCode:      cfg.BankCode,
			AccountNumber: cfg.AccountNumber,
			AccountName:   cfg.AccountName,
		},
	}
}

// ImageURL is the print template image without query parameters
func (b *Builder) ImageURL(acc Account) string {
	return fmt.Sprintf("%s/%s-%s-print.jpg", b.BaseURL, acc.BankCode, acc.AccountNumber)
}

// URL returns the payment image link for amount and transfer note
func (b *Builder) URL(amount decimal.Decimal, addInfo string) string {
	return b.URLFor(b.Account, amount, addInfo)
}

// URLFor is URL for an arbitrary account
func (b *Builder) URLFor(acc Account, amount decimal.Decimal, addInfo string) string {
	q := url.Values{}
	q.Set("amount", amount.String())
	q.Set("accountName", acc.AccountName)
	q.Set("addInfo", addInfo)
	return b.ImageURL(acc) + "?" + q.Encode()
}

// RoomDescription is the default transfer note for an ad-hoc payment
func RoomDescription(roomID, tenantName string) string {
	return fmt.Sprintf("Thanh toan phong %s - %s", roomID, tenantName)
}

// PaymentDescription is the transfer note for a stored payment
func PaymentDescription(paymentCode, roomNumber, tenantName string) string {
	return fmt.Sprintf("%s P%s %s", paymentCode, roomNumber, tenantName)
}

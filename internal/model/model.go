// Package model defines the persisted entities and their row-local rules.
// Hooks here only ever touch the row being saved; anything that spans rows
// lives in the service package.
package model

import (
	"math"
	"regexp"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Now is the clock used by hooks and derived fields.
var Now = time.Now

const day = 24 * time.Hour

var (
	phonePattern  = regexp.MustCompile(`^[0-9]{10,11}$`)
	idCardPattern = regexp.MustCompile(`^[0-9]{9,12}$`)
	emailPattern  = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
)

func init() {
	decimal.MarshalJSONWithoutQuotes = true
}

// All returns every model in migration order.
func All() []interface{} {
	return []interface{}{
		&Room{},
		&Tenant{},
		&Contract{},
		&Payment{},
		&Note{},
		&SequenceCounter{},
	}
}

// Document is an uploaded file reference.
type Document struct {
	Type       string    `json:"type"`
	URL        string    `json:"url"`
	Name       string    `json:"name"`
	UploadedAt time.Time `json:"uploadedAt"`
}

// ceilDays rounds a duration up to whole days.
func ceilDays(d time.Duration) int {
	return int(math.Ceil(d.Hours() / 24))
}

// ValidPhone reports whether s is a 10 or 11 digit phone number.
func ValidPhone(s string) bool { return phonePattern.MatchString(s) }

// ValidIDCard reports whether s is a 9 to 12 digit identity card number.
func ValidIDCard(s string) bool { return idCardPattern.MatchString(s) }

// ValidEmail performs a shape check on an email address.
func ValidEmail(s string) bool { return emailPattern.MatchString(s) }

// NormalizeEmail is the stored form of an email address
func NormalizeEmail(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

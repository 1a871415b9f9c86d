package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRoomNormalizeStatus(t *testing.T) {
	id := uint(7)
	tests := []struct {
		name   string
		status RoomStatus
		tenant *uint
		want   RoomStatus
	}{
		{"empty defaults", "", nil, RoomAvailable},
		{"tenant forces occupied", RoomMaintenance, &id, RoomOccupied},
		{"occupied without tenant", RoomOccupied, nil, RoomAvailable},
		{"maintenance kept", RoomMaintenance, nil, RoomMaintenance},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := &Room{Status: tt.status, TenantID: tt.tenant}
			r.NormalizeStatus()
			assert.Equal(t, tt.want, r.Status)
		})
	}
}

func TestNoteStatus(t *testing.T) {
	now := time.Date(2024, 1, 2, 9, 0, 0, 0, time.UTC)
	before, after := now.Add(-time.Minute), now.Add(time.Minute)

	n := &Note{}
	assert.Equal(t, NoteStatusActive, n.Status(now))

	n.SetReminder(after)
	assert.Equal(t, NoteStatusScheduled, n.Status(now))
	n.SetReminder(before)
	assert.Equal(t, NoteStatusDue, n.Status(now))
	n.CancelReminder()
	assert.Equal(t, NoteStatusActive, n.Status(now))

	n.MarkCompleted(now)
	assert.Equal(t, NoteStatusCompleted, n.Status(now))
}

func TestNormalizeTags(t *testing.T) {
	assert.Equal(t, []string{"wifi", "điện"}, NormalizeTags([]string{" WiFi", "", "  ", "Điện"}))
}

func TestTenantAge(t *testing.T) {
	tenant := &Tenant{DateOfBirth: time.Date(1995, 5, 1, 0, 0, 0, 0, time.UTC)}
	assert.Equal(t, 28, tenant.Age(time.Date(2024, 4, 30, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 29, tenant.Age(time.Date(2024, 5, 2, 0, 0, 0, 0, time.UTC)))
	assert.Equal(t, 0, (&Tenant{}).Age(time.Now()))
}

func TestValidators(t *testing.T) {
	assert.True(t, ValidPhone("0987654321"))
	assert.False(t, ValidPhone("+84987654321"))
	assert.True(t, ValidIDCard("123456789012"))
	assert.False(t, ValidIDCard("12345678"))
	assert.True(t, ValidEmail("a@b.vn"))
	assert.False(t, ValidEmail("a@b"))
}

package model

import (
	"encoding/json"
	"strings"
	"time"

	"rental-service/internal/apperr"

	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// NoteCategory groups notes by subject
type NoteCategory string

const (
	NoteGeneral     NoteCategory = "general"
	NoteTenant      NoteCategory = "tenant"
	NoteRoom        NoteCategory = "room"
	NotePayment     NoteCategory = "payment"
	NoteMaintenance NoteCategory = "maintenance"
	NoteReminder    NoteCategory = "reminder"
	NoteImportant   NoteCategory = "important"
)

// Valid reports whether c is a known category
func (c NoteCategory) Valid() bool {
	switch c {
	case NoteGeneral, NoteTenant, NoteRoom, NotePayment, NoteMaintenance, NoteReminder, NoteImportant:
		return true
	}
	return false
}

// NotePriority orders notes by urgency
type NotePriority string

const (
	PriorityLow    NotePriority = "low"
	PriorityMedium NotePriority = "medium"
	PriorityHigh   NotePriority = "high"
	PriorityUrgent NotePriority = "urgent"
)

// Valid reports whether p is a known priority
func (p NotePriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Derived note states
const (
	NoteStatusCompleted = "completed"
	NoteStatusDue       = "due"
	NoteStatusScheduled = "scheduled"
	NoteStatusActive    = "active"
)

// RelatedTo points a note at another entity
type RelatedTo struct {
	Type  string `json:"type" gorm:"column:type;type:varchar(20)"`
	RefID *uint  `json:"id" gorm:"column:id"`
}

// Valid reports whether the reference is empty or well formed
func (r RelatedTo) Valid() bool {
	switch r.Type {
	case "":
		return r.RefID == nil
	case "room", "tenant", "contract", "payment":
		return r.RefID != nil
	}
	return false
}

// Attachment is a file attached to a note
type Attachment struct {
	Filename     string    `json:"filename"`
	OriginalName string    `json:"originalName"`
	Path         string    `json:"path"`
	Size         int64     `json:"size"`
	MimeType     string    `json:"mimeType"`
	UploadedAt   time.Time `json:"uploadedAt"`
}

// Note is a free-form memo with optional reminder
type Note struct {
	ID           uint                            `json:"id" gorm:"primarykey"`
	Title        string                          `json:"title" gorm:"type:varchar(200);not null"`
	Content      string                          `json:"content" gorm:"type:text;not null"`
	Category     NoteCategory                    `json:"category" gorm:"type:varchar(20);index;not null"`
	Priority     NotePriority                    `json:"priority" gorm:"type:varchar(10);index;not null"`
	Tags         datatypes.JSONSlice[string]     `json:"tags"`
	RelatedTo    RelatedTo                       `json:"relatedTo" gorm:"embedded;embeddedPrefix:related_"`
	ReminderDate *time.Time                      `json:"reminderDate" gorm:"index"`
	IsReminder   bool                            `json:"isReminder" gorm:"index;not null"`
	IsCompleted  bool                            `json:"isCompleted" gorm:"index;not null"`
	CompletedAt  *time.Time                      `json:"completedAt"`
	Attachments  datatypes.JSONSlice[Attachment] `json:"attachments"`
	IsActive     bool                            `json:"isActive" gorm:"index;not null"`
	CreatedAt    time.Time                       `json:"createdAt"`
	UpdatedAt    time.Time                       `json:"updatedAt"`
}

// NormalizeTags trims, lowercases and drops empty tags
func NormalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// Status derives completed, due, scheduled or active
func (n *Note) Status(now time.Time) string {
	if n.IsCompleted {
		return NoteStatusCompleted
	}
	if n.IsReminder && n.ReminderDate != nil {
		if !n.ReminderDate.After(now) {
			return NoteStatusDue
		}
		return NoteStatusScheduled
	}
	return NoteStatusActive
}

// MarkCompleted closes the note
func (n *Note) MarkCompleted(at time.Time) {
	n.IsCompleted = true
	n.CompletedAt = &at
}

// SetReminder schedules a reminder
func (n *Note) SetReminder(at time.Time) {
	n.ReminderDate = &at
	n.IsReminder = true
}

// CancelReminder drops the reminder
func (n *Note) CancelReminder() {
	n.ReminderDate = nil
	n.IsReminder = false
}

// Validate checks field constraints
func (n *Note) Validate() error {
	v := &apperr.ValidationError{}
	if n.Title == "" {
		v.Add("title", "Tiêu đề là bắt buộc")
	} else if len([]rune(n.Title)) > 200 {
		v.Add("title", "Tiêu đề không được vượt quá 200 ký tự")
	}
	if strings.TrimSpace(n.Content) == "" {
		v.Add("content", "Nội dung là bắt buộc")
	}
	if !n.Category.Valid() {
		v.Add("category", "Danh mục không hợp lệ")
	}
	if !n.Priority.Valid() {
		v.Add("priority", "Mức độ ưu tiên không hợp lệ")
	}
	if !n.RelatedTo.Valid() {
		v.Add("relatedTo", "Liên kết không hợp lệ")
	}
	if n.IsReminder && n.ReminderDate == nil {
		v.Add("reminderDate", "Ngày nhắc nhở là bắt buộc")
	}
	return v.OrNil()
}

// BeforeSave applies defaults and validates
func (n *Note) BeforeSave(tx *gorm.DB) error {
	n.Title = strings.TrimSpace(n.Title)
	if n.Category == "" {
		n.Category = NoteGeneral
	}
	if n.Priority == "" {
		n.Priority = PriorityMedium
	}
	n.Tags = NormalizeTags(n.Tags)
	if n.IsCompleted && n.CompletedAt == nil {
		now := Now()
		n.CompletedAt = &now
	}
	if !n.IsCompleted {
		n.CompletedAt = nil
	}
	return n.Validate()
}

// MarshalJSON adds the derived status
func (n Note) MarshalJSON() ([]byte, error) {
	type plain Note
	return json.Marshal(struct {
		plain
		Status string `json:"status"`
	}{
		plain:  plain(n),
		Status: n.Status(Now()),
	})
}

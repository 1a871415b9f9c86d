package model

// SequenceCounter backs the human readable codes. Prefix is the code prefix,
// e.g. HD2024 or TT202403, and Value is the last number handed out.
type SequenceCounter struct {
	Prefix string `gorm:"primaryKey;type:varchar(20)"`
	Value  int64  `gorm:"not null"`
}

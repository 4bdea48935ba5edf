package model

import "time"

// BatchCursor persists the offset of a multi-step batch run.
type BatchCursor struct {
	Key       string    `gorm:"column:key;primaryKey"`
	Offset    int       `gorm:"column:offset;not null"`
	UpdatedAt time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (BatchCursor) TableName() string {
	return "batch_cursors"
}

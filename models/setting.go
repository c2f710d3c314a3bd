package models

import "time"

// Setting is a key-valued row holding schema bookkeeping, per-dataset sync
// metadata and the wrapped reference-data blobs (tables, staff).
type Setting struct {
	Key       string    `gorm:"primaryKey;type:varchar(100)" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string { return "settings" }

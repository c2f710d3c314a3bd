package models

import "time"

type Shift struct {
	ID       string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Origin   string     `gorm:"type:varchar(10);not null;default:'local'" json:"origin"`
	StaffID  string     `gorm:"type:varchar(64);not null" json:"staff_id"`
	ClockIn  time.Time  `gorm:"not null" json:"clock_in"`
	ClockOut *time.Time `json:"clock_out,omitempty"`
	Synced   bool       `gorm:"not null;default:false;index" json:"synced"`
}

func (Shift) TableName() string { return "shifts" }

package models

import "time"

// CartLine is the draft order the UI builds before placing; purely local.
type CartLine struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	ItemID    string    `gorm:"type:varchar(64);not null" json:"item_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UnitPrice float64   `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Notes     string    `gorm:"type:text" json:"notes,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (CartLine) TableName() string { return "cart" }

package models

import "time"

// Identifier provenance. Records created on this device while offline carry
// OriginLocal until the backend confirms them; confirmed copies arrive later
// through the reference-data refresh and are never written back here.
const (
	OriginLocal  = "local"
	OriginRemote = "remote"
)

const (
	OrderStatusPending   = "pending"
	OrderStatusPreparing = "preparing"
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeDelivery = "delivery"
)

type Order struct {
	ID        string      `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Origin    string      `gorm:"type:varchar(10);not null;default:'local'" json:"origin"`
	Status    string      `gorm:"type:varchar(20);not null;default:'pending'" json:"status"`
	OrderType string      `gorm:"type:varchar(20);not null" json:"order_type"`
	TableID   string      `gorm:"type:varchar(64)" json:"table_id,omitempty"`
	WaiterID  string      `gorm:"type:varchar(64)" json:"waiter_id,omitempty"`
	Subtotal  float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"subtotal"`
	Total     float64     `gorm:"type:decimal(10,2);not null;default:0.00" json:"total"`
	Synced    bool        `gorm:"not null;default:false;index" json:"synced"`
	CreatedAt time.Time   `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time   `gorm:"not null" json:"updated_at"`
	Lines     []OrderLine `gorm:"foreignKey:OrderID;references:ID" json:"lines,omitempty"`
}

func (Order) TableName() string { return "orders" }

type OrderLine struct {
	ID        string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	OrderID   string  `gorm:"type:varchar(64);not null;index" json:"order_id"`
	ItemID    string  `gorm:"type:varchar(64);not null" json:"item_id"`
	Quantity  int     `gorm:"not null" json:"quantity"`
	UnitPrice float64 `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	Total     float64 `gorm:"type:decimal(10,2);not null" json:"total"`
}

func (OrderLine) TableName() string { return "order_lines" }

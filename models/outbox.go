package models

import "time"

const (
	OutboxActionCreate = "create"
	OutboxActionUpdate = "update"
	OutboxActionDelete = "delete"
)

const (
	OutboxStatusPending = "pending"
	OutboxStatusSyncing = "syncing"
	OutboxStatusFailed  = "failed"
)

// Target collections the reconciliation engine knows how to replay.
const (
	CollectionOrders = "orders"
	CollectionShifts = "shifts"
)

// OutboxEntry is the only representation of pending offline work. The engine
// drains this table and never inspects domain collections for intent.
type OutboxEntry struct {
	ID               string     `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Action           string     `gorm:"type:varchar(20);not null" json:"action"`
	TargetCollection string     `gorm:"type:varchar(50);not null" json:"target_collection"`
	Payload          string     `gorm:"type:text;not null" json:"payload"`
	Status           string     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	Attempts         int        `gorm:"not null;default:0" json:"attempts"`
	NextAttemptAt    *time.Time `json:"next_attempt_at,omitempty"`
	IdempotencyKey   string     `gorm:"type:varchar(64);not null" json:"idempotency_key"`
	EnqueuedAt       time.Time  `gorm:"not null" json:"enqueued_at"`
}

func (OutboxEntry) TableName() string { return "outbox" }

// Package outbox is the durable queue of mutations buffered while offline.
// Producers (the intake service) enqueue here alongside the domain write; the
// reconciliation engine drains from here and nowhere else.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/store"
)

type Outbox struct {
	store    *store.Store
	cooldown time.Duration
	now      func() time.Time
}

func New(st *store.Store, cooldown time.Duration) *Outbox {
	return &Outbox{store: st, cooldown: cooldown, now: time.Now}
}

// Enqueue records a mutation intent. The payload is marshaled as JSON; the
// entry also gets an idempotency key the engine attaches to remote creates so
// a backend that dedupes can (see DESIGN.md on at-least-once delivery).
func (o *Outbox) Enqueue(action, collection string, payload interface{}) (*models.OutboxEntry, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("outbox payload: %w", err)
	}
	entry := &models.OutboxEntry{
		ID:               uuid.NewString(),
		Action:           action,
		TargetCollection: collection,
		Payload:          string(raw),
		Status:           models.OutboxStatusPending,
		IdempotencyKey:   uuid.NewString(),
		EnqueuedAt:       o.now().UTC(),
	}
	if err := o.store.Put(entry); err != nil {
		return nil, err
	}
	return entry, nil
}

// ListDue returns the entries for one collection that are eligible right now:
// pending ones, plus failed ones whose cool-down has elapsed. Oldest first.
func (o *Outbox) ListDue(collection string) ([]models.OutboxEntry, error) {
	var entries []models.OutboxEntry
	err := o.store.DB().
		Where("target_collection = ?", collection).
		Where("status = ? OR (status = ? AND next_attempt_at <= ?)",
			models.OutboxStatusPending, models.OutboxStatusFailed, o.now().UTC()).
		Order("enqueued_at ASC").
		Find(&entries).Error
	return entries, err
}

// MarkStatus transitions an entry. Failing increments the attempt counter and
// stamps the next eligibility time; both survive a process restart.
func (o *Outbox) MarkStatus(id, status string) error {
	updates := map[string]interface{}{"status": status}
	if status == models.OutboxStatusFailed {
		next := o.now().UTC().Add(o.cooldown)
		updates["attempts"] = gorm.Expr("attempts + 1")
		updates["next_attempt_at"] = next
	}
	return o.store.DB().Model(&models.OutboxEntry{}).
		Where("id = ?", id).
		Updates(updates).Error
}

// ResetStranded returns entries stuck in "syncing" to "pending". Only a
// crash mid-pass leaves such rows; the engine calls this when a new pass
// starts, when no other pass can be live.
func (o *Outbox) ResetStranded() error {
	return o.store.DB().Model(&models.OutboxEntry{}).
		Where("status = ?", models.OutboxStatusSyncing).
		Update("status", models.OutboxStatusPending).Error
}

// Remove deletes a confirmed (or orphaned) entry.
func (o *Outbox) Remove(id string) error {
	return o.store.Delete(&models.OutboxEntry{}, id)
}

// PendingCount reports how many entries for the given collections still await
// confirmation, whatever their retry state. Drives the UI badge.
func (o *Outbox) PendingCount(collections ...string) (int64, error) {
	var n int64
	err := o.store.DB().Model(&models.OutboxEntry{}).
		Where("target_collection IN ?", collections).
		Count(&n).Error
	return n, err
}

// NewLocalID mints a temporary identifier for a record created offline.
// The prefix is operator-facing convenience only; provenance checks go
// through the record's origin field, never through the id shape.
func NewLocalID() string {
	return fmt.Sprintf("offline_%d_%s", time.Now().Unix(), uuid.NewString()[:8])
}

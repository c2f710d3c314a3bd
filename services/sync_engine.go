package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"

	"github.com/yeremiapane/restaurant-pos-sync/events"
	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/outbox"
	"github.com/yeremiapane/restaurant-pos-sync/remote"
	"github.com/yeremiapane/restaurant-pos-sync/store"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

// ConnectivityProbe reports the device's network state. Implementations live
// at the composition root; the engine and monitor only consume the interface.
type ConnectivityProbe interface {
	IsOnline() bool
	// Transitions streams connectivity changes (true = came online). May
	// return nil when the platform cannot observe transitions.
	Transitions() <-chan bool
}

// syncPass is the memoized handle of the single in-flight pass. Joiners wait
// on done and read the same result the original caller gets.
type syncPass struct {
	done  chan struct{}
	count int
	err   error
}

// SyncEngine replays buffered offline work against the backend. One pass at
// a time, guarded by a real mutex: concurrent SyncAll callers join the
// running pass instead of starting a second one. A pass runs to completion;
// there is no cancellation of a started pass.
type SyncEngine struct {
	store  *store.Store
	outbox *outbox.Outbox
	remote remote.API
	cache  *EssentialDataCache
	hub    *events.Hub
	probe  ConnectivityProbe

	mu       sync.Mutex
	inflight *syncPass
}

func NewSyncEngine(st *store.Store, ob *outbox.Outbox, api remote.API, cache *EssentialDataCache, hub *events.Hub, probe ConnectivityProbe) *SyncEngine {
	return &SyncEngine{
		store:  st,
		outbox: ob,
		remote: api,
		cache:  cache,
		hub:    hub,
		probe:  probe,
	}
}

// Running reports whether a pass is currently executing.
func (e *SyncEngine) Running() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.inflight != nil
}

// PendingCount is the diagnostic count of buffered orders and shifts still
// awaiting confirmation, for UI badges.
func (e *SyncEngine) PendingCount() (int64, error) {
	return e.outbox.PendingCount(models.CollectionOrders, models.CollectionShifts)
}

// SyncAll drains the outbox. Offline returns (0, nil) immediately. If a pass
// is already running the caller blocks until it finishes and receives its
// result — single-flight, never a second concurrent pass.
func (e *SyncEngine) SyncAll(ctx context.Context) (int, error) {
	if !e.probe.IsOnline() {
		return 0, nil
	}

	e.mu.Lock()
	if e.inflight != nil {
		pass := e.inflight
		e.mu.Unlock()
		<-pass.done
		return pass.count, pass.err
	}
	pass := &syncPass{done: make(chan struct{})}
	e.inflight = pass
	e.mu.Unlock()

	pass.count, pass.err = e.runPass(ctx)

	e.mu.Lock()
	e.inflight = nil
	e.mu.Unlock()
	close(pass.done)

	return pass.count, pass.err
}

// runPass executes the domain routines strictly in order: orders first, then
// attendance. Per-record failures never cross the pass boundary.
func (e *SyncEngine) runPass(ctx context.Context) (int, error) {
	e.hub.Publish(events.Event{Type: events.EventSyncStart})
	utils.InfoLogger.Printf("Sync pass started")

	if err := e.outbox.ResetStranded(); err != nil {
		e.reportError(fmt.Errorf("reset stranded entries: %w", err))
	}

	processed := e.syncOrders(ctx)
	processed += e.syncShifts(ctx)

	e.hub.Publish(events.Event{Type: events.EventSyncComplete, ProcessedCount: processed})
	utils.InfoLogger.Printf("Sync pass complete, %d records confirmed", processed)
	return processed, nil
}

func (e *SyncEngine) syncOrders(ctx context.Context) int {
	entries, err := e.outbox.ListDue(models.CollectionOrders)
	if err != nil {
		e.reportError(fmt.Errorf("list due orders: %w", err))
		return 0
	}

	processed := 0
	for _, entry := range entries {
		ok, err := e.replayOrder(ctx, entry)
		if err != nil {
			e.failEntry(entry, err)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed
}

// replayOrder pushes one buffered order through the confirmation sequence.
// ok=false with nil error means the entry was dropped as an orphan.
func (e *SyncEngine) replayOrder(ctx context.Context, entry models.OutboxEntry) (bool, error) {
	var intent orderIntent
	if err := json.Unmarshal([]byte(entry.Payload), &intent); err != nil {
		return false, fmt.Errorf("decode intent: %w", err)
	}

	var order models.Order
	if err := e.store.Get(&order, intent.OrderID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Parent is gone; the intent can never be replayed.
			utils.ErrorLogger.Printf("Dropping orphaned outbox entry %s (order %s missing)", entry.ID, intent.OrderID)
			return false, e.outbox.Remove(entry.ID)
		}
		return false, err
	}

	var lines []models.OrderLine
	if err := e.store.DB().Where("order_id = ?", order.ID).Find(&lines).Error; err != nil {
		return false, err
	}

	if err := e.outbox.MarkStatus(entry.ID, models.OutboxStatusSyncing); err != nil {
		return false, err
	}

	// Always a create with the buffered fields: the backend assigns the
	// canonical id, the local one never leaves the device as an id.
	created, err := e.remote.Insert(ctx, "orders", map[string]interface{}{
		"status":          order.Status,
		"order_type":      order.OrderType,
		"table_id":        nullable(order.TableID),
		"waiter_id":       order.WaiterID,
		"subtotal":        order.Subtotal,
		"total":           order.Total,
		"created_at":      order.CreatedAt,
		"idempotency_key": entry.IdempotencyKey,
	})
	if err != nil {
		return false, fmt.Errorf("insert order: %w", err)
	}
	canonicalID := fmt.Sprint(created["id"])
	if canonicalID == "" || canonicalID == "<nil>" {
		return false, fmt.Errorf("insert order: no canonical id in response")
	}

	if len(lines) > 0 {
		lineRecords := make([]map[string]interface{}, 0, len(lines))
		for _, line := range lines {
			lineRecords = append(lineRecords, map[string]interface{}{
				"order_id":   canonicalID,
				"item_id":    line.ItemID,
				"quantity":   line.Quantity,
				"unit_price": line.UnitPrice,
				"total":      line.Total,
			})
		}
		if _, err := e.remote.Insert(ctx, "order_lines", lineRecords); err != nil {
			return false, fmt.Errorf("insert order lines: %w", err)
		}
	}

	if order.OrderType == models.OrderTypeDineIn && order.TableID != "" {
		if err := e.remote.Update(ctx, "restaurant_tables", order.TableID, map[string]interface{}{
			"status":           models.TableStatusOccupied,
			"current_order_id": canonicalID,
			"staff_id":         order.WaiterID,
		}); err != nil {
			return false, fmt.Errorf("update table %s: %w", order.TableID, err)
		}
		if err := e.cache.UpdateTableStatus(order.TableID, models.TableStatusOccupied, canonicalID, order.WaiterID); err != nil {
			// Derived local state only; the backend copy is authoritative.
			utils.ErrorLogger.Printf("Update cached table %s: %v", order.TableID, err)
		}
	}

	if err := e.remote.CallProcedure(ctx, "increment_staff_stats", map[string]interface{}{
		"waiter_id": order.WaiterID,
		"orders":    1,
		"revenue":   order.Total,
	}); err != nil {
		return false, fmt.Errorf("increment staff stats: %w", err)
	}

	// Purge the temporary id: lines first, then the parent, so an interrupted
	// purge leaves the parent and the next pass re-derives the same replay.
	// A crash between confirmed insert and purge duplicates the order
	// remotely (at-least-once, accepted); the idempotency key above is the
	// backend's chance to dedupe.
	if err := e.store.DB().Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
		return false, fmt.Errorf("purge lines: %w", err)
	}
	if err := e.store.Delete(&models.Order{}, order.ID); err != nil {
		return false, fmt.Errorf("purge order: %w", err)
	}
	if err := e.outbox.Remove(entry.ID); err != nil {
		return false, err
	}

	utils.InfoLogger.Printf("Order %s confirmed as %s", order.ID, canonicalID)
	return true, nil
}

func (e *SyncEngine) syncShifts(ctx context.Context) int {
	entries, err := e.outbox.ListDue(models.CollectionShifts)
	if err != nil {
		e.reportError(fmt.Errorf("list due shifts: %w", err))
		return 0
	}

	processed := 0
	for _, entry := range entries {
		ok, err := e.replayShift(ctx, entry)
		if err != nil {
			e.failEntry(entry, err)
			continue
		}
		if ok {
			processed++
		}
	}
	return processed
}

func (e *SyncEngine) replayShift(ctx context.Context, entry models.OutboxEntry) (bool, error) {
	var intent shiftIntent
	if err := json.Unmarshal([]byte(entry.Payload), &intent); err != nil {
		return false, fmt.Errorf("decode intent: %w", err)
	}

	var shift models.Shift
	if err := e.store.Get(&shift, intent.ShiftID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			utils.ErrorLogger.Printf("Dropping orphaned outbox entry %s (shift %s missing)", entry.ID, intent.ShiftID)
			return false, e.outbox.Remove(entry.ID)
		}
		return false, err
	}

	if err := e.outbox.MarkStatus(entry.ID, models.OutboxStatusSyncing); err != nil {
		return false, err
	}

	record := map[string]interface{}{
		"staff_id":        shift.StaffID,
		"clock_in":        shift.ClockIn,
		"idempotency_key": entry.IdempotencyKey,
	}
	if shift.ClockOut != nil {
		record["clock_out"] = *shift.ClockOut
	}
	if _, err := e.remote.Insert(ctx, "shifts", record); err != nil {
		return false, fmt.Errorf("insert shift: %w", err)
	}

	if err := e.store.Delete(&models.Shift{}, shift.ID); err != nil {
		return false, fmt.Errorf("purge shift: %w", err)
	}
	if err := e.outbox.Remove(entry.ID); err != nil {
		return false, err
	}

	utils.InfoLogger.Printf("Shift %s confirmed for staff %s", shift.ID, shift.StaffID)
	return true, nil
}

// failEntry cool-downs one record and moves on. One record's failure never
// blocks the rest of the pass.
func (e *SyncEngine) failEntry(entry models.OutboxEntry, cause error) {
	utils.ErrorLogger.Printf("Replay of %s entry %s failed: %v", entry.TargetCollection, entry.ID, cause)
	if err := e.outbox.MarkStatus(entry.ID, models.OutboxStatusFailed); err != nil {
		utils.ErrorLogger.Printf("Mark entry %s failed: %v", entry.ID, err)
	}
	e.hub.Publish(events.Event{Type: events.EventSyncError, Message: cause.Error()})
}

func (e *SyncEngine) reportError(err error) {
	utils.ErrorLogger.Printf("Sync pass: %v", err)
	e.hub.Publish(events.Event{Type: events.EventSyncError, Message: err.Error()})
}

// nullable maps "" to nil so the backend stores NULL instead of an empty
// string for optional references.
func nullable(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/store"
)

func placeDineInOrder(t *testing.T, env *testEnv, tableID string) *models.Order {
	t.Helper()
	order, err := env.intake.PlaceOrder(OrderRequest{
		Lines:     []OrderLineRequest{{ItemID: "itemA001", UnitPrice: 500, Quantity: 2}},
		OrderType: models.OrderTypeDineIn,
		TableID:   tableID,
		WaiterID:  "w1",
	})
	require.NoError(t, err)
	return order
}

func TestSyncAllOfflineIsNoop(t *testing.T) {
	env := setupSyncTest(t)
	placeDineInOrder(t, env, "t1")
	env.probe.SetOnline(false)

	count, err := env.engine.SyncAll(context.Background())
	assert.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.remote.insertsTo("orders"))

	pending, err := env.engine.PendingCount()
	assert.NoError(t, err)
	assert.EqualValues(t, 1, pending)
}

// The end-to-end scenario: a dine-in order buffered offline is replayed as
// one order insert, one line batch insert under the canonical id, one table
// occupancy update and one staff stats increment, then purged locally.
func TestSyncAllReplaysDineInOrder(t *testing.T) {
	env := setupSyncTest(t)
	env.probe.SetOnline(false)
	order := placeDineInOrder(t, env, "t1")
	assert.Equal(t, models.OriginLocal, order.Origin)
	assert.False(t, order.Synced)
	assert.Equal(t, 1000.0, order.Total)

	env.probe.SetOnline(true)
	count, err := env.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	orderInserts := env.remote.insertsTo("orders")
	require.Len(t, orderInserts, 1)
	record := orderInserts[0].Record.(map[string]interface{})
	assert.Equal(t, 1000.0, record["total"])
	assert.Equal(t, "w1", record["waiter_id"])
	assert.NotContains(t, record, "id") // the local id never leaves as an id
	assert.NotEmpty(t, record["idempotency_key"])

	lineInserts := env.remote.insertsTo("order_lines")
	require.Len(t, lineInserts, 1)
	lineBatch := lineInserts[0].Record.([]map[string]interface{})
	require.Len(t, lineBatch, 1)
	assert.Equal(t, "srv_1", lineBatch[0]["order_id"])
	assert.Equal(t, "itemA001", lineBatch[0]["item_id"])

	require.Len(t, env.remote.updates, 1)
	assert.Equal(t, "restaurant_tables", env.remote.updates[0].Resource)
	assert.Equal(t, "t1", env.remote.updates[0].ID)
	assert.Equal(t, models.TableStatusOccupied, env.remote.updates[0].Patch["status"])
	assert.Equal(t, "srv_1", env.remote.updates[0].Patch["current_order_id"])

	require.Len(t, env.remote.procs, 1)
	assert.Equal(t, "increment_staff_stats", env.remote.procs[0].Name)
	assert.Equal(t, "w1", env.remote.procs[0].Args["waiter_id"])
	assert.Equal(t, 1, env.remote.procs[0].Args["orders"])
	assert.Equal(t, 1000.0, env.remote.procs[0].Args["revenue"])

	// Temporary-id purge: nothing local carries the offline id anymore.
	var gone models.Order
	assert.ErrorIs(t, env.store.Get(&gone, order.ID), store.ErrNotFound)
	var lines []models.OrderLine
	assert.NoError(t, env.store.DB().Where("order_id = ?", order.ID).Find(&lines).Error)
	assert.Empty(t, lines)

	pending, err := env.engine.PendingCount()
	assert.NoError(t, err)
	assert.Zero(t, pending)
}

// One record's remote failure never blocks the others in the same pass.
func TestSyncAllIsolatesPerRecordFailures(t *testing.T) {
	env := setupSyncTest(t)
	failing := placeDineInOrder(t, env, "t_fail")
	healthy := placeDineInOrder(t, env, "t_ok")

	env.remote.insertHook = func(resource string, record interface{}) error {
		if resource != "orders" {
			return nil
		}
		if m, ok := record.(map[string]interface{}); ok && m["table_id"] == "t_fail" {
			return errors.New("backend rejected insert")
		}
		return nil
	}

	count, err := env.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	// The healthy order was confirmed and purged in the same pass.
	var gone models.Order
	assert.ErrorIs(t, env.store.Get(&gone, healthy.ID), store.ErrNotFound)

	// The failing one is still local, its entry cooling down with a
	// persisted attempt count.
	var kept models.Order
	assert.NoError(t, env.store.Get(&kept, failing.ID))
	var entries []models.OutboxEntry
	assert.NoError(t, env.store.DB().Where("status = ?", models.OutboxStatusFailed).Find(&entries).Error)
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].Attempts)
	assert.NotNil(t, entries[0].NextAttemptAt)

	pending, err := env.engine.PendingCount()
	assert.NoError(t, err)
	assert.EqualValues(t, 1, pending)
}

// Two concurrent SyncAll callers share one pass: the joiner blocks and gets
// the same processed count, and the backend sees exactly one order insert.
func TestSyncAllIsSingleFlight(t *testing.T) {
	env := setupSyncTest(t)
	placeDineInOrder(t, env, "t1")

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.remote.insertHook = func(resource string, record interface{}) error {
		if resource == "orders" {
			once.Do(func() {
				close(started)
				<-release
			})
		}
		return nil
	}

	results := make(chan int, 2)
	go func() {
		n, err := env.engine.SyncAll(context.Background())
		assert.NoError(t, err)
		results <- n
	}()
	<-started
	assert.True(t, env.engine.Running())

	go func() {
		n, err := env.engine.SyncAll(context.Background())
		assert.NoError(t, err)
		results <- n
	}()
	// Give the second caller time to reach the single-flight gate before the
	// pass is allowed to finish.
	time.Sleep(100 * time.Millisecond)
	close(release)

	first := <-results
	second := <-results
	assert.Equal(t, first, second)
	assert.Equal(t, 1, first)
	assert.Len(t, env.remote.insertsTo("orders"), 1)
	assert.False(t, env.engine.Running())
}

func TestSyncAllReplaysShifts(t *testing.T) {
	env := setupSyncTest(t)
	shift, err := env.intake.ClockIn("w1")
	require.NoError(t, err)
	_, err = env.intake.ClockOut(shift.ID)
	require.NoError(t, err)

	count, err := env.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	shiftInserts := env.remote.insertsTo("shifts")
	require.Len(t, shiftInserts, 1)
	record := shiftInserts[0].Record.(map[string]interface{})
	assert.Equal(t, "w1", record["staff_id"])
	assert.Contains(t, record, "clock_out") // replay re-derives current state

	var gone models.Shift
	assert.ErrorIs(t, env.store.Get(&gone, shift.ID), store.ErrNotFound)
}

func TestSyncAllDropsOrphanedEntries(t *testing.T) {
	env := setupSyncTest(t)
	order := placeDineInOrder(t, env, "t1")

	// Simulate the accepted partial-failure window: the parent vanished but
	// the intent survived.
	require.NoError(t, env.store.Delete(&models.Order{}, order.ID))

	count, err := env.engine.SyncAll(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, env.remote.insertsTo("orders"))

	pending, err := env.engine.PendingCount()
	assert.NoError(t, err)
	assert.Zero(t, pending)
}

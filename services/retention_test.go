package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/store"
)

func seedCompletedOrder(t *testing.T, st *store.Store, id string, age time.Duration) {
	t.Helper()
	created := time.Now().Add(-age)
	require.NoError(t, st.Put(&models.Order{
		ID:        id,
		Origin:    models.OriginRemote,
		Status:    models.OrderStatusCompleted,
		OrderType: models.OrderTypeDineIn,
		Synced:    true,
		Total:     1000,
		CreatedAt: created,
		UpdatedAt: created,
	}))
	require.NoError(t, st.Put(&models.OrderLine{
		ID: id + "_l1", OrderID: id, ItemID: "itemA001", Quantity: 1, UnitPrice: 1000, Total: 1000,
	}))
}

// Age and rank are independent eviction conditions: either alone deletes.
// With a 30-day window and a retained max of 2, the 65-day order goes by age
// and the 10-day order goes by rank (it is only 3rd-most-recent).
func TestEvictAgedOrdersAgeAndRankOverlap(t *testing.T) {
	env := setupSyncTest(t)
	env.retention.cfg.RetentionDays = 30
	env.retention.cfg.MaxOrders = 2

	day := 24 * time.Hour
	seedCompletedOrder(t, env.store, "ord_2d", 2*day)
	seedCompletedOrder(t, env.store, "ord_5d", 5*day)
	seedCompletedOrder(t, env.store, "ord_10d", 10*day)
	seedCompletedOrder(t, env.store, "ord_65d", 65*day)

	evicted, err := env.retention.EvictAgedOrders()
	require.NoError(t, err)
	assert.Equal(t, 2, evicted)

	var kept []models.Order
	require.NoError(t, env.store.GetAll(&kept))
	ids := make([]string, 0, len(kept))
	for _, o := range kept {
		ids = append(ids, o.ID)
	}
	assert.ElementsMatch(t, []string{"ord_2d", "ord_5d"}, ids)

	// Lines cascade with their orders.
	var lines []models.OrderLine
	require.NoError(t, env.store.DB().Where("order_id IN ?", []string{"ord_10d", "ord_65d"}).Find(&lines).Error)
	assert.Empty(t, lines)
}

func TestEvictLeavesUnsyncedAndActiveOrdersAlone(t *testing.T) {
	env := setupSyncTest(t)
	env.retention.cfg.MaxOrders = 0 // rank alone would evict everything synced

	old := time.Now().Add(-90 * 24 * time.Hour)
	require.NoError(t, env.store.Put(&models.Order{
		ID: "ord_unsynced", Origin: models.OriginLocal, Status: models.OrderStatusCompleted,
		OrderType: models.OrderTypeDineIn, Synced: false, CreatedAt: old, UpdatedAt: old,
	}))
	require.NoError(t, env.store.Put(&models.Order{
		ID: "ord_active", Origin: models.OriginRemote, Status: models.OrderStatusPreparing,
		OrderType: models.OrderTypeDineIn, Synced: true, CreatedAt: old, UpdatedAt: old,
	}))

	evicted, err := env.retention.EvictAgedOrders()
	require.NoError(t, err)
	assert.Zero(t, evicted)
}

// A dataset last synced 90 minutes ago is stale on a good connection (TTL
// 60m) but still fresh on a constrained or metered one (TTL 180m).
func TestFreshnessAsymmetry(t *testing.T) {
	env := setupSyncTest(t)
	require.NoError(t, env.retention.RecordSync(DatasetEssential, 10))

	env.retention.now = func() time.Time { return time.Now().Add(90 * time.Minute) }

	env.profile.constrained = false
	env.profile.metered = false
	assert.False(t, env.retention.IsFresh(DatasetEssential))

	env.profile.metered = true
	assert.True(t, env.retention.IsFresh(DatasetEssential))

	env.profile.metered = false
	env.profile.constrained = true
	assert.True(t, env.retention.IsFresh(DatasetEssential))
}

func TestIsFreshWithoutMetadata(t *testing.T) {
	env := setupSyncTest(t)
	assert.False(t, env.retention.IsFresh("never_synced"))
	_, ok := env.retention.LastSync("never_synced")
	assert.False(t, ok)
}

func TestClassifyEnvironmentAndImagePolicy(t *testing.T) {
	env := setupSyncTest(t)

	e := env.retention.ClassifyEnvironment()
	assert.False(t, e.Constrained)
	assert.Equal(t, "good", e.Connection)
	assert.True(t, env.retention.ShouldCacheImages())
	assert.Equal(t, "high", env.retention.ImageQuality())

	env.profile.metered = true
	e = env.retention.ClassifyEnvironment()
	assert.Equal(t, "metered", e.Connection)
	assert.Equal(t, "low", env.retention.ImageQuality())
	assert.True(t, env.retention.ShouldCacheImages())

	env.profile.constrained = true
	assert.False(t, env.retention.ShouldCacheImages())
}

func TestStorageBreakdownCountsRecords(t *testing.T) {
	env := setupSyncTest(t)
	seedCompletedOrder(t, env.store, "ord_1", time.Hour)

	breakdown, err := env.retention.StorageBreakdown()
	require.NoError(t, err)

	byName := make(map[string]CollectionUsage)
	for _, c := range breakdown {
		byName[c.Collection] = c
	}
	assert.EqualValues(t, 1, byName["orders"].Records)
	assert.EqualValues(t, 1, byName["order_lines"].Records)
	assert.Positive(t, byName["orders"].ApproxSize)

	usage, err := env.retention.StorageUsage()
	require.NoError(t, err)
	assert.Positive(t, usage.UsedBytes)
}

package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yeremiapane/restaurant-pos-sync/models"
)

func seedRemoteCatalog(env *testEnv) {
	env.remote.selectData["menu_items"] = []map[string]interface{}{
		{"id": "i1", "category_id": "c1", "name": "Nasi Goreng", "price": 25000.0, "image_url": "https://cdn.example.com/nasi.jpg"},
		{"id": "i2", "category_id": "c1", "name": "Es Teh", "price": 8000.0, "image_url": "https://elsewhere.example.com/teh.jpg"},
	}
	env.remote.selectData["menu_categories"] = []map[string]interface{}{
		{"id": "c1", "name": "Food"},
	}
	env.remote.selectData["restaurant_tables"] = []map[string]interface{}{
		{"id": "t1", "number": "1", "capacity": 4, "status": "available"},
	}
	env.remote.selectData["staff"] = []map[string]interface{}{
		{"id": "w1", "name": "Andi", "on_duty": true},
	}
}

func TestRefreshMirrorsReferenceData(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)

	result, err := env.cache.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, RefreshDone, result.Outcome)
	assert.Equal(t, 5, result.Items)

	items, err := env.cache.Items()
	require.NoError(t, err)
	assert.Len(t, items, 2)

	tables, err := env.cache.Tables()
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, "t1", tables[0].ID)

	staff, err := env.cache.Staff()
	require.NoError(t, err)
	require.Len(t, staff, 1)
	assert.True(t, staff[0].OnDuty)

	// Only URLs on the configured asset host are forwarded to the agent.
	require.Len(t, env.courier.batches, 1)
	assert.Equal(t, []string{"https://cdn.example.com/nasi.jpg"}, env.courier.batches[0])
}

// Two non-forced refreshes inside the TTL issue exactly one fetch pass.
func TestRefreshStalenessGate(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)

	first, err := env.cache.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, RefreshDone, first.Outcome)

	second, err := env.cache.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, RefreshFresh, second.Outcome)
	assert.Equal(t, 1, env.remote.selectCalls["menu_items"])

	// Force bypasses the gate.
	third, err := env.cache.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Equal(t, RefreshDone, third.Outcome)
	assert.Equal(t, 2, env.remote.selectCalls["menu_items"])
}

func TestRefreshSingleFlight(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)

	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	env.remote.selectHook = func(resource string) error {
		once.Do(func() {
			close(started)
			<-release
		})
		return nil
	}

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		result, err := env.cache.Refresh(context.Background(), true)
		assert.NoError(t, err)
		assert.Equal(t, RefreshDone, result.Outcome)
	}()

	<-started
	busy, err := env.cache.Refresh(context.Background(), true)
	assert.NoError(t, err)
	assert.Equal(t, RefreshBusy, busy.Outcome)

	close(release)
	wg.Wait()
}

// A failing sub-fetch loses only its own dataset: the rest still overwrite
// and the pass timestamp is still recorded.
func TestRefreshToleratesPartialFailure(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)
	env.remote.selectHook = func(resource string) error {
		if resource == "staff" {
			return errors.New("fetch timed out")
		}
		return nil
	}

	result, err := env.cache.Refresh(context.Background(), false)
	require.NoError(t, err)
	assert.Equal(t, RefreshDone, result.Outcome)
	assert.Equal(t, 4, result.Items)

	items, err := env.cache.Items()
	require.NoError(t, err)
	assert.Len(t, items, 2)

	staff, err := env.cache.Staff()
	require.NoError(t, err)
	assert.Empty(t, staff)

	_, ok := env.retention.LastSync(DatasetEssential)
	assert.True(t, ok)
}

// An empty but successful response overwrites whatever was cached. Accepted
// degradation, asserted here so a change is a conscious one.
func TestRefreshEmptyResultOverwrites(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)

	_, err := env.cache.Refresh(context.Background(), false)
	require.NoError(t, err)
	items, _ := env.cache.Items()
	require.Len(t, items, 2)

	env.remote.selectData["menu_items"] = nil
	_, err = env.cache.Refresh(context.Background(), true)
	require.NoError(t, err)

	items, err = env.cache.Items()
	require.NoError(t, err)
	assert.Empty(t, items)
}

func TestUpdateTableStatus(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)
	_, err := env.cache.Refresh(context.Background(), false)
	require.NoError(t, err)

	require.NoError(t, env.cache.UpdateTableStatus("t1", models.TableStatusOccupied, "srv_9", "w1"))

	tables, err := env.cache.Tables()
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, models.TableStatusOccupied, tables[0].Status)
	assert.Equal(t, "srv_9", tables[0].CurrentOrderID)
	assert.Equal(t, "w1", tables[0].StaffID)
}

func TestRefreshSkipsAssetForwardingWhenPolicySaysNo(t *testing.T) {
	env := setupSyncTest(t)
	seedRemoteCatalog(env)
	env.profile.constrained = true
	env.profile.metered = true

	_, err := env.cache.Refresh(context.Background(), true)
	require.NoError(t, err)
	assert.Empty(t, env.courier.batches)
}

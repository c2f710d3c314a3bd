package store

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/yeremiapane/restaurant-pos-sync/models"
)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := OpenMemory()
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	return s
}

func TestOpenIsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "pos.db")

	s1, err := Open(path)
	assert.NoError(t, err)
	assert.Equal(t, SchemaVersion, s1.Version())

	// Re-opening an already migrated file must not fail or lose data.
	assert.NoError(t, s1.Put(&models.CatalogItem{ID: "i1", Name: "Nasi Goreng", Price: 25000}))

	s2, err := Open(path)
	assert.NoError(t, err)
	assert.Equal(t, SchemaVersion, s2.Version())

	var item models.CatalogItem
	assert.NoError(t, s2.Get(&item, "i1"))
	assert.Equal(t, "Nasi Goreng", item.Name)
}

func TestPutGetDelete(t *testing.T) {
	s := setupTestStore(t)

	order := &models.Order{
		ID:        "offline_1_ab",
		Origin:    models.OriginLocal,
		Status:    models.OrderStatusPending,
		OrderType: models.OrderTypeDineIn,
		Total:     1000,
	}
	assert.NoError(t, s.Put(order))

	// Put is an upsert by primary key.
	order.Status = models.OrderStatusCompleted
	assert.NoError(t, s.Put(order))

	var got models.Order
	assert.NoError(t, s.Get(&got, "offline_1_ab"))
	assert.Equal(t, models.OrderStatusCompleted, got.Status)

	assert.NoError(t, s.Delete(&models.Order{}, "offline_1_ab"))
	err := s.Get(&got, "offline_1_ab")
	assert.ErrorIs(t, err, ErrNotFound)

	// Deleting a missing key is fine.
	assert.NoError(t, s.Delete(&models.Order{}, "offline_1_ab"))
}

func TestBulkPutAndClear(t *testing.T) {
	s := setupTestStore(t)

	lines := []models.OrderLine{
		{ID: "l1", OrderID: "o1", ItemID: "itemA", Quantity: 2, UnitPrice: 500, Total: 1000},
		{ID: "l2", OrderID: "o1", ItemID: "itemB", Quantity: 1, UnitPrice: 300, Total: 300},
	}
	assert.NoError(t, s.BulkPut(lines))

	var got []models.OrderLine
	assert.NoError(t, s.GetAll(&got))
	assert.Len(t, got, 2)

	assert.NoError(t, s.Clear(&models.OrderLine{}))
	got = nil
	assert.NoError(t, s.GetAll(&got))
	assert.Empty(t, got)
}

func TestSettings(t *testing.T) {
	s := setupTestStore(t)

	_, err := s.GetSetting("missing")
	assert.ErrorIs(t, err, ErrNotFound)

	assert.NoError(t, s.PutSetting("dataset:tables", `[{"id":"t1"}]`))
	assert.NoError(t, s.PutSetting("dataset:tables", `[{"id":"t1"},{"id":"t2"}]`))

	v, err := s.GetSetting("dataset:tables")
	assert.NoError(t, err)
	assert.Equal(t, `[{"id":"t1"},{"id":"t2"}]`, v)
}

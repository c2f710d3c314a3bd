package services

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"

	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos-sync/assets"
	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/remote"
	"github.com/yeremiapane/restaurant-pos-sync/store"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

// Logical dataset keys for freshness metadata.
const (
	DatasetEssential  = "essential_data"
	DatasetItems      = "catalog_items"
	DatasetCategories = "catalog_categories"
	DatasetTables     = "tables"
	DatasetStaff      = "staff"
)

// Settings keys of the wrapped reference-data blobs.
const (
	tablesBlobKey = "dataset:tables"
	staffBlobKey  = "dataset:staff"
)

type RefreshOutcome string

const (
	RefreshBusy  RefreshOutcome = "busy"      // another refresh in flight
	RefreshFresh RefreshOutcome = "fresh"     // within TTL, skipped
	RefreshDone  RefreshOutcome = "refreshed" // full pass completed
)

type RefreshResult struct {
	Outcome RefreshOutcome
	Items   int // records written across all datasets
}

// EssentialDataCache mirrors the reference data the floor cannot run
// without: catalog items and categories, tables, staff. Each successful
// refresh overwrites the local copy wholesale; nothing here is ever mutated
// locally except the derived table occupancy the engine writes back.
type EssentialDataCache struct {
	store     *store.Store
	remote    remote.API
	retention *RetentionManager
	courier   assets.Courier
	assetHost string

	mu         sync.Mutex
	refreshing bool
}

func NewEssentialDataCache(st *store.Store, api remote.API, rm *RetentionManager, courier assets.Courier, assetHost string) *EssentialDataCache {
	if courier == nil {
		courier = assets.NopCourier{}
	}
	return &EssentialDataCache{
		store:     st,
		remote:    api,
		retention: rm,
		courier:   courier,
		assetHost: assetHost,
	}
}

// Refresh pulls every reference dataset. Sub-fetches run in parallel and a
// failing one only loses its own dataset for this pass: the others still
// overwrite, and the pass timestamp is recorded once all of them return.
// That a slow backend can hand back an empty (but successful) result and
// wipe a good cache is accepted degradation, not a guarded condition.
func (c *EssentialDataCache) Refresh(ctx context.Context, force bool) (RefreshResult, error) {
	c.mu.Lock()
	if c.refreshing {
		c.mu.Unlock()
		return RefreshResult{Outcome: RefreshBusy}, nil
	}
	c.refreshing = true
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		c.refreshing = false
		c.mu.Unlock()
	}()

	if !force && c.retention.IsFresh(DatasetEssential) {
		return RefreshResult{Outcome: RefreshFresh}, nil
	}

	var (
		wg        sync.WaitGroup
		resultsMu sync.Mutex
		total     int
		imageURLs []string
	)
	record := func(dataset string, n int) {
		resultsMu.Lock()
		total += n
		resultsMu.Unlock()
		if err := c.retention.RecordSync(dataset, n); err != nil {
			utils.ErrorLogger.Printf("Record sync meta for %s: %v", dataset, err)
		}
	}

	wg.Add(4)
	go func() {
		defer wg.Done()
		items, err := c.fetchItems(ctx)
		if err != nil {
			utils.ErrorLogger.Printf("Refresh catalog items: %v", err)
			return
		}
		record(DatasetItems, len(items))
		resultsMu.Lock()
		for _, item := range items {
			if item.ImageURL != "" && strings.HasPrefix(item.ImageURL, c.assetHost) {
				imageURLs = append(imageURLs, item.ImageURL)
			}
		}
		resultsMu.Unlock()
	}()
	go func() {
		defer wg.Done()
		n, err := c.fetchCategories(ctx)
		if err != nil {
			utils.ErrorLogger.Printf("Refresh catalog categories: %v", err)
			return
		}
		record(DatasetCategories, n)
	}()
	go func() {
		defer wg.Done()
		n, err := c.fetchTables(ctx)
		if err != nil {
			utils.ErrorLogger.Printf("Refresh tables: %v", err)
			return
		}
		record(DatasetTables, n)
	}()
	go func() {
		defer wg.Done()
		n, err := c.fetchStaff(ctx)
		if err != nil {
			utils.ErrorLogger.Printf("Refresh staff: %v", err)
			return
		}
		record(DatasetStaff, n)
	}()
	wg.Wait()

	if err := c.retention.RecordSync(DatasetEssential, total); err != nil {
		return RefreshResult{}, err
	}

	if len(imageURLs) > 0 && c.retention.ShouldCacheImages() {
		if err := c.courier.PublishCacheAssets(imageURLs); err != nil {
			utils.ErrorLogger.Printf("Forward %d asset URLs: %v", len(imageURLs), err)
		}
	}

	return RefreshResult{Outcome: RefreshDone, Items: total}, nil
}

func (c *EssentialDataCache) fetchItems(ctx context.Context) ([]models.CatalogItem, error) {
	records, err := c.remote.Select(ctx, "menu_items", nil, "")
	if err != nil {
		return nil, err
	}
	var items []models.CatalogItem
	if err := decodeRecords(records, &items); err != nil {
		return nil, err
	}
	err = c.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CatalogItem{}).Error; err != nil {
			return err
		}
		if len(items) == 0 {
			return nil
		}
		return tx.CreateInBatches(items, 100).Error
	})
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (c *EssentialDataCache) fetchCategories(ctx context.Context) (int, error) {
	records, err := c.remote.Select(ctx, "menu_categories", nil, "")
	if err != nil {
		return 0, err
	}
	var categories []models.CatalogCategory
	if err := decodeRecords(records, &categories); err != nil {
		return 0, err
	}
	err = c.store.DB().Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.CatalogCategory{}).Error; err != nil {
			return err
		}
		if len(categories) == 0 {
			return nil
		}
		return tx.CreateInBatches(categories, 100).Error
	})
	return len(categories), err
}

func (c *EssentialDataCache) fetchTables(ctx context.Context) (int, error) {
	records, err := c.remote.Select(ctx, "restaurant_tables", nil, "")
	if err != nil {
		return 0, err
	}
	var tables []models.Table
	if err := decodeRecords(records, &tables); err != nil {
		return 0, err
	}
	if err := c.putBlob(tablesBlobKey, tables); err != nil {
		return 0, err
	}
	return len(tables), nil
}

func (c *EssentialDataCache) fetchStaff(ctx context.Context) (int, error) {
	records, err := c.remote.Select(ctx, "staff", nil, "")
	if err != nil {
		return 0, err
	}
	var staff []models.StaffMember
	if err := decodeRecords(records, &staff); err != nil {
		return 0, err
	}
	if err := c.putBlob(staffBlobKey, staff); err != nil {
		return 0, err
	}
	return len(staff), nil
}

// Items serves the cached catalog, whatever its age. Offline reads always
// succeed against the last good refresh.
func (c *EssentialDataCache) Items() ([]models.CatalogItem, error) {
	var items []models.CatalogItem
	err := c.store.GetAll(&items)
	return items, err
}

func (c *EssentialDataCache) Categories() ([]models.CatalogCategory, error) {
	var categories []models.CatalogCategory
	err := c.store.GetAll(&categories)
	return categories, err
}

// Tables reads the wrapped single-key tables record.
func (c *EssentialDataCache) Tables() ([]models.Table, error) {
	var tables []models.Table
	if err := c.getBlob(tablesBlobKey, &tables); err != nil {
		return nil, err
	}
	return tables, nil
}

func (c *EssentialDataCache) Staff() ([]models.StaffMember, error) {
	var staff []models.StaffMember
	if err := c.getBlob(staffBlobKey, &staff); err != nil {
		return nil, err
	}
	return staff, nil
}

// UpdateTableStatus rewrites the derived occupancy fields of one cached
// table. Called by the engine after a dine-in order is confirmed; best
// effort, the backend copy is what actually counts.
func (c *EssentialDataCache) UpdateTableStatus(tableID, status, orderID, staffID string) error {
	tables, err := c.Tables()
	if err != nil {
		return err
	}
	for i := range tables {
		if tables[i].ID == tableID {
			tables[i].Status = status
			tables[i].CurrentOrderID = orderID
			tables[i].StaffID = staffID
		}
	}
	return c.putBlob(tablesBlobKey, tables)
}

func (c *EssentialDataCache) putBlob(key string, value interface{}) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	return c.store.PutSetting(key, string(raw))
}

func (c *EssentialDataCache) getBlob(key string, dest interface{}) error {
	raw, err := c.store.GetSetting(key)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil
		}
		return err
	}
	return json.Unmarshal([]byte(raw), dest)
}

// decodeRecords round-trips generic remote rows into typed models.
func decodeRecords(records []map[string]interface{}, dest interface{}) error {
	raw, err := json.Marshal(records)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dest)
}

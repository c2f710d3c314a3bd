package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/yeremiapane/restaurant-pos-sync/models"
	"github.com/yeremiapane/restaurant-pos-sync/store"
	"github.com/yeremiapane/restaurant-pos-sync/utils"
)

// EnvironmentProfile abstracts the device/network heuristics so retention
// decisions stay pure functions over injected inputs.
type EnvironmentProfile interface {
	IsConstrained() bool
	IsMetered() bool
}

// StaticProfile is the composition-root implementation, fed from config.
type StaticProfile struct {
	Constrained bool
	Metered     bool
}

func (p StaticProfile) IsConstrained() bool { return p.Constrained }
func (p StaticProfile) IsMetered() bool     { return p.Metered }

type Environment struct {
	Constrained bool   `json:"constrained"`
	Connection  string `json:"connection"` // "good" or "metered"
}

type RetentionConfig struct {
	FreshTTL       time.Duration // staleness window on a good connection
	ConstrainedTTL time.Duration // longer window when constrained/metered
	RetentionDays  int
	MaxOrders      int
}

func DefaultRetentionConfig() RetentionConfig {
	return RetentionConfig{
		FreshTTL:       time.Hour,
		ConstrainedTTL: 3 * time.Hour,
		RetentionDays:  30,
		MaxOrders:      200,
	}
}

// RetentionManager bounds local history growth and owns the per-dataset
// freshness metadata. It is the single freshness bookkeeper: every component
// that records or judges a last-sync timestamp goes through it.
type RetentionManager struct {
	store   *store.Store
	profile EnvironmentProfile
	cfg     RetentionConfig
	now     func() time.Time
}

func NewRetentionManager(st *store.Store, profile EnvironmentProfile, cfg RetentionConfig) *RetentionManager {
	if cfg.FreshTTL == 0 {
		cfg = DefaultRetentionConfig()
	}
	return &RetentionManager{store: st, profile: profile, cfg: cfg, now: time.Now}
}

func (m *RetentionManager) ClassifyEnvironment() Environment {
	env := Environment{
		Constrained: m.profile.IsConstrained(),
		Connection:  "good",
	}
	if m.profile.IsMetered() {
		env.Connection = "metered"
	}
	return env
}

type syncMeta struct {
	LastSyncAt time.Time `json:"last_sync_at"`
	ItemCount  int       `json:"item_count,omitempty"`
}

func metaKey(dataset string) string { return "sync_meta:" + dataset }

// RecordSync stamps a dataset's metadata after a successful refresh.
func (m *RetentionManager) RecordSync(dataset string, itemCount int) error {
	raw, err := json.Marshal(syncMeta{LastSyncAt: m.now().UTC(), ItemCount: itemCount})
	if err != nil {
		return err
	}
	return m.store.PutSetting(metaKey(dataset), string(raw))
}

// LastSync returns a dataset's last successful refresh time, ok=false when it
// has never synced.
func (m *RetentionManager) LastSync(dataset string) (time.Time, bool) {
	raw, err := m.store.GetSetting(metaKey(dataset))
	if err != nil {
		return time.Time{}, false
	}
	var meta syncMeta
	if err := json.Unmarshal([]byte(raw), &meta); err != nil {
		return time.Time{}, false
	}
	return meta.LastSyncAt, !meta.LastSyncAt.IsZero()
}

// IsFresh judges a dataset against a TTL that stretches on a constrained or
// metered link to avoid chatty syncing, and tightens on a good one.
func (m *RetentionManager) IsFresh(dataset string) bool {
	last, ok := m.LastSync(dataset)
	if !ok {
		return false
	}
	ttl := m.cfg.FreshTTL
	if m.profile.IsConstrained() || m.profile.IsMetered() {
		ttl = m.cfg.ConstrainedTTL
	}
	return m.now().Sub(last) < ttl
}

// EvictAgedOrders prunes synced, completed local orders: too old (past the
// retention window) or ranked past the retained maximum by recency. Either
// condition alone evicts. Lines are cascaded with their order.
func (m *RetentionManager) EvictAgedOrders() (int, error) {
	var orders []models.Order
	err := m.store.DB().
		Where("status = ? AND synced = ?", models.OrderStatusCompleted, true).
		Order("created_at DESC").
		Find(&orders).Error
	if err != nil {
		return 0, err
	}

	cutoff := m.now().AddDate(0, 0, -m.cfg.RetentionDays)
	evicted := 0
	for rank, order := range orders {
		if order.CreatedAt.After(cutoff) && rank < m.cfg.MaxOrders {
			continue
		}
		if err := m.store.DB().Where("order_id = ?", order.ID).Delete(&models.OrderLine{}).Error; err != nil {
			return evicted, fmt.Errorf("evict lines of %s: %w", order.ID, err)
		}
		if err := m.store.Delete(&models.Order{}, order.ID); err != nil {
			return evicted, fmt.Errorf("evict order %s: %w", order.ID, err)
		}
		evicted++
	}
	if evicted > 0 {
		utils.InfoLogger.Printf("Retention evicted %d aged orders", evicted)
	}
	return evicted, nil
}

// Approximate per-record sizes, for display only.
var recordSizeHints = map[string]int64{
	"catalog_items":      400,
	"catalog_categories": 120,
	"orders":             600,
	"order_lines":        200,
	"shifts":             180,
	"outbox":             500,
	"cart":               200,
	"settings":           250,
}

type StorageUsage struct {
	UsedBytes int64 `json:"used_bytes"`
	Estimated bool  `json:"estimated"`
}

type CollectionUsage struct {
	Collection string `json:"collection"`
	Records    int64  `json:"records"`
	ApproxSize int64  `json:"approx_bytes"`
}

// StorageUsage reports a best-effort size figure: the database file size when
// the store is on disk, otherwise the sum of per-record estimates. Never used
// to gate correctness.
func (m *RetentionManager) StorageUsage() (StorageUsage, error) {
	if info, err := os.Stat(m.store.Path()); err == nil {
		return StorageUsage{UsedBytes: info.Size(), Estimated: false}, nil
	}
	breakdown, err := m.StorageBreakdown()
	if err != nil {
		return StorageUsage{}, err
	}
	var total int64
	for _, c := range breakdown {
		total += c.ApproxSize
	}
	return StorageUsage{UsedBytes: total, Estimated: true}, nil
}

func (m *RetentionManager) StorageBreakdown() ([]CollectionUsage, error) {
	collections := []struct {
		name  string
		model interface{}
	}{
		{"catalog_items", &models.CatalogItem{}},
		{"catalog_categories", &models.CatalogCategory{}},
		{"orders", &models.Order{}},
		{"order_lines", &models.OrderLine{}},
		{"shifts", &models.Shift{}},
		{"outbox", &models.OutboxEntry{}},
		{"cart", &models.CartLine{}},
		{"settings", &models.Setting{}},
	}
	var out []CollectionUsage
	for _, col := range collections {
		var n int64
		if err := m.store.DB().Model(col.model).Count(&n).Error; err != nil {
			return nil, err
		}
		out = append(out, CollectionUsage{
			Collection: col.name,
			Records:    n,
			ApproxSize: n * recordSizeHints[col.name],
		})
	}
	return out, nil
}

// ShouldCacheImages tells the catalog refresh whether to forward image URLs
// to the caching agent at all.
func (m *RetentionManager) ShouldCacheImages() bool {
	return !(m.profile.IsConstrained() && m.profile.IsMetered())
}

// ImageQuality picks the variant the caching agent should fetch.
func (m *RetentionManager) ImageQuality() string {
	if m.profile.IsConstrained() || m.profile.IsMetered() {
		return "low"
	}
	return "high"
}

// HandleQuotaError runs an eviction pass when a local write hit the device
// quota, then hands the original error back to surface to the UI.
func (m *RetentionManager) HandleQuotaError(err error) error {
	if !errors.Is(err, store.ErrQuotaExceeded) {
		return err
	}
	if _, evictErr := m.EvictAgedOrders(); evictErr != nil {
		utils.ErrorLogger.Printf("Eviction after quota error failed: %v", evictErr)
	}
	return err
}

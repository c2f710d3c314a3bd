package store

import (
	"strconv"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yeremiapane/restaurant-pos-sync/models"
)

const schemaVersionKey = "schema_version"

// Migration steps, ordered. Step N brings the schema from version N to N+1.
// Steps must be additive and safe to re-run: opening an already-migrated
// store is a no-op, opening an older store runs only the missing steps.
var migrations = []func(*gorm.DB) error{
	func(db *gorm.DB) error { // v1: reference catalog
		return db.AutoMigrate(&models.CatalogCategory{}, &models.CatalogItem{})
	},
	func(db *gorm.DB) error { // v2: offline orders
		return db.AutoMigrate(&models.Order{}, &models.OrderLine{})
	},
	func(db *gorm.DB) error { // v3: shifts and the unified outbox
		return db.AutoMigrate(&models.Shift{}, &models.OutboxEntry{})
	},
	func(db *gorm.DB) error { // v4: draft cart
		return db.AutoMigrate(&models.CartLine{})
	},
}

// SchemaVersion is the version a freshly opened store ends up at.
var SchemaVersion = len(migrations)

func (s *Store) migrate() error {
	// The settings table carries the version marker, so it exists before
	// any versioned step runs.
	if err := s.db.AutoMigrate(&models.Setting{}); err != nil {
		return err
	}
	version := s.storedVersion()
	for v := version; v < len(migrations); v++ {
		if err := migrations[v](s.db); err != nil {
			return err
		}
		if err := s.PutSetting(schemaVersionKey, strconv.Itoa(v + 1)); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) storedVersion() int {
	raw, err := s.GetSetting(schemaVersionKey)
	if err != nil {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return 0
	}
	return v
}

// Version reports the schema version currently recorded in the store.
func (s *Store) Version() int { return s.storedVersion() }

func randomToken() string {
	return uuid.NewString()[:8]
}

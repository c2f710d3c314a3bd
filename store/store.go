package store

import (
	"errors"
	"fmt"
	"strings"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
	"gorm.io/gorm/logger"

	"github.com/yeremiapane/restaurant-pos-sync/models"
)

// ErrQuotaExceeded signals that the device refused the write for lack of
// space. Callers are expected to run eviction and resurface the error; the
// store itself never retries.
var ErrQuotaExceeded = errors.New("local storage quota exceeded")

// ErrNotFound mirrors the underlying engine's not-found error so callers
// don't have to import gorm to test for it.
var ErrNotFound = gorm.ErrRecordNotFound

// Store is the device-resident persistent store. Every operation is atomic
// per call and per collection; there is no cross-collection transaction, so
// callers writing related records in two collections must tolerate a partial
// write (see the order/line purge in the sync engine).
type Store struct {
	db   *gorm.DB
	path string
}

// Open opens (or creates) the store at path and brings the schema up to the
// current version. Safe to call again on an already-migrated file.
func Open(path string) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open local store: %w", err)
	}
	// One connection: collection transactions serialize at the engine level
	// instead of surfacing sqlite busy errors to callers.
	if sqlDB, err := db.DB(); err == nil {
		sqlDB.SetMaxOpenConns(1)
	}
	s := &Store{db: db, path: path}
	if err := s.migrate(); err != nil {
		return nil, fmt.Errorf("migrate local store: %w", err)
	}
	return s, nil
}

// OpenMemory opens a throwaway in-memory store, used by tests.
func OpenMemory() (*Store, error) {
	return Open("file:mem_" + randomToken() + "?mode=memory&cache=shared")
}

// DB exposes the underlying handle for indexed queries the generic
// operations don't cover.
func (s *Store) DB() *gorm.DB { return s.db }

// Path returns the database file path ("" semantics for in-memory stores
// are handled by the retention manager's size heuristics).
func (s *Store) Path() string { return s.path }

// Get loads a single record by primary key into dest.
func (s *Store) Get(dest interface{}, key interface{}) error {
	return wrapWriteErr(s.db.First(dest, "id = ?", key).Error)
}

// GetAll loads every record of dest's collection.
func (s *Store) GetAll(dest interface{}) error {
	return wrapWriteErr(s.db.Find(dest).Error)
}

// Put upserts a single record by primary key.
func (s *Store) Put(record interface{}) error {
	return wrapWriteErr(s.db.Clauses(clause.OnConflict{UpdateAll: true}).Create(record).Error)
}

// BulkPut upserts a slice of records inside one storage transaction.
func (s *Store) BulkPut(records interface{}) error {
	return wrapWriteErr(s.db.Transaction(func(tx *gorm.DB) error {
		return tx.Clauses(clause.OnConflict{UpdateAll: true}).CreateInBatches(records, 100).Error
	}))
}

// Delete removes a record by primary key. Deleting a missing key is not an
// error.
func (s *Store) Delete(model interface{}, key interface{}) error {
	return wrapWriteErr(s.db.Delete(model, "id = ?", key).Error)
}

// Clear empties a whole collection.
func (s *Store) Clear(model interface{}) error {
	return wrapWriteErr(s.db.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error)
}

// GetSetting reads a settings row, ErrNotFound when absent.
func (s *Store) GetSetting(key string) (string, error) {
	var row models.Setting
	if err := s.db.First(&row, "key = ?", key).Error; err != nil {
		return "", err
	}
	return row.Value, nil
}

// PutSetting upserts a settings row.
func (s *Store) PutSetting(key, value string) error {
	return s.Put(&models.Setting{Key: key, Value: value})
}

func wrapWriteErr(err error) error {
	if err == nil {
		return nil
	}
	if strings.Contains(err.Error(), "database or disk is full") {
		return fmt.Errorf("%w: %v", ErrQuotaExceeded, err)
	}
	return err
}

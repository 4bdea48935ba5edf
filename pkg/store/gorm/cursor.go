package gorm

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/doodlesbykumbi/membersync/pkg/model"
	"github.com/doodlesbykumbi/membersync/pkg/store"
)

// Ensure CursorStore implements store.CursorStore
var _ store.CursorStore = (*CursorStore)(nil)

// CursorStore implements store.CursorStore using GORM
type CursorStore struct {
	db *gorm.DB
}

// NewCursorStore creates a new CursorStore
func NewCursorStore(db *gorm.DB) *CursorStore {
	return &CursorStore{db: db}
}

// Get returns the offset stored under key and whether it exists.
func (s *CursorStore) Get(key string) (int, bool, error) {
	var row model.BatchCursor
	tx := s.db.Where("key = ?", key).First(&row)
	if tx.Error != nil {
		if errors.Is(tx.Error, gorm.ErrRecordNotFound) {
			return 0, false, nil
		}
		return 0, false, tx.Error
	}
	return row.Offset, true, nil
}

// Set creates or replaces the offset stored under key.
func (s *CursorStore) Set(key string, offset int) error {
	return s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"offset", "updated_at"}),
	}).Create(&model.BatchCursor{Key: key, Offset: offset}).Error
}

// Delete removes key.
func (s *CursorStore) Delete(key string) error {
	return s.db.Where("key = ?", key).Delete(&model.BatchCursor{}).Error
}

package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"cookiewarden/internal/domain"
	"cookiewarden/internal/store"
)

// LocalScope stores key/value entries in the state_entries table.
type LocalScope struct {
	db *gorm.DB
}

// type check
var _ store.LocalScope = (*LocalScope)(nil)

func NewLocalScope(db *gorm.DB) *LocalScope {
	return &LocalScope{db: db}
}

// Get implements the store.LocalScope interface for *LocalScope.
func (s *LocalScope) Get(ctx context.Context, key string) ([]byte, error) {
	var entry domain.StateEntry
	err := s.db.WithContext(ctx).Where("key = ?", key).Take(&entry).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("database: get %q: %w", key, err)
	}
	return entry.Value, nil
}

// Set implements the store.LocalScope interface for *LocalScope.
func (s *LocalScope) Set(ctx context.Context, key string, value []byte) error {
	entry := domain.StateEntry{
		Key:       key,
		Value:     value,
		UpdatedAt: time.Now().UTC(),
	}

	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&entry).Error
	if err != nil {
		return fmt.Errorf("database: set %q: %w", key, err)
	}
	return nil
}

// Remove implements the store.LocalScope interface for *LocalScope.
func (s *LocalScope) Remove(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("key = ?", key).Delete(&domain.StateEntry{}).Error; err != nil {
		return fmt.Errorf("database: remove %q: %w", key, err)
	}
	return nil
}

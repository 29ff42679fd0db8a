package storage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/task-management-client/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// item is one row of the device key/value table.
type item struct {
	Name      string `gorm:"primaryKey;size:191"`
	Value     string `gorm:"type:text"`
	UpdatedAt time.Time
}

func (item) TableName() string { return "storage_items" }

// GormStorage persists items in a SQL table; with the sqlite driver it is the
// on-device store.
type GormStorage struct {
	db    *gorm.DB
	owned bool
}

// OpenGormStorage opens (and migrates) an SQLite file at path.
func OpenGormStorage(path, logLevel string) (*GormStorage, error) {
	db, err := database.Open("sqlite", path, logLevel)
	if err != nil {
		return nil, err
	}
	s, err := NewGormStorage(db)
	if err != nil {
		_ = database.Close(db)
		return nil, err
	}
	s.owned = true
	return s, nil
}

// NewGormStorage uses an existing connection; Close leaves it open.
func NewGormStorage(db *gorm.DB) (*GormStorage, error) {
	if err := database.Migrate(db, &item{}); err != nil {
		return nil, err
	}
	return &GormStorage{db: db}, nil
}

func (s *GormStorage) GetItem(ctx context.Context, key string) (string, bool, error) {
	var row item
	err := s.db.WithContext(ctx).Where("name = ?", key).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return row.Value, true, nil
}

func (s *GormStorage) SetItem(ctx context.Context, key, value string) error {
	row := item{Name: key, Value: value}
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "name"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *GormStorage) RemoveItem(ctx context.Context, key string) error {
	if err := s.db.WithContext(ctx).Where("name = ?", key).Delete(&item{}).Error; err != nil {
		return fmt.Errorf("failed to remove %s: %w", key, err)
	}
	return nil
}

func (s *GormStorage) Close() error {
	if !s.owned {
		return nil
	}
	return database.Close(s.db)
}

package database

import (
	"fmt"

	"gorm.io/gorm"
)

// Index describes a secondary index on a single model field.
type Index struct {
	Model interface{}
	Name  string
}

// AddIndexes creates the indexes that do not exist yet. Index names refer to
// `gorm:"index:<name>"` tags on the model, so this works on every driver.
func AddIndexes(db *gorm.DB, indexes ...Index) error {
	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.Model, idx.Name) {
			continue
		}
		if err := migrator.CreateIndex(idx.Model, idx.Name); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

// MigrateDatabase runs AutoMigrate and then makes sure the indexes exist.
func MigrateDatabase(db *gorm.DB, models []interface{}, indexes ...Index) error {
	if err := Migrate(db, models...); err != nil {
		return err
	}
	if err := AddIndexes(db, indexes...); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}
	return nil
}

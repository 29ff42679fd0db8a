package database

import (
	"gorm.io/gorm"
)

// Page is an offset/limit window.
type Page struct {
	Offset int
	Limit  int
}

// Paginate applies pagination to a GORM query; a zero limit means no limit.
func Paginate(page Page) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page.Limit <= 0 {
			return db
		}
		return db.Offset(page.Offset).Limit(page.Limit)
	}
}

// OwnedBy restricts a query to rows whose user_id is userID.
func OwnedBy(userID int64) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		return db.Where("user_id = ?", userID)
	}
}

// Newest orders by creation time, newest first, with id as tiebreaker.
func Newest(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

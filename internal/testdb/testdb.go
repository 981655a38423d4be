// Package testdb provides an in-memory SQLite database migrated with the
// application schema, for repository and service tests.
package testdb

import (
	"testing"

	"github.com/resonant-live/resonant/backend/internal/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// New opens an in-memory database and migrates every relational model.
func New(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}

	// A single connection keeps every session on the same in-memory store.
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("unwrap test database: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	err = db.AutoMigrate(
		&models.User{},
		&models.Profile{},
		&models.Friendship{},
		&models.Notification{},
		&models.UserNotificationSetting{},
		&models.Booking{},
		&models.Like{},
		&models.Comment{},
	)
	if err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}

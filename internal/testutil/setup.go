package testutil

import (
	"os"
	"testing"

	"chefbot_go_backend/internal/database"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// SetupTestDB connects to the PostgreSQL test database, migrates every table and
// truncates them. The test is skipped when no database is reachable.
func SetupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		dsn = "host=localhost user=chefbot password=chefbot dbname=chefbot_test port=5432 sslmode=disable TimeZone=UTC"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Skipf("Failed to connect to test database (PostgreSQL may not be running): %v", err)
	}
	if err := database.Migrate(db); err != nil {
		t.Fatalf("Failed to migrate test database: %v", err)
	}

	CleanDatabase(db)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
	return db
}

// CleanDatabase truncates all tables to ensure clean test state
func CleanDatabase(db *gorm.DB) {
	tables := []string{"users", "response_cache", "favorites", "events"}
	for _, table := range tables {
		db.Exec("TRUNCATE TABLE " + table + " RESTART IDENTITY CASCADE")
	}
}

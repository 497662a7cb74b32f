package repository_test

import (
	"os"
	"testing"

	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db"
	"gorm.io/gorm"
)

func newPostgresDB(t *testing.T) (*gorm.DB, string) {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL is not set")
	}

	gdb, err := db.Connect(dsn)
	if err != nil {
		t.Fatalf("failed to connect db: %v", err)
	}
	if err := db.AutoMigrate(gdb); err != nil {
		t.Fatalf("failed to migrate: %v", err)
	}
	return gdb, dsn
}

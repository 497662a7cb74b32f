package db

import (
	"fmt"

	"github.com/mohammadpnp/catalog-import/internal/infrastructure/db/models"
	"gorm.io/gorm"
)

const legacyHandleIndex = "idx_products_handle"

// AllModels returns every table the import tracker owns or reads.
func AllModels() []any {
	return []any{
		&models.ImportJob{},
		&models.BatchJob{},
		&models.Product{},
		&models.StagedProduct{},
	}
}

func AutoMigrate(db *gorm.DB) error {
	if err := db.AutoMigrate(AllModels()...); err != nil {
		return fmt.Errorf("db: auto-migrate: %w", err)
	}
	// Older schemas made handle unique, which rejects variants of one product.
	if db.Migrator().HasIndex(&models.Product{}, legacyHandleIndex) {
		if err := db.Migrator().DropIndex(&models.Product{}, legacyHandleIndex); err != nil {
			return fmt.Errorf("db: drop %s: %w", legacyHandleIndex, err)
		}
	}
	return nil
}

package models

import (
	"time"

	"gorm.io/datatypes"
)

// Product variants share a handle, so only sku is unique.
type Product struct {
	ID                string  `gorm:"type:uuid;primaryKey"`
	Handle            *string `gorm:"type:text;index:idx_products_handle_lookup"`
	SKU               *string `gorm:"column:sku;type:text;uniqueIndex"`
	Title             string  `gorm:"type:text;not null"`
	Description       string  `gorm:"type:text;not null;default:''"`
	VariantTitle      string  `gorm:"type:text;not null;default:''"`
	PriceAmount       int64   `gorm:"not null;default:0"`
	CurrencyCode      string  `gorm:"size:3;not null"`
	InventoryQuantity int64   `gorm:"not null;default:0"`
	ImageURLs         datatypes.JSON
	LastImportJobID   *string `gorm:"type:uuid"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

func (Product) TableName() string {
	return "products"
}

// StagedProduct rows live only for the duration of one chunk transaction.
type StagedProduct struct {
	ID                int64  `gorm:"primaryKey"`
	JobID             string `gorm:"type:uuid;index;not null"`
	RowIndex          int64  `gorm:"not null"`
	Identifier        string `gorm:"type:text;not null"`
	Handle            string `gorm:"type:text;not null"`
	SKU               string `gorm:"column:sku;type:text;not null"`
	Title             string `gorm:"type:text;not null"`
	Description       string `gorm:"type:text;not null"`
	VariantTitle      string `gorm:"type:text;not null"`
	PriceAmount       int64  `gorm:"not null"`
	CurrencyCode      string `gorm:"size:3;not null"`
	InventoryQuantity int64  `gorm:"not null"`
	ImageURLs         datatypes.JSON
}

func (StagedProduct) TableName() string {
	return "stg_products"
}

package database

import (
	"fmt"
	"os"

	"github.com/ksred/storefront-api/internal/catalog"
	"github.com/ksred/storefront-api/internal/database/migrations"
	"github.com/ksred/storefront-api/internal/inventory"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase() (*gorm.DB, error) {
	path := os.Getenv("DB_PATH")
	if path == "" {
		path = "storefront.db"
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddStockMovements(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddPricingRules(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&inventory.StockRecord{},
		&catalog.Product{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}

package migrations

import (
	"github.com/ksred/storefront-api/internal/inventory"
	"gorm.io/gorm"
)

// AddStockMovements creates the movement log table and its query indexes
func AddStockMovements(db *gorm.DB) error {
	if err := db.AutoMigrate(&inventory.Movement{}); err != nil {
		return err
	}

	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Composite index for per-product audit reads, newest first
		`CREATE INDEX IF NOT EXISTS idx_movements_product_created
		 ON movements(product_id, created_at)`,

		// Index for filtering by movement type
		`CREATE INDEX IF NOT EXISTS idx_movements_type
		 ON movements(type)`,

		// Index for order-scoped reconciliation lookups
		`CREATE INDEX IF NOT EXISTS idx_movements_order_id
		 ON movements(order_id)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

package migrations

import (
	"github.com/ksred/storefront-api/internal/pricing"
	"gorm.io/gorm"
)

// AddPricingRules creates the pricing rules table and required indexes
func AddPricingRules(db *gorm.DB) error {
	if err := db.AutoMigrate(&pricing.PricingRule{}); err != nil {
		return err
	}

	indexes := []string{
		// Composite index for the engine's active-rule scan
		`CREATE INDEX IF NOT EXISTS idx_pricing_rules_active_scope
		 ON pricing_rules(is_active, product_id, category)`,

		// Index for priority-ordered listings
		`CREATE INDEX IF NOT EXISTS idx_pricing_rules_priority
		 ON pricing_rules(priority)`,

		// Index for time window filtering
		`CREATE INDEX IF NOT EXISTS idx_pricing_rules_window
		 ON pricing_rules(start_time, end_time)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}

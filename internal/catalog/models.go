package catalog

import (
	"time"

	"gorm.io/gorm"
)

// Product is the catalog entry supplying the name, category and base price
// that the ledger and pricing engine key off. The storefront's richer product
// content lives outside this service.
type Product struct {
	gorm.Model `json:"-"`
	ProductID  string    `gorm:"uniqueIndex" json:"product_id"`
	Name       string    `json:"name"`
	Category   string    `gorm:"index" json:"category,omitempty"`
	Price      float64   `json:"price"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

package inventory

import (
	"time"

	"gorm.io/gorm"
)

const (
	// DefaultStockLevel is assumed for products that have no ledger record yet.
	// A missing record reads as this value rather than an error; the record is
	// materialised lazily on first mutation.
	DefaultStockLevel = 100

	// DefaultLowStockThreshold applies to records created without explicit
	// threshold settings.
	DefaultLowStockThreshold = 10
)

// Movement types. A movement's QuantityDelta records the signed effect on
// sellable availability, StockBefore/StockAfter the physical stock count.
const (
	TypeRestock    = "restock"
	TypeSale       = "sale"
	TypeAdjustment = "adjustment"
	TypeReturn     = "return"
	TypeReserved   = "reserved"
	TypeReleased   = "released"
)

type StockRecord struct {
	gorm.Model        `json:"-"`
	ProductID         string     `gorm:"uniqueIndex" json:"product_id"`
	CurrentStock      int        `json:"current_stock"`
	ReservedStock     int        `json:"reserved_stock"`
	LowStockThreshold int        `json:"low_stock_threshold"`
	ReorderPoint      int        `json:"reorder_point"`
	ReorderQuantity   int        `json:"reorder_quantity"`
	LastRestockedAt   *time.Time `json:"last_restocked_at,omitempty"`
	LastSoldAt        *time.Time `json:"last_sold_at,omitempty"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// Available returns the sellable stock, floored at zero.
func (r *StockRecord) Available() int {
	available := r.CurrentStock - r.ReservedStock
	if available < 0 {
		return 0
	}
	return available
}

// Movement is an immutable audit record of one stock change. Movements are
// appended in the same transaction as the stock mutation and never updated.
type Movement struct {
	gorm.Model    `json:"-"`
	MovementID    string    `gorm:"uniqueIndex" json:"movement_id"`
	ProductID     string    `gorm:"index" json:"product_id"`
	Type          string    `json:"type"` // restock, sale, adjustment, return, reserved, released
	QuantityDelta int       `json:"quantity_delta"`
	StockBefore   int       `json:"stock_before"`
	StockAfter    int       `json:"stock_after"`
	OrderID       string    `json:"order_id,omitempty"`
	Note          string    `json:"note,omitempty"`
	ActorID       string    `json:"actor_id,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

// StockStatus is the read model returned to storefront callers.
type StockStatus struct {
	ProductID      string `json:"product_id"`
	CurrentStock   int    `json:"current_stock"`
	ReservedStock  int    `json:"reserved_stock"`
	AvailableStock int    `json:"available_stock"`
	LowStock       bool   `json:"low_stock"`
	OutOfStock     bool   `json:"out_of_stock"`
}

// StockEvent is published on the change feed after a committed mutation.
// The ledger remains the source of truth whether or not anyone subscribes.
type StockEvent struct {
	ProductID    string    `json:"product_id"`
	Type         string    `json:"type"`
	CurrentStock int       `json:"current_stock"`
	Available    int       `json:"available"`
	At           time.Time `json:"at"`
}

// BulkRestockItem is one entry of an all-or-nothing batch restock.
type BulkRestockItem struct {
	ProductID string `json:"product_id" binding:"required"`
	Quantity  int    `json:"quantity" binding:"required"`
}

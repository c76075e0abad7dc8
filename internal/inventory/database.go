package inventory

import (
	"errors"
	"fmt"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// GetStockRecord retrieves the record for a product, or nil if none exists.
func (d *Database) GetStockRecord(productID string) (*StockRecord, error) {
	var record StockRecord
	if err := d.db.Where("product_id = ?", productID).First(&record).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to fetch stock record: %w", err)
	}
	return &record, nil
}

func (d *Database) CreateStockRecord(record *StockRecord) error {
	return d.db.Create(record).Error
}

// UpdateStockRecord persists metadata-only changes (thresholds, reorder
// settings). Stock quantity changes go through SaveRecordWithMovement so the
// audit log stays complete.
func (d *Database) UpdateStockRecord(record *StockRecord) error {
	return d.db.Save(record).Error
}

// SaveRecordWithMovement commits a stock mutation and its movement in a
// single transaction. Either both persist or neither does.
func (d *Database) SaveRecordWithMovement(record *StockRecord, movement *Movement) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	if err := tx.Save(record).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to save stock record: %w", err)
	}

	if err := tx.Create(movement).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("failed to append movement: %w", err)
	}

	return tx.Commit().Error
}

// SaveRecordsWithMovements commits a batch of stock mutations and their
// movements as one atomic unit. Used by bulk restocks: a failure on any item
// rolls back every item.
func (d *Database) SaveRecordsWithMovements(records []*StockRecord, movements []*Movement) error {
	tx := d.db.Begin()
	if err := tx.Error; err != nil {
		return fmt.Errorf("failed to start transaction: %w", err)
	}
	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, record := range records {
		if err := tx.Save(record).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to save stock record for %s: %w", record.ProductID, err)
		}
	}

	for _, movement := range movements {
		if err := tx.Create(movement).Error; err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to append movement for %s: %w", movement.ProductID, err)
		}
	}

	return tx.Commit().Error
}

// ListLowStock returns records with stock above zero but at or below their
// low stock threshold.
func (d *Database) ListLowStock() ([]StockRecord, error) {
	var records []StockRecord
	if err := d.db.
		Where("current_stock > 0 AND current_stock <= low_stock_threshold").
		Order("current_stock ASC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list low stock records: %w", err)
	}
	return records, nil
}

func (d *Database) ListOutOfStock() ([]StockRecord, error) {
	var records []StockRecord
	if err := d.db.
		Where("current_stock <= 0").
		Order("updated_at DESC").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to list out of stock records: %w", err)
	}
	return records, nil
}

// ListMovements returns the most recent movements for a product, newest first.
func (d *Database) ListMovements(productID string, limit int) ([]Movement, error) {
	var movements []Movement
	if err := d.db.
		Where("product_id = ?", productID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Find(&movements).Error; err != nil {
		return nil, fmt.Errorf("failed to list movements: %w", err)
	}
	return movements, nil
}

// GetRecordsBelowReorderPoint returns records eligible for automatic reorder:
// both reorder settings configured and current stock at or below the point.
func (d *Database) GetRecordsBelowReorderPoint() ([]StockRecord, error) {
	var records []StockRecord
	if err := d.db.
		Where("reorder_point > 0 AND reorder_quantity > 0 AND current_stock <= reorder_point").
		Find(&records).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch records below reorder point: %w", err)
	}
	return records, nil
}

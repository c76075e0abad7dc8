package catalog

import (
	"errors"
	"fmt"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) *Service {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	if err := db.AutoMigrate(&Product{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewService(db)
}

func TestUpsertProductCreateThenUpdate(t *testing.T) {
	svc := newTestService(t)

	product := &Product{ProductID: "PROD_1", Name: "Mug", Category: "homeware", Price: 12.50}
	if err := svc.UpsertProduct(product); err != nil {
		t.Fatalf("create failed: %v", err)
	}

	// Second upsert with the same ID updates in place
	update := &Product{ProductID: "PROD_1", Name: "Large Mug", Category: "homeware", Price: 14.00}
	if err := svc.UpsertProduct(update); err != nil {
		t.Fatalf("update failed: %v", err)
	}

	fetched, err := svc.GetProduct("PROD_1")
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if fetched.Name != "Large Mug" || fetched.Price != 14.00 {
		t.Errorf("update not applied: %+v", fetched)
	}

	products, err := svc.ListProducts()
	if err != nil {
		t.Fatalf("list failed: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("expected 1 product, got %d", len(products))
	}
}

func TestUpsertProductValidation(t *testing.T) {
	svc := newTestService(t)

	if err := svc.UpsertProduct(&Product{Name: "No ID", Price: 5}); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("expected ErrInvalidProduct for missing ID, got %v", err)
	}
	if err := svc.UpsertProduct(&Product{ProductID: "PROD_1", Price: -1}); !errors.Is(err, ErrInvalidProduct) {
		t.Errorf("expected ErrInvalidProduct for negative price, got %v", err)
	}
}

func TestGetProductNotFound(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.GetProduct("PROD_MISSING"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Errorf("expected record not found, got %v", err)
	}
}

package inventory

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

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

	if err := db.AutoMigrate(&StockRecord{}, &Movement{}); err != nil {
		t.Fatalf("failed to migrate test database: %v", err)
	}

	return NewService(db)
}

func TestInitializeIdempotent(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 50); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	// Re-initialising must not reset existing stock
	if err := svc.Initialize("PROD_1", 999); err != nil {
		t.Fatalf("second initialize failed: %v", err)
	}

	stock, err := svc.GetStock("PROD_1")
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if stock != 50 {
		t.Errorf("expected stock 50, got %d", stock)
	}
}

func TestUnknownProductReadsDefault(t *testing.T) {
	svc := newTestService(t)

	stock, err := svc.GetStock("PROD_UNKNOWN")
	if err != nil {
		t.Fatalf("get stock failed: %v", err)
	}
	if stock != DefaultStockLevel {
		t.Errorf("expected default stock %d, got %d", DefaultStockLevel, stock)
	}

	available, err := svc.GetAvailable("PROD_UNKNOWN")
	if err != nil {
		t.Fatalf("get available failed: %v", err)
	}
	if available != DefaultStockLevel {
		t.Errorf("expected default available %d, got %d", DefaultStockLevel, available)
	}

	// Reads alone must not materialise a record
	low, err := svc.IsLowStock("PROD_UNKNOWN")
	if err != nil {
		t.Fatalf("is low stock failed: %v", err)
	}
	if low {
		t.Error("unknown product should not report low stock")
	}
}

func TestReserveReleaseRoundTrip(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	reserved, err := svc.Reserve("PROD_1", 4)
	if err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if !reserved {
		t.Fatal("expected reservation to succeed")
	}

	available, _ := svc.GetAvailable("PROD_1")
	if available != 6 {
		t.Errorf("expected available 6 after reserve, got %d", available)
	}

	// Physical stock unchanged by a hold
	stock, _ := svc.GetStock("PROD_1")
	if stock != 10 {
		t.Errorf("expected stock 10 after reserve, got %d", stock)
	}

	if err := svc.Release("PROD_1", 4); err != nil {
		t.Fatalf("release failed: %v", err)
	}

	available, _ = svc.GetAvailable("PROD_1")
	if available != 10 {
		t.Errorf("expected available 10 after release, got %d", available)
	}
}

func TestReserveInsufficientStock(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 3); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	reserved, err := svc.Reserve("PROD_1", 5)
	if err != nil {
		t.Fatalf("reserve returned error: %v", err)
	}
	if reserved {
		t.Fatal("expected reservation to be declined")
	}

	// A declined reservation leaves no trace in the movement log
	movements, err := svc.ListMovements("PROD_1", 10)
	if err != nil {
		t.Fatalf("list movements failed: %v", err)
	}
	for _, m := range movements {
		if m.Type == TypeReserved {
			t.Errorf("declined reservation appended a movement: %+v", m)
		}
	}
}

func TestReserveInvalidQuantity(t *testing.T) {
	svc := newTestService(t)

	if _, err := svc.Reserve("PROD_1", 0); err != ErrInvalidQuantity {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
	if _, err := svc.Reserve("PROD_1", -2); err != ErrInvalidQuantity {
		t.Errorf("expected ErrInvalidQuantity, got %v", err)
	}
}

func TestReleaseIdempotent(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := svc.Reserve("PROD_1", 2); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// Releasing more than held floors at zero and succeeds
	if err := svc.Release("PROD_1", 5); err != nil {
		t.Fatalf("over-release failed: %v", err)
	}
	// Releasing with nothing held is a no-op success
	if err := svc.Release("PROD_1", 5); err != nil {
		t.Fatalf("repeat release failed: %v", err)
	}

	available, _ := svc.GetAvailable("PROD_1")
	if available != 10 {
		t.Errorf("expected available 10, got %d", available)
	}

	// Only one release movement for the hold that actually existed
	movements, _ := svc.ListMovements("PROD_1", 20)
	releases := 0
	for _, m := range movements {
		if m.Type == TypeReleased {
			releases++
		}
	}
	if releases != 1 {
		t.Errorf("expected 1 release movement, got %d", releases)
	}
}

func TestConfirmSaleMovement(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := svc.Reserve("PROD_1", 3); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.ConfirmSale("PROD_1", 3, "ORD_42"); err != nil {
		t.Fatalf("confirm sale failed: %v", err)
	}

	status, err := svc.GetStockStatus("PROD_1")
	if err != nil {
		t.Fatalf("get status failed: %v", err)
	}
	if status.CurrentStock != 7 {
		t.Errorf("expected stock 7, got %d", status.CurrentStock)
	}
	if status.ReservedStock != 0 {
		t.Errorf("expected reserved 0, got %d", status.ReservedStock)
	}
	if status.AvailableStock != 7 {
		t.Errorf("expected available 7, got %d", status.AvailableStock)
	}

	movements, _ := svc.ListMovements("PROD_1", 10)
	var sale *Movement
	for i := range movements {
		if movements[i].Type == TypeSale {
			sale = &movements[i]
		}
	}
	if sale == nil {
		t.Fatal("expected a sale movement")
	}
	if sale.OrderID != "ORD_42" {
		t.Errorf("expected order ID ORD_42, got %s", sale.OrderID)
	}
	if sale.QuantityDelta != -3 {
		t.Errorf("expected quantity delta -3, got %d", sale.QuantityDelta)
	}
	if sale.StockBefore != 10 || sale.StockAfter != 7 {
		t.Errorf("expected before/after 10/7, got %d/%d", sale.StockBefore, sale.StockAfter)
	}
}

func TestProcessReturnRestoresStock(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := svc.Reserve("PROD_1", 2); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}
	if err := svc.ConfirmSale("PROD_1", 2, "ORD_7"); err != nil {
		t.Fatalf("confirm sale failed: %v", err)
	}
	if err := svc.ProcessReturn("PROD_1", 2, "ORD_7"); err != nil {
		t.Fatalf("process return failed: %v", err)
	}

	stock, _ := svc.GetStock("PROD_1")
	if stock != 10 {
		t.Errorf("expected stock restored to 10, got %d", stock)
	}

	movements, _ := svc.ListMovements("PROD_1", 10)
	var ret *Movement
	for i := range movements {
		if movements[i].Type == TypeReturn {
			ret = &movements[i]
		}
	}
	if ret == nil {
		t.Fatal("expected a return movement")
	}
	if ret.OrderID != "ORD_7" || ret.QuantityDelta != 2 {
		t.Errorf("unexpected return movement: %+v", ret)
	}
}

func TestAdjustFloorsAndClampsReserved(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := svc.Reserve("PROD_1", 6); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// Shrinkage correction larger than remaining stock floors at zero
	if err := svc.Adjust("PROD_1", -25, "warehouse damage", "ops-1"); err != nil {
		t.Fatalf("adjust failed: %v", err)
	}

	status, _ := svc.GetStockStatus("PROD_1")
	if status.CurrentStock != 0 {
		t.Errorf("expected stock 0, got %d", status.CurrentStock)
	}
	if status.ReservedStock != 0 {
		t.Errorf("expected reserved clamped to 0, got %d", status.ReservedStock)
	}
	if !status.OutOfStock {
		t.Error("expected out of stock")
	}

	// Recorded delta reflects the applied change, not the requested one
	movements, _ := svc.ListMovements("PROD_1", 10)
	for _, m := range movements {
		if m.Type == TypeAdjustment && m.QuantityDelta != -10 {
			t.Errorf("expected applied delta -10, got %d", m.QuantityDelta)
		}
	}
}

func TestRestockMovementLog(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 5); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := svc.Restock("PROD_1", 20, "weekly delivery", "ops-2"); err != nil {
		t.Fatalf("restock failed: %v", err)
	}

	stock, _ := svc.GetStock("PROD_1")
	if stock != 25 {
		t.Errorf("expected stock 25, got %d", stock)
	}

	movements, _ := svc.ListMovements("PROD_1", 10)
	if len(movements) == 0 {
		t.Fatal("expected movements")
	}
	m := movements[0]
	if m.Type != TypeRestock {
		t.Errorf("expected restock movement, got %s", m.Type)
	}
	if m.QuantityDelta != 20 || m.StockBefore != 5 || m.StockAfter != 25 {
		t.Errorf("unexpected movement values: %+v", m)
	}
	if m.Note != "weekly delivery" || m.ActorID != "ops-2" {
		t.Errorf("note/actor not recorded: %+v", m)
	}
	if m.MovementID == "" {
		t.Error("expected a movement ID")
	}
}

func TestBulkRestockValidatesBeforeApplying(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 5); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items := []BulkRestockItem{
		{ProductID: "PROD_1", Quantity: 10},
		{ProductID: "PROD_2", Quantity: -3},
	}
	if err := svc.BulkRestock(items, "ops-1"); err != ErrInvalidQuantity {
		t.Fatalf("expected ErrInvalidQuantity, got %v", err)
	}

	// Nothing applied when any item is invalid
	stock, _ := svc.GetStock("PROD_1")
	if stock != 5 {
		t.Errorf("expected stock unchanged at 5, got %d", stock)
	}

	if err := svc.BulkRestock(nil, "ops-1"); err != ErrEmptyBatch {
		t.Errorf("expected ErrEmptyBatch, got %v", err)
	}
}

func TestBulkRestockAppliesAllItems(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_A", 1); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := svc.Initialize("PROD_B", 2); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	items := []BulkRestockItem{
		{ProductID: "PROD_B", Quantity: 8},
		{ProductID: "PROD_A", Quantity: 9},
		{ProductID: "PROD_A", Quantity: 10},
	}
	if err := svc.BulkRestock(items, "ops-1"); err != nil {
		t.Fatalf("bulk restock failed: %v", err)
	}

	stockA, _ := svc.GetStock("PROD_A")
	if stockA != 20 {
		t.Errorf("expected PROD_A stock 20, got %d", stockA)
	}
	stockB, _ := svc.GetStock("PROD_B")
	if stockB != 10 {
		t.Errorf("expected PROD_B stock 10, got %d", stockB)
	}

	// One movement per item, including repeated products
	movements, _ := svc.ListMovements("PROD_A", 10)
	restocks := 0
	for _, m := range movements {
		if m.Type == TypeRestock {
			restocks++
		}
	}
	if restocks != 2 {
		t.Errorf("expected 2 restock movements for PROD_A, got %d", restocks)
	}
}

func TestConcurrentReserveNoOversell(t *testing.T) {
	svc := newTestService(t)

	initialStock := 20
	totalRequests := 50

	if err := svc.Initialize("PROD_HOT", initialStock); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	var granted atomic.Int32
	var declined atomic.Int32
	var wg sync.WaitGroup

	for i := 0; i < totalRequests; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.Reserve("PROD_HOT", 1)
			if err != nil {
				t.Errorf("reserve failed: %v", err)
				return
			}
			if ok {
				granted.Add(1)
			} else {
				declined.Add(1)
			}
		}()
	}
	wg.Wait()

	if granted.Load() != int32(initialStock) {
		t.Errorf("expected %d granted reservations, got %d", initialStock, granted.Load())
	}
	if declined.Load() != int32(totalRequests-initialStock) {
		t.Errorf("expected %d declined, got %d", totalRequests-initialStock, declined.Load())
	}

	available, _ := svc.GetAvailable("PROD_HOT")
	if available != 0 {
		t.Errorf("expected available 0, got %d", available)
	}
	stock, _ := svc.GetStock("PROD_HOT")
	if stock != initialStock {
		t.Errorf("physical stock changed by reservations: got %d", stock)
	}
}

func TestLowStockAndOutOfStockLists(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_OK", 50); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := svc.Initialize("PROD_LOW", 5); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := svc.Initialize("PROD_GONE", 0); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}

	low, err := svc.ListLowStock()
	if err != nil {
		t.Fatalf("list low stock failed: %v", err)
	}
	if len(low) != 1 || low[0].ProductID != "PROD_LOW" {
		t.Errorf("expected only PROD_LOW in low stock list, got %+v", low)
	}

	out, err := svc.ListOutOfStock()
	if err != nil {
		t.Fatalf("list out of stock failed: %v", err)
	}
	if len(out) != 1 || out[0].ProductID != "PROD_GONE" {
		t.Errorf("expected only PROD_GONE in out of stock list, got %+v", out)
	}

	// Out of stock is excluded from low stock
	gone, _ := svc.IsLowStock("PROD_GONE")
	if gone {
		t.Error("out of stock product must not report low stock")
	}
}

func TestThresholdBoundaries(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := svc.SetThresholds("PROD_1", 10); err != nil {
		t.Fatalf("set thresholds failed: %v", err)
	}

	// Stock exactly at the threshold counts as low
	low, _ := svc.IsLowStock("PROD_1")
	if !low {
		t.Error("stock at threshold should be low")
	}

	if err := svc.Restock("PROD_1", 1, "", "ops"); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	low, _ = svc.IsLowStock("PROD_1")
	if low {
		t.Error("stock above threshold should not be low")
	}

	// Threshold changes append no movement
	movements, _ := svc.ListMovements("PROD_1", 10)
	for _, m := range movements {
		if m.Type != TypeRestock {
			t.Errorf("unexpected movement type %s", m.Type)
		}
	}
}

func TestStockEvents(t *testing.T) {
	svc := newTestService(t)

	events := svc.Subscribe()

	if err := svc.Initialize("PROD_1", 10); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if _, err := svc.Reserve("PROD_1", 4); err != nil {
		t.Fatalf("reserve failed: %v", err)
	}

	// Initialize publishes a restock event, the hold a reserved event
	var got []StockEvent
	for i := 0; i < 2; i++ {
		select {
		case e := <-events:
			got = append(got, e)
		case <-time.After(time.Second):
			t.Fatal("timed out waiting for stock event")
		}
	}

	if got[0].Type != TypeRestock || got[0].CurrentStock != 10 {
		t.Errorf("unexpected first event: %+v", got[0])
	}
	if got[1].Type != TypeReserved || got[1].Available != 6 {
		t.Errorf("unexpected second event: %+v", got[1])
	}
}

func TestReorderCandidates(t *testing.T) {
	svc := newTestService(t)

	if err := svc.Initialize("PROD_1", 3); err != nil {
		t.Fatalf("initialize failed: %v", err)
	}
	if err := svc.SetReorderSettings("PROD_1", 5, 25); err != nil {
		t.Fatalf("set reorder settings failed: %v", err)
	}

	records, err := svc.GetDB().GetRecordsBelowReorderPoint()
	if err != nil {
		t.Fatalf("reorder query failed: %v", err)
	}
	if len(records) != 1 || records[0].ProductID != "PROD_1" {
		t.Fatalf("expected PROD_1 below reorder point, got %+v", records)
	}

	// Restocking by the reorder quantity clears the candidate
	if err := svc.Restock("PROD_1", 25, "automatic reorder", "reorder-processor"); err != nil {
		t.Fatalf("restock failed: %v", err)
	}
	records, _ = svc.GetDB().GetRecordsBelowReorderPoint()
	if len(records) != 0 {
		t.Errorf("expected no reorder candidates, got %+v", records)
	}
}

package inventory

import (
	"errors"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/storefront-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be positive")
	ErrEmptyBatch      = errors.New("batch contains no items")
)

// Service is the inventory reservation ledger. All mutations for a single
// product serialise through a per-product lock, so the available-stock check
// and the reservation increment are atomic with respect to concurrent
// reserve/confirm/release calls. Operations on different products proceed in
// parallel.
type Service struct {
	db *Database

	mu    sync.Mutex
	locks map[string]*sync.Mutex

	subMu       sync.Mutex
	subscribers []chan StockEvent
}

func NewService(gormDB *gorm.DB) *Service {
	return &Service{
		db:    NewDatabase(gormDB),
		locks: make(map[string]*sync.Mutex),
	}
}

// lockProduct returns the mutex guarding a single product's ledger entry,
// creating it on first use.
func (s *Service) lockProduct(productID string) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()

	lock, exists := s.locks[productID]
	if !exists {
		lock = &sync.Mutex{}
		s.locks[productID] = lock
	}
	return lock
}

// ensureRecord loads the stock record for a product, materialising one at the
// default stock level if none exists. Callers must hold the product lock.
func (s *Service) ensureRecord(productID string) (*StockRecord, error) {
	record, err := s.db.GetStockRecord(productID)
	if err != nil {
		return nil, err
	}
	if record != nil {
		return record, nil
	}

	record = &StockRecord{
		ProductID:         productID,
		CurrentStock:      DefaultStockLevel,
		LowStockThreshold: DefaultLowStockThreshold,
	}
	if err := s.db.CreateStockRecord(record); err != nil {
		return nil, err
	}

	log.Info().
		Str("product_id", productID).
		Int("current_stock", DefaultStockLevel).
		Msg("materialised default stock record")

	return record, nil
}

func newMovement(record *StockRecord, movementType string, delta, stockBefore int) *Movement {
	return &Movement{
		MovementID:    "MOV_" + uuid.New().String(),
		ProductID:     record.ProductID,
		Type:          movementType,
		QuantityDelta: delta,
		StockBefore:   stockBefore,
		StockAfter:    record.CurrentStock,
		CreatedAt:     time.Now(),
	}
}

// publish fans a stock event out to all subscribers without blocking. A
// subscriber that has fallen behind misses the event; the ledger remains the
// source of truth.
func (s *Service) publish(record *StockRecord, movementType string) {
	event := StockEvent{
		ProductID:    record.ProductID,
		Type:         movementType,
		CurrentStock: record.CurrentStock,
		Available:    record.Available(),
		At:           time.Now(),
	}

	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

// Subscribe returns a channel receiving stock events for every committed
// mutation. Slow consumers drop events rather than block the ledger.
func (s *Service) Subscribe() <-chan StockEvent {
	ch := make(chan StockEvent, 16)
	s.subMu.Lock()
	s.subscribers = append(s.subscribers, ch)
	s.subMu.Unlock()
	return ch
}

// GetStock returns the current physical stock for a product. A missing record
// reads as the default stock level.
func (s *Service) GetStock(productID string) (int, error) {
	record, err := s.db.GetStockRecord(productID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return DefaultStockLevel, nil
	}
	return record.CurrentStock, nil
}

// GetAvailable returns stock not held by reservations, floored at zero.
func (s *Service) GetAvailable(productID string) (int, error) {
	record, err := s.db.GetStockRecord(productID)
	if err != nil {
		return 0, err
	}
	if record == nil {
		return DefaultStockLevel, nil
	}
	return record.Available(), nil
}

func (s *Service) IsLowStock(productID string) (bool, error) {
	record, err := s.db.GetStockRecord(productID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return record.CurrentStock > 0 && record.CurrentStock <= record.LowStockThreshold, nil
}

func (s *Service) IsOutOfStock(productID string) (bool, error) {
	record, err := s.db.GetStockRecord(productID)
	if err != nil {
		return false, err
	}
	if record == nil {
		return false, nil
	}
	return record.CurrentStock <= 0, nil
}

// GetStockStatus returns the combined read model for storefront callers.
func (s *Service) GetStockStatus(productID string) (*StockStatus, error) {
	record, err := s.db.GetStockRecord(productID)
	if err != nil {
		return nil, err
	}
	if record == nil {
		return &StockStatus{
			ProductID:      productID,
			CurrentStock:   DefaultStockLevel,
			AvailableStock: DefaultStockLevel,
		}, nil
	}
	return &StockStatus{
		ProductID:      record.ProductID,
		CurrentStock:   record.CurrentStock,
		ReservedStock:  record.ReservedStock,
		AvailableStock: record.Available(),
		LowStock:       record.CurrentStock > 0 && record.CurrentStock <= record.LowStockThreshold,
		OutOfStock:     record.CurrentStock <= 0,
	}, nil
}

// Initialize creates a stock record with the given starting quantity. It is
// idempotent: an existing record is left untouched, never reset.
func (s *Service) Initialize(productID string, initialStock int) error {
	if initialStock < 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	existing, err := s.db.GetStockRecord(productID)
	if err != nil {
		return err
	}
	if existing != nil {
		log.Debug().
			Str("product_id", productID).
			Msg("stock record already initialised, leaving stock untouched")
		return nil
	}

	record := &StockRecord{
		ProductID:         productID,
		CurrentStock:      initialStock,
		LowStockThreshold: DefaultLowStockThreshold,
	}
	if err := s.db.CreateStockRecord(record); err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID).
		Int("initial_stock", initialStock).
		Msg("stock record initialised")

	s.publish(record, TypeRestock)
	return nil
}

// Restock adds stock and appends a restock movement in the same transaction.
func (s *Service) Restock(productID string, qty int, note, actorID string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	before := record.CurrentStock
	now := time.Now()
	record.CurrentStock += qty
	record.LastRestockedAt = &now

	movement := newMovement(record, TypeRestock, qty, before)
	movement.Note = note
	movement.ActorID = actorID

	if err := s.db.SaveRecordWithMovement(record, movement); err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID).
		Int("quantity", qty).
		Int("stock_before", before).
		Int("stock_after", record.CurrentStock).
		Msg("stock replenished")

	s.publish(record, TypeRestock)
	return nil
}

// Adjust applies a signed correction (damage, miscounts), flooring stock at
// zero. Reserved stock is clamped down if the correction undercuts it, so the
// reserved <= current invariant holds.
func (s *Service) Adjust(productID string, delta int, note, actorID string) error {
	if delta == 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	before := record.CurrentStock
	record.CurrentStock += delta
	if record.CurrentStock < 0 {
		record.CurrentStock = 0
	}
	if record.ReservedStock > record.CurrentStock {
		record.ReservedStock = record.CurrentStock
	}

	movement := newMovement(record, TypeAdjustment, record.CurrentStock-before, before)
	movement.Note = note
	movement.ActorID = actorID

	if err := s.db.SaveRecordWithMovement(record, movement); err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID).
		Int("delta", delta).
		Int("stock_before", before).
		Int("stock_after", record.CurrentStock).
		Msg("stock adjusted")

	s.publish(record, TypeAdjustment)
	return nil
}

// Reserve places a hold against available stock. It returns false, with no
// state change and no movement, when availability is short; errors are
// reserved for storage faults.
func (s *Service) Reserve(productID string, qty int) (bool, error) {
	if qty <= 0 {
		return false, ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return false, err
	}

	if record.Available() < qty {
		log.Debug().
			Str("product_id", productID).
			Int("requested", qty).
			Int("available", record.Available()).
			Msg("reservation declined, insufficient stock")
		return false, nil
	}

	before := record.CurrentStock
	record.ReservedStock += qty

	movement := newMovement(record, TypeReserved, -qty, before)
	if err := s.db.SaveRecordWithMovement(record, movement); err != nil {
		return false, err
	}

	log.Info().
		Str("product_id", productID).
		Int("quantity", qty).
		Int("reserved_stock", record.ReservedStock).
		Int("available", record.Available()).
		Msg("stock reserved")

	s.publish(record, TypeReserved)
	return true, nil
}

// Release returns reserved stock to availability. It is idempotent: releasing
// more than is held, or releasing after the hold is gone, floors at zero and
// succeeds. No movement is appended when there was nothing to release.
func (s *Service) Release(productID string, qty int) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	released := qty
	if released > record.ReservedStock {
		released = record.ReservedStock
	}
	if released == 0 {
		log.Debug().
			Str("product_id", productID).
			Int("requested", qty).
			Msg("nothing to release")
		return nil
	}

	before := record.CurrentStock
	record.ReservedStock -= released

	movement := newMovement(record, TypeReleased, released, before)
	if err := s.db.SaveRecordWithMovement(record, movement); err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID).
		Int("released", released).
		Int("reserved_stock", record.ReservedStock).
		Msg("reservation released")

	s.publish(record, TypeReleased)
	return nil
}

// ConfirmSale removes sold stock and its reservation together, appending a
// sale movement carrying the order ID. This is the only operation that
// permanently removes stock tied to an order.
func (s *Service) ConfirmSale(productID string, qty int, orderID string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	before := record.CurrentStock
	now := time.Now()
	record.CurrentStock -= qty
	if record.CurrentStock < 0 {
		record.CurrentStock = 0
	}
	record.ReservedStock -= qty
	if record.ReservedStock < 0 {
		record.ReservedStock = 0
	}
	record.LastSoldAt = &now

	movement := newMovement(record, TypeSale, -(before - record.CurrentStock), before)
	movement.OrderID = orderID

	if err := s.db.SaveRecordWithMovement(record, movement); err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID).
		Str("order_id", orderID).
		Int("quantity", qty).
		Int("stock_before", before).
		Int("stock_after", record.CurrentStock).
		Msg("sale confirmed")

	s.publish(record, TypeSale)
	return nil
}

// ProcessReturn puts returned goods back into sellable stock, appending a
// return movement carrying the originating order ID.
func (s *Service) ProcessReturn(productID string, qty int, orderID string) error {
	if qty <= 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	before := record.CurrentStock
	record.CurrentStock += qty

	movement := newMovement(record, TypeReturn, qty, before)
	movement.OrderID = orderID

	if err := s.db.SaveRecordWithMovement(record, movement); err != nil {
		return err
	}

	log.Info().
		Str("product_id", productID).
		Str("order_id", orderID).
		Int("quantity", qty).
		Int("stock_after", record.CurrentStock).
		Msg("return processed")

	s.publish(record, TypeReturn)
	return nil
}

// BulkRestock applies a batch of restocks as one atomic unit. Product locks
// are taken in sorted order so concurrent batches cannot deadlock; a failure
// on any item leaves every item's stock unchanged.
func (s *Service) BulkRestock(items []BulkRestockItem, actorID string) error {
	if len(items) == 0 {
		return ErrEmptyBatch
	}
	for _, item := range items {
		if item.Quantity <= 0 {
			return ErrInvalidQuantity
		}
	}

	// Deduplicate and sort product IDs for a stable lock order.
	productIDs := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item.ProductID] {
			seen[item.ProductID] = true
			productIDs = append(productIDs, item.ProductID)
		}
	}
	sort.Strings(productIDs)

	for _, id := range productIDs {
		lock := s.lockProduct(id)
		lock.Lock()
		defer lock.Unlock()
	}

	records := make(map[string]*StockRecord, len(productIDs))
	for _, id := range productIDs {
		record, err := s.ensureRecord(id)
		if err != nil {
			return err
		}
		records[id] = record
	}

	now := time.Now()
	batchRecords := make([]*StockRecord, 0, len(productIDs))
	movements := make([]*Movement, 0, len(items))
	for _, item := range items {
		record := records[item.ProductID]
		before := record.CurrentStock
		record.CurrentStock += item.Quantity
		record.LastRestockedAt = &now

		movement := newMovement(record, TypeRestock, item.Quantity, before)
		movement.ActorID = actorID
		movements = append(movements, movement)
	}
	for _, id := range productIDs {
		batchRecords = append(batchRecords, records[id])
	}

	if err := s.db.SaveRecordsWithMovements(batchRecords, movements); err != nil {
		return err
	}

	log.Info().
		Int("items", len(items)).
		Int("products", len(productIDs)).
		Msg("bulk restock applied")

	for _, id := range productIDs {
		s.publish(records[id], TypeRestock)
	}
	return nil
}

// SetThresholds updates the low stock threshold. Metadata only, no movement.
func (s *Service) SetThresholds(productID string, lowStockThreshold int) error {
	if lowStockThreshold < 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	record.LowStockThreshold = lowStockThreshold
	return s.db.UpdateStockRecord(record)
}

// SetReorderSettings updates the automatic reorder point and quantity.
// Metadata only, no movement.
func (s *Service) SetReorderSettings(productID string, reorderPoint, reorderQuantity int) error {
	if reorderPoint < 0 || reorderQuantity < 0 {
		return ErrInvalidQuantity
	}

	lock := s.lockProduct(productID)
	lock.Lock()
	defer lock.Unlock()

	record, err := s.ensureRecord(productID)
	if err != nil {
		return err
	}

	record.ReorderPoint = reorderPoint
	record.ReorderQuantity = reorderQuantity
	return s.db.UpdateStockRecord(record)
}

func (s *Service) ListLowStock() ([]StockRecord, error) {
	return s.db.ListLowStock()
}

func (s *Service) ListOutOfStock() ([]StockRecord, error) {
	return s.db.ListOutOfStock()
}

func (s *Service) ListMovements(productID string, limit int) ([]Movement, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.db.ListMovements(productID, limit)
}

// GetDB exposes the database layer for the reorder processor.
func (s *Service) GetDB() *Database {
	return s.db
}

// GinHandlers contains HTTP handlers for inventory endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// GetStockStatusHandler handles GET requests for a product's stock status
// URL parameter: product_id
func (h *GinHandlers) GetStockStatusHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		status, err := h.service.GetStockStatus(productID)
		response.Handle(c, status, err)
	}
}

// ReserveHandler handles POST requests to place a hold against available
// stock. An insufficient-stock outcome is a successful response with
// reserved=false, not an HTTP error.
func (h *GinHandlers) ReserveHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			Quantity int `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		reserved, err := h.service.Reserve(productID, request.Quantity)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		available, err := h.service.GetAvailable(productID)
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, gin.H{
			"reserved":  reserved,
			"available": available,
		})
	}
}

// ReleaseHandler handles POST requests to release a reservation. Safe to call
// repeatedly; releasing an expired hold is a no-op success.
func (h *GinHandlers) ReleaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			Quantity int `json:"quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.Release(productID, request.Quantity)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, gin.H{"released": true})
	}
}

// ConfirmSaleHandler handles POST requests to confirm a sale after payment
// success. Request body carries the quantity and order ID.
func (h *GinHandlers) ConfirmSaleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			Quantity int    `json:"quantity" binding:"required"`
			OrderID  string `json:"order_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.ConfirmSale(productID, request.Quantity, request.OrderID)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			response.InternalError(c, err.Error())
			return
		}

		response.Success(c, gin.H{"confirmed": true, "order_id": request.OrderID})
	}
}

// ReturnHandler handles POST requests to restock returned goods. Request body
// carries the quantity and the originating order ID.
func (h *GinHandlers) ReturnHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			Quantity int    `json:"quantity" binding:"required"`
			OrderID  string `json:"order_id" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.ProcessReturn(productID, request.Quantity, request.OrderID)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{"returned": request.Quantity, "order_id": request.OrderID}, err)
	}
}

// InitializeHandler handles POST requests to create a stock record for a new
// product. Idempotent: re-initialising never resets stock.
func (h *GinHandlers) InitializeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			InitialStock *int `json:"initial_stock"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		initialStock := DefaultStockLevel
		if request.InitialStock != nil {
			initialStock = *request.InitialStock
		}

		err := h.service.Initialize(productID, initialStock)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{"product_id": productID, "initial_stock": initialStock}, err)
	}
}

// RestockHandler handles POST requests to add stock to a product
func (h *GinHandlers) RestockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			Quantity int    `json:"quantity" binding:"required"`
			Note     string `json:"note"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.Restock(productID, request.Quantity, request.Note, c.GetString("clientID"))
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{"restocked": request.Quantity}, err)
	}
}

// AdjustHandler handles POST requests for signed stock corrections
func (h *GinHandlers) AdjustHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			Delta int    `json:"delta" binding:"required"`
			Note  string `json:"note"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.Adjust(productID, request.Delta, request.Note, c.GetString("clientID"))
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{"delta": request.Delta}, err)
	}
}

// BulkRestockHandler handles POST requests to restock several products as a
// single all-or-nothing batch
func (h *GinHandlers) BulkRestockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var request struct {
			Items []BulkRestockItem `json:"items" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.BulkRestock(request.Items, c.GetString("clientID"))
		if errors.Is(err, ErrInvalidQuantity) || errors.Is(err, ErrEmptyBatch) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{"items": len(request.Items)}, err)
	}
}

// SetThresholdsHandler handles PUT requests for low stock threshold updates
func (h *GinHandlers) SetThresholdsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			LowStockThreshold int `json:"low_stock_threshold" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.SetThresholds(productID, request.LowStockThreshold)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{"low_stock_threshold": request.LowStockThreshold}, err)
	}
}

// SetReorderSettingsHandler handles PUT requests for reorder point updates
func (h *GinHandlers) SetReorderSettingsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		var request struct {
			ReorderPoint    int `json:"reorder_point" binding:"required"`
			ReorderQuantity int `json:"reorder_quantity" binding:"required"`
		}
		if err := c.ShouldBindJSON(&request); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.SetReorderSettings(productID, request.ReorderPoint, request.ReorderQuantity)
		if errors.Is(err, ErrInvalidQuantity) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, gin.H{
			"reorder_point":    request.ReorderPoint,
			"reorder_quantity": request.ReorderQuantity,
		}, err)
	}
}

// ListLowStockHandler handles GET requests for products at or below their low
// stock threshold
func (h *GinHandlers) ListLowStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := h.service.ListLowStock()
		response.Handle(c, records, err)
	}
}

// ListOutOfStockHandler handles GET requests for products with no stock left
func (h *GinHandlers) ListOutOfStockHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		records, err := h.service.ListOutOfStock()
		response.Handle(c, records, err)
	}
}

// ListMovementsHandler handles GET requests for a product's movement history
// Query parameter: limit (default 100)
func (h *GinHandlers) ListMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		limit := 0
		if raw := c.Query("limit"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil {
				response.BadRequest(c, "limit must be an integer")
				return
			}
			limit = parsed
		}

		movements, err := h.service.ListMovements(productID, limit)
		response.Handle(c, movements, err)
	}
}

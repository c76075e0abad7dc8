package pricing

import (
	"errors"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/ksred/storefront-api/internal/catalog"
	"github.com/ksred/storefront-api/internal/inventory"
	"github.com/ksred/storefront-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Service ties the rule store and engine to the catalog (base prices) and
// the inventory ledger (live stock signal).
type Service struct {
	store     *Store
	engine    *Engine
	catalog   *catalog.Service
	inventory *inventory.Service
}

func NewService(gormDB *gorm.DB, cache *RuleCache, catalogService *catalog.Service, inventoryService *inventory.Service) *Service {
	store := NewStore(gormDB, cache)
	return &Service{
		store:     store,
		engine:    NewEngine(store),
		catalog:   catalogService,
		inventory: inventoryService,
	}
}

// GetStore exposes the rule store for admin CRUD handlers.
func (s *Service) GetStore() *Store {
	return s.store
}

// QuoteProduct resolves the base price and category from the catalog, fills
// the stock signal from the ledger when the caller did not supply it, and
// evaluates the rule set.
func (s *Service) QuoteProduct(productID string, quantity int, stockLevel, viewerCount *int) (*PriceQuote, error) {
	product, err := s.catalog.GetProduct(productID)
	if err != nil {
		return nil, err
	}

	if stockLevel == nil {
		stock, err := s.inventory.GetStock(productID)
		if err != nil {
			// A ledger read fault must not take price display down with it;
			// stock-gated rules simply will not match.
			log.Warn().Err(err).Str("product_id", productID).Msg("stock signal unavailable for quote")
		} else {
			stockLevel = &stock
		}
	}

	return s.engine.GetPrice(productID, product.Price, product.Category, quantity, stockLevel, viewerCount)
}

// GinHandlers contains HTTP handlers for pricing endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

func parseOptionalInt(c *gin.Context, name string) (*int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		response.BadRequest(c, name+" must be an integer")
		return nil, false
	}
	return &value, true
}

// GetQuoteHandler handles GET requests for a product's effective price
// URL parameter: product_id
// Query parameters: quantity (default 1), stock, viewers (both optional)
func (h *GinHandlers) GetQuoteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		productID := c.Param("product_id")

		quantity := 1
		if raw := c.Query("quantity"); raw != "" {
			parsed, err := strconv.Atoi(raw)
			if err != nil || parsed < 1 {
				response.BadRequest(c, "quantity must be a positive integer")
				return
			}
			quantity = parsed
		}

		stockLevel, ok := parseOptionalInt(c, "stock")
		if !ok {
			return
		}
		viewerCount, ok := parseOptionalInt(c, "viewers")
		if !ok {
			return
		}

		quote, err := h.service.QuoteProduct(productID, quantity, stockLevel, viewerCount)
		response.Handle(c, quote, err)
	}
}

// CreateRuleHandler handles POST requests to create pricing rules
func (h *GinHandlers) CreateRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var rule PricingRule
		if err := c.ShouldBindJSON(&rule); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.store.CreateRule(&rule)
		if errors.Is(err, ErrInvalidRule) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, rule, err)
	}
}

// UpdateRuleHandler handles PATCH requests applying a partial rule update
// URL parameter: rule_id
func (h *GinHandlers) UpdateRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleID := c.Param("rule_id")

		var patch RulePatch
		if err := c.ShouldBindJSON(&patch); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		rule, err := h.service.store.UpdateRule(ruleID, &patch)
		if errors.Is(err, ErrInvalidRule) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, rule, err)
	}
}

// DeleteRuleHandler handles DELETE requests for pricing rules
func (h *GinHandlers) DeleteRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleID := c.Param("rule_id")

		err := h.service.store.DeleteRule(ruleID)
		response.Handle(c, gin.H{"rule_id": ruleID, "deleted": err == nil}, err)
	}
}

// ToggleRuleHandler handles POST requests flipping a rule's active flag
func (h *GinHandlers) ToggleRuleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ruleID := c.Param("rule_id")

		rule, err := h.service.store.ToggleRule(ruleID)
		response.Handle(c, rule, err)
	}
}

// ListRulesHandler handles GET requests for pricing rules. With
// active_only=true only active rules matching the optional product_id and
// category query filters are returned.
func (h *GinHandlers) ListRulesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Query("active_only") == "true" {
			rules, err := h.service.store.ListActiveRules(c.Query("product_id"), c.Query("category"))
			response.Handle(c, rules, err)
			return
		}

		rules, err := h.service.store.ListRules()
		response.Handle(c, rules, err)
	}
}

package catalog

import (
	"errors"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/ksred/storefront-api/pkg/response"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

var ErrInvalidProduct = errors.New("invalid product")

// Service is a minimal product catalog. It exists so price quoting has a base
// price source; the storefront owns the full product content.
type Service struct {
	db *gorm.DB
}

func NewService(db *gorm.DB) *Service {
	return &Service{db: db}
}

// UpsertProduct creates a product or updates its metadata in place.
func (s *Service) UpsertProduct(product *Product) error {
	if product.ProductID == "" {
		return fmt.Errorf("%w: product ID is required", ErrInvalidProduct)
	}
	if product.Price < 0 {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidProduct)
	}

	var existing Product
	err := s.db.Where("product_id = ?", product.ProductID).First(&existing).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("failed to fetch product: %w", err)
		}
		if err := s.db.Create(product).Error; err != nil {
			return fmt.Errorf("failed to create product: %w", err)
		}
		log.Info().Str("product_id", product.ProductID).Msg("product created")
		return nil
	}

	existing.Name = product.Name
	existing.Category = product.Category
	existing.Price = product.Price
	if err := s.db.Save(&existing).Error; err != nil {
		return fmt.Errorf("failed to update product: %w", err)
	}
	*product = existing

	log.Info().Str("product_id", product.ProductID).Msg("product updated")
	return nil
}

// GetProduct retrieves a product by ID.
func (s *Service) GetProduct(productID string) (*Product, error) {
	var product Product
	if err := s.db.Where("product_id = ?", productID).First(&product).Error; err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *Service) ListProducts() ([]Product, error) {
	var products []Product
	if err := s.db.Order("product_id ASC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return products, nil
}

// GinHandlers contains HTTP handlers for catalog endpoints
type GinHandlers struct {
	service *Service
}

func NewGinHandlers(service *Service) *GinHandlers {
	return &GinHandlers{
		service: service,
	}
}

// UpsertProductHandler handles POST requests to create or update a product
func (h *GinHandlers) UpsertProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var product Product
		if err := c.ShouldBindJSON(&product); err != nil {
			response.BadRequest(c, err.Error())
			return
		}

		err := h.service.UpsertProduct(&product)
		if errors.Is(err, ErrInvalidProduct) {
			response.BadRequest(c, err.Error())
			return
		}
		response.Handle(c, product, err)
	}
}

// GetProductHandler handles GET requests for a single product
func (h *GinHandlers) GetProductHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		product, err := h.service.GetProduct(c.Param("product_id"))
		response.Handle(c, product, err)
	}
}

// ListProductsHandler handles GET requests for the full catalog
func (h *GinHandlers) ListProductsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		products, err := h.service.ListProducts()
		response.Handle(c, products, err)
	}
}

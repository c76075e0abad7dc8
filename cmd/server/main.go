package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	zlog "github.com/rs/zerolog/log"

	"github.com/ksred/storefront-api/internal/auth"
	"github.com/ksred/storefront-api/internal/catalog"
	"github.com/ksred/storefront-api/internal/database"
	"github.com/ksred/storefront-api/internal/inventory"
	"github.com/ksred/storefront-api/internal/pricing"
	"github.com/ksred/storefront-api/pkg/middleware"

	"github.com/gin-gonic/gin"
)

// init configures the application logging based on environment settings
// In development mode, it enables pretty printing with timestamps
// Debug logging can be enabled via DEBUG environment variable
func init() {
	// Configure pretty logging for development
	if os.Getenv("ENV") != "production" {
		output := zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		}
		zlog.Logger = zerolog.New(output).With().Timestamp().Logger()
	}

	// Set global log level
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if os.Getenv("DEBUG") == "true" {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
}

// main initializes and runs the storefront API server with graceful shutdown
// support. It wires the database, the optional Redis rule cache, all domain
// services and their routes, and the background reorder processor.
func main() {
	// Load .env if present, environment variables take precedence
	if err := godotenv.Load(); err != nil {
		zlog.Debug().Msg("No .env file found, using environment")
	}

	// Initialize database
	db, err := database.NewDatabase()
	if err != nil {
		zlog.Fatal().Err(err).Msg("Failed to initialize database")
	}

	// Optional Redis cache for active pricing rules. The engine works
	// without it, every lookup just hits the database.
	var ruleCache *pricing.RuleCache
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		rdb := redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: os.Getenv("REDIS_PASSWORD"),
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			zlog.Warn().Err(err).Str("addr", addr).Msg("Redis unreachable, rule cache disabled")
		} else {
			ruleCache = pricing.NewRuleCache(rdb)
			zlog.Info().Str("addr", addr).Msg("Rule cache enabled")
		}
	}

	// Initialize router
	router := gin.Default()

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "storefront-secret-key"
	}

	// Initialize services and handlers
	authService := auth.NewService(jwtSecret)
	authHandlers := auth.NewGinHandlers(authService)
	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	authService.RegisterAPICredentials(auth.TestAdminAPIKey, auth.TestAdminAPISecret, auth.RoleStorefront, auth.RoleAdmin)

	catalogService := catalog.NewService(db)
	catalogHandlers := catalog.NewGinHandlers(catalogService)

	inventoryService := inventory.NewService(db)
	inventoryHandlers := inventory.NewGinHandlers(inventoryService)

	pricingService := pricing.NewService(db, ruleCache, catalogService, inventoryService)
	pricingHandlers := pricing.NewGinHandlers(pricingService)

	// Create and start reorder processor
	reorderProcessor := inventory.NewReorderProcessor(inventoryService)
	processorCtx, processorCancel := context.WithCancel(context.Background())
	defer processorCancel()

	go reorderProcessor.Start(processorCtx)

	// Setup middleware
	router.Use(middleware.RateLimit())

	// Setup API routes
	setupRoutes(router, jwtSecret, authHandlers, catalogHandlers, inventoryHandlers, pricingHandlers)

	// Get port from env otherwise it's 8080
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	// Create server
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: router,
	}

	// Graceful shutdown setup
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zlog.Fatal().Err(err).Msg("listen")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	zlog.Info().Msg("Shutting down server...")

	// Give outstanding operations 5 seconds to complete
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		zlog.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	zlog.Info().Msg("Server exiting")
}

// setupRoutes configures all API endpoints and their handlers
// It groups routes by functionality and applies appropriate middleware:
// - Auth routes: Public endpoints for authentication
// - Storefront routes: Protected by JWT authentication, used by the shop frontend
// - Admin routes: Protected by JWT authentication plus the admin role
func setupRoutes(
	router *gin.Engine,
	jwtSecret string,
	authHandlers *auth.GinHandlers,
	catalogHandlers *catalog.GinHandlers,
	inventoryHandlers *inventory.GinHandlers,
	pricingHandlers *pricing.GinHandlers,
) {
	v1 := router.Group("/api/v1")
	{
		// Auth routes
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/token", authHandlers.GenerateTokenHandler())
		}

		// Storefront-facing inventory routes
		inv := v1.Group("/inventory")
		inv.Use(middleware.JWTAuth(jwtSecret))
		{
			inv.GET("/:product_id", inventoryHandlers.GetStockStatusHandler())
			inv.POST("/:product_id/reserve", inventoryHandlers.ReserveHandler())
			inv.POST("/:product_id/release", inventoryHandlers.ReleaseHandler())
			inv.POST("/:product_id/confirm", inventoryHandlers.ConfirmSaleHandler())
			inv.POST("/:product_id/return", inventoryHandlers.ReturnHandler())
		}

		// Storefront-facing pricing routes
		price := v1.Group("/price")
		price.Use(middleware.JWTAuth(jwtSecret))
		{
			price.GET("/:product_id", pricingHandlers.GetQuoteHandler())
		}

		// Admin routes for catalog, stock management and rule management
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(jwtSecret))
		{
			admin.POST("/products", catalogHandlers.UpsertProductHandler())
			admin.GET("/products", catalogHandlers.ListProductsHandler())
			admin.GET("/products/:product_id", catalogHandlers.GetProductHandler())

			admin.POST("/inventory/:product_id/initialize", inventoryHandlers.InitializeHandler())
			admin.POST("/inventory/:product_id/restock", inventoryHandlers.RestockHandler())
			admin.POST("/inventory/:product_id/adjust", inventoryHandlers.AdjustHandler())
			admin.POST("/inventory/restock-batch", inventoryHandlers.BulkRestockHandler())
			admin.PUT("/inventory/:product_id/thresholds", inventoryHandlers.SetThresholdsHandler())
			admin.PUT("/inventory/:product_id/reorder", inventoryHandlers.SetReorderSettingsHandler())
			admin.GET("/inventory/low-stock", inventoryHandlers.ListLowStockHandler())
			admin.GET("/inventory/out-of-stock", inventoryHandlers.ListOutOfStockHandler())
			admin.GET("/inventory/:product_id/movements", inventoryHandlers.ListMovementsHandler())

			admin.POST("/rules", pricingHandlers.CreateRuleHandler())
			admin.GET("/rules", pricingHandlers.ListRulesHandler())
			admin.PATCH("/rules/:rule_id", pricingHandlers.UpdateRuleHandler())
			admin.DELETE("/rules/:rule_id", pricingHandlers.DeleteRuleHandler())
			admin.POST("/rules/:rule_id/toggle", pricingHandlers.ToggleRuleHandler())
		}
	}
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/ksred/storefront-api/internal/auth"
	"github.com/ksred/storefront-api/internal/catalog"
	"github.com/ksred/storefront-api/internal/database"
	"github.com/ksred/storefront-api/internal/inventory"
	"github.com/ksred/storefront-api/internal/pricing"
	"github.com/ksred/storefront-api/pkg/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	minShoppers   = 20
	maxShoppers   = 120
	numWorkers    = 5
	initialStock  = 40
	serverAddress = "http://localhost:8080"
)

// simProduct describes a catalog entry seeded before the shopping run
type simProduct struct {
	id       string
	name     string
	category string
	price    float64
}

var products = []simProduct{
	{"PROD_TSHIRT", "Classic T-Shirt", "apparel", 19.99},
	{"PROD_HOODIE", "Zip Hoodie", "apparel", 59.99},
	{"PROD_MUG", "Ceramic Mug", "homeware", 12.50},
	{"PROD_POSTER", "Framed Poster", "homeware", 34.00},
	{"PROD_SNEAKER", "Canvas Sneaker", "footwear", 89.99},
}

// init configures the logger for the simulation with pretty printing and timestamp
func init() {
	// Configure pretty logging
	output := zerolog.ConsoleWriter{
		Out:        os.Stdout,
		TimeFormat: time.RFC3339,
	}
	log.Logger = zerolog.New(output).With().Timestamp().Logger()
}

// routeStats tracks performance statistics for an API endpoint
type routeStats struct {
	name       string
	durations  []time.Duration
	totalCalls int
	failures   int
}

// addDuration records a new duration measurement for the route
func (rs *routeStats) addDuration(d time.Duration) {
	rs.durations = append(rs.durations, d)
	rs.totalCalls++
}

// calculate computes performance statistics from recorded durations
// Returns min, max, mean, median, 95th percentile, and 99th percentile durations
func (rs *routeStats) calculate() (min, max, mean, median, p95, p99 time.Duration) {
	if len(rs.durations) == 0 {
		return 0, 0, 0, 0, 0, 0
	}

	// Sort durations for percentile calculations
	sort.Slice(rs.durations, func(i, j int) bool {
		return rs.durations[i] < rs.durations[j]
	})

	min = rs.durations[0]
	max = rs.durations[len(rs.durations)-1]

	// Calculate mean
	var sum time.Duration
	for _, d := range rs.durations {
		sum += d
	}
	mean = sum / time.Duration(len(rs.durations))

	// Calculate median
	median = rs.durations[len(rs.durations)/2]

	// Calculate percentiles
	p95idx := int(math.Ceil(float64(len(rs.durations))*0.95)) - 1
	p99idx := int(math.Ceil(float64(len(rs.durations))*0.99)) - 1
	p95 = rs.durations[p95idx]
	p99 = rs.durations[p99idx]

	return
}

// simulationClient handles HTTP communication with the storefront API
// It holds a storefront token for shopper calls and an admin token for setup
type simulationClient struct {
	baseURL    string
	authToken  string
	adminToken string
	client     *http.Client
	mu         sync.Mutex
	stats      map[string]*routeStats
}

// newSimulationClient creates and initializes a new simulation client
// It authenticates with both credential sets and prepares performance tracking
func newSimulationClient() (*simulationClient, error) {
	// Create HTTP client with timeout
	client := &http.Client{
		Timeout: 10 * time.Second,
	}

	sc := &simulationClient{
		baseURL: serverAddress,
		client:  client,
		stats: map[string]*routeStats{
			"auth":    {name: "Authentication"},
			"quote":   {name: "Price Quote"},
			"stock":   {name: "Stock Status"},
			"reserve": {name: "Reserve Stock"},
			"release": {name: "Release Stock"},
			"confirm": {name: "Confirm Sale"},
		},
	}

	// Get storefront and admin tokens
	token, err := sc.authenticate(auth.TestAPIKey, auth.TestAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate: %w", err)
	}
	sc.authToken = token

	adminToken, err := sc.authenticate(auth.TestAdminAPIKey, auth.TestAdminAPISecret)
	if err != nil {
		return nil, fmt.Errorf("failed to authenticate admin: %w", err)
	}
	sc.adminToken = adminToken

	return sc, nil
}

// record adds a duration sample for the named route, safe for concurrent use
func (sc *simulationClient) record(route string, start time.Time) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.stats[route].addDuration(time.Since(start))
}

// authenticate performs API authentication and returns a JWT token
func (sc *simulationClient) authenticate(apiKey, apiSecret string) (string, error) {
	start := time.Now()
	defer sc.record("auth", start)

	credentials := map[string]string{
		"api_key":    apiKey,
		"api_secret": apiSecret,
	}

	body, err := json.Marshal(credentials)
	if err != nil {
		return "", err
	}

	resp, err := sc.client.Post(
		fmt.Sprintf("%s/api/v1/auth/token", sc.baseURL),
		"application/json",
		bytes.NewBuffer(body),
	)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return "", fmt.Errorf("authentication failed with status: %d", resp.StatusCode)
	}

	var result struct {
		Token string `json:"jwt_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", err
	}

	return result.Token, nil
}

// doJSON sends an authenticated request and decodes the standard response
// envelope into out when out is non-nil
func (sc *simulationClient) doJSON(method, url, token string, payload, out interface{}) error {
	var reqBody io.Reader
	if payload != nil {
		body, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		reqBody = bytes.NewBuffer(body)
	}

	req, err := http.NewRequest(method, url, reqBody)
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
	req.Header.Set("Content-Type", "application/json")

	resp, err := sc.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	log.Debug().Str("url", url).Str("response", string(respBody)).Msg("API response")

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("%s %s failed with status %d: %s", method, url, resp.StatusCode, string(respBody))
	}

	if out == nil {
		return nil
	}

	envelope := struct {
		Success bool        `json:"success"`
		Data    interface{} `json:"data"`
	}{Data: out}
	if err := json.Unmarshal(respBody, &envelope); err != nil {
		return fmt.Errorf("failed to decode response: %w, body: %s", err, string(respBody))
	}

	return nil
}

// createProduct registers a catalog entry via the admin API
func (sc *simulationClient) createProduct(p simProduct) error {
	payload := map[string]interface{}{
		"product_id": p.id,
		"name":       p.name,
		"category":   p.category,
		"price":      p.price,
	}
	return sc.doJSON("POST", fmt.Sprintf("%s/api/v1/admin/products", sc.baseURL), sc.adminToken, payload, nil)
}

// initializeStock creates the stock record for a product with a starting level
func (sc *simulationClient) initializeStock(productID string, stock int) error {
	payload := map[string]int{"initial_stock": stock}
	url := fmt.Sprintf("%s/api/v1/admin/inventory/%s/initialize", sc.baseURL, productID)
	return sc.doJSON("POST", url, sc.adminToken, payload, nil)
}

// createRule registers a pricing rule via the admin API
func (sc *simulationClient) createRule(rule map[string]interface{}) error {
	return sc.doJSON("POST", fmt.Sprintf("%s/api/v1/admin/rules", sc.baseURL), sc.adminToken, rule, nil)
}

// getQuote fetches the current price for a product at the given quantity
func (sc *simulationClient) getQuote(productID string, quantity int) (*pricing.PriceQuote, error) {
	start := time.Now()
	defer sc.record("quote", start)

	var quote pricing.PriceQuote
	url := fmt.Sprintf("%s/api/v1/price/%s?quantity=%d", sc.baseURL, productID, quantity)
	if err := sc.doJSON("GET", url, sc.authToken, nil, &quote); err != nil {
		return nil, err
	}
	return &quote, nil
}

// getStock fetches the current stock status for a product
func (sc *simulationClient) getStock(productID string) (*inventory.StockStatus, error) {
	start := time.Now()
	defer sc.record("stock", start)

	var status inventory.StockStatus
	url := fmt.Sprintf("%s/api/v1/inventory/%s", sc.baseURL, productID)
	if err := sc.doJSON("GET", url, sc.authToken, nil, &status); err != nil {
		return nil, err
	}
	return &status, nil
}

// reserve places a hold on stock for checkout
// Returns whether the reservation was granted
func (sc *simulationClient) reserve(productID string, quantity int) (bool, error) {
	start := time.Now()
	defer sc.record("reserve", start)

	var result struct {
		Reserved  bool `json:"reserved"`
		Available int  `json:"available"`
	}
	url := fmt.Sprintf("%s/api/v1/inventory/%s/reserve", sc.baseURL, productID)
	payload := map[string]int{"quantity": quantity}
	if err := sc.doJSON("POST", url, sc.authToken, payload, &result); err != nil {
		return false, err
	}
	return result.Reserved, nil
}

// release returns a held reservation to available stock
func (sc *simulationClient) release(productID string, quantity int) error {
	start := time.Now()
	defer sc.record("release", start)

	url := fmt.Sprintf("%s/api/v1/inventory/%s/release", sc.baseURL, productID)
	payload := map[string]int{"quantity": quantity}
	return sc.doJSON("POST", url, sc.authToken, payload, nil)
}

// confirmSale converts a reservation into a completed sale
func (sc *simulationClient) confirmSale(productID string, quantity int, orderID string) error {
	start := time.Now()
	defer sc.record("confirm", start)

	url := fmt.Sprintf("%s/api/v1/inventory/%s/confirm", sc.baseURL, productID)
	payload := map[string]interface{}{"quantity": quantity, "order_id": orderID}
	return sc.doJSON("POST", url, sc.authToken, payload, nil)
}

// printPerformanceStats outputs formatted performance statistics for all API endpoints
func (sc *simulationClient) printPerformanceStats() {
	fmt.Println("\n📊 API Performance Statistics")
	fmt.Println(strings.Repeat("-", 100))
	fmt.Printf("%-20s %10s %10s %10s %10s %10s %10s %10s %10s\n",
		"Endpoint", "Calls", "Errors", "Min", "Max", "Mean", "Median", "P95", "P99")
	fmt.Println(strings.Repeat("-", 100))

	for _, stats := range sc.stats {
		min, max, mean, median, p95, p99 := stats.calculate()
		fmt.Printf("%-20s %10d %10d %10s %10s %10s %10s %10s %10s\n",
			stats.name,
			stats.totalCalls,
			stats.failures,
			min.Round(time.Millisecond),
			max.Round(time.Millisecond),
			mean.Round(time.Millisecond),
			median.Round(time.Millisecond),
			p95.Round(time.Millisecond),
			p99.Round(time.Millisecond))
	}
	fmt.Println(strings.Repeat("-", 100))
}

// shopperStats aggregates outcomes across all simulated shoppers
type shopperStats struct {
	mu            sync.Mutex
	Attempts      int
	Reserved      int
	Rejected      int
	Confirmed     int
	Released      int
	Failed        int
	Revenue       float64
	UnitsSold     map[string]int
	Discounted    int
	QuoteFailures int
}

// main runs the storefront shopping simulation
// It starts a local API server, seeds the catalog, stock and pricing rules,
// then simulates concurrent shoppers checking out against shared inventory
func main() {
	// Start the server in a goroutine
	go func() {
		if err := startServer(); err != nil {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	// Wait for server to start
	time.Sleep(2 * time.Second)

	// Initialize simulation client
	simClient, err := newSimulationClient()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize simulation client")
	}

	// Seed catalog, stock records and pricing rules
	if err := seedStorefront(simClient); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed storefront")
	}

	// Generate random number of shoppers to simulate
	targetShoppers := rand.Intn(maxShoppers-minShoppers) + minShoppers
	log.Info().Int("target_shoppers", targetShoppers).Msg("Starting simulation")

	stats := &shopperStats{UnitsSold: make(map[string]int)}
	startTime := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < numWorkers; i++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			runShoppers(workerID, targetShoppers/numWorkers, simClient, stats)
		}(i)
	}
	wg.Wait()

	duration := time.Since(startTime)

	// Verify the ledger: confirmed sales must never exceed the seeded stock
	// and reserved stock must be fully drained once the run settles
	oversold := false
	fmt.Println("\n" + strings.Repeat("=", 80))
	fmt.Println("🛒 STOREFRONT SIMULATION SUMMARY")
	fmt.Println(strings.Repeat("=", 80))

	fmt.Println("\n📦 Final Stock Levels")
	fmt.Println("--------------------")
	for _, p := range products {
		status, err := simClient.getStock(p.id)
		if err != nil {
			log.Error().Err(err).Str("product_id", p.id).Msg("Failed to fetch final stock")
			continue
		}
		sold := stats.UnitsSold[p.id]
		if status.CurrentStock < 0 || sold > initialStock {
			oversold = true
		}
		fmt.Printf("%-14s stock=%3d reserved=%3d available=%3d sold=%3d low=%v out=%v\n",
			p.id, status.CurrentStock, status.ReservedStock, status.AvailableStock,
			sold, status.LowStock, status.OutOfStock)
	}

	fmt.Printf(`
📊 Checkout Statistics
---------------------
Attempts:         %d
Reserved:         %d
Rejected:         %d
Confirmed:        %d
Released:         %d
Failed:           %d
Discounted:       %d
Revenue:          $%.2f
Duration:         %v

🛍  Units Sold
-------------
`, stats.Attempts, stats.Reserved, stats.Rejected, stats.Confirmed, stats.Released,
		stats.Failed, stats.Discounted, stats.Revenue, duration.Round(time.Millisecond))

	// Print sales distribution with simple ASCII bar chart
	maxSold := 0
	for _, count := range stats.UnitsSold {
		if count > maxSold {
			maxSold = count
		}
	}
	for _, p := range products {
		count := stats.UnitsSold[p.id]
		barLength := 0
		if maxSold > 0 {
			barLength = int(float64(count) / float64(maxSold) * 20)
		}
		bar := strings.Repeat("█", barLength)
		fmt.Printf("%-14s: %s (%d)\n", p.id, bar, count)
	}

	fmt.Println("\n" + strings.Repeat("=", 80))

	if oversold {
		log.Error().Msg("Oversell detected: confirmed sales exceeded seeded stock")
	} else {
		log.Info().Msg("No oversell: all confirmed sales covered by seeded stock")
	}

	successRate := 0.0
	if stats.Attempts > 0 {
		successRate = float64(stats.Confirmed) / float64(stats.Attempts) * 100
	}
	log.Info().
		Float64("success_rate", successRate).
		Int("attempts", stats.Attempts).
		Int("confirmed", stats.Confirmed).
		Float64("revenue", stats.Revenue).
		Dur("duration", duration).
		Msg("Simulation completed")

	simClient.printPerformanceStats()
}

// seedStorefront creates the catalog entries, stock records and pricing rules
// used by the shopping run
func seedStorefront(simClient *simulationClient) error {
	for _, p := range products {
		if err := simClient.createProduct(p); err != nil {
			return fmt.Errorf("create product %s: %w", p.id, err)
		}
		if err := simClient.initializeStock(p.id, initialStock); err != nil {
			return fmt.Errorf("initialize stock %s: %w", p.id, err)
		}
		log.Info().Str("product_id", p.id).Int("stock", initialStock).Msg("Product seeded")
	}

	discount := 20.0
	surge := 1.25
	end := time.Now().Add(1 * time.Hour)
	rules := []map[string]interface{}{
		{
			"kind":             "flash_sale",
			"product_id":       "PROD_TSHIRT",
			"discount_percent": discount,
			"end_time":         end,
			"priority":         10,
			"is_active":        true,
		},
		{
			"kind":             "bulk_discount",
			"category":         "homeware",
			"discount_percent": 10.0,
			"min_quantity":     2,
			"priority":         5,
			"is_active":        true,
		},
		{
			"kind":       "demand_surge",
			"product_id": "PROD_SNEAKER",
			"multiplier": surge,
			"priority":   8,
			"is_active":  true,
			"conditions": map[string]interface{}{"min_viewers": 50},
		},
	}
	for _, rule := range rules {
		if err := simClient.createRule(rule); err != nil {
			return fmt.Errorf("create rule: %w", err)
		}
	}
	log.Info().Int("rules", len(rules)).Msg("Pricing rules seeded")

	return nil
}

// runShoppers simulates a stream of shoppers for one worker
// Each shopper quotes a price, reserves stock, then confirms or abandons
func runShoppers(workerID, numShoppers int, simClient *simulationClient, stats *shopperStats) {
	for i := 0; i < numShoppers; i++ {
		p := products[rand.Intn(len(products))]
		quantity := rand.Intn(3) + 1

		stats.mu.Lock()
		stats.Attempts++
		stats.mu.Unlock()

		quote, err := simClient.getQuote(p.id, quantity)
		if err != nil {
			log.Error().Err(err).Str("product_id", p.id).Msg("Failed to fetch quote")
			stats.mu.Lock()
			stats.QuoteFailures++
			stats.mu.Unlock()
			continue
		}

		reserved, err := simClient.reserve(p.id, quantity)
		if err != nil {
			log.Error().Err(err).Str("product_id", p.id).Msg("Failed to reserve stock")
			stats.mu.Lock()
			stats.Failed++
			stats.mu.Unlock()
			continue
		}
		if !reserved {
			log.Info().
				Str("product_id", p.id).
				Int("quantity", quantity).
				Msg("Reservation rejected, insufficient stock")
			stats.mu.Lock()
			stats.Rejected++
			stats.mu.Unlock()
			continue
		}

		stats.mu.Lock()
		stats.Reserved++
		stats.mu.Unlock()

		// Most shoppers complete checkout, some abandon the cart
		if rand.Float64() < 0.8 {
			orderID := fmt.Sprintf("ORD_%s", uuid.New().String())
			if err := simClient.confirmSale(p.id, quantity, orderID); err != nil {
				log.Error().Err(err).Str("product_id", p.id).Msg("Failed to confirm sale")
				stats.mu.Lock()
				stats.Failed++
				stats.mu.Unlock()
				continue
			}
			stats.mu.Lock()
			stats.Confirmed++
			stats.UnitsSold[p.id] += quantity
			stats.Revenue += quote.CurrentPrice * float64(quantity)
			if quote.DiscountPercent > 0 {
				stats.Discounted++
			}
			stats.mu.Unlock()
			log.Info().
				Str("worker_id", fmt.Sprintf("%d", workerID)).
				Str("product_id", p.id).
				Str("order_id", orderID).
				Int("quantity", quantity).
				Float64("unit_price", quote.CurrentPrice).
				Float64("discount_percent", quote.DiscountPercent).
				Msg("Sale confirmed")
		} else {
			if err := simClient.release(p.id, quantity); err != nil {
				log.Error().Err(err).Str("product_id", p.id).Msg("Failed to release reservation")
				stats.mu.Lock()
				stats.Failed++
				stats.mu.Unlock()
				continue
			}
			stats.mu.Lock()
			stats.Released++
			stats.mu.Unlock()
			log.Info().
				Str("worker_id", fmt.Sprintf("%d", workerID)).
				Str("product_id", p.id).
				Int("quantity", quantity).
				Msg("Cart abandoned, reservation released")
		}

		// Random sleep between shoppers
		time.Sleep(time.Duration(rand.Intn(200)) * time.Millisecond)
	}
}

// startServer initializes and starts the storefront API server
// Sets up all required services, handlers and routes
func startServer() error {
	// Initialize database
	db, err := database.NewDatabase()
	if err != nil {
		return fmt.Errorf("failed to initialize database: %w", err)
	}

	// Initialize services
	jwtSecret := "storefront-secret-key"
	authService := auth.NewService(jwtSecret)
	catalogService := catalog.NewService(db)
	inventoryService := inventory.NewService(db)
	pricingService := pricing.NewService(db, nil, catalogService, inventoryService)

	// Register test credentials
	authService.RegisterAPICredentials(auth.TestAPIKey, auth.TestAPISecret)
	authService.RegisterAPICredentials(auth.TestAdminAPIKey, auth.TestAdminAPISecret, auth.RoleStorefront, auth.RoleAdmin)

	// Initialize router
	router := gin.Default()
	authHandlers := auth.NewGinHandlers(authService)
	catalogHandlers := catalog.NewGinHandlers(catalogService)
	inventoryHandlers := inventory.NewGinHandlers(inventoryService)
	pricingHandlers := pricing.NewGinHandlers(pricingService)

	// Setup routes
	setupRoutes(router, jwtSecret, authHandlers, catalogHandlers, inventoryHandlers, pricingHandlers)

	// Start the server
	return router.Run(":8080")
}

// setupRoutes configures all API endpoints and their handlers
// Groups routes by functionality and applies appropriate middleware
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

		// Storefront routes
		inv := v1.Group("/inventory")
		inv.Use(middleware.JWTAuth(jwtSecret))
		{
			inv.GET("/:product_id", inventoryHandlers.GetStockStatusHandler())
			inv.POST("/:product_id/reserve", inventoryHandlers.ReserveHandler())
			inv.POST("/:product_id/release", inventoryHandlers.ReleaseHandler())
			inv.POST("/:product_id/confirm", inventoryHandlers.ConfirmSaleHandler())
			inv.POST("/:product_id/return", inventoryHandlers.ReturnHandler())
		}

		price := v1.Group("/price")
		price.Use(middleware.JWTAuth(jwtSecret))
		{
			price.GET("/:product_id", pricingHandlers.GetQuoteHandler())
		}

		// Admin routes
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminAuth(jwtSecret))
		{
			admin.POST("/products", catalogHandlers.UpsertProductHandler())
			admin.POST("/inventory/:product_id/initialize", inventoryHandlers.InitializeHandler())
			admin.POST("/rules", pricingHandlers.CreateRuleHandler())
		}
	}
}

package routes

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sangkips/storefront-api/internal/application/service"
	"github.com/sangkips/storefront-api/internal/config"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/infrastructure/memory"
	"github.com/sangkips/storefront-api/internal/presentation/http/handler"
	"github.com/sangkips/storefront-api/internal/presentation/http/middleware"
	"github.com/sangkips/storefront-api/pkg/apperror"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"github.com/sangkips/storefront-api/pkg/printer"
	"github.com/sangkips/storefront-api/pkg/utils"
	"go.uber.org/zap"
)

type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorType string          `json:"error_type"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := memory.NewStore()
	zl := zap.NewNop()
	reg := metrics.NewRegistry("storefront-test")
	jwtManager := utils.NewJWTManager("test-secret", time.Hour)

	users := memory.NewUserRepository(store)
	products := memory.NewProductRepository(store)
	orders := memory.NewOrderRepository(store)
	receipts := memory.NewReceiptRepository(store)
	settings := memory.NewSettingsRepository(store)

	hashed, err := utils.HashPassword("admin12345")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	admin := &entity.User{Name: "Admin", Email: "admin@example.com", Password: hashed, Role: enum.RoleAdmin, IsSuperAdmin: true}
	if err := users.Create(context.Background(), admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}

	cfg := &config.Config{
		App:     config.AppConfig{Name: "storefront-api", Version: "test"},
		Metrics: config.MetricsConfig{Enabled: true, Path: "/metrics"},
		Delivery: config.DeliveryConfig{
			InsideZone:     "inside_dhaka",
			OutsideZone:    "outside_dhaka",
			InsideKeywords: []string{"dhaka"},
			InsideFee:      8000,
			OutsideFee:     12000,
		},
	}

	auth := service.NewAuthService(users, jwtManager, zl)
	inventory := service.NewInventoryService(products, reg, zl)
	delivery := service.NewDeliveryCalculator(cfg.Delivery)
	payments := service.NewPaymentService(nil, "bdt", zl)
	numberer := service.NewReceiptNumberer(memory.NewSequenceRepository(store), receipts)
	receiptService := service.NewReceiptService(receipts, orders, settings, numberer, service.NewNoopPublisher(), nil, reg, zl, 1)

	handlers := &Handlers{
		Auth:     handler.NewAuthHandler(auth),
		User:     handler.NewUserHandler(service.NewUserService(users, auth, zl)),
		Product:  handler.NewProductHandler(service.NewProductService(products, inventory)),
		Order:    handler.NewOrderHandler(service.NewOrderService(orders, products, inventory, delivery, payments, service.NewNoopPublisher(), reg, zl, 1)),
		Receipt:  handler.NewReceiptHandler(receiptService),
		Sales:    handler.NewSalesHandler(service.NewSalesService(memory.NewAnalyticsRepository(store), time.UTC)),
		Delivery: handler.NewDeliveryHandler(delivery),
		Payment:  handler.NewPaymentHandler(payments),
		Settings: handler.NewSettingsHandler(service.NewSettingsService(settings)),
		Printer:  handler.NewPrinterHandler(service.NewPrinterService(printer.NewNullPrinter(), receipts, settings, printer.TypeNone, 32, zl)),
	}

	limiter := middleware.NewRateLimiter(middleware.NewRateLimiterConfig(1000, time.Minute))
	t.Cleanup(limiter.Stop)

	router := Setup(handlers, &Deps{
		JWTManager:      jwtManager,
		Cfg:             cfg,
		IdempotencyRepo: memory.NewIdempotencyRepository(store),
		Metrics:         reg,
		Logger:          zl,
		RateLimiter:     limiter,
	})
	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body interface{}, headers ...string) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if path != "/metrics" {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("%s %s: decode %q: %v", method, path, w.Body.String(), err)
		}
	}
	return w, env
}

func (s *testServer) login(email, password string) string {
	s.t.Helper()
	w, env := s.do(http.MethodPost, "/api/v1/auth/login", "", gin.H{"email": email, "password": password})
	if w.Code != http.StatusOK {
		s.t.Fatalf("login %s: %d %s", email, w.Code, w.Body.String())
	}
	var data struct {
		AccessToken string `json:"access_token"`
	}
	mustDecode(s.t, env.Data, &data)
	return data.AccessToken
}

func mustDecode(t *testing.T, raw json.RawMessage, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(raw, v); err != nil {
		t.Fatalf("decode %s: %v", raw, err)
	}
}

func TestCheckoutFlow(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodPost, "/api/v1/auth/register", "", gin.H{
		"name": "Rahim", "email": "rahim@example.com", "password": "secret123",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("register: %d %s", w.Code, w.Body.String())
	}
	var registered struct {
		AccessToken string `json:"access_token"`
	}
	mustDecode(t, env.Data, &registered)
	customer := registered.AccessToken
	admin := s.login("admin@example.com", "admin12345")

	w, _ = s.do(http.MethodPost, "/api/v1/products", customer, gin.H{"name": "Clay Mug", "price": 100, "stock": 5})
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer product create: expected 403, got %d", w.Code)
	}

	w, env = s.do(http.MethodPost, "/api/v1/products", admin, gin.H{"name": "Clay Mug", "price": 100, "stock": 5})
	if w.Code != http.StatusCreated {
		t.Fatalf("create product: %d %s", w.Code, w.Body.String())
	}
	var product struct {
		ID    string  `json:"id"`
		Price float64 `json:"price"`
	}
	mustDecode(t, env.Data, &product)
	if product.Price != 100 {
		t.Fatalf("unexpected price %v", product.Price)
	}

	order := gin.H{
		"items": []gin.H{{"product_id": product.ID, "quantity": 2}},
		"shipping_address": gin.H{
			"name": "Rahim", "phone": "01700000000", "address": "House 1, Road 2", "city": "Dhaka",
		},
	}
	w, env = s.do(http.MethodPost, "/api/v1/orders", customer, order, "Idempotency-Key", "checkout-1")
	if w.Code != http.StatusCreated {
		t.Fatalf("place order: %d %s", w.Code, w.Body.String())
	}
	var placed struct {
		ID         string  `json:"id"`
		TrackingID string  `json:"tracking_id"`
		Total      float64 `json:"total_amount"`
	}
	mustDecode(t, env.Data, &placed)
	if placed.Total != 280 {
		t.Fatalf("expected total 280, got %v", placed.Total)
	}

	// Replaying the key returns the first order and reserves nothing more
	w, env = s.do(http.MethodPost, "/api/v1/orders", customer, order, "Idempotency-Key", "checkout-1")
	if w.Code != http.StatusCreated || w.Header().Get("X-Idempotency-Replayed") != "true" {
		t.Fatalf("replay: %d replayed=%q", w.Code, w.Header().Get("X-Idempotency-Replayed"))
	}
	var replayed struct {
		TrackingID string `json:"tracking_id"`
	}
	mustDecode(t, env.Data, &replayed)
	if replayed.TrackingID != placed.TrackingID {
		t.Fatalf("replay returned %s, want %s", replayed.TrackingID, placed.TrackingID)
	}

	_, env = s.do(http.MethodGet, "/api/v1/products/"+product.ID, "", nil)
	var stock struct {
		Stock int `json:"stock"`
	}
	mustDecode(t, env.Data, &stock)
	if stock.Stock != 3 {
		t.Fatalf("expected stock 3, got %d", stock.Stock)
	}

	w, env = s.do(http.MethodGet, "/api/v1/orders/track/"+placed.TrackingID, "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("track: %d", w.Code)
	}
	var tracked map[string]interface{}
	mustDecode(t, env.Data, &tracked)
	if _, ok := tracked["shipping_address"]; ok {
		t.Fatalf("public tracking must not expose the shipping address")
	}

	w, _ = s.do(http.MethodPost, "/api/v1/receipts/order/"+placed.ID, customer, nil)
	if w.Code != http.StatusCreated {
		t.Fatalf("generate receipt: %d %s", w.Code, w.Body.String())
	}
	w, _ = s.do(http.MethodPost, "/api/v1/receipts/order/"+placed.ID, customer, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("second receipt call: expected 200, got %d", w.Code)
	}

	w, _ = s.do(http.MethodGet, "/api/v1/sales?range=all", customer, nil)
	if w.Code != http.StatusForbidden {
		t.Fatalf("customer sales: expected 403, got %d", w.Code)
	}
	w, env = s.do(http.MethodGet, "/api/v1/sales?range=all", admin, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("sales: %d %s", w.Code, w.Body.String())
	}
	var sales struct {
		TotalOrders  int     `json:"totalOrders"`
		TotalRevenue float64 `json:"totalRevenue"`
	}
	mustDecode(t, env.Data, &sales)
	if sales.TotalOrders != 1 || sales.TotalRevenue != 280 {
		t.Fatalf("unexpected sales %+v", sales)
	}
}

func TestOrderErrors(t *testing.T) {
	s := newTestServer(t)
	admin := s.login("admin@example.com", "admin12345")

	w, _ := s.do(http.MethodGet, "/api/v1/orders", "", nil)
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", w.Code)
	}

	w, env := s.do(http.MethodPost, "/api/v1/orders/pos", admin, gin.H{
		"items": []gin.H{{"_id": "legacy-42", "quantity": 1}},
	})
	if w.Code != http.StatusNotFound || env.ErrorType != apperror.TypeProductNotFound {
		t.Fatalf("expected product not found, got %d %s", w.Code, w.Body.String())
	}

	w, env = s.do(http.MethodPost, "/api/v1/orders/pos", admin, gin.H{"items": []gin.H{}})
	if w.Code != http.StatusBadRequest || env.Success {
		t.Fatalf("expected validation error, got %d %s", w.Code, w.Body.String())
	}

	w, _ = s.do(http.MethodGet, "/api/v1/orders/track/TRK-NOPE0000", "", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 for unknown tracking id, got %d", w.Code)
	}
}

func TestPublicEndpoints(t *testing.T) {
	s := newTestServer(t)

	w, env := s.do(http.MethodGet, "/api/v1/delivery/quote?city=Chittagong", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("quote: %d", w.Code)
	}
	var quote struct {
		Zone string  `json:"zone"`
		Fee  float64 `json:"fee"`
	}
	mustDecode(t, env.Data, &quote)
	if quote.Zone != "outside_dhaka" || quote.Fee != 120 {
		t.Fatalf("unexpected quote %+v", quote)
	}

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health: %d", rec.Code)
	}

	w, _ = s.do(http.MethodGet, "/metrics", "", nil)
	if w.Code != http.StatusOK || !bytes.Contains(w.Body.Bytes(), []byte("http_requests_total")) {
		t.Fatalf("metrics endpoint missing request counter: %d", w.Code)
	}
}

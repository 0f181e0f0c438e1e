package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/sangkips/storefront-api/internal/config"
	"github.com/sangkips/storefront-api/internal/domain/entity"
	"github.com/sangkips/storefront-api/internal/domain/enum"
	"github.com/sangkips/storefront-api/internal/domain/repository"
	"github.com/sangkips/storefront-api/internal/infrastructure/memory"
	"github.com/sangkips/storefront-api/pkg/email"
	"github.com/sangkips/storefront-api/pkg/metrics"
	"go.uber.org/zap"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(ctx context.Context, event Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

type fakeGateway struct {
	intents map[string]PaymentIntent
}

func (g *fakeGateway) CreateIntent(ctx context.Context, amount int64, currency string, metadata map[string]string) (*PaymentIntent, error) {
	return &PaymentIntent{ID: "pi_test", ClientSecret: "pi_test_secret", Status: "requires_payment_method", Amount: amount, Currency: currency}, nil
}

func (g *fakeGateway) GetIntent(ctx context.Context, id string) (*PaymentIntent, error) {
	intent, ok := g.intents[id]
	if !ok {
		return nil, fmt.Errorf("no such payment intent: %s", id)
	}
	intent.ID = id
	return &intent, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []string
}

func (m *recordingMailer) SendReceiptEmail(ctx context.Context, to string, receipt email.ReceiptEmail) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, to+" "+receipt.ReceiptNumber)
	return nil
}

type testEnv struct {
	products  repository.ProductRepository
	orders    repository.OrderRepository
	receipts  repository.ReceiptRepository
	sequences repository.SequenceRepository
	settings  repository.SettingsRepository

	inventory *InventoryService
	orderSvc  *OrderService
	receipt   *ReceiptService
	sales     *SalesService
	publisher *recordingPublisher
	mailer    *recordingMailer
	gateway   *fakeGateway
	metrics   *metrics.Registry
}

var (
	testCustomer = Actor{UserID: uuid.MustParse("11111111-1111-1111-1111-111111111111"), Roles: []string{enum.RoleCustomer}}
	testAdmin    = Actor{UserID: uuid.MustParse("22222222-2222-2222-2222-222222222222"), Roles: []string{enum.RoleAdmin}}
)

// testIntents are sized for one 100.00 item shipped inside Dhaka
func testIntents() map[string]PaymentIntent {
	return map[string]PaymentIntent{
		"pi_paid":  {Status: "succeeded", Amount: 18000, Currency: "bdt"},
		"pi_open":  {Status: "requires_action", Amount: 18000, Currency: "BDT"},
		"pi_cheap": {Status: "succeeded", Amount: 100, Currency: "bdt"},
		"pi_usd":   {Status: "succeeded", Amount: 18000, Currency: "usd"},
	}
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	store := memory.NewStore()
	logger := zap.NewNop()
	reg := metrics.NewRegistry("storefront-test")

	env := &testEnv{
		products:  memory.NewProductRepository(store),
		orders:    memory.NewOrderRepository(store),
		receipts:  memory.NewReceiptRepository(store),
		sequences: memory.NewSequenceRepository(store),
		settings:  memory.NewSettingsRepository(store),
		publisher: &recordingPublisher{},
		mailer:    &recordingMailer{},
		gateway:   &fakeGateway{intents: testIntents()},
		metrics:   reg,
	}

	delivery := NewDeliveryCalculator(config.DeliveryConfig{
		InsideZone:     "inside_dhaka",
		OutsideZone:    "outside_dhaka",
		InsideKeywords: []string{"dhaka"},
		InsideFee:      8000,
		OutsideFee:     12000,
	})
	payments := NewPaymentService(env.gateway, "bdt", logger)

	env.inventory = NewInventoryService(env.products, reg, logger)
	env.orderSvc = NewOrderService(env.orders, env.products, env.inventory, delivery, payments, env.publisher, reg, logger, 1)
	numberer := NewReceiptNumberer(env.sequences, env.receipts)
	env.receipt = NewReceiptService(env.receipts, env.orders, env.settings, numberer, env.publisher, env.mailer, reg, logger, 1)
	env.sales = NewSalesService(memory.NewAnalyticsRepository(store), time.UTC)
	return env
}

func (e *testEnv) addProduct(t *testing.T, name string, price int64, stock int) *entity.Product {
	t.Helper()
	p := &entity.Product{Name: name, Price: price, Stock: stock}
	if err := e.products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product: %v", err)
	}
	return p
}

func (e *testEnv) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := e.products.GetByID(context.Background(), id)
	if err != nil || p == nil {
		t.Fatalf("load product %s: %v", id, err)
	}
	return p.Stock
}

func (e *testEnv) orderCount(t *testing.T) int64 {
	t.Helper()
	params := &repository.OrderFilterParams{}
	params.Validate()
	_, total, err := e.orders.List(context.Background(), params)
	if err != nil {
		t.Fatalf("list orders: %v", err)
	}
	return total
}

func dhakaShipping() entity.ShippingAddress {
	return entity.ShippingAddress{Name: "Rahim", Phone: "01700000000", Email: "rahim@example.com", Address: "House 1, Road 2", City: "Dhaka"}
}

func int64Ptr(v int64) *int64 { return &v }
